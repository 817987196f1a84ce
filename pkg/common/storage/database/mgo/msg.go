// Copyright © 2024 Plume. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mgo

import (
	"context"
	"errors"

	"github.com/openimsdk/tools/db/mongoutil"
	"github.com/openimsdk/tools/errs"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/plumeim/plume-im-server/pkg/common/storage/database"
)

func NewMsgMongo(db *mongo.Database) (database.MsgStore, error) {
	coll := db.Collection(database.MsgName)
	_, err := coll.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "server_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, errs.Wrap(err)
	}
	return &msgMongo{coll: coll}, nil
}

type msgMongo struct {
	coll *mongo.Collection
}

func (m *msgMongo) Insert(ctx context.Context, msg *database.Msg) error {
	_, err := m.coll.InsertOne(ctx, msg)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return errs.WrapMsg(err, "insert message failed", "serverID", msg.ServerID)
	}
	return nil
}

func (m *msgMongo) Find(ctx context.Context, serverIDs []string) ([]*database.Msg, error) {
	if len(serverIDs) == 0 {
		return nil, nil
	}
	msgs, err := mongoutil.Find[*database.Msg](ctx, m.coll, bson.M{"server_id": bson.M{"$in": serverIDs}})
	if err != nil {
		return nil, errs.WrapMsg(err, "find messages failed", "count", len(serverIDs))
	}
	return msgs, nil
}

// IsNotFound reports whether err is the driver's no-documents sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
