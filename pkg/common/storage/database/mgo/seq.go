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

	"github.com/openimsdk/tools/db/mongoutil"
	"github.com/openimsdk/tools/errs"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/plumeim/plume-im-server/pkg/common/storage/database"
)

func NewSeqMongo(db *mongo.Database) (database.SeqStore, error) {
	coll := db.Collection(database.SeqName)
	_, err := coll.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, errs.Wrap(err)
	}
	return &seqMongo{coll: coll}, nil
}

type seqMongo struct {
	coll *mongo.Collection
}

// setMax upserts one field of a user's snapshot, leaving the other field at
// zero when the row is freshly created.
func (s *seqMongo) setMax(ctx context.Context, userID string, field string, max int64) error {
	insert := bson.M{"user_id": userID, "send_max": int64(0), "recv_max": int64(0)}
	delete(insert, field)
	delete(insert, "user_id")
	update := bson.M{
		"$set":         bson.M{field: max},
		"$setOnInsert": insert,
	}
	opt := options.Update().SetUpsert(true)
	if err := mongoutil.UpdateOne(ctx, s.coll, bson.M{"user_id": userID}, update, false, opt); err != nil {
		return errs.WrapMsg(err, "set seq snapshot failed", "userID", userID, "field", field, "max", max)
	}
	return nil
}

func (s *seqMongo) SetSendMax(ctx context.Context, userID string, max int64) error {
	return s.setMax(ctx, userID, "send_max", max)
}

func (s *seqMongo) SetRecvMax(ctx context.Context, userID string, max int64) error {
	return s.setMax(ctx, userID, "recv_max", max)
}

func (s *seqMongo) SetRecvMaxBatch(ctx context.Context, maxes map[string]int64) error {
	if len(maxes) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(maxes))
	for userID, max := range maxes {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"user_id": userID}).
			SetUpdate(bson.M{
				"$set":         bson.M{"recv_max": max},
				"$setOnInsert": bson.M{"send_max": int64(0)},
			}).
			SetUpsert(true))
	}
	opt := options.BulkWrite().SetOrdered(false)
	if _, err := s.coll.BulkWrite(ctx, models, opt); err != nil {
		return errs.WrapMsg(err, "set recv max batch failed", "count", len(maxes))
	}
	return nil
}

func (s *seqMongo) All(ctx context.Context) ([]*database.SeqSnapshot, error) {
	snapshots, err := mongoutil.Find[*database.SeqSnapshot](ctx, s.coll, bson.M{})
	if err != nil {
		return nil, errs.WrapMsg(err, "load seq snapshots failed")
	}
	return snapshots, nil
}
