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
	"time"

	"github.com/openimsdk/tools/db/mongoutil"
	"github.com/openimsdk/tools/errs"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/plumeim/plume-im-server/pkg/common/storage/database"
)

func NewInboxMongo(db *mongo.Database) (database.InboxStore, error) {
	coll := db.Collection(database.InboxName)
	_, err := coll.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "server_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "seq", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "created_at", Value: 1}},
		},
	})
	if err != nil {
		return nil, errs.Wrap(err)
	}
	return &inboxMongo{coll: coll}, nil
}

type inboxMongo struct {
	coll *mongo.Collection
}

func (i *inboxMongo) Insert(ctx context.Context, entry *database.InboxEntry) error {
	_, err := i.coll.InsertOne(ctx, entry)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return errs.WrapMsg(err, "insert inbox entry failed", "userID", entry.UserID, "serverID", entry.ServerID)
	}
	return nil
}

// InsertMany writes the per-recipient rows of one group message. The write
// is unordered and duplicate keys are swallowed, so a redelivered record
// settles into the same row set.
func (i *inboxMongo) InsertMany(ctx context.Context, entries []*database.InboxEntry) error {
	if len(entries) == 0 {
		return nil
	}
	docs := make([]any, 0, len(entries))
	for _, entry := range entries {
		docs = append(docs, entry)
	}
	_, err := i.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil {
		if isDuplicateOnly(err) {
			return nil
		}
		return errs.WrapMsg(err, "insert inbox entries failed", "count", len(entries))
	}
	return nil
}

// isDuplicateOnly reports whether every error in a bulk write is a duplicate
// key violation.
func isDuplicateOnly(err error) bool {
	bulkErr, ok := err.(mongo.BulkWriteException)
	if !ok {
		return mongo.IsDuplicateKeyError(err)
	}
	if bulkErr.WriteConcernError != nil {
		return false
	}
	for _, writeErr := range bulkErr.WriteErrors {
		if !mongo.IsDuplicateKeyError(writeErr) {
			return false
		}
	}
	return len(bulkErr.WriteErrors) > 0
}

func (i *inboxMongo) MarkRead(ctx context.Context, userID string, seqs []int64) error {
	if len(seqs) == 0 {
		return nil
	}
	filter := bson.M{"user_id": userID, "seq": bson.M{"$in": seqs}}
	update := bson.M{"$set": bson.M{"read_flag": true}}
	if _, err := mongoutil.UpdateMany(ctx, i.coll, filter, update); err != nil {
		return errs.WrapMsg(err, "mark read failed", "userID", userID, "seqs", seqs)
	}
	return nil
}

func (i *inboxMongo) PullSince(ctx context.Context, userID string, seq int64, limit int64) ([]*database.InboxEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	opt := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}).SetLimit(limit)
	entries, err := mongoutil.Find[*database.InboxEntry](ctx, i.coll,
		bson.M{"user_id": userID, "seq": bson.M{"$gt": seq}}, opt)
	if err != nil {
		return nil, errs.WrapMsg(err, "pull inbox failed", "userID", userID, "seq", seq)
	}
	return entries, nil
}

func (i *inboxMongo) DeleteExpired(ctx context.Context, before time.Time, exceptTypes []int32) (int64, error) {
	filter := bson.M{"created_at": bson.M{"$lt": before}}
	if len(exceptTypes) > 0 {
		filter["msg_type"] = bson.M{"$nin": exceptTypes}
	}
	res, err := i.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, errs.WrapMsg(err, "delete expired inbox entries failed")
	}
	return res.DeletedCount, nil
}
