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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestMarkReadEmptySeqsIsNoOp(t *testing.T) {
	// no seqs means no update; the store is never touched
	i := &inboxMongo{}
	require.NoError(t, i.MarkRead(context.Background(), "u1", nil))
}

func TestInsertManyEmptyIsNoOp(t *testing.T) {
	i := &inboxMongo{}
	require.NoError(t, i.InsertMany(context.Background(), nil))
}

func dupWriteError() mongo.BulkWriteError {
	return mongo.BulkWriteError{WriteError: mongo.WriteError{Code: 11000}}
}

func TestIsDuplicateOnly(t *testing.T) {
	assert.False(t, isDuplicateOnly(errors.New("network down")))

	assert.True(t, isDuplicateOnly(mongo.BulkWriteException{
		WriteErrors: []mongo.BulkWriteError{dupWriteError(), dupWriteError()},
	}))

	assert.False(t, isDuplicateOnly(mongo.BulkWriteException{
		WriteErrors: []mongo.BulkWriteError{
			dupWriteError(),
			{WriteError: mongo.WriteError{Code: 2}},
		},
	}))

	assert.False(t, isDuplicateOnly(mongo.BulkWriteException{
		WriteConcernError: &mongo.WriteConcernError{Code: 64},
		WriteErrors:       []mongo.BulkWriteError{dupWriteError()},
	}))

	// an exception with no write errors carries some other failure
	assert.False(t, isDuplicateOnly(mongo.BulkWriteException{}))
}
