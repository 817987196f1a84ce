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

package redis

import (
	"context"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumeim/plume-im-server/pkg/common/storage/cache/cachekey"
)

func TestGroupMemberCache(t *testing.T) {
	db, mock := redismock.NewClientMock()
	g := NewGroupMemberCacheRedis(db)
	ctx := context.Background()
	key := cachekey.GetGroupMemberIDsKey("g1")

	mock.ExpectSAdd(key, "u1", "u2").SetVal(2)
	require.NoError(t, g.AddMembers(ctx, "g1", []string{"u1", "u2"}))

	mock.ExpectSMembers(key).SetVal([]string{"u1", "u2"})
	members, err := g.GetMemberIDs(ctx, "g1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u1", "u2"}, members)

	mock.ExpectSRem(key, "u1").SetVal(1)
	require.NoError(t, g.RemoveMember(ctx, "g1", "u1"))

	mock.ExpectDel(key).SetVal(1)
	require.NoError(t, g.RemoveAll(ctx, "g1"))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupMemberCacheEmptyArgs(t *testing.T) {
	db, _ := redismock.NewClientMock()
	g := NewGroupMemberCacheRedis(db)
	ctx := context.Background()

	// no-ops never touch redis
	require.NoError(t, g.AddMembers(ctx, "g1", nil))
	require.NoError(t, g.RemoveMembers(ctx, "g1", nil))
}
