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

	"github.com/openimsdk/tools/errs"
	"github.com/redis/go-redis/v9"

	"github.com/plumeim/plume-im-server/pkg/common/storage/cache"
	"github.com/plumeim/plume-im-server/pkg/common/storage/cache/cachekey"
)

// Counter state lives in a hash per (scope, user): CURR is the last assigned
// value, MAX the block ceiling. Both scripts mirror the same block rule: on
// first touch MAX becomes the step and grew is reported; once CURR passes
// MAX, MAX advances by one step and grew is reported again. After a crash
// the ceiling re-seeded from the snapshot store makes assigned values skip
// forward but never collide.
var incrSeqScript = redis.NewScript(`
local step = tonumber(ARGV[1])
local cur = redis.call("HINCRBY", KEYS[1], "CURR", 1)
local max = tonumber(redis.call("HGET", KEYS[1], "MAX"))
local grew = 0
if not max then
	max = step
	grew = 1
	redis.call("HSET", KEYS[1], "MAX", max)
elseif cur > max then
	max = max + step
	grew = 1
	redis.call("HSET", KEYS[1], "MAX", max)
end
return {cur, max, grew}
`)

var incrSeqBatchScript = redis.NewScript(`
local step = tonumber(ARGV[1])
local result = {}
for i, key in ipairs(KEYS) do
	local cur = redis.call("HINCRBY", key, "CURR", 1)
	local max = tonumber(redis.call("HGET", key, "MAX"))
	local grew = 0
	if not max then
		max = step
		grew = 1
		redis.call("HSET", key, "MAX", max)
	elseif cur > max then
		max = max + step
		grew = 1
		redis.call("HSET", key, "MAX", max)
	end
	result[3*i-2] = cur
	result[3*i-1] = max
	result[3*i] = grew
end
return result
`)

func NewSeqCacheRedis(rdb redis.UniversalClient, step int64) cache.SeqCache {
	return &seqCacheRedis{rdb: rdb, step: step}
}

type seqCacheRedis struct {
	rdb  redis.UniversalClient
	step int64
}

func (s *seqCacheRedis) key(scope cache.SeqScope, userID string) string {
	if scope == cache.ScopeSend {
		return cachekey.GetSendSeqKey(userID)
	}
	return cachekey.GetRecvSeqKey(userID)
}

func (s *seqCacheRedis) Incr(ctx context.Context, scope cache.SeqScope, userID string) (cache.SeqRecord, error) {
	vals, err := incrSeqScript.Run(ctx, s.rdb, []string{s.key(scope, userID)}, s.step).Int64Slice()
	if err != nil {
		return cache.SeqRecord{}, errs.WrapMsg(err, "incr seq failed", "scope", string(scope), "userID", userID)
	}
	if len(vals) != 3 {
		return cache.SeqRecord{}, errs.New("incr seq invalid result", "len", len(vals))
	}
	return cache.SeqRecord{Cur: vals[0], Max: vals[1], Grew: vals[2] == 1}, nil
}

func (s *seqCacheRedis) IncrBatch(ctx context.Context, scope cache.SeqScope, userIDs []string) ([]cache.SeqRecord, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(userIDs))
	for _, userID := range userIDs {
		keys = append(keys, s.key(scope, userID))
	}
	vals, err := incrSeqBatchScript.Run(ctx, s.rdb, keys, s.step).Int64Slice()
	if err != nil {
		return nil, errs.WrapMsg(err, "incr seq batch failed", "scope", string(scope), "count", len(userIDs))
	}
	if len(vals) != 3*len(userIDs) {
		return nil, errs.New("incr seq batch invalid result", "len", len(vals), "want", 3*len(userIDs))
	}
	records := make([]cache.SeqRecord, len(userIDs))
	for i := range userIDs {
		records[i] = cache.SeqRecord{
			Cur:  vals[3*i],
			Max:  vals[3*i+1],
			Grew: vals[3*i+2] == 1,
		}
	}
	return records, nil
}

func (s *seqCacheRedis) Get(ctx context.Context, scope cache.SeqScope, userID string) (int64, int64, error) {
	vals, err := s.rdb.HMGet(ctx, s.key(scope, userID), "CURR", "MAX").Result()
	if err != nil {
		return 0, 0, errs.WrapMsg(err, "get seq failed", "scope", string(scope), "userID", userID)
	}
	cur, err := parseInt64(vals[0])
	if err != nil {
		return 0, 0, err
	}
	max, err := parseInt64(vals[1])
	if err != nil {
		return 0, 0, err
	}
	return cur, max, nil
}

func (s *seqCacheRedis) SetBulk(ctx context.Context, snapshots []cache.SeqSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	pipe := s.rdb.Pipeline()
	for _, snapshot := range snapshots {
		pipe.HSet(ctx, cachekey.GetSendSeqKey(snapshot.UserID), "CURR", snapshot.SendMax, "MAX", snapshot.SendMax)
		pipe.HSet(ctx, cachekey.GetRecvSeqKey(snapshot.UserID), "CURR", snapshot.RecvMax, "MAX", snapshot.RecvMax)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errs.WrapMsg(err, "set seq bulk failed", "count", len(snapshots))
	}
	return nil
}

func (s *seqCacheRedis) IsLoaded(ctx context.Context) (bool, error) {
	n, err := s.rdb.Exists(ctx, cachekey.GetSeqLoadedKey()).Result()
	if err != nil {
		return false, errs.Wrap(err)
	}
	return n == 1, nil
}

func (s *seqCacheRedis) SetLoaded(ctx context.Context) error {
	if err := s.rdb.Set(ctx, cachekey.GetSeqLoadedKey(), 1, 0).Err(); err != nil {
		return errs.Wrap(err)
	}
	return nil
}
