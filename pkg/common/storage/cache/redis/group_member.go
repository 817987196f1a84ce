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
	"fmt"
	"strconv"

	"github.com/openimsdk/tools/errs"
	"github.com/redis/go-redis/v9"

	"github.com/plumeim/plume-im-server/pkg/common/storage/cache"
	"github.com/plumeim/plume-im-server/pkg/common/storage/cache/cachekey"
)

func NewGroupMemberCacheRedis(rdb redis.UniversalClient) cache.GroupMemberCache {
	return &groupMemberCacheRedis{rdb: rdb}
}

type groupMemberCacheRedis struct {
	rdb redis.UniversalClient
}

func (g *groupMemberCacheRedis) GetMemberIDs(ctx context.Context, groupID string) ([]string, error) {
	members, err := g.rdb.SMembers(ctx, cachekey.GetGroupMemberIDsKey(groupID)).Result()
	if err != nil {
		return nil, errs.WrapMsg(err, "get group members failed", "groupID", groupID)
	}
	return members, nil
}

func (g *groupMemberCacheRedis) AddMember(ctx context.Context, groupID string, userID string) error {
	return g.AddMembers(ctx, groupID, []string{userID})
}

func (g *groupMemberCacheRedis) AddMembers(ctx context.Context, groupID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	members := make([]any, 0, len(userIDs))
	for _, userID := range userIDs {
		members = append(members, userID)
	}
	if err := g.rdb.SAdd(ctx, cachekey.GetGroupMemberIDsKey(groupID), members...).Err(); err != nil {
		return errs.WrapMsg(err, "add group members failed", "groupID", groupID)
	}
	return nil
}

func (g *groupMemberCacheRedis) RemoveMember(ctx context.Context, groupID string, userID string) error {
	return g.RemoveMembers(ctx, groupID, []string{userID})
}

func (g *groupMemberCacheRedis) RemoveMembers(ctx context.Context, groupID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	members := make([]any, 0, len(userIDs))
	for _, userID := range userIDs {
		members = append(members, userID)
	}
	if err := g.rdb.SRem(ctx, cachekey.GetGroupMemberIDsKey(groupID), members...).Err(); err != nil {
		return errs.WrapMsg(err, "remove group members failed", "groupID", groupID)
	}
	return nil
}

func (g *groupMemberCacheRedis) RemoveAll(ctx context.Context, groupID string) error {
	if err := g.rdb.Del(ctx, cachekey.GetGroupMemberIDsKey(groupID)).Err(); err != nil {
		return errs.WrapMsg(err, "remove group failed", "groupID", groupID)
	}
	return nil
}

// parseInt64 converts a value returned by redis into int64; nil means the
// field is absent and reads as zero.
func parseInt64(val any) (int64, error) {
	switch v := val.(type) {
	case nil:
		return 0, nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case string:
		res, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, errs.WrapMsg(err, "invalid string not int64", "value", v)
		}
		return res, nil
	default:
		return 0, errs.New("invalid result not int64", "resType", fmt.Sprintf("%T", v))
	}
}
