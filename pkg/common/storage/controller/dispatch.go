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

// Package controller composes the cache and durable stores into the units of
// work the services run: sequence assignment with block durability, history
// writes, membership upkeep and recovery.
package controller

import (
	"context"
	"time"

	"github.com/openimsdk/tools/log"

	"github.com/plumeim/plume-im-server/pkg/common/storage/cache"
	"github.com/plumeim/plume-im-server/pkg/common/storage/database"
	"github.com/plumeim/plume-im-server/pkg/protocol"
)

// GroupMemberSource is the repository fallback consulted on a membership
// cache miss. The group service RPC client satisfies it.
type GroupMemberSource interface {
	GetGroupMemberUserIDs(ctx context.Context, groupID string) ([]string, error)
}

// DispatchDatabase is everything the dispatcher needs from storage.
type DispatchDatabase interface {
	// MaintainSendSeq advances the sender's send counter and durably writes
	// its ceiling when the block grew or only one block of headroom remains.
	MaintainSendSeq(ctx context.Context, userID string) error
	// AssignRecvSeq allocates the receiver's next recv-seq; a grown ceiling
	// is persisted before the seq is returned.
	AssignRecvSeq(ctx context.Context, userID string) (int64, error)
	// AssignRecvSeqBatch allocates one recv-seq per member in a single cache
	// round-trip. Grown ceilings are persisted by the caller: SaveGroup folds
	// them into the inbox batch, PersistRecvMaxes covers records that write
	// no history.
	AssignRecvSeqBatch(ctx context.Context, userIDs []string) ([]*protocol.MemberSeq, error)
	// PersistRecvMaxes durably writes the grown recv ceilings of a batch
	// assignment whose record carries no history write.
	PersistRecvMaxes(ctx context.Context, members []*protocol.MemberSeq) error

	// GetGroupMemberIDs reads the membership set, falling back to the group
	// repository and repopulating the cache on a miss.
	GetGroupMemberIDs(ctx context.Context, groupID string) ([]string, error)
	AddGroupMembers(ctx context.Context, groupID string, userIDs []string) error
	RemoveGroupMember(ctx context.Context, groupID string, userID string) error
	RemoveGroupMembers(ctx context.Context, groupID string, userIDs []string) error
	RemoveGroup(ctx context.Context, groupID string) error

	SaveSingle(ctx context.Context, msg *protocol.Msg) error
	SaveGroup(ctx context.Context, msg *protocol.Msg, members []*protocol.MemberSeq) error
	MarkRead(ctx context.Context, userID string, seqs []int64) error

	// LoadSeq re-seeds the sequence cache from durable snapshots when the
	// loaded sentinel is absent.
	LoadSeq(ctx context.Context) error
	CleanExpiredInbox(ctx context.Context, before time.Time, exceptTypes []int32) (int64, error)
}

func NewDispatchDatabase(
	seqCache cache.SeqCache,
	memberCache cache.GroupMemberCache,
	msgStore database.MsgStore,
	inboxStore database.InboxStore,
	seqStore database.SeqStore,
	memberSource GroupMemberSource,
	seqStep int64,
) DispatchDatabase {
	return &dispatchDatabase{
		seqCache:     seqCache,
		memberCache:  memberCache,
		msgStore:     msgStore,
		inboxStore:   inboxStore,
		seqStore:     seqStore,
		memberSource: memberSource,
		seqStep:      seqStep,
	}
}

type dispatchDatabase struct {
	seqCache     cache.SeqCache
	memberCache  cache.GroupMemberCache
	msgStore     database.MsgStore
	inboxStore   database.InboxStore
	seqStore     database.SeqStore
	memberSource GroupMemberSource
	seqStep      int64
}

func (d *dispatchDatabase) MaintainSendSeq(ctx context.Context, userID string) error {
	rec, err := d.seqCache.Incr(ctx, cache.ScopeSend, userID)
	if err != nil {
		return err
	}
	if rec.Grew || rec.Cur == rec.Max-d.seqStep {
		if err := d.seqStore.SetSendMax(ctx, userID, rec.Max); err != nil {
			return err
		}
	}
	return nil
}

func (d *dispatchDatabase) AssignRecvSeq(ctx context.Context, userID string) (int64, error) {
	rec, err := d.seqCache.Incr(ctx, cache.ScopeRecv, userID)
	if err != nil {
		return 0, err
	}
	if rec.Grew {
		if err := d.seqStore.SetRecvMax(ctx, userID, rec.Max); err != nil {
			return 0, err
		}
	}
	return rec.Cur, nil
}

func (d *dispatchDatabase) AssignRecvSeqBatch(ctx context.Context, userIDs []string) ([]*protocol.MemberSeq, error) {
	records, err := d.seqCache.IncrBatch(ctx, cache.ScopeRecv, userIDs)
	if err != nil {
		return nil, err
	}
	members := make([]*protocol.MemberSeq, len(userIDs))
	for i, userID := range userIDs {
		members[i] = &protocol.MemberSeq{
			UserID: userID,
			Seq:    records[i].Cur,
			MaxSeq: records[i].Max,
			Grew:   records[i].Grew,
		}
	}
	return members, nil
}

func (d *dispatchDatabase) PersistRecvMaxes(ctx context.Context, members []*protocol.MemberSeq) error {
	grown := make(map[string]int64)
	for _, member := range members {
		if member.Grew {
			grown[member.UserID] = member.MaxSeq
		}
	}
	return d.seqStore.SetRecvMaxBatch(ctx, grown)
}

func (d *dispatchDatabase) GetGroupMemberIDs(ctx context.Context, groupID string) ([]string, error) {
	members, err := d.memberCache.GetMemberIDs(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if len(members) > 0 {
		return members, nil
	}
	members, err = d.memberSource.GetGroupMemberUserIDs(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}
	if err := d.memberCache.AddMembers(ctx, groupID, members); err != nil {
		// the set stays cold; the next message repopulates it
		log.ZWarn(ctx, "repopulate group member cache failed", err, "groupID", groupID)
	}
	return members, nil
}

func (d *dispatchDatabase) AddGroupMembers(ctx context.Context, groupID string, userIDs []string) error {
	return d.memberCache.AddMembers(ctx, groupID, userIDs)
}

func (d *dispatchDatabase) RemoveGroupMember(ctx context.Context, groupID string, userID string) error {
	return d.memberCache.RemoveMember(ctx, groupID, userID)
}

func (d *dispatchDatabase) RemoveGroupMembers(ctx context.Context, groupID string, userIDs []string) error {
	return d.memberCache.RemoveMembers(ctx, groupID, userIDs)
}

func (d *dispatchDatabase) RemoveGroup(ctx context.Context, groupID string) error {
	return d.memberCache.RemoveAll(ctx, groupID)
}

func (d *dispatchDatabase) SaveSingle(ctx context.Context, msg *protocol.Msg) error {
	if err := d.msgStore.Insert(ctx, toMsgModel(msg)); err != nil {
		return err
	}
	return d.inboxStore.Insert(ctx, &database.InboxEntry{
		UserID:    msg.ReceiverID,
		ServerID:  msg.ServerID,
		Seq:       msg.Seq,
		MsgType:   int32(msg.MsgType),
		CreatedAt: time.Now(),
	})
}

func (d *dispatchDatabase) SaveGroup(ctx context.Context, msg *protocol.Msg, members []*protocol.MemberSeq) error {
	if err := d.msgStore.Insert(ctx, toMsgModel(msg)); err != nil {
		return err
	}
	now := time.Now()
	entries := make([]*database.InboxEntry, 0, len(members))
	grown := make(map[string]int64)
	for _, member := range members {
		entries = append(entries, &database.InboxEntry{
			UserID:    member.UserID,
			ServerID:  msg.ServerID,
			Seq:       member.Seq,
			MsgType:   int32(msg.MsgType),
			CreatedAt: now,
		})
		if member.Grew {
			grown[member.UserID] = member.MaxSeq
		}
	}
	if err := d.inboxStore.InsertMany(ctx, entries); err != nil {
		return err
	}
	return d.seqStore.SetRecvMaxBatch(ctx, grown)
}

func (d *dispatchDatabase) MarkRead(ctx context.Context, userID string, seqs []int64) error {
	return d.inboxStore.MarkRead(ctx, userID, seqs)
}

func (d *dispatchDatabase) LoadSeq(ctx context.Context) error {
	loaded, err := d.seqCache.IsLoaded(ctx)
	if err != nil {
		return err
	}
	if loaded {
		return nil
	}
	snapshots, err := d.seqStore.All(ctx)
	if err != nil {
		return err
	}
	seeds := make([]cache.SeqSnapshot, 0, len(snapshots))
	for _, snapshot := range snapshots {
		seeds = append(seeds, cache.SeqSnapshot{
			UserID:  snapshot.UserID,
			SendMax: snapshot.SendMax,
			RecvMax: snapshot.RecvMax,
		})
	}
	if err := d.seqCache.SetBulk(ctx, seeds); err != nil {
		return err
	}
	if err := d.seqCache.SetLoaded(ctx); err != nil {
		return err
	}
	log.ZInfo(ctx, "seq cache seeded from snapshots", "users", len(seeds))
	return nil
}

func (d *dispatchDatabase) CleanExpiredInbox(ctx context.Context, before time.Time, exceptTypes []int32) (int64, error) {
	return d.inboxStore.DeleteExpired(ctx, before, exceptTypes)
}

func toMsgModel(msg *protocol.Msg) *database.Msg {
	return &database.Msg{
		ServerID:   msg.ServerID,
		SendID:     msg.SendID,
		ReceiverID: msg.ReceiverID,
		GroupID:    msg.GroupID,
		MsgType:    int32(msg.MsgType),
		Content:    msg.Content,
		SendTime:   msg.SendTime,
	}
}
