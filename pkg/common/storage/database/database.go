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

// Package database declares the durable-store contracts: the append-only
// message log, the per-recipient inbox, and the seq snapshots used for
// recovery.
package database

import (
	"context"
	"time"
)

const (
	MsgName   = "message"
	InboxName = "inbox"
	SeqName   = "seq"
)

// Msg is one append-only history row, keyed by server_id.
type Msg struct {
	ServerID   string `bson:"server_id"`
	SendID     string `bson:"send_id"`
	ReceiverID string `bson:"receiver_id,omitempty"`
	GroupID    string `bson:"group_id,omitempty"`
	MsgType    int32  `bson:"msg_type"`
	Content    []byte `bson:"content"`
	SendTime   int64  `bson:"send_time"`
}

// InboxEntry is one per-recipient row. MsgType is denormalised onto the row
// so the cleaner can honour its exception list without a join.
type InboxEntry struct {
	UserID    string    `bson:"user_id"`
	ServerID  string    `bson:"server_id"`
	Seq       int64     `bson:"seq"`
	ReadFlag  bool      `bson:"read_flag"`
	MsgType   int32     `bson:"msg_type"`
	CreatedAt time.Time `bson:"created_at"`
}

// SeqSnapshot is the durable (user_id, send_max, recv_max) record the cache
// is re-seeded from after a cold restart.
type SeqSnapshot struct {
	UserID  string `bson:"user_id"`
	SendMax int64  `bson:"send_max"`
	RecvMax int64  `bson:"recv_max"`
}

// MsgStore is the append-only message log. Insert is idempotent on
// server_id: replaying the same record is a no-op.
type MsgStore interface {
	Insert(ctx context.Context, msg *Msg) error
	Find(ctx context.Context, serverIDs []string) ([]*Msg, error)
}

// InboxStore holds per-recipient rows keyed (user_id, server_id); inserts
// deduplicate on that key so queue redelivery is safe.
type InboxStore interface {
	Insert(ctx context.Context, entry *InboxEntry) error
	InsertMany(ctx context.Context, entries []*InboxEntry) error
	MarkRead(ctx context.Context, userID string, seqs []int64) error
	// PullSince returns rows with seq greater than seq in ascending order.
	PullSince(ctx context.Context, userID string, seq int64, limit int64) ([]*InboxEntry, error)
	// DeleteExpired removes rows created before the deadline whose msg type
	// is not in exceptTypes.
	DeleteExpired(ctx context.Context, before time.Time, exceptTypes []int32) (int64, error)
}

// SeqStore persists the block ceilings. Writes happen only when a block
// grows, one durable write per step increments.
type SeqStore interface {
	SetSendMax(ctx context.Context, userID string, max int64) error
	SetRecvMax(ctx context.Context, userID string, max int64) error
	SetRecvMaxBatch(ctx context.Context, maxes map[string]int64) error
	All(ctx context.Context) ([]*SeqSnapshot, error)
}
