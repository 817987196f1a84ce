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

package controller

import (
	"context"

	"github.com/plumeim/plume-im-server/pkg/common/kafka"
	"github.com/plumeim/plume-im-server/pkg/common/storage/database"
	"github.com/plumeim/plume-im-server/pkg/protocol"
)

// ChatDatabase backs the ingest service: publish to the queue and serve the
// inbox read model for client resync.
type ChatDatabase interface {
	MsgToMQ(ctx context.Context, msg *protocol.Msg) error
	// PullInbox returns the receiver's messages with seq greater than fromSeq
	// in ascending seq order.
	PullInbox(ctx context.Context, userID string, fromSeq int64, limit int64) ([]*protocol.Msg, error)
}

func NewChatDatabase(producer *kafka.Producer, msgStore database.MsgStore, inboxStore database.InboxStore) ChatDatabase {
	return &chatDatabase{producer: producer, msgStore: msgStore, inboxStore: inboxStore}
}

type chatDatabase struct {
	producer   *kafka.Producer
	msgStore   database.MsgStore
	inboxStore database.InboxStore
}

func (c *chatDatabase) MsgToMQ(ctx context.Context, msg *protocol.Msg) error {
	_, _, err := c.producer.SendJSON(ctx, msg)
	return err
}

func (c *chatDatabase) PullInbox(ctx context.Context, userID string, fromSeq int64, limit int64) ([]*protocol.Msg, error) {
	entries, err := c.inboxStore.PullSince(ctx, userID, fromSeq, limit)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	serverIDs := make([]string, 0, len(entries))
	for _, entry := range entries {
		serverIDs = append(serverIDs, entry.ServerID)
	}
	rows, err := c.msgStore.Find(ctx, serverIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*database.Msg, len(rows))
	for _, row := range rows {
		byID[row.ServerID] = row
	}
	msgs := make([]*protocol.Msg, 0, len(entries))
	for _, entry := range entries {
		row, ok := byID[entry.ServerID]
		if !ok {
			// inbox row without a message row: the log write was lost or the
			// message was garbage-collected; skip it
			continue
		}
		msgs = append(msgs, &protocol.Msg{
			ServerID:   row.ServerID,
			SendID:     row.SendID,
			ReceiverID: userID,
			GroupID:    row.GroupID,
			MsgType:    protocol.MsgType(row.MsgType),
			Content:    row.Content,
			SendTime:   row.SendTime,
			Seq:        entry.Seq,
		})
	}
	return msgs, nil
}
