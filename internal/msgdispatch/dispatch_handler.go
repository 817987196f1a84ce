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

package msgdispatch

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"github.com/openimsdk/tools/log"

	"github.com/plumeim/plume-im-server/pkg/common/kafka"
	"github.com/plumeim/plume-im-server/pkg/common/storage/controller"
	"github.com/plumeim/plume-im-server/pkg/msgprocessor"
	"github.com/plumeim/plume-im-server/pkg/protocol"
)

// dispatchHandler consumes the queue topic one record at a time per
// partition: deserialise, classify, assign seqs, write history, maintain the
// membership cache and hand off to the pusher. Every record is marked so the
// async commit never stalls; redelivery is safe because history keys
// deduplicate on (user_id, server_id).
type dispatchHandler struct {
	db     controller.DispatchDatabase
	pusher *Pusher
}

func newDispatchHandler(db controller.DispatchDatabase, pusher *Pusher) *dispatchHandler {
	return &dispatchHandler{db: db, pusher: pusher}
}

func (*dispatchHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (*dispatchHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *dispatchHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for record := range claim.Messages() {
		ctx := kafka.GetContextWithMQHeader(record.Headers)
		h.handleRecord(ctx, record.Value)
		sess.MarkMessage(record, "")
	}
	return nil
}

func (h *dispatchHandler) handleRecord(ctx context.Context, payload []byte) {
	var msg protocol.Msg
	if err := json.Unmarshal(payload, &msg); err != nil {
		log.ZWarn(ctx, "dropping unparsable queue record", err, "len", len(payload))
		return
	}
	class, ok := msgprocessor.Classify(msg.MsgType)
	if !ok {
		log.ZWarn(ctx, "dropping record of unknown msg type", nil, "msgType", int32(msg.MsgType), "serverID", msg.ServerID)
		return
	}
	if msg.SendID == "" {
		log.ZWarn(ctx, "dropping record without sendId", nil, "serverID", msg.ServerID)
		return
	}
	log.ZDebug(ctx, "dispatching record", "serverID", msg.ServerID, "msgType", int32(msg.MsgType))

	if err := h.db.MaintainSendSeq(ctx, msg.SendID); err != nil {
		log.ZError(ctx, "maintain send seq failed", err, "sendID", msg.SendID)
	}

	if msg.MsgType == protocol.MsgTypeRead {
		h.handleRead(ctx, &msg)
		return
	}

	if class.Kind == msgprocessor.KindGroup {
		h.handleGroup(ctx, &msg, class)
		return
	}
	h.handleSingle(ctx, &msg, class)
}

func (h *dispatchHandler) handleRead(ctx context.Context, msg *protocol.Msg) {
	var receipt protocol.ReadReceipt
	if err := json.Unmarshal(msg.Content, &receipt); err != nil {
		log.ZWarn(ctx, "dropping malformed read receipt", err, "serverID", msg.ServerID)
		return
	}
	if receipt.UserID == "" || len(receipt.Seqs) == 0 {
		log.ZWarn(ctx, "dropping empty read receipt", nil, "serverID", msg.ServerID)
		return
	}
	if err := h.db.MarkRead(ctx, receipt.UserID, receipt.Seqs); err != nil {
		log.ZError(ctx, "mark read failed", err, "userID", receipt.UserID, "seqs", receipt.Seqs)
	}
}

func (h *dispatchHandler) handleSingle(ctx context.Context, msg *protocol.Msg, class msgprocessor.Class) {
	if msg.ReceiverID == "" {
		log.ZWarn(ctx, "dropping single record without receiverId", nil, "serverID", msg.ServerID)
		return
	}
	if class.AssignRecvSeq {
		seq, err := h.db.AssignRecvSeq(ctx, msg.ReceiverID)
		if err != nil {
			log.ZError(ctx, "assign recv seq failed", err, "receiverID", msg.ReceiverID, "serverID", msg.ServerID)
			return
		}
		msg.Seq = seq
	}
	if class.PersistHistory {
		if err := h.db.SaveSingle(ctx, msg); err != nil {
			log.ZError(ctx, "save single failed", err, "serverID", msg.ServerID)
			return
		}
	}
	h.pusher.PushSingle(ctx, msg)
}

func (h *dispatchHandler) handleGroup(ctx context.Context, msg *protocol.Msg, class msgprocessor.Class) {
	if msg.GroupID == "" {
		log.ZWarn(ctx, "dropping group record without groupId", nil, "serverID", msg.ServerID)
		return
	}
	memberIDs, err := h.db.GetGroupMemberIDs(ctx, msg.GroupID)
	if err != nil {
		log.ZError(ctx, "resolve group members failed", err, "groupID", msg.GroupID, "serverID", msg.ServerID)
		return
	}
	recipients := excludeSender(memberIDs, msg.SendID)
	if len(recipients) == 0 {
		log.ZWarn(ctx, "group record has no recipients", nil, "groupID", msg.GroupID, "serverID", msg.ServerID)
		h.applyMembershipChange(ctx, msg)
		return
	}

	var members []*protocol.MemberSeq
	if class.AssignRecvSeq {
		members, err = h.db.AssignRecvSeqBatch(ctx, recipients)
		if err != nil {
			log.ZError(ctx, "assign recv seq batch failed", err, "groupID", msg.GroupID, "serverID", msg.ServerID)
			return
		}
	} else {
		members = make([]*protocol.MemberSeq, 0, len(recipients))
		for _, userID := range recipients {
			members = append(members, &protocol.MemberSeq{UserID: userID})
		}
	}

	if class.PersistHistory {
		if err := h.db.SaveGroup(ctx, msg, members); err != nil {
			log.ZError(ctx, "save group failed", err, "groupID", msg.GroupID, "serverID", msg.ServerID)
			return
		}
	} else if class.AssignRecvSeq {
		// no history write carries the grown ceilings for this record, so
		// they are persisted here
		if err := h.db.PersistRecvMaxes(ctx, members); err != nil {
			log.ZError(ctx, "persist recv ceilings failed", err, "groupID", msg.GroupID, "serverID", msg.ServerID)
			return
		}
	}
	// membership invalidations apply after the history write so a replayed
	// record still resolves the pre-change member set
	h.applyMembershipChange(ctx, msg)

	h.pusher.PushGroup(ctx, msg, members)
}

func (h *dispatchHandler) applyMembershipChange(ctx context.Context, msg *protocol.Msg) {
	var err error
	switch msg.MsgType {
	case protocol.MsgTypeGroupDismiss:
		err = h.db.RemoveGroup(ctx, msg.GroupID)
	case protocol.MsgTypeGroupMemberExit:
		err = h.db.RemoveGroupMember(ctx, msg.GroupID, msg.SendID)
	case protocol.MsgTypeGroupRemoveMember:
		var removed []string
		if err := json.Unmarshal(msg.Content, &removed); err != nil {
			log.ZWarn(ctx, "malformed remove-member payload", err, "serverID", msg.ServerID)
			return
		}
		err = h.db.RemoveGroupMembers(ctx, msg.GroupID, removed)
	default:
		return
	}
	if err != nil {
		log.ZError(ctx, "membership cache upkeep failed", err, "groupID", msg.GroupID, "msgType", int32(msg.MsgType))
	}
}

func excludeSender(memberIDs []string, sendID string) []string {
	recipients := make([]string, 0, len(memberIDs))
	for _, userID := range memberIDs {
		if userID != sendID {
			recipients = append(recipients, userID)
		}
	}
	return recipients
}
