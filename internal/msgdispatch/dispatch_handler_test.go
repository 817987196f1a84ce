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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumeim/plume-im-server/pkg/common/config"
	"github.com/plumeim/plume-im-server/pkg/protocol"
)

// recordingDB records every call in order so tests can assert both what
// happened and in what sequence.
type recordingDB struct {
	calls   []string
	members map[string][]string

	savedSingle []*protocol.Msg
	savedGroup  []*protocol.Msg
	savedSeqs   [][]*protocol.MemberSeq
	persisted   [][]*protocol.MemberSeq
	readUser    string
	readSeqs    []int64
	removed     []string
	nextSeq     int64
}

func newRecordingDB() *recordingDB {
	return &recordingDB{members: make(map[string][]string)}
}

func (r *recordingDB) MaintainSendSeq(_ context.Context, userID string) error {
	r.calls = append(r.calls, "MaintainSendSeq:"+userID)
	return nil
}

func (r *recordingDB) AssignRecvSeq(_ context.Context, userID string) (int64, error) {
	r.calls = append(r.calls, "AssignRecvSeq:"+userID)
	r.nextSeq++
	return r.nextSeq, nil
}

func (r *recordingDB) AssignRecvSeqBatch(_ context.Context, userIDs []string) ([]*protocol.MemberSeq, error) {
	r.calls = append(r.calls, "AssignRecvSeqBatch")
	members := make([]*protocol.MemberSeq, 0, len(userIDs))
	for _, userID := range userIDs {
		r.nextSeq++
		members = append(members, &protocol.MemberSeq{UserID: userID, Seq: r.nextSeq, MaxSeq: 100, Grew: true})
	}
	return members, nil
}

func (r *recordingDB) PersistRecvMaxes(_ context.Context, members []*protocol.MemberSeq) error {
	r.calls = append(r.calls, "PersistRecvMaxes")
	r.persisted = append(r.persisted, members)
	return nil
}

func (r *recordingDB) GetGroupMemberIDs(_ context.Context, groupID string) ([]string, error) {
	r.calls = append(r.calls, "GetGroupMemberIDs:"+groupID)
	return r.members[groupID], nil
}

func (r *recordingDB) AddGroupMembers(_ context.Context, groupID string, userIDs []string) error {
	r.calls = append(r.calls, "AddGroupMembers:"+groupID)
	return nil
}

func (r *recordingDB) RemoveGroupMember(_ context.Context, groupID string, userID string) error {
	r.calls = append(r.calls, "RemoveGroupMember:"+groupID)
	r.removed = append(r.removed, userID)
	return nil
}

func (r *recordingDB) RemoveGroupMembers(_ context.Context, groupID string, userIDs []string) error {
	r.calls = append(r.calls, "RemoveGroupMembers:"+groupID)
	r.removed = append(r.removed, userIDs...)
	return nil
}

func (r *recordingDB) RemoveGroup(_ context.Context, groupID string) error {
	r.calls = append(r.calls, "RemoveGroup:"+groupID)
	return nil
}

func (r *recordingDB) SaveSingle(_ context.Context, msg *protocol.Msg) error {
	r.calls = append(r.calls, "SaveSingle:"+msg.ServerID)
	r.savedSingle = append(r.savedSingle, msg)
	return nil
}

func (r *recordingDB) SaveGroup(_ context.Context, msg *protocol.Msg, members []*protocol.MemberSeq) error {
	r.calls = append(r.calls, "SaveGroup:"+msg.ServerID)
	r.savedGroup = append(r.savedGroup, msg)
	r.savedSeqs = append(r.savedSeqs, members)
	return nil
}

func (r *recordingDB) MarkRead(_ context.Context, userID string, seqs []int64) error {
	r.calls = append(r.calls, "MarkRead:"+userID)
	r.readUser = userID
	r.readSeqs = seqs
	return nil
}

func (r *recordingDB) LoadSeq(context.Context) error { return nil }

func (r *recordingDB) CleanExpiredInbox(context.Context, time.Time, []int32) (int64, error) {
	return 0, nil
}

func newTestHandler(db *recordingDB) *dispatchHandler {
	// a pusher with no live gateways; fan-out becomes a no-op
	return newDispatchHandler(db, NewPusher(nil, "plume-msggateway", time.Second, &config.RPC{}))
}

func mustMarshal(t *testing.T, msg *protocol.Msg) []byte {
	t.Helper()
	payload, err := json.Marshal(msg)
	require.NoError(t, err)
	return payload
}

func TestHandleRecordDropsPoison(t *testing.T) {
	db := newRecordingDB()
	h := newTestHandler(db)

	h.handleRecord(context.Background(), []byte("{not json"))
	assert.Empty(t, db.calls)
}

func TestHandleRecordDropsUnknownType(t *testing.T) {
	db := newRecordingDB()
	h := newTestHandler(db)

	h.handleRecord(context.Background(), mustMarshal(t, &protocol.Msg{
		ServerID: "srv-1", SendID: "u100", MsgType: protocol.MsgType(9999),
	}))
	assert.Empty(t, db.calls)
}

func TestHandleRecordDropsMissingSender(t *testing.T) {
	db := newRecordingDB()
	h := newTestHandler(db)

	h.handleRecord(context.Background(), mustMarshal(t, &protocol.Msg{
		ServerID: "srv-1", ReceiverID: "u200", MsgType: protocol.MsgTypeSingleMsg,
	}))
	assert.Empty(t, db.calls)
}

func TestHandleSinglePersisted(t *testing.T) {
	db := newRecordingDB()
	h := newTestHandler(db)

	h.handleRecord(context.Background(), mustMarshal(t, &protocol.Msg{
		ServerID: "srv-1", SendID: "u100", ReceiverID: "u200",
		MsgType: protocol.MsgTypeSingleMsg, Content: []byte(`{"text":"hi"}`),
	}))

	assert.Equal(t, []string{
		"MaintainSendSeq:u100",
		"AssignRecvSeq:u200",
		"SaveSingle:srv-1",
	}, db.calls)
	require.Len(t, db.savedSingle, 1)
	assert.Equal(t, int64(1), db.savedSingle[0].Seq)
}

func TestHandleSingleTransient(t *testing.T) {
	db := newRecordingDB()
	h := newTestHandler(db)

	// call signalling gets neither a seq nor history
	h.handleRecord(context.Background(), mustMarshal(t, &protocol.Msg{
		ServerID: "srv-1", SendID: "u100", ReceiverID: "u200",
		MsgType: protocol.MsgTypeSingleCallOffer,
	}))

	assert.Equal(t, []string{"MaintainSendSeq:u100"}, db.calls)
	assert.Empty(t, db.savedSingle)
}

func TestHandleSingleMissingReceiver(t *testing.T) {
	db := newRecordingDB()
	h := newTestHandler(db)

	h.handleRecord(context.Background(), mustMarshal(t, &protocol.Msg{
		ServerID: "srv-1", SendID: "u100", MsgType: protocol.MsgTypeSingleMsg,
	}))

	assert.Equal(t, []string{"MaintainSendSeq:u100"}, db.calls)
}

func TestHandleReadReceipt(t *testing.T) {
	db := newRecordingDB()
	h := newTestHandler(db)

	receipt, err := json.Marshal(protocol.ReadReceipt{UserID: "u200", Seqs: []int64{3, 4, 5}})
	require.NoError(t, err)
	h.handleRecord(context.Background(), mustMarshal(t, &protocol.Msg{
		ServerID: "srv-1", SendID: "u100", ReceiverID: "u200",
		MsgType: protocol.MsgTypeRead, Content: receipt,
	}))

	assert.Equal(t, "u200", db.readUser)
	assert.Equal(t, []int64{3, 4, 5}, db.readSeqs)
	assert.Empty(t, db.savedSingle)
}

func TestHandleReadReceiptMalformed(t *testing.T) {
	db := newRecordingDB()
	h := newTestHandler(db)

	h.handleRecord(context.Background(), mustMarshal(t, &protocol.Msg{
		ServerID: "srv-1", SendID: "u100", ReceiverID: "u200",
		MsgType: protocol.MsgTypeRead, Content: []byte("oops"),
	}))

	assert.Empty(t, db.readUser)
	assert.Equal(t, []string{"MaintainSendSeq:u100"}, db.calls)
}

func TestHandleGroupExcludesSender(t *testing.T) {
	db := newRecordingDB()
	db.members["g1"] = []string{"u100", "u200", "u300"}
	h := newTestHandler(db)

	h.handleRecord(context.Background(), mustMarshal(t, &protocol.Msg{
		ServerID: "srv-1", SendID: "u100", GroupID: "g1",
		MsgType: protocol.MsgTypeGroupMsg, Content: []byte(`{"text":"hi"}`),
	}))

	require.Len(t, db.savedSeqs, 1)
	members := db.savedSeqs[0]
	require.Len(t, members, 2)
	got := []string{members[0].UserID, members[1].UserID}
	assert.ElementsMatch(t, []string{"u200", "u300"}, got)
	assert.NotEqual(t, members[0].Seq, members[1].Seq)
	// the history write owns the ceiling persist for chat records
	assert.NotContains(t, db.calls, "PersistRecvMaxes")
}

func TestHandleGroupMembershipChangeAfterHistory(t *testing.T) {
	db := newRecordingDB()
	db.members["g1"] = []string{"u100", "u200"}
	h := newTestHandler(db)

	h.handleRecord(context.Background(), mustMarshal(t, &protocol.Msg{
		ServerID: "srv-1", SendID: "u100", GroupID: "g1",
		MsgType: protocol.MsgTypeGroupMemberExit,
	}))

	// exit is a no-history admin type: members get seqs, the grown ceilings
	// are persisted without a SaveGroup, and the leaving member is removed
	// from the cached set
	assert.Equal(t, []string{
		"MaintainSendSeq:u100",
		"GetGroupMemberIDs:g1",
		"AssignRecvSeqBatch",
		"PersistRecvMaxes",
		"RemoveGroupMember:g1",
	}, db.calls)
	assert.Equal(t, []string{"u100"}, db.removed)
	assert.Empty(t, db.savedGroup)
	require.Len(t, db.persisted, 1)
	require.Len(t, db.persisted[0], 1)
	assert.Equal(t, "u200", db.persisted[0][0].UserID)
	assert.True(t, db.persisted[0][0].Grew)
	assert.Equal(t, int64(100), db.persisted[0][0].MaxSeq)
}

func TestHandleGroupDismiss(t *testing.T) {
	db := newRecordingDB()
	db.members["g1"] = []string{"u100", "u200", "u300"}
	h := newTestHandler(db)

	h.handleRecord(context.Background(), mustMarshal(t, &protocol.Msg{
		ServerID: "srv-1", SendID: "u100", GroupID: "g1",
		MsgType: protocol.MsgTypeGroupDismiss,
	}))

	assert.Contains(t, db.calls, "RemoveGroup:g1")
	assert.Empty(t, db.savedGroup)
}

func TestHandleGroupRemoveMemberParsesContent(t *testing.T) {
	db := newRecordingDB()
	db.members["g1"] = []string{"u100", "u200", "u300", "u400"}
	h := newTestHandler(db)

	removed, err := json.Marshal([]string{"u300", "u400"})
	require.NoError(t, err)
	h.handleRecord(context.Background(), mustMarshal(t, &protocol.Msg{
		ServerID: "srv-1", SendID: "u100", GroupID: "g1",
		MsgType: protocol.MsgTypeGroupRemoveMember, Content: removed,
	}))

	assert.Contains(t, db.calls, "RemoveGroupMembers:g1")
	assert.Equal(t, []string{"u300", "u400"}, db.removed)
}

func TestHandleGroupEmptyMembershipStillAppliesChange(t *testing.T) {
	db := newRecordingDB()
	// the sender is the only remaining member, so there are no recipients
	db.members["g1"] = []string{"u100"}
	h := newTestHandler(db)

	h.handleRecord(context.Background(), mustMarshal(t, &protocol.Msg{
		ServerID: "srv-1", SendID: "u100", GroupID: "g1",
		MsgType: protocol.MsgTypeGroupDismiss,
	}))

	assert.Contains(t, db.calls, "RemoveGroup:g1")
	assert.NotContains(t, db.calls, "AssignRecvSeqBatch")
}

func TestHandleGroupMissingGroupID(t *testing.T) {
	db := newRecordingDB()
	h := newTestHandler(db)

	h.handleRecord(context.Background(), mustMarshal(t, &protocol.Msg{
		ServerID: "srv-1", SendID: "u100", MsgType: protocol.MsgTypeGroupMsg,
	}))

	assert.Equal(t, []string{"MaintainSendSeq:u100"}, db.calls)
}
