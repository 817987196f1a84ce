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

// Package protocol defines the wire envelope shared by the queue topic, the
// WebSocket frames and the internal RPC surface. All three carry the same
// UTF-8 JSON encoding of Msg.
package protocol

// MsgType is the numeric message-type enum. Wire values are stable; never
// reorder.
type MsgType int32

const (
	MsgTypeUnknown MsgType = iota
	MsgTypeSingleMsg
	MsgTypeGroupMsg
	MsgTypeGroupInvitation
	MsgTypeGroupInviteNew
	MsgTypeGroupMemberExit
	MsgTypeGroupRemoveMember
	MsgTypeGroupDismiss
	MsgTypeGroupUpdate
	MsgTypeGroupDismissOrExitReceived
	MsgTypeGroupInvitationReceived
	MsgTypeFriendApplyReq
	MsgTypeFriendApplyResp
	MsgTypeFriendDelete
	MsgTypeFriendBlack
	MsgTypeFriendshipReceived
	MsgTypeSingleCallInvite
	MsgTypeSingleCallInviteNotAnswer
	MsgTypeSingleCallInviteCancel
	MsgTypeSingleCallOffer
	MsgTypeAgreeSingleCall
	MsgTypeConnectSingleCall
	MsgTypeRejectSingleCall
	MsgTypeCandidate
	MsgTypeHangup
	MsgTypeRead
	MsgTypeMsgRecResp
	MsgTypeNotification
	MsgTypeService
)

// PlatformID is the device-platform enum carried in the WS URL and sessions.
type PlatformID int32

const (
	PlatformUnknown PlatformID = iota
	PlatformDesktop
	PlatformMobile
	PlatformWeb
)

func (p PlatformID) String() string {
	switch p {
	case PlatformDesktop:
		return "Desktop"
	case PlatformMobile:
		return "Mobile"
	case PlatformWeb:
		return "Web"
	default:
		return "Unknown"
	}
}

// Msg is the logical message envelope. ServerID is assigned exactly once at
// ingest, except for the three delivery-receipt types which reuse the id of
// the message they acknowledge. Seq is assigned per recipient by the
// dispatcher.
type Msg struct {
	ServerID   string     `json:"serverId"`
	LocalID    string     `json:"localId"`
	SendID     string     `json:"sendId"`
	ReceiverID string     `json:"receiverId"`
	GroupID    string     `json:"groupId,omitempty"`
	PlatformID PlatformID `json:"platformId"`
	MsgType    MsgType    `json:"msgType"`
	Content    []byte     `json:"content"`
	SendTime   int64      `json:"sendTime"`
	Seq        int64      `json:"seq"`
}

// IsReceipt reports whether the type is one of the three delivery-receipt
// types that keep the incoming server id at ingest.
func (t MsgType) IsReceipt() bool {
	switch t {
	case MsgTypeGroupDismissOrExitReceived, MsgTypeGroupInvitationReceived, MsgTypeFriendshipReceived:
		return true
	default:
		return false
	}
}

// ReadReceipt is the decoded Content of a MsgTypeRead message.
type ReadReceipt struct {
	UserID string  `json:"userId"`
	Seqs   []int64 `json:"seqs"`
}

// MemberSeq pairs one group member with the recv-seq assigned for this
// message, plus whether the member's block grew and needs its max persisted.
type MemberSeq struct {
	UserID string `json:"userId"`
	Seq    int64  `json:"seq"`
	MaxSeq int64  `json:"maxSeq"`
	Grew   bool   `json:"grew"`
}
