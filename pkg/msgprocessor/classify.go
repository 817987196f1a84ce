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

// Package msgprocessor holds the per-type dispatch tables: whether a message
// fans out to a group, whether each recipient gets a recv-seq, and whether
// history rows are written.
package msgprocessor

import "github.com/plumeim/plume-im-server/pkg/protocol"

// Kind is the fan-out shape of a message.
type Kind int

const (
	KindSingle Kind = iota
	KindGroup
)

// Class is the dispatch decision for one message type.
type Class struct {
	Kind Kind
	// AssignRecvSeq: allocate a recv-seq for the receiver (single) or each
	// member (group).
	AssignRecvSeq bool
	// PersistHistory: write the message row plus inbox row(s).
	PersistHistory bool
}

var classes = map[protocol.MsgType]Class{
	// content-bearing single chat and call lifecycle
	protocol.MsgTypeSingleMsg:                 {KindSingle, true, true},
	protocol.MsgTypeSingleCallInvite:          {KindSingle, true, true},
	protocol.MsgTypeSingleCallInviteNotAnswer: {KindSingle, true, true},
	protocol.MsgTypeSingleCallInviteCancel:    {KindSingle, true, true},
	protocol.MsgTypeConnectSingleCall:         {KindSingle, true, true},
	protocol.MsgTypeRejectSingleCall:          {KindSingle, true, true},
	protocol.MsgTypeHangup:                    {KindSingle, true, true},

	// friendship lifecycle
	protocol.MsgTypeFriendApplyReq:  {KindSingle, true, true},
	protocol.MsgTypeFriendApplyResp: {KindSingle, true, true},
	protocol.MsgTypeFriendDelete:    {KindSingle, true, true},

	// group chat
	protocol.MsgTypeGroupMsg: {KindGroup, true, true},

	// group administration: fans out but leaves no history
	protocol.MsgTypeGroupInvitation:   {KindGroup, true, false},
	protocol.MsgTypeGroupInviteNew:    {KindGroup, true, false},
	protocol.MsgTypeGroupMemberExit:   {KindGroup, true, false},
	protocol.MsgTypeGroupRemoveMember: {KindGroup, true, false},
	protocol.MsgTypeGroupDismiss:      {KindGroup, true, false},
	protocol.MsgTypeGroupUpdate:       {KindGroup, true, false},

	// call signalling: transient, point to point
	protocol.MsgTypeSingleCallOffer: {KindSingle, false, false},
	protocol.MsgTypeAgreeSingleCall: {KindSingle, false, false},
	protocol.MsgTypeCandidate:       {KindSingle, false, false},

	// receipts, notifications and service traffic
	protocol.MsgTypeFriendBlack:                {KindSingle, false, false},
	protocol.MsgTypeGroupDismissOrExitReceived: {KindSingle, false, false},
	protocol.MsgTypeGroupInvitationReceived:    {KindSingle, false, false},
	protocol.MsgTypeFriendshipReceived:         {KindSingle, false, false},
	protocol.MsgTypeRead:                       {KindSingle, false, false},
	protocol.MsgTypeMsgRecResp:                 {KindSingle, false, false},
	protocol.MsgTypeNotification:               {KindSingle, false, false},
	protocol.MsgTypeService:                    {KindSingle, false, false},
}

// Classify returns the dispatch decision for t; ok is false for unknown
// types, which the dispatcher drops.
func Classify(t protocol.MsgType) (Class, bool) {
	c, ok := classes[t]
	return c, ok
}

// IsGroup reports whether t fans out across a membership set.
func IsGroup(t protocol.MsgType) bool {
	c, ok := classes[t]
	return ok && c.Kind == KindGroup
}
