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

// Package cachekey centralises every redis key the message plane uses.
package cachekey

const (
	sendSeq        = "PLUME:SEQ:SEND:"
	recvSeq        = "PLUME:SEQ:RECV:"
	seqLoaded      = "PLUME:SEQ:LOADED"
	groupMemberIDs = "PLUME:GROUP_MEMBER_IDS:"
)

func GetSendSeqKey(userID string) string {
	return sendSeq + userID
}

func GetRecvSeqKey(userID string) string {
	return recvSeq + userID
}

// GetSeqLoadedKey is the sentinel checked at boot: present means the seq
// records in redis were already seeded from the snapshot store.
func GetSeqLoadedKey() string {
	return seqLoaded
}

func GetGroupMemberIDsKey(groupID string) string {
	return groupMemberIDs + groupID
}
