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

// Package cache declares the cache-layer contracts consumed by the
// dispatcher; implementations live in the redis subpackage.
package cache

import "context"

// SeqScope selects one of the two independent counters each user owns.
type SeqScope string

const (
	ScopeSend SeqScope = "send"
	ScopeRecv SeqScope = "recv"
)

// SeqRecord is the result of one increment: the assigned value, the current
// block ceiling, and whether the ceiling grew (in which case the caller must
// durably persist Max).
type SeqRecord struct {
	Cur  int64
	Max  int64
	Grew bool
}

// SeqSnapshot seeds one user's counters at recovery.
type SeqSnapshot struct {
	UserID  string
	SendMax int64
	RecvMax int64
}

// SeqCache is the block-allocated per-user counter store (C1). Every
// single-user call is one atomic server-side script; the batch call is one
// script with no partial results.
type SeqCache interface {
	Incr(ctx context.Context, scope SeqScope, userID string) (SeqRecord, error)
	IncrBatch(ctx context.Context, scope SeqScope, userIDs []string) ([]SeqRecord, error)
	Get(ctx context.Context, scope SeqScope, userID string) (cur int64, max int64, err error)
	// SetBulk seeds cur=max=snapshot max for both scopes; used at boot
	// recovery only.
	SetBulk(ctx context.Context, snapshots []SeqSnapshot) error
	IsLoaded(ctx context.Context) (bool, error)
	SetLoaded(ctx context.Context) error
}

// GroupMemberCache is the membership set per group id (C2).
type GroupMemberCache interface {
	GetMemberIDs(ctx context.Context, groupID string) ([]string, error)
	AddMember(ctx context.Context, groupID string, userID string) error
	AddMembers(ctx context.Context, groupID string, userIDs []string) error
	RemoveMember(ctx context.Context, groupID string, userID string) error
	RemoveMembers(ctx context.Context, groupID string, userIDs []string) error
	RemoveAll(ctx context.Context, groupID string) error
}
