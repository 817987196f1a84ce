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

package servererrs

import "github.com/openimsdk/tools/errs"

const (
	// general
	ArgsError           = 1001
	RecordNotFoundError = 1002
	DuplicateKeyError   = 1003
	NoPermissionError   = 1004

	// token
	TokenExpiredError     = 1501
	TokenInvalidError     = 1502
	TokenMalformedError   = 1503
	TokenNotValidYetError = 1504
	TokenKickedError      = 1506

	// infrastructure
	RegistryError = 1701
	QueueError    = 1702
	CacheError    = 1703
	DatabaseError = 1704

	// gateway / push
	PushMsgError      = 1801
	ConnOverMaxNumErr = 1802
)

var (
	ErrArgs           = errs.NewCodeError(ArgsError, "ArgsError")
	ErrRecordNotFound = errs.NewCodeError(RecordNotFoundError, "RecordNotFoundError")
	ErrDuplicateKey   = errs.NewCodeError(DuplicateKeyError, "DuplicateKeyError")
	ErrNoPermission   = errs.NewCodeError(NoPermissionError, "NoPermissionError")

	ErrTokenExpired     = errs.NewCodeError(TokenExpiredError, "TokenExpiredError")
	ErrTokenInvalid     = errs.NewCodeError(TokenInvalidError, "TokenInvalidError")
	ErrTokenMalformed   = errs.NewCodeError(TokenMalformedError, "TokenMalformedError")
	ErrTokenNotValidYet = errs.NewCodeError(TokenNotValidYetError, "TokenNotValidYetError")
	ErrTokenKicked      = errs.NewCodeError(TokenKickedError, "TokenKickedError")

	ErrRegistry = errs.NewCodeError(RegistryError, "RegistryError")
	ErrQueue    = errs.NewCodeError(QueueError, "QueueError")
	ErrCache    = errs.NewCodeError(CacheError, "CacheError")
	ErrDatabase = errs.NewCodeError(DatabaseError, "DatabaseError")

	ErrPushMsg        = errs.NewCodeError(PushMsgError, "PushMsgError")
	ErrConnOverMaxNum = errs.NewCodeError(ConnOverMaxNumErr, "ConnOverMaxNumErr")
)
