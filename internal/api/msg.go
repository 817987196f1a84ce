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

package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/openimsdk/tools/mcontext"

	"github.com/plumeim/plume-im-server/pkg/protocol"
	"github.com/plumeim/plume-im-server/pkg/servererrs"
)

const operationIDHeader = "operationID"

// msgAPI terminates HTTP into typed chat RPC calls.
type msgAPI struct {
	chatClient *protocol.ChatServiceClient
}

func (m *msgAPI) sendMsg(c *gin.Context) {
	var req protocol.SendMsgReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, servererrs.ErrArgs.WrapMsg("bad request body", "err", err.Error()))
		return
	}
	if req.Msg == nil {
		respondError(c, servererrs.ErrArgs.WrapMsg("missing msg"))
		return
	}
	// the token, not the body, is authoritative for the sender identity
	if userID := c.GetString(ctxUserIDKey); userID != "" {
		req.Msg.SendID = userID
	}
	resp, err := m.chatClient.SendMsg(requestContext(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, resp)
}

func (m *msgAPI) pullInbox(c *gin.Context) {
	var req protocol.PullInboxReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, servererrs.ErrArgs.WrapMsg("bad request body", "err", err.Error()))
		return
	}
	if userID := c.GetString(ctxUserIDKey); userID != "" {
		req.UserID = userID
	}
	resp, err := m.chatClient.PullInbox(requestContext(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, resp)
}

// requestContext carries the client's operation id, minting one when absent.
func requestContext(c *gin.Context) context.Context {
	operationID := c.GetHeader(operationIDHeader)
	if operationID == "" {
		operationID = uuid.NewString()
	}
	return mcontext.SetOperationID(c.Request.Context(), operationID)
}
