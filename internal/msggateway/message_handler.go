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

package msggateway

import (
	"context"
	"encoding/json"

	"github.com/go-playground/validator/v10"

	"github.com/plumeim/plume-im-server/pkg/protocol"
	"github.com/plumeim/plume-im-server/pkg/servererrs"
)

// inboundFrame is the WS wire shape of a client send; it matches the HTTP
// ingest request so the two paths stay interchangeable.
type inboundFrame struct {
	Msg *protocol.Msg `json:"msg" validate:"required"`
}

// MessageHandler turns one inbound frame into an ingest call. The returned
// value, if non-nil, is written back to the client as the reply frame.
type MessageHandler interface {
	HandleMessage(ctx context.Context, client *Client, payload []byte) (any, error)
}

// chatRPCHandler forwards frames to the chat ingest service.
type chatRPCHandler struct {
	chatClient *protocol.ChatServiceClient
	validate   *validator.Validate
}

func NewChatRPCHandler(chatClient *protocol.ChatServiceClient) MessageHandler {
	return &chatRPCHandler{chatClient: chatClient, validate: validator.New()}
}

func (h *chatRPCHandler) HandleMessage(ctx context.Context, client *Client, payload []byte) (any, error) {
	var frame inboundFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		return nil, servererrs.ErrArgs.WrapMsg("unparsable frame", "len", len(payload))
	}
	if err := h.validate.Struct(&frame); err != nil {
		return nil, servererrs.ErrArgs.WrapMsg("invalid frame", "err", err.Error())
	}
	// the session, not the frame, is authoritative for the sender identity
	frame.Msg.SendID = client.UserID
	frame.Msg.PlatformID = client.PlatformID
	if frame.Msg.MsgType == protocol.MsgTypeUnknown {
		return nil, servererrs.ErrArgs.WrapMsg("missing msgType")
	}
	return h.chatClient.SendMsg(ctx, &protocol.SendMsgReq{Msg: frame.Msg})
}
