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

package protocol

import (
	"context"

	"google.golang.org/grpc"
)

const (
	ChatServiceName            = "plume.chat.ChatService"
	ChatServiceSendMsgMethod   = "/plume.chat.ChatService/SendMsg"
	ChatServicePullInboxMethod = "/plume.chat.ChatService/PullInbox"
)

// SendMsgReq carries the client envelope into ingest.
type SendMsgReq struct {
	Msg *Msg `json:"msg"`
}

// MsgResponse echoes the ids assigned at ingest. A queue-publish failure is
// reported in ErrCode/ErrMsg while the RPC itself still succeeds; clients
// retry on a non-zero ErrCode.
type MsgResponse struct {
	LocalID  string `json:"localId"`
	ServerID string `json:"serverId"`
	SendTime int64  `json:"sendTime"`
	ErrCode  int32  `json:"errCode,omitempty"`
	ErrMsg   string `json:"errMsg,omitempty"`
}

// PullInboxReq asks for inbox rows with seq greater than Seq, used by clients
// to resync after reconnecting.
type PullInboxReq struct {
	UserID string `json:"userId"`
	Seq    int64  `json:"seq"`
	Limit  int64  `json:"limit,omitempty"`
}

type PullInboxResp struct {
	Msgs   []*Msg `json:"msgs"`
	MaxSeq int64  `json:"maxSeq"`
}

// ChatServiceServer is implemented by the ingest service.
type ChatServiceServer interface {
	SendMsg(ctx context.Context, req *SendMsgReq) (*MsgResponse, error)
	PullInbox(ctx context.Context, req *PullInboxReq) (*PullInboxResp, error)
}

func RegisterChatServiceServer(s grpc.ServiceRegistrar, srv ChatServiceServer) {
	s.RegisterService(&ChatServiceDesc, srv)
}

func chatSendMsgHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SendMsgReq)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChatServiceServer).SendMsg(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ChatServiceSendMsgMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ChatServiceServer).SendMsg(ctx, req.(*SendMsgReq))
	}
	return interceptor(ctx, in, info, handler)
}

func chatPullInboxHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PullInboxReq)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChatServiceServer).PullInbox(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ChatServicePullInboxMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ChatServiceServer).PullInbox(ctx, req.(*PullInboxReq))
	}
	return interceptor(ctx, in, info, handler)
}

var ChatServiceDesc = grpc.ServiceDesc{
	ServiceName: ChatServiceName,
	HandlerType: (*ChatServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SendMsg", Handler: chatSendMsgHandler},
		{MethodName: "PullInbox", Handler: chatPullInboxHandler},
	},
}

// ChatServiceClient is the typed client used by the gateway and the front
// door.
type ChatServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewChatServiceClient(cc grpc.ClientConnInterface) *ChatServiceClient {
	return &ChatServiceClient{cc: cc}
}

func (c *ChatServiceClient) SendMsg(ctx context.Context, req *SendMsgReq) (*MsgResponse, error) {
	out := new(MsgResponse)
	if err := c.cc.Invoke(ctx, ChatServiceSendMsgMethod, req, out, CallOption()); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ChatServiceClient) PullInbox(ctx context.Context, req *PullInboxReq) (*PullInboxResp, error) {
	out := new(PullInboxResp)
	if err := c.cc.Invoke(ctx, ChatServicePullInboxMethod, req, out, CallOption()); err != nil {
		return nil, err
	}
	return out, nil
}
