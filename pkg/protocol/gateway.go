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
	MsgGatewayServiceName              = "plume.msggateway.MsgGatewayService"
	MsgGatewaySendMsgMethod            = "/plume.msggateway.MsgGatewayService/SendMsg"
	MsgGatewaySendMsgToUserMethod      = "/plume.msggateway.MsgGatewayService/SendMsgToUser"
	MsgGatewaySendGroupMsgToUserMethod = "/plume.msggateway.MsgGatewayService/SendGroupMsgToUser"
)

// PushMsgReq wraps one envelope for gateway delivery.
type PushMsgReq struct {
	Msg *Msg `json:"msg"`
}

// PushGroupMsgReq carries the envelope plus the per-member assigned seqs; the
// gateway writes each member's own seq into the frame it delivers.
type PushGroupMsgReq struct {
	Msg     *Msg         `json:"msg"`
	Members []*MemberSeq `json:"members"`
}

// PushMsgResp reports how many local sessions the frame reached. Absent
// recipients are not an error; the gateway broadcasts and filters locally.
type PushMsgResp struct {
	Delivered int32 `json:"delivered"`
}

// MsgGatewayServiceServer is the RPC surface each gateway exposes to the
// pusher.
type MsgGatewayServiceServer interface {
	// SendMsg broadcasts within the gateway process: every live session
	// receives the frame.
	SendMsg(ctx context.Context, req *PushMsgReq) (*PushMsgResp, error)
	// SendMsgToUser writes to every session of msg.ReceiverID.
	SendMsgToUser(ctx context.Context, req *PushMsgReq) (*PushMsgResp, error)
	// SendGroupMsgToUser iterates members and writes to each one present.
	SendGroupMsgToUser(ctx context.Context, req *PushGroupMsgReq) (*PushMsgResp, error)
}

func RegisterMsgGatewayServiceServer(s grpc.ServiceRegistrar, srv MsgGatewayServiceServer) {
	s.RegisterService(&MsgGatewayServiceDesc, srv)
}

func gatewaySendMsgHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PushMsgReq)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MsgGatewayServiceServer).SendMsg(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MsgGatewaySendMsgMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MsgGatewayServiceServer).SendMsg(ctx, req.(*PushMsgReq))
	}
	return interceptor(ctx, in, info, handler)
}

func gatewaySendMsgToUserHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PushMsgReq)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MsgGatewayServiceServer).SendMsgToUser(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MsgGatewaySendMsgToUserMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MsgGatewayServiceServer).SendMsgToUser(ctx, req.(*PushMsgReq))
	}
	return interceptor(ctx, in, info, handler)
}

func gatewaySendGroupMsgToUserHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PushGroupMsgReq)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MsgGatewayServiceServer).SendGroupMsgToUser(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MsgGatewaySendGroupMsgToUserMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MsgGatewayServiceServer).SendGroupMsgToUser(ctx, req.(*PushGroupMsgReq))
	}
	return interceptor(ctx, in, info, handler)
}

var MsgGatewayServiceDesc = grpc.ServiceDesc{
	ServiceName: MsgGatewayServiceName,
	HandlerType: (*MsgGatewayServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SendMsg", Handler: gatewaySendMsgHandler},
		{MethodName: "SendMsgToUser", Handler: gatewaySendMsgToUserHandler},
		{MethodName: "SendGroupMsgToUser", Handler: gatewaySendGroupMsgToUserHandler},
	},
}

type MsgGatewayServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewMsgGatewayServiceClient(cc grpc.ClientConnInterface) *MsgGatewayServiceClient {
	return &MsgGatewayServiceClient{cc: cc}
}

func (c *MsgGatewayServiceClient) SendMsg(ctx context.Context, req *PushMsgReq) (*PushMsgResp, error) {
	out := new(PushMsgResp)
	if err := c.cc.Invoke(ctx, MsgGatewaySendMsgMethod, req, out, CallOption()); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *MsgGatewayServiceClient) SendMsgToUser(ctx context.Context, req *PushMsgReq) (*PushMsgResp, error) {
	out := new(PushMsgResp)
	if err := c.cc.Invoke(ctx, MsgGatewaySendMsgToUserMethod, req, out, CallOption()); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *MsgGatewayServiceClient) SendGroupMsgToUser(ctx context.Context, req *PushGroupMsgReq) (*PushMsgResp, error) {
	out := new(PushMsgResp)
	if err := c.cc.Invoke(ctx, MsgGatewaySendGroupMsgToUserMethod, req, out, CallOption()); err != nil {
		return nil, err
	}
	return out, nil
}
