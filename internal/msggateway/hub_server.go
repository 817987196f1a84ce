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
	"sync/atomic"

	"github.com/openimsdk/tools/log"
	"github.com/openimsdk/tools/mq/memamq"
	"google.golang.org/grpc"

	"github.com/plumeim/plume-im-server/pkg/common/config"
	"github.com/plumeim/plume-im-server/pkg/common/discovery"
	"github.com/plumeim/plume-im-server/pkg/common/startrpc"
	"github.com/plumeim/plume-im-server/pkg/protocol"
	"github.com/plumeim/plume-im-server/pkg/servererrs"
)

type Config struct {
	MsgGateway config.MsgGateway
	Share      config.Share
	Discovery  config.Discovery
}

// hubServer is the RPC surface the pusher calls. Session writes run on a
// worker queue so one slow socket never stalls the RPC handler.
type hubServer struct {
	ws    *WsServer
	queue *memamq.MemoryQueue
}

func newHubServer(ws *WsServer) *hubServer {
	return &hubServer{
		ws:    ws,
		queue: memamq.NewMemoryQueue(512, 1024*16),
	}
}

// Start runs the WS endpoint and the push RPC surface until shutdown.
func Start(ctx context.Context, conf *Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var ws *WsServer
	err := startrpc.Start(ctx, &conf.Discovery, &conf.MsgGateway.RPC,
		conf.Share.RpcRegisterName.MsgGateway, conf.MsgGateway.Tags,
		func(ctx context.Context, registry discovery.SvcDiscoveryRegistry, server *grpc.Server) error {
			chatConn, err := registry.GetConn(ctx, conf.Share.RpcRegisterName.Chat)
			if err != nil {
				return err
			}
			ws = newWsServer(conf, NewChatRPCHandler(protocol.NewChatServiceClient(chatConn)))
			go func() {
				if err := ws.run(ctx); err != nil {
					log.ZError(ctx, "ws server stopped", err)
					cancel()
				}
			}()
			protocol.RegisterMsgGatewayServiceServer(server, newHubServer(ws))
			return nil
		})
	return err
}

// SendMsg broadcasts within this gateway: every live session receives the
// frame.
func (s *hubServer) SendMsg(ctx context.Context, req *protocol.PushMsgReq) (*protocol.PushMsgResp, error) {
	if req.Msg == nil {
		return nil, servererrs.ErrArgs.WrapMsg("missing msg")
	}
	clients := s.ws.clients.All()
	delivered := s.writeToClients(ctx, clients, req.Msg)
	return &protocol.PushMsgResp{Delivered: delivered}, nil
}

// SendMsgToUser writes to every session of the receiver. An absent receiver
// is not an error; this gateway simply has nothing to do.
func (s *hubServer) SendMsgToUser(ctx context.Context, req *protocol.PushMsgReq) (*protocol.PushMsgResp, error) {
	if req.Msg == nil || req.Msg.ReceiverID == "" {
		return nil, servererrs.ErrArgs.WrapMsg("missing msg or receiverId")
	}
	clients := s.ws.clients.GetAll(req.Msg.ReceiverID)
	delivered := s.writeToClients(ctx, clients, req.Msg)
	return &protocol.PushMsgResp{Delivered: delivered}, nil
}

// SendGroupMsgToUser iterates the member list; each present member gets the
// frame stamped with its own seq.
func (s *hubServer) SendGroupMsgToUser(ctx context.Context, req *protocol.PushGroupMsgReq) (*protocol.PushMsgResp, error) {
	if req.Msg == nil {
		return nil, servererrs.ErrArgs.WrapMsg("missing msg")
	}
	var delivered int32
	for _, member := range req.Members {
		clients := s.ws.clients.GetAll(member.UserID)
		if len(clients) == 0 {
			continue
		}
		memberMsg := *req.Msg
		memberMsg.ReceiverID = member.UserID
		memberMsg.Seq = member.Seq
		delivered += s.writeToClients(ctx, clients, &memberMsg)
	}
	return &protocol.PushMsgResp{Delivered: delivered}, nil
}

func (s *hubServer) writeToClients(ctx context.Context, clients []*Client, msg *protocol.Msg) int32 {
	if len(clients) == 0 {
		return 0
	}
	var delivered atomic.Int32
	done := make(chan struct{}, len(clients))
	for _, client := range clients {
		client := client
		if err := s.queue.PushCtx(ctx, func() {
			defer func() { done <- struct{}{} }()
			if err := client.PushMessage(msg); err != nil {
				log.ZWarn(ctx, "push to session failed", err,
					"userID", client.UserID, "platformID", int32(client.PlatformID))
				return
			}
			delivered.Add(1)
		}); err != nil {
			done <- struct{}{}
			log.ZWarn(ctx, "push queue saturated", err, "userID", client.UserID)
		}
	}
	for range clients {
		select {
		case <-done:
		case <-ctx.Done():
			return delivered.Load()
		}
	}
	return delivered.Load()
}
