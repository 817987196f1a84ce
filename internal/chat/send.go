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

package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/openimsdk/tools/log"

	"github.com/plumeim/plume-im-server/pkg/protocol"
	"github.com/plumeim/plume-im-server/pkg/servererrs"
)

// SendMsg stamps the envelope and publishes it. The queue-publish error, if
// any, travels back inside the response; the RPC itself does not fail for it
// so the client can distinguish "not accepted" from "not published".
func (s *chatServer) SendMsg(ctx context.Context, req *protocol.SendMsgReq) (*protocol.MsgResponse, error) {
	if req.Msg == nil || req.Msg.SendID == "" {
		return nil, servererrs.ErrArgs.WrapMsg("missing msg or sendId")
	}
	msg := req.Msg
	if msg.MsgType.IsReceipt() {
		// delivery receipts keep the id of the message they acknowledge
		if msg.ServerID == "" {
			return nil, servererrs.ErrArgs.WrapMsg("receipt without serverId", "msgType", int32(msg.MsgType))
		}
	} else {
		msg.ServerID = uuid.NewString()
	}
	msg.SendTime = time.Now().UnixMilli()

	resp := &protocol.MsgResponse{
		LocalID:  msg.LocalID,
		ServerID: msg.ServerID,
		SendTime: msg.SendTime,
	}
	if err := s.db.MsgToMQ(ctx, msg); err != nil {
		log.ZError(ctx, "publish to queue failed", err, "serverID", msg.ServerID, "msgType", int32(msg.MsgType))
		resp.ErrCode = servererrs.QueueError
		resp.ErrMsg = err.Error()
	}
	return resp, nil
}

// PullInbox returns inbox messages after req.Seq so a reconnected client can
// catch up to its live seq.
func (s *chatServer) PullInbox(ctx context.Context, req *protocol.PullInboxReq) (*protocol.PullInboxResp, error) {
	if req.UserID == "" {
		return nil, servererrs.ErrArgs.WrapMsg("missing userId")
	}
	msgs, err := s.db.PullInbox(ctx, req.UserID, req.Seq, req.Limit)
	if err != nil {
		return nil, err
	}
	resp := &protocol.PullInboxResp{Msgs: msgs, MaxSeq: req.Seq}
	if len(msgs) > 0 {
		resp.MaxSeq = msgs[len(msgs)-1].Seq
	}
	return resp, nil
}
