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
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/openimsdk/tools/log"
	"github.com/openimsdk/tools/mcontext"

	"github.com/plumeim/plume-im-server/pkg/protocol"
)

// Client is one live session. Writes go through a mutex so pushes, replies
// and control frames never interleave; a slow socket blocks only this
// session's writer.
type Client struct {
	UserID     string
	PlatformID protocol.PlatformID
	PointerID  string

	ctx    context.Context
	conn   *websocket.Conn
	server *WsServer

	writeMu sync.Mutex
	closed  atomic.Bool
}

func newClient(connCtx *UserConnContext, conn *websocket.Conn, server *WsServer) *Client {
	ctx := mcontext.SetOperationID(context.Background(), uuid.NewString())
	ctx = mcontext.WithOpUserIDContext(ctx, connCtx.UserID)
	return &Client{
		UserID:     connCtx.UserID,
		PlatformID: connCtx.PlatformID,
		PointerID:  connCtx.PointerID,
		ctx:        ctx,
		conn:       conn,
		server:     server,
	}
}

// readLoop pumps inbound frames until the socket dies, then unregisters.
func (c *Client) readLoop() {
	defer c.server.unregister(c)

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	c.conn.SetPingHandler(func(appData string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return c.writeControl(websocket.PongMessage, []byte(appData))
	})

	for {
		messageType, payload, err := c.conn.ReadMessage()
		if err != nil {
			log.ZDebug(c.ctx, "read loop ended", "userID", c.UserID, "platformID", int32(c.PlatformID), "err", err.Error())
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		switch messageType {
		case websocket.TextMessage:
			c.handleFrame(payload)
		case websocket.BinaryMessage:
			decoded, err := decodeBinaryFrame(payload)
			if err != nil {
				log.ZWarn(c.ctx, "dropping bad binary frame", err, "userID", c.UserID)
				continue
			}
			c.handleFrame(decoded)
		case websocket.CloseMessage:
			return
		}
	}
}

// handleFrame forwards one inbound envelope to ingest. A parse failure is
// logged and the frame dropped.
func (c *Client) handleFrame(payload []byte) {
	resp, err := c.server.msgHandler.HandleMessage(c.ctx, c, payload)
	if err != nil {
		log.ZWarn(c.ctx, "dropping bad inbound frame", err, "userID", c.UserID)
		return
	}
	if resp != nil {
		if err := c.writeJSON(resp); err != nil {
			log.ZWarn(c.ctx, "write reply failed", err, "userID", c.UserID)
		}
	}
}

// heartbeat pings the socket every interval; a failed write ends the session.
func (c *Client) heartbeat() {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for range ticker.C {
		if c.closed.Load() {
			return
		}
		if err := c.writeControl(websocket.PingMessage, nil); err != nil {
			log.ZDebug(c.ctx, "ping failed, closing session", "userID", c.UserID, "err", err.Error())
			c.close(CloseCodeNormal, "ping failure")
			return
		}
	}
}

// PushMessage writes one envelope to the socket as a JSON text frame.
func (c *Client) PushMessage(msg *protocol.Msg) error {
	return c.writeJSON(msg)
}

func (c *Client) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) writeControl(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(messageType, data, time.Now().Add(writeWait))
}

// Kick closes the session with the kicked close code; called when a newer
// session takes over the same (user, platform).
func (c *Client) Kick() {
	log.ZInfo(c.ctx, "session kicked by newer login", "userID", c.UserID, "platformID", int32(c.PlatformID))
	c.close(CloseCodeKicked, "kicked by another device")
}

func (c *Client) close(code int, reason string) {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	message := websocket.FormatCloseMessage(code, reason)
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(writeWait))
	c.writeMu.Unlock()
	_ = c.conn.Close()
}
