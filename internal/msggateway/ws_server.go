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

// Package msggateway owns the live client sessions: it accepts WebSocket
// connections, enforces single-device-per-platform login, heartbeats each
// socket, forwards inbound sends to ingest and serves the push RPC surface
// the dispatcher fans out to.
package msggateway

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/openimsdk/tools/log"

	"github.com/plumeim/plume-im-server/pkg/authverify"
	"github.com/plumeim/plume-im-server/pkg/servererrs"
)

var errTokenIdentityMismatch = servererrs.ErrTokenInvalid.WrapMsg("token identity does not match connect url")

type WsServer struct {
	conf       *Config
	clients    *UserMap
	msgHandler MessageHandler
	upgrader   *websocket.Upgrader

	onlineConnNum atomic.Int64
}

func newWsServer(conf *Config, msgHandler MessageHandler) *WsServer {
	handshakeTimeout := defaultHandshakeTimeout
	if conf.MsgGateway.HandshakeTimeout > 0 {
		handshakeTimeout = time.Duration(conf.MsgGateway.HandshakeTimeout) * time.Second
	}
	writeBufferSize := conf.MsgGateway.WriteBufferSize
	if writeBufferSize <= 0 {
		writeBufferSize = defaultWriteBufferSize
	}
	return &WsServer{
		conf:       conf,
		clients:    newUserMap(),
		msgHandler: msgHandler,
		upgrader: &websocket.Upgrader{
			HandshakeTimeout: handshakeTimeout,
			WriteBufferSize:  writeBufferSize,
			CheckOrigin:      func(r *http.Request) bool { return true },
		},
	}
}

func (ws *WsServer) maxConnNum() int64 {
	if ws.conf.MsgGateway.MaxConnNum <= 0 {
		return defaultMaxConnNum
	}
	return ws.conf.MsgGateway.MaxConnNum
}

// run serves the WS endpoint until ctx is cancelled, then closes every
// session with the normal close code.
func (ws *WsServer) run(ctx context.Context) error {
	addr := net.JoinHostPort(ws.conf.MsgGateway.ListenIP, strconv.Itoa(ws.conf.MsgGateway.Port))
	server := &http.Server{Addr: addr, Handler: http.HandlerFunc(ws.wsHandler)}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()
	log.ZInfo(ctx, "ws server started", "addr", addr)

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	for _, client := range ws.clients.All() {
		client.close(CloseCodeNormal, "server shutting down")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func (ws *WsServer) wsHandler(w http.ResponseWriter, r *http.Request) {
	connCtx, err := parseConnContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if ws.onlineConnNum.Load() >= ws.maxConnNum() {
		http.Error(w, "connection limit reached", http.StatusServiceUnavailable)
		return
	}
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.ZWarn(r.Context(), "ws upgrade failed", err, "remoteAddr", r.RemoteAddr)
		return
	}

	client := newClient(connCtx, conn, ws)
	if err := ws.authenticate(connCtx); err != nil {
		log.ZWarn(client.ctx, "ws auth failed", err, "userID", connCtx.UserID, "platformID", int32(connCtx.PlatformID))
		client.close(CloseCodeUnauthorized, "unauthorized")
		return
	}

	ws.register(client)
	go client.heartbeat()
	client.readLoop()
}

// authenticate verifies the token signature and expiry and binds it to the
// URL identity.
func (ws *WsServer) authenticate(connCtx *UserConnContext) error {
	claims, err := authverify.GetClaimFromToken(connCtx.Token, ws.conf.Share.Secret)
	if err != nil {
		return err
	}
	if claims.UserID != connCtx.UserID || claims.PlatformID != connCtx.PlatformID {
		return errTokenIdentityMismatch
	}
	return nil
}

func (ws *WsServer) register(client *Client) {
	old := ws.clients.Set(client)
	if old != nil {
		old.Kick()
	} else {
		ws.onlineConnNum.Add(1)
	}
	log.ZInfo(client.ctx, "session registered",
		"userID", client.UserID,
		"platformID", int32(client.PlatformID),
		"onlineUserNum", ws.clients.UserCount(),
		"onlineConnNum", ws.onlineConnNum.Load())
}

func (ws *WsServer) unregister(client *Client) {
	client.close(CloseCodeNormal, "")
	if !ws.clients.Delete(client) {
		// displaced session; the conn count already belongs to its successor
		return
	}
	ws.onlineConnNum.Add(-1)
	log.ZInfo(client.ctx, "session unregistered",
		"userID", client.UserID,
		"platformID", int32(client.PlatformID),
		"onlineUserNum", ws.clients.UserCount(),
		"onlineConnNum", ws.onlineConnNum.Load())
}
