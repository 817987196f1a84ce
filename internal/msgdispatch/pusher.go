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

package msgdispatch

import (
	"context"
	"sync"
	"time"

	"github.com/openimsdk/tools/log"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/backoff"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/plumeim/plume-im-server/pkg/common/config"
	"github.com/plumeim/plume-im-server/pkg/common/discovery"
	"github.com/plumeim/plume-im-server/pkg/protocol"
)

const maxPushWorkers = 16

// Pusher broadcasts every message to every live gateway; each gateway filters
// by local session presence. The gateway set follows the registry: a
// background tick reconciles the client map, and a gateway that fails a push
// is evicted until the next tick re-adds it.
type Pusher struct {
	registry    discovery.SvcDiscoveryRegistry
	gatewayName string
	interval    time.Duration

	// per-gateway bounds; a hung gateway never stalls the consumer loop
	connectTimeout time.Duration
	pushTimeout    time.Duration

	mu       sync.RWMutex
	gateways map[string]*gatewayConn
}

type gatewayConn struct {
	conn   *grpc.ClientConn
	client *protocol.MsgGatewayServiceClient
}

func NewPusher(registry discovery.SvcDiscoveryRegistry, gatewayName string, interval time.Duration, rpcConf *config.RPC) *Pusher {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if rpcConf == nil {
		rpcConf = &config.RPC{}
	}
	return &Pusher{
		registry:       registry,
		gatewayName:    gatewayName,
		interval:       interval,
		connectTimeout: rpcConf.GetConnectTimeout(),
		pushTimeout:    rpcConf.GetRequestTimeout(),
		gateways:       make(map[string]*gatewayConn),
	}
}

// Watch refreshes the gateway client map until ctx is cancelled.
func (p *Pusher) Watch(ctx context.Context) {
	p.refresh(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.closeAll()
			return
		case <-ticker.C:
			p.refresh(ctx)
		}
	}
}

func (p *Pusher) refresh(ctx context.Context) {
	records, err := p.registry.FindByName(ctx, p.gatewayName)
	if err != nil {
		log.ZWarn(ctx, "find gateways failed, keeping current set", err, "name", p.gatewayName)
		return
	}
	live := make(map[string]struct{}, len(records))
	for _, record := range records {
		live[record.Addr()] = struct{}{}
	}

	p.mu.Lock()
	var stale []*gatewayConn
	for addr, gw := range p.gateways {
		if _, ok := live[addr]; !ok {
			stale = append(stale, gw)
			delete(p.gateways, addr)
			log.ZInfo(ctx, "gateway removed", "addr", addr)
		}
	}
	for addr := range live {
		if _, ok := p.gateways[addr]; ok {
			continue
		}
		conn, err := grpc.DialContext(ctx, addr,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithDefaultCallOptions(protocol.CallOption()),
			grpc.WithConnectParams(grpc.ConnectParams{
				Backoff:           backoff.DefaultConfig,
				MinConnectTimeout: p.connectTimeout,
			}))
		if err != nil {
			log.ZWarn(ctx, "dial gateway failed", err, "addr", addr)
			continue
		}
		p.gateways[addr] = &gatewayConn{conn: conn, client: protocol.NewMsgGatewayServiceClient(conn)}
		log.ZInfo(ctx, "gateway added", "addr", addr)
	}
	p.mu.Unlock()

	for _, gw := range stale {
		_ = gw.conn.Close()
	}
}

func (p *Pusher) snapshot() map[string]*gatewayConn {
	p.mu.RLock()
	defer p.mu.RUnlock()
	gateways := make(map[string]*gatewayConn, len(p.gateways))
	for addr, gw := range p.gateways {
		gateways[addr] = gw
	}
	return gateways
}

func (p *Pusher) evict(ctx context.Context, addr string) {
	p.mu.Lock()
	gw, ok := p.gateways[addr]
	if ok {
		delete(p.gateways, addr)
	}
	p.mu.Unlock()
	if ok {
		_ = gw.conn.Close()
		log.ZWarn(ctx, "gateway evicted after push failure", nil, "addr", addr)
	}
}

// PushSingle fans the message out to every gateway. Per-gateway failures are
// logged and evict the gateway; they never fail the push, since history has
// already captured the message and clients resync by seq.
func (p *Pusher) PushSingle(ctx context.Context, msg *protocol.Msg) {
	req := &protocol.PushMsgReq{Msg: msg}
	p.fanOut(ctx, func(ctx context.Context, gw *gatewayConn) error {
		_, err := gw.client.SendMsgToUser(ctx, req)
		return err
	})
}

// PushGroup fans the message plus per-member seqs out to every gateway.
func (p *Pusher) PushGroup(ctx context.Context, msg *protocol.Msg, members []*protocol.MemberSeq) {
	req := &protocol.PushGroupMsgReq{Msg: msg, Members: members}
	p.fanOut(ctx, func(ctx context.Context, gw *gatewayConn) error {
		_, err := gw.client.SendGroupMsgToUser(ctx, req)
		return err
	})
}

func (p *Pusher) fanOut(ctx context.Context, push func(ctx context.Context, gw *gatewayConn) error) {
	gateways := p.snapshot()
	if len(gateways) == 0 {
		log.ZWarn(ctx, "no live gateways", nil)
		return
	}
	wg := errgroup.Group{}
	wg.SetLimit(maxPushWorkers)
	for addr, gw := range gateways {
		addr, gw := addr, gw
		wg.Go(func() error {
			pushCtx, cancel := context.WithTimeout(ctx, p.pushTimeout)
			defer cancel()
			if err := push(pushCtx, gw); err != nil {
				log.ZError(ctx, "push to gateway failed", err, "addr", addr)
				p.evict(ctx, addr)
			}
			return nil
		})
	}
	_ = wg.Wait()
}

func (p *Pusher) closeAll() {
	p.mu.Lock()
	gateways := p.gateways
	p.gateways = make(map[string]*gatewayConn)
	p.mu.Unlock()
	for _, gw := range gateways {
		_ = gw.conn.Close()
	}
}
