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

package discovery

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/openimsdk/tools/log"
	"google.golang.org/grpc/resolver"
)

const resolverScheme = "plume"

var resolverRegisterOnce sync.Once

// registerResolverOnce installs the registry-backed resolver builder. grpc
// keeps one builder per scheme process-wide; the first registry constructed
// backs it.
func registerResolverOnce(r *ConsulRegistry) {
	resolverRegisterOnce.Do(func() {
		resolver.Register(&registryResolverBuilder{registry: r})
	})
}

type registryResolverBuilder struct {
	registry *ConsulRegistry
}

func (b *registryResolverBuilder) Scheme() string { return resolverScheme }

func (b *registryResolverBuilder) Build(target resolver.Target, cc resolver.ClientConn, _ resolver.BuildOptions) (resolver.Resolver, error) {
	ctx, cancel := context.WithCancel(context.Background())
	rr := &registryResolver{
		registry:    b.registry,
		serviceName: target.Endpoint(),
		cc:          cc,
		ctx:         ctx,
		cancel:      cancel,
		refresh:     make(chan struct{}, 1),
	}
	rr.resolve()
	go rr.watch(b.registry.conf.watchInterval())
	return rr, nil
}

// registryResolver polls the registry every T seconds and pushes the
// symmetric difference of the endpoint set into the channel. Caller
// cancellation drops the in-flight request only; the watch task keeps
// running until the channel closes.
type registryResolver struct {
	registry    *ConsulRegistry
	serviceName string
	cc          resolver.ClientConn
	ctx         context.Context
	cancel      context.CancelFunc
	refresh     chan struct{}

	mu      sync.Mutex
	current map[string]struct{}
}

func (r *registryResolver) watch(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
		case <-r.refresh:
		}
		r.resolve()
	}
}

func (r *registryResolver) resolve() {
	records, err := r.registry.FindByName(r.ctx, r.serviceName)
	if err != nil {
		log.ZWarn(r.ctx, "resolve service failed", err, "service", r.serviceName)
		r.cc.ReportError(err)
		return
	}
	next := make(map[string]struct{}, len(records))
	addrs := make([]resolver.Address, 0, len(records))
	for _, record := range records {
		addr := record.Addr()
		next[addr] = struct{}{}
		addrs = append(addrs, resolver.Address{Addr: addr})
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Addr < addrs[j].Addr })

	r.mu.Lock()
	var inserted, removed []string
	for addr := range next {
		if _, ok := r.current[addr]; !ok {
			inserted = append(inserted, addr)
		}
	}
	for addr := range r.current {
		if _, ok := next[addr]; !ok {
			removed = append(removed, addr)
		}
	}
	r.current = next
	r.mu.Unlock()

	if len(inserted) > 0 || len(removed) > 0 {
		log.ZInfo(r.ctx, "endpoint set changed", "service", r.serviceName,
			"inserted", inserted, "removed", removed)
	}
	if err := r.cc.UpdateState(resolver.State{Addresses: addrs}); err != nil {
		log.ZWarn(r.ctx, "update resolver state failed", err, "service", r.serviceName)
	}
}

func (r *registryResolver) ResolveNow(resolver.ResolveNowOptions) {
	select {
	case r.refresh <- struct{}{}:
	default:
	}
}

func (r *registryResolver) Close() {
	r.cancel()
}
