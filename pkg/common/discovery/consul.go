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
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/consul/api"
	"github.com/openimsdk/tools/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/plumeim/plume-im-server/pkg/protocol"
	"github.com/plumeim/plume-im-server/pkg/servererrs"
)

const (
	defaultCheckInterval           = "10s"
	defaultCheckTimeout            = "5s"
	defaultDeregisterCriticalAfter = "1m"
)

type ConsulConfig struct {
	Address                 string
	Scheme                  string
	Token                   string
	WatchInterval           time.Duration
	CheckInterval           string
	CheckTimeout            string
	DeregisterCriticalAfter string
}

func (c *ConsulConfig) watchInterval() time.Duration {
	if c.WatchInterval <= 0 {
		return 10 * time.Second
	}
	return c.WatchInterval
}

// ConsulRegistry implements SvcDiscoveryRegistry against the consul agent
// HTTP API.
type ConsulRegistry struct {
	client *api.Client
	conf   ConsulConfig

	mu           sync.Mutex
	registeredID string
	conns        []*grpc.ClientConn
}

func NewConsulRegistry(conf ConsulConfig) (*ConsulRegistry, error) {
	apiConf := api.DefaultConfig()
	if conf.Address != "" {
		apiConf.Address = conf.Address
	}
	if conf.Scheme != "" {
		apiConf.Scheme = conf.Scheme
	}
	if conf.Token != "" {
		apiConf.Token = conf.Token
	}
	client, err := api.NewClient(apiConf)
	if err != nil {
		return nil, servererrs.ErrRegistry.WrapMsg("new consul client failed", "address", conf.Address)
	}
	r := &ConsulRegistry{client: client, conf: conf}
	registerResolverOnce(r)
	return r, nil
}

func (r *ConsulRegistry) Register(ctx context.Context, name, host string, port int, tags []string) error {
	id := RegistrationID(name, host, port)
	interval := r.conf.CheckInterval
	if interval == "" {
		interval = defaultCheckInterval
	}
	timeout := r.conf.CheckTimeout
	if timeout == "" {
		timeout = defaultCheckTimeout
	}
	deregisterAfter := r.conf.DeregisterCriticalAfter
	if deregisterAfter == "" {
		deregisterAfter = defaultDeregisterCriticalAfter
	}
	reg := &api.AgentServiceRegistration{
		ID:      id,
		Name:    name,
		Address: host,
		Port:    port,
		Tags:    tags,
		Check: &api.AgentServiceCheck{
			TCP:                            fmt.Sprintf("%s:%d", host, port),
			Interval:                       interval,
			Timeout:                        timeout,
			DeregisterCriticalServiceAfter: deregisterAfter,
		},
	}
	if err := r.client.Agent().ServiceRegister(reg); err != nil {
		return servererrs.ErrRegistry.WrapMsg("service register failed", "id", id)
	}
	r.mu.Lock()
	r.registeredID = id
	r.mu.Unlock()
	log.ZInfo(ctx, "registered service", "id", id, "tags", tags)
	return nil
}

func (r *ConsulRegistry) Deregister(ctx context.Context) error {
	r.mu.Lock()
	id := r.registeredID
	r.registeredID = ""
	r.mu.Unlock()
	if id == "" {
		return nil
	}
	if err := r.client.Agent().ServiceDeregister(id); err != nil {
		return servererrs.ErrRegistry.WrapMsg("service deregister failed", "id", id)
	}
	log.ZInfo(ctx, "deregistered service", "id", id)
	return nil
}

func (r *ConsulRegistry) FindByName(ctx context.Context, name string) (map[string]ServiceRecord, error) {
	entries, _, err := r.client.Health().Service(name, "", true, (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, servererrs.ErrRegistry.WrapMsg("find service failed", "name", name)
	}
	records := make(map[string]ServiceRecord, len(entries))
	for _, entry := range entries {
		if entry.Service == nil {
			continue
		}
		host := entry.Service.Address
		if host == "" && entry.Node != nil {
			host = entry.Node.Address
		}
		records[entry.Service.ID] = ServiceRecord{
			ID:   entry.Service.ID,
			Name: name,
			Host: host,
			Port: entry.Service.Port,
			Tags: entry.Service.Tags,
		}
	}
	return records, nil
}

func (r *ConsulRegistry) GetConn(ctx context.Context, name string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	target := fmt.Sprintf("%s:///%s", resolverScheme, name)
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultServiceConfig(`{"loadBalancingConfig": [{"round_robin":{}}]}`),
		grpc.WithDefaultCallOptions(protocol.CallOption()),
	}, opts...)
	conn, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, servererrs.ErrRegistry.WrapMsg("dial service failed", "name", name)
	}
	r.mu.Lock()
	r.conns = append(r.conns, conn)
	r.mu.Unlock()
	return conn, nil
}

func (r *ConsulRegistry) Close() {
	r.mu.Lock()
	conns := r.conns
	r.conns = nil
	r.mu.Unlock()
	for _, conn := range conns {
		_ = conn.Close()
	}
}
