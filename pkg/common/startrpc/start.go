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

// Package startrpc runs one gRPC service: listen, register the service in
// the registry, serve, and on shutdown deregister before draining.
package startrpc

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/openimsdk/tools/errs"
	"github.com/openimsdk/tools/log"
	"github.com/openimsdk/tools/utils/network"
	"google.golang.org/grpc"

	"github.com/plumeim/plume-im-server/pkg/common/config"
	"github.com/plumeim/plume-im-server/pkg/common/discovery"
)

const drainTimeout = 15 * time.Second

// Start serves one RPC process until the context is cancelled or a signal
// arrives. rpcFn registers the service implementation on server; it receives
// the registry so it can dial collaborator services.
func Start(
	ctx context.Context,
	disc *config.Discovery,
	rpcConf *config.RPC,
	name string,
	tags []string,
	rpcFn func(ctx context.Context, registry discovery.SvcDiscoveryRegistry, server *grpc.Server) error,
) error {
	registry, err := discovery.NewConsulRegistry(disc.Consul.Build())
	if err != nil {
		return err
	}
	defer registry.Close()

	listenAddr := net.JoinHostPort(rpcConf.ListenIP, strconv.Itoa(rpcConf.Port))
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return errs.WrapMsg(err, "listen failed", "addr", listenAddr)
	}

	server := grpc.NewServer()
	if err := rpcFn(ctx, registry, server); err != nil {
		return err
	}

	registerIP, err := network.GetRpcRegisterIP(rpcConf.RegisterIP)
	if err != nil {
		return err
	}
	if err := registry.Register(ctx, name, registerIP, rpcConf.Port, tags); err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()
	log.ZInfo(ctx, "rpc server started", "name", name, "listenAddr", listenAddr, "registerIP", registerIP)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM, syscall.SIGINT)

	select {
	case err := <-serveErr:
		_ = registry.Deregister(ctx)
		return errs.WrapMsg(err, "rpc serve failed", "name", name)
	case <-ctx.Done():
	case sig := <-sigs:
		log.ZInfo(ctx, "shutdown signal received", "name", name, "signal", sig.String())
	}

	// graceful phase: disappear from the registry first so peers stop
	// dialing, then drain in-flight requests with a bounded wait
	if err := registry.Deregister(ctx); err != nil {
		log.ZWarn(ctx, "deregister on shutdown failed", err, "name", name)
	}
	done := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(drainTimeout):
		log.ZWarn(ctx, "drain timeout exceeded, forcing stop", nil, "name", name)
		server.Stop()
	}
	return nil
}
