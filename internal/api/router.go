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

// Package api is the HTTP front door: it authenticates requests, terminates
// HTTP into typed RPC calls for the message plane, and proxies everything
// else to the backend named by the configured route table.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/openimsdk/tools/log"

	"github.com/plumeim/plume-im-server/pkg/common/config"
	"github.com/plumeim/plume-im-server/pkg/common/discovery"
	"github.com/plumeim/plume-im-server/pkg/protocol"
)

type Config struct {
	API       config.API
	Share     config.Share
	Discovery config.Discovery
}

// Start serves the front door until a shutdown signal.
func Start(ctx context.Context, conf *Config) error {
	registry, err := discovery.NewConsulRegistry(conf.Discovery.Consul.Build())
	if err != nil {
		return err
	}
	defer registry.Close()

	chatConn, err := registry.GetConn(ctx, conf.Share.RpcRegisterName.Chat)
	if err != nil {
		return err
	}

	engine := newRouter(conf, registry, protocol.NewChatServiceClient(chatConn))
	addr := net.JoinHostPort(conf.API.ListenIP, strconv.Itoa(conf.API.Port))
	server := &http.Server{Addr: addr, Handler: engine}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()
	log.ZInfo(ctx, "api server started", "addr", addr)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM, syscall.SIGINT)
	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	case sig := <-sigs:
		log.ZInfo(ctx, "shutdown signal received", "signal", sig.String())
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newRouter(conf *Config, registry discovery.SvcDiscoveryRegistry, chatClient *protocol.ChatServiceClient) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	switch conf.API.CompressionLevel {
	case 0:
		// compression disabled
	case 9:
		engine.Use(gzip.Gzip(gzip.BestCompression))
	case 1:
		engine.Use(gzip.Gzip(gzip.BestSpeed))
	default:
		engine.Use(gzip.Gzip(gzip.DefaultCompression))
	}
	engine.Use(authMiddleware(&conf.API, conf.Share.Secret, routeRequiresAuth(conf.API.Routes)))

	m := &msgAPI{chatClient: chatClient}
	msgGroup := engine.Group("/msg")
	msgGroup.POST("/send", m.sendMsg)
	msgGroup.POST("/pull", m.pullInbox)

	proxy := newProxyHandler(registry, conf.API.Routes)
	engine.NoRoute(proxy.handle)
	return engine
}

// routeRequiresAuth resolves a path against the configured route table by
// longest matching prefix; unrouted paths require auth.
func routeRequiresAuth(routes []config.APIRoute) func(path string) bool {
	return func(path string) bool {
		if route := matchRoute(routes, path); route != nil {
			return route.RequireAuth
		}
		return true
	}
}

func matchRoute(routes []config.APIRoute, path string) *config.APIRoute {
	var best *config.APIRoute
	for i := range routes {
		route := &routes[i]
		if !strings.HasPrefix(path, route.Prefix) {
			continue
		}
		if best == nil || len(route.Prefix) > len(best.Prefix) {
			best = route
		}
	}
	return best
}
