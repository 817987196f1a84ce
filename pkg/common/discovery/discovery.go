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

// Package discovery provides the service-registry client and the
// load-balanced RPC channel built on it. Processes register under the stable
// id {name}-{host}-{port}; consumers resolve live endpoints through a grpc
// resolver that polls the registry and round-robins requests.
package discovery

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
)

// ServiceRecord describes one registered process.
type ServiceRecord struct {
	ID   string
	Name string
	Host string
	Port int
	Tags []string
}

func (r ServiceRecord) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// RegistrationID is the fixed registration-id format.
func RegistrationID(name, host string, port int) string {
	return fmt.Sprintf("%s-%s-%d", name, host, port)
}

// SvcDiscoveryRegistry is the registry surface the services depend on.
// Failures are reported as the Registry error kind and never panic the
// caller.
type SvcDiscoveryRegistry interface {
	// Register announces this process under {name}-{host}-{port} with a TCP
	// health check and deregister-after-critical metadata.
	Register(ctx context.Context, name, host string, port int, tags []string) error
	// Deregister removes this process's record; called on graceful shutdown.
	Deregister(ctx context.Context) error
	// FindByName returns the passing records for a service, keyed by id.
	FindByName(ctx context.Context, name string) (map[string]ServiceRecord, error)
	// GetConn returns a load-balanced client channel to the named service.
	// The channel's endpoint set follows the registry; request dispatch is
	// round-robin.
	GetConn(ctx context.Context, name string, opts ...grpc.DialOption) (*grpc.ClientConn, error)
	Close()
}
