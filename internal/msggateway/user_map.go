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
	"sync"

	"github.com/plumeim/plume-im-server/pkg/protocol"
)

// UserMap is the session registry: user id -> platform -> the single live
// client. Set and Delete run under one lock, which serialises registration
// per key and keeps the single-device invariant.
type UserMap struct {
	mu sync.RWMutex
	m  map[string]map[protocol.PlatformID]*Client
}

func newUserMap() *UserMap {
	return &UserMap{m: make(map[string]map[protocol.PlatformID]*Client)}
}

// Set installs client and returns the displaced session under the same
// (user, platform), if any; the caller kicks it.
func (u *UserMap) Set(client *Client) *Client {
	u.mu.Lock()
	defer u.mu.Unlock()
	platforms, ok := u.m[client.UserID]
	if !ok {
		platforms = make(map[protocol.PlatformID]*Client)
		u.m[client.UserID] = platforms
	}
	old := platforms[client.PlatformID]
	platforms[client.PlatformID] = client
	return old
}

// Delete removes client's entry if it is still the current session for its
// key; a session displaced by a newer one leaves the newer entry alone.
// Reports whether client was removed.
func (u *UserMap) Delete(client *Client) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	platforms, ok := u.m[client.UserID]
	if !ok {
		return false
	}
	if current, ok := platforms[client.PlatformID]; !ok || current != client {
		return false
	}
	delete(platforms, client.PlatformID)
	if len(platforms) == 0 {
		delete(u.m, client.UserID)
	}
	return true
}

// GetAll returns every live session of one user.
func (u *UserMap) GetAll(userID string) []*Client {
	u.mu.RLock()
	defer u.mu.RUnlock()
	platforms, ok := u.m[userID]
	if !ok {
		return nil
	}
	clients := make([]*Client, 0, len(platforms))
	for _, client := range platforms {
		clients = append(clients, client)
	}
	return clients
}

func (u *UserMap) Get(userID string, platformID protocol.PlatformID) (*Client, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	platforms, ok := u.m[userID]
	if !ok {
		return nil, false
	}
	client, ok := platforms[platformID]
	return client, ok
}

// All returns every live session in the gateway.
func (u *UserMap) All() []*Client {
	u.mu.RLock()
	defer u.mu.RUnlock()
	var clients []*Client
	for _, platforms := range u.m {
		for _, client := range platforms {
			clients = append(clients, client)
		}
	}
	return clients
}

func (u *UserMap) UserCount() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.m)
}
