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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumeim/plume-im-server/pkg/protocol"
)

func TestUserMapSetAndGet(t *testing.T) {
	m := newUserMap()
	client := &Client{UserID: "u100", PlatformID: protocol.PlatformMobile}

	assert.Nil(t, m.Set(client))
	got, ok := m.Get("u100", protocol.PlatformMobile)
	require.True(t, ok)
	assert.Same(t, client, got)

	_, ok = m.Get("u100", protocol.PlatformWeb)
	assert.False(t, ok)
	assert.Equal(t, 1, m.UserCount())
}

func TestUserMapDisplacesSamePlatform(t *testing.T) {
	m := newUserMap()
	first := &Client{UserID: "u100", PlatformID: protocol.PlatformMobile}
	second := &Client{UserID: "u100", PlatformID: protocol.PlatformMobile}

	assert.Nil(t, m.Set(first))
	displaced := m.Set(second)
	assert.Same(t, first, displaced)

	got, ok := m.Get("u100", protocol.PlatformMobile)
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Len(t, m.GetAll("u100"), 1)
}

func TestUserMapPlatformsCoexist(t *testing.T) {
	m := newUserMap()
	mobile := &Client{UserID: "u100", PlatformID: protocol.PlatformMobile}
	web := &Client{UserID: "u100", PlatformID: protocol.PlatformWeb}

	assert.Nil(t, m.Set(mobile))
	assert.Nil(t, m.Set(web))
	assert.Len(t, m.GetAll("u100"), 2)
	assert.Equal(t, 1, m.UserCount())
}

func TestUserMapDeleteOnlyCurrent(t *testing.T) {
	m := newUserMap()
	first := &Client{UserID: "u100", PlatformID: protocol.PlatformMobile}
	second := &Client{UserID: "u100", PlatformID: protocol.PlatformMobile}

	m.Set(first)
	m.Set(second)

	// the displaced session unregisters after its successor registered; it
	// must not remove the successor's entry
	assert.False(t, m.Delete(first))
	got, ok := m.Get("u100", protocol.PlatformMobile)
	require.True(t, ok)
	assert.Same(t, second, got)

	assert.True(t, m.Delete(second))
	_, ok = m.Get("u100", protocol.PlatformMobile)
	assert.False(t, ok)
	assert.Equal(t, 0, m.UserCount())
}

func TestUserMapDeleteUnknown(t *testing.T) {
	m := newUserMap()
	assert.False(t, m.Delete(&Client{UserID: "ghost", PlatformID: protocol.PlatformWeb}))
}

func TestUserMapAll(t *testing.T) {
	m := newUserMap()
	m.Set(&Client{UserID: "u100", PlatformID: protocol.PlatformMobile})
	m.Set(&Client{UserID: "u200", PlatformID: protocol.PlatformWeb})
	m.Set(&Client{UserID: "u200", PlatformID: protocol.PlatformDesktop})

	assert.Len(t, m.All(), 3)
	assert.Equal(t, 2, m.UserCount())
}
