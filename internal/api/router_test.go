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

package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumeim/plume-im-server/pkg/common/config"
)

var testRoutes = []config.APIRoute{
	{Prefix: "/user", ServiceKind: "plume-user-api", RequireAuth: true},
	{Prefix: "/user/register", ServiceKind: "plume-user-api", RequireAuth: false},
	{Prefix: "/group", ServiceKind: "plume-group-api", RequireAuth: true, Rewrite: "/internal/group"},
}

func TestMatchRouteLongestPrefix(t *testing.T) {
	route := matchRoute(testRoutes, "/user/register/phone")
	require.NotNil(t, route)
	assert.Equal(t, "/user/register", route.Prefix)

	route = matchRoute(testRoutes, "/user/profile")
	require.NotNil(t, route)
	assert.Equal(t, "/user", route.Prefix)

	assert.Nil(t, matchRoute(testRoutes, "/payments"))
}

func TestRouteRequiresAuth(t *testing.T) {
	requires := routeRequiresAuth(testRoutes)
	assert.False(t, requires("/user/register/phone"))
	assert.True(t, requires("/user/profile"))
	assert.True(t, requires("/group/create"))
	// unrouted paths default to requiring auth
	assert.True(t, requires("/anything/else"))
}

func TestRewritePath(t *testing.T) {
	route := &testRoutes[2]
	assert.Equal(t, "/internal/group/create", rewritePath(route, "/group/create"))
	assert.Equal(t, "/internal/group", rewritePath(route, "/group"))

	// routes without a rewrite pass the path through
	assert.Equal(t, "/user/profile", rewritePath(&testRoutes[0], "/user/profile"))
}

func TestIsHopByHop(t *testing.T) {
	assert.True(t, isHopByHop("Connection"))
	assert.True(t, isHopByHop("transfer-encoding"))
	assert.False(t, isHopByHop("Content-Type"))
	assert.False(t, isHopByHop("Authorization"))
}
