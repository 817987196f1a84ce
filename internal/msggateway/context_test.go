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
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumeim/plume-im-server/pkg/protocol"
)

func TestParseConnContext(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws/u100/conn/ptr-1/2/some.jwt.token", nil)
	ctx, err := parseConnContext(r)
	require.NoError(t, err)
	assert.Equal(t, "u100", ctx.UserID)
	assert.Equal(t, "ptr-1", ctx.PointerID)
	assert.Equal(t, protocol.PlatformMobile, ctx.PlatformID)
	assert.Equal(t, "some.jwt.token", ctx.Token)
	assert.NotEmpty(t, ctx.RemoteAddr)
}

func TestParseConnContextBadPaths(t *testing.T) {
	paths := []string{
		"/",
		"/ws/u100",
		"/ws/u100/conn/ptr-1/2",              // missing token
		"/notws/u100/conn/ptr-1/2/token",     // wrong root
		"/ws/u100/notconn/ptr-1/2/token",     // wrong marker
		"/ws/u100/conn/ptr-1/mobile/token",   // platform not numeric
		"/ws/u100/conn/ptr-1/2/token/excess", // extra segment
	}
	for _, path := range paths {
		r := httptest.NewRequest("GET", path, nil)
		_, err := parseConnContext(r)
		assert.Error(t, err, "path %s", path)
	}
}
