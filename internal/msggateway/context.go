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
	"net/http"
	"strconv"
	"strings"

	"github.com/plumeim/plume-im-server/pkg/protocol"
	"github.com/plumeim/plume-im-server/pkg/servererrs"
)

// UserConnContext is everything extracted from the connect URL
// /ws/{user_id}/conn/{pointer_id}/{platform}/{token}.
type UserConnContext struct {
	UserID     string
	PointerID  string
	PlatformID protocol.PlatformID
	Token      string
	RemoteAddr string
}

func parseConnContext(r *http.Request) (*UserConnContext, error) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 6 || parts[0] != "ws" || parts[2] != "conn" {
		return nil, servererrs.ErrArgs.WrapMsg("bad connect path", "path", r.URL.Path)
	}
	platform, err := strconv.Atoi(parts[4])
	if err != nil {
		return nil, servererrs.ErrArgs.WrapMsg("bad platform id", "platform", parts[4])
	}
	ctx := &UserConnContext{
		UserID:     parts[1],
		PointerID:  parts[3],
		PlatformID: protocol.PlatformID(platform),
		Token:      parts[5],
		RemoteAddr: r.RemoteAddr,
	}
	if ctx.UserID == "" || ctx.PointerID == "" || ctx.Token == "" {
		return nil, servererrs.ErrArgs.WrapMsg("missing connect fields", "path", r.URL.Path)
	}
	return ctx, nil
}
