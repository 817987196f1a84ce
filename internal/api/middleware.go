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
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/openimsdk/tools/utils/datautil"

	"github.com/plumeim/plume-im-server/pkg/authverify"
	"github.com/plumeim/plume-im-server/pkg/common/config"
	"github.com/plumeim/plume-im-server/pkg/servererrs"
)

const (
	defaultTokenHeader = "Authorization"
	defaultTokenPrefix = "Bearer "

	ctxUserIDKey = "opUserID"
)

// authMiddleware verifies the bearer token on every route that requires
// auth. Whitelisted client IPs and paths pass through before any token
// check.
func authMiddleware(conf *config.API, secret string, requireAuth func(path string) bool) gin.HandlerFunc {
	header := conf.TokenHeader
	if header == "" {
		header = defaultTokenHeader
	}
	prefix := conf.TokenPrefix
	if prefix == "" {
		prefix = defaultTokenPrefix
	}
	return func(c *gin.Context) {
		if datautil.Contain(c.ClientIP(), conf.WhiteIPList...) {
			c.Next()
			return
		}
		if whitelistedPath(conf.WhitePathList, c.Request.URL.Path) {
			c.Next()
			return
		}
		if !requireAuth(c.Request.URL.Path) {
			c.Next()
			return
		}
		token := c.GetHeader(header)
		if token == "" {
			respondError(c, servererrs.ErrTokenInvalid.WrapMsg("missing token"))
			c.Abort()
			return
		}
		token = strings.TrimPrefix(token, prefix)
		claims, err := authverify.GetClaimFromToken(token, secret)
		if err != nil {
			respondError(c, err)
			c.Abort()
			return
		}
		c.Set(ctxUserIDKey, claims.UserID)
		c.Next()
	}
}

func whitelistedPath(whitePaths []string, path string) bool {
	for _, white := range whitePaths {
		if strings.HasPrefix(path, white) {
			return true
		}
	}
	return false
}
