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
	"compress/gzip"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/openimsdk/tools/log"

	"github.com/plumeim/plume-im-server/pkg/common/config"
	"github.com/plumeim/plume-im-server/pkg/common/discovery"
	"github.com/plumeim/plume-im-server/pkg/servererrs"
)

// hop-by-hop headers are stripped in both directions.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// proxyHandler forwards requests to the HTTP backend a route names,
// rewriting the path and decompressing gzip request bodies so backends see
// plain JSON.
type proxyHandler struct {
	registry discovery.SvcDiscoveryRegistry
	routes   []config.APIRoute
	client   *http.Client
}

func newProxyHandler(registry discovery.SvcDiscoveryRegistry, routes []config.APIRoute) *proxyHandler {
	return &proxyHandler{
		registry: registry,
		routes:   routes,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *proxyHandler) handle(c *gin.Context) {
	route := matchRoute(p.routes, c.Request.URL.Path)
	if route == nil {
		respondError(c, servererrs.ErrArgs.WrapMsg("no route", "path", c.Request.URL.Path))
		return
	}
	backend, err := p.pickBackend(c, route.ServiceKind)
	if err != nil {
		respondError(c, err)
		return
	}

	targetPath := rewritePath(route, c.Request.URL.Path)
	targetURL := fmt.Sprintf("http://%s%s", backend, targetPath)
	if c.Request.URL.RawQuery != "" {
		targetURL += "?" + c.Request.URL.RawQuery
	}

	body := c.Request.Body
	gzipped := strings.EqualFold(c.GetHeader("Content-Encoding"), "gzip")
	if gzipped {
		reader, err := gzip.NewReader(body)
		if err != nil {
			respondError(c, servererrs.ErrArgs.WrapMsg("bad gzip body"))
			return
		}
		defer reader.Close()
		body = reader
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, targetURL, body)
	if err != nil {
		respondError(c, err)
		return
	}
	copyHeaders(req.Header, c.Request.Header)
	if gzipped {
		req.Header.Del("Content-Encoding")
		req.Header.Del("Content-Length")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		log.ZError(c.Request.Context(), "proxy request failed", err, "target", targetURL)
		respondError(c, servererrs.ErrRegistry.WrapMsg("backend unreachable", "serviceKind", route.ServiceKind))
		return
	}
	defer resp.Body.Close()

	copyHeaders(c.Writer.Header(), resp.Header)
	c.Status(resp.StatusCode)
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		log.ZWarn(c.Request.Context(), "proxy response copy failed", err, "target", targetURL)
	}
}

// pickBackend resolves a live backend for the service, choosing randomly
// among passing instances.
func (p *proxyHandler) pickBackend(c *gin.Context, serviceKind string) (string, error) {
	records, err := p.registry.FindByName(c.Request.Context(), serviceKind)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", servererrs.ErrRegistry.WrapMsg("no live backend", "serviceKind", serviceKind)
	}
	addrs := make([]string, 0, len(records))
	for _, record := range records {
		addrs = append(addrs, record.Addr())
	}
	return addrs[rand.Intn(len(addrs))], nil
}

func rewritePath(route *config.APIRoute, path string) string {
	if route.Rewrite == "" {
		return path
	}
	rest := strings.TrimPrefix(path, route.Prefix)
	if !strings.HasPrefix(rest, "/") && rest != "" {
		rest = "/" + rest
	}
	return strings.TrimSuffix(route.Rewrite, "/") + rest
}

func copyHeaders(dst, src http.Header) {
	for key, values := range src {
		if isHopByHop(key) {
			continue
		}
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}

func isHopByHop(key string) bool {
	for _, hop := range hopByHopHeaders {
		if http.CanonicalHeaderKey(key) == http.CanonicalHeaderKey(hop) {
			return true
		}
	}
	return false
}
