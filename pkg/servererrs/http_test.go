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

package servererrs

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
)

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusOK, HTTPStatus(codes.OK))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(codes.NotFound))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(codes.InvalidArgument))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(codes.Unauthenticated))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(codes.PermissionDenied))
	assert.Equal(t, http.StatusConflict, HTTPStatus(codes.AlreadyExists))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(codes.Unavailable))
	assert.Equal(t, http.StatusGatewayTimeout, HTTPStatus(codes.DeadlineExceeded))

	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(codes.Internal))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(codes.Unknown))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(codes.Aborted))
}
