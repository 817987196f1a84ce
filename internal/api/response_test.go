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
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumeim/plume-im-server/pkg/servererrs"
)

func TestHTTPStatusOfCode(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, httpStatusOfCode(servererrs.ArgsError))
	assert.Equal(t, http.StatusNotFound, httpStatusOfCode(servererrs.RecordNotFoundError))
	assert.Equal(t, http.StatusConflict, httpStatusOfCode(servererrs.DuplicateKeyError))
	assert.Equal(t, http.StatusForbidden, httpStatusOfCode(servererrs.NoPermissionError))
	assert.Equal(t, http.StatusUnauthorized, httpStatusOfCode(servererrs.TokenExpiredError))
	assert.Equal(t, http.StatusUnauthorized, httpStatusOfCode(servererrs.TokenInvalidError))
	assert.Equal(t, http.StatusUnauthorized, httpStatusOfCode(servererrs.TokenKickedError))
	assert.Equal(t, http.StatusServiceUnavailable, httpStatusOfCode(servererrs.QueueError))
	assert.Equal(t, http.StatusServiceUnavailable, httpStatusOfCode(servererrs.DatabaseError))
	assert.Equal(t, http.StatusInternalServerError, httpStatusOfCode(99999))
}

func respondInTestContext(t *testing.T, err error) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, err)

	var body apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestRespondErrorCoded(t *testing.T) {
	w, body := respondInTestContext(t, servererrs.ErrArgs.WrapMsg("missing userId"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, servererrs.ArgsError, body.ErrCode)
	assert.NotEmpty(t, body.ErrMsg)
}

func TestRespondErrorTokenExpired(t *testing.T) {
	w, body := respondInTestContext(t, servererrs.ErrTokenExpired.Wrap())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, servererrs.TokenExpiredError, body.ErrCode)
}

func TestRespondErrorPlain(t *testing.T) {
	w, body := respondInTestContext(t, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotZero(t, body.ErrCode)
}
