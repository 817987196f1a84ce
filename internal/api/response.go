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
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/openimsdk/tools/errs"
	"google.golang.org/grpc/status"

	"github.com/plumeim/plume-im-server/pkg/servererrs"
)

// apiResponse is the uniform JSON body of every front-door reply.
type apiResponse struct {
	ErrCode int    `json:"errCode"`
	ErrMsg  string `json:"errMsg,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func respondSuccess(c *gin.Context, data any) {
	c.JSON(http.StatusOK, apiResponse{Data: data})
}

// respondError maps the error onto an HTTP status: coded errors keep their
// code in the body with a client-class status, RPC failures go through the
// fixed grpc-to-HTTP table.
func respondError(c *gin.Context, err error) {
	if codeErr, ok := errs.Unwrap(err).(errs.CodeError); ok {
		c.JSON(httpStatusOfCode(codeErr.Code()), apiResponse{ErrCode: codeErr.Code(), ErrMsg: codeErr.Msg()})
		return
	}
	if st, ok := status.FromError(err); ok && st.Code() != 0 {
		c.JSON(servererrs.HTTPStatus(st.Code()), apiResponse{ErrCode: int(st.Code()), ErrMsg: st.Message()})
		return
	}
	c.JSON(http.StatusInternalServerError, apiResponse{ErrCode: http.StatusInternalServerError, ErrMsg: err.Error()})
}

func httpStatusOfCode(code int) int {
	switch code {
	case servererrs.ArgsError:
		return http.StatusBadRequest
	case servererrs.RecordNotFoundError:
		return http.StatusNotFound
	case servererrs.DuplicateKeyError:
		return http.StatusConflict
	case servererrs.NoPermissionError:
		return http.StatusForbidden
	case servererrs.TokenExpiredError, servererrs.TokenInvalidError, servererrs.TokenMalformedError,
		servererrs.TokenNotValidYetError, servererrs.TokenKickedError:
		return http.StatusUnauthorized
	case servererrs.RegistryError, servererrs.QueueError, servererrs.CacheError, servererrs.DatabaseError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
