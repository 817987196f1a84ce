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

package authverify

import (
	"testing"

	"github.com/openimsdk/tools/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumeim/plume-im-server/pkg/protocol"
	"github.com/plumeim/plume-im-server/pkg/servererrs"
)

const testSecret = "plume-test-secret"

func TestTokenRoundTrip(t *testing.T) {
	tokenString, err := CreateToken("u100", protocol.PlatformMobile, testSecret, 7)
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	claims, err := GetClaimFromToken(tokenString, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "u100", claims.UserID)
	assert.Equal(t, protocol.PlatformMobile, claims.PlatformID)
}

func TestTokenWrongSecret(t *testing.T) {
	tokenString, err := CreateToken("u100", protocol.PlatformWeb, testSecret, 7)
	require.NoError(t, err)

	_, err = GetClaimFromToken(tokenString, "other-secret")
	require.Error(t, err)
	assertCode(t, err, servererrs.TokenInvalidError)
}

func TestTokenExpired(t *testing.T) {
	tokenString, err := CreateToken("u100", protocol.PlatformDesktop, testSecret, -1)
	require.NoError(t, err)

	_, err = GetClaimFromToken(tokenString, testSecret)
	require.Error(t, err)
	assertCode(t, err, servererrs.TokenExpiredError)
}

func TestTokenMalformed(t *testing.T) {
	_, err := GetClaimFromToken("not-a-jwt", testSecret)
	require.Error(t, err)
	assertCode(t, err, servererrs.TokenMalformedError)
}

func assertCode(t *testing.T, err error, code int) {
	t.Helper()
	codeErr, ok := errs.Unwrap(err).(errs.CodeError)
	require.True(t, ok, "want coded error, got %v", err)
	assert.Equal(t, code, codeErr.Code())
}
