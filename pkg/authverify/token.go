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

// Package authverify verifies the opaque bearer tokens issued by the auth
// collaborator. The gateway and the front door only check signature, expiry
// and the embedded user/platform claims; issuance is out of scope.
package authverify

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/openimsdk/tools/errs"

	"github.com/plumeim/plume-im-server/pkg/protocol"
	"github.com/plumeim/plume-im-server/pkg/servererrs"
)

type Claims struct {
	UserID     string              `json:"userID"`
	PlatformID protocol.PlatformID `json:"platformID"`
	jwt.RegisteredClaims
}

// BuildClaims is used by tests and by the auth collaborator's token shape;
// expire is in days.
func BuildClaims(userID string, platformID protocol.PlatformID, expire int64) Claims {
	now := time.Now()
	return Claims{
		UserID:     userID,
		PlatformID: platformID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expire) * 24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-time.Minute)),
		},
	}
}

// CreateToken signs claims with the shared HS256 secret.
func CreateToken(userID string, platformID protocol.PlatformID, secret string, expire int64) (string, error) {
	claims := BuildClaims(userID, platformID, expire)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", errs.WrapMsg(err, "sign token failed")
	}
	return tokenString, nil
}

func secretFunc(secret string) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		return []byte(secret), nil
	}
}

// GetClaimFromToken parses and validates tokenString, mapping jwt validation
// failures onto the coded token errors the callers return to clients.
func GetClaimFromToken(tokenString string, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, secretFunc(secret))
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) {
			switch {
			case ve.Errors&jwt.ValidationErrorMalformed != 0:
				return nil, servererrs.ErrTokenMalformed.Wrap()
			case ve.Errors&jwt.ValidationErrorExpired != 0:
				return nil, servererrs.ErrTokenExpired.Wrap()
			case ve.Errors&jwt.ValidationErrorNotValidYet != 0:
				return nil, servererrs.ErrTokenNotValidYet.Wrap()
			default:
				return nil, servererrs.ErrTokenInvalid.Wrap()
			}
		}
		return nil, servererrs.ErrTokenInvalid.Wrap()
	}
	if !token.Valid {
		return nil, servererrs.ErrTokenInvalid.Wrap()
	}
	return claims, nil
}
