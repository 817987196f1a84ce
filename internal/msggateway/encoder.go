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
	"encoding/binary"

	"github.com/plumeim/plume-im-server/pkg/servererrs"
)

// decodeBinaryFrame strips the 4-byte big-endian length prefix of a binary
// frame and returns the JSON payload. The length must match the remaining
// bytes exactly.
func decodeBinaryFrame(frame []byte) ([]byte, error) {
	if len(frame) < binaryLenSize {
		return nil, servererrs.ErrArgs.WrapMsg("binary frame too short", "len", len(frame))
	}
	payloadLen := binary.BigEndian.Uint32(frame[:binaryLenSize])
	if payloadLen > maxBinaryPayload {
		return nil, servererrs.ErrArgs.WrapMsg("binary frame too large", "payloadLen", payloadLen)
	}
	payload := frame[binaryLenSize:]
	if uint32(len(payload)) != payloadLen {
		return nil, servererrs.ErrArgs.WrapMsg("binary frame length mismatch",
			"declared", payloadLen, "actual", len(payload))
	}
	return payload, nil
}

// encodeBinaryFrame prefixes payload with its big-endian length.
func encodeBinaryFrame(payload []byte) []byte {
	frame := make([]byte, binaryLenSize+len(payload))
	binary.BigEndian.PutUint32(frame[:binaryLenSize], uint32(len(payload)))
	copy(frame[binaryLenSize:], payload)
	return frame
}
