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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestBinaryFrameRoundTrip(t *testing.T) {
	payload := []byte(`{"msg":{"sendId":"u100"}}`)
	frame := encodeBinaryFrame(payload)
	require.Len(t, frame, binaryLenSize+len(payload))

	decoded, err := decodeBinaryFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
}

func TestBinaryFrameEmptyPayload(t *testing.T) {
	frame := encodeBinaryFrame(nil)
	require.Len(t, frame, binaryLenSize)

	decoded, err := decodeBinaryFrame(frame)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestDecodeBinaryFrameTooShort(t *testing.T) {
	_, err := decodeBinaryFrame(nil)
	assert.Error(t, err)
	_, err = decodeBinaryFrame([]byte{0, 0, 1})
	assert.Error(t, err)
}

func TestDecodeBinaryFrameLengthMismatch(t *testing.T) {
	frame := encodeBinaryFrame([]byte("abc"))

	// truncated payload
	_, err := decodeBinaryFrame(frame[:len(frame)-1])
	assert.Error(t, err)

	// trailing garbage
	_, err = decodeBinaryFrame(append(frame, 'x'))
	assert.Error(t, err)
}

func TestDecodeBinaryFrameOverMax(t *testing.T) {
	frame := make([]byte, binaryLenSize)
	binary.BigEndian.PutUint32(frame, maxBinaryPayload+1)
	_, err := decodeBinaryFrame(frame)
	assert.Error(t, err)
}

func TestBinaryFrameRapid(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		payload := rapid.SliceOfN(rapid.Byte(), 0, 4096).Draw(t, "payload")
		decoded, err := decodeBinaryFrame(encodeBinaryFrame(payload))
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if string(decoded) != string(payload) {
			t.Fatalf("payload changed: %q != %q", decoded, payload)
		}
	})
}
