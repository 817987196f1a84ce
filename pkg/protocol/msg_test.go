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

package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsReceipt(t *testing.T) {
	assert.True(t, MsgTypeGroupDismissOrExitReceived.IsReceipt())
	assert.True(t, MsgTypeGroupInvitationReceived.IsReceipt())
	assert.True(t, MsgTypeFriendshipReceived.IsReceipt())

	assert.False(t, MsgTypeSingleMsg.IsReceipt())
	assert.False(t, MsgTypeGroupMsg.IsReceipt())
	assert.False(t, MsgTypeRead.IsReceipt())
	assert.False(t, MsgTypeUnknown.IsReceipt())
}

func TestPlatformIDString(t *testing.T) {
	assert.Equal(t, "Desktop", PlatformDesktop.String())
	assert.Equal(t, "Mobile", PlatformMobile.String())
	assert.Equal(t, "Web", PlatformWeb.String())
	assert.Equal(t, "Unknown", PlatformUnknown.String())
	assert.Equal(t, "Unknown", PlatformID(42).String())
}

func TestJSONCodecRoundTrip(t *testing.T) {
	codec := jsonCodec{}
	assert.Equal(t, CodecName, codec.Name())

	in := &Msg{
		ServerID:   "srv-1",
		LocalID:    "local-1",
		SendID:     "u100",
		ReceiverID: "u200",
		GroupID:    "g1",
		PlatformID: PlatformMobile,
		MsgType:    MsgTypeGroupMsg,
		Content:    []byte(`{"text":"hello"}`),
		SendTime:   1724668800000,
		Seq:        42,
	}
	data, err := codec.Marshal(in)
	require.NoError(t, err)

	out := &Msg{}
	require.NoError(t, codec.Unmarshal(data, out))
	assert.Equal(t, in, out)
}
