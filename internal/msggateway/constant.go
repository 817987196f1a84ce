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

import "time"

const (
	// close codes on the wire; 4001/4002 are in the private-use range
	CloseCodeNormal       = 1000
	CloseCodeKicked       = 4001
	CloseCodeUnauthorized = 4002

	// heartbeat: one ping per interval, read deadline allows one missed pong
	heartbeatInterval = 30 * time.Second
	pongWait          = heartbeatInterval * 2
	writeWait         = 10 * time.Second

	// length-delimited binary frames carry a 4-byte big-endian payload length
	binaryLenSize    = 4
	maxBinaryPayload = 1 << 20

	defaultMaxConnNum       = 100000
	defaultHandshakeTimeout = 10 * time.Second
	defaultWriteBufferSize  = 4096
)
