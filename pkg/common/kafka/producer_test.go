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

package kafka

import (
	"testing"

	"github.com/IBM/sarama"
	"github.com/openimsdk/tools/mcontext"
	"github.com/stretchr/testify/assert"
)

func TestGetContextWithMQHeader(t *testing.T) {
	headers := []*sarama.RecordHeader{
		{Key: []byte("other"), Value: []byte("x")},
		{Key: []byte(mqOperationIDHeader), Value: []byte("op-123")},
	}
	ctx := GetContextWithMQHeader(headers)
	assert.Equal(t, "op-123", mcontext.GetOperationID(ctx))
}

func TestGetContextWithMQHeaderMissing(t *testing.T) {
	ctx := GetContextWithMQHeader(nil)
	assert.Empty(t, mcontext.GetOperationID(ctx))

	ctx = GetContextWithMQHeader([]*sarama.RecordHeader{nil, {Key: []byte("other")}})
	assert.Empty(t, mcontext.GetOperationID(ctx))
}
