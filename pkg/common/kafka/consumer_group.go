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
	"context"
	"errors"

	"github.com/IBM/sarama"
	"github.com/openimsdk/tools/errs"
	"github.com/openimsdk/tools/log"
)

// MConsumerGroup joins one consumer group on one topic and hands records to a
// sarama.ConsumerGroupHandler. Offsets are committed asynchronously by
// sarama's auto-commit after the handler marks each record.
type MConsumerGroup struct {
	sarama.ConsumerGroup
	groupID string
	topics  []string
}

func NewMConsumerGroup(conf *Config, groupID string, topics []string, fromOldest bool) (*MConsumerGroup, error) {
	kfk := sarama.NewConfig()
	if err := conf.apply(kfk); err != nil {
		return nil, err
	}
	kfk.Consumer.Return.Errors = false
	kfk.Consumer.Offsets.AutoCommit.Enable = true
	if fromOldest {
		kfk.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		kfk.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cg, err := sarama.NewConsumerGroup(conf.Addr, groupID, kfk)
	if err != nil {
		return nil, errs.WrapMsg(err, "new consumer group failed", "groupID", groupID, "addr", conf.Addr)
	}
	return &MConsumerGroup{
		ConsumerGroup: cg,
		groupID:       groupID,
		topics:        topics,
	}, nil
}

// RegisterHandleAndConsumer blocks consuming until ctx is cancelled,
// re-joining the group after each rebalance.
func (mc *MConsumerGroup) RegisterHandleAndConsumer(ctx context.Context, handler sarama.ConsumerGroupHandler) {
	for {
		err := mc.ConsumerGroup.Consume(ctx, mc.topics, handler)
		if errors.Is(err, sarama.ErrClosedConsumerGroup) {
			return
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		if err != nil {
			log.ZWarn(ctx, "consume occurred error, re-joining group", err,
				"topics", mc.topics, "groupID", mc.groupID)
		}
	}
}

func (mc *MConsumerGroup) Close() error {
	return mc.ConsumerGroup.Close()
}
