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
	"encoding/json"

	"github.com/IBM/sarama"
	"github.com/openimsdk/tools/errs"
	"github.com/openimsdk/tools/mcontext"
)

const mqOperationIDHeader = "operationID"

// Producer publishes JSON records with acks=all and idempotence enabled; a
// failed publish is retried by sarama up to the configured bound and then
// surfaced to the caller.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

func NewProducer(conf *Config, topic string) (*Producer, error) {
	kfk := sarama.NewConfig()
	if err := conf.apply(kfk); err != nil {
		return nil, err
	}
	kfk.Producer.RequiredAcks = conf.producerAck()
	kfk.Producer.Compression = conf.compress()
	kfk.Producer.Return.Successes = true
	kfk.Producer.Return.Errors = true
	kfk.Producer.Idempotent = true
	kfk.Producer.Retry.Max = conf.ProducerRetry
	if kfk.Producer.Retry.Max <= 0 {
		kfk.Producer.Retry.Max = 10
	}
	// idempotent producers require a single in-flight request
	kfk.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(conf.Addr, kfk)
	if err != nil {
		return nil, errs.WrapMsg(err, "new sync producer failed", "addr", conf.Addr)
	}
	return &Producer{producer: producer, topic: topic}, nil
}

// SendJSON marshals v and publishes it without a record key, so partition
// assignment is random. The operation id travels in a record header.
func (p *Producer) SendJSON(ctx context.Context, v any) (partition int32, offset int64, err error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return 0, 0, errs.WrapMsg(err, "marshal queue record failed")
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{{
			Key:   []byte(mqOperationIDHeader),
			Value: []byte(mcontext.GetOperationID(ctx)),
		}},
	}
	partition, offset, err = p.producer.SendMessage(msg)
	if err != nil {
		return 0, 0, errs.WrapMsg(err, "send to kafka failed", "topic", p.topic)
	}
	return partition, offset, nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}

// GetContextWithMQHeader restores the operation id carried in record headers
// into a fresh context on the consumer side.
func GetContextWithMQHeader(headers []*sarama.RecordHeader) context.Context {
	ctx := context.Background()
	for _, header := range headers {
		if header == nil {
			continue
		}
		if string(header.Key) == mqOperationIDHeader {
			return mcontext.SetOperationID(ctx, string(header.Value))
		}
	}
	return ctx
}
