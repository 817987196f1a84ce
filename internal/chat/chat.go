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

// Package chat implements the ingest RPC: it stamps server ids and send
// times onto client envelopes and publishes them to the queue topic, and
// serves the inbox read model clients use to resync.
package chat

import (
	"context"

	"google.golang.org/grpc"

	"github.com/plumeim/plume-im-server/pkg/common/config"
	"github.com/plumeim/plume-im-server/pkg/common/discovery"
	"github.com/plumeim/plume-im-server/pkg/common/kafka"
	"github.com/plumeim/plume-im-server/pkg/common/startrpc"
	"github.com/plumeim/plume-im-server/pkg/common/storage/controller"
	"github.com/plumeim/plume-im-server/pkg/common/storage/database/mgo"
	"github.com/plumeim/plume-im-server/pkg/protocol"

	"github.com/openimsdk/tools/db/mongoutil"
)

type Config struct {
	ChatRPC   config.ChatRPC
	Kafka     config.Kafka
	Mongo     config.Mongo
	Share     config.Share
	Discovery config.Discovery
}

type chatServer struct {
	db controller.ChatDatabase
}

// Start wires the ingest service and serves it until shutdown.
func Start(ctx context.Context, conf *Config) error {
	producer, err := kafka.NewProducer(conf.Kafka.Build(), conf.Kafka.Topic)
	if err != nil {
		return err
	}
	defer producer.Close()

	mgocli, err := mongoutil.NewMongoDB(ctx, conf.Mongo.Build())
	if err != nil {
		return err
	}
	msgStore, err := mgo.NewMsgMongo(mgocli.GetDB())
	if err != nil {
		return err
	}
	inboxStore, err := mgo.NewInboxMongo(mgocli.GetDB())
	if err != nil {
		return err
	}

	srv := &chatServer{
		db: controller.NewChatDatabase(producer, msgStore, inboxStore),
	}
	return startrpc.Start(ctx, &conf.Discovery, &conf.ChatRPC.RPC,
		conf.Share.RpcRegisterName.Chat, conf.ChatRPC.Tags,
		func(ctx context.Context, registry discovery.SvcDiscoveryRegistry, server *grpc.Server) error {
			protocol.RegisterChatServiceServer(server, srv)
			return nil
		})
}
