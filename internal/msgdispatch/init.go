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

// Package msgdispatch is the stateful consumer of the queue topic: it
// assigns per-recipient sequence numbers, writes history, keeps the
// membership cache honest and fans messages out to every live gateway.
package msgdispatch

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openimsdk/tools/db/mongoutil"
	"github.com/openimsdk/tools/db/redisutil"
	"github.com/openimsdk/tools/log"
	"github.com/robfig/cron/v3"

	"github.com/plumeim/plume-im-server/pkg/common/config"
	"github.com/plumeim/plume-im-server/pkg/common/discovery"
	"github.com/plumeim/plume-im-server/pkg/common/kafka"
	"github.com/plumeim/plume-im-server/pkg/common/storage/cache/redis"
	"github.com/plumeim/plume-im-server/pkg/common/storage/controller"
	"github.com/plumeim/plume-im-server/pkg/common/storage/database/mgo"
	"github.com/plumeim/plume-im-server/pkg/protocol"
)

const (
	defaultRetainDays    = 30
	defaultCleanCronSpec = "0 2 * * *"
)

type Config struct {
	MsgDispatch config.MsgDispatch
	Kafka       config.Kafka
	Mongo       config.Mongo
	Redis       config.Redis
	Share       config.Share
	Discovery   config.Discovery
}

// Start runs the dispatcher until a shutdown signal. It seeds the sequence
// cache from durable snapshots first, so assigned seqs never move backward
// after a cold restart.
func Start(ctx context.Context, conf *Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rdb, err := redisutil.NewRedisClient(ctx, conf.Redis.Build())
	if err != nil {
		return err
	}
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
	seqStore, err := mgo.NewSeqMongo(mgocli.GetDB())
	if err != nil {
		return err
	}

	registry, err := discovery.NewConsulRegistry(conf.Discovery.Consul.Build())
	if err != nil {
		return err
	}
	defer registry.Close()
	groupConn, err := registry.GetConn(ctx, conf.Share.RpcRegisterName.Group)
	if err != nil {
		return err
	}

	db := controller.NewDispatchDatabase(
		redis.NewSeqCacheRedis(rdb, conf.Redis.GetSeqStep()),
		redis.NewGroupMemberCacheRedis(rdb),
		msgStore,
		inboxStore,
		seqStore,
		protocol.NewGroupServiceClient(groupConn),
		conf.Redis.GetSeqStep(),
	)
	if err := db.LoadSeq(ctx); err != nil {
		return err
	}

	pusher := NewPusher(registry, conf.Share.RpcRegisterName.MsgGateway, conf.Discovery.Consul.GetWatchInterval(), &conf.MsgDispatch.RPC)
	go pusher.Watch(ctx)

	cleaner := cron.New()
	if _, err := cleaner.AddFunc(cleanCronSpec(&conf.MsgDispatch), func() {
		cleanCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		before := time.Now().AddDate(0, 0, -retainDays(&conf.MsgDispatch))
		deleted, err := db.CleanExpiredInbox(cleanCtx, before, conf.MsgDispatch.CleanExceptTypes)
		if err != nil {
			log.ZError(cleanCtx, "inbox clean failed", err, "before", before)
			return
		}
		log.ZInfo(cleanCtx, "inbox clean finished", "before", before, "deleted", deleted)
	}); err != nil {
		return err
	}
	cleaner.Start()
	defer cleaner.Stop()

	consumerGroup, err := kafka.NewMConsumerGroup(conf.Kafka.Build(), conf.Kafka.GroupID, []string{conf.Kafka.Topic}, true)
	if err != nil {
		return err
	}
	defer consumerGroup.Close()

	handler := newDispatchHandler(db, pusher)
	done := make(chan struct{})
	go func() {
		consumerGroup.RegisterHandleAndConsumer(ctx, handler)
		close(done)
	}()
	log.ZInfo(ctx, "dispatcher started", "topic", conf.Kafka.Topic, "groupID", conf.Kafka.GroupID)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM, syscall.SIGINT)
	select {
	case <-ctx.Done():
	case sig := <-sigs:
		log.ZInfo(ctx, "shutdown signal received", "signal", sig.String())
		cancel()
	}
	<-done
	return nil
}

func retainDays(conf *config.MsgDispatch) int {
	if conf.RetainDays <= 0 {
		return defaultRetainDays
	}
	return conf.RetainDays
}

func cleanCronSpec(conf *config.MsgDispatch) string {
	if conf.CleanCronSpec == "" {
		return defaultCleanCronSpec
	}
	return conf.CleanCronSpec
}
