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

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/plumeim/plume-im-server/internal/msgdispatch"
	"github.com/plumeim/plume-im-server/pkg/common/cmd"
	"github.com/plumeim/plume-im-server/pkg/common/config"
)

func main() {
	rootCmd := cmd.NewRootCmd("plume-msgdispatch")
	rootCmd.Command.RunE = func(c *cobra.Command, args []string) error {
		folder, err := cmd.ConfigFolderPath(c)
		if err != nil {
			return err
		}
		var (
			conf    msgdispatch.Config
			logConf config.Log
		)
		for fileName, target := range map[string]any{
			config.LogFileName:         &logConf,
			config.ShareFileName:       &conf.Share,
			config.DiscoveryFileName:   &conf.Discovery,
			config.KafkaFileName:       &conf.Kafka,
			config.MongoFileName:       &conf.Mongo,
			config.RedisFileName:       &conf.Redis,
			config.MsgDispatchFileName: &conf.MsgDispatch,
		} {
			if err := config.Load(folder, fileName, target); err != nil {
				return err
			}
		}
		if err := rootCmd.InitLog(&logConf); err != nil {
			return err
		}
		return msgdispatch.Start(context.Background(), &conf)
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
