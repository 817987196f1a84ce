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

package config

import (
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/openimsdk/tools/errs"
	"github.com/spf13/viper"
)

const (
	ShareFileName       = "share.yml"
	LogFileName         = "log.yml"
	MongoFileName       = "mongodb.yml"
	RedisFileName       = "redis.yml"
	KafkaFileName       = "kafka.yml"
	DiscoveryFileName   = "discovery.yml"
	APIFileName         = "plume-api.yml"
	ChatRPCFileName     = "plume-chat-rpc.yml"
	MsgGatewayFileName  = "plume-msggateway.yml"
	MsgDispatchFileName = "plume-msgdispatch.yml"
)

// EnvPrefix turns a config file name into its environment-variable prefix:
// plume-api.yml -> PLUMEENV_PLUME_API.
func EnvPrefix(fileName string) string {
	prefix := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	prefix = strings.ReplaceAll(prefix, "-", "_")
	return "PLUMEENV_" + strings.ToUpper(prefix)
}

// Load reads one YAML file from folder into config, with environment
// variables overriding file values.
func Load(folder string, fileName string, config any) error {
	path := filepath.Join(folder, fileName)
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix(fileName))
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := v.ReadInConfig(); err != nil {
		return errs.WrapMsg(err, "failed to read config file", "path", path)
	}
	if err := v.Unmarshal(config, func(config *mapstructure.DecoderConfig) {
		config.TagName = "mapstructure"
	}); err != nil {
		return errs.WrapMsg(err, "failed to unmarshal config", "path", path)
	}
	return nil
}
