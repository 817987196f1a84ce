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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, folder, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(folder, name), []byte(content), 0o644))
}

func TestEnvPrefix(t *testing.T) {
	assert.Equal(t, "PLUMEENV_PLUME_API", EnvPrefix(APIFileName))
	assert.Equal(t, "PLUMEENV_SHARE", EnvPrefix(ShareFileName))
	assert.Equal(t, "PLUMEENV_PLUME_MSGDISPATCH", EnvPrefix(MsgDispatchFileName))
}

func TestLoad(t *testing.T) {
	folder := t.TempDir()
	writeConfigFile(t, folder, RedisFileName, `
address:
  - 127.0.0.1:6379
username: ""
password: secret
clusterMode: false
seqStep: 1000
`)
	var conf Redis
	require.NoError(t, Load(folder, RedisFileName, &conf))
	assert.Equal(t, []string{"127.0.0.1:6379"}, conf.Address)
	assert.Equal(t, "secret", conf.Password)
	assert.False(t, conf.ClusterMode)
	assert.Equal(t, int64(1000), conf.GetSeqStep())
}

func TestLoadNested(t *testing.T) {
	folder := t.TempDir()
	writeConfigFile(t, folder, ShareFileName, `
secret: plume-secret
tokenExpireDays: 90
rpcRegisterName:
  chat: plume-chat-rpc
  msgGateway: plume-msggateway
  group: plume-group-rpc
`)
	var conf Share
	require.NoError(t, Load(folder, ShareFileName, &conf))
	assert.Equal(t, "plume-secret", conf.Secret)
	assert.Equal(t, int64(90), conf.TokenExpireDays)
	assert.Equal(t, "plume-chat-rpc", conf.RpcRegisterName.Chat)
	assert.Equal(t, "plume-msggateway", conf.RpcRegisterName.MsgGateway)
}

func TestLoadEnvOverride(t *testing.T) {
	folder := t.TempDir()
	writeConfigFile(t, folder, RedisFileName, `
address:
  - 127.0.0.1:6379
password: from-file
`)
	t.Setenv("PLUMEENV_REDIS_PASSWORD", "from-env")

	var conf Redis
	require.NoError(t, Load(folder, RedisFileName, &conf))
	assert.Equal(t, "from-env", conf.Password)
}

func TestLoadMissingFile(t *testing.T) {
	var conf Redis
	assert.Error(t, Load(t.TempDir(), RedisFileName, &conf))
}
