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

// Package config defines the configuration structs for every plume service.
// Values come from hierarchical YAML files (share.yml plus one file per
// service) with environment-variable override; see load.go.
package config

import (
	"time"

	"github.com/openimsdk/tools/db/mongoutil"
	"github.com/openimsdk/tools/db/redisutil"

	"github.com/plumeim/plume-im-server/pkg/common/discovery"
	"github.com/plumeim/plume-im-server/pkg/common/kafka"
)

type Log struct {
	StorageLocation     string `mapstructure:"storageLocation"`
	RotationTime        uint   `mapstructure:"rotationTime"`
	RemainRotationCount uint   `mapstructure:"remainRotationCount"`
	RemainLogLevel      int    `mapstructure:"remainLogLevel"`
	IsStdout            bool   `mapstructure:"isStdout"`
	IsJson              bool   `mapstructure:"isJson"`
	IsSimplify          bool   `mapstructure:"isSimplify"`
	WithStack           bool   `mapstructure:"withStack"`
}

type Mongo struct {
	URI         string   `mapstructure:"uri"`
	Address     []string `mapstructure:"address"`
	Database    string   `mapstructure:"database"`
	Username    string   `mapstructure:"username"`
	Password    string   `mapstructure:"password"`
	AuthSource  string   `mapstructure:"authSource"`
	MaxPoolSize int      `mapstructure:"maxPoolSize"`
	MaxRetry    int      `mapstructure:"maxRetry"`
}

func (m *Mongo) Build() *mongoutil.Config {
	return &mongoutil.Config{
		Uri:         m.URI,
		Address:     m.Address,
		Database:    m.Database,
		Username:    m.Username,
		Password:    m.Password,
		AuthSource:  m.AuthSource,
		MaxPoolSize: m.MaxPoolSize,
		MaxRetry:    m.MaxRetry,
	}
}

type Redis struct {
	Address     []string `mapstructure:"address"`
	Username    string   `mapstructure:"username"`
	Password    string   `mapstructure:"password"`
	ClusterMode bool     `mapstructure:"clusterMode"`
	DB          int      `mapstructure:"storage"`
	MaxRetry    int      `mapstructure:"maxRetry"`
	// MaxConnections bounds the client pool; the default is 20.
	MaxConnections int `mapstructure:"maxConnections"`
	// SeqStep is the block size S by which a user's max seq grows on
	// overflow; it controls how often the snapshot store is written.
	SeqStep int64 `mapstructure:"seqStep"`
}

func (r *Redis) Build() *redisutil.Config {
	return &redisutil.Config{
		ClusterMode: r.ClusterMode,
		Address:     r.Address,
		Username:    r.Username,
		Password:    r.Password,
		DB:          r.DB,
		MaxRetry:    r.MaxRetry,
		PoolSize:    r.MaxConnections,
	}
}

func (r *Redis) GetSeqStep() int64 {
	if r.SeqStep <= 0 {
		return 5000
	}
	return r.SeqStep
}

type TLSConfig struct {
	EnableTLS          bool   `mapstructure:"enableTLS"`
	CACrt              string `mapstructure:"caCrt"`
	ClientCrt          string `mapstructure:"clientCrt"`
	ClientKey          string `mapstructure:"clientKey"`
	ClientKeyPwd       string `mapstructure:"clientKeyPwd"`
	InsecureSkipVerify bool   `mapstructure:"insecureSkipVerify"`
}

type Kafka struct {
	Username      string    `mapstructure:"username"`
	Password      string    `mapstructure:"password"`
	ProducerAck   string    `mapstructure:"producerAck"`
	CompressType  string    `mapstructure:"compressType"`
	Address       []string  `mapstructure:"address"`
	Topic         string    `mapstructure:"topic"`
	GroupID       string    `mapstructure:"groupID"`
	ProducerRetry int       `mapstructure:"producerRetry"`
	Tls           TLSConfig `mapstructure:"tls"`
}

func (k *Kafka) Build() *kafka.Config {
	return &kafka.Config{
		Username:      k.Username,
		Password:      k.Password,
		ProducerAck:   k.ProducerAck,
		CompressType:  k.CompressType,
		Addr:          k.Address,
		ProducerRetry: k.ProducerRetry,
		TLS: kafka.TLSConfig{
			EnableTLS:          k.Tls.EnableTLS,
			CACrt:              k.Tls.CACrt,
			ClientCrt:          k.Tls.ClientCrt,
			ClientKey:          k.Tls.ClientKey,
			ClientKeyPwd:       k.Tls.ClientKeyPwd,
			InsecureSkipVerify: k.Tls.InsecureSkipVerify,
		},
	}
}

// Consul is the registry endpoint (C4). Scheme is http or https.
type Consul struct {
	Address string `mapstructure:"address"`
	Scheme  string `mapstructure:"scheme"`
	Token   string `mapstructure:"token"`
	// WatchInterval is the discovery poll period in seconds; default 10.
	WatchInterval int `mapstructure:"watchInterval"`
	// DeregisterCriticalAfter removes a service whose check has been
	// critical for this long, e.g. "1m".
	DeregisterCriticalAfter string `mapstructure:"deregisterCriticalAfter"`
	CheckInterval           string `mapstructure:"checkInterval"`
	CheckTimeout            string `mapstructure:"checkTimeout"`
}

func (c *Consul) GetWatchInterval() time.Duration {
	if c.WatchInterval <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.WatchInterval) * time.Second
}

func (c *Consul) Build() discovery.ConsulConfig {
	return discovery.ConsulConfig{
		Address:                 c.Address,
		Scheme:                  c.Scheme,
		Token:                   c.Token,
		WatchInterval:           c.GetWatchInterval(),
		CheckInterval:           c.CheckInterval,
		CheckTimeout:            c.CheckTimeout,
		DeregisterCriticalAfter: c.DeregisterCriticalAfter,
	}
}

// Discovery selects the registry backend (discovery.yml); consul is the only
// backend today.
type Discovery struct {
	Consul Consul `mapstructure:"consul"`
}

// RpcRegisterName holds the service names used for registration and lookup.
type RpcRegisterName struct {
	Chat       string `mapstructure:"chat"`
	MsgGateway string `mapstructure:"msgGateway"`
	Group      string `mapstructure:"group"`
	User       string `mapstructure:"user"`
	Friend     string `mapstructure:"friend"`
}

// Share is the configuration common to every service (share.yml).
type Share struct {
	Secret          string          `mapstructure:"secret"`
	TokenExpireDays int64           `mapstructure:"tokenExpireDays"`
	RpcRegisterName RpcRegisterName `mapstructure:"rpcRegisterName"`
}

type RPC struct {
	RegisterIP string `mapstructure:"registerIP"`
	ListenIP   string `mapstructure:"listenIP"`
	Port       int    `mapstructure:"port"`
	// ConnectTimeout/RequestTimeout in seconds; defaults 5/30.
	ConnectTimeout int `mapstructure:"connectTimeout"`
	RequestTimeout int `mapstructure:"requestTimeout"`
}

func (r *RPC) GetConnectTimeout() time.Duration {
	if r.ConnectTimeout <= 0 {
		return 5 * time.Second
	}
	return time.Duration(r.ConnectTimeout) * time.Second
}

func (r *RPC) GetRequestTimeout() time.Duration {
	if r.RequestTimeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(r.RequestTimeout) * time.Second
}

type MsgGateway struct {
	RPC              RPC      `mapstructure:"rpc"`
	ListenIP         string   `mapstructure:"listenIP"`
	Port             int      `mapstructure:"port"`
	MaxConnNum       int64    `mapstructure:"maxConnNum"`
	Tags             []string `mapstructure:"tags"`
	WriteBufferSize  int      `mapstructure:"writeBufferSize"`
	HandshakeTimeout int      `mapstructure:"handshakeTimeout"`
}

type ChatRPC struct {
	RPC  RPC      `mapstructure:"rpc"`
	Tags []string `mapstructure:"tags"`
}

type MsgDispatch struct {
	// RetainDays is how long inbox rows are kept before the cleaner removes
	// them; types in CleanExceptTypes are never removed.
	RetainDays       int     `mapstructure:"retainDays"`
	CleanExceptTypes []int32 `mapstructure:"cleanExceptTypes"`
	CleanCronSpec    string  `mapstructure:"cleanCronSpec"`
	// RPC bounds the gateway fan-out calls; only the timeout fields apply,
	// the dispatcher exposes no listener.
	RPC RPC `mapstructure:"rpc"`
}

type APIRoute struct {
	Prefix      string `mapstructure:"prefix"`
	ServiceKind string `mapstructure:"serviceKind"`
	RequireAuth bool   `mapstructure:"requireAuth"`
	Rewrite     string `mapstructure:"rewrite"`
}

type API struct {
	ListenIP         string     `mapstructure:"listenIP"`
	Port             int        `mapstructure:"port"`
	WhiteIPList      []string   `mapstructure:"whiteIPList"`
	WhitePathList    []string   `mapstructure:"whitePathList"`
	Routes           []APIRoute `mapstructure:"routes"`
	TokenHeader      string     `mapstructure:"tokenHeader"`
	TokenPrefix      string     `mapstructure:"tokenPrefix"`
	CompressionLevel int        `mapstructure:"compressionLevel"`
}
