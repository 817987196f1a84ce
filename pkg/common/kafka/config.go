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

// Package kafka wraps sarama with the producer/consumer-group settings the
// message plane relies on: acks=all idempotent publishing with bounded retry,
// and one in-flight record per partition on the consumer side.
package kafka

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/IBM/sarama"
	"github.com/openimsdk/tools/errs"
)

type TLSConfig struct {
	EnableTLS          bool
	CACrt              string
	ClientCrt          string
	ClientKey          string
	ClientKeyPwd       string
	InsecureSkipVerify bool
}

type Config struct {
	Username      string
	Password      string
	ProducerAck   string
	CompressType  string
	Addr          []string
	ProducerRetry int
	TLS           TLSConfig
}

func (c *Config) producerAck() sarama.RequiredAcks {
	switch c.ProducerAck {
	case "no_response":
		return sarama.NoResponse
	case "wait_for_local":
		return sarama.WaitForLocal
	default:
		return sarama.WaitForAll
	}
}

func (c *Config) compress() sarama.CompressionCodec {
	switch c.CompressType {
	case "gzip":
		return sarama.CompressionGZIP
	case "snappy":
		return sarama.CompressionSnappy
	case "lz4":
		return sarama.CompressionLZ4
	case "zstd":
		return sarama.CompressionZSTD
	default:
		return sarama.CompressionNone
	}
}

func (c *Config) apply(conf *sarama.Config) error {
	conf.Version = sarama.V2_0_0_0
	if c.Username != "" || c.Password != "" {
		conf.Net.SASL.Enable = true
		conf.Net.SASL.User = c.Username
		conf.Net.SASL.Password = c.Password
	}
	if c.TLS.EnableTLS {
		tlsConfig, err := c.buildTLS()
		if err != nil {
			return err
		}
		conf.Net.TLS.Enable = true
		conf.Net.TLS.Config = tlsConfig
	}
	return nil
}

func (c *Config) buildTLS() (*tls.Config, error) {
	tlsConfig := &tls.Config{InsecureSkipVerify: c.TLS.InsecureSkipVerify}
	if c.TLS.CACrt != "" {
		caCert, err := os.ReadFile(c.TLS.CACrt)
		if err != nil {
			return nil, errs.WrapMsg(err, "read ca cert failed", "path", c.TLS.CACrt)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, errs.New("append ca cert failed", "path", c.TLS.CACrt)
		}
		tlsConfig.RootCAs = pool
	}
	if c.TLS.ClientCrt != "" && c.TLS.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(c.TLS.ClientCrt, c.TLS.ClientKey)
		if err != nil {
			return nil, errs.WrapMsg(err, "load client cert failed")
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	return tlsConfig, nil
}
