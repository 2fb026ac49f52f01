// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package controller

import (
	"github.com/zstdproxy/zstdproxy/confengine"
	"github.com/zstdproxy/zstdproxy/logger"
	"github.com/zstdproxy/zstdproxy/proxy"
	"github.com/zstdproxy/zstdproxy/server"
)

// Config is the top-level zstdproxyd configuration: where to listen, where
// to forward, the engine options shared by every accepted connection, the
// logger, and the admin/metrics HTTP server.
type Config struct {
	// Listen is the plaintext-facing address this process accepts
	// connections on.
	Listen string `config:"listen"`

	// Connect is the compressed-facing upstream address each accepted
	// connection is forwarded to.
	Connect string `config:"connect"`

	Proxy  proxy.Options  `config:"proxy"`
	Logger logger.Options `config:"logger"`
	Server server.Config  `config:"server"`
}

func loadConfig(conf *confengine.Config) (Config, error) {
	var cfg Config
	if err := conf.Unpack(&cfg); err != nil {
		return Config{}, err
	}
	proxy.Init(&cfg.Proxy)
	return cfg, nil
}
