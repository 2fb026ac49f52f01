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

// Package proxy implements the bidirectional compressing stream engine: two
// independent half-duplex pipelines, a compression-capable transform
// adapter, and a choice of two I/O backends.
package proxy

import (
	"sync/atomic"

	"github.com/mitchellh/mapstructure"

	"github.com/zstdproxy/zstdproxy/common"
)

// ZstdOptions mirrors zstd_proxy_zstd_options.
type ZstdOptions struct {
	Enabled bool `config:"enabled" mapstructure:"enabled"`
	Level   int  `config:"level" mapstructure:"level"`
}

// RingOptions mirrors zstd_proxy_io_uring_options.
type RingOptions struct {
	Enabled      bool `config:"enabled" mapstructure:"enabled"`
	Depth        int  `config:"depth" mapstructure:"depth"`
	ZeroCopy     bool `config:"zero_copy" mapstructure:"zero_copy"`
	FixedBuffers bool `config:"fixed_buffers" mapstructure:"fixed_buffers"`
}

// Options mirrors zstd_proxy_options. Stop is a pointer so a host can hold
// a reference and flip it from outside the engine, the Go analogue of the
// original's externally-mutated `bool stop` field.
type Options struct {
	BufferSize int `config:"buffer_size" mapstructure:"buffer_size"`

	Zstd ZstdOptions `config:"zstd" mapstructure:"zstd"`
	Ring RingOptions `config:"ring" mapstructure:"ring"`

	Stop *atomic.Bool `mapstructure:"-"`
}

// Init fills o with the defaults from zstd_proxy_init.
func Init(o *Options) {
	if o.Stop == nil {
		o.Stop = &atomic.Bool{}
	}
	if o.BufferSize == 0 {
		o.BufferSize = common.DefaultBufferSize
	}
	if o.Zstd.Level == 0 {
		o.Zstd.Level = common.DefaultZstdLevel
	}
	if o.Ring.Depth == 0 {
		o.Ring.Depth = common.DefaultRingDepth
	}
}

// DefaultOptions returns an Options value with zstd_proxy_init's defaults:
// compression on at level 1, io_uring on with zero-copy and fixed buffers,
// depth 4, and a 4 MiB buffer.
func DefaultOptions() Options {
	o := Options{
		Zstd: ZstdOptions{Enabled: true},
		Ring: RingOptions{Enabled: true, ZeroCopy: true, FixedBuffers: true},
	}
	Init(&o)
	return o
}

// OptionsFromMap decodes a generic map-based option blob — as a host
// binding across a loosely-typed boundary might hand the engine — into a
// typed Options value, then fills in defaults via Init.
func OptionsFromMap(m map[string]any) (Options, error) {
	var o Options
	if err := mapstructure.Decode(m, &o); err != nil {
		return Options{}, err
	}
	Init(&o)
	return o, nil
}
