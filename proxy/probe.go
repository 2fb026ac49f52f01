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

package proxy

import "sync"

// capabilities is the one-time, idempotent, one-way-downgrade result of
// probing the running kernel for io_uring opcode support, mirroring
// zstd_proxy_uring_options's `static bool configured` guard.
type capabilities struct {
	ringSupported      bool
	zeroCopySupported  bool
	fixedBufsSupported bool
}

var (
	probeOnce sync.Once
	probed    capabilities
)

func probeCapabilities() capabilities {
	probeOnce.Do(func() {
		probed = detectCapabilities()
	})
	return probed
}

// Downgrade probes io_uring capabilities once per process and applies the
// one-way downgrade to o, matching zstd_proxy_uring_options.
func Downgrade(o *Options) {
	probeCapabilities().downgrade(o)
}

// downgrade applies the probed capabilities to o, one-way: a feature the
// kernel doesn't support is turned off and never back on.
func (c capabilities) downgrade(o *Options) {
	if !o.Ring.Enabled {
		return
	}
	if !c.ringSupported {
		o.Ring.Enabled = false
		ringDowngradedTotal.Inc()
		return
	}
	if !c.fixedBufsSupported {
		o.Ring.FixedBuffers = false
	}
	if !c.zeroCopySupported {
		o.Ring.ZeroCopy = false
	}
	// PrepSendZC addresses buffers by their registered index, so zero-copy
	// sends are only meaningful once the buffer arena is actually registered.
	if !o.Ring.FixedBuffers {
		o.Ring.ZeroCopy = false
	}
}
