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

//go:build linux

package proxy

import (
	"github.com/zstdproxy/zstdproxy/internal/uring"
	"github.com/zstdproxy/zstdproxy/logger"
)

func detectCapabilities() capabilities {
	probe, err := uring.Probe()
	if err != nil {
		logger.Debugf("io_uring probe failed, disabling ring backend: %v", err)
		return capabilities{}
	}

	return capabilities{
		ringSupported:      probe.BaseIOSupported,
		fixedBufsSupported: probe.FixedBuffersSupported,
		zeroCopySupported:  probe.ZeroCopySupported,
	}
}
