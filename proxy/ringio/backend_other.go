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

//go:build !linux

package ringio

import (
	"context"
	"sync/atomic"

	"github.com/zstdproxy/zstdproxy/proxy/transform"
)

// Backend is a non-functional stand-in on platforms without io_uring. The
// capability probe in the proxy package always reports Ring.Enabled=false
// on these platforms, so Run is not expected to be called; it exists so
// the package compiles uniformly across GOOS.
type Backend struct {
	RecvFD     int
	SendFD     int
	BufferSize int
	Depth      int

	FixedBuffers bool
	ZeroCopy     bool

	Transform transform.Func
	Stop      *atomic.Bool
}

func (b *Backend) Run(ctx context.Context, prefix []byte) error {
	return ErrUnsupported
}
