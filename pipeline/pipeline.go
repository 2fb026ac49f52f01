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

// Package pipeline drives one half-duplex direction of a proxied
// connection: read from a source descriptor, run the bytes through a
// transform, write to a sink descriptor, using whichever I/O backend the
// caller selects. It is deliberately independent of package proxy's
// Options/Descriptor/Proxy types so the two-pipeline orchestration that
// combines their results can live in proxy without an import cycle.
package pipeline

import (
	"context"
	"sync/atomic"

	"github.com/zstdproxy/zstdproxy/logger"
	"github.com/zstdproxy/zstdproxy/proxy/blockingio"
	"github.com/zstdproxy/zstdproxy/proxy/ringio"
	"github.com/zstdproxy/zstdproxy/proxy/transform"
)

// Direction labels which half of a connection a Pipeline drives. It
// doubles as the Prometheus label value recorded for bytes/errors.
type Direction string

const (
	DirCompress   Direction = "compress"
	DirDecompress Direction = "decompress"
)

// RingConfig mirrors proxy.RingOptions; kept as a local type to avoid
// importing package proxy.
type RingConfig struct {
	Enabled      bool
	Depth        int
	ZeroCopy     bool
	FixedBuffers bool
}

// Pipeline owns one direction's source/sink file descriptors, the
// transform that runs between them, and the backend selection and
// cooperative Stop flag shared with the sibling pipeline.
type Pipeline struct {
	ID        string
	Direction Direction

	SourceFD     int
	SourcePrefix []byte
	SinkFD       int

	BufferSize int
	Ring       RingConfig

	Transform transform.Func
	Stop      *atomic.Bool
}

// Run selects blockingio.Backend or ringio.Backend per p.Ring.Enabled and
// drives bytes from the source fd to the sink fd until EOF, an error, or
// Stop is observed.
func (p *Pipeline) Run(ctx context.Context) error {
	countingTransform := func(ctx context.Context, in, out *transform.Cursor) error {
		before := out.Pos
		err := p.Transform(ctx, in, out)
		recordBytes(p.Direction, out.Pos-before)
		return err
	}

	backendName := "blocking"
	var err error

	if p.Ring.Enabled {
		backendName = "ring"
		b := &ringio.Backend{
			RecvFD:       p.SourceFD,
			SendFD:       p.SinkFD,
			BufferSize:   p.BufferSize,
			Depth:        p.Ring.Depth,
			FixedBuffers: p.Ring.FixedBuffers,
			ZeroCopy:     p.Ring.ZeroCopy,
			Transform:    countingTransform,
			Stop:         p.Stop,
		}
		err = b.Run(ctx, p.SourcePrefix)
	} else {
		b := &blockingio.Backend{
			RecvFD:     p.SourceFD,
			SendFD:     p.SinkFD,
			BufferSize: p.BufferSize,
			Transform:  countingTransform,
			Stop:       p.Stop,
		}
		err = b.Run(ctx, p.SourcePrefix)
	}

	if err != nil {
		logger.Debugf("pipeline %s[%s]: backend=%s error=%v", p.ID, p.Direction, backendName, err)
		recordError(p.Direction, backendName)
	}
	return err
}
