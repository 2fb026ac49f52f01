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

import (
	"context"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/zstdproxy/zstdproxy/logger"
	"github.com/zstdproxy/zstdproxy/pipeline"
	"github.com/zstdproxy/zstdproxy/proxy/sockopt"
	"github.com/zstdproxy/zstdproxy/proxy/transform"
)

// Run drives one proxied connection to completion, mirroring
// zstd_proxy_run: it spawns the compress (listen -> connect) and
// decompress (connect -> listen) pipelines, waits for both, and reports
// whichever failed first by the outbound-then-inbound precedence rule.
// p.ID is assigned if empty, and p.Options is defaulted and capability-
// downgraded in place before use.
func Run(ctx context.Context, p *Proxy) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	Init(&p.Options)
	Downgrade(&p.Options)
	RecordConnection()

	for _, fd := range []int{p.Listen.FD, p.Connect.FD} {
		if sockopt.IsSocket(fd) {
			if err := sockopt.ClearNonblock(fd); err != nil {
				return newError("clearing O_NONBLOCK on fd %d: %w", fd, err)
			}
		}
	}

	compress, compressCloser, err := buildTransform(p.Options.Zstd.Enabled, p.Options.Zstd.Level, true)
	if err != nil {
		return err
	}
	defer closeQuietly(p.ID, compressCloser)

	decompress, decompressCloser, err := buildTransform(p.Options.Zstd.Enabled, p.Options.Zstd.Level, false)
	if err != nil {
		return err
	}
	defer closeQuietly(p.ID, decompressCloser)

	ring := pipeline.RingConfig{
		Enabled:      p.Options.Ring.Enabled,
		Depth:        p.Options.Ring.Depth,
		ZeroCopy:     p.Options.Ring.ZeroCopy,
		FixedBuffers: p.Options.Ring.FixedBuffers,
	}

	outbound := &pipeline.Pipeline{
		ID: p.ID, Direction: pipeline.DirCompress,
		SourceFD: p.Listen.FD, SourcePrefix: p.Listen.Prefix, SinkFD: p.Connect.FD,
		BufferSize: p.Options.BufferSize, Ring: ring, Transform: compress, Stop: p.Options.Stop,
	}
	inbound := &pipeline.Pipeline{
		ID: p.ID, Direction: pipeline.DirDecompress,
		SourceFD: p.Connect.FD, SourcePrefix: p.Connect.Prefix, SinkFD: p.Listen.FD,
		BufferSize: p.Options.BufferSize, Ring: ring, Transform: decompress, Stop: p.Options.Stop,
	}

	wakeSibling := func() {
		p.Options.Stop.Store(true)
		sockopt.HalfClose(p.Listen.FD)
		sockopt.HalfClose(p.Connect.FD)
	}

	var outboundErr, inboundErr error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		outboundErr = outbound.Run(ctx)
		wakeSibling()
	}()
	go func() {
		defer wg.Done()
		inboundErr = inbound.Run(ctx)
		wakeSibling()
	}()
	wg.Wait()

	result := runResult{outboundErr: outboundErr, inboundErr: inboundErr}

	// Combine via multierror so the precedence-selected pipeline error, if
	// any, is always the first wrapped error — descriptor shutdown failures
	// are appended after it and never take precedence over it. Run shuts
	// both descriptors down but does not close them; the caller owns them.
	var combined *multierror.Error
	if primary := result.primary(); primary != nil {
		combined = multierror.Append(combined, primary)
	}
	if err := sockopt.HalfClose(p.Listen.FD); err != nil {
		combined = multierror.Append(combined, err)
	}
	if err := sockopt.HalfClose(p.Connect.FD); err != nil {
		combined = multierror.Append(combined, err)
	}
	if err := combined.ErrorOrNil(); err != nil {
		logger.Debugf("proxy %s: run finished with error: %v", p.ID, err)
	}
	return combined.ErrorOrNil()
}

func buildTransform(enabled bool, level int, compress bool) (transform.Func, io.Closer, error) {
	if !enabled {
		return transform.Identity, nil, nil
	}
	if compress {
		c, err := transform.NewCompressor(level)
		if err != nil {
			return nil, nil, err
		}
		return c.Encode, c, nil
	}
	d, err := transform.NewDecompressor()
	if err != nil {
		return nil, nil, err
	}
	return d.Decode, d, nil
}

func closeQuietly(id string, c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		logger.Debugf("proxy %s: transform close: %v", id, err)
	}
}
