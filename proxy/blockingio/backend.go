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

// Package blockingio implements the simple one-buffer-in, one-buffer-out
// backend, ported from zstd-proxy-posix.c: a single recv buffer, a single
// send buffer, and a straightforward blocking recv/transform/send loop.
package blockingio

import (
	"context"
	"sync/atomic"

	"github.com/valyala/bytebufferpool"
	"golang.org/x/sys/unix"

	"github.com/zstdproxy/zstdproxy/proxy/transform"
)

var pool bytebufferpool.Pool

// Backend runs the blocking recv/transform/send loop for one direction of
// one connection.
type Backend struct {
	RecvFD     int
	SendFD     int
	BufferSize int
	Transform  transform.Func
	Stop       *atomic.Bool
}

// Run implements zstd_proxy_posix_run. prefix is any data already read from
// RecvFD before the backend took ownership (see Descriptor.Prefix); it is
// processed before the first real recv().
func (b *Backend) Run(ctx context.Context, prefix []byte) error {
	recvBuf := pool.Get()
	sendBuf := pool.Get()
	defer pool.Put(recvBuf)
	defer pool.Put(sendBuf)

	for _, bb := range []*bytebufferpool.ByteBuffer{recvBuf, sendBuf} {
		if cap(bb.B) < b.BufferSize {
			bb.B = make([]byte, b.BufferSize)
		}
		bb.B = bb.B[:b.BufferSize]
	}
	recv := recvBuf.Bytes()
	send := sendBuf.Bytes()

	if len(prefix) > 0 {
		if err := b.process(ctx, prefix, send); err != nil {
			return err
		}
	}

	for !b.Stop.Load() {
		n, err := unix.Read(b.RecvFD, recv)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return newError("error reading fd %d: %w", b.RecvFD, err)
		}
		if n == 0 {
			// Peer closed; flush whatever the transform still has buffered
			// (e.g. a decompressor's backlog from the last received chunk)
			// before reporting end-of-stream.
			return b.process(ctx, nil, send)
		}

		if err := b.process(ctx, recv[:n], send); err != nil {
			return err
		}
	}

	return nil
}

// process implements zstd_proxy_posix_process, including the short-send
// retry fix mandated by the spec (the original C send() call is not
// retried on a short write). It keeps invoking the transform — even once
// received is fully consumed — until a call produces no output, so a
// transform that buffers output internally (a streaming decompressor may
// decode one received chunk into many times its size) is fully drained
// rather than leaving bytes stranded for a call that never comes.
func (b *Backend) process(ctx context.Context, received []byte, send []byte) error {
	in := &transform.Cursor{Data: received}

	for {
		out := &transform.Cursor{Data: send}

		if err := b.Transform(ctx, in, out); err != nil {
			return err
		}

		if out.Pos > 0 {
			if err := b.sendAll(send[:out.Pos]); err != nil {
				return err
			}
		}

		if in.Pos >= len(in.Data) && out.Pos == 0 {
			return nil
		}
	}
}

func (b *Backend) sendAll(buf []byte) error {
	for len(buf) > 0 {
		n, err := unix.Write(b.SendFD, buf)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return newError("error writing to fd %d: %w", b.SendFD, err)
		}
		buf = buf[n:]
	}
	return nil
}
