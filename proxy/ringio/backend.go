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

package ringio

import (
	"context"
	"sync/atomic"

	"github.com/zstdproxy/zstdproxy/proxy/transform"
)

// Backend drives a bidirectional byte stream through Linux io_uring,
// ported from zstd_proxy_uring_run. Unlike blockingio.Backend it keeps a
// read and a write in flight at the same time (at most one of each), with
// further received and transformed data held in a pool of slots, ordering
// slots by the monotonic id assigned when they are filled or submitted
// rather than by kernel completion order.
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

// Run implements zstd_proxy_uring_run: it absorbs any pre-read prefix
// through the first recv slot, then alternates between waiting on
// completions and resubmitting work until the stream is drained or Stop
// is set.
func (b *Backend) Run(ctx context.Context, prefix []byte) error {
	depth := b.Depth
	if depth < 1 {
		depth = 1
	}

	q, err := newQueue(depth, b.BufferSize, b.RecvFD, b.SendFD, b.FixedBuffers, b.ZeroCopy, b.Transform)
	if err != nil {
		return err
	}
	defer q.close()

	reading := true

	if err := q.absorbPrefix(ctx, prefix); err != nil {
		return err
	}

	if err := q.submitRecv(); err != nil {
		return err
	}

	for !b.Stop.Load() && q.running > 0 {
		cqe, err := q.ring.WaitCQE()
		if err != nil {
			return newError("waiting for completion: %w", err)
		}
		q.ring.AdvanceCQ()

		if cqe.More() {
			continue
		}

		buf := slotFromUserData(cqe.UserData)
		buf.result = int(cqe.Res)
		buf.state = stateReady

		if err := q.complete(buf); err != nil {
			return err
		}
		if err := q.submitSend(); err != nil {
			return err
		}
		if reading {
			if err := q.submitRecv(); err != nil {
				return err
			}
		}

		recvBuf := q.oldestPending(q.recvSlots())
		if recvBuf == nil || recvBuf.pending() {
			continue
		}
		if recvBuf.size == 0 {
			reading = false
		}
		if err := q.process(ctx, recvBuf); err != nil {
			return err
		}
		if reading {
			if err := q.submitRecv(); err != nil {
				return err
			}
		}
	}

	return nil
}
