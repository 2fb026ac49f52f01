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
	"unsafe"

	"github.com/zstdproxy/zstdproxy/internal/uring"
	"github.com/zstdproxy/zstdproxy/proxy/transform"
)

// queue mirrors zstd_proxy_uring_queue: a fixed arena of depth recv slots
// and depth send slots sharing one io_uring ring.
type queue struct {
	depth      int
	bufferSize int
	nextID     uint64
	running    int

	ring         ringLike
	fixedBuffers bool
	zeroCopy     bool

	recvFD, sendFD int
	transform      transform.Func

	slots []*slot // [0:depth) recv, [depth:2*depth) send
}

func newQueue(depth, bufferSize, recvFD, sendFD int, fixedBuffers, zeroCopy bool, fn transform.Func) (*queue, error) {
	r, err := uring.New(uint32(depth * 2))
	if err != nil {
		return nil, err
	}
	return newQueueWithRing(r, depth, bufferSize, recvFD, sendFD, fixedBuffers, zeroCopy, fn)
}

// newQueueWithRing builds a queue around a caller-supplied ring, letting
// tests drive the slot-scheduling logic against a fake ringLike
// implementation instead of a live io_uring instance.
func newQueueWithRing(r ringLike, depth, bufferSize, recvFD, sendFD int, fixedBuffers, zeroCopy bool, fn transform.Func) (*queue, error) {
	q := &queue{
		depth:        depth,
		bufferSize:   bufferSize,
		ring:         r,
		fixedBuffers: fixedBuffers,
		zeroCopy:     zeroCopy,
		recvFD:       recvFD,
		sendFD:       sendFD,
		transform:    fn,
		slots:        make([]*slot, depth*2),
	}

	bufs := make([][]byte, depth*2)
	for i := range q.slots {
		role := roleRecv
		if i >= depth {
			role = roleSend
		}
		data := make([]byte, bufferSize)
		bufs[i] = data
		q.slots[i] = &slot{role: role, index: i, data: data, size: bufferSize, state: stateAvailable}
	}

	if fixedBuffers {
		if err := r.RegisterBuffers(bufs); err != nil {
			r.Close()
			return nil, err
		}
	}

	return q, nil
}

// absorbPrefix feeds a caller-supplied prefix of arbitrary length through
// the first recv slot, chunked into bufferSize-sized pieces if it doesn't
// fit in one — exactly as if each chunk had just been received — mirroring
// how the blocking backend treats an arbitrarily long prefix as already-
// arrived bytes handed to process() directly, with no size limit.
func (q *queue) absorbPrefix(ctx context.Context, prefix []byte) error {
	first := q.recvSlots()[0]
	for len(prefix) > 0 {
		n := copy(first.data, prefix)
		prefix = prefix[n:]

		q.nextID++
		first.id = q.nextID
		first.size = n
		first.offset = 0
		first.state = stateReady
		q.running++

		if err := q.process(ctx, first); err != nil {
			return err
		}
	}
	return nil
}

func (q *queue) recvSlots() []*slot { return q.slots[:q.depth] }
func (q *queue) sendSlots() []*slot { return q.slots[q.depth:] }

func (q *queue) oldestPending(slots []*slot) *slot {
	var next *slot
	for _, s := range slots {
		if s.available() {
			continue
		}
		if next == nil || next.id > s.id {
			next = s
		}
	}
	return next
}

// submitRecv mirrors zstd_proxy_uring_submit_recv.
func (q *queue) submitRecv() error {
	var recvBuf *slot
	for _, s := range q.recvSlots() {
		if s.pending() {
			return nil
		}
		if recvBuf == nil && s.available() {
			recvBuf = s
		}
	}
	if recvBuf == nil {
		return nil
	}

	sqe := q.ring.NextSQE()
	if sqe == nil {
		return newError("no free submission queue entry for recv")
	}

	q.nextID++
	recvBuf.id = q.nextID
	recvBuf.state = statePending

	if q.fixedBuffers {
		sqe.PrepReadFixed(q.recvFD, recvBuf.data, uint16(recvBuf.index))
	} else {
		sqe.PrepRead(q.recvFD, recvBuf.data)
	}
	sqe.SetUserData(uintptr(unsafe.Pointer(recvBuf)))

	if _, err := q.ring.Submit(); err != nil {
		return newError("failed to submit read on fd %d: %w", q.recvFD, err)
	}
	q.running++
	return nil
}

// submitSend mirrors zstd_proxy_uring_submit_send.
func (q *queue) submitSend() error {
	buf := q.oldestPending(q.sendSlots())
	if buf == nil || buf.pending() {
		return nil
	}

	sqe := q.ring.NextSQE()
	if sqe == nil {
		return newError("no free submission queue entry for send")
	}

	buf.state = statePending
	data := buf.data[buf.offset : buf.offset+buf.size]

	switch {
	case q.zeroCopy:
		sqe.PrepSendZC(q.sendFD, data, uint16(buf.index))
	case q.fixedBuffers:
		sqe.PrepWriteFixed(q.sendFD, data, uint16(buf.index))
	default:
		sqe.PrepWrite(q.sendFD, data)
	}
	sqe.SetUserData(uintptr(unsafe.Pointer(buf)))

	if _, err := q.ring.Submit(); err != nil {
		return newError("failed to submit write on fd %d: %w", q.sendFD, err)
	}
	return nil
}

// process mirrors zstd_proxy_uring_process: drain a completed recv slot
// through the transform, creating ready send slots in ascending id order
// until the recv slot is fully consumed and the transform has no more
// buffered output to give up, or no send slot is free.
//
// The loop keeps calling the transform even after in is fully consumed
// (in.Pos == len(in.Data)): a streaming decompressor may buffer far more
// decoded output than fits in one send slot, and the only way to learn
// whether anything remains is to ask again with the same exhausted cursor
// and see whether it still produces bytes. This also drains a zero-length
// EOF completion (recvBuf.size == 0): the loop still runs at least once,
// flushing any backlog left over from the receive that preceded it.
func (q *queue) process(ctx context.Context, recvBuf *slot) error {
	in := &transform.Cursor{Data: recvBuf.data[:recvBuf.size], Pos: recvBuf.offset}

	for {
		var sendBuf *slot
		for _, s := range q.sendSlots() {
			if s.available() {
				sendBuf = s
				break
			}
		}
		if sendBuf == nil {
			recvBuf.offset = in.Pos
			return nil
		}

		out := &transform.Cursor{Data: sendBuf.data}
		if err := q.transform(ctx, in, out); err != nil {
			return err
		}

		if out.Pos == 0 {
			if in.Pos >= len(in.Data) {
				break
			}
			recvBuf.offset = in.Pos
			return nil
		}

		q.running++
		q.nextID++
		sendBuf.id = q.nextID
		sendBuf.size = out.Pos
		sendBuf.offset = 0
		sendBuf.state = stateReady

		if err := q.submitSend(); err != nil {
			return err
		}
	}

	q.running--
	recvBuf.state = stateAvailable
	recvBuf.offset = 0
	return nil
}

// complete mirrors zstd_proxy_uring_complete.
func (q *queue) complete(buf *slot) error {
	res := buf.result

	switch buf.role {
	case roleRecv:
		if res < 0 {
			buf.size, buf.offset = 0, 0
			return newError("failed read on fd %d: errno %d", q.recvFD, -res)
		}
		buf.size, buf.offset = res, 0
		return nil

	default: // roleSend
		if res < 0 {
			return newError("failed write on fd %d: errno %d", q.sendFD, -res)
		}
		if res < buf.size {
			buf.size -= res
			buf.offset += res
			buf.state = stateReady
		} else {
			q.running--
			buf.state = stateAvailable
		}
		return nil
	}
}

func slotFromUserData(userData uint64) *slot {
	return (*slot)(unsafe.Pointer(uintptr(userData)))
}

func (q *queue) close() error {
	return q.ring.Close()
}
