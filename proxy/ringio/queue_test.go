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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zstdproxy/zstdproxy/internal/uring"
	"github.com/zstdproxy/zstdproxy/proxy/transform"
)

// fakeRing is a ringLike that never touches the kernel: Submit just
// records whatever SQE NextSQE most recently handed out, so queue's
// scheduling logic (which slot gets submitted, in what order) can be
// exercised without a live io_uring instance.
type fakeRing struct {
	last       *uring.SQE
	submitted  []*uring.SQE
	registered [][]byte
	closed     bool
}

func (f *fakeRing) NextSQE() *uring.SQE {
	f.last = &uring.SQE{}
	return f.last
}

func (f *fakeRing) Submit() (int, error) {
	f.submitted = append(f.submitted, f.last)
	return 1, nil
}

func (f *fakeRing) WaitCQE() (*uring.CQE, error) { panic("not used by queue-level tests") }
func (f *fakeRing) AdvanceCQ()                   { panic("not used by queue-level tests") }

func (f *fakeRing) RegisterBuffers(bufs [][]byte) error {
	f.registered = bufs
	return nil
}

func (f *fakeRing) Close() error {
	f.closed = true
	return nil
}

func newTestQueue(t *testing.T, depth, bufferSize int, fn transform.Func) (*queue, *fakeRing) {
	t.Helper()
	ring := &fakeRing{}
	q, err := newQueueWithRing(ring, depth, bufferSize, 3, 4, false, false, fn)
	require.NoError(t, err)
	return q, ring
}

// TestOldestPendingOrdersByID verifies invariant 4: regardless of which
// order slots are marked pending in, oldestPending always returns the one
// with the lowest id, mirroring zstd_proxy_uring_get's FIFO guarantee
// against out-of-order kernel completions.
func TestOldestPendingOrdersByID(t *testing.T) {
	q, _ := newTestQueue(t, 4, 64, transform.Identity)
	send := q.sendSlots()

	send[2].state, send[2].id = stateReady, 30
	send[0].state, send[0].id = stateReady, 10
	send[3].state, send[3].id = statePending, 40
	send[1].state, send[1].id = stateReady, 20

	oldest := q.oldestPending(send)
	require.Same(t, send[0], oldest)
}

// TestProcessDrainsIntoSendSlotsInAscendingID verifies that process()
// assigns ascending ids to the send slots it fills, so a later
// oldestPending scan (and hence submission order) always matches the
// order bytes were produced in, even though send slots live in an
// unordered backing array.
func TestProcessDrainsIntoSendSlotsInAscendingID(t *testing.T) {
	q, ring := newTestQueue(t, 4, 4, transform.Identity) // tiny buffers force multiple send slots
	recv := q.recvSlots()[0]
	recv.size = 10
	recv.data = []byte("0123456789")
	recv.state = stateReady

	err := q.process(context.Background(), recv)
	require.NoError(t, err)

	// 10 bytes through 4-byte send slots needs 3 sends (4+4+2); only 4
	// send slots exist so all three used ones must be populated in
	// order and the recv slot fully drained.
	require.Equal(t, stateAvailable, recv.state)
	require.Equal(t, 0, recv.offset)

	send := q.sendSlots()
	var ids []uint64
	for _, s := range send {
		if s.state != stateAvailable {
			ids = append(ids, s.id)
		}
	}
	require.Len(t, ids, 3)
	// Sends are serialized: while the oldest filled slot is in flight, the
	// later ones wait in stateReady and are not submitted yet.
	require.Len(t, ring.submitted, 1)
	for i := 1; i < len(ids); i++ {
		require.Less(t, ids[i-1], ids[i])
	}
}

// TestProcessStopsWhenSendSlotsExhausted verifies the partial-drain path:
// if every send slot is busy, process() records how far the recv slot got
// (offset) and returns without error, to be resumed once a send slot
// frees up.
func TestProcessStopsWhenSendSlotsExhausted(t *testing.T) {
	q, _ := newTestQueue(t, 1, 4, transform.Identity) // depth 1 -> a single send slot
	for _, s := range q.sendSlots() {
		s.state = statePending
	}

	recv := q.recvSlots()[0]
	recv.size = 8
	recv.data = []byte("abcdefgh")
	recv.state = stateReady

	err := q.process(context.Background(), recv)
	require.NoError(t, err)
	require.Equal(t, stateReady, recv.state)
	require.Equal(t, 0, recv.offset)
}

// TestCompleteShortSendKeepsSlotReady mirrors zstd_proxy_uring_complete's
// short-write handling: a send slot that wrote fewer bytes than queued
// stays in stateReady (not stateAvailable) with size/offset adjusted so
// the next submitSend resumes from where the kernel left off.
func TestCompleteShortSendKeepsSlotReady(t *testing.T) {
	q, _ := newTestQueue(t, 2, 64, transform.Identity)
	send := q.sendSlots()[0]
	send.state = statePending
	send.size = 20
	send.offset = 0
	send.result = 12 // short write: only 12 of 20 bytes went out
	q.running = 1

	err := q.complete(send)
	require.NoError(t, err)
	require.Equal(t, stateReady, send.state)
	require.Equal(t, 8, send.size)
	require.Equal(t, 12, send.offset)
	require.Equal(t, 1, q.running) // still in flight, not yet fully sent
}

// TestCompleteFullSendFreesSlot verifies the matching full-write path:
// once a send slot's entire buffer has gone out, it becomes available
// again and the queue's in-flight counter drops.
func TestCompleteFullSendFreesSlot(t *testing.T) {
	q, _ := newTestQueue(t, 2, 64, transform.Identity)
	send := q.sendSlots()[0]
	send.state = statePending
	send.size = 20
	send.result = 20
	q.running = 1

	err := q.complete(send)
	require.NoError(t, err)
	require.Equal(t, stateAvailable, send.state)
	require.Equal(t, 0, q.running)
}

// TestCompleteRecvErrorPropagates verifies a negative completion result
// (a kernel errno) surfaces as an error instead of being treated as a
// byte count.
func TestCompleteRecvErrorPropagates(t *testing.T) {
	q, _ := newTestQueue(t, 2, 64, transform.Identity)
	recv := q.recvSlots()[0]
	recv.state = statePending
	recv.result = -104 // -ECONNRESET

	err := q.complete(recv)
	require.Error(t, err)
}
