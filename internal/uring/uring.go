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

// Package uring provides a minimal, hand-rolled Linux io_uring binding
// built directly on golang.org/x/sys/unix raw syscalls: io_uring_setup,
// io_uring_enter and io_uring_register, plus the mmap'd submission and
// completion ring layout. It exists because the pack of reference
// repositories contains no fully-sourced example of a third-party io_uring
// binding library actually being called — only two from-scratch
// implementations following this same shape — so the ring backend is built
// against this package instead of guessing an unverified third-party API.
package uring

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Ring is a minimal io_uring instance: one submission queue, one
// completion queue, and (optionally) one set of registered fixed buffers.
type Ring struct {
	fd     int
	params ioUringParams

	sq SubmissionQueue
	cq CompletionQueue

	sqeMem  []byte
	ringMem []byte
}

// SubmissionQueue mirrors the mmap'd SQ ring: the app is producer (tail),
// the kernel is consumer (head).
type SubmissionQueue struct {
	head, tail        *uint32
	ringMask          uint32
	ringEntries       uint32
	flags, dropped    *uint32
	array             *uint32
	sqes              []SQE
}

// CompletionQueue mirrors the mmap'd CQ ring: the kernel is producer
// (tail), the app is consumer (head).
type CompletionQueue struct {
	head, tail  *uint32
	ringMask    uint32
	ringEntries uint32
	overflow    *uint32
	cqes        []CQE
}

// New creates a Ring with the given submission-queue depth (rounded up to
// a power of two by the kernel) and maps its rings via the single-mmap
// path (IORING_FEAT_SINGLE_MMAP, Linux 5.4+).
func New(entries uint32) (*Ring, error) {
	var params ioUringParams
	fd, err := setup(entries, &params)
	if err != nil {
		return nil, fmt.Errorf("io_uring_setup: %w", err)
	}

	if params.features&featSingleMmap == 0 {
		unix.Close(fd)
		return nil, fmt.Errorf("kernel lacks IORING_FEAT_SINGLE_MMAP (needs Linux 5.4+)")
	}

	r := &Ring{fd: fd, params: params}

	pageSize := uint32(unix.Getpagesize())
	sqRingSize := params.sqOff.array + params.sqEntries*4
	cqRingSize := params.cqOff.cqes + params.cqEntries*uint32(unsafe.Sizeof(CQE{}))
	ringSize := sqRingSize
	if cqRingSize > ringSize {
		ringSize = cqRingSize
	}
	ringSize = (ringSize + pageSize - 1) &^ (pageSize - 1)

	ringMem, err := unix.Mmap(fd, 0, int(ringSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("mmap ring: %w", err)
	}
	r.ringMem = ringMem

	sqeSize := params.sqEntries * uint32(unsafe.Sizeof(SQE{}))
	sqeMem, err := unix.Mmap(fd, sqeArrayOffset, int(sqeSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_POPULATE)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("mmap sqe: %w", err)
	}
	r.sqeMem = sqeMem

	r.sq.head = (*uint32)(unsafe.Pointer(&ringMem[params.sqOff.head]))
	r.sq.tail = (*uint32)(unsafe.Pointer(&ringMem[params.sqOff.tail]))
	r.sq.ringMask = *(*uint32)(unsafe.Pointer(&ringMem[params.sqOff.ringMask]))
	r.sq.ringEntries = *(*uint32)(unsafe.Pointer(&ringMem[params.sqOff.ringEntries]))
	r.sq.flags = (*uint32)(unsafe.Pointer(&ringMem[params.sqOff.flags]))
	r.sq.dropped = (*uint32)(unsafe.Pointer(&ringMem[params.sqOff.dropped]))
	r.sq.array = (*uint32)(unsafe.Pointer(&ringMem[params.sqOff.array]))
	r.sq.sqes = unsafe.Slice((*SQE)(unsafe.Pointer(&sqeMem[0])), params.sqEntries)

	r.cq.head = (*uint32)(unsafe.Pointer(&ringMem[params.cqOff.head]))
	r.cq.tail = (*uint32)(unsafe.Pointer(&ringMem[params.cqOff.tail]))
	r.cq.ringMask = *(*uint32)(unsafe.Pointer(&ringMem[params.cqOff.ringMask]))
	r.cq.ringEntries = *(*uint32)(unsafe.Pointer(&ringMem[params.cqOff.ringEntries]))
	r.cq.overflow = (*uint32)(unsafe.Pointer(&ringMem[params.cqOff.overflow]))
	r.cq.cqes = unsafe.Slice((*CQE)(unsafe.Pointer(&ringMem[params.cqOff.cqes])), params.cqEntries)

	runtime.SetFinalizer(r, func(r *Ring) { r.Close() })

	return r, nil
}

// RegisterBuffers registers fixed I/O buffers for IORING_OP_READ_FIXED /
// IORING_OP_WRITE_FIXED, matching io_uring_register_buffers in
// zstd-proxy-uring.c.
func (r *Ring) RegisterBuffers(bufs [][]byte) error {
	iovecs := make([]unix.Iovec, len(bufs))
	for i, b := range bufs {
		iovecs[i].Base = &b[0]
		iovecs[i].SetLen(len(b))
	}
	return register(r.fd, registerBuffers, unsafe.Pointer(&iovecs[0]), uint32(len(iovecs)))
}

// NextSQE returns the next free submission queue entry, or nil if the
// queue is full. The returned SQE is zeroed before being returned.
func (r *Ring) NextSQE() *SQE {
	tail := atomic.LoadUint32(r.sq.tail)
	head := atomic.LoadUint32(r.sq.head)
	if tail-head >= r.sq.ringEntries {
		return nil
	}

	idx := tail & r.sq.ringMask
	sqe := &r.sq.sqes[idx]
	*sqe = SQE{}

	arrayPtr := (*uint32)(unsafe.Pointer(uintptr(unsafe.Pointer(r.sq.array)) + uintptr(idx)*4))
	*arrayPtr = idx

	return sqe
}

// advanceSQ publishes one queued SQE to the kernel.
func (r *Ring) advanceSQ() {
	atomic.AddUint32(r.sq.tail, 1)
}

// Submit publishes the one SQE most recently returned by NextSQE and calls
// io_uring_enter for every entry the kernel has not yet consumed. NextSQE
// does not advance the tail, so each NextSQE call is paired with one Submit.
func (r *Ring) Submit() (int, error) {
	r.advanceSQ()
	toSubmit := atomic.LoadUint32(r.sq.tail) - atomic.LoadUint32(r.sq.head)
	if toSubmit == 0 {
		return 0, nil
	}
	for {
		n, err := enter(r.fd, toSubmit, 0, 0)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return n, err
		}
		return n, nil
	}
}

// WaitCQE blocks until at least one completion is available. The returned
// CQE is valid until the matching AdvanceCQ call.
func (r *Ring) WaitCQE() (*CQE, error) {
	head := atomic.LoadUint32(r.cq.head)
	for atomic.LoadUint32(r.cq.tail) == head {
		_, err := enter(r.fd, 0, 1, enterGetEvents)
		if err != nil && err != unix.EINTR && err != unix.EAGAIN {
			return nil, err
		}
	}
	return &r.cq.cqes[head&r.cq.ringMask], nil
}

// AdvanceCQ frees the oldest completion queue slot.
func (r *Ring) AdvanceCQ() {
	atomic.AddUint32(r.cq.head, 1)
}

// Close tears down the ring's memory mappings and file descriptor.
func (r *Ring) Close() error {
	if r == nil {
		return nil
	}
	runtime.SetFinalizer(r, nil)

	var firstErr error
	if r.ringMem != nil {
		if err := unix.Munmap(r.ringMem); err != nil && firstErr == nil {
			firstErr = err
		}
		r.ringMem = nil
	}
	if r.sqeMem != nil {
		if err := unix.Munmap(r.sqeMem); err != nil && firstErr == nil {
			firstErr = err
		}
		r.sqeMem = nil
	}
	if r.fd >= 0 {
		if err := unix.Close(r.fd); err != nil && firstErr == nil {
			firstErr = err
		}
		r.fd = -1
	}
	return firstErr
}
