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

package uring

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Raw syscall numbers on linux/amd64. io_uring has no wrapper in
// golang.org/x/sys/unix, so it is invoked directly via Syscall6, the same
// approach used by every from-scratch io_uring implementation in the
// reference pack.
const (
	sysIoUringSetup    = 425
	sysIoUringEnter    = 426
	sysIoUringRegister = 427

	sqeArrayOffset = 0x10000000

	featSingleMmap = 1 << 0

	enterGetEvents = 1 << 0

	registerBuffers = 0
	registerProbe   = 8
)

type ioSqringOffsets struct {
	head, tail               uint32
	ringMask, ringEntries    uint32
	flags, dropped           uint32
	array                    uint32
	resv1                    uint32
	resv2                    uint64
}

type ioCqringOffsets struct {
	head, tail            uint32
	ringMask, ringEntries uint32
	overflow              uint32
	cqes                  uint32
	flags                 uint64
	resv1                 uint32
	resv2                 uint64
}

type ioUringParams struct {
	sqEntries    uint32
	cqEntries    uint32
	flags        uint32
	sqThreadCPU  uint32
	sqThreadIdle uint32
	features     uint32
	wqFd         uint32
	resv         [3]uint32
	sqOff        ioSqringOffsets
	cqOff        ioCqringOffsets
}

func setup(entries uint32, params *ioUringParams) (int, error) {
	fd, _, errno := unix.Syscall(sysIoUringSetup, uintptr(entries), uintptr(unsafe.Pointer(params)), 0)
	if errno != 0 {
		return -1, errno
	}
	return int(fd), nil
}

func enter(fd int, toSubmit, minComplete uint32, flags uint32) (int, error) {
	n, _, errno := unix.Syscall6(
		sysIoUringEnter,
		uintptr(fd), uintptr(toSubmit), uintptr(minComplete), uintptr(flags), 0, 0,
	)
	if errno != 0 {
		return int(n), errno
	}
	return int(n), nil
}

func register(fd int, opcode uint32, arg unsafe.Pointer, nrArgs uint32) error {
	_, _, errno := unix.Syscall6(
		sysIoUringRegister,
		uintptr(fd), uintptr(opcode), uintptr(arg), uintptr(nrArgs), 0, 0,
	)
	if errno != 0 {
		return errno
	}
	return nil
}
