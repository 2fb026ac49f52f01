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

import "unsafe"

// Opcodes, matching the real Linux io_uring ABI (see
// include/uapi/linux/io_uring.h). Only the subset zstd-proxy-uring.c uses
// is named here.
const (
	OpRead       = 22
	OpWrite      = 23
	OpReadFixed  = 4
	OpWriteFixed = 5
	OpSendZC     = 47
)

// SQE mirrors struct io_uring_sqe. Only the fields the ring backend needs
// are given names; reserved padding is kept so the struct's size and
// layout match the kernel ABI.
type SQE struct {
	Opcode   uint8
	Flags    uint8
	IoPrio   uint16
	FD       int32
	Off      uint64
	Addr     uint64
	Len      uint32
	RWFlags  uint32
	UserData uint64
	BufIndex uint16
	Personality uint16
	SpliceFDIn  int32
	pad         [2]uint64
}

// SetUserData stashes an opaque tag — in the ring backend, a pointer to the
// owning slot — for retrieval from the matching CQE.
func (s *SQE) SetUserData(p uintptr) {
	s.UserData = uint64(p)
}

// PrepRead prepares a plain IORING_OP_READ.
func (s *SQE) PrepRead(fd int, buf []byte) {
	s.Opcode = OpRead
	s.FD = int32(fd)
	s.Addr = uint64(uintptr(unsafe.Pointer(&buf[0])))
	s.Len = uint32(len(buf))
}

// PrepReadFixed prepares an IORING_OP_READ_FIXED against a registered
// buffer identified by index.
func (s *SQE) PrepReadFixed(fd int, buf []byte, index uint16) {
	s.PrepRead(fd, buf)
	s.Opcode = OpReadFixed
	s.BufIndex = index
}

// PrepWrite prepares a plain IORING_OP_WRITE.
func (s *SQE) PrepWrite(fd int, buf []byte) {
	s.Opcode = OpWrite
	s.FD = int32(fd)
	s.Addr = uint64(uintptr(unsafe.Pointer(&buf[0])))
	s.Len = uint32(len(buf))
}

// PrepWriteFixed prepares an IORING_OP_WRITE_FIXED against a registered
// buffer identified by index.
func (s *SQE) PrepWriteFixed(fd int, buf []byte, index uint16) {
	s.PrepWrite(fd, buf)
	s.Opcode = OpWriteFixed
	s.BufIndex = index
}

// PrepSendZC prepares a zero-copy IORING_OP_SEND_ZC against a registered
// buffer identified by index, matching io_uring_prep_send_zc_fixed.
func (s *SQE) PrepSendZC(fd int, buf []byte, index uint16) {
	s.PrepWrite(fd, buf)
	s.Opcode = OpSendZC
	s.IoPrio |= 1 << 2 // IORING_RECVSEND_FIXED_BUF
	s.BufIndex = index
}
