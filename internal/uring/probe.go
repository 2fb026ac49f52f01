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

const maxProbeOps = 256

// opSupported mirrors struct io_uring_probe_op.
type opSupported struct {
	op    uint8
	resv  uint8
	flags uint16
	resv2 uint32
}

const opFlagSupported = 1 << 0

// probeHeader mirrors struct io_uring_probe's fixed-size header; ops[]
// follows immediately after in the same allocation, as IORING_REGISTER_PROBE
// expects.
type probeHeader struct {
	lastOp uint8
	opsLen uint8
	resv   uint16
	resv2  [3]uint32
}

type probeBuffer struct {
	probeHeader
	ops [maxProbeOps]opSupported
}

// Capabilities summarizes which opcodes zstd-proxy-uring.c cares about are
// supported by the running kernel, mirroring zstd_proxy_uring_options.
type Capabilities struct {
	BaseIOSupported        bool // IORING_OP_READ / IORING_OP_WRITE
	FixedBuffersSupported  bool // IORING_OP_READ_FIXED / IORING_OP_WRITE_FIXED
	ZeroCopySupported      bool // IORING_OP_SEND_ZC
}

// Probe creates a throwaway ring, issues IORING_REGISTER_PROBE, and reports
// which opcodes the kernel supports. It is safe to call repeatedly; callers
// that want idempotent one-time behavior (as the original implementation's
// `static bool configured` guard does) should cache the result themselves.
func Probe() (Capabilities, error) {
	r, err := New(8)
	if err != nil {
		return Capabilities{}, err
	}
	defer r.Close()

	var buf probeBuffer
	if err := register(r.fd, registerProbe, unsafe.Pointer(&buf), maxProbeOps); err != nil {
		return Capabilities{}, err
	}

	supported := func(op uint8) bool {
		if int(op) > int(buf.lastOp) {
			return false
		}
		for i := 0; i <= int(buf.lastOp) && i < maxProbeOps; i++ {
			if buf.ops[i].op == op {
				return buf.ops[i].flags&opFlagSupported != 0
			}
		}
		return false
	}

	caps := Capabilities{
		BaseIOSupported: supported(OpRead) && supported(OpWrite),
	}
	if caps.BaseIOSupported {
		caps.FixedBuffersSupported = supported(OpReadFixed) && supported(OpWriteFixed)
		if caps.FixedBuffersSupported {
			caps.ZeroCopySupported = supported(OpSendZC)
		}
	}

	return caps, nil
}
