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

// Package ringio implements the completion-ring backend, ported from
// zstd-proxy-uring.c: a fixed arena of recv/send buffer slots driven
// through Linux io_uring via internal/uring.
package ringio

import "errors"

// ErrUnsupported is returned by Backend.Run on platforms without an
// io_uring implementation (anything but Linux). Callers should fall back
// to blockingio.Backend; the capability probe in the proxy package
// downgrades Options.Ring.Enabled before this would ever be reached in
// practice.
var ErrUnsupported = errors.New("ringio: completion-ring backend requires linux")

type slotRole int

const (
	roleRecv slotRole = iota
	roleSend
)

type slotState int

const (
	stateAvailable slotState = iota
	statePending
	stateReady
)

// slot mirrors zstd_proxy_uring_buffer: one fixed-size buffer with an
// incrementing id used to preserve byte-stream order across out-of-order
// kernel completions.
type slot struct {
	id     uint64
	role   slotRole
	index  int
	data   []byte
	size   int
	offset int
	state  slotState
	result int
}

func (s *slot) available() bool { return s.state == stateAvailable }
func (s *slot) pending() bool   { return s.state == statePending }
