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

package controller

import (
	"errors"
	"net"
	"syscall"
)

var errNotSyscallConn = errors.New("controller: connection does not expose a raw file descriptor")

// connFD extracts the raw file descriptor backing a net.Conn so it can be
// handed to proxy.Run, which operates on descriptors directly to stay
// interchangeable with the blocking and completion-ring backends. The
// caller must not use conn's Read/Write after this point; only Close,
// which is safe to call once the handed-off fd is no longer in use.
func connFD(conn net.Conn) (int, error) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return 0, errNotSyscallConn
	}

	raw, err := sc.SyscallConn()
	if err != nil {
		return 0, err
	}

	var fd int
	if err := raw.Control(func(p uintptr) { fd = int(p) }); err != nil {
		return 0, err
	}
	return fd, nil
}
