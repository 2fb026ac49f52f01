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

// Package sockopt wraps the handful of raw socket syscalls the engine needs
// directly on file descriptors, mirroring zstd_proxy_prepare,
// zstd_proxy_remove_nonblock and zstd_proxy_is_socket from zstd-proxy.c.
package sockopt

import "golang.org/x/sys/unix"

// ClearNonblock clears O_NONBLOCK on fd, matching
// zstd_proxy_remove_nonblock — both backends want a blocking fd of their
// own choosing (the blocking backend truly blocks, the ring backend issues
// nonblocking-equivalent io_uring ops regardless of the fd's flag).
func ClearNonblock(fd int) error {
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err != nil {
		return err
	}
	if flags&unix.O_NONBLOCK == 0 {
		return nil
	}
	_, err = unix.FcntlInt(uintptr(fd), unix.F_SETFL, flags&^unix.O_NONBLOCK)
	return err
}

// IsSocket reports whether fd is a socket, matching zstd_proxy_is_socket.
func IsSocket(fd int) bool {
	_, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_TYPE)
	return err == nil
}

// HalfClose shuts down both directions of fd, matching the
// shutdown(fd, SHUT_RDWR) calls zstd_proxy_io issues on teardown to wake a
// sibling pipeline parked in a blocking recv/send.
func HalfClose(fd int) error {
	return unix.Shutdown(fd, unix.SHUT_RDWR)
}
