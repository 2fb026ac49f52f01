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
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zstdproxy/zstdproxy/internal/uring"
	"github.com/zstdproxy/zstdproxy/proxy/transform"
)

func socketpair(t *testing.T) (int, int) {
	t.Helper()
	fds, err := syscall.Socketpair(syscall.AF_UNIX, syscall.SOCK_STREAM, 0)
	require.NoError(t, err)
	t.Cleanup(func() {
		syscall.Close(fds[0])
		syscall.Close(fds[1])
	})
	return fds[0], fds[1]
}

func requireRing(t *testing.T) {
	t.Helper()
	r, err := uring.New(8)
	if err != nil {
		t.Skipf("io_uring unavailable in this environment: %v", err)
	}
	r.Close()
}

func TestBackendIdentityRoundTrip(t *testing.T) {
	requireRing(t)

	recvLocal, recvRemote := socketpair(t)
	sendLocal, sendRemote := socketpair(t)

	payload := bytes.Repeat([]byte("ring-proxy-payload-"), 2000)

	b := &Backend{
		RecvFD:     recvLocal,
		SendFD:     sendLocal,
		BufferSize: 4096,
		Depth:      4,
		Transform:  transform.Identity,
		Stop:       &atomic.Bool{},
	}

	var wg sync.WaitGroup
	wg.Add(1)
	var runErr error
	go func() {
		defer wg.Done()
		runErr = b.Run(context.Background(), nil)
	}()

	go func() {
		_, _ = syscall.Write(recvRemote, payload)
		syscall.Shutdown(recvRemote, syscall.SHUT_WR)
	}()

	got := make([]byte, 0, len(payload))
	buf := make([]byte, 4096)
	for len(got) < len(payload) {
		n, err := syscall.Read(sendRemote, buf)
		if n > 0 {
			got = append(got, buf[:n]...)
		}
		if err != nil || n == 0 {
			break
		}
	}

	wg.Wait()
	assert.NoError(t, runErr)
	assert.Equal(t, payload, got)
}
