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

package blockingio

import (
	"context"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

func TestBackendIdentityRoundTrip(t *testing.T) {
	recvFDs := func() (int, int) { return socketpair(t) }
	sendFDs := func() (int, int) { return socketpair(t) }

	recvA, recvB := recvFDs()
	sendA, sendB := sendFDs()

	b := &Backend{
		RecvFD:     recvB,
		SendFD:     sendA,
		BufferSize: 4096,
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

	payload := []byte("hello, compressing proxy")
	_, err := syscall.Write(recvA, payload)
	require.NoError(t, err)
	require.NoError(t, syscall.Shutdown(recvA, syscall.SHUT_WR))

	got := make([]byte, len(payload))
	n, err := readFull(sendB, got)
	require.NoError(t, err)
	assert.Equal(t, payload, got[:n])

	wg.Wait()
	assert.NoError(t, runErr)
}

func TestBackendPrefixAbsorption(t *testing.T) {
	recvA, recvB := socketpair(t)
	sendA, sendB := socketpair(t)

	b := &Backend{
		RecvFD:     recvB,
		SendFD:     sendA,
		BufferSize: 4096,
		Transform:  transform.Identity,
		Stop:       &atomic.Bool{},
	}

	prefix := []byte("sniffed-prefix:")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = b.Run(context.Background(), prefix)
	}()

	require.NoError(t, syscall.Shutdown(recvA, syscall.SHUT_WR))

	got := make([]byte, len(prefix))
	n, err := readFull(sendB, got)
	require.NoError(t, err)
	assert.Equal(t, prefix, got[:n])

	wg.Wait()
}

func readFull(fd int, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := syscall.Read(fd, buf[total:])
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
		total += n
	}
	return total, nil
}
