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

package pipeline

import (
	"bytes"
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

func TestPipelineBlockingIdentity(t *testing.T) {
	srcLocal, srcRemote := socketpair(t)
	dstLocal, dstRemote := socketpair(t)

	stop := &atomic.Bool{}

	p := &Pipeline{
		ID:         "test",
		Direction:  DirCompress,
		SourceFD:   srcLocal,
		SinkFD:     dstLocal,
		BufferSize: 4096,
		Transform:  transform.Identity,
		Stop:       stop,
	}

	payload := []byte("hello, zstd-proxy")

	var wg sync.WaitGroup
	wg.Add(1)
	var runErr error
	go func() {
		defer wg.Done()
		runErr = p.Run(context.Background())
	}()

	_, err := syscall.Write(srcRemote, payload)
	require.NoError(t, err)
	require.NoError(t, syscall.Shutdown(srcRemote, syscall.SHUT_WR))

	got := make([]byte, len(payload))
	n, err := syscall.Read(dstRemote, got)
	require.NoError(t, err)

	stop.Store(true)
	syscall.Shutdown(srcLocal, syscall.SHUT_RDWR)
	wg.Wait()

	assert.NoError(t, runErr)
	assert.True(t, bytes.Equal(payload, got[:n]))
}

func TestPipelinePrefixAbsorption(t *testing.T) {
	srcLocal, srcRemote := socketpair(t)
	dstLocal, dstRemote := socketpair(t)

	stop := &atomic.Bool{}

	p := &Pipeline{
		ID:           "test",
		Direction:    DirDecompress,
		SourceFD:     srcLocal,
		SourcePrefix: []byte("prefix-bytes"),
		SinkFD:       dstLocal,
		BufferSize:   4096,
		Transform:    transform.Identity,
		Stop:         stop,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = p.Run(context.Background())
	}()

	got := make([]byte, len("prefix-bytes"))
	_, err := syscall.Read(dstRemote, got)
	require.NoError(t, err)
	assert.Equal(t, "prefix-bytes", string(got))

	stop.Store(true)
	syscall.Shutdown(srcLocal, syscall.SHUT_RDWR)
	syscall.Close(srcRemote)
	wg.Wait()
}
