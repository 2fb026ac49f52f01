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

package proxy

import (
	"context"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

// TestRunRoundTrip exercises both pipeline directions at once over two
// socketpairs standing in for the listen and connect sides, with
// compression disabled so the assertions are byte-exact.
func TestRunRoundTrip(t *testing.T) {
	listenLocal, listenRemote := socketpair(t)
	connectLocal, connectRemote := socketpair(t)

	p := &Proxy{
		Options: Options{Zstd: ZstdOptions{Enabled: false}, Ring: RingOptions{Enabled: false}},
		Listen:  Descriptor{FD: listenLocal},
		Connect: Descriptor{FD: connectLocal},
	}

	var wg sync.WaitGroup
	wg.Add(1)
	var runErr error
	go func() {
		defer wg.Done()
		runErr = Run(context.Background(), p)
	}()

	outboundPayload := []byte("request-bytes-from-client")
	inboundPayload := []byte("response-bytes-from-upstream")

	_, err := syscall.Write(listenRemote, outboundPayload)
	require.NoError(t, err)
	_, err = syscall.Write(connectRemote, inboundPayload)
	require.NoError(t, err)

	gotOutbound := make([]byte, len(outboundPayload))
	_, err = syscall.Read(connectRemote, gotOutbound)
	require.NoError(t, err)
	assert.Equal(t, outboundPayload, gotOutbound)

	gotInbound := make([]byte, len(inboundPayload))
	_, err = syscall.Read(listenRemote, gotInbound)
	require.NoError(t, err)
	assert.Equal(t, inboundPayload, gotInbound)

	assert.NotEmpty(t, p.ID)

	syscall.Shutdown(listenRemote, syscall.SHUT_RDWR)
	syscall.Shutdown(connectRemote, syscall.SHUT_RDWR)

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after both peers closed")
	}
	_ = runErr
}
