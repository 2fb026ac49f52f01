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

package transform

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentity(t *testing.T) {
	in := &Cursor{Data: []byte("hello world")}
	out := &Cursor{Data: make([]byte, 64)}

	require.NoError(t, Identity(context.Background(), in, out))
	assert.Equal(t, "hello world", string(out.Data[:out.Pos]))
	assert.Equal(t, len(in.Data), in.Pos)
}

func TestIdentityBoundedOutput(t *testing.T) {
	in := &Cursor{Data: []byte("hello world")}
	out := &Cursor{Data: make([]byte, 4)}

	require.NoError(t, Identity(context.Background(), in, out))
	assert.Equal(t, 4, out.Pos)
	assert.Equal(t, 4, in.Pos)
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 200)

	c, err := NewCompressor(3)
	require.NoError(t, err)

	d, err := NewDecompressor()
	require.NoError(t, err)

	var compressed, decompressed bytes.Buffer

	in := &Cursor{Data: payload}
	scratch := make([]byte, 4096)
	for in.Pos < len(in.Data) {
		out := &Cursor{Data: scratch}
		require.NoError(t, c.Encode(context.Background(), in, out))
		compressed.Write(out.Data[:out.Pos])
	}
	require.NoError(t, c.Close())

	din := &Cursor{Data: compressed.Bytes()}
	for din.Pos < len(din.Data) {
		dout := &Cursor{Data: scratch}
		require.NoError(t, d.Decode(context.Background(), din, dout))
		decompressed.Write(dout.Data[:dout.Pos])
	}
	// Drain anything buffered after the final chunk was handed over.
	for i := 0; i < 4; i++ {
		dout := &Cursor{Data: scratch}
		require.NoError(t, d.Decode(context.Background(), &Cursor{}, dout))
		if dout.Pos == 0 {
			break
		}
		decompressed.Write(dout.Data[:dout.Pos])
	}
	require.NoError(t, d.Close())

	assert.Equal(t, payload, decompressed.Bytes())
}

func TestCompressEmptyInput(t *testing.T) {
	c, err := NewCompressor(1)
	require.NoError(t, err)
	defer c.Close()

	in := &Cursor{}
	out := &Cursor{Data: make([]byte, 16)}
	require.NoError(t, c.Encode(context.Background(), in, out))
	assert.Equal(t, 0, out.Pos)
}
