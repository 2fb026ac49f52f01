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
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Compressor adapts a klauspost/compress/zstd streaming Encoder to the
// cursor-based Func contract. It mirrors zstd_proxy_compress_stream: every
// call flushes so the produced bytes are immediately safe to send.
type Compressor struct {
	enc      *zstd.Encoder
	sink     bytes.Buffer
	consumed int
}

// NewCompressor creates a Compressor at the given zstd level. level follows
// ZSTD_c_compressionLevel semantics (1 is the original implementation's
// default, see zstd_proxy_init).
func NewCompressor(level int) (*Compressor, error) {
	c := &Compressor{}
	enc, err := zstd.NewWriter(&c.sink, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return nil, &Error{Op: "encode", Err: err}
	}
	c.enc = enc
	return c, nil
}

// Encode implements Func.
func (c *Compressor) Encode(_ context.Context, in, out *Cursor) error {
	if c.available() == 0 && in.Pos < len(in.Data) {
		n, err := c.enc.Write(in.Remaining())
		if err != nil {
			return &Error{Op: "encode", Err: err}
		}
		in.Pos += n

		if err := c.enc.Flush(); err != nil {
			return &Error{Op: "encode", Err: err}
		}
	}

	c.drain(out)
	return nil
}

// Close releases the underlying encoder. No further bytes are produced
// after Close; call it once the owning pipeline has observed end-of-stream.
func (c *Compressor) Close() error {
	return c.enc.Close()
}

func (c *Compressor) available() int {
	return c.sink.Len() - c.consumed
}

func (c *Compressor) drain(out *Cursor) {
	pending := c.sink.Bytes()[c.consumed:]
	n := copy(out.Room(), pending)
	out.Pos += n
	c.consumed += n

	if c.consumed == c.sink.Len() {
		c.sink.Reset()
		c.consumed = 0
	}
}

// Decompressor adapts a klauspost/compress/zstd streaming Decoder — which
// is pull-based over an io.Reader — to the push-based cursor contract. It
// bridges the two with an io.Pipe and a background goroutine that drives
// the Decoder continuously; decoded output accumulates in out until Decode
// drains it.
//
// Because the pump goroutine runs independently of Decode's calls, a naive
// "write then immediately read back d.out" sequence races: pw.Write only
// guarantees the bytes were handed to the pump's in-flight Read, not that
// the pump has finished decoding and appending them to out. epoch/waiting,
// guarded by mu and signaled through cond, close that race: epoch ticks
// once per completed pump iteration (so waiting for it to advance past a
// pre-write snapshot proves that iteration, and its append, has happened),
// and waiting is true for exactly as long as the pump is blocked inside a
// Read on the pipe — which, since the pipe only blocks when nothing has
// been written yet, is precisely the signal that no more output is coming
// without a further Write. Together they let Decode block exactly long
// enough to observe either genuine output, a decode error, or proof of
// idleness, so calling Decode repeatedly with an exhausted in cursor
// reliably drains the decoder's full backlog instead of an arbitrary
// in-flight snapshot of it — both mid-stream, when one compressed chunk
// decompresses to more than fits in a single out buffer, and at
// end-of-stream, after the final chunk has been written.
//
// This assumes Decode is only ever called sequentially by one goroutine at
// a time, which holds because each pipeline direction owns exactly one
// Decompressor and drives it from a single backend loop.
type Decompressor struct {
	pw   *io.PipeWriter
	dec  *zstd.Decoder
	done chan struct{}

	mu      sync.Mutex
	cond    *sync.Cond
	out     bytes.Buffer
	outErr  error
	epoch   int
	waiting bool
}

// NewDecompressor creates a Decompressor. Unlike NewCompressor, it takes no
// level — ZSTD_decompressStream has no such parameter.
func NewDecompressor() (*Decompressor, error) {
	pr, pw := io.Pipe()
	d := &Decompressor{pw: pw, done: make(chan struct{})}
	d.cond = sync.NewCond(&d.mu)

	dec, err := zstd.NewReader(&trackedReader{r: pr, d: d})
	if err != nil {
		return nil, &Error{Op: "decode", Err: err}
	}
	d.dec = dec

	go d.pump()
	return d, nil
}

// trackedReader wraps the pipe's read side so the pump goroutine's blocking
// state is observable: waiting is true for exactly as long as a Read call
// is parked inside the pipe waiting for the next Write or Close.
type trackedReader struct {
	r io.Reader
	d *Decompressor
}

func (t *trackedReader) Read(p []byte) (int, error) {
	t.d.mu.Lock()
	t.d.waiting = true
	t.d.cond.Broadcast()
	t.d.mu.Unlock()

	n, err := t.r.Read(p)

	t.d.mu.Lock()
	t.d.waiting = false
	t.d.mu.Unlock()

	return n, err
}

func (d *Decompressor) pump() {
	defer close(d.done)

	buf := make([]byte, 64*1024)
	for {
		n, err := d.dec.Read(buf)

		d.mu.Lock()
		if n > 0 {
			d.out.Write(buf[:n])
		}
		if err != nil {
			if err != io.EOF {
				d.outErr = err
			}
			d.epoch++
			d.cond.Broadcast()
			d.mu.Unlock()
			return
		}
		d.epoch++
		d.cond.Broadcast()
		d.mu.Unlock()
	}
}

// Decode implements Func. Any unconsumed bytes in in are written to the
// decoder first; either way Decode then waits until output is available,
// the decoder has failed, or the decoder has proven it is idle, per the
// handshake documented on Decompressor.
func (d *Decompressor) Decode(_ context.Context, in, out *Cursor) error {
	d.mu.Lock()
	if d.outErr != nil {
		err := d.outErr
		d.mu.Unlock()
		return &Error{Op: "decode", Err: err}
	}
	epochBefore := d.epoch
	d.mu.Unlock()

	wrote := in.Pos < len(in.Data)
	if wrote {
		chunk := in.Remaining()
		in.Pos = len(in.Data)

		if _, err := d.pw.Write(chunk); err != nil {
			return &Error{Op: "decode", Err: err}
		}
	}

	d.mu.Lock()
	if wrote {
		// Wait for the pump iteration that consumed this write to finish
		// appending its output (or erroring) before trusting out/waiting.
		for d.epoch == epochBefore && d.outErr == nil {
			d.cond.Wait()
		}
	}
	for d.out.Len() == 0 && d.outErr == nil && !d.waiting {
		d.cond.Wait()
	}

	if d.outErr != nil {
		err := d.outErr
		d.mu.Unlock()
		return &Error{Op: "decode", Err: err}
	}

	n := copy(out.Room(), d.out.Bytes())
	out.Pos += n
	d.out.Next(n)
	d.mu.Unlock()
	return nil
}

// Close signals end-of-stream to the decoder and waits for its background
// goroutine to exit, matching the "no thread remains alive after teardown"
// invariant.
func (d *Decompressor) Close() error {
	err := d.pw.Close()
	<-d.done
	d.dec.Close()
	return err
}
