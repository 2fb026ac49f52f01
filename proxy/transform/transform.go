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

// Package transform implements the cursor-based stream transform adapter
// used by both the blocking and completion-ring backends to turn received
// bytes into bytes ready to be sent, one call at a time.
package transform

import (
	"context"
	"fmt"
)

// Cursor is a position within a byte slice, mirroring ZSTD_inBuffer /
// ZSTD_outBuffer from the original implementation: Pos advances as bytes are
// consumed (for an input cursor) or produced (for an output cursor), and
// never exceeds len(Data).
type Cursor struct {
	Data []byte
	Pos  int
}

// Remaining returns the unconsumed tail of an input cursor.
func (c *Cursor) Remaining() []byte {
	return c.Data[c.Pos:]
}

// Room returns the unwritten tail of an output cursor.
func (c *Cursor) Room() []byte {
	return c.Data[c.Pos:]
}

// Func transforms bytes from in into out. One call must make forward
// progress on in, out, or both, unless in is already fully consumed. After
// Func returns nil, every byte it produced is visible at out.Data[:out.Pos]
// and safe to send immediately — there is no separate flush step.
type Func func(ctx context.Context, in, out *Cursor) error

// Error wraps a failure from the underlying codec, recording which
// direction it occurred in so callers can label metrics distinctly from
// plain I/O failures.
type Error struct {
	Op  string // "encode" or "decode"
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transform: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Identity copies bytes from in to out unchanged, bounded by whichever
// cursor has less room. It is used when compression is disabled, matching
// the NULL-context branch of zstd_proxy_compress_stream/decompress_stream.
func Identity(_ context.Context, in, out *Cursor) error {
	n := copy(out.Room(), in.Remaining())
	in.Pos += n
	out.Pos += n
	return nil
}
