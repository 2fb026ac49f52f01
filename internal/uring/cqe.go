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

package uring

// CQEFlagMore mirrors IORING_CQE_F_MORE: more completions are coming for
// this request (multishot zero-copy sends produce a notification
// completion in addition to the data completion).
const CQEFlagMore = 1 << 1

// CQE mirrors struct io_uring_cqe.
type CQE struct {
	UserData uint64
	Res      int32
	Flags    uint32
}

// More reports whether the kernel will post another completion for the
// same request (IORING_CQE_F_MORE).
func (c *CQE) More() bool {
	return c.Flags&CQEFlagMore != 0
}
