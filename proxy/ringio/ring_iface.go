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

import "github.com/zstdproxy/zstdproxy/internal/uring"

// ringLike is the subset of *uring.Ring that queue and Backend depend on.
// Narrowing it to an interface lets the slot-scheduling logic in queue.go
// be driven by a fake ring in tests, without a live kernel or a real
// io_uring instance.
type ringLike interface {
	NextSQE() *uring.SQE
	Submit() (int, error)
	WaitCQE() (*uring.CQE, error)
	AdvanceCQ()
	RegisterBuffers(bufs [][]byte) error
	Close() error
}
