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

// Descriptor mirrors zstd_proxy_descriptor: a raw fd plus any bytes already
// read from it before the engine took ownership (sniffed prefix data that
// must be fed through the transform before real recv()s begin).
type Descriptor struct {
	FD     int
	Prefix []byte
}

// Proxy mirrors zstd_proxy: one listen-side descriptor, one connect-side
// descriptor, and the options shared by both pipelines. ID correlates both
// pipelines' log lines and metrics for one connection.
type Proxy struct {
	ID string

	Options Options
	Listen  Descriptor
	Connect Descriptor
}
