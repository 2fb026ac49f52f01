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

package common

const (
	// App 应用程序名称
	App = "zstdproxy"

	// Version 应用程序版本
	Version = "v0.0.1"

	// DefaultBufferSize 默认的收发缓冲区大小 (4 MiB)
	//
	// 对应原始实现中 zstd_proxy_options.buffer_size 的默认值
	DefaultBufferSize = 4 << 20

	// DefaultZstdLevel 默认压缩等级
	DefaultZstdLevel = 1

	// DefaultRingDepth 默认 completion-ring 深度
	DefaultRingDepth = 4
)
