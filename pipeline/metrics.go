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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/zstdproxy/zstdproxy/common"
)

var (
	bytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "bytes_total",
			Help:      "bytes moved per pipeline direction",
		},
		[]string{"direction"},
	)

	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "errors_total",
			Help:      "pipeline errors per direction and backend",
		},
		[]string{"direction", "backend"},
	)
)

func recordBytes(direction Direction, n int) {
	if n <= 0 {
		return
	}
	bytesTotal.WithLabelValues(string(direction)).Add(float64(n))
}

func recordError(direction Direction, backend string) {
	errorsTotal.WithLabelValues(string(direction), backend).Inc()
}
