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

package controller

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zstdproxy/zstdproxy/logger"
)

// registerRoutes wires the admin HTTP surface: Prometheus exposition and a
// live log-level endpoint, adapted from the teacher's identical routes.
func (c *Controller) registerRoutes() {
	c.admin.RegisterGetRoute("/metrics", promhttp.Handler().ServeHTTP)
	c.admin.RegisterPostRoute("/-/logger", func(w http.ResponseWriter, r *http.Request) {
		level := r.URL.Query().Get("level")
		if level == "" {
			http.Error(w, "missing level query parameter", http.StatusBadRequest)
			return
		}
		logger.SetLoggerLevel(level)
		w.WriteHeader(http.StatusOK)
	})
}
