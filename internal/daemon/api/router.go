// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package api provides the HTTP API for the condgate daemon.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/tombee/condgate/internal/daemon/httputil"
	"github.com/tombee/condgate/pkg/condition"
)

// RouterConfig holds configuration for the API router.
type RouterConfig struct {
	Version   string
	Commit    string
	BuildDate string
}

// MetricsHandler provides a Prometheus metrics endpoint.
type MetricsHandler interface {
	ServeHTTP(w http.ResponseWriter, r *http.Request)
}

// Router wraps an http.ServeMux with the evaluation API endpoints.
type Router struct {
	mux     *http.ServeMux
	config  RouterConfig
	engine  *condition.Engine
	logger  *slog.Logger
	started time.Time
}

// NewRouter creates a new HTTP router with all API endpoints registered.
func NewRouter(cfg RouterConfig, engine *condition.Engine, logger *slog.Logger, eh *EvaluateHandler) *Router {
	r := &Router{
		mux:     http.NewServeMux(),
		config:  cfg,
		engine:  engine,
		logger:  logger,
		started: time.Now(),
	}

	r.mux.HandleFunc("POST /evaluate", eh.HandleEvaluate)
	r.mux.HandleFunc("POST /batch-evaluate", eh.HandleBatchEvaluate)
	r.mux.HandleFunc("GET /health", r.handleHealth)
	r.mux.HandleFunc("GET /stats", r.handleStats)

	// Root endpoint for basic connectivity check
	r.mux.HandleFunc("GET /", r.handleRoot)

	return r
}

// SetMetricsHandler registers the Prometheus metrics handler.
func (r *Router) SetMetricsHandler(handler MetricsHandler) {
	if handler != nil {
		r.mux.HandleFunc("GET /metrics", handler.ServeHTTP)
	}
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// handleHealth handles GET /health.
func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(r.started).Seconds(),
		"version":   r.config.Version,
	})
}

// handleStats handles GET /stats: a read-only snapshot of the engine's
// statistics tracker plus current cache sizes.
func (r *Router) handleStats(w http.ResponseWriter, req *http.Request) {
	snap := r.engine.Stats().Snapshot()
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"requests":               snap.Requests,
		"cache_hits":             snap.Hits,
		"cache_misses":           snap.Misses,
		"errors":                 snap.Errors,
		"cache_hit_rate":         snap.HitRate,
		"avg_response_time":      snap.AvgLatency,
		"uptime":                 snap.Uptime,
		"result_cache_entries":   r.engine.ResultCacheSize(),
		"compiled_cache_entries": r.engine.CompiledCacheSize(),
	})
}

// handleRoot handles GET /.
func (r *Router) handleRoot(w http.ResponseWriter, req *http.Request) {
	if req.URL.Path != "/" {
		httputil.WriteError(w, http.StatusNotFound, "not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"service": "condgate",
		"version": r.config.Version,
	})
}
