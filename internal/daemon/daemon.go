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

// Package daemon assembles and runs the condgate service: evaluation engine,
// shared cache tier, HTTP API, metrics, and tracing.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/tombee/condgate/internal/config"
	"github.com/tombee/condgate/internal/daemon/api"
	internallog "github.com/tombee/condgate/internal/log"
	"github.com/tombee/condgate/internal/metrics"
	"github.com/tombee/condgate/internal/sharedcache/sqlite"
	"github.com/tombee/condgate/internal/tracing"
	"github.com/tombee/condgate/pkg/condition"
)

// Options contains daemon options set at build time.
type Options struct {
	Version   string
	Commit    string
	BuildDate string

	// ConfigPath, when set, enables hot-reload of the configuration file.
	ConfigPath string
}

// Daemon is the condgate service.
type Daemon struct {
	cfg      *config.Config
	opts     Options
	logger   *slog.Logger
	levelVar *slog.LevelVar
	engine   *condition.Engine
	tracer   *tracing.Provider
	server   *http.Server
	ln       net.Listener

	mu      sync.Mutex
	started bool
}

// New creates a new daemon instance from the given configuration.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Daemon, error) {
	logger, levelVar := internallog.NewLeveled(&internallog.Config{
		Level:  cfg.Log.Level,
		Format: internallog.Format(cfg.Log.Format),
	})
	logger = internallog.WithComponent(logger, "daemon")

	// Shared cache tier is optional; without a path the engine runs
	// local-only.
	var store condition.Store
	if cfg.Cache.SharedPath != "" {
		s, err := sqlite.New(sqlite.Config{Path: cfg.Cache.SharedPath, WAL: true})
		if err != nil {
			return nil, fmt.Errorf("failed to open shared cache: %w", err)
		}
		store = s
		logger.Info("shared cache enabled", slog.String("path", cfg.Cache.SharedPath))
	}

	engine := condition.NewEngine(condition.Config{
		LocalCacheSize:    cfg.Cache.LocalSize,
		CompiledCacheSize: cfg.Cache.CompiledSize,
		SharedStore:       store,
		SharedTTL:         cfg.Cache.SharedTTL,
		SharedTimeout:     cfg.Cache.SharedTimeout,
		Logger:            logger,
	})

	tracer, err := tracing.Init(ctx, tracing.Config{
		Enabled:        cfg.Tracing.Enabled,
		Exporter:       cfg.Tracing.Exporter,
		Endpoint:       cfg.Tracing.Endpoint,
		SampleRate:     cfg.Tracing.SampleRate,
		ServiceVersion: opts.Version,
	})
	if err != nil {
		engine.Close()
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		metrics.NewCollector(engine),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	eh := api.NewEvaluateHandler(engine, logger, tracer.Tracer(), cfg.Server.MaxBatchSize)
	router := api.NewRouter(api.RouterConfig{
		Version:   opts.Version,
		Commit:    opts.Commit,
		BuildDate: opts.BuildDate,
	}, engine, logger, eh)
	router.SetMetricsHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	var limiter *rate.Limiter
	if cfg.Server.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst)
	}

	handler := api.WithRateLimit(router, limiter)
	handler = api.WithRequestLogging(handler, logger)

	return &Daemon{
		cfg:      cfg,
		opts:     opts,
		logger:   logger,
		levelVar: levelVar,
		engine:   engine,
		tracer:   tracer,
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Engine returns the evaluation engine, mainly for tests and embedding.
func (d *Daemon) Engine() *condition.Engine {
	return d.engine
}

// Start begins listening and serving until the context is cancelled. It
// blocks; cancellation triggers a graceful shutdown bounded by the
// configured shutdown timeout.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return fmt.Errorf("daemon already started")
	}
	d.started = true
	d.mu.Unlock()

	ln, err := net.Listen("tcp", d.cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", d.cfg.Server.ListenAddr, err)
	}
	d.ln = ln
	d.logger.Info("daemon listening",
		slog.String("addr", ln.Addr().String()),
		slog.String("version", d.opts.Version))

	if d.opts.ConfigPath != "" {
		watcher, err := config.NewWatcher(d.opts.ConfigPath, d.logger, d.applyReload)
		if err != nil {
			d.logger.Warn("config hot-reload unavailable", slog.Any("error", err))
		} else {
			watcher.Start(ctx)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		if err := d.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return d.shutdown()
	}
}

// applyReload applies the hot-reloadable subset of a freshly loaded
// configuration: log level and shared cache TTL.
func (d *Daemon) applyReload(cfg *config.Config) {
	d.levelVar.Set(internallog.ParseLevel(cfg.Log.Level))
	d.engine.SetSharedTTL(cfg.Cache.SharedTTL)
	d.logger.Info("applied configuration changes",
		slog.String("log_level", cfg.Log.Level),
		slog.Duration("shared_ttl", cfg.Cache.SharedTTL))
}

// shutdown stops the HTTP server gracefully and releases engine and tracing
// resources.
func (d *Daemon) shutdown() error {
	d.logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Server.ShutdownTimeout)
	defer cancel()

	var firstErr error
	if err := d.server.Shutdown(ctx); err != nil {
		firstErr = fmt.Errorf("server shutdown: %w", err)
	}
	if err := d.tracer.Shutdown(ctx); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("tracer shutdown: %w", err)
	}
	if err := d.engine.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("engine close: %w", err)
	}

	d.logger.Info("shutdown complete")
	return firstErr
}
