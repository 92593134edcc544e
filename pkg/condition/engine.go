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

package condition

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/tombee/condgate/pkg/errors"
)

// Default sizing and timing, matching the service the engine fronts.
const (
	DefaultLocalCacheSize    = 10000
	DefaultCompiledCacheSize = 1000
	DefaultSharedTTL         = time.Hour
	DefaultSharedTimeout     = 2 * time.Second
)

// literalResults maps conditions that are bare boolean literals to their
// value. These bypass key derivation, both caches, and the parser entirely.
var literalResults = map[string]bool{
	"true": true, "True": true, "1": true,
	"false": false, "False": false, "0": false,
}

// Config holds engine construction parameters. Zero values select defaults.
type Config struct {
	// LocalCacheSize bounds the local result tier.
	LocalCacheSize int

	// CompiledCacheSize bounds the compiled-program cache.
	CompiledCacheSize int

	// SharedStore is the optional shared result tier. Leave nil for
	// local-only operation. The engine takes ownership and closes it.
	SharedStore Store

	// SharedTTL is the time-to-live for shared-tier entries.
	SharedTTL time.Duration

	// SharedTimeout bounds each shared-tier call.
	SharedTimeout time.Duration

	// Logger receives warn-level degradation notices. Defaults to
	// slog.Default.
	Logger *slog.Logger
}

// Engine evaluates conditions with validation, sandboxed execution, and
// two-layer memoization. It is safe for concurrent use; construct one per
// process and share it by reference.
type Engine struct {
	compiled *programCache
	results  *resultCache
	stats    *Stats
	logger   *slog.Logger
}

// Outcome is the tagged result of a successful evaluation. A condition that
// legitimately evaluates to false is distinguishable from one that failed:
// failures come back as a non-nil error instead.
type Outcome struct {
	// Result is the boolean the condition evaluated to.
	Result bool

	// Cached reports whether the result came from the result cache.
	Cached bool

	// Duration is the wall time the evaluation took.
	Duration time.Duration
}

// NewEngine constructs an engine from the given configuration.
func NewEngine(cfg Config) *Engine {
	if cfg.LocalCacheSize <= 0 {
		cfg.LocalCacheSize = DefaultLocalCacheSize
	}
	if cfg.CompiledCacheSize <= 0 {
		cfg.CompiledCacheSize = DefaultCompiledCacheSize
	}
	if cfg.SharedTTL <= 0 {
		cfg.SharedTTL = DefaultSharedTTL
	}
	if cfg.SharedTimeout <= 0 {
		cfg.SharedTimeout = DefaultSharedTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		compiled: newProgramCache(cfg.CompiledCacheSize),
		results:  newResultCache(cfg.LocalCacheSize, cfg.SharedStore, cfg.SharedTTL, cfg.SharedTimeout, logger),
		stats:    NewStats(),
		logger:   logger,
	}
}

// Evaluate evaluates a condition against the given variables.
//
// An empty or whitespace-only condition is treated as always satisfied. Bare
// boolean literals short-circuit before any parsing or cache work. Otherwise
// the result cache is consulted, and on a miss the condition is validated,
// compiled, executed in the sandbox, and the result cached.
//
// Errors are always one of the taxonomy types in pkg/errors: *SyntaxError,
// *SecurityViolation, or *EvalError. Results of failed evaluations are never
// cached. Shared-tier failures are absorbed internally.
func (e *Engine) Evaluate(ctx context.Context, condition string, vars map[string]any) (Outcome, error) {
	start := time.Now()
	e.stats.recordRequest()

	condition = strings.TrimSpace(condition)
	if condition == "" {
		e.stats.recordLatency(time.Since(start))
		return Outcome{Result: true, Duration: time.Since(start)}, nil
	}

	if result, ok := literalResults[condition]; ok {
		e.stats.recordLatency(time.Since(start))
		return Outcome{Result: result, Cached: true, Duration: time.Since(start)}, nil
	}

	key := DeriveKey(condition, vars)

	if result, ok := e.results.lookup(ctx, key); ok {
		e.stats.recordHit()
		e.stats.recordLatency(time.Since(start))
		return Outcome{Result: result, Cached: true, Duration: time.Since(start)}, nil
	}
	e.stats.recordMiss()

	program, err := e.compiled.getOrCompile(condition)
	if err != nil {
		e.stats.recordError()
		e.stats.recordLatency(time.Since(start))
		if errors.IsSecurityViolation(err) {
			e.logger.Warn("condition rejected by allow-list",
				slog.String("condition", condition),
				slog.Any("error", err))
		}
		return Outcome{Duration: time.Since(start)}, err
	}
	e.stats.recordCompile()

	e.stats.recordEvaluation()
	result, err := evaluate(program, condition, vars)
	if err != nil {
		e.stats.recordError()
		e.stats.recordLatency(time.Since(start))
		return Outcome{Duration: time.Since(start)}, err
	}

	e.results.store(key, result)
	e.stats.recordLatency(time.Since(start))
	return Outcome{Result: result, Duration: time.Since(start)}, nil
}

// Stats returns the engine's statistics tracker for read-only consumption by
// health and metrics endpoints.
func (e *Engine) Stats() *Stats {
	return e.stats
}

// ResultCacheSize returns the local result tier's entry count.
func (e *Engine) ResultCacheSize() int {
	return e.results.size()
}

// CompiledCacheSize returns the compiled-program cache's entry count.
func (e *Engine) CompiledCacheSize() int {
	return e.compiled.size()
}

// Close releases the shared store, if any.
func (e *Engine) Close() error {
	if e.results.shared != nil {
		if err := e.results.shared.Close(); err != nil {
			return &errors.CacheBackendError{Op: "close", Cause: err}
		}
	}
	return nil
}

// SetSharedTTL updates the time-to-live applied to subsequent shared-tier
// writes. Used by configuration hot-reload.
func (e *Engine) SetSharedTTL(ttl time.Duration) {
	if ttl > 0 {
		e.results.setTTL(ttl)
	}
}
