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
	"sync/atomic"
	"time"

	"github.com/tombee/condgate/pkg/errors"
)

// Store is the capability interface for an optional shared result-cache tier,
// typically backed by a store visible to multiple processes. Implementations
// must honor the context deadline on every call; transport details are their
// own concern.
type Store interface {
	// Get returns the cached result for key and whether it was present.
	Get(ctx context.Context, key string) (value bool, ok bool, err error)

	// Set stores the result for key with the given time-to-live.
	Set(ctx context.Context, key string, value bool, ttl time.Duration) error

	// Close releases the store's resources.
	Close() error
}

// resultCache is the two-tier result store: a bounded local LRU that is always
// present, plus an optional shared Store consulted first. The shared tier is
// strictly best-effort: any error or timeout there degrades the call to
// local-only and is logged at warning level, never surfaced. This fail-open
// stance covers availability only; it is the opposite of the validator's
// fail-closed stance on security.
type resultCache struct {
	local   *lruCache[bool]
	shared  Store        // nil when no shared tier is configured
	ttl     atomic.Int64 // nanoseconds; atomic so hot-reload races safely with writers
	timeout time.Duration
	logger  *slog.Logger
}

func newResultCache(localSize int, shared Store, ttl, timeout time.Duration, logger *slog.Logger) *resultCache {
	rc := &resultCache{
		local:   newLRU[bool](localSize),
		shared:  shared,
		timeout: timeout,
		logger:  logger,
	}
	rc.ttl.Store(int64(ttl))
	return rc
}

// setTTL updates the TTL applied to subsequent shared-tier writes.
func (rc *resultCache) setTTL(ttl time.Duration) {
	rc.ttl.Store(int64(ttl))
}

// lookup returns the cached result for key, trying the shared tier first and
// falling back to the local tier on miss or shared-tier failure. The local
// LRU lock is never held across the network call.
func (rc *resultCache) lookup(ctx context.Context, key string) (bool, bool) {
	if rc.shared != nil {
		getCtx, cancel := context.WithTimeout(ctx, rc.timeout)
		value, ok, err := rc.shared.Get(getCtx, key)
		cancel()
		switch {
		case err != nil:
			cerr := &errors.CacheBackendError{Op: "get", Cause: err}
			rc.logger.Warn("shared cache lookup failed, using local tier", slog.Any("error", cerr))
		case ok:
			// Refresh the local tier so the next hit is free.
			rc.local.put(key, value)
			return value, true
		}
	}

	return rc.local.get(key)
}

// store records an evaluation result in the local tier and, when a shared
// tier is configured, asynchronously in the shared tier. The shared write is
// fire-and-forget with its own timeout so a slow backend never blocks the
// evaluation path; the local tier always holds a superset of recently seen
// results.
func (rc *resultCache) store(key string, value bool) {
	rc.local.put(key, value)

	if rc.shared == nil {
		return
	}
	go func() {
		setCtx, cancel := context.WithTimeout(context.Background(), rc.timeout)
		defer cancel()
		ttl := time.Duration(rc.ttl.Load())
		if err := rc.shared.Set(setCtx, key, value, ttl); err != nil {
			cerr := &errors.CacheBackendError{Op: "set", Cause: err}
			rc.logger.Warn("shared cache store failed", slog.Any("error", cerr))
		}
	}()
}

// size returns the local tier's entry count.
func (rc *resultCache) size() int {
	return rc.local.len()
}
