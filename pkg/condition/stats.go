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
	"sync/atomic"
	"time"
)

// Stats tracks evaluation counters for the lifetime of the process. All
// updates are lock-free atomics so recording never blocks the evaluation
// path.
type Stats struct {
	requests    atomic.Int64
	hits        atomic.Int64
	misses      atomic.Int64
	errors      atomic.Int64
	compiles    atomic.Int64
	evaluations atomic.Int64
	totalMicros atomic.Int64
	started     time.Time
}

// NewStats creates a Stats tracker with the uptime clock starting now.
func NewStats() *Stats {
	return &Stats{started: time.Now()}
}

func (s *Stats) recordRequest()    { s.requests.Add(1) }
func (s *Stats) recordHit()        { s.hits.Add(1) }
func (s *Stats) recordMiss()       { s.misses.Add(1) }
func (s *Stats) recordError()      { s.errors.Add(1) }
func (s *Stats) recordCompile()    { s.compiles.Add(1) }
func (s *Stats) recordEvaluation() { s.evaluations.Add(1) }

func (s *Stats) recordLatency(d time.Duration) {
	s.totalMicros.Add(d.Microseconds())
}

// Snapshot is a point-in-time copy of the counters with derived values.
type Snapshot struct {
	Requests    int64   `json:"requests"`
	Hits        int64   `json:"cache_hits"`
	Misses      int64   `json:"cache_misses"`
	Errors      int64   `json:"errors"`
	Compiles    int64   `json:"compiles"`
	Evaluations int64   `json:"evaluations"`
	AvgLatency  float64 `json:"avg_response_time"` // seconds
	HitRate     float64 `json:"cache_hit_rate"`    // percent
	Uptime      float64 `json:"uptime"`            // seconds
}

// Snapshot returns a consistent read-only view of the counters. The average
// latency is derived from a cumulative total rather than a stored history.
func (s *Stats) Snapshot() Snapshot {
	snap := Snapshot{
		Requests:    s.requests.Load(),
		Hits:        s.hits.Load(),
		Misses:      s.misses.Load(),
		Errors:      s.errors.Load(),
		Compiles:    s.compiles.Load(),
		Evaluations: s.evaluations.Load(),
		Uptime:      time.Since(s.started).Seconds(),
	}
	if snap.Requests > 0 {
		snap.AvgLatency = float64(s.totalMicros.Load()) / float64(snap.Requests) / 1e6
	}
	if lookups := snap.Hits + snap.Misses; lookups > 0 {
		snap.HitRate = float64(snap.Hits) / float64(lookups) * 100
	}
	return snap
}
