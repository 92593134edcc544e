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

// Package metrics exposes the evaluation engine's statistics as Prometheus
// metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tombee/condgate/pkg/condition"
)

// Collector implements prometheus.Collector over an engine's statistics
// snapshot. It holds no state of its own; every scrape reads fresh counters.
type Collector struct {
	engine *condition.Engine

	requests      *prometheus.Desc
	hits          *prometheus.Desc
	misses        *prometheus.Desc
	errors        *prometheus.Desc
	hitRate       *prometheus.Desc
	avgLatency    *prometheus.Desc
	uptime        *prometheus.Desc
	resultCache   *prometheus.Desc
	compiledCache *prometheus.Desc
}

// NewCollector creates a collector reading from the given engine.
func NewCollector(engine *condition.Engine) *Collector {
	return &Collector{
		engine: engine,
		requests: prometheus.NewDesc("condgate_requests_total",
			"Total number of evaluation requests", nil, nil),
		hits: prometheus.NewDesc("condgate_cache_hits_total",
			"Total number of result cache hits", nil, nil),
		misses: prometheus.NewDesc("condgate_cache_misses_total",
			"Total number of result cache misses", nil, nil),
		errors: prometheus.NewDesc("condgate_errors_total",
			"Total number of evaluation errors", nil, nil),
		hitRate: prometheus.NewDesc("condgate_cache_hit_rate",
			"Result cache hit rate percentage", nil, nil),
		avgLatency: prometheus.NewDesc("condgate_avg_response_time_seconds",
			"Average evaluation time in seconds", nil, nil),
		uptime: prometheus.NewDesc("condgate_uptime_seconds",
			"Service uptime in seconds", nil, nil),
		resultCache: prometheus.NewDesc("condgate_result_cache_entries",
			"Current local result cache entry count", nil, nil),
		compiledCache: prometheus.NewDesc("condgate_compiled_cache_entries",
			"Current compiled expression cache entry count", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.requests
	ch <- c.hits
	ch <- c.misses
	ch <- c.errors
	ch <- c.hitRate
	ch <- c.avgLatency
	ch <- c.uptime
	ch <- c.resultCache
	ch <- c.compiledCache
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.engine.Stats().Snapshot()

	ch <- prometheus.MustNewConstMetric(c.requests, prometheus.CounterValue, float64(snap.Requests))
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(snap.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(snap.Misses))
	ch <- prometheus.MustNewConstMetric(c.errors, prometheus.CounterValue, float64(snap.Errors))
	ch <- prometheus.MustNewConstMetric(c.hitRate, prometheus.GaugeValue, snap.HitRate)
	ch <- prometheus.MustNewConstMetric(c.avgLatency, prometheus.GaugeValue, snap.AvgLatency)
	ch <- prometheus.MustNewConstMetric(c.uptime, prometheus.GaugeValue, snap.Uptime)
	ch <- prometheus.MustNewConstMetric(c.resultCache, prometheus.GaugeValue, float64(c.engine.ResultCacheSize()))
	ch <- prometheus.MustNewConstMetric(c.compiledCache, prometheus.GaugeValue, float64(c.engine.CompiledCacheSize()))
}
