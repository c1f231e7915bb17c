// Copyright 2026 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics exposes ctxwarden's Prometheus instrumentation: tool
// call counters, firewall escalation/truncation counts, and reindex
// timing/volume gauges, served via promhttp on an opt-in metrics address.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ToolCallsTotal counts every dispatched tool call, labeled by tool
	// name and outcome.
	ToolCallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ctxwarden_tool_calls_total",
		Help: "Total tool calls dispatched, by tool name and outcome.",
	}, []string{"tool", "outcome"})

	// LearningsSavedTotal counts learnings persisted via save_learning.
	LearningsSavedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ctxwarden_learnings_saved_total",
		Help: "Total learnings saved across all sessions.",
	})

	// FirewallTruncationsTotal counts responses cut by the compliance
	// firewall's degraded level.
	FirewallTruncationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ctxwarden_firewall_truncations_total",
		Help: "Total tool responses truncated by the compliance firewall.",
	})

	// FirewallLevelTotal counts how often each escalation level is
	// rendered, labeled by level.
	FirewallLevelTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ctxwarden_firewall_level_total",
		Help: "Total responses rendered at each firewall escalation level.",
	}, []string{"level"})

	// ReindexDuration observes wall-clock reindex time.
	ReindexDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ctxwarden_reindex_duration_seconds",
		Help:    "Time spent per reindex cycle.",
		Buckets: prometheus.DefBuckets,
	})

	// ChunksIndexed is the chunk count from the most recent reindex,
	// labeled by the type of the registered knowledge source each chunk
	// came from ("markdown" for configured sources). Chunks from code
	// directories, collectors, learnings and adapters have no registered
	// source and are counted under the empty label.
	ChunksIndexed = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ctxwarden_chunks_indexed",
		Help: "Chunk count from the most recent reindex, by source type.",
	}, []string{"source_type"})

	// EmbeddingCacheHitsTotal / EmbeddingCacheMissesTotal track the
	// embedding cache's fingerprint hit rate.
	EmbeddingCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ctxwarden_embedding_cache_hits_total",
		Help: "Total embedding cache hits by corpus fingerprint.",
	})
	EmbeddingCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ctxwarden_embedding_cache_misses_total",
		Help: "Total embedding cache misses requiring re-embedding.",
	})

	// Uptime reports process uptime in seconds, updated on each /metrics
	// scrape via a GaugeFunc.
	Uptime = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "ctxwarden_uptime_seconds",
		Help: "Seconds since this process started.",
	}, func() float64 {
		return time.Since(startedAt).Seconds()
	})
)

var startedAt = time.Now()

func init() {
	prometheus.MustRegister(
		ToolCallsTotal,
		LearningsSavedTotal,
		FirewallTruncationsTotal,
		FirewallLevelTotal,
		ReindexDuration,
		ChunksIndexed,
		EmbeddingCacheHitsTotal,
		EmbeddingCacheMissesTotal,
		Uptime,
	)
}

// Handler returns the promhttp handler to mount at "/metrics".
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve starts a blocking HTTP server exposing only /metrics at addr.
// cmd/ctxwarden/serve.go does not call it; that command mounts Handler()
// on its own mux instead.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	return srv.ListenAndServe()
}
