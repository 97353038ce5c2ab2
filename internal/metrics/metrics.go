// Didactus - Learning Recommendation and Analytics Engine
// Copyright 2026 The Didactus Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/didactus/didactus

// Package metrics provides Prometheus instrumentation for the engine:
// ranking and matching latency, learner-state cache efficiency, refresher
// runs, and snapshot freshness. Served at /metrics by the API layer.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks ranking/matching call latency.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "didactus_request_duration_seconds",
			Help:    "Duration of ranking and matching requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // "recommend", "match"
	)

	// RequestErrors counts failed ranking/matching calls by fault kind.
	RequestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "didactus_request_errors_total",
			Help: "Total ranking and matching errors by fault kind",
		},
		[]string{"operation", "kind"},
	)

	// DegradedResults counts results served with the degraded flag set.
	DegradedResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "didactus_degraded_results_total",
			Help: "Results computed from stale cache or missing embeddings",
		},
		[]string{"operation"},
	)

	// CandidatesScored tracks candidate set sizes per ranking pass.
	CandidatesScored = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "didactus_candidates_scored",
			Help:    "Number of candidates scored per ranking pass",
			Buckets: []float64{0, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	// LearnerCacheHits counts fresh learner-state cache hits.
	LearnerCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "didactus_learner_cache_hits_total",
			Help: "Fresh learner-state cache hits",
		},
	)

	// LearnerCacheMisses counts learner-state cache misses.
	LearnerCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "didactus_learner_cache_misses_total",
			Help: "Learner-state cache misses requiring a rebuild",
		},
	)

	// LearnerCacheHitRate exposes the fresh-hit rate of the learner-state
	// cache as a percentage.
	LearnerCacheHitRate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "didactus_learner_cache_hit_rate",
			Help: "Fresh-hit rate of the learner-state cache in percent",
		},
	)

	// LearnerCacheStaleServes counts stale fallbacks after upstream failures.
	LearnerCacheStaleServes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "didactus_learner_cache_stale_serves_total",
			Help: "Learner states served stale because the progress store was unreachable",
		},
	)

	// BreakerState exposes the progress-store circuit breaker state
	// (0=closed, 1=half-open, 2=open).
	BreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "didactus_progress_breaker_state",
			Help: "Progress-store circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// RefreshRuns counts refresher runs by family and outcome.
	RefreshRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "didactus_refresh_runs_total",
			Help: "Analytics refresh runs by family and outcome",
		},
		[]string{"family", "outcome"}, // outcome: "ok", "compute_error", "validation_failed", "persist_error"
	)

	// RefreshDuration tracks refresh run duration by family.
	RefreshDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "didactus_refresh_duration_seconds",
			Help:    "Duration of analytics refresh runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"family"},
	)

	// SnapshotAge exposes the age of the current snapshot per family.
	SnapshotAge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "didactus_snapshot_age_seconds",
			Help: "Age of the current published snapshot per family",
		},
		[]string{"family"},
	)

	// SnapshotVersion exposes the current snapshot ID per family.
	SnapshotVersion = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "didactus_snapshot_version",
			Help: "Monotonic ID of the current published snapshot per family",
		},
		[]string{"family"},
	)
)

// ObserveRequest records one ranking/matching call.
func ObserveRequest(operation string, start time.Time, err error, kind string) {
	RequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		RequestErrors.WithLabelValues(operation, kind).Inc()
	}
}
