// Reelsense - Media Recommendation Engine and Preference Learning Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelsense

// Package metrics provides Prometheus instrumentation for:
//   - Recommendation run outcomes and latency
//   - Candidate attrition (resolution drops, quality rejects, backfill)
//   - Preference update rule outcomes
//   - Outbound provider calls and circuit breaker state
//   - Database query performance (DuckDB)
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Recommendation run metrics

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_runs_total",
			Help: "Total recommendation runs by media type and outcome",
		},
		[]string{"media_type", "outcome"}, // outcome: "ok", "failed"
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommend_run_duration_seconds",
			Help:    "Duration of one recommendation run per media type",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"media_type"},
	)

	EntriesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_entries_written_total",
			Help: "Recommendation entries persisted by media type",
		},
		[]string{"media_type"},
	)

	// Candidate pipeline attrition

	CandidatesRetrieved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_candidates_retrieved_total",
			Help: "Candidate ids returned by the similarity-search service",
		},
		[]string{"media_type"},
	)

	ResolveDrops = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_resolve_drops_total",
			Help: "Candidates dropped because their detail fetch failed",
		},
		[]string{"media_type"},
	)

	QualityRejects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_quality_rejects_total",
			Help: "Resolved items rejected by the quality classifier",
		},
		[]string{"media_type"},
	)

	BackfillAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_backfill_attempts_total",
			Help: "Backfill searches launched for rejected items",
		},
		[]string{"media_type"},
	)

	BackfillHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_backfill_hits_total",
			Help: "Backfill searches that produced a passing replacement",
		},
		[]string{"media_type"},
	)

	// Preference update metrics

	RatingUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "preference_updates_total",
			Help: "Preference update rule invocations by outcome",
		},
		[]string{"outcome"}, // "applied", "below_threshold", "dimension_mismatch", "error"
	)

	// Item cache metrics

	ItemCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "item_cache_hits_total",
			Help: "Resolver lookups served from the local item cache",
		},
	)

	ItemCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "item_cache_misses_total",
			Help: "Resolver lookups that required a provider fetch",
		},
	)

	// Outbound provider metrics

	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_requests_total",
			Help: "Outbound provider requests by endpoint and result",
		},
		[]string{"endpoint", "result"}, // result: "success", "failure", "rejected"
	)

	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_request_duration_seconds",
			Help:    "Duration of outbound provider requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Circuit breaker metrics

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Database metrics

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// API metrics

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total API requests by route, method, and status",
		},
		[]string{"route", "method", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(route, method, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(route, method, statusCode).Inc()
	APIRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}
