// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides metrics and instrumentation for the
// scoring service.
//
// # Description
//
// Prometheus metrics cover the three write paths (result ingestion,
// parent propagation, expiration sweeps) and the read path (summaries).
// They are exposed on /metrics for Prometheus + Grafana.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const metricsNamespace = "aleutian"

// Subsystem for scoring metrics
const scoringSubsystem = "scoring"

// Metrics holds all Prometheus metrics for the scoring service.
//
// # Fields
//
//   - ResultsSubmitted: Counter of collector results ingested, by type.
//   - PropagationRecomputes: Counter of parent recomputes, by level.
//   - SummaryRequests: Counter of report computations, by scope.
//   - SweepCycles: Counter of expiration sweep cycles, by outcome.
//   - SweepExpired: Counter of expectations forced to failure by sweeps.
//   - RequestDuration: Histogram of HTTP request latency by route/status.
type Metrics struct {
	// ResultsSubmitted counts ingested collector results.
	// Labels: type (PREVENTION, DETECTION, ...)
	ResultsSubmitted *prometheus.CounterVec

	// PropagationRecomputes counts parent score recomputations.
	// Labels: level (asset, asset-group)
	PropagationRecomputes *prometheus.CounterVec

	// SummaryRequests counts report computations.
	// Labels: scope (inject, global, attack_pattern)
	SummaryRequests *prometheus.CounterVec

	// SweepCycles counts expiration sweep cycles.
	// Labels: outcome (completed, failed)
	SweepCycles *prometheus.CounterVec

	// SweepExpired counts rows forced to failure by the sweeper.
	SweepExpired prometheus.Counter

	// RequestDuration measures HTTP request latency.
	// Labels: route, status
	RequestDuration *prometheus.HistogramVec
}

// DefaultMetrics is the singleton instance registered against the default
// Prometheus registry. Initialized by InitMetrics().
var DefaultMetrics *Metrics

// InitMetrics initializes DefaultMetrics against the default registry.
//
// Call once at startup. Calling twice panics on duplicate registration,
// which is intentional: two registrations mean two services in one
// process.
func InitMetrics() *Metrics {
	DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	return DefaultMetrics
}

// NewMetrics creates and registers the metric set against the given
// registerer. Tests pass a fresh prometheus.NewRegistry() to avoid
// cross-test duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ResultsSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: scoringSubsystem,
				Name:      "results_submitted_total",
				Help:      "Total collector results ingested by expectation type",
			},
			[]string{"type"},
		),
		PropagationRecomputes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: scoringSubsystem,
				Name:      "propagation_recomputes_total",
				Help:      "Total parent score recomputations by hierarchy level",
			},
			[]string{"level"},
		),
		SummaryRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: scoringSubsystem,
				Name:      "summary_requests_total",
				Help:      "Total report computations by scope",
			},
			[]string{"scope"},
		),
		SweepCycles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: scoringSubsystem,
				Name:      "sweep_cycles_total",
				Help:      "Total expiration sweep cycles by outcome",
			},
			[]string{"outcome"},
		),
		SweepExpired: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: scoringSubsystem,
				Name:      "sweep_expired_total",
				Help:      "Total expectations forced to failure by expiration sweeps",
			},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: scoringSubsystem,
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency by route and status",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "status"},
		),
	}
}
