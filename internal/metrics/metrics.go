// Billy - MultiGP Race Sync for Discord
// Copyright 2026 North Dakota Drone Racing
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/North-Dakota-Drone-Racing/billy

// Package metrics registers the Prometheus instruments exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Catalog sync metrics

	CatalogTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "billy_catalog_tick_duration_seconds",
			Help:    "Duration of one catalog reconciliation tick",
			Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300},
		},
	)

	CatalogUnitFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "billy_catalog_unit_failures_total",
			Help: "Organizing units skipped in a tick due to provider or store failure",
		},
	)

	RacesDiscovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billy_races_discovered_total",
			Help: "Newly tracked races by publish outcome",
		},
		[]string{"outcome"}, // "published", "already_started", "publish_failed", "rejected"
	)

	RacesRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "billy_races_removed_total",
			Help: "Tracked races deleted because the provider stopped listing them",
		},
	)

	// Status sync metrics

	StatusTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "billy_status_tick_duration_seconds",
			Help:    "Duration of one status reconciliation tick",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60},
		},
	)

	EventTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billy_event_transitions_total",
			Help: "Scheduled-event lifecycle transitions issued",
		},
		[]string{"transition"}, // "start", "end"
	)

	EventTransitionFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "billy_event_transition_failures_total",
			Help: "Scheduled-event transition calls that failed",
		},
	)

	// Provider client metrics

	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billy_provider_requests_total",
			Help: "MultiGP API requests by endpoint and result",
		},
		[]string{"endpoint", "result"}, // result: "success", "failure"
	)

	// Circuit breaker metrics

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "billy_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billy_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billy_circuit_breaker_requests_total",
			Help: "Requests through the circuit breaker by outcome",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "billy_circuit_breaker_consecutive_failures",
			Help: "Consecutive failures observed by the circuit breaker",
		},
		[]string{"name"},
	)

	// Announcement side effect

	AnnouncementsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "billy_announcements_sent_total",
			Help: "Best-effort event announcements delivered to guild channels",
		},
	)
)
