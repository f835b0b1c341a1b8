// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TickDuration observes the wall time of one full
	// genre->schedule->verify tick (§5).
	TickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "controlloop_tick_duration_seconds",
			Help:    "Duration of one control loop tick",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	// TickErrors counts ticks that aborted a sub-step early, labeled by the
	// sub-step name (genre, schedule, verify).
	TickErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "controlloop_tick_errors_total",
			Help: "Total number of control loop sub-steps that aborted with an error",
		},
		[]string{"stage"},
	)

	// ArbiterDecisions counts every Decision the Arbiter returns, labeled by
	// Kind (§4.4).
	ArbiterDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbiter_decisions_total",
			Help: "Total number of Arbiter decisions, by kind",
		},
		[]string{"kind"},
	)

	// AdapterRequests counts outbound ServerAdapter calls, labeled by backend
	// (plex, jellyfin) and result (success, failure).
	AdapterRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adapter_requests_total",
			Help: "Total number of outbound media server adapter requests",
		},
		[]string{"adapter", "result"},
	)

	// AdapterRequestDuration observes outbound ServerAdapter call latency.
	AdapterRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adapter_request_duration_seconds",
			Help:    "Duration of outbound media server adapter requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"adapter"},
	)

	// CircuitBreakerState reports each named breaker's current state
	// (0=closed, 1=half-open, 2=open), per sony/gobreaker's State enum.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// CircuitBreakerConsecutiveFailures tracks each named breaker's current
	// consecutive-failure count.
	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	// CircuitBreakerTransitions counts every state transition a named
	// breaker makes.
	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// CircuitBreakerRequests counts every call a named breaker guards,
	// labeled by outcome (success, failure, rejected).
	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through a circuit breaker",
		},
		[]string{"name", "result"},
	)

	// ReconcilerDrift counts Reconciler passes that found the media server's
	// applied value no longer matched Setting.LastAppliedValue (§4.8).
	ReconcilerDrift = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reconciler_drift_total",
			Help: "Total number of reconciler passes that detected drift",
		},
	)

	// ReconcilerReapply counts Reconciler passes that successfully reapplied
	// after detecting drift.
	ReconcilerReapply = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reconciler_reapply_total",
			Help: "Total number of reconciler passes that reapplied after drift",
		},
	)

	// GenreApplications counts genre-driven overrides the engine applied
	// (§4.7).
	GenreApplications = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "genre_applications_total",
			Help: "Total number of genre-driven preroll overrides applied",
		},
	)

	// EventsPublished counts events successfully handed to the optional
	// internal/eventbus publisher (§4.12), labeled by topic.
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventbus_events_published_total",
			Help: "Total number of events published to the optional event bus",
		},
		[]string{"topic"},
	)
)

// RecordTick records one control loop tick's duration.
func RecordTick(d time.Duration) {
	TickDuration.Observe(d.Seconds())
}

// RecordTickError records a sub-step failure by stage name ("genre",
// "schedule", "verify").
func RecordTickError(stage string) {
	TickErrors.WithLabelValues(stage).Inc()
}

// RecordArbiterDecision records one Decision.Kind.
func RecordArbiterDecision(kind string) {
	ArbiterDecisions.WithLabelValues(kind).Inc()
}

// RecordAdapterRequest records one outbound adapter call's outcome and
// latency.
func RecordAdapterRequest(adapter string, d time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	AdapterRequests.WithLabelValues(adapter, result).Inc()
	AdapterRequestDuration.WithLabelValues(adapter).Observe(d.Seconds())
}

// SetCircuitBreakerState reports a named breaker's current numeric state.
func SetCircuitBreakerState(name string, state float64) {
	CircuitBreakerState.WithLabelValues(name).Set(state)
}

// RecordReconcilerPass records whether a Reconciler pass found drift and
// whether it successfully reapplied.
func RecordReconcilerPass(driftFound, reapplied bool) {
	if driftFound {
		ReconcilerDrift.Inc()
	}
	if reapplied {
		ReconcilerReapply.Inc()
	}
}

// RecordGenreApplication records one successful genre-driven override apply.
func RecordGenreApplication() {
	GenreApplications.Inc()
}
