// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package metrics exposes Prometheus instrumentation for the decision engine's
control loop, the Arbiter's decision mix, the two ServerAdapter backends, and
their circuit breakers.

# Metrics Endpoint

Metrics are exposed at /metrics in Prometheus text format.

# Available Metrics

Control loop:
  - controlloop_tick_duration_seconds: one full genre->schedule->verify tick (histogram)
  - controlloop_tick_errors_total: ticks that aborted early (counter), labeled by stage

Arbiter:
  - arbiter_decisions_total: decisions made, labeled by kind (category, sequence,
    blend, clear, filler, leave_as_is)

Server adapters:
  - adapter_requests_total: outbound calls, labeled by adapter (plex, jellyfin)
    and result (success, failure)
  - adapter_request_duration_seconds: outbound call latency, labeled by adapter

Circuit breaker:
  - circuit_breaker_state: current state per named breaker (0=closed, 1=half-open, 2=open)

Reconciler:
  - reconciler_drift_total: passes that found the applied value had drifted (counter)
  - reconciler_reapply_total: passes that successfully reapplied after drift (counter)

# See Also

  - internal/controlloop: emits tick and reconciler metrics
  - internal/serveradapter: emits adapter request and circuit breaker metrics
*/
package metrics
