// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package api exposes the decision engine's two external HTTP surfaces (§6):

  - The Plex webhook receiver (§6.3): POST /plex/webhook and its
    /webhooks/plex alias, feeding playback events into the ControlLoop's
    synchronous genre-apply entry points.
  - The management API (§6.6): CRUD over Categories, Prerolls, Schedules,
    GenreMaps, HolidayPresets, and SavedSequences; Setting read/update;
    on-demand apply and scheduler control; and read-only diagnostics.

Routing is built on go-chi/chi/v5, following the teacher's chi_router.go
structure: one global middleware stack (request ID, recovery, CORS,
security headers) applied to every route, then per-group middleware
(rate limiting, Basic Auth) layered with r.Route. Unlike the teacher's
RBAC-gated multi-role auth, this package gates the whole mutating surface
behind a single internal/auth.BasicAuthManager, per spec.md §6.6's
"operator" scope — there is only one authenticated caller, not many roles.

Every handler funnels its mutation through internal/store, never through
in-memory state, matching §5's "webhook handlers and the management API
run concurrently but funnel all mutations through the Store" requirement.
*/
package api
