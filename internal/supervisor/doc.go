// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Why the ControlLoop itself is not a suture.Service here: §6.6 names an
// explicit scheduler start|stop|status|run-now operator surface
// (internal/api/scheduler.go's schedulerState), which already owns the
// ControlLoop's lifecycle with its own cancellable context so an operator
// can pause the tick without tearing down the rest of the process. Handing
// the same Loop to both schedulerState and a suture.Service would let two
// goroutines call Serve concurrently on one Loop, which §5's "cooperative,
// single-flighted" scheduling model forbids. cmd/server/main.go therefore
// starts the ControlLoop once at boot through schedulerState directly; this
// package supervises only the HTTP server and the optional event-bus
// publisher, both of which are safe to restart independently without
// touching tick state.
package supervisor
