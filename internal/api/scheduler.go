// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// scheduler.go implements the §6.6 "scheduler start|stop|status|run-now"
// management endpoints. The ControlLoop itself is normally driven by
// internal/supervisor as a restarting suture.Service; schedulerState is a
// thin operator-facing facade that owns its own cancellable run so an
// operator can pause/resume the tick without tearing down the rest of the
// supervisor tree, mirroring the teacher's sync-manager start/stop toggle in
// internal/api/handler.go.
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/nexroll/nexroll/internal/logging"
)

// schedulerState tracks whether the ControlLoop's goroutine is currently
// running, for the management API's status endpoint.
type schedulerState struct {
	loop Loop

	mu        sync.Mutex
	running   bool
	startedAt *time.Time
	cancel    context.CancelFunc
	done      chan struct{}
}

func newSchedulerState(loop Loop) *schedulerState {
	return &schedulerState{loop: loop}
}

// Start launches loop.Serve in a background goroutine if not already
// running. Idempotent: a second Start while already running is a no-op.
func (s *schedulerState) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true
	now := time.Now()
	s.startedAt = &now

	go func() {
		defer close(s.done)
		if err := s.loop.Serve(runCtx); err != nil && runCtx.Err() == nil {
			logging.Error().Err(err).Str("component", "api.scheduler").Msg("control loop exited unexpectedly")
		}
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()
}

// Stop cancels the running loop and waits for it to drain, per §5's
// cancellation guarantee ("no partial external writes are left pending").
func (s *schedulerState) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	if done != nil {
		<-done
	}
}

type schedulerStatus struct {
	Running   bool       `json:"running"`
	StartedAt *time.Time `json:"started_at,omitempty"`
}

func (s *schedulerState) Status() schedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return schedulerStatus{Running: s.running, StartedAt: s.startedAt}
}

// StartScheduler starts the control loop the same way POST /scheduler/start
// does. cmd/server/main.go calls this once at boot so the engine begins
// ticking without an operator having to request it first.
func (h *Handler) StartScheduler(ctx context.Context) {
	h.scheduler.Start(ctx)
}

// StopScheduler cancels the running control loop and waits for it to drain,
// used during graceful shutdown.
func (h *Handler) StopScheduler() {
	h.scheduler.Stop()
}

// handleSchedulerStart implements POST /scheduler/start.
func (h *Handler) handleSchedulerStart(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	h.scheduler.Start(context.Background())
	rw.Success(h.scheduler.Status())
}

// handleSchedulerStop implements POST /scheduler/stop.
func (h *Handler) handleSchedulerStop(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	h.scheduler.Stop()
	rw.Success(h.scheduler.Status())
}

// handleSchedulerStatus implements GET /scheduler/status.
func (h *Handler) handleSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	rw.Success(h.scheduler.Status())
}

// handleSchedulerRunNow implements POST /scheduler/run-now: a single
// synchronous tick outside the normal cadence (§6.6).
func (h *Handler) handleSchedulerRunNow(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	h.loop.RunNow(r.Context())
	rw.Success(map[string]string{"status": "ran"})
}
