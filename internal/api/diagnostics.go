// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// diagnostics.go implements the small diagnostics surface named in §6.6:
// liveness/readiness probes, a Plex/Jellyfin reachability probe, and a
// minimal system-info/bundle pair for operator troubleshooting. Full
// diagnostic bundling (log capture, redacted config export) is explicitly
// out of scope (§1 Non-goals) — these endpoints report current adapter and
// store health only.
package api

import (
	"net/http"
	"runtime"
	"time"
)

type healthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}

// handleHealthz is a pure liveness probe: it never touches the Store or an
// adapter, so it keeps responding even if DuckDB or Plex/Jellyfin are down.
func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	rw.Success(healthResponse{
		Status:  "ok",
		Uptime:  time.Since(h.startedAt).Round(time.Second).String(),
		Version: "dev",
	})
}

type readinessCheck struct {
	Store bool `json:"store"`
}

// handleReadyz is a readiness probe: it confirms the Store connection is
// actually alive (DuckDB ping), since that is the one dependency every
// request path needs.
func (h *Handler) handleReadyz(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if err := h.store.Ping(r.Context()); err != nil {
		rw.ServiceUnavailable("store not ready")
		return
	}
	rw.Success(readinessCheck{Store: true})
}

type probeResult struct {
	Platform  string `json:"platform"`
	Name      string `json:"name"`
	Version   string `json:"version"`
	Reachable bool   `json:"reachable"`
}

// handlePlexProbe implements GET /plex/probe: a cheap reachability +
// platform check against the configured Plex adapter, used by the
// management UI to validate connectivity without triggering a full apply.
func (h *Handler) handlePlexProbe(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.plex == nil {
		rw.ServiceUnavailable("plex adapter not configured")
		return
	}
	reachable := h.plex.TestConnection(r.Context())
	info, err := h.plex.GetServerInfo(r.Context())
	if err != nil {
		rw.Success(probeResult{Reachable: reachable})
		return
	}
	rw.Success(probeResult{
		Platform:  info.Platform,
		Name:      info.Name,
		Version:   info.Version,
		Reachable: reachable,
	})
}

type systemInfo struct {
	GoVersion string `json:"go_version"`
	NumCPU    int    `json:"num_cpu"`
	Uptime    string `json:"uptime"`
}

// handleSystemInfo implements GET /system/info: minimal runtime info for
// operator troubleshooting, standing in for the broader /system/* surface
// and /diagnostics/bundle named in §6.6 (full bundling is out of scope).
func (h *Handler) handleSystemInfo(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	rw.Success(systemInfo{
		GoVersion: runtime.Version(),
		NumCPU:    runtime.NumCPU(),
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
	})
}
