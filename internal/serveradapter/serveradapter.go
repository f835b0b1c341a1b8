// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package serveradapter implements ServerAdapter (§4.6, §6.1, §6.2): a small
// capability interface shared by the Plex and Jellyfin implementations, each
// wrapped in a circuit breaker and a token-bucket rate limiter so a slow or
// unreachable media server degrades gracefully instead of stalling the
// control loop. Grounded on the teacher's internal/sync/circuit_breaker.go
// (gobreaker wiring and state-change logging/metrics) and
// internal/auth/middleware.go (token-bucket limiter shape), reworked from
// per-IP inbound limiting to per-adapter outbound limiting.
package serveradapter

import (
	"context"
	"time"
)

// Delimiter is the separator used when encoding multiple preroll paths into
// a single preference string, per §4.6.
type Delimiter string

const (
	// DelimiterShuffle ("random") lets the server pick one entry per
	// playback. Used for blend output and plex_mode=shuffle category apply.
	DelimiterShuffle Delimiter = ";"
	// DelimiterOrdered ("playlist") plays entries in the given order.
	// Always used for sequences (§4.5) regardless of the schedule's shuffle
	// flag, and for plex_mode=playlist category apply.
	DelimiterOrdered Delimiter = ","
)

// Encode joins paths with the delimiter's separator, per §4.6's "no
// escaping" wire syntax.
func (d Delimiter) Encode(paths []string) string {
	out := ""
	for i, p := range paths {
		if i > 0 {
			out += string(d)
		}
		out += p
	}
	return out
}

// ServerInfo describes the media server host, used by PathTranslator's
// platform validation (§4.6.2).
type ServerInfo struct {
	Platform string // "windows" or "posix"
	Name     string
	Version  string
}

// SessionState mirrors the Player.state values from the Plex/Jellyfin
// session feeds (§6.1/§6.2).
type SessionState string

const (
	SessionPlaying   SessionState = "playing"
	SessionPaused    SessionState = "paused"
	SessionBuffering SessionState = "buffering"
)

// Session is one active playback entry as reported by the media server.
type Session struct {
	RatingKey          string
	ParentRatingKey    string
	GrandparentRatingKey string
	ViewOffset         int64
	State              SessionState
	Genres             []string
}

// ServerAdapter is the capability every media-server backend implements,
// per §4.6's "Two adapters, same shape".
type ServerAdapter interface {
	// GetPreroll reads the currently configured preroll preference value.
	GetPreroll(ctx context.Context) (string, error)
	// SetPreroll writes value and verifies it took effect via readback,
	// trying fallback setter variants per §6.1 before reporting failure.
	SetPreroll(ctx context.Context, value string) error
	// GetServerInfo probes platform/name/version.
	GetServerInfo(ctx context.Context) (ServerInfo, error)
	// TestConnection is a cheap reachability probe.
	TestConnection(ctx context.Context) bool
	// GetSessions lists current playback sessions (§6.1/§6.2).
	GetSessions(ctx context.Context) ([]Session, error)
	// GetGenres fetches Genre tags for a rating key, falling back to
	// parent/grandparent when the item itself carries none (§4.7 step 3).
	GetGenres(ctx context.Context, ratingKey, parentRatingKey, grandparentRatingKey string) ([]string, error)
	// NudgeClient is an optional hook for "aggressive intercept" playback
	// nudging. The default implementation is a no-op (§9 Open Question
	// resolution: no client-side nudge protocol is specified).
	NudgeClient(ctx context.Context, sessionKey string) error
}

// Config holds the shared HTTP/timeout/rate-limit tuning for an adapter,
// independent of which backend it targets.
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	TLSVerify      bool
	RateLimitRPS   float64
	RateLimitBurst int
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 8 * time.Second
	}
	if c.RateLimitRPS <= 0 {
		c.RateLimitRPS = 5
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = 10
	}
	return c
}
