// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package api provides Chi middleware factories, adapted from the teacher's
// internal/api/chi_middleware.go: CORS and rate limiting stay on
// go-chi/cors and go-chi/httprate; the teacher's multi-role RBAC layer is
// dropped in favor of internal/auth's single-operator Basic Auth gate.
package api

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/nexroll/nexroll/internal/logging"
)

// MiddlewareConfig holds the CORS and rate-limit knobs for the router.
type MiddlewareConfig struct {
	CORSAllowedOrigins []string
	RateLimitRequests  int
	RateLimitWindow    time.Duration
	RateLimitDisabled  bool
}

// DefaultMiddlewareConfig returns a secure default: no CORS origins (must be
// configured explicitly) and a permissive default rate limit.
func DefaultMiddlewareConfig() MiddlewareConfig {
	return MiddlewareConfig{
		CORSAllowedOrigins: []string{},
		RateLimitRequests:  100,
		RateLimitWindow:    time.Minute,
	}
}

// RateLimitConfig names the request/window pair for one route group.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// Endpoint-specific rate limits, matching spec.md §6's split between the
// cheap read-heavy CRUD surface and the more expensive apply/scheduler
// operations that talk to Plex/Jellyfin.
var (
	RateLimitWebhook = RateLimitConfig{Requests: 120, Window: time.Minute}
	RateLimitWrite   = RateLimitConfig{Requests: 30, Window: time.Minute}
	RateLimitApply   = RateLimitConfig{Requests: 20, Window: time.Minute}
	RateLimitAPI     = RateLimitConfig{Requests: 200, Window: time.Minute}
	RateLimitHealth  = RateLimitConfig{Requests: 600, Window: time.Minute}
)

// Middleware builds Chi-compatible middleware from a MiddlewareConfig.
type Middleware struct {
	cfg  MiddlewareConfig
	cors func(http.Handler) http.Handler
}

// NewMiddleware builds a Middleware factory from cfg.
func NewMiddleware(cfg MiddlewareConfig) *Middleware {
	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Plex-Signature"},
		AllowCredentials: false,
		MaxAge:           86400,
	})
	return &Middleware{cfg: cfg, cors: corsHandler}
}

// CORS returns the go-chi/cors handler built from the config.
func (m *Middleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// RateLimit returns an IP-keyed rate limiter for rc, or a no-op when the
// router-wide disable flag is set (useful for tests).
func (m *Middleware) RateLimit(rc RateLimitConfig) func(http.Handler) http.Handler {
	if m.cfg.RateLimitDisabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.LimitByIP(rc.Requests, rc.Window)
}

// RequestIDWithLogging assigns an X-Request-ID (generating one if absent)
// and stashes request/correlation IDs in the request context for
// internal/logging's Ctx* helpers, mirroring the teacher's
// RequestIDWithLogging.
func RequestIDWithLogging() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = logging.GenerateRequestID()
				r.Header.Set("X-Request-ID", requestID)
			}
			w.Header().Set("X-Request-ID", requestID)

			ctx := logging.ContextWithRequestID(r.Context(), requestID)
			ctx = logging.ContextWithNewCorrelationID(ctx)
			chimiddleware.RequestID(next).ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SecurityHeaders sets the response headers the teacher's
// APISecurityHeaders sets: MIME-sniffing, framing, referrer, and
// conditional HSTS.
func SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}
