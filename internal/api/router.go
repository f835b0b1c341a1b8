// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package api provides HTTP routing using Chi router, adapted from the
// teacher's internal/api/chi_router.go. The route-group-per-concern shape
// is kept; the RBAC/OIDC/newsletter/detection/backup groups are dropped
// since this engine has exactly two surfaces: the Plex webhook (§6.3) and
// a single-operator management API (§6.6) gated by Basic Auth instead of
// role-based middleware.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nexroll/nexroll/internal/auth"
)

// NewRouter assembles the full chi.Router for h: global middleware, the
// always-public webhook and health endpoints, and the Basic-Auth-gated
// management API. authManager may be nil, in which case the management API
// is left open (matching §6.6's "auth is optional, single operator" model
// for local/dev deployments).
func NewRouter(h *Handler, authManager *auth.BasicAuthManager, mw *Middleware) http.Handler {
	if mw == nil {
		mw = NewMiddleware(DefaultMiddlewareConfig())
	}

	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(mw.CORS())
	r.Use(SecurityHeaders())

	requireAuth := func(next http.Handler) http.Handler {
		return auth.RequireBasicAuth(authManager, next)
	}

	// Health/readiness: always public, permissively rate limited, never
	// gated on auth so orchestrators can probe liveness unconditionally.
	r.Route("/healthz", func(r chi.Router) {
		r.Use(mw.RateLimit(RateLimitHealth))
		r.Get("/", h.handleHealthz)
	})
	r.Route("/readyz", func(r chi.Router) {
		r.Use(mw.RateLimit(RateLimitHealth))
		r.Get("/", h.handleReadyz)
	})
	r.Handle("/metrics", promhttp.Handler())

	// Plex webhook receiver: public by design (Plex cannot send Basic Auth
	// credentials), integrity instead enforced by the optional HMAC
	// signature check inside handlePlexWebhook (§6.3).
	r.Route("/plex/webhook", func(r chi.Router) {
		r.Use(mw.RateLimit(RateLimitWebhook))
		r.Post("/", h.handlePlexWebhook)
	})
	r.Route("/webhooks/plex", func(r chi.Router) {
		r.Use(mw.RateLimit(RateLimitWebhook))
		r.Post("/", h.handlePlexWebhook)
	})

	// Management API: everything else, gated by the single-operator Basic
	// Auth manager when configured (§6.6).
	r.Route("/", func(r chi.Router) {
		r.Use(requireAuth)

		r.Route("/categories", func(r chi.Router) {
			r.Use(mw.RateLimit(RateLimitAPI))
			r.Get("/", h.handleListCategories)
			r.Post("/", h.handleCreateCategory)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.handleGetCategory)
				r.Put("/", h.handleUpdateCategory)
				r.Delete("/", h.handleDeleteCategory)
				r.With(mw.RateLimit(RateLimitApply)).Post("/apply-to-plex", h.handleApplyCategoryToPlex)
			})
		})

		r.Route("/prerolls", func(r chi.Router) {
			r.Use(mw.RateLimit(RateLimitWrite))
			r.Get("/", h.handleListPrerolls)
			r.Post("/", h.handleCreatePreroll)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.handleGetPreroll)
				r.Put("/", h.handleUpdatePreroll)
				r.Delete("/", h.handleDeletePreroll)
			})
		})

		r.Route("/schedules", func(r chi.Router) {
			r.Use(mw.RateLimit(RateLimitWrite))
			r.Get("/", h.handleListSchedules)
			r.Post("/", h.handleCreateSchedule)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.handleGetSchedule)
				r.Put("/", h.handleUpdateSchedule)
				r.Delete("/", h.handleDeleteSchedule)
			})
		})

		r.Route("/genre-maps", func(r chi.Router) {
			r.Use(mw.RateLimit(RateLimitWrite))
			r.Get("/", h.handleListGenreMaps)
			r.Post("/", h.handleCreateGenreMap)
			r.Route("/{id}", func(r chi.Router) {
				r.Put("/", h.handleUpdateGenreMap)
				r.Delete("/", h.handleDeleteGenreMap)
			})
		})

		r.Route("/holiday-presets", func(r chi.Router) {
			r.Use(mw.RateLimit(RateLimitWrite))
			r.Get("/", h.handleListHolidayPresets)
			r.Post("/", h.handleCreateHolidayPreset)
			r.Route("/{id}", func(r chi.Router) {
				r.Put("/", h.handleUpdateHolidayPreset)
				r.Delete("/", h.handleDeleteHolidayPreset)
			})
		})

		r.Route("/saved-sequences", func(r chi.Router) {
			r.Use(mw.RateLimit(RateLimitWrite))
			r.Get("/", h.handleListSavedSequences)
			r.Post("/", h.handleCreateSavedSequence)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.handleGetSavedSequence)
				r.Put("/", h.handleUpdateSavedSequence)
				r.Delete("/", h.handleDeleteSavedSequence)
			})
		})

		r.Route("/setting", func(r chi.Router) {
			r.Use(mw.RateLimit(RateLimitAPI))
			r.Get("/", h.handleGetSetting)
			r.Put("/", h.handleUpdateSetting)
		})

		r.Route("/path-mappings", func(r chi.Router) {
			r.Use(mw.RateLimit(RateLimitAPI))
			r.Get("/", h.handleGetPathMappings)
			r.Put("/", h.handlePutPathMappings)
		})
		r.With(mw.RateLimit(RateLimitAPI)).Post("/test-path-mappings", h.handleTestPathMappings)

		r.Route("/genres", func(r chi.Router) {
			r.Use(mw.RateLimit(RateLimitApply))
			r.Post("/apply", h.handleApplyGenres)
			r.Get("/apply-by-key", h.handleApplyByRatingKey)
		})

		r.Route("/scheduler", func(r chi.Router) {
			r.Use(mw.RateLimit(RateLimitAPI))
			r.Post("/start", h.handleSchedulerStart)
			r.Post("/stop", h.handleSchedulerStop)
			r.Get("/status", h.handleSchedulerStatus)
			r.Post("/run-now", h.handleSchedulerRunNow)
		})

		r.Route("/plex", func(r chi.Router) {
			r.Use(mw.RateLimit(RateLimitAPI))
			r.Get("/probe", h.handlePlexProbe)
		})

		r.Route("/system", func(r chi.Router) {
			r.Use(mw.RateLimit(RateLimitAPI))
			r.Get("/info", h.handleSystemInfo)
		})
	})

	return r
}
