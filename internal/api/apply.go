// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// apply.go exposes the genre-apply resolution paths (§6.3's ratingKey and
// genre-list branches, and §6.6's manual-apply variant) as plain management
// endpoints, separate from the Plex webhook entrypoint in webhook.go.
package api

import (
	"encoding/json"
	"net/http"
)

// handleApplyByRatingKey implements GET /genres/apply-by-key: resolve and
// apply a genre-based category for a specific Plex/Jellyfin item, without
// going through the webhook signature/event-shape machinery. Query params
// since this is a GET per §6.6.
func (h *Handler) handleApplyByRatingKey(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	ratingKey := r.URL.Query().Get("rating_key")
	if ratingKey == "" {
		rw.ValidationError("rating_key is required", nil)
		return
	}
	parentRatingKey := r.URL.Query().Get("parent_rating_key")
	grandparentRatingKey := r.URL.Query().Get("grandparent_rating_key")
	result, err := h.loop.ApplyGenreByRatingKey(r.Context(), ratingKey, parentRatingKey, grandparentRatingKey)
	if err != nil {
		writeEngineErr(rw, err)
		return
	}
	rw.Success(result)
}

type applyGenresRequest struct {
	RatingKey string   `json:"rating_key"`
	Genres    []string `json:"genres"`
}

// handleApplyGenres implements POST /genres/apply: apply a category directly
// from an explicit genre list, bypassing session/metadata lookup entirely
// (§6.3's second resolution branch, used when a caller already knows the
// genres and doesn't want another round trip to the media server).
func (h *Handler) handleApplyGenres(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	var req applyGenresRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid request body")
		return
	}
	if len(req.Genres) == 0 {
		rw.ValidationError("genres must be non-empty", nil)
		return
	}
	result, err := h.loop.ApplyGenresNow(r.Context(), req.RatingKey, req.Genres)
	if err != nil {
		writeEngineErr(rw, err)
		return
	}
	rw.Success(result)
}
