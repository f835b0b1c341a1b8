// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// genremaps.go implements the GenreMap CRUD surface from §6.6.
// genre_norm is always recomputed from raw_label server-side via
// genremapper.Canonical, matching §3's "unique by genre_norm" invariant:
// an operator never has to hand-compute the canonical key themselves.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/nexroll/nexroll/internal/genremapper"
)

func (h *Handler) handleListGenreMaps(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	maps, err := h.store.AllGenreMaps(r.Context())
	if err != nil {
		rw.InternalError(err)
		return
	}
	out := make([]genreMapDTO, len(maps))
	for i, g := range maps {
		out[i] = genreMapFromModel(g)
	}
	rw.Success(out)
}

func (h *Handler) handleCreateGenreMap(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	var dto genreMapDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rw.BadRequest("invalid request body")
		return
	}
	if dto.RawLabel == "" || dto.CategoryID == 0 {
		rw.ValidationError("raw_label and category_id are required", nil)
		return
	}
	dto.ID = 0
	dto.GenreNorm = genremapper.Canonical(dto.RawLabel)
	gm, err := h.store.PutGenreMap(r.Context(), dto.toModel())
	if err != nil {
		rw.ValidationError(err.Error(), nil)
		return
	}
	rw.Created(genreMapFromModel(gm))
}

func (h *Handler) handleUpdateGenreMap(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, err := parseIDParam(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	var dto genreMapDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rw.BadRequest("invalid request body")
		return
	}
	dto.ID = id
	dto.GenreNorm = genremapper.Canonical(dto.RawLabel)
	gm, err := h.store.PutGenreMap(r.Context(), dto.toModel())
	if err != nil {
		rw.ValidationError(err.Error(), nil)
		return
	}
	rw.Success(genreMapFromModel(gm))
}

func (h *Handler) handleDeleteGenreMap(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, err := parseIDParam(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if err := h.store.DeleteGenreMap(r.Context(), id); err != nil {
		rw.InternalError(err)
		return
	}
	rw.NoContent()
}
