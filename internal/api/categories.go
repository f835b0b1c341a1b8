// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// categories.go implements the Category CRUD surface and the
// apply-to-plex operation from §6.6, grounded on the teacher's
// per-entity handler-file split in internal/api/*.go.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nexroll/nexroll/internal/model"
)

func (h *Handler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	cats, err := h.store.AllCategories(r.Context())
	if err != nil {
		rw.InternalError(err)
		return
	}
	out := make([]categoryDTO, len(cats))
	for i, c := range cats {
		out[i] = categoryFromModel(c)
	}
	rw.Success(out)
}

func (h *Handler) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, err := parseIDParam(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	cat, ok := h.store.CategoryByID(id)
	if !ok {
		rw.NotFound("category not found")
		return
	}
	rw.Success(categoryFromModel(cat))
}

func (h *Handler) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	var dto categoryDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rw.BadRequest("invalid request body")
		return
	}
	if dto.Name == "" {
		rw.ValidationError("name is required", nil)
		return
	}
	dto.ID = 0
	cat, err := h.store.PutCategory(r.Context(), dto.toModel())
	if err != nil {
		rw.ValidationError(err.Error(), nil)
		return
	}
	rw.Created(categoryFromModel(cat))
}

func (h *Handler) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, err := parseIDParam(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	var dto categoryDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rw.BadRequest("invalid request body")
		return
	}
	dto.ID = id
	cat, err := h.store.PutCategory(r.Context(), dto.toModel())
	if err != nil {
		rw.ValidationError(err.Error(), nil)
		return
	}
	rw.Success(categoryFromModel(cat))
}

func (h *Handler) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, err := parseIDParam(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if err := h.store.DeleteCategory(r.Context(), id); err != nil {
		rw.InternalError(err)
		return
	}
	rw.NoContent()
}

// handleApplyCategoryToPlex implements POST /categories/{id}/apply-to-plex
// (§6.6): a synchronous apply through the same Arbiter/Adapter path the
// ControlLoop itself uses, bypassing schedule evaluation entirely.
func (h *Handler) handleApplyCategoryToPlex(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, err := parseIDParam(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	cat, ok := h.store.CategoryByID(id)
	if !ok {
		rw.NotFound("category not found")
		return
	}
	mode := cat.PlexMode
	if mode == "" {
		mode = model.PlexModeShuffle
	}
	if err := h.loop.ApplyCategoryNow(r.Context(), id, mode); err != nil {
		writeEngineErr(rw, err)
		return
	}
	if err := h.store.SetApplyToPlex(r.Context(), id); err != nil {
		rw.InternalError(err)
		return
	}
	rw.Success(map[string]any{"applied": true, "category_id": id, "mode": string(mode)})
}

func parseIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.New("invalid id path parameter")
	}
	return id, nil
}
