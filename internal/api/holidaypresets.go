// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// holidaypresets.go implements the HolidayPreset CRUD surface from §6.6.
package api

import (
	"encoding/json"
	"net/http"
)

func (h *Handler) handleListHolidayPresets(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	presets, err := h.store.AllHolidayPresets(r.Context())
	if err != nil {
		rw.InternalError(err)
		return
	}
	out := make([]holidayPresetDTO, len(presets))
	for i, p := range presets {
		out[i] = holidayPresetFromModel(p)
	}
	rw.Success(out)
}

func (h *Handler) handleCreateHolidayPreset(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	var dto holidayPresetDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rw.BadRequest("invalid request body")
		return
	}
	if dto.Name == "" {
		rw.ValidationError("name is required", nil)
		return
	}
	dto.ID = 0
	saved, err := h.store.PutHolidayPreset(r.Context(), dto.toModel())
	if err != nil {
		rw.ValidationError(err.Error(), nil)
		return
	}
	rw.Created(holidayPresetFromModel(saved))
}

func (h *Handler) handleUpdateHolidayPreset(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, err := parseIDParam(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	var dto holidayPresetDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rw.BadRequest("invalid request body")
		return
	}
	dto.ID = id
	saved, err := h.store.PutHolidayPreset(r.Context(), dto.toModel())
	if err != nil {
		rw.ValidationError(err.Error(), nil)
		return
	}
	rw.Success(holidayPresetFromModel(saved))
}

func (h *Handler) handleDeleteHolidayPreset(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, err := parseIDParam(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if err := h.store.DeleteHolidayPreset(r.Context(), id); err != nil {
		rw.InternalError(err)
		return
	}
	rw.NoContent()
}
