// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// savedsequences.go implements the SavedSequence CRUD surface from §6.6,
// backing the "filler sequence" mode of Setting.FillerType (§3, §4.4).
package api

import (
	"encoding/json"
	"net/http"
)

func (h *Handler) handleListSavedSequences(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	seqs, err := h.store.AllSavedSequences(r.Context())
	if err != nil {
		rw.InternalError(err)
		return
	}
	out := make([]savedSequenceDTO, len(seqs))
	for i, s := range seqs {
		out[i] = savedSequenceFromModel(s)
	}
	rw.Success(out)
}

func (h *Handler) handleGetSavedSequence(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, err := parseIDParam(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	seq, ok, err := h.store.SavedSequenceByID(r.Context(), id)
	if err != nil {
		rw.InternalError(err)
		return
	}
	if !ok {
		rw.NotFound("saved sequence not found")
		return
	}
	rw.Success(savedSequenceFromModel(seq))
}

func (h *Handler) handleCreateSavedSequence(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	var dto savedSequenceDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rw.BadRequest("invalid request body")
		return
	}
	if dto.Name == "" {
		rw.ValidationError("name is required", nil)
		return
	}
	dto.ID = 0
	seq, err := dto.toModel()
	if err != nil {
		rw.ValidationError(err.Error(), nil)
		return
	}
	saved, err := h.store.PutSavedSequence(r.Context(), seq)
	if err != nil {
		rw.ValidationError(err.Error(), nil)
		return
	}
	rw.Created(savedSequenceFromModel(saved))
}

func (h *Handler) handleUpdateSavedSequence(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, err := parseIDParam(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	var dto savedSequenceDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rw.BadRequest("invalid request body")
		return
	}
	dto.ID = id
	seq, err := dto.toModel()
	if err != nil {
		rw.ValidationError(err.Error(), nil)
		return
	}
	saved, err := h.store.PutSavedSequence(r.Context(), seq)
	if err != nil {
		rw.ValidationError(err.Error(), nil)
		return
	}
	rw.Success(savedSequenceFromModel(saved))
}

func (h *Handler) handleDeleteSavedSequence(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, err := parseIDParam(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if err := h.store.DeleteSavedSequence(r.Context(), id); err != nil {
		rw.InternalError(err)
		return
	}
	rw.NoContent()
}
