// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// prerolls.go implements the Preroll CRUD surface from §6.6. Upload and
// thumbnail generation are out of scope (§1); these handlers register and
// edit metadata for files the operator has already placed on disk.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

func (h *Handler) handleListPrerolls(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	prerolls, err := h.store.AllPrerolls(r.Context())
	if err != nil {
		rw.InternalError(err)
		return
	}
	out := make([]prerollDTO, len(prerolls))
	for i, p := range prerolls {
		out[i] = prerollFromModel(p)
	}
	rw.Success(out)
}

func (h *Handler) handleGetPreroll(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, err := parseIDParam(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	p, ok := h.store.PrerollByID(id)
	if !ok {
		rw.NotFound("preroll not found")
		return
	}
	rw.Success(prerollFromModel(p))
}

// handleCreatePreroll registers a Preroll. Per §9's ingest-adjacent
// validation decision, a filename containing a wire-syntax separator (`;`
// or `,`) is refused with a state-kind error rather than silently renamed.
func (h *Handler) handleCreatePreroll(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	var dto prerollDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rw.BadRequest("invalid request body")
		return
	}
	if dto.Filename == "" || dto.Path == "" {
		rw.ValidationError("filename and path are required", nil)
		return
	}
	if strings.ContainsAny(dto.Filename, ";,") {
		rw.ValidationError("filename must not contain ';' or ',' (unsupported by the Plex wire syntax)", map[string]string{"filename": dto.Filename})
		return
	}
	dto.ID = 0
	p, err := h.store.PutPreroll(r.Context(), dto.toModel())
	if err != nil {
		rw.ValidationError(err.Error(), nil)
		return
	}
	rw.Created(prerollFromModel(p))
}

func (h *Handler) handleUpdatePreroll(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, err := parseIDParam(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	existing, ok := h.store.PrerollByID(id)
	if !ok {
		rw.NotFound("preroll not found")
		return
	}
	var dto prerollDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rw.BadRequest("invalid request body")
		return
	}
	if strings.ContainsAny(dto.Filename, ";,") {
		rw.ValidationError("filename must not contain ';' or ',' (unsupported by the Plex wire syntax)", map[string]string{"filename": dto.Filename})
		return
	}
	dto.ID = id
	updated := dto.toModel()
	if !existing.Managed {
		// §3 invariant: managed=false prerolls are never mutated on disk;
		// path/filename stay pinned to what was originally mapped.
		updated.Path = existing.Path
		updated.Filename = existing.Filename
		updated.Managed = false
	}
	p, err := h.store.PutPreroll(r.Context(), updated)
	if err != nil {
		rw.ValidationError(err.Error(), nil)
		return
	}
	rw.Success(prerollFromModel(p))
}

// handleDeletePreroll removes the Preroll record. File deletion (iff
// Managed=true) is an upload/ingest-path concern (§1 Non-goals: file
// management beyond what the engine reads is out of scope) and is left to
// the external collaborator that owns disk layout.
func (h *Handler) handleDeletePreroll(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, err := parseIDParam(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if err := h.store.DeletePreroll(r.Context(), id); err != nil {
		rw.InternalError(err)
		return
	}
	rw.NoContent()
}
