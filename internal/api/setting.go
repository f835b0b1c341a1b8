// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// setting.go implements the Setting read/update endpoints from §6.6, plus
// the path-mapping diagnostics endpoints SPEC_FULL.md §3 carries forward
// from the original implementation's GET/PUT/test path-mappings handlers so
// PathTranslator is exercised over HTTP, not just internally.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/nexroll/nexroll/internal/model"
	"github.com/nexroll/nexroll/internal/pathtranslator"
)

func (h *Handler) handleGetSetting(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	setting, err := h.store.GetSetting(r.Context())
	if err != nil {
		rw.InternalError(err)
		return
	}
	dto := settingFromModel(setting)
	rw.Success(dto)
}

func (h *Handler) handleUpdateSetting(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	var dto settingDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rw.BadRequest("invalid request body")
		return
	}
	current, err := h.store.GetSetting(r.Context())
	if err != nil {
		rw.InternalError(err)
		return
	}
	updated := dto.applyTo(current)
	if err := h.store.UpdateSetting(r.Context(), updated); err != nil {
		rw.ValidationError(err.Error(), nil)
		return
	}
	rw.Success(settingFromModel(updated))
}

// handleGetPathMappings implements GET /path-mappings (§6.5).
func (h *Handler) handleGetPathMappings(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	setting, err := h.store.GetSetting(r.Context())
	if err != nil {
		rw.InternalError(err)
		return
	}
	rw.Success(setting.PathMappings)
}

// handlePutPathMappings implements PUT /path-mappings (§6.5).
func (h *Handler) handlePutPathMappings(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	var mappings []model.PathMapping
	if err := json.NewDecoder(r.Body).Decode(&mappings); err != nil {
		rw.BadRequest("invalid request body")
		return
	}
	setting, err := h.store.GetSetting(r.Context())
	if err != nil {
		rw.InternalError(err)
		return
	}
	setting.PathMappings = mappings
	if err := h.store.UpdateSetting(r.Context(), setting); err != nil {
		rw.ValidationError(err.Error(), nil)
		return
	}
	rw.Success(mappings)
}

type testPathMappingRequest struct {
	Path string `json:"path"`
}

type testPathMappingResponse struct {
	Input      string `json:"input"`
	Translated string `json:"translated"`
	Matched    bool   `json:"matched"`
}

// handleTestPathMappings implements POST /test-path-mappings: translate a
// single path against the current mapping table without applying anything,
// for operator diagnostics (§4.6.2, SPEC_FULL.md §3).
func (h *Handler) handleTestPathMappings(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	var req testPathMappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid request body")
		return
	}
	setting, err := h.store.GetSetting(r.Context())
	if err != nil {
		rw.InternalError(err)
		return
	}
	translator := pathtranslator.New(setting.PathMappings, true)
	translated := translator.Translate(req.Path)
	rw.Success(testPathMappingResponse{
		Input:      req.Path,
		Translated: translated,
		Matched:    translated != req.Path,
	})
}
