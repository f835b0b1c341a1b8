// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// schedules.go implements the Schedule CRUD surface from §6.6. Validation
// runs model.Schedule.Validate() (end_date >= start_date, priority in
// [0,10]) before the Store ever sees the row.
package api

import (
	"encoding/json"
	"net/http"
)

func (h *Handler) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	scheds, err := h.store.AllSchedules(r.Context())
	if err != nil {
		rw.InternalError(err)
		return
	}
	out := make([]scheduleDTO, len(scheds))
	for i, s := range scheds {
		out[i] = scheduleFromModel(s)
	}
	rw.Success(out)
}

func (h *Handler) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, err := parseIDParam(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	sched, ok, err := h.store.ScheduleByID(r.Context(), id)
	if err != nil {
		rw.InternalError(err)
		return
	}
	if !ok {
		rw.NotFound("schedule not found")
		return
	}
	rw.Success(scheduleFromModel(sched))
}

func (h *Handler) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	var dto scheduleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rw.BadRequest("invalid request body")
		return
	}
	dto.ID = 0
	if dto.Priority == 0 {
		dto.Priority = 5 // §3's documented default
	}
	sched, err := dto.toModel()
	if err != nil {
		rw.ValidationError(err.Error(), nil)
		return
	}
	if err := sched.Validate(); err != nil {
		rw.ValidationError(err.Error(), nil)
		return
	}
	saved, err := h.store.PutSchedule(r.Context(), sched)
	if err != nil {
		rw.ValidationError(err.Error(), nil)
		return
	}
	rw.Created(scheduleFromModel(saved))
}

func (h *Handler) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, err := parseIDParam(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	var dto scheduleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rw.BadRequest("invalid request body")
		return
	}
	dto.ID = id
	sched, err := dto.toModel()
	if err != nil {
		rw.ValidationError(err.Error(), nil)
		return
	}
	if err := sched.Validate(); err != nil {
		rw.ValidationError(err.Error(), nil)
		return
	}
	saved, err := h.store.PutSchedule(r.Context(), sched)
	if err != nil {
		rw.ValidationError(err.Error(), nil)
		return
	}
	rw.Success(scheduleFromModel(saved))
}

func (h *Handler) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, err := parseIDParam(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if err := h.store.DeleteSchedule(r.Context(), id); err != nil {
		rw.InternalError(err)
		return
	}
	rw.NoContent()
}
