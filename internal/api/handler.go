// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"context"
	"time"

	"github.com/nexroll/nexroll/internal/genremapper"
	"github.com/nexroll/nexroll/internal/model"
	"github.com/nexroll/nexroll/internal/serveradapter"
)

// Store is the persistence surface the management API needs, satisfied by
// *internal/store.Store. Declared here (rather than imported) so this
// package never depends on the DuckDB driver, matching the narrow-interface
// convention internal/controlloop already uses for the same Store type.
type Store interface {
	GetSetting(ctx context.Context) (model.Setting, error)
	UpdateSetting(ctx context.Context, s model.Setting) error

	AllSchedules(ctx context.Context) ([]model.Schedule, error)
	ScheduleByID(ctx context.Context, id int64) (model.Schedule, bool, error)
	PutSchedule(ctx context.Context, sched model.Schedule) (model.Schedule, error)
	DeleteSchedule(ctx context.Context, id int64) error

	AllCategories(ctx context.Context) ([]model.Category, error)
	CategoryByID(id int64) (model.Category, bool)
	PutCategory(ctx context.Context, cat model.Category) (model.Category, error)
	SetApplyToPlex(ctx context.Context, categoryID int64) error
	DeleteCategory(ctx context.Context, id int64) error

	AllPrerolls(ctx context.Context) ([]model.Preroll, error)
	PrerollByID(id int64) (model.Preroll, bool)
	PutPreroll(ctx context.Context, p model.Preroll) (model.Preroll, error)
	DeletePreroll(ctx context.Context, id int64) error

	AllGenreMaps(ctx context.Context) ([]model.GenreMap, error)
	PutGenreMap(ctx context.Context, gm model.GenreMap) (model.GenreMap, error)
	DeleteGenreMap(ctx context.Context, id int64) error

	AllHolidayPresets(ctx context.Context) ([]model.HolidayPreset, error)
	PutHolidayPreset(ctx context.Context, h model.HolidayPreset) (model.HolidayPreset, error)
	DeleteHolidayPreset(ctx context.Context, id int64) error

	AllSavedSequences(ctx context.Context) ([]model.SavedSequence, error)
	SavedSequenceByID(ctx context.Context, id int64) (model.SavedSequence, bool, error)
	PutSavedSequence(ctx context.Context, seq model.SavedSequence) (model.SavedSequence, error)
	DeleteSavedSequence(ctx context.Context, id int64) error

	Ping(ctx context.Context) error
}

// Loop is the subset of *internal/controlloop.Loop the API drives directly.
type Loop interface {
	Serve(ctx context.Context) error
	Stop()
	RunNow(ctx context.Context)
	ApplyCategoryNow(ctx context.Context, categoryID int64, mode model.PlexMode) error
	ApplyGenreByRatingKey(ctx context.Context, ratingKey, parentRatingKey, grandparentRatingKey string) (genremapper.Result, error)
	ApplyGenresNow(ctx context.Context, ratingKey string, genres []string) (genremapper.Result, error)
}

// Handler holds every collaborator the management API and webhook receiver
// need. Grounded on the teacher's internal/api.Handler field-bag shape
// (db/client/sync/config all held directly, no per-handler wiring).
type Handler struct {
	store  Store
	loop   Loop
	plex   serveradapter.ServerAdapter
	jelly  serveradapter.ServerAdapter // nil if Jellyfin is not configured

	webhookSecret string // §6.3, empty disables signature verification

	scheduler *schedulerState
	startedAt time.Time
}

// NewHandler builds a Handler. jelly may be nil when only Plex is
// configured; webhookSecret may be empty to disable §6.3 signature
// verification.
func NewHandler(store Store, loop Loop, plex, jelly serveradapter.ServerAdapter, webhookSecret string) *Handler {
	return &Handler{
		store:         store,
		loop:          loop,
		plex:          plex,
		jelly:         jelly,
		webhookSecret: webhookSecret,
		scheduler:     newSchedulerState(loop),
		startedAt:     time.Now(),
	}
}
