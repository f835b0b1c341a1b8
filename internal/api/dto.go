// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// dto.go defines the wire-facing JSON shapes for internal/model's domain
// types, which deliberately carry no json tags of their own (model.go: "no
// component in this package talks to ... the filesystem" extends to not
// knowing about a wire format either). Each DTO has a fromModel/toModel
// pair; only Step's tagged-sum-type needs real translation logic, since
// Go's zero-value struct encoding can't express "exactly one of two fields"
// the way the domain model's invariant requires.
package api

import (
	"fmt"
	"time"

	"github.com/nexroll/nexroll/internal/model"
)

// parseNaiveLocal parses a schedule date/time string, accepting either a
// bare date or a full naive-local timestamp, per model.go's "naive local"
// convention for Schedule.StartDate/EndDate.
func parseNaiveLocal(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(scheduleDateLayout, s, time.Local); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", s, time.Local)
}

type prerollDTO struct {
	ID                 int64    `json:"id,omitempty"`
	Filename           string   `json:"filename"`
	Path               string   `json:"path"`
	DisplayName        string   `json:"display_name"`
	PrimaryCategoryID  *int64   `json:"primary_category_id,omitempty"`
	AdditionalCategory []int64  `json:"additional_categories,omitempty"`
	DurationSeconds    *float64 `json:"duration_seconds,omitempty"`
	SizeBytes          *int64   `json:"size_bytes,omitempty"`
	Managed            bool     `json:"managed"`
}

func prerollFromModel(p model.Preroll) prerollDTO {
	return prerollDTO{
		ID:                 p.ID,
		Filename:            p.Filename,
		Path:                p.Path,
		DisplayName:         p.DisplayName,
		PrimaryCategoryID:   p.PrimaryCategoryID,
		AdditionalCategory:  p.AdditionalCategory,
		DurationSeconds:     p.DurationSeconds,
		SizeBytes:           p.SizeBytes,
		Managed:             p.Managed,
	}
}

func (d prerollDTO) toModel() model.Preroll {
	return model.Preroll{
		ID:                 d.ID,
		Filename:            d.Filename,
		Path:                d.Path,
		DisplayName:         d.DisplayName,
		PrimaryCategoryID:   d.PrimaryCategoryID,
		AdditionalCategory:  d.AdditionalCategory,
		DurationSeconds:     d.DurationSeconds,
		SizeBytes:           d.SizeBytes,
		Managed:             d.Managed,
	}
}

type categoryDTO struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PlexMode    string `json:"plex_mode"`
	ApplyToPlex bool   `json:"apply_to_plex"`
	IsSystem    bool   `json:"is_system"`
}

func categoryFromModel(c model.Category) categoryDTO {
	return categoryDTO{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		PlexMode:    string(c.PlexMode),
		ApplyToPlex: c.ApplyToPlex,
		IsSystem:    c.IsSystem,
	}
}

func (d categoryDTO) toModel() model.Category {
	mode := model.PlexMode(d.PlexMode)
	if mode == "" {
		mode = model.PlexModeShuffle
	}
	return model.Category{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		PlexMode:    mode,
		ApplyToPlex: d.ApplyToPlex,
		IsSystem:    d.IsSystem,
	}
}

type stepDTO struct {
	Kind       string  `json:"kind"` // "fixed" | "random"
	PrerollIDs []int64 `json:"preroll_ids,omitempty"`
	CategoryID int64   `json:"category_id,omitempty"`
	Count      int     `json:"count,omitempty"`
}

func stepFromModel(s model.Step) stepDTO {
	switch s.Kind() {
	case model.StepKindRandom:
		return stepDTO{Kind: string(model.StepKindRandom), CategoryID: s.Random.CategoryID, Count: s.Random.Count}
	default:
		return stepDTO{Kind: string(model.StepKindFixed), PrerollIDs: s.Fixed.PrerollIDs}
	}
}

// toModel rejects an unrecognized kind rather than silently defaulting, per
// §9's "reject unknown tags at load" guidance for Step decoding.
func (d stepDTO) toModel() (model.Step, error) {
	switch model.StepKind(d.Kind) {
	case model.StepKindFixed:
		return model.Step{Fixed: &model.StepFixed{PrerollIDs: d.PrerollIDs}}, nil
	case model.StepKindRandom:
		return model.Step{Random: &model.StepRandom{CategoryID: d.CategoryID, Count: d.Count}}, nil
	default:
		return model.Step{}, fmt.Errorf("unrecognized step kind %q", d.Kind)
	}
}

func stepsFromModel(steps []model.Step) []stepDTO {
	out := make([]stepDTO, len(steps))
	for i, s := range steps {
		out[i] = stepFromModel(s)
	}
	return out
}

func stepsToModel(dtos []stepDTO) ([]model.Step, error) {
	out := make([]model.Step, len(dtos))
	for i, d := range dtos {
		step, err := d.toModel()
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		out[i] = step
	}
	return out, nil
}

type scheduleDTO struct {
	ID                 int64                    `json:"id,omitempty"`
	Name               string                   `json:"name"`
	Type               string                   `json:"type"`
	StartDate          string                   `json:"start_date"` // RFC3339, naive-local
	EndDate            *string                  `json:"end_date,omitempty"`
	CategoryID         int64                    `json:"category_id"`
	FallbackCategoryID *int64                   `json:"fallback_category_id,omitempty"`
	Shuffle            bool                     `json:"shuffle"`
	Playlist           bool                     `json:"playlist"`
	Priority           int                      `json:"priority"`
	Exclusive          bool                     `json:"exclusive"`
	BlendEnabled       bool                     `json:"blend_enabled"`
	IsActive           bool                     `json:"is_active"`
	RecurrencePattern  *model.RecurrencePattern `json:"recurrence_pattern,omitempty"`
	Sequence           []stepDTO                `json:"sequence,omitempty"`
}

const scheduleDateLayout = "2006-01-02T15:04:05"

func scheduleFromModel(s model.Schedule) scheduleDTO {
	var end *string
	if s.EndDate != nil {
		v := s.EndDate.Format(scheduleDateLayout)
		end = &v
	}
	return scheduleDTO{
		ID:                 s.ID,
		Name:               s.Name,
		Type:               string(s.Type),
		StartDate:          s.StartDate.Format(scheduleDateLayout),
		EndDate:            end,
		CategoryID:         s.CategoryID,
		FallbackCategoryID: s.FallbackCategoryID,
		Shuffle:            s.Shuffle,
		Playlist:           s.Playlist,
		Priority:           s.Priority,
		Exclusive:          s.Exclusive,
		BlendEnabled:       s.BlendEnabled,
		IsActive:           s.IsActive,
		RecurrencePattern:  s.RecurrencePattern,
		Sequence:           stepsFromModel(s.Sequence),
	}
}

func (d scheduleDTO) toModel() (model.Schedule, error) {
	start, err := parseNaiveLocal(d.StartDate)
	if err != nil {
		return model.Schedule{}, fmt.Errorf("start_date: %w", err)
	}
	var endDate *time.Time
	if d.EndDate != nil {
		t, err := parseNaiveLocal(*d.EndDate)
		if err != nil {
			return model.Schedule{}, fmt.Errorf("end_date: %w", err)
		}
		endDate = &t
	}
	sequence, err := stepsToModel(d.Sequence)
	if err != nil {
		return model.Schedule{}, err
	}
	return model.Schedule{
		ID:                 d.ID,
		Name:               d.Name,
		Type:               model.ScheduleType(d.Type),
		StartDate:          start,
		EndDate:            endDate,
		CategoryID:         d.CategoryID,
		FallbackCategoryID: d.FallbackCategoryID,
		Shuffle:            d.Shuffle,
		Playlist:           d.Playlist,
		Priority:           d.Priority,
		Exclusive:          d.Exclusive,
		BlendEnabled:       d.BlendEnabled,
		IsActive:           d.IsActive,
		RecurrencePattern:  d.RecurrencePattern,
		Sequence:           sequence,
	}, nil
}

type holidayPresetDTO struct {
	ID         int64  `json:"id,omitempty"`
	Name       string `json:"name"`
	StartMonth int    `json:"start_month"`
	StartDay   int    `json:"start_day"`
	EndMonth   int    `json:"end_month"`
	EndDay     int    `json:"end_day"`
}

func holidayPresetFromModel(h model.HolidayPreset) holidayPresetDTO {
	return holidayPresetDTO{ID: h.ID, Name: h.Name, StartMonth: h.StartMonth, StartDay: h.StartDay, EndMonth: h.EndMonth, EndDay: h.EndDay}
}

func (d holidayPresetDTO) toModel() model.HolidayPreset {
	return model.HolidayPreset{ID: d.ID, Name: d.Name, StartMonth: d.StartMonth, StartDay: d.StartDay, EndMonth: d.EndMonth, EndDay: d.EndDay}
}

type genreMapDTO struct {
	ID         int64  `json:"id,omitempty"`
	RawLabel   string `json:"raw_label"`
	GenreNorm  string `json:"genre_norm,omitempty"`
	CategoryID int64  `json:"category_id"`
}

func genreMapFromModel(g model.GenreMap) genreMapDTO {
	return genreMapDTO{ID: g.ID, RawLabel: g.RawLabel, GenreNorm: g.GenreNorm, CategoryID: g.CategoryID}
}

func (d genreMapDTO) toModel() model.GenreMap {
	return model.GenreMap{ID: d.ID, RawLabel: d.RawLabel, GenreNorm: d.GenreNorm, CategoryID: d.CategoryID}
}

type savedSequenceDTO struct {
	ID       int64     `json:"id,omitempty"`
	Name     string    `json:"name"`
	Sequence []stepDTO `json:"sequence"`
}

func savedSequenceFromModel(s model.SavedSequence) savedSequenceDTO {
	return savedSequenceDTO{ID: s.ID, Name: s.Name, Sequence: stepsFromModel(s.Sequence)}
}

func (d savedSequenceDTO) toModel() (model.SavedSequence, error) {
	steps, err := stepsToModel(d.Sequence)
	if err != nil {
		return model.SavedSequence{}, err
	}
	return model.SavedSequence{ID: d.ID, Name: d.Name, Sequence: steps}, nil
}

type settingDTO struct {
	PlexURL                string              `json:"plex_url"`
	JellyfinURL             string              `json:"jellyfin_url"`
	ActiveCategory          *int64              `json:"active_category,omitempty"`
	PathMappings            []model.PathMapping `json:"path_mappings"`
	FillerEnabled           bool                `json:"filler_enabled"`
	FillerType              string              `json:"filler_type,omitempty"`
	FillerCategoryID        *int64              `json:"filler_category_id,omitempty"`
	FillerSequenceID        *int64              `json:"filler_sequence_id,omitempty"`
	FillerComingSoonLayout  string              `json:"filler_coming_soon_layout,omitempty"`
	FillerActive            string              `json:"filler_active,omitempty"`
	ClearWhenInactive       bool                `json:"clear_when_inactive"`
	PassiveMode             bool                `json:"passive_mode"`
	GenreAutoApply          bool                `json:"genre_auto_apply"`
	GenrePriorityMode       string              `json:"genre_priority_mode,omitempty"`
	GenreOverrideTTLSeconds int                 `json:"genre_override_ttl_seconds"`
	Timezone                string              `json:"timezone,omitempty"`
}

// settingFromModel deliberately omits PlexToken/JellyfinAPIKey: the
// management API never echoes credentials back, matching the teacher's
// MaskCredential convention for secret-bearing read paths.
func settingFromModel(s model.Setting) settingDTO {
	return settingDTO{
		PlexURL:                 s.PlexURL,
		JellyfinURL:             s.JellyfinURL,
		ActiveCategory:          s.ActiveCategory,
		PathMappings:            s.PathMappings,
		FillerEnabled:           s.FillerEnabled,
		FillerType:              string(s.FillerType),
		FillerCategoryID:        s.FillerCategoryID,
		FillerSequenceID:        s.FillerSequenceID,
		FillerComingSoonLayout:  s.FillerComingSoonLayout,
		FillerActive:            s.FillerActive,
		ClearWhenInactive:       s.ClearWhenInactive,
		PassiveMode:             s.PassiveMode,
		GenreAutoApply:          s.GenreAutoApply,
		GenrePriorityMode:       string(s.GenrePriorityMode),
		GenreOverrideTTLSeconds: int(s.GenreOverrideTTL.Seconds()),
		Timezone:                s.Timezone,
	}
}

// applyTo merges the editable fields of d onto base, preserving the
// engine-owned fields (ActiveCategory, LastScheduleFallback,
// OverrideExpiresAt, LastAppliedValue/Mode) per model.go's ownership
// comment on Setting.
func (d settingDTO) applyTo(base model.Setting) model.Setting {
	base.PlexURL = d.PlexURL
	base.JellyfinURL = d.JellyfinURL
	base.PathMappings = d.PathMappings
	base.FillerEnabled = d.FillerEnabled
	base.FillerType = model.FillerType(d.FillerType)
	base.FillerCategoryID = d.FillerCategoryID
	base.FillerSequenceID = d.FillerSequenceID
	base.FillerComingSoonLayout = d.FillerComingSoonLayout
	base.ClearWhenInactive = d.ClearWhenInactive
	base.PassiveMode = d.PassiveMode
	base.GenreAutoApply = d.GenreAutoApply
	base.GenrePriorityMode = model.GenrePriorityMode(d.GenrePriorityMode)
	base.GenreOverrideTTL = time.Duration(d.GenreOverrideTTLSeconds) * time.Second
	base.Timezone = d.Timezone
	return base
}
