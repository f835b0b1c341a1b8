// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package model defines the entities the pre-roll decision engine reads and
// writes: Preroll, Category, Schedule, HolidayPreset, GenreMap, Setting, and
// SavedSequence. These are plain data types with small validation helpers;
// no component in this package talks to the Store, a media server, or the
// filesystem.
package model

import (
	"fmt"
	"time"
)

// PlexMode is a Category's play mode for prerolls applied without a sequence.
type PlexMode string

const (
	PlexModeShuffle  PlexMode = "shuffle"
	PlexModePlaylist PlexMode = "playlist"
)

// ScheduleType distinguishes how a Schedule's active window is computed.
type ScheduleType string

const (
	ScheduleMonthly        ScheduleType = "monthly"
	ScheduleYearly         ScheduleType = "yearly"
	ScheduleHoliday        ScheduleType = "holiday"
	ScheduleHolidayDynamic ScheduleType = "holiday_dynamic"
	ScheduleCustom         ScheduleType = "custom"
)

// GenrePriorityMode decides whether a genre override can pre-empt an active schedule.
type GenrePriorityMode string

const (
	GenrePrioritySchedulesOverride GenrePriorityMode = "schedules_override"
	GenrePriorityGenresOverride    GenrePriorityMode = "genres_override"
)

// FillerType names what kind of filler program a non-empty schedule set's
// absence falls back to, recorded in Setting.FillerActive as
// "category:<id>" | "sequence:<id>" | "coming_soon:<layout>".
type FillerType string

const (
	FillerTypeCategory    FillerType = "category"
	FillerTypeSequence    FillerType = "sequence"
	FillerTypeComingSoon  FillerType = "coming_soon"
)

// Preroll is one physical video file known to the engine.
type Preroll struct {
	ID                 int64
	Filename           string
	Path               string
	DisplayName        string
	PrimaryCategoryID  *int64
	AdditionalCategory []int64 // category ids this preroll additionally belongs to
	DurationSeconds    *float64
	SizeBytes          *int64
	Managed            bool
}

// Categories returns the full membership set {primary ∪ additional}, per the
// invariant that a Preroll always belongs to the union of the two.
func (p Preroll) Categories() []int64 {
	out := make([]int64, 0, len(p.AdditionalCategory)+1)
	seen := make(map[int64]bool, len(p.AdditionalCategory)+1)
	if p.PrimaryCategoryID != nil {
		out = append(out, *p.PrimaryCategoryID)
		seen[*p.PrimaryCategoryID] = true
	}
	for _, c := range p.AdditionalCategory {
		if !seen[c] {
			out = append(out, c)
			seen[c] = true
		}
	}
	return out
}

// Category is a named bucket of prerolls with a play mode.
type Category struct {
	ID            int64
	Name          string
	Description   string
	PlexMode      PlexMode
	ApplyToPlex   bool
	IsSystem      bool
}

// RecurrencePattern is the parsed shape of Schedule.RecurrencePattern.
type RecurrencePattern struct {
	TimeRange   *TimeRange `json:"timeRange,omitempty"`
	DaysOfWeek  []int      `json:"daysOfWeek,omitempty"` // Monday=0 .. Sunday=6
	Type        string     `json:"type,omitempty"`       // "holiday_dynamic" when set
	Name        string     `json:"name,omitempty"`
	Country     string     `json:"country,omitempty"`
}

// TimeRange is an HH:MM..HH:MM time-of-day window, possibly overnight.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Schedule binds a category (or a sequence) to a time-bound window.
type Schedule struct {
	ID                   int64
	Name                 string
	Type                 ScheduleType
	StartDate            time.Time // naive local
	EndDate              *time.Time
	CategoryID           int64
	FallbackCategoryID   *int64
	Shuffle              bool
	Playlist             bool
	Priority             int
	Exclusive            bool
	BlendEnabled         bool
	IsActive             bool
	RecurrencePattern    *RecurrencePattern
	Sequence             []Step
	LastRun              *time.Time
	NextRun              *time.Time
}

// Validate enforces the Schedule invariants from §3: end_date >= start_date
// when both are present, and priority in [0,10] (callers should default to 5
// before calling Validate when Priority is unset).
func (s Schedule) Validate() error {
	if s.EndDate != nil && s.EndDate.Before(s.StartDate) {
		return fmt.Errorf("schedule %d: end_date %s before start_date %s", s.ID, s.EndDate, s.StartDate)
	}
	if s.Priority < 0 || s.Priority > 10 {
		return fmt.Errorf("schedule %d: priority %d out of range [0,10]", s.ID, s.Priority)
	}
	if s.CategoryID == 0 {
		return fmt.Errorf("schedule %d: category_id is required", s.ID)
	}
	return nil
}

// HasSequence reports whether the schedule carries a sequence (§4.5), which
// always wins over a plain category apply for that schedule.
func (s Schedule) HasSequence() bool {
	return len(s.Sequence) > 0
}

// HasRandomStep reports whether any step in the sequence is a random draw,
// which the Arbiter uses to decide whether the winning schedule needs
// periodic rotation (§4.4).
func (s Schedule) HasRandomStep() bool {
	for _, step := range s.Sequence {
		if step.Kind() == StepKindRandom {
			return true
		}
	}
	return false
}

// StepKind tags the two known Step variants. Per §9's "reject unknown tags
// at load" guidance, a Step decoded from untrusted JSON with an unrecognized
// type never becomes a Step value at all — see internal/model/step.go.
type StepKind string

const (
	StepKindFixed  StepKind = "fixed"
	StepKindRandom StepKind = "random"
)

// Step is a tagged sum type: exactly one of Fixed or Random is non-nil.
type Step struct {
	Fixed  *StepFixed
	Random *StepRandom
}

// Kind reports which variant this Step holds.
func (s Step) Kind() StepKind {
	if s.Random != nil {
		return StepKindRandom
	}
	return StepKindFixed
}

// StepFixed appends specific prerolls, in order.
type StepFixed struct {
	PrerollIDs []int64
}

// StepRandom draws Count prerolls uniformly without replacement from the
// union-pool of CategoryID.
type StepRandom struct {
	CategoryID int64
	Count      int
}

// HolidayPreset is a named month/day-range preset usable as a schedule source.
type HolidayPreset struct {
	ID          int64
	Name        string
	StartMonth  int
	StartDay    int
	EndMonth    int
	EndDay      int
}

// GenreMap maps a canonical genre key to a category.
type GenreMap struct {
	ID         int64
	RawLabel   string
	GenreNorm  string
	CategoryID int64
}

// SavedSequence is a reusable named sequence of steps (filler sequence mode).
type SavedSequence struct {
	ID       int64
	Name     string
	Sequence []Step
}

// Setting is the process-wide singleton (§3). Only the engine writes
// ActiveCategory, LastScheduleFallback, OverrideExpiresAt, FillerActive,
// LastAppliedValue, and LastAppliedMode; everything else is operator-edited.
type Setting struct {
	PlexURL               string
	PlexToken             string
	JellyfinURL           string
	JellyfinAPIKey        string

	ActiveCategory       *int64
	LastScheduleFallback *int64
	OverrideExpiresAt    *time.Time

	PathMappings []PathMapping

	FillerEnabled           bool
	FillerType              FillerType
	FillerCategoryID        *int64
	FillerSequenceID        *int64
	FillerComingSoonLayout  string
	FillerActive            string // "category:<id>" | "sequence:<id>" | "coming_soon:<layout>" | ""

	ClearWhenInactive bool
	PassiveMode       bool

	GenreAutoApply       bool
	GenrePriorityMode    GenrePriorityMode
	GenreOverrideTTL     time.Duration

	Timezone string

	// LastAppliedValue and LastAppliedMode resolve the Open Question in
	// spec.md §9: the Reconciler compares against what was actually sent,
	// not a rebuilt guess at the delimiter.
	LastAppliedValue string
	LastAppliedMode  string // "shuffle" | "playlist"
}

// PathMapping is one {local, plex} prefix-rewrite rule (§4.6.2, §6.5).
type PathMapping struct {
	Local string `json:"local"`
	Plex  string `json:"plex"`
}

// RecentGenreApplication is one entry in the Engine's bounded ring buffer
// of the last 10 genre-driven applies, kept for UI/diagnostic surfacing
// (§4.7 step 8; §9 "recent applications" singleton).
type RecentGenreApplication struct {
	Genre      string
	CategoryID int64
	RatingKey  string
	AppliedAt  time.Time
}
