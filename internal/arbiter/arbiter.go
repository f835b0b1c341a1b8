// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package arbiter implements the Arbiter (§4.4): given the set of currently
// active schedules and the current Setting, it chooses a single desired
// pre-roll program — exclusive winner, blend, plain-priority winner, filler,
// clear, or "leave as is". Grounded on original_source
// NeXroll/backend/scheduler.py's _check_and_execute_schedules precedence
// chain (exclusive > blend(>=2) > priority/end/start/id), reworked into a
// pure decision function returning a Decision value instead of mutating a
// SQLAlchemy session and calling Plex directly.
package arbiter

import (
	"math/rand"
	"sort"
	"strconv"
	"time"

	"github.com/nexroll/nexroll/internal/model"
	"github.com/nexroll/nexroll/internal/sequence"
)

// Kind is the shape of the desired program the Arbiter decided on.
type Kind string

const (
	KindCategory  Kind = "category"  // apply category's pool, mode = category.PlexMode
	KindSequence  Kind = "sequence"  // apply an ordered expanded path list (always playlist mode, §4.5)
	KindBlend     Kind = "blend"     // apply an interleaved pool, shuffle mode (§4.6.1)
	KindClear     Kind = "clear"     // clear the server's preroll preference
	KindLeaveAsIs Kind = "leave_as_is"
	KindFiller    Kind = "filler"
)

// FallbackUpdate distinguishes "don't touch Setting.LastScheduleFallback"
// from "set it to a value, possibly nil", since the Arbiter sometimes
// records a winner's (possibly-absent) fallback and sometimes leaves the
// stored fallback untouched (blend; no schedules active).
type FallbackUpdate struct {
	Change bool
	Value  *int64
}

// Decision is the Arbiter's single output: exactly one desired program.
type Decision struct {
	Kind Kind

	// CategoryID is set for KindCategory and KindFiller (filler category mode).
	CategoryID *int64
	Mode       model.PlexMode // shuffle or playlist; sequences and blends are given explicit delimiter rules by the caller

	// Paths holds local (untranslated) paths for KindSequence and KindBlend.
	Paths []string

	WinningScheduleID *int64
	Fallback          FallbackUpdate

	// ClearFillerActive is true when a concrete schedule wins: Setting.FillerActive
	// must be cleared (§4.4 invariant).
	ClearFillerActive bool
	// ClearActiveCategory is true when entering filler: Setting.ActiveCategory
	// must be cleared (§4.4 invariant).
	ClearActiveCategory bool
	// NewFillerActive is the "category:<id>" | "sequence:<id>" | "coming_soon:<layout>"
	// value to store when Kind == KindFiller.
	NewFillerActive string

	Reason string
}

// Deps are the Store-backed capabilities the Arbiter needs to expand
// sequences and resolve category pools. All are read-only.
type Deps struct {
	PrerollPool  sequence.PrerollPool
	PrerollByID  func(id int64) (model.Preroll, bool)
	CategoryByID func(id int64) (model.Category, bool)
	Rand         *rand.Rand
}

// Decide implements the full §4.4 precedence chain.
func Decide(active []model.Schedule, setting model.Setting, now time.Time, deps Deps) Decision {
	if setting.PassiveMode && len(active) == 0 {
		return Decision{Kind: KindLeaveAsIs, Reason: "passive mode, no active schedules"}
	}
	if setting.OverrideExpiresAt != nil && setting.OverrideExpiresAt.After(now) {
		return Decision{Kind: KindLeaveAsIs, Reason: "genre override window active"}
	}
	if len(active) > 0 {
		return decideActive(active, deps)
	}
	return decideIdle(setting)
}

func decideActive(active []model.Schedule, deps Deps) Decision {
	exclusive := filter(active, func(s model.Schedule) bool { return s.Exclusive })
	if len(exclusive) > 0 {
		winner := pickWinner(exclusive, false)
		return winnerDecision(winner, deps, "exclusive schedule wins")
	}

	blendSet := filter(active, func(s model.Schedule) bool { return s.BlendEnabled && !s.Exclusive })
	if len(blendSet) >= 2 {
		return blendDecision(blendSet, deps)
	}

	winner := pickWinner(active, true)
	return winnerDecision(winner, deps, "priority/end/start/id winner")
}

func decideIdle(setting model.Setting) Decision {
	if setting.ClearWhenInactive {
		return Decision{Kind: KindClear, ClearActiveCategory: true, ClearFillerActive: true, Reason: "no active schedules, clear_when_inactive"}
	}
	if setting.LastScheduleFallback != nil {
		return Decision{Kind: KindCategory, CategoryID: setting.LastScheduleFallback, Mode: model.PlexModeShuffle, Reason: "no active schedules, falling back to last schedule fallback"}
	}
	if setting.FillerEnabled {
		return fillerDecision(setting)
	}
	return Decision{Kind: KindLeaveAsIs, Reason: "no active schedules, no fallback, filler disabled"}
}

func fillerDecision(setting model.Setting) Decision {
	d := Decision{Kind: KindFiller, ClearActiveCategory: true, Reason: "no active schedules, applying configured filler"}
	switch setting.FillerType {
	case model.FillerTypeSequence:
		if setting.FillerSequenceID != nil {
			d.NewFillerActive = fillerActiveTag("sequence", *setting.FillerSequenceID)
		}
	case model.FillerTypeComingSoon:
		d.NewFillerActive = "coming_soon:" + setting.FillerComingSoonLayout
	default:
		if setting.FillerCategoryID != nil {
			d.CategoryID = setting.FillerCategoryID
			d.Mode = model.PlexModeShuffle
			d.NewFillerActive = fillerActiveTag("category", *setting.FillerCategoryID)
		}
	}
	return d
}

func fillerActiveTag(kind string, id int64) string {
	return kind + ":" + strconv.FormatInt(id, 10)
}

// winnerDecision builds a Decision for a single winning schedule: a sequence
// apply if the schedule carries one (always playlist, §4.5), otherwise a
// plain category apply using the category's configured mode.
func winnerDecision(winner model.Schedule, deps Deps, reason string) Decision {
	fallback := FallbackUpdate{Change: true, Value: winner.FallbackCategoryID}
	id := winner.ID

	if winner.HasSequence() {
		paths, err := sequence.ExpandPaths(winner.Sequence, deps.PrerollPool, deps.PrerollByID, deps.Rand)
		if err != nil {
			return Decision{Kind: KindLeaveAsIs, Reason: "sequence expansion failed: " + err.Error(), WinningScheduleID: &id}
		}
		return Decision{
			Kind:                KindSequence,
			Paths:               paths,
			Mode:                model.PlexModePlaylist,
			WinningScheduleID:   &id,
			Fallback:            fallback,
			ClearFillerActive:   true,
			ClearActiveCategory: false,
			Reason:              reason,
		}
	}

	mode := model.PlexModeShuffle
	if cat, ok := deps.CategoryByID(winner.CategoryID); ok {
		mode = cat.PlexMode
	}
	catID := winner.CategoryID
	return Decision{
		Kind:              KindCategory,
		CategoryID:        &catID,
		Mode:              mode,
		WinningScheduleID: &id,
		Fallback:          fallback,
		ClearFillerActive: true,
		Reason:            reason,
	}
}

// blendDecision builds §4.6.1's interleaved pool across blendSet, emitted as
// shuffle mode.
func blendDecision(blendSet []model.Schedule, deps Deps) Decision {
	sorted := make([]model.Schedule, len(blendSet))
	copy(sorted, blendSet)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	contributions := make([][]string, len(sorted))
	for i, s := range sorted {
		if s.HasSequence() {
			paths, err := sequence.ExpandPaths(s.Sequence, deps.PrerollPool, deps.PrerollByID, deps.Rand)
			if err == nil {
				contributions[i] = paths
			}
			continue
		}
		members, err := deps.PrerollPool(s.CategoryID)
		if err != nil {
			continue
		}
		n := 3
		if len(members) < n {
			n = len(members)
		}
		shuffled := make([]model.Preroll, len(members))
		copy(shuffled, members)
		rng := deps.Rand
		if rng == nil {
			rng = rand.New(rand.NewSource(1))
		}
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		paths := make([]string, n)
		for k := 0; k < n; k++ {
			paths[k] = shuffled[k].Path
		}
		contributions[i] = paths
	}

	paths := interleave(contributions)
	return Decision{
		Kind:              KindBlend,
		Paths:             paths,
		Mode:              model.PlexModeShuffle,
		Fallback:          FallbackUpdate{Change: false},
		ClearFillerActive: true,
		Reason:            "blend mode, 2+ blend-enabled schedules active",
	}
}

// interleave performs round-robin interleave across contribution lists:
// output position i*|B| + j = L_{B[j]}[i] when available (§4.6.1).
func interleave(lists [][]string) []string {
	maxLen := 0
	for _, l := range lists {
		if len(l) > maxLen {
			maxLen = len(l)
		}
	}
	out := make([]string, 0, maxLen*len(lists))
	for i := 0; i < maxLen; i++ {
		for _, l := range lists {
			if i < len(l) {
				out = append(out, l[i])
			}
		}
	}
	return out
}

func filter(schedules []model.Schedule, pred func(model.Schedule) bool) []model.Schedule {
	var out []model.Schedule
	for _, s := range schedules {
		if pred(s) {
			out = append(out, s)
		}
	}
	return out
}

// pickWinner sorts by (-priority, end_date asc w/ max sentinel for null, id
// asc), additionally by start_date asc before id when includeStart is true
// (the plain-winner tie-break; exclusive winners skip start_date per §4.4a).
func pickWinner(schedules []model.Schedule, includeStart bool) model.Schedule {
	sorted := make([]model.Schedule, len(schedules))
	copy(sorted, schedules)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		ae, be := endOrMax(a), endOrMax(b)
		if !ae.Equal(be) {
			return ae.Before(be)
		}
		if includeStart && !a.StartDate.Equal(b.StartDate) {
			return a.StartDate.Before(b.StartDate)
		}
		return a.ID < b.ID
	})
	return sorted[0]
}

func endOrMax(s model.Schedule) time.Time {
	if s.EndDate != nil {
		return *s.EndDate
	}
	return time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)
}

