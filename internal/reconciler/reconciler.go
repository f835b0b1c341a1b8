// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package reconciler implements the drift-verification pass (§4.8): on a
// slower cadence than the main tick, read back the media server's preroll
// preference and, if it no longer matches what the engine last applied,
// reapply it.
//
// Grounded on original_source NeXroll/backend/scheduler.py's
// _verify_and_reapply closure, reworked per SPEC_FULL.md's Open Question
// resolution to compare against Setting.LastAppliedValue instead of
// rebuilding the expected string blind to which delimiter the winning
// schedule used — the teacher's documented false-positive risk in §9 no
// longer applies.
package reconciler

import (
	"context"
	"strings"

	"github.com/nexroll/nexroll/internal/engineerr"
	"github.com/nexroll/nexroll/internal/logging"
	"github.com/nexroll/nexroll/internal/model"
)

// Applier is the subset of ServerAdapter the Reconciler needs, narrowed so
// this package never depends on internal/serveradapter directly.
type Applier interface {
	GetPreroll(ctx context.Context) (string, error)
	SetPreroll(ctx context.Context, value string) error
}

// AnyScheduleHasSequence reports whether any currently active schedule
// carries a sequence; sequences self-rotate so the Reconciler must not
// fight the rotation (§4.8 no-op condition).
type AnyScheduleHasSequence func() bool

// Result reports what the Reconciler did on one pass, for logging and tests.
type Result struct {
	Skipped    bool
	SkipReason string
	DriftFound bool
	Reapplied  bool
	Err        error
}

// Run executes one Reconciler pass per §4.8. blendActive, emptyActiveSet
// (whether the Arbiter's input set A of currently-active schedules is
// empty), and hasSequence are read from the same tick's Arbiter evaluation
// so the Reconciler's no-op conditions match what the Arbiter just saw.
func Run(ctx context.Context, applier Applier, setting model.Setting, blendActive, emptyActiveSet bool, hasSequence AnyScheduleHasSequence) Result {
	if setting.ActiveCategory == nil {
		return Result{Skipped: true, SkipReason: "no active category"}
	}
	if blendActive {
		return Result{Skipped: true, SkipReason: "blend mode active"}
	}
	if hasSequence != nil && hasSequence() {
		return Result{Skipped: true, SkipReason: "active schedule has a sequence"}
	}
	if setting.PassiveMode && emptyActiveSet {
		return Result{Skipped: true, SkipReason: "passive mode with no active schedules"}
	}
	if setting.LastAppliedValue == "" {
		return Result{Skipped: true, SkipReason: "nothing applied yet"}
	}

	got, err := applier.GetPreroll(ctx)
	if err != nil {
		logging.Warn().Err(err).Str("component", "reconciler").Str("legacy_tag", "SCHEDULER").Msg("reconciler readback failed")
		return Result{Err: err}
	}

	expected := strings.TrimSpace(setting.LastAppliedValue)
	actual := strings.TrimSpace(got)
	if expected == actual {
		return Result{DriftFound: false}
	}

	logging.Info().Str("component", "reconciler").Str("expected", expected).Str("actual", actual).Msg("preroll drift detected, reapplying")

	if err := applier.SetPreroll(ctx, expected); err != nil {
		wrapped := engineerr.Wrap(engineerr.KindTransport, "reconciler", "reapply after drift", err)
		logging.Warn().Err(wrapped).Str("component", "reconciler").Str("legacy_tag", "SCHEDULER").Msg("reconciler reapply failed")
		return Result{DriftFound: true, Err: wrapped}
	}
	return Result{DriftFound: true, Reapplied: true}
}
