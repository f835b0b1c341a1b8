// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package reconciler

import (
	"context"
	"errors"
	"testing"

	"github.com/nexroll/nexroll/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeApplier struct {
	current  string
	getErr   error
	setErr   error
	setCalls int
}

func (f *fakeApplier) GetPreroll(ctx context.Context) (string, error) {
	return f.current, f.getErr
}

func (f *fakeApplier) SetPreroll(ctx context.Context, value string) error {
	f.setCalls++
	if f.setErr != nil {
		return f.setErr
	}
	f.current = value
	return nil
}

func activeCategory(id int64) *int64 { return &id }

func TestRun_NoActiveCategory_Skipped(t *testing.T) {
	res := Run(context.Background(), &fakeApplier{}, model.Setting{}, false, false, nil)
	assert.True(t, res.Skipped)
	assert.Equal(t, "no active category", res.SkipReason)
}

func TestRun_BlendActive_Skipped(t *testing.T) {
	setting := model.Setting{ActiveCategory: activeCategory(1), LastAppliedValue: "/a;/b"}
	res := Run(context.Background(), &fakeApplier{}, setting, true, false, nil)
	assert.True(t, res.Skipped)
	assert.Equal(t, "blend mode active", res.SkipReason)
}

func TestRun_ActiveSequence_Skipped(t *testing.T) {
	setting := model.Setting{ActiveCategory: activeCategory(1), LastAppliedValue: "/a,/b"}
	res := Run(context.Background(), &fakeApplier{}, setting, false, false, func() bool { return true })
	assert.True(t, res.Skipped)
	assert.Equal(t, "active schedule has a sequence", res.SkipReason)
}

func TestRun_PassiveModeEmptyActiveSet_Skipped(t *testing.T) {
	setting := model.Setting{ActiveCategory: activeCategory(1), PassiveMode: true, LastAppliedValue: "/a;/b"}
	res := Run(context.Background(), &fakeApplier{}, setting, false, true, nil)
	assert.True(t, res.Skipped)
	assert.Equal(t, "passive mode with no active schedules", res.SkipReason)
}

func TestRun_NoDrift(t *testing.T) {
	applier := &fakeApplier{current: "/media/a.mp4;/media/b.mp4"}
	setting := model.Setting{ActiveCategory: activeCategory(1), LastAppliedValue: "/media/a.mp4;/media/b.mp4"}
	res := Run(context.Background(), applier, setting, false, false, nil)
	require.NoError(t, res.Err)
	assert.False(t, res.DriftFound)
	assert.Equal(t, 0, applier.setCalls)
}

func TestRun_DriftDetectedAndReapplied(t *testing.T) {
	applier := &fakeApplier{current: "/something/else.mp4"}
	setting := model.Setting{ActiveCategory: activeCategory(1), LastAppliedValue: "/media/a.mp4;/media/b.mp4"}
	res := Run(context.Background(), applier, setting, false, false, nil)
	require.NoError(t, res.Err)
	assert.True(t, res.DriftFound)
	assert.True(t, res.Reapplied)
	assert.Equal(t, 1, applier.setCalls)
	assert.Equal(t, "/media/a.mp4;/media/b.mp4", applier.current)
}

func TestRun_ReapplyFails(t *testing.T) {
	applier := &fakeApplier{current: "/something/else.mp4", setErr: errors.New("write failed")}
	setting := model.Setting{ActiveCategory: activeCategory(1), LastAppliedValue: "/media/a.mp4"}
	res := Run(context.Background(), applier, setting, false, false, nil)
	require.Error(t, res.Err)
	assert.True(t, res.DriftFound)
	assert.False(t, res.Reapplied)
}

func TestRun_GetPrerollFails(t *testing.T) {
	applier := &fakeApplier{getErr: errors.New("timeout")}
	setting := model.Setting{ActiveCategory: activeCategory(1), LastAppliedValue: "/media/a.mp4"}
	res := Run(context.Background(), applier, setting, false, false, nil)
	require.Error(t, res.Err)
	assert.False(t, res.DriftFound)
}

func TestRun_NothingAppliedYet_Skipped(t *testing.T) {
	setting := model.Setting{ActiveCategory: activeCategory(1)}
	res := Run(context.Background(), &fakeApplier{}, setting, false, false, nil)
	assert.True(t, res.Skipped)
	assert.Equal(t, "nothing applied yet", res.SkipReason)
}
