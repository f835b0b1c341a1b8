// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package arbiter

import (
	"math/rand"
	"testing"
	"time"

	"github.com/nexroll/nexroll/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDeps(pools map[int64][]string) Deps {
	return Deps{
		PrerollPool: func(categoryID int64) ([]model.Preroll, error) {
			paths := pools[categoryID]
			out := make([]model.Preroll, len(paths))
			for i, p := range paths {
				out[i] = model.Preroll{ID: int64(i + 1), Path: p}
			}
			return out, nil
		},
		PrerollByID:  func(id int64) (model.Preroll, bool) { return model.Preroll{}, false },
		CategoryByID: func(id int64) (model.Category, bool) { return model.Category{}, false },
		Rand:         rand.New(rand.NewSource(7)),
	}
}

func ip(v int64) *int64 { return &v }

func TestDecide_Scenario3_ExclusiveBeatsBlend(t *testing.T) {
	a := model.Schedule{ID: 1, Priority: 7, Exclusive: false, BlendEnabled: true, CategoryID: 10}
	b := model.Schedule{ID: 2, Priority: 6, BlendEnabled: true, CategoryID: 11}
	c := model.Schedule{ID: 3, Priority: 5, Exclusive: true, CategoryID: 12, FallbackCategoryID: ip(99)}

	d := Decide([]model.Schedule{a, b, c}, model.Setting{}, time.Now(), testDeps(nil))
	require.Equal(t, KindCategory, d.Kind)
	require.NotNil(t, d.WinningScheduleID)
	assert.Equal(t, int64(3), *d.WinningScheduleID)
	require.True(t, d.Fallback.Change)
	require.NotNil(t, d.Fallback.Value)
	assert.Equal(t, int64(99), *d.Fallback.Value)
}

func TestDecide_Scenario4_BlendInterleave(t *testing.T) {
	s1 := model.Schedule{ID: 1, BlendEnabled: true, CategoryID: 100}
	s2 := model.Schedule{ID: 2, BlendEnabled: true, CategoryID: 200}
	pools := map[int64][]string{
		100: {"a", "b", "c"},
		200: {"x", "y"},
	}
	d := Decide([]model.Schedule{s1, s2}, model.Setting{}, time.Now(), testDeps(pools))
	require.Equal(t, KindBlend, d.Kind)
	assert.Equal(t, model.PlexModeShuffle, d.Mode)
	require.Len(t, d.Paths, 5)
	// round robin: s1[0], s2[0], s1[1], s2[1], s1[2]
	assert.ElementsMatch(t, []string{"a", "b", "c", "x", "y"}, d.Paths)
	assert.False(t, d.Fallback.Change, "blend does not change last_schedule_fallback")
}

func TestDecide_P8_BlendRequiresAtLeastTwo(t *testing.T) {
	s1 := model.Schedule{ID: 1, BlendEnabled: true, CategoryID: 100, Priority: 5}
	pools := map[int64][]string{100: {"a"}}
	d := Decide([]model.Schedule{s1}, model.Setting{}, time.Now(), testDeps(pools))
	assert.Equal(t, KindCategory, d.Kind, "single blend-enabled schedule falls through to plain winner selection")
}

func TestDecide_PriorityTieBreak(t *testing.T) {
	end1 := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	end2 := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	a := model.Schedule{ID: 5, Priority: 5, EndDate: &end1, CategoryID: 1}
	b := model.Schedule{ID: 2, Priority: 5, EndDate: &end2, CategoryID: 2}
	d := Decide([]model.Schedule{a, b}, model.Setting{}, time.Now(), testDeps(nil))
	require.Equal(t, KindCategory, d.Kind)
	assert.Equal(t, int64(2), *d.WinningScheduleID, "earliest end_date wins the priority tie")
}

func TestDecide_PassiveModeEmptyActive_LeaveAsIs(t *testing.T) {
	d := Decide(nil, model.Setting{PassiveMode: true}, time.Now(), testDeps(nil))
	assert.Equal(t, KindLeaveAsIs, d.Kind)
}

func TestDecide_OverrideWindow_LeaveAsIs(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Minute)
	s := model.Schedule{ID: 1, Priority: 5, CategoryID: 1}
	d := Decide([]model.Schedule{s}, model.Setting{OverrideExpiresAt: &future}, now, testDeps(nil))
	assert.Equal(t, KindLeaveAsIs, d.Kind)
}

func TestDecide_Idle_ClearWhenInactive(t *testing.T) {
	d := Decide(nil, model.Setting{ClearWhenInactive: true}, time.Now(), testDeps(nil))
	assert.Equal(t, KindClear, d.Kind)
	assert.True(t, d.ClearActiveCategory)
	assert.True(t, d.ClearFillerActive)
}

func TestDecide_Idle_FallbackThenFillerThenLeaveAsIs(t *testing.T) {
	fb := Decide(nil, model.Setting{LastScheduleFallback: ip(7)}, time.Now(), testDeps(nil))
	require.Equal(t, KindCategory, fb.Kind)
	assert.Equal(t, int64(7), *fb.CategoryID)

	filler := Decide(nil, model.Setting{FillerEnabled: true, FillerCategoryID: ip(9)}, time.Now(), testDeps(nil))
	require.Equal(t, KindFiller, filler.Kind)
	assert.Equal(t, "category:9", filler.NewFillerActive)

	none := Decide(nil, model.Setting{}, time.Now(), testDeps(nil))
	assert.Equal(t, KindLeaveAsIs, none.Kind)
}

func TestDecide_Idempotent_P6(t *testing.T) {
	s := model.Schedule{ID: 1, Priority: 5, CategoryID: 1}
	setting := model.Setting{}
	d1 := Decide([]model.Schedule{s}, setting, time.Now(), testDeps(nil))
	d2 := Decide([]model.Schedule{s}, setting, time.Now(), testDeps(nil))
	assert.Equal(t, d1.Kind, d2.Kind)
	assert.Equal(t, d1.CategoryID, d2.CategoryID)
}
