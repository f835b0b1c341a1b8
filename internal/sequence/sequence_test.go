// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package sequence

import (
	"math/rand"
	"testing"

	"github.com/nexroll/nexroll/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand_Scenario2_FixedThenRandom(t *testing.T) {
	catalog := map[int64]model.Preroll{
		10: {ID: 10, Path: "/media/a.mp4"},
		11: {ID: 11, Path: "/media/b.mp4"},
		20: {ID: 20, Path: "/media/cat5-x.mp4"},
		21: {ID: 21, Path: "/media/cat5-y.mp4"},
		22: {ID: 22, Path: "/media/cat5-z.mp4"},
	}
	pool := func(categoryID int64) ([]model.Preroll, error) {
		require.Equal(t, int64(5), categoryID)
		return []model.Preroll{catalog[20], catalog[21], catalog[22]}, nil
	}
	byID := func(id int64) (model.Preroll, bool) {
		p, ok := catalog[id]
		return p, ok
	}

	steps := []model.Step{
		{Fixed: &model.StepFixed{PrerollIDs: []int64{10, 11}}},
		{Random: &model.StepRandom{CategoryID: 5, Count: 2}},
	}

	out, err := Expand(steps, pool, byID, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	require.Len(t, out, 4)
	assert.Equal(t, int64(10), out[0].ID)
	assert.Equal(t, int64(11), out[1].ID)

	randomIDs := map[int64]bool{out[2].ID: true, out[3].ID: true}
	assert.Len(t, randomIDs, 2, "the two random picks must be distinct")
	for id := range randomIDs {
		assert.Contains(t, []int64{20, 21, 22}, id)
	}
}

func TestExpand_RandomCountClampedToPoolSize(t *testing.T) {
	pool := func(categoryID int64) ([]model.Preroll, error) {
		return []model.Preroll{{ID: 1}, {ID: 2}}, nil
	}
	steps := []model.Step{{Random: &model.StepRandom{CategoryID: 1, Count: 10}}}
	out, err := Expand(steps, pool, nil, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Len(t, out, 2, "count is clamped to the pool size")
}

func TestExpand_FixedStepMissingPrerollIsSkipped(t *testing.T) {
	byID := func(id int64) (model.Preroll, bool) {
		if id == 1 {
			return model.Preroll{ID: 1, Path: "/a.mp4"}, true
		}
		return model.Preroll{}, false
	}
	steps := []model.Step{{Fixed: &model.StepFixed{PrerollIDs: []int64{1, 999}}}}
	out, err := Expand(steps, nil, byID, nil)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestExpand_EmptyOutputAbortsApply(t *testing.T) {
	byID := func(id int64) (model.Preroll, bool) { return model.Preroll{}, false }
	steps := []model.Step{{Fixed: &model.StepFixed{PrerollIDs: []int64{999}}}}
	_, err := Expand(steps, nil, byID, nil)
	require.ErrorIs(t, err, ErrEmptyOutput)
}

func TestExpandPaths_ProjectsToLocalPaths(t *testing.T) {
	byID := func(id int64) (model.Preroll, bool) {
		return model.Preroll{ID: id, Path: "/media/x.mp4"}, true
	}
	steps := []model.Step{{Fixed: &model.StepFixed{PrerollIDs: []int64{1}}}}
	out, err := ExpandPaths(steps, nil, byID, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"/media/x.mp4"}, out)
}
