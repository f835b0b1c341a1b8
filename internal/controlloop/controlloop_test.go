// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package controlloop

import (
	"context"
	"testing"
	"time"

	"github.com/nexroll/nexroll/internal/model"
	"github.com/nexroll/nexroll/internal/scheduleeval"
	"github.com/nexroll/nexroll/internal/serveradapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	setting      model.Setting
	schedules    []model.Schedule
	prerollPools map[int64][]model.Preroll
	categories   map[int64]model.Category
	updates      []model.Setting
	touched      []int64
}

func (f *fakeStore) GetSetting(ctx context.Context) (model.Setting, error) { return f.setting, nil }

func (f *fakeStore) UpdateSetting(ctx context.Context, s model.Setting) error {
	f.setting = s
	f.updates = append(f.updates, s)
	return nil
}

func (f *fakeStore) ActiveSchedules(ctx context.Context, now time.Time) ([]model.Schedule, error) {
	var out []model.Schedule
	for _, s := range f.schedules {
		if scheduleeval.IsActive(s, now, nil) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) AllSchedules(ctx context.Context) ([]model.Schedule, error) { return f.schedules, nil }

func (f *fakeStore) TouchScheduleRun(ctx context.Context, scheduleID int64, now time.Time) error {
	f.touched = append(f.touched, scheduleID)
	return nil
}

func (f *fakeStore) GenreMapIndex(ctx context.Context) (map[string]model.GenreMap, error) {
	return nil, nil
}

func (f *fakeStore) PrerollPool(categoryID int64) ([]model.Preroll, error) {
	return f.prerollPools[categoryID], nil
}

func (f *fakeStore) PrerollByID(id int64) (model.Preroll, bool) { return model.Preroll{}, false }

func (f *fakeStore) CategoryByID(id int64) (model.Category, bool) {
	c, ok := f.categories[id]
	return c, ok
}

type fakeAdapter struct {
	preroll string
	info    serveradapter.ServerInfo
	sessions []serveradapter.Session
	genres   []string
	setCalls []string
	setErr   error
}

func (f *fakeAdapter) GetPreroll(ctx context.Context) (string, error) { return f.preroll, nil }

func (f *fakeAdapter) SetPreroll(ctx context.Context, value string) error {
	f.setCalls = append(f.setCalls, value)
	if f.setErr != nil {
		return f.setErr
	}
	f.preroll = value
	return nil
}

func (f *fakeAdapter) GetServerInfo(ctx context.Context) (serveradapter.ServerInfo, error) {
	return f.info, nil
}

func (f *fakeAdapter) TestConnection(ctx context.Context) bool { return true }

func (f *fakeAdapter) GetSessions(ctx context.Context) ([]serveradapter.Session, error) {
	return f.sessions, nil
}

func (f *fakeAdapter) GetGenres(ctx context.Context, ratingKey, parentRatingKey, grandparentRatingKey string) ([]string, error) {
	return f.genres, nil
}

func (f *fakeAdapter) NudgeClient(ctx context.Context, sessionKey string) error { return nil }

func newTestLoop(store *fakeStore, adapter *fakeAdapter) *Loop {
	return New(store, adapter, nil, Config{})
}

func TestScheduleStep_AppliesCategoryDecision(t *testing.T) {
	store := &fakeStore{
		setting: model.Setting{},
		schedules: []model.Schedule{{
			ID: 1, CategoryID: 10, Priority: 5, Exclusive: true,
			StartDate: time.Now().Add(-time.Hour),
		}},
		prerollPools: map[int64][]model.Preroll{10: {{ID: 100, Path: "/media/a.mp4"}, {ID: 101, Path: "/media/b.mp4"}}},
		categories:   map[int64]model.Category{10: {ID: 10, PlexMode: model.PlexModeShuffle}},
	}
	adapter := &fakeAdapter{info: serveradapter.ServerInfo{Platform: "posix"}}
	loop := newTestLoop(store, adapter)

	setting := loop.scheduleStep(context.Background(), store.setting)

	require.Len(t, adapter.setCalls, 1)
	assert.Equal(t, "/media/a.mp4;/media/b.mp4", adapter.setCalls[0])
	assert.Equal(t, "/media/a.mp4;/media/b.mp4", setting.LastAppliedValue)
	assert.Equal(t, string(model.PlexModeShuffle), setting.LastAppliedMode)
	assert.NotNil(t, setting.ActiveCategory)
	assert.Equal(t, int64(10), *setting.ActiveCategory)
	assert.Contains(t, store.touched, int64(1))
}

func TestScheduleStep_SequenceUsesOrderedDelimiter(t *testing.T) {
	store := &fakeStore{
		schedules: []model.Schedule{{
			ID: 1, CategoryID: 10, Priority: 5, Exclusive: true,
			StartDate: time.Now().Add(-time.Hour),
			Sequence:  []model.Step{{Fixed: &model.StepFixed{PrerollIDs: []int64{100}}}},
		}},
	}
	// sequence.ExpandPaths needs PrerollByID to resolve fixed ids; wire it
	// through the store so the winning schedule's sequence expands.
	storeWithPreroll := &fakeStoreWithPrerollByID{fakeStore: store, prerolls: map[int64]model.Preroll{100: {ID: 100, Path: "/media/fixed.mp4"}}}
	adapter := &fakeAdapter{info: serveradapter.ServerInfo{Platform: "posix"}}
	loop := New(storeWithPreroll, adapter, nil, Config{})

	setting := loop.scheduleStep(context.Background(), model.Setting{})

	require.Len(t, adapter.setCalls, 1)
	assert.Equal(t, "/media/fixed.mp4", adapter.setCalls[0])
	assert.Equal(t, string(model.PlexModePlaylist), setting.LastAppliedMode)
}

type fakeStoreWithPrerollByID struct {
	*fakeStore
	prerolls map[int64]model.Preroll
}

func (f *fakeStoreWithPrerollByID) PrerollByID(id int64) (model.Preroll, bool) {
	p, ok := f.prerolls[id]
	return p, ok
}

func TestScheduleStep_NoActiveSchedules_LeavesAsIs(t *testing.T) {
	store := &fakeStore{setting: model.Setting{LastAppliedValue: "/a.mp4"}}
	adapter := &fakeAdapter{preroll: "/a.mp4", info: serveradapter.ServerInfo{Platform: "posix"}}
	loop := newTestLoop(store, adapter)

	setting := loop.scheduleStep(context.Background(), store.setting)

	assert.Empty(t, adapter.setCalls)
	assert.Equal(t, "/a.mp4", setting.LastAppliedValue)
}

func TestScheduleStep_ClearWhenInactive(t *testing.T) {
	store := &fakeStore{setting: model.Setting{ClearWhenInactive: true, LastAppliedValue: "/a.mp4", ActiveCategory: func() *int64 { v := int64(1); return &v }()}}
	adapter := &fakeAdapter{preroll: "/a.mp4", info: serveradapter.ServerInfo{Platform: "posix"}}
	loop := newTestLoop(store, adapter)

	setting := loop.scheduleStep(context.Background(), store.setting)

	require.Len(t, adapter.setCalls, 1)
	assert.Equal(t, "", adapter.setCalls[0])
	assert.Equal(t, "", setting.LastAppliedValue)
	assert.Nil(t, setting.ActiveCategory)
}

func TestGenreStep_Disabled_NoOp(t *testing.T) {
	store := &fakeStore{}
	adapter := &fakeAdapter{}
	loop := newTestLoop(store, adapter)

	setting := loop.genreStep(context.Background(), model.Setting{GenreAutoApply: false})

	assert.Empty(t, adapter.setCalls)
	assert.Equal(t, model.Setting{GenreAutoApply: false}, setting)
}

func TestVerifyStep_SkipsBeforeInterval(t *testing.T) {
	store := &fakeStore{setting: model.Setting{ActiveCategory: func() *int64 { v := int64(1); return &v }(), LastAppliedValue: "/a.mp4"}}
	adapter := &fakeAdapter{preroll: "/different.mp4"}
	loop := New(store, adapter, nil, Config{VerifyInterval: time.Hour})
	loop.lastVerify = time.Now()

	loop.verifyStep(context.Background(), store.setting)

	assert.Empty(t, adapter.setCalls, "reconciler must not run before VerifyInterval elapses")
}

func TestVerifyStep_ReconcilesDrift(t *testing.T) {
	store := &fakeStore{setting: model.Setting{ActiveCategory: func() *int64 { v := int64(1); return &v }(), LastAppliedValue: "/a.mp4"}}
	adapter := &fakeAdapter{preroll: "/different.mp4"}
	loop := New(store, adapter, nil, Config{VerifyInterval: time.Millisecond})
	time.Sleep(2 * time.Millisecond)

	loop.verifyStep(context.Background(), store.setting)

	require.Len(t, adapter.setCalls, 1)
	assert.Equal(t, "/a.mp4", adapter.setCalls[0])
}

func TestPlatformOf(t *testing.T) {
	assert.Equal(t, "windows", string(platformOf(serveradapter.ServerInfo{Platform: "windows"})))
	assert.Equal(t, "posix", string(platformOf(serveradapter.ServerInfo{Platform: "posix"})))
}
