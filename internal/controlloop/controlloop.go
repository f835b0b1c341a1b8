// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package controlloop runs the single cooperative ticker that drives the
// whole decision engine (§4.1, §5): each tick runs genre -> schedule ->
// verify in order, re-reading Setting between sub-steps so a genre
// application's override_expires_at is honoured by the schedule sub-step on
// the same tick.
//
// Grounded on the teacher's internal/newsletter/scheduler/scheduler.go
// (ticker-driven run loop with Start/Stop/doneCh lifecycle), wrapped as a
// suture.Service the way internal/supervisor/sync_service_wrappers.go wraps
// its sync managers.
package controlloop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nexroll/nexroll/internal/arbiter"
	"github.com/nexroll/nexroll/internal/engineerr"
	"github.com/nexroll/nexroll/internal/eventbus"
	"github.com/nexroll/nexroll/internal/genremapper"
	"github.com/nexroll/nexroll/internal/logging"
	"github.com/nexroll/nexroll/internal/model"
	"github.com/nexroll/nexroll/internal/pathtranslator"
	"github.com/nexroll/nexroll/internal/reconciler"
	"github.com/nexroll/nexroll/internal/scheduleeval"
	"github.com/nexroll/nexroll/internal/serveradapter"
)

// Config tunes the loop's cadence, per SPEC_FULL.md's ambient-stack section.
type Config struct {
	TickInterval   time.Duration // default 30s
	VerifyInterval time.Duration // T_verify, default 300s
	RotateInterval time.Duration // T_rotate, default 300s
	CaseSensitive  bool          // path mapping comparison; false on Windows hosts (§4.6.2)
}

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = 30 * time.Second
	}
	if c.VerifyInterval <= 0 {
		c.VerifyInterval = 300 * time.Second
	}
	if c.RotateInterval <= 0 {
		c.RotateInterval = 300 * time.Second
	}
	return c
}

// Store is the narrow persistence surface the loop needs. Implemented by
// internal/store; kept here as an interface so this package never imports
// the DuckDB driver directly.
type Store interface {
	GetSetting(ctx context.Context) (model.Setting, error)
	UpdateSetting(ctx context.Context, s model.Setting) error
	ActiveSchedules(ctx context.Context, now time.Time) ([]model.Schedule, error)
	AllSchedules(ctx context.Context) ([]model.Schedule, error)
	TouchScheduleRun(ctx context.Context, scheduleID int64, now time.Time) error
	GenreMapIndex(ctx context.Context) (map[string]model.GenreMap, error)
	PrerollPool(categoryID int64) ([]model.Preroll, error)
	PrerollByID(id int64) (model.Preroll, bool)
	CategoryByID(id int64) (model.Category, bool)
}

// Loop is the decision engine's single-threaded cooperative ticker.
type Loop struct {
	store   Store
	adapter serveradapter.ServerAdapter

	holidays scheduleeval.HolidayLookup
	cfg      Config

	mu           sync.Mutex
	recent       *genremapper.RecentApplications
	lastVerify   time.Time
	lastRotation map[int64]time.Time
	lastLogKey   string
	lastLogAt    time.Time

	events eventbus.Publisher

	stopCh chan struct{}
	doneCh chan struct{}
}

// New builds a Loop driving adapter through store-backed decisions. The
// event bus publisher defaults to eventbus.NopPublisher{} (§4.12's "off by
// default"); call SetEventPublisher to wire a live one.
func New(store Store, adapter serveradapter.ServerAdapter, holidays scheduleeval.HolidayLookup, cfg Config) *Loop {
	return &Loop{
		store:        store,
		adapter:      adapter,
		holidays:     holidays,
		cfg:          cfg.withDefaults(),
		recent:       genremapper.NewRecentApplications(10),
		lastRotation: make(map[int64]time.Time),
		events:       eventbus.NopPublisher{},
	}
}

// SetEventPublisher wires an optional §4.12 event bus publisher. Passing
// nil restores the no-op default.
func (l *Loop) SetEventPublisher(pub eventbus.Publisher) {
	if pub == nil {
		pub = eventbus.NopPublisher{}
	}
	l.mu.Lock()
	l.events = pub
	l.mu.Unlock()
}

// Serve implements suture.Service: run until ctx is cancelled, ticking every
// cfg.TickInterval and draining the current tick's sub-steps before
// returning, per §5's cancellation guarantee.
func (l *Loop) Serve(ctx context.Context) error {
	l.mu.Lock()
	l.stopCh = make(chan struct{})
	l.doneCh = make(chan struct{})
	l.mu.Unlock()
	defer close(l.doneCh)

	ticker := time.NewTicker(l.cfg.TickInterval)
	defer ticker.Stop()

	l.tick(ctx)
	for {
		select {
		case <-ticker.C:
			l.tick(ctx)
		case <-l.stopCh:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Stop signals Serve to terminate after its current tick drains.
func (l *Loop) Stop() {
	l.mu.Lock()
	ch := l.stopCh
	l.mu.Unlock()
	if ch != nil {
		close(ch)
	}
}

// tick runs one genre -> schedule -> verify pass (§5's ordering guarantee).
func (l *Loop) tick(ctx context.Context) {
	setting, err := l.store.GetSetting(ctx)
	if err != nil {
		logging.Error().Err(err).Str("component", "controlloop").Msg("failed to read setting at tick start")
		return
	}

	setting = l.genreStep(ctx, setting)
	setting = l.scheduleStep(ctx, setting)
	l.verifyStep(ctx, setting)
}

// genreStep runs §4.7's apply_from_playback and, on a real apply, persists
// the resulting override_expires_at so the same-tick schedule sub-step
// re-reads it (§5's "implementations must re-read" requirement).
func (l *Loop) genreStep(ctx context.Context, setting model.Setting) model.Setting {
	if !setting.GenreAutoApply {
		return setting
	}
	genreIndex, err := l.store.GenreMapIndex(ctx)
	if err != nil {
		logging.Warn().Err(err).Str("component", "controlloop").Msg("failed to load genre map index")
		return setting
	}

	fetchSessions := func(ctx context.Context) ([]genremapper.Session, error) {
		sessions, err := l.adapter.GetSessions(ctx)
		if err != nil {
			return nil, err
		}
		return toGenreSessions(sessions), nil
	}
	fetchMetadata := func(ctx context.Context, rk, prk, grk string) ([]string, error) {
		return l.adapter.GetGenres(ctx, rk, prk, grk)
	}
	scheduleActive := func(now time.Time) bool {
		active, err := l.store.ActiveSchedules(ctx, now)
		return err == nil && len(active) > 0
	}

	now := time.Now()
	res, err := genremapper.ApplyFromPlayback(ctx, setting, now, genreIndex, l.recent, fetchSessions, fetchMetadata, scheduleActive)
	if err != nil {
		l.logOnce(fmt.Sprintf("genre_error:%v", err), func() {
			logging.Warn().Err(err).Str("component", "controlloop").Str("legacy_tag", "SCHEDULER").Msg("genre apply failed")
		})
		return setting
	}
	if !res.Applied {
		return setting
	}

	if err := l.applyCategory(ctx, &setting, res.CategoryID, model.PlexModeShuffle); err != nil {
		logging.Warn().Err(err).Str("component", "controlloop").Msg("failed to apply genre-resolved category")
		return setting
	}
	setting.ActiveCategory = &res.CategoryID
	expires := now.Add(setting.GenreOverrideTTL)
	setting.OverrideExpiresAt = &expires
	if err := l.store.UpdateSetting(ctx, setting); err != nil {
		logging.Warn().Err(err).Str("component", "controlloop").Msg("failed to persist genre override")
	}
	l.events.PublishGenreOverrideApplied(ctx, eventbus.GenreOverrideApplied{
		Timestamp:  now,
		Genre:      res.Genre,
		CategoryID: res.CategoryID,
		RatingKey:  res.RatingKey,
		ExpiresAt:  expires,
	})
	return setting
}

// RunNow runs a single tick on demand, for the management API's
// scheduler run-now operation (§6.6).
func (l *Loop) RunNow(ctx context.Context) {
	l.tick(ctx)
}

// ApplyCategoryNow applies categoryID's preroll pool immediately in the
// given mode and persists the result, for the management API's
// apply-to-plex operation (§6.6). It bypasses the Arbiter entirely: the
// operator is asking for this category right now, not asking the engine
// to decide.
func (l *Loop) ApplyCategoryNow(ctx context.Context, categoryID int64, mode model.PlexMode) error {
	setting, err := l.store.GetSetting(ctx)
	if err != nil {
		return engineerr.Wrap(engineerr.KindState, "controlloop", "read setting for apply-to-plex", err)
	}
	if err := l.applyCategory(ctx, &setting, categoryID, mode); err != nil {
		return err
	}
	setting.ActiveCategory = &categoryID
	return l.store.UpdateSetting(ctx, setting)
}

// ApplyGenreByRatingKey runs the genre-resolution and apply path for a
// single rating key outside the normal tick cadence, for webhook
// receivers that already know which item started playing (§4.7, §6.3).
// On a real apply it persists the resulting override the same way
// genreStep does, so the next tick's schedule sub-step honours it.
func (l *Loop) ApplyGenreByRatingKey(ctx context.Context, ratingKey, parentRatingKey, grandparentRatingKey string) (genremapper.Result, error) {
	setting, err := l.store.GetSetting(ctx)
	if err != nil {
		return genremapper.Result{}, engineerr.Wrap(engineerr.KindState, "controlloop", "read setting for webhook genre apply", err)
	}
	if !setting.GenreAutoApply {
		return genremapper.Result{Reason: "genre_auto_apply disabled"}, nil
	}
	genreIndex, err := l.store.GenreMapIndex(ctx)
	if err != nil {
		return genremapper.Result{}, engineerr.Wrap(engineerr.KindState, "controlloop", "load genre map index for webhook", err)
	}
	fetchMetadata := func(ctx context.Context, rk, prk, grk string) ([]string, error) {
		return l.adapter.GetGenres(ctx, rk, prk, grk)
	}
	scheduleActive := func(now time.Time) bool {
		active, err := l.store.ActiveSchedules(ctx, now)
		return err == nil && len(active) > 0
	}

	now := time.Now()
	res, err := genremapper.ApplyByRatingKey(ctx, setting, now, genreIndex, l.recent, ratingKey, parentRatingKey, grandparentRatingKey, fetchMetadata, scheduleActive)
	if err != nil || !res.Applied {
		return res, err
	}
	return res, l.commitGenreResult(ctx, setting, res, now)
}

// ApplyGenresNow implements §6.3's second resolution branch (a webhook
// payload with genre tags but no rating key) and the management API's
// `/genres/apply` operation: resolve straight from the given genres, with
// no metadata fetch.
func (l *Loop) ApplyGenresNow(ctx context.Context, ratingKey string, genres []string) (genremapper.Result, error) {
	setting, err := l.store.GetSetting(ctx)
	if err != nil {
		return genremapper.Result{}, engineerr.Wrap(engineerr.KindState, "controlloop", "read setting for direct genre apply", err)
	}
	if !setting.GenreAutoApply {
		return genremapper.Result{Reason: "genre_auto_apply disabled"}, nil
	}
	genreIndex, err := l.store.GenreMapIndex(ctx)
	if err != nil {
		return genremapper.Result{}, engineerr.Wrap(engineerr.KindState, "controlloop", "load genre map index for direct genre apply", err)
	}
	scheduleActive := func(now time.Time) bool {
		active, err := l.store.ActiveSchedules(ctx, now)
		return err == nil && len(active) > 0
	}

	now := time.Now()
	res, err := genremapper.ApplyByGenres(ctx, setting, now, genreIndex, l.recent, ratingKey, genres, scheduleActive)
	if err != nil || !res.Applied {
		return res, err
	}
	return res, l.commitGenreResult(ctx, setting, res, now)
}

// commitGenreResult applies a genre resolution's winning category and
// persists the resulting override, shared by the webhook and direct-genre
// synchronous apply paths.
func (l *Loop) commitGenreResult(ctx context.Context, setting model.Setting, res genremapper.Result, now time.Time) error {
	if err := l.applyCategory(ctx, &setting, res.CategoryID, model.PlexModeShuffle); err != nil {
		return fmt.Errorf("apply genre-resolved category: %w", err)
	}
	setting.ActiveCategory = &res.CategoryID
	expires := now.Add(setting.GenreOverrideTTL)
	setting.OverrideExpiresAt = &expires
	if err := l.store.UpdateSetting(ctx, setting); err != nil {
		logging.Warn().Err(err).Str("component", "controlloop").Msg("failed to persist genre-driven override")
	}
	l.events.PublishGenreOverrideApplied(ctx, eventbus.GenreOverrideApplied{
		Timestamp:  now,
		Genre:      res.Genre,
		CategoryID: res.CategoryID,
		RatingKey:  res.RatingKey,
		ExpiresAt:  expires,
	})
	return nil
}

func toGenreSessions(sessions []serveradapter.Session) []genremapper.Session {
	out := make([]genremapper.Session, len(sessions))
	for i, s := range sessions {
		out[i] = genremapper.Session{
			RatingKey:            s.RatingKey,
			ParentRatingKey:      s.ParentRatingKey,
			GrandparentRatingKey: s.GrandparentRatingKey,
			ViewOffset:           s.ViewOffset,
			State:                genremapper.SessionState(s.State),
			Genres:               s.Genres,
		}
	}
	return out
}

// scheduleStep evaluates active schedules and applies the Arbiter's
// decision (§4.3, §4.4).
func (l *Loop) scheduleStep(ctx context.Context, setting model.Setting) model.Setting {
	schedules, err := l.store.AllSchedules(ctx)
	if err != nil {
		logging.Error().Err(err).Str("component", "controlloop").Msg("failed to load schedules")
		return setting
	}

	now := time.Now()
	var active []model.Schedule
	for _, s := range schedules {
		if scheduleeval.IsActive(s, now, l.holidays) {
			active = append(active, s)
		}
	}

	deps := arbiter.Deps{
		PrerollPool:  l.store.PrerollPool,
		PrerollByID:  l.store.PrerollByID,
		CategoryByID: l.store.CategoryByID,
	}
	decision := arbiter.Decide(active, setting, now, deps)

	stateKey := fmt.Sprintf("decision:%s:%v", decision.Kind, decision.CategoryID)
	l.logOnce(stateKey, func() {
		logging.Info().Str("component", "controlloop").Str("kind", string(decision.Kind)).Str("reason", decision.Reason).Msg("schedule decision")
	})

	updated := l.applyDecision(ctx, setting, decision)

	for _, s := range active {
		if err := l.store.TouchScheduleRun(ctx, s.ID, now); err != nil {
			logging.Warn().Err(err).Str("component", "controlloop").Int64("schedule_id", s.ID).Msg("failed to record schedule run")
		}
	}

	l.rotateSequences(active, now)
	return updated
}

// verifyStep runs the Reconciler every cfg.VerifyInterval (§4.8).
func (l *Loop) verifyStep(ctx context.Context, setting model.Setting) {
	l.mu.Lock()
	due := time.Since(l.lastVerify) >= l.cfg.VerifyInterval
	if due {
		l.lastVerify = time.Now()
	}
	l.mu.Unlock()
	if !due {
		return
	}

	active, err := l.store.ActiveSchedules(ctx, time.Now())
	if err != nil {
		logging.Warn().Err(err).Str("component", "controlloop").Msg("failed to load active schedules for reconciler")
		return
	}
	hasSequence := func() bool {
		for _, s := range active {
			if s.HasSequence() {
				return true
			}
		}
		return false
	}

	res := reconciler.Run(ctx, l.adapter, setting, isBlendActive(active), len(active) == 0, hasSequence)
	if res.Err != nil {
		logging.Warn().Err(res.Err).Str("component", "controlloop").Msg("reconciler pass failed")
	}
	if res.DriftFound {
		l.events.PublishReconcileDriftDetected(ctx, eventbus.ReconcileDriftDetected{
			Timestamp: time.Now(),
			Expected:  setting.LastAppliedValue,
			Reapplied: res.Reapplied,
		})
	}
}

func isBlendActive(active []model.Schedule) bool {
	count := 0
	for _, s := range active {
		if s.BlendEnabled && !s.Exclusive {
			count++
		}
	}
	return count >= 2
}

// rotateSequences re-expands any active sequence with a random step every
// cfg.RotateInterval, per §4.5/§4.4's "needs periodic rotation" note. The
// actual redraw happens the next time scheduleStep resolves that schedule as
// the winner (sequence.ExpandPaths re-rolls its random steps); this just
// gates how often that's allowed to change the applied value.
func (l *Loop) rotateSequences(active []model.Schedule, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range active {
		if !s.HasSequence() || !s.HasRandomStep() {
			continue
		}
		if last, ok := l.lastRotation[s.ID]; ok && now.Sub(last) < l.cfg.RotateInterval {
			continue
		}
		l.lastRotation[s.ID] = now
	}
}

func (l *Loop) logOnce(stateKey string, emit func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if stateKey == l.lastLogKey && time.Since(l.lastLogAt) < 5*time.Minute {
		return
	}
	l.lastLogKey = stateKey
	l.lastLogAt = time.Now()
	emit()
}

// applyDecision applies the Arbiter's decision to the adapter and updates
// the Setting bookkeeping fields the Arbiter expects the engine to own
// (§4.4's ClearFillerActive/ClearActiveCategory/Fallback/NewFillerActive).
func (l *Loop) applyDecision(ctx context.Context, setting model.Setting, d arbiter.Decision) model.Setting {
	switch d.Kind {
	case arbiter.KindLeaveAsIs:
		return setting

	case arbiter.KindClear:
		if err := l.adapter.SetPreroll(ctx, ""); err != nil {
			logging.Warn().Err(err).Str("component", "controlloop").Msg("failed to clear preroll")
			return setting
		}
		setting.LastAppliedValue = ""
		setting.LastAppliedMode = ""
		l.events.PublishProgramChanged(ctx, eventbus.ProgramChanged{
			Timestamp: time.Now(),
			Kind:      string(d.Kind),
		})

	case arbiter.KindCategory, arbiter.KindFiller:
		if d.CategoryID != nil {
			if err := l.applyCategory(ctx, &setting, *d.CategoryID, d.Mode); err != nil {
				logging.Warn().Err(err).Str("component", "controlloop").Int64("category_id", *d.CategoryID).Msg("failed to apply category decision")
				return setting
			}
			l.events.PublishProgramChanged(ctx, eventbus.ProgramChanged{
				Timestamp:  time.Now(),
				Kind:       string(d.Kind),
				CategoryID: d.CategoryID,
				Mode:       setting.LastAppliedMode,
				Value:      setting.LastAppliedValue,
			})
		}

	case arbiter.KindSequence:
		if err := l.applyPaths(ctx, &setting, d.Paths, serveradapter.DelimiterOrdered, string(model.PlexModePlaylist)); err != nil {
			logging.Warn().Err(err).Str("component", "controlloop").Msg("failed to apply sequence decision")
			return setting
		}
		l.events.PublishProgramChanged(ctx, eventbus.ProgramChanged{
			Timestamp: time.Now(),
			Kind:      string(d.Kind),
			Mode:      setting.LastAppliedMode,
			Value:     setting.LastAppliedValue,
		})

	case arbiter.KindBlend:
		if err := l.applyPaths(ctx, &setting, d.Paths, serveradapter.DelimiterShuffle, string(model.PlexModeShuffle)); err != nil {
			logging.Warn().Err(err).Str("component", "controlloop").Msg("failed to apply blend decision")
			return setting
		}
		l.events.PublishProgramChanged(ctx, eventbus.ProgramChanged{
			Timestamp: time.Now(),
			Kind:      string(d.Kind),
			Mode:      setting.LastAppliedMode,
			Value:     setting.LastAppliedValue,
		})
	}

	if d.Fallback.Change {
		setting.LastScheduleFallback = d.Fallback.Value
	}
	if d.ClearFillerActive {
		setting.FillerActive = ""
	}
	if d.ClearActiveCategory {
		setting.ActiveCategory = nil
	}
	if d.NewFillerActive != "" {
		setting.FillerActive = d.NewFillerActive
	}
	if d.Kind == arbiter.KindCategory && d.WinningScheduleID != nil {
		setting.ActiveCategory = d.CategoryID
	}

	if err := l.store.UpdateSetting(ctx, setting); err != nil {
		logging.Warn().Err(err).Str("component", "controlloop").Msg("failed to persist setting after decision")
	}
	return setting
}

// applyCategory resolves categoryID's preroll pool, translates and validates
// every path for the adapter's platform, and applies it encoded per mode.
func (l *Loop) applyCategory(ctx context.Context, setting *model.Setting, categoryID int64, mode model.PlexMode) error {
	pool, err := l.store.PrerollPool(categoryID)
	if err != nil {
		return engineerr.Wrap(engineerr.KindState, "controlloop", "load preroll pool", err)
	}
	paths := make([]string, len(pool))
	for i, p := range pool {
		paths[i] = p.Path
	}
	delim := serveradapter.DelimiterShuffle
	if mode == model.PlexModePlaylist {
		delim = serveradapter.DelimiterOrdered
	}
	if err := l.applyPaths(ctx, setting, paths, delim, string(mode)); err != nil {
		return err
	}
	return nil
}

// applyPaths translates paths against Setting.PathMappings, validates the
// result against the adapter's reported platform, encodes with delim, and
// sends it to the adapter. On success it records LastAppliedValue/Mode so
// the Reconciler has an unambiguous baseline (§9's Open Question resolution).
func (l *Loop) applyPaths(ctx context.Context, setting *model.Setting, paths []string, delim serveradapter.Delimiter, mode string) error {
	info, err := l.adapter.GetServerInfo(ctx)
	if err != nil {
		return engineerr.Wrap(engineerr.KindTransport, "controlloop", "get server info for path validation", err)
	}
	translator := pathtranslator.New(setting.PathMappings, l.cfg.CaseSensitive)
	translated := translator.TranslateAll(paths)
	if err := pathtranslator.ValidateForPlatform(translated, platformOf(info)); err != nil {
		return engineerr.Wrap(engineerr.KindConfig, "controlloop", "validate translated paths", err)
	}

	value := delim.Encode(translated)
	if err := l.adapter.SetPreroll(ctx, value); err != nil {
		return engineerr.Wrap(engineerr.KindTransport, "controlloop", "set preroll", err)
	}
	setting.LastAppliedValue = value
	setting.LastAppliedMode = mode
	return nil
}

func platformOf(info serveradapter.ServerInfo) pathtranslator.Platform {
	if info.Platform == "windows" {
		return pathtranslator.PlatformWindows
	}
	return pathtranslator.PlatformPOSIX
}
