// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package genremapper

import (
	"context"
	"time"

	"github.com/nexroll/nexroll/internal/model"
)

// SessionFetcher retrieves current playback sessions from the media server.
type SessionFetcher func(ctx context.Context) ([]Session, error)

// MetadataFetcher retrieves genre tags for a rating key, following
// parent/grandparent fallback when the item itself carries none (§4.7 step 3).
type MetadataFetcher func(ctx context.Context, ratingKey, parentRatingKey, grandparentRatingKey string) ([]string, error)

// ScheduleActiveChecker reports whether any schedule is currently active, so
// genre_priority_mode=schedules_override can defer to the schedule path
// (§4.7 step 7).
type ScheduleActiveChecker func(now time.Time) bool

// Result of an apply attempt, used by the caller to update Setting and emit
// events.
type Result struct {
	Applied    bool
	CategoryID int64
	Genre      string
	RatingKey  string
	Reason     string
}

// ApplyFromPlayback implements §4.7's apply_from_playback(): pick the best
// current session, extract genres (with parent/grandparent fallback),
// resolve to a category, and report whether the caller should apply it.
// ApplyFromPlayback never itself calls the ServerAdapter; the caller
// (internal/controlloop) performs the apply and updates Setting so the
// genremapper package stays free of the Store/ServerAdapter dependency.
func ApplyFromPlayback(
	ctx context.Context,
	setting model.Setting,
	now time.Time,
	genreMapIndex map[string]model.GenreMap,
	recent *RecentApplications,
	fetchSessions SessionFetcher,
	fetchMetadata MetadataFetcher,
	scheduleActive ScheduleActiveChecker,
) (Result, error) {
	if !setting.GenreAutoApply {
		return Result{Reason: "genre_auto_apply disabled"}, nil
	}

	sessions, err := fetchSessions(ctx)
	if err != nil {
		return Result{}, err
	}
	session, ok := PickSession(sessions)
	if !ok {
		return Result{Reason: "no current session"}, nil
	}

	return applyForSession(ctx, setting, now, genreMapIndex, recent, session, fetchMetadata, scheduleActive)
}

// ApplyByRatingKey implements the synchronous "apply by rating key" entry
// point used by webhook receivers (§4.7, §6.3): it follows the same steps
// 3-8 given a known rating key, tolerant of metadata not yet being populated
// at start-of-play (no session lookup needed).
func ApplyByRatingKey(
	ctx context.Context,
	setting model.Setting,
	now time.Time,
	genreMapIndex map[string]model.GenreMap,
	recent *RecentApplications,
	ratingKey, parentRatingKey, grandparentRatingKey string,
	fetchMetadata MetadataFetcher,
	scheduleActive ScheduleActiveChecker,
) (Result, error) {
	if !setting.GenreAutoApply {
		return Result{Reason: "genre_auto_apply disabled"}, nil
	}
	session := Session{RatingKey: ratingKey, ParentRatingKey: parentRatingKey, GrandparentRatingKey: grandparentRatingKey}
	return applyForSession(ctx, setting, now, genreMapIndex, recent, session, fetchMetadata, scheduleActive)
}

// ApplyByGenres implements the direct genre apply entry point used by the
// management API's `/genres/apply` operation and by the webhook receiver
// when a payload carries genre tags but no rating key (§6.3's resolution
// order, second branch): it skips metadata fetch entirely and resolves
// straight from the given genres.
func ApplyByGenres(
	ctx context.Context,
	setting model.Setting,
	now time.Time,
	genreMapIndex map[string]model.GenreMap,
	recent *RecentApplications,
	ratingKey string,
	genres []string,
	scheduleActive ScheduleActiveChecker,
) (Result, error) {
	if !setting.GenreAutoApply {
		return Result{Reason: "genre_auto_apply disabled"}, nil
	}
	session := Session{RatingKey: ratingKey, Genres: genres}
	noMetadata := func(ctx context.Context, rk, prk, grk string) ([]string, error) { return nil, nil }
	return applyForSession(ctx, setting, now, genreMapIndex, recent, session, noMetadata, scheduleActive)
}

func applyForSession(
	ctx context.Context,
	setting model.Setting,
	now time.Time,
	genreMapIndex map[string]model.GenreMap,
	recent *RecentApplications,
	session Session,
	fetchMetadata MetadataFetcher,
	scheduleActive ScheduleActiveChecker,
) (Result, error) {
	if recent.ShouldSkip(session.RatingKey, now, setting.GenreOverrideTTL) {
		return Result{RatingKey: session.RatingKey, Reason: "within dedupe TTL window"}, nil
	}

	genres := session.Genres
	if len(genres) == 0 {
		fetched, err := fetchMetadata(ctx, session.RatingKey, session.ParentRatingKey, session.GrandparentRatingKey)
		if err != nil {
			return Result{}, err
		}
		genres = fetched
	}
	genres = DedupeGenres(genres)
	if len(genres) == 0 {
		return Result{RatingKey: session.RatingKey, Reason: "no genre tags found"}, nil
	}

	catID, matchedGenre, ok := ResolveAny(genres, genreMapIndex)
	if !ok {
		return Result{RatingKey: session.RatingKey, Reason: "no genre mapping matched"}, nil
	}

	if setting.GenrePriorityMode == model.GenrePrioritySchedulesOverride && scheduleActive != nil && scheduleActive(now) {
		return Result{RatingKey: session.RatingKey, CategoryID: catID, Genre: matchedGenre, Reason: "schedules_override: an active schedule takes precedence"}, nil
	}

	recent.Record(model.RecentGenreApplication{Genre: matchedGenre, CategoryID: catID, RatingKey: session.RatingKey, AppliedAt: now})
	return Result{Applied: true, CategoryID: catID, Genre: matchedGenre, RatingKey: session.RatingKey, Reason: "applied"}, nil
}
