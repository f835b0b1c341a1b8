// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package genremapper

import (
	"fmt"
	"sort"
	"time"

	"github.com/nexroll/nexroll/internal/cache"
	"github.com/nexroll/nexroll/internal/logging"
	"github.com/nexroll/nexroll/internal/model"
)

// Resolve walks raw's candidate keys (§4.7) against the GenreMap table,
// returning the category id of the first candidate that matches.
func Resolve(raw string, genreMaps map[string]model.GenreMap) (int64, bool) {
	for _, key := range CandidateKeys(raw) {
		if gm, ok := genreMaps[key]; ok {
			return gm.CategoryID, true
		}
	}
	return 0, false
}

// ResolveAny tries each genre label in order (already deduplicated
// case-insensitively by the caller per §4.7 step 4) and returns the first
// one that resolves to a category.
func ResolveAny(genres []string, genreMaps map[string]model.GenreMap) (int64, string, bool) {
	for _, g := range genres {
		if catID, ok := Resolve(g, genreMaps); ok {
			return catID, g, true
		}
	}
	return 0, "", false
}

// DedupeGenres case-insensitively deduplicates genres, preserving first-seen
// order, per §4.7 step 4.
func DedupeGenres(genres []string) []string {
	seen := make(map[string]bool, len(genres))
	out := make([]string, 0, len(genres))
	for _, g := range genres {
		key := caseFold(g)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, g)
	}
	return out
}

// RecentApplications is a bounded FIFO ring buffer of the last N genre
// applications (§4.7 step 8, §9 "recent applications" singleton), and the
// TTL-keyed dedupe-by-ratingKey store (§4.7 step 6). Not safe for concurrent
// use without external locking; the ControlLoop is single-flighted so one
// instance is owned by the Engine and touched only from the tick goroutine,
// except for UI reads which should clone Recent().
type RecentApplications struct {
	capacity  int
	entries   []model.RecentGenreApplication
	lastByKey map[string]time.Time

	// persist, when set via WithPersistentCache, backs the TTL dedupe map
	// with a durable Store so a process restart doesn't forget a
	// recently-applied rating key mid-playback and double-apply (§4.7
	// step 6).
	persist *cache.Store
}

// NewRecentApplications builds a ring buffer with the given capacity
// (spec.md §9 fixes this at 10).
func NewRecentApplications(capacity int) *RecentApplications {
	if capacity <= 0 {
		capacity = 10
	}
	return &RecentApplications{capacity: capacity, lastByKey: make(map[string]time.Time)}
}

// WithPersistentCache attaches store as a durable backing for the dedupe
// ring and returns r for chaining.
func (r *RecentApplications) WithPersistentCache(store *cache.Store) *RecentApplications {
	r.persist = store
	return r
}

func dedupeCacheKey(ratingKey string) string {
	return fmt.Sprintf("genre-recent:%s", ratingKey)
}

// ShouldSkip reports whether ratingKey was applied within ttl of now (§4.7
// step 6's dedupe window).
func (r *RecentApplications) ShouldSkip(ratingKey string, now time.Time, ttl time.Duration) bool {
	last, ok := r.lastByKey[ratingKey]
	if !ok && r.persist != nil {
		var stamp time.Time
		if err := r.persist.GetJSON(dedupeCacheKey(ratingKey), &stamp); err == nil {
			last, ok = stamp, true
			r.lastByKey[ratingKey] = stamp
		}
	}
	if !ok {
		return false
	}
	return now.Sub(last) < ttl
}

// Record appends an application, evicting the oldest entry once capacity is
// exceeded, and updates the TTL dedupe map.
func (r *RecentApplications) Record(app model.RecentGenreApplication) {
	r.entries = append(r.entries, app)
	if len(r.entries) > r.capacity {
		r.entries = r.entries[len(r.entries)-r.capacity:]
	}
	r.lastByKey[app.RatingKey] = app.AppliedAt
	if r.persist != nil {
		// Bounded at a generous fixed window: no caller-configured TTL is
		// available here, and any real GenreOverrideTTL is far shorter
		// than a day, so this is purely a backstop against unbounded growth.
		if err := r.persist.SetJSON(dedupeCacheKey(app.RatingKey), app.AppliedAt, 24*time.Hour); err != nil {
			logging.Warn().Err(err).Str("component", "genremapper").Msg("failed to persist dedupe entry")
		}
	}
}

// Recent returns the applications in the buffer, oldest first.
func (r *RecentApplications) Recent() []model.RecentGenreApplication {
	out := make([]model.RecentGenreApplication, len(r.entries))
	copy(out, r.entries)
	return out
}

// BuildGenreMapIndex indexes a GenreMap slice by its canonical key for O(1)
// candidate-key lookups in Resolve.
func BuildGenreMapIndex(maps []model.GenreMap) map[string]model.GenreMap {
	idx := make(map[string]model.GenreMap, len(maps))
	for _, gm := range maps {
		idx[gm.GenreNorm] = gm
	}
	return idx
}

// PickSession selects the best current session per §4.7 step 2: playing
// preferentially, else the most-progressed paused, else the smallest
// viewOffset.
func PickSession(sessions []Session) (Session, bool) {
	if len(sessions) == 0 {
		return Session{}, false
	}
	for _, s := range sessions {
		if s.State == SessionPlaying {
			return s, true
		}
	}
	sorted := make([]Session, len(sessions))
	copy(sorted, sessions)
	sort.SliceStable(sorted, func(i, j int) bool {
		ip, jp := sorted[i].State == SessionPaused, sorted[j].State == SessionPaused
		if ip != jp {
			return ip // paused sessions before other states
		}
		if ip && jp {
			return sorted[i].ViewOffset > sorted[j].ViewOffset // most-progressed paused first
		}
		return sorted[i].ViewOffset < sorted[j].ViewOffset // else smallest viewOffset
	})
	return sorted[0], true
}

// SessionState mirrors a Plex Player's state attribute.
type SessionState string

const (
	SessionPlaying   SessionState = "playing"
	SessionPaused    SessionState = "paused"
	SessionBuffering SessionState = "buffering"
)

// Session is the subset of a Plex/Jellyfin playback session the GenreMapper
// needs, decoupled from the wire format (owned by internal/serveradapter).
type Session struct {
	RatingKey            string
	ParentRatingKey       string
	GrandparentRatingKey  string
	ViewOffset            int64
	State                 SessionState
	Genres                []string
}
