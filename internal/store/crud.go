// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Read/write operations for the engine's entities (§3, §4.2), grounded on
// the teacher's internal/database/crud_*.go split-by-entity layout: one
// query per read, short per-call transactions for writes, no long
// transaction spanning external I/O.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nexroll/nexroll/internal/model"
	"github.com/nexroll/nexroll/internal/scheduleeval"
)

// GetSetting reads the Setting singleton (id=1).
func (s *Store) GetSetting(ctx context.Context) (model.Setting, error) {
	ctx, cancel := ensureTimeout(ctx, 10*time.Second)
	defer cancel()

	row := s.conn.QueryRowContext(ctx, `
		SELECT plex_url, plex_token, jellyfin_url, jellyfin_api_key,
		       active_category, last_schedule_fallback, override_expires_at,
		       path_mappings_json, filler_enabled, filler_type, filler_category_id,
		       filler_sequence_id, filler_coming_soon_layout, filler_active,
		       clear_when_inactive, passive_mode, genre_auto_apply, genre_priority_mode,
		       genre_override_ttl_secs, timezone, last_applied_value, last_applied_mode
		FROM settings WHERE id = 1`)

	var (
		out                                   model.Setting
		activeCategory, lastFallback          sql.NullInt64
		fillerCategoryID, fillerSequenceID     sql.NullInt64
		overrideExpiresAt                     sql.NullTime
		pathMappingsJSON                      sql.NullString
		fillerType, genrePriorityMode         string
		genreOverrideTTLSecs                  int
	)
	err := row.Scan(&out.PlexURL, &out.PlexToken, &out.JellyfinURL, &out.JellyfinAPIKey,
		&activeCategory, &lastFallback, &overrideExpiresAt,
		&pathMappingsJSON, &out.FillerEnabled, &fillerType, &fillerCategoryID,
		&fillerSequenceID, &out.FillerComingSoonLayout, &out.FillerActive,
		&out.ClearWhenInactive, &out.PassiveMode, &out.GenreAutoApply, &genrePriorityMode,
		&genreOverrideTTLSecs, &out.Timezone, &out.LastAppliedValue, &out.LastAppliedMode)
	if err != nil {
		return model.Setting{}, fmt.Errorf("get setting: %w", err)
	}

	out.FillerType = model.FillerType(fillerType)
	out.GenrePriorityMode = model.GenrePriorityMode(genrePriorityMode)
	out.GenreOverrideTTL = time.Duration(genreOverrideTTLSecs) * time.Second
	if activeCategory.Valid {
		out.ActiveCategory = &activeCategory.Int64
	}
	if lastFallback.Valid {
		out.LastScheduleFallback = &lastFallback.Int64
	}
	if fillerCategoryID.Valid {
		out.FillerCategoryID = &fillerCategoryID.Int64
	}
	if fillerSequenceID.Valid {
		out.FillerSequenceID = &fillerSequenceID.Int64
	}
	if overrideExpiresAt.Valid {
		out.OverrideExpiresAt = &overrideExpiresAt.Time
	}
	if pathMappingsJSON.Valid && pathMappingsJSON.String != "" {
		if err := json.Unmarshal([]byte(pathMappingsJSON.String), &out.PathMappings); err != nil {
			return model.Setting{}, fmt.Errorf("decode path_mappings: %w", err)
		}
	}

	if s.cfg.Encryptor != nil {
		if out.PlexToken, err = s.decryptCredential(out.PlexToken); err != nil {
			return model.Setting{}, fmt.Errorf("decrypt plex_token: %w", err)
		}
		if out.JellyfinAPIKey, err = s.decryptCredential(out.JellyfinAPIKey); err != nil {
			return model.Setting{}, fmt.Errorf("decrypt jellyfin_api_key: %w", err)
		}
	}
	return out, nil
}

// decryptCredential tolerates an empty stored value (nothing configured yet)
// without invoking the encryptor.
func (s *Store) decryptCredential(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	return s.cfg.Encryptor.Decrypt(ciphertext)
}

// encryptCredential tolerates an empty value so clearing a token doesn't
// round-trip through the encryptor.
func (s *Store) encryptCredential(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	return s.cfg.Encryptor.Encrypt(plaintext)
}

// UpdateSetting writes every field of the Setting singleton in one
// statement (§4.2's "update Setting fields atomically").
func (s *Store) UpdateSetting(ctx context.Context, setting model.Setting) error {
	ctx, cancel := ensureTimeout(ctx, 10*time.Second)
	defer cancel()

	pathMappingsJSON, err := json.Marshal(setting.PathMappings)
	if err != nil {
		return fmt.Errorf("encode path_mappings: %w", err)
	}

	plexToken, jellyfinAPIKey := setting.PlexToken, setting.JellyfinAPIKey
	if s.cfg.Encryptor != nil {
		if plexToken, err = s.encryptCredential(setting.PlexToken); err != nil {
			return fmt.Errorf("encrypt plex_token: %w", err)
		}
		if jellyfinAPIKey, err = s.encryptCredential(setting.JellyfinAPIKey); err != nil {
			return fmt.Errorf("encrypt jellyfin_api_key: %w", err)
		}
	}

	_, err = s.conn.ExecContext(ctx, `
		UPDATE settings SET
			plex_url = ?, plex_token = ?, jellyfin_url = ?, jellyfin_api_key = ?,
			active_category = ?, last_schedule_fallback = ?, override_expires_at = ?,
			path_mappings_json = ?, filler_enabled = ?, filler_type = ?, filler_category_id = ?,
			filler_sequence_id = ?, filler_coming_soon_layout = ?, filler_active = ?,
			clear_when_inactive = ?, passive_mode = ?, genre_auto_apply = ?, genre_priority_mode = ?,
			genre_override_ttl_secs = ?, timezone = ?, last_applied_value = ?, last_applied_mode = ?
		WHERE id = 1`,
		setting.PlexURL, plexToken, setting.JellyfinURL, jellyfinAPIKey,
		nullInt64(setting.ActiveCategory), nullInt64(setting.LastScheduleFallback), nullTime(setting.OverrideExpiresAt),
		string(pathMappingsJSON), setting.FillerEnabled, string(setting.FillerType), nullInt64(setting.FillerCategoryID),
		nullInt64(setting.FillerSequenceID), setting.FillerComingSoonLayout, setting.FillerActive,
		setting.ClearWhenInactive, setting.PassiveMode, setting.GenreAutoApply, string(setting.GenrePriorityMode),
		int(setting.GenreOverrideTTL/time.Second), setting.Timezone, setting.LastAppliedValue, setting.LastAppliedMode)
	if err != nil {
		return fmt.Errorf("update setting: %w", err)
	}
	return nil
}

// AllSchedules returns every schedule row, ordered by id for deterministic
// tie-breaking downstream (§4.4's Arbiter sort key ends in "id asc").
func (s *Store) AllSchedules(ctx context.Context) ([]model.Schedule, error) {
	ctx, cancel := ensureTimeout(ctx, 10*time.Second)
	defer cancel()

	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, name, type, start_date, end_date, category_id, fallback_category_id,
		       shuffle, playlist, priority, exclusive, blend_enabled, is_active,
		       recurrence_pattern, sequence_json, last_run, next_run
		FROM schedules ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var out []model.Schedule
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sched)
	}
	return out, rows.Err()
}

// ActiveSchedules returns the subset of schedules whose administrator
// `is_active` flag is set and whose date/time window is active at now,
// per §4.3's is_active(s, now). Like the ControlLoop's own filtering, this
// never resolves holiday_dynamic schedules (no HolidayLookup is threaded
// through the Store), so it is only used as the coarse "is anything active"
// signal the genre sub-step needs (§4.7 step 7) — not as a substitute for
// the ControlLoop's own scheduleeval.IsActive pass, which does have a
// HolidayLookup.
func (s *Store) ActiveSchedules(ctx context.Context, now time.Time) ([]model.Schedule, error) {
	all, err := s.AllSchedules(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.Schedule
	for _, sched := range all {
		if !sched.IsActive {
			continue
		}
		if scheduleeval.IsActive(sched, now, nil) {
			out = append(out, sched)
		}
	}
	return out, nil
}

// ScheduleByID returns a single schedule.
func (s *Store) ScheduleByID(ctx context.Context, id int64) (model.Schedule, bool, error) {
	ctx, cancel := ensureTimeout(ctx, 10*time.Second)
	defer cancel()
	row := s.conn.QueryRowContext(ctx, `
		SELECT id, name, type, start_date, end_date, category_id, fallback_category_id,
		       shuffle, playlist, priority, exclusive, blend_enabled, is_active,
		       recurrence_pattern, sequence_json, last_run, next_run
		FROM schedules WHERE id = ?`, id)
	sched, err := scanSchedule(row)
	if err == sql.ErrNoRows {
		return model.Schedule{}, false, nil
	}
	if err != nil {
		return model.Schedule{}, false, fmt.Errorf("get schedule %d: %w", id, err)
	}
	return sched, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (model.Schedule, error) {
	var (
		sched                          model.Schedule
		typ                            string
		endDate, lastRun, nextRun      sql.NullTime
		fallbackCategoryID             sql.NullInt64
		recurrencePattern, sequenceJSON sql.NullString
	)
	err := row.Scan(&sched.ID, &sched.Name, &typ, &sched.StartDate, &endDate, &sched.CategoryID, &fallbackCategoryID,
		&sched.Shuffle, &sched.Playlist, &sched.Priority, &sched.Exclusive, &sched.BlendEnabled, &sched.IsActive,
		&recurrencePattern, &sequenceJSON, &lastRun, &nextRun)
	if err != nil {
		return model.Schedule{}, err
	}
	sched.Type = model.ScheduleType(typ)
	if endDate.Valid {
		sched.EndDate = &endDate.Time
	}
	if fallbackCategoryID.Valid {
		sched.FallbackCategoryID = &fallbackCategoryID.Int64
	}
	if lastRun.Valid {
		sched.LastRun = &lastRun.Time
	}
	if nextRun.Valid {
		sched.NextRun = &nextRun.Time
	}
	if recurrencePattern.Valid && recurrencePattern.String != "" {
		var rp model.RecurrencePattern
		if err := json.Unmarshal([]byte(recurrencePattern.String), &rp); err != nil {
			return model.Schedule{}, fmt.Errorf("decode recurrence_pattern for schedule %d: %w", sched.ID, err)
		}
		sched.RecurrencePattern = &rp
	}
	if sequenceJSON.Valid && sequenceJSON.String != "" {
		steps, err := model.ParseSequence(json.RawMessage(sequenceJSON.String))
		if err != nil {
			return model.Schedule{}, fmt.Errorf("decode sequence for schedule %d: %w", sched.ID, err)
		}
		sched.Sequence = steps
	}
	return sched, nil
}

// PutSchedule inserts (id==0) or updates a schedule, enforcing model.Schedule.Validate first.
func (s *Store) PutSchedule(ctx context.Context, sched model.Schedule) (model.Schedule, error) {
	if sched.Priority == 0 {
		sched.Priority = 5
	}
	if err := sched.Validate(); err != nil {
		return model.Schedule{}, err
	}
	ctx, cancel := ensureTimeout(ctx, 10*time.Second)
	defer cancel()

	var recurrenceJSON, sequenceJSON sql.NullString
	if sched.RecurrencePattern != nil {
		b, err := json.Marshal(sched.RecurrencePattern)
		if err != nil {
			return model.Schedule{}, fmt.Errorf("encode recurrence_pattern: %w", err)
		}
		recurrenceJSON = sql.NullString{String: string(b), Valid: true}
	}
	if len(sched.Sequence) > 0 {
		b, err := json.Marshal(sched.Sequence)
		if err != nil {
			return model.Schedule{}, fmt.Errorf("encode sequence: %w", err)
		}
		sequenceJSON = sql.NullString{String: string(b), Valid: true}
	}

	if sched.ID == 0 {
		row := s.conn.QueryRowContext(ctx, `SELECT nextval('schedules_id_seq')`)
		if err := row.Scan(&sched.ID); err != nil {
			return model.Schedule{}, fmt.Errorf("allocate schedule id: %w", err)
		}
		_, err := s.conn.ExecContext(ctx, `
			INSERT INTO schedules (id, name, type, start_date, end_date, category_id, fallback_category_id,
				shuffle, playlist, priority, exclusive, blend_enabled, is_active, recurrence_pattern, sequence_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sched.ID, sched.Name, string(sched.Type), sched.StartDate, nullTime(sched.EndDate), sched.CategoryID,
			nullInt64(sched.FallbackCategoryID), sched.Shuffle, sched.Playlist, sched.Priority, sched.Exclusive,
			sched.BlendEnabled, sched.IsActive, recurrenceJSON, sequenceJSON)
		if err != nil {
			return model.Schedule{}, fmt.Errorf("insert schedule: %w", err)
		}
		return sched, nil
	}

	_, err := s.conn.ExecContext(ctx, `
		UPDATE schedules SET name=?, type=?, start_date=?, end_date=?, category_id=?, fallback_category_id=?,
			shuffle=?, playlist=?, priority=?, exclusive=?, blend_enabled=?, is_active=?,
			recurrence_pattern=?, sequence_json=?
		WHERE id=?`,
		sched.Name, string(sched.Type), sched.StartDate, nullTime(sched.EndDate), sched.CategoryID,
		nullInt64(sched.FallbackCategoryID), sched.Shuffle, sched.Playlist, sched.Priority, sched.Exclusive,
		sched.BlendEnabled, sched.IsActive, recurrenceJSON, sequenceJSON, sched.ID)
	if err != nil {
		return model.Schedule{}, fmt.Errorf("update schedule %d: %w", sched.ID, err)
	}
	return sched, nil
}

// DeleteSchedule removes a schedule by id.
func (s *Store) DeleteSchedule(ctx context.Context, id int64) error {
	ctx, cancel := ensureTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := s.conn.ExecContext(ctx, `DELETE FROM schedules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete schedule %d: %w", id, err)
	}
	return nil
}

// TouchScheduleRun updates last_run/next_run bookkeeping (§4.2); the engine
// is the only writer of these two columns.
func (s *Store) TouchScheduleRun(ctx context.Context, scheduleID int64, now time.Time) error {
	ctx, cancel := ensureTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := s.conn.ExecContext(ctx, `UPDATE schedules SET last_run = ? WHERE id = ?`, now, scheduleID)
	if err != nil {
		return fmt.Errorf("touch schedule run %d: %w", scheduleID, err)
	}
	return nil
}

// CategoryByID returns a category, matching internal/controlloop.Store's
// narrow (non-context) signature.
func (s *Store) CategoryByID(id int64) (model.Category, bool) {
	ctx, cancel := ensureTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var cat model.Category
	var plexMode string
	row := s.conn.QueryRowContext(ctx, `SELECT id, name, description, plex_mode, apply_to_plex, is_system FROM categories WHERE id = ?`, id)
	if err := row.Scan(&cat.ID, &cat.Name, &cat.Description, &plexMode, &cat.ApplyToPlex, &cat.IsSystem); err != nil {
		return model.Category{}, false
	}
	cat.PlexMode = model.PlexMode(plexMode)
	return cat, true
}

// AllCategories lists every category.
func (s *Store) AllCategories(ctx context.Context) ([]model.Category, error) {
	ctx, cancel := ensureTimeout(ctx, 10*time.Second)
	defer cancel()
	rows, err := s.conn.QueryContext(ctx, `SELECT id, name, description, plex_mode, apply_to_plex, is_system FROM categories ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()
	var out []model.Category
	for rows.Next() {
		var cat model.Category
		var plexMode string
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Description, &plexMode, &cat.ApplyToPlex, &cat.IsSystem); err != nil {
			return nil, err
		}
		cat.PlexMode = model.PlexMode(plexMode)
		out = append(out, cat)
	}
	return out, rows.Err()
}

// PutCategory inserts or updates a category, enforcing name uniqueness (§3).
func (s *Store) PutCategory(ctx context.Context, cat model.Category) (model.Category, error) {
	ctx, cancel := ensureTimeout(ctx, 10*time.Second)
	defer cancel()
	if cat.PlexMode == "" {
		cat.PlexMode = model.PlexModeShuffle
	}

	var existingID int64
	err := s.conn.QueryRowContext(ctx, `SELECT id FROM categories WHERE name = ? AND id != ?`, cat.Name, cat.ID).Scan(&existingID)
	if err == nil {
		return model.Category{}, fmt.Errorf("category name %q already in use by category %d", cat.Name, existingID)
	} else if err != sql.ErrNoRows {
		return model.Category{}, fmt.Errorf("check category name uniqueness: %w", err)
	}

	if cat.ID == 0 {
		if err := s.conn.QueryRowContext(ctx, `SELECT nextval('categories_id_seq')`).Scan(&cat.ID); err != nil {
			return model.Category{}, fmt.Errorf("allocate category id: %w", err)
		}
		_, err := s.conn.ExecContext(ctx,
			`INSERT INTO categories (id, name, description, plex_mode, apply_to_plex, is_system) VALUES (?, ?, ?, ?, ?, ?)`,
			cat.ID, cat.Name, cat.Description, string(cat.PlexMode), cat.ApplyToPlex, cat.IsSystem)
		if err != nil {
			return model.Category{}, fmt.Errorf("insert category: %w", err)
		}
		return cat, nil
	}
	_, err = s.conn.ExecContext(ctx,
		`UPDATE categories SET name=?, description=?, plex_mode=?, is_system=? WHERE id=?`,
		cat.Name, cat.Description, string(cat.PlexMode), cat.IsSystem, cat.ID)
	if err != nil {
		return model.Category{}, fmt.Errorf("update category %d: %w", cat.ID, err)
	}
	return cat, nil
}

// SetApplyToPlex flips the one-true Category.apply_to_plex flag (§4.2): the
// target category is marked applied and every other category is cleared, in
// one transaction.
func (s *Store) SetApplyToPlex(ctx context.Context, categoryID int64) error {
	ctx, cancel := ensureTimeout(ctx, 10*time.Second)
	defer cancel()
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin apply_to_plex transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE categories SET apply_to_plex = false WHERE id != ?`, categoryID); err != nil {
		return fmt.Errorf("clear apply_to_plex: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE categories SET apply_to_plex = true WHERE id = ?`, categoryID); err != nil {
		return fmt.Errorf("set apply_to_plex: %w", err)
	}
	return tx.Commit()
}

// DeleteCategory removes a category by id.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	ctx, cancel := ensureTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := s.conn.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	return nil
}

// PrerollByID matches internal/controlloop.Store's narrow signature.
func (s *Store) PrerollByID(id int64) (model.Preroll, bool) {
	ctx, cancel := ensureTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p, err := s.loadPreroll(ctx, id)
	if err != nil {
		return model.Preroll{}, false
	}
	return p, true
}

func (s *Store) loadPreroll(ctx context.Context, id int64) (model.Preroll, error) {
	var (
		p                 model.Preroll
		primaryCategoryID sql.NullInt64
		duration          sql.NullFloat64
		size              sql.NullInt64
	)
	row := s.conn.QueryRowContext(ctx, `
		SELECT id, filename, path, display_name, primary_category_id, duration_seconds, size_bytes, managed
		FROM prerolls WHERE id = ?`, id)
	if err := row.Scan(&p.ID, &p.Filename, &p.Path, &p.DisplayName, &primaryCategoryID, &duration, &size, &p.Managed); err != nil {
		return model.Preroll{}, err
	}
	if primaryCategoryID.Valid {
		p.PrimaryCategoryID = &primaryCategoryID.Int64
	}
	if duration.Valid {
		p.DurationSeconds = &duration.Float64
	}
	if size.Valid {
		p.SizeBytes = &size.Int64
	}
	additional, err := s.additionalCategories(ctx, id)
	if err != nil {
		return model.Preroll{}, err
	}
	p.AdditionalCategory = additional
	return p, nil
}

func (s *Store) additionalCategories(ctx context.Context, prerollID int64) ([]int64, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT category_id FROM preroll_categories WHERE preroll_id = ?`, prerollID)
	if err != nil {
		return nil, fmt.Errorf("list additional categories for preroll %d: %w", prerollID, err)
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// PrerollPool returns the union of prerolls for which categoryID is primary
// or an additional membership (§3's "union of primary and membership").
func (s *Store) PrerollPool(categoryID int64) ([]model.Preroll, error) {
	ctx, cancel := ensureTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rows, err := s.conn.QueryContext(ctx, `
		SELECT DISTINCT p.id
		FROM prerolls p
		LEFT JOIN preroll_categories pc ON pc.preroll_id = p.id
		WHERE p.primary_category_id = ? OR pc.category_id = ?
		ORDER BY p.id ASC`, categoryID, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list preroll pool for category %d: %w", categoryID, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]model.Preroll, 0, len(ids))
	for _, id := range ids {
		p, err := s.loadPreroll(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load preroll %d: %w", id, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// AllPrerolls lists every preroll.
func (s *Store) AllPrerolls(ctx context.Context) ([]model.Preroll, error) {
	ctx, cancel := ensureTimeout(ctx, 10*time.Second)
	defer cancel()
	rows, err := s.conn.QueryContext(ctx, `SELECT id FROM prerolls ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list prerolls: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]model.Preroll, 0, len(ids))
	for _, id := range ids {
		p, err := s.loadPreroll(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// PutPreroll inserts or updates a preroll and its additional-category
// membership, preserving §3's "editing additional categories never removes
// the primary implicitly" invariant: PrimaryCategoryID is only ever changed
// by an explicit non-nil value from the caller.
func (s *Store) PutPreroll(ctx context.Context, p model.Preroll) (model.Preroll, error) {
	ctx, cancel := ensureTimeout(ctx, 10*time.Second)
	defer cancel()
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return model.Preroll{}, fmt.Errorf("begin preroll transaction: %w", err)
	}
	defer tx.Rollback()

	if p.ID == 0 {
		if err := tx.QueryRowContext(ctx, `SELECT nextval('prerolls_id_seq')`).Scan(&p.ID); err != nil {
			return model.Preroll{}, fmt.Errorf("allocate preroll id: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO prerolls (id, filename, path, display_name, primary_category_id, duration_seconds, size_bytes, managed)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Filename, p.Path, p.DisplayName, nullInt64(p.PrimaryCategoryID), nullFloat64(p.DurationSeconds), nullInt64(p.SizeBytes), p.Managed)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE prerolls SET filename=?, path=?, display_name=?, primary_category_id=?, duration_seconds=?, size_bytes=?, managed=? WHERE id=?`,
			p.Filename, p.Path, p.DisplayName, nullInt64(p.PrimaryCategoryID), nullFloat64(p.DurationSeconds), nullInt64(p.SizeBytes), p.Managed, p.ID)
	}
	if err != nil {
		return model.Preroll{}, fmt.Errorf("upsert preroll: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM preroll_categories WHERE preroll_id = ?`, p.ID); err != nil {
		return model.Preroll{}, fmt.Errorf("clear additional categories: %w", err)
	}
	for _, catID := range p.AdditionalCategory {
		if p.PrimaryCategoryID != nil && catID == *p.PrimaryCategoryID {
			continue
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO preroll_categories (preroll_id, category_id) VALUES (?, ?)`, p.ID, catID); err != nil {
			return model.Preroll{}, fmt.Errorf("add additional category %d: %w", catID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return model.Preroll{}, fmt.Errorf("commit preroll upsert: %w", err)
	}
	return p, nil
}

// DeletePreroll removes a preroll by id. The caller (management API) is
// responsible for unlinking the file on disk first when Managed is true, per
// §3's invariant that unmanaged prerolls are never touched on disk.
func (s *Store) DeletePreroll(ctx context.Context, id int64) error {
	ctx, cancel := ensureTimeout(ctx, 10*time.Second)
	defer cancel()
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete preroll transaction: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM preroll_categories WHERE preroll_id = ?`, id); err != nil {
		return fmt.Errorf("delete preroll category memberships: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM prerolls WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete preroll %d: %w", id, err)
	}
	return tx.Commit()
}

// GenreMapIndex loads every GenreMap row indexed by canonical genre_norm key
// (§4.7's unique-by-genre_norm invariant makes this a safe 1:1 index).
func (s *Store) GenreMapIndex(ctx context.Context) (map[string]model.GenreMap, error) {
	ctx, cancel := ensureTimeout(ctx, 10*time.Second)
	defer cancel()
	rows, err := s.conn.QueryContext(ctx, `SELECT id, raw_label, genre_norm, category_id FROM genre_maps`)
	if err != nil {
		return nil, fmt.Errorf("list genre maps: %w", err)
	}
	defer rows.Close()
	out := make(map[string]model.GenreMap)
	for rows.Next() {
		var gm model.GenreMap
		if err := rows.Scan(&gm.ID, &gm.RawLabel, &gm.GenreNorm, &gm.CategoryID); err != nil {
			return nil, err
		}
		out[gm.GenreNorm] = gm
	}
	return out, rows.Err()
}

// AllGenreMaps lists every genre map row, for the management API.
func (s *Store) AllGenreMaps(ctx context.Context) ([]model.GenreMap, error) {
	idx, err := s.GenreMapIndex(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.GenreMap, 0, len(idx))
	for _, gm := range idx {
		out = append(out, gm)
	}
	return out, nil
}

// PutGenreMap inserts or updates a genre map, enforcing uniqueness by
// genre_norm (§3).
func (s *Store) PutGenreMap(ctx context.Context, gm model.GenreMap) (model.GenreMap, error) {
	ctx, cancel := ensureTimeout(ctx, 10*time.Second)
	defer cancel()

	var existingID int64
	err := s.conn.QueryRowContext(ctx, `SELECT id FROM genre_maps WHERE genre_norm = ? AND id != ?`, gm.GenreNorm, gm.ID).Scan(&existingID)
	if err == nil {
		return model.GenreMap{}, fmt.Errorf("genre_norm %q already mapped by genre map %d", gm.GenreNorm, existingID)
	} else if err != sql.ErrNoRows {
		return model.GenreMap{}, fmt.Errorf("check genre_norm uniqueness: %w", err)
	}

	if gm.ID == 0 {
		if err := s.conn.QueryRowContext(ctx, `SELECT nextval('genre_maps_id_seq')`).Scan(&gm.ID); err != nil {
			return model.GenreMap{}, fmt.Errorf("allocate genre map id: %w", err)
		}
		_, err := s.conn.ExecContext(ctx, `INSERT INTO genre_maps (id, raw_label, genre_norm, category_id) VALUES (?, ?, ?, ?)`,
			gm.ID, gm.RawLabel, gm.GenreNorm, gm.CategoryID)
		if err != nil {
			return model.GenreMap{}, fmt.Errorf("insert genre map: %w", err)
		}
		return gm, nil
	}
	_, err = s.conn.ExecContext(ctx, `UPDATE genre_maps SET raw_label=?, genre_norm=?, category_id=? WHERE id=?`,
		gm.RawLabel, gm.GenreNorm, gm.CategoryID, gm.ID)
	if err != nil {
		return model.GenreMap{}, fmt.Errorf("update genre map %d: %w", gm.ID, err)
	}
	return gm, nil
}

// DeleteGenreMap removes a genre map by id.
func (s *Store) DeleteGenreMap(ctx context.Context, id int64) error {
	ctx, cancel := ensureTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := s.conn.ExecContext(ctx, `DELETE FROM genre_maps WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete genre map %d: %w", id, err)
	}
	return nil
}

// AllHolidayPresets lists every holiday preset.
func (s *Store) AllHolidayPresets(ctx context.Context) ([]model.HolidayPreset, error) {
	ctx, cancel := ensureTimeout(ctx, 10*time.Second)
	defer cancel()
	rows, err := s.conn.QueryContext(ctx, `SELECT id, name, start_month, start_day, end_month, end_day FROM holiday_presets ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list holiday presets: %w", err)
	}
	defer rows.Close()
	var out []model.HolidayPreset
	for rows.Next() {
		var h model.HolidayPreset
		if err := rows.Scan(&h.ID, &h.Name, &h.StartMonth, &h.StartDay, &h.EndMonth, &h.EndDay); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// PutHolidayPreset inserts or updates a holiday preset.
func (s *Store) PutHolidayPreset(ctx context.Context, h model.HolidayPreset) (model.HolidayPreset, error) {
	ctx, cancel := ensureTimeout(ctx, 10*time.Second)
	defer cancel()
	if h.ID == 0 {
		if err := s.conn.QueryRowContext(ctx, `SELECT nextval('holiday_presets_id_seq')`).Scan(&h.ID); err != nil {
			return model.HolidayPreset{}, fmt.Errorf("allocate holiday preset id: %w", err)
		}
		_, err := s.conn.ExecContext(ctx,
			`INSERT INTO holiday_presets (id, name, start_month, start_day, end_month, end_day) VALUES (?, ?, ?, ?, ?, ?)`,
			h.ID, h.Name, h.StartMonth, h.StartDay, h.EndMonth, h.EndDay)
		if err != nil {
			return model.HolidayPreset{}, fmt.Errorf("insert holiday preset: %w", err)
		}
		return h, nil
	}
	_, err := s.conn.ExecContext(ctx,
		`UPDATE holiday_presets SET name=?, start_month=?, start_day=?, end_month=?, end_day=? WHERE id=?`,
		h.Name, h.StartMonth, h.StartDay, h.EndMonth, h.EndDay, h.ID)
	if err != nil {
		return model.HolidayPreset{}, fmt.Errorf("update holiday preset %d: %w", h.ID, err)
	}
	return h, nil
}

// DeleteHolidayPreset removes a holiday preset by id.
func (s *Store) DeleteHolidayPreset(ctx context.Context, id int64) error {
	ctx, cancel := ensureTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := s.conn.ExecContext(ctx, `DELETE FROM holiday_presets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete holiday preset %d: %w", id, err)
	}
	return nil
}

// SavedSequenceByID returns a saved sequence (filler sequence mode, §3).
func (s *Store) SavedSequenceByID(ctx context.Context, id int64) (model.SavedSequence, bool, error) {
	ctx, cancel := ensureTimeout(ctx, 10*time.Second)
	defer cancel()
	var seq model.SavedSequence
	var sequenceJSON string
	row := s.conn.QueryRowContext(ctx, `SELECT id, name, sequence_json FROM saved_sequences WHERE id = ?`, id)
	if err := row.Scan(&seq.ID, &seq.Name, &sequenceJSON); err == sql.ErrNoRows {
		return model.SavedSequence{}, false, nil
	} else if err != nil {
		return model.SavedSequence{}, false, fmt.Errorf("get saved sequence %d: %w", id, err)
	}
	steps, err := model.ParseSequence(json.RawMessage(sequenceJSON))
	if err != nil {
		return model.SavedSequence{}, false, fmt.Errorf("decode saved sequence %d: %w", id, err)
	}
	seq.Sequence = steps
	return seq, true, nil
}

// AllSavedSequences lists every saved sequence.
func (s *Store) AllSavedSequences(ctx context.Context) ([]model.SavedSequence, error) {
	ctx, cancel := ensureTimeout(ctx, 10*time.Second)
	defer cancel()
	rows, err := s.conn.QueryContext(ctx, `SELECT id FROM saved_sequences ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list saved sequences: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]model.SavedSequence, 0, len(ids))
	for _, id := range ids {
		seq, ok, err := s.SavedSequenceByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, seq)
		}
	}
	return out, nil
}

// PutSavedSequence inserts or updates a saved sequence.
func (s *Store) PutSavedSequence(ctx context.Context, seq model.SavedSequence) (model.SavedSequence, error) {
	ctx, cancel := ensureTimeout(ctx, 10*time.Second)
	defer cancel()
	sequenceJSON, err := json.Marshal(seq.Sequence)
	if err != nil {
		return model.SavedSequence{}, fmt.Errorf("encode sequence: %w", err)
	}
	if seq.ID == 0 {
		if err := s.conn.QueryRowContext(ctx, `SELECT nextval('saved_sequences_id_seq')`).Scan(&seq.ID); err != nil {
			return model.SavedSequence{}, fmt.Errorf("allocate saved sequence id: %w", err)
		}
		_, err := s.conn.ExecContext(ctx, `INSERT INTO saved_sequences (id, name, sequence_json) VALUES (?, ?, ?)`,
			seq.ID, seq.Name, string(sequenceJSON))
		if err != nil {
			return model.SavedSequence{}, fmt.Errorf("insert saved sequence: %w", err)
		}
		return seq, nil
	}
	_, err = s.conn.ExecContext(ctx, `UPDATE saved_sequences SET name=?, sequence_json=? WHERE id=?`, seq.Name, string(sequenceJSON), seq.ID)
	if err != nil {
		return model.SavedSequence{}, fmt.Errorf("update saved sequence %d: %w", seq.ID, err)
	}
	return seq, nil
}

// DeleteSavedSequence removes a saved sequence by id.
func (s *Store) DeleteSavedSequence(ctx context.Context, id int64) error {
	ctx, cancel := ensureTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := s.conn.ExecContext(ctx, `DELETE FROM saved_sequences WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete saved sequence %d: %w", id, err)
	}
	return nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullFloat64(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}
