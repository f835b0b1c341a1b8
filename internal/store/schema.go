// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Table creation and indexes, grounded on the teacher's
// internal/database/database_schema.go layout: a single slice of
// CREATE TABLE IF NOT EXISTS statements executed in order, indexes created
// separately afterward.
package store

import (
	"context"
	"fmt"
	"time"
)

func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

func (s *Store) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries {
		if _, err := s.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}
	return nil
}

var tableCreationQueries = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id            BIGINT PRIMARY KEY,
		name          TEXT NOT NULL,
		description   TEXT,
		plex_mode     TEXT NOT NULL DEFAULT 'shuffle',
		apply_to_plex BOOLEAN NOT NULL DEFAULT true,
		is_system     BOOLEAN NOT NULL DEFAULT false
	);`,
	`CREATE SEQUENCE IF NOT EXISTS categories_id_seq START 1;`,

	`CREATE TABLE IF NOT EXISTS prerolls (
		id                   BIGINT PRIMARY KEY,
		filename             TEXT NOT NULL,
		path                 TEXT NOT NULL,
		display_name         TEXT,
		primary_category_id  BIGINT REFERENCES categories(id),
		duration_seconds     DOUBLE,
		size_bytes           BIGINT,
		managed              BOOLEAN NOT NULL DEFAULT false
	);`,
	`CREATE SEQUENCE IF NOT EXISTS prerolls_id_seq START 1;`,

	`CREATE TABLE IF NOT EXISTS preroll_categories (
		preroll_id  BIGINT NOT NULL REFERENCES prerolls(id),
		category_id BIGINT NOT NULL REFERENCES categories(id),
		PRIMARY KEY (preroll_id, category_id)
	);`,

	`CREATE TABLE IF NOT EXISTS schedules (
		id                   BIGINT PRIMARY KEY,
		name                 TEXT NOT NULL,
		type                 TEXT NOT NULL,
		start_date           TIMESTAMP NOT NULL,
		end_date             TIMESTAMP,
		category_id          BIGINT NOT NULL REFERENCES categories(id),
		fallback_category_id BIGINT REFERENCES categories(id),
		shuffle              BOOLEAN NOT NULL DEFAULT false,
		playlist             BOOLEAN NOT NULL DEFAULT false,
		priority             INTEGER NOT NULL DEFAULT 5,
		exclusive            BOOLEAN NOT NULL DEFAULT false,
		blend_enabled        BOOLEAN NOT NULL DEFAULT false,
		is_active            BOOLEAN NOT NULL DEFAULT true,
		recurrence_pattern   TEXT,
		sequence_json        TEXT,
		last_run             TIMESTAMP,
		next_run             TIMESTAMP
	);`,
	`CREATE SEQUENCE IF NOT EXISTS schedules_id_seq START 1;`,

	`CREATE TABLE IF NOT EXISTS genre_maps (
		id          BIGINT PRIMARY KEY,
		raw_label   TEXT NOT NULL,
		genre_norm  TEXT NOT NULL,
		category_id BIGINT NOT NULL REFERENCES categories(id)
	);`,
	`CREATE SEQUENCE IF NOT EXISTS genre_maps_id_seq START 1;`,

	`CREATE TABLE IF NOT EXISTS holiday_presets (
		id          BIGINT PRIMARY KEY,
		name        TEXT NOT NULL,
		start_month INTEGER NOT NULL,
		start_day   INTEGER NOT NULL,
		end_month   INTEGER NOT NULL,
		end_day     INTEGER NOT NULL
	);`,
	`CREATE SEQUENCE IF NOT EXISTS holiday_presets_id_seq START 1;`,

	`CREATE TABLE IF NOT EXISTS saved_sequences (
		id            BIGINT PRIMARY KEY,
		name          TEXT NOT NULL,
		sequence_json TEXT NOT NULL
	);`,
	`CREATE SEQUENCE IF NOT EXISTS saved_sequences_id_seq START 1;`,

	// Setting is a process-wide singleton; id is always 1.
	`CREATE TABLE IF NOT EXISTS settings (
		id                        INTEGER PRIMARY KEY DEFAULT 1,
		plex_url                  TEXT,
		plex_token                TEXT,
		jellyfin_url              TEXT,
		jellyfin_api_key          TEXT,
		active_category           BIGINT,
		last_schedule_fallback    BIGINT,
		override_expires_at       TIMESTAMP,
		path_mappings_json        TEXT,
		filler_enabled            BOOLEAN NOT NULL DEFAULT false,
		filler_type               TEXT NOT NULL DEFAULT 'category',
		filler_category_id        BIGINT,
		filler_sequence_id        BIGINT,
		filler_coming_soon_layout TEXT,
		filler_active             TEXT NOT NULL DEFAULT '',
		clear_when_inactive       BOOLEAN NOT NULL DEFAULT false,
		passive_mode              BOOLEAN NOT NULL DEFAULT false,
		genre_auto_apply          BOOLEAN NOT NULL DEFAULT false,
		genre_priority_mode       TEXT NOT NULL DEFAULT 'schedules_override',
		genre_override_ttl_secs   INTEGER NOT NULL DEFAULT 900,
		timezone                  TEXT NOT NULL DEFAULT 'UTC',
		last_applied_value        TEXT NOT NULL DEFAULT '',
		last_applied_mode         TEXT NOT NULL DEFAULT '',
		CHECK (id = 1)
	);`,
}

func (s *Store) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_prerolls_primary_category ON prerolls(primary_category_id);`,
		`CREATE INDEX IF NOT EXISTS idx_preroll_categories_category ON preroll_categories(category_id);`,
		`CREATE INDEX IF NOT EXISTS idx_schedules_category ON schedules(category_id);`,
		`CREATE INDEX IF NOT EXISTS idx_schedules_is_active ON schedules(is_active);`,
		`CREATE INDEX IF NOT EXISTS idx_genre_maps_norm ON genre_maps(genre_norm);`,
	}
	for _, idx := range indexes {
		if _, err := s.conn.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

func (s *Store) ensureSettingRow() error {
	ctx, cancel := schemaContext()
	defer cancel()
	_, err := s.conn.ExecContext(ctx, `INSERT INTO settings (id) VALUES (1) ON CONFLICT (id) DO NOTHING;`)
	if err != nil {
		return fmt.Errorf("ensure settings singleton row: %w", err)
	}
	return nil
}
