// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Versioned schema migrations, grounded on the teacher's
// internal/database/migrations.go: a schema_migrations tracking table plus
// an append-only slice of {version, name, sql}, applied exactly once. Like
// the teacher at this stage of the project, the initial release ships its
// whole schema in schema.go's CREATE TABLE statements; this slice is the
// landing place for anything added after the first release.
package store

import (
	"context"
	"fmt"
)

type migration struct {
	Version     int
	Name        string
	Description string
	SQL         string
}

const migrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version     INTEGER PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT,
	applied_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// migrations is append-only: never edit or remove an entry once a released
// version has shipped it.
var migrations = []migration{}

func (s *Store) runMigrations() error {
	ctx, cancel := schemaContext()
	defer cancel()

	if _, err := s.conn.ExecContext(ctx, migrationsTable); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	applied, err := s.appliedMigrationVersions(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		if _, err := s.conn.ExecContext(ctx, m.SQL); err != nil {
			return fmt.Errorf("apply migration v%d (%s): %w", m.Version, m.Name, err)
		}
		_, err := s.conn.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, name, description) VALUES (?, ?, ?)`,
			m.Version, m.Name, m.Description)
		if err != nil {
			return fmt.Errorf("record migration v%d: %w", m.Version, err)
		}
	}
	return nil
}

func (s *Store) appliedMigrationVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan migration version: %w", err)
		}
		applied[v] = true
	}
	return applied, rows.Err()
}
