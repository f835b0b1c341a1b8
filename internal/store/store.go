// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package store is the DuckDB-backed persistence layer for the decision
// engine's entities (Preroll, Category, Schedule, Setting, GenreMap,
// HolidayPreset, SavedSequence).
//
// Grounded on the teacher's internal/database package: the connection
// lifecycle (New/Close with checkpoint-before-close), versioned migration
// table, and context-timeout discipline all follow
// internal/database/database.go, database_connection.go, and migrations.go,
// narrowed from the teacher's 203-column analytics schema to the handful of
// small tables this engine actually needs.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/nexroll/nexroll/internal/logging"
)

// CredentialEncryptor encrypts/decrypts the Plex token and Jellyfin API key
// before they touch disk, per the data model's "tokens held in secure store,
// not in the DB" requirement. Satisfied by *config.CredentialEncryptor; kept
// as a narrow interface here so store never imports config.
type CredentialEncryptor interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// Config configures the DuckDB-backed Store.
type Config struct {
	Path      string // database file path; ":memory:" for an ephemeral store
	MaxMemory string // DuckDB max_memory setting, e.g. "2GB"
	Threads   int    // 0 = runtime.NumCPU()

	// Encryptor, when set, encrypts PlexToken/JellyfinAPIKey at rest. Nil
	// is allowed (e.g. for ":memory:" tests) and stores both in plaintext.
	Encryptor CredentialEncryptor
}

func (c Config) withDefaults() Config {
	if c.MaxMemory == "" {
		c.MaxMemory = "1GB"
	}
	if c.Threads <= 0 {
		c.Threads = runtime.NumCPU()
	}
	return c
}

// Store wraps the DuckDB connection and implements the engine's persistence
// surface (internal/controlloop.Store and the management API's CRUD needs).
type Store struct {
	conn *sql.DB
	cfg  Config
}

// New opens (creating if necessary) the DuckDB database at cfg.Path and
// ensures the schema is current.
func New(cfg Config) (*Store, error) {
	cfg = cfg.withDefaults()

	if cfg.Path != ":memory:" {
		dir := filepath.Dir(cfg.Path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create database directory %s: %w", dir, err)
			}
		}
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, cfg.Threads, cfg.MaxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	conn.SetMaxOpenConns(runtime.NumCPU())
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)

	s := &Store{conn: conn, cfg: cfg}
	if err := s.initialize(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	if err := s.createTables(); err != nil {
		return err
	}
	if err := s.runMigrations(); err != nil {
		return err
	}
	if err := s.createIndexes(); err != nil {
		return err
	}
	return s.ensureSettingRow()
}

// Close flushes the WAL and closes the connection. DuckDB replays the WAL on
// next startup; checkpointing first avoids replay failures the teacher
// documented for TIMESTAMPTZ-defaulted columns (database.go's Close).
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Str("component", "store").Msg("checkpoint before close failed")
	}
	cancel()
	return s.conn.Close()
}

// Checkpoint forces a WAL checkpoint.
func (s *Store) Checkpoint(ctx context.Context) error {
	ctx, cancel := ensureTimeout(ctx, 30*time.Second)
	defer cancel()
	_, err := s.conn.ExecContext(ctx, "CHECKPOINT")
	if err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}

// Ping verifies the connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

func ensureTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), d)
	}
	if _, ok := ctx.Deadline(); !ok {
		return context.WithTimeout(ctx, d)
	}
	return ctx, func() {}
}
