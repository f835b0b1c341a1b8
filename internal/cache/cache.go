// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package cache provides a BadgerDB-backed TTL key/value store, grounded on
// the teacher's internal/auth/session_badger.go and
// internal/auth/zitadel_state_store_badger.go (the badger.Entry.WithTTL
// idiom for automatic expiry). Two call sites use it: the genre-override
// dedupe ring (internal/genremapper's RecentApplications, §4.7) and the
// HolidayAPI lookup cache (internal/holidayapi, §4.4), both of which keep a
// pure in-memory fallback for tests but gain durability across restarts
// when a Store is wired in — neither one's correctness depends on this
// package, which is why both still compile and pass without it.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned by Get when key is absent or its entry expired.
var ErrNotFound = errors.New("cache: key not found")

// Store is a durable, TTL-keyed byte-value cache backed by BadgerDB.
type Store struct {
	db *badger.DB
}

// Config controls where the BadgerDB data lives. An empty Path opens an
// in-memory instance, useful for tests and for deployments that don't need
// the dedupe ring or holiday cache to survive a restart.
type Config struct {
	Path string
}

// Open creates or opens a BadgerDB-backed Store at cfg.Path.
func Open(cfg Config) (*Store, error) {
	var opts badger.Options
	if cfg.Path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("cache: open badger: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying BadgerDB handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetJSON marshals value and stores it under key with the given TTL. A
// zero or negative ttl stores the entry without expiry.
func (s *Store) SetJSON(key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: marshal %q: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), data)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
}

// GetJSON unmarshals the value stored at key into dest. Returns ErrNotFound
// if the key is absent or its TTL has elapsed.
func (s *Store) GetJSON(key string, dest interface{}) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("cache: get %q: %w", key, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, dest)
		})
	})
}

// Delete removes key, if present.
func (s *Store) Delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Has reports whether key is present and unexpired, without decoding its
// value.
func (s *Store) Has(key string) bool {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		return err
	})
	return err == nil
}
