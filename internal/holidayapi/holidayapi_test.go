// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package holidayapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_ResolvesAndCaches(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode([]Holiday{{Name: "Thanksgiving", Date: "2026-11-26"}})
	}))
	defer srv.Close()

	c := New(srv.URL, "", time.Second)
	month, day, ok := c.Lookup("Thanksgiving", "US", 2026)
	require.True(t, ok)
	assert.Equal(t, 11, month)
	assert.Equal(t, 26, day)

	_, _, _ = c.Lookup("Thanksgiving", "US", 2026)
	assert.Equal(t, 1, calls, "second lookup for the same (name,country,year) hits the cache")
}

func TestLookup_NullResultCached(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode([]Holiday{})
	}))
	defer srv.Close()

	c := New(srv.URL, "", time.Second)
	_, _, ok := c.Lookup("Nonexistent Day", "US", 2026)
	assert.False(t, ok)
	_, _, ok = c.Lookup("Nonexistent Day", "US", 2026)
	assert.False(t, ok)
	assert.Equal(t, 1, calls, "a null result is cached too")
}

func TestLookup_ErrorNotCached(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, "", time.Second)
	_, _, ok := c.Lookup("X", "US", 2026)
	assert.False(t, ok)
	_, _, ok = c.Lookup("X", "US", 2026)
	assert.False(t, ok)
	assert.Equal(t, 2, calls, "errors are not cached, each lookup retries the API")
}
