// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package holidayapi is a thin read-only HolidayAPI client (§6.4) with an
// in-process cache keyed (name, country, year), no TTL since a year's
// holiday date never changes once published (§9 "Scope of in-process
// caches"). Grounded on the teacher's HTTP client request-building idiom in
// internal/sync/plex_request.go, simplified to GET-only JSON decoding.
package holidayapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/nexroll/nexroll/internal/cache"
	"github.com/nexroll/nexroll/internal/engineerr"
	"github.com/nexroll/nexroll/internal/logging"
)

// Holiday is one entry from GET /holidays?country=..&year=...
type Holiday struct {
	Name string `json:"name"`
	Date string `json:"date"` // "YYYY-MM-DD"
}

// Client fetches and caches holiday dates.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	mu    sync.Mutex
	cache map[cacheKey]cacheEntry

	// persist, when set via WithPersistentCache, backs the in-process cache
	// with a durable Store so resolved (and "no match") holiday lookups
	// survive a restart instead of re-hitting the upstream API on every
	// process start.
	persist *cache.Store
}

type cacheKey struct {
	name, country string
	year          int
}

type cacheEntry struct {
	Month, Day int
	Found      bool
}

// New builds a holiday API client with the given base URL/API key and a
// bounded timeout per §5 ("Every such call has a bounded timeout").
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		cache:      make(map[cacheKey]cacheEntry),
	}
}

// WithPersistentCache attaches store as a durable backing for holiday
// lookups and returns c for chaining. Safe to call once, right after New.
func (c *Client) WithPersistentCache(store *cache.Store) *Client {
	c.persist = store
	return c
}

func holidayCacheKey(k cacheKey) string {
	return fmt.Sprintf("holiday:%s:%s:%d", k.name, k.country, k.year)
}

// Lookup resolves (month, day) for a named holiday in country for year,
// satisfying the scheduleeval.HolidayLookup function signature. Results are
// cached indefinitely (year-scoped, per §9); errors are not cached so a
// transient API failure gets retried on the next tick instead of being
// remembered as "no match" forever.
func (c *Client) Lookup(name, country string, year int) (month, day int, ok bool) {
	key := cacheKey{name: name, country: country, year: year}

	c.mu.Lock()
	if entry, cached := c.cache[key]; cached {
		c.mu.Unlock()
		return entry.Month, entry.Day, entry.Found
	}
	c.mu.Unlock()

	if c.persist != nil {
		var entry cacheEntry
		if err := c.persist.GetJSON(holidayCacheKey(key), &entry); err == nil {
			c.mu.Lock()
			c.cache[key] = entry
			c.mu.Unlock()
			return entry.Month, entry.Day, entry.Found
		}
	}

	holidays, err := c.fetchHolidays(context.Background(), country, year)
	if err != nil {
		logging.Warn().Err(err).Str("component", "holidayapi").Str("legacy_tag", "SCHEDULER").Str("holiday", name).Str("country", country).Int("year", year).Msg("holiday lookup failed")
		return 0, 0, false
	}

	for _, h := range holidays {
		if h.Name != name {
			continue
		}
		m, d, parseErr := parseMonthDay(h.Date)
		if parseErr != nil {
			continue
		}
		entry := cacheEntry{Month: m, Day: d, Found: true}
		c.mu.Lock()
		c.cache[key] = entry
		c.mu.Unlock()
		c.persistEntry(key, entry)
		return m, d, true
	}

	// A null result (holiday not found this year) is also cached, per §6.4,
	// to avoid re-hammering the API for a holiday that genuinely doesn't
	// exist for this (name, country, year) triple — e.g. Feb 29 in a
	// non-leap year.
	entry := cacheEntry{Found: false}
	c.mu.Lock()
	c.cache[key] = entry
	c.mu.Unlock()
	c.persistEntry(key, entry)
	return 0, 0, false
}

// persistEntry best-effort writes entry to the durable cache, if attached.
// A write failure just means the next process restart re-fetches — never a
// reason to fail the lookup that's already succeeded in-memory.
func (c *Client) persistEntry(key cacheKey, entry cacheEntry) {
	if c.persist == nil {
		return
	}
	if err := c.persist.SetJSON(holidayCacheKey(key), entry, 0); err != nil {
		logging.Warn().Err(err).Str("component", "holidayapi").Msg("failed to persist holiday cache entry")
	}
}

func (c *Client) fetchHolidays(ctx context.Context, country string, year int) ([]Holiday, error) {
	url := fmt.Sprintf("%s/holidays?country=%s&year=%d", c.baseURL, country, year)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, engineerr.Wrap(engineerr.KindConfig, "holidayapi", "build request", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, engineerr.Transport(engineerr.ClassifyTransport(err), "holidayapi", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, engineerr.New(engineerr.KindProtocol, "holidayapi", fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}

	var holidays []Holiday
	if err := json.NewDecoder(resp.Body).Decode(&holidays); err != nil {
		return nil, engineerr.Wrap(engineerr.KindProtocol, "holidayapi", "decode response", err)
	}
	return holidays, nil
}

func parseMonthDay(dateStr string) (month, day int, err error) {
	t, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return 0, 0, fmt.Errorf("parse holiday date %q: %w", dateStr, err)
	}
	return int(t.Month()), t.Day(), nil
}
