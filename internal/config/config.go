// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package config

import "time"

// Config holds all engine configuration, loaded from defaults, an optional
// YAML file, and environment variables (highest priority), in that order.
//
// Most of what NeXroll needs to know at runtime — server URLs, tokens,
// schedules, categories — lives in the Setting singleton in the Store, not
// here: Config only covers what has to exist before the Store can be opened
// (§6.7) plus the ambient operational knobs (tick cadence, HTTP timeouts,
// logging, the management API's optional auth).
type Config struct {
	Plex       PlexConfig       `koanf:"plex"`
	Jellyfin   JellyfinConfig   `koanf:"jellyfin"`
	Store      StoreConfig      `koanf:"store"`
	ControlLoop ControlLoopConfig `koanf:"control_loop"`
	HolidayAPI HolidayAPIConfig `koanf:"holiday_api"`
	Server     ServerConfig     `koanf:"server"`
	Security   SecurityConfig   `koanf:"security"`
	Logging    LoggingConfig    `koanf:"logging"`
	EventBus   EventBusConfig   `koanf:"eventbus"`
}

// PlexConfig holds the initial Plex connection the Store's Setting row is
// seeded with on first boot (§6.7). Subsequent changes go through the
// management API and live in Setting, not here.
type PlexConfig struct {
	URL           string `koanf:"url"`
	Token         string `koanf:"token"`
	TLSVerify     string `koanf:"tls_verify"`      // "", "true", or "false" — "" defers to the host heuristic
	WebhookSecret string `koanf:"webhook_secret"`  // HMAC-SHA1 verification key for §6.3
}

// JellyfinConfig mirrors PlexConfig for the Jellyfin backend.
type JellyfinConfig struct {
	URL       string `koanf:"url"`
	APIKey    string `koanf:"api_key"`
	TLSVerify string `koanf:"tls_verify"`
}

// StoreConfig configures the DuckDB-backed persistence layer.
type StoreConfig struct {
	Path              string `koanf:"path"`
	MaxMemory         string `koanf:"max_memory"`
	Threads           int    `koanf:"threads"`
	CredentialSecret  string `koanf:"credential_secret"` // derives the AES key for tokens at rest; empty disables encryption
}

// ControlLoopConfig tunes the ControlLoop's cadence (§4.1, §6.7).
type ControlLoopConfig struct {
	TickInterval     time.Duration `koanf:"tick_interval"`     // SCHEDULER_INTERVAL
	VerifyInterval   time.Duration `koanf:"verify_interval"`   // Reconciler cadence (§4.8)
	RotationInterval time.Duration `koanf:"rotation_interval"` // SequenceExpander random re-roll cadence (§4.5)
}

// HolidayAPIConfig configures the read-only holiday lookup collaborator (§6.4).
type HolidayAPIConfig struct {
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
}

// ServerConfig holds the HTTP server settings for the webhook receivers and
// management API (§6.3, §6.6).
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // "development" or "production"
}

// SecurityConfig covers the management API's optional HTTP Basic Auth gate
// and CORS/rate-limit posture; there is no multi-tenant policy surface.
type SecurityConfig struct {
	AdminUsername     string        `koanf:"admin_username"`
	AdminPassword     string        `koanf:"admin_password"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig drives the zerolog-based logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// EventBusConfig configures the optional watermill/NATS event publisher
// (SPEC_FULL.md §2, §4.12). Off by default — never on the decision path.
type EventBusConfig struct {
	Enabled        bool          `koanf:"enabled"`
	URL            string        `koanf:"url"`
	EmbeddedServer bool          `koanf:"embedded_server"`
	StoreDir       string        `koanf:"store_dir"`
	StreamName     string        `koanf:"stream_name"`
	PublishTimeout time.Duration `koanf:"publish_timeout"`
}

// Load loads configuration using the layered Koanf v2 pipeline: built-in
// defaults, then an optional YAML file, then environment variables.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// AuthEnabled reports whether the management API's Basic Auth gate should be
// installed.
func (c *Config) AuthEnabled() bool {
	return c.Security.AdminUsername != "" && c.Security.AdminPassword != ""
}

// IsProduction reports whether Server.Environment is production-like.
func (c *Config) IsProduction() bool {
	switch c.Server.Environment {
	case "production", "prod":
		return true
	default:
		return false
	}
}
