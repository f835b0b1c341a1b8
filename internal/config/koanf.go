// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where a config file is searched for, in
// priority order. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/nexroll/config.yaml",
	"/etc/nexroll/config.yml",
}

// ConfigPathEnvVar overrides the config file search with an explicit path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Plex: PlexConfig{
			URL:       "",
			Token:     "",
			TLSVerify: "",
		},
		Jellyfin: JellyfinConfig{
			URL:       "",
			APIKey:    "",
			TLSVerify: "",
		},
		Store: StoreConfig{
			Path:      "/data/nexroll.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		ControlLoop: ControlLoopConfig{
			TickInterval:     30 * time.Second,
			VerifyInterval:   5 * time.Minute,
			RotationInterval: time.Hour,
		},
		HolidayAPI: HolidayAPIConfig{
			BaseURL: "https://date.nager.at/api/v3",
			Timeout: 10 * time.Second,
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        3417,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Security: SecurityConfig{
			AdminUsername:     "",
			AdminPassword:     "",
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		EventBus: EventBusConfig{
			Enabled:        false,
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: true,
			StoreDir:       "/data/nats/jetstream",
			StreamName:     "nexroll-events",
			PublishTimeout: 2 * time.Second,
		},
	}
}

// LoadWithKoanf loads configuration with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML config file, if present
//  3. Environment variables: override any setting (§6.7's recognised names)
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	// SCHEDULER_INTERVAL (§6.7) is specified in bare seconds, not a Go
	// duration string, so it bypasses koanf's duration decode hook.
	if raw := os.Getenv("SCHEDULER_INTERVAL"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			cfg.ControlLoop.TickInterval = time.Duration(secs) * time.Second
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated env values into slices for the
// handful of fields koanf's env provider would otherwise leave as strings.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps §6.7's recognised environment variables (plus the
// ambient operational knobs) onto koanf config paths. Unmapped variables are
// dropped so unrelated host environment noise never leaks into Config.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		"nexroll_plex_url":            "plex.url",
		"nexroll_plex_token":          "plex.token",
		"nexroll_plex_tls_verify":     "plex.tls_verify",
		"nexroll_plex_webhook_secret": "plex.webhook_secret",
		"nexroll_jellyfin_url":        "jellyfin.url",
		"nexroll_jellyfin_api_key":    "jellyfin.api_key",
		"nexroll_jellyfin_tls_verify": "jellyfin.tls_verify",

		// scheduler_interval is handled separately in LoadWithKoanf: it is
		// specified in bare seconds, not a Go duration string.

		"duckdb_path":       "store.path",
		"duckdb_max_memory": "store.max_memory",
		"credential_secret": "store.credential_secret",

		"holiday_api_base_url": "holiday_api.base_url",
		"holiday_api_timeout":  "holiday_api.timeout",

		"http_host":    "server.host",
		"http_port":    "server.port",
		"http_timeout": "server.timeout",
		"environment":  "server.environment",

		"admin_username":      "security.admin_username",
		"admin_password":      "security.admin_password",
		"cors_origins":        "security.cors_origins",
		"rate_limit_requests": "security.rate_limit_reqs",
		"rate_limit_window":   "security.rate_limit_window",
		"disable_rate_limit":  "security.rate_limit_disabled",

		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",

		"nats_enabled":   "eventbus.enabled",
		"nats_url":       "eventbus.url",
		"nats_embedded":  "eventbus.embedded_server",
		"nats_store_dir": "eventbus.store_dir",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
