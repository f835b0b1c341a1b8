// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithKoanfAppliesDefaults(t *testing.T) {
	cfg, err := LoadWithKoanf()
	require.NoError(t, err)
	assert.Equal(t, 3417, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestEnvTransformFuncMapsRecognisedVariables(t *testing.T) {
	cases := map[string]string{
		"NEXROLL_PLEX_URL":            "plex.url",
		"NEXROLL_PLEX_TOKEN":          "plex.token",
		"NEXROLL_PLEX_TLS_VERIFY":     "plex.tls_verify",
		"NEXROLL_JELLYFIN_URL":        "jellyfin.url",
		"NEXROLL_JELLYFIN_API_KEY":    "jellyfin.api_key",
		"NEXROLL_JELLYFIN_TLS_VERIFY": "jellyfin.tls_verify",
		"NEXROLL_PLEX_WEBHOOK_SECRET": "plex.webhook_secret",
		"ADMIN_USERNAME":              "security.admin_username",
	}
	for env, want := range cases {
		assert.Equal(t, want, envTransformFunc(env), "env var %s", env)
	}
}

func TestEnvTransformFuncDropsUnrecognisedVariables(t *testing.T) {
	assert.Equal(t, "", envTransformFunc("PATH"))
	assert.Equal(t, "", envTransformFunc("HOME"))
	assert.Equal(t, "", envTransformFunc("SOME_RANDOM_HOST_VAR"))
}

func TestSchedulerIntervalOverridesTickInterval(t *testing.T) {
	t.Setenv("SCHEDULER_INTERVAL", "45")

	cfg, err := LoadWithKoanf()
	require.NoError(t, err)
	assert.Equal(t, 45e9, float64(cfg.ControlLoop.TickInterval))
}

func TestFindConfigFileReturnsEmptyWhenNoneExist(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "/nonexistent/path/config.yaml")
	assert.Equal(t, "", findConfigFile())
}
