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

func TestDefaultConfigValidates(t *testing.T) {
	cfg := defaultConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidatePlexRequiresWellFormedURL(t *testing.T) {
	cfg := defaultConfig()
	cfg.Plex.URL = "not a url"
	require.Error(t, cfg.Validate())

	cfg.Plex.URL = "http://plex.local:32400"
	require.NoError(t, cfg.Validate())
}

func TestValidateTLSVerifyFlag(t *testing.T) {
	cfg := defaultConfig()
	cfg.Plex.URL = "http://plex.local:32400"

	cfg.Plex.TLSVerify = "maybe"
	assert.Error(t, cfg.Validate())

	for _, v := range []string{"", "0", "1", "true", "false"} {
		cfg.Plex.TLSVerify = v
		assert.NoError(t, cfg.Validate(), "TLSVerify=%q should be accepted", v)
	}
}

func TestValidateServerPortRange(t *testing.T) {
	cfg := defaultConfig()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())
	cfg.Server.Port = 70000
	assert.Error(t, cfg.Validate())
	cfg.Server.Port = 3417
	assert.NoError(t, cfg.Validate())
}

func TestValidateSecurityRequiresPasswordWithUsername(t *testing.T) {
	cfg := defaultConfig()
	cfg.Security.AdminUsername = "operator"
	cfg.Security.AdminPassword = ""
	assert.Error(t, cfg.Validate())

	cfg.Security.AdminPassword = "a-reasonably-strong-Passw0rd!"
	assert.NoError(t, cfg.Validate())
}

func TestValidateAdminPasswordRules(t *testing.T) {
	cases := []struct {
		name     string
		password string
		username string
		wantErr  bool
	}{
		{"too short", "Sh0rt!", "operator", true},
		{"missing upper", "nouppercase1!", "operator", true},
		{"missing lower", "NOLOWERCASE1!", "operator", true},
		{"missing digit", "NoDigitsHere!", "operator", true},
		{"missing special", "NoSpecialChar1", "operator", true},
		{"contains username", "operatorIsStrong1!", "operator", true},
		{"meets all rules", "a-reasonably-Strong1!", "operator", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateAdminPassword(tc.password, tc.username)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEventBusURL(t *testing.T) {
	cfg := defaultConfig()
	cfg.EventBus.Enabled = true
	cfg.EventBus.EmbeddedServer = false

	cfg.EventBus.URL = "not-a-nats-url"
	assert.Error(t, cfg.Validate())

	cfg.EventBus.URL = "nats://nats.local:4222"
	assert.NoError(t, cfg.Validate())

	cfg.EventBus.EmbeddedServer = true
	cfg.EventBus.URL = "not-a-nats-url"
	assert.NoError(t, cfg.Validate(), "embedded server skips URL validation")
}

func TestAuthEnabled(t *testing.T) {
	cfg := defaultConfig()
	assert.False(t, cfg.AuthEnabled())

	cfg.Security.AdminUsername = "operator"
	cfg.Security.AdminPassword = "a-reasonably-strong-Passw0rd!"
	assert.True(t, cfg.AuthEnabled())
}

func TestIsProduction(t *testing.T) {
	cfg := defaultConfig()
	assert.False(t, cfg.IsProduction())
	cfg.Server.Environment = "production"
	assert.True(t, cfg.IsProduction())
}
