// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package config

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Validate checks that the loaded configuration is internally consistent.
// Plex/Jellyfin themselves are optional (§1: the engine can run with either,
// both, or neither configured yet — they're set later through the
// management API's Setting update) so only the fields that are present are
// checked for well-formedness.
func (c *Config) Validate() error {
	if err := c.validatePlex(); err != nil {
		return err
	}
	if err := c.validateJellyfin(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateControlLoop(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateEventBus()
}

func (c *Config) validateEventBus() error {
	if !c.EventBus.Enabled || c.EventBus.EmbeddedServer || c.EventBus.URL == "" {
		return nil
	}
	return validateNATSURL(c.EventBus.URL)
}

func (c *Config) validatePlex() error {
	if c.Plex.URL == "" {
		return nil
	}
	if err := validateHTTPURL(c.Plex.URL, "NEXROLL_PLEX_URL"); err != nil {
		return fmt.Errorf("NEXROLL_PLEX_URL is invalid: %w", err)
	}
	return validateTLSVerifyFlag(c.Plex.TLSVerify, "NEXROLL_PLEX_TLS_VERIFY")
}

func (c *Config) validateJellyfin() error {
	if c.Jellyfin.URL == "" {
		return nil
	}
	if err := validateHTTPURL(c.Jellyfin.URL, "NEXROLL_JELLYFIN_URL"); err != nil {
		return fmt.Errorf("NEXROLL_JELLYFIN_URL is invalid: %w", err)
	}
	return validateTLSVerifyFlag(c.Jellyfin.TLSVerify, "NEXROLL_JELLYFIN_TLS_VERIFY")
}

// validateTLSVerifyFlag accepts "" (defer to the host heuristic, §6.7) or a
// parseable boolean string.
func validateTLSVerifyFlag(value, fieldName string) error {
	if value == "" {
		return nil
	}
	switch strings.ToLower(value) {
	case "0", "1", "true", "false":
		return nil
	default:
		return fmt.Errorf("%s must be 0, 1, true, or false, got: %s", fieldName, value)
	}
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	return nil
}

func (c *Config) validateControlLoop() error {
	if c.ControlLoop.TickInterval <= 0 {
		return fmt.Errorf("SCHEDULER_INTERVAL must be a positive number of seconds")
	}
	if c.ControlLoop.VerifyInterval <= 0 {
		return fmt.Errorf("control_loop.verify_interval must be positive")
	}
	return nil
}

const minRateLimitWindow = time.Second

func (c *Config) validateSecurity() error {
	if c.Security.AdminUsername != "" && c.Security.AdminPassword == "" {
		return fmt.Errorf("ADMIN_PASSWORD is required when ADMIN_USERNAME is set")
	}
	if c.Security.AdminUsername != "" {
		if err := validateAdminPassword(c.Security.AdminPassword, c.Security.AdminUsername); err != nil {
			return fmt.Errorf("ADMIN_PASSWORD: %w", err)
		}
	}
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1")
	}
	if c.Security.RateLimitWindow < minRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be at least %v", minRateLimitWindow)
	}
	return nil
}

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

var validLogFormats = map[string]bool{"json": true, "console": true}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

const adminPasswordMinLength = 12

// validateAdminPassword enforces the handful of rules the management API's
// single operator credential (§6.6) actually needs: length, character
// variety, and not trivially derived from the username. There is exactly
// one admin account in this engine, so this stays a plain function rather
// than a configurable policy type.
func validateAdminPassword(password, username string) error {
	if len(password) < adminPasswordMinLength {
		return fmt.Errorf("must be at least %d characters (got %d)", adminPasswordMinLength, len(password))
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}
	var missing []string
	if !hasUpper {
		missing = append(missing, "an uppercase letter")
	}
	if !hasLower {
		missing = append(missing, "a lowercase letter")
	}
	if !hasDigit {
		missing = append(missing, "a digit")
	}
	if !hasSpecial {
		missing = append(missing, "a special character")
	}
	if len(missing) > 0 {
		return fmt.Errorf("must contain %s", strings.Join(missing, ", "))
	}

	if username != "" && strings.Contains(strings.ToLower(password), strings.ToLower(username)) {
		return fmt.Errorf("must not contain the admin username")
	}
	return nil
}
