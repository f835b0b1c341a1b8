// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// BasicAuthManager gates the management API behind the single operator
// username/password pair described in §6.6. There is exactly one admin
// account; this is intentionally not a multi-user session store.
type BasicAuthManager struct {
	username     string
	passwordHash []byte // bcrypt hash of password
}

// NewBasicAuthManager hashes password once at startup so every request only
// pays for a bcrypt compare, not a bcrypt hash. config.validateAdminPassword
// enforces the full §6.6 password policy before this is ever called; the
// length floor here is a cheap backstop against a manager being constructed
// directly without going through Config.Validate.
func NewBasicAuthManager(username, password string) (*BasicAuthManager, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if password == "" {
		return nil, fmt.Errorf("password is required")
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters for security")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	return &BasicAuthManager{
		username:     username,
		passwordHash: hash,
	}, nil
}

// ValidateCredentials decodes an HTTP "Authorization: Basic ..." header and
// checks it against the configured operator credential. Returns the
// username on success.
func (m *BasicAuthManager) ValidateCredentials(authHeader string) (string, error) {
	if !strings.HasPrefix(authHeader, "Basic ") {
		return "", fmt.Errorf("invalid authorization header format")
	}

	encodedCredentials := strings.TrimPrefix(authHeader, "Basic ")
	credentials, err := base64.StdEncoding.DecodeString(encodedCredentials)
	if err != nil {
		return "", fmt.Errorf("failed to decode credentials")
	}

	parts := strings.SplitN(string(credentials), ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid credentials format")
	}

	providedUsername := parts[0]
	providedPassword := parts[1]

	if !m.validateUsernamePassword(providedUsername, providedPassword) {
		return "", fmt.Errorf("invalid username or password")
	}

	return providedUsername, nil
}

// validateUsernamePassword compares the username and password in constant
// time. Both comparisons are computed into local variables before being
// combined, so the final `&&` never skips either compare — it only joins
// two already-computed booleans, unlike `a() && b()` where `b()` would be
// skipped once `a()` is false.
func (m *BasicAuthManager) validateUsernamePassword(username, password string) bool {
	usernameMatch := subtle.ConstantTimeCompare([]byte(username), []byte(m.username)) == 1
	passwordMatch := bcrypt.CompareHashAndPassword(m.passwordHash, []byte(password)) == nil
	return usernameMatch && passwordMatch
}

// GetWWWAuthenticateHeader is the header value sent alongside a 401, naming
// this engine's realm per RFC 7617.
func (m *BasicAuthManager) GetWWWAuthenticateHeader() string {
	return `Basic realm="NeXroll", charset="UTF-8"`
}
