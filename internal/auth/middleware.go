// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package auth

import (
	"net/http"

	"github.com/nexroll/nexroll/internal/logging"
)

// RequireBasicAuth wraps next with HTTP Basic Auth gating, per §6.6 ("the
// management API is optionally protected by a single operator
// username/password pair"). If manager is nil, authentication is disabled
// and every request passes through unchanged.
func RequireBasicAuth(manager *BasicAuthManager, next http.Handler) http.Handler {
	if manager == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := manager.ValidateCredentials(r.Header.Get("Authorization")); err != nil {
			logging.Warn().
				Str("component", "auth").
				Str("remote_addr", r.RemoteAddr).
				Str("path", r.URL.Path).
				Msg("basic auth rejected")
			w.Header().Set("WWW-Authenticate", manager.GetWWWAuthenticateHeader())
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
