// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package serveradapter

import (
	"crypto/tls"
	"net/http"
	"net"
	"strings"
)

func newHTTPClient(cfg Config) *http.Client {
	transport := &http.Transport{}
	if !cfg.TLSVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // operator opt-in per §6.7 heuristic
	}
	return &http.Client{Timeout: cfg.Timeout, Transport: transport}
}

// InferTLSVerify implements the §6.7 TLS verification heuristic: disabled
// for localhost, loopback, RFC1918 private, .local, or a Docker host alias;
// enabled otherwise. env, when non-empty ("0"/"1"/"true"/"false"), overrides
// the heuristic outright. Pure function, unit-testable without network per
// §9.
func InferTLSVerify(rawURL string, env string) bool {
	if v, ok := parseBoolEnv(env); ok {
		return v
	}
	host := hostOf(rawURL)
	if host == "" {
		return true
	}
	if host == "localhost" || host == "host.docker.internal" || strings.HasSuffix(host, ".local") {
		return false
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || isPrivateIP(ip) {
			return false
		}
	}
	return true
}

func parseBoolEnv(env string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "1", "true":
		return true, true
	case "0", "false":
		return false, true
	default:
		return false, false
	}
}

func hostOf(rawURL string) string {
	rawURL = strings.TrimPrefix(rawURL, "https://")
	rawURL = strings.TrimPrefix(rawURL, "http://")
	if idx := strings.IndexAny(rawURL, "/:"); idx >= 0 {
		rawURL = rawURL[:idx]
	}
	return rawURL
}

func isPrivateIP(ip net.IP) bool {
	for _, cidr := range []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"} {
		_, block, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		if block.Contains(ip) {
			return true
		}
	}
	return false
}
