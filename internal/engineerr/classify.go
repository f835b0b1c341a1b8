// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package engineerr

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"strings"
)

// ClassifyTransport maps a raw net/http error into one of §4.9's transport
// sub-kinds: timeout | ssl_verify_failed | dns | conn_refused |
// host_unreachable | conn_error.
func ClassifyTransport(err error) TransportSubKind {
	if err == nil {
		return SubKindConnError
	}
	var tlsErr *tls.CertificateVerificationError
	if errors.As(err, &tlsErr) {
		return SubKindSSLVerifyFailed
	}
	if strings.Contains(err.Error(), "x509:") || strings.Contains(err.Error(), "certificate") {
		return SubKindSSLVerifyFailed
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return SubKindDNS
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return SubKindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return SubKindTimeout
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Op == "dial" {
			if strings.Contains(opErr.Err.Error(), "refused") {
				return SubKindConnRefused
			}
			if strings.Contains(opErr.Err.Error(), "no route to host") || strings.Contains(opErr.Err.Error(), "unreachable") {
				return SubKindHostUnreachable
			}
		}
	}
	if strings.Contains(err.Error(), "connection refused") {
		return SubKindConnRefused
	}
	return SubKindConnError
}
