// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package engineerr defines the decision engine's error kinds (§7 of the
// spec): config, transport, protocol, auth, state, and conflict. These are
// kinds, not sentinel values — callers classify with errors.As against *Error
// and switch on Kind, following the teacher's typed-error convention in
// internal/api/errors.go and internal/database/errors.go.
package engineerr

import (
	"errors"
	"fmt"
)

// Kind is one of the six error categories from spec.md §7.
type Kind string

const (
	KindConfig    Kind = "config"
	KindTransport Kind = "transport"
	KindProtocol  Kind = "protocol"
	KindAuth      Kind = "auth"
	KindState     Kind = "state"
	KindConflict  Kind = "conflict"
)

// TransportSubKind further classifies a KindTransport error, per §4.9.
type TransportSubKind string

const (
	SubKindTimeout         TransportSubKind = "timeout"
	SubKindSSLVerifyFailed TransportSubKind = "ssl_verify_failed"
	SubKindDNS             TransportSubKind = "dns"
	SubKindConnRefused     TransportSubKind = "conn_refused"
	SubKindHostUnreachable TransportSubKind = "host_unreachable"
	SubKindConnError       TransportSubKind = "conn_error"
	// SubKindHTTPStatus is formatted "http_<code>" via HTTPStatusSubKind.
	SubKindHTTPStatus TransportSubKind = "http"
)

// HTTPStatusSubKind formats the "http_<code>" transport sub-kind for a
// non-2xx response, e.g. HTTPStatusSubKind(500) -> "http_500".
func HTTPStatusSubKind(statusCode int) TransportSubKind {
	return TransportSubKind(fmt.Sprintf("http_%d", statusCode))
}

// Error is the engine's typed error. Component identifies which of §2's
// components raised it (e.g. "serveradapter.plex", "arbiter", "pathtranslator").
type Error struct {
	Kind      Kind
	SubKind   TransportSubKind // only meaningful when Kind == KindTransport
	Component string
	Message   string
	Err       error
}

func (e *Error) Error() string {
	if e.SubKind != "" {
		return fmt.Sprintf("%s[%s:%s]: %s", e.Component, e.Kind, e.SubKind, e.Message)
	}
	return fmt.Sprintf("%s[%s]: %s", e.Component, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a plain *Error with no wrapped cause.
func New(kind Kind, component, message string) *Error {
	return &Error{Kind: kind, Component: component, Message: message}
}

// Wrap builds a *Error carrying an underlying cause.
func Wrap(kind Kind, component, message string, err error) *Error {
	return &Error{Kind: kind, Component: component, Message: message, Err: err}
}

// Transport builds a transport error with a sub-kind classification.
func Transport(sub TransportSubKind, component, message string, err error) *Error {
	return &Error{Kind: KindTransport, SubKind: sub, Component: component, Message: message, Err: err}
}

// Is reports whether err (or anything it wraps) is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, returning ("", false) if err is not an
// *Error (or does not wrap one).
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
