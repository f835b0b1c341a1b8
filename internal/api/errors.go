// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// errors.go - common API error definitions and the engineerr.Kind -> HTTP
// status mapping used by every handler's error path.
package api

import (
	"errors"
	"net/http"

	"github.com/nexroll/nexroll/internal/engineerr"
)

// Common API errors.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidBody indicates the request body failed to decode or validate.
	ErrInvalidBody = errors.New("invalid request body")
)

// writeEngineErr maps err onto the response, using engineerr's Kind when err
// carries one (§7) and falling back to 500 otherwise. config/auth/conflict
// map onto their natural HTTP equivalents; state maps to 500 because it
// signals the Store or the engine's own invariants misbehaved, not bad
// caller input; protocol/transport map to 502 since they mean an upstream
// media server or HolidayAPI call failed.
func writeEngineErr(rw *ResponseWriter, err error) {
	kind, ok := engineerr.KindOf(err)
	if !ok {
		if errors.Is(err, ErrNotFound) {
			rw.NotFound(err.Error())
			return
		}
		rw.InternalError(err)
		return
	}
	switch kind {
	case engineerr.KindConfig:
		rw.BadRequest(err.Error())
	case engineerr.KindAuth:
		rw.Unauthorized(err.Error())
	case engineerr.KindConflict:
		rw.Conflict(err.Error())
	case engineerr.KindTransport, engineerr.KindProtocol:
		rw.Error(http.StatusBadGateway, ErrCodeUpstreamFailed, err.Error())
	case engineerr.KindState:
		rw.InternalError(err)
	default:
		rw.InternalError(err)
	}
}
