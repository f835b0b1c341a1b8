// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package logging documentation continued: extended usage notes for the
// zerolog-based façade declared in logger.go, context.go, and
// slog_adapter.go.
//
// # Log Levels
//
// Supported log levels (from most to least verbose):
//
//	trace  - Very detailed diagnostic information
//	debug  - Detailed diagnostic information
//	info   - General operational information (default)
//	warn   - Warning conditions that should be addressed
//	error  - Error conditions requiring attention
//	fatal  - Fatal errors that terminate the program
//
// # Structured Logging Best Practices
//
// Always terminate log chains with .Msg() or .Send():
//
//	logging.Info().Str("key", "value").Msg("message")  // Correct
//	logging.Info().Str("key", "value")                 // WRONG - log not emitted
//
// Use structured fields instead of string formatting:
//
//	// Good - structured, searchable, efficient
//	logging.Info().
//	    Str("component", "control_loop").
//	    Int("category_id", categoryID).
//	    Dur("elapsed", duration).
//	    Msg("applied preroll category")
//
//	// Avoid - unstructured, harder to parse
//	logging.Info().Msgf("applied category %d in %v", categoryID, duration)
//
// # Component Loggers
//
// Create component-specific loggers with default fields:
//
//	webhookLogger := logging.With().Str("component", "webhook").Logger()
//	webhookLogger.Warn().Msg("signature verification failed")
//
// # Context-Aware Logging
//
// Propagate the HTTP correlation/request ID through logging:
//
//	logging.Ctx(ctx).Info().Msg("processing request")
//
// # slog Adapter
//
// The suture supervisor tree (cmd/server/main.go) requires an slog.Logger;
// slog_adapter.go bridges it to the same global zerolog logger:
//
//	slogLogger := logging.NewSlogLogger()
//
// # Output Formats
//
// JSON (production):
//
//	{"level":"info","time":"2026-01-03T10:30:00Z","message":"server starting","port":3417}
//
// Console (development):
//
//	10:30:00 INF server starting port=3417
//
// # Thread Safety
//
// All exported functions are safe for concurrent use. The global logger is
// protected by sync.RWMutex for configuration changes.
package logging
