// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package genremapper implements GenreMapper (§4.7): genre label
// normalization, candidate-key resolution against the GenreMap table, TTL
// dedupe, and the playback-driven and rating-key-driven apply entry points.
// Grounded on original_source NeXroll/backend/scheduler.py's
// _norm_genre_local/_canonical_local closures inside
// _apply_genre_mapping_from_playback.
package genremapper

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// synonyms maps a normalized label to its canonical replacement, per §4.7.
var synonyms = map[string]string{
	"sci fi":           "science fiction",
	"scifi":            "science fiction",
	"sci-fi":           "science fiction",
	"kids and family":  "family",
	"kids family":      "family",
}

// Canonical normalizes a raw genre label per §4.7: Unicode NFKC, "&" -> " and ",
// "/" and "_" -> space, collapse "-", collapse whitespace, lowercase, then
// apply the synonym table.
func Canonical(raw string) string {
	t := norm.NFKC.String(raw)
	t = strings.ReplaceAll(t, "&", " and ")
	t = strings.Map(func(r rune) rune {
		if r == '/' || r == '_' {
			return ' '
		}
		return r
	}, t)
	t = collapseRuns(t, '-', '-')
	t = strings.Join(strings.Fields(t), " ")
	t = strings.ToLower(strings.TrimSpace(t))
	if repl, ok := synonyms[t]; ok {
		return repl
	}
	return t
}

// collapseRuns replaces any run of `target` runes with a single `with` rune.
func collapseRuns(s string, target, with rune) string {
	var b strings.Builder
	inRun := false
	for _, r := range s {
		if r == target {
			if !inRun {
				b.WriteRune(with)
				inRun = true
			}
			continue
		}
		inRun = false
		b.WriteRune(r)
	}
	return b.String()
}

// CandidateKeys returns the ordered candidate keys for a raw genre label:
// [canonical(label)] plus each canonical(component) when the canonicalized
// label splits on " and ", ",", or "|" (e.g. "Action & Adventure" ->
// "action and adventure" -> ["action and adventure","action","adventure"]).
// Duplicate keys are suppressed, first occurrence wins.
func CandidateKeys(raw string) []string {
	canonical := Canonical(raw)
	keys := []string{canonical}
	for _, sep := range []string{" and ", ",", "|"} {
		if !strings.Contains(canonical, sep) {
			continue
		}
		for _, part := range strings.Split(canonical, sep) {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			keys = append(keys, Canonical(part))
		}
	}
	return dedupePreserveOrder(keys)
}

func dedupePreserveOrder(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
