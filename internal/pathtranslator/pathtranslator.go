// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package pathtranslator rewrites engine-local filesystem paths into the
// media server's view via longest-prefix mapping rules (§4.6.2), and
// validates the result against the target server's platform style before it
// is ever sent over the wire.
//
// Grounded on original_source NeXroll/backend/scheduler.py's
// _translate_for_plex closure (same longest-match-then-rewrite algorithm),
// reworked into a standalone, side-effect-free component so the Arbiter and
// ServerAdapter can share it without re-deriving the mapping table each call.
package pathtranslator

import (
	"fmt"
	"path"
	"strings"

	"github.com/nexroll/nexroll/internal/model"
)

// Translator rewrites local paths using an ordered set of {local, plex}
// prefix mappings. Zero value with no mappings loaded is usable and acts as
// the identity transform.
type Translator struct {
	mappings      []model.PathMapping
	caseSensitive bool
}

// New builds a Translator from Setting.PathMappings (§6.5). caseSensitive
// should be false on Windows hosts per §4.6.2 ("case-insensitive on Windows
// hosts, case-sensitive elsewhere").
func New(mappings []model.PathMapping, caseSensitive bool) *Translator {
	return &Translator{mappings: mappings, caseSensitive: caseSensitive}
}

// Translate rewrites lp using the longest matching local prefix. If no
// mapping matches, lp is returned unchanged, per §4.6.2.
func (t *Translator) Translate(lp string) string {
	normalized := normalizePath(lp)
	var best *model.PathMapping
	var bestSrc string
	bestLen := -1
	for i := range t.mappings {
		m := &t.mappings[i]
		src := normalizePath(m.Local)
		if t.hasPrefix(normalized, src) && len(src) > bestLen {
			best = m
			bestSrc = src
			bestLen = len(src)
		}
	}
	if best == nil {
		return lp
	}
	rest := strings.TrimLeft(normalized[len(bestSrc):], `\/`)
	return joinStyledLike(best.Plex, rest)
}

// TranslateAll rewrites every path in paths, preserving order.
func (t *Translator) TranslateAll(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = t.Translate(p)
	}
	return out
}

func (t *Translator) hasPrefix(lp, src string) bool {
	if t.caseSensitive {
		return strings.HasPrefix(lp, src)
	}
	return strings.HasPrefix(strings.ToLower(lp), strings.ToLower(src))
}

// normalizePath collapses redundant separators without resolving `.`/`..`
// across mixed Windows/POSIX styles (path.Clean assumes `/`, which would
// mangle `C:\Media\..`), matching os.path.normpath's conservative behavior
// used by the original scheduler.
func normalizePath(p string) string {
	if strings.Contains(p, "/") && !strings.Contains(p, `\`) {
		return path.Clean(p)
	}
	return p
}

// joinStyledLike appends rest to prefix using the separator style of prefix:
// POSIX (`/`, no `\`), Windows (`\` present), else POSIX, per §4.6.2.
func joinStyledLike(prefix, rest string) string {
	switch separatorStyle(prefix) {
	case styleWindows:
		trimmed := strings.TrimRight(prefix, `\`)
		return trimmed + `\` + strings.ReplaceAll(rest, "/", `\`)
	default:
		trimmed := strings.TrimRight(prefix, "/")
		return trimmed + "/" + strings.ReplaceAll(rest, `\`, "/")
	}
}

type pathStyle int

const (
	stylePOSIX pathStyle = iota
	styleWindows
)

func separatorStyle(p string) pathStyle {
	hasSlash := strings.Contains(p, "/")
	hasBackslash := strings.Contains(p, `\`)
	if hasSlash && !hasBackslash {
		return stylePOSIX
	}
	if hasBackslash {
		return styleWindows
	}
	return stylePOSIX
}

// Platform is the target media-server host's OS family, per
// ServerAdapter.GetServerInfo().Platform.
type Platform string

const (
	PlatformWindows Platform = "windows"
	PlatformPOSIX   Platform = "posix"
)

// ValidateForPlatform refuses to apply a translated path whose style
// mismatches the target platform (§4.6.2): a POSIX-looking path
// (`/...`, no drive letter/UNC) sent to a Windows host, or a Windows-looking
// path (`C:\...` or `\\host\share`) sent to a POSIX host.
func ValidateForPlatform(translatedPaths []string, platform Platform) error {
	for _, p := range translatedPaths {
		switch platform {
		case PlatformWindows:
			if looksPOSIX(p) {
				return fmt.Errorf("path %q looks like a POSIX path but target platform is Windows; add a path mapping translating it to a Windows-style path", p)
			}
		case PlatformPOSIX:
			if looksWindows(p) {
				return fmt.Errorf("path %q looks like a Windows path but target platform is POSIX; add a path mapping translating it to a POSIX-style path", p)
			}
		}
	}
	return nil
}

func looksPOSIX(p string) bool {
	return strings.HasPrefix(p, "/") && !hasDriveLetter(p) && !strings.HasPrefix(p, `\\`)
}

func looksWindows(p string) bool {
	return hasDriveLetter(p) || strings.HasPrefix(p, `\\`)
}

func hasDriveLetter(p string) bool {
	return len(p) >= 2 && ((p[0] >= 'A' && p[0] <= 'Z') || (p[0] >= 'a' && p[0] <= 'z')) && p[1] == ':'
}
