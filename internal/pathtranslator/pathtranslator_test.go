// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package pathtranslator

import (
	"testing"

	"github.com/nexroll/nexroll/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslate_WindowsMapping_Scenario1(t *testing.T) {
	tr := New([]model.PathMapping{{Local: `D:\Media`, Plex: `Z:\Media`}}, false)

	got := tr.TranslateAll([]string{
		`D:\Media\Halloween\a.mp4`,
		`D:\Media\Halloween\b.mp4`,
		`D:\Media\Halloween\c.mp4`,
	})
	assert.Equal(t, []string{
		`Z:\Media\Halloween\a.mp4`,
		`Z:\Media\Halloween\b.mp4`,
		`Z:\Media\Halloween\c.mp4`,
	}, got)
}

func TestTranslate_POSIXMapping(t *testing.T) {
	tr := New([]model.PathMapping{{Local: "/mnt/media", Plex: "/data/media"}}, true)
	assert.Equal(t, "/data/media/horror/a.mp4", tr.Translate("/mnt/media/horror/a.mp4"))
}

func TestTranslate_LongestPrefixWins(t *testing.T) {
	tr := New([]model.PathMapping{
		{Local: "/mnt", Plex: "/short"},
		{Local: "/mnt/media/special", Plex: "/long"},
	}, true)
	assert.Equal(t, "/long/a.mp4", tr.Translate("/mnt/media/special/a.mp4"))
}

func TestTranslate_NoMappingMatches_Unchanged(t *testing.T) {
	tr := New([]model.PathMapping{{Local: "/mnt/other", Plex: "/x"}}, true)
	assert.Equal(t, "/mnt/media/a.mp4", tr.Translate("/mnt/media/a.mp4"))
}

func TestTranslate_CaseInsensitiveOnWindows(t *testing.T) {
	tr := New([]model.PathMapping{{Local: `D:\Media`, Plex: `Z:\Media`}}, false)
	assert.Equal(t, `Z:\Media\a.mp4`, tr.Translate(`d:\media\a.mp4`))
}

func TestTranslate_Idempotent_P7(t *testing.T) {
	tr := New([]model.PathMapping{{Local: "/mnt/media", Plex: "/data/media"}}, true)
	once := tr.Translate("/mnt/media/a.mp4")
	twice := tr.Translate(once)
	assert.Equal(t, once, twice, "translate(translate(x)) == translate(x) when no mapping targets another mapping's source")
}

func TestValidateForPlatform_RejectsMismatch(t *testing.T) {
	err := ValidateForPlatform([]string{"/mnt/prerolls/a.mp4"}, PlatformWindows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/mnt/prerolls/a.mp4")

	err = ValidateForPlatform([]string{`C:\Media\a.mp4`}, PlatformPOSIX)
	require.Error(t, err)

	assert.NoError(t, ValidateForPlatform([]string{`Z:\Media\a.mp4`}, PlatformWindows))
	assert.NoError(t, ValidateForPlatform([]string{"/data/media/a.mp4"}, PlatformPOSIX))
}

func TestValidateForPlatform_UNCIsWindows(t *testing.T) {
	err := ValidateForPlatform([]string{`\\nas\share\a.mp4`}, PlatformPOSIX)
	require.Error(t, err)
}
