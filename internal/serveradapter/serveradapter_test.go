// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package serveradapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelimiter_Encode(t *testing.T) {
	assert.Equal(t, "a;b;c", DelimiterShuffle.Encode([]string{"a", "b", "c"}))
	assert.Equal(t, "a,b,c", DelimiterOrdered.Encode([]string{"a", "b", "c"}))
	assert.Equal(t, "a", DelimiterShuffle.Encode([]string{"a"}))
}

func TestInferTLSVerify_Heuristic(t *testing.T) {
	assert.False(t, InferTLSVerify("https://localhost:32400", ""))
	assert.False(t, InferTLSVerify("https://127.0.0.1:32400", ""))
	assert.False(t, InferTLSVerify("https://192.168.1.20:32400", ""))
	assert.False(t, InferTLSVerify("https://myserver.local", ""))
	assert.False(t, InferTLSVerify("https://host.docker.internal", ""))
	assert.True(t, InferTLSVerify("https://plex.example.com", ""))
}

func TestInferTLSVerify_EnvOverrides(t *testing.T) {
	assert.True(t, InferTLSVerify("https://localhost", "1"))
	assert.False(t, InferTLSVerify("https://plex.example.com", "false"))
}

func TestNormalizePlatform(t *testing.T) {
	assert.Equal(t, "windows", normalizePlatform("Windows"))
	assert.Equal(t, "posix", normalizePlatform("Linux"))
	assert.Equal(t, "posix", normalizePlatform("Darwin"))
}

func TestExtractAndApplyListPaths(t *testing.T) {
	cfg := map[string]any{"IntroPaths": []any{"/media/prerolls/a"}}
	paths := extractListPaths(cfg)
	assert.Equal(t, []string{"/media/prerolls/a"}, paths)

	applyListPaths(cfg, []string{"/media/prerolls/b", "/media/prerolls/c"})
	assert.Equal(t, []string{"/media/prerolls/b", "/media/prerolls/c"}, extractListPaths(cfg))
}

func TestExtractListPaths_StringFallback(t *testing.T) {
	cfg := map[string]any{"Folder": "/media/prerolls"}
	assert.Equal(t, []string{"/media/prerolls"}, extractListPaths(cfg))
}

func TestPlexAdapter_GetPreroll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok", r.Header.Get("X-Plex-Token"))
		fmt.Fprint(w, `<MediaContainer><Setting id="CinemaTrailersPrerollID" value="/a,/b"/></MediaContainer>`)
	}))
	defer srv.Close()

	p := NewPlexAdapter(Config{BaseURL: srv.URL, TLSVerify: true, Timeout: time.Second}, "tok")
	value, err := p.GetPreroll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/a,/b", value)
}

func TestPlexAdapter_SetPreroll_FallsBackThroughVariants(t *testing.T) {
	var writes int
	current := ""
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/:/prefs" && r.Method == http.MethodGet {
			fmt.Fprintf(w, `<MediaContainer><Setting id="CinemaTrailersPrerollID" value=%q/></MediaContainer>`, current)
			return
		}
		writes++
		// First PUT (query-string) variant silently does not take effect.
		if writes == 1 {
			w.WriteHeader(http.StatusOK)
			return
		}
		// Second variant (form PUT) succeeds.
		current = r.URL.Query().Get("CinemaTrailersPrerollID")
		if current == "" {
			_ = r.ParseForm()
			current = r.PostFormValue("CinemaTrailersPrerollID")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewPlexAdapter(Config{BaseURL: srv.URL, TLSVerify: true, Timeout: time.Second}, "tok")
	err := p.SetPreroll(context.Background(), "/media/a.mp4")
	require.NoError(t, err)
	assert.Equal(t, "/media/a.mp4", current)
}

func TestJellyfinAdapter_SetPreroll(t *testing.T) {
	var posted map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/Plugins":
			fmt.Fprint(w, `[{"Id":"plugin-1","Name":"Local Intros"}]`)
		case r.URL.Path == "/Plugins/plugin-1/Configuration" && r.Method == http.MethodGet:
			fmt.Fprint(w, `{"IntroPaths":[]}`)
		case r.URL.Path == "/Plugins/plugin-1/Configuration" && r.Method == http.MethodPost:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	j := NewJellyfinAdapter(Config{BaseURL: srv.URL, TLSVerify: true, Timeout: time.Second}, "key")
	err := j.SetPreroll(context.Background(), "/media/prerolls/a.mp4,/media/prerolls/b.mp4")
	require.NoError(t, err)
	require.NotNil(t, posted)
	assert.Equal(t, []any{"/media/prerolls"}, posted["IntroPaths"])
	assert.Equal(t, "/media/prerolls", posted["Local"])
}
