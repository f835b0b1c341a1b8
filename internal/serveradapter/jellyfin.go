// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Jellyfin has no native preroll preference; the engine instead targets the
// "Local Intros" plugin's configuration (§4.6, §6.2). Grounded on the
// teacher's internal/sync/jellyfin_client.go JSON request idiom
// (X-Emby-Token header, POST with JSON body), reworked from library-sync
// polling to plugin configuration read/modify/write.
package serveradapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/nexroll/nexroll/internal/engineerr"
)

var localIntrosNames = []string{"local intros", "intros", "intro"}

// listPathKeys, in preference order, are the list-valued configuration keys
// the Local Intros plugin may use for its preroll directories (§4.6).
var listPathKeys = []string{"IntroPaths", "Paths", "PrerollPaths", "Folders", "Directories", "IntroFolders", "FolderPaths"}

// stringPathKeys, in preference order, are the string-valued fallback keys.
var stringPathKeys = []string{"Path", "IntroPath", "Folder", "Directory", "IntroFolder", "Root", "BasePath"}

// JellyfinAdapter implements ServerAdapter against the Local Intros plugin.
type JellyfinAdapter struct {
	cfg    Config
	apiKey string
	client *http.Client
	g      *guard
}

// NewJellyfinAdapter builds a Jellyfin adapter. cfg.BaseURL is the Jellyfin
// server root; apiKey is sent as both X-Emby-Token and X-MediaBrowser-Token.
func NewJellyfinAdapter(cfg Config, apiKey string) *JellyfinAdapter {
	cfg = cfg.withDefaults()
	return &JellyfinAdapter{
		cfg:    cfg,
		apiKey: apiKey,
		client: newHTTPClient(cfg),
		g:      newGuard("jellyfin", cfg),
	}
}

type jellyfinPlugin struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}

func (j *JellyfinAdapter) findLocalIntrosPlugin(ctx context.Context) (jellyfinPlugin, error) {
	var plugins []jellyfinPlugin
	err := j.g.do(ctx, func() error {
		return j.requestJSON(ctx, http.MethodGet, "/Plugins", nil, &plugins)
	})
	if err != nil {
		return jellyfinPlugin{}, err
	}
	for _, want := range localIntrosNames {
		for _, p := range plugins {
			if strings.Contains(strings.ToLower(p.Name), want) {
				return p, nil
			}
		}
	}
	return jellyfinPlugin{}, engineerr.New(engineerr.KindState, "serveradapter.jellyfin", "Local Intros plugin not found")
}

// GetPreroll returns the first configured intro directory, joined with the
// comma delimiter, so callers see a value shaped like the Plex preference.
func (j *JellyfinAdapter) GetPreroll(ctx context.Context) (string, error) {
	plugin, err := j.findLocalIntrosPlugin(ctx)
	if err != nil {
		return "", err
	}
	cfg, err := j.getConfiguration(ctx, plugin.ID)
	if err != nil {
		return "", err
	}
	paths := extractListPaths(cfg)
	return strings.Join(paths, ","), nil
}

// SetPreroll sets the plugin's preroll directories to the parent directories
// of the given paths (§4.6: "The value set is parent directories of
// translated paths, not files"). value is parsed with the same `;`/`,`
// delimiters PlexAdapter writes, for symmetry at the ControlLoop call site.
func (j *JellyfinAdapter) SetPreroll(ctx context.Context, value string) error {
	var paths []string
	for _, sep := range []string{";", ","} {
		if strings.Contains(value, sep) {
			paths = strings.Split(value, sep)
			break
		}
	}
	if paths == nil && value != "" {
		paths = []string{value}
	}

	dirs := make([]string, 0, len(paths))
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		dir := filepath.Dir(p)
		if dir == "" || seen[dir] {
			continue
		}
		seen[dir] = true
		dirs = append(dirs, dir)
	}

	return j.g.do(ctx, func() error {
		plugin, err := j.findLocalIntrosPlugin(ctx)
		if err != nil {
			return err
		}
		cfg, err := j.getConfiguration(ctx, plugin.ID)
		if err != nil {
			return err
		}
		applyListPaths(cfg, dirs)
		if len(dirs) > 0 {
			cfg["Local"] = dirs[0]
		}
		return j.postConfiguration(ctx, plugin.ID, cfg)
	})
}

func extractListPaths(cfg map[string]any) []string {
	for _, key := range listPathKeys {
		if raw, ok := cfg[key]; ok {
			if list, ok := raw.([]any); ok {
				out := make([]string, 0, len(list))
				for _, v := range list {
					if s, ok := v.(string); ok {
						out = append(out, s)
					}
				}
				return out
			}
		}
	}
	for _, key := range stringPathKeys {
		if raw, ok := cfg[key]; ok {
			if s, ok := raw.(string); ok && s != "" {
				return []string{s}
			}
		}
	}
	return nil
}

func applyListPaths(cfg map[string]any, dirs []string) {
	for _, key := range listPathKeys {
		if _, ok := cfg[key]; ok {
			list := make([]any, len(dirs))
			for i, d := range dirs {
				list[i] = d
			}
			cfg[key] = list
			return
		}
	}
	for _, key := range stringPathKeys {
		if _, ok := cfg[key]; ok {
			if len(dirs) > 0 {
				cfg[key] = dirs[0]
			}
			return
		}
	}
	// Neither a known list nor string key exists yet; seed the first list key.
	list := make([]any, len(dirs))
	for i, d := range dirs {
		list[i] = d
	}
	cfg[listPathKeys[0]] = list
}

// GetServerInfo probes /System/Info for the Jellyfin host platform.
func (j *JellyfinAdapter) GetServerInfo(ctx context.Context) (ServerInfo, error) {
	var body struct {
		OperatingSystem string `json:"OperatingSystem"`
		Version         string `json:"Version"`
	}
	err := j.g.do(ctx, func() error {
		return j.requestJSON(ctx, http.MethodGet, "/System/Info", nil, &body)
	})
	if err != nil {
		return ServerInfo{}, err
	}
	return ServerInfo{Platform: normalizePlatform(body.OperatingSystem), Name: "jellyfin", Version: body.Version}, nil
}

// TestConnection is a cheap reachability probe, swallowing the error.
func (j *JellyfinAdapter) TestConnection(ctx context.Context) bool {
	_, err := j.GetServerInfo(ctx)
	return err == nil
}

type jellyfinSession struct {
	NowPlayingItem *jellyfinItem `json:"NowPlayingItem"`
	PlayState      struct {
		IsPaused      bool  `json:"IsPaused"`
		PositionTicks int64 `json:"PositionTicks"`
	} `json:"PlayState"`
}

type jellyfinItem struct {
	ID       string   `json:"Id"`
	ParentID string   `json:"ParentId"`
	Genres   []string `json:"Genres"`
}

// GetSessions lists active playback sessions via GET /Sessions.
func (j *JellyfinAdapter) GetSessions(ctx context.Context) ([]Session, error) {
	var raw []jellyfinSession
	err := j.g.do(ctx, func() error {
		return j.requestJSON(ctx, http.MethodGet, "/Sessions", nil, &raw)
	})
	if err != nil {
		return nil, err
	}
	out := make([]Session, 0, len(raw))
	for _, s := range raw {
		if s.NowPlayingItem == nil {
			continue
		}
		state := SessionPlaying
		if s.PlayState.IsPaused {
			state = SessionPaused
		}
		out = append(out, Session{
			RatingKey:       s.NowPlayingItem.ID,
			ParentRatingKey: s.NowPlayingItem.ParentID,
			ViewOffset:      s.PlayState.PositionTicks,
			State:           state,
			Genres:          s.NowPlayingItem.Genres,
		})
	}
	return out, nil
}

// GetGenres fetches Genres for an item via GET /Items/{id}, falling back to
// the parent item when the item itself carries none (§4.7 step 3).
func (j *JellyfinAdapter) GetGenres(ctx context.Context, ratingKey, parentRatingKey, grandparentRatingKey string) ([]string, error) {
	for _, key := range []string{ratingKey, parentRatingKey, grandparentRatingKey} {
		if key == "" {
			continue
		}
		var item jellyfinItem
		err := j.g.do(ctx, func() error {
			return j.requestJSON(ctx, http.MethodGet, "/Items/"+key, nil, &item)
		})
		if err != nil {
			return nil, err
		}
		if len(item.Genres) > 0 {
			return item.Genres, nil
		}
	}
	return nil, nil
}

// NudgeClient is a no-op: no aggressive-intercept client protocol is
// specified for Jellyfin.
func (j *JellyfinAdapter) NudgeClient(ctx context.Context, sessionKey string) error {
	return nil
}

func (j *JellyfinAdapter) getConfiguration(ctx context.Context, pluginID string) (map[string]any, error) {
	cfg := make(map[string]any)
	err := j.requestJSON(ctx, http.MethodGet, fmt.Sprintf("/Plugins/%s/Configuration", pluginID), nil, &cfg)
	return cfg, err
}

func (j *JellyfinAdapter) postConfiguration(ctx context.Context, pluginID string, cfg map[string]any) error {
	body, err := json.Marshal(cfg)
	if err != nil {
		return engineerr.Wrap(engineerr.KindConfig, "serveradapter.jellyfin", "encode configuration", err)
	}
	return j.requestJSON(ctx, http.MethodPost, fmt.Sprintf("/Plugins/%s/Configuration", pluginID), bytes.NewReader(body), nil)
}

func (j *JellyfinAdapter) requestJSON(ctx context.Context, method, path string, body *bytes.Reader, out any) error {
	var reqBody *bytes.Reader
	if body != nil {
		reqBody = body
	} else {
		reqBody = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, j.cfg.BaseURL+path, reqBody)
	if err != nil {
		return engineerr.Wrap(engineerr.KindConfig, "serveradapter.jellyfin", "build request", err)
	}
	req.Header.Set("X-Emby-Token", j.apiKey)
	req.Header.Set("X-MediaBrowser-Token", j.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := j.client.Do(req)
	if err != nil {
		return engineerr.Transport(engineerr.ClassifyTransport(err), "serveradapter.jellyfin", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return engineerr.New(engineerr.KindAuth, "serveradapter.jellyfin", fmt.Sprintf("authentication rejected: %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusNoContent {
		return engineerr.New(engineerr.KindProtocol, "serveradapter.jellyfin", fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}
	if out == nil {
		return nil
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return engineerr.Wrap(engineerr.KindProtocol, "serveradapter.jellyfin", "decode JSON response", err)
	}
	return nil
}
