// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Plex wire protocol per §6.1: preference read/write against /:/prefs,
// session and metadata XML, fallback setter variants for version skew.
// Grounded on the teacher's internal/sync/plex_request.go request-building
// idiom (doRequest-style helper with X-Plex-Token header, status checks)
// and internal/sync/plex_sessions.go's XML session decoding shape.
package serveradapter

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/nexroll/nexroll/internal/engineerr"
	"github.com/nexroll/nexroll/internal/logging"
)

const plexPrerollKey = "CinemaTrailersPrerollID"

// PlexAdapter implements ServerAdapter against a Plex Media Server.
type PlexAdapter struct {
	cfg    Config
	token  string
	client *http.Client
	g      *guard
}

// NewPlexAdapter builds a Plex adapter. cfg.BaseURL is the Plex server root
// (no trailing slash); token is the X-Plex-Token.
func NewPlexAdapter(cfg Config, token string) *PlexAdapter {
	cfg = cfg.withDefaults()
	return &PlexAdapter{
		cfg:    cfg,
		token:  token,
		client: newHTTPClient(cfg),
		g:      newGuard("plex", cfg),
	}
}

type plexPrefsResponse struct {
	XMLName  xml.Name          `xml:"MediaContainer"`
	Settings []plexPrefsSetting `xml:"Setting"`
}

type plexPrefsSetting struct {
	ID    string `xml:"id,attr"`
	Value string `xml:"value,attr"`
}

// GetPreroll reads CinemaTrailersPrerollID via GET /:/prefs.
func (p *PlexAdapter) GetPreroll(ctx context.Context) (string, error) {
	var value string
	err := p.g.do(ctx, func() error {
		var body plexPrefsResponse
		if err := p.getXML(ctx, "/:/prefs", nil, &body); err != nil {
			return err
		}
		for _, s := range body.Settings {
			if s.ID == plexPrerollKey {
				value = s.Value
				return nil
			}
		}
		return engineerr.New(engineerr.KindProtocol, "serveradapter.plex", "CinemaTrailersPrerollID setting not present in /:/prefs response")
	})
	return value, err
}

// SetPreroll writes value and verifies via readback, trying the three setter
// variants from §6.1 in order until one round-trips.
func (p *PlexAdapter) SetPreroll(ctx context.Context, value string) error {
	variants := []func(context.Context, string) error{
		p.setPrerollQueryPUT,
		p.setPrerollFormPUT,
		p.setPrerollQueryPOST,
	}
	var lastErr error
	for _, variant := range variants {
		err := p.g.do(ctx, func() error { return variant(ctx, value) })
		if err != nil {
			lastErr = err
			continue
		}
		got, err := p.GetPreroll(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		if strings.TrimSpace(got) == strings.TrimSpace(value) {
			return nil
		}
		lastErr = engineerr.New(engineerr.KindProtocol, "serveradapter.plex", "readback did not match sent value")
	}

	// All three documented variants failed readback but the preference key
	// exists; try sending the value urlencoded a second time, a quirk some
	// Plex versions need. Logged distinctly from the three above so an
	// operator can tell this fallback apart from a true wire failure.
	if err := p.g.do(ctx, func() error { return p.setPrerollDoubleEncoded(ctx, value) }); err == nil {
		if got, err := p.GetPreroll(ctx); err == nil && strings.TrimSpace(got) == strings.TrimSpace(value) {
			logging.Warn().Str("component", "serveradapter.plex").Msg("preroll applied via double-urlencoded fallback variant")
			return nil
		}
	}

	if lastErr == nil {
		lastErr = engineerr.New(engineerr.KindState, "serveradapter.plex", "no setter variant available")
	}
	return lastErr
}

func (p *PlexAdapter) setPrerollDoubleEncoded(ctx context.Context, value string) error {
	q := url.Values{}
	q.Set(plexPrerollKey, url.QueryEscape(value))
	return p.doRequest(ctx, http.MethodPut, "/:/prefs", q, nil)
}

func (p *PlexAdapter) setPrerollQueryPUT(ctx context.Context, value string) error {
	q := url.Values{}
	q.Set(plexPrerollKey, value)
	return p.doRequest(ctx, http.MethodPut, "/:/prefs", q, nil)
}

func (p *PlexAdapter) setPrerollFormPUT(ctx context.Context, value string) error {
	form := strings.NewReader(url.Values{plexPrerollKey: {value}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, p.cfg.BaseURL+"/:/prefs", form)
	if err != nil {
		return engineerr.Wrap(engineerr.KindConfig, "serveradapter.plex", "build request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return p.execute(req)
}

func (p *PlexAdapter) setPrerollQueryPOST(ctx context.Context, value string) error {
	q := url.Values{}
	q.Set(plexPrerollKey, value)
	return p.doRequest(ctx, http.MethodPost, "/:/prefs", q, nil)
}

// GetServerInfo probes /identity for the Plex platform string.
func (p *PlexAdapter) GetServerInfo(ctx context.Context) (ServerInfo, error) {
	var info ServerInfo
	err := p.g.do(ctx, func() error {
		var body struct {
			XMLName xml.Name `xml:"MediaContainer"`
			Platform string  `xml:"platform,attr"`
			Version  string  `xml:"version,attr"`
		}
		if err := p.getXML(ctx, "/identity", nil, &body); err != nil {
			return err
		}
		info = ServerInfo{Platform: normalizePlatform(body.Platform), Name: "plex", Version: body.Version}
		return nil
	})
	return info, err
}

// TestConnection is a cheap reachability probe, swallowing the error.
func (p *PlexAdapter) TestConnection(ctx context.Context) bool {
	_, err := p.GetServerInfo(ctx)
	return err == nil
}

type plexSessionsResponse struct {
	XMLName xml.Name      `xml:"MediaContainer"`
	Videos  []plexSession `xml:"Video"`
}

type plexSession struct {
	RatingKey            string      `xml:"ratingKey,attr"`
	ParentRatingKey      string      `xml:"parentRatingKey,attr"`
	GrandparentRatingKey string      `xml:"grandparentRatingKey,attr"`
	ViewOffset           int64       `xml:"viewOffset,attr"`
	Player               plexPlayer  `xml:"Player"`
	Genres               []plexGenre `xml:"Genre"`
}

type plexPlayer struct {
	State             string `xml:"state,attr"`
	MachineIdentifier string `xml:"machineIdentifier,attr"`
}

type plexGenre struct {
	Tag string `xml:"tag,attr"`
}

// GetSessions lists active playback sessions via GET /status/sessions.
func (p *PlexAdapter) GetSessions(ctx context.Context) ([]Session, error) {
	var out []Session
	err := p.g.do(ctx, func() error {
		var body plexSessionsResponse
		if err := p.getXML(ctx, "/status/sessions", nil, &body); err != nil {
			return err
		}
		out = make([]Session, 0, len(body.Videos))
		for _, v := range body.Videos {
			genres := make([]string, 0, len(v.Genres))
			for _, g := range v.Genres {
				genres = append(genres, g.Tag)
			}
			out = append(out, Session{
				RatingKey:            v.RatingKey,
				ParentRatingKey:      v.ParentRatingKey,
				GrandparentRatingKey: v.GrandparentRatingKey,
				ViewOffset:           v.ViewOffset,
				State:                SessionState(v.Player.State),
				Genres:               genres,
			})
		}
		return nil
	})
	return out, err
}

type plexMetadataResponse struct {
	XMLName  xml.Name      `xml:"MediaContainer"`
	Metadata []plexSession `xml:"Metadata"`
}

// GetGenres fetches Genre tags for ratingKey, falling back to the parent and
// then grandparent rating key if the item itself carries none (§4.7 step 3).
func (p *PlexAdapter) GetGenres(ctx context.Context, ratingKey, parentRatingKey, grandparentRatingKey string) ([]string, error) {
	for _, key := range []string{ratingKey, parentRatingKey, grandparentRatingKey} {
		if key == "" {
			continue
		}
		genres, err := p.fetchGenresFor(ctx, key)
		if err != nil {
			return nil, err
		}
		if len(genres) > 0 {
			return genres, nil
		}
	}
	return nil, nil
}

func (p *PlexAdapter) fetchGenresFor(ctx context.Context, ratingKey string) ([]string, error) {
	var genres []string
	err := p.g.do(ctx, func() error {
		var body plexMetadataResponse
		path := fmt.Sprintf("/library/metadata/%s", url.PathEscape(ratingKey))
		q := url.Values{"includeChildren": {"1"}}
		if err := p.getXML(ctx, path, q, &body); err != nil {
			return err
		}
		for _, m := range body.Metadata {
			for _, g := range m.Genres {
				genres = append(genres, g.Tag)
			}
		}
		return nil
	})
	return genres, err
}

// NudgeClient is a no-op: no aggressive-intercept client protocol is
// specified for Plex.
func (p *PlexAdapter) NudgeClient(ctx context.Context, sessionKey string) error {
	return nil
}

func (p *PlexAdapter) getXML(ctx context.Context, path string, query url.Values, out any) error {
	return p.doRequest(ctx, http.MethodGet, path, query, out)
}

func (p *PlexAdapter) doRequest(ctx context.Context, method, path string, query url.Values, out any) error {
	reqURL := p.cfg.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, method, reqURL, http.NoBody)
	if err != nil {
		return engineerr.Wrap(engineerr.KindConfig, "serveradapter.plex", "build request", err)
	}
	if query != nil {
		req.URL.RawQuery = query.Encode()
	}
	return p.executeInto(req, out)
}

func (p *PlexAdapter) execute(req *http.Request) error {
	return p.executeInto(req, nil)
}

func (p *PlexAdapter) executeInto(req *http.Request, out any) error {
	req.Header.Set("X-Plex-Token", p.token)
	resp, err := p.client.Do(req)
	if err != nil {
		return engineerr.Transport(engineerr.ClassifyTransport(err), "serveradapter.plex", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return engineerr.New(engineerr.KindAuth, "serveradapter.plex", fmt.Sprintf("authentication rejected: %d", resp.StatusCode))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return engineerr.New(engineerr.KindProtocol, "serveradapter.plex", fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}
	if out == nil {
		return nil
	}
	if err := xml.NewDecoder(resp.Body).Decode(out); err != nil {
		return engineerr.Wrap(engineerr.KindProtocol, "serveradapter.plex", "decode XML response", err)
	}
	return nil
}

func normalizePlatform(raw string) string {
	if strings.Contains(strings.ToLower(raw), "windows") {
		return "windows"
	}
	return "posix"
}
