// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// webhook.go implements the Plex webhook receiver from §6.3: accepts either
// a raw JSON body or multipart/form-data with a "payload" field, optionally
// verifies an HMAC-SHA1 request signature, and resolves media.play/resume/
// start events into a genre-apply call. Every reply is 200-with-body except
// true internal errors, per §6.3's automation-friendliness requirement —
// mirrored in writeEngineErr's config/state-to-200 handling for the
// non-webhook endpoints, but made explicit here since a webhook caller has
// no error-handling UI to show a 4xx to.
package api

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // Plex's webhook signature scheme mandates SHA-1, not a choice made here
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"

	"github.com/nexroll/nexroll/internal/logging"
)

const (
	plexEventMediaPlay   = "media.play"
	plexEventMediaResume = "media.resume"
	plexEventMediaStart  = "media.start"
)

type plexWebhookPayload struct {
	Event    string `json:"event"`
	Metadata struct {
		RatingKey            string `json:"ratingKey"`
		ParentRatingKey      string `json:"parentRatingKey"`
		GrandparentRatingKey string `json:"grandparentRatingKey"`
		Genre                []struct {
			Tag string `json:"tag"`
		} `json:"Genre"`
	} `json:"Metadata"`
}

type webhookResult struct {
	Event      string `json:"event"`
	Handled    bool   `json:"handled"`
	Applied    bool   `json:"applied,omitempty"`
	Reason     string `json:"reason,omitempty"`
	CategoryID int64  `json:"category_id,omitempty"`
}

// handlePlexWebhook implements POST /plex/webhook and its alias
// POST /webhooks/plex.
func (h *Handler) handlePlexWebhook(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	raw, payload, err := readWebhookPayload(r)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	if h.webhookSecret != "" {
		if !verifyPlexSignature(h.webhookSecret, raw, r.Header.Get("X-Plex-Signature")) {
			logging.Warn().
				Str("component", "api.webhook").
				Str("remote_addr", r.RemoteAddr).
				Msg("webhook signature verification failed")
			rw.Unauthorized("invalid webhook signature")
			return
		}
	}

	var event plexWebhookPayload
	if err := json.Unmarshal(payload, &event); err != nil {
		rw.BadRequest("invalid payload JSON")
		return
	}

	if !isInterestingPlexEvent(event.Event) {
		rw.Success(webhookResult{Event: event.Event, Handled: false, Reason: "event not of interest"})
		return
	}

	result := webhookResult{Event: event.Event, Handled: true}

	switch {
	case event.Metadata.RatingKey != "":
		applied, err := h.loop.ApplyGenreByRatingKey(r.Context(), event.Metadata.RatingKey, event.Metadata.ParentRatingKey, event.Metadata.GrandparentRatingKey)
		if err != nil {
			logging.Warn().Err(err).Str("rating_key", event.Metadata.RatingKey).Msg("webhook: apply by rating key failed")
			result.Reason = err.Error()
			rw.Success(result)
			return
		}
		result.Applied = applied.Applied
		result.CategoryID = applied.CategoryID
		result.Reason = applied.Reason
	case len(event.Metadata.Genre) > 0:
		genres := make([]string, len(event.Metadata.Genre))
		for i, g := range event.Metadata.Genre {
			genres[i] = g.Tag
		}
		applied, err := h.loop.ApplyGenresNow(r.Context(), event.Metadata.RatingKey, genres)
		if err != nil {
			logging.Warn().Err(err).Msg("webhook: apply by genre list failed")
			result.Reason = err.Error()
			rw.Success(result)
			return
		}
		result.Applied = applied.Applied
		result.CategoryID = applied.CategoryID
		result.Reason = applied.Reason
	default:
		result.Handled = false
		result.Reason = "no ratingKey or Genre metadata present"
	}

	rw.Success(result)
}

func isInterestingPlexEvent(event string) bool {
	switch event {
	case plexEventMediaPlay, plexEventMediaResume, plexEventMediaStart:
		return true
	default:
		return false
	}
}

// readWebhookPayload returns the raw "payload" bytes (for signature
// verification) whether the request arrived as application/json or as
// multipart/form-data with a payload field, per §6.3.
func readWebhookPayload(r *http.Request) (raw []byte, payload []byte, err error) {
	contentType := r.Header.Get("Content-Type")
	if len(contentType) >= 19 && contentType[:19] == "multipart/form-data" {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			return nil, nil, err
		}
		field := r.FormValue("payload")
		return []byte(field), []byte(field), nil
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, nil, err
	}
	return body, body, nil
}

// verifyPlexSignature checks the base64-encoded HMAC-SHA1 digest Plex sends
// in X-Plex-Signature against the raw request body, using a constant-time
// comparison.
func verifyPlexSignature(secret string, body []byte, signatureHeader string) bool {
	if signatureHeader == "" {
		return false
	}
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signatureHeader))
}
