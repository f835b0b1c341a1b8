// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package genremapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonical_Synonyms(t *testing.T) {
	assert.Equal(t, "science fiction", Canonical("Sci-Fi"))
	assert.Equal(t, "science fiction", Canonical("sci fi"))
	assert.Equal(t, "science fiction", Canonical("SciFi"))
	assert.Equal(t, "family", Canonical("Kids & Family"))
}

func TestCanonical_Normalization(t *testing.T) {
	assert.Equal(t, "action adventure", Canonical("Action_Adventure"))
	assert.Equal(t, "sit-com", Canonical("Sit--Com"))
	assert.Equal(t, "film noir", Canonical("Film   Noir"))
	assert.Equal(t, "action and adventure", Canonical("Action & Adventure"))
}

func TestCandidateKeys_CompoundLabel(t *testing.T) {
	keys := CandidateKeys("Action & Adventure")
	assert.Equal(t, []string{"action and adventure", "action", "adventure"}, keys)
}

func TestCandidateKeys_CommaSeparated(t *testing.T) {
	keys := CandidateKeys("Horror, Thriller")
	assert.Contains(t, keys, "horror")
	assert.Contains(t, keys, "thriller")
}

func TestCandidateKeys_SingleLabel(t *testing.T) {
	assert.Equal(t, []string{"horror"}, CandidateKeys("Horror"))
}
