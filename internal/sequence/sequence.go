// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package sequence implements SequenceExpander (§4.5): expanding an ordered
// list of fixed/random steps into a concrete ordered list of preroll paths.
// Grounded on original_source NeXroll/backend/scheduler.py's
// _apply_schedule_sequence_to_plex preroll-collection loop, reworked as a
// pure expansion function decoupled from the Plex-apply side effects.
package sequence

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/nexroll/nexroll/internal/model"
)

// ErrEmptyOutput is returned when a sequence expands to zero paths, per
// §4.5 ("An empty output aborts the apply").
var ErrEmptyOutput = errors.New("sequence produced no paths")

// PrerollPool resolves the union-pool of a category's prerolls, used to
// satisfy random steps. Implementations live in internal/store.
type PrerollPool func(categoryID int64) ([]model.Preroll, error)

// Expand walks steps in order, producing a flat ordered list of Prerolls.
// Fixed steps append their referenced prerolls verbatim (missing ids are
// skipped, logged by the caller); random steps draw min(count, |pool|)
// distinct members uniformly without replacement.
func Expand(steps []model.Step, pool PrerollPool, byID func(id int64) (model.Preroll, bool), rng *rand.Rand) ([]model.Preroll, error) {
	var out []model.Preroll
	for _, step := range steps {
		switch step.Kind() {
		case model.StepKindFixed:
			for _, id := range step.Fixed.PrerollIDs {
				if p, ok := byID(id); ok {
					out = append(out, p)
				}
			}
		case model.StepKindRandom:
			members, err := pool(step.Random.CategoryID)
			if err != nil {
				return nil, fmt.Errorf("expand random step for category %d: %w", step.Random.CategoryID, err)
			}
			picked := sample(members, step.Random.Count, rng)
			out = append(out, picked...)
		}
	}
	if len(out) == 0 {
		return nil, ErrEmptyOutput
	}
	return out, nil
}

// ExpandPaths is Expand followed by projecting each Preroll to its local
// path, the form the Arbiter and PathTranslator consume.
func ExpandPaths(steps []model.Step, pool PrerollPool, byID func(id int64) (model.Preroll, bool), rng *rand.Rand) ([]string, error) {
	prerolls, err := Expand(steps, pool, byID, rng)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(prerolls))
	for i, p := range prerolls {
		paths[i] = p.Path
	}
	return paths, nil
}

// sample draws min(count, len(members)) distinct elements uniformly without
// replacement, preserving none of the original order (Fisher-Yates prefix).
func sample(members []model.Preroll, count int, rng *rand.Rand) []model.Preroll {
	n := len(members)
	if n == 0 || count <= 0 {
		return nil
	}
	if count > n {
		count = n
	}
	shuffled := make([]model.Preroll, n)
	copy(shuffled, members)
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	rng.Shuffle(n, func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	return shuffled[:count]
}
