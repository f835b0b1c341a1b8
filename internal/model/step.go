// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package model

import (
	"encoding/json"
	"fmt"
)

// rawStep mirrors the polymorphic dict shape a Schedule.sequence entry takes
// on the wire: {"type":"random","category_id":C,"count":K} or
// {"type":"fixed","preroll_id":P} or {"type":"fixed","preroll_ids":[...]}.
type rawStep struct {
	Type       string  `json:"type"`
	CategoryID int64   `json:"category_id"`
	Count      int     `json:"count"`
	PrerollID  *int64  `json:"preroll_id"`
	PrerollIDs []int64 `json:"preroll_ids"`
}

// UnmarshalJSON decodes one sequence step, rejecting unrecognized "type"
// values rather than silently coercing them, per §9's "Dynamic sequence step
// shape" guidance: unknown step types are skipped at the sequence level
// (ParseSequence), not hidden inside a zero-value Step here.
func (s *Step) UnmarshalJSON(data []byte) error {
	var raw rawStep
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode sequence step: %w", err)
	}
	switch raw.Type {
	case string(StepKindFixed):
		ids := raw.PrerollIDs
		if raw.PrerollID != nil {
			ids = append(ids, *raw.PrerollID)
		}
		if len(ids) == 0 {
			return fmt.Errorf("decode sequence step: fixed step has no preroll_id/preroll_ids")
		}
		*s = Step{Fixed: &StepFixed{PrerollIDs: ids}}
		return nil
	case string(StepKindRandom):
		if raw.CategoryID == 0 {
			return fmt.Errorf("decode sequence step: random step has no category_id")
		}
		*s = Step{Random: &StepRandom{CategoryID: raw.CategoryID, Count: raw.Count}}
		return nil
	default:
		return errUnknownStepType{raw.Type}
	}
}

// MarshalJSON round-trips a Step back into the polymorphic wire shape.
func (s Step) MarshalJSON() ([]byte, error) {
	switch s.Kind() {
	case StepKindFixed:
		return json.Marshal(rawStep{Type: string(StepKindFixed), PrerollIDs: s.Fixed.PrerollIDs})
	case StepKindRandom:
		return json.Marshal(rawStep{Type: string(StepKindRandom), CategoryID: s.Random.CategoryID, Count: s.Random.Count})
	default:
		return nil, fmt.Errorf("marshal sequence step: empty Step")
	}
}

type errUnknownStepType struct{ typ string }

func (e errUnknownStepType) Error() string { return fmt.Sprintf("unknown sequence step type %q", e.typ) }

// IsUnknownStepType reports whether err was produced by decoding a step with
// an unrecognized "type" field.
func IsUnknownStepType(err error) bool {
	_, ok := err.(errUnknownStepType)
	return ok
}

// ParseSequence decodes a JSON array of steps, skipping (not failing on)
// unknown step types per §4.5 ("Unknown step types: skipped").
func ParseSequence(raw json.RawMessage) ([]Step, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var msgs []json.RawMessage
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil, fmt.Errorf("parse sequence: %w", err)
	}
	steps := make([]Step, 0, len(msgs))
	for _, m := range msgs {
		var step Step
		if err := json.Unmarshal(m, &step); err != nil {
			if IsUnknownStepType(err) {
				continue
			}
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}
