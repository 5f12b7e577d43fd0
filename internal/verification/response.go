// TrustGate - Proof-of-Humanity Verification & Bot Detection Engine
// Copyright 2026 Trollz1004
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Trollz1004/trustgate

package verification

import (
	"sort"
	"strings"

	"github.com/Trollz1004/trustgate/internal/challenge"
)

// Response is the tagged union of challenge answer shapes. Exactly two
// shapes exist: free text (CAPTCHA, MATH_PUZZLE, biometric sample
// references) and image id selections (IMAGE_SELECT). The shape is
// validated against the challenge type at the boundary, so the evaluator
// never type-sniffs.
type Response interface {
	// validFor reports whether this response shape fits the challenge type.
	validFor(t challenge.Type) bool
}

// TextResponse is a free-text answer.
type TextResponse struct {
	Text string `json:"text"`
}

func (TextResponse) validFor(t challenge.Type) bool {
	return t != challenge.TypeImageSelect
}

// SelectionResponse is a set of selected image identifiers.
type SelectionResponse struct {
	SelectedIDs []string `json:"selected_ids"`
}

func (SelectionResponse) validFor(t challenge.Type) bool {
	return t == challenge.TypeImageSelect
}

// evaluate applies the type-specific correctness check for the non-biometric
// challenge types: case-insensitive trimmed equality for CAPTCHA and
// MATH_PUZZLE, sorted-set equality of selected ids for IMAGE_SELECT.
// Biometric types are resolved by the caller against the external verifier
// and never reach this function.
func evaluate(ch challenge.Challenge, resp Response) bool {
	switch r := resp.(type) {
	case TextResponse:
		return strings.EqualFold(strings.TrimSpace(r.Text), ch.ExpectedAnswer)
	case SelectionResponse:
		ids := make([]string, 0, len(r.SelectedIDs))
		for _, id := range r.SelectedIDs {
			id = strings.TrimSpace(id)
			if id != "" {
				ids = append(ids, id)
			}
		}
		sort.Strings(ids)
		return strings.Join(ids, ",") == ch.ExpectedAnswer
	default:
		return false
	}
}

// sample extracts the raw biometric sample reference from a response.
func sample(resp Response) string {
	if r, ok := resp.(TextResponse); ok {
		return strings.TrimSpace(r.Text)
	}
	return ""
}
