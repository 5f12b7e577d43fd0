// TrustGate - Proof-of-Humanity Verification & Bot Detection Engine
// Copyright 2026 Trollz1004
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Trollz1004/trustgate

// Request DTOs and their decode/validate helpers. Validation happens at the
// boundary with go-playground/validator so handlers receive well-formed
// input.
package api

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/Trollz1004/trustgate/internal/behavior"
	"github.com/Trollz1004/trustgate/internal/verification"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// maxRequestBody caps request body size at 64 KiB. The largest legitimate
// payload is a message-pattern batch; challenge media never travels through
// this API, only sample references.
const maxRequestBody = 64 << 10

// decodeJSON decodes and validates a request body into dst.
func decodeJSON(r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxRequestBody)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}

	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// issueChallengeRequest asks for a standalone challenge of a given type.
type issueChallengeRequest struct {
	Type   string `json:"type" validate:"omitempty,max=32"`
	UserID string `json:"user_id" validate:"required,max=256"`
}

// startVerificationRequest begins (or restarts) a verification session.
type startVerificationRequest struct {
	UserID string `json:"user_id" validate:"required,max=256"`
}

// challengeResponseBody is the tagged union of answer shapes on the wire.
// Exactly one of Text or SelectedIDs must be present.
type challengeResponseBody struct {
	Text        *string  `json:"text,omitempty"`
	SelectedIDs []string `json:"selected_ids,omitempty"`
}

// toResponse maps the wire shape onto the domain response union.
func (b challengeResponseBody) toResponse() (verification.Response, error) {
	switch {
	case b.Text != nil && b.SelectedIDs != nil:
		return nil, fmt.Errorf("response must set exactly one of text or selected_ids")
	case b.Text != nil:
		return verification.TextResponse{Text: *b.Text}, nil
	case b.SelectedIDs != nil:
		return verification.SelectionResponse{SelectedIDs: b.SelectedIDs}, nil
	default:
		return nil, fmt.Errorf("response must set one of text or selected_ids")
	}
}

// submitChallengeRequest submits an answer to a previously issued challenge.
type submitChallengeRequest struct {
	ChallengeID string                `json:"challenge_id" validate:"required,max=128"`
	UserID      string                `json:"user_id" validate:"required,max=256"`
	Response    challengeResponseBody `json:"response"`
}

// revokeVerificationRequest revokes a user's verified status.
type revokeVerificationRequest struct {
	UserID string `json:"user_id" validate:"required,max=256"`
	Reason string `json:"reason" validate:"required,max=1024"`
}

// scoreTextRequest scores one piece of text for AI-generation likelihood.
type scoreTextRequest struct {
	Text   string `json:"text" validate:"required,max=65536"`
	UserID string `json:"user_id" validate:"omitempty,max=256"`
}

// analyzePatternRequest scores a batch of recent messages.
type analyzePatternRequest struct {
	Messages []string `json:"messages" validate:"required,min=1,max=500,dive,max=65536"`
	UserID   string   `json:"user_id" validate:"omitempty,max=256"`
}

// assessBehaviorRequest assesses account telemetry for automation signals.
type assessBehaviorRequest struct {
	UserID    string             `json:"user_id" validate:"omitempty,max=256"`
	Telemetry behavior.Telemetry `json:"telemetry"`
}
