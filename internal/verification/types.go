// TrustGate - Proof-of-Humanity Verification & Bot Detection Engine
// Copyright 2026 Trollz1004
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Trollz1004/trustgate

// Package verification tracks one accumulating proof-of-humanity score per
// user, evaluates submitted challenge answers, and drives the verification
// status state machine.
//
// State machine:
//
//	NOT_STARTED → (start) → IN_PROGRESS → (score ≥ threshold) → VERIFIED
//	→ (revoke) → REVOKED → (start) → IN_PROGRESS
//
// REVOKED is not terminal: a revoked user may start over from score 0.
package verification

import (
	"time"

	"github.com/Trollz1004/trustgate/internal/challenge"
)

// Status is a verification session's position in the state machine.
type Status string

const (
	StatusNotStarted Status = "NOT_STARTED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusVerified   Status = "VERIFIED"
	StatusRevoked    Status = "REVOKED"
)

// DefaultThreshold is the cumulative score at which a session is VERIFIED.
const DefaultThreshold = 70

// CompletedChallenge records one correctly answered challenge in a
// session's history.
type CompletedChallenge struct {
	ChallengeID string         `json:"challenge_id"`
	Type        challenge.Type `json:"type"`
	ScoreWeight int            `json:"score_weight"`
	CompletedAt time.Time      `json:"completed_at"`
}

// Session is the per-user accumulator of challenge points. One session per
// user; starting verification overwrites any existing session.
//
// Score is monotonically non-decreasing while IN_PROGRESS/VERIFIED and is
// reset to 0 only on revoke. Accumulation is uncapped: the threshold
// comparison is what matters, and the history keeps the trail honest.
type Session struct {
	UserID              string               `json:"user_id"`
	SessionID           string               `json:"session_id"`
	Score               int                  `json:"score"`
	Status              Status               `json:"status"`
	CompletedChallenges []CompletedChallenge `json:"completed_challenges"`
	StartedAt           time.Time            `json:"started_at"`
	VerifiedAt          *time.Time           `json:"verified_at,omitempty"`
	RevokedAt           *time.Time           `json:"revoked_at,omitempty"`
	RevokeReason        string               `json:"revoke_reason,omitempty"`
}

// StartResult is returned by StartVerification.
type StartResult struct {
	SessionID  string                `json:"session_id"`
	Challenges []challenge.Challenge `json:"challenges"`
	Threshold  int                   `json:"threshold"`
}

// SubmitResult is returned by SubmitChallenge.
// Remaining is the score still needed to reach the threshold; it is 0 once
// the session is verified.
type SubmitResult struct {
	Correct   bool `json:"correct"`
	Score     int  `json:"score"`
	Verified  bool `json:"verified"`
	Remaining int  `json:"remaining"`
}

// StatusResult is returned by GetStatus.
type StatusResult struct {
	Verified            bool                 `json:"verified"`
	Status              Status               `json:"status"`
	Score               int                  `json:"score"`
	Threshold           int                  `json:"threshold"`
	CompletedChallenges []CompletedChallenge `json:"completed_challenges"`
}

// RevokeResult is returned by Revoke.
type RevokeResult struct {
	Status    Status    `json:"status"`
	RevokedAt time.Time `json:"revoked_at"`
	Reason    string    `json:"reason"`
}
