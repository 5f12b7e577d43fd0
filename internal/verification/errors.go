// TrustGate - Proof-of-Humanity Verification & Bot Detection Engine
// Copyright 2026 Trollz1004
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Trollz1004/trustgate

package verification

import "errors"

// Sentinel errors returned by the session manager. All are expected
// user-facing conditions that degrade to "retry", never process faults.
var (
	// ErrChallengeNotFound means the challenge id is absent: never issued,
	// already consumed, or previously expired and purged.
	ErrChallengeNotFound = errors.New("challenge not found")

	// ErrOwnershipMismatch means the challenge belongs to a different user.
	ErrOwnershipMismatch = errors.New("challenge ownership mismatch")

	// ErrChallengeExpired means the challenge TTL elapsed before submission;
	// the challenge has been purged as part of the same check.
	ErrChallengeExpired = errors.New("challenge expired")

	// ErrAlreadyVerified means the session is VERIFIED and needs no further
	// challenges.
	ErrAlreadyVerified = errors.New("user already verified")

	// ErrSessionNotFound means no verification session exists for the user.
	ErrSessionNotFound = errors.New("verification session not found")

	// ErrInvalidResponse means the response shape does not match the
	// challenge type.
	ErrInvalidResponse = errors.New("invalid response for challenge type")
)
