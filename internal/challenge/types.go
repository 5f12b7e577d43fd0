// TrustGate - Proof-of-Humanity Verification & Bot Detection Engine
// Copyright 2026 Trollz1004
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Trollz1004/trustgate

// Package challenge provides the proof-of-humanity challenge catalog,
// generator, and stores.
//
// A challenge is a single time-boxed verification task with a typed
// correctness check and a fixed score weight. Challenges are consumed
// exactly once: on a correct answer or on lazy expiry detection, the record
// is removed and can never be redeemed twice.
package challenge

import "time"

// Type identifies a challenge kind in the fixed catalog.
type Type string

// Challenge types.
const (
	TypeCaptcha      Type = "CAPTCHA"
	TypeMathPuzzle   Type = "MATH_PUZZLE"
	TypeImageSelect  Type = "IMAGE_SELECT"
	TypeVoicePhrase  Type = "VOICE_PHRASE"
	TypeVideoGesture Type = "VIDEO_GESTURE"
	TypeLiveSelfie   Type = "LIVE_SELFIE"
)

// catalogEntry holds the fixed weight and TTL for a challenge type.
type catalogEntry struct {
	weight int
	ttl    time.Duration
}

// catalog is the fixed weight/TTL table per challenge type.
var catalog = map[Type]catalogEntry{
	TypeCaptcha:      {weight: 30, ttl: 5 * time.Minute},
	TypeMathPuzzle:   {weight: 20, ttl: 3 * time.Minute},
	TypeImageSelect:  {weight: 35, ttl: 5 * time.Minute},
	TypeVoicePhrase:  {weight: 70, ttl: 10 * time.Minute},
	TypeVideoGesture: {weight: 90, ttl: 15 * time.Minute},
	TypeLiveSelfie:   {weight: 85, ttl: 10 * time.Minute},
}

// Types returns all catalog challenge types.
func Types() []Type {
	return []Type{
		TypeCaptcha,
		TypeMathPuzzle,
		TypeImageSelect,
		TypeVoicePhrase,
		TypeVideoGesture,
		TypeLiveSelfie,
	}
}

// Normalize maps an unrecognized type to the default CAPTCHA type.
func Normalize(t Type) Type {
	if _, ok := catalog[t]; ok {
		return t
	}
	return TypeCaptcha
}

// Weight returns the fixed score weight for a challenge type.
func Weight(t Type) int {
	return catalog[Normalize(t)].weight
}

// TTL returns the fixed time-to-live for a challenge type.
func TTL(t Type) time.Duration {
	return catalog[Normalize(t)].ttl
}

// IsBiometric reports whether a type's correctness verdict comes from the
// downstream biometric verifier rather than an in-core answer check.
func IsBiometric(t Type) bool {
	switch t {
	case TypeVoicePhrase, TypeVideoGesture, TypeLiveSelfie:
		return true
	default:
		return false
	}
}

// Challenge is a single issued verification task.
//
// ExpectedAnswer holds the exact answer for CAPTCHA/MATH_PUZZLE and the
// sorted comma-joined correct image ids for IMAGE_SELECT. For biometric
// types it holds the expected predicate (phrase, gesture name, head
// position) forwarded to the external verifier.
type Challenge struct {
	ID             string    `json:"id"`
	Type           Type      `json:"type"`
	Prompt         string    `json:"prompt"`
	ExpectedAnswer string    `json:"-"`
	Options        []string  `json:"options,omitempty"`
	ScoreWeight    int       `json:"score_weight"`
	IssuedAt       time.Time `json:"issued_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	OwnerUserID    string    `json:"owner_user_id"`
}

// Expired reports whether the challenge TTL elapsed at the given instant.
func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// record is the persisted form of a Challenge. The expected answer is
// excluded from API responses via the Challenge JSON tags, so stores
// marshal this wrapper instead.
type record struct {
	Challenge
	Answer string `json:"answer"`
}

func toRecord(c Challenge) record {
	return record{Challenge: c, Answer: c.ExpectedAnswer}
}

func (r record) challenge() Challenge {
	c := r.Challenge
	c.ExpectedAnswer = r.Answer
	return c
}
