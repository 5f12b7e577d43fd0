// TrustGate - Proof-of-Humanity Verification & Bot Detection Engine
// Copyright 2026 Trollz1004
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Trollz1004/trustgate

package challenge

import (
	"context"
	"time"
)

// RedeemState is the outcome of an atomic Redeem call.
type RedeemState int

const (
	// RedeemMissing means no challenge with the given id exists (never
	// issued, already consumed, or previously expired and purged).
	RedeemMissing RedeemState = iota

	// RedeemExpired means the challenge's TTL had elapsed; the record has
	// been deleted as part of the same critical section.
	RedeemExpired

	// RedeemKept means the decide callback declined to consume; the
	// challenge stays live until its natural TTL expiry.
	RedeemKept

	// RedeemConsumed means the decide callback consumed the challenge; the
	// record has been deleted and can never be redeemed again.
	RedeemConsumed
)

// Store persists issued challenges keyed by id.
//
// Redeem is the single entry point for submission handling: the expiry
// check, the caller's decision, and the delete all happen inside one
// critical section per challenge id, so a concurrent submission and a lazy
// expiry purge of the same id can never double-spend.
type Store interface {
	// Put registers a challenge.
	Put(ctx context.Context, ch Challenge) error

	// Get returns the challenge without consuming it.
	// Returns found=false if absent.
	Get(ctx context.Context, id string) (ch Challenge, found bool, err error)

	// Redeem atomically resolves a challenge id at the given instant.
	// If the challenge exists and is past its TTL it is deleted and
	// RedeemExpired is returned. If it is live, decide is invoked with the
	// challenge under the store's critical section: returning true deletes
	// the record (RedeemConsumed), returning false leaves it live
	// (RedeemKept). decide must be fast and must not call back into the
	// store.
	Redeem(ctx context.Context, id string, now time.Time, decide func(Challenge) bool) (Challenge, RedeemState, error)

	// Delete removes a challenge unconditionally. Deleting an absent id is
	// not an error.
	Delete(ctx context.Context, id string) error

	// CleanupExpired reclaims expired challenges and returns how many were
	// removed.
	CleanupExpired(ctx context.Context) (int, error)

	// Close releases store resources.
	Close() error
}
