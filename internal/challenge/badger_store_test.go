// TrustGate - Proof-of-Humanity Verification & Bot Detection Engine
// Copyright 2026 Trollz1004
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Trollz1004/trustgate

package challenge

import (
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
)

func newTestBadgerStore(t *testing.T) *BadgerStore {
	t.Helper()

	opts := badger.DefaultOptions(t.TempDir()).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close badger: %v", err)
		}
	})

	return NewBadgerStore(db)
}

func TestBadgerStorePutGet(t *testing.T) {
	store := newTestBadgerStore(t)
	ch := testChallenge("c1", "user-1", time.Minute)

	if err := store.Put(t.Context(), ch); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	got, found, err := store.Get(t.Context(), "c1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !found {
		t.Fatal("challenge not found")
	}
	if got.ExpectedAnswer != ch.ExpectedAnswer {
		t.Errorf("ExpectedAnswer = %q, want %q", got.ExpectedAnswer, ch.ExpectedAnswer)
	}
	if got.OwnerUserID != "user-1" {
		t.Errorf("OwnerUserID = %q, want user-1", got.OwnerUserID)
	}
}

func TestBadgerStoreRedeemLifecycle(t *testing.T) {
	store := newTestBadgerStore(t)
	if err := store.Put(t.Context(), testChallenge("c1", "user-1", time.Minute)); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	now := time.Now().UTC()

	// Incorrect answer keeps the challenge live.
	_, state, err := store.Redeem(t.Context(), "c1", now, func(Challenge) bool { return false })
	if err != nil {
		t.Fatalf("Redeem error: %v", err)
	}
	if state != RedeemKept {
		t.Fatalf("state = %v, want RedeemKept", state)
	}

	// Correct answer consumes it.
	_, state, err = store.Redeem(t.Context(), "c1", now, func(Challenge) bool { return true })
	if err != nil {
		t.Fatalf("Redeem error: %v", err)
	}
	if state != RedeemConsumed {
		t.Fatalf("state = %v, want RedeemConsumed", state)
	}

	// No double-spend.
	_, state, err = store.Redeem(t.Context(), "c1", now, func(Challenge) bool { return true })
	if err != nil {
		t.Fatalf("Redeem error: %v", err)
	}
	if state != RedeemMissing {
		t.Errorf("state = %v, want RedeemMissing", state)
	}
}

func TestBadgerStoreRedeemExpired(t *testing.T) {
	store := newTestBadgerStore(t)
	if err := store.Put(t.Context(), testChallenge("c1", "user-1", -time.Second)); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	now := time.Now().UTC()
	_, state, err := store.Redeem(t.Context(), "c1", now, func(Challenge) bool { return true })
	if err != nil {
		t.Fatalf("Redeem error: %v", err)
	}
	if state != RedeemExpired {
		t.Fatalf("state = %v, want RedeemExpired", state)
	}

	_, state, err = store.Redeem(t.Context(), "c1", now, func(Challenge) bool { return true })
	if err != nil {
		t.Fatalf("Redeem error: %v", err)
	}
	if state != RedeemMissing {
		t.Errorf("state after expiry purge = %v, want RedeemMissing", state)
	}
}

func TestBadgerStoreCleanupExpired(t *testing.T) {
	store := newTestBadgerStore(t)

	if err := store.Put(t.Context(), testChallenge("live", "user-1", time.Minute)); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if err := store.Put(t.Context(), testChallenge("dead", "user-1", -time.Second)); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	removed, err := store.CleanupExpired(t.Context())
	if err != nil {
		t.Fatalf("CleanupExpired error: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	_, found, err := store.Get(t.Context(), "live")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !found {
		t.Error("live challenge should survive cleanup")
	}
}
