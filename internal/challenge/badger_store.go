// TrustGate - Proof-of-Humanity Verification & Bot Detection Engine
// Copyright 2026 Trollz1004
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Trollz1004/trustgate

package challenge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/Trollz1004/trustgate/internal/metrics"
)

// Key prefix for BadgerDB storage
const challengeKeyPrefix = "challenge:"

// badgerGrace keeps expired records readable long enough for lazy expiry
// detection to report EXPIRED instead of NOT_FOUND. Badger's native entry
// TTL then garbage-collects whatever no submission ever touched.
const badgerGrace = 24 * time.Hour

// redeemRetries bounds optimistic transaction retries on write conflicts.
const redeemRetries = 3

// BadgerStore implements Store using BadgerDB for durable storage.
// Challenges survive process restarts and TTL enforcement does not depend
// on process uptime.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore creates a new BadgerDB-backed challenge store.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// Put registers a challenge.
func (s *BadgerStore) Put(_ context.Context, ch Challenge) error {
	data, err := json.Marshal(toRecord(ch))
	if err != nil {
		return fmt.Errorf("marshal challenge: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(challengeKeyPrefix+ch.ID), data).
			WithTTL(time.Until(ch.ExpiresAt) + badgerGrace)
		return txn.SetEntry(entry)
	})
}

// Get returns the challenge without consuming it.
func (s *BadgerStore) Get(_ context.Context, id string) (Challenge, bool, error) {
	var rec record

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(challengeKeyPrefix + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Challenge{}, false, nil
	}
	if err != nil {
		return Challenge{}, false, fmt.Errorf("get challenge: %w", err)
	}

	return rec.challenge(), true, nil
}

// Redeem atomically resolves a challenge id. The read, the expiry check, the
// caller's decision, and the delete run in one Badger transaction; write
// conflicts between concurrent redeems of the same id abort all but one.
func (s *BadgerStore) Redeem(_ context.Context, id string, now time.Time, decide func(Challenge) bool) (Challenge, RedeemState, error) {
	var (
		ch    Challenge
		state RedeemState
	)

	key := []byte(challengeKeyPrefix + id)

	for attempt := 0; ; attempt++ {
		err := s.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get(key)
			if errors.Is(err, badger.ErrKeyNotFound) {
				state = RedeemMissing
				return nil
			}
			if err != nil {
				return fmt.Errorf("get challenge: %w", err)
			}

			var rec record
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("unmarshal challenge: %w", err)
			}
			ch = rec.challenge()

			if ch.Expired(now) {
				state = RedeemExpired
				metrics.ChallengesExpired.Inc()
				return txn.Delete(key)
			}

			if !decide(ch) {
				state = RedeemKept
				return nil
			}

			state = RedeemConsumed
			return txn.Delete(key)
		})

		if errors.Is(err, badger.ErrConflict) && attempt < redeemRetries {
			continue
		}
		if err != nil {
			return Challenge{}, RedeemMissing, err
		}
		return ch, state, nil
	}
}

// Delete removes a challenge unconditionally.
func (s *BadgerStore) Delete(_ context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(challengeKeyPrefix + id))
	})
}

// CleanupExpired reclaims expired challenges still within the Badger grace
// window.
func (s *BadgerStore) CleanupExpired(_ context.Context) (int, error) {
	now := time.Now().UTC()
	var expired [][]byte

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(challengeKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var rec record
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("unmarshal challenge: %w", err)
			}
			if rec.Challenge.Expired(now) {
				expired = append(expired, item.KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, key := range expired {
		err := s.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(key)
		})
		if err != nil {
			return 0, fmt.Errorf("delete expired challenge: %w", err)
		}
		metrics.ChallengesExpired.Inc()
	}

	return len(expired), nil
}

// Close releases store resources. The underlying Badger DB is shared with
// the session store, so closing it is the owner's responsibility.
func (s *BadgerStore) Close() error {
	return nil
}
