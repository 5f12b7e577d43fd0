// TrustGate - Proof-of-Humanity Verification & Bot Detection Engine
// Copyright 2026 Trollz1004
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Trollz1004/trustgate

package challenge

import (
	"context"
	"sync"
	"time"

	"github.com/Trollz1004/trustgate/internal/cache"
	"github.com/Trollz1004/trustgate/internal/logging"
	"github.com/Trollz1004/trustgate/internal/metrics"
)

// MemoryStore is a mutex-guarded in-memory challenge store with bounded
// eviction. Suitable for tests and single-process deployments.
//
// Growth under abandonment is bounded two ways: a TTL-aware LRU index caps
// the number of live challenges (the oldest abandoned ones are evicted when
// the cap is reached), and a periodic cleanup routine reclaims expired
// entries so memory does not depend on submissions arriving.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]Challenge
	index *cache.TTLIndex
}

// NewMemoryStore creates an in-memory challenge store holding at most
// maxPending live challenges.
func NewMemoryStore(maxPending int) *MemoryStore {
	return &MemoryStore{
		items: make(map[string]Challenge),
		index: cache.NewTTLIndex(maxPending),
	}
}

// Put registers a challenge, evicting the least recently touched entries if
// the store is at capacity.
func (s *MemoryStore) Put(_ context.Context, ch Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[ch.ID] = ch
	for _, id := range s.index.Add(ch.ID, ch.ExpiresAt) {
		delete(s.items, id)
		metrics.ChallengesEvicted.Inc()
	}

	metrics.PendingChallenges.Set(float64(len(s.items)))
	return nil
}

// Get returns the challenge without consuming it.
func (s *MemoryStore) Get(_ context.Context, id string) (Challenge, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.items[id]
	return ch, ok, nil
}

// Redeem atomically resolves a challenge id. See Store.Redeem.
func (s *MemoryStore) Redeem(_ context.Context, id string, now time.Time, decide func(Challenge) bool) (Challenge, RedeemState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.items[id]
	if !ok {
		return Challenge{}, RedeemMissing, nil
	}

	if ch.Expired(now) {
		delete(s.items, id)
		s.index.Remove(id)
		metrics.ChallengesExpired.Inc()
		metrics.PendingChallenges.Set(float64(len(s.items)))
		return ch, RedeemExpired, nil
	}

	if !decide(ch) {
		return ch, RedeemKept, nil
	}

	delete(s.items, id)
	s.index.Remove(id)
	metrics.PendingChallenges.Set(float64(len(s.items)))
	return ch, RedeemConsumed, nil
}

// Delete removes a challenge unconditionally.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, id)
	s.index.Remove(id)
	metrics.PendingChallenges.Set(float64(len(s.items)))
	return nil
}

// CleanupExpired reclaims expired challenges.
func (s *MemoryStore) CleanupExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expired := s.index.CleanupExpired()
	for _, id := range expired {
		delete(s.items, id)
		metrics.ChallengesExpired.Inc()
	}

	metrics.PendingChallenges.Set(float64(len(s.items)))
	return len(expired), nil
}

// Len returns the number of live challenges.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Close releases store resources.
func (s *MemoryStore) Close() error {
	return nil
}

// StartCleanupRoutine starts a goroutine that periodically reclaims expired
// challenges from the store until the context is cancelled.
func StartCleanupRoutine(ctx context.Context, store Store, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := store.CleanupExpired(ctx)
				if err != nil {
					logging.Error().Err(err).Msg("Challenge cleanup failed")
					continue
				}
				if removed > 0 {
					logging.Debug().Int("removed", removed).Msg("Reclaimed expired challenges")
				}
			}
		}
	}()
}
