// TrustGate - Proof-of-Humanity Verification & Bot Detection Engine
// Copyright 2026 Trollz1004
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Trollz1004/trustgate

package verification

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/Trollz1004/trustgate/internal/metrics"
)

// SessionStore persists verification sessions keyed by user id.
// One session per user; Put overwrites.
type SessionStore interface {
	// Get returns the user's session. Returns found=false if absent.
	Get(ctx context.Context, userID string) (sess Session, found bool, err error)

	// Put stores or replaces the user's session.
	Put(ctx context.Context, sess Session) error

	// Delete removes the user's session. Deleting an absent user is not an
	// error.
	Delete(ctx context.Context, userID string) error

	// Close releases store resources.
	Close() error
}

// MemorySessionStore is a mutex-guarded in-memory session store.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemorySessionStore creates an in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]Session)}
}

// Get returns the user's session.
func (s *MemorySessionStore) Get(_ context.Context, userID string) (Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[userID]
	return sess, ok, nil
}

// Put stores or replaces the user's session.
func (s *MemorySessionStore) Put(_ context.Context, sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.UserID] = sess
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	return nil
}

// Delete removes the user's session.
func (s *MemorySessionStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, userID)
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	return nil
}

// Close releases store resources.
func (s *MemorySessionStore) Close() error {
	return nil
}

// Key prefix for BadgerDB storage
const sessionKeyPrefix = "verification_session:"

// BadgerSessionStore implements SessionStore using BadgerDB for durable
// storage. Verified status survives process restarts.
type BadgerSessionStore struct {
	db *badger.DB
}

// NewBadgerSessionStore creates a new BadgerDB-backed session store.
func NewBadgerSessionStore(db *badger.DB) *BadgerSessionStore {
	return &BadgerSessionStore{db: db}
}

// Get returns the user's session.
func (s *BadgerSessionStore) Get(_ context.Context, userID string) (Session, bool, error) {
	var sess Session

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(sessionKeyPrefix + userID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &sess)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("get session: %w", err)
	}

	return sess, true, nil
}

// Put stores or replaces the user's session.
func (s *BadgerSessionStore) Put(_ context.Context, sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(sessionKeyPrefix+sess.UserID), data)
	})
}

// Delete removes the user's session.
func (s *BadgerSessionStore) Delete(_ context.Context, userID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(sessionKeyPrefix + userID))
	})
}

// Close releases store resources. The underlying Badger DB is shared with
// the challenge store, so closing it is the owner's responsibility.
func (s *BadgerSessionStore) Close() error {
	return nil
}
