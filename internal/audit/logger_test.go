// TrustGate - Proof-of-Humanity Verification & Bot Detection Engine
// Copyright 2026 Trollz1004
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Trollz1004/trustgate

package audit

import (
	"testing"
	"time"
)

// waitForEvents polls the store until it holds at least n events or the
// deadline passes. The logger writes asynchronously.
func waitForEvents(t *testing.T, store *MemoryStore, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if store.Len() >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("store holds %d events, want at least %d", store.Len(), n)
}

func TestLoggerWritesAsync(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(100)
	logger := NewLogger(store, nil)
	defer logger.Close()

	logger.LogSessionStarted(t.Context(), "user-1", "sess-1", 70)
	waitForEvents(t, store, 1)

	events, err := store.Query(t.Context(), QueryFilter{UserID: "user-1"})
	if err != nil {
		t.Fatalf("Query error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}

	e := events[0]
	if e.Type != EventTypeSessionStarted {
		t.Errorf("Type = %s, want %s", e.Type, EventTypeSessionStarted)
	}
	if e.SessionID != "sess-1" {
		t.Errorf("SessionID = %q, want sess-1", e.SessionID)
	}
	if e.ID == "" {
		t.Error("expected generated event ID")
	}
	if e.Timestamp.IsZero() {
		t.Error("expected stamped timestamp")
	}
}

func TestLoggerDisabled(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(100)
	logger := NewLogger(store, &Config{Enabled: false, BufferSize: 10})
	defer logger.Close()

	logger.LogVerified(t.Context(), "user-1", "sess-1", 80)
	time.Sleep(20 * time.Millisecond)

	if store.Len() != 0 {
		t.Errorf("disabled logger wrote %d events, want 0", store.Len())
	}

	logger.SetEnabled(true)
	logger.LogVerified(t.Context(), "user-1", "sess-1", 80)
	waitForEvents(t, store, 1)
}

func TestLoggerCloseDrains(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(100)
	logger := NewLogger(store, &Config{Enabled: true, BufferSize: 64})

	for i := 0; i < 10; i++ {
		logger.LogChallengeIssued(t.Context(), "user-1", "ch", "CAPTCHA")
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	if store.Len() != 10 {
		t.Errorf("store holds %d events after Close, want 10", store.Len())
	}
}

func TestMemoryStoreQueryFilters(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(100)
	now := time.Now().UTC()

	events := []Event{
		{ID: "1", Timestamp: now.Add(-2 * time.Hour), Type: EventTypeSessionStarted, UserID: "alice", SessionID: "s1"},
		{ID: "2", Timestamp: now.Add(-time.Hour), Type: EventTypeChallengeConsumed, UserID: "alice", ChallengeID: "c1"},
		{ID: "3", Timestamp: now, Type: EventTypeRevoked, UserID: "bob", SessionID: "s2"},
	}
	for i := range events {
		if err := store.Save(t.Context(), &events[i]); err != nil {
			t.Fatalf("Save error: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter QueryFilter
		want   []string
	}{
		{"by user", QueryFilter{UserID: "alice"}, []string{"1", "2"}},
		{"by type", QueryFilter{Types: []EventType{EventTypeRevoked}}, []string{"3"}},
		{"by challenge", QueryFilter{ChallengeID: "c1"}, []string{"2"}},
		{"by time range", QueryFilter{StartTime: timePtr(now.Add(-90 * time.Minute))}, []string{"2", "3"}},
		{"desc order", QueryFilter{UserID: "alice", OrderDesc: true}, []string{"2", "1"}},
		{"limit", QueryFilter{Limit: 1}, []string{"1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Query(t.Context(), tt.filter)
			if err != nil {
				t.Fatalf("Query error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d events, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("event[%d].ID = %q, want %q", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestMemoryStoreDeleteRetention(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore(100)
	now := time.Now().UTC()

	old := Event{ID: "old", Timestamp: now.AddDate(0, 0, -100), Type: EventTypeSessionStarted, UserID: "u"}
	fresh := Event{ID: "fresh", Timestamp: now, Type: EventTypeSessionStarted, UserID: "u"}
	if err := store.Save(t.Context(), &old); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(t.Context(), &fresh); err != nil {
		t.Fatal(err)
	}

	removed, err := store.Delete(t.Context(), now.AddDate(0, 0, -90))
	if err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1", store.Len())
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
