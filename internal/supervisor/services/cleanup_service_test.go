// TrustGate - Proof-of-Humanity Verification & Bot Detection Engine
// Copyright 2026 Trollz1004
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Trollz1004/trustgate

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestCleanupServiceRunsOnInterval(t *testing.T) {
	t.Parallel()

	var passes atomic.Int32
	svc := NewCleanupService("test-sweeper", 10*time.Millisecond, func(context.Context) (int, error) {
		passes.Add(1)
		return 1, nil
	})

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for passes.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("only %d passes ran", passes.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not stop after cancel")
	}
}

func TestCleanupServiceSurvivesFailingPass(t *testing.T) {
	t.Parallel()

	var passes atomic.Int32
	svc := NewCleanupService("flaky-sweeper", 10*time.Millisecond, func(context.Context) (int, error) {
		if passes.Add(1) == 1 {
			return 0, errors.New("transient store error")
		}
		return 0, nil
	})

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go svc.Serve(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for passes.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("loop stopped after a failing pass")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCleanupServiceString(t *testing.T) {
	t.Parallel()

	svc := NewCleanupService("audit-retention", 0, func(context.Context) (int, error) { return 0, nil })
	if svc.String() != "audit-retention" {
		t.Errorf("String() = %q", svc.String())
	}
}
