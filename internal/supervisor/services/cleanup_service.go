// TrustGate - Proof-of-Humanity Verification & Bot Detection Engine
// Copyright 2026 Trollz1004
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Trollz1004/trustgate

package services

import (
	"context"
	"time"

	"github.com/Trollz1004/trustgate/internal/logging"
)

// CleanupFunc performs one maintenance pass and returns how many records it
// reclaimed.
type CleanupFunc func(ctx context.Context) (int, error)

// CleanupService runs a maintenance function on a fixed interval as a
// supervised service. A failing pass is logged and retried on the next
// tick; only a canceled context stops the loop.
//
// Used for the challenge TTL sweep and audit retention enforcement.
type CleanupService struct {
	name     string
	interval time.Duration
	fn       CleanupFunc
}

// NewCleanupService creates a periodic maintenance service.
func NewCleanupService(name string, interval time.Duration, fn CleanupFunc) *CleanupService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &CleanupService{
		name:     name,
		interval: interval,
		fn:       fn,
	}
}

// Serve implements suture.Service.
func (s *CleanupService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			reclaimed, err := s.fn(ctx)
			if err != nil {
				logging.Warn().Err(err).Str("service", s.name).Msg("Cleanup pass failed")
				continue
			}
			if reclaimed > 0 {
				logging.Debug().Str("service", s.name).Int("reclaimed", reclaimed).Msg("Cleanup pass completed")
			}
		}
	}
}

// String implements fmt.Stringer for logging.
func (s *CleanupService) String() string {
	return s.name
}
