// TrustGate - Proof-of-Humanity Verification & Bot Detection Engine
// Copyright 2026 Trollz1004
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Trollz1004/trustgate

package verification

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Trollz1004/trustgate/internal/audit"
	"github.com/Trollz1004/trustgate/internal/challenge"
	"github.com/Trollz1004/trustgate/internal/logging"
	"github.com/Trollz1004/trustgate/internal/metrics"
)

// lockStripes is the number of user-lock stripes. Sessions are independent
// per user, so striping by user id serializes read-modify-write on one
// session without a global lock.
const lockStripes = 64

// Config holds session manager settings.
type Config struct {
	// Threshold is the cumulative score at which a session becomes VERIFIED.
	Threshold int

	// Biometric resolves voice/video/selfie samples. When nil the manager
	// falls back to the non-empty-sample placeholder; production
	// deployments must wire a real verifier.
	Biometric BiometricVerifier

	// Audit receives session and challenge lifecycle events. Optional.
	Audit *audit.Logger
}

// Manager tracks verification sessions, evaluates challenge submissions,
// and drives the status state machine.
type Manager struct {
	sessions   SessionStore
	challenges challenge.Store
	generator  *challenge.Generator
	biometric  BiometricVerifier
	auditor    *audit.Logger
	threshold  int
	locks      [lockStripes]sync.Mutex
}

// NewManager creates a session manager.
func NewManager(sessions SessionStore, challenges challenge.Store, generator *challenge.Generator, cfg Config) *Manager {
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	if cfg.Biometric == nil {
		logging.Warn().Msg("No biometric verifier configured; voice/video/selfie challenges accept any non-empty sample")
	}

	return &Manager{
		sessions:   sessions,
		challenges: challenges,
		generator:  generator,
		biometric:  cfg.Biometric,
		auditor:    cfg.Audit,
		threshold:  threshold,
	}
}

// Threshold returns the verification threshold.
func (m *Manager) Threshold() int {
	return m.threshold
}

// userLock returns the lock stripe for a user id.
func (m *Manager) userLock(userID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return &m.locks[h.Sum32()%lockStripes]
}

// StartVerification creates or overwrites the user's session with score 0
// and status IN_PROGRESS, and issues the two starter challenges
// (CAPTCHA + MATH_PUZZLE).
func (m *Manager) StartVerification(ctx context.Context, userID string) (StartResult, error) {
	mu := m.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	now := time.Now().UTC()
	sess := Session{
		UserID:    userID,
		SessionID: uuid.New().String(),
		Score:     0,
		Status:    StatusInProgress,
		StartedAt: now,
	}
	if err := m.sessions.Put(ctx, sess); err != nil {
		return StartResult{}, fmt.Errorf("store session: %w", err)
	}

	starters := []challenge.Type{challenge.TypeCaptcha, challenge.TypeMathPuzzle}
	challenges := make([]challenge.Challenge, 0, len(starters))
	for _, t := range starters {
		ch, err := m.generator.Issue(ctx, t, userID)
		if err != nil {
			return StartResult{}, fmt.Errorf("issue starter challenge: %w", err)
		}
		challenges = append(challenges, ch)
		if m.auditor != nil {
			m.auditor.LogChallengeIssued(ctx, userID, ch.ID, string(ch.Type))
		}
	}

	metrics.SessionsStarted.Inc()
	if m.auditor != nil {
		m.auditor.LogSessionStarted(ctx, userID, sess.SessionID, m.threshold)
	}

	logging.Info().
		Str("user_id", userID).
		Str("session_id", sess.SessionID).
		Msg("Verification session started")

	return StartResult{
		SessionID:  sess.SessionID,
		Challenges: challenges,
		Threshold:  m.threshold,
	}, nil
}

// SubmitChallenge evaluates a challenge answer.
//
// Outcomes in order: ErrChallengeNotFound, ErrOwnershipMismatch,
// ErrInvalidResponse, ErrChallengeExpired (lazy, atomic with the purge),
// then the type-specific correctness check. A correct answer consumes the
// challenge, adds its weight, and verifies the session at the threshold; an
// incorrect answer leaves the challenge live until its natural TTL.
func (m *Manager) SubmitChallenge(ctx context.Context, challengeID string, resp Response, userID string) (SubmitResult, error) {
	mu := m.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	ch, found, err := m.challenges.Get(ctx, challengeID)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("lookup challenge: %w", err)
	}
	if !found {
		metrics.ChallengeSubmissions.WithLabelValues("unknown", "not_found").Inc()
		return SubmitResult{}, ErrChallengeNotFound
	}

	if ch.OwnerUserID != userID {
		metrics.ChallengeSubmissions.WithLabelValues(string(ch.Type), "ownership_mismatch").Inc()
		return SubmitResult{}, ErrOwnershipMismatch
	}

	if resp == nil || !resp.validFor(ch.Type) {
		return SubmitResult{}, ErrInvalidResponse
	}

	sess, found, err := m.sessions.Get(ctx, userID)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("lookup session: %w", err)
	}
	if !found {
		return SubmitResult{}, ErrSessionNotFound
	}

	// Biometric verdicts involve an external call, so they are resolved
	// before entering the store's critical section.
	var bioCorrect bool
	if challenge.IsBiometric(ch.Type) {
		bioCorrect, err = m.verifyBiometric(ctx, ch, resp)
		if err != nil {
			return SubmitResult{}, err
		}
	}

	now := time.Now().UTC()
	var correct bool
	consumed, state, err := m.challenges.Redeem(ctx, challengeID, now, func(c challenge.Challenge) bool {
		if challenge.IsBiometric(c.Type) {
			correct = bioCorrect
		} else {
			correct = evaluate(c, resp)
		}
		return correct
	})
	if err != nil {
		return SubmitResult{}, fmt.Errorf("redeem challenge: %w", err)
	}

	switch state {
	case challenge.RedeemMissing:
		// Consumed or purged between the lookup and the redeem.
		metrics.ChallengeSubmissions.WithLabelValues(string(ch.Type), "not_found").Inc()
		return SubmitResult{}, ErrChallengeNotFound

	case challenge.RedeemExpired:
		metrics.ChallengeSubmissions.WithLabelValues(string(ch.Type), "expired").Inc()
		if m.auditor != nil {
			m.auditor.LogChallengeExpired(ctx, userID, challengeID, string(ch.Type))
		}
		return SubmitResult{}, ErrChallengeExpired

	case challenge.RedeemKept:
		metrics.ChallengeSubmissions.WithLabelValues(string(ch.Type), "incorrect").Inc()
		if m.auditor != nil {
			m.auditor.LogChallengeFailed(ctx, userID, challengeID, string(ch.Type))
		}
		return SubmitResult{
			Correct:   false,
			Score:     sess.Score,
			Verified:  sess.Status == StatusVerified,
			Remaining: remaining(m.threshold, sess.Score),
		}, nil
	}

	// RedeemConsumed: credit the session.
	sess.Score += consumed.ScoreWeight
	sess.CompletedChallenges = append(sess.CompletedChallenges, CompletedChallenge{
		ChallengeID: consumed.ID,
		Type:        consumed.Type,
		ScoreWeight: consumed.ScoreWeight,
		CompletedAt: now,
	})

	if sess.Status != StatusVerified && sess.Score >= m.threshold {
		sess.Status = StatusVerified
		sess.VerifiedAt = &now
		metrics.SessionsVerified.Inc()
		if m.auditor != nil {
			m.auditor.LogVerified(ctx, userID, sess.SessionID, sess.Score)
		}
		logging.Info().
			Str("user_id", userID).
			Int("score", sess.Score).
			Msg("User verified")
	}

	if err := m.sessions.Put(ctx, sess); err != nil {
		return SubmitResult{}, fmt.Errorf("store session: %w", err)
	}

	metrics.ChallengeSubmissions.WithLabelValues(string(consumed.Type), "correct").Inc()
	if m.auditor != nil {
		m.auditor.LogChallengeConsumed(ctx, userID, consumed.ID, string(consumed.Type), sess.Score)
	}

	return SubmitResult{
		Correct:   true,
		Score:     sess.Score,
		Verified:  sess.Status == StatusVerified,
		Remaining: remaining(m.threshold, sess.Score),
	}, nil
}

// verifyBiometric resolves a biometric challenge sample. An empty sample is
// always incorrect. With no verifier configured the non-empty sample is
// provisionally accepted (integration placeholder, never a security check).
func (m *Manager) verifyBiometric(ctx context.Context, ch challenge.Challenge, resp Response) (bool, error) {
	s := sample(resp)
	if s == "" {
		return false, nil
	}
	if m.biometric == nil {
		return true, nil
	}

	matches, err := m.biometric.Verify(ctx, ch, s)
	if err != nil {
		return false, fmt.Errorf("biometric verification: %w", err)
	}
	return matches, nil
}

// GetNextChallenge issues another challenge for an unverified user. The
// default type is CAPTCHA; an unrecognized preferred type also falls back
// to CAPTCHA.
func (m *Manager) GetNextChallenge(ctx context.Context, userID string, preferredType challenge.Type) (challenge.Challenge, error) {
	sess, found, err := m.sessions.Get(ctx, userID)
	if err != nil {
		return challenge.Challenge{}, fmt.Errorf("lookup session: %w", err)
	}
	if found && sess.Status == StatusVerified {
		return challenge.Challenge{}, ErrAlreadyVerified
	}

	ch, err := m.generator.Issue(ctx, challenge.Normalize(preferredType), userID)
	if err != nil {
		return challenge.Challenge{}, err
	}

	if m.auditor != nil {
		m.auditor.LogChallengeIssued(ctx, userID, ch.ID, string(ch.Type))
	}
	return ch, nil
}

// GetStatus reports the user's verification state. A user with no session
// reads as NOT_STARTED with score 0.
func (m *Manager) GetStatus(ctx context.Context, userID string) (StatusResult, error) {
	sess, found, err := m.sessions.Get(ctx, userID)
	if err != nil {
		return StatusResult{}, fmt.Errorf("lookup session: %w", err)
	}
	if !found {
		return StatusResult{
			Verified:  false,
			Status:    StatusNotStarted,
			Score:     0,
			Threshold: m.threshold,
		}, nil
	}

	return StatusResult{
		Verified:            sess.Status == StatusVerified,
		Status:              sess.Status,
		Score:               sess.Score,
		Threshold:           m.threshold,
		CompletedChallenges: sess.CompletedChallenges,
	}, nil
}

// Revoke resets a user's verified status: status REVOKED, score 0, history
// cleared, revocation metadata recorded. REVOKED is not terminal; a later
// StartVerification begins a fresh session.
func (m *Manager) Revoke(ctx context.Context, userID, reason string) (RevokeResult, error) {
	mu := m.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	sess, found, err := m.sessions.Get(ctx, userID)
	if err != nil {
		return RevokeResult{}, fmt.Errorf("lookup session: %w", err)
	}
	if !found {
		return RevokeResult{}, ErrSessionNotFound
	}

	now := time.Now().UTC()
	sess.Status = StatusRevoked
	sess.Score = 0
	sess.CompletedChallenges = nil
	sess.VerifiedAt = nil
	sess.RevokedAt = &now
	sess.RevokeReason = reason

	if err := m.sessions.Put(ctx, sess); err != nil {
		return RevokeResult{}, fmt.Errorf("store session: %w", err)
	}

	metrics.SessionsRevoked.Inc()
	if m.auditor != nil {
		m.auditor.LogRevoked(ctx, userID, sess.SessionID, reason)
	}

	logging.Warn().
		Str("user_id", userID).
		Str("reason", reason).
		Msg("Verification revoked")

	return RevokeResult{
		Status:    StatusRevoked,
		RevokedAt: now,
		Reason:    reason,
	}, nil
}

// remaining reports the score still needed to reach the threshold.
func remaining(threshold, score int) int {
	if score >= threshold {
		return 0
	}
	return threshold - score
}
