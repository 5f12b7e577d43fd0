// TrustGate - Proof-of-Humanity Verification & Bot Detection Engine
// Copyright 2026 Trollz1004
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Trollz1004/trustgate

package verification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Trollz1004/trustgate/internal/challenge"
)

// fakeBiometric is a canned-verdict biometric verifier.
type fakeBiometric struct {
	verdict bool
	err     error
	calls   int
}

func (f *fakeBiometric) Verify(_ context.Context, _ challenge.Challenge, _ string) (bool, error) {
	f.calls++
	return f.verdict, f.err
}

// newTestManager wires a manager over in-memory stores.
func newTestManager(t *testing.T, cfg Config) (*Manager, challenge.Store) {
	t.Helper()
	store := challenge.NewMemoryStore(1000)
	gen := challenge.NewGenerator(store)
	return NewManager(NewMemorySessionStore(), store, gen, cfg), store
}

// correctAnswer fetches the stored expected answer for a challenge so tests
// can submit it.
func correctAnswer(t *testing.T, store challenge.Store, id string) string {
	t.Helper()
	ch, found, err := store.Get(t.Context(), id)
	if err != nil {
		t.Fatalf("Get challenge: %v", err)
	}
	if !found {
		t.Fatalf("challenge %s not in store", id)
	}
	return ch.ExpectedAnswer
}

func TestStartVerification(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t, Config{})

	res, err := m.StartVerification(t.Context(), "alice")
	if err != nil {
		t.Fatalf("StartVerification error: %v", err)
	}

	if res.SessionID == "" {
		t.Error("expected non-empty session ID")
	}
	if res.Threshold != DefaultThreshold {
		t.Errorf("Threshold = %d, want %d", res.Threshold, DefaultThreshold)
	}
	if len(res.Challenges) != 2 {
		t.Fatalf("got %d starter challenges, want 2", len(res.Challenges))
	}
	if res.Challenges[0].Type != challenge.TypeCaptcha {
		t.Errorf("first starter = %s, want CAPTCHA", res.Challenges[0].Type)
	}
	if res.Challenges[1].Type != challenge.TypeMathPuzzle {
		t.Errorf("second starter = %s, want MATH_PUZZLE", res.Challenges[1].Type)
	}

	status, err := m.GetStatus(t.Context(), "alice")
	if err != nil {
		t.Fatalf("GetStatus error: %v", err)
	}
	if status.Status != StatusInProgress {
		t.Errorf("Status = %s, want IN_PROGRESS", status.Status)
	}
	if status.Score != 0 {
		t.Errorf("Score = %d, want 0", status.Score)
	}
}

func TestStartVerificationOverwritesSession(t *testing.T) {
	t.Parallel()

	m, store := newTestManager(t, Config{})

	first, err := m.StartVerification(t.Context(), "alice")
	if err != nil {
		t.Fatal(err)
	}

	// Earn some points in the first session.
	captcha := first.Challenges[0]
	answer := correctAnswer(t, store, captcha.ID)
	if _, err := m.SubmitChallenge(t.Context(), captcha.ID, TextResponse{Text: answer}, "alice"); err != nil {
		t.Fatalf("SubmitChallenge error: %v", err)
	}

	second, err := m.StartVerification(t.Context(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if second.SessionID == first.SessionID {
		t.Error("restart should mint a new session ID")
	}

	status, err := m.GetStatus(t.Context(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if status.Score != 0 {
		t.Errorf("Score after restart = %d, want 0", status.Score)
	}
}

func TestMonotonicScoringAndThreshold(t *testing.T) {
	t.Parallel()

	m, store := newTestManager(t, Config{})

	res, err := m.StartVerification(t.Context(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	captcha, math := res.Challenges[0], res.Challenges[1]

	// CAPTCHA is worth 30.
	sub, err := m.SubmitChallenge(t.Context(), captcha.ID,
		TextResponse{Text: correctAnswer(t, store, captcha.ID)}, "alice")
	if err != nil {
		t.Fatalf("SubmitChallenge error: %v", err)
	}
	if !sub.Correct || sub.Score != 30 || sub.Verified {
		t.Errorf("after CAPTCHA: correct=%v score=%d verified=%v, want true/30/false",
			sub.Correct, sub.Score, sub.Verified)
	}
	if sub.Remaining != 40 {
		t.Errorf("Remaining = %d, want 40", sub.Remaining)
	}

	// MATH_PUZZLE is worth 20: 50 total, still below the threshold.
	sub, err = m.SubmitChallenge(t.Context(), math.ID,
		TextResponse{Text: correctAnswer(t, store, math.ID)}, "alice")
	if err != nil {
		t.Fatalf("SubmitChallenge error: %v", err)
	}
	if sub.Score != 50 || sub.Verified {
		t.Errorf("after MATH_PUZZLE: score=%d verified=%v, want 50/false", sub.Score, sub.Verified)
	}

	// IMAGE_SELECT is worth 35: 85 total crosses 70.
	img, err := m.GetNextChallenge(t.Context(), "alice", challenge.TypeImageSelect)
	if err != nil {
		t.Fatalf("GetNextChallenge error: %v", err)
	}
	ids := splitAnswer(correctAnswer(t, store, img.ID))
	sub, err = m.SubmitChallenge(t.Context(), img.ID, SelectionResponse{SelectedIDs: ids}, "alice")
	if err != nil {
		t.Fatalf("SubmitChallenge error: %v", err)
	}
	if !sub.Verified || sub.Score != 85 || sub.Remaining != 0 {
		t.Errorf("after IMAGE_SELECT: score=%d verified=%v remaining=%d, want 85/true/0",
			sub.Score, sub.Verified, sub.Remaining)
	}

	status, err := m.GetStatus(t.Context(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if status.Status != StatusVerified || !status.Verified {
		t.Errorf("Status = %s verified=%v, want VERIFIED/true", status.Status, status.Verified)
	}
	if len(status.CompletedChallenges) != 3 {
		t.Errorf("history length = %d, want 3", len(status.CompletedChallenges))
	}
}

func TestThresholdBoundaryExactScore(t *testing.T) {
	t.Parallel()

	// Threshold 50: CAPTCHA(30) leaves the session one challenge short,
	// MATH_PUZZLE(20) lands exactly on the threshold.
	m, store := newTestManager(t, Config{Threshold: 50})

	res, err := m.StartVerification(t.Context(), "alice")
	if err != nil {
		t.Fatal(err)
	}

	sub, err := m.SubmitChallenge(t.Context(), res.Challenges[0].ID,
		TextResponse{Text: correctAnswer(t, store, res.Challenges[0].ID)}, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if sub.Verified {
		t.Errorf("score %d below threshold 50 must not verify", sub.Score)
	}

	sub, err = m.SubmitChallenge(t.Context(), res.Challenges[1].ID,
		TextResponse{Text: correctAnswer(t, store, res.Challenges[1].ID)}, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if !sub.Verified || sub.Score != 50 {
		t.Errorf("score = %d verified=%v, want exactly 50/true", sub.Score, sub.Verified)
	}
}

func TestSubmitNoDoubleSpend(t *testing.T) {
	t.Parallel()

	m, store := newTestManager(t, Config{})

	res, err := m.StartVerification(t.Context(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	captcha := res.Challenges[0]
	answer := correctAnswer(t, store, captcha.ID)

	if _, err := m.SubmitChallenge(t.Context(), captcha.ID, TextResponse{Text: answer}, "alice"); err != nil {
		t.Fatalf("first submission error: %v", err)
	}

	_, err = m.SubmitChallenge(t.Context(), captcha.ID, TextResponse{Text: answer}, "alice")
	if !errors.Is(err, ErrChallengeNotFound) {
		t.Errorf("second submission error = %v, want ErrChallengeNotFound", err)
	}
}

func TestSubmitIncorrectLeavesChallengeLive(t *testing.T) {
	t.Parallel()

	m, store := newTestManager(t, Config{})

	res, err := m.StartVerification(t.Context(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	captcha := res.Challenges[0]

	sub, err := m.SubmitChallenge(t.Context(), captcha.ID, TextResponse{Text: "wrong"}, "alice")
	if err != nil {
		t.Fatalf("SubmitChallenge error: %v", err)
	}
	if sub.Correct {
		t.Error("wrong answer reported correct")
	}
	if sub.Score != 0 {
		t.Errorf("Score = %d, want 0", sub.Score)
	}

	// The challenge survives and a correct retry succeeds.
	sub, err = m.SubmitChallenge(t.Context(), captcha.ID,
		TextResponse{Text: correctAnswer(t, store, captcha.ID)}, "alice")
	if err != nil {
		t.Fatalf("retry error: %v", err)
	}
	if !sub.Correct || sub.Score != 30 {
		t.Errorf("retry: correct=%v score=%d, want true/30", sub.Correct, sub.Score)
	}
}

func TestSubmitCaseInsensitiveTrimmed(t *testing.T) {
	t.Parallel()

	m, store := newTestManager(t, Config{})

	res, err := m.StartVerification(t.Context(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	captcha := res.Challenges[0]
	answer := "  " + lower(correctAnswer(t, store, captcha.ID)) + " "

	sub, err := m.SubmitChallenge(t.Context(), captcha.ID, TextResponse{Text: answer}, "alice")
	if err != nil {
		t.Fatalf("SubmitChallenge error: %v", err)
	}
	if !sub.Correct {
		t.Error("case-insensitive trimmed answer rejected")
	}
}

func TestSubmitOwnershipMismatch(t *testing.T) {
	t.Parallel()

	m, store := newTestManager(t, Config{})

	res, err := m.StartVerification(t.Context(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.StartVerification(t.Context(), "mallory"); err != nil {
		t.Fatal(err)
	}

	captcha := res.Challenges[0]
	answer := correctAnswer(t, store, captcha.ID)

	_, err = m.SubmitChallenge(t.Context(), captcha.ID, TextResponse{Text: answer}, "mallory")
	if !errors.Is(err, ErrOwnershipMismatch) {
		t.Errorf("error = %v, want ErrOwnershipMismatch", err)
	}

	// The challenge is untouched; the owner can still redeem it.
	sub, err := m.SubmitChallenge(t.Context(), captcha.ID, TextResponse{Text: answer}, "alice")
	if err != nil {
		t.Fatalf("owner submission error: %v", err)
	}
	if !sub.Correct {
		t.Error("owner submission rejected after mismatch attempt")
	}
}

func TestSubmitInvalidResponseShape(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t, Config{})

	res, err := m.StartVerification(t.Context(), "alice")
	if err != nil {
		t.Fatal(err)
	}

	_, err = m.SubmitChallenge(t.Context(), res.Challenges[0].ID,
		SelectionResponse{SelectedIDs: []string{"img_cat"}}, "alice")
	if !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("selection for CAPTCHA: error = %v, want ErrInvalidResponse", err)
	}

	_, err = m.SubmitChallenge(t.Context(), res.Challenges[0].ID, nil, "alice")
	if !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("nil response: error = %v, want ErrInvalidResponse", err)
	}
}

func TestSubmitExpiredThenNotFound(t *testing.T) {
	t.Parallel()

	m, store := newTestManager(t, Config{})

	if _, err := m.StartVerification(t.Context(), "alice"); err != nil {
		t.Fatal(err)
	}

	// Plant an already-expired challenge for alice.
	now := time.Now().UTC()
	expired := challenge.Challenge{
		ID:             "expired-challenge",
		Type:           challenge.TypeCaptcha,
		Prompt:         "Type the following code: XYZ999",
		ExpectedAnswer: "XYZ999",
		ScoreWeight:    30,
		IssuedAt:       now.Add(-10 * time.Minute),
		ExpiresAt:      now.Add(-5 * time.Minute),
		OwnerUserID:    "alice",
	}
	if err := store.Put(t.Context(), expired); err != nil {
		t.Fatal(err)
	}

	_, err := m.SubmitChallenge(t.Context(), expired.ID, TextResponse{Text: "XYZ999"}, "alice")
	if !errors.Is(err, ErrChallengeExpired) {
		t.Fatalf("error = %v, want ErrChallengeExpired", err)
	}

	// Expiry finality: the purged id now reads as missing.
	_, err = m.SubmitChallenge(t.Context(), expired.ID, TextResponse{Text: "XYZ999"}, "alice")
	if !errors.Is(err, ErrChallengeNotFound) {
		t.Errorf("repeat error = %v, want ErrChallengeNotFound", err)
	}
}

func TestGetNextChallenge(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t, Config{})

	if _, err := m.StartVerification(t.Context(), "alice"); err != nil {
		t.Fatal(err)
	}

	// Preferred type honored.
	ch, err := m.GetNextChallenge(t.Context(), "alice", challenge.TypeVoicePhrase)
	if err != nil {
		t.Fatalf("GetNextChallenge error: %v", err)
	}
	if ch.Type != challenge.TypeVoicePhrase {
		t.Errorf("Type = %s, want VOICE_PHRASE", ch.Type)
	}

	// Unknown preference falls back to CAPTCHA.
	ch, err = m.GetNextChallenge(t.Context(), "alice", challenge.Type("UNKNOWN"))
	if err != nil {
		t.Fatalf("GetNextChallenge error: %v", err)
	}
	if ch.Type != challenge.TypeCaptcha {
		t.Errorf("Type = %s, want CAPTCHA fallback", ch.Type)
	}
}

func TestGetNextChallengeAlreadyVerified(t *testing.T) {
	t.Parallel()

	m, store := newTestManager(t, Config{Threshold: 30})

	res, err := m.StartVerification(t.Context(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	sub, err := m.SubmitChallenge(t.Context(), res.Challenges[0].ID,
		TextResponse{Text: correctAnswer(t, store, res.Challenges[0].ID)}, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if !sub.Verified {
		t.Fatal("expected verified session at threshold 30")
	}

	_, err = m.GetNextChallenge(t.Context(), "alice", challenge.TypeCaptcha)
	if !errors.Is(err, ErrAlreadyVerified) {
		t.Errorf("error = %v, want ErrAlreadyVerified", err)
	}
}

func TestGetStatusWithoutSession(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t, Config{})

	status, err := m.GetStatus(t.Context(), "stranger")
	if err != nil {
		t.Fatalf("GetStatus error: %v", err)
	}
	if status.Status != StatusNotStarted || status.Verified || status.Score != 0 {
		t.Errorf("status = %+v, want NOT_STARTED/false/0", status)
	}
}

func TestRevokeResetsFully(t *testing.T) {
	t.Parallel()

	m, store := newTestManager(t, Config{Threshold: 30})

	res, err := m.StartVerification(t.Context(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.SubmitChallenge(t.Context(), res.Challenges[0].ID,
		TextResponse{Text: correctAnswer(t, store, res.Challenges[0].ID)}, "alice"); err != nil {
		t.Fatal(err)
	}

	rev, err := m.Revoke(t.Context(), "alice", "policy violation")
	if err != nil {
		t.Fatalf("Revoke error: %v", err)
	}
	if rev.Status != StatusRevoked || rev.Reason != "policy violation" {
		t.Errorf("revoke result = %+v", rev)
	}

	status, err := m.GetStatus(t.Context(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if status.Verified || status.Score != 0 || status.Status != StatusRevoked {
		t.Errorf("after revoke: %+v, want unverified/0/REVOKED", status)
	}
	if len(status.CompletedChallenges) != 0 {
		t.Errorf("history length = %d after revoke, want 0", len(status.CompletedChallenges))
	}

	// REVOKED is not terminal: a fresh start begins at score 0, IN_PROGRESS.
	if _, err := m.StartVerification(t.Context(), "alice"); err != nil {
		t.Fatal(err)
	}
	status, err = m.GetStatus(t.Context(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if status.Status != StatusInProgress || status.Score != 0 {
		t.Errorf("after restart: %+v, want IN_PROGRESS/0", status)
	}
}

func TestRevokeWithoutSession(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t, Config{})

	_, err := m.Revoke(t.Context(), "stranger", "no reason")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("error = %v, want ErrSessionNotFound", err)
	}
}

func TestBiometricVerifierVerdicts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		verifier    *fakeBiometric
		sample      string
		wantCorrect bool
		wantErr     bool
	}{
		{"accepted", &fakeBiometric{verdict: true}, "sample-ref-1", true, false},
		{"rejected", &fakeBiometric{verdict: false}, "sample-ref-1", false, false},
		{"verifier error", &fakeBiometric{err: errors.New("service down")}, "sample-ref-1", false, true},
		{"empty sample never calls verifier", &fakeBiometric{verdict: true}, "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := challenge.NewMemoryStore(100)
			gen := challenge.NewGenerator(store)
			m := NewManager(NewMemorySessionStore(), store, gen, Config{Biometric: tt.verifier})

			if _, err := m.StartVerification(t.Context(), "alice"); err != nil {
				t.Fatal(err)
			}
			ch, err := m.GetNextChallenge(t.Context(), "alice", challenge.TypeVoicePhrase)
			if err != nil {
				t.Fatal(err)
			}

			sub, err := m.SubmitChallenge(t.Context(), ch.ID, TextResponse{Text: tt.sample}, "alice")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error from failing verifier")
				}
				return
			}
			if err != nil {
				t.Fatalf("SubmitChallenge error: %v", err)
			}
			if sub.Correct != tt.wantCorrect {
				t.Errorf("Correct = %v, want %v", sub.Correct, tt.wantCorrect)
			}
			if tt.sample == "" && tt.verifier.calls != 0 {
				t.Errorf("verifier called %d times for empty sample, want 0", tt.verifier.calls)
			}
		})
	}
}

func TestBiometricPlaceholderWithoutVerifier(t *testing.T) {
	t.Parallel()

	m, _ := newTestManager(t, Config{})

	if _, err := m.StartVerification(t.Context(), "alice"); err != nil {
		t.Fatal(err)
	}
	ch, err := m.GetNextChallenge(t.Context(), "alice", challenge.TypeLiveSelfie)
	if err != nil {
		t.Fatal(err)
	}

	sub, err := m.SubmitChallenge(t.Context(), ch.ID, TextResponse{Text: "selfie-blob-ref"}, "alice")
	if err != nil {
		t.Fatalf("SubmitChallenge error: %v", err)
	}
	if !sub.Correct || sub.Score != 85 {
		t.Errorf("correct=%v score=%d, want true/85", sub.Correct, sub.Score)
	}
}

// splitAnswer splits a sorted comma-joined id list.
func splitAnswer(s string) []string {
	var ids []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				ids = append(ids, s[start:i])
			}
			start = i + 1
		}
	}
	return ids
}

// lower lowercases ASCII letters.
func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return string(b)
}
