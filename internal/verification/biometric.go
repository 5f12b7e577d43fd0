// TrustGate - Proof-of-Humanity Verification & Bot Detection Engine
// Copyright 2026 Trollz1004
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Trollz1004/trustgate

package verification

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/Trollz1004/trustgate/internal/challenge"
	"github.com/Trollz1004/trustgate/internal/logging"
	"github.com/Trollz1004/trustgate/internal/metrics"
)

// BiometricVerifier decides whether a raw voice/video/selfie sample matches
// a challenge's expected predicate. The engine consumes only the boolean
// verdict; all media analysis happens in the external service.
type BiometricVerifier interface {
	Verify(ctx context.Context, ch challenge.Challenge, sampleRef string) (bool, error)
}

// BiometricClientConfig holds settings for the HTTP biometric verifier client.
type BiometricClientConfig struct {
	// URL is the verifier endpoint.
	URL string

	// APIKey authenticates this service to the verifier.
	APIKey string

	// Timeout bounds a single verification call.
	Timeout time.Duration

	// RateLimit is the sustained calls-per-second budget; RateBurst the
	// burst allowance. Zero disables client-side rate limiting.
	RateLimit float64
	RateBurst int

	// MaxFailures is the consecutive-failure count that opens the breaker.
	MaxFailures uint32

	// BreakerOpen is how long the breaker stays open before probing.
	BreakerOpen time.Duration
}

// DefaultBiometricClientConfig returns sensible defaults.
func DefaultBiometricClientConfig() BiometricClientConfig {
	return BiometricClientConfig{
		Timeout:     10 * time.Second,
		RateLimit:   5,
		RateBurst:   10,
		MaxFailures: 5,
		BreakerOpen: 30 * time.Second,
	}
}

// BiometricClient is an HTTP client for the external biometric verifier,
// protected by a circuit breaker and a client-side rate limiter so a slow
// or failing verifier cannot take the submission path down with it.
type BiometricClient struct {
	cfg     BiometricClientConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[bool]
	limiter *rate.Limiter
}

// NewBiometricClient creates a biometric verifier client.
func NewBiometricClient(cfg BiometricClientConfig) *BiometricClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.BreakerOpen <= 0 {
		cfg.BreakerOpen = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:    "biometric-verifier",
		Timeout: cfg.BreakerOpen,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Biometric verifier breaker state changed")
		},
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &BiometricClient{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: gobreaker.NewCircuitBreaker[bool](settings),
		limiter: limiter,
	}
}

// verifyRequest is the wire request to the external verifier.
type verifyRequest struct {
	ChallengeType string `json:"challenge_type"`
	Predicate     string `json:"predicate"`
	SampleRef     string `json:"sample_ref"`
}

// verifyResponse is the wire response from the external verifier.
type verifyResponse struct {
	Matches bool `json:"matches"`
}

// Verify submits the sample reference and expected predicate to the external
// verifier and returns its boolean verdict.
func (c *BiometricClient) Verify(ctx context.Context, ch challenge.Challenge, sampleRef string) (bool, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			metrics.BiometricCalls.WithLabelValues("rate_limited").Inc()
			return false, fmt.Errorf("biometric rate limit: %w", err)
		}
	}

	start := time.Now()
	matches, err := c.breaker.Execute(func() (bool, error) {
		return c.call(ctx, ch, sampleRef)
	})
	metrics.BiometricCallDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil && matches:
		metrics.BiometricCalls.WithLabelValues("accepted").Inc()
	case err == nil:
		metrics.BiometricCalls.WithLabelValues("rejected").Inc()
	case c.breaker.State() == gobreaker.StateOpen:
		metrics.BiometricCalls.WithLabelValues("breaker_open").Inc()
	default:
		metrics.BiometricCalls.WithLabelValues("error").Inc()
	}

	return matches, err
}

// call performs one HTTP round trip to the verifier.
func (c *BiometricClient) call(ctx context.Context, ch challenge.Challenge, sampleRef string) (bool, error) {
	body, err := json.Marshal(verifyRequest{
		ChallengeType: string(ch.Type),
		Predicate:     ch.ExpectedAnswer,
		SampleRef:     sampleRef,
	})
	if err != nil {
		return false, fmt.Errorf("marshal verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL+"/v1/verify", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("biometric verifier call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("biometric verifier returned status %d", resp.StatusCode)
	}

	var result verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("decode verify response: %w", err)
	}

	return result.Matches, nil
}
