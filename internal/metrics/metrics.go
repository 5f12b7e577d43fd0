// TrustGate - Proof-of-Humanity Verification & Bot Detection Engine
// Copyright 2026 Trollz1004
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Trollz1004/trustgate

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus Metrics Integration for Production Observability
// This package provides instrumentation for:
// - Challenge issuance and submission outcomes
// - Verification session lifecycle
// - Content trust scorer and behavioral detector invocations
// - Store sizes and audit pipeline health
// - API endpoint latency and throughput

var (
	// Challenge Metrics
	ChallengesIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "challenges_issued_total",
			Help: "Total number of challenges issued",
		},
		[]string{"type"},
	)

	ChallengeSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "challenge_submissions_total",
			Help: "Total number of challenge submissions",
		},
		[]string{"type", "result"}, // "correct", "incorrect", "expired", "not_found", "ownership_mismatch"
	)

	ChallengesExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "challenges_expired_total",
			Help: "Total number of challenges reclaimed after TTL expiry",
		},
	)

	ChallengesEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "challenges_evicted_total",
			Help: "Total number of abandoned challenges evicted by the bounded store",
		},
	)

	PendingChallenges = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "challenges_pending",
			Help: "Current number of live challenges awaiting a response",
		},
	)

	// Verification Session Metrics
	SessionsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "verification_sessions_started_total",
			Help: "Total number of verification sessions started",
		},
	)

	SessionsVerified = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "verification_sessions_verified_total",
			Help: "Total number of sessions that reached the verification threshold",
		},
	)

	SessionsRevoked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "verification_sessions_revoked_total",
			Help: "Total number of verified sessions revoked",
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "verification_sessions_active",
			Help: "Current number of in-progress verification sessions",
		},
	)

	// Content Trust Scorer Metrics
	TrustScoresComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trust_scores_computed_total",
			Help: "Total number of content trust score computations",
		},
		[]string{"classification"}, // "HUMAN", "LOW_AI", "POSSIBLE_AI", "HIGH_AI"
	)

	TrustScoreDistribution = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trust_score",
			Help:    "Distribution of computed content trust scores",
			Buckets: []float64{10, 25, 40, 50, 60, 70, 80, 90, 100},
		},
	)

	// Behavioral Detector Metrics
	BehaviorAssessments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "behavior_assessments_total",
			Help: "Total number of behavioral anomaly assessments",
		},
		[]string{"recommendation"}, // "NORMAL", "MONITOR", "REQUIRE_REVERIFICATION", "SUSPEND_PENDING_REVIEW"
	)

	// Biometric Verifier Metrics
	BiometricCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "biometric_verifier_calls_total",
			Help: "Total number of external biometric verifier calls",
		},
		[]string{"result"}, // "accepted", "rejected", "error", "breaker_open", "rate_limited"
	)

	BiometricCallDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "biometric_verifier_call_duration_seconds",
			Help:    "Duration of external biometric verifier calls",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Audit Pipeline Metrics
	AuditEventsLogged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_events_logged_total",
			Help: "Total number of audit events written",
		},
		[]string{"event_type"},
	)

	AuditEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_events_dropped_total",
			Help: "Total number of audit events dropped due to a full buffer",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Store Metrics
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Duration of challenge/session store operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"store", "operation"},
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_errors_total",
			Help: "Total number of store operation errors",
		},
		[]string{"store", "operation"},
	)
)

// RecordAPIRequest records metrics for a completed API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordStoreOperation records metrics for a store operation.
func RecordStoreOperation(store, operation string, duration time.Duration, err error) {
	StoreOperationDuration.WithLabelValues(store, operation).Observe(duration.Seconds())
	if err != nil {
		StoreErrors.WithLabelValues(store, operation).Inc()
	}
}

// RecordTrustScore records a content trust score computation.
func RecordTrustScore(classification string, score int) {
	TrustScoresComputed.WithLabelValues(classification).Inc()
	TrustScoreDistribution.Observe(float64(score))
}

// TrackActiveRequest increments or decrements the active request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
