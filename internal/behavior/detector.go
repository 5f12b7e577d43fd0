// TrustGate - Proof-of-Humanity Verification & Bot Detection Engine
// Copyright 2026 Trollz1004
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Trollz1004/trustgate

// Package behavior assesses account telemetry for automation signals. The
// four signals are deliberately non-weighted and non-interacting: each one
// either fires its fixed point value or contributes nothing, so every flag
// in an assessment remains independently explainable to a human reviewer.
package behavior

import (
	"fmt"

	"github.com/Trollz1004/trustgate/internal/metrics"
)

// Recommendation values for a behavior assessment.
const (
	RecommendNormal                = "NORMAL"
	RecommendMonitor               = "MONITOR"
	RecommendRequireReverification = "REQUIRE_REVERIFICATION"
	RecommendSuspendPendingReview  = "SUSPEND_PENDING_REVIEW"
)

// Signal thresholds and their fixed point contributions.
const (
	fastResponseThresholdMS = 500
	fastResponsePoints      = 30

	alwaysOnHoursThreshold = 20
	alwaysOnPoints         = 25

	repeatActionThreshold = 50
	repeatActionPoints    = 20

	messageRateThreshold = 60
	messageRatePoints    = 25
)

// Telemetry is an account's observed activity profile over the assessment
// window.
type Telemetry struct {
	// AvgResponseTimeMS is the mean delay between receiving a message and
	// replying, in milliseconds.
	AvgResponseTimeMS float64 `json:"avg_response_time_ms"`

	// ActiveHours is the number of distinct hours (0-24) with activity.
	ActiveHours int `json:"active_hours"`

	// RepeatActions counts identical actions repeated in the window.
	RepeatActions int `json:"repeat_actions"`

	// MessagesPerHour is the peak sustained outbound message rate.
	MessagesPerHour float64 `json:"messages_per_hour"`
}

// Assessment is the result of a behavioral anomaly check.
type Assessment struct {
	SuspicionScore int      `json:"suspicion_score"`
	Recommendation string   `json:"recommendation"`
	Flags          []string `json:"flags"`
}

// Assess scores telemetry against the four automation signals. The sum is
// clamped to [0,100].
func Assess(t Telemetry) Assessment {
	score := 0
	var flags []string

	if t.AvgResponseTimeMS > 0 && t.AvgResponseTimeMS < fastResponseThresholdMS {
		score += fastResponsePoints
		flags = append(flags, fmt.Sprintf("inhuman_response_time: avg %.0fms < %dms (+%d)",
			t.AvgResponseTimeMS, fastResponseThresholdMS, fastResponsePoints))
	}

	if t.ActiveHours >= alwaysOnHoursThreshold {
		score += alwaysOnPoints
		flags = append(flags, fmt.Sprintf("always_on: active %d of 24 hours (+%d)",
			t.ActiveHours, alwaysOnPoints))
	}

	if t.RepeatActions > repeatActionThreshold {
		score += repeatActionPoints
		flags = append(flags, fmt.Sprintf("repetitive_actions: %d > %d (+%d)",
			t.RepeatActions, repeatActionThreshold, repeatActionPoints))
	}

	if t.MessagesPerHour > messageRateThreshold {
		score += messageRatePoints
		flags = append(flags, fmt.Sprintf("message_flood: %.0f/hour > %d/hour (+%d)",
			t.MessagesPerHour, messageRateThreshold, messageRatePoints))
	}

	if score > 100 {
		score = 100
	}

	recommendation := recommend(score)
	metrics.BehaviorAssessments.WithLabelValues(recommendation).Inc()

	return Assessment{
		SuspicionScore: score,
		Recommendation: recommendation,
		Flags:          flags,
	}
}

func recommend(score int) string {
	switch {
	case score >= 70:
		return RecommendSuspendPendingReview
	case score >= 50:
		return RecommendRequireReverification
	case score >= 30:
		return RecommendMonitor
	default:
		return RecommendNormal
	}
}
