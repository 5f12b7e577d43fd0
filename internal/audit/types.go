// TrustGate - Proof-of-Humanity Verification & Bot Detection Engine
// Copyright 2026 Trollz1004
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Trollz1004/trustgate

// Package audit provides an audit trail for the verification engine.
// It records session and challenge lifecycle events for compliance and
// forensic analysis.
package audit

import (
	"context"
	"time"

	"github.com/goccy/go-json"
)

// EventType categorizes audit events.
type EventType string

const (
	// Verification session events
	EventTypeSessionStarted EventType = "verification.session_started"
	EventTypeVerified       EventType = "verification.verified"
	EventTypeRevoked        EventType = "verification.revoked"

	// Challenge lifecycle events
	EventTypeChallengeIssued   EventType = "challenge.issued"
	EventTypeChallengeConsumed EventType = "challenge.consumed"
	EventTypeChallengeFailed   EventType = "challenge.failed"
	EventTypeChallengeExpired  EventType = "challenge.expired"

	// Moderation signal events
	EventTypeContentFlagged  EventType = "moderation.content_flagged"
	EventTypeBehaviorFlagged EventType = "moderation.behavior_flagged"
)

// Severity indicates the severity level of an audit event.
type Severity string

const (
	SeverityDebug    Severity = "debug"
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Outcome indicates whether an action succeeded or failed.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Event represents a single audit trail entry.
type Event struct {
	// ID is a unique identifier for this event.
	ID string `json:"id"`

	// Timestamp when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type categorizes the event.
	Type EventType `json:"type"`

	// Severity of the event.
	Severity Severity `json:"severity"`

	// Outcome indicates success or failure.
	Outcome Outcome `json:"outcome"`

	// UserID is the subject of the event.
	UserID string `json:"user_id"`

	// SessionID of the verification session, if any.
	SessionID string `json:"session_id,omitempty"`

	// ChallengeID of the affected challenge, if any.
	ChallengeID string `json:"challenge_id,omitempty"`

	// ChallengeType of the affected challenge, if any.
	ChallengeType string `json:"challenge_type,omitempty"`

	// Action describes what was done.
	Action string `json:"action"`

	// Description provides human-readable details.
	Description string `json:"description"`

	// Metadata contains event-specific details.
	Metadata json.RawMessage `json:"metadata,omitempty"`

	// RequestID from the originating HTTP request.
	RequestID string `json:"request_id,omitempty"`
}

// Store defines the interface for audit event persistence.
type Store interface {
	// Save persists an audit event.
	Save(ctx context.Context, event *Event) error

	// Query retrieves events matching the filter.
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)

	// Count returns the number of events matching the filter.
	Count(ctx context.Context, filter QueryFilter) (int64, error)

	// Delete removes events older than the retention period.
	Delete(ctx context.Context, olderThan time.Time) (int64, error)
}

// QueryFilter defines filtering options for audit queries.
type QueryFilter struct {
	// Types filters by event types.
	Types []EventType `json:"types,omitempty"`

	// UserID filters by the subject user.
	UserID string `json:"user_id,omitempty"`

	// SessionID filters by verification session.
	SessionID string `json:"session_id,omitempty"`

	// ChallengeID filters by challenge.
	ChallengeID string `json:"challenge_id,omitempty"`

	// StartTime is the beginning of the time range.
	StartTime *time.Time `json:"start_time,omitempty"`

	// EndTime is the end of the time range.
	EndTime *time.Time `json:"end_time,omitempty"`

	// Limit is the maximum number of results.
	Limit int `json:"limit,omitempty"`

	// Offset for pagination.
	Offset int `json:"offset,omitempty"`

	// OrderDesc sorts newest first.
	OrderDesc bool `json:"order_desc,omitempty"`
}

// DefaultQueryFilter returns a sensible default filter.
func DefaultQueryFilter() QueryFilter {
	return QueryFilter{
		Limit:     100,
		OrderDesc: true,
	}
}
