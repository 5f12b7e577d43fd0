// TrustGate - Proof-of-Humanity Verification & Bot Detection Engine
// Copyright 2026 Trollz1004
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Trollz1004/trustgate

package audit

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/Trollz1004/trustgate/internal/logging"
	"github.com/Trollz1004/trustgate/internal/metrics"
)

// Config holds configuration for the audit logger.
type Config struct {
	// Enabled controls whether audit logging is active.
	Enabled bool `json:"enabled"`

	// RetentionDays is how long to keep audit events.
	RetentionDays int `json:"retention_days"`

	// CleanupInterval is how often to run retention cleanup.
	CleanupInterval time.Duration `json:"cleanup_interval"`

	// BufferSize is the size of the async write buffer.
	BufferSize int `json:"buffer_size"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		RetentionDays:   90,
		CleanupInterval: 24 * time.Hour,
		BufferSize:      1000,
	}
}

// Logger is the audit logging service. Events are buffered and written to
// the store by a background goroutine so the verification hot path never
// blocks on audit persistence.
type Logger struct {
	config    *Config
	store     Store
	eventChan chan *Event
	mu        sync.RWMutex
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewLogger creates a new audit logger.
func NewLogger(store Store, config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}

	l := &Logger{
		config:    config,
		store:     store,
		eventChan: make(chan *Event, config.BufferSize),
		stopChan:  make(chan struct{}),
	}

	l.wg.Add(1)
	go l.asyncWriter()

	return l
}

// asyncWriter processes events from the buffer.
func (l *Logger) asyncWriter() {
	defer l.wg.Done()

	for {
		select {
		case <-l.stopChan:
			// Drain remaining events
			for {
				select {
				case event := <-l.eventChan:
					l.writeEvent(event)
				default:
					return
				}
			}
		case event := <-l.eventChan:
			l.writeEvent(event)
		}
	}
}

// writeEvent persists an event to the store.
func (l *Logger) writeEvent(event *Event) {
	if l.store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := l.store.Save(ctx, event); err != nil {
		logging.Error().Err(err).Str("event_id", event.ID).Msg("Failed to save audit event")
	}
}

// Log records an audit event. If the buffer is full the event is dropped
// and counted rather than blocking the caller.
func (l *Logger) Log(event *Event) {
	if !l.Enabled() {
		return
	}

	if event.ID == "" {
		event.ID = generateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	select {
	case l.eventChan <- event:
		metrics.AuditEventsLogged.WithLabelValues(string(event.Type)).Inc()
	default:
		metrics.AuditEventsDropped.Inc()
		logging.Warn().Str("event_id", event.ID).Msg("Audit event buffer full, dropping event")
	}
}

// Close shuts down the logger gracefully, draining buffered events.
func (l *Logger) Close() error {
	close(l.stopChan)
	l.wg.Wait()
	return nil
}

// StartCleanupRoutine starts the retention cleanup routine.
func (l *Logger) StartCleanupRoutine(ctx context.Context) {
	l.mu.RLock()
	interval := l.config.CleanupInterval
	retention := l.config.RetentionDays
	l.mu.RUnlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().AddDate(0, 0, -retention)
				count, err := l.store.Delete(ctx, cutoff)
				if err != nil {
					logging.Error().Err(err).Msg("Audit cleanup error")
				} else if count > 0 {
					logging.Info().Int64("count", count).Msg("Cleaned up old audit events")
				}
			}
		}
	}()
}

// Query retrieves events matching the filter.
func (l *Logger) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	return l.store.Query(ctx, filter)
}

// Count returns the number of events matching the filter.
func (l *Logger) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	return l.store.Count(ctx, filter)
}

// SetEnabled enables or disables audit logging.
func (l *Logger) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.config.Enabled = enabled
}

// Enabled returns whether audit logging is enabled.
func (l *Logger) Enabled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config.Enabled
}

// generateEventID generates a unique event ID.
func generateEventID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return time.Now().Format("20060102150405.000000000")
	}
	return hex.EncodeToString(b)
}

// Helper methods for the verification engine's event vocabulary

// LogSessionStarted records a new verification session.
func (l *Logger) LogSessionStarted(ctx context.Context, userID, sessionID string, threshold int) {
	l.Log(&Event{
		Type:        EventTypeSessionStarted,
		Severity:    SeverityInfo,
		Outcome:     OutcomeSuccess,
		UserID:      userID,
		SessionID:   sessionID,
		Action:      "start_verification",
		Description: "Verification session started",
		Metadata:    mustJSON(map[string]int{"threshold": threshold}),
		RequestID:   logging.RequestIDFromContext(ctx),
	})
}

// LogChallengeIssued records a newly issued challenge.
func (l *Logger) LogChallengeIssued(ctx context.Context, userID, challengeID, challengeType string) {
	l.Log(&Event{
		Type:          EventTypeChallengeIssued,
		Severity:      SeverityInfo,
		Outcome:       OutcomeSuccess,
		UserID:        userID,
		ChallengeID:   challengeID,
		ChallengeType: challengeType,
		Action:        "issue_challenge",
		Description:   "Challenge issued",
		RequestID:     logging.RequestIDFromContext(ctx),
	})
}

// LogChallengeConsumed records a correctly answered, consumed challenge.
func (l *Logger) LogChallengeConsumed(ctx context.Context, userID, challengeID, challengeType string, score int) {
	l.Log(&Event{
		Type:          EventTypeChallengeConsumed,
		Severity:      SeverityInfo,
		Outcome:       OutcomeSuccess,
		UserID:        userID,
		ChallengeID:   challengeID,
		ChallengeType: challengeType,
		Action:        "submit_challenge",
		Description:   "Challenge answered correctly and consumed",
		Metadata:      mustJSON(map[string]int{"score": score}),
		RequestID:     logging.RequestIDFromContext(ctx),
	})
}

// LogChallengeFailed records an incorrect submission. The challenge stays
// live until its TTL, so this is informational only.
func (l *Logger) LogChallengeFailed(ctx context.Context, userID, challengeID, challengeType string) {
	l.Log(&Event{
		Type:          EventTypeChallengeFailed,
		Severity:      SeverityInfo,
		Outcome:       OutcomeFailure,
		UserID:        userID,
		ChallengeID:   challengeID,
		ChallengeType: challengeType,
		Action:        "submit_challenge",
		Description:   "Challenge answered incorrectly",
		RequestID:     logging.RequestIDFromContext(ctx),
	})
}

// LogChallengeExpired records a lazy expiry purge at submission time.
func (l *Logger) LogChallengeExpired(ctx context.Context, userID, challengeID, challengeType string) {
	l.Log(&Event{
		Type:          EventTypeChallengeExpired,
		Severity:      SeverityInfo,
		Outcome:       OutcomeFailure,
		UserID:        userID,
		ChallengeID:   challengeID,
		ChallengeType: challengeType,
		Action:        "submit_challenge",
		Description:   "Challenge expired and was purged",
		RequestID:     logging.RequestIDFromContext(ctx),
	})
}

// LogVerified records a session crossing the verification threshold.
func (l *Logger) LogVerified(ctx context.Context, userID, sessionID string, score int) {
	l.Log(&Event{
		Type:        EventTypeVerified,
		Severity:    SeverityInfo,
		Outcome:     OutcomeSuccess,
		UserID:      userID,
		SessionID:   sessionID,
		Action:      "verify",
		Description: "User reached the verification threshold",
		Metadata:    mustJSON(map[string]int{"score": score}),
		RequestID:   logging.RequestIDFromContext(ctx),
	})
}

// LogRevoked records an administrative revocation.
func (l *Logger) LogRevoked(ctx context.Context, userID, sessionID, reason string) {
	l.Log(&Event{
		Type:        EventTypeRevoked,
		Severity:    SeverityWarning,
		Outcome:     OutcomeSuccess,
		UserID:      userID,
		SessionID:   sessionID,
		Action:      "revoke_verification",
		Description: "Verified status revoked: " + reason,
		Metadata:    mustJSON(map[string]string{"reason": reason}),
		RequestID:   logging.RequestIDFromContext(ctx),
	})
}

// LogContentFlagged records a high-scoring content trust assessment.
func (l *Logger) LogContentFlagged(ctx context.Context, userID string, score int, classification string, flags []string) {
	l.Log(&Event{
		Type:        EventTypeContentFlagged,
		Severity:    SeverityWarning,
		Outcome:     OutcomeSuccess,
		UserID:      userID,
		Action:      "score_text",
		Description: "Content classified as " + classification,
		Metadata: mustJSON(map[string]interface{}{
			"score":          score,
			"classification": classification,
			"flags":          flags,
		}),
		RequestID: logging.RequestIDFromContext(ctx),
	})
}

// LogBehaviorFlagged records a behavioral anomaly assessment above NORMAL.
func (l *Logger) LogBehaviorFlagged(ctx context.Context, userID string, score int, recommendation string, flags []string) {
	l.Log(&Event{
		Type:        EventTypeBehaviorFlagged,
		Severity:    SeverityWarning,
		Outcome:     OutcomeSuccess,
		UserID:      userID,
		Action:      "assess_behavior",
		Description: "Behavior assessment recommends " + recommendation,
		Metadata: mustJSON(map[string]interface{}{
			"suspicion_score": score,
			"recommendation":  recommendation,
			"flags":           flags,
		}),
		RequestID: logging.RequestIDFromContext(ctx),
	})
}

// mustJSON marshals v, returning nil on failure.
func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
