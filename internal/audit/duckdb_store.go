// TrustGate - Proof-of-Humanity Verification & Bot Detection Engine
// Copyright 2026 Trollz1004
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Trollz1004/trustgate

package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Trollz1004/trustgate/internal/logging"
)

// DuckDBStore implements Store using DuckDB for persistent storage.
// This provides a durable audit trail suitable for production use.
type DuckDBStore struct {
	db *sql.DB
}

// NewDuckDBStore creates a new DuckDB-backed audit store.
// Call CreateTable during initialization to ensure the schema exists.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

// CreateTable creates the audit_events table if it doesn't exist.
func (s *DuckDBStore) CreateTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS audit_events (
			id TEXT PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,
			type TEXT NOT NULL,
			severity TEXT NOT NULL,
			outcome TEXT NOT NULL,
			user_id TEXT NOT NULL,
			session_id TEXT,
			challenge_id TEXT,
			challenge_type TEXT,
			action TEXT NOT NULL,
			description TEXT NOT NULL,
			metadata JSON,
			request_id TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_events(timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_audit_type ON audit_events(type);
		CREATE INDEX IF NOT EXISTS idx_audit_user_id ON audit_events(user_id);
		CREATE INDEX IF NOT EXISTS idx_audit_session_id ON audit_events(session_id);
		CREATE INDEX IF NOT EXISTS idx_audit_challenge_id ON audit_events(challenge_id);
	`

	statements := strings.Split(query, ";")
	for _, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	logging.Info().Msg("Audit events table created/verified")
	return nil
}

// Save persists an audit event.
func (s *DuckDBStore) Save(ctx context.Context, event *Event) error {
	query := `
		INSERT INTO audit_events (
			id, timestamp, type, severity, outcome,
			user_id, session_id, challenge_id, challenge_type,
			action, description, metadata, request_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var metadata interface{}
	if len(event.Metadata) > 0 {
		metadata = string(event.Metadata)
	}

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.Timestamp,
		string(event.Type),
		string(event.Severity),
		string(event.Outcome),
		event.UserID,
		nullable(event.SessionID),
		nullable(event.ChallengeID),
		nullable(event.ChallengeType),
		event.Action,
		event.Description,
		metadata,
		nullable(event.RequestID),
	)
	if err != nil {
		return fmt.Errorf("failed to save audit event: %w", err)
	}
	return nil
}

// Query retrieves events matching the filter.
func (s *DuckDBStore) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	where, args := buildWhere(filter)

	order := "ASC"
	if filter.OrderDesc {
		order = "DESC"
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := fmt.Sprintf(`
		SELECT id, timestamp, type, severity, outcome,
		       user_id, session_id, challenge_id, challenge_type,
		       action, description, metadata, request_id
		FROM audit_events
		%s
		ORDER BY timestamp %s
		LIMIT ? OFFSET ?
	`, where, order)
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit events: %w", err)
	}

	return events, nil
}

// Count returns the number of events matching the filter.
func (s *DuckDBStore) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	where, args := buildWhere(filter)

	var count int64
	query := "SELECT COUNT(*) FROM audit_events " + where
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count audit events: %w", err)
	}
	return count, nil
}

// Delete removes events older than the cutoff.
func (s *DuckDBStore) Delete(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM audit_events WHERE timestamp < ?", olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to delete audit events: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		// DuckDB reports rows affected; treat absence as zero.
		return 0, nil //nolint:nilerr
	}
	return affected, nil
}

// buildWhere assembles the WHERE clause for a filter.
func buildWhere(filter QueryFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if len(filter.Types) > 0 {
		placeholders := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		conditions = append(conditions, fmt.Sprintf("type IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.SessionID != "" {
		conditions = append(conditions, "session_id = ?")
		args = append(args, filter.SessionID)
	}
	if filter.ChallengeID != "" {
		conditions = append(conditions, "challenge_id = ?")
		args = append(args, filter.ChallengeID)
	}
	if filter.StartTime != nil {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, *filter.StartTime)
	}
	if filter.EndTime != nil {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, *filter.EndTime)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// scanEvent reads one row into an Event.
func scanEvent(rows *sql.Rows) (Event, error) {
	var (
		event         Event
		sessionID     sql.NullString
		challengeID   sql.NullString
		challengeType sql.NullString
		metadata      sql.NullString
		requestID     sql.NullString
	)

	err := rows.Scan(
		&event.ID,
		&event.Timestamp,
		&event.Type,
		&event.Severity,
		&event.Outcome,
		&event.UserID,
		&sessionID,
		&challengeID,
		&challengeType,
		&event.Action,
		&event.Description,
		&metadata,
		&requestID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Event{}, err
		}
		return Event{}, fmt.Errorf("failed to scan audit event: %w", err)
	}

	event.SessionID = sessionID.String
	event.ChallengeID = challengeID.String
	event.ChallengeType = challengeType.String
	event.RequestID = requestID.String
	if metadata.Valid {
		event.Metadata = []byte(metadata.String)
	}

	return event, nil
}

// nullable maps empty strings to NULL.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
