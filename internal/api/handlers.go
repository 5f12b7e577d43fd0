// TrustGate - Proof-of-Humanity Verification & Bot Detection Engine
// Copyright 2026 Trollz1004
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Trollz1004/trustgate

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Trollz1004/trustgate/internal/audit"
	"github.com/Trollz1004/trustgate/internal/behavior"
	"github.com/Trollz1004/trustgate/internal/challenge"
	"github.com/Trollz1004/trustgate/internal/logging"
	"github.com/Trollz1004/trustgate/internal/trust"
	"github.com/Trollz1004/trustgate/internal/verification"
)

// Handlers holds the HTTP handlers for all public operations.
type Handlers struct {
	manager   *verification.Manager
	generator *challenge.Generator
	auditor   *audit.Logger
	startTime time.Time
	version   string
}

// NewHandlers creates the handler set. auditor may be nil when auditing is
// disabled.
func NewHandlers(manager *verification.Manager, generator *challenge.Generator, auditor *audit.Logger, version string) *Handlers {
	return &Handlers{
		manager:   manager,
		generator: generator,
		auditor:   auditor,
		startTime: time.Now(),
		version:   version,
	}
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"status":         "healthy",
		"version":        h.version,
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
	})
}

// IssueChallenge handles POST /api/v1/challenges.
// Issues a standalone challenge of the requested type; unknown types fall
// back to CAPTCHA.
func (h *Handlers) IssueChallenge(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req issueChallengeRequest
	if err := decodeJSON(r, &req); err != nil {
		rw.ValidationError("Invalid request", err.Error())
		return
	}

	ch, err := h.generator.Issue(r.Context(), challenge.Normalize(challenge.Type(req.Type)), req.UserID)
	if err != nil {
		logging.Error().Err(err).Str("user_id", req.UserID).Msg("Challenge issue failed")
		rw.InternalError("Failed to issue challenge")
		return
	}

	if h.auditor != nil {
		h.auditor.LogChallengeIssued(r.Context(), req.UserID, ch.ID, string(ch.Type))
	}
	rw.Created(ch)
}

// StartVerification handles POST /api/v1/verification/start.
func (h *Handlers) StartVerification(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req startVerificationRequest
	if err := decodeJSON(r, &req); err != nil {
		rw.ValidationError("Invalid request", err.Error())
		return
	}

	result, err := h.manager.StartVerification(r.Context(), req.UserID)
	if err != nil {
		logging.Error().Err(err).Str("user_id", req.UserID).Msg("Start verification failed")
		rw.InternalError("Failed to start verification")
		return
	}

	rw.Created(result)
}

// SubmitChallenge handles POST /api/v1/verification/submit.
func (h *Handlers) SubmitChallenge(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req submitChallengeRequest
	if err := decodeJSON(r, &req); err != nil {
		rw.ValidationError("Invalid request", err.Error())
		return
	}

	resp, err := req.Response.toResponse()
	if err != nil {
		rw.ValidationError("Invalid response shape", err.Error())
		return
	}

	result, err := h.manager.SubmitChallenge(r.Context(), req.ChallengeID, resp, req.UserID)
	if err != nil {
		h.respondVerificationError(rw, err)
		return
	}

	rw.Success(result)
}

// GetNextChallenge handles GET /api/v1/verification/next.
func (h *Handlers) GetNextChallenge(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		rw.BadRequest("user_id query parameter is required")
		return
	}
	preferred := challenge.Type(r.URL.Query().Get("type"))

	ch, err := h.manager.GetNextChallenge(r.Context(), userID, preferred)
	if err != nil {
		h.respondVerificationError(rw, err)
		return
	}

	rw.Success(ch)
}

// GetVerificationStatus handles GET /api/v1/verification/status.
func (h *Handlers) GetVerificationStatus(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		rw.BadRequest("user_id query parameter is required")
		return
	}

	status, err := h.manager.GetStatus(r.Context(), userID)
	if err != nil {
		logging.Error().Err(err).Str("user_id", userID).Msg("Status lookup failed")
		rw.InternalError("Failed to read verification status")
		return
	}

	rw.Success(status)
}

// RevokeVerification handles POST /api/v1/verification/revoke.
func (h *Handlers) RevokeVerification(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req revokeVerificationRequest
	if err := decodeJSON(r, &req); err != nil {
		rw.ValidationError("Invalid request", err.Error())
		return
	}

	result, err := h.manager.Revoke(r.Context(), req.UserID, req.Reason)
	if err != nil {
		h.respondVerificationError(rw, err)
		return
	}

	rw.Success(result)
}

// ScoreText handles POST /api/v1/trust/score.
func (h *Handlers) ScoreText(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req scoreTextRequest
	if err := decodeJSON(r, &req); err != nil {
		rw.ValidationError("Invalid request", err.Error())
		return
	}

	assessment := trust.ScoreText(req.Text)

	if h.auditor != nil && req.UserID != "" && assessment.Score >= 50 {
		h.auditor.LogContentFlagged(r.Context(), req.UserID, assessment.Score,
			string(assessment.Classification), assessment.Flags)
	}

	rw.Success(assessment)
}

// AnalyzeMessagePattern handles POST /api/v1/trust/pattern.
func (h *Handlers) AnalyzeMessagePattern(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req analyzePatternRequest
	if err := decodeJSON(r, &req); err != nil {
		rw.ValidationError("Invalid request", err.Error())
		return
	}

	analysis, err := trust.AnalyzeMessagePattern(req.Messages)
	if err != nil {
		if errors.Is(err, trust.ErrInsufficientMessages) {
			rw.ValidationError("Insufficient sample", err.Error())
			return
		}
		rw.InternalError("Pattern analysis failed")
		return
	}

	if h.auditor != nil && req.UserID != "" && analysis.IsLikelyBot {
		h.auditor.LogContentFlagged(r.Context(), req.UserID, analysis.AverageScore,
			analysis.Recommendation, nil)
	}

	rw.Success(analysis)
}

// AssessBehavior handles POST /api/v1/behavior/assess.
func (h *Handlers) AssessBehavior(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req assessBehaviorRequest
	if err := decodeJSON(r, &req); err != nil {
		rw.ValidationError("Invalid request", err.Error())
		return
	}

	assessment := behavior.Assess(req.Telemetry)

	if h.auditor != nil && req.UserID != "" && assessment.SuspicionScore >= 50 {
		h.auditor.LogBehaviorFlagged(r.Context(), req.UserID, assessment.SuspicionScore,
			assessment.Recommendation, assessment.Flags)
	}

	rw.Success(assessment)
}

// ListAuditEvents handles GET /api/v1/audit/events.
func (h *Handlers) ListAuditEvents(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if h.auditor == nil {
		rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Audit logging is disabled")
		return
	}

	filter := audit.DefaultQueryFilter()
	q := r.URL.Query()

	if userID := q.Get("user_id"); userID != "" {
		filter.UserID = userID
	}
	if challengeID := q.Get("challenge_id"); challengeID != "" {
		filter.ChallengeID = challengeID
	}
	if eventType := q.Get("type"); eventType != "" {
		filter.Types = []audit.EventType{audit.EventType(eventType)}
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 && limit <= 1000 {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil && offset >= 0 {
		filter.Offset = offset
	}

	events, err := h.auditor.Query(r.Context(), filter)
	if err != nil {
		logging.Error().Err(err).Msg("Audit query failed")
		rw.InternalError("Failed to query audit events")
		return
	}

	rw.SuccessWithPagination(events, &PaginationMeta{
		Count:   len(events),
		Offset:  filter.Offset,
		Limit:   filter.Limit,
		HasMore: len(events) == filter.Limit,
	})
}

// respondVerificationError maps verification sentinels onto API error codes.
func (h *Handlers) respondVerificationError(rw *ResponseWriter, err error) {
	switch {
	case errors.Is(err, verification.ErrChallengeNotFound):
		rw.Error(http.StatusNotFound, ErrCodeNotFound, "Challenge not found")
	case errors.Is(err, verification.ErrSessionNotFound):
		rw.Error(http.StatusNotFound, ErrCodeNotFound, "No verification session for user")
	case errors.Is(err, verification.ErrOwnershipMismatch):
		rw.Error(http.StatusForbidden, ErrCodeOwnershipMismatch, "Challenge belongs to a different user")
	case errors.Is(err, verification.ErrChallengeExpired):
		rw.Error(http.StatusGone, ErrCodeExpired, "Challenge has expired")
	case errors.Is(err, verification.ErrAlreadyVerified):
		rw.Error(http.StatusConflict, ErrCodeAlreadyVerified, "User is already verified")
	case errors.Is(err, verification.ErrInvalidResponse):
		rw.Error(http.StatusBadRequest, ErrCodeValidationFailed, "Response shape does not match the challenge type")
	default:
		logging.Error().Err(err).Msg("Verification operation failed")
		rw.InternalError("Verification operation failed")
	}
}
