// TrustGate - Proof-of-Humanity Verification & Bot Detection Engine
// Copyright 2026 Trollz1004
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Trollz1004/trustgate

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the HTTP router with the full middleware stack and all
// public routes.
func NewRouter(h *Handlers, mw *Middleware) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Use(SecurityHeaders())
	r.Use(mw.CORS())
	r.Use(Metrics())

	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.RateLimit())

		r.Post("/challenges", h.IssueChallenge)

		r.Route("/verification", func(r chi.Router) {
			r.Post("/start", h.StartVerification)
			r.With(mw.RateLimitSubmit()).Post("/submit", h.SubmitChallenge)
			r.Get("/next", h.GetNextChallenge)
			r.Get("/status", h.GetVerificationStatus)
			r.Post("/revoke", h.RevokeVerification)
		})

		r.Route("/trust", func(r chi.Router) {
			r.Post("/score", h.ScoreText)
			r.Post("/pattern", h.AnalyzeMessagePattern)
		})

		r.Post("/behavior/assess", h.AssessBehavior)

		r.Get("/audit/events", h.ListAuditEvents)
	})

	return r
}
