// Package api exposes the journal service over HTTP.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(h *Handler, logger zerolog.Logger) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	// Per-trade scores
	api.HandleFunc("/decision-score", h.ComputeDecisionScore).Methods(http.MethodPost)
	api.HandleFunc("/decision-score", h.GetDecisionScore).Methods(http.MethodGet)
	api.HandleFunc("/decision-analysis", h.AnalyzeDecision).Methods(http.MethodPost)
	api.HandleFunc("/emotional-cost", h.EmotionalCost).Methods(http.MethodPost)

	// Strategy edge
	api.HandleFunc("/edge-confidence", h.EdgeConfidence).Methods(http.MethodGet)

	// Journal entities
	api.HandleFunc("/trades", h.CreateTrade).Methods(http.MethodPost)
	api.HandleFunc("/trades", h.ListTrades).Methods(http.MethodGet)
	api.HandleFunc("/trades/{id}", h.GetTrade).Methods(http.MethodGet)
	api.HandleFunc("/trades/{id}/score-history", h.ScoreHistory).Methods(http.MethodGet)
	api.HandleFunc("/strategies", h.CreateStrategy).Methods(http.MethodPost)
	api.HandleFunc("/strategies", h.ListStrategies).Methods(http.MethodGet)

	// Period summaries
	api.HandleFunc("/summaries/{period}", h.RecomputeSummary).Methods(http.MethodPost)
	api.HandleFunc("/summaries/{period}", h.GetSummary).Methods(http.MethodGet)
	api.HandleFunc("/summaries/{period}/review", h.ReviewSummary).Methods(http.MethodPost)

	r.Use(requestIDMiddleware(logger))
	r.Use(loggingMiddleware)
	r.Use(metricsMiddleware)
	r.Use(recoveryMiddleware)

	return r
}
