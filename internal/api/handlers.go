package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"trade-journal/internal/coach"
	"trade-journal/internal/errors"
	"trade-journal/internal/journal"
	"trade-journal/internal/logging"
	"trade-journal/internal/models"
	"trade-journal/internal/resilience"
	"trade-journal/internal/store"
)

const (
	dateLayout   = "2006-01-02"
	maxBodyBytes = 1 << 20
)

// Handler serves the journal endpoints.
type Handler struct {
	service *journal.Service
	coach   *coach.Coach // nil when the coach is disabled
	health  *resilience.HealthChecker
	now     func() time.Time
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithHealthChecker makes /health run component checks.
func WithHealthChecker(hc *resilience.HealthChecker) HandlerOption {
	return func(h *Handler) {
		h.health = hc
	}
}

// NewHandler creates a handler. coach may be nil.
func NewHandler(service *journal.Service, c *coach.Coach, opts ...HandlerOption) *Handler {
	h := &Handler{
		service: service,
		coach:   c,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// TradeIDRequest names a trade in a request body.
type TradeIDRequest struct {
	TradeID string `json:"tradeId"`
}

// Health returns server health status.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "ok",
			"service": "trade-journal",
			"coach":   h.coach != nil,
		})
		return
	}

	health := h.health.Check(r.Context())
	status := http.StatusOK
	if health.Status == resilience.HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, map[string]interface{}{
		"status":     health.Status,
		"service":    "trade-journal",
		"coach":      h.coach != nil,
		"uptime":     health.Uptime,
		"components": health.Components,
	})
}

// ComputeDecisionScore scores a trade and persists the result.
// POST /api/decision-score {"tradeId": "..."}
func (h *Handler) ComputeDecisionScore(w http.ResponseWriter, r *http.Request) {
	var req TradeIDRequest
	if !decodeBody(w, r, &req) {
		return
	}
	scores, err := h.service.ScoreTrade(r.Context(), req.TradeID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, scores)
}

// GetDecisionScore returns the scores last computed for a trade.
// GET /api/decision-score?tradeId=...
func (h *Handler) GetDecisionScore(w http.ResponseWriter, r *http.Request) {
	scores, err := h.service.GetTradeScores(r.Context(), r.URL.Query().Get("tradeId"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, scores)
}

// AnalyzeDecision runs the six-factor decision analysis of a trade.
// POST /api/decision-analysis {"tradeId": "..."}
func (h *Handler) AnalyzeDecision(w http.ResponseWriter, r *http.Request) {
	var req TradeIDRequest
	if !decodeBody(w, r, &req) {
		return
	}
	analysis, err := h.service.AnalyzeTrade(r.Context(), req.TradeID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, analysis)
}

// EmotionalCost computes the factor-based emotional cost.
// POST /api/emotional-cost
func (h *Handler) EmotionalCost(w http.ResponseWriter, r *http.Request) {
	var factors models.EmotionalCostFactors
	if !decodeBody(w, r, &factors) {
		return
	}
	result, err := h.service.EmotionalCost(r.Context(), factors)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// EdgeConfidence recomputes a strategy's performance and edge confidence.
// GET /api/edge-confidence?strategyId=...
func (h *Handler) EdgeConfidence(w http.ResponseWriter, r *http.Request) {
	perf, err := h.service.EdgeConfidence(r.Context(), r.URL.Query().Get("strategyId"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, perf)
}

// CreateTrade logs a trade.
// POST /api/trades
func (h *Handler) CreateTrade(w http.ResponseWriter, r *http.Request) {
	var trade models.Trade
	if !decodeBody(w, r, &trade) {
		return
	}
	if err := h.service.AddTrade(r.Context(), &trade); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, trade)
}

// ListTrades lists trades.
// GET /api/trades?user=&strategyId=&from=&to=&limit=
func (h *Handler) ListTrades(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.TradeFilter{
		UserID:     q.Get("user"),
		StrategyID: q.Get("strategyId"),
	}

	var err error
	if filter.StartDate, err = parseOptionalDate("from", q.Get("from")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	if filter.EndDate, err = parseOptionalDate("to", q.Get("to")); err != nil {
		respondServiceError(w, r, err)
		return
	}
	if !filter.EndDate.IsZero() {
		filter.EndDate = filter.EndDate.Add(24*time.Hour - time.Nanosecond)
	}
	if v := q.Get("limit"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil || n < 0 {
			respondServiceError(w, r, errors.NewValidationError("limit", v, "must be a non-negative integer"))
			return
		}
		filter.Limit = n
	}

	trades, err := h.service.ListTrades(r.Context(), filter)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if trades == nil {
		trades = []models.Trade{}
	}
	respondJSON(w, http.StatusOK, trades)
}

// GetTrade returns one trade.
// GET /api/trades/{id}
func (h *Handler) GetTrade(w http.ResponseWriter, r *http.Request) {
	trade, err := h.service.GetTrade(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, trade)
}

// ScoreHistory returns every score computed for a trade.
// GET /api/trades/{id}/score-history
func (h *Handler) ScoreHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.service.ScoreHistory(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if history == nil {
		history = []models.ScoreRecord{}
	}
	respondJSON(w, http.StatusOK, history)
}

// CreateStrategy documents a strategy.
// POST /api/strategies
func (h *Handler) CreateStrategy(w http.ResponseWriter, r *http.Request) {
	var strategy models.Strategy
	if !decodeBody(w, r, &strategy) {
		return
	}
	if err := h.service.AddStrategy(r.Context(), &strategy); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, strategy)
}

// ListStrategies lists a user's strategies.
// GET /api/strategies?user=
func (h *Handler) ListStrategies(w http.ResponseWriter, r *http.Request) {
	strategies, err := h.service.ListStrategies(r.Context(), r.URL.Query().Get("user"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if strategies == nil {
		strategies = []models.Strategy{}
	}
	respondJSON(w, http.StatusOK, strategies)
}

// RecomputeSummary rebuilds a period summary.
// POST /api/summaries/{period}?user=&date=
func (h *Handler) RecomputeSummary(w http.ResponseWriter, r *http.Request) {
	user, period, ref, err := h.summaryParams(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	summary, err := h.service.RecomputeSummary(r.Context(), user, period, ref)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// GetSummary returns a stored period summary.
// GET /api/summaries/{period}?user=&date=
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	user, period, ref, err := h.summaryParams(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	summary, err := h.service.GetSummary(r.Context(), user, period, ref)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// ReviewSummary asks the coach for a narrative review of a stored summary.
// POST /api/summaries/{period}/review?user=&date=
func (h *Handler) ReviewSummary(w http.ResponseWriter, r *http.Request) {
	if h.coach == nil {
		respondServiceError(w, r, errors.Wrap(errors.ErrCoachUnavailable, "coach is not configured"))
		return
	}
	user, period, ref, err := h.summaryParams(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	summary, err := h.service.GetSummary(r.Context(), user, period, ref)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	review, err := h.coach.ReviewPeriod(r.Context(), summary)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, review)
}

func (h *Handler) summaryParams(r *http.Request) (string, models.PeriodType, time.Time, error) {
	q := r.URL.Query()
	ref, err := parseOptionalDate("date", q.Get("date"))
	if err != nil {
		return "", "", time.Time{}, err
	}
	if ref.IsZero() {
		ref = h.now()
	}
	return q.Get("user"), models.PeriodType(mux.Vars(r)["period"]), ref, nil
}

// Helper functions

func parseOptionalDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, errors.NewValidationError(field, value, "must be a date in YYYY-MM-DD format")
	}
	return t, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// statusFor maps a service error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errors.ErrInputValidation):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrTradeNotFound),
		errors.Is(err, errors.ErrStrategyNotFound),
		errors.Is(err, errors.ErrSummaryNotFound),
		errors.Is(err, errors.ErrScoresNotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrCoachUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, errors.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	logger := logging.FromContext(r.Context())

	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		message := "internal server error"
		if status != http.StatusInternalServerError {
			message = strings.TrimSpace(err.Error())
		}
		respondError(w, r, status, message)
		return
	}

	logger.Debug().Err(err).Int("status", status).Msg("Request rejected")
	respondError(w, r, status, err.Error())
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error body tagged with the request ID when there is one.
func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	body := map[string]string{"error": message}
	if id := logging.RequestIDFromContext(r.Context()); id != "" {
		body["requestId"] = id
	}
	respondJSON(w, status, body)
}
