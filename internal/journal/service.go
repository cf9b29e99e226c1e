// Package journal wires the scoring engine to the journal store. Every
// operation follows the same shape: validate input, load from the store,
// score with the pure engine, persist the result.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"trade-journal/internal/errors"
	"trade-journal/internal/logging"
	"trade-journal/internal/models"
	"trade-journal/internal/scoring"
	"trade-journal/internal/store"
)

// Service is the journal application service. It is safe for concurrent use.
type Service struct {
	store     store.JournalStore
	engine    *scoring.Engine
	logger    zerolog.Logger
	now       func() time.Time
	workers   int
	batchSize int
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger.With().Str("component", "journal").Logger()
	}
}

// WithClock overrides the clock used for computed-at timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithWorkers sets the number of rescoring workers. Zero means one per CPU.
func WithWorkers(n int) Option {
	return func(s *Service) {
		s.workers = n
	}
}

// WithBatchSize sets how many rescored trades are persisted together.
func WithBatchSize(n int) Option {
	return func(s *Service) {
		s.batchSize = n
	}
}

// NewService creates a journal service. A nil engine uses the default
// thresholds.
func NewService(st store.JournalStore, engine *scoring.Engine, opts ...Option) *Service {
	if engine == nil {
		engine = scoring.NewEngine()
	}
	s := &Service{
		store:     st,
		engine:    engine,
		logger:    zerolog.Nop(),
		now:       func() time.Time { return time.Now().UTC() },
		batchSize: 50,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine returns the scoring engine used by the service.
func (s *Service) Engine() *scoring.Engine {
	return s.engine
}

// ============================================================================
// Strategies and trades
// ============================================================================

// AddStrategy validates and stores a strategy.
func (s *Service) AddStrategy(ctx context.Context, strategy *models.Strategy) error {
	if err := requireID("userId", strategy.UserID); err != nil {
		return err
	}
	if strings.TrimSpace(strategy.Name) == "" {
		return errors.NewValidationError("name", strategy.Name, "is required")
	}
	if err := s.store.SaveStrategy(ctx, strategy); err != nil {
		return errors.Wrap(err, "saving strategy")
	}
	logger := logging.WithStrategyID(s.logger, strategy.ID)
	logger.Info().Str("name", strategy.Name).Msg("Strategy saved")
	return nil
}

// ListStrategies returns a user's strategies.
func (s *Service) ListStrategies(ctx context.Context, userID string) ([]models.Strategy, error) {
	if err := requireID("userId", userID); err != nil {
		return nil, err
	}
	return s.store.ListStrategies(ctx, userID)
}

// AddTrade validates and stores a trade. A referenced strategy must exist;
// its name is copied onto the trade when the trade carries none.
func (s *Service) AddTrade(ctx context.Context, trade *models.Trade) error {
	if err := validateTrade(trade); err != nil {
		return err
	}
	if trade.HasStrategy() {
		strategy, err := s.store.GetStrategy(ctx, trade.StrategyID)
		if err != nil {
			return errors.Wrapf(err, "trade strategy %s", trade.StrategyID)
		}
		if trade.StrategyName == "" {
			trade.StrategyName = strategy.Name
		}
	}
	if err := s.store.SaveTrade(ctx, trade); err != nil {
		return errors.Wrap(err, "saving trade")
	}
	logger := logging.WithTradeID(s.logger, trade.ID)
	logger.Info().
		Str("pair", trade.Pair).
		Str("direction", string(trade.Direction)).
		Msg("Trade saved")
	return nil
}

// GetTrade returns one trade.
func (s *Service) GetTrade(ctx context.Context, tradeID string) (*models.Trade, error) {
	if err := requireID("tradeId", tradeID); err != nil {
		return nil, err
	}
	return s.store.GetTrade(ctx, tradeID)
}

// ListTrades returns the trades matching filter, oldest first.
func (s *Service) ListTrades(ctx context.Context, filter store.TradeFilter) ([]models.Trade, error) {
	return s.store.GetTrades(ctx, filter)
}

// ============================================================================
// Per-trade scores
// ============================================================================

// ScoreTrade computes every per-trade score for a stored trade and persists
// them onto the trade and into its score history.
func (s *Service) ScoreTrade(ctx context.Context, tradeID string) (_ *models.TradeScores, err error) {
	defer observe("score_trade", time.Now(), &err)

	if err := requireID("tradeId", tradeID); err != nil {
		return nil, err
	}
	trade, err := s.store.GetTrade(ctx, tradeID)
	if err != nil {
		return nil, err
	}

	scores := s.engine.ScoreTrade(trade, s.now())
	if err := s.persistScores(ctx, &scores); err != nil {
		return nil, err
	}

	logging.LogScore(s.logger, tradeID, scores.DecisionScore, scores.Quality, scores.Classification)
	return &scores, nil
}

// GetTradeScores returns the scores last persisted for a trade.
func (s *Service) GetTradeScores(ctx context.Context, tradeID string) (*models.TradeScores, error) {
	if err := requireID("tradeId", tradeID); err != nil {
		return nil, err
	}
	trade, err := s.store.GetTrade(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	if trade.Scores == nil {
		return nil, errors.Wrapf(errors.ErrScoresNotFound, "trade %s has not been scored", tradeID)
	}
	return trade.Scores, nil
}

// AnalyzeTrade runs the six-factor decision analysis for a stored trade and
// appends it to the trade's score history.
func (s *Service) AnalyzeTrade(ctx context.Context, tradeID string) (_ *models.DecisionAnalysis, err error) {
	defer observe("analyze_trade", time.Now(), &err)

	if err := requireID("tradeId", tradeID); err != nil {
		return nil, err
	}
	trade, err := s.store.GetTrade(ctx, tradeID)
	if err != nil {
		return nil, err
	}

	analysis := s.engine.AnalyzeDecision(trade)
	payload, err := json.Marshal(analysis)
	if err != nil {
		return nil, fmt.Errorf("encoding decision analysis: %w", err)
	}
	if err := s.store.AppendScoreHistory(ctx, &models.ScoreRecord{
		TradeID:   tradeID,
		Kind:      models.ScoreKindAnalysis,
		Score:     analysis.Score,
		Payload:   string(payload),
		CreatedAt: s.now(),
	}); err != nil {
		return nil, err
	}
	scoresComputed.WithLabelValues(string(models.ScoreKindAnalysis)).Inc()

	logger := logging.WithTradeID(s.logger, tradeID)
	logger.Info().
		Int("score", analysis.Score).
		Str("quality", analysis.Quality).
		Str("classification", analysis.Classification).
		Msg("Trade analyzed")
	return &analysis, nil
}

// ScoreHistory returns every score computed for a trade, oldest first.
func (s *Service) ScoreHistory(ctx context.Context, tradeID string) ([]models.ScoreRecord, error) {
	if err := requireID("tradeId", tradeID); err != nil {
		return nil, err
	}
	if _, err := s.store.GetTrade(ctx, tradeID); err != nil {
		return nil, err
	}
	return s.store.GetScoreHistory(ctx, tradeID)
}

// EmotionalCost computes the factor-based emotional cost. Nothing is stored.
func (s *Service) EmotionalCost(ctx context.Context, factors models.EmotionalCostFactors) (models.EmotionalCostBreakdown, error) {
	if err := ctx.Err(); err != nil {
		return models.EmotionalCostBreakdown{}, err
	}
	return scoring.EmotionalCostFromFactors(factors), nil
}

// persistScores writes scores onto the trade and appends a history entry.
func (s *Service) persistScores(ctx context.Context, scores *models.TradeScores) error {
	payload, err := json.Marshal(scores)
	if err != nil {
		return fmt.Errorf("encoding trade scores: %w", err)
	}
	if err := s.store.UpdateTradeScores(ctx, scores.TradeID, scores); err != nil {
		return err
	}
	if err := s.store.AppendScoreHistory(ctx, &models.ScoreRecord{
		TradeID:   scores.TradeID,
		Kind:      models.ScoreKindTrade,
		Score:     scores.DecisionScore,
		Payload:   string(payload),
		CreatedAt: scores.ComputedAt,
	}); err != nil {
		return err
	}
	scoresComputed.WithLabelValues(string(models.ScoreKindTrade)).Inc()
	decisionScores.Observe(float64(scores.DecisionScore))
	return nil
}

// ============================================================================
// Strategy edge
// ============================================================================

// EdgeConfidence recomputes the performance and edge confidence of a
// strategy over all of its trades and stores the result on the strategy.
func (s *Service) EdgeConfidence(ctx context.Context, strategyID string) (_ *models.StrategyPerformance, err error) {
	defer observe("edge_confidence", time.Now(), &err)

	if err := requireID("strategyId", strategyID); err != nil {
		return nil, err
	}
	if _, err := s.store.GetStrategy(ctx, strategyID); err != nil {
		return nil, err
	}
	trades, err := s.store.GetTrades(ctx, store.TradeFilter{StrategyID: strategyID})
	if err != nil {
		return nil, err
	}

	perf := s.engine.EdgeConfidence(strategyID, trades, s.now())
	if err := s.store.SaveStrategyPerformance(ctx, &perf); err != nil {
		return nil, err
	}
	edgeConfidence.WithLabelValues(strategyID).Set(float64(perf.EdgeConfidence))

	logging.LogEdge(s.logger, strategyID, perf.TotalTrades, perf.EdgeConfidence)
	return &perf, nil
}

// ============================================================================
// Period summaries
// ============================================================================

// RecomputeSummary rebuilds the summary of the period window containing ref
// from the user's trades closed in that window. The stored summary is
// replaced atomically.
func (s *Service) RecomputeSummary(ctx context.Context, userID string, periodType models.PeriodType, ref time.Time) (_ *models.PeriodSummary, err error) {
	defer observe("recompute_summary", time.Now(), &err)

	if err := validatePeriod(userID, periodType); err != nil {
		return nil, err
	}
	start, end, err := scoring.PeriodWindow(periodType, ref)
	if err != nil {
		return nil, errors.NewValidationError("periodType", periodType, err.Error())
	}

	trades, err := s.store.GetTrades(ctx, store.TradeFilter{
		UserID:       userID,
		ClosedFrom:   start,
		ClosedBefore: end,
	})
	if err != nil {
		return nil, err
	}

	summary, err := s.engine.Summarize(userID, periodType, ref, trades, s.now())
	if err != nil {
		return nil, errors.NewValidationError("periodType", periodType, err.Error())
	}
	if err := s.store.ReplacePeriodSummary(ctx, &summary); err != nil {
		return nil, err
	}
	summariesComputed.WithLabelValues(string(periodType)).Inc()

	logging.LogSummary(s.logger, userID, string(periodType), summary.TotalTrades, summary.TotalPnL)
	return &summary, nil
}

// GetSummary returns the stored summary of the period window containing ref.
func (s *Service) GetSummary(ctx context.Context, userID string, periodType models.PeriodType, ref time.Time) (*models.PeriodSummary, error) {
	if err := validatePeriod(userID, periodType); err != nil {
		return nil, err
	}
	start, _, err := scoring.PeriodWindow(periodType, ref)
	if err != nil {
		return nil, errors.NewValidationError("periodType", periodType, err.Error())
	}
	return s.store.GetPeriodSummary(ctx, userID, periodType, start)
}

// ============================================================================
// Helpers
// ============================================================================

func requireID(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.NewValidationError(field, value, "is required")
	}
	return nil
}

func validatePeriod(userID string, periodType models.PeriodType) error {
	if err := requireID("userId", userID); err != nil {
		return err
	}
	if !periodType.Valid() {
		return errors.NewValidationError("periodType", periodType, "must be one of daily, weekly, monthly, quarterly, half_year, yearly")
	}
	return nil
}

func validateTrade(t *models.Trade) error {
	if err := requireID("userId", t.UserID); err != nil {
		return err
	}
	if strings.TrimSpace(t.Pair) == "" {
		return errors.NewValidationError("pair", t.Pair, "is required")
	}
	switch t.Direction {
	case models.DirectionLong, models.DirectionShort:
	default:
		return errors.NewValidationError("direction", t.Direction, "must be LONG or SHORT")
	}
	if t.EntryPrice <= 0 {
		return errors.NewValidationError("entryPrice", t.EntryPrice, "must be positive")
	}
	if t.Volume != nil && *t.Volume < 0 {
		return errors.NewValidationError("volume", *t.Volume, "must not be negative")
	}
	if t.ExitTime != nil && !t.EntryTime.IsZero() && t.ExitTime.Before(t.EntryTime) {
		return errors.NewValidationError("exitTime", *t.ExitTime, "must not be before entry time")
	}
	return nil
}

func observe(operation string, start time.Time, err *error) {
	operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if *err != nil {
		operationErrors.WithLabelValues(operation).Inc()
	}
}
