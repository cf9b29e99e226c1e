// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"trade-journal/internal/models"
)

// JournalStore defines the interface for journal persistence.
//
// Nested trade fields (emotional drift, rule checks, scores) are encoded as
// JSON columns here and nowhere else; callers only see structured values.
type JournalStore interface {
	// Strategies
	SaveStrategy(ctx context.Context, strategy *models.Strategy) error
	GetStrategy(ctx context.Context, id string) (*models.Strategy, error)
	ListStrategies(ctx context.Context, userID string) ([]models.Strategy, error)
	SaveStrategyPerformance(ctx context.Context, perf *models.StrategyPerformance) error

	// Trades
	SaveTrade(ctx context.Context, trade *models.Trade) error
	GetTrade(ctx context.Context, id string) (*models.Trade, error)
	GetTrades(ctx context.Context, filter TradeFilter) ([]models.Trade, error)
	UpdateTradeScores(ctx context.Context, tradeID string, scores *models.TradeScores) error

	// Score history
	AppendScoreHistory(ctx context.Context, record *models.ScoreRecord) error
	GetScoreHistory(ctx context.Context, tradeID string) ([]models.ScoreRecord, error)

	// Period summaries
	ReplacePeriodSummary(ctx context.Context, summary *models.PeriodSummary) error
	GetPeriodSummary(ctx context.Context, userID string, periodType models.PeriodType, windowStart time.Time) (*models.PeriodSummary, error)

	// Lifecycle
	Close() error
}

// TradeFilter represents filters for querying trades. Results are ordered by
// entry time, oldest first.
type TradeFilter struct {
	UserID     string
	StrategyID string
	// StartDate and EndDate bound the entry time, inclusive.
	StartDate time.Time
	EndDate   time.Time
	// ClosedFrom and ClosedBefore bound the close time (exit time, or entry
	// time for trades without one) as a half-open range.
	ClosedFrom   time.Time
	ClosedBefore time.Time
	Limit        int
}
