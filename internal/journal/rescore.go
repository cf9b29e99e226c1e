package journal

import (
	"context"
	"time"

	"trade-journal/internal/batch"
	"trade-journal/internal/errors"
	"trade-journal/internal/logging"
	"trade-journal/internal/models"
	"trade-journal/internal/store"
)

// RescoreResult reports the outcome of a bulk rescore.
type RescoreResult struct {
	UserID   string        `json:"userId"`
	Total    int           `json:"total"`
	Scored   int           `json:"scored"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// RescoreAll recomputes the scores of every trade of a user. Scoring runs on
// a worker pool; results are persisted in batches. Trades that fail to
// persist are counted and their errors are joined into the returned error.
func (s *Service) RescoreAll(ctx context.Context, userID string) (_ *RescoreResult, err error) {
	started := time.Now()
	defer observe("rescore_all", started, &err)

	if err := requireID("userId", userID); err != nil {
		return nil, err
	}
	logger := logging.WithUserID(logging.WithOperation(s.logger, "rescore"), userID)

	trades, err := s.store.GetTrades(ctx, store.TradeFilter{UserID: userID})
	if err != nil {
		return nil, err
	}
	result := &RescoreResult{UserID: userID, Total: len(trades)}
	now := s.now()

	// The processor runs under the batch lock, so the counters need no other.
	var persistErrs []error
	persist := batch.NewBatchProcessor(s.batchSize, func(items []models.TradeScores) error {
		for i := range items {
			if err := s.persistScores(ctx, &items[i]); err != nil {
				result.Failed++
				persistErrs = append(persistErrs, err)
				tradeLogger := logging.WithTradeID(logger, items[i].TradeID)
				tradeLogger.Warn().Err(err).Msg("Failed to persist rescored trade")
				continue
			}
			result.Scored++
		}
		return nil
	})

	pool := batch.NewWorkerPool(s.workers)
	pool.Start()
	var submitErr error
	for i := range trades {
		trade := &trades[i]
		submitErr = pool.SubmitContext(ctx, func() {
			_ = persist.Add(s.engine.ScoreTrade(trade, now))
		})
		if submitErr != nil {
			break
		}
	}
	pool.Stop()
	_ = persist.Flush()

	result.Duration = time.Since(started)
	logger.Info().
		Int("total", result.Total).
		Int("scored", result.Scored).
		Int("failed", result.Failed).
		Dur("duration", result.Duration).
		Msg("Rescore finished")

	if submitErr != nil {
		return result, errors.Wrapf(submitErr, "rescore interrupted after %d of %d trades", result.Scored+result.Failed, result.Total)
	}
	if len(persistErrs) > 0 {
		return result, errors.Wrapf(errors.Join(persistErrs...), "%d of %d trades failed to persist", result.Failed, result.Total)
	}
	return result, nil
}
