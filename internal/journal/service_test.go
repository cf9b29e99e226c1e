package journal

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-journal/internal/errors"
	"trade-journal/internal/models"
	"trade-journal/internal/scoring"
	"trade-journal/internal/store"
)

var testNow = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, opts ...Option) (*Service, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return NewService(st, scoring.NewEngine(), opts...), st
}

func newTrade(userID string, entry time.Time, pnl float64) *models.Trade {
	exit := entry.Add(45 * time.Minute)
	outcome := models.Outcome("profit")
	if pnl < 0 {
		outcome = "loss"
	}
	return &models.Trade{
		UserID:             userID,
		Pair:               "EURUSD",
		Direction:          models.DirectionLong,
		EntryPrice:         1.05,
		ExitPrice:          models.Float(1.06),
		Volume:             models.Float(1),
		StopLoss:           models.Float(1.045),
		TakeProfit:         models.Float(1.06),
		ProfitLoss:         models.Float(pnl),
		Outcome:            outcome,
		RiskRewardRatio:    models.Float(2),
		HoldingTimeMinutes: models.Float(45),
		SetupQuality:       models.Float(7),
		EntryTime:          entry,
		ExitTime:           &exit,
		EmotionalDrift:     &models.EmotionalDrift{PreEmotion: "calm", PostEmotion: "calm"},
	}
}

func TestScoreTrade_PersistsScoresAndHistory(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	trade := newTrade("u1", testNow.Add(-2*time.Hour), 100)
	require.NoError(t, svc.AddTrade(ctx, trade))

	scores, err := svc.ScoreTrade(ctx, trade.ID)
	require.NoError(t, err)

	stored, err := st.GetTrade(ctx, trade.ID)
	require.NoError(t, err)
	expected := svc.Engine().ScoreTrade(stored, testNow)

	assert.Equal(t, trade.ID, scores.TradeID)
	assert.Equal(t, expected.DecisionScore, scores.DecisionScore)
	assert.Equal(t, expected.Quality, scores.Quality)
	assert.Equal(t, expected.Classification, scores.Classification)
	assert.True(t, scores.ComputedAt.Equal(testNow))

	// Persisted onto the trade
	fetched, err := svc.GetTradeScores(ctx, trade.ID)
	require.NoError(t, err)
	assert.Equal(t, scores.DecisionScore, fetched.DecisionScore)
	assert.Equal(t, scores.DecisionQuality.Score, fetched.DecisionQuality.Score)
	assert.Equal(t, scores.ExecutionQuality.Score, fetched.ExecutionQuality.Score)

	// And into the history
	history, err := svc.ScoreHistory(ctx, trade.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.ScoreKindTrade, history[0].Kind)
	assert.Equal(t, scores.DecisionScore, history[0].Score)
	assert.Contains(t, history[0].Payload, `"decisionScore"`)
}

func TestScoreTrade_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.ScoreTrade(ctx, "  ")
	assert.ErrorIs(t, err, errors.ErrInputValidation)

	_, err = svc.ScoreTrade(ctx, "missing")
	assert.ErrorIs(t, err, errors.ErrTradeNotFound)

	_, err = svc.GetTradeScores(ctx, "")
	assert.ErrorIs(t, err, errors.ErrInputValidation)
}

func TestGetTradeScores_NotScoredYet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	trade := newTrade("u1", testNow.Add(-time.Hour), 10)
	require.NoError(t, svc.AddTrade(ctx, trade))

	_, err := svc.GetTradeScores(ctx, trade.ID)
	assert.ErrorIs(t, err, errors.ErrScoresNotFound)
}

func TestAnalyzeTrade_AppendsHistory(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	trade := newTrade("u1", testNow.Add(-time.Hour), 50)
	trade.RuleChecks = []models.RuleCheck{{RuleID: "r1", Name: "Wait for close", Followed: true}}
	require.NoError(t, svc.AddTrade(ctx, trade))

	analysis, err := svc.AnalyzeTrade(ctx, trade.ID)
	require.NoError(t, err)
	assert.Equal(t, svc.Engine().AnalyzeDecision(trade).Score, analysis.Score)
	assert.Equal(t, scoring.QualityLabel(analysis.Score), analysis.Quality)

	_, err = svc.ScoreTrade(ctx, trade.ID)
	require.NoError(t, err)

	history, err := svc.ScoreHistory(ctx, trade.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.ScoreKindAnalysis, history[0].Kind)
	assert.Equal(t, models.ScoreKindTrade, history[1].Kind)

	_, err = svc.AnalyzeTrade(ctx, "missing")
	assert.ErrorIs(t, err, errors.ErrTradeNotFound)
}

func TestEmotionalCost_Passthrough(t *testing.T) {
	svc, _ := newTestService(t)

	factors := models.EmotionalCostFactors{
		PreTradeEmotion:    "angry",
		PreTradeIntensity:  8,
		PostTradeEmotion:   "frustrated",
		PostTradeIntensity: 9,
		Outcome:            models.OutcomeLoss,
		TradeSize:          2,
		TimeToRecover:      6,
		StressLevel:        9,
	}
	got, err := svc.EmotionalCost(context.Background(), factors)
	require.NoError(t, err)
	assert.Equal(t, scoring.EmotionalCostFromFactors(factors), got)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.EmotionalCost(ctx, factors)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEdgeConfidence_InsufficientSampleIsPersisted(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	strategy := &models.Strategy{UserID: "u1", Name: "Breakout"}
	require.NoError(t, svc.AddStrategy(ctx, strategy))

	for i, pnl := range []float64{100, -40, 60} {
		trade := newTrade("u1", testNow.Add(time.Duration(-10+i)*time.Hour), pnl)
		trade.StrategyID = strategy.ID
		require.NoError(t, svc.AddTrade(ctx, trade))
		assert.Equal(t, "Breakout", trade.StrategyName)
	}

	perf, err := svc.EdgeConfidence(ctx, strategy.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, perf.EdgeConfidence)
	assert.Equal(t, 3, perf.TotalTrades)
	assert.InDelta(t, 66.67, perf.WinRate, 0.01)
	require.Len(t, perf.Insights, 1)

	stored, err := st.GetStrategy(ctx, strategy.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Performance)
	assert.Equal(t, 20, stored.Performance.EdgeConfidence)
	assert.Equal(t, 3, stored.Performance.TotalTrades)
}

func TestEdgeConfidence_MatchesEngine(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	strategy := &models.Strategy{UserID: "u1", Name: "Pullback"}
	require.NoError(t, svc.AddStrategy(ctx, strategy))

	pnls := []float64{120, -60, 80, 95, -30, 140, -75, 60, 45, -20, 110, 70}
	for i, pnl := range pnls {
		trade := newTrade("u1", testNow.AddDate(0, 0, -len(pnls)+i), pnl)
		trade.StrategyID = strategy.ID
		trade.MarketCondition = []string{"trending", "ranging", "volatile"}[i%3]
		require.NoError(t, svc.AddTrade(ctx, trade))
	}

	perf, err := svc.EdgeConfidence(ctx, strategy.ID)
	require.NoError(t, err)

	trades, err := st.GetTrades(ctx, store.TradeFilter{StrategyID: strategy.ID})
	require.NoError(t, err)
	expected := svc.Engine().EdgeConfidence(strategy.ID, trades, testNow)

	assert.Equal(t, expected.EdgeConfidence, perf.EdgeConfidence)
	assert.Equal(t, len(pnls), perf.TotalTrades)
	assert.InDelta(t, expected.DrawdownMax, perf.DrawdownMax, 1e-9)
	assert.GreaterOrEqual(t, perf.EdgeConfidence, 0)
	assert.LessOrEqual(t, perf.EdgeConfidence, 100)
}

func TestEdgeConfidence_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.EdgeConfidence(ctx, "")
	assert.ErrorIs(t, err, errors.ErrInputValidation)

	_, err = svc.EdgeConfidence(ctx, "missing")
	assert.ErrorIs(t, err, errors.ErrStrategyNotFound)
}

func TestRecomputeSummary_ReplacesStoredSummary(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// Wednesday 2026-10-14 lies in the week of Monday 2026-10-12.
	inWeek := time.Date(2026, 10, 13, 10, 0, 0, 0, time.UTC)
	require.NoError(t, svc.AddTrade(ctx, newTrade("u1", inWeek, 100)))
	require.NoError(t, svc.AddTrade(ctx, newTrade("u1", inWeek.Add(2*time.Hour), -40)))
	require.NoError(t, svc.AddTrade(ctx, newTrade("u1", time.Date(2026, 10, 9, 10, 0, 0, 0, time.UTC), 500)))
	require.NoError(t, svc.AddTrade(ctx, newTrade("u2", inWeek, 999)))

	summary, err := svc.RecomputeSummary(ctx, "u1", models.PeriodWeekly, testNow)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalTrades)
	assert.Equal(t, 1, summary.WinCount)
	assert.Equal(t, 1, summary.LossCount)
	assert.InDelta(t, 60, summary.TotalPnL, 1e-9)
	assert.True(t, summary.WindowStart.Equal(time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)))

	// A new trade in the window is picked up by a recompute, which replaces
	// the stored row rather than adding another.
	require.NoError(t, svc.AddTrade(ctx, newTrade("u1", inWeek.Add(24*time.Hour), 25)))
	_, err = svc.RecomputeSummary(ctx, "u1", models.PeriodWeekly, testNow)
	require.NoError(t, err)

	stored, err := svc.GetSummary(ctx, "u1", models.PeriodWeekly, testNow)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.TotalTrades)
	assert.InDelta(t, 85, stored.TotalPnL, 1e-9)
}

func TestRecomputeSummary_Errors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.RecomputeSummary(ctx, "", models.PeriodDaily, testNow)
	assert.ErrorIs(t, err, errors.ErrInputValidation)

	_, err = svc.RecomputeSummary(ctx, "u1", models.PeriodType("fortnightly"), testNow)
	assert.ErrorIs(t, err, errors.ErrInputValidation)

	_, err = svc.GetSummary(ctx, "u1", models.PeriodMonthly, testNow)
	assert.ErrorIs(t, err, errors.ErrSummaryNotFound)
}

func TestRescoreAll(t *testing.T) {
	svc, st := newTestService(t, WithWorkers(3), WithBatchSize(4))
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		pnl := float64(10 * (i%5 - 2))
		require.NoError(t, svc.AddTrade(ctx, newTrade("u1", testNow.Add(-time.Duration(i)*time.Hour), pnl)))
	}
	require.NoError(t, svc.AddTrade(ctx, newTrade("u2", testNow, 10)))

	result, err := svc.RescoreAll(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 25, result.Total)
	assert.Equal(t, 25, result.Scored)
	assert.Equal(t, 0, result.Failed)

	trades, err := st.GetTrades(ctx, store.TradeFilter{UserID: "u1"})
	require.NoError(t, err)
	for _, trade := range trades {
		require.NotNil(t, trade.Scores, "trade %s not rescored", trade.ID)
		assert.True(t, trade.Scores.ComputedAt.Equal(testNow))
	}

	other, err := st.GetTrades(ctx, store.TradeFilter{UserID: "u2"})
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Nil(t, other[0].Scores)

	_, err = svc.RescoreAll(ctx, "")
	assert.ErrorIs(t, err, errors.ErrInputValidation)
}

// rejectingStore fails score updates for the trades listed in fail.
type rejectingStore struct {
	store.JournalStore
	fail map[string]error
}

func (s *rejectingStore) UpdateTradeScores(ctx context.Context, tradeID string, scores *models.TradeScores) error {
	if err, ok := s.fail[tradeID]; ok {
		return err
	}
	return s.JournalStore.UpdateTradeScores(ctx, tradeID, scores)
}

func TestRescoreAll_JoinsPersistFailures(t *testing.T) {
	_, st := newTestService(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		trade := newTrade("u1", testNow.Add(-time.Duration(i)*time.Hour), 10)
		require.NoError(t, st.SaveTrade(ctx, trade))
		ids = append(ids, trade.ID)
	}

	errLocked := fmt.Errorf("database is locked")
	errFull := fmt.Errorf("disk full")
	rejecting := &rejectingStore{JournalStore: st, fail: map[string]error{
		ids[1]: errLocked,
		ids[3]: errFull,
	}}
	svc := NewService(rejecting, scoring.NewEngine(),
		WithClock(func() time.Time { return testNow }), WithWorkers(2), WithBatchSize(2))

	result, err := svc.RescoreAll(ctx, "u1")
	require.Error(t, err)
	assert.ErrorIs(t, err, errLocked)
	assert.ErrorIs(t, err, errFull)
	assert.Contains(t, err.Error(), "2 of 5 trades failed to persist")
	assert.Equal(t, 3, result.Scored)
	assert.Equal(t, 2, result.Failed)
}

func TestService_LogsEntityIDs(t *testing.T) {
	var buf bytes.Buffer
	svc, _ := newTestService(t, WithLogger(zerolog.New(&buf)))
	ctx := context.Background()

	strategy := &models.Strategy{UserID: "u1", Name: "Breakout"}
	require.NoError(t, svc.AddStrategy(ctx, strategy))
	trade := newTrade("u1", testNow.Add(-time.Hour), 25)
	require.NoError(t, svc.AddTrade(ctx, trade))
	_, err := svc.AnalyzeTrade(ctx, trade.ID)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"strategy_id":"`+strategy.ID+`"`)
	assert.Contains(t, out, `"message":"Strategy saved"`)
	assert.Contains(t, out, `"trade_id":"`+trade.ID+`"`)
	assert.Contains(t, out, `"message":"Trade saved"`)
	assert.Contains(t, out, `"message":"Trade analyzed"`)
}

func TestAddTrade_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*models.Trade)
		field  string
	}{
		{"missing user", func(tr *models.Trade) { tr.UserID = "" }, "userId"},
		{"missing pair", func(tr *models.Trade) { tr.Pair = " " }, "pair"},
		{"bad direction", func(tr *models.Trade) { tr.Direction = "SIDEWAYS" }, "direction"},
		{"zero entry price", func(tr *models.Trade) { tr.EntryPrice = 0 }, "entryPrice"},
		{"negative volume", func(tr *models.Trade) { tr.Volume = models.Float(-1) }, "volume"},
		{"exit before entry", func(tr *models.Trade) {
			exit := tr.EntryTime.Add(-time.Minute)
			tr.ExitTime = &exit
		}, "exitTime"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trade := newTrade("u1", testNow, 10)
			tt.mutate(trade)

			err := svc.AddTrade(ctx, trade)
			require.ErrorIs(t, err, errors.ErrInputValidation)

			var ve *errors.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestAddTrade_UnknownStrategy(t *testing.T) {
	svc, _ := newTestService(t)

	trade := newTrade("u1", testNow, 10)
	trade.StrategyID = "nope"
	err := svc.AddTrade(context.Background(), trade)
	assert.ErrorIs(t, err, errors.ErrStrategyNotFound)
}

func TestStrategies(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.AddStrategy(ctx, &models.Strategy{UserID: "u1"}), errors.ErrInputValidation)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.AddStrategy(ctx, &models.Strategy{UserID: "u1", Name: fmt.Sprintf("S%d", i)}))
	}
	require.NoError(t, svc.AddStrategy(ctx, &models.Strategy{UserID: "u2", Name: "Other"}))

	list, err := svc.ListStrategies(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 3)

	_, err = svc.ListStrategies(ctx, "")
	assert.ErrorIs(t, err, errors.ErrInputValidation)
}
