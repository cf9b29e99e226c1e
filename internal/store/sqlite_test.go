package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-journal/internal/errors"
	"trade-journal/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTrade(id string, entry time.Time) *models.Trade {
	hours := 2.5
	return &models.Trade{
		ID:                 id,
		UserID:             "u1",
		Pair:               "EURUSD",
		Direction:          models.DirectionLong,
		EntryPrice:         1.05,
		ExitPrice:          models.Float(1.06),
		Volume:             models.Float(1),
		StopLoss:           models.Float(1.045),
		TakeProfit:         models.Float(1.06),
		ProfitLoss:         models.Float(100),
		Outcome:            "profit",
		StrategyID:         "s1",
		StrategyName:       "Breakout",
		EntryModel:         "ORB",
		MarketCondition:    "trending",
		RiskRewardRatio:    models.Float(3),
		HoldingTimeMinutes: models.Float(45),
		SetupQuality:       models.Float(8),
		Conviction:         models.Float(7),
		EmotionalDrift: &models.EmotionalDrift{
			PreEmotion:       "calm",
			PostEmotion:      "confident",
			PreIntensity:     3,
			PostIntensity:    4,
			ConfidenceChange: 5,
			StressChange:     -2,
			TimeToRecover:    &hours,
		},
		RuleChecks: []models.RuleCheck{{RuleID: "r1", Name: "No news", Followed: true}},
		Notes:      "clean breakout",
		Timeframe:  "H1",
		EntryTime:  entry,
	}
}

func TestTradeRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	entry := time.Date(2026, 10, 12, 9, 30, 0, 0, time.UTC)
	exit := entry.Add(45 * time.Minute)
	in := sampleTrade("t1", entry)
	in.ExitTime = &exit

	require.NoError(t, s.SaveTrade(ctx, in))

	out, err := s.GetTrade(ctx, "t1")
	require.NoError(t, err)

	assert.Equal(t, in.UserID, out.UserID)
	assert.Equal(t, in.Direction, out.Direction)
	assert.Equal(t, in.Outcome, out.Outcome)
	assert.Equal(t, *in.StopLoss, *out.StopLoss)
	assert.Equal(t, *in.ProfitLoss, *out.ProfitLoss)
	assert.Equal(t, in.EmotionalDrift, out.EmotionalDrift)
	assert.Equal(t, in.RuleChecks, out.RuleChecks)
	assert.True(t, entry.Equal(out.EntryTime))
	require.NotNil(t, out.ExitTime)
	assert.True(t, exit.Equal(*out.ExitTime))
	assert.Nil(t, out.Scores)
}

func TestTradeOptionalFieldsStayNil(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	in := &models.Trade{UserID: "u1", Pair: "GBPUSD", Direction: models.DirectionShort, EntryPrice: 1.3, EntryTime: time.Now()}
	require.NoError(t, s.SaveTrade(ctx, in))
	require.NotEmpty(t, in.ID)

	out, err := s.GetTrade(ctx, in.ID)
	require.NoError(t, err)
	assert.Nil(t, out.StopLoss)
	assert.Nil(t, out.Volume)
	assert.Nil(t, out.ProfitLoss)
	assert.Nil(t, out.EmotionalDrift)
	assert.Nil(t, out.RuleChecks)
	assert.Nil(t, out.ExitTime)
	assert.Empty(t, out.StrategyID)
}

func TestGetTradeNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetTrade(context.Background(), "missing")
	assert.True(t, errors.Is(err, errors.ErrTradeNotFound))
}

func TestMalformedEmbeddedJSONIsIgnored(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.SaveTrade(ctx, sampleTrade("t1", time.Now())))

	_, err := s.db.Exec(`UPDATE trades SET emotional_drift = '{broken', rule_checks = 'nope' WHERE id = 't1'`)
	require.NoError(t, err)

	out, err := s.GetTrade(ctx, "t1")
	require.NoError(t, err)
	assert.Nil(t, out.EmotionalDrift)
	assert.Nil(t, out.RuleChecks)
	assert.Equal(t, "EURUSD", out.Pair)
}

func TestGetTradesFilterAndOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveTrade(ctx, sampleTrade("t3", base.Add(48*time.Hour))))
	require.NoError(t, s.SaveTrade(ctx, sampleTrade("t1", base)))
	require.NoError(t, s.SaveTrade(ctx, sampleTrade("t2", base.Add(24*time.Hour))))

	other := sampleTrade("x1", base)
	other.UserID = "u2"
	other.StrategyID = "s2"
	require.NoError(t, s.SaveTrade(ctx, other))

	trades, err := s.GetTrades(ctx, TradeFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, trades, 3)
	assert.Equal(t, []string{"t1", "t2", "t3"}, []string{trades[0].ID, trades[1].ID, trades[2].ID})

	trades, err = s.GetTrades(ctx, TradeFilter{StrategyID: "s2"})
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "x1", trades[0].ID)

	trades, err = s.GetTrades(ctx, TradeFilter{UserID: "u1", StartDate: base.Add(time.Hour), Limit: 1})
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "t2", trades[0].ID)
}

func TestExpiredContextKeepsCause(t *testing.T) {
	st := newTestStore(t)
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := st.GetTrades(ctx, TradeFilter{UserID: "u1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, errors.ErrDatabaseError)

	var dataErr *errors.DataError
	require.True(t, errors.As(err, &dataErr))
	assert.Equal(t, "querying trades", dataErr.Entity)
	assert.Equal(t, "u1", dataErr.ID)
}

func TestGetTradesClosedWindow(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	start := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)

	// Entered before the window, closed inside it.
	early := sampleTrade("early", start.Add(-2*time.Hour))
	exitInside := start.Add(time.Hour)
	early.ExitTime = &exitInside
	require.NoError(t, s.SaveTrade(ctx, early))

	// Entered inside, closed after the window.
	late := sampleTrade("late", end.Add(-time.Hour))
	exitAfter := end.Add(time.Hour)
	late.ExitTime = &exitAfter
	require.NoError(t, s.SaveTrade(ctx, late))

	// No exit time, entered inside.
	require.NoError(t, s.SaveTrade(ctx, sampleTrade("open", start.Add(72*time.Hour))))

	trades, err := s.GetTrades(ctx, TradeFilter{UserID: "u1", ClosedFrom: start, ClosedBefore: end})
	require.NoError(t, err)

	ids := make([]string, len(trades))
	for i, tr := range trades {
		ids[i] = tr.ID
	}
	assert.ElementsMatch(t, []string{"early", "open"}, ids)
}

func TestUpdateTradeScoresAndHistory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.SaveTrade(ctx, sampleTrade("t1", time.Now())))

	scores := &models.TradeScores{
		TradeID:        "t1",
		DecisionScore:  81,
		Quality:        models.QualityExcellent,
		Classification: models.GoodDecisionGoodOutcome,
		DecisionQuality: models.DecisionQuality{
			Score:     83,
			Strengths: []string{"Good risk-reward ratio"},
		},
		ComputedAt: time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.UpdateTradeScores(ctx, "t1", scores))

	out, err := s.GetTrade(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, out.Scores)
	assert.Equal(t, 81, out.Scores.DecisionScore)
	assert.Equal(t, []string{"Good risk-reward ratio"}, out.Scores.DecisionQuality.Strengths)

	err = s.UpdateTradeScores(ctx, "missing", scores)
	assert.True(t, errors.Is(err, errors.ErrTradeNotFound))

	first := &models.ScoreRecord{TradeID: "t1", Kind: models.ScoreKindTrade, Score: 70, Payload: `{"v":1}`,
		CreatedAt: time.Date(2026, 10, 13, 0, 0, 0, 0, time.UTC)}
	second := &models.ScoreRecord{TradeID: "t1", Kind: models.ScoreKindAnalysis, Score: 81, Payload: `{"v":2}`,
		CreatedAt: time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, s.AppendScoreHistory(ctx, second))
	require.NoError(t, s.AppendScoreHistory(ctx, first))
	assert.NotEmpty(t, first.ID)

	history, err := s.GetScoreHistory(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 70, history[0].Score)
	assert.Equal(t, models.ScoreKindAnalysis, history[1].Kind)
	assert.Equal(t, `{"v":2}`, history[1].Payload)
}

func TestStrategyLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	st := &models.Strategy{UserID: "u1", Name: "Breakout", Rules: []string{"Wait for the close", "Risk 1%"}}
	require.NoError(t, s.SaveStrategy(ctx, st))
	require.NotEmpty(t, st.ID)
	require.NoError(t, s.SaveStrategy(ctx, &models.Strategy{ID: "s-b", UserID: "u1", Name: "Asian range"}))
	require.NoError(t, s.SaveStrategy(ctx, &models.Strategy{ID: "s-c", UserID: "u2", Name: "Carry"}))

	got, err := s.GetStrategy(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, st.Rules, got.Rules)
	assert.Nil(t, got.Performance)

	perf := &models.StrategyPerformance{StrategyID: st.ID, TotalTrades: 12, EdgeConfidence: 74, Insights: []string{"Moderate edge"}}
	require.NoError(t, s.SaveStrategyPerformance(ctx, perf))

	got, err = s.GetStrategy(ctx, st.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Performance)
	assert.Equal(t, 74, got.Performance.EdgeConfidence)

	// Saving the strategy again keeps its stored performance.
	st.Description = "London open breakout"
	require.NoError(t, s.SaveStrategy(ctx, st))
	got, err = s.GetStrategy(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, "London open breakout", got.Description)
	require.NotNil(t, got.Performance)

	list, err := s.ListStrategies(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Asian range", list[0].Name)

	_, err = s.GetStrategy(ctx, "missing")
	assert.True(t, errors.Is(err, errors.ErrStrategyNotFound))
	err = s.SaveStrategyPerformance(ctx, &models.StrategyPerformance{StrategyID: "missing"})
	assert.True(t, errors.Is(err, errors.ErrStrategyNotFound))
}

func TestReplacePeriodSummary(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	start := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
	sum := &models.PeriodSummary{
		UserID:            "u1",
		PeriodType:        models.PeriodWeekly,
		WindowStart:       start,
		WindowEnd:         start.AddDate(0, 0, 7),
		TotalTrades:       3,
		TotalPnL:          50,
		EmotionalPatterns: map[string]models.EmotionalPattern{"calm": {Count: 2, Wins: 1, TotalPnL: 100}},
		ComputedAt:        time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.ReplacePeriodSummary(ctx, sum))

	updated := *sum
	updated.TotalTrades = 4
	updated.TotalPnL = 75
	require.NoError(t, s.ReplacePeriodSummary(ctx, &updated))

	got, err := s.GetPeriodSummary(ctx, "u1", models.PeriodWeekly, start)
	require.NoError(t, err)
	assert.Equal(t, 4, got.TotalTrades)
	assert.Equal(t, 75.0, got.TotalPnL)
	assert.Equal(t, models.EmotionalPattern{Count: 2, Wins: 1, TotalPnL: 100}, got.EmotionalPatterns["calm"])

	var rows int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM period_summaries`).Scan(&rows))
	assert.Equal(t, 1, rows)

	_, err = s.GetPeriodSummary(ctx, "u1", models.PeriodMonthly, start)
	assert.True(t, errors.Is(err, errors.ErrSummaryNotFound))
}
