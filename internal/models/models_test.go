package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcomeNormalize(t *testing.T) {
	tests := map[Outcome]Outcome{
		"profit":     OutcomeWin,
		"WIN":        OutcomeWin,
		" won ":      OutcomeWin,
		"loss":       OutcomeLoss,
		"LOSS":       OutcomeLoss,
		"lost":       OutcomeLoss,
		"breakeven":  OutcomeBreakeven,
		"BREAKEVEN":  OutcomeBreakeven,
		"break_even": OutcomeBreakeven,
		"":           OutcomeOpen,
		"pending":    OutcomeOpen,
	}
	for in, want := range tests {
		assert.Equal(t, want, in.Normalize(), "outcome %q", in)
	}
}

func TestTradeResolvedOutcome(t *testing.T) {
	tr := Trade{ProfitLoss: Float(12)}
	assert.Equal(t, OutcomeWin, tr.ResolvedOutcome())

	tr.ProfitLoss = Float(-3)
	assert.Equal(t, OutcomeLoss, tr.ResolvedOutcome())
	assert.True(t, tr.IsLoss())

	tr.ProfitLoss = Float(0)
	assert.Equal(t, OutcomeBreakeven, tr.ResolvedOutcome())

	// An explicit outcome always wins over the P&L sign.
	tr.Outcome = "profit"
	tr.ProfitLoss = Float(-3)
	assert.True(t, tr.IsWin())

	tr.Outcome = "pending"
	assert.Equal(t, OutcomeOpen, tr.ResolvedOutcome())

	assert.Equal(t, OutcomeOpen, (&Trade{}).ResolvedOutcome())
}

func TestTradePnL(t *testing.T) {
	assert.Equal(t, 0.0, (&Trade{}).PnL())
	assert.Equal(t, 0.0, (&Trade{ProfitLoss: Float(math.NaN())}).PnL())
	assert.Equal(t, 0.0, (&Trade{ProfitLoss: Float(math.Inf(1))}).PnL())
	assert.Equal(t, -42.5, (&Trade{ProfitLoss: Float(-42.5)}).PnL())
}

func TestTradeClosedAt(t *testing.T) {
	entry := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	exit := entry.Add(3 * time.Hour)

	tr := Trade{EntryTime: entry}
	assert.Equal(t, entry, tr.ClosedAt())

	tr.ExitTime = &exit
	assert.Equal(t, exit, tr.ClosedAt())
}

func TestParseEmotionalDrift(t *testing.T) {
	d, err := ParseEmotionalDrift("")
	require.NoError(t, err)
	assert.Nil(t, d)

	d, err = ParseEmotionalDrift(`{"preEmotion":"calm","confidenceChange":-10,"stressChange":5,"timeToRecover":2}`)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "calm", d.PreEmotion)
	assert.Equal(t, -10.0, d.ConfidenceChange)
	assert.Equal(t, 5.0, d.StressChange)
	require.NotNil(t, d.TimeToRecover)
	assert.Equal(t, 2.0, *d.TimeToRecover)

	_, err = ParseEmotionalDrift("{not json")
	assert.Error(t, err)
}

func TestParseRuleChecks(t *testing.T) {
	checks, err := ParseRuleChecks("null")
	require.NoError(t, err)
	assert.Nil(t, checks)

	checks, err = ParseRuleChecks(`[{"ruleId":"r1","name":"No news","followed":false}]`)
	require.NoError(t, err)
	assert.Equal(t, []RuleCheck{{RuleID: "r1", Name: "No news", Followed: false}}, checks)

	_, err = ParseRuleChecks(`{"ruleId":"r1"}`)
	assert.Error(t, err)
}

func TestPeriodTypeValid(t *testing.T) {
	for _, pt := range PeriodTypes {
		assert.True(t, pt.Valid())
	}
	assert.False(t, PeriodType("hourly").Valid())
}
