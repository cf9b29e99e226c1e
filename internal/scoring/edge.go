package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"trade-journal/internal/models"
)

// ProfitFactorCap stands in for an unbounded profit factor (gross profit with
// no gross loss).
const ProfitFactorCap = 999.0

const recentWindow = 10

// EdgeConfidence aggregates the trades of one strategy into performance
// statistics and an edge confidence score. Trades are processed in
// chronological order of entry; the input slice is not modified.
func (e *Engine) EdgeConfidence(strategyID string, trades []models.Trade, now time.Time) models.StrategyPerformance {
	ordered := make([]models.Trade, len(trades))
	copy(ordered, trades)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].EntryTime.Before(ordered[j].EntryTime)
	})

	perf := e.strategyStats(ordered)
	perf.StrategyID = strategyID
	perf.ComputedAt = now

	n := len(ordered)
	if n < e.th.MinEdgeSample {
		perf.EdgeConfidence = e.th.InsufficientSampleScore
		perf.Insights = []string{
			fmt.Sprintf("Need at least %d trades for a reliable edge estimate (have %d)", e.th.MinEdgeSample, n),
		}
		return perf
	}

	confidence := 50.0

	overall := winFraction(ordered)
	recent := winFraction(ordered[max(0, n-recentWindow):])
	switch diff := math.Abs(overall - recent); {
	case diff < 0.1:
		confidence += 15
	case diff > 0.3:
		confidence -= 20
	}

	confidence += (perf.GoodDecisionRatio - 0.5) * 40

	if distinctMarketConditions(ordered) >= 3 {
		confidence += 10
	}

	withEmotion, steady := 0, 0
	for i := range ordered {
		d := ordered[i].EmotionalDrift
		if d == nil || strings.TrimSpace(d.PreEmotion) == "" {
			continue
		}
		withEmotion++
		if IsSteadyEmotion(d.PreEmotion) {
			steady++
		}
	}
	if withEmotion > 0 && float64(steady)/float64(withEmotion) >= 0.7 {
		confidence += 10
	}

	attached := 0
	for i := range ordered {
		if ordered[i].HasStrategy() {
			attached++
		}
	}
	if float64(attached)/float64(n) > 0.8 {
		confidence += 10
	}

	if n >= 50 {
		confidence += 5
	}
	if n >= 100 {
		confidence += 5
	}

	perf.EdgeConfidence = clampScore(confidence)
	perf.Insights = e.edgeInsights(perf)
	return perf
}

// strategyStats computes the sample statistics shared by every edge
// confidence result, regardless of sample size.
func (e *Engine) strategyStats(trades []models.Trade) models.StrategyPerformance {
	var perf models.StrategyPerformance
	n := len(trades)
	perf.TotalTrades = n
	perf.Insights = []string{}
	if n == 0 {
		perf.ProfitFactor = 1
		return perf
	}

	total := decimal.Zero
	grossProfit := decimal.Zero
	grossLoss := decimal.Zero
	wins, good := 0, 0
	best, worst := math.Inf(-1), math.Inf(1)

	var cumulative, peak, drawdown float64
	pnls := make([]float64, n)

	for i := range trades {
		t := &trades[i]
		pnl := t.PnL()
		pnls[i] = pnl

		d := decimal.NewFromFloat(pnl)
		total = total.Add(d)
		if pnl > 0 {
			grossProfit = grossProfit.Add(d)
		} else if pnl < 0 {
			grossLoss = grossLoss.Add(d.Neg())
		}
		best = math.Max(best, pnl)
		worst = math.Min(worst, pnl)

		if t.IsWin() {
			wins++
		}
		if c := e.classification(t); c == models.GoodDecisionGoodOutcome || c == models.GoodDecisionBadOutcome {
			good++
		}

		cumulative += pnl
		if cumulative > peak {
			peak = cumulative
		}
		if gap := peak - cumulative; gap > drawdown {
			drawdown = gap
		}
	}

	count := decimal.NewFromInt(int64(n))
	perf.WinRate = round2(float64(wins) / float64(n) * 100)
	perf.AvgProfitLoss = total.Div(count).Round(2).InexactFloat64()
	perf.GrossProfit = grossProfit.Round(2).InexactFloat64()
	perf.GrossLoss = grossLoss.Round(2).InexactFloat64()
	perf.ProfitFactor = profitFactor(grossProfit, grossLoss)
	perf.BestTrade = best
	perf.WorstTrade = worst
	perf.ConsistencyScore = round2(math.Max(0, 100-math.Sqrt(variance(pnls))))
	perf.DrawdownMax = round2(drawdown)
	perf.GoodDecisionRatio = round2(float64(good) / float64(n))
	return perf
}

// classification returns the persisted classification of a trade when it has
// one, otherwise it scores the trade.
func (e *Engine) classification(t *models.Trade) string {
	if t.Scores != nil && t.Scores.Classification != "" {
		return t.Scores.Classification
	}
	return e.Classify(e.DecisionScore(t), t.ResolvedOutcome())
}

func (e *Engine) edgeInsights(perf models.StrategyPerformance) []string {
	var insights []string

	switch {
	case perf.EdgeConfidence >= e.th.EdgeStrong:
		insights = append(insights, "Strong statistical edge - this strategy is performing consistently")
	case perf.EdgeConfidence >= e.th.EdgeModerate:
		insights = append(insights, "Moderate edge - keep following the strategy rules")
	case perf.EdgeConfidence >= e.th.EdgeWeak:
		insights = append(insights, "Weak edge - review entry criteria and rule adherence")
	default:
		insights = append(insights, "No reliable edge detected - consider pausing or reworking this strategy")
	}

	switch {
	case perf.ConsistencyScore >= e.th.ConsistencyHigh:
		insights = append(insights, "Results are highly consistent")
	case perf.ConsistencyScore >= e.th.ConsistencyModerate:
		insights = append(insights, "Results are moderately consistent")
	default:
		insights = append(insights, "Results are inconsistent - review position sizing")
	}

	switch {
	case perf.GoodDecisionRatio >= e.th.DecisionRatioHigh:
		insights = append(insights, "Most decisions were sound regardless of outcome")
	case perf.GoodDecisionRatio >= e.th.DecisionRatioLow:
		insights = append(insights, "Decision quality is mixed")
	default:
		insights = append(insights, "Decision quality needs work - focus on process over outcome")
	}

	return insights
}

func profitFactor(grossProfit, grossLoss decimal.Decimal) float64 {
	if grossLoss.IsZero() {
		if grossProfit.IsPositive() {
			return ProfitFactorCap
		}
		return 1
	}
	pf := grossProfit.Div(grossLoss).Round(2).InexactFloat64()
	return math.Min(pf, ProfitFactorCap)
}

func winFraction(trades []models.Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	wins := 0
	for i := range trades {
		if trades[i].IsWin() {
			wins++
		}
	}
	return float64(wins) / float64(len(trades))
}

func distinctMarketConditions(trades []models.Trade) int {
	seen := make(map[string]struct{})
	for i := range trades {
		if c := strings.ToLower(strings.TrimSpace(trades[i].MarketCondition)); c != "" {
			seen[c] = struct{}{}
		}
	}
	return len(seen)
}

// variance returns the population variance of values.
func variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var sum float64
	for _, v := range values {
		sum += (v - mean) * (v - mean)
	}
	return sum / float64(len(values))
}
