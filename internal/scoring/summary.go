package scoring

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"trade-journal/internal/models"
)

// PeriodWindow returns the half-open window [start, end) of the given period
// type that contains ref. Windows are computed in ref's location; weeks start
// on Monday.
func PeriodWindow(pt models.PeriodType, ref time.Time) (time.Time, time.Time, error) {
	y, m, d := ref.Date()
	loc := ref.Location()
	day := time.Date(y, m, d, 0, 0, 0, 0, loc)

	switch pt {
	case models.PeriodDaily:
		return day, day.AddDate(0, 0, 1), nil
	case models.PeriodWeekly:
		offset := (int(day.Weekday()) + 6) % 7
		start := day.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7), nil
	case models.PeriodMonthly:
		start := time.Date(y, m, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 1, 0), nil
	case models.PeriodQuarterly:
		start := time.Date(y, ((m-1)/3)*3+1, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 3, 0), nil
	case models.PeriodHalfYear:
		first := time.January
		if m > time.June {
			first = time.July
		}
		start := time.Date(y, first, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 6, 0), nil
	case models.PeriodYearly:
		start := time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(1, 0, 0), nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown period type %q", pt)
	}
}

// Summarize rolls up a user's trades over the period window containing ref.
// Trades outside the window or belonging to another user are ignored, so the
// caller may pass a superset.
func (e *Engine) Summarize(userID string, pt models.PeriodType, ref time.Time, trades []models.Trade, now time.Time) (models.PeriodSummary, error) {
	start, end, err := PeriodWindow(pt, ref)
	if err != nil {
		return models.PeriodSummary{}, err
	}

	sum := models.PeriodSummary{
		UserID:            userID,
		PeriodType:        pt,
		WindowStart:       start,
		WindowEnd:         end,
		EmotionalPatterns: map[string]models.EmotionalPattern{},
		ComputedAt:        now,
	}

	var inWindow []models.Trade
	for i := range trades {
		t := &trades[i]
		if userID != "" && t.UserID != userID {
			continue
		}
		at := t.ClosedAt()
		if at.Before(start) || !at.Before(end) {
			continue
		}
		inWindow = append(inWindow, *t)
	}

	total := decimal.Zero
	byStrategy := map[string]decimal.Decimal{}
	byEntryModel := map[string]decimal.Decimal{}
	scored, scoreSum := 0, 0

	for i := range inWindow {
		t := &inWindow[i]
		pnl := decimal.NewFromFloat(t.PnL())
		total = total.Add(pnl)

		switch t.ResolvedOutcome() {
		case models.OutcomeWin:
			sum.WinCount++
		case models.OutcomeLoss:
			sum.LossCount++
		case models.OutcomeBreakeven:
			sum.BreakevenCount++
		}

		if name := strategyLabel(t); name != "" {
			byStrategy[name] = byStrategy[name].Add(pnl)
		}
		if model := strings.TrimSpace(t.EntryModel); model != "" {
			byEntryModel[model] = byEntryModel[model].Add(pnl)
		}

		if t.EmotionalDrift != nil {
			if label := strings.ToLower(strings.TrimSpace(t.EmotionalDrift.PreEmotion)); label != "" {
				p := sum.EmotionalPatterns[label]
				p.Count++
				if t.IsWin() {
					p.Wins++
				}
				p.TotalPnL = decimal.NewFromFloat(p.TotalPnL).Add(pnl).Round(2).InexactFloat64()
				sum.EmotionalPatterns[label] = p
			}
		}

		if t.Scores != nil {
			scored++
			scoreSum += t.Scores.DecisionScore
		}
	}

	sum.TotalTrades = len(inWindow)
	sum.TotalPnL = total.Round(2).InexactFloat64()
	if sum.TotalTrades > 0 {
		sum.WinRate = round2(float64(sum.WinCount) / float64(sum.TotalTrades) * 100)
		sum.Expectancy = total.Div(decimal.NewFromInt(int64(sum.TotalTrades))).Round(2).InexactFloat64()
	}
	sum.BestStrategy, sum.WorstStrategy = extremes(byStrategy)
	sum.BestEntryModel, sum.WorstEntryModel = extremes(byEntryModel)
	sum.RuleAdherence = DisciplineScore(inWindow)
	if scored > 0 {
		sum.AvgDecisionScore = round2(float64(scoreSum) / float64(scored))
	}

	return sum, nil
}

// DisciplineScore returns the percentage of rule checks that were followed
// across trades, or 0 when no rule was checked.
func DisciplineScore(trades []models.Trade) float64 {
	checks, violated := 0, 0
	for i := range trades {
		for _, rc := range trades[i].RuleChecks {
			checks++
			if !rc.Followed {
				violated++
			}
		}
	}
	if checks == 0 {
		return 0
	}
	return round2(float64(checks-violated) / float64(checks) * 100)
}

func strategyLabel(t *models.Trade) string {
	if name := strings.TrimSpace(t.StrategyName); name != "" {
		return name
	}
	return strings.TrimSpace(t.StrategyID)
}

// extremes returns the keys with the highest and lowest summed P&L.
// Ties resolve alphabetically.
func extremes(totals map[string]decimal.Decimal) (best, worst string) {
	if len(totals) == 0 {
		return "", ""
	}
	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	best, worst = keys[0], keys[0]
	for _, k := range keys[1:] {
		if totals[k].GreaterThan(totals[best]) {
			best = k
		}
		if totals[k].LessThan(totals[worst]) {
			worst = k
		}
	}
	return best, worst
}
