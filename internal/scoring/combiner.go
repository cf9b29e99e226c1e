package scoring

import (
	"time"

	"trade-journal/internal/models"
)

// DecisionScore blends decision quality (60%) and execution quality (40%)
// into one 0-100 score.
func (e *Engine) DecisionScore(t *models.Trade) int {
	return combine(e.DecisionQuality(t).Score, e.ExecutionQuality(t).Score)
}

func combine(decision, execution int) int {
	return clampScore(float64(decision*60+execution*40) / 100)
}

// QualityLabel buckets a 0-100 decision score.
func QualityLabel(score int) string {
	switch {
	case score >= 80:
		return models.QualityExcellent
	case score >= 60:
		return models.QualityGood
	case score >= 40:
		return models.QualityPoor
	default:
		return models.QualityTerrible
	}
}

// Classify places a decision score against the actual outcome.
// Breakeven and open trades are neither wins nor losses, so a good score
// with such an outcome falls through to bad_decision_bad_outcome.
func (e *Engine) Classify(score int, outcome models.Outcome) string {
	good := score >= e.th.GoodDecisionScore
	switch outcome.Normalize() {
	case models.OutcomeLoss:
		if good {
			return models.GoodDecisionBadOutcome
		}
	case models.OutcomeWin:
		if good {
			return models.GoodDecisionGoodOutcome
		}
		return models.BadDecisionGoodOutcome
	}
	return models.BadDecisionBadOutcome
}

// ScoreTrade runs every per-trade scorer and combines the results.
func (e *Engine) ScoreTrade(t *models.Trade, now time.Time) models.TradeScores {
	dq := e.DecisionQuality(t)
	eq := e.ExecutionQuality(t)
	score := combine(dq.Score, eq.Score)

	return models.TradeScores{
		TradeID:          t.ID,
		DecisionQuality:  dq,
		ExecutionQuality: eq,
		EmotionalCost:    e.EmotionalCost(t),
		DecisionScore:    score,
		Quality:          QualityLabel(score),
		Classification:   e.Classify(score, t.ResolvedOutcome()),
		ComputedAt:       now,
	}
}
