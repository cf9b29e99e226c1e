package scoring

import (
	"trade-journal/internal/models"
)

// Neutral factor baselines of the decision quality scorer (0-10 scale).
const (
	baseSetupQuality       = 6.0
	baseTimingQuality      = 7.0
	baseRiskManagement     = 5.0
	strategyAttached       = 8.0
	strategyMissing        = 4.0
	marketConditionTagged  = 8.0
	marketConditionMissing = 5.0
)

// Holding time bounds in minutes.
const (
	minHoldingMinutes     = 5.0
	maxHoldingMinutes     = 480.0
	healthyHoldingMinimum = 15.0
	healthyHoldingMaximum = 240.0
)

// DecisionQuality rates the soundness of the decision to enter a trade.
//
// Five factors on a 0-10 scale are weighted into a composite that is reported
// on a 0-100 scale:
//
//	setupQuality 25%, timingQuality 20%, riskManagement 25%,
//	strategyAlignment 15%, marketConditionMatch 15%
func (e *Engine) DecisionQuality(t *models.Trade) models.DecisionQuality {
	res := models.DecisionQuality{
		Mistakes:        []string{},
		Strengths:       []string{},
		LearningPoints:  []string{},
		Recommendations: []string{},
	}

	setup := baseSetupQuality
	timing := baseTimingQuality
	risk := baseRiskManagement
	strategy := strategyMissing
	market := marketConditionMissing

	rr := t.RiskRewardRatio
	hasStop := t.StopLoss != nil
	hasTarget := t.TakeProfit != nil

	// Setup
	if rr != nil && *rr >= 2 {
		setup += 2
		res.Strengths = append(res.Strengths, "Good risk-reward ratio")
	}
	if hasStop && hasTarget {
		setup++
		res.Strengths = append(res.Strengths, "Clear stop and target levels")
	}
	if t.SetupQuality != nil {
		setup = *t.SetupQuality
	}

	// Timing
	if t.HoldingTimeMinutes != nil {
		held := *t.HoldingTimeMinutes
		switch {
		case held < minHoldingMinutes:
			timing -= 2
			res.Mistakes = append(res.Mistakes, "Very short holding time")
			res.LearningPoints = append(res.LearningPoints, "Allow trades more time to develop")
		case held > maxHoldingMinutes:
			timing--
			res.Mistakes = append(res.Mistakes, "Very long holding time")
			res.LearningPoints = append(res.LearningPoints, "Consider taking profits earlier")
		case held >= healthyHoldingMinimum && held <= healthyHoldingMaximum:
			timing++
			res.Strengths = append(res.Strengths, "Holding time suited the setup")
		}
	}
	if reachedTarget(t) {
		timing++
		res.Strengths = append(res.Strengths, "Exited at the planned target")
	}
	if underEmotionalPressure(t.EmotionalDrift) {
		timing -= 2
		res.Mistakes = append(res.Mistakes, "Trade taken under emotional pressure")
		res.LearningPoints = append(res.LearningPoints, "Pause trading after large emotional swings")
	}

	// Risk management
	if hasStop {
		risk += 2
		res.Strengths = append(res.Strengths, "Stop loss in place")
	} else {
		risk -= 3
		res.Mistakes = append(res.Mistakes, "No stop loss")
		res.LearningPoints = append(res.LearningPoints, "Always use stop losses")
		res.Recommendations = append(res.Recommendations, "Make a stop loss mandatory before entering any trade")
	}
	if rr != nil {
		switch {
		case *rr >= 2:
			risk += 2
			res.Strengths = append(res.Strengths, "Risk-reward of at least 2:1")
		case *rr < 1:
			risk -= 2
			res.Mistakes = append(res.Mistakes, "Poor risk-reward ratio")
			res.LearningPoints = append(res.LearningPoints, "Only take trades with RR >= 2:1")
		}
	}

	// Strategy alignment
	if t.HasStrategy() {
		strategy = strategyAttached
		res.Strengths = append(res.Strengths, "Trade followed a defined strategy")
	} else {
		res.Mistakes = append(res.Mistakes, "No strategy attached")
		res.LearningPoints = append(res.LearningPoints, "Define the strategy before entering a trade")
		res.Recommendations = append(res.Recommendations, "Link every trade to a documented strategy")
	}

	// Market condition
	if t.HasMarketCondition() {
		market = marketConditionTagged
		res.Strengths = append(res.Strengths, "Market condition identified")
	} else {
		res.Mistakes = append(res.Mistakes, "Market condition not assessed")
		res.LearningPoints = append(res.LearningPoints, "Assess the market condition before entry")
		res.Recommendations = append(res.Recommendations, "Tag the market condition when logging a trade")
	}

	res.Factors = models.DecisionFactors{
		SetupQuality:         clamp(setup, 0, 10),
		TimingQuality:        clamp(timing, 0, 10),
		RiskManagement:       clamp(risk, 0, 10),
		StrategyAlignment:    clamp(strategy, 0, 10),
		MarketConditionMatch: clamp(market, 0, 10),
	}

	// Integer percentage weights keep the composite exact for whole factors.
	f := res.Factors
	weighted := f.SetupQuality*25 +
		f.TimingQuality*20 +
		f.RiskManagement*25 +
		f.StrategyAlignment*15 +
		f.MarketConditionMatch*15
	res.Score = clampScore(weighted / 10)

	return res
}

// reachedTarget reports whether the trade exited at or beyond its take-profit.
func reachedTarget(t *models.Trade) bool {
	if t.TakeProfit == nil || t.ExitPrice == nil {
		return false
	}
	if t.Direction == models.DirectionShort {
		return *t.ExitPrice <= *t.TakeProfit
	}
	return *t.ExitPrice >= *t.TakeProfit
}

// underEmotionalPressure reports a confidence collapse or stress spike large
// enough to have compromised the decision.
func underEmotionalPressure(d *models.EmotionalDrift) bool {
	if d == nil {
		return false
	}
	return d.ConfidenceChange < -20 || d.StressChange > 30
}
