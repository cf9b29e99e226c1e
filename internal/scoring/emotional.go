package scoring

import (
	"math"
	"strings"

	"trade-journal/internal/models"
)

// EmotionalCost quantifies the psychological cost of a single trade from its
// emotional drift. A trade without drift data falls back to an estimate based
// on the outcome alone. A drift record whose deltas are all zero is still
// scored through the delta formula.
func (e *Engine) EmotionalCost(t *models.Trade) models.EmotionalCostMetrics {
	loss := t.IsLoss()
	d := t.EmotionalDrift

	if d == nil {
		if loss {
			return models.EmotionalCostMetrics{
				EmotionalCostScore:      25,
				StressAccumulation:      10,
				DecisionQualityImpact:   5,
				FuturePerformanceImpact: 12,
				RecoveryTimeMinutes:     60,
				Insights:                []string{"No emotional data recorded - estimate based on the losing outcome"},
			}
		}
		return models.EmotionalCostMetrics{
			EmotionalCostScore:      10,
			StressAccumulation:      0,
			DecisionQualityImpact:   0,
			FuturePerformanceImpact: 5,
			RecoveryTimeMinutes:     15,
			Insights:                []string{"No emotional data recorded"},
		}
	}

	confidenceDrop := math.Max(0, -d.ConfidenceChange)
	stressRise := math.Max(0, d.StressChange)
	focusDrop := math.Max(0, -d.FocusChange)
	energyDrop := math.Max(0, -d.EnergyChange)
	negativeEntry := emotionIn(d.PreEmotion, negativeEmotions)

	raw := 10.0
	if loss {
		raw += 15
	}
	if negativeEntry {
		raw += 10
	}
	if d.PostIntensity-d.PreIntensity > 3 {
		raw += 10
	}
	raw += confidenceDrop*0.5 + stressRise*0.6 + focusDrop*0.3 + energyDrop*0.2
	score := clampScore(raw)

	stress := stressRise*1.2 + confidenceDrop*0.3
	if loss {
		stress += 10
	}
	if negativeEntry {
		stress += d.PreIntensity * 2
	}
	stress = round2(math.Max(0, stress))

	recovery := float64(score) * 3
	if d.TimeToRecover != nil && *d.TimeToRecover >= 0 {
		recovery = *d.TimeToRecover * 60
	}

	var insights []string
	if score >= 70 {
		insights = append(insights, "High emotional cost - take a break before the next trade")
	}
	if stressRise > 30 {
		insights = append(insights, "Stress spiked during this trade")
	}
	if confidenceDrop > 20 {
		insights = append(insights, "Confidence dropped sharply after this trade")
	}
	if recovery > 24*60 {
		insights = append(insights, "Recovery took more than a day - watch for lingering effects")
	}
	if len(insights) == 0 {
		insights = append(insights, "Emotional state stayed under control")
	}

	return models.EmotionalCostMetrics{
		EmotionalCostScore:      score,
		StressAccumulation:      stress,
		DecisionQualityImpact:   round2(clamp(confidenceDrop*0.8+focusDrop*0.6+stressRise*0.4, 0, 100)),
		FuturePerformanceImpact: round2(clamp(float64(score)*0.6+stress*0.2, 0, 100)),
		RecoveryTimeMinutes:     round2(recovery),
		Insights:                insights,
	}
}

// EmotionalCostFromFactors computes immediate and long-term emotional cost
// from an explicit set of emotional factors.
func EmotionalCostFromFactors(f models.EmotionalCostFactors) models.EmotionalCostBreakdown {
	var immediate, longTerm, stress float64
	recs := []string{}

	if emotionIn(f.PreTradeEmotion, negativeEmotions) {
		immediate += 30
		stress += f.PreTradeIntensity * 2
		recs = append(recs, "Consider waiting until you feel calmer before entering a trade")
	} else {
		immediate += 10
		stress += f.PreTradeIntensity * 0.5
	}

	shift := f.PostTradeIntensity - f.PreTradeIntensity
	switch {
	case shift > 3:
		immediate += 25
		longTerm += 15
		stress += shift * 3
		recs = append(recs, "Large emotional swing during the trade - review your trade management")
	case shift < -2:
		immediate += 15
		recs = append(recs, "Emotional intensity eased after the trade - a healthy sign of release")
	}

	post := strings.ToLower(strings.TrimSpace(f.PostTradeEmotion))
	switch f.Outcome.Normalize() {
	case models.OutcomeLoss:
		immediate += 20
		longTerm += 10
		if post == "frustrated" || post == "angry" {
			immediate += 15
			longTerm += 20
			stress += 15
			recs = append(recs, "Warning: frustration after a loss is a revenge trading risk - stop for the day")
		}
	case models.OutcomeWin:
		if post == "overconfident" || post == "euphoric" {
			immediate += 10
			longTerm += 15
			recs = append(recs, "Warning: overconfidence after a win often leads to oversized positions")
		}
	}

	if f.TradeSize > 100 {
		immediate *= 1.3
		longTerm *= 1.2
		stress *= 1.4
		recs = append(recs, "Large position size amplified the emotional impact - consider sizing down")
	}

	recovery := math.Max(0, f.TimeToRecover)
	if recovery > 24 {
		longTerm += 20
		recs = append(recs, "Recovery took more than 24 hours - this trade had a lasting emotional impact")
	} else if recovery < 1 {
		recs = append(recs, "Quick emotional recovery - good resilience")
	}

	stress += f.StressLevel * 2
	if f.StressLevel > 7 {
		immediate += 15
		longTerm += 10
		recs = append(recs, "High stress during the trade - take a break or trade smaller positions")
	}

	return models.EmotionalCostBreakdown{
		ImmediateCost:      clampScore(immediate),
		LongTermCost:       clampScore(longTerm),
		RecoveryTime:       recovery,
		StressAccumulation: math.Max(0, math.Round(stress)),
		Recommendations:    recs,
	}
}
