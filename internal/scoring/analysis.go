package scoring

import (
	"fmt"
	"strings"

	"trade-journal/internal/models"
)

const baseAnalysisFactor = 50.0

// AnalyzeDecision rates a trade decision on six 0-100 factors and classifies
// it against the actual outcome. It is kept separate from DecisionQuality:
// the factor names, scales and weights differ and both are consumed by
// different callers.
//
// Weights: ruleAdherence 25%, timingQuality 20%, emotionalStability 20%,
// riskManagement 15%, marketAnalysis 10%, executionQuality 10%, plus a
// five point bonus for high conviction backed by market analysis.
func (e *Engine) AnalyzeDecision(t *models.Trade) models.DecisionAnalysis {
	res := models.DecisionAnalysis{
		Mistakes:        []string{},
		Strengths:       []string{},
		Recommendations: []string{},
	}

	f := models.AnalysisFactors{
		RuleAdherence:      baseAnalysisFactor,
		TimingQuality:      baseAnalysisFactor,
		EmotionalStability: baseAnalysisFactor,
		RiskManagement:     baseAnalysisFactor,
		MarketAnalysis:     baseAnalysisFactor,
		ExecutionQuality:   baseAnalysisFactor,
	}

	// Rule adherence
	if t.HasStrategy() {
		f.RuleAdherence += 20
		res.Strengths = append(res.Strengths, "Strategy rules were followed")
	} else {
		f.RuleAdherence -= 20
		res.Mistakes = append(res.Mistakes, "Trade taken without a strategy")
		res.Recommendations = append(res.Recommendations, "Only trade setups defined in your strategies")
	}
	for _, rc := range t.RuleChecks {
		if !rc.Followed {
			f.RuleAdherence -= 10
			res.Mistakes = append(res.Mistakes, fmt.Sprintf("Broke rule: %s", ruleLabel(rc)))
		}
	}

	// Emotional stability
	if t.EmotionalDrift != nil {
		switch pre := strings.ToLower(strings.TrimSpace(t.EmotionalDrift.PreEmotion)); pre {
		case "calm", "confident":
			f.EmotionalStability += 20
			res.Strengths = append(res.Strengths, "Entered in a calm, confident state")
		case "anxious", "frustrated":
			f.EmotionalStability -= 20
			res.Mistakes = append(res.Mistakes, "Entered while anxious or frustrated")
			res.Recommendations = append(res.Recommendations, "Step away from the screen when anxious or frustrated")
		}
	}

	// Risk management
	if t.StopLoss != nil {
		f.RiskManagement += 20
		res.Strengths = append(res.Strengths, "Stop loss defined")
	} else {
		f.RiskManagement -= 20
		res.Mistakes = append(res.Mistakes, "No stop loss defined")
		res.Recommendations = append(res.Recommendations, "Define a stop loss before every entry")
	}
	if t.TakeProfit != nil {
		f.RiskManagement += 10
	} else {
		f.RiskManagement -= 10
		res.Mistakes = append(res.Mistakes, "No profit target defined")
	}
	if t.RiskRewardRatio != nil && *t.RiskRewardRatio >= 2 {
		f.RiskManagement += 10
		res.Strengths = append(res.Strengths, "Good risk-reward ratio")
	}

	// Market analysis
	if t.HasMarketCondition() {
		f.MarketAnalysis += 25
		res.Strengths = append(res.Strengths, "Market condition analysed")
	} else {
		res.Recommendations = append(res.Recommendations, "Note the market condition before entering")
	}

	// Timing
	tf := strings.ToLower(t.Timeframe)
	switch {
	case containsAny(tf, "h1", "h4", "d1"):
		f.TimingQuality += 15
		res.Strengths = append(res.Strengths, "Entry timed on a higher timeframe")
	case containsAny(tf, "m5", "m15"):
		f.TimingQuality -= 10
		res.Mistakes = append(res.Mistakes, "Low timeframe entry prone to noise")
	}

	// Execution
	notes := strings.ToLower(t.ExecutionNotes)
	switch {
	case containsAny(notes, "hesitation", "delayed"):
		f.ExecutionQuality -= 20
		res.Mistakes = append(res.Mistakes, "Hesitation or delayed execution")
		res.Recommendations = append(res.Recommendations, "Prepare orders in advance to execute without hesitation")
	case strings.TrimSpace(notes) != "":
		f.ExecutionQuality += 10
	}

	f.RuleAdherence = clamp(f.RuleAdherence, 0, 100)
	f.TimingQuality = clamp(f.TimingQuality, 0, 100)
	f.EmotionalStability = clamp(f.EmotionalStability, 0, 100)
	f.RiskManagement = clamp(f.RiskManagement, 0, 100)
	f.MarketAnalysis = clamp(f.MarketAnalysis, 0, 100)
	f.ExecutionQuality = clamp(f.ExecutionQuality, 0, 100)
	res.Factors = f

	score := (f.RuleAdherence*25 +
		f.TimingQuality*20 +
		f.EmotionalStability*20 +
		f.RiskManagement*15 +
		f.MarketAnalysis*10 +
		f.ExecutionQuality*10) / 100
	if t.Conviction != nil && *t.Conviction > 7 && f.MarketAnalysis > 70 {
		score += 5
	}

	res.Score = clampScore(score)
	res.Quality = QualityLabel(res.Score)
	res.Classification = e.Classify(res.Score, t.ResolvedOutcome())

	return res
}

func ruleLabel(rc models.RuleCheck) string {
	if rc.Name != "" {
		return rc.Name
	}
	return rc.RuleID
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
