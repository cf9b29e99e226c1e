package models

import "time"

// DecisionFactors is the factor breakdown of the decision quality scorer.
// Each factor is on a 0-10 scale.
type DecisionFactors struct {
	SetupQuality         float64 `json:"setupQuality"`
	TimingQuality        float64 `json:"timingQuality"`
	RiskManagement       float64 `json:"riskManagement"`
	StrategyAlignment    float64 `json:"strategyAlignment"`
	MarketConditionMatch float64 `json:"marketConditionMatch"`
}

// DecisionQuality is the result of the decision quality scorer.
type DecisionQuality struct {
	Score           int             `json:"score"`
	Factors         DecisionFactors `json:"factors"`
	Mistakes        []string        `json:"mistakes"`
	Strengths       []string        `json:"strengths"`
	LearningPoints  []string        `json:"learningPoints"`
	Recommendations []string        `json:"recommendations"`
}

// AnalysisFactors is the factor breakdown of the decision analysis.
// Each factor is on a 0-100 scale.
type AnalysisFactors struct {
	RuleAdherence      float64 `json:"ruleAdherence"`
	TimingQuality      float64 `json:"timingQuality"`
	EmotionalStability float64 `json:"emotionalStability"`
	RiskManagement     float64 `json:"riskManagement"`
	MarketAnalysis     float64 `json:"marketAnalysis"`
	ExecutionQuality   float64 `json:"executionQuality"`
}

// DecisionAnalysis is the result of the six-factor decision analysis.
type DecisionAnalysis struct {
	Score           int             `json:"score"`
	Quality         string          `json:"quality"`
	Classification  string          `json:"classification"`
	Factors         AnalysisFactors `json:"factors"`
	Mistakes        []string        `json:"mistakes"`
	Strengths       []string        `json:"strengths"`
	Recommendations []string        `json:"recommendations"`
}

// ExecutionFactors is the factor breakdown of the execution quality scorer.
// Each factor is on a 0-10 scale.
type ExecutionFactors struct {
	EntryPrecision   float64 `json:"entryPrecision"`
	StopPlacement    float64 `json:"stopPlacement"`
	PositionSizing   float64 `json:"positionSizing"`
	ExitDiscipline   float64 `json:"exitDiscipline"`
	EmotionalControl float64 `json:"emotionalControl"`
}

// ExecutionQuality is the result of the execution quality scorer.
type ExecutionQuality struct {
	Score   int              `json:"score"`
	Factors ExecutionFactors `json:"factors"`
}

// EmotionalCostMetrics is the result of the per-trade emotional cost scorer.
type EmotionalCostMetrics struct {
	EmotionalCostScore      int      `json:"emotionalCostScore"`
	StressAccumulation      float64  `json:"stressAccumulation"`
	DecisionQualityImpact   float64  `json:"decisionQualityImpact"`
	FuturePerformanceImpact float64  `json:"futurePerformanceImpact"`
	RecoveryTimeMinutes     float64  `json:"recoveryTimeMinutes"`
	Insights                []string `json:"insights"`
}

// EmotionalCostFactors is the explicit input of the factor-based emotional
// cost calculation.
type EmotionalCostFactors struct {
	PreTradeEmotion    string  `json:"preTradeEmotion"`
	PreTradeIntensity  float64 `json:"preTradeIntensity"`
	PostTradeEmotion   string  `json:"postTradeEmotion"`
	PostTradeIntensity float64 `json:"postTradeIntensity"`
	Outcome            Outcome `json:"outcome"`
	TradeSize          float64 `json:"tradeSize"`
	TimeToRecover      float64 `json:"timeToRecover"` // hours
	StressLevel        float64 `json:"stressLevel"`   // 1-10
}

// EmotionalCostBreakdown is the result of the factor-based emotional cost
// calculation.
type EmotionalCostBreakdown struct {
	ImmediateCost      int      `json:"immediateCost"`
	LongTermCost       int      `json:"longTermCost"`
	RecoveryTime       float64  `json:"recoveryTime"` // hours
	StressAccumulation float64  `json:"stressAccumulation"`
	Recommendations    []string `json:"recommendations"`
}

// Decision classifications separate skill from luck.
const (
	GoodDecisionGoodOutcome = "good_decision_good_outcome"
	GoodDecisionBadOutcome  = "good_decision_bad_outcome"
	BadDecisionGoodOutcome  = "bad_decision_good_outcome"
	BadDecisionBadOutcome   = "bad_decision_bad_outcome"
)

// Quality labels for a 0-100 decision score.
const (
	QualityExcellent = "excellent"
	QualityGood      = "good"
	QualityPoor      = "poor"
	QualityTerrible  = "terrible"
)

// TradeScores bundles every per-trade score computed for one trade.
type TradeScores struct {
	TradeID          string               `json:"tradeId"`
	DecisionQuality  DecisionQuality      `json:"decisionQuality"`
	ExecutionQuality ExecutionQuality     `json:"executionQuality"`
	EmotionalCost    EmotionalCostMetrics `json:"emotionalCost"`
	DecisionScore    int                  `json:"decisionScore"`
	Quality          string               `json:"quality"`
	Classification   string               `json:"classification"`
	ComputedAt       time.Time            `json:"computedAt"`
}

// ScoreKind identifies the kind of a score history entry.
type ScoreKind string

const (
	ScoreKindTrade    ScoreKind = "trade_scores"
	ScoreKindAnalysis ScoreKind = "decision_analysis"
)

// ScoreRecord is one entry of a trade's score history.
type ScoreRecord struct {
	ID        string    `json:"id"`
	TradeID   string    `json:"tradeId"`
	Kind      ScoreKind `json:"kind"`
	Score     int       `json:"score"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"createdAt"`
}

// StrategyPerformance is the aggregate over all trades of one strategy.
type StrategyPerformance struct {
	StrategyID        string    `json:"strategyId"`
	TotalTrades       int       `json:"totalTrades"`
	WinRate           float64   `json:"winRate"` // percent
	AvgProfitLoss     float64   `json:"avgProfitLoss"`
	GrossProfit       float64   `json:"grossProfit"`
	GrossLoss         float64   `json:"grossLoss"`
	ProfitFactor      float64   `json:"profitFactor"`
	BestTrade         float64   `json:"bestTrade"`
	WorstTrade        float64   `json:"worstTrade"`
	ConsistencyScore  float64   `json:"consistencyScore"`
	DrawdownMax       float64   `json:"drawdownMax"`
	GoodDecisionRatio float64   `json:"goodDecisionRatio"`
	EdgeConfidence    int       `json:"edgeConfidence"`
	Insights          []string  `json:"insights"`
	ComputedAt        time.Time `json:"computedAt"`
}

// EmotionalPattern aggregates trades taken in one pre-trade emotional state.
type EmotionalPattern struct {
	Count    int     `json:"count"`
	Wins     int     `json:"wins"`
	TotalPnL float64 `json:"totalPnl"`
}

// PeriodSummary is the rollup of one user's trades over one period window.
type PeriodSummary struct {
	UserID            string                      `json:"userId"`
	PeriodType        PeriodType                  `json:"periodType"`
	WindowStart       time.Time                   `json:"windowStart"`
	WindowEnd         time.Time                   `json:"windowEnd"`
	TotalTrades       int                         `json:"totalTrades"`
	WinCount          int                         `json:"winCount"`
	LossCount         int                         `json:"lossCount"`
	BreakevenCount    int                         `json:"breakevenCount"`
	WinRate           float64                     `json:"winRate"` // percent
	TotalPnL          float64                     `json:"totalPnl"`
	Expectancy        float64                     `json:"expectancy"`
	BestStrategy      string                      `json:"bestStrategy,omitempty"`
	WorstStrategy     string                      `json:"worstStrategy,omitempty"`
	BestEntryModel    string                      `json:"bestEntryModel,omitempty"`
	WorstEntryModel   string                      `json:"worstEntryModel,omitempty"`
	EmotionalPatterns map[string]EmotionalPattern `json:"emotionalPatterns"`
	RuleAdherence     float64                     `json:"ruleAdherence"` // percent
	AvgDecisionScore  float64                     `json:"avgDecisionScore"`
	ComputedAt        time.Time                   `json:"computedAt"`
}
