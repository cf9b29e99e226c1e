package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// Trade represents a logged trade. Optional numeric fields are nil when the
// trader did not record them.
type Trade struct {
	ID                 string          `json:"id"`
	UserID             string          `json:"userId"`
	Pair               string          `json:"pair"`
	Direction          Direction       `json:"direction"`
	EntryPrice         float64         `json:"entryPrice"`
	ExitPrice          *float64        `json:"exitPrice,omitempty"`
	Volume             *float64        `json:"volume,omitempty"`
	StopLoss           *float64        `json:"stopLoss,omitempty"`
	TakeProfit         *float64        `json:"takeProfit,omitempty"`
	ProfitLoss         *float64        `json:"profitLoss,omitempty"`
	Outcome            Outcome         `json:"outcome"`
	StrategyID         string          `json:"strategyId,omitempty"`
	StrategyName       string          `json:"strategyName,omitempty"`
	EntryModel         string          `json:"entryModel,omitempty"`
	MarketCondition    string          `json:"marketCondition,omitempty"`
	RiskRewardRatio    *float64        `json:"riskRewardRatio,omitempty"`
	HoldingTimeMinutes *float64        `json:"holdingTimeMinutes,omitempty"`
	SetupQuality       *float64        `json:"setupQuality,omitempty"` // 1-10
	Conviction         *float64        `json:"conviction,omitempty"`   // 1-10
	EmotionalDrift     *EmotionalDrift `json:"emotionalDrift,omitempty"`
	RuleChecks         []RuleCheck     `json:"ruleChecks,omitempty"`
	Notes              string          `json:"notes,omitempty"`
	ExecutionNotes     string          `json:"executionNotes,omitempty"`
	Timeframe          string          `json:"timeframe,omitempty"`
	EntryTime          time.Time       `json:"entryTime"`
	ExitTime           *time.Time      `json:"exitTime,omitempty"`
	Scores             *TradeScores    `json:"scores,omitempty"`
}

// ResolvedOutcome returns the normalised outcome. A trade logged without an
// outcome but with a known P&L resolves by the sign of the P&L.
func (t *Trade) ResolvedOutcome() Outcome {
	o := t.Outcome.Normalize()
	if o != OutcomeOpen || t.ProfitLoss == nil || strings.TrimSpace(string(t.Outcome)) != "" {
		return o
	}
	switch {
	case *t.ProfitLoss > 0:
		return OutcomeWin
	case *t.ProfitLoss < 0:
		return OutcomeLoss
	default:
		return OutcomeBreakeven
	}
}

// IsWin reports whether the trade closed in profit.
func (t *Trade) IsWin() bool {
	return t.ResolvedOutcome() == OutcomeWin
}

// IsLoss reports whether the trade closed at a loss.
func (t *Trade) IsLoss() bool {
	return t.ResolvedOutcome() == OutcomeLoss
}

// PnL returns the recorded profit/loss, or 0 when unknown or not finite.
func (t *Trade) PnL() float64 {
	v := FloatValue(t.ProfitLoss, 0)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// HasStrategy reports whether a strategy is attached to the trade.
func (t *Trade) HasStrategy() bool {
	return strings.TrimSpace(t.StrategyID) != ""
}

// HasMarketCondition reports whether a market condition was tagged.
func (t *Trade) HasMarketCondition() bool {
	return strings.TrimSpace(t.MarketCondition) != ""
}

// ClosedAt returns the time used to place the trade in a period window:
// the exit time when known, otherwise the entry time.
func (t *Trade) ClosedAt() time.Time {
	if t.ExitTime != nil && !t.ExitTime.IsZero() {
		return *t.ExitTime
	}
	return t.EntryTime
}

// EmotionalDrift records how the trader's emotional state moved across a
// trade. Deltas are signed, positive means an increase.
type EmotionalDrift struct {
	PreEmotion       string   `json:"preEmotion,omitempty"`
	PostEmotion      string   `json:"postEmotion,omitempty"`
	PreIntensity     float64  `json:"preIntensity,omitempty"`
	PostIntensity    float64  `json:"postIntensity,omitempty"`
	ConfidenceChange float64  `json:"confidenceChange"`
	StressChange     float64  `json:"stressChange"`
	FocusChange      float64  `json:"focusChange"`
	EnergyChange     float64  `json:"energyChange"`
	TimeToRecover    *float64 `json:"timeToRecover,omitempty"` // hours
}

// ParseEmotionalDrift decodes a stored emotional drift payload. An empty
// payload yields nil without error.
func ParseEmotionalDrift(raw string) (*EmotionalDrift, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil, nil
	}
	var d EmotionalDrift
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("parsing emotional drift: %w", err)
	}
	return &d, nil
}

// RuleCheck records whether one monitored trading rule was followed on a trade.
type RuleCheck struct {
	RuleID   string `json:"ruleId"`
	Name     string `json:"name"`
	Followed bool   `json:"followed"`
}

// ParseRuleChecks decodes a stored rule check list. An empty payload yields nil.
func ParseRuleChecks(raw string) ([]RuleCheck, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil, nil
	}
	var checks []RuleCheck
	if err := json.Unmarshal([]byte(raw), &checks); err != nil {
		return nil, fmt.Errorf("parsing rule checks: %w", err)
	}
	return checks, nil
}

// Strategy represents a documented trading strategy.
type Strategy struct {
	ID          string               `json:"id"`
	UserID      string               `json:"userId"`
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Rules       []string             `json:"rules,omitempty"`
	Performance *StrategyPerformance `json:"performance,omitempty"`
	CreatedAt   time.Time            `json:"createdAt"`
}
