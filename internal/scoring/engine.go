// Package scoring provides the behavioral scoring engine of the journal.
//
// Every scorer is a pure function of its input: no I/O, no shared mutable
// state, no logging. An Engine only carries its Thresholds, so one Engine may
// score many trades concurrently.
package scoring

import (
	"math"
	"strings"
)

// Thresholds holds the tunable constants of the aggregators.
type Thresholds struct {
	// MinEdgeSample is the number of trades below which edge confidence is
	// reported as InsufficientSampleScore.
	MinEdgeSample           int     `mapstructure:"min_edge_sample"`
	InsufficientSampleScore int     `mapstructure:"insufficient_sample_score"`
	EdgeStrong              int     `mapstructure:"edge_strong"`
	EdgeModerate            int     `mapstructure:"edge_moderate"`
	EdgeWeak                int     `mapstructure:"edge_weak"`
	ConsistencyHigh         float64 `mapstructure:"consistency_high"`
	ConsistencyModerate     float64 `mapstructure:"consistency_moderate"`
	DecisionRatioHigh       float64 `mapstructure:"decision_ratio_high"`
	DecisionRatioLow        float64 `mapstructure:"decision_ratio_low"`
	// GoodDecisionScore is the decision score at or above which a decision
	// counts as good.
	GoodDecisionScore int `mapstructure:"good_decision_score"`
	// MaxStandardVolume is the largest position volume still considered
	// normally sized.
	MaxStandardVolume float64 `mapstructure:"max_standard_volume"`
}

// DefaultThresholds returns the default thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinEdgeSample:           10,
		InsufficientSampleScore: 20,
		EdgeStrong:              80,
		EdgeModerate:            60,
		EdgeWeak:                40,
		ConsistencyHigh:         80,
		ConsistencyModerate:     50,
		DecisionRatioHigh:       0.7,
		DecisionRatioLow:        0.4,
		GoodDecisionScore:       60,
		MaxStandardVolume:       2.0,
	}
}

// Engine scores trades and aggregates trade sets.
type Engine struct {
	th Thresholds
}

// NewEngine creates an engine with the default thresholds.
func NewEngine() *Engine {
	return &Engine{th: DefaultThresholds()}
}

// NewEngineWithThresholds creates an engine with custom thresholds.
func NewEngineWithThresholds(th Thresholds) *Engine {
	return &Engine{th: th}
}

// Thresholds returns the engine's thresholds.
func (e *Engine) Thresholds() Thresholds {
	return e.th
}

var (
	negativeEmotions = []string{"anxious", "frustrated", "angry", "fearful", "overconfident"}
	steadyEmotions   = []string{"calm", "confident"}
)

func emotionIn(emotion string, set []string) bool {
	emotion = strings.ToLower(strings.TrimSpace(emotion))
	for _, e := range set {
		if emotion == e {
			return true
		}
	}
	return false
}

// IsSteadyEmotion reports whether a pre-trade emotion is calm or confident.
func IsSteadyEmotion(emotion string) bool {
	return emotionIn(emotion, steadyEmotions)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampScore(v float64) int {
	return int(math.Round(clamp(v, 0, 100)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
