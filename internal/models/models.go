// Package models provides domain models for the trading journal.
package models

import "strings"

// Direction represents the side of a trade.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Outcome represents the result of a trade as it was logged.
// Journals have historically used both "profit"/"loss" and "WIN"/"LOSS",
// so values are normalised before use.
type Outcome string

const (
	OutcomeWin       Outcome = "win"
	OutcomeLoss      Outcome = "loss"
	OutcomeBreakeven Outcome = "breakeven"
	OutcomeOpen      Outcome = "open"
)

// Normalize maps any accepted outcome spelling onto one of the canonical
// outcomes. Unknown values are treated as open.
func (o Outcome) Normalize() Outcome {
	switch strings.ToLower(strings.TrimSpace(string(o))) {
	case "profit", "win", "won":
		return OutcomeWin
	case "loss", "lose", "lost":
		return OutcomeLoss
	case "breakeven", "break_even", "be":
		return OutcomeBreakeven
	default:
		return OutcomeOpen
	}
}

// PeriodType identifies the window length of a period summary.
type PeriodType string

const (
	PeriodDaily     PeriodType = "daily"
	PeriodWeekly    PeriodType = "weekly"
	PeriodMonthly   PeriodType = "monthly"
	PeriodQuarterly PeriodType = "quarterly"
	PeriodHalfYear  PeriodType = "half_year"
	PeriodYearly    PeriodType = "yearly"
)

// PeriodTypes lists every supported period type in ascending length.
var PeriodTypes = []PeriodType{
	PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodQuarterly, PeriodHalfYear, PeriodYearly,
}

// Valid reports whether p is a supported period type.
func (p PeriodType) Valid() bool {
	for _, pt := range PeriodTypes {
		if p == pt {
			return true
		}
	}
	return false
}

// Float returns a pointer to v. Optional numeric trade fields are pointers
// so that "absent" and "zero" stay distinguishable.
func Float(v float64) *float64 {
	return &v
}

// FloatValue returns the value of p, or def when p is nil.
func FloatValue(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
