package scoring

import (
	"trade-journal/internal/models"
)

// ExecutionQuality rates how well a trade was carried out.
//
// Five factors on a 0-10 scale are weighted into a 0-100 score:
//
//	entryPrecision 20%, stopPlacement 20%, positionSizing 15%,
//	exitDiscipline 25%, emotionalControl 20%
func (e *Engine) ExecutionQuality(t *models.Trade) models.ExecutionQuality {
	var f models.ExecutionFactors

	switch {
	case t.ProfitLoss == nil:
		f.EntryPrecision = 7
	case *t.ProfitLoss > 0:
		f.EntryPrecision = 8
	default:
		f.EntryPrecision = 6
	}

	if t.StopLoss != nil {
		f.StopPlacement = 8
	} else {
		f.StopPlacement = 2
	}

	f.PositionSizing = e.positionSizing(t.Volume)

	switch {
	case t.TakeProfit != nil && t.ExitPrice != nil:
		f.ExitDiscipline = 8
	case t.IsWin():
		f.ExitDiscipline = 7
	case t.IsLoss() && t.StopLoss == nil && t.TakeProfit == nil:
		// No exit plan at all.
		f.ExitDiscipline = 3
	default:
		f.ExitDiscipline = 5
	}

	f.EmotionalControl = emotionalControl(t.EmotionalDrift)

	weighted := f.EntryPrecision*20 +
		f.StopPlacement*20 +
		f.PositionSizing*15 +
		f.ExitDiscipline*25 +
		f.EmotionalControl*20

	return models.ExecutionQuality{
		Score:   clampScore(weighted / 10),
		Factors: f,
	}
}

func (e *Engine) positionSizing(volume *float64) float64 {
	if volume == nil {
		return 7
	}
	if e.th.MaxStandardVolume > 0 && *volume > e.th.MaxStandardVolume {
		return 4
	}
	return clamp(*volume*10, 4, 10)
}

func emotionalControl(d *models.EmotionalDrift) float64 {
	switch {
	case d == nil:
		return 7
	case d.ConfidenceChange < -20 || d.StressChange > 30:
		return 3
	case d.ConfidenceChange < -10 || d.StressChange > 15:
		return 5
	default:
		return 8
	}
}
