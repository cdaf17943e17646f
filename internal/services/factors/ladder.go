package factors

import (
	"fmt"
	"math"
)

// Rung maps every input beyond Threshold to Score. Rungs are checked from the
// highest threshold down; the first one the input clears wins.
type Rung struct {
	Threshold float64
	Score     float64
	Label     string
}

// Ladder is a fixed threshold table over the whole real line. Inputs below
// every rung fall through to Floor, so the ladder has no gaps.
type Ladder struct {
	Rungs []Rung
	// Inclusive compares with >= instead of >.
	Inclusive bool
	Floor     Rung
}

func (l Ladder) Map(v float64) (float64, string) {
	for _, r := range l.Rungs {
		if v > r.Threshold || (l.Inclusive && v == r.Threshold) {
			return r.Score, r.Label
		}
	}
	return l.Floor.Score, l.Floor.Label
}

// Validate checks thresholds strictly descend and every score is in range.
func (l Ladder) Validate() error {
	prev := math.Inf(1)
	for i, r := range l.Rungs {
		if !(r.Threshold < prev) {
			return fmt.Errorf("rung %d: threshold %v not below %v", i, r.Threshold, prev)
		}
		if r.Score < 0 || r.Score > 100 || r.Label == "" {
			return fmt.Errorf("rung %d: invalid score or label", i)
		}
		prev = r.Threshold
	}
	if l.Floor.Score < 0 || l.Floor.Score > 100 || l.Floor.Label == "" {
		return fmt.Errorf("floor: invalid score or label")
	}
	return nil
}

var (
	momentum24h = Ladder{
		Rungs: []Rung{
			{5, 80, "strong_bullish"},
			{2, 65, "bullish"},
			{-2, 50, "neutral"},
			{-5, 35, "bearish"},
		},
		Floor: Rung{Score: 20, Label: "strong_bearish"},
	}
	trend7d = Ladder{
		Rungs: []Rung{
			{10, 80, "strong_uptrend"},
			{3, 65, "uptrend"},
			{-3, 50, "sideways"},
			{-10, 35, "downtrend"},
		},
		Floor: Rung{Score: 20, Label: "strong_downtrend"},
	}
	volumeFlow = Ladder{
		Rungs: []Rung{
			{15, 75, "very_high"},
			{8, 65, "high"},
			{3, 50, "normal"},
		},
		Floor: Rung{Score: 35, Label: "low"},
	}
	athProximity = Ladder{
		Rungs: []Rung{
			{-10, 40, "near_ath"},
			{-30, 60, "moderate_discount"},
			{-50, 70, "significant_discount"},
		},
		Floor: Rung{Score: 80, Label: "deep_discount"},
	}
	volatility24h = Ladder{
		Rungs: []Rung{
			{10, 30, "very_high"},
			{5, 45, "high"},
			{2, 60, "moderate"},
		},
		Floor: Rung{Score: 70, Label: "low"},
	}
	// contrarian: fear is bullish
	marketSentiment = Ladder{
		Inclusive: true,
		Rungs: []Rung{
			{75, 25, "extreme_greed"},
			{60, 40, "greed"},
			{40, 50, "neutral"},
			{25, 65, "fear"},
		},
		Floor: Rung{Score: 80, Label: "extreme_fear"},
	}
)

// Ladders exposes the fixed tables by factor name.
func Ladders() map[string]Ladder {
	return map[string]Ladder{
		Momentum24h:     momentum24h,
		Trend7d:         trend7d,
		VolumeFlow:      volumeFlow,
		ATHProximity:    athProximity,
		Volatility24h:   volatility24h,
		MarketSentiment: marketSentiment,
	}
}
