package scoring

import "OracleEngine/internal/domain/models"

type tier struct {
	min, max   int
	signal     models.SignalType
	confidence models.Confidence
}

// tiers partition [0,100]; each min is the previous max plus one.
var tiers = []tier{
	{0, 25, models.StrongSell, models.ConfidenceVeryHigh},
	{26, 35, models.Sell, models.ConfidenceHigh},
	{36, 45, models.LeanSell, models.ConfidenceMedium},
	{46, 54, models.Hold, models.ConfidenceLow},
	{55, 64, models.LeanBuy, models.ConfidenceMedium},
	{65, 74, models.Buy, models.ConfidenceHigh},
	{75, 100, models.StrongBuy, models.ConfidenceVeryHigh},
}

// Classify maps an integer score to its tier. Out-of-range input is clamped.
func Classify(score int) (models.SignalType, models.Confidence) {
	score = clampInt(score)
	for _, t := range tiers {
		if score >= t.min && score <= t.max {
			return t.signal, t.confidence
		}
	}
	return models.Hold, models.ConfidenceLow
}

func clampInt(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
