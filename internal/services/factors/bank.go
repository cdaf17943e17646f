package factors

import (
	"OracleEngine/internal/domain/models"
	domsvc "OracleEngine/internal/domain/service"
)

const (
	Momentum24h     = "momentum_24h"
	Trend7d         = "trend_7d"
	VolumeFlow      = "volume_flow"
	ATHProximity    = "ath_proximity"
	Volatility24h   = "volatility_24h"
	MarketSentiment = "market_sentiment"
	SocialSentiment = "social_sentiment"
	WhaleActivity   = "whale_activity"
	LiquidationRisk = "liquidation_risk"
	FundingRate     = "funding_rate"
	ExchangeFlow    = "exchange_flow"
	OpenInterest    = "open_interest"
)

// OnChainFactors are fed by auxiliary providers as pre-reduced scores.
var OnChainFactors = []string{WhaleActivity, LiquidationRisk, FundingRate, ExchangeFlow, OpenInterest}

// Bank evaluates every factor against one observation. It holds no state.
type Bank struct{}

func NewBank() *Bank { return &Bank{} }

func (b *Bank) Evaluate(obs *models.MarketObservation) []models.FactorScore {
	out := make([]models.FactorScore, 0, 12)

	out = append(out,
		ladderFactor(Momentum24h, models.CategoryTechnical, momentum24h, obs.Change24h),
		ladderFactor(Trend7d, models.CategoryTechnical, trend7d, obs.Change7d),
		ladderFactor(VolumeFlow, models.CategoryTechnical, volumeFlow, volumeRatio(obs)),
		ladderFactor(ATHProximity, models.CategoryTechnical, athProximity, obs.ATHChangePct),
		ladderFactor(Volatility24h, models.CategoryTechnical, volatility24h, rangePct(obs)),
		ladderFactor(MarketSentiment, models.CategorySentiment, marketSentiment, obs.SentimentIndex),
		auxFactor(obs, SocialSentiment, models.CategorySentiment, false),
	)
	for _, name := range OnChainFactors {
		// a high liquidation-risk reading is bearish
		out = append(out, auxFactor(obs, name, models.CategoryOnChain, name == LiquidationRisk))
	}
	return out
}

func ladderFactor(name string, cat models.FactorCategory, l Ladder, input *float64) models.FactorScore {
	if input == nil {
		return models.UnknownFactor(name, cat)
	}
	score, label := l.Map(*input)
	v := *input
	return models.FactorScore{Name: name, Category: cat, Score: score, Label: label, Magnitude: &v, Available: true}
}

func auxFactor(obs *models.MarketObservation, name string, cat models.FactorCategory, invert bool) models.FactorScore {
	raw, ok := obs.Aux(name)
	if !ok {
		return models.UnknownFactor(name, cat)
	}
	raw = clamp(raw)
	score := raw
	if invert {
		score = 100 - raw
	}
	return models.FactorScore{Name: name, Category: cat, Score: score, Label: opaqueLabel(score), Magnitude: &raw, Available: true}
}

func opaqueLabel(score float64) string {
	switch {
	case score >= 70:
		return "strong_bullish"
	case score >= 55:
		return "bullish"
	case score > 45:
		return "neutral"
	case score > 30:
		return "bearish"
	default:
		return "strong_bearish"
	}
}

// volume-to-market-cap ratio, percent
func volumeRatio(obs *models.MarketObservation) *float64 {
	if obs.Volume24h == nil || obs.MarketCap == nil || *obs.MarketCap <= 0 {
		return nil
	}
	return models.Float(*obs.Volume24h / *obs.MarketCap * 100)
}

// 24h range relative to the low, percent
func rangePct(obs *models.MarketObservation) *float64 {
	if obs.High24h == nil || obs.Low24h == nil || *obs.Low24h <= 0 {
		return nil
	}
	return models.Float((*obs.High24h - *obs.Low24h) / *obs.Low24h * 100)
}

// VolatilityLabel returns the volatility factor label from an evaluated set.
func VolatilityLabel(fs []models.FactorScore) string {
	for _, f := range fs {
		if f.Name == Volatility24h {
			return f.Label
		}
	}
	return models.LabelUnknown
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Compile-time interface check.
var _ domsvc.FactorBank = (*Bank)(nil)
