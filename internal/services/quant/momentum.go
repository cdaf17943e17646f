package quant

import (
	"math"

	"OracleEngine/internal/domain/models"
	"OracleEngine/internal/services/features"
)

// TSMOM is time-series momentum: lookback return over annualized realized
// volatility of the same window.
type TSMOM struct {
	Lookback int
	VolFloor float64
}

func NewTSMOM() *TSMOM { return &TSMOM{Lookback: 12, VolFloor: 0.01} }

func (m *TSMOM) Name() string { return ModelTSMOM }

func (m *TSMOM) Evaluate(h *models.PriceHistory) models.QuantModelResult {
	p := prices(h)
	if len(p) < m.Lookback+1 {
		return insufficient(m.Name(), len(p), m.Lookback+1)
	}
	n := len(p)
	base := p[n-m.Lookback]
	if base <= 0 {
		return degenerate(m.Name())
	}
	lbReturn := (p[n-1] - base) / base
	vol := features.StdDev(features.Tail(features.SimpleReturns(p), m.Lookback)) * math.Sqrt(features.DaysPerYear)
	vol = math.Max(vol, m.VolFloor)
	strength := lbReturn / vol

	r := models.QuantModelResult{
		Model: m.Name(),
		Score: math.Round(50 + strength*25),
		Diagnostics: map[string]float64{
			"lookback_return_pct": features.Round(lbReturn*100, 2),
			"volatility_pct":      features.Round(vol*100, 2),
			"signal_strength":     features.Round(strength, 3),
		},
	}
	switch {
	case lbReturn > 0:
		r.Signal, r.Direction = "long", models.Bullish
	case lbReturn < 0:
		r.Signal, r.Direction = "short", models.Bearish
	default:
		r.Signal, r.Direction = signalNeutral, models.Neutral
	}
	switch s := math.Abs(strength); {
	case s > 1:
		r.Confidence = models.ConfidenceHigh
	case s > 0.5:
		r.Confidence = models.ConfidenceMedium
	default:
		r.Confidence = models.ConfidenceLow
	}
	return finalize(r)
}

// RSI is Wilder's relative strength index with a simple divergence check
// of the last five closes against the RSI level.
type RSI struct {
	Period int
}

func NewRSI() *RSI { return &RSI{Period: 14} }

func (m *RSI) Name() string { return ModelRSI }

func (m *RSI) Evaluate(h *models.PriceHistory) models.QuantModelResult {
	p := prices(h)
	need := m.Period + 5
	if len(p) < need {
		return insufficient(m.Name(), len(p), need)
	}
	rsi := wilderRSI(p, m.Period)
	trend := p[len(p)-1] - p[len(p)-5]

	var score float64
	label := signalNeutral
	switch {
	case rsi < 30:
		score, label = 70+(30-rsi), "oversold"
	case rsi > 70:
		score, label = 30-(rsi-70), "overbought"
	default:
		score = 50
	}
	divergence := 0.0
	switch {
	case trend < 0 && rsi > 30:
		divergence = 1
		score += 10
	case trend > 0 && rsi < 70:
		divergence = -1
		score -= 10
	}
	r := models.QuantModelResult{
		Model:  m.Name(),
		Score:  math.Round(score),
		Signal: label,
		Diagnostics: map[string]float64{
			"rsi":        features.Round(rsi, 1),
			"divergence": divergence,
		},
	}
	switch divergence {
	case 1:
		r.Tags = map[string]string{"divergence": "bullish"}
	case -1:
		r.Tags = map[string]string{"divergence": "bearish"}
	}
	return finalize(r)
}

func wilderRSI(p []float64, period int) float64 {
	gains := make([]float64, 0, len(p)-1)
	losses := make([]float64, 0, len(p)-1)
	for i := 1; i < len(p); i++ {
		d := p[i] - p[i-1]
		gains = append(gains, math.Max(d, 0))
		losses = append(losses, math.Max(-d, 0))
	}
	avgGain := features.Mean(gains[:period])
	avgLoss := features.Mean(losses[:period])
	k := float64(period)
	for i := period; i < len(gains); i++ {
		avgGain = (avgGain*(k-1) + gains[i]) / k
		avgLoss = (avgLoss*(k-1) + losses[i]) / k
	}
	switch {
	case avgGain == 0 && avgLoss == 0:
		return 50
	case avgLoss == 0:
		return 100
	}
	return 100 - 100/(1+avgGain/avgLoss)
}
