package quant

import (
	"math"

	"OracleEngine/internal/domain/models"
	"OracleEngine/internal/services/features"
)

// DualMA is a fast/slow simple moving-average crossover confirmed by the
// last close.
type DualMA struct {
	Fast int
	Slow int
}

func NewDualMA() *DualMA { return &DualMA{Fast: 10, Slow: 30} }

func (m *DualMA) Name() string { return ModelDMA }

func (m *DualMA) Evaluate(h *models.PriceHistory) models.QuantModelResult {
	p := prices(h)
	if len(p) < m.Slow {
		return insufficient(m.Name(), len(p), m.Slow)
	}
	fast := features.SMA(p, m.Fast)
	slow := features.SMA(p, m.Slow)
	if slow == 0 {
		return degenerate(m.Name())
	}
	last := p[len(p)-1]

	r := models.QuantModelResult{
		Model: m.Name(),
		Diagnostics: map[string]float64{
			"fast_ma":        fast,
			"slow_ma":        slow,
			"trend_strength": features.Round(math.Abs(fast-slow)/slow*100, 2),
		},
	}
	switch {
	case fast > slow && last > fast:
		r.Score, r.Signal, r.Confidence = 75, "strong_buy", models.ConfidenceHigh
	case fast > slow:
		r.Score, r.Signal, r.Confidence = 65, "buy", models.ConfidenceMedium
	case fast < slow && last < fast:
		r.Score, r.Signal, r.Confidence = 25, "strong_sell", models.ConfidenceHigh
	case fast < slow:
		r.Score, r.Signal, r.Confidence = 35, "sell", models.ConfidenceMedium
	default:
		r.Score, r.Signal, r.Confidence = 50, signalNeutral, models.ConfidenceLow
	}
	return finalize(r)
}

// ADX is a simplified directional-movement index over the last period
// bars. Without a full high/low series it falls back to closes.
type ADX struct {
	Period int
}

func NewADX() *ADX { return &ADX{Period: 14} }

func (m *ADX) Name() string { return ModelADX }

func (m *ADX) Evaluate(h *models.PriceHistory) models.QuantModelResult {
	p := prices(h)
	if len(p) < m.Period+1 {
		return insufficient(m.Name(), len(p), m.Period+1)
	}
	highs, lows := p, p
	if len(h.Highs) == len(p) && len(h.Lows) == len(p) {
		highs, lows = h.Highs, h.Lows
	}

	tr := make([]float64, 0, len(p)-1)
	plusDM := make([]float64, 0, len(p)-1)
	minusDM := make([]float64, 0, len(p)-1)
	for i := 1; i < len(p); i++ {
		up := highs[i] - highs[i-1]
		down := lows[i-1] - lows[i]
		pdm, mdm := 0.0, 0.0
		if up > down && up > 0 {
			pdm = up
		}
		if down > up && down > 0 {
			mdm = down
		}
		tr = append(tr, math.Max(highs[i]-lows[i], math.Max(math.Abs(highs[i]-p[i-1]), math.Abs(lows[i]-p[i-1]))))
		plusDM = append(plusDM, pdm)
		minusDM = append(minusDM, mdm)
	}

	atr := features.SMA(tr, m.Period)
	var plusDI, minusDI float64
	if atr > 0 {
		plusDI = features.SMA(plusDM, m.Period) / atr * 100
		minusDI = features.SMA(minusDM, m.Period) / atr * 100
	}
	dx := 0.0
	if plusDI+minusDI > 0 {
		dx = math.Abs(plusDI-minusDI) / (plusDI + minusDI) * 100
	}
	bullish := plusDI > minusDI

	r := models.QuantModelResult{
		Model: m.Name(),
		Diagnostics: map[string]float64{
			"adx":      features.Round(dx, 1),
			"plus_di":  features.Round(plusDI, 1),
			"minus_di": features.Round(minusDI, 1),
		},
	}
	switch {
	case dx > 40:
		r.Signal, r.Confidence = "strong_trend", models.ConfidenceHigh
		r.Score = pick(bullish, 70, 30)
	case dx > 25:
		r.Signal, r.Confidence = "moderate_trend", models.ConfidenceMedium
		r.Score = pick(bullish, 60, 40)
	default:
		r.Score, r.Signal, r.Confidence = 50, "weak_trend", models.ConfidenceLow
	}
	return finalize(r)
}

func pick(cond bool, a, b float64) float64 {
	if cond {
		return a
	}
	return b
}
