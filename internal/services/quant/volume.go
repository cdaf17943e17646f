package quant

import (
	"OracleEngine/internal/domain/models"
	"OracleEngine/internal/services/features"
)

// VWAP scores the last close against the series' volume-weighted average.
type VWAP struct {
	MinPoints int
}

func NewVWAP() *VWAP { return &VWAP{MinPoints: 10} }

func (m *VWAP) Name() string { return ModelVWAP }

func (m *VWAP) Evaluate(h *models.PriceHistory) models.QuantModelResult {
	p, v := aligned(h)
	if len(p) < m.MinPoints {
		return insufficient(m.Name(), len(p), m.MinPoints)
	}
	total, weighted := 0.0, 0.0
	for i := range p {
		total += v[i]
		weighted += p[i] * v[i]
	}
	if total == 0 {
		return degenerate(m.Name())
	}
	vwap := weighted / total
	dev := (p[len(p)-1] - vwap) / vwap * 100

	recent := features.SMA(v, 5)
	older := recent
	if len(v) >= 20 {
		older = features.Mean(v[len(v)-20 : len(v)-5])
	}
	volChange := 0.0
	if older > 0 {
		volChange = (recent - older) / older * 100
	}

	r := models.QuantModelResult{
		Model: m.Name(),
		Diagnostics: map[string]float64{
			"vwap":              vwap,
			"deviation_pct":     features.Round(dev, 2),
			"volume_change_pct": features.Round(volChange, 2),
		},
		Tags: map[string]string{"volume_trend": volumeTrend(volChange)},
	}
	switch {
	case dev < -3:
		r.Score, r.Signal = 70, "below_vwap"
	case dev < 0:
		r.Score, r.Signal = 60, "slightly_below_vwap"
	case dev > 3:
		r.Score, r.Signal = 30, "above_vwap"
	case dev > 0:
		r.Score, r.Signal = 40, "slightly_above_vwap"
	default:
		r.Score, r.Signal = 50, "at_vwap"
	}
	return finalize(r)
}

func volumeTrend(change float64) string {
	switch {
	case change > 20:
		return "increasing"
	case change < -20:
		return "decreasing"
	}
	return "stable"
}

// OBV compares the on-balance-volume trend with the price trend over a
// recent window to flag accumulation or distribution.
type OBV struct {
	MinPoints int
	Window    int
}

func NewOBV() *OBV { return &OBV{MinPoints: 20, Window: 10} }

func (m *OBV) Name() string { return ModelOBV }

func (m *OBV) Evaluate(h *models.PriceHistory) models.QuantModelResult {
	p, v := aligned(h)
	if len(p) < m.MinPoints {
		return insufficient(m.Name(), len(p), m.MinPoints)
	}
	obv := 0.0
	series := make([]float64, 0, len(p)-1)
	for i := 1; i < len(p); i++ {
		switch {
		case p[i] > p[i-1]:
			obv += v[i]
		case p[i] < p[i-1]:
			obv -= v[i]
		}
		series = append(series, obv)
	}
	obvChange := series[len(series)-1] - series[len(series)-m.Window]
	priceChange := p[len(p)-1] - p[len(p)-m.Window]

	r := models.QuantModelResult{
		Model: m.Name(),
		Diagnostics: map[string]float64{
			"obv":          obv,
			"obv_change":   obvChange,
			"price_change": priceChange,
		},
	}
	switch {
	case priceChange < 0 && obvChange > 0:
		r.Score, r.Signal = 75, "bullish_divergence"
	case priceChange > 0 && obvChange < 0:
		r.Score, r.Signal = 25, "bearish_divergence"
	case priceChange > 0 && obvChange > 0:
		r.Score, r.Signal = 65, "confirmed_uptrend"
	case priceChange < 0 && obvChange < 0:
		r.Score, r.Signal = 35, "confirmed_downtrend"
	default:
		r.Score, r.Signal = 50, signalNeutral
	}
	return finalize(r)
}

// aligned returns the tails of prices and volumes with equal length.
func aligned(h *models.PriceHistory) ([]float64, []float64) {
	if h == nil {
		return nil, nil
	}
	n := len(h.Prices)
	if len(h.Volumes) < n {
		n = len(h.Volumes)
	}
	return features.Tail(h.Prices, n), features.Tail(h.Volumes, n)
}
