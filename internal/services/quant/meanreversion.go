package quant

import (
	"math"

	"OracleEngine/internal/domain/models"
	"OracleEngine/internal/services/features"
)

// Bollinger scores the z-score of the last close against a rolling window.
type Bollinger struct {
	Period int
}

func NewBollinger() *Bollinger { return &Bollinger{Period: 20} }

func (m *Bollinger) Name() string { return ModelBollinger }

func (m *Bollinger) Evaluate(h *models.PriceHistory) models.QuantModelResult {
	p := prices(h)
	if len(p) < m.Period {
		return insufficient(m.Name(), len(p), m.Period)
	}
	window := features.Tail(p, m.Period)
	mean := features.Mean(window)
	std := features.StdDev(window)
	z := 0.0
	if std > 0 {
		z = (p[len(p)-1] - mean) / std
	}

	r := models.QuantModelResult{
		Model: m.Name(),
		Diagnostics: map[string]float64{
			"zscore":     features.Round(z, 2),
			"mean":       mean,
			"std":        std,
			"upper_band": mean + 2*std,
			"lower_band": mean - 2*std,
		},
	}
	switch {
	case z < -2:
		r.Score, r.Signal = 80, "strong_buy"
	case z < -1:
		r.Score, r.Signal = 65, "buy"
	case z > 2:
		r.Score, r.Signal = 20, "strong_sell"
	case z > 1:
		r.Score, r.Signal = 35, "sell"
	default:
		r.Score, r.Signal = 50, signalNeutral
	}
	switch az := math.Abs(z); {
	case az > 2:
		r.Confidence = models.ConfidenceHigh
	case az > 1:
		r.Confidence = models.ConfidenceMedium
	default:
		r.Confidence = models.ConfidenceLow
	}
	return finalize(r)
}

// OrnsteinUhlenbeck estimates the mean-reversion half-life from a
// regression of log-price changes on log-price levels. The score measures
// tradeability rather than direction.
type OrnsteinUhlenbeck struct {
	MinPoints int
}

func NewOrnsteinUhlenbeck() *OrnsteinUhlenbeck { return &OrnsteinUhlenbeck{MinPoints: 30} }

func (m *OrnsteinUhlenbeck) Name() string { return ModelOU }

func (m *OrnsteinUhlenbeck) Evaluate(h *models.PriceHistory) models.QuantModelResult {
	p := prices(h)
	if len(p) < m.MinPoints {
		return insufficient(m.Name(), len(p), m.MinPoints)
	}
	logs := make([]float64, 0, len(p))
	for _, v := range p {
		if v > 0 {
			logs = append(logs, math.Log(v))
		}
	}
	if len(logs) < 11 {
		return insufficient(m.Name(), len(logs), 11)
	}
	x := logs[:len(logs)-1]
	y := make([]float64, len(x))
	for i := range x {
		y[i] = logs[i+1] - logs[i]
	}
	slope, ok := features.OLSSlope(x, y)
	if !ok {
		return degenerate(m.Name())
	}
	theta := -slope

	r := models.QuantModelResult{
		Model:       m.Name(),
		Direction:   models.Neutral,
		Diagnostics: map[string]float64{"mean_reversion_speed": 0},
	}
	if theta <= 0 {
		r.Score, r.Signal, r.Confidence = 50, "not_mean_reverting", models.ConfidenceLow
		return finalize(r)
	}
	halfLife := math.Ln2 / theta
	r.Diagnostics["mean_reversion_speed"] = features.Round(theta, 4)
	r.Diagnostics["half_life"] = features.Round(halfLife, 1)
	r.Signal = "mean_reverting"
	switch {
	case halfLife < 5:
		r.Score, r.Confidence = 70, models.ConfidenceHigh
	case halfLife < 15:
		r.Score, r.Confidence = 60, models.ConfidenceMedium
	case halfLife < 30:
		r.Score, r.Confidence = 50, models.ConfidenceLow
	default:
		r.Score, r.Signal, r.Confidence = 40, "slow_reversion", models.ConfidenceLow
	}
	return finalize(r)
}
