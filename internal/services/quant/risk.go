package quant

import (
	"math"

	"OracleEngine/internal/domain/models"
	"OracleEngine/internal/services/features"
)

// ValueAtRisk is historical VaR with the conditional tail average.
type ValueAtRisk struct {
	Confidence float64
	MinPoints  int
}

func NewValueAtRisk() *ValueAtRisk { return &ValueAtRisk{Confidence: 0.95, MinPoints: 30} }

func (m *ValueAtRisk) Name() string { return ModelVaR }

func (m *ValueAtRisk) Evaluate(h *models.PriceHistory) models.QuantModelResult {
	p := prices(h)
	if len(p) < m.MinPoints {
		return insufficient(m.Name(), len(p), m.MinPoints)
	}
	returns := features.SimpleReturns(p)
	sorted := features.Sorted(returns)
	idx := int((1 - m.Confidence) * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	v := math.Abs(sorted[idx])
	cvar := v
	if idx > 0 {
		cvar = math.Abs(features.Mean(sorted[:idx+1]))
	}

	r := models.QuantModelResult{
		Model: m.Name(),
		Diagnostics: map[string]float64{
			"var_pct":          features.Round(v*100, 2),
			"cvar_pct":         features.Round(cvar*100, 2),
			"worst_return_pct": features.Round(sorted[0]*100, 2),
		},
	}
	switch {
	case v < 0.03:
		r.Score = 70
	case v < 0.05:
		r.Score = 60
	case v < 0.08:
		r.Score = 50
	case v < 0.12:
		r.Score = 40
	default:
		r.Score = 30
	}
	switch {
	case v < 0.03:
		r.Signal = "low_risk"
	case v < 0.08:
		r.Signal = "medium_risk"
	default:
		r.Signal = "high_risk"
	}
	return finalize(r)
}

// Sharpe is annualized excess return over annualized volatility.
type Sharpe struct {
	RiskFree  float64
	MinPoints int
}

func NewSharpe() *Sharpe { return &Sharpe{RiskFree: 0.05, MinPoints: 30} }

func (m *Sharpe) Name() string { return ModelSharpe }

func (m *Sharpe) Evaluate(h *models.PriceHistory) models.QuantModelResult {
	p := prices(h)
	if len(p) < m.MinPoints {
		return insufficient(m.Name(), len(p), m.MinPoints)
	}
	returns := features.SimpleReturns(p)
	annualReturn := features.Mean(returns) * features.DaysPerYear
	annualVol := features.StdDev(returns) * math.Sqrt(features.DaysPerYear)
	if annualVol == 0 {
		return degenerate(m.Name())
	}
	sharpe := (annualReturn - m.RiskFree) / annualVol

	r := models.QuantModelResult{
		Model: m.Name(),
		Diagnostics: map[string]float64{
			"sharpe_ratio":          features.Round(sharpe, 2),
			"annual_return_pct":     features.Round(annualReturn*100, 2),
			"annual_volatility_pct": features.Round(annualVol*100, 2),
		},
	}
	switch {
	case sharpe > 2:
		r.Score, r.Signal = 85, "excellent"
	case sharpe > 1:
		r.Score, r.Signal = 70, "good"
	case sharpe > 0.5:
		r.Score, r.Signal = 60, "average"
	case sharpe > 0:
		r.Score, r.Signal = 50, "average"
	default:
		r.Score, r.Signal = 35, "poor"
	}
	return finalize(r)
}

// Sortino replaces the Sharpe denominator with downside deviation.
type Sortino struct {
	RiskFree      float64
	DownsideFloor float64
	MinPoints     int
}

func NewSortino() *Sortino { return &Sortino{RiskFree: 0.05, DownsideFloor: 0.001, MinPoints: 30} }

func (m *Sortino) Name() string { return ModelSortino }

func (m *Sortino) Evaluate(h *models.PriceHistory) models.QuantModelResult {
	p := prices(h)
	if len(p) < m.MinPoints {
		return insufficient(m.Name(), len(p), m.MinPoints)
	}
	returns := features.SimpleReturns(p)
	var negative []float64
	for _, r := range returns {
		if r < 0 {
			negative = append(negative, r)
		}
	}
	downside := m.DownsideFloor
	if len(negative) > 0 {
		downside = math.Max(features.StdDev(negative)*math.Sqrt(features.DaysPerYear), m.DownsideFloor)
	}
	annualReturn := features.Mean(returns) * features.DaysPerYear
	sortino := (annualReturn - m.RiskFree) / downside

	r := models.QuantModelResult{
		Model: m.Name(),
		Diagnostics: map[string]float64{
			"sortino_ratio":          features.Round(sortino, 2),
			"downside_deviation_pct": features.Round(downside*100, 2),
			"negative_returns":       float64(len(negative)),
		},
	}
	switch {
	case sortino > 3:
		r.Score, r.Signal = 85, "excellent"
	case sortino > 2:
		r.Score, r.Signal = 75, "good"
	case sortino > 1:
		r.Score, r.Signal = 60, "average"
	case sortino > 0:
		r.Score, r.Signal = 50, "average"
	default:
		r.Score, r.Signal = 35, "poor"
	}
	return finalize(r)
}
