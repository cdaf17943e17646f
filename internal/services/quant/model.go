// Package quant holds the price-series models. Every model is a pure
// function of a PriceHistory and never fails: short series and numeric
// breakdowns come back as neutral, low-confidence results.
package quant

import (
	"math"

	"OracleEngine/internal/domain/models"
	"OracleEngine/internal/services/features"
)

const (
	ModelTSMOM     = "tsmom"
	ModelRSI       = "rsi"
	ModelBollinger = "bollinger"
	ModelOU        = "ou_process"
	ModelVaR       = "var"
	ModelSharpe    = "sharpe"
	ModelSortino   = "sortino"
	ModelDMA       = "dma"
	ModelADX       = "adx"
	ModelVWAP      = "vwap"
	ModelOBV       = "obv"
)

const signalNeutral = "neutral"

func neutral(model string, status models.ModelStatus) models.QuantModelResult {
	return models.QuantModelResult{
		Model:      model,
		Score:      50,
		Signal:     signalNeutral,
		Direction:  models.Neutral,
		Confidence: models.ConfidenceLow,
		Status:     status,
	}
}

func insufficient(model string, have, need int) models.QuantModelResult {
	r := neutral(model, models.ModelInsufficientHistory)
	r.Diagnostics = map[string]float64{"points": float64(have), "required": float64(need)}
	return r
}

func degenerate(model string) models.QuantModelResult {
	return neutral(model, models.ModelNumericDegenerate)
}

// finalize enforces the result contract: finite diagnostics, a score in
// [0,100] and a direction.
func finalize(r models.QuantModelResult) models.QuantModelResult {
	if !features.Finite(r.Score) {
		return degenerate(r.Model)
	}
	for _, v := range r.Diagnostics {
		if !features.Finite(v) {
			return degenerate(r.Model)
		}
	}
	r.Score = features.Clamp(r.Score, 0, 100)
	if r.Status == "" {
		r.Status = models.ModelOK
	}
	if r.Direction == "" {
		r.Direction = directionOf(r.Score)
	}
	if r.Confidence == "" {
		r.Confidence = confidenceOf(r.Score)
	}
	return r
}

func directionOf(score float64) models.Direction {
	switch {
	case score > 50:
		return models.Bullish
	case score < 50:
		return models.Bearish
	}
	return models.Neutral
}

func confidenceOf(score float64) models.Confidence {
	d := math.Abs(score - 50)
	switch {
	case d >= 25:
		return models.ConfidenceHigh
	case d >= 10:
		return models.ConfidenceMedium
	}
	return models.ConfidenceLow
}

func prices(h *models.PriceHistory) []float64 {
	if h == nil {
		return nil
	}
	return h.Prices
}
