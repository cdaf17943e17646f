// Package onchain derives the auxiliary positioning scores from public
// market metrics. Every estimate is a deterministic function of the
// observation; a missing input leaves the score out so the Factor Bank
// reports it as unknown.
package onchain

import (
	"math"

	"OracleEngine/internal/domain/models"
	"OracleEngine/internal/services/factors"
)

type Estimator struct{}

func NewEstimator() *Estimator { return &Estimator{} }

// Estimate returns factor name -> 0..100 score for every estimate whose
// inputs are present.
func (e *Estimator) Estimate(obs *models.MarketObservation) map[string]float64 {
	out := make(map[string]float64, 6)

	vr, hasVR := volumeRatio(obs)
	pc, hasPC := deref(obs.Change24h)
	if hasVR && hasPC {
		out[factors.WhaleActivity] = whale(vr, pc)
		out[factors.ExchangeFlow] = exchangeFlow(vr, pc)
		out[factors.OpenInterest] = openInterest(vr, pc)
	}
	if hasPC {
		out[factors.FundingRate] = funding(pc)
	}
	if r, ok := rangeOfPrice(obs); ok {
		out[factors.LiquidationRisk] = liquidation(r)
	}
	if bull, ok := bullRatio(obs); ok {
		out[factors.SocialSentiment] = social(bull)
	}
	return out
}

// Large volume against market cap with a directional move reads as
// accumulation or distribution.
func whale(vr, pc float64) float64 {
	switch {
	case vr > 15 && pc > 2:
		return 85
	case vr > 15 && pc < -2:
		return 25
	case vr > 8 && pc > 1:
		return 70
	case vr > 8 && pc < -1:
		return 35
	}
	return 50
}

// raw risk, the bank inverts it
func liquidation(rangePct float64) float64 {
	switch {
	case rangePct > 10:
		return 85
	case rangePct > 7:
		return 70
	case rangePct > 4:
		return 50
	}
	return 30
}

// Crowded longs after a strong move pay funding: contrarian.
func funding(pc float64) float64 {
	switch {
	case pc > 5:
		return 30
	case pc > 2:
		return 45
	case pc > -2:
		return 60
	case pc > -5:
		return 70
	}
	return 80
}

func exchangeFlow(vr, pc float64) float64 {
	switch {
	case vr > 10 && pc < -3:
		return 25
	case vr > 10 && pc > 3:
		return 80
	case vr > 5 && pc < 0:
		return 40
	case vr > 5 && pc > 0:
		return 65
	}
	return 50
}

func openInterest(vr, pc float64) float64 {
	switch {
	case vr > 8 && pc > 2:
		return 70
	case vr > 8 && pc < -2:
		return 35
	}
	return 50
}

// Crowd euphoria is contrarian-bearish.
func social(bull float64) float64 {
	switch {
	case bull >= 80:
		return 40
	case bull >= 65:
		return 55
	case bull >= 45:
		return 50
	case bull >= 30:
		return 60
	}
	return 75
}

func volumeRatio(obs *models.MarketObservation) (float64, bool) {
	if obs.Volume24h == nil || obs.MarketCap == nil || *obs.MarketCap <= 0 {
		return 0, false
	}
	return *obs.Volume24h / *obs.MarketCap * 100, true
}

func rangeOfPrice(obs *models.MarketObservation) (float64, bool) {
	if obs.High24h == nil || obs.Low24h == nil || obs.Price <= 0 {
		return 0, false
	}
	return (*obs.High24h - *obs.Low24h) / obs.Price * 100, true
}

func bullRatio(obs *models.MarketObservation) (float64, bool) {
	up, okUp := deref(obs.SocialUpPct)
	down, okDown := deref(obs.SocialDownPct)
	if !okUp {
		return 0, false
	}
	if !okDown {
		down = 100 - up
	}
	total := up + down
	if total <= 0 {
		return 0, false
	}
	return up / total * 100, true
}

func deref(p *float64) (float64, bool) {
	if p == nil || math.IsNaN(*p) {
		return 0, false
	}
	return *p, true
}
