package onchain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"OracleEngine/internal/domain/models"
	"OracleEngine/internal/services/factors"
)

func TestEstimateAccumulation(t *testing.T) {
	obs := &models.MarketObservation{
		Price:         100,
		Change24h:     models.Float(4),
		Volume24h:     models.Float(20),
		MarketCap:     models.Float(100),
		High24h:       models.Float(106),
		Low24h:        models.Float(98),
		SocialUpPct:   models.Float(85),
		SocialDownPct: models.Float(15),
	}
	got := NewEstimator().Estimate(obs)

	assert.Equal(t, 85.0, got[factors.WhaleActivity])
	assert.Equal(t, 80.0, got[factors.ExchangeFlow])
	assert.Equal(t, 70.0, got[factors.OpenInterest])
	assert.Equal(t, 45.0, got[factors.FundingRate])
	assert.Equal(t, 70.0, got[factors.LiquidationRisk])
	assert.Equal(t, 40.0, got[factors.SocialSentiment])
}

func TestEstimateMissingInputs(t *testing.T) {
	got := NewEstimator().Estimate(&models.MarketObservation{Price: 10})
	assert.Empty(t, got)

	got = NewEstimator().Estimate(&models.MarketObservation{Price: 10, Change24h: models.Float(-6)})
	assert.Equal(t, map[string]float64{factors.FundingRate: 80}, got)
}

func TestEstimateIsDeterministic(t *testing.T) {
	obs := &models.MarketObservation{Price: 50, Change24h: models.Float(-1.5), Volume24h: models.Float(9), MarketCap: models.Float(100)}
	e := NewEstimator()
	assert.Equal(t, e.Estimate(obs), e.Estimate(obs))
}
