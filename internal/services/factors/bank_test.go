package factors

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OracleEngine/internal/domain/models"
)

func TestLaddersAreWellFormed(t *testing.T) {
	for name, l := range Ladders() {
		require.NoError(t, l.Validate(), name)
	}
}

func TestLaddersCoverDomain(t *testing.T) {
	for name, l := range Ladders() {
		for v := -200.0; v <= 200; v += 0.25 {
			score, label := l.Map(v)
			assert.NotEmpty(t, label, "%s at %v", name, v)
			assert.True(t, score >= 0 && score <= 100, "%s at %v", name, v)
		}
		for _, v := range []float64{math.Inf(-1), math.Inf(1)} {
			_, label := l.Map(v)
			assert.NotEmpty(t, label)
		}
	}
}

func TestLadderBoundaries(t *testing.T) {
	cases := []struct {
		l     Ladder
		in    float64
		score float64
		label string
	}{
		{momentum24h, 5, 65, "bullish"},
		{momentum24h, 5.01, 80, "strong_bullish"},
		{momentum24h, -5, 20, "strong_bearish"},
		{trend7d, 0, 50, "sideways"},
		{athProximity, -60, 80, "deep_discount"},
		{marketSentiment, 10, 80, "extreme_fear"},
		{marketSentiment, 25, 65, "fear"},
		{marketSentiment, 59.9, 50, "neutral"},
		{marketSentiment, 75, 25, "extreme_greed"},
		{volatility24h, 1, 70, "low"},
	}
	for _, c := range cases {
		score, label := c.l.Map(c.in)
		assert.Equal(t, c.score, score, "input %v", c.in)
		assert.Equal(t, c.label, label, "input %v", c.in)
	}
}

func TestBankMissingInputsAreUnknown(t *testing.T) {
	fs := NewBank().Evaluate(&models.MarketObservation{Symbol: "BTC", Price: 100})
	require.Len(t, fs, 12)
	for _, f := range fs {
		assert.False(t, f.Available, f.Name)
		assert.Equal(t, 50.0, f.Score, f.Name)
		assert.Equal(t, models.LabelUnknown, f.Label, f.Name)
	}
	assert.Equal(t, models.LabelUnknown, VolatilityLabel(fs))
}

func TestBankFullObservation(t *testing.T) {
	obs := &models.MarketObservation{
		Symbol:         "ETH",
		Price:          100,
		Change24h:      models.Float(6),
		Change7d:       models.Float(-12),
		Volume24h:      models.Float(20),
		MarketCap:      models.Float(100),
		High24h:        models.Float(106),
		Low24h:         models.Float(100),
		ATHChangePct:   models.Float(-25),
		SentimentIndex: models.Float(20),
		Auxiliary: map[string]float64{
			WhaleActivity:   85,
			LiquidationRisk: 70,
			SocialSentiment: 140,
		},
	}
	byName := map[string]models.FactorScore{}
	for _, f := range NewBank().Evaluate(obs) {
		byName[f.Name] = f
	}

	assert.Equal(t, 80.0, byName[Momentum24h].Score)
	assert.Equal(t, 20.0, byName[Trend7d].Score)
	assert.Equal(t, "very_high", byName[VolumeFlow].Label)
	assert.Equal(t, 60.0, byName[ATHProximity].Score)
	assert.Equal(t, "high", byName[Volatility24h].Label)
	assert.Equal(t, 80.0, byName[MarketSentiment].Score)
	assert.Equal(t, 85.0, byName[WhaleActivity].Score)
	assert.Equal(t, 30.0, byName[LiquidationRisk].Score, "inverted")
	assert.Equal(t, 100.0, byName[SocialSentiment].Score, "clamped")
	assert.False(t, byName[FundingRate].Available)
}
