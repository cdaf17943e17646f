package quant

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OracleEngine/internal/domain/models"
)

func rising(n int, start, daily float64) *models.PriceHistory {
	h := &models.PriceHistory{Symbol: "TEST"}
	p := start
	for i := 0; i < n; i++ {
		h.Prices = append(h.Prices, p)
		h.Volumes = append(h.Volumes, 1_000_000)
		p *= 1 + daily
	}
	return h
}

func oscillating(n int) *models.PriceHistory {
	h := &models.PriceHistory{Symbol: "OSC"}
	for i := 0; i < n; i++ {
		h.Prices = append(h.Prices, 100+10*math.Sin(float64(i)/2))
		h.Volumes = append(h.Volumes, 1000+float64(i%7)*100)
	}
	return h
}

func TestRisingSeriesScenario(t *testing.T) {
	h := rising(30, 100, 0.02)

	tsmom := NewTSMOM().Evaluate(h)
	assert.Equal(t, models.ModelOK, tsmom.Status)
	assert.Greater(t, tsmom.Score, 60.0)
	assert.Equal(t, models.Bullish, tsmom.Direction)

	dma := NewDualMA().Evaluate(h)
	assert.Greater(t, dma.Score, 60.0)
	assert.Equal(t, "strong_buy", dma.Signal)

	v := NewValueAtRisk().Evaluate(h)
	assert.Equal(t, "low_risk", v.Signal)
	assert.Equal(t, 70.0, v.Score)
}

func TestBollingerShortSeriesIsNeutral(t *testing.T) {
	h := &models.PriceHistory{Prices: []float64{1, 2, 3, 4}}
	r := NewBollinger().Evaluate(h)
	assert.Equal(t, 50.0, r.Score)
	assert.Equal(t, "neutral", r.Signal)
	assert.Equal(t, models.ModelInsufficientHistory, r.Status)
	assert.Equal(t, models.ConfidenceLow, r.Confidence)
}

func TestBollingerExtremes(t *testing.T) {
	h := &models.PriceHistory{}
	for i := 0; i < 19; i++ {
		h.Prices = append(h.Prices, 100)
	}
	h.Prices = append(h.Prices, 50)
	r := NewBollinger().Evaluate(h)
	assert.Equal(t, 80.0, r.Score)
	assert.Equal(t, "strong_buy", r.Signal)
}

func TestOUTrendingSeriesIsNotTradeable(t *testing.T) {
	r := NewOrnsteinUhlenbeck().Evaluate(rising(40, 100, 0.01))
	assert.Equal(t, models.ModelOK, r.Status)
	assert.LessOrEqual(t, r.Score, 50.0)
	assert.Contains(t, []string{"not_mean_reverting", "slow_reversion"}, r.Signal)
}

func TestOUShortSeries(t *testing.T) {
	r := NewOrnsteinUhlenbeck().Evaluate(rising(29, 100, 0.01))
	assert.Equal(t, models.ModelInsufficientHistory, r.Status)
	assert.Equal(t, 50.0, r.Score)
}

func TestOUOscillatingIsMeanReverting(t *testing.T) {
	r := NewOrnsteinUhlenbeck().Evaluate(oscillating(60))
	require.Equal(t, models.ModelOK, r.Status)
	assert.Equal(t, "mean_reverting", r.Signal)
	assert.Contains(t, r.Diagnostics, "half_life")
	assert.Equal(t, models.Neutral, r.Direction)
}

func TestSharpeFlatSeriesIsDegenerate(t *testing.T) {
	h := &models.PriceHistory{}
	for i := 0; i < 40; i++ {
		h.Prices = append(h.Prices, 10)
	}
	r := NewSharpe().Evaluate(h)
	assert.Equal(t, models.ModelNumericDegenerate, r.Status)
	assert.Equal(t, 50.0, r.Score)
}

func TestSortinoFloorWithoutLosses(t *testing.T) {
	r := NewSortino().Evaluate(rising(35, 10, 0.01))
	require.Equal(t, models.ModelOK, r.Status)
	assert.Equal(t, 85.0, r.Score)
	assert.Equal(t, 0.1, r.Diagnostics["downside_deviation_pct"])
}

func TestRSIOverbought(t *testing.T) {
	r := NewRSI().Evaluate(rising(30, 100, 0.02))
	assert.Equal(t, "overbought", r.Signal)
	assert.Equal(t, 0.0, r.Score)
	assert.Equal(t, 100.0, r.Diagnostics["rsi"])
}

func TestOBVConfirmedUptrend(t *testing.T) {
	r := NewOBV().Evaluate(rising(25, 100, 0.01))
	assert.Equal(t, "confirmed_uptrend", r.Signal)
	assert.Equal(t, 65.0, r.Score)
}

func TestVWAPNeedsVolumes(t *testing.T) {
	h := rising(30, 100, 0.01)
	h.Volumes = nil
	r := NewVWAP().Evaluate(h)
	assert.Equal(t, models.ModelInsufficientHistory, r.Status)

	h = rising(30, 100, 0.01)
	for i := range h.Volumes {
		h.Volumes[i] = 0
	}
	assert.Equal(t, models.ModelNumericDegenerate, NewVWAP().Evaluate(h).Status)
}

func TestADXFallsBackToCloses(t *testing.T) {
	r := NewADX().Evaluate(rising(30, 100, 0.02))
	require.Equal(t, models.ModelOK, r.Status)
	assert.Equal(t, 70.0, r.Score)
	assert.Equal(t, models.Bullish, r.Direction)
}

func TestSuiteScoresAlwaysBounded(t *testing.T) {
	s := NewSuite(nil, nil)
	histories := []*models.PriceHistory{
		nil,
		{},
		{Prices: []float64{1}},
		rising(30, 100, 0.02),
		rising(60, 100, -0.03),
		oscillating(90),
		{Prices: []float64{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}},
	}
	for _, h := range histories {
		results := s.Run(context.Background(), h)
		require.Len(t, results, 11)
		for _, r := range results {
			assert.True(t, r.Score >= 0 && r.Score <= 100, "%s score %v", r.Model, r.Score)
			assert.NotEmpty(t, r.Status)
			for k, v := range r.Diagnostics {
				assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "%s %s", r.Model, k)
			}
		}
	}
}

type panicky struct{}

func (panicky) Name() string { return "panicky" }

func (panicky) Evaluate(*models.PriceHistory) models.QuantModelResult { panic("boom") }

func TestSuiteRecoversPanics(t *testing.T) {
	res := NewSuite(nil, nil, panicky{}).Run(context.Background(), rising(10, 1, 0.01))
	require.Len(t, res, 1)
	assert.Equal(t, models.ModelNumericDegenerate, res[0].Status)
}

func TestSuiteIsDeterministic(t *testing.T) {
	s := NewSuite(nil, nil)
	h := oscillating(45)
	assert.Equal(t, s.Run(context.Background(), h), s.Run(context.Background(), h))
}
