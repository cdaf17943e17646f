package features

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OracleEngine/internal/domain/models"
)

func TestSimpleReturns(t *testing.T) {
	r := SimpleReturns([]float64{100, 110, 99})
	require.Len(t, r, 2)
	assert.InDelta(t, 0.10, r[0], 1e-12)
	assert.InDelta(t, -0.10, r[1], 1e-12)

	assert.Nil(t, SimpleReturns([]float64{1}))
	assert.True(t, math.IsNaN(SimpleReturns([]float64{0, 1})[0]))
}

func TestStdDevAndMean(t *testing.T) {
	xs := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, 5.0, Mean(xs), 1e-12)
	assert.InDelta(t, 2.0, StdDev(xs), 1e-12)
	assert.True(t, math.IsNaN(Mean(nil)))
}

func TestSMAAndTail(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5}
	assert.Equal(t, []float64{4, 5}, Tail(xs, 2))
	assert.Equal(t, xs, Tail(xs, 10))
	assert.InDelta(t, 4.0, SMA(xs, 3), 1e-12)
}

func TestOLSSlope(t *testing.T) {
	slope, ok := OLSSlope([]float64{1, 2, 3}, []float64{2, 4, 6})
	require.True(t, ok)
	assert.InDelta(t, 2.0, slope, 1e-12)

	_, ok = OLSSlope([]float64{1, 1, 1}, []float64{1, 2, 3})
	assert.False(t, ok)
}

func TestDeriveRanges(t *testing.T) {
	h := &models.PriceHistory{Prices: []float64{10, 12, 11}}
	DeriveRanges(h)
	assert.Equal(t, []float64{10, 12, 12}, h.Highs)
	assert.Equal(t, []float64{10, 10, 11}, h.Lows)
}

func TestHistoryFromCandles(t *testing.T) {
	day := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h := HistoryFromCandles("BTC", []models.Candle{
		{Start: day, Close: 10, High: 11, Low: 9, Volume: 5},
		{Start: day.Add(24 * time.Hour), Close: 12, High: 13, Low: 10, Volume: 6},
	})
	assert.Equal(t, 2, h.Len())
	assert.Equal(t, []float64{11, 13}, h.Highs)
	assert.Equal(t, []float64{5, 6}, h.Volumes)
}
