package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OracleEngine/internal/domain/models"
	"OracleEngine/pkg/config"
)

func testConfig(url string) config.UpstreamConfig {
	cfg := config.UpstreamConfig{Timeout: 2 * time.Second, Retries: 0, BreakerFailures: 5, BreakerOpenDelay: time.Minute}
	cfg.CoinGecko.BaseURL = url
	cfg.CoinGecko.PerMinute = 6000
	return cfg
}

func TestObservation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/bitcoin", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("market_data"))
		_, _ = w.Write([]byte(`{
			"market_data": {
				"current_price": {"usd": 65000},
				"market_cap": {"usd": 1200000000000},
				"total_volume": {"usd": 30000000000},
				"high_24h": {"usd": 66000},
				"low_24h": {"usd": 64000},
				"ath_change_percentage": {"usd": -12.5},
				"price_change_percentage_24h": 1.5,
				"price_change_percentage_7d": 4.2
			},
			"sentiment_votes_up_percentage": 72
		}`))
	}))
	defer srv.Close()

	obs, err := New(testConfig(srv.URL), nil, nil).Observation(context.Background(), "BTC")
	require.NoError(t, err)
	assert.Equal(t, 65000.0, obs.Price)
	assert.Equal(t, 1.5, *obs.Change24h)
	assert.Nil(t, obs.Change30d)
	assert.Equal(t, 72.0, *obs.SocialUpPct)
	assert.Equal(t, models.FidelityFull, obs.Fidelity)
}

func TestObservationUnsupported(t *testing.T) {
	_, err := New(testConfig("http://unused"), nil, nil).Observation(context.Background(), "FOO")
	assert.ErrorIs(t, err, models.ErrUnsupportedAsset)
}

func TestObservationUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := New(testConfig(srv.URL), nil, nil).Observation(context.Background(), "ETH")
	assert.ErrorIs(t, err, models.ErrUnavailable)
	var ue *models.UnavailableError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, Source, ue.Source)
}

func TestHistoryBucketsByDay(t *testing.T) {
	day := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	ms := func(d, h int) float64 {
		return float64(day.Add(time.Duration(d)*24*time.Hour + time.Duration(h)*time.Hour).UnixMilli())
	}
	chart := chartResponse{
		Prices: [][2]float64{
			{ms(0, 1), 100}, {ms(0, 8), 104}, {ms(0, 20), 102},
			{ms(1, 2), 101}, {ms(1, 23), 99},
		},
		TotalVolumes: [][2]float64{{ms(0, 20), 5000}, {ms(1, 23), 6000}},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/solana/market_chart", r.URL.Path)
		assert.Equal(t, "30", r.URL.Query().Get("days"))
		_ = json.NewEncoder(w).Encode(chart)
	}))
	defer srv.Close()

	h, err := New(testConfig(srv.URL), nil, nil).History(context.Background(), "SOL", 30)
	require.NoError(t, err)
	assert.Equal(t, []float64{102, 99}, h.Prices)
	assert.Equal(t, []float64{104, 101}, h.Highs)
	assert.Equal(t, []float64{100, 99}, h.Lows)
	assert.Equal(t, []float64{5000, 6000}, h.Volumes)
}
