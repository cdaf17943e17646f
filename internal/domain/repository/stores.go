package repository

import (
	"context"
	"time"

	"OracleEngine/internal/domain/models"
)

// Timeframe represents candle resolution buckets.
type Timeframe string

const (
	TF1m Timeframe = "1m"
	TF1h Timeframe = "1h"
	TF1d Timeframe = "1d"
)

// CandleStore serves bars aggregated from stored ticks.
type CandleStore interface {
	GetCandles(ctx context.Context, symbol string, from, to time.Time, tf Timeframe) ([]models.Candle, error)
	GetLatestNCandles(ctx context.Context, symbol string, n int, tf Timeframe) ([]models.Candle, error)
}

// HistoryStore is the local fallback for daily price history.
type HistoryStore interface {
	DailyHistory(ctx context.Context, symbol string, days int) (*models.PriceHistory, error)
}
