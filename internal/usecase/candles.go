package usecase

import (
	"context"
	"fmt"
	"time"

	"OracleEngine/internal/domain/models"
	domrepo "OracleEngine/internal/domain/repository"
)

// CandlesUseCase serves OHLCV bars built from the stored tick stream.
type CandlesUseCase struct {
	store    domrepo.CandleStore
	universe *models.Universe
}

func NewCandlesUseCase(store domrepo.CandleStore, universe *models.Universe) *CandlesUseCase {
	return &CandlesUseCase{store: store, universe: universe}
}

type GetCandlesParams struct {
	Symbol    string
	From      time.Time
	To        time.Time
	Timeframe domrepo.Timeframe
	Limit     int
}

type GetCandlesResult struct {
	Symbol    string          `json:"symbol"`
	Timeframe string          `json:"timeframe"`
	From      time.Time       `json:"from"`
	To        time.Time       `json:"to"`
	Count     int             `json:"count"`
	Candles   []models.Candle `json:"candles"`
}

func (uc *CandlesUseCase) GetCandles(ctx context.Context, p GetCandlesParams) (*GetCandlesResult, error) {
	if uc.store == nil {
		return nil, fmt.Errorf("candles: tick storage %w", models.ErrDisabled)
	}
	symbol, err := uc.universe.Resolve(p.Symbol)
	if err != nil {
		return nil, err
	}
	if p.From.After(p.To) {
		return nil, fmt.Errorf("%w: from must be <= to", domrepo.ErrInvalidInput)
	}
	if !domrepo.IsValidTimeframe(p.Timeframe) {
		p.Timeframe = domrepo.DefaultTimeframe()
	}
	if p.Limit <= 0 {
		p.Limit = 10000
	}
	if p.Limit > 50000 {
		p.Limit = 50000
	}

	candles, err := uc.store.GetCandles(ctx, symbol, p.From, p.To, p.Timeframe)
	if err != nil {
		return nil, fmt.Errorf("get candles: %w", err)
	}
	if len(candles) > p.Limit {
		candles = candles[:p.Limit]
	}

	return &GetCandlesResult{
		Symbol:    symbol,
		Timeframe: string(p.Timeframe),
		From:      p.From,
		To:        p.To,
		Count:     len(candles),
		Candles:   candles,
	}, nil
}
