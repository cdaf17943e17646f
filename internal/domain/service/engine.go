package service

import (
	"context"

	"OracleEngine/internal/domain/models"
)

// Gateway is the fault-tolerant market data front door.
type Gateway interface {
	Observe(ctx context.Context, symbol string) (*models.MarketObservation, error)
	History(ctx context.Context, symbol string, days int) (*models.PriceHistory, error)
	Price(ctx context.Context, symbol string) (float64, error)
}

// FactorBank maps an observation onto threshold-ladder factor scores.
type FactorBank interface {
	Evaluate(obs *models.MarketObservation) []models.FactorScore
}

type QuantModel interface {
	Name() string
	Evaluate(h *models.PriceHistory) models.QuantModelResult
}

type QuantSuite interface {
	Run(ctx context.Context, h *models.PriceHistory) []models.QuantModelResult
}

// ScoreEngine combines factor and model scores into an Oracle Score.
type ScoreEngine interface {
	Score(factors []models.FactorScore, quant []models.QuantModelResult) models.OracleScore
	Replay(snap models.Snapshot) (models.OracleScore, error)
	Levels(score int, entry float64, volatilityLabel string) models.TradeLevels
	Actionable(score int) bool
	Version() string
}

type ChannelSender interface {
	Channel() models.Channel
	Send(ctx context.Context, n models.Notification) error
}

type Dispatcher interface {
	Dispatch(ctx context.Context, rule *models.AlertRule, n models.Notification) []models.DeliveryResult
}
