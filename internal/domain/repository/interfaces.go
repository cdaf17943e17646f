package repository

import (
	"context"
	"time"

	"OracleEngine/internal/domain/models"
)

type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.PriceTick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

type TickPublisher interface {
	Publish(ctx context.Context, t *models.PriceTick) error
	PublishBatch(ctx context.Context, ticks []*models.PriceTick) error
	Close() error
}

type TickStorage interface {
	Init(ctx context.Context) error // ensure tables
	Store(ctx context.Context, t *models.PriceTick) error
	StoreBatch(ctx context.Context, ticks []*models.PriceTick) error
	Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.PriceTick, error)
	Health(ctx context.Context) error
	Close() error
}

// MarketDataProvider is one upstream source of observations and history.
type MarketDataProvider interface {
	Name() string
	Observation(ctx context.Context, symbol string) (*models.MarketObservation, error)
	History(ctx context.Context, symbol string, days int) (*models.PriceHistory, error)
}

// SentimentProvider returns the market-wide fear & greed index, 0..100.
type SentimentProvider interface {
	FearGreed(ctx context.Context) (float64, error)
}

type SignalStore interface {
	Create(ctx context.Context, s *models.Signal) error // assigns ID and Version
	Get(ctx context.Context, id int64) (*models.Signal, error)
	List(ctx context.Context, f models.SignalFilter) ([]*models.Signal, int, error)
	ListActive(ctx context.Context, asset string) ([]*models.Signal, error) // empty asset = all
	// UpdateIfVersion writes s only when the stored version equals expected,
	// otherwise ErrConflict. On success s.Version is incremented.
	UpdateIfVersion(ctx context.Context, s *models.Signal, expected int) error
}

type AlertFilter struct {
	UserID string
	Asset  string
	Active *bool
}

type AlertRuleStore interface {
	Create(ctx context.Context, r *models.AlertRule) error
	Get(ctx context.Context, id int64) (*models.AlertRule, error)
	List(ctx context.Context, f AlertFilter) ([]*models.AlertRule, error)
	ListActiveByAsset(ctx context.Context, asset string) ([]*models.AlertRule, error)
	UpdateIfVersion(ctx context.Context, r *models.AlertRule, expected int) error
	Delete(ctx context.Context, id int64) error
}

type AlertEventStore interface {
	Append(ctx context.Context, e *models.AlertEvent) error
	ListByRule(ctx context.Context, ruleID int64, limit int) ([]*models.AlertEvent, error)
}

type ScanJobStore interface {
	SaveJob(ctx context.Context, job *models.ScanJob) error
	GetJob(ctx context.Context, id string) (*models.ScanJob, error)
}

// EventPublisher fans domain events out to the message bus.
type EventPublisher interface {
	PublishSignal(ctx context.Context, event string, s *models.Signal) error
	PublishAlert(ctx context.Context, e *models.AlertEvent) error
}

type AuditLog interface {
	RecordScan(ctx context.Context, summary *models.ScanSummary) error
}

type Metrics interface {
	RecordScan(trigger string)
	RecordAssetResult(outcome string)
	RecordSignalSaved(asset, signalType string)
	RecordSignalClosed(status string)
	RecordAlert(trigger string)
	RecordFallback(source string)
	RecordModelStatus(model, status string)
	RecordError(kind string)
	RecordScore(asset string, score int)
	RecordLastPrice(asset string, price float64)
	RecordLatency(op string, seconds float64)
}
