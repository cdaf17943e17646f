package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"OracleEngine/internal/domain/models"
	drepo "OracleEngine/internal/domain/repository"
	svcmetrics "OracleEngine/internal/service/metrics"
)

const (
	BackendKafka = "kafka"
	BackendLocal = "local"
)

// TickProcessor routes accepted ticks either to Kafka, for a separate
// consumer to ingest, or straight into the local ingestor.
type TickProcessor struct {
	pub      drepo.TickPublisher
	ingestor *TickIngestor
	metrics  drepo.Metrics
	backend  string
}

// NewTickProcessor picks the kafka backend when pub is set.
func NewTickProcessor(pub drepo.TickPublisher, ingestor *TickIngestor, metrics drepo.Metrics) *TickProcessor {
	if metrics == nil {
		metrics = svcmetrics.Nop{}
	}
	backend := BackendLocal
	if pub != nil {
		backend = BackendKafka
	}
	return &TickProcessor{pub: pub, ingestor: ingestor, metrics: metrics, backend: backend}
}

func (p *TickProcessor) Backend() string { return p.backend }

func (p *TickProcessor) Process(ctx context.Context, t *models.PriceTick) error {
	if t == nil {
		return errors.New("tick is nil")
	}
	start := time.Now()
	var err error
	switch p.backend {
	case BackendKafka:
		err = p.pub.Publish(ctx, t)
	default:
		err = p.ingestor.Ingest(ctx, t)
	}
	if err != nil {
		p.metrics.RecordError("process")
		return fmt.Errorf("process tick: %w", err)
	}
	p.metrics.RecordLastPrice(t.Symbol, t.Price)
	p.metrics.RecordLatency("process", time.Since(start).Seconds())
	return nil
}

func (p *TickProcessor) ProcessBatch(ctx context.Context, ticks []*models.PriceTick) error {
	if len(ticks) == 0 {
		return nil
	}
	start := time.Now()
	var err error
	switch p.backend {
	case BackendKafka:
		err = p.pub.PublishBatch(ctx, ticks)
	default:
		err = p.ingestor.IngestBatch(ctx, ticks)
	}
	if err != nil {
		p.metrics.RecordError("process_batch")
		return fmt.Errorf("process batch: %w", err)
	}
	p.metrics.RecordLatency("process_batch", time.Since(start).Seconds())
	return nil
}

// Close releases the publisher.
func (p *TickProcessor) Close() error {
	if p.pub != nil {
		return p.pub.Close()
	}
	return nil
}
