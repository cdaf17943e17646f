package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"OracleEngine/internal/domain/models"
	domrepo "OracleEngine/internal/domain/repository"
	svcmetrics "OracleEngine/internal/service/metrics"
	pkgkafka "OracleEngine/pkg/kafka"
	"OracleEngine/pkg/logger"
)

// TickRecorder keeps the latest streamed price per asset.
type TickRecorder interface {
	RecordTick(t *models.PriceTick)
}

// TickIngestor is where every accepted tick ends up: stored for history
// fallback, handed to the gateway's price cache, checked against the active
// signals of its asset and run through the asset's price alert rules.
type TickIngestor struct {
	storage   domrepo.TickStorage
	recorder  TickRecorder
	lifecycle *Lifecycle
	alerts    *AlertEngine
	metrics   domrepo.Metrics
	logger    *logger.Logger
}

// NewTickIngestor accepts nil storage, recorder, lifecycle and alerts.
func NewTickIngestor(
	storage domrepo.TickStorage,
	recorder TickRecorder,
	lifecycle *Lifecycle,
	alerts *AlertEngine,
	metrics domrepo.Metrics,
	lgr *logger.Logger,
) *TickIngestor {
	if lgr == nil {
		lgr = logger.NewNop()
	}
	if metrics == nil {
		metrics = svcmetrics.Nop{}
	}
	return &TickIngestor{
		storage:   storage,
		recorder:  recorder,
		lifecycle: lifecycle,
		alerts:    alerts,
		metrics:   metrics,
		logger:    lgr.With(logger.String("component", "tick_ingestor")),
	}
}

func (in *TickIngestor) Ingest(ctx context.Context, t *models.PriceTick) error {
	if in.storage != nil {
		start := time.Now()
		if err := in.storage.Store(ctx, t); err != nil {
			in.metrics.RecordError("tick_store")
			return fmt.Errorf("store tick %s: %w", t.Symbol, err)
		}
		in.metrics.RecordLatency("tick_store", time.Since(start).Seconds())
	}
	in.observe(ctx, t)
	return nil
}

func (in *TickIngestor) IngestBatch(ctx context.Context, ticks []*models.PriceTick) error {
	if len(ticks) == 0 {
		return nil
	}
	if in.storage != nil {
		start := time.Now()
		if err := in.storage.StoreBatch(ctx, ticks); err != nil {
			in.metrics.RecordError("tick_store_batch")
			return fmt.Errorf("store %d ticks: %w", len(ticks), err)
		}
		in.metrics.RecordLatency("tick_store_batch", time.Since(start).Seconds())
	}
	for _, t := range ticks {
		in.observe(ctx, t)
	}
	return nil
}

func (in *TickIngestor) observe(ctx context.Context, t *models.PriceTick) {
	if in.recorder != nil {
		in.recorder.RecordTick(t)
	}
	if in.lifecycle != nil {
		if _, err := in.lifecycle.OnTick(ctx, t); err != nil {
			in.metrics.RecordError("tick_resolve")
			in.logger.Warn("resolve signals on tick", logger.String("asset", t.Symbol), logger.Error(err))
		}
	}
	if in.alerts != nil {
		if _, err := in.alerts.EvaluateRules(ctx, t.Symbol, models.TriggerPrice, t.Price); err != nil {
			in.metrics.RecordError("tick_alerts")
			in.logger.Warn("price alerts on tick", logger.String("asset", t.Symbol), logger.Error(err))
		}
	}
}

// KafkaTicksHandler consumes ticks forwarded by a collector running with
// publishing enabled.
type KafkaTicksHandler struct {
	topic    string
	ingestor *TickIngestor
	metrics  domrepo.Metrics
}

func NewKafkaTicksHandler(topic string, ingestor *TickIngestor, metrics domrepo.Metrics) *KafkaTicksHandler {
	if metrics == nil {
		metrics = svcmetrics.Nop{}
	}
	return &KafkaTicksHandler{topic: topic, ingestor: ingestor, metrics: metrics}
}

func (h *KafkaTicksHandler) Topic() string { return h.topic }

func (h *KafkaTicksHandler) Handle(ctx context.Context, b []byte) error {
	var t models.PriceTick
	if err := json.Unmarshal(b, &t); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if err := validateTick(&t); err != nil {
		h.metrics.RecordError("consumer_invalid")
		return err
	}
	// event time to consume time
	h.metrics.RecordLatency("ingest_e2e", time.Since(t.Timestamp).Seconds())
	return h.ingestor.Ingest(ctx, &t)
}

func validateTick(t *models.PriceTick) error {
	switch {
	case t.Symbol == "":
		return fmt.Errorf("tick: symbol empty")
	case t.Timestamp.IsZero():
		return fmt.Errorf("tick %s: timestamp missing", t.Symbol)
	case t.Price <= 0 || t.Volume < 0:
		return fmt.Errorf("tick %s: invalid price/volume", t.Symbol)
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaTicksHandler)(nil)
