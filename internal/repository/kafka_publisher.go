package repository

import (
	"context"
	"strconv"
	"time"

	"OracleEngine/internal/domain/models"
	domrepo "OracleEngine/internal/domain/repository"
	pkgkafka "OracleEngine/pkg/kafka"
)

// Producer is the part of pkg/kafka.Producer the publishers use.
type Producer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaTickPublisher forwards streamed ticks, keyed by symbol so each
// asset's prints stay in order on one partition.
type KafkaTickPublisher struct {
	producer Producer
	topic    string
}

func NewKafkaTickPublisher(producer Producer, topic string) *KafkaTickPublisher {
	return &KafkaTickPublisher{producer: producer, topic: topic}
}

func (p *KafkaTickPublisher) Publish(ctx context.Context, t *models.PriceTick) error {
	return p.producer.Publish(ctx, p.topic, []byte(t.Symbol), t)
}

func (p *KafkaTickPublisher) PublishBatch(ctx context.Context, ticks []*models.PriceTick) error {
	if len(ticks) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(ticks))
	for i, t := range ticks {
		msgs[i] = pkgkafka.Message{Key: []byte(t.Symbol), Value: t}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaTickPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// SignalEvent is the envelope on the signals topic.
type SignalEvent struct {
	Event      string         `json:"event"`
	Signal     *models.Signal `json:"signal"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// KafkaEventPublisher emits signal and alert events.
type KafkaEventPublisher struct {
	producer     Producer
	signalsTopic string
	alertsTopic  string
}

func NewKafkaEventPublisher(producer Producer, signalsTopic, alertsTopic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, signalsTopic: signalsTopic, alertsTopic: alertsTopic}
}

func (p *KafkaEventPublisher) PublishSignal(ctx context.Context, event string, s *models.Signal) error {
	return p.producer.Publish(ctx, p.signalsTopic, []byte(s.Asset), SignalEvent{
		Event:      event,
		Signal:     s,
		OccurredAt: time.Now().UTC(),
	})
}

func (p *KafkaEventPublisher) PublishAlert(ctx context.Context, e *models.AlertEvent) error {
	return p.producer.Publish(ctx, p.alertsTopic, []byte(strconv.FormatInt(e.RuleID, 10)), e)
}

// NopEventPublisher drops events when no bus is configured.
type NopEventPublisher struct{}

func (NopEventPublisher) PublishSignal(context.Context, string, *models.Signal) error { return nil }
func (NopEventPublisher) PublishAlert(context.Context, *models.AlertEvent) error      { return nil }

// Compile-time interface checks.
var (
	_ domrepo.TickPublisher  = (*KafkaTickPublisher)(nil)
	_ domrepo.EventPublisher = (*KafkaEventPublisher)(nil)
	_ domrepo.EventPublisher = NopEventPublisher{}
	_ Producer               = (*pkgkafka.Producer)(nil)
)
