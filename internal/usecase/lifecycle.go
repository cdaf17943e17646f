package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"OracleEngine/internal/domain/models"
	drepo "OracleEngine/internal/domain/repository"
	svcmetrics "OracleEngine/internal/service/metrics"
	"OracleEngine/pkg/logger"
)

// PriceSource is the part of the gateway the lifecycle needs.
type PriceSource interface {
	Price(ctx context.Context, symbol string) (float64, error)
}

// Lifecycle moves active signals into their terminal states. Every write is
// a compare-and-set on the signal version, so two closers racing on the same
// signal produce exactly one outcome.
type Lifecycle struct {
	store   drepo.SignalStore
	prices  PriceSource
	events  drepo.EventPublisher
	metrics drepo.Metrics
	logger  *logger.Logger
	now     func() time.Time
}

func NewLifecycle(store drepo.SignalStore, prices PriceSource, events drepo.EventPublisher, metrics drepo.Metrics, lgr *logger.Logger) *Lifecycle {
	if lgr == nil {
		lgr = logger.NewNop()
	}
	if metrics == nil {
		metrics = svcmetrics.Nop{}
	}
	if events == nil {
		events = nopEvents{}
	}
	return &Lifecycle{
		store:   store,
		prices:  prices,
		events:  events,
		metrics: metrics,
		logger:  lgr.With(logger.String("component", "lifecycle")),
		now:     time.Now,
	}
}

// SetClock replaces the wall clock, for tests.
func (l *Lifecycle) SetClock(now func() time.Time) { l.now = now }

// OnTick checks every active signal of the tick's asset against the tick
// price. Signals already past expiry are expired at the tick price.
func (l *Lifecycle) OnTick(ctx context.Context, t *models.PriceTick) (int, error) {
	if t == nil || t.Price <= 0 {
		return 0, nil
	}
	active, err := l.store.ListActive(ctx, t.Symbol)
	if err != nil {
		return 0, fmt.Errorf("list active %s: %w", t.Symbol, err)
	}
	at := t.Timestamp
	if at.IsZero() {
		at = l.now()
	}
	closed := 0
	for _, s := range active {
		updated, err := l.apply(ctx, s, func(c *models.Signal) (bool, error) {
			if c.IsExpired(at) {
				return true, c.Expire(t.Price, at)
			}
			return c.Resolve(t.Price, at)
		})
		if err != nil {
			l.logger.Warn("resolve signal", logger.Int64("signal_id", s.ID), logger.Error(err))
			continue
		}
		if updated != nil {
			closed++
		}
	}
	return closed, nil
}

// CloseExpired expires every active signal whose expiry has passed, at the
// current gateway price or, when that is unavailable, at the entry price.
func (l *Lifecycle) CloseExpired(ctx context.Context) (int, error) {
	active, err := l.store.ListActive(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("list active: %w", err)
	}
	now := l.now()
	prices := make(map[string]float64)
	closed := 0
	for _, s := range active {
		if !s.IsExpired(now) {
			continue
		}
		price := l.priceOf(ctx, s, prices)
		updated, err := l.apply(ctx, s, func(c *models.Signal) (bool, error) {
			return true, c.Expire(price, now)
		})
		if err != nil {
			l.logger.Warn("expire signal", logger.Int64("signal_id", s.ID), logger.Error(err))
			continue
		}
		if updated != nil {
			closed++
		}
	}
	if closed > 0 {
		l.logger.Info("expired signals closed", logger.Int("count", closed))
	}
	return closed, nil
}

// Cancel closes an active signal by operator request.
func (l *Lifecycle) Cancel(ctx context.Context, id int64, reason string) (*models.Signal, error) {
	s, err := l.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: signal %d is %s", models.ErrInvalidTransition, s.ID, s.Status)
	}
	if reason == "" {
		reason = "cancelled by operator"
	}
	price := l.priceOf(ctx, s, nil)
	now := l.now()
	updated, err := l.apply(ctx, s, func(c *models.Signal) (bool, error) {
		return true, c.Cancel(price, now, reason)
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("%w: signal %d already closed", models.ErrInvalidTransition, id)
	}
	return updated, nil
}

func (l *Lifecycle) priceOf(ctx context.Context, s *models.Signal, memo map[string]float64) float64 {
	if p, ok := memo[s.Asset]; ok {
		return p
	}
	price := s.EntryPrice
	if l.prices != nil {
		p, err := l.prices.Price(ctx, s.Asset)
		switch {
		case err != nil:
			l.metrics.RecordFallback("entry_price")
			l.logger.Warn("price unavailable, closing flat", logger.String("asset", s.Asset), logger.Error(err))
		case p > 0:
			price = p
		}
	}
	if memo != nil {
		memo[s.Asset] = price
	}
	return price
}

// apply runs step on a copy of s and writes it back if the stored version is
// unchanged. On a conflict the signal is reloaded and step runs once more
// unless someone else already closed it. A nil signal means nothing changed.
func (l *Lifecycle) apply(ctx context.Context, s *models.Signal, step func(*models.Signal) (bool, error)) (*models.Signal, error) {
	cur := s
	for attempt := 0; attempt < 2; attempt++ {
		next := cur.Clone()
		changed, err := step(next)
		if err != nil || !changed {
			return nil, err
		}
		err = l.store.UpdateIfVersion(ctx, next, cur.Version)
		if err == nil {
			l.closed(ctx, next)
			return next, nil
		}
		if !errors.Is(err, drepo.ErrConflict) {
			return nil, err
		}
		fresh, err := l.store.Get(ctx, cur.ID)
		if err != nil {
			return nil, err
		}
		if fresh.Status.IsTerminal() {
			return nil, nil
		}
		cur = fresh
	}
	return nil, drepo.ErrConflict
}

func (l *Lifecycle) closed(ctx context.Context, s *models.Signal) {
	l.metrics.RecordSignalClosed(string(s.Status))
	if err := l.events.PublishSignal(ctx, string(s.Status), s); err != nil {
		l.logger.Warn("publish signal event", logger.Int64("signal_id", s.ID), logger.Error(err))
	}
	l.logger.Info("signal closed",
		logger.Int64("signal_id", s.ID),
		logger.String("asset", s.Asset),
		logger.String("status", string(s.Status)),
		logger.Float64("outcome_price", *s.OutcomePrice),
		logger.Float64("pnl_pct", *s.OutcomePnLPct),
	)
}
