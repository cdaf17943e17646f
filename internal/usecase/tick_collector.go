package usecase

import (
	"context"
	"sync"

	"OracleEngine/internal/domain/models"
	drepo "OracleEngine/internal/domain/repository"
	mid "OracleEngine/internal/middleware"
	svcmetrics "OracleEngine/internal/service/metrics"
	"OracleEngine/pkg/logger"
)

// TickCollector reads the market stream and pushes ticks through the
// pipeline. Stream errors trigger a reconnect; the collector only stops
// with its context.
type TickCollector struct {
	stream  drepo.MarketStream
	pipe    *mid.TickPipeline
	metrics drepo.Metrics
	logger  *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewTickCollector(stream drepo.MarketStream, pipe *mid.TickPipeline, metrics drepo.Metrics, lgr *logger.Logger) *TickCollector {
	if lgr == nil {
		lgr = logger.NewNop()
	}
	if metrics == nil {
		metrics = svcmetrics.Nop{}
	}
	return &TickCollector{
		stream:  stream,
		pipe:    pipe,
		metrics: metrics,
		logger:  lgr.With(logger.String("component", "tick_collector")),
	}
}

func (c *TickCollector) Name() string { return "tick_collector" }

func (c *TickCollector) IsConnected() bool { return c.stream.IsConnected() }

func (c *TickCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	c.mu.Unlock()

	c.pipe.Start(ctx)
	go c.run(ctx)
	return nil
}

func (c *TickCollector) run(ctx context.Context) {
	defer close(c.done)
	for ctx.Err() == nil {
		ticks, errs := c.stream.Read(ctx)
		c.consume(ctx, ticks, errs)
		if ctx.Err() != nil {
			return
		}
		if err := c.stream.Reconnect(ctx); err != nil {
			c.metrics.RecordError("stream_reconnect")
			c.logger.Warn("reconnect failed", logger.Error(err))
		}
	}
}

// consume returns when the stream reports an error or closes.
func (c *TickCollector) consume(ctx context.Context, ticks <-chan *models.PriceTick, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if ok && err != nil {
				c.metrics.RecordError("stream")
				c.logger.Warn("stream error", logger.Error(err))
			}
			return
		case t, ok := <-ticks:
			if !ok {
				return
			}
			if t == nil {
				continue
			}
			if err := c.pipe.Process(ctx, t); err != nil {
				c.logger.Debug("tick rejected", logger.String("asset", t.Symbol), logger.Error(err))
			}
		}
	}
}

// Stop halts the read loop, flushes the pipeline and closes the stream.
func (c *TickCollector) Stop(ctx context.Context) error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
		}
	}
	c.pipe.Stop()
	return c.stream.Close()
}
