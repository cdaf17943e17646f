package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"OracleEngine/internal/domain/models"
	domrepo "OracleEngine/internal/domain/repository"
)

// Proc is the downstream the pipeline feeds.
type Proc interface {
	Process(ctx context.Context, t *models.PriceTick) error
	ProcessBatch(ctx context.Context, ticks []*models.PriceTick) error
}

// TickPipeline sits between the market stream and the tick processor. It
// validates, filters to the supported universe, throttles per symbol and
// buffers ticks while the downstream is failing.
type TickPipeline struct {
	proc      Proc
	metrics   domrepo.Metrics
	throttle  time.Duration
	bufSize   int
	flushMax  int
	accept    func(symbol string) bool
	transform func(*models.PriceTick) *models.PriceTick

	bufCh   chan *models.PriceTick
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool

	mu       sync.Mutex
	lastSeen map[string]time.Time // per-symbol last accepted time
}

type PipelineOption func(*TickPipeline)

// WithThrottle keeps at most one tick per symbol per d.
func WithThrottle(d time.Duration) PipelineOption {
	return func(p *TickPipeline) {
		if d >= 0 {
			p.throttle = d
		}
	}
}

// WithBufferSize sets how many ticks are held while downstream is failing.
func WithBufferSize(n int) PipelineOption {
	return func(p *TickPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithFlushBatch caps how many buffered ticks are retried in one batch.
func WithFlushBatch(n int) PipelineOption {
	return func(p *TickPipeline) {
		if n > 0 {
			p.flushMax = n
		}
	}
}

// WithAccept drops ticks whose symbol fails fn.
func WithAccept(fn func(symbol string) bool) PipelineOption {
	return func(p *TickPipeline) { p.accept = fn }
}

// WithTransform rewrites ticks before validation of the result.
func WithTransform(fn func(*models.PriceTick) *models.PriceTick) PipelineOption {
	return func(p *TickPipeline) { p.transform = fn }
}

func NewTickPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *TickPipeline {
	p := &TickPipeline{
		proc:     proc,
		metrics:  metrics,
		throttle: time.Second,
		bufSize:  1000,
		flushMax: 100,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.PriceTick, p.bufSize)
	return p
}

// Start launches background flushing of buffered ticks.
func (p *TickPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		defer close(p.doneCh)
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			case t := <-p.bufCh:
				batch := p.drain(t)
				if err := p.proc.ProcessBatch(ctx, batch); err != nil {
					p.metrics.RecordError("pipeline_flush")
					p.requeue(batch)
					if backoff < 2*time.Second {
						backoff *= 2
					}
					select {
					case <-time.After(backoff):
					case <-p.stopCh:
						return
					case <-ctx.Done():
						return
					}
					continue
				}
				backoff = 50 * time.Millisecond
			}
		}
	}()
}

// Stop halts the flusher. Ticks still buffered are dropped.
func (p *TickPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
	<-p.doneCh
}

// Process validates, throttles and forwards t. A downstream failure buffers
// the tick for a later retry and is still reported to the caller.
func (p *TickPipeline) Process(ctx context.Context, t *models.PriceTick) error {
	start := time.Now()
	if err := validateTick(t); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if p.transform != nil {
		t = p.transform(t)
		if err := validateTick(t); err != nil {
			p.metrics.RecordError("pipeline_transform_invalid")
			return err
		}
	}
	if p.accept != nil && !p.accept(t.Symbol) {
		return nil
	}
	if !p.allow(t.Symbol, start) {
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	if err := p.proc.Process(ctx, t); err != nil {
		p.metrics.RecordError("pipeline_process")
		p.buffer(t)
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

// Buffered reports the number of ticks awaiting retry.
func (p *TickPipeline) Buffered() int { return len(p.bufCh) }

func (p *TickPipeline) buffer(t *models.PriceTick) {
	select {
	case p.bufCh <- t:
		p.metrics.RecordLatency("pipeline_buffer_depth", float64(len(p.bufCh)))
	default:
		p.metrics.RecordError("pipeline_buffer_full")
	}
}

func (p *TickPipeline) requeue(batch []*models.PriceTick) {
	for _, t := range batch {
		select {
		case p.bufCh <- t:
		default:
			p.metrics.RecordError("pipeline_buffer_drop")
		}
	}
}

func (p *TickPipeline) drain(first *models.PriceTick) []*models.PriceTick {
	batch := []*models.PriceTick{first}
	for len(batch) < p.flushMax {
		select {
		case t := <-p.bufCh:
			batch = append(batch, t)
		default:
			return batch
		}
	}
	return batch
}

func validateTick(t *models.PriceTick) error {
	if t == nil {
		return fmt.Errorf("tick nil")
	}
	if t.Symbol == "" {
		return fmt.Errorf("symbol empty")
	}
	if t.Timestamp.IsZero() {
		return fmt.Errorf("timestamp invalid")
	}
	if t.Price <= 0 || t.Volume < 0 {
		return fmt.Errorf("invalid price/volume")
	}
	return nil
}

func (p *TickPipeline) allow(symbol string, now time.Time) bool {
	if p.throttle <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last, ok := p.lastSeen[symbol]
	if ok && now.Sub(last) < p.throttle {
		return false
	}
	p.lastSeen[symbol] = now
	return true
}
