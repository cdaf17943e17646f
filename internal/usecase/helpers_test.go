package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"OracleEngine/internal/domain/models"
	drepo "OracleEngine/internal/domain/repository"
	"OracleEngine/internal/repository/memory"
	"OracleEngine/internal/services/factors"
	"OracleEngine/internal/services/quant"
	"OracleEngine/internal/services/scoring"
)

var t0 = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(at time.Time) *clock { return &clock{now: at} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeGateway serves canned observations. A symbol with an error entry
// fails; delay blocks Observe until it elapses or ctx ends, stall blocks it
// regardless of ctx.
type fakeGateway struct {
	mu      sync.Mutex
	prices  map[string]float64
	errs    map[string]error
	history *models.PriceHistory
	histErr error
	delay   map[string]time.Duration
	stall   map[string]time.Duration
	calls   int32
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		prices: make(map[string]float64),
		errs:   make(map[string]error),
		delay:  make(map[string]time.Duration),
		stall:  make(map[string]time.Duration),
		history: &models.PriceHistory{
			Prices: []float64{100, 101, 102, 103, 104, 105},
		},
	}
}

func (g *fakeGateway) setPrice(symbol string, p float64) {
	g.mu.Lock()
	g.prices[symbol] = p
	g.mu.Unlock()
}

func (g *fakeGateway) Observe(ctx context.Context, symbol string) (*models.MarketObservation, error) {
	atomic.AddInt32(&g.calls, 1)
	g.mu.Lock()
	err, price, d, stall := g.errs[symbol], g.prices[symbol], g.delay[symbol], g.stall[symbol]
	g.mu.Unlock()
	time.Sleep(stall)
	if d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if price == 0 {
		price = 100
	}
	return &models.MarketObservation{
		Symbol:         symbol,
		Price:          price,
		Volume24h:      models.Float(2.5e9),
		SentimentIndex: models.Float(40),
		Fidelity:       models.FidelityFull,
		Sources:        []string{"fake"},
		ObservedAt:     t0,
	}, nil
}

func (g *fakeGateway) History(_ context.Context, symbol string, _ int) (*models.PriceHistory, error) {
	if g.histErr != nil {
		return nil, g.histErr
	}
	h := *g.history
	h.Symbol = symbol
	return &h, nil
}

func (g *fakeGateway) Price(_ context.Context, symbol string) (float64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.errs[symbol]; err != nil {
		return 0, err
	}
	p, ok := g.prices[symbol]
	if !ok {
		return 0, models.NewUnavailable(symbol, "fake", nil)
	}
	return p, nil
}

// fixedBank emits one available technical factor with the given score and
// a moderate volatility label, which gives a 48h timeframe.
type fixedBank struct {
	score float64
}

func (b *fixedBank) Evaluate(*models.MarketObservation) []models.FactorScore {
	return []models.FactorScore{
		{Name: factors.Momentum24h, Category: models.CategoryTechnical, Score: b.score, Label: "steady", Available: true},
		{Name: factors.Volatility24h, Category: models.CategoryTechnical, Score: 50, Label: "moderate"},
	}
}

// fixedSuite reports an RSI reading equal to score, or insufficient
// history for an empty series.
type fixedSuite struct {
	score float64
}

func (s fixedSuite) Run(_ context.Context, h *models.PriceHistory) []models.QuantModelResult {
	if h.Len() == 0 {
		return []models.QuantModelResult{{Model: quant.ModelRSI, Score: 50, Status: models.ModelInsufficientHistory}}
	}
	return []models.QuantModelResult{{
		Model:       quant.ModelRSI,
		Score:       s.score,
		Status:      models.ModelOK,
		Direction:   models.Neutral,
		Diagnostics: map[string]float64{"rsi": s.score},
	}}
}

type recordingEvents struct {
	mu      sync.Mutex
	signals []string
	alerts  []*models.AlertEvent
}

func (r *recordingEvents) PublishSignal(_ context.Context, event string, s *models.Signal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, fmt.Sprintf("%s:%d", event, s.ID))
	return nil
}

func (r *recordingEvents) PublishAlert(_ context.Context, e *models.AlertEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, e)
	return nil
}

func (r *recordingEvents) signalEvents() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.signals...)
}

type fakeAudit struct {
	mu        sync.Mutex
	summaries []*models.ScanSummary
}

func (a *fakeAudit) RecordScan(_ context.Context, s *models.ScanSummary) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.summaries = append(a.summaries, s)
	return nil
}

// fakeDispatcher reports every channel of the rule as sent except those in
// fail.
type fakeDispatcher struct {
	mu   sync.Mutex
	fail map[models.Channel]bool
	sent []models.Notification
}

func (d *fakeDispatcher) Dispatch(_ context.Context, r *models.AlertRule, n models.Notification) []models.DeliveryResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]models.DeliveryResult, 0, len(r.Channels))
	for _, ch := range r.Channels {
		if d.fail[ch] {
			out = append(out, models.DeliveryResult{Channel: ch, Reason: "refused"})
			continue
		}
		n.Channel = ch
		d.sent = append(d.sent, n)
		out = append(out, models.DeliveryResult{Channel: ch, Sent: true})
	}
	return out
}

// racingStore lets another writer close a signal between the lifecycle's
// read and its versioned write.
type racingStore struct {
	*memory.SignalStore
	once sync.Once
	race func(s *models.Signal)
}

func (r *racingStore) UpdateIfVersion(ctx context.Context, s *models.Signal, expected int) error {
	r.once.Do(func() {
		if r.race != nil {
			r.race(s)
		}
	})
	return r.SignalStore.UpdateIfVersion(ctx, s, expected)
}

// conflictStore fails the first n creates with ErrConflict.
type conflictStore struct {
	*memory.SignalStore
	mu sync.Mutex
	n  int
}

func (c *conflictStore) Create(ctx context.Context, s *models.Signal) error {
	c.mu.Lock()
	if c.n > 0 {
		c.n--
		c.mu.Unlock()
		return drepo.ErrConflict
	}
	c.mu.Unlock()
	return c.SignalStore.Create(ctx, s)
}

func newScoreEngine(t *testing.T) *scoring.Engine {
	t.Helper()
	e, err := scoring.NewEngine(5, scoring.DefaultWeights())
	require.NoError(t, err)
	return e
}

type generatorFixture struct {
	gw     *fakeGateway
	bank   *fixedBank
	store  *memory.SignalStore
	events *recordingEvents
	clock  *clock
	gen    *SignalGenerator
}

// newGenerator builds a generator whose score equals score: the only inputs
// are one technical factor and one quant model, both at score.
func newGenerator(t *testing.T, score float64, store drepo.SignalStore) *generatorFixture {
	t.Helper()
	f := &generatorFixture{
		gw:     newFakeGateway(),
		bank:   &fixedBank{score: score},
		events: &recordingEvents{},
		clock:  newClock(t0),
	}
	if store == nil {
		f.store = memory.NewSignalStore()
		store = f.store
	}
	f.gen = NewSignalGenerator(f.gw, f.bank, fixedSuite{score: score}, newScoreEngine(t), store, nil, "", 30, nil,
		WithGeneratorClock(f.clock.Now),
		WithEventPublisher(f.events),
	)
	return f
}
