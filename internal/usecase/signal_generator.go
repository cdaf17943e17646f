package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"OracleEngine/internal/domain/models"
	drepo "OracleEngine/internal/domain/repository"
	domsvc "OracleEngine/internal/domain/service"
	svcmetrics "OracleEngine/internal/service/metrics"
	"OracleEngine/internal/services/factors"
	"OracleEngine/pkg/logger"
)

const EventSignalCreated = "created"

// SignalGenerator runs one asset through the gateway, the factor bank, the
// quant suite and the aggregator.
type SignalGenerator struct {
	gateway      domsvc.Gateway
	bank         domsvc.FactorBank
	suite        domsvc.QuantSuite
	engine       domsvc.ScoreEngine
	store        drepo.SignalStore
	events       drepo.EventPublisher
	metrics      drepo.Metrics
	logger       *logger.Logger
	modelVersion string
	historyDays  int
	now          func() time.Time
}

type GeneratorOption func(*SignalGenerator)

func WithGeneratorClock(now func() time.Time) GeneratorOption {
	return func(g *SignalGenerator) {
		if now != nil {
			g.now = now
		}
	}
}

func WithEventPublisher(p drepo.EventPublisher) GeneratorOption {
	return func(g *SignalGenerator) {
		if p != nil {
			g.events = p
		}
	}
}

func NewSignalGenerator(
	gw domsvc.Gateway,
	bank domsvc.FactorBank,
	suite domsvc.QuantSuite,
	engine domsvc.ScoreEngine,
	store drepo.SignalStore,
	metrics drepo.Metrics,
	modelVersion string,
	historyDays int,
	lgr *logger.Logger,
	opts ...GeneratorOption,
) *SignalGenerator {
	if lgr == nil {
		lgr = logger.NewNop()
	}
	if metrics == nil {
		metrics = svcmetrics.Nop{}
	}
	if historyDays <= 0 {
		historyDays = 30
	}
	if modelVersion == "" {
		modelVersion = engine.Version()
	}
	g := &SignalGenerator{
		gateway:      gw,
		bank:         bank,
		suite:        suite,
		engine:       engine,
		store:        store,
		events:       nopEvents{},
		metrics:      metrics,
		logger:       lgr.With(logger.String("component", "signal_generator")),
		modelVersion: modelVersion,
		historyDays:  historyDays,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate scores symbol and, when persist is set and the score is
// actionable, saves it as an active signal.
func (g *SignalGenerator) Generate(ctx context.Context, symbol string, persist bool) (*models.Evaluation, error) {
	ev, err := g.Evaluate(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if persist && ev.Actionable {
		if _, err := g.Save(ctx, ev); err != nil {
			return nil, err
		}
	}
	return ev, nil
}

// Evaluate is a pure function of the gateway's observation and history: the
// same inputs always give the same score and signal type.
func (g *SignalGenerator) Evaluate(ctx context.Context, symbol string) (*models.Evaluation, error) {
	start := g.now()
	obs, hist, err := g.fetch(ctx, symbol)
	if err != nil {
		g.metrics.RecordError("gateway")
		return nil, err
	}

	var (
		fs []models.FactorScore
		qs []models.QuantModelResult
		wg sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		fs = g.bank.Evaluate(obs)
	}()
	go func() {
		defer wg.Done()
		qs = g.suite.Run(ctx, hist)
	}()
	wg.Wait()

	score := g.engine.Score(fs, qs)
	ev := &models.Evaluation{
		Asset:       obs.Symbol,
		Observation: *obs,
		Factors:     fs,
		Quant:       qs,
		Score:       score,
		Levels:      g.engine.Levels(score.Score, obs.Price, factors.VolatilityLabel(fs)),
		Actionable:  g.engine.Actionable(score.Score),
	}
	g.metrics.RecordScore(ev.Asset, score.Score)
	g.metrics.RecordLatency("evaluate", g.now().Sub(start).Seconds())
	g.logger.Debug("asset evaluated",
		logger.String("asset", ev.Asset),
		logger.Int("score", score.Score),
		logger.String("signal_type", string(score.Type)),
		logger.String("fidelity", string(obs.Fidelity)),
	)
	return ev, nil
}

// fetch loads the observation and the history concurrently. A missing
// history degrades the observation instead of failing it; the quant models
// then report insufficient history and drop out of the aggregate.
func (g *SignalGenerator) fetch(ctx context.Context, symbol string) (*models.MarketObservation, *models.PriceHistory, error) {
	type result struct {
		obs  *models.MarketObservation
		hist *models.PriceHistory
		err  error
	}
	obsCh := make(chan result, 1)
	histCh := make(chan result, 1)
	go func() {
		o, err := g.gateway.Observe(ctx, symbol)
		obsCh <- result{obs: o, err: err}
	}()
	go func() {
		h, err := g.gateway.History(ctx, symbol, g.historyDays)
		histCh <- result{hist: h, err: err}
	}()

	or := <-obsCh
	hr := <-histCh
	if or.err != nil {
		return nil, nil, or.err
	}
	obs := or.obs
	if hr.err != nil || hr.hist.Len() == 0 {
		g.logger.Warn("history unavailable", logger.String("asset", obs.Symbol), logger.Error(hr.err))
		obs.Fidelity = models.FidelityDegraded
		obs.Missing = append(obs.Missing, "history")
		return obs, &models.PriceHistory{Symbol: obs.Symbol}, nil
	}
	return obs, hr.hist, nil
}

// Save persists an actionable evaluation as an active signal and sets
// ev.Signal.
func (g *SignalGenerator) Save(ctx context.Context, ev *models.Evaluation) (*models.Signal, error) {
	s, err := g.newSignal(ev)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		g.metrics.RecordError("signal_invalid")
		return nil, fmt.Errorf("%w: %v", drepo.ErrInvalidInput, err)
	}
	if err := g.store.Create(ctx, s); err != nil {
		g.metrics.RecordError("signal_store")
		return nil, fmt.Errorf("save signal %s: %w", s.Asset, err)
	}
	g.metrics.RecordSignalSaved(s.Asset, string(s.Type))
	if err := g.events.PublishSignal(ctx, EventSignalCreated, s); err != nil {
		g.logger.Warn("publish signal event", logger.Int64("signal_id", s.ID), logger.Error(err))
	}
	g.logger.Info("signal saved",
		logger.Int64("signal_id", s.ID),
		logger.String("asset", s.Asset),
		logger.String("signal_type", string(s.Type)),
		logger.Int("score", s.Score),
	)
	ev.Signal = s
	return s, nil
}

func (g *SignalGenerator) newSignal(ev *models.Evaluation) (*models.Signal, error) {
	ttl, err := time.ParseDuration(ev.Levels.Timeframe)
	if err != nil {
		return nil, fmt.Errorf("timeframe %q: %w", ev.Levels.Timeframe, err)
	}
	now := g.now().UTC()
	return &models.Signal{
		Asset:        ev.Asset,
		Pair:         models.Pair(ev.Asset),
		Type:         ev.Score.Type,
		Score:        ev.Score.Score,
		Confidence:   ev.Score.Confidence,
		EntryPrice:   ev.Levels.Entry,
		TargetPrice:  ev.Levels.Target,
		StopLoss:     ev.Levels.Stop,
		RiskReward:   ev.Levels.RiskReward,
		Timeframe:    ev.Levels.Timeframe,
		ExpiresAt:    now.Add(ttl),
		Status:       models.StatusActive,
		ModelVersion: g.modelVersion,
		Fidelity:     ev.Observation.Fidelity,
		Snapshot: models.Snapshot{
			Observation:    ev.Observation,
			Factors:        ev.Factors,
			Quant:          ev.Quant,
			CategoryScores: ev.Score.Categories,
			RawScore:       ev.Score.Raw,
			WeightsVersion: ev.Score.WeightsVersion,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

type nopEvents struct{}

func (nopEvents) PublishSignal(context.Context, string, *models.Signal) error { return nil }
func (nopEvents) PublishAlert(context.Context, *models.AlertEvent) error      { return nil }
