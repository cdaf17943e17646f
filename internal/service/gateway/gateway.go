// Package gateway is the Market Data Gateway: one normalized observation per
// symbol, served from a short-TTL cache and degraded rather than failed when
// upstreams misbehave.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"OracleEngine/internal/domain/models"
	drepo "OracleEngine/internal/domain/repository"
	domsvc "OracleEngine/internal/domain/service"
	"OracleEngine/internal/service/cache"
	svcmetrics "OracleEngine/internal/service/metrics"
	"OracleEngine/internal/services/features"
	"OracleEngine/internal/services/onchain"
	"OracleEngine/pkg/config"
	"OracleEngine/pkg/logger"
)

const (
	sourceStale  = "stale"
	sourceStream = "stream"
	sentimentKey = "fear_greed"
)

// Deps are the gateway's collaborators. Only Providers is required; nil
// caches are replaced by in-process TTL caches sized from the config.
type Deps struct {
	Providers    []drepo.MarketDataProvider
	Sentiment    drepo.SentimentProvider
	History      drepo.HistoryStore
	Estimator    *onchain.Estimator
	Observations cache.Store[*models.MarketObservation]
	Histories    cache.Store[*models.PriceHistory]
	Metrics      drepo.Metrics
	Now          func() time.Time
}

type Gateway struct {
	universe     *models.Universe
	providers    []drepo.MarketDataProvider
	sentiment    drepo.SentimentProvider
	history      drepo.HistoryStore
	estimator    *onchain.Estimator
	observations cache.Store[*models.MarketObservation]
	histories    cache.Store[*models.PriceHistory]
	stale        *cache.TTLCache[*models.MarketObservation]
	fearGreed    *cache.TTLCache[float64]
	metrics      drepo.Metrics
	logger       *logger.Logger
	now          func() time.Time
	tickMaxAge   time.Duration

	mu    sync.RWMutex
	ticks map[string]models.PriceTick
}

func New(cfg config.GatewayConfig, universe *models.Universe, deps Deps, lgr *logger.Logger) *Gateway {
	if lgr == nil {
		lgr = logger.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	g := &Gateway{
		universe:     universe,
		providers:    deps.Providers,
		sentiment:    deps.Sentiment,
		history:      deps.History,
		estimator:    deps.Estimator,
		observations: deps.Observations,
		histories:    deps.Histories,
		stale:        cache.NewTTLCache[*models.MarketObservation](cfg.StaleTTL, cfg.MaxEntries, now),
		fearGreed:    cache.NewTTLCache[float64](cfg.CacheTTL, 1, now),
		metrics:      deps.Metrics,
		logger:       lgr.With(logger.String("component", "gateway")),
		now:          now,
		tickMaxAge:   cfg.TickMaxAge,
		ticks:        make(map[string]models.PriceTick),
	}
	if g.observations == nil {
		g.observations = cache.NewTTLCache[*models.MarketObservation](cfg.CacheTTL, cfg.MaxEntries, now)
	}
	if g.histories == nil {
		g.histories = cache.NewTTLCache[*models.PriceHistory](cfg.HistoryTTL, cfg.MaxEntries, now)
	}
	if g.estimator == nil {
		g.estimator = onchain.NewEstimator()
	}
	if g.metrics == nil {
		g.metrics = svcmetrics.Nop{}
	}
	return g
}

// Observe returns the current observation for symbol. Upstream failures fall
// back, in order, to the last good observation and to the latest streamed
// trade; both are marked degraded. When nothing is available the error is a
// *models.UnavailableError.
func (g *Gateway) Observe(ctx context.Context, symbol string) (*models.MarketObservation, error) {
	sym, err := g.universe.Resolve(symbol)
	if err != nil {
		return nil, err
	}
	if obs, ok := g.observations.Get(ctx, sym); ok {
		return copyObservation(obs), nil
	}

	start := g.now()
	obs, err := g.fetch(ctx, sym)
	g.metrics.RecordLatency("gateway_observe", g.now().Sub(start).Seconds())
	if err != nil {
		fallback, ok := g.fallback(ctx, sym)
		if !ok {
			g.metrics.RecordError("gateway_unavailable")
			return nil, err
		}
		g.logger.Warn("serving degraded observation",
			logger.String("asset", sym),
			logger.Strings("sources", fallback.Sources),
			logger.Error(err),
		)
		return fallback, nil
	}

	g.enrich(ctx, obs)
	g.observations.Set(ctx, sym, obs)
	if !obs.Degraded() {
		g.stale.Set(ctx, sym, obs)
	}
	g.metrics.RecordLastPrice(sym, obs.Price)
	return copyObservation(obs), nil
}

// Price is the freshest known price: a recent streamed trade when there is
// one, the observation price otherwise.
func (g *Gateway) Price(ctx context.Context, symbol string) (float64, error) {
	sym, err := g.universe.Resolve(symbol)
	if err != nil {
		return 0, err
	}
	if t, ok := g.freshTick(sym); ok {
		return t.Price, nil
	}
	obs, err := g.Observe(ctx, sym)
	if err != nil {
		return 0, err
	}
	return obs.Price, nil
}

// History returns daily bars for the last days days, trying each provider
// before the local tick history.
func (g *Gateway) History(ctx context.Context, symbol string, days int) (*models.PriceHistory, error) {
	sym, err := g.universe.Resolve(symbol)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%s:%d", sym, days)
	if h, ok := g.histories.Get(ctx, key); ok {
		return h, nil
	}

	var errs []error
	for i, p := range g.providers {
		h, err := p.History(ctx, sym, days)
		if err == nil && h.Len() > 0 {
			if i > 0 {
				g.metrics.RecordFallback(p.Name())
			}
			return g.keepHistory(ctx, key, h), nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), orEmpty(err)))
	}
	if g.history != nil {
		h, err := g.history.DailyHistory(ctx, sym, days)
		if err == nil && h.Len() > 0 {
			g.metrics.RecordFallback("tick_history")
			g.logger.Warn("serving history from tick store", logger.String("asset", sym), logger.Int("points", h.Len()))
			return g.keepHistory(ctx, key, h), nil
		}
		errs = append(errs, fmt.Errorf("tick_history: %w", orEmpty(err)))
	}
	g.metrics.RecordError("gateway_history_unavailable")
	return nil, models.NewUnavailable(sym, "history", errors.Join(errs...))
}

// RecordTick keeps the latest streamed trade per asset for price lookups
// and degraded observations.
func (g *Gateway) RecordTick(t *models.PriceTick) {
	if t == nil || t.Price <= 0 || !g.universe.Contains(t.Symbol) {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if prev, ok := g.ticks[t.Symbol]; ok && prev.Timestamp.After(t.Timestamp) {
		return
	}
	g.ticks[t.Symbol] = *t
}

func (g *Gateway) keepHistory(ctx context.Context, key string, h *models.PriceHistory) *models.PriceHistory {
	features.DeriveRanges(h)
	g.histories.Set(ctx, key, h)
	return h
}

func (g *Gateway) fetch(ctx context.Context, sym string) (*models.MarketObservation, error) {
	var errs []error
	source := "none"
	for i, p := range g.providers {
		obs, err := p.Observation(ctx, sym)
		if err == nil {
			if i > 0 {
				g.metrics.RecordFallback(p.Name())
			}
			return obs, nil
		}
		source = p.Name()
		errs = append(errs, err)
		g.logger.Debug("provider failed", logger.String("asset", sym), logger.String("provider", p.Name()), logger.Error(err))
	}
	return nil, models.NewUnavailable(sym, source, errors.Join(errs...))
}

func (g *Gateway) fallback(ctx context.Context, sym string) (*models.MarketObservation, bool) {
	if obs, ok := g.stale.Get(ctx, sym); ok {
		out := copyObservation(obs)
		out.Fidelity = models.FidelityDegraded
		out.Sources = append(out.Sources, sourceStale)
		g.metrics.RecordFallback(sourceStale)
		return out, true
	}
	if t, ok := g.freshTick(sym); ok {
		out := &models.MarketObservation{
			Symbol:     sym,
			Price:      t.Price,
			Fidelity:   models.FidelityDegraded,
			Sources:    []string{sourceStream},
			ObservedAt: t.Timestamp,
		}
		g.enrich(ctx, out)
		g.metrics.RecordFallback(sourceStream)
		return out, true
	}
	return nil, false
}

// enrich adds the sentiment index and auxiliary estimates, then records
// which fields are still missing. A missing sentiment index degrades the
// observation.
func (g *Gateway) enrich(ctx context.Context, obs *models.MarketObservation) {
	if obs.SentimentIndex == nil && g.sentiment != nil {
		if v, ok := g.fearGreedIndex(ctx); ok {
			obs.SentimentIndex = models.Float(v)
		}
	}
	if obs.SentimentIndex == nil {
		obs.Fidelity = models.FidelityDegraded
	}
	if obs.Fidelity == "" {
		obs.Fidelity = models.FidelityFull
	}
	if aux := g.estimator.Estimate(obs); len(aux) > 0 {
		if obs.Auxiliary == nil {
			obs.Auxiliary = make(map[string]float64, len(aux))
		}
		for k, v := range aux {
			if _, set := obs.Auxiliary[k]; !set {
				obs.Auxiliary[k] = v
			}
		}
	}
	obs.Missing = missingFields(obs)
}

func (g *Gateway) fearGreedIndex(ctx context.Context) (float64, bool) {
	if v, ok := g.fearGreed.Get(ctx, sentimentKey); ok {
		return v, true
	}
	v, err := g.sentiment.FearGreed(ctx)
	if err != nil {
		g.metrics.RecordError("sentiment_unavailable")
		g.logger.Warn("sentiment index unavailable", logger.Error(err))
		return 0, false
	}
	g.fearGreed.Set(ctx, sentimentKey, v)
	return v, true
}

func (g *Gateway) freshTick(sym string) (models.PriceTick, bool) {
	g.mu.RLock()
	t, ok := g.ticks[sym]
	g.mu.RUnlock()
	if !ok || (g.tickMaxAge > 0 && g.now().Sub(t.Timestamp) > g.tickMaxAge) {
		return models.PriceTick{}, false
	}
	return t, true
}

func missingFields(obs *models.MarketObservation) []string {
	fields := []struct {
		name string
		v    *float64
	}{
		{"change_24h", obs.Change24h},
		{"change_7d", obs.Change7d},
		{"change_30d", obs.Change30d},
		{"volume_24h", obs.Volume24h},
		{"market_cap", obs.MarketCap},
		{"high_24h", obs.High24h},
		{"low_24h", obs.Low24h},
		{"ath_change_pct", obs.ATHChangePct},
		{"sentiment_index", obs.SentimentIndex},
	}
	var out []string
	for _, f := range fields {
		if f.v == nil {
			out = append(out, f.name)
		}
	}
	return out
}

func copyObservation(o *models.MarketObservation) *models.MarketObservation {
	c := *o
	c.Sources = append([]string(nil), o.Sources...)
	c.Missing = append([]string(nil), o.Missing...)
	if o.Auxiliary != nil {
		c.Auxiliary = make(map[string]float64, len(o.Auxiliary))
		for k, v := range o.Auxiliary {
			c.Auxiliary[k] = v
		}
	}
	return &c
}

func orEmpty(err error) error {
	if err == nil {
		return models.ErrInsufficientHistory
	}
	return err
}

// Compile-time interface check.
var _ domsvc.Gateway = (*Gateway)(nil)
