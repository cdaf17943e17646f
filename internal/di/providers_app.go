package di

import (
	"context"
	"time"

	"OracleEngine/internal/domain/models"
	domrepo "OracleEngine/internal/domain/repository"
	"OracleEngine/internal/handler/api"
	mid "OracleEngine/internal/middleware"
	internalrepo "OracleEngine/internal/repository"
	"OracleEngine/internal/repository/postgres"
	"OracleEngine/internal/service/cache"
	"OracleEngine/internal/service/coingecko"
	"OracleEngine/internal/service/feargreed"
	"OracleEngine/internal/service/finnhub"
	"OracleEngine/internal/service/gateway"
	"OracleEngine/internal/service/notify"
	"OracleEngine/internal/service/ratelimit"
	"OracleEngine/internal/services/factors"
	"OracleEngine/internal/services/onchain"
	"OracleEngine/internal/services/quant"
	"OracleEngine/internal/services/scoring"
	"OracleEngine/internal/usecase"
	pkgcache "OracleEngine/pkg/cache"
	pkgch "OracleEngine/pkg/clickhouse"
	"OracleEngine/pkg/config"
	xhttp "OracleEngine/pkg/http"
	pkgkafka "OracleEngine/pkg/kafka"
	"OracleEngine/pkg/logger"
	"OracleEngine/pkg/server"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// ProvideGateway assembles the market data gateway. With redis on, the
// observation and history caches are shared across replicas.
func ProvideGateway(
	cfg *config.Config,
	universe *models.Universe,
	hc *xhttp.Client,
	history *internalrepo.CHHistoryStore,
	rc *pkgcache.RedisCache,
	svc pkgcache.Service,
	metrics domrepo.Metrics,
	lgr *logger.Logger,
) *gateway.Gateway {
	deps := gateway.Deps{
		Providers: []domrepo.MarketDataProvider{coingecko.New(cfg.Upstream, hc, lgr)},
		Sentiment: feargreed.New(cfg.Upstream, hc, lgr),
		Estimator: onchain.NewEstimator(),
		Metrics:   metrics,
	}
	if history != nil {
		deps.History = history
	}
	if rc != nil {
		g := cfg.Gateway
		deps.Observations = cache.NewTiered[*models.MarketObservation](
			cache.NewTTLCache[*models.MarketObservation](g.CacheTTL, g.MaxEntries, time.Now),
			cache.NewRemoteStore[*models.MarketObservation](svc, "obs", g.CacheTTL, lgr),
		)
		deps.Histories = cache.NewTiered[*models.PriceHistory](
			cache.NewTTLCache[*models.PriceHistory](g.HistoryTTL, g.MaxEntries, time.Now),
			cache.NewRemoteStore[*models.PriceHistory](svc, "history", g.HistoryTTL, lgr),
		)
	}
	return gateway.New(cfg.Gateway, universe, deps, lgr)
}

func ProvideScoreEngine(cfg *config.Config) (*scoring.Engine, error) {
	return scoring.NewEngine(cfg.Scoring.NeutralBand, scoring.DefaultWeights())
}

func ProvideQuantSuite(lgr *logger.Logger, metrics domrepo.Metrics) *quant.Suite {
	return quant.NewSuite(lgr, metrics, quant.DefaultModels()...)
}

func ProvideFactorBank() *factors.Bank {
	return factors.NewBank()
}

// ProvideDispatcher routes email and push through the notifications topic.
// Without kafka those channels are only logged.
func ProvideDispatcher(cfg *config.Config, producer *pkgkafka.Producer, lgr *logger.Logger) *notify.Dispatcher {
	webhook := notify.NewWebhookSender(xhttp.NewClient(xhttp.WithTimeout(cfg.Alerts.WebhookTimeout)))
	if producer == nil {
		return notify.NewDispatcher(lgr,
			notify.NewLogSender(models.ChannelEmail, lgr),
			notify.NewLogSender(models.ChannelPush, lgr),
			webhook,
		)
	}
	topic := cfg.Kafka.Topics.Notifications
	return notify.NewDispatcher(lgr,
		notify.NewBusSender(models.ChannelEmail, producer, topic),
		notify.NewBusSender(models.ChannelPush, producer, topic),
		webhook,
	)
}

func ProvideSignalGenerator(
	cfg *config.Config,
	gw *gateway.Gateway,
	bank *factors.Bank,
	suite *quant.Suite,
	engine *scoring.Engine,
	store domrepo.SignalStore,
	events domrepo.EventPublisher,
	metrics domrepo.Metrics,
	lgr *logger.Logger,
) *usecase.SignalGenerator {
	return usecase.NewSignalGenerator(gw, bank, suite, engine, store, metrics,
		cfg.Scoring.ModelVersion, cfg.Gateway.HistoryDays, lgr,
		usecase.WithEventPublisher(events),
	)
}

func ProvideLifecycle(
	store domrepo.SignalStore,
	gw *gateway.Gateway,
	events domrepo.EventPublisher,
	metrics domrepo.Metrics,
	lgr *logger.Logger,
) *usecase.Lifecycle {
	return usecase.NewLifecycle(store, gw, events, metrics, lgr)
}

func ProvideAlertEngine(
	cfg *config.Config,
	universe *models.Universe,
	rules domrepo.AlertRuleStore,
	events domrepo.AlertEventStore,
	dispatcher *notify.Dispatcher,
	publisher domrepo.EventPublisher,
	metrics domrepo.Metrics,
	lgr *logger.Logger,
) *usecase.AlertEngine {
	return usecase.NewAlertEngine(cfg.Alerts, universe, rules, events, dispatcher, publisher, metrics, lgr)
}

// ProvideScanOrchestrator takes its scan lock from the shared cache so only
// one replica scans at a time.
func ProvideScanOrchestrator(
	cfg *config.Config,
	universe *models.Universe,
	gen *usecase.SignalGenerator,
	alerts *usecase.AlertEngine,
	lifecycle *usecase.Lifecycle,
	audit domrepo.AuditLog,
	lock pkgcache.Service,
	metrics domrepo.Metrics,
	lgr *logger.Logger,
) *usecase.ScanOrchestrator {
	return usecase.NewScanOrchestrator(cfg.Scan, universe, gen, alerts, lifecycle, audit, lock, metrics, lgr)
}

func ProvideScheduler(cfg *config.Config, scanner *usecase.ScanOrchestrator, lgr *logger.Logger) *usecase.Scheduler {
	return usecase.NewScheduler(cfg.Scan, scanner, lgr)
}

func ProvidePerformanceReporter(store domrepo.SignalStore) *usecase.PerformanceReporter {
	return usecase.NewPerformanceReporter(store, time.Minute)
}

// ProvideScanJobs registers the async scan job on the queue.
func ProvideScanJobs(q JobQueue, store domrepo.ScanJobStore, scanner *usecase.ScanOrchestrator, lgr *logger.Logger) *usecase.ScanJobs {
	jobs := usecase.NewScanJobs(q, store, scanner, lgr)
	q.RegisterJob(jobs.Job())
	return jobs
}

func ProvideCandles(history *internalrepo.CHHistoryStore, universe *models.Universe) *usecase.CandlesUseCase {
	var store domrepo.CandleStore
	if history != nil {
		store = history
	}
	return usecase.NewCandlesUseCase(store, universe)
}

func ProvideTickIngestor(
	storage domrepo.TickStorage,
	gw *gateway.Gateway,
	lifecycle *usecase.Lifecycle,
	alerts *usecase.AlertEngine,
	metrics domrepo.Metrics,
	lgr *logger.Logger,
) *usecase.TickIngestor {
	return usecase.NewTickIngestor(storage, gw, lifecycle, alerts, metrics, lgr)
}

// ProvideTickProcessor forwards ticks to kafka when stream.publish is set,
// and ingests them in-process otherwise.
func ProvideTickProcessor(
	cfg *config.Config,
	producer *pkgkafka.Producer,
	ingestor *usecase.TickIngestor,
	metrics domrepo.Metrics,
) *usecase.TickProcessor {
	var pub domrepo.TickPublisher
	if producer != nil && cfg.Stream.Publish {
		pub = internalrepo.NewKafkaTickPublisher(producer, cfg.Kafka.Topics.Ticks)
	}
	return usecase.NewTickProcessor(pub, ingestor, metrics)
}

// ProvideTickCollector returns nil when the price stream is disabled.
func ProvideTickCollector(
	cfg *config.Config,
	universe *models.Universe,
	processor *usecase.TickProcessor,
	metrics domrepo.Metrics,
	lgr *logger.Logger,
) *usecase.TickCollector {
	if !cfg.Stream.Enabled {
		return nil
	}
	pipe := mid.NewTickPipeline(processor, metrics,
		mid.WithThrottle(cfg.Stream.Throttle),
		mid.WithBufferSize(2000),
		mid.WithAccept(universe.Contains),
	)
	return usecase.NewTickCollector(finnhub.New(cfg.Stream, lgr), pipe, metrics, lgr)
}

// ProvideKafkaTicksHandler subscribes the ingestor to the ticks topic.
func ProvideKafkaTicksHandler(
	cfg *config.Config,
	consumer *pkgkafka.Consumer,
	ingestor *usecase.TickIngestor,
	metrics domrepo.Metrics,
) *usecase.KafkaTicksHandler {
	h := usecase.NewKafkaTicksHandler(cfg.Kafka.Topics.Ticks, ingestor, metrics)
	if consumer != nil {
		consumer.RegisterHandler(h)
	}
	return h
}

func ProvideHandlers(
	lgr *logger.Logger,
	gen *usecase.SignalGenerator,
	lifecycle *usecase.Lifecycle,
	store domrepo.SignalStore,
	perf *usecase.PerformanceReporter,
	candles *usecase.CandlesUseCase,
	scanner *usecase.ScanOrchestrator,
	jobs *usecase.ScanJobs,
	alerts *usecase.AlertEngine,
	ch *pkgch.Client,
	pool *postgres.Pool,
	rc *pkgcache.RedisCache,
) xhttp.Handlers {
	checks := map[string]api.HealthCheck{}
	if ch != nil {
		checks["clickhouse"] = ch.Health
	}
	if pool != nil {
		checks["postgres"] = pool.Ping
	}
	if rc != nil {
		checks["redis"] = func(ctx context.Context) error { return rc.Client().Ping(ctx).Err() }
	}
	return xhttp.Handlers{
		api.NewHealthEchoHandler(Version, checks),
		api.NewSignalsEchoHandler(lgr, gen, lifecycle, store, perf, candles),
		api.NewScansEchoHandler(lgr, scanner, jobs),
		api.NewAlertsEchoHandler(lgr, alerts, gen),
	}
}

// ProvideHTTPServer builds the echo server and applies the per-client rate
// limit to everything but health and metrics.
func ProvideHTTPServer(cfg *config.Config, lgr *logger.Logger, handlers xhttp.Handlers) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORSOrigins),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetricsPath(cfg.Metrics.Path))
	}
	srv := xhttp.NewServer(lgr, handlers, opts...)
	if cfg.Server.RateLimit > 0 {
		limiter := ratelimit.NewKeyed(cfg.Server.RateLimit, cfg.Server.RateBurst, 10*time.Minute)
		srv.Echo().Use(mid.RateLimit(limiter, "/health", cfg.Metrics.Path))
	}
	return srv
}

// ProvideApp orders the components: queue and consumer first so the HTTP
// API and the scheduler never enqueue into a stopped queue, the collector
// last. Shared clients close after every component has stopped.
func ProvideApp(
	cfg *config.Config,
	lgr *logger.Logger,
	srv *xhttp.Server,
	scheduler *usecase.Scheduler,
	q JobQueue,
	collector *usecase.TickCollector,
	processor *usecase.TickProcessor,
	_ *usecase.KafkaTicksHandler,
	consumer *pkgkafka.Consumer,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
	pool *postgres.Pool,
	rc *pkgcache.RedisCache,
) *server.App {
	components := []server.Component{
		server.ComponentFuncs{
			ID:      "job_queue",
			StartFn: func(context.Context) error { return q.Start() },
			StopFn:  q.Stop,
		},
	}
	if consumer != nil {
		components = append(components, server.ComponentFuncs{
			ID:      "kafka_consumer",
			StartFn: func(context.Context) error { return consumer.Start() },
			StopFn:  consumer.Stop,
		})
	}
	components = append(components,
		server.ComponentFuncs{
			ID:      "http",
			StartFn: func(context.Context) error { return srv.Start() },
			StopFn:  srv.Stop,
		},
		scheduler,
	)
	if collector != nil {
		components = append(components, collector)
	}

	app := server.New(lgr, cfg.Server.ShutdownTimeout, components...)

	if producer != nil && cfg.Logger.CollectTopic != "" {
		lgr.AddCollector(&logger.CollectionConfig{
			TimeInterval:   cfg.Logger.CollectPeriod,
			CountThreshold: 100,
			Topic:          cfg.Logger.CollectTopic,
			Publisher:      producer,
		})
		app.OnClose(func() error {
			lgr.RemoveCollector()
			return nil
		})
	}
	if producer != nil {
		// the kafka tick publisher owns the producer once the processor uses it
		if processor.Backend() == usecase.BackendKafka {
			app.OnClose(processor.Close)
		} else {
			app.OnClose(producer.Close)
		}
	}
	if ch != nil {
		app.OnClose(ch.Close)
	}
	if pool != nil {
		app.OnClose(func() error {
			pool.Close()
			return nil
		})
	}
	if rc != nil {
		app.OnClose(rc.Close)
	}
	return app
}
