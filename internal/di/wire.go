//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"OracleEngine/pkg/config"
	"OracleEngine/pkg/server"
)

var infraSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideUniverse,
	ProvideHTTPClient,
	ProvideClickHouseClient,
	ProvideKafkaProducer,
	ProvideKafkaConsumer,
	ProvideRedis,
	ProvideCacheService,
	ProvideJobQueue,
	ProvidePostgresPool,
)

var repositorySet = wire.NewSet(
	ProvideSignalStore,
	ProvideAlertRuleStore,
	ProvideAlertEventStore,
	ProvideScanJobStore,
	ProvideTickStorage,
	ProvideHistoryStore,
	ProvideAuditLog,
	ProvideEventPublisher,
)

var engineSet = wire.NewSet(
	ProvideGateway,
	ProvideScoreEngine,
	ProvideQuantSuite,
	ProvideFactorBank,
	ProvideDispatcher,
	ProvideSignalGenerator,
	ProvideLifecycle,
	ProvideAlertEngine,
	ProvideScanOrchestrator,
	ProvideScheduler,
	ProvidePerformanceReporter,
	ProvideScanJobs,
	ProvideCandles,
)

var tickSet = wire.NewSet(
	ProvideTickIngestor,
	ProvideTickProcessor,
	ProvideTickCollector,
	ProvideKafkaTicksHandler,
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		infraSet,
		repositorySet,
		engineSet,
		tickSet,
		ProvideHandlers,
		ProvideHTTPServer,
		ProvideApp,
	)
	return &server.App{}, nil
}

// InitializeEngine wires the scoring pipeline for the command line tool.
func InitializeEngine(cfg *config.Config) (*Engine, error) {
	wire.Build(
		infraSet,
		repositorySet,
		engineSet,
		ProvideEngine,
	)
	return &Engine{}, nil
}
