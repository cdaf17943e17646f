package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"OracleEngine/internal/domain/models"
	domrepo "OracleEngine/internal/domain/repository"
	internalrepo "OracleEngine/internal/repository"
	"OracleEngine/internal/repository/memory"
	"OracleEngine/internal/repository/postgres"
	svcmetrics "OracleEngine/internal/service/metrics"
	pkgcache "OracleEngine/pkg/cache"
	pkgch "OracleEngine/pkg/clickhouse"
	"OracleEngine/pkg/config"
	xhttp "OracleEngine/pkg/http"
	pkgkafka "OracleEngine/pkg/kafka"
	"OracleEngine/pkg/logger"
	"OracleEngine/pkg/metrics"
	"OracleEngine/pkg/queue"
)

const initTimeout = 15 * time.Second

// JobQueue is what both pkg/queue backends offer.
type JobQueue interface {
	queue.Publisher
	RegisterJob(job queue.Job)
	Start() error
	Stop(ctx context.Context) error
}

// ProvideLogger builds the root logger from the logger section.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	lgr, err := logger.New(&logger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return lgr.With(logger.String("env", cfg.Environment)), nil
}

// ProvideMetrics registers the engine and upstream collectors on the default
// registry, which is what the /metrics route serves.
func ProvideMetrics(cfg *config.Config) domrepo.Metrics {
	if !cfg.Metrics.Enabled {
		return svcmetrics.Nop{}
	}
	svcmetrics.Register(prometheus.DefaultRegisterer)
	return metrics.New(prometheus.DefaultRegisterer)
}

func ProvideUniverse(cfg *config.Config) *models.Universe {
	if len(cfg.Assets) == 0 {
		return models.NewUniverse(config.DefaultAssets)
	}
	return models.NewUniverse(cfg.Assets)
}

// ProvideHTTPClient is the shared client for upstream market data calls.
func ProvideHTTPClient(cfg *config.Config) *xhttp.Client {
	return xhttp.NewClient(xhttp.WithTimeout(cfg.Upstream.Timeout))
}

// ProvideClickHouseClient connects when clickhouse is enabled and returns nil
// otherwise.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer returns nil when kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	p := cfg.Kafka.Producer
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(p.RequiredAcks),
		pkgkafka.WithMaxAttempts(p.MaxAttempts),
		pkgkafka.WithBatching(p.BatchSize, p.Linger),
		pkgkafka.WithWriteTimeout(p.WriteTimeout),
		pkgkafka.WithAsync(p.Async),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer returns nil when kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, lgr *logger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	c := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(lgr,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(c.GroupID),
		pkgkafka.WithConsumerWorkers(c.Workers),
		pkgkafka.WithConsumerRetry(c.RetryMax, c.BackoffMin, c.BackoffMax),
		pkgkafka.WithConsumerDLQ(c.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideRedis returns nil when redis is disabled.
func ProvideRedis(cfg *config.Config) (*pkgcache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
		pkgcache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		pkgcache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.PoolSize/4),
		pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return rc, nil
}

// ProvideCacheService fronts redis with a small in-process tier, or stands
// in with a memory cache when redis is off.
func ProvideCacheService(rc *pkgcache.RedisCache) pkgcache.Service {
	if rc == nil {
		return pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(10000))
	}
	return pkgcache.NewLayeredCache(rc, 2048, 15*time.Second)
}

func ProvideJobQueue(cfg *config.Config, lgr *logger.Logger, rc *pkgcache.RedisCache) JobQueue {
	qcfg := &queue.Config{
		Workers:    cfg.Scan.QueueWorkers,
		BufferSize: 64,
		RetryLimit: 2,
		RetryDelay: 30 * time.Second,
	}
	if rc == nil {
		return queue.NewMemoryQueue(lgr, qcfg)
	}
	return queue.NewRedisQueue(lgr, qcfg, rc.Client(), queue.WithKeyPrefix(cfg.Redis.Prefix+":jobs"))
}

// ProvidePostgresPool connects and migrates for the postgres backend and
// returns nil for the memory backend.
func ProvidePostgresPool(cfg *config.Config) (*postgres.Pool, error) {
	if cfg.Storage.Backend != "postgres" {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres migrate: %w", err)
	}
	return pool, nil
}

func ProvideSignalStore(pool *postgres.Pool) domrepo.SignalStore {
	if pool == nil {
		return memory.NewSignalStore()
	}
	return postgres.NewSignalStore(pool)
}

func ProvideAlertRuleStore(pool *postgres.Pool) domrepo.AlertRuleStore {
	if pool == nil {
		return memory.NewAlertRuleStore()
	}
	return postgres.NewAlertRuleStore(pool)
}

func ProvideAlertEventStore(pool *postgres.Pool) domrepo.AlertEventStore {
	if pool == nil {
		return memory.NewAlertEventStore()
	}
	return postgres.NewAlertEventStore(pool)
}

// ProvideScanJobStore keeps async scan results in redis so any replica can
// answer GET /api/scans/:id.
func ProvideScanJobStore(cfg *config.Config, rc *pkgcache.RedisCache, svc pkgcache.Service) domrepo.ScanJobStore {
	if rc == nil {
		return memory.NewScanJobStore()
	}
	return internalrepo.NewCacheJobStore(svc, cfg.Scan.ResultRetention)
}

// ProvideTickStorage creates the tick table on first use. Without clickhouse
// ticks are not stored.
func ProvideTickStorage(cfg *config.Config, ch *pkgch.Client) (domrepo.TickStorage, error) {
	if ch == nil {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	storage := internalrepo.NewClickHouseTickStorage(ch, cfg.ClickHouse.Database)
	if err := storage.Init(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return storage, nil
}

func ProvideHistoryStore(cfg *config.Config, ch *pkgch.Client, lgr *logger.Logger) *internalrepo.CHHistoryStore {
	if ch == nil {
		return nil
	}
	return internalrepo.NewCHHistoryStore(ch, cfg.ClickHouse.Database, lgr)
}

func ProvideAuditLog(cfg *config.Config, ch *pkgch.Client) domrepo.AuditLog {
	if ch == nil {
		return nil
	}
	return internalrepo.NewCHScanAudit(ch, cfg.ClickHouse.Database)
}

func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer) domrepo.EventPublisher {
	if producer == nil {
		return internalrepo.NopEventPublisher{}
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.Topics.Signals, cfg.Kafka.Topics.Alerts)
}
