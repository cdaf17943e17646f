package di

import (
	"errors"

	"OracleEngine/internal/domain/models"
	"OracleEngine/internal/repository/postgres"
	"OracleEngine/internal/usecase"
	pkgcache "OracleEngine/pkg/cache"
	pkgch "OracleEngine/pkg/clickhouse"
	pkgkafka "OracleEngine/pkg/kafka"
)

// Engine is the scoring pipeline without the HTTP server and background
// drivers, for one-shot command line runs.
type Engine struct {
	Universe  *models.Universe
	Generator *usecase.SignalGenerator
	Scanner   *usecase.ScanOrchestrator
	Lifecycle *usecase.Lifecycle

	closers []func() error
}

// Close releases the shared clients.
func (e *Engine) Close() error {
	var errs []error
	for _, fn := range e.closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func ProvideEngine(
	universe *models.Universe,
	gen *usecase.SignalGenerator,
	scanner *usecase.ScanOrchestrator,
	lifecycle *usecase.Lifecycle,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
	pool *postgres.Pool,
	rc *pkgcache.RedisCache,
) *Engine {
	e := &Engine{Universe: universe, Generator: gen, Scanner: scanner, Lifecycle: lifecycle}
	if producer != nil {
		e.closers = append(e.closers, producer.Close)
	}
	if ch != nil {
		e.closers = append(e.closers, ch.Close)
	}
	if pool != nil {
		e.closers = append(e.closers, func() error {
			pool.Close()
			return nil
		})
	}
	if rc != nil {
		e.closers = append(e.closers, rc.Close)
	}
	return e
}
