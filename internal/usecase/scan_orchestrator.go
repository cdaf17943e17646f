package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"OracleEngine/internal/domain/models"
	drepo "OracleEngine/internal/domain/repository"
	svcmetrics "OracleEngine/internal/service/metrics"
	pkgcache "OracleEngine/pkg/cache"
	"OracleEngine/pkg/config"
	"OracleEngine/pkg/logger"
)

var ErrScanInProgress = errors.New("scan already in progress")

var scanLockKey = pkgcache.Key("scan", "lock")

// ScanOrchestrator scores the whole universe with bounded parallelism. One
// asset failing or timing out is recorded in the summary and never stops the
// others.
type ScanOrchestrator struct {
	universe     *models.Universe
	generator    *SignalGenerator
	alerts       *AlertEngine
	lifecycle    *Lifecycle
	audit        drepo.AuditLog
	lock         pkgcache.Service
	metrics      drepo.Metrics
	logger       *logger.Logger
	workers      int
	assetTimeout time.Duration
	lockTTL      time.Duration
	now          func() time.Time
}

// NewScanOrchestrator wires the scan. audit and lock may be nil: without a
// lock service scans only serialize within the process.
func NewScanOrchestrator(
	cfg config.ScanConfig,
	universe *models.Universe,
	gen *SignalGenerator,
	alerts *AlertEngine,
	lifecycle *Lifecycle,
	audit drepo.AuditLog,
	lock pkgcache.Service,
	metrics drepo.Metrics,
	lgr *logger.Logger,
) *ScanOrchestrator {
	if lgr == nil {
		lgr = logger.NewNop()
	}
	if metrics == nil {
		metrics = svcmetrics.Nop{}
	}
	if lock == nil {
		lock = pkgcache.NewMemoryCache()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	timeout := cfg.AssetTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = 10 * time.Minute
	}
	return &ScanOrchestrator{
		universe:     universe,
		generator:    gen,
		alerts:       alerts,
		lifecycle:    lifecycle,
		audit:        audit,
		lock:         lock,
		metrics:      metrics,
		logger:       lgr.With(logger.String("component", "scan")),
		workers:      workers,
		assetTimeout: timeout,
		lockTTL:      lockTTL,
		now:          time.Now,
	}
}

// SetClock replaces the wall clock, for tests.
func (o *ScanOrchestrator) SetClock(now func() time.Time) { o.now = now }

func (o *ScanOrchestrator) ScanUniverse(ctx context.Context, trigger models.ScanTrigger) (*models.ScanSummary, error) {
	return o.Scan(ctx, trigger, o.universe.Symbols(), nil)
}

// Scan analyses assets and returns the summary. progress, when set, is
// called once per finished asset from the worker goroutines.
func (o *ScanOrchestrator) Scan(ctx context.Context, trigger models.ScanTrigger, assets []string, progress func(models.AssetResult)) (*models.ScanSummary, error) {
	ok, err := o.lock.TryLock(ctx, scanLockKey, o.lockTTL)
	if err != nil {
		o.logger.Warn("scan lock unavailable, scanning unguarded", logger.Error(err))
	} else if !ok {
		return nil, ErrScanInProgress
	} else {
		defer func() {
			if uerr := o.lock.Unlock(context.WithoutCancel(ctx), scanLockKey); uerr != nil {
				o.logger.Warn("release scan lock", logger.Error(uerr))
			}
		}()
	}

	summary := &models.ScanSummary{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		StartedAt: o.now().UTC(),
		SignalIDs: []int64{},
		Results:   make([]models.AssetResult, 0, len(assets)),
	}
	o.metrics.RecordScan(string(trigger))
	o.logger.Info("scan started",
		logger.String("scan_id", summary.ID),
		logger.String("trigger", string(trigger)),
		logger.Int("assets", len(assets)),
	)

	results := make([]models.AssetResult, len(assets))
	sem := make(chan struct{}, o.workers)
	var wg, abandoned sync.WaitGroup
	for i, asset := range assets {
		wg.Add(1)
		go func(i int, asset string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[i] = errorResult(asset, ctx.Err(), 0)
				return
			}
			defer func() { <-sem }()
			results[i] = o.scanAsset(ctx, asset, &abandoned)
			if progress != nil {
				progress(results[i])
			}
		}(i, asset)
	}
	wg.Wait()
	// evaluations that outlived their timeout must not outlive the lock
	abandoned.Wait()

	for _, r := range results {
		summary.Add(r)
		o.metrics.RecordAssetResult(string(r.Outcome))
	}
	summary.FinishedAt = o.now().UTC()
	o.metrics.RecordLatency("scan", summary.FinishedAt.Sub(summary.StartedAt).Seconds())

	if o.audit != nil {
		if err := o.audit.RecordScan(context.WithoutCancel(ctx), summary); err != nil {
			o.metrics.RecordError("scan_audit")
			o.logger.Warn("scan audit failed", logger.String("scan_id", summary.ID), logger.Error(err))
		}
	}
	o.logger.Info("scan finished",
		logger.String("scan_id", summary.ID),
		logger.Int("scanned", summary.Scanned),
		logger.Int("saved", summary.Saved),
		logger.Int("skipped", summary.Skipped),
		logger.Int("errors", summary.Errors),
	)
	return summary, nil
}

// Sweep closes expired signals; the scheduler and the API share it.
func (o *ScanOrchestrator) Sweep(ctx context.Context) (int, error) {
	if o.lifecycle == nil {
		return 0, nil
	}
	return o.lifecycle.CloseExpired(ctx)
}

// scanAsset bounds one asset's evaluation by the asset timeout. A timeout is
// reported like any other gateway failure and nothing is persisted for the
// asset: saving and alerting run only once the evaluation made it in time.
// An evaluation goroutine left behind by a timeout is tracked in abandoned.
func (o *ScanOrchestrator) scanAsset(ctx context.Context, asset string, abandoned *sync.WaitGroup) models.AssetResult {
	start := o.now()
	actx, cancel := context.WithTimeout(ctx, o.assetTimeout)
	defer cancel()

	type evaluated struct {
		ev  *models.Evaluation
		err error
	}
	done := make(chan evaluated, 1)
	abandoned.Add(1)
	go func() {
		defer abandoned.Done()
		ev, err := o.generator.Evaluate(actx, asset)
		done <- evaluated{ev: ev, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			o.logger.Warn("asset evaluation failed", logger.String("asset", asset), logger.Error(r.err))
			return errorResult(asset, r.err, o.elapsed(start))
		}
		return o.persist(ctx, r.ev, start)
	case <-actx.Done():
		err := actx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = models.NewUnavailable(asset, "scan", fmt.Errorf("timed out after %s", o.assetTimeout))
		}
		o.logger.Warn("asset scan aborted", logger.String("asset", asset), logger.Error(err))
		return errorResult(asset, err, o.elapsed(start))
	}
}

// persist saves an actionable evaluation and runs the asset's alert rules.
func (o *ScanOrchestrator) persist(ctx context.Context, ev *models.Evaluation, start time.Time) models.AssetResult {
	r := models.AssetResult{
		Asset:    ev.Asset,
		Outcome:  models.OutcomeSkipped,
		Score:    ev.Score.Score,
		Type:     ev.Score.Type,
		Fidelity: ev.Observation.Fidelity,
	}
	if !ev.Actionable {
		r.Duration = o.elapsed(start)
		return r
	}

	sig, err := o.generator.Save(ctx, ev)
	if errors.Is(err, drepo.ErrConflict) {
		o.logger.Debug("signal save conflict, retrying", logger.String("asset", ev.Asset))
		sig, err = o.generator.Save(ctx, ev)
	}
	if err != nil {
		r = errorResult(ev.Asset, err, o.elapsed(start))
		r.Score, r.Type = ev.Score.Score, ev.Score.Type
		return r
	}
	r.Outcome = models.OutcomeSaved
	r.SignalID = sig.ID

	if o.alerts != nil {
		if _, err := o.alerts.EvaluateAll(ctx, ev); err != nil {
			o.logger.Warn("alert evaluation failed", logger.String("asset", ev.Asset), logger.Error(err))
		}
	}
	r.Duration = o.elapsed(start)
	return r
}

func (o *ScanOrchestrator) elapsed(start time.Time) float64 {
	return float64(o.now().Sub(start).Microseconds()) / 1000
}

func errorResult(asset string, err error, ms float64) models.AssetResult {
	return models.AssetResult{Asset: asset, Outcome: models.OutcomeError, Error: err.Error(), Duration: ms}
}
