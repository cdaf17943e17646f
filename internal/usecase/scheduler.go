package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"OracleEngine/internal/domain/models"
	"OracleEngine/pkg/config"
	"OracleEngine/pkg/logger"
	"OracleEngine/pkg/util"
)

// Scanner is what the scheduler drives.
type Scanner interface {
	ScanUniverse(ctx context.Context, trigger models.ScanTrigger) (*models.ScanSummary, error)
	Sweep(ctx context.Context) (int, error)
}

// Scheduler runs full scans every interval and at fixed UTC times of day,
// and expiry sweeps on their own interval.
type Scheduler struct {
	scanner       Scanner
	interval      time.Duration
	clocks        []string
	sweepInterval time.Duration
	logger        *logger.Logger
	now           func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(cfg config.ScanConfig, scanner Scanner, lgr *logger.Logger) *Scheduler {
	if lgr == nil {
		lgr = logger.NewNop()
	}
	return &Scheduler{
		scanner:       scanner,
		interval:      cfg.Interval,
		clocks:        cfg.TimesOfDay,
		sweepInterval: cfg.SweepInterval,
		logger:        lgr.With(logger.String("component", "scheduler")),
		now:           time.Now,
	}
}

func (s *Scheduler) Name() string { return "scheduler" }

// Start launches the drivers and returns immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}
	ctx, s.cancel = context.WithCancel(ctx)

	if s.interval > 0 {
		s.every(ctx, s.interval, s.scan)
	}
	if len(s.clocks) > 0 {
		s.wg.Add(1)
		go s.clockLoop(ctx)
	}
	if s.sweepInterval > 0 {
		s.every(ctx, s.sweepInterval, s.sweep)
	}
	s.logger.Info("scheduler started",
		logger.Duration("interval", s.interval),
		logger.Strings("times_of_day", s.clocks),
		logger.Duration("sweep_interval", s.sweepInterval),
	)
	return nil
}

// Stop cancels the drivers and waits for a running scan to return.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) every(ctx context.Context, d time.Duration, fn func(context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		t := time.NewTicker(d)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				fn(ctx)
			}
		}
	}()
}

func (s *Scheduler) clockLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		next, ok := util.NextClock(s.now(), s.clocks)
		if !ok {
			s.logger.Warn("no valid times of day", logger.Strings("times_of_day", s.clocks))
			return
		}
		t := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
			s.scan(ctx)
		}
	}
}

func (s *Scheduler) scan(ctx context.Context) {
	summary, err := s.scanner.ScanUniverse(ctx, models.TriggerScheduled)
	switch {
	case errors.Is(err, ErrScanInProgress):
		s.logger.Info("scheduled scan skipped, another scan is running")
	case err != nil:
		s.logger.Error("scheduled scan failed", logger.Error(err))
	default:
		s.logger.Debug("scheduled scan done", logger.String("scan_id", summary.ID))
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	n, err := s.scanner.Sweep(ctx)
	if err != nil {
		s.logger.Error("expiry sweep failed", logger.Error(err))
		return
	}
	s.logger.Debug("expiry sweep done", logger.Int("closed", n))
}
