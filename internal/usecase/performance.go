package usecase

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"OracleEngine/internal/domain/models"
	drepo "OracleEngine/internal/domain/repository"
	"OracleEngine/internal/service/cache"
	"OracleEngine/internal/services/features"
)

const performancePage = 500

var calibrationBrackets = [][2]int{{50, 59}, {60, 69}, {70, 79}, {80, 89}, {90, 100}}

// PerformanceReporter summarizes signal outcomes over a trailing window.
type PerformanceReporter struct {
	store drepo.SignalStore
	cache cache.Store[*models.PerformanceReport]
	now   func() time.Time
}

// NewPerformanceReporter caches each window's report for ttl.
func NewPerformanceReporter(store drepo.SignalStore, ttl time.Duration) *PerformanceReporter {
	if ttl <= 0 {
		ttl = time.Minute
	}
	p := &PerformanceReporter{store: store, now: time.Now}
	p.cache = cache.NewTTLCache[*models.PerformanceReport](ttl, 64, func() time.Time { return p.now() })
	return p
}

// SetClock replaces the wall clock, for tests.
func (p *PerformanceReporter) SetClock(now func() time.Time) { p.now = now }

func (p *PerformanceReporter) Report(ctx context.Context, days int) (*models.PerformanceReport, error) {
	if days <= 0 {
		days = 30
	}
	key := strconv.Itoa(days)
	if r, ok := p.cache.Get(ctx, key); ok {
		return r, nil
	}

	now := p.now().UTC()
	since := now.Add(-time.Duration(days) * 24 * time.Hour)
	signals, err := p.load(ctx, since)
	if err != nil {
		return nil, err
	}

	r := &models.PerformanceReport{
		Days:        days,
		Since:       since,
		ByAsset:     make(map[string]models.PerformanceStats),
		ByDirection: make(map[string]models.PerformanceStats),
		GeneratedAt: now,
	}
	byAsset := make(map[string][]*models.Signal)
	byDir := make(map[string][]*models.Signal)
	for _, s := range signals {
		byAsset[s.Asset] = append(byAsset[s.Asset], s)
		byDir[s.Type.Direction()] = append(byDir[s.Type.Direction()], s)
	}
	r.Overall = stats(signals)
	for k, v := range byAsset {
		r.ByAsset[k] = stats(v)
	}
	for k, v := range byDir {
		r.ByDirection[k] = stats(v)
	}
	r.Calibration = calibrate(signals)

	p.cache.Set(ctx, key, r)
	return r, nil
}

func (p *PerformanceReporter) load(ctx context.Context, since time.Time) ([]*models.Signal, error) {
	var out []*models.Signal
	for offset := 0; ; offset += performancePage {
		page, total, err := p.store.List(ctx, models.SignalFilter{Since: since, Limit: performancePage, Offset: offset})
		if err != nil {
			return nil, fmt.Errorf("list signals: %w", err)
		}
		out = append(out, page...)
		if len(page) < performancePage || len(out) >= total {
			return out, nil
		}
	}
}

func completed(s *models.Signal) bool {
	switch s.Status {
	case models.StatusHitTarget, models.StatusHitStop, models.StatusExpired:
		return true
	}
	return false
}

func stats(signals []*models.Signal) models.PerformanceStats {
	st := models.PerformanceStats{Total: len(signals)}
	best, worst := math.Inf(-1), math.Inf(1)
	for _, s := range signals {
		switch s.Status {
		case models.StatusActive:
			st.Active++
		case models.StatusHitTarget:
			st.HitTarget++
		case models.StatusHitStop:
			st.HitStop++
		case models.StatusExpired:
			st.Expired++
		case models.StatusCancelled:
			st.Cancelled++
		}
		if !completed(s) || s.OutcomePnLPct == nil {
			continue
		}
		st.Completed++
		pnl := *s.OutcomePnLPct
		st.TotalPnL += pnl
		best = math.Max(best, pnl)
		worst = math.Min(worst, pnl)
	}
	if st.Completed > 0 {
		st.WinRate = features.Round(float64(st.HitTarget)/float64(st.Completed)*100, 2)
		st.AvgPnL = features.Round(st.TotalPnL/float64(st.Completed), 4)
		st.TotalPnL = features.Round(st.TotalPnL, 4)
		st.BestPnL = features.Round(best, 4)
		st.WorstPnL = features.Round(worst, 4)
	}
	return st
}

// calibrate buckets completed signals by conviction, 50 plus the score's
// distance from neutral, so buy and sell signals share brackets.
func calibrate(signals []*models.Signal) []models.CalibrationBucket {
	out := make([]models.CalibrationBucket, len(calibrationBrackets))
	for i, b := range calibrationBrackets {
		out[i] = models.CalibrationBucket{Bracket: fmt.Sprintf("%d-%d", b[0], b[1]), Min: b[0], Max: b[1]}
	}
	for _, s := range signals {
		if !completed(s) {
			continue
		}
		d := s.Score - 50
		if d < 0 {
			d = -d
		}
		conviction := 50 + d
		for i := range out {
			if conviction >= out[i].Min && conviction <= out[i].Max {
				out[i].Completed++
				if s.Status == models.StatusHitTarget {
					out[i].Wins++
				}
				break
			}
		}
	}
	for i := range out {
		if out[i].Completed > 0 {
			out[i].WinRate = features.Round(float64(out[i].Wins)/float64(out[i].Completed)*100, 2)
		}
	}
	return out
}
