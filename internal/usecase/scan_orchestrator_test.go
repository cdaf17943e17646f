package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OracleEngine/internal/domain/models"
	"OracleEngine/internal/repository/memory"
	pkgcache "OracleEngine/pkg/cache"
	"OracleEngine/pkg/config"
)

var scanAssets = []string{"BTC", "ETH", "SOL", "BNB", "XRP", "ADA", "DOGE", "AVAX", "DOT", "LINK"}

type scanFixture struct {
	*generatorFixture
	audit *fakeAudit
	lock  *pkgcache.MemoryCache
	scan  *ScanOrchestrator
}

func newScanFixture(t *testing.T, cfg config.ScanConfig, score float64) *scanFixture {
	t.Helper()
	f := &scanFixture{
		generatorFixture: newGenerator(t, score, nil),
		audit:            &fakeAudit{},
		lock:             pkgcache.NewMemoryCache(),
	}
	t.Cleanup(func() { _ = f.lock.Close() })
	lc := NewLifecycle(f.store, f.gw, nil, nil, nil)
	lc.SetClock(f.clock.Now)
	f.scan = NewScanOrchestrator(cfg, models.NewUniverse(scanAssets), f.gen, nil, lc, f.audit, f.lock, nil, nil)
	return f
}

func TestScanOrchestrator_FailuresDoNotStopTheScan(t *testing.T) {
	f := newScanFixture(t, config.ScanConfig{Workers: 3}, 80)
	f.gw.errs["DOGE"] = models.NewUnavailable("DOGE", "all", nil)
	f.gw.errs["DOT"] = errors.New("boom")

	var (
		mu   sync.Mutex
		seen []string
	)
	summary, err := f.scan.Scan(context.Background(), models.TriggerManual, scanAssets, func(r models.AssetResult) {
		mu.Lock()
		seen = append(seen, r.Asset)
		mu.Unlock()
	})
	require.NoError(t, err)

	assert.Equal(t, 10, summary.Scanned)
	assert.Equal(t, 8, summary.Saved)
	assert.Equal(t, 2, summary.Errors)
	assert.Len(t, summary.SignalIDs, 8)
	assert.Contains(t, summary.AssetErrors, "DOGE")
	assert.Contains(t, summary.AssetErrors, "DOT")
	assert.ElementsMatch(t, scanAssets, seen)

	// results keep input order
	for i, r := range summary.Results {
		assert.Equal(t, scanAssets[i], r.Asset)
	}

	active, err := f.store.ListActive(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, active, 8)

	require.Len(t, f.audit.summaries, 1)
	assert.Equal(t, summary.ID, f.audit.summaries[0].ID)
}

func TestScanOrchestrator_NeutralAssetsSkipped(t *testing.T) {
	f := newScanFixture(t, config.ScanConfig{}, 50)

	summary, err := f.scan.Scan(context.Background(), models.TriggerManual, []string{"BTC", "ETH"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Skipped)
	assert.Zero(t, summary.Saved)
	for _, r := range summary.Results {
		assert.Equal(t, models.OutcomeSkipped, r.Outcome)
		assert.Equal(t, models.Hold, r.Type)
	}
}

func TestScanOrchestrator_RejectsConcurrentScan(t *testing.T) {
	f := newScanFixture(t, config.ScanConfig{}, 80)
	ok, err := f.lock.TryLock(context.Background(), scanLockKey, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.scan.ScanUniverse(context.Background(), models.TriggerScheduled)
	assert.ErrorIs(t, err, ErrScanInProgress)

	require.NoError(t, f.lock.Unlock(context.Background(), scanLockKey))
	summary, err := f.scan.ScanUniverse(context.Background(), models.TriggerScheduled)
	require.NoError(t, err)
	assert.Equal(t, len(scanAssets), summary.Scanned)

	// the lock is released after a scan
	ok, err = f.lock.TryLock(context.Background(), scanLockKey, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestScanOrchestrator_AssetTimeout(t *testing.T) {
	f := newScanFixture(t, config.ScanConfig{AssetTimeout: 50 * time.Millisecond}, 80)
	f.gw.delay["SOL"] = 5 * time.Second

	summary, err := f.scan.Scan(context.Background(), models.TriggerManual, []string{"BTC", "SOL"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Saved)
	assert.Equal(t, 1, summary.Errors)
	assert.Contains(t, summary.AssetErrors["SOL"], "timed out")
	assert.Equal(t, models.OutcomeError, summary.Results[1].Outcome)
}

func TestScanOrchestrator_TimedOutAssetIsNotPersisted(t *testing.T) {
	f := newScanFixture(t, config.ScanConfig{AssetTimeout: 20 * time.Millisecond}, 80)
	af := newAlertFixture()
	f.scan.alerts = af.engine
	_, err := af.engine.CreateRule(context.Background(), createRequest("oracle_score", "above", 75))
	require.NoError(t, err)
	f.gw.stall["BTC"] = 80 * time.Millisecond

	summary, err := f.scan.Scan(context.Background(), models.TriggerManual, []string{"BTC"}, nil)
	require.NoError(t, err)
	assert.Zero(t, summary.Saved)
	assert.Equal(t, 1, summary.Errors)
	assert.Contains(t, summary.AssetErrors["BTC"], "timed out")

	// give a leaked evaluation room to write before checking
	time.Sleep(100 * time.Millisecond)
	active, err := f.store.ListActive(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.Empty(t, af.dispatcher.sent)
	assert.Empty(t, f.events.signalEvents())
}

func TestScanOrchestrator_RetriesSaveConflictOnce(t *testing.T) {
	cs := &conflictStore{SignalStore: memory.NewSignalStore(), n: 1}
	gf := newGenerator(t, 80, cs)
	scan := NewScanOrchestrator(config.ScanConfig{}, models.NewUniverse(scanAssets), gf.gen, nil, nil, nil, nil, nil, nil)

	summary, err := scan.Scan(context.Background(), models.TriggerManual, []string{"BTC"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Saved)

	cs.n = 2
	summary, err = scan.Scan(context.Background(), models.TriggerManual, []string{"ETH"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 80, summary.Results[0].Score)
}

func TestScanOrchestrator_RunsAlertsForSavedSignals(t *testing.T) {
	f := newScanFixture(t, config.ScanConfig{}, 80)
	af := newAlertFixture()
	f.scan.alerts = af.engine
	_, err := af.engine.CreateRule(context.Background(), createRequest("oracle_score", "above", 75))
	require.NoError(t, err)

	_, err = f.scan.Scan(context.Background(), models.TriggerManual, []string{"BTC", "ETH"}, nil)
	require.NoError(t, err)
	require.Len(t, af.dispatcher.sent, 1)
	assert.Equal(t, "BTC", af.dispatcher.sent[0].Asset)
}

func TestScanOrchestrator_Sweep(t *testing.T) {
	f := newScanFixture(t, config.ScanConfig{}, 80)
	_, err := f.scan.Scan(context.Background(), models.TriggerManual, []string{"BTC"}, nil)
	require.NoError(t, err)

	n, err := f.scan.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	f.clock.Advance(49 * time.Hour)
	n, err = f.scan.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
