package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OracleEngine/internal/domain/models"
	drepo "OracleEngine/internal/domain/repository"
	"OracleEngine/internal/repository/memory"
)

func activeSignal(asset string, typ models.SignalType) *models.Signal {
	s := &models.Signal{
		Asset:      asset,
		Pair:       models.Pair(asset),
		Type:       typ,
		Score:      70,
		EntryPrice: 100,
		Timeframe:  "48h",
		ExpiresAt:  t0.Add(48 * time.Hour),
		Status:     models.StatusActive,
		CreatedAt:  t0,
	}
	if typ.IsSell() {
		s.Score = 30
		s.TargetPrice, s.StopLoss = 90, 105
	} else {
		s.TargetPrice, s.StopLoss = 110, 95
	}
	return s
}

type lifecycleFixture struct {
	store  *memory.SignalStore
	gw     *fakeGateway
	events *recordingEvents
	clock  *clock
	lc     *Lifecycle
}

func newLifecycle(t *testing.T, store drepo.SignalStore) *lifecycleFixture {
	t.Helper()
	f := &lifecycleFixture{gw: newFakeGateway(), events: &recordingEvents{}, clock: newClock(t0)}
	if store == nil {
		f.store = memory.NewSignalStore()
		store = f.store
	}
	f.lc = NewLifecycle(store, f.gw, f.events, nil, nil)
	f.lc.SetClock(f.clock.Now)
	return f
}

func (f *lifecycleFixture) create(t *testing.T, s *models.Signal) *models.Signal {
	t.Helper()
	require.NoError(t, f.store.Create(context.Background(), s))
	return s
}

func TestLifecycle_OnTickResolves(t *testing.T) {
	cases := []struct {
		name   string
		typ    models.SignalType
		price  float64
		status models.SignalStatus
		pnl    float64
	}{
		{"buy hits target", models.Buy, 111, models.StatusHitTarget, 11},
		{"buy hits stop", models.Buy, 94, models.StatusHitStop, -6},
		{"sell hits target", models.Sell, 89, models.StatusHitTarget, 11},
		{"sell hits stop", models.Sell, 106, models.StatusHitStop, -6},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newLifecycle(t, nil)
			s := f.create(t, activeSignal("BTC", tc.typ))

			n, err := f.lc.OnTick(context.Background(), &models.PriceTick{Symbol: "BTC", Price: tc.price, Timestamp: t0.Add(time.Hour)})
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			got, err := f.store.Get(context.Background(), s.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.status, got.Status)
			require.NotNil(t, got.OutcomePnLPct)
			assert.InDelta(t, tc.pnl, *got.OutcomePnLPct, 1e-9)
			assert.Equal(t, tc.price, *got.OutcomePrice)
			assert.Equal(t, 2, got.Version)
		})
	}
}

func TestLifecycle_OnTickBetweenLevelsIsNoop(t *testing.T) {
	f := newLifecycle(t, nil)
	s := f.create(t, activeSignal("BTC", models.Buy))
	f.create(t, activeSignal("ETH", models.Buy))

	n, err := f.lc.OnTick(context.Background(), &models.PriceTick{Symbol: "BTC", Price: 104, Timestamp: t0.Add(time.Hour)})
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := f.store.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, got.Status)
	assert.Equal(t, 1, got.Version)
	assert.Empty(t, f.events.signalEvents())
}

func TestLifecycle_TickPastExpiryExpires(t *testing.T) {
	f := newLifecycle(t, nil)
	s := f.create(t, activeSignal("BTC", models.Buy))

	n, err := f.lc.OnTick(context.Background(), &models.PriceTick{Symbol: "BTC", Price: 120, Timestamp: t0.Add(49 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.store.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, got.Status)
	assert.Equal(t, 120.0, *got.OutcomePrice)
}

func TestLifecycle_CloseExpired(t *testing.T) {
	f := newLifecycle(t, nil)
	btc := f.create(t, activeSignal("BTC", models.Buy))
	eth := f.create(t, activeSignal("ETH", models.Sell))
	fresh := activeSignal("SOL", models.Buy)
	fresh.ExpiresAt = t0.Add(96 * time.Hour)
	f.create(t, fresh)

	f.gw.setPrice("BTC", 103)
	f.gw.errs["ETH"] = errors.New("upstream down")
	f.clock.Advance(50 * time.Hour)

	n, err := f.lc.CloseExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := f.store.Get(context.Background(), btc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, got.Status)
	assert.InDelta(t, 3, *got.OutcomePnLPct, 1e-9)

	got, err = f.store.Get(context.Background(), eth.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, got.Status)
	assert.Equal(t, 100.0, *got.OutcomePrice, "falls back to entry")
	assert.Zero(t, *got.OutcomePnLPct)

	active, err := f.store.ListActive(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "SOL", active[0].Asset)
}

func TestLifecycle_Cancel(t *testing.T) {
	f := newLifecycle(t, nil)
	s := f.create(t, activeSignal("BTC", models.Buy))
	f.gw.setPrice("BTC", 98)

	got, err := f.lc.Cancel(context.Background(), s.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
	assert.Equal(t, "cancelled by operator", got.CloseReason)
	assert.InDelta(t, -2, *got.OutcomePnLPct, 1e-9)

	_, err = f.lc.Cancel(context.Background(), s.ID, "again")
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	_, err = f.lc.Cancel(context.Background(), 999, "")
	assert.ErrorIs(t, err, drepo.ErrNotFound)
}

func TestLifecycle_ConcurrentCloseWinsOnce(t *testing.T) {
	inner := memory.NewSignalStore()
	rs := &racingStore{SignalStore: inner}
	f := newLifecycle(t, rs)
	f.store = inner
	s := f.create(t, activeSignal("BTC", models.Buy))

	// another closer cancels the signal just before the tick's write lands
	rs.race = func(*models.Signal) {
		cur, err := inner.Get(context.Background(), s.ID)
		require.NoError(t, err)
		require.NoError(t, cur.Cancel(100, t0, "raced"))
		require.NoError(t, inner.UpdateIfVersion(context.Background(), cur, 1))
	}

	n, err := f.lc.OnTick(context.Background(), &models.PriceTick{Symbol: "BTC", Price: 115, Timestamp: t0.Add(time.Hour)})
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := inner.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
	assert.Equal(t, 2, got.Version)
	assert.Empty(t, f.events.signalEvents())
}
