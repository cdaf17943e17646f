package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OracleEngine/internal/domain/models"
	"OracleEngine/internal/services/quant"
)

func TestSignalGenerator_EvaluateIsDeterministic(t *testing.T) {
	f := newGenerator(t, 80, nil)
	ctx := context.Background()

	a, err := f.gen.Evaluate(ctx, "BTC")
	require.NoError(t, err)
	b, err := f.gen.Evaluate(ctx, "BTC")
	require.NoError(t, err)

	assert.Equal(t, 80, a.Score.Score)
	assert.Equal(t, models.StrongBuy, a.Score.Type)
	assert.Equal(t, a.Score, b.Score)
	assert.Equal(t, a.Levels, b.Levels)
	assert.True(t, a.Actionable)
	assert.Equal(t, "48h", a.Levels.Timeframe)
	assert.InDelta(t, 112, a.Levels.Target, 1e-9)
	assert.InDelta(t, 95.5, a.Levels.Stop, 1e-9)
	assert.Nil(t, a.Signal)
}

func TestSignalGenerator_SaveSnapshotReplays(t *testing.T) {
	f := newGenerator(t, 20, nil)
	ctx := context.Background()

	ev, err := f.gen.Generate(ctx, "ETH", true)
	require.NoError(t, err)
	require.NotNil(t, ev.Signal)

	s, err := f.store.Get(ctx, ev.Signal.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, s.Status)
	assert.Equal(t, models.StrongSell, s.Type)
	assert.Equal(t, "ETH/USD", s.Pair)
	assert.Less(t, s.TargetPrice, s.EntryPrice)
	assert.Greater(t, s.StopLoss, s.EntryPrice)
	assert.Equal(t, t0.Add(48*time.Hour), s.ExpiresAt)
	assert.Equal(t, "v3", s.ModelVersion)

	replayed, err := newScoreEngine(t).Replay(s.Snapshot)
	require.NoError(t, err)
	assert.Equal(t, s.Score, replayed.Score)
	assert.Equal(t, s.Snapshot.RawScore, replayed.Raw)

	assert.Equal(t, []string{"created:1"}, f.events.signalEvents())
}

func TestSignalGenerator_NeutralScoreNotPersisted(t *testing.T) {
	f := newGenerator(t, 52, nil)

	ev, err := f.gen.Generate(context.Background(), "SOL", true)
	require.NoError(t, err)
	assert.False(t, ev.Actionable)
	assert.Equal(t, models.Hold, ev.Score.Type)
	assert.Nil(t, ev.Signal)

	_, total, err := f.store.List(context.Background(), models.SignalFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestSignalGenerator_MissingHistoryDegrades(t *testing.T) {
	f := newGenerator(t, 70, nil)
	f.gw.histErr = errors.New("history source down")
	gen := NewSignalGenerator(f.gw, f.bank, quant.NewSuite(nil, nil), newScoreEngine(t), f.store, nil, "", 30, nil,
		WithGeneratorClock(f.clock.Now))

	ev, err := gen.Evaluate(context.Background(), "BTC")
	require.NoError(t, err)
	assert.Equal(t, models.FidelityDegraded, ev.Observation.Fidelity)
	assert.Contains(t, ev.Observation.Missing, "history")
	require.Len(t, ev.Quant, len(quant.DefaultModels()))
	for _, q := range ev.Quant {
		assert.False(t, q.Available(), q.Model)
	}
	// only the technical factor contributes
	assert.Equal(t, 70, ev.Score.Score)
	_, ok := ev.Score.Categories[string(models.CategoryQuant)]
	assert.False(t, ok)
}

func TestSignalGenerator_GatewayFailure(t *testing.T) {
	f := newGenerator(t, 70, nil)
	f.gw.errs["PEPE"] = models.NewUnavailable("PEPE", "all", nil)

	_, err := f.gen.Generate(context.Background(), "PEPE", true)
	assert.ErrorIs(t, err, models.ErrUnavailable)
}
