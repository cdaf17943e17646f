package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OracleEngine/internal/domain/models"
	drepo "OracleEngine/internal/domain/repository"
	"OracleEngine/internal/repository/memory"
	"OracleEngine/internal/services/factors"
	"OracleEngine/internal/services/quant"
	"OracleEngine/pkg/config"
)

type alertFixture struct {
	rules      *memory.AlertRuleStore
	events     *memory.AlertEventStore
	dispatcher *fakeDispatcher
	publisher  *recordingEvents
	clock      *clock
	engine     *AlertEngine
}

func newAlertFixture() *alertFixture {
	f := &alertFixture{
		rules:      memory.NewAlertRuleStore(),
		events:     memory.NewAlertEventStore(),
		dispatcher: &fakeDispatcher{fail: map[models.Channel]bool{}},
		publisher:  &recordingEvents{},
		clock:      newClock(t0),
	}
	f.engine = NewAlertEngine(config.AlertsConfig{}, models.NewUniverse([]string{"BTC", "ETH"}),
		f.rules, f.events, f.dispatcher, f.publisher, nil, nil)
	f.engine.SetClock(f.clock.Now)
	return f
}

func createRequest(trigger, condition string, threshold float64, channels ...string) *models.CreateAlertRequest {
	if len(channels) == 0 {
		channels = []string{"email"}
	}
	return &models.CreateAlertRequest{
		UserID:      "u-1",
		Asset:       "btc",
		TriggerType: trigger,
		Condition:   condition,
		Threshold:   &threshold,
		Channels:    channels,
	}
}

func TestAlertEngine_CreateRule(t *testing.T) {
	f := newAlertFixture()
	ctx := context.Background()

	r, err := f.engine.CreateRule(ctx, createRequest("oracle_score", "above", 70))
	require.NoError(t, err)
	assert.NotZero(t, r.ID)
	assert.Equal(t, "BTC", r.Asset)
	assert.Equal(t, models.DefaultCooldownMinutes, r.CooldownMinutes)
	assert.True(t, r.Active)

	_, err = f.engine.CreateRule(ctx, &models.CreateAlertRequest{
		UserID: "u-1", Asset: "DOGE", TriggerType: "price", Condition: "above", Threshold: models.Float(1), Channels: []string{"push"},
	})
	assert.ErrorIs(t, err, models.ErrUnsupportedAsset)

	_, err = f.engine.CreateRule(ctx, createRequest("price", "above", 1, "webhook"))
	assert.ErrorIs(t, err, models.ErrInvalidRule)

	rules, err := f.engine.ListRules(ctx, drepo.AlertFilter{Asset: "btc"})
	require.NoError(t, err)
	assert.Len(t, rules, 1)
}

func TestAlertEngine_CooldownWindow(t *testing.T) {
	f := newAlertFixture()
	ctx := context.Background()
	r, err := f.engine.CreateRule(ctx, createRequest("oracle_score", "above", 70))
	require.NoError(t, err)

	fired, err := f.engine.EvaluateRules(ctx, "BTC", models.TriggerOracleScore, 75)
	require.NoError(t, err)
	require.Len(t, fired, 1)
	assert.Equal(t, "BTC Alert: oracle_score is 75.00 (above 70.00)", fired[0].Message)

	f.clock.Advance(30 * time.Minute)
	fired, err = f.engine.EvaluateRules(ctx, "BTC", models.TriggerOracleScore, 80)
	require.NoError(t, err)
	assert.Empty(t, fired, "inside cooldown")

	f.clock.Advance(31 * time.Minute)
	fired, err = f.engine.EvaluateRules(ctx, "BTC", models.TriggerOracleScore, 76)
	require.NoError(t, err)
	assert.Len(t, fired, 1)

	got, err := f.rules.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TriggerCount)
	assert.Equal(t, 76.0, *got.PreviousValue)
	assert.Equal(t, t0.Add(61*time.Minute), *got.LastTriggered)

	events, err := f.engine.RuleEvents(ctx, r.ID, 0)
	require.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Len(t, f.publisher.alerts, 2)
}

func TestAlertEngine_CrossesAboveNeedsPreviousValue(t *testing.T) {
	f := newAlertFixture()
	ctx := context.Background()
	cooldown := 0
	req := createRequest("price", "crosses_above", 100)
	req.CooldownMinutes = &cooldown
	_, err := f.engine.CreateRule(ctx, req)
	require.NoError(t, err)

	steps := []struct {
		value float64
		fires bool
	}{
		{105, false}, // first observation
		{95, false},
		{101, true},
		{110, false}, // still above
		{99, false},
		{100.5, true},
	}
	for i, st := range steps {
		fired, err := f.engine.EvaluateRules(ctx, "BTC", models.TriggerPrice, st.value)
		require.NoError(t, err)
		assert.Equal(t, st.fires, len(fired) == 1, "step %d value %.1f", i, st.value)
		f.clock.Advance(time.Minute)
	}
}

func TestAlertEngine_KeepsOnlySentDeliveries(t *testing.T) {
	f := newAlertFixture()
	f.dispatcher.fail[models.ChannelPush] = true
	ctx := context.Background()
	_, err := f.engine.CreateRule(ctx, createRequest("oracle_score", "below", 30, "email", "push"))
	require.NoError(t, err)

	fired, err := f.engine.EvaluateRules(ctx, "BTC", models.TriggerOracleScore, 20)
	require.NoError(t, err)
	require.Len(t, fired, 1)
	require.Len(t, fired[0].Deliveries, 1)
	assert.Equal(t, models.ChannelEmail, fired[0].Deliveries[0].Channel)
	assert.True(t, fired[0].Deliveries[0].Sent)
}

func TestAlertEngine_IgnoresOtherTriggersAndInactive(t *testing.T) {
	f := newAlertFixture()
	ctx := context.Background()
	r, err := f.engine.CreateRule(ctx, createRequest("volume", "above", 1))
	require.NoError(t, err)

	fired, err := f.engine.EvaluateRules(ctx, "BTC", models.TriggerPrice, 1e9)
	require.NoError(t, err)
	assert.Empty(t, fired)

	require.NoError(t, f.engine.DeleteRule(ctx, r.ID))
	fired, err = f.engine.EvaluateRules(ctx, "BTC", models.TriggerVolume, 1e9)
	require.NoError(t, err)
	assert.Empty(t, fired)
}

func TestTriggerValues(t *testing.T) {
	ev := &models.Evaluation{
		Asset: "BTC",
		Observation: models.MarketObservation{
			Symbol:         "BTC",
			Price:          64000,
			Volume24h:      models.Float(3e10),
			SentimentIndex: models.Float(22),
			Auxiliary:      map[string]float64{factors.WhaleActivity: 61},
		},
		Quant: []models.QuantModelResult{
			{Model: quant.ModelRSI, Status: models.ModelOK, Diagnostics: map[string]float64{"rsi": 28.4}},
		},
		Score: models.OracleScore{Score: 68},
	}
	got := TriggerValues(ev)
	assert.Equal(t, map[models.TriggerType]float64{
		models.TriggerOracleScore:   68,
		models.TriggerPrice:         64000,
		models.TriggerVolume:        3e10,
		models.TriggerSentiment:     22,
		models.TriggerWhaleActivity: 61,
		models.TriggerRSI:           28.4,
	}, got)

	ev.Quant[0].Status = models.ModelInsufficientHistory
	ev.Observation.Volume24h = nil
	got = TriggerValues(ev)
	assert.NotContains(t, got, models.TriggerRSI)
	assert.NotContains(t, got, models.TriggerVolume)
}

func TestAlertEngine_EvaluateAll(t *testing.T) {
	f := newAlertFixture()
	ctx := context.Background()
	_, err := f.engine.CreateRule(ctx, createRequest("rsi", "below", 30))
	require.NoError(t, err)
	_, err = f.engine.CreateRule(ctx, createRequest("sentiment", "above", 50))
	require.NoError(t, err)

	ev := &models.Evaluation{
		Asset:       "BTC",
		Observation: models.MarketObservation{Symbol: "BTC", Price: 100, SentimentIndex: models.Float(40)},
		Quant: []models.QuantModelResult{
			{Model: quant.ModelRSI, Status: models.ModelOK, Diagnostics: map[string]float64{"rsi": 25}},
		},
	}
	fired, err := f.engine.EvaluateAll(ctx, ev)
	require.NoError(t, err)
	require.Len(t, fired, 1)
	assert.Equal(t, models.TriggerRSI, fired[0].TriggerType)
}

func TestAlertEngine_ConcurrentEvaluationFiresOnce(t *testing.T) {
	f := newAlertFixture()
	ctx := context.Background()
	r, err := f.engine.CreateRule(ctx, createRequest("oracle_score", "above", 70))
	require.NoError(t, err)

	var (
		wg    sync.WaitGroup
		fired int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := f.engine.EvaluateRules(ctx, "BTC", models.TriggerOracleScore, 75)
			if err != nil {
				assert.ErrorIs(t, err, drepo.ErrConflict)
			}
			atomic.AddInt32(&fired, int32(len(got)))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), fired)
	assert.Len(t, f.dispatcher.sent, 1)
	got, err := f.rules.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TriggerCount)
	events, err := f.events.ListByRule(ctx, r.ID, 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
