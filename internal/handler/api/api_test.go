package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OracleEngine/internal/domain/models"
	"OracleEngine/internal/repository/memory"
	"OracleEngine/internal/service/notify"
	"OracleEngine/internal/services/factors"
	"OracleEngine/internal/services/quant"
	"OracleEngine/internal/services/scoring"
	"OracleEngine/internal/usecase"
	pkgcache "OracleEngine/pkg/cache"
	"OracleEngine/pkg/config"
	"OracleEngine/pkg/logger"
	"OracleEngine/pkg/queue"
)

type stubGateway struct {
	universe *models.Universe
}

func (g stubGateway) Observe(_ context.Context, symbol string) (*models.MarketObservation, error) {
	s, err := g.universe.Resolve(symbol)
	if err != nil {
		return nil, err
	}
	return &models.MarketObservation{
		Symbol:         s,
		Price:          100,
		Change24h:      models.Float(6),
		Change7d:       models.Float(12),
		Volume24h:      models.Float(4e9),
		MarketCap:      models.Float(4e10),
		SentimentIndex: models.Float(70),
		Fidelity:       models.FidelityFull,
		ObservedAt:     time.Now().UTC(),
	}, nil
}

func (g stubGateway) History(_ context.Context, symbol string, days int) (*models.PriceHistory, error) {
	h := &models.PriceHistory{Symbol: symbol}
	for i := 0; i < days; i++ {
		h.Prices = append(h.Prices, 80+float64(i))
		h.Volumes = append(h.Volumes, 1e6)
	}
	return h, nil
}

func (g stubGateway) Price(context.Context, string) (float64, error) { return 101, nil }

type apiFixture struct {
	e       *echo.Echo
	signals *memory.SignalStore
	lock    *pkgcache.MemoryCache
	healthy bool
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	lgr := logger.NewNop()
	universe := models.NewUniverse([]string{"BTC", "ETH"})
	gw := stubGateway{universe: universe}
	engine, err := scoring.NewEngine(5, scoring.DefaultWeights())
	require.NoError(t, err)

	f := &apiFixture{e: echo.New(), signals: memory.NewSignalStore(), lock: pkgcache.NewMemoryCache(), healthy: true}
	t.Cleanup(func() { _ = f.lock.Close() })

	gen := usecase.NewSignalGenerator(gw, factors.NewBank(), quant.NewSuite(lgr, nil), engine, f.signals, nil, "", 30, lgr)
	lc := usecase.NewLifecycle(f.signals, gw, nil, nil, lgr)
	dispatcher := notify.NewDispatcher(lgr, notify.NewLogSender(models.ChannelEmail, lgr))
	alerts := usecase.NewAlertEngine(config.AlertsConfig{}, universe, memory.NewAlertRuleStore(), memory.NewAlertEventStore(), dispatcher, nil, nil, lgr)
	scanner := usecase.NewScanOrchestrator(config.ScanConfig{}, universe, gen, alerts, lc, nil, f.lock, nil, lgr)

	q := queue.NewMemoryQueue(lgr, &queue.Config{Workers: 1})
	jobs := usecase.NewScanJobs(q, memory.NewScanJobStore(), scanner, lgr)
	q.RegisterJob(jobs.Job())
	require.NoError(t, q.Start())
	t.Cleanup(func() { _ = q.Stop(context.Background()) })

	NewHealthEchoHandler("test", map[string]HealthCheck{
		"store": func(context.Context) error {
			if !f.healthy {
				return errors.New("down")
			}
			return nil
		},
	}).RegisterRoutes(f.e)
	NewSignalsEchoHandler(lgr, gen, lc, f.signals, usecase.NewPerformanceReporter(f.signals, time.Minute), usecase.NewCandlesUseCase(nil, universe)).RegisterRoutes(f.e)
	NewScansEchoHandler(lgr, scanner, jobs).RegisterRoutes(f.e)
	NewAlertsEchoHandler(lgr, alerts, gen).RegisterRoutes(f.e)
	return f
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func (f *apiFixture) do(t *testing.T, method, path, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec.Code, env
}

func TestHealth(t *testing.T) {
	f := newAPI(t)
	code, _ := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, code)

	f.healthy = false
	code, env := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, string(env.Data), `"store":"down"`)
}

func TestSignals_Generate(t *testing.T) {
	f := newAPI(t)

	code, env := f.do(t, http.MethodGet, "/api/signals/btc", "")
	require.Equal(t, http.StatusOK, code)
	var ev models.Evaluation
	require.NoError(t, json.Unmarshal(env.Data, &ev))
	assert.Equal(t, "BTC", ev.Asset)
	assert.Len(t, ev.Quant, len(quant.DefaultModels()))
	assert.Nil(t, ev.Signal)

	code, _ = f.do(t, http.MethodGet, "/api/signals/DOGE", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSignals_GetAndCancel(t *testing.T) {
	f := newAPI(t)
	now := time.Now().UTC()
	s := &models.Signal{
		Asset: "ETH", Pair: "ETH/USD", Type: models.Buy, Score: 70, EntryPrice: 100, TargetPrice: 110, StopLoss: 95,
		Timeframe: "48h", ExpiresAt: now.Add(48 * time.Hour), Status: models.StatusActive, CreatedAt: now,
	}
	require.NoError(t, f.signals.Create(context.Background(), s))

	code, _ := f.do(t, http.MethodGet, "/api/signals/id/1", "")
	assert.Equal(t, http.StatusOK, code)
	code, _ = f.do(t, http.MethodGet, "/api/signals/id/99", "")
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = f.do(t, http.MethodGet, "/api/signals/id/x", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, env := f.do(t, http.MethodPost, "/api/signals/1/cancel", `{"reason":"manual close"}`)
	require.Equal(t, http.StatusOK, code)
	var got models.Signal
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, models.StatusCancelled, got.Status)
	assert.Equal(t, "manual close", got.CloseReason)
	assert.Equal(t, 101.0, *got.OutcomePrice)

	code, _ = f.do(t, http.MethodPost, "/api/signals/1/cancel", "")
	assert.Equal(t, http.StatusConflict, code)

	code, env = f.do(t, http.MethodGet, "/api/signals?status=cancelled", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"total":1`)

	code, _ = f.do(t, http.MethodGet, "/api/signals?status=bogus", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSignals_PerformanceAndCandles(t *testing.T) {
	f := newAPI(t)
	code, env := f.do(t, http.MethodGet, "/api/performance?days=7", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"days":7`)

	code, _ = f.do(t, http.MethodGet, "/api/performance?days=400", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.do(t, http.MethodGet, "/api/candles/BTC", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestScans(t *testing.T) {
	f := newAPI(t)

	code, env := f.do(t, http.MethodPost, "/api/scans", `{"assets":["BTC"]}`)
	require.Equal(t, http.StatusOK, code)
	var summary models.ScanSummary
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, 1, summary.Scanned)
	assert.Equal(t, models.TriggerManual, summary.Trigger)

	code, env = f.do(t, http.MethodPost, "/api/scans?async=true", `{}`)
	require.Equal(t, http.StatusAccepted, code)
	var job models.ScanJob
	require.NoError(t, json.Unmarshal(env.Data, &job))
	assert.Equal(t, models.JobQueued, job.State)

	require.Eventually(t, func() bool {
		code, env := f.do(t, http.MethodGet, "/api/scans/"+job.ID, "")
		return code == http.StatusOK && strings.Contains(string(env.Data), `"state":"done"`)
	}, 2*time.Second, 10*time.Millisecond)

	code, _ = f.do(t, http.MethodGet, "/api/scans/nope", "")
	assert.Equal(t, http.StatusNotFound, code)

	ok, err := f.lock.TryLock(context.Background(), pkgcache.Key("scan", "lock"), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	code, _ = f.do(t, http.MethodPost, "/api/scans", `{}`)
	assert.Equal(t, http.StatusConflict, code)
}

func TestAlerts(t *testing.T) {
	f := newAPI(t)

	code, env := f.do(t, http.MethodPost, "/api/alerts",
		`{"user_id":"u1","asset":"btc","trigger_type":"price","condition":"above","threshold":50,"channels":["email"]}`)
	require.Equal(t, http.StatusCreated, code)
	var rule models.AlertRule
	require.NoError(t, json.Unmarshal(env.Data, &rule))
	assert.Equal(t, "BTC", rule.Asset)

	code, _ = f.do(t, http.MethodPost, "/api/alerts", `{"user_id":"u1","asset":"btc","trigger_type":"price"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.do(t, http.MethodPost, "/api/alerts",
		`{"user_id":"u1","asset":"btc","trigger_type":"price","condition":"above","threshold":50,"channels":["webhook"]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, env = f.do(t, http.MethodPost, "/api/alerts/evaluate", `{"asset":"BTC"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"trigger_type":"price"`)

	code, env = f.do(t, http.MethodGet, "/api/alerts/1/events", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"total":1`)

	code, env = f.do(t, http.MethodGet, "/api/alerts?asset=btc", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"total":1`)

	code, _ = f.do(t, http.MethodDelete, "/api/alerts/1", "")
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = f.do(t, http.MethodDelete, "/api/alerts/1", "")
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = f.do(t, http.MethodDelete, "/api/alerts/abc", "")
	assert.Equal(t, http.StatusBadRequest, code)
}
