package repository

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OracleEngine/internal/domain/models"
	domrepo "OracleEngine/internal/domain/repository"
)

func TestTickInsertSkipsInvalid(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	q, args := tickInsert("oracle.price_ticks", []*models.PriceTick{
		{Symbol: "BTC", Price: 1, Volume: 2, Timestamp: ts, Source: "finnhub"},
		nil,
		{Symbol: "", Price: 1, Timestamp: ts},
		{Symbol: "ETH", Price: 3, Timestamp: ts, Source: "finnhub"},
	})
	assert.Equal(t, 2, strings.Count(q, "(?, ?, ?, ?, ?, ?)"))
	require.Len(t, args, 12)
	assert.Equal(t, "finnhub-BTC-1767323045000", args[5])

	q, _ = tickInsert("t", nil)
	assert.Empty(t, q)
}

func TestCandleQuery(t *testing.T) {
	q := candleQuery("oracle.price_ticks", domrepo.TF1d, false)
	assert.Contains(t, q, "INTERVAL 1 day")
	assert.Contains(t, q, "ts >= ?")
	assert.Contains(t, q, "ORDER BY bucket ASC")

	q = candleQuery("oracle.price_ticks", domrepo.TF1h, true)
	assert.Contains(t, q, "INTERVAL 1 hour")
	assert.Contains(t, q, "LIMIT ?")
}

func TestAuditInsert(t *testing.T) {
	s := &models.ScanSummary{ID: "scan-1", Trigger: models.TriggerManual}
	s.Add(models.AssetResult{Asset: "BTC", Outcome: models.OutcomeSaved, Score: 80, SignalID: 3})
	s.Add(models.AssetResult{Asset: "ETH", Outcome: models.OutcomeError, Error: "unavailable"})

	q, args := auditInsert("oracle.scan_audit", s)
	assert.True(t, strings.HasPrefix(q, "INSERT INTO oracle.scan_audit"))
	require.Len(t, args, 22)
	assert.Equal(t, "BTC", args[3])
	assert.Equal(t, int32(80), args[5])
	assert.Equal(t, "unavailable", args[20])

	q, _ = auditInsert("t", &models.ScanSummary{})
	assert.Empty(t, q)
}
