package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"OracleEngine/internal/domain/models"
	domrepo "OracleEngine/internal/domain/repository"
	"OracleEngine/internal/services/features"
	pkgch "OracleEngine/pkg/clickhouse"
	applogger "OracleEngine/pkg/logger"
)

// CHHistoryStore aggregates stored ticks into OHLCV bars.
type CHHistoryStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
	now   func() time.Time
}

func NewCHHistoryStore(ch *pkgch.Client, database string, l *applogger.Logger) *CHHistoryStore {
	if l == nil {
		l = applogger.NewNop()
	}
	return &CHHistoryStore{db: ch.DB(), table: database + "." + TickTable, l: l, now: time.Now}
}

func candleQuery(table string, tf domrepo.Timeframe, latest bool) string {
	const qtpl = `
        SELECT toStartOfInterval(ts, %s) AS bucket, symbol,
               argMin(price, ts) AS open, max(price) AS high, min(price) AS low,
               argMax(price, ts) AS close, sum(volume) AS vol, count() AS n
        FROM %s
        WHERE %s
        GROUP BY bucket, symbol
        ORDER BY bucket %s
        %s
    `
	if latest {
		return fmt.Sprintf(qtpl, tf.ClickHouseInterval(), table, "symbol = ?", "DESC", "LIMIT ?")
	}
	return fmt.Sprintf(qtpl, tf.ClickHouseInterval(), table, "symbol = ? AND ts >= ? AND ts <= ?", "ASC", "")
}

func (s *CHHistoryStore) GetCandles(ctx context.Context, symbol string, from, to time.Time, tf domrepo.Timeframe) ([]models.Candle, error) {
	if !domrepo.IsValidTimeframe(tf) {
		return nil, fmt.Errorf("%w: timeframe %q", domrepo.ErrInvalidInput, tf)
	}
	return s.query(ctx, tf, candleQuery(s.table, tf, false), symbol, from.UTC(), to.UTC())
}

// GetLatestNCandles returns the newest n bars, oldest first.
func (s *CHHistoryStore) GetLatestNCandles(ctx context.Context, symbol string, n int, tf domrepo.Timeframe) ([]models.Candle, error) {
	if !domrepo.IsValidTimeframe(tf) {
		return nil, fmt.Errorf("%w: timeframe %q", domrepo.ErrInvalidInput, tf)
	}
	out, err := s.query(ctx, tf, candleQuery(s.table, tf, true), symbol, n)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// DailyHistory serves the gateway when every upstream history call failed.
func (s *CHHistoryStore) DailyHistory(ctx context.Context, symbol string, days int) (*models.PriceHistory, error) {
	to := s.now().UTC()
	from := features.AlignDay(to).AddDate(0, 0, -days)
	candles, err := s.GetCandles(ctx, symbol, from, to, domrepo.TF1d)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("%w: no ticks for %s", domrepo.ErrNotFound, symbol)
	}
	h := features.HistoryFromCandles(symbol, candles)
	h.Source = "clickhouse"
	return h, nil
}

func (s *CHHistoryStore) query(ctx context.Context, tf domrepo.Timeframe, q string, args ...interface{}) ([]models.Candle, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("clickhouse candles query error", applogger.String("tf", string(tf)), applogger.Error(err))
		return nil, fmt.Errorf("get candles: %w", err)
	}
	defer rows.Close()

	var out []models.Candle
	for rows.Next() {
		var (
			c models.Candle
			n uint64
		)
		if err := rows.Scan(&c.Start, &c.Symbol, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &n); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		c.Interval = string(tf)
		c.Count = int(n)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("clickhouse candles ok",
		applogger.String("tf", string(tf)),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration", time.Since(start)),
	)
	return out, nil
}

// Compile-time interface checks.
var (
	_ domrepo.CandleStore  = (*CHHistoryStore)(nil)
	_ domrepo.HistoryStore = (*CHHistoryStore)(nil)
)
