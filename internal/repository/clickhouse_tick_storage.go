package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"OracleEngine/internal/domain/models"
	domrepo "OracleEngine/internal/domain/repository"
	pkgch "OracleEngine/pkg/clickhouse"
)

const tickChunkSize = 2000

// ClickHouseTickStorage keeps streamed trades for the history fallback.
type ClickHouseTickStorage struct {
	client *pkgch.Client
	db     *sql.DB
	schema string
	table  string
}

func NewClickHouseTickStorage(client *pkgch.Client, database string) *ClickHouseTickStorage {
	return &ClickHouseTickStorage{
		client: client,
		db:     client.DB(),
		schema: database,
		table:  database + "." + TickTable,
	}
}

func (s *ClickHouseTickStorage) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, ClickHouseSchema(s.schema))
}

func (s *ClickHouseTickStorage) Store(ctx context.Context, t *models.PriceTick) error {
	return s.StoreBatch(ctx, []*models.PriceTick{t})
}

// StoreBatch inserts multi-row VALUES in chunks. The event id makes replays
// of the same print collapse under ReplacingMergeTree.
func (s *ClickHouseTickStorage) StoreBatch(ctx context.Context, ticks []*models.PriceTick) error {
	for start := 0; start < len(ticks); start += tickChunkSize {
		end := start + tickChunkSize
		if end > len(ticks) {
			end = len(ticks)
		}
		q, args := tickInsert(s.table, ticks[start:end])
		if q == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert ticks: %w", err)
		}
	}
	return nil
}

func tickInsert(table string, ticks []*models.PriceTick) (string, []interface{}) {
	values := make([]string, 0, len(ticks))
	args := make([]interface{}, 0, len(ticks)*6)
	for _, t := range ticks {
		if t == nil || t.Symbol == "" || t.Timestamp.IsZero() {
			continue
		}
		values = append(values, "(?, ?, ?, ?, ?, ?)")
		args = append(args, t.Timestamp.UTC(), t.Symbol, t.Price, t.Volume, t.Source, tickEventID(t))
	}
	if len(values) == 0 {
		return "", nil
	}
	q := fmt.Sprintf("INSERT INTO %s (ts, symbol, price, volume, source, event_id) VALUES %s", table, strings.Join(values, ","))
	return q, args
}

func tickEventID(t *models.PriceTick) string {
	return fmt.Sprintf("%s-%s-%d", t.Source, t.Symbol, t.Timestamp.UnixMilli())
}

func (s *ClickHouseTickStorage) Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.PriceTick, error) {
	q := fmt.Sprintf("SELECT symbol, ts, price, volume, source FROM %s WHERE symbol = ? AND ts >= ? AND ts <= ? ORDER BY ts DESC LIMIT ?", s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, from.UTC(), to.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("query ticks: %w", err)
	}
	defer rows.Close()

	var out []*models.PriceTick
	for rows.Next() {
		var t models.PriceTick
		if err := rows.Scan(&t.Symbol, &t.Timestamp, &t.Price, &t.Volume, &t.Source); err != nil {
			return nil, fmt.Errorf("scan tick: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (s *ClickHouseTickStorage) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

// Close is a no-op; the pool belongs to the pkg client.
func (s *ClickHouseTickStorage) Close() error { return nil }

// Compile-time interface check.
var _ domrepo.TickStorage = (*ClickHouseTickStorage)(nil)
