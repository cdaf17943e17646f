package repository

import "fmt"

const (
	TickTable  = "price_ticks"
	AuditTable = "scan_audit"
)

// ClickHouseSchema returns the idempotent DDL for the tick history and the
// scan audit log in database db.
func ClickHouseSchema(db string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
			ts      DateTime64(3, 'UTC'),
			symbol  LowCardinality(String),
			price   Float64,
			volume  Float64,
			source  LowCardinality(String),
			event_id String
		) ENGINE = ReplacingMergeTree
		PARTITION BY toYYYYMM(ts)
		ORDER BY (symbol, ts, event_id)
		TTL toDateTime(ts) + INTERVAL 180 DAY`, db, TickTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
			scan_id     String,
			trigger     LowCardinality(String),
			started_at  DateTime64(3, 'UTC'),
			asset       LowCardinality(String),
			outcome     LowCardinality(String),
			oracle_score Int32,
			signal_type LowCardinality(String),
			signal_id   Int64,
			fidelity    LowCardinality(String),
			error       String,
			duration_ms Float64
		) ENGINE = MergeTree
		PARTITION BY toYYYYMM(started_at)
		ORDER BY (asset, started_at)`, db, AuditTable),
	}
}
