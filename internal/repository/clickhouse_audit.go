package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"OracleEngine/internal/domain/models"
	domrepo "OracleEngine/internal/domain/repository"
	pkgch "OracleEngine/pkg/clickhouse"
)

// CHScanAudit writes one row per asset per scan.
type CHScanAudit struct {
	db    *sql.DB
	table string
}

func NewCHScanAudit(ch *pkgch.Client, database string) *CHScanAudit {
	return &CHScanAudit{db: ch.DB(), table: database + "." + AuditTable}
}

func (a *CHScanAudit) RecordScan(ctx context.Context, s *models.ScanSummary) error {
	q, args := auditInsert(a.table, s)
	if q == "" {
		return nil
	}
	if _, err := a.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("insert scan audit: %w", err)
	}
	return nil
}

func auditInsert(table string, s *models.ScanSummary) (string, []interface{}) {
	if s == nil || len(s.Results) == 0 {
		return "", nil
	}
	values := make([]string, 0, len(s.Results))
	args := make([]interface{}, 0, len(s.Results)*11)
	for _, r := range s.Results {
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			s.ID, string(s.Trigger), s.StartedAt.UTC(), r.Asset, string(r.Outcome),
			int32(r.Score), string(r.Type), r.SignalID, string(r.Fidelity), r.Error, r.Duration,
		)
	}
	q := fmt.Sprintf("INSERT INTO %s (scan_id, trigger, started_at, asset, outcome, oracle_score, signal_type, signal_id, fidelity, error, duration_ms) VALUES %s",
		table, strings.Join(values, ","))
	return q, args
}

// Compile-time interface check.
var _ domrepo.AuditLog = (*CHScanAudit)(nil)
