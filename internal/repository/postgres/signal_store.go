package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"OracleEngine/internal/domain/models"
	domrepo "OracleEngine/internal/domain/repository"
)

type SignalStore struct {
	pool *Pool
}

func NewSignalStore(pool *Pool) *SignalStore {
	return &SignalStore{pool: pool}
}

// Compile-time interface check.
var _ domrepo.SignalStore = (*SignalStore)(nil)

const signalColumns = `id, asset, pair, signal_type, oracle_score, confidence, entry_price, target_price,
	stop_loss, risk_reward, timeframe, expires_at, status, outcome_price, outcome_pnl_pct, outcome_at,
	close_reason, model_version, fidelity, snapshot, created_at, updated_at, version`

func (s *SignalStore) Create(ctx context.Context, sig *models.Signal) error {
	snap, err := json.Marshal(sig.Snapshot)
	if err != nil {
		return fmt.Errorf("%w: snapshot: %v", domrepo.ErrInvalidInput, err)
	}
	query := `
		INSERT INTO signals (
			asset, pair, signal_type, oracle_score, confidence, entry_price, target_price, stop_loss,
			risk_reward, timeframe, expires_at, status, model_version, fidelity, snapshot, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16)
		RETURNING id, version
	`
	err = s.pool.QueryRow(ctx, query,
		sig.Asset,
		sig.Pair,
		string(sig.Type),
		sig.Score,
		string(sig.Confidence),
		sig.EntryPrice,
		sig.TargetPrice,
		sig.StopLoss,
		sig.RiskReward,
		sig.Timeframe,
		sig.ExpiresAt,
		string(sig.Status),
		sig.ModelVersion,
		string(sig.Fidelity),
		snap,
		sig.CreatedAt,
	).Scan(&sig.ID, &sig.Version)
	if err != nil {
		if isDuplicateKeyError(err) {
			return domrepo.ErrDuplicateKey
		}
		return fmt.Errorf("insert signal: %w", err)
	}
	sig.UpdatedAt = sig.CreatedAt
	return nil
}

func (s *SignalStore) Get(ctx context.Context, id int64) (*models.Signal, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+signalColumns+` FROM signals WHERE id = $1`, id)
	sig, err := scanSignal(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, domrepo.ErrNotFound
		}
		return nil, fmt.Errorf("get signal: %w", err)
	}
	return sig, nil
}

func (s *SignalStore) List(ctx context.Context, f models.SignalFilter) ([]*models.Signal, int, error) {
	where, args := signalWhere(f)

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM signals`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count signals: %w", err)
	}

	query := `SELECT ` + signalColumns + ` FROM signals` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list signals: %w", err)
	}
	defer rows.Close()

	out, err := scanSignals(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// signalWhere renders the filter as a WHERE clause with positional args.
func signalWhere(f models.SignalFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, v interface{}) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Asset != "" {
		add("asset = $%d", f.Asset)
	}
	if f.Type != "" {
		add("signal_type = $%d", string(f.Type))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.MinScore > 0 {
		add("oracle_score >= $%d", f.MinScore)
	}
	if !f.Since.IsZero() {
		add("created_at >= $%d", f.Since)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *SignalStore) ListActive(ctx context.Context, asset string) ([]*models.Signal, error) {
	query := `SELECT ` + signalColumns + ` FROM signals WHERE status = 'active' AND ($1 = '' OR asset = $1) ORDER BY id`
	rows, err := s.pool.Query(ctx, query, asset)
	if err != nil {
		return nil, fmt.Errorf("list active signals: %w", err)
	}
	defer rows.Close()
	return scanSignals(rows)
}

// UpdateIfVersion persists the mutable lifecycle columns under an
// optimistic version check.
func (s *SignalStore) UpdateIfVersion(ctx context.Context, sig *models.Signal, expected int) error {
	query := `
		UPDATE signals SET
			status = $1, outcome_price = $2, outcome_pnl_pct = $3, outcome_at = $4,
			close_reason = $5, updated_at = $6, version = version + 1
		WHERE id = $7 AND version = $8
	`
	tag, err := s.pool.Exec(ctx, query,
		string(sig.Status),
		sig.OutcomePrice,
		sig.OutcomePnLPct,
		sig.OutcomeAt,
		sig.CloseReason,
		sig.UpdatedAt,
		sig.ID,
		expected,
	)
	if err != nil {
		return fmt.Errorf("update signal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM signals WHERE id = $1)`, sig.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check signal: %w", err)
		}
		if !exists {
			return domrepo.ErrNotFound
		}
		return domrepo.ErrConflict
	}
	sig.Version = expected + 1
	return nil
}

func scanSignal(row pgx.Row) (*models.Signal, error) {
	var (
		sig                         models.Signal
		typ, conf, status, fidelity string
		snap                        []byte
	)
	err := row.Scan(
		&sig.ID,
		&sig.Asset,
		&sig.Pair,
		&typ,
		&sig.Score,
		&conf,
		&sig.EntryPrice,
		&sig.TargetPrice,
		&sig.StopLoss,
		&sig.RiskReward,
		&sig.Timeframe,
		&sig.ExpiresAt,
		&status,
		&sig.OutcomePrice,
		&sig.OutcomePnLPct,
		&sig.OutcomeAt,
		&sig.CloseReason,
		&sig.ModelVersion,
		&fidelity,
		&snap,
		&sig.CreatedAt,
		&sig.UpdatedAt,
		&sig.Version,
	)
	if err != nil {
		return nil, err
	}
	sig.Type = models.SignalType(typ)
	sig.Confidence = models.Confidence(conf)
	sig.Status = models.SignalStatus(status)
	sig.Fidelity = models.Fidelity(fidelity)
	if err := json.Unmarshal(snap, &sig.Snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot of signal %d: %w", sig.ID, err)
	}
	return &sig, nil
}

func scanSignals(rows pgx.Rows) ([]*models.Signal, error) {
	var out []*models.Signal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan signal row: %w", err)
		}
		out = append(out, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signal rows: %w", err)
	}
	return out, nil
}
