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

type AlertRuleStore struct {
	pool *Pool
}

func NewAlertRuleStore(pool *Pool) *AlertRuleStore {
	return &AlertRuleStore{pool: pool}
}

// Compile-time interface check.
var _ domrepo.AlertRuleStore = (*AlertRuleStore)(nil)

const ruleColumns = `id, user_id, asset, trigger_type, condition, threshold, channels, webhook_url,
	cooldown_minutes, active, last_triggered, trigger_count, previous_value, created_at, updated_at, version`

func (s *AlertRuleStore) Create(ctx context.Context, r *models.AlertRule) error {
	query := `
		INSERT INTO alert_rules (
			user_id, asset, trigger_type, condition, threshold, channels, webhook_url,
			cooldown_minutes, active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		RETURNING id, version
	`
	err := s.pool.QueryRow(ctx, query,
		r.UserID,
		r.Asset,
		string(r.TriggerType),
		string(r.Condition),
		r.Threshold,
		channelStrings(r.Channels),
		r.WebhookURL,
		r.CooldownMinutes,
		r.Active,
		r.CreatedAt,
	).Scan(&r.ID, &r.Version)
	if err != nil {
		return fmt.Errorf("insert alert rule: %w", err)
	}
	r.UpdatedAt = r.CreatedAt
	return nil
}

func (s *AlertRuleStore) Get(ctx context.Context, id int64) (*models.AlertRule, error) {
	r, err := scanRule(s.pool.QueryRow(ctx, `SELECT `+ruleColumns+` FROM alert_rules WHERE id = $1`, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, domrepo.ErrNotFound
		}
		return nil, fmt.Errorf("get alert rule: %w", err)
	}
	return r, nil
}

func (s *AlertRuleStore) List(ctx context.Context, f domrepo.AlertFilter) ([]*models.AlertRule, error) {
	var (
		conds []string
		args  []interface{}
	)
	if f.UserID != "" {
		args = append(args, f.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if f.Asset != "" {
		args = append(args, f.Asset)
		conds = append(conds, fmt.Sprintf("asset = $%d", len(args)))
	}
	if f.Active != nil {
		args = append(args, *f.Active)
		conds = append(conds, fmt.Sprintf("active = $%d", len(args)))
	}
	query := `SELECT ` + ruleColumns + ` FROM alert_rules`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	rows, err := s.pool.Query(ctx, query+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("list alert rules: %w", err)
	}
	defer rows.Close()

	var out []*models.AlertRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert rule row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alert rule rows: %w", err)
	}
	return out, nil
}

func (s *AlertRuleStore) ListActiveByAsset(ctx context.Context, asset string) ([]*models.AlertRule, error) {
	active := true
	return s.List(ctx, domrepo.AlertFilter{Asset: asset, Active: &active})
}

func (s *AlertRuleStore) UpdateIfVersion(ctx context.Context, r *models.AlertRule, expected int) error {
	query := `
		UPDATE alert_rules SET
			active = $1, last_triggered = $2, trigger_count = $3, previous_value = $4,
			updated_at = $5, version = version + 1
		WHERE id = $6 AND version = $7
	`
	tag, err := s.pool.Exec(ctx, query,
		r.Active,
		r.LastTriggered,
		r.TriggerCount,
		r.PreviousValue,
		r.UpdatedAt,
		r.ID,
		expected,
	)
	if err != nil {
		return fmt.Errorf("update alert rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.Get(ctx, r.ID); err != nil {
			return err
		}
		return domrepo.ErrConflict
	}
	r.Version = expected + 1
	return nil
}

func (s *AlertRuleStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM alert_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete alert rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domrepo.ErrNotFound
	}
	return nil
}

func scanRule(row pgx.Row) (*models.AlertRule, error) {
	var (
		r                  models.AlertRule
		trigger, condition string
		channels           []string
	)
	err := row.Scan(
		&r.ID,
		&r.UserID,
		&r.Asset,
		&trigger,
		&condition,
		&r.Threshold,
		&channels,
		&r.WebhookURL,
		&r.CooldownMinutes,
		&r.Active,
		&r.LastTriggered,
		&r.TriggerCount,
		&r.PreviousValue,
		&r.CreatedAt,
		&r.UpdatedAt,
		&r.Version,
	)
	if err != nil {
		return nil, err
	}
	r.TriggerType = models.TriggerType(trigger)
	r.Condition = models.Condition(condition)
	for _, ch := range channels {
		r.Channels = append(r.Channels, models.Channel(ch))
	}
	return &r, nil
}

func channelStrings(chs []models.Channel) []string {
	out := make([]string, len(chs))
	for i, ch := range chs {
		out[i] = string(ch)
	}
	return out
}

type AlertEventStore struct {
	pool *Pool
}

func NewAlertEventStore(pool *Pool) *AlertEventStore {
	return &AlertEventStore{pool: pool}
}

// Compile-time interface check.
var _ domrepo.AlertEventStore = (*AlertEventStore)(nil)

func (s *AlertEventStore) Append(ctx context.Context, e *models.AlertEvent) error {
	deliveries, err := json.Marshal(e.Deliveries)
	if err != nil {
		return fmt.Errorf("%w: deliveries: %v", domrepo.ErrInvalidInput, err)
	}
	query := `
		INSERT INTO alert_events (
			rule_id, user_id, asset, trigger_type, condition, threshold, value, message, deliveries, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	err = s.pool.QueryRow(ctx, query,
		e.RuleID,
		e.UserID,
		e.Asset,
		string(e.TriggerType),
		string(e.Condition),
		e.Threshold,
		e.Value,
		e.Message,
		deliveries,
		e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert alert event: %w", err)
	}
	return nil
}

func (s *AlertEventStore) ListByRule(ctx context.Context, ruleID int64, limit int) ([]*models.AlertEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, rule_id, user_id, asset, trigger_type, condition, threshold, value, message, deliveries, created_at
		FROM alert_events
		WHERE rule_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, ruleID, limit)
	if err != nil {
		return nil, fmt.Errorf("list alert events: %w", err)
	}
	defer rows.Close()

	var out []*models.AlertEvent
	for rows.Next() {
		var (
			e                  models.AlertEvent
			trigger, condition string
			deliveries         []byte
		)
		if err := rows.Scan(&e.ID, &e.RuleID, &e.UserID, &e.Asset, &trigger, &condition,
			&e.Threshold, &e.Value, &e.Message, &deliveries, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alert event row: %w", err)
		}
		e.TriggerType = models.TriggerType(trigger)
		e.Condition = models.Condition(condition)
		if err := json.Unmarshal(deliveries, &e.Deliveries); err != nil {
			return nil, fmt.Errorf("decode deliveries of event %d: %w", e.ID, err)
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alert event rows: %w", err)
	}
	return out, nil
}
