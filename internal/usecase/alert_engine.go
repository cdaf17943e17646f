package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"OracleEngine/internal/domain/models"
	drepo "OracleEngine/internal/domain/repository"
	domsvc "OracleEngine/internal/domain/service"
	svcmetrics "OracleEngine/internal/service/metrics"
	"OracleEngine/internal/services/factors"
	"OracleEngine/internal/services/quant"
	"OracleEngine/pkg/config"
	"OracleEngine/pkg/logger"
	"OracleEngine/pkg/util"
)

// AlertEngine evaluates user rules against fresh metric values and hands
// matches to the notification dispatcher.
type AlertEngine struct {
	rules           drepo.AlertRuleStore
	events          drepo.AlertEventStore
	dispatcher      domsvc.Dispatcher
	publisher       drepo.EventPublisher
	universe        *models.Universe
	metrics         drepo.Metrics
	logger          *logger.Logger
	defaultCooldown int
	now             func() time.Time
}

func NewAlertEngine(
	cfg config.AlertsConfig,
	universe *models.Universe,
	rules drepo.AlertRuleStore,
	events drepo.AlertEventStore,
	dispatcher domsvc.Dispatcher,
	publisher drepo.EventPublisher,
	metrics drepo.Metrics,
	lgr *logger.Logger,
) *AlertEngine {
	if lgr == nil {
		lgr = logger.NewNop()
	}
	if metrics == nil {
		metrics = svcmetrics.Nop{}
	}
	if publisher == nil {
		publisher = nopEvents{}
	}
	cooldown := int(cfg.DefaultCooldown / time.Minute)
	if cooldown <= 0 {
		cooldown = models.DefaultCooldownMinutes
	}
	return &AlertEngine{
		rules:           rules,
		events:          events,
		dispatcher:      dispatcher,
		publisher:       publisher,
		universe:        universe,
		metrics:         metrics,
		logger:          lgr.With(logger.String("component", "alerts")),
		defaultCooldown: cooldown,
		now:             time.Now,
	}
}

// SetClock replaces the wall clock, for tests.
func (e *AlertEngine) SetClock(now func() time.Time) { e.now = now }

// CreateRule validates and stores a new active rule.
func (e *AlertEngine) CreateRule(ctx context.Context, req *models.CreateAlertRequest) (*models.AlertRule, error) {
	asset, err := e.universe.Resolve(req.Asset)
	if err != nil {
		return nil, err
	}
	r := &models.AlertRule{
		UserID:          req.UserID,
		Asset:           asset,
		TriggerType:     models.TriggerType(req.TriggerType),
		Condition:       models.Condition(req.Condition),
		WebhookURL:      req.WebhookURL,
		CooldownMinutes: e.defaultCooldown,
		Active:          true,
	}
	if req.Threshold != nil {
		r.Threshold = *req.Threshold
	}
	if req.CooldownMinutes != nil {
		r.CooldownMinutes = *req.CooldownMinutes
	}
	for _, ch := range req.Channels {
		r.Channels = append(r.Channels, models.Channel(ch))
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := e.rules.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("create rule: %w", err)
	}
	e.logger.Info("alert rule created",
		logger.Int64("rule_id", r.ID),
		logger.String("asset", r.Asset),
		logger.String("trigger", string(r.TriggerType)),
	)
	return r, nil
}

func (e *AlertEngine) ListRules(ctx context.Context, f drepo.AlertFilter) ([]*models.AlertRule, error) {
	if f.Asset != "" {
		f.Asset = util.NormalizeSymbol(f.Asset)
	}
	return e.rules.List(ctx, f)
}

func (e *AlertEngine) DeleteRule(ctx context.Context, id int64) error {
	return e.rules.Delete(ctx, id)
}

// RuleEvents returns the most recent firings of a rule.
func (e *AlertEngine) RuleEvents(ctx context.Context, id int64, limit int) ([]*models.AlertEvent, error) {
	if _, err := e.rules.Get(ctx, id); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return e.events.ListByRule(ctx, id, limit)
}

// TriggerValues extracts the current value of every trigger type an
// evaluation carries. Metrics the evaluation lacks are left out.
func TriggerValues(ev *models.Evaluation) map[models.TriggerType]float64 {
	out := map[models.TriggerType]float64{
		models.TriggerOracleScore: float64(ev.Score.Score),
		models.TriggerPrice:       ev.Observation.Price,
	}
	if ev.Observation.Volume24h != nil {
		out[models.TriggerVolume] = *ev.Observation.Volume24h
	}
	if ev.Observation.SentimentIndex != nil {
		out[models.TriggerSentiment] = *ev.Observation.SentimentIndex
	}
	if v, ok := ev.Observation.Aux(factors.WhaleActivity); ok {
		out[models.TriggerWhaleActivity] = v
	}
	for _, q := range ev.Quant {
		if q.Model != quant.ModelRSI || !q.Available() {
			continue
		}
		if v, ok := q.Diagnostics["rsi"]; ok {
			out[models.TriggerRSI] = v
		}
	}
	return out
}

// EvaluateAll runs every trigger type the evaluation touches.
func (e *AlertEngine) EvaluateAll(ctx context.Context, ev *models.Evaluation) ([]*models.AlertEvent, error) {
	var (
		fired  []*models.AlertEvent
		errs   []error
		values = TriggerValues(ev)
	)
	for _, tt := range models.TriggerTypes {
		v, ok := values[tt]
		if !ok {
			continue
		}
		got, err := e.EvaluateRules(ctx, ev.Asset, tt, v)
		if err != nil {
			errs = append(errs, err)
		}
		fired = append(fired, got...)
	}
	return fired, errors.Join(errs...)
}

// EvaluateRules checks the active rules of asset for one trigger type.
// Every evaluated rule records value as its previous value, matched or not,
// so crossing conditions see the last side of the threshold.
func (e *AlertEngine) EvaluateRules(ctx context.Context, asset string, trigger models.TriggerType, value float64) ([]*models.AlertEvent, error) {
	asset = util.NormalizeSymbol(asset)
	rules, err := e.rules.ListActiveByAsset(ctx, asset)
	if err != nil {
		return nil, fmt.Errorf("list rules %s: %w", asset, err)
	}
	var (
		fired []*models.AlertEvent
		errs  []error
	)
	for _, r := range rules {
		if r.TriggerType != trigger {
			continue
		}
		ev, err := e.evaluateRule(ctx, r, value)
		if err != nil {
			e.metrics.RecordError("alert_rule")
			e.logger.Warn("evaluate rule", logger.Int64("rule_id", r.ID), logger.Error(err))
			errs = append(errs, fmt.Errorf("rule %d: %w", r.ID, err))
			continue
		}
		if ev != nil {
			fired = append(fired, ev)
		}
	}
	return fired, errors.Join(errs...)
}

// evaluateRule claims the firing with a versioned write before anything is
// sent, so concurrent evaluations of the same rule fire at most once per
// cooldown window.
func (e *AlertEngine) evaluateRule(ctx context.Context, r *models.AlertRule, value float64) (*models.AlertEvent, error) {
	cur := r
	for attempt := 0; attempt < 2; attempt++ {
		now := e.now().UTC()
		next := cur.Clone()
		fire := !next.CoolingDown(now) && next.Matches(value)
		next.PreviousValue = models.Float(value)
		next.UpdatedAt = now
		if fire {
			next.LastTriggered = &now
			next.TriggerCount++
		}
		err := e.rules.UpdateIfVersion(ctx, next, cur.Version)
		if err == nil {
			if !fire {
				return nil, nil
			}
			return e.fire(ctx, next, value, now)
		}
		if !errors.Is(err, drepo.ErrConflict) {
			return nil, err
		}
		if cur, err = e.rules.Get(ctx, r.ID); err != nil {
			return nil, err
		}
		if !cur.Active {
			return nil, nil
		}
	}
	return nil, drepo.ErrConflict
}

func (e *AlertEngine) fire(ctx context.Context, r *models.AlertRule, value float64, now time.Time) (*models.AlertEvent, error) {
	msg := r.Message(value)
	var results []models.DeliveryResult
	if e.dispatcher != nil {
		results = e.dispatcher.Dispatch(ctx, r, models.Notification{
			RuleID:  r.ID,
			UserID:  r.UserID,
			Asset:   r.Asset,
			Trigger: r.TriggerType,
			Value:   value,
			Message: msg,
		})
	}
	sent := make([]models.DeliveryResult, 0, len(results))
	for _, d := range results {
		if d.Sent {
			sent = append(sent, d)
		}
	}
	ev := &models.AlertEvent{
		RuleID:      r.ID,
		UserID:      r.UserID,
		Asset:       r.Asset,
		TriggerType: r.TriggerType,
		Condition:   r.Condition,
		Threshold:   r.Threshold,
		Value:       value,
		Message:     msg,
		Deliveries:  sent,
		CreatedAt:   now,
	}
	if err := e.events.Append(ctx, ev); err != nil {
		return nil, fmt.Errorf("append alert event: %w", err)
	}
	e.metrics.RecordAlert(string(r.TriggerType))
	if err := e.publisher.PublishAlert(ctx, ev); err != nil {
		e.logger.Warn("publish alert event", logger.Int64("rule_id", r.ID), logger.Error(err))
	}
	e.logger.Info("alert fired",
		logger.Int64("rule_id", r.ID),
		logger.String("asset", r.Asset),
		logger.String("trigger", string(r.TriggerType)),
		logger.Float64("value", value),
		logger.Int("sent", len(sent)),
	)
	return ev, nil
}
