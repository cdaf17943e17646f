package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"OracleEngine/internal/domain/models"
	domrepo "OracleEngine/internal/domain/repository"
)

type AlertRuleStore struct {
	mu     sync.RWMutex
	data   map[int64]*models.AlertRule
	nextID int64
	now    func() time.Time
}

func NewAlertRuleStore() *AlertRuleStore {
	return &AlertRuleStore{data: make(map[int64]*models.AlertRule), now: time.Now}
}

func (s *AlertRuleStore) Create(_ context.Context, r *models.AlertRule) error {
	if r == nil || r.Asset == "" {
		return domrepo.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	r.ID = s.nextID
	r.Version = 1
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now().UTC()
	}
	r.UpdatedAt = r.CreatedAt
	s.data[r.ID] = r.Clone()
	return nil
}

func (s *AlertRuleStore) Get(_ context.Context, id int64) (*models.AlertRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.data[id]
	if !ok {
		return nil, domrepo.ErrNotFound
	}
	return r.Clone(), nil
}

func (s *AlertRuleStore) List(_ context.Context, f domrepo.AlertFilter) ([]*models.AlertRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.AlertRule
	for _, r := range s.data {
		if f.UserID != "" && r.UserID != f.UserID {
			continue
		}
		if f.Asset != "" && r.Asset != f.Asset {
			continue
		}
		if f.Active != nil && r.Active != *f.Active {
			continue
		}
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *AlertRuleStore) ListActiveByAsset(ctx context.Context, asset string) ([]*models.AlertRule, error) {
	active := true
	return s.List(ctx, domrepo.AlertFilter{Asset: asset, Active: &active})
}

func (s *AlertRuleStore) UpdateIfVersion(_ context.Context, r *models.AlertRule, expected int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.data[r.ID]
	if !ok {
		return domrepo.ErrNotFound
	}
	if cur.Version != expected {
		return domrepo.ErrConflict
	}
	r.Version = expected + 1
	s.data[r.ID] = r.Clone()
	return nil
}

func (s *AlertRuleStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[id]; !ok {
		return domrepo.ErrNotFound
	}
	delete(s.data, id)
	return nil
}

// AlertEventStore keeps the firing history of every rule.
type AlertEventStore struct {
	mu     sync.RWMutex
	byRule map[int64][]*models.AlertEvent
	nextID int64
}

func NewAlertEventStore() *AlertEventStore {
	return &AlertEventStore{byRule: make(map[int64][]*models.AlertEvent)}
}

func (s *AlertEventStore) Append(_ context.Context, e *models.AlertEvent) error {
	if e == nil || e.RuleID == 0 {
		return domrepo.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	e.ID = s.nextID
	s.byRule[e.RuleID] = append(s.byRule[e.RuleID], copyEvent(e))
	return nil
}

// ListByRule returns the rule's events, newest first.
func (s *AlertEventStore) ListByRule(_ context.Context, ruleID int64, limit int) ([]*models.AlertEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.byRule[ruleID]
	out := make([]*models.AlertEvent, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		out = append(out, copyEvent(events[i]))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func copyEvent(e *models.AlertEvent) *models.AlertEvent {
	c := *e
	c.Deliveries = append([]models.DeliveryResult(nil), e.Deliveries...)
	return &c
}

// Compile-time interface checks.
var (
	_ domrepo.AlertRuleStore  = (*AlertRuleStore)(nil)
	_ domrepo.AlertEventStore = (*AlertEventStore)(nil)
)
