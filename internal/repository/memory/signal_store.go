package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"OracleEngine/internal/domain/models"
	domrepo "OracleEngine/internal/domain/repository"
)

// SignalStore is an in-memory SignalStore. Reads and writes go through
// copies so callers never share state with the store.
type SignalStore struct {
	mu     sync.RWMutex
	data   map[int64]*models.Signal
	nextID int64
	now    func() time.Time
}

func NewSignalStore() *SignalStore {
	return &SignalStore{data: make(map[int64]*models.Signal), now: time.Now}
}

func (s *SignalStore) Create(_ context.Context, sig *models.Signal) error {
	if sig == nil || sig.Asset == "" {
		return domrepo.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	sig.ID = s.nextID
	sig.Version = 1
	if sig.CreatedAt.IsZero() {
		sig.CreatedAt = s.now().UTC()
	}
	if sig.UpdatedAt.IsZero() {
		sig.UpdatedAt = sig.CreatedAt
	}
	s.data[sig.ID] = sig.Clone()
	return nil
}

func (s *SignalStore) Get(_ context.Context, id int64) (*models.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sig, ok := s.data[id]
	if !ok {
		return nil, domrepo.ErrNotFound
	}
	return sig.Clone(), nil
}

// List returns the page selected by f, newest first, with the total match
// count before paging.
func (s *SignalStore) List(_ context.Context, f models.SignalFilter) ([]*models.Signal, int, error) {
	s.mu.RLock()
	var matched []*models.Signal
	for _, sig := range s.data {
		if matches(sig, f) {
			matched = append(matched, sig.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	return page(matched, f.Offset, f.Limit), len(matched), nil
}

func (s *SignalStore) ListActive(_ context.Context, asset string) ([]*models.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Signal
	for _, sig := range s.data {
		if sig.Status == models.StatusActive && (asset == "" || sig.Asset == asset) {
			out = append(out, sig.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *SignalStore) UpdateIfVersion(_ context.Context, sig *models.Signal, expected int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.data[sig.ID]
	if !ok {
		return domrepo.ErrNotFound
	}
	if cur.Version != expected {
		return domrepo.ErrConflict
	}
	sig.Version = expected + 1
	s.data[sig.ID] = sig.Clone()
	return nil
}

func matches(sig *models.Signal, f models.SignalFilter) bool {
	switch {
	case f.Asset != "" && sig.Asset != f.Asset:
		return false
	case f.Type != "" && sig.Type != f.Type:
		return false
	case f.Status != "" && sig.Status != f.Status:
		return false
	case sig.Score < f.MinScore:
		return false
	case !f.Since.IsZero() && sig.CreatedAt.Before(f.Since):
		return false
	}
	return true
}

func page[T any](xs []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(xs) {
		return []T{}
	}
	xs = xs[offset:]
	if limit > 0 && limit < len(xs) {
		xs = xs[:limit]
	}
	return xs
}

// Compile-time interface check.
var _ domrepo.SignalStore = (*SignalStore)(nil)
