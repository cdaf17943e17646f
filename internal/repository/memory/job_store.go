package memory

import (
	"context"
	"sync"

	"OracleEngine/internal/domain/models"
	domrepo "OracleEngine/internal/domain/repository"
)

type ScanJobStore struct {
	mu   sync.RWMutex
	jobs map[string]models.ScanJob
}

func NewScanJobStore() *ScanJobStore {
	return &ScanJobStore{jobs: make(map[string]models.ScanJob)}
}

func (s *ScanJobStore) SaveJob(_ context.Context, job *models.ScanJob) error {
	if job == nil || job.ID == "" {
		return domrepo.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = *job
	return nil
}

func (s *ScanJobStore) GetJob(_ context.Context, id string) (*models.ScanJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, domrepo.ErrNotFound
	}
	return &job, nil
}

// Compile-time interface check.
var _ domrepo.ScanJobStore = (*ScanJobStore)(nil)
