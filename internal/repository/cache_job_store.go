package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"OracleEngine/internal/domain/models"
	domrepo "OracleEngine/internal/domain/repository"
	pkgcache "OracleEngine/pkg/cache"
)

// CacheJobStore keeps async scan jobs in the shared cache so any replica
// can answer a status request. Jobs expire after the retention window.
type CacheJobStore struct {
	cache     pkgcache.Service
	retention time.Duration
}

func NewCacheJobStore(c pkgcache.Service, retention time.Duration) *CacheJobStore {
	return &CacheJobStore{cache: c, retention: retention}
}

func jobKey(id string) string { return pkgcache.Key("scan", "job", id) }

func (s *CacheJobStore) SaveJob(ctx context.Context, job *models.ScanJob) error {
	if job == nil || job.ID == "" {
		return domrepo.ErrInvalidInput
	}
	if err := s.cache.Set(ctx, jobKey(job.ID), job, s.retention); err != nil {
		return fmt.Errorf("save scan job: %w", err)
	}
	return nil
}

func (s *CacheJobStore) GetJob(ctx context.Context, id string) (*models.ScanJob, error) {
	var job models.ScanJob
	if err := s.cache.Get(ctx, jobKey(id), &job); err != nil {
		if errors.Is(err, pkgcache.ErrCacheMiss) {
			return nil, domrepo.ErrNotFound
		}
		return nil, fmt.Errorf("get scan job: %w", err)
	}
	return &job, nil
}

// Compile-time interface check.
var _ domrepo.ScanJobStore = (*CacheJobStore)(nil)
