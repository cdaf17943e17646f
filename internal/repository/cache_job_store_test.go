package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OracleEngine/internal/domain/models"
	domrepo "OracleEngine/internal/domain/repository"
	pkgcache "OracleEngine/pkg/cache"
)

func TestCacheJobStoreRoundTrip(t *testing.T) {
	store := NewCacheJobStore(pkgcache.NewMemoryCache(), time.Hour)
	ctx := context.Background()

	summary := &models.ScanSummary{ID: "s1", Scanned: 2, Saved: 1}
	require.NoError(t, store.SaveJob(ctx, &models.ScanJob{ID: "job-1", State: models.JobDone, Summary: summary}))

	job, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.JobDone, job.State)
	require.NotNil(t, job.Summary)
	assert.Equal(t, 1, job.Summary.Saved)

	_, err = store.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, domrepo.ErrNotFound)
	assert.ErrorIs(t, store.SaveJob(ctx, &models.ScanJob{}), domrepo.ErrInvalidInput)
}
