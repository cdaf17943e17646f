package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OracleEngine/internal/domain/models"
	"OracleEngine/internal/repository/memory"
	"OracleEngine/pkg/config"
	"OracleEngine/pkg/logger"
	"OracleEngine/pkg/queue"
)

func startJobs(t *testing.T, f *scanFixture) *ScanJobs {
	t.Helper()
	q := queue.NewMemoryQueue(logger.NewNop(), &queue.Config{Workers: 1, RetryLimit: 1, RetryDelay: 10 * time.Millisecond})
	jobs := NewScanJobs(q, memory.NewScanJobStore(), f.scan, nil)
	q.RegisterJob(jobs.Job())
	require.NoError(t, q.Start())
	t.Cleanup(func() { _ = q.Stop(context.Background()) })
	return jobs
}

func TestScanJobs_SubmitAndComplete(t *testing.T) {
	f := newScanFixture(t, config.ScanConfig{}, 80)
	jobs := startJobs(t, f)
	ctx := context.Background()

	job, err := jobs.Submit(ctx, []string{"BTC", "ETH"})
	require.NoError(t, err)
	assert.Equal(t, models.JobQueued, job.State)

	var got *models.ScanJob
	require.Eventually(t, func() bool {
		got, err = jobs.Get(ctx, job.ID)
		return err == nil && got.State == models.JobDone
	}, 2*time.Second, 10*time.Millisecond)

	require.NotNil(t, got.Summary)
	assert.Equal(t, models.TriggerAsync, got.Summary.Trigger)
	assert.Equal(t, 2, got.Summary.Saved)
	assert.Empty(t, got.Error)
}

func TestScanJobs_EmptyAssetsScanUniverse(t *testing.T) {
	f := newScanFixture(t, config.ScanConfig{}, 50)
	jobs := startJobs(t, f)
	ctx := context.Background()

	job, err := jobs.Submit(ctx, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := jobs.Get(ctx, job.ID)
		return err == nil && got.State == models.JobDone && got.Summary.Scanned == len(scanAssets)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestScanJobs_FailsWhileScanHeld(t *testing.T) {
	f := newScanFixture(t, config.ScanConfig{}, 80)
	ok, err := f.lock.TryLock(context.Background(), scanLockKey, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	jobs := startJobs(t, f)

	job, err := jobs.Submit(context.Background(), []string{"BTC"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := jobs.Get(context.Background(), job.ID)
		return err == nil && got.State == models.JobFailed && got.Error == ErrScanInProgress.Error()
	}, 2*time.Second, 10*time.Millisecond)
}

func TestScanJobs_UnknownJob(t *testing.T) {
	f := newScanFixture(t, config.ScanConfig{}, 80)
	jobs := startJobs(t, f)
	_, err := jobs.Get(context.Background(), "missing")
	assert.Error(t, err)
}
