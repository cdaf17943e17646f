package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"OracleEngine/internal/domain/models"
	drepo "OracleEngine/internal/domain/repository"
	"OracleEngine/pkg/logger"
	"OracleEngine/pkg/queue"
)

const JobTypeScan = "oracle.scan"

type scanPayload struct {
	JobID  string   `json:"job_id"`
	Assets []string `json:"assets,omitempty"`
}

// ScanJobs runs on-demand scans in the background through the job queue and
// keeps their state in the job store.
type ScanJobs struct {
	queue   queue.Publisher
	store   drepo.ScanJobStore
	scanner *ScanOrchestrator
	logger  *logger.Logger
	now     func() time.Time
}

func NewScanJobs(q queue.Publisher, store drepo.ScanJobStore, scanner *ScanOrchestrator, lgr *logger.Logger) *ScanJobs {
	if lgr == nil {
		lgr = logger.NewNop()
	}
	return &ScanJobs{
		queue:   q,
		store:   store,
		scanner: scanner,
		logger:  lgr.With(logger.String("component", "scan_jobs")),
		now:     time.Now,
	}
}

// Job is registered with the queue consumer.
func (j *ScanJobs) Job() queue.Job {
	return queue.JobFunc{JobType: JobTypeScan, Fn: j.handle}
}

// Submit records a queued job and enqueues it. An empty asset list scans
// the whole universe.
func (j *ScanJobs) Submit(ctx context.Context, assets []string) (*models.ScanJob, error) {
	now := j.now().UTC()
	job := &models.ScanJob{
		ID:        uuid.NewString(),
		State:     models.JobQueued,
		Assets:    assets,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := j.store.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("save scan job: %w", err)
	}
	if _, err := j.queue.Enqueue(ctx, JobTypeScan, scanPayload{JobID: job.ID, Assets: assets}); err != nil {
		j.fail(ctx, job, err)
		return nil, fmt.Errorf("enqueue scan job: %w", err)
	}
	j.logger.Info("scan job queued", logger.String("job_id", job.ID), logger.Int("assets", len(assets)))
	return job, nil
}

func (j *ScanJobs) Get(ctx context.Context, id string) (*models.ScanJob, error) {
	return j.store.GetJob(ctx, id)
}

// handle returns ErrScanInProgress to the queue so the job is retried
// after the running scan finishes.
func (j *ScanJobs) handle(ctx context.Context, msg queue.Message) error {
	p, err := queue.Decode[scanPayload](msg)
	if err != nil {
		return fmt.Errorf("decode scan job: %w", err)
	}
	job, err := j.store.GetJob(ctx, p.JobID)
	if err != nil {
		return fmt.Errorf("load scan job %s: %w", p.JobID, err)
	}
	job.State = models.JobRunning
	job.UpdatedAt = j.now().UTC()
	if err := j.store.SaveJob(ctx, job); err != nil {
		return err
	}

	assets := p.Assets
	if len(assets) == 0 {
		assets = j.scanner.universe.Symbols()
	}
	summary, err := j.scanner.Scan(ctx, models.TriggerAsync, assets, nil)
	if err != nil {
		j.fail(ctx, job, err)
		return err
	}
	job.State = models.JobDone
	job.Summary = summary
	job.Error = ""
	job.UpdatedAt = j.now().UTC()
	if err := j.store.SaveJob(ctx, job); err != nil {
		return err
	}
	j.logger.Info("scan job done", logger.String("job_id", job.ID), logger.String("scan_id", summary.ID))
	return nil
}

func (j *ScanJobs) fail(ctx context.Context, job *models.ScanJob, cause error) {
	job.State = models.JobFailed
	job.Error = cause.Error()
	job.UpdatedAt = j.now().UTC()
	if err := j.store.SaveJob(ctx, job); err != nil {
		j.logger.Warn("save failed scan job", logger.String("job_id", job.ID), logger.Error(err))
	}
}
