package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/arabic-corpus/ingest-pipeline/internal/ingest"
	"github.com/arabic-corpus/ingest-pipeline/internal/ingest/jobs"
	"github.com/arabic-corpus/ingest-pipeline/internal/store"
	"github.com/arabic-corpus/ingest-pipeline/internal/store/model"
	"github.com/arabic-corpus/ingest-pipeline/pkg/log"
	"github.com/arabic-corpus/ingest-pipeline/pkg/metrics"
)

type IngestService struct {
	store    store.Store
	enqueuer jobs.Enqueuer
	logger   *log.StructuredLogger
}

func NewIngestService(s store.Store, enqueuer jobs.Enqueuer) *IngestService {
	return &IngestService{
		store:    s,
		enqueuer: enqueuer,
		logger:   log.NewDebugLogger("ingest_service"),
	}
}

// CreateJob inserts the job row and enqueues the first stage task. When the
// enqueue fails the row stays in queued and the reconciler retries the
// enqueue later; the caller still sees the error.
func (s *IngestService) CreateJob(ctx context.Context, editionID uuid.UUID, createdBy string) (*model.IngestJob, error) {
	tracer := s.logger.WithContext(ctx).Operation("create_ingest_job").
		WithUUID("edition_id", editionID).
		WithString("created_by", createdBy).
		Build()

	job, err := s.store.IngestJob().Create(ctx, model.IngestJob{
		EditionID: editionID,
		CreatedBy: createdBy,
		Status:    model.JobStatusQueued,
	})
	if err != nil {
		tracer.Error(err).Log()
		return nil, fmt.Errorf("failed to create ingest job: %w", err)
	}
	metrics.IncreaseJobsCreatedMetric()

	if err := s.enqueuer.EnqueueStage(ctx, jobs.StageArgs{
		JobID:     job.ID,
		EditionID: job.EditionID,
		Stage:     ingest.FirstStage(),
	}); err != nil {
		tracer.Error(err).WithString("job_id", job.ID.String()).Log()
		return nil, fmt.Errorf("failed to enqueue first stage for job %s: %w", job.ID, err)
	}

	tracer.Success().WithString("job_id", job.ID.String()).Log()
	return job, nil
}

// GetJob returns the job plus its stage rows ordered by updated_at
// ascending. Stages that never ran have no row at all.
func (s *IngestService) GetJob(ctx context.Context, id uuid.UUID) (*model.IngestJob, []model.IngestJobStage, error) {
	tracer := s.logger.WithContext(ctx).Operation("get_ingest_job").
		WithUUID("job_id", id).
		Build()

	job, err := s.store.IngestJob().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, nil, NewErrIngestJobNotFound(id)
		}
		tracer.Error(err).Log()
		return nil, nil, fmt.Errorf("failed to get ingest job: %w", err)
	}

	stages, err := s.store.IngestJobStage().List(ctx, id)
	if err != nil {
		tracer.Error(err).Log()
		return nil, nil, fmt.Errorf("failed to list ingest job stages: %w", err)
	}

	tracer.Success().
		WithString("status", string(job.Status)).
		WithFloat("progress_pct", job.ProgressPct).
		WithInt("stage_count", len(stages)).
		Log()
	return job, stages, nil
}
