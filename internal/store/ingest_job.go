package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arabic-corpus/ingest-pipeline/internal/store/model"
)

type IngestJob interface {
	Create(ctx context.Context, job model.IngestJob) (*model.IngestJob, error)
	Get(ctx context.Context, id uuid.UUID) (*model.IngestJob, error)
	List(ctx context.Context, filter *IngestJobQueryFilter) ([]model.IngestJob, error)
	UpdateProgress(ctx context.Context, id uuid.UUID, progressPct float64, status model.JobStatus) error
}

type IngestJobStore struct {
	db *gorm.DB
}

// Make sure we conform to IngestJob interface
var _ IngestJob = (*IngestJobStore)(nil)

func NewIngestJobStore(db *gorm.DB) IngestJob {
	return &IngestJobStore{db: db}
}

func (s *IngestJobStore) Create(ctx context.Context, job model.IngestJob) (*model.IngestJob, error) {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = model.JobStatusQueued
	}

	if result := s.getDB(ctx).Create(&job); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("creating ingest job: %w", result.Error)
	}

	return &job, nil
}

func (s *IngestJobStore) Get(ctx context.Context, id uuid.UUID) (*model.IngestJob, error) {
	var job model.IngestJob
	result := s.getDB(ctx).First(&job, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying ingest job: %w", result.Error)
	}

	return &job, nil
}

func (s *IngestJobStore) List(ctx context.Context, filter *IngestJobQueryFilter) ([]model.IngestJob, error) {
	var jobs []model.IngestJob

	tx := s.getDB(ctx).Model(&model.IngestJob{}).Order("created_at")
	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}

	if result := tx.Find(&jobs); result.Error != nil {
		return nil, fmt.Errorf("listing ingest jobs: %w", result.Error)
	}

	return jobs, nil
}

// UpdateProgress overwrites job status and progress. updated_at always
// advances, even when the values are unchanged.
func (s *IngestJobStore) UpdateProgress(ctx context.Context, id uuid.UUID, progressPct float64, status model.JobStatus) error {
	result := s.getDB(ctx).Model(&model.IngestJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"progress_pct": progressPct,
			"status":       status,
		})
	if result.Error != nil {
		return fmt.Errorf("updating ingest job progress: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}

	return nil
}

func (s *IngestJobStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
