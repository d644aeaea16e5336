package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/arabic-corpus/ingest-pipeline/internal/store/model"
)

type IngestJobStage interface {
	Upsert(ctx context.Context, stage model.IngestJobStage) (*model.IngestJobStage, error)
	Get(ctx context.Context, jobID, pageID uuid.UUID, stageName string) (*model.IngestJobStage, error)
	List(ctx context.Context, jobID uuid.UUID) ([]model.IngestJobStage, error)
	CountIncomplete(ctx context.Context, jobID uuid.UUID, stageName string) (int64, error)
}

type IngestJobStageStore struct {
	db *gorm.DB
}

// Make sure we conform to IngestJobStage interface
var _ IngestJobStage = (*IngestJobStageStore)(nil)

func NewIngestJobStageStore(db *gorm.DB) IngestJobStage {
	return &IngestJobStageStore{db: db}
}

// Upsert writes the stage row for (job, page, stage). Last write wins: a
// redelivered task overwrites status, error message and updated_at in place.
func (s *IngestJobStageStore) Upsert(ctx context.Context, stage model.IngestJobStage) (*model.IngestJobStage, error) {
	stage.UpdatedAt = time.Now().UTC()

	result := s.getDB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "ingest_job_id"},
			{Name: "page_id"},
			{Name: "stage_name"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"status", "error_message", "updated_at"}),
	}).Create(&stage)
	if result.Error != nil {
		return nil, fmt.Errorf("upserting ingest job stage: %w", result.Error)
	}

	return &stage, nil
}

func (s *IngestJobStageStore) Get(ctx context.Context, jobID, pageID uuid.UUID, stageName string) (*model.IngestJobStage, error) {
	var stage model.IngestJobStage
	result := s.getDB(ctx).First(&stage,
		"ingest_job_id = ? AND page_id = ? AND stage_name = ?", jobID, pageID, stageName)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying ingest job stage: %w", result.Error)
	}

	return &stage, nil
}

// List returns all stage rows of a job ordered by updated_at ascending, the
// order the API exposes them in.
func (s *IngestJobStageStore) List(ctx context.Context, jobID uuid.UUID) ([]model.IngestJobStage, error) {
	var stages []model.IngestJobStage
	result := s.getDB(ctx).
		Where("ingest_job_id = ?", jobID).
		Order("updated_at").
		Find(&stages)
	if result.Error != nil {
		return nil, fmt.Errorf("listing ingest job stages: %w", result.Error)
	}

	return stages, nil
}

// CountIncomplete counts page-scoped rows of one stage not yet completed.
// Used to decide whether a fanned-out stage may advance the job.
func (s *IngestJobStageStore) CountIncomplete(ctx context.Context, jobID uuid.UUID, stageName string) (int64, error) {
	var count int64
	result := s.getDB(ctx).Model(&model.IngestJobStage{}).
		Where("ingest_job_id = ? AND stage_name = ? AND status <> ?", jobID, stageName, model.StageStatusCompleted).
		Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("counting incomplete stages: %w", result.Error)
	}

	return count, nil
}

func (s *IngestJobStageStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
