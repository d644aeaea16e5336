package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/arabic-corpus/ingest-pipeline/internal/store/model"
)

type Store interface {
	NewTransactionContext(ctx context.Context) (context.Context, error)
	IngestJob() IngestJob
	IngestJobStage() IngestJobStage
	InitialMigration() error
	Close() error
}

type DataStore struct {
	db    *gorm.DB
	job   IngestJob
	stage IngestJobStage
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		db:    db,
		job:   NewIngestJobStore(db),
		stage: NewIngestJobStageStore(db),
	}
}

func (s *DataStore) NewTransactionContext(ctx context.Context) (context.Context, error) {
	return newTransactionContext(ctx, s.db)
}

func (s *DataStore) IngestJob() IngestJob {
	return s.job
}

func (s *DataStore) IngestJobStage() IngestJobStage {
	return s.stage
}

// InitialMigration creates the schema directly from the models. Production
// deployments run the goose migrations instead; this path backs sqlite and
// the test suites.
func (s *DataStore) InitialMigration() error {
	return s.db.AutoMigrate(&model.IngestJob{}, &model.IngestJobStage{})
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
