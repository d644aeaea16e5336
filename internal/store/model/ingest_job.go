package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

type StageStatus string

const (
	StageStatusQueued    StageStatus = "queued"
	StageStatusRunning   StageStatus = "running"
	StageStatusCompleted StageStatus = "completed"
	StageStatusFailed    StageStatus = "failed"
)

// IngestJob tracks one ingestion run of one book edition across the whole
// pipeline. Rows are created once and then mutated only by the orchestrator;
// they are never deleted here.
type IngestJob struct {
	ID          uuid.UUID `gorm:"primaryKey"`
	EditionID   uuid.UUID `gorm:"column:edition_id;not null"`
	Status      JobStatus `gorm:"type:VARCHAR;size:20;not null;default:queued"`
	ProgressPct float64   `gorm:"column:progress_pct;not null;default:0"`
	CreatedBy   string    `gorm:"column:created_by"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Stages []IngestJobStage `gorm:"foreignKey:IngestJobID;references:ID;constraint:OnDelete:CASCADE;"`
}

func (j IngestJob) String() string {
	val, _ := json.Marshal(j)
	return string(val)
}

// PageIDGlobal is the page id recorded for job-scoped stage rows. Using the
// zero UUID instead of NULL keeps the composite primary key simple while
// preserving the one-row-per-(job,page,stage) uniqueness rule.
var PageIDGlobal = uuid.UUID{}

// IngestJobStage is the latest known outcome of running one stage for one
// unit of work. The composite key makes every write an upsert; no history
// is kept.
type IngestJobStage struct {
	IngestJobID  uuid.UUID   `gorm:"column:ingest_job_id;primaryKey"`
	PageID       uuid.UUID   `gorm:"column:page_id;primaryKey"`
	StageName    string      `gorm:"column:stage_name;primaryKey;type:VARCHAR;size:50"`
	Status       StageStatus `gorm:"type:VARCHAR;size:20;not null"`
	ErrorMessage *string     `gorm:"column:error_message"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (IngestJobStage) TableName() string {
	return "ingest_job_stages"
}

func (s IngestJobStage) PageScoped() bool {
	return s.PageID != PageIDGlobal
}
