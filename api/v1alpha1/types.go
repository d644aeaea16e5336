package v1alpha1

import "time"

// IngestJobCreate is the request body for creating an ingestion job.
type IngestJobCreate struct {
	EditionId string `json:"editionId"`
}

// IngestJob is the API view of one ingestion run, stages included.
type IngestJob struct {
	Id          string           `json:"id"`
	EditionId   string           `json:"editionId"`
	Status      string           `json:"status"`
	ProgressPct float64          `json:"progressPct"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	Stages      []IngestJobStage `json:"stages"`
}

// IngestJobStage is the API view of one stage attempt row.
type IngestJobStage struct {
	StageName    string    `json:"stageName"`
	PageId       *string   `json:"pageId,omitempty"`
	Status       string    `json:"status"`
	ErrorMessage *string   `json:"errorMessage"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Error is the generic error envelope.
type Error struct {
	Message   string  `json:"message"`
	RequestId *string `json:"requestId,omitempty"`
}
