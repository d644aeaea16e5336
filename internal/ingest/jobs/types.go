package jobs

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/arabic-corpus/ingest-pipeline/internal/ingest"
)

const (
	DefaultQueue = "ingest_pipeline"
	JobKind      = "ingest_stage"
)

// StageArgs carries one stage task over the queue: run this stage for this
// job, optionally restricted to one page. Stored as JSON in river_job.args.
type StageArgs struct {
	JobID     uuid.UUID    `json:"jobId"`
	EditionID uuid.UUID    `json:"editionId"`
	Stage     ingest.Stage `json:"stage"`
	PageID    *uuid.UUID   `json:"pageId,omitempty"`
}

// Kind returns the job kind for River registration.
func (StageArgs) Kind() string {
	return JobKind
}

// InsertOpts makes every stage task unique by its args. The args triplet
// (job, page, stage) is the idempotency key, so a duplicate completion can
// never double-enqueue the same logical step. The retry budget is left to
// the client config so CORPUS_INGEST_QUEUE_MAX_ATTEMPTS controls it.
func (StageArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue: DefaultQueue,
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
		},
	}
}

// PageScope returns the page id for stage-row bookkeeping: the zero UUID
// for job-scoped tasks.
func (a StageArgs) PageScope() uuid.UUID {
	if a.PageID == nil {
		return uuid.UUID{}
	}
	return *a.PageID
}

// IdempotencyKey renders the human-readable task identity used in logs:
// "{jobId}:{pageId-or-global}:{stage}".
func (a StageArgs) IdempotencyKey() string {
	page := "global"
	if a.PageID != nil {
		page = a.PageID.String()
	}
	return fmt.Sprintf("%s:%s:%s", a.JobID, page, a.Stage)
}
