package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"github.com/arabic-corpus/ingest-pipeline/internal/ingest"
)

// StageTimeout bounds one stage execution, OCR provider calls included.
const StageTimeout = 5 * time.Minute

type StageWorker struct {
	river.WorkerDefaults[StageArgs]
	orchestrator *Orchestrator
}

func NewStageWorker(orchestrator *Orchestrator) *StageWorker {
	return &StageWorker{orchestrator: orchestrator}
}

func (w *StageWorker) Timeout(job *river.Job[StageArgs]) time.Duration {
	return StageTimeout
}

func (w *StageWorker) Work(ctx context.Context, job *river.Job[StageArgs]) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// The successor task is enqueued through the same client that delivered
	// this one, so both share the queue's uniqueness bookkeeping.
	enqueuer := &Client{Client: river.ClientFromContext[pgx.Tx](ctx)}

	err := w.orchestrator.ExecuteStage(ctx, job.Args, enqueuer)
	if err == nil {
		return nil
	}

	var unknownStage *ingest.UnknownStageError
	if errors.As(err, &unknownStage) {
		// Programmer error, retrying cannot help.
		if recordErr := w.orchestrator.RecordFailure(ctx, job.Args, err); recordErr != nil {
			zap.S().Named("worker").Errorw("failed to record stage failure",
				"task", job.Args.IdempotencyKey(), "error", recordErr)
		}
		return river.JobCancel(err)
	}

	if job.Attempt >= job.MaxAttempts {
		// Retry budget exhausted: freeze the job before the queue discards
		// the task. When this write fails the job is left running and the
		// reconciler's stalled sweep finishes the transition.
		if recordErr := w.orchestrator.RecordFailure(ctx, job.Args, err); recordErr != nil {
			zap.S().Named("worker").Errorw("failed to record stage failure",
				"task", job.Args.IdempotencyKey(), "error", recordErr)
		}
	}

	return err
}
