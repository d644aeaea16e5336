package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/arabic-corpus/ingest-pipeline/internal/ingest"
	"github.com/arabic-corpus/ingest-pipeline/internal/store"
	"github.com/arabic-corpus/ingest-pipeline/internal/store/model"
	"github.com/arabic-corpus/ingest-pipeline/pkg/log"
	"github.com/arabic-corpus/ingest-pipeline/pkg/metrics"
)

const maxStoredErrorLen = 1024

// Enqueuer inserts stage tasks into the durable queue. Satisfied by *Client
// and by the in-context river client inside a worker.
type Enqueuer interface {
	EnqueueStage(ctx context.Context, args StageArgs) error
}

// Orchestrator executes the per-task state transition: mark the stage
// running, run its handler, persist the outcome, then advance the job to
// the next stage or to a terminal state. It holds no mutable state across
// tasks; everything it knows it reads from the store.
type Orchestrator struct {
	store    store.Store
	handlers *ingest.HandlerRegistry
	logger   *log.StructuredLogger
}

func NewOrchestrator(s store.Store, handlers *ingest.HandlerRegistry) *Orchestrator {
	return &Orchestrator{
		store:    s,
		handlers: handlers,
		logger:   log.NewDebugLogger("orchestrator"),
	}
}

// ExecuteStage runs one dequeued stage task to completion. A returned error
// means the task should be retried by the queue; terminal failures are
// recorded separately through RecordFailure once the retry budget is spent.
func (o *Orchestrator) ExecuteStage(ctx context.Context, args StageArgs, enqueue Enqueuer) error {
	tracer := o.logger.WithContext(ctx).Operation("execute_stage").
		WithUUID("job_id", args.JobID).
		WithString("stage", string(args.Stage)).
		WithString("task", args.IdempotencyKey()).
		Build()

	job, err := o.store.IngestJob().Get(ctx, args.JobID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return fmt.Errorf("ingest job %s not found: %w", args.JobID, err)
		}
		return fmt.Errorf("reading ingest job: %w", err)
	}

	// At-least-once delivery: a task for a finished job is a no-op.
	if job.Status == model.JobStatusCompleted || job.Status == model.JobStatusFailed {
		tracer.Success().WithString("outcome", "job already terminal").Log()
		return nil
	}

	// A crash between persisting completion and enqueuing the successor
	// leaves a completed stage row behind; redelivery only has to finish
	// the advance.
	current, err := o.store.IngestJobStage().Get(ctx, args.JobID, args.PageScope(), string(args.Stage))
	if err == nil && current.Status == model.StageStatusCompleted {
		tracer.Success().WithString("outcome", "stage already completed").Log()
		return o.advance(ctx, args, job, enqueue)
	}
	if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
		return fmt.Errorf("reading stage row: %w", err)
	}

	if err := o.upsertStage(ctx, args, model.StageStatusRunning, nil); err != nil {
		return err
	}

	handler, err := o.handlers.Handler(args.Stage)
	if err != nil {
		return err
	}

	if err := handler(ctx, ingest.StageInput{
		JobID:     args.JobID,
		EditionID: args.EditionID,
		PageID:    args.PageScope(),
		Stage:     args.Stage,
	}); err != nil {
		tracer.Error(err).Log()
		return fmt.Errorf("stage %s: %w", args.Stage, err)
	}

	if err := o.upsertStage(ctx, args, model.StageStatusCompleted, nil); err != nil {
		return err
	}
	metrics.IncreaseStageOutcomeMetric(string(args.Stage), "completed")

	if err := o.advance(ctx, args, job, enqueue); err != nil {
		return err
	}

	tracer.Success().Log()
	return nil
}

// advance moves the job forward once the stage at hand is completed: bump
// progress and enqueue the successor, or mark the job completed after the
// final stage. For page-scoped stages the advance happens only when every
// sibling page row reports completed; the finishing task performs it.
func (o *Orchestrator) advance(ctx context.Context, args StageArgs, job *model.IngestJob, enqueue Enqueuer) error {
	if args.PageID != nil {
		incomplete, err := o.store.IngestJobStage().CountIncomplete(ctx, args.JobID, string(args.Stage))
		if err != nil {
			return err
		}
		if incomplete > 0 {
			return nil
		}
	}

	progress, err := ingest.Progress(args.Stage)
	if err != nil {
		return err
	}
	// Progress never moves backwards, even when an old task is redelivered
	// after later stages already completed.
	if job.ProgressPct > progress {
		progress = job.ProgressPct
	}

	next, ok, err := ingest.Next(args.Stage)
	if err != nil {
		return err
	}

	if !ok {
		if err := o.store.IngestJob().UpdateProgress(ctx, args.JobID, 100, model.JobStatusCompleted); err != nil {
			return fmt.Errorf("completing ingest job: %w", err)
		}
		return nil
	}

	if err := o.store.IngestJob().UpdateProgress(ctx, args.JobID, progress, model.JobStatusRunning); err != nil {
		return fmt.Errorf("updating ingest job progress: %w", err)
	}

	return enqueue.EnqueueStage(ctx, StageArgs{
		JobID:     args.JobID,
		EditionID: args.EditionID,
		Stage:     next,
		PageID:    args.PageID,
	})
}

// RecordFailure freezes the job after the task's retry budget is exhausted:
// the stage row keeps the error message, the job keeps its last progress,
// and nothing further is enqueued. Re-ingestion requires a new job.
func (o *Orchestrator) RecordFailure(ctx context.Context, args StageArgs, taskErr error) error {
	tracer := o.logger.WithContext(ctx).Operation("record_failure").
		WithUUID("job_id", args.JobID).
		WithString("stage", string(args.Stage)).
		Build()

	message := taskErr.Error()
	if len(message) > maxStoredErrorLen {
		message = message[:maxStoredErrorLen]
	}

	if err := o.upsertStage(ctx, args, model.StageStatusFailed, &message); err != nil {
		tracer.Error(err).Log()
		return err
	}
	metrics.IncreaseStageOutcomeMetric(string(args.Stage), "failed")

	progress := 0.0
	if job, err := o.store.IngestJob().Get(ctx, args.JobID); err == nil {
		progress = job.ProgressPct
	}

	if err := o.store.IngestJob().UpdateProgress(ctx, args.JobID, progress, model.JobStatusFailed); err != nil {
		tracer.Error(err).Log()
		return err
	}

	tracer.Success().WithString("error_message", message).Log()
	return nil
}

func (o *Orchestrator) upsertStage(ctx context.Context, args StageArgs, status model.StageStatus, errorMessage *string) error {
	_, err := o.store.IngestJobStage().Upsert(ctx, model.IngestJobStage{
		IngestJobID:  args.JobID,
		PageID:       args.PageScope(),
		StageName:    string(args.Stage),
		Status:       status,
		ErrorMessage: errorMessage,
	})
	if err != nil {
		return fmt.Errorf("upserting stage %s to %s: %w", args.Stage, status, err)
	}
	return nil
}
