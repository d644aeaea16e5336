package jobs

import (
	"context"
	"time"

	jitterbug "github.com/lthibault/jitterbug/v2"
	"go.uber.org/zap"

	"github.com/arabic-corpus/ingest-pipeline/internal/ingest"
	"github.com/arabic-corpus/ingest-pipeline/internal/store"
	"github.com/arabic-corpus/ingest-pipeline/internal/store/model"
)

// stalledRunningFactor scales the sweep interval into the cutoff for running
// jobs. Queued jobs go stale after one interval, but a running job may just
// be in a long stage, so it gets three.
const stalledRunningFactor = 3

// Reconciler repairs jobs the queue lost track of. Jobs stuck in queued with
// nothing pending happen when job creation persisted the row but crashed
// before the enqueue; jobs stuck in running happen when a worker died after
// its task was discarded, or mid-way through recording a failure. Insertion
// is deduplicated by args, so re-enqueuing an already-pending stage is
// harmless.
type Reconciler struct {
	store    store.Store
	enqueuer Enqueuer
	interval time.Duration
}

func NewReconciler(s store.Store, enqueuer Enqueuer, interval time.Duration) *Reconciler {
	return &Reconciler{
		store:    s,
		enqueuer: enqueuer,
		interval: interval,
	}
}

// Run loops until the context is cancelled. The ticker is jittered so
// several worker replicas do not sweep in lockstep.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := jitterbug.New(r.interval, &jitterbug.Norm{Stdev: r.interval / 10})
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if err := r.reconcile(ctx); err != nil {
			zap.S().Named("reconciler").Errorw("reconcile sweep failed", "error", err)
		}
	}
}

func (r *Reconciler) reconcile(ctx context.Context) error {
	now := time.Now()
	if err := r.requeueStaleQueued(ctx, now); err != nil {
		return err
	}
	return r.recoverStalledRunning(ctx, now)
}

// requeueStaleQueued re-enqueues the first stage task for jobs left in
// queued past one sweep interval.
func (r *Reconciler) requeueStaleQueued(ctx context.Context, now time.Time) error {
	stale, err := r.store.IngestJob().List(ctx, store.NewIngestJobQueryFilter().
		ByStatus(model.JobStatusQueued).
		UpdatedBefore(now.Add(-r.interval)))
	if err != nil {
		return err
	}

	for _, job := range stale {
		args := StageArgs{
			JobID:     job.ID,
			EditionID: job.EditionID,
			Stage:     ingest.FirstStage(),
		}
		if err := r.enqueuer.EnqueueStage(ctx, args); err != nil {
			zap.S().Named("reconciler").Errorw("failed to re-enqueue first stage",
				"job_id", job.ID, "error", err)
			continue
		}
		zap.S().Named("reconciler").Infow("re-enqueued first stage for stale job",
			"job_id", job.ID, "edition_id", job.EditionID)
	}

	return nil
}

// recoverStalledRunning handles running jobs that have not been touched for
// several intervals. When the last stage write was a failure the worker died
// between recording it and marking the job, so the job transition is
// finished here with progress frozen. Otherwise the stage task was lost and
// is re-enqueued; discarded tasks do not count against uniqueness, so the
// insert goes through.
func (r *Reconciler) recoverStalledRunning(ctx context.Context, now time.Time) error {
	stalled, err := r.store.IngestJob().List(ctx, store.NewIngestJobQueryFilter().
		ByStatus(model.JobStatusRunning).
		UpdatedBefore(now.Add(-stalledRunningFactor*r.interval)))
	if err != nil {
		return err
	}

	for _, job := range stalled {
		stages, err := r.store.IngestJobStage().List(ctx, job.ID)
		if err != nil {
			zap.S().Named("reconciler").Errorw("failed to list stages of stalled job",
				"job_id", job.ID, "error", err)
			continue
		}

		if len(stages) == 0 {
			// Marked running before any stage row landed. Start over.
			args := StageArgs{JobID: job.ID, EditionID: job.EditionID, Stage: ingest.FirstStage()}
			if err := r.enqueuer.EnqueueStage(ctx, args); err != nil {
				zap.S().Named("reconciler").Errorw("failed to re-enqueue first stage",
					"job_id", job.ID, "error", err)
			}
			continue
		}

		// List orders by updated_at, so the last row is the most recent write.
		last := stages[len(stages)-1]
		if last.Status == model.StageStatusFailed {
			if err := r.store.IngestJob().UpdateProgress(ctx, job.ID, job.ProgressPct, model.JobStatusFailed); err != nil {
				zap.S().Named("reconciler").Errorw("failed to mark stalled job failed",
					"job_id", job.ID, "error", err)
				continue
			}
			zap.S().Named("reconciler").Warnw("marked stalled job failed",
				"job_id", job.ID, "stage", last.StageName)
			continue
		}

		args := StageArgs{
			JobID:     job.ID,
			EditionID: job.EditionID,
			Stage:     ingest.Stage(last.StageName),
		}
		if last.PageScoped() {
			pageID := last.PageID
			args.PageID = &pageID
		}
		if err := r.enqueuer.EnqueueStage(ctx, args); err != nil {
			zap.S().Named("reconciler").Errorw("failed to re-enqueue stalled stage",
				"job_id", job.ID, "stage", last.StageName, "error", err)
			continue
		}
		zap.S().Named("reconciler").Infow("re-enqueued stage for stalled job",
			"job_id", job.ID, "stage", last.StageName)
	}

	return nil
}
