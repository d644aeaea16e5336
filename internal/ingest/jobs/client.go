package jobs

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivertype"
	"go.uber.org/zap"

	"github.com/arabic-corpus/ingest-pipeline/internal/config"
)

const (
	// RetryBaseDelay is the fallback first retry delay when the config
	// carries no usable value; each further retry doubles it.
	RetryBaseDelay = 5 * time.Second
	retryMaxDelay  = 5 * time.Minute
)

type Client struct {
	*river.Client[pgx.Tx]
}

// newRiverConfig maps the queue section of the service config onto River's
// client config. MaxAttempts is recorded per task at insert time, so the
// insert-only client needs the same config as the worker client.
func newRiverConfig(cfg *config.Config, workers *river.Workers) *river.Config {
	baseDelay := time.Duration(cfg.Service.Queue.RetryBaseDelaySeconds) * time.Second
	if baseDelay <= 0 {
		baseDelay = RetryBaseDelay
	}

	riverConfig := &river.Config{
		MaxAttempts: cfg.Service.Queue.MaxAttempts,
		RetryPolicy: &exponentialRetryPolicy{baseDelay: baseDelay},

		// Failed stage tasks stay around long enough to debug a frozen job.
		CompletedJobRetentionPeriod: 24 * time.Hour,
		DiscardedJobRetentionPeriod: 7 * 24 * time.Hour,
	}
	if workers != nil {
		riverConfig.Workers = workers
		riverConfig.Queues = map[string]river.QueueConfig{
			DefaultQueue: {MaxWorkers: cfg.Service.Queue.MaxWorkers},
		}
	}
	return riverConfig
}

// NewClient builds a full queue client with the stage worker registered.
// The worker process starts it; the task loop then owns job execution.
func NewClient(pool *pgxpool.Pool, orchestrator *Orchestrator, cfg *config.Config) (*Client, error) {
	workers := river.NewWorkers()
	river.AddWorker(workers, NewStageWorker(orchestrator))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), newRiverConfig(cfg, workers))
	if err != nil {
		return nil, err
	}

	return &Client{Client: riverClient}, nil
}

// NewInsertOnlyClient builds a client that can enqueue stage tasks but runs
// no workers. The API process uses it.
func NewInsertOnlyClient(pool *pgxpool.Pool, cfg *config.Config) (*Client, error) {
	riverClient, err := river.NewClient(riverpgxv5.New(pool), newRiverConfig(cfg, nil))
	if err != nil {
		return nil, err
	}

	return &Client{Client: riverClient}, nil
}

// EnqueueStage inserts one stage task. Inserting an already-pending task is
// a safe no-op thanks to uniqueness by args.
func (c *Client) EnqueueStage(ctx context.Context, args StageArgs) error {
	result, err := c.Insert(ctx, args, nil)
	if err != nil {
		return err
	}
	if result.UniqueSkippedAsDuplicate {
		zap.S().Named("queue").Debugw("stage task already enqueued, skipped",
			"task", args.IdempotencyKey())
	}
	return nil
}

// exponentialRetryPolicy schedules retries at baseDelay * 2^(attempt-1),
// capped so a misbehaving task cannot push itself days into the future.
type exponentialRetryPolicy struct {
	baseDelay time.Duration
}

func (p *exponentialRetryPolicy) NextRetry(job *rivertype.JobRow) time.Time {
	attempt := job.Attempt
	if attempt < 1 {
		attempt = 1
	}

	delay := p.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= retryMaxDelay {
			delay = retryMaxDelay
			break
		}
	}

	return time.Now().Add(delay)
}
