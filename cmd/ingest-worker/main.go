package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/arabic-corpus/ingest-pipeline/internal/config"
	"github.com/arabic-corpus/ingest-pipeline/internal/ingest"
	"github.com/arabic-corpus/ingest-pipeline/internal/ingest/jobs"
	"github.com/arabic-corpus/ingest-pipeline/internal/ocr"
	"github.com/arabic-corpus/ingest-pipeline/internal/store"
	"github.com/arabic-corpus/ingest-pipeline/pkg/log"
)

const drainTimeout = 30 * time.Second

func main() {
	cfg, err := config.New()
	if err != nil {
		panic(err)
	}

	logLvl, err := zap.ParseAtomicLevel(cfg.Service.LogLevel)
	if err != nil {
		logLvl = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	logger := log.InitLog(logLvl)
	defer func() { _ = logger.Sync() }()
	undo := zap.ReplaceGlobals(logger)
	defer undo()

	zap.S().Info("Starting ingestion worker")
	defer zap.S().Info("Ingestion worker stopped")
	zap.S().Infow("Using configuration", "config", cfg)

	db, err := store.InitDB(cfg)
	if err != nil {
		zap.S().Fatalw("initializing data store", "error", err)
	}

	s := store.NewStore(db)
	defer s.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PgDSN())
	if err != nil {
		zap.S().Fatalw("creating pgx pool", "error", err)
	}
	defer pool.Close()

	chain := ocr.ChainFromConfig(cfg)
	handlers := ingest.NewDefaultHandlers(chain, ingest.NoopPageImageSource{}, ingest.NewMemoryLineSink())
	orchestrator := jobs.NewOrchestrator(s, handlers)

	queueClient, err := jobs.NewClient(pool, orchestrator, cfg)
	if err != nil {
		zap.S().Fatalw("creating queue client", "error", err)
	}

	if err := queueClient.Start(ctx); err != nil {
		zap.S().Fatalw("starting queue client", "error", err)
	}

	reconciler := jobs.NewReconciler(s, queueClient, time.Duration(cfg.Service.Queue.ReconcileIntervalSeconds)*time.Second)
	go reconciler.Run(ctx)

	<-ctx.Done()

	// Let in-flight stage tasks finish before exiting.
	drainCtx, drainCancel := context.WithTimeout(context.Background(), drainTimeout)
	defer drainCancel()
	if err := queueClient.Stop(drainCtx); err != nil {
		zap.S().Errorw("stopping queue client", "error", err)
	}
}
