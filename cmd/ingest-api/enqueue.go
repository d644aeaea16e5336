package main

import (
	"context"
	"fmt"

	"github.com/arabic-corpus/ingest-pipeline/internal/ingest/jobs"
	"github.com/arabic-corpus/ingest-pipeline/internal/service"
	"github.com/arabic-corpus/ingest-pipeline/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var enqueueCreatedBy string

var enqueueCmd = &cobra.Command{
	Use:   "enqueue EDITION_ID",
	Short: "Create an ingestion job for an edition and queue its first stage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, undo, err := initLogger()
		if err != nil {
			return err
		}
		defer undo()

		editionID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid edition id %q: %w", args[0], err)
		}

		db, err := store.InitDB(cfg)
		if err != nil {
			zap.S().Fatalw("initializing data store", "error", err)
		}

		s := store.NewStore(db)
		defer s.Close()

		ctx := context.Background()
		pool, err := pgxpool.New(ctx, cfg.PgDSN())
		if err != nil {
			zap.S().Fatalw("creating pgx pool", "error", err)
		}
		defer pool.Close()

		queueClient, err := jobs.NewInsertOnlyClient(pool, cfg)
		if err != nil {
			zap.S().Fatalw("creating queue client", "error", err)
		}

		srv := service.NewIngestService(s, queueClient)
		job, err := srv.CreateJob(ctx, editionID, enqueueCreatedBy)
		if err != nil {
			return fmt.Errorf("failed to create ingestion job: %w", err)
		}

		fmt.Println(job.ID)
		return nil
	},
}

func init() {
	enqueueCmd.Flags().StringVar(&enqueueCreatedBy, "created-by", "cli", "Recorded as the job creator")
}
