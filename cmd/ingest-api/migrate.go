package main

import (
	"context"

	"github.com/arabic-corpus/ingest-pipeline/internal/store"
	"github.com/arabic-corpus/ingest-pipeline/pkg/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the db",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, undo, err := initLogger()
		if err != nil {
			return err
		}
		defer undo()

		defer zap.S().Info("Db migrated")
		zap.S().Infow("Using configuration", "config", cfg)

		zap.S().Info("Initializing data store")
		db, err := store.InitDB(cfg)
		if err != nil {
			zap.S().Fatalw("initializing data store", "error", err)
		}

		s := store.NewStore(db)
		defer s.Close()

		pool, err := pgxpool.New(context.Background(), cfg.PgDSN())
		if err != nil {
			zap.S().Fatalw("creating pgx pool", "error", err)
		}
		defer pool.Close()

		if err := migrations.MigrateStore(db, cfg.Service.MigrationFolder, pool); err != nil {
			zap.S().Fatalw("running migrations", "error", err)
		}

		return nil
	},
}
