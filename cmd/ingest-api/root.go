package main

import (
	"github.com/arabic-corpus/ingest-pipeline/internal/config"
	"github.com/arabic-corpus/ingest-pipeline/pkg/log"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var rootCmd = &cobra.Command{
	Use: "ingest-api",
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(enqueueCmd)
}

// initLogger reads the configuration and installs the global zap logger at
// the configured level. Callers must defer the returned undo function.
func initLogger() (*config.Config, func(), error) {
	cfg, err := config.New()
	if err != nil {
		return nil, nil, err
	}

	logLvl, err := zap.ParseAtomicLevel(cfg.Service.LogLevel)
	if err != nil {
		logLvl = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	logger := log.InitLog(logLvl)
	undoGlobals := zap.ReplaceGlobals(logger)

	undo := func() {
		undoGlobals()
		_ = logger.Sync()
	}

	return cfg, undo, nil
}
