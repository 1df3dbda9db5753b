// Package main is the code-compass entry point.
//
// Two commands share one configuration:
//
//	code-compass serve   # HTTP API and websocket notifications
//	code-compass seed    # load YAML catalog content into the database
//
// Configuration comes from the environment and an optional .env file; see
// internal/config for every variable.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/code-compass/internal/config"
	sqliteRepo "github.com/sakif/code-compass/internal/repository/sqlite"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "code-compass",
		Short:         "Guided project templates with progress tracking",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	// load is called first by each subcommand.
	load := func() (*config.Config, *slog.Logger, error) {
		cfg, err := config.Load(envFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "config:", err)
			return nil, nil, err
		}
		return cfg, newLogger(cfg.Log), nil
	}

	root.AddCommand(newServeCmd(load), newSeedCmd(load))
	return root
}

// newLogger builds the process logger: text by default, JSON when
// LOG_FORMAT=json.
func newLogger(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}
	var h slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.Format == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// openDatabase makes sure the data directory exists (like `mkdir -p`) and
// opens the store.
func openDatabase(cfg config.DatabaseConfig, logger *slog.Logger) (*sqliteRepo.DB, error) {
	if cfg.Path != ":memory:" {
		dir := filepath.Dir(cfg.Path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}
	db, err := sqliteRepo.New(cfg.Path, sqliteRepo.Options{Timeout: cfg.Timeout})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	logger.Info("database opened", slog.String("path", cfg.Path))
	return db, nil
}
