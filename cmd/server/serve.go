package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/code-compass/internal/auth"
	"github.com/sakif/code-compass/internal/config"
	"github.com/sakif/code-compass/internal/graph"
	"github.com/sakif/code-compass/internal/notify"
	"github.com/sakif/code-compass/internal/server"
)

const connectTimeout = 10 * time.Second

type loadFunc func() (*config.Config, *slog.Logger, error)

func newServeCmd(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := serve(ctx, cfg, logger); err != nil {
				logger.Error("server error", slog.String("error", err.Error()))
				return err
			}
			return nil
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	db, err := openDatabase(cfg.Database, logger)
	if err != nil {
		return err
	}

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		db.Close()
		return err
	}

	deps := server.Deps{
		Config:    cfg,
		DB:        db,
		Tokens:    tokens,
		Passwords: auth.NewPasswordService(cfg.Auth.BcryptCost),
		Logger:    logger,
	}

	// === Notifications ===
	// Redis is optional: without it, progress events stay in this process.
	var broker notify.Broker
	if cfg.Redis.Address != "" {
		connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		client, err := notify.NewRedisClient(connectCtx, notify.RedisOptions{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cancel()
		if err != nil {
			logger.Warn("redis unavailable, notifications are local only", slog.String("error", err.Error()))
		} else {
			defer client.Close()
			broker = notify.NewRedisBroker(client, cfg.Redis.Channel, logger)
			logger.Info("redis connected", slog.String("address", cfg.Redis.Address))
		}
	}
	hub := notify.NewHub(broker, logger)
	deps.Hub = hub
	go func() {
		if err := hub.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("notification broker stopped", slog.String("error", err.Error()))
		}
	}()

	// === Graph export ===
	if cfg.Neo4j.URI != "" {
		connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		runner, err := graph.Connect(connectCtx, graph.Options{
			URI:      cfg.Neo4j.URI,
			Username: cfg.Neo4j.Username,
			Password: cfg.Neo4j.Password,
			Database: cfg.Neo4j.Database,
		})
		cancel()
		if err != nil {
			logger.Warn("neo4j unavailable, graph export disabled", slog.String("error", err.Error()))
		} else {
			defer runner.Close(context.WithoutCancel(ctx))
			deps.Projector = graph.NewProjector(runner, logger)
			logger.Info("neo4j connected", slog.String("uri", cfg.Neo4j.URI))
		}
	}

	// === GitHub login ===
	if cfg.GitHub.ClientID != "" {
		deps.GitHub = auth.NewGitHubProvider(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, cfg.GitHub.CallbackURL)
	} else {
		logger.Warn("GITHUB_CLIENT_ID not set, GitHub login is disabled")
	}

	srv, err := server.New(deps)
	if err != nil {
		db.Close()
		return err
	}
	// Start blocks until ctx is cancelled and closes the database.
	return srv.Start(ctx)
}
