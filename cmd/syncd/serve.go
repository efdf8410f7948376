package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/unifiedsync/syncd"
	"github.com/unifiedsync/syncd/infrastructure/api"
	"github.com/unifiedsync/syncd/internal/config"
	"github.com/unifiedsync/syncd/internal/log"
)

func serveCmd() *cobra.Command {
	var (
		host        string
		port        int
		noScheduler bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server, queue worker and sync scheduler",
		Long: `Start the HTTP API server, queue worker and sync scheduler.

Configuration is loaded in the following order (later sources override earlier):
  1. Default values
  2. .env file (if --env-file specified or .env exists in current directory)
  3. Environment variables
  4. Command line flags

Environment variables:
  HOST                      Server host to bind to (default: 0.0.0.0)
  PORT                      Server port to listen on (default: 8080)
  DATA_DIR                  Data directory (default: ~/.syncd)
  DB_URL                    Database URL (default: sqlite:///{data_dir}/syncd.db)
  LOG_LEVEL                 Log level: DEBUG, INFO, WARN, ERROR (default: INFO)
  LOG_FORMAT                Log format: pretty, json (default: pretty)
  API_KEYS                  Comma-separated keys required on mutating endpoints
  CORS_ORIGINS              Comma-separated allowed browser origins

  WORKER_COUNT              Queue worker goroutines (default: 1)
  SYNC_CONCURRENCY          Parallel pipeline runs per sync (default: 8)
  ADAPTER_TIMEOUT_SECONDS   Provider fetch timeout (default: 30)
  SCHEDULER_ENABLED         Register recurring syncs (default: true)
  SYNC_CRON                 Cron expression overriding every entity schedule
  VALUE_RETENTION           Custom field value sets kept: latest, all or N
  RULES_DIR                 Directory of transform rule YAML overrides
  PROVIDERS_FILE            YAML file declaring REST providers

  WEBHOOK_URL               Endpoint receiving notifications
  WEBHOOK_TIMEOUT_SECONDS   Webhook request timeout (default: 10)
  REDIS_ADDR                Redis address for the notification stream
  REDIS_PASSWORD, REDIS_DB, REDIS_STREAM
  METRICS_ENABLED           Serve Prometheus metrics on /metrics (default: true)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServe(applyServeOverrides(cfg, host, port, noScheduler))
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Server host to bind to (default: 0.0.0.0)")
	cmd.Flags().IntVar(&port, "port", 0, "Server port to listen on (default: 8080)")
	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "Do not register recurring syncs")

	return cmd
}

func runServe(cfg config.AppConfig) error {
	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	logger := log.Configure(cfg)

	attrs := append([]slog.Attr{slog.String("version", version)}, cfg.LogAttrs()...)
	logger.LogAttrs(context.Background(), slog.LevelInfo, "starting syncd", attrs...)

	client, err := syncd.New(syncd.WithAppConfig(cfg), syncd.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("create syncd client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close syncd client", slog.Any("error", err))
		}
	}()

	apiServer := api.NewAPIServer(client, cfg.APIKeys()).WithCORSOrigins(cfg.CORSOrigins())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- apiServer.ListenAndServe(cfg.Addr())
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// applyServeOverrides applies command line flag overrides to the config.
func applyServeOverrides(cfg config.AppConfig, host string, port int, noScheduler bool) config.AppConfig {
	var opts []config.AppConfigOption

	if host != "" {
		opts = append(opts, config.WithHost(host))
	}
	if port != 0 {
		opts = append(opts, config.WithPort(port))
	}
	if noScheduler {
		opts = append(opts, config.WithSchedulerConfig(cfg.Scheduler().WithEnabled(false)))
	}

	return cfg.Apply(opts...)
}
