// Package main is the entry point for the plantcare API server.
//
// Startup resolves configuration from the environment, selects the Care
// Store (in-memory when DATABASE_URL is unset, PostgreSQL otherwise), wires
// the reminder queue and optional CloudWatch metrics, and starts the HTTP
// server with the detection worker running alongside it.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM):
// the HTTP listener drains first, then the detection worker finishes its
// queued jobs, then the database pool closes.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"

	"plantcare/internal/api"
	"plantcare/internal/api/handlers"
	"plantcare/internal/config"
	"plantcare/internal/engine"
	"plantcare/internal/knowledge"
	"plantcare/internal/notify"
	"plantcare/internal/store"
	"plantcare/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("plantcare API starting",
		"environment", cfg.Environment,
		"service", cfg.Service,
		"port", cfg.Server.Port,
	)

	ctx := context.Background()

	// Select the Care Store. An empty DATABASE_URL selects the in-memory
	// store, which loses all state on restart and is only meaningful for
	// local development.
	var (
		careStore engine.CareStore
		pool      *pgxpool.Pool
	)
	if cfg.Database.URL.Unmask() == "" {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		careStore = store.NewMemory(types.RealClock{})
	} else {
		pool, err = newPool(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer pool.Close()
		careStore = store.NewPostgres(pool)
	}

	// AWS clients are only constructed when a feature needing them is
	// enabled, so local runs need no credentials at all.
	var awsCfg aws.Config
	needAWS := cfg.AWS.ReminderQueue != "" || cfg.AWS.MetricsEnabled
	if needAWS {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
		if err != nil {
			return fmt.Errorf("loading AWS config: %w", err)
		}
	}

	var reminders engine.ReminderScheduler = notify.Nop{}
	if cfg.AWS.ReminderQueue != "" {
		sqsClient := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
			if cfg.AWS.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
			}
		})
		reminders = notify.NewSQSScheduler(sqsClient, cfg.AWS.ReminderQueue, logger)
	} else {
		logger.Warn("SQS_REMINDERS not set, reminder dispatch disabled")
	}

	var metrics engine.Metrics
	if cfg.AWS.MetricsEnabled {
		cwClient := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
			if cfg.AWS.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
			}
		})
		metrics = engine.NewCloudWatchMetrics(cwClient, logger)
	}

	eng, err := engine.New(engine.Config{
		Store:     careStore,
		Knowledge: knowledge.Default(),
		Reminders: reminders,
		Metrics:   metrics,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	worker := engine.NewWorker(eng, logger, cfg.Engine.WorkerQueueSize)

	srv, err := api.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.MountRoutes(
		handlers.NewPlantHandler(careStore, eng, worker, srv.Validator, logger, cfg.Engine.ConfidenceThreshold),
		handlers.NewEventHandler(careStore, eng, logger),
	)

	// Channel to capture server errors from ListenAndServe.
	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for shutdown signal or server error.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	// Let queued detections finish before the store goes away.
	worker.Close()

	logger.Info("server stopped cleanly")
	return nil
}

// newPool builds a pgx connection pool tuned from DatabaseConfig and verifies
// connectivity with a ping before returning.
func newPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL.Unmask())
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.HealthCheckPeriod = cfg.HealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.AcquireTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
