// Package main is the entrypoint for the Archiver Lambda function.
//
// The archiver is invoked on a schedule (EventBridge rule) and exports
// completed care events older than the retention horizon from PostgreSQL to
// S3 as zstd-compressed JSON lines, then prunes them from the hot store.
//
// Cold start:
//  1. Initialize structured logger.
//  2. Load service configuration (DATABASE_URL and ARCHIVE_BUCKET required).
//  3. Connect to PostgreSQL and build the S3 sink.
//  4. Register handler and call lambda.Start.
//
// In local mode (APP_ENV=local) the handler runs once immediately and exits,
// printing the run report.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"

	"plantcare/internal/archive"
	"plantcare/internal/config"
	"plantcare/internal/store"
	"plantcare/internal/types"
)

// Handler wraps the archiver for Lambda invocation.
type Handler struct {
	archiver *archive.Archiver
	logger   *slog.Logger
}

// Handle runs one archive pass. The scheduled-event payload carries no
// parameters; retention and concurrency come from service configuration.
func (h *Handler) Handle(ctx context.Context) (*archive.Report, error) {
	report, err := h.archiver.Run(ctx)
	if err != nil {
		h.logger.Error("archive run failed", "error", err)
		return nil, err
	}
	h.logger.Info("archive run completed",
		"plants_scanned", report.PlantsScanned,
		"events_archived", report.EventsArchived,
		"plants_failed", report.PlantsFailed,
	)
	return report, nil
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	logger.Info("archiver initializing (cold start)")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if cfg.Database.URL.Unmask() == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	if cfg.AWS.ArchiveBucket == "" {
		logger.Error("ARCHIVE_BUCKET is required")
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.Database.URL.Unmask())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		logger.Error("failed to load AWS SDK config", "error", err)
		os.Exit(1)
	}
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.AWS.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
			o.UsePathStyle = true
		}
	})

	archiver, err := archive.New(
		store.NewPostgres(pool),
		archive.NewS3Sink(s3Client, cfg.AWS.ArchiveBucket),
		types.RealClock{},
		logger,
		cfg.Archive.Retention,
		cfg.Archive.Concurrency,
	)
	if err != nil {
		logger.Error("failed to create archiver", "error", err)
		os.Exit(1)
	}

	handler := &Handler{archiver: archiver, logger: logger}

	logger.Info("archiver initialized",
		"bucket", cfg.AWS.ArchiveBucket,
		"retention", cfg.Archive.Retention.String(),
	)

	// Local mode: run a single pass and print the report.
	if cfg.Environment == "local" {
		report, err := handler.Handle(ctx)
		pool.Close()
		if err != nil {
			os.Exit(1)
		}
		out, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(out))
		return
	}

	lambda.Start(handler.Handle)
}
