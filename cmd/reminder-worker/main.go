// Package main is the entrypoint for the Reminder Worker Lambda function.
//
// The worker consumes ReminderMessage payloads from the reminder SQS queue.
// Schedule messages are re-validated against the Care Store before firing:
// a reminder whose event has been deleted or completed since enqueue is
// silently dropped, which makes lost cancel messages harmless. Cancel
// messages are acknowledged directly; cancellation is effected by the store
// check, not by matching queue entries.
//
// Delivery itself is a structured log plus a CloudWatch metric. The push
// notification surface lives outside this service.
//
// Cold start:
//  1. Initialize structured logger.
//  2. Load AWS SDK configuration.
//  3. Connect to PostgreSQL when DATABASE_URL is set (skips re-validation
//     otherwise, for local smoke runs).
//  4. Register handler and call lambda.Start.
//
// Each invocation receives a batch of SQS messages. Messages that fail with
// a transient error are reported via partial batch response so SQS retries
// only those.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/jackc/pgx/v5/pgxpool"

	"plantcare/internal/store"
	"plantcare/internal/types"
)

// Metric names emitted by the worker.
const (
	metricNamespace = "PlantCare/Reminders"

	metricDelivered = "ReminderDelivered"
	metricSkipped   = "ReminderSkipped"
	metricCancelled = "ReminderCancelAcked"
)

// EventReader is the slice of the Care Store the worker needs.
type EventReader interface {
	GetCareEvent(ctx context.Context, id string) (*types.CareEvent, error)
}

// MetricPublisher abstracts CloudWatch PutMetricData for testability.
type MetricPublisher interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Handler holds the dependencies for the reminder worker Lambda handler.
type Handler struct {
	events  EventReader
	metrics MetricPublisher
	logger  *slog.Logger
}

// Handle processes an SQS event containing one or more reminder messages.
// Each message is processed independently; failures are reported via partial
// batch response so SQS retries only the failed messages.
func (h *Handler) Handle(ctx context.Context, sqsEvent events.SQSEvent) (events.SQSEventResponse, error) {
	response := events.SQSEventResponse{}

	for _, record := range sqsEvent.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process reminder message",
				"message_id", record.MessageId,
				"error", err,
			)
			response.BatchItemFailures = append(response.BatchItemFailures,
				events.SQSBatchItemFailure{ItemIdentifier: record.MessageId},
			)
		}
	}

	return response, nil
}

// processRecord handles a single SQS message. Returning nil acknowledges the
// message; returning an error requeues it.
func (h *Handler) processRecord(ctx context.Context, record events.SQSMessage) error {
	var msg types.ReminderMessage
	if err := json.Unmarshal([]byte(record.Body), &msg); err != nil {
		h.logger.Error("failed to unmarshal reminder message",
			"message_id", record.MessageId,
			"error", err,
		)
		// Permanent parse failure, do not retry.
		return nil
	}

	logger := h.logger.With(
		"message_id", msg.MessageID,
		"event_id", msg.EventID,
		"plant_id", msg.PlantID,
	)

	if msg.Action == types.ReminderActionCancel {
		logger.Info("reminder cancellation acknowledged")
		h.putMetric(ctx, metricCancelled)
		return nil
	}

	// Re-validate the event before firing. The store is authoritative: a
	// deleted or completed event means the reminder is stale regardless of
	// whether a cancel message ever arrived.
	if h.events != nil {
		ev, err := h.events.GetCareEvent(ctx, msg.EventID)
		if err != nil {
			if types.IsNotFound(err) {
				logger.Info("skipping reminder for deleted event")
				h.putMetric(ctx, metricSkipped)
				return nil
			}
			return fmt.Errorf("loading event %s: %w", msg.EventID, err)
		}
		if ev.Completed {
			logger.Info("skipping reminder for completed event")
			h.putMetric(ctx, metricSkipped)
			return nil
		}
	}

	logger.Info("reminder fired",
		"event_type", msg.EventType,
		"condition", msg.ConditionName,
		"fire_at", msg.FireAt,
	)
	h.putMetric(ctx, metricDelivered)
	return nil
}

// putMetric emits a count-of-one datum. Publish failures are logged and
// dropped; telemetry never fails message processing.
func (h *Handler) putMetric(ctx context.Context, name string) {
	if h.metrics == nil {
		return
	}
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(metricNamespace),
		MetricData: []cwtypes.MetricDatum{{
			MetricName: aws.String(name),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Timestamp:  aws.Time(time.Now().UTC()),
		}},
	}
	if _, err := h.metrics.PutMetricData(ctx, input); err != nil {
		h.logger.Error("failed to publish reminder metric", "metric", name, "error", err)
	}
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	logger.Info("reminder worker initializing (cold start)")

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		logger.Error("failed to load AWS SDK config", "error", err)
		os.Exit(1)
	}

	var eventReader EventReader
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		logger.Warn("DATABASE_URL not set, reminder re-validation disabled")
	} else {
		pool, err := pgxpool.New(context.Background(), databaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		eventReader = store.NewPostgres(pool)
	}

	handler := &Handler{
		events:  eventReader,
		metrics: cloudwatch.NewFromConfig(awsCfg),
		logger:  logger,
	}

	logger.Info("reminder worker initialized")

	// Local mode: read a JSON SQS event from stdin instead of starting the
	// Lambda runtime. Enables smoke testing without the Lambda RIE.
	if os.Getenv("APP_ENV") == "local" {
		payload, err := io.ReadAll(os.Stdin)
		if err != nil {
			logger.Error("failed to read stdin", "error", err)
			os.Exit(1)
		}
		var sqsEvent events.SQSEvent
		if err := json.Unmarshal(payload, &sqsEvent); err != nil {
			logger.Error("failed to parse stdin as SQS event", "error", err)
			os.Exit(1)
		}
		response, err := handler.Handle(context.Background(), sqsEvent)
		if err != nil {
			logger.Error("handler execution failed", "error", err)
			os.Exit(1)
		}
		logger.Info("handler execution completed",
			"records_processed", len(sqsEvent.Records),
			"failures", len(response.BatchItemFailures),
		)
		return
	}

	lambda.Start(handler.Handle)
}
