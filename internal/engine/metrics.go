package engine

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"plantcare/internal/types"
)

// MetricNamespace is the CloudWatch namespace for engine telemetry.
const MetricNamespace = "PlantCare/Engine"

// Metric names.
const (
	MetricEventsCreated   = "EventsCreated"
	MetricDedupDeleted    = "DedupDeleted"
	MetricTransition      = "TransitionApplied"
	MetricReminderFailure = "ReminderFailure"
)

// Dimension names.
const (
	DimFromState = "FromState"
	DimToState   = "ToState"
)

// Metrics records engine telemetry. Implementations must never block or
// fail the calling operation.
type Metrics interface {
	RecordEventsCreated(ctx context.Context, n int)
	RecordDedupDeleted(ctx context.Context, n int)
	RecordTransition(ctx context.Context, from, to types.PlantState)
	RecordReminderFailure(ctx context.Context)
}

// NopMetrics discards all telemetry. Used in tests and local mode.
type NopMetrics struct{}

func (NopMetrics) RecordEventsCreated(context.Context, int)                       {}
func (NopMetrics) RecordDedupDeleted(context.Context, int)                        {}
func (NopMetrics) RecordTransition(context.Context, types.PlantState, types.PlantState) {}
func (NopMetrics) RecordReminderFailure(context.Context)                          {}

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for
// testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Compile-time assertion that CloudWatchMetrics implements Metrics.
var _ Metrics = (*CloudWatchMetrics)(nil)

// CloudWatchMetrics emits engine telemetry to AWS CloudWatch. Publish
// failures are logged and dropped; telemetry must never fail an engine
// operation.
type CloudWatchMetrics struct {
	client CloudWatchClient
	logger *slog.Logger
}

// NewCloudWatchMetrics creates a CloudWatchMetrics publishing to
// MetricNamespace.
func NewCloudWatchMetrics(client CloudWatchClient, logger *slog.Logger) *CloudWatchMetrics {
	return &CloudWatchMetrics{client: client, logger: logger}
}

func (m *CloudWatchMetrics) put(ctx context.Context, datum cwtypes.MetricDatum) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(MetricNamespace),
		MetricData: []cwtypes.MetricDatum{datum},
	}
	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Error("failed to publish engine metric",
			"metric", aws.ToString(datum.MetricName),
			"error", err,
		)
	}
}

// RecordEventsCreated emits the EventsCreated counter.
func (m *CloudWatchMetrics) RecordEventsCreated(ctx context.Context, n int) {
	if n <= 0 {
		return
	}
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(MetricEventsCreated),
		Value:      aws.Float64(float64(n)),
		Unit:       cwtypes.StandardUnitCount,
	})
}

// RecordDedupDeleted emits the DedupDeleted counter.
func (m *CloudWatchMetrics) RecordDedupDeleted(ctx context.Context, n int) {
	if n <= 0 {
		return
	}
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(MetricDedupDeleted),
		Value:      aws.Float64(float64(n)),
		Unit:       cwtypes.StandardUnitCount,
	})
}

// RecordTransition emits the TransitionApplied counter with state dimensions.
func (m *CloudWatchMetrics) RecordTransition(ctx context.Context, from, to types.PlantState) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(MetricTransition),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String(DimFromState), Value: aws.String(string(from))},
			{Name: aws.String(DimToState), Value: aws.String(string(to))},
		},
	})
}

// RecordReminderFailure emits the ReminderFailure counter.
func (m *CloudWatchMetrics) RecordReminderFailure(ctx context.Context) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(MetricReminderFailure),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
	})
}
