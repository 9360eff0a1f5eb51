// Package notify dispatches reminder messages to the SQS queue consumed by
// the reminder worker. Dispatch is a side channel: the care event store stays
// authoritative and the worker re-validates every message against it.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"

	"plantcare/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSScheduler sends schedule and cancel reminder messages to a single
// reminder queue. A circuit breaker guards the queue so a dead SQS endpoint
// fails fast instead of stalling every engine operation behind SDK retries.
type SQSScheduler struct {
	client   SQSSender
	queueURL string
	breaker  *gobreaker.CircuitBreaker[*sqs.SendMessageOutput]
	logger   *slog.Logger
}

// NewSQSScheduler creates a scheduler publishing to the given queue URL.
func NewSQSScheduler(client SQSSender, queueURL string, logger *slog.Logger) *SQSScheduler {
	cb := gobreaker.NewCircuitBreaker[*sqs.SendMessageOutput](gobreaker.Settings{
		Name:        "reminder-queue",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})
	return &SQSScheduler{
		client:   client,
		queueURL: queueURL,
		breaker:  cb,
		logger:   logger.With("component", "reminder_scheduler"),
	}
}

// ScheduleReminder enqueues a schedule message for a future care event.
func (s *SQSScheduler) ScheduleReminder(ctx context.Context, msg types.ReminderMessage) error {
	msg.Action = types.ReminderActionSchedule
	if msg.MessageID == "" {
		msg.MessageID = uuid.New().String()
	}
	return s.send(ctx, msg)
}

// CancelReminder enqueues a cancel message for an event that no longer needs
// a reminder. Lost cancels are tolerable because the worker re-checks the
// event before notifying.
func (s *SQSScheduler) CancelReminder(ctx context.Context, eventID string) error {
	msg := types.ReminderMessage{
		MessageID: uuid.New().String(),
		Action:    types.ReminderActionCancel,
		EventID:   eventID,
	}
	return s.send(ctx, msg)
}

// send serializes the message and dispatches it through the circuit breaker.
func (s *SQSScheduler) send(ctx context.Context, msg types.ReminderMessage) error {
	if msg.EnqueuedAt.IsZero() {
		msg.EnqueuedAt = time.Now().UTC()
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("notify: failed to marshal ReminderMessage: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqsTypes.MessageAttributeValue{
			"action": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(msg.Action)),
			},
		},
	}

	_, err = s.breaker.Execute(func() (*sqs.SendMessageOutput, error) {
		return s.client.SendMessage(ctx, input)
	})
	if err != nil {
		return types.NewAppError(types.ErrCodeReminderDispatch,
			fmt.Sprintf("failed to send reminder message to %s", s.queueURL), err)
	}

	s.logger.InfoContext(ctx, "reminder message sent",
		"queue_url", s.queueURL,
		"message_id", msg.MessageID,
		"action", string(msg.Action),
		"event_id", msg.EventID,
		"plant_id", msg.PlantID,
	)
	return nil
}

// Nop is a reminder scheduler that discards everything. Used in local
// development when no queue is configured.
type Nop struct{}

func (Nop) ScheduleReminder(context.Context, types.ReminderMessage) error { return nil }
func (Nop) CancelReminder(context.Context, string) error                  { return nil }
