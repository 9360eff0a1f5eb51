package types

import "time"

// ReminderAction distinguishes schedule and cancel messages on the reminder
// queue.
type ReminderAction string

const (
	ReminderActionSchedule ReminderAction = "schedule"
	ReminderActionCancel   ReminderAction = "cancel"
)

// ReminderMessage is the queue payload sent to the reminder worker. Delivery
// is best-effort: the worker re-validates the event against the store before
// firing, so a reminder for a deleted or completed event is silently dropped
// even if the cancel message was lost.
type ReminderMessage struct {
	MessageID     string         `json:"message_id"`
	Action        ReminderAction `json:"action"`
	PlantID       string         `json:"plant_id,omitempty"`
	EventID       string         `json:"event_id"`
	EventType     EventType      `json:"event_type,omitempty"`
	ConditionName string         `json:"condition_name,omitempty"`
	FireAt        time.Time      `json:"fire_at,omitempty"`
	EnqueuedAt    time.Time      `json:"enqueued_at"`
}
