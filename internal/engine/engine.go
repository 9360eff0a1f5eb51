// Package engine implements the Care Plan & Event Scheduling Engine: the
// Care Plan Generator, the Condition Transition Handler, the Event
// Deduplicator, and the watering rollover logic.
//
// The engine is single-writer per plant. Callers serialize operations for the
// same plant through a Worker; no cross-plant locking exists because every
// operation touches records scoped to one plant.
//
// Store writes are not transactional. A crash mid-sequence can leave a
// partially updated plan; the idempotent dedup and verify passes make
// retrying the same operation safe.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"plantcare/internal/knowledge"
	"plantcare/internal/types"
)

// CareStore is the persistence contract the engine depends on. Satisfied by
// store.Postgres and store.Memory. All writes are durable before the call
// returns; a returned error is a hard stop for the operation that issued it.
type CareStore interface {
	GetPlant(ctx context.Context, id string) (*types.Plant, error)
	ListPlants(ctx context.Context) ([]*types.Plant, error)
	AddPlant(ctx context.Context, p *types.Plant) error
	UpdatePlant(ctx context.Context, p *types.Plant) error
	DeletePlant(ctx context.Context, id string) error

	GetCareEvent(ctx context.Context, id string) (*types.CareEvent, error)
	GetPlantCareEvents(ctx context.Context, plantID string) ([]*types.CareEvent, error)
	GetCareEventsInRange(ctx context.Context, start, end time.Time) ([]*types.CareEvent, error)
	AddCareEvent(ctx context.Context, ev *types.CareEvent) error
	UpdateCareEvent(ctx context.Context, ev *types.CareEvent) error
	DeleteCareEvent(ctx context.Context, id string) error
}

// ReminderScheduler is the consumed notification side channel. Delivery is
// best-effort: the engine logs and counts failures but never lets them block
// persistence of the authoritative event record.
type ReminderScheduler interface {
	ScheduleReminder(ctx context.Context, msg types.ReminderMessage) error
	CancelReminder(ctx context.Context, eventID string) error
}

// Scheduling constants for plan generation.
const (
	// wateringHorizonDays bounds the recurring watering look-ahead. The
	// schedule is regenerated on every rescan rather than projected
	// indefinitely.
	wateringHorizonDays = 30
	wateringHour        = 9
	// earlyMorningCutoffHour: before this local hour the first watering is
	// pinned to 9:00 today instead of two hours from now.
	earlyMorningCutoffHour = 7

	inspectionDelay = 30 * time.Minute

	fertilizeStartDays    = 3
	fertilizeIntervalDays = 14
	fertilizeCount        = 4
	fertilizeHour         = 8

	maintenanceStartDays    = 5
	maintenanceIntervalDays = 10
	maintenanceCount        = 3
	maintenanceHour         = 16

	rescanAfterDays = 30

	urgentTreatmentDelay = time.Hour
	treatmentStaggerDays = 2

	// Default watering cadence when a plant record carries none.
	defaultWateringFrequencyDays = 2
)

// Engine wires the Care Store, the Condition Knowledge Base, and the
// reminder side channel into the care plan operations.
type Engine struct {
	store     CareStore
	kb        *knowledge.Base
	reminders ReminderScheduler
	metrics   Metrics
	clock     types.Clock
	logger    *slog.Logger
}

// Config holds the dependencies for constructing an Engine.
type Config struct {
	Store     CareStore
	Knowledge *knowledge.Base
	Reminders ReminderScheduler
	Metrics   Metrics
	Clock     types.Clock
	Logger    *slog.Logger
}

// New creates an Engine. Store, Knowledge, and Reminders are required; the
// rest default to real time, no-op metrics, and slog.Default.
func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("engine: store must not be nil")
	}
	if cfg.Knowledge == nil {
		return nil, fmt.Errorf("engine: knowledge base must not be nil")
	}
	if cfg.Reminders == nil {
		return nil, fmt.Errorf("engine: reminder scheduler must not be nil")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.RealClock{}
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NopMetrics{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:     cfg.Store,
		kb:        cfg.Knowledge,
		reminders: cfg.Reminders,
		metrics:   metrics,
		clock:     clock,
		logger:    logger.With("component", "engine"),
	}, nil
}

// NewEventID returns a fresh prefixed care event ID.
func NewEventID() string {
	return "evt_" + uuid.New().String()
}

// NewPlantID returns a fresh prefixed plant ID.
func NewPlantID() string {
	return "plt_" + uuid.New().String()
}

// addEvent persists a new event and schedules its reminder. The store write
// is authoritative; reminder scheduling is best-effort.
func (e *Engine) addEvent(ctx context.Context, ev *types.CareEvent) error {
	if ev.ID == "" {
		ev.ID = NewEventID()
	}
	if err := e.store.AddCareEvent(ctx, ev); err != nil {
		return err
	}
	e.metrics.RecordEventsCreated(ctx, 1)
	e.scheduleReminder(ctx, ev)
	return nil
}

// deleteEvent removes an event and cancels its reminder.
func (e *Engine) deleteEvent(ctx context.Context, ev *types.CareEvent) error {
	if err := e.store.DeleteCareEvent(ctx, ev.ID); err != nil {
		return err
	}
	e.cancelReminder(ctx, ev.ID)
	return nil
}

// scheduleReminder asks the side channel to remind the user of a future,
// incomplete event. Failures are logged and counted, never propagated.
func (e *Engine) scheduleReminder(ctx context.Context, ev *types.CareEvent) {
	if ev.Completed || ev.Date.Before(e.clock.Now()) {
		return
	}
	msg := types.ReminderMessage{
		MessageID:     uuid.New().String(),
		Action:        types.ReminderActionSchedule,
		PlantID:       ev.PlantID,
		EventID:       ev.ID,
		EventType:     ev.Type,
		ConditionName: ev.ConditionName,
		FireAt:        ev.Date,
		EnqueuedAt:    e.clock.Now(),
	}
	if err := e.reminders.ScheduleReminder(ctx, msg); err != nil {
		e.metrics.RecordReminderFailure(ctx)
		e.logger.ErrorContext(ctx, "reminder scheduling failed",
			"event_id", ev.ID,
			"plant_id", ev.PlantID,
			"event_type", string(ev.Type),
			"error", err,
		)
	}
}

// cancelReminder tells the side channel an event no longer needs a reminder.
// Best-effort; the reminder worker re-validates against the store anyway.
func (e *Engine) cancelReminder(ctx context.Context, eventID string) {
	if err := e.reminders.CancelReminder(ctx, eventID); err != nil {
		e.metrics.RecordReminderFailure(ctx)
		e.logger.ErrorContext(ctx, "reminder cancellation failed",
			"event_id", eventID,
			"error", err,
		)
	}
}

// startOfDay truncates t to midnight in its own location.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// atHour returns the given calendar day at the given wall-clock hour.
func atHour(day time.Time, hour int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, hour, 0, 0, 0, day.Location())
}

// wateringFrequency returns the plant's cadence with the default applied.
func wateringFrequency(p *types.Plant) int {
	if p.WateringFrequencyDays <= 0 {
		return defaultWateringFrequencyDays
	}
	return p.WateringFrequencyDays
}
