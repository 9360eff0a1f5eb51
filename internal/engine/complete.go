package engine

import (
	"context"
	"time"

	"plantcare/internal/types"
)

// CompleteEvent marks a care event done. The event's date is rewritten to
// the completion time so the history reflects when care actually happened.
// Completing a watering event rolls the schedule forward: if no future
// incomplete watering remains, exactly one is created at completion time
// plus the plant's watering frequency.
func (e *Engine) CompleteEvent(ctx context.Context, eventID string) (*types.CareEvent, error) {
	ev, err := e.store.GetCareEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev.Completed {
		return nil, types.NewAppError(types.ErrCodeConflictCompleted,
			"event is already completed", nil)
	}

	now := e.clock.Now()
	ev.Completed = true
	ev.Date = now
	if err := e.store.UpdateCareEvent(ctx, ev); err != nil {
		return nil, err
	}
	e.cancelReminder(ctx, ev.ID)

	if ev.Type == types.EventWatering {
		if err := e.rolloverWatering(ctx, ev.PlantID, now); err != nil {
			return nil, err
		}
	}

	e.logger.InfoContext(ctx, "event completed",
		"event_id", ev.ID,
		"plant_id", ev.PlantID,
		"type", string(ev.Type),
	)
	return ev, nil
}

// rolloverWatering creates the next watering event after a completion, but
// only when no future incomplete watering already exists for the plant.
func (e *Engine) rolloverWatering(ctx context.Context, plantID string, completedAt time.Time) error {
	plant, err := e.store.GetPlant(ctx, plantID)
	if err != nil {
		return err
	}
	events, err := e.store.GetPlantCareEvents(ctx, plantID)
	if err != nil {
		return err
	}
	for _, ev := range events {
		if ev.Type == types.EventWatering && !ev.Completed && ev.Date.After(completedAt) {
			return e.refreshNextWateringFrom(ctx, plant, events)
		}
	}

	next := &types.CareEvent{
		PlantID: plantID,
		Type:    types.EventWatering,
		Date:    completedAt.AddDate(0, 0, wateringFrequency(plant)),
		Notes:   "Water the plant",
	}
	if err := e.addEvent(ctx, next); err != nil {
		return err
	}
	events = append(events, next)
	return e.refreshNextWateringFrom(ctx, plant, events)
}

// refreshNextWatering recomputes the plant's cached next watering timestamp
// from its incomplete watering events.
func (e *Engine) refreshNextWatering(ctx context.Context, plantID string) error {
	plant, err := e.store.GetPlant(ctx, plantID)
	if err != nil {
		return err
	}
	events, err := e.store.GetPlantCareEvents(ctx, plantID)
	if err != nil {
		return err
	}
	return e.refreshNextWateringFrom(ctx, plant, events)
}

func (e *Engine) refreshNextWateringFrom(ctx context.Context, plant *types.Plant, events []*types.CareEvent) error {
	var next *time.Time
	for _, ev := range events {
		if ev.Type != types.EventWatering || ev.Completed {
			continue
		}
		if next == nil || ev.Date.Before(*next) {
			d := ev.Date
			next = &d
		}
	}

	changed := (plant.NextWateringAt == nil) != (next == nil)
	if !changed && next != nil && !plant.NextWateringAt.Equal(*next) {
		changed = true
	}
	if !changed {
		return nil
	}
	plant.NextWateringAt = next
	return e.store.UpdatePlant(ctx, plant)
}

// DeletePlant removes a plant, cancels all of its pending reminders, and
// relies on the store to cascade the plant's events.
func (e *Engine) DeletePlant(ctx context.Context, plantID string) error {
	events, err := e.store.GetPlantCareEvents(ctx, plantID)
	if err != nil {
		return err
	}
	for _, ev := range events {
		if !ev.Completed {
			e.cancelReminder(ctx, ev.ID)
		}
	}
	if err := e.store.DeletePlant(ctx, plantID); err != nil {
		return err
	}
	e.logger.InfoContext(ctx, "plant deleted", "plant_id", plantID, "events_removed", len(events))
	return nil
}
