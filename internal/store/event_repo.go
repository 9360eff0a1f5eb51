package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"plantcare/internal/types"
)

// EventRepository provides data access for the care_events table.
type EventRepository struct {
	db DBTX
}

// NewEventRepository creates an EventRepository backed by the given database
// connection (pool or transaction).
func NewEventRepository(db DBTX) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `e.id, e.plant_id, e.event_type, e.event_date,
	e.condition_name, e.notes, e.completed, e.created_at`

func scanEvent(row pgx.Row) (*types.CareEvent, error) {
	var ev types.CareEvent
	var (
		conditionName *string
		notes         *string
	)

	err := row.Scan(
		&ev.ID,
		&ev.PlantID,
		&ev.Type,
		&ev.Date,
		&conditionName,
		&notes,
		&ev.Completed,
		&ev.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if conditionName != nil {
		ev.ConditionName = *conditionName
	}
	if notes != nil {
		ev.Notes = *notes
	}
	return &ev, nil
}

func (r *EventRepository) scanEvents(rows pgx.Rows) ([]*types.CareEvent, error) {
	defer rows.Close()
	var out []*types.CareEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalStore, "failed to scan care event", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalStore, "failed to iterate care events", err)
	}
	return out, nil
}

// GetCareEvent retrieves an event by ID. Returns not_found_event if absent.
func (r *EventRepository) GetCareEvent(ctx context.Context, id string) (*types.CareEvent, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM care_events e WHERE e.id = $1`, id)

	ev, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundEvent, "care event not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalStore, "failed to retrieve care event", err)
	}
	return ev, nil
}

// GetPlantCareEvents returns all events for a plant ordered by scheduled
// time (earliest first), then by ID for a deterministic total order.
func (r *EventRepository) GetPlantCareEvents(ctx context.Context, plantID string) ([]*types.CareEvent, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+`
		 FROM care_events e
		 WHERE e.plant_id = $1
		 ORDER BY e.event_date ASC, e.id ASC`,
		plantID)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalStore, "failed to list care events", err)
	}
	return r.scanEvents(rows)
}

// GetCareEventsInRange returns events across all plants scheduled in
// [start, end), ordered by scheduled time.
func (r *EventRepository) GetCareEventsInRange(ctx context.Context, start, end time.Time) ([]*types.CareEvent, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+`
		 FROM care_events e
		 WHERE e.event_date >= $1 AND e.event_date < $2
		 ORDER BY e.event_date ASC, e.id ASC`,
		start, end)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalStore, "failed to query care events in range", err)
	}
	return r.scanEvents(rows)
}

// AddCareEvent inserts a new care event. The caller assigns the ID and must
// ensure the owning plant exists; the FK constraint backstops that invariant.
func (r *EventRepository) AddCareEvent(ctx context.Context, ev *types.CareEvent) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO care_events (
			id, plant_id, event_type, event_date,
			condition_name, notes, completed, created_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, COALESCE($8, NOW())
		)`,
		ev.ID,
		ev.PlantID,
		ev.Type,
		ev.Date,
		nilIfEmpty(ev.ConditionName),
		nilIfEmpty(ev.Notes),
		ev.Completed,
		nilIfZeroTime(ev.CreatedAt),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalStore, "failed to create care event", err)
	}
	return nil
}

// UpdateCareEvent writes all mutable event fields. Returns not_found_event
// if the record is absent.
func (r *EventRepository) UpdateCareEvent(ctx context.Context, ev *types.CareEvent) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE care_events SET
			event_type = $1,
			event_date = $2,
			condition_name = $3,
			notes = $4,
			completed = $5
		 WHERE id = $6`,
		ev.Type,
		ev.Date,
		nilIfEmpty(ev.ConditionName),
		nilIfEmpty(ev.Notes),
		ev.Completed,
		ev.ID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalStore, "failed to update care event", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundEvent, "care event not found", nil)
	}
	return nil
}

// DeleteCareEvent removes an event by ID. Returns not_found_event if absent.
func (r *EventRepository) DeleteCareEvent(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM care_events WHERE id = $1`, id)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalStore, "failed to delete care event", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundEvent, "care event not found", nil)
	}
	return nil
}
