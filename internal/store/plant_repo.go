package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"plantcare/internal/types"
)

// PlantRepository provides data access for the plants table.
type PlantRepository struct {
	db DBTX
}

// NewPlantRepository creates a PlantRepository backed by the given database
// connection (pool or transaction).
func NewPlantRepository(db DBTX) *PlantRepository {
	return &PlantRepository{db: db}
}

// plantColumns is the standard column set for plant queries.
const plantColumns = `p.id, p.name, p.plant_type,
	p.current_condition, p.condition_counts,
	p.watering_frequency_days, p.next_watering_at,
	p.notes, p.created_at, p.last_scanned_at, p.updated_at`

// scanPlant scans a single plant row. Column order must match plantColumns.
func scanPlant(row pgx.Row) (*types.Plant, error) {
	var p types.Plant
	var (
		currentCondition *string
		notes            *string
	)

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Type,
		&currentCondition,
		&p.ConditionCounts,
		&p.WateringFrequencyDays,
		&p.NextWateringAt,
		&notes,
		&p.CreatedAt,
		&p.LastScannedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if currentCondition != nil {
		p.CurrentCondition = *currentCondition
	}
	if notes != nil {
		p.Notes = *notes
	}
	return &p, nil
}

// GetPlant retrieves a plant by ID. Returns not_found_plant if absent.
func (r *PlantRepository) GetPlant(ctx context.Context, id string) (*types.Plant, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+plantColumns+` FROM plants p WHERE p.id = $1`, id)

	p, err := scanPlant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundPlant, "plant not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalStore, "failed to retrieve plant", err)
	}
	return p, nil
}

// ListPlants returns all plants ordered by creation time (oldest first).
func (r *PlantRepository) ListPlants(ctx context.Context) ([]*types.Plant, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+plantColumns+` FROM plants p ORDER BY p.created_at ASC`)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalStore, "failed to list plants", err)
	}
	defer rows.Close()

	var out []*types.Plant
	for rows.Next() {
		p, err := scanPlant(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalStore, "failed to scan plant", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalStore, "failed to iterate plants", err)
	}
	return out, nil
}

// AddPlant inserts a new plant record. The caller assigns the ID.
func (r *PlantRepository) AddPlant(ctx context.Context, p *types.Plant) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO plants (
			id, name, plant_type,
			current_condition, condition_counts,
			watering_frequency_days, next_watering_at,
			notes, created_at, last_scanned_at, updated_at
		) VALUES (
			$1, $2, $3,
			$4, $5,
			$6, $7,
			$8, COALESCE($9, NOW()), $10, COALESCE($11, NOW())
		)`,
		p.ID,
		p.Name,
		p.Type,
		nilIfEmpty(p.CurrentCondition),
		p.ConditionCounts,
		p.WateringFrequencyDays,
		p.NextWateringAt,
		nilIfEmpty(p.Notes),
		nilIfZeroTime(p.CreatedAt),
		p.LastScannedAt,
		nilIfZeroTime(p.UpdatedAt),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalStore, "failed to create plant", err)
	}
	return nil
}

// UpdatePlant writes all mutable plant fields. Returns not_found_plant if
// the record is absent.
func (r *PlantRepository) UpdatePlant(ctx context.Context, p *types.Plant) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE plants SET
			name = $1,
			plant_type = $2,
			current_condition = $3,
			condition_counts = $4,
			watering_frequency_days = $5,
			next_watering_at = $6,
			notes = $7,
			last_scanned_at = $8,
			updated_at = NOW()
		 WHERE id = $9`,
		p.Name,
		p.Type,
		nilIfEmpty(p.CurrentCondition),
		p.ConditionCounts,
		p.WateringFrequencyDays,
		p.NextWateringAt,
		nilIfEmpty(p.Notes),
		p.LastScannedAt,
		p.ID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalStore, "failed to update plant", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundPlant, "plant not found", nil)
	}
	return nil
}

// DeletePlant removes a plant. Care events cascade at the schema level
// (ON DELETE CASCADE); reminder cancellation is the engine's responsibility
// before this call.
func (r *PlantRepository) DeletePlant(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM plants WHERE id = $1`, id)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalStore, "failed to delete plant", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundPlant, "plant not found", nil)
	}
	return nil
}
