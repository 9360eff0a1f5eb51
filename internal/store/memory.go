package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"plantcare/internal/types"
)

// Memory is an in-memory Care Store. It backs engine tests and local mode,
// mirroring the Postgres implementation's semantics: the same error codes,
// the same ordering guarantees, and cascade deletion of a plant's events.
type Memory struct {
	mu     sync.RWMutex
	clock  types.Clock
	plants map[string]*types.Plant
	events map[string]*types.CareEvent
	// byPlant indexes event IDs per plant, mirroring the events-per-plant
	// index the persistent store maintains.
	byPlant map[string]map[string]struct{}
}

// NewMemory creates an empty in-memory Care Store using the given clock for
// created_at/updated_at stamps. A nil clock falls back to real time.
func NewMemory(clock types.Clock) *Memory {
	if clock == nil {
		clock = types.RealClock{}
	}
	return &Memory{
		clock:   clock,
		plants:  make(map[string]*types.Plant),
		events:  make(map[string]*types.CareEvent),
		byPlant: make(map[string]map[string]struct{}),
	}
}

func copyPlant(p *types.Plant) *types.Plant {
	cp := *p
	if p.ConditionCounts != nil {
		cp.ConditionCounts = append(types.ConditionCounts(nil), p.ConditionCounts...)
	}
	if p.NextWateringAt != nil {
		t := *p.NextWateringAt
		cp.NextWateringAt = &t
	}
	if p.LastScannedAt != nil {
		t := *p.LastScannedAt
		cp.LastScannedAt = &t
	}
	return &cp
}

func copyEvent(ev *types.CareEvent) *types.CareEvent {
	cp := *ev
	return &cp
}

// GetPlant retrieves a plant by ID.
func (m *Memory) GetPlant(ctx context.Context, id string) (*types.Plant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.plants[id]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeNotFoundPlant, "plant not found", nil)
	}
	return copyPlant(p), nil
}

// ListPlants returns all plants ordered by creation time (oldest first).
func (m *Memory) ListPlants(ctx context.Context) ([]*types.Plant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*types.Plant, 0, len(m.plants))
	for _, p := range m.plants {
		out = append(out, copyPlant(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// AddPlant inserts a new plant record.
func (m *Memory) AddPlant(ctx context.Context, p *types.Plant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := copyPlant(p)
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = m.clock.Now()
	}
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = cp.CreatedAt
	}
	m.plants[cp.ID] = cp
	if m.byPlant[cp.ID] == nil {
		m.byPlant[cp.ID] = make(map[string]struct{})
	}
	return nil
}

// UpdatePlant writes all mutable plant fields.
func (m *Memory) UpdatePlant(ctx context.Context, p *types.Plant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.plants[p.ID]
	if !ok {
		return types.NewAppError(types.ErrCodeNotFoundPlant, "plant not found", nil)
	}
	cp := copyPlant(p)
	cp.CreatedAt = existing.CreatedAt
	cp.UpdatedAt = m.clock.Now()
	m.plants[cp.ID] = cp
	return nil
}

// DeletePlant removes a plant and cascades to all its care events.
func (m *Memory) DeletePlant(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plants[id]; !ok {
		return types.NewAppError(types.ErrCodeNotFoundPlant, "plant not found", nil)
	}
	delete(m.plants, id)
	for evID := range m.byPlant[id] {
		delete(m.events, evID)
	}
	delete(m.byPlant, id)
	return nil
}

// GetCareEvent retrieves an event by ID.
func (m *Memory) GetCareEvent(ctx context.Context, id string) (*types.CareEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ev, ok := m.events[id]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeNotFoundEvent, "care event not found", nil)
	}
	return copyEvent(ev), nil
}

func sortEvents(evs []*types.CareEvent) {
	sort.Slice(evs, func(i, j int) bool {
		if !evs[i].Date.Equal(evs[j].Date) {
			return evs[i].Date.Before(evs[j].Date)
		}
		return evs[i].ID < evs[j].ID
	})
}

// GetPlantCareEvents returns all events for a plant ordered by scheduled
// time (earliest first), then ID.
func (m *Memory) GetPlantCareEvents(ctx context.Context, plantID string) ([]*types.CareEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*types.CareEvent
	for evID := range m.byPlant[plantID] {
		out = append(out, copyEvent(m.events[evID]))
	}
	sortEvents(out)
	return out, nil
}

// GetCareEventsInRange returns events across all plants scheduled in
// [start, end), ordered by scheduled time.
func (m *Memory) GetCareEventsInRange(ctx context.Context, start, end time.Time) ([]*types.CareEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*types.CareEvent
	for _, ev := range m.events {
		if !ev.Date.Before(start) && ev.Date.Before(end) {
			out = append(out, copyEvent(ev))
		}
	}
	sortEvents(out)
	return out, nil
}

// AddCareEvent inserts a new care event. The owning plant must exist,
// mirroring the FK constraint in the Postgres schema.
func (m *Memory) AddCareEvent(ctx context.Context, ev *types.CareEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plants[ev.PlantID]; !ok {
		return types.NewAppError(types.ErrCodeNotFoundPlant, "plant not found", nil)
	}
	cp := copyEvent(ev)
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = m.clock.Now()
	}
	m.events[cp.ID] = cp
	if m.byPlant[cp.PlantID] == nil {
		m.byPlant[cp.PlantID] = make(map[string]struct{})
	}
	m.byPlant[cp.PlantID][cp.ID] = struct{}{}
	return nil
}

// UpdateCareEvent writes all mutable event fields.
func (m *Memory) UpdateCareEvent(ctx context.Context, ev *types.CareEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.events[ev.ID]
	if !ok {
		return types.NewAppError(types.ErrCodeNotFoundEvent, "care event not found", nil)
	}
	cp := copyEvent(ev)
	cp.PlantID = existing.PlantID
	cp.CreatedAt = existing.CreatedAt
	m.events[cp.ID] = cp
	return nil
}

// DeleteCareEvent removes an event by ID.
func (m *Memory) DeleteCareEvent(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok {
		return types.NewAppError(types.ErrCodeNotFoundEvent, "care event not found", nil)
	}
	delete(m.events, id)
	delete(m.byPlant[ev.PlantID], id)
	return nil
}
