package types

import (
	"fmt"
	"time"
)

// Plant is the core domain entity: one monitored plant, or a group record
// representing several individuals captured in a single scan.
type Plant struct {
	ID   string    `json:"id" db:"id"`
	Name string    `json:"name" db:"name"`
	Type PlantType `json:"type" db:"plant_type"`

	// Condition state
	CurrentCondition string          `json:"current_condition,omitempty" db:"current_condition"`
	ConditionCounts  ConditionCounts `json:"condition_counts,omitempty" db:"condition_counts"`

	// Watering cadence and its denormalized cache. NextWateringAt always
	// mirrors the nearest pending watering event; the engine maintains it
	// whenever watering events are created, rescheduled, or completed.
	WateringFrequencyDays int        `json:"watering_frequency_days" db:"watering_frequency_days"`
	NextWateringAt        *time.Time `json:"next_watering_at,omitempty" db:"next_watering_at"`

	// Notes is a human-readable rendering artifact. The per-condition count
	// breakdown historically embedded here lives in ConditionCounts now;
	// ParseLegacyConditionNotes recovers it from old records.
	Notes string `json:"notes,omitempty" db:"notes"`

	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	LastScannedAt *time.Time `json:"last_scanned_at,omitempty" db:"last_scanned_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// State derives the transition-handler state from the stored condition.
func (p *Plant) State() PlantState {
	switch {
	case p.LastScannedAt == nil && p.CurrentCondition == "":
		return StateUnscanned
	case p.CurrentCondition == "" || p.CurrentCondition == HealthyConditionName:
		return StateHealthy
	default:
		return StateDiseased
	}
}

// IsGroup reports whether the record aggregates multiple individuals.
func (p *Plant) IsGroup() bool {
	var total int
	for _, cc := range p.ConditionCounts {
		total += cc.Count
	}
	return total > 1
}

// ConditionCount is the structured replacement for the per-condition
// plant-count breakdown that the legacy system round-tripped through notes.
type ConditionCount struct {
	Condition string `json:"condition"`
	Count     int    `json:"count"`
}

// CareEvent is a single scheduled or completed care task tied to one plant.
type CareEvent struct {
	ID      string    `json:"id" db:"id"`
	PlantID string    `json:"plant_id" db:"plant_id"`
	Type    EventType `json:"type" db:"event_type"`

	// Date is the scheduled time or, once completed, the applicable time.
	Date time.Time `json:"date" db:"event_date"`

	// ConditionName ties scan and treatment events to a diagnosed condition.
	ConditionName string `json:"condition_name,omitempty" db:"condition_name"`

	// Notes carries task detail (materials, instructions) for rendering.
	// The engine only reads it back for deduplication keying.
	Notes string `json:"notes,omitempty" db:"notes"`

	Completed bool      `json:"completed" db:"completed"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// DisplayType renders the legacy compound event-type label consumed by the
// UI layer: "Treat: <condition>" for condition-scoped treatments, the plain
// type name otherwise.
func (e *CareEvent) DisplayType() string {
	if e.Type == EventTreatment && e.ConditionName != "" {
		return fmt.Sprintf("Treat: %s", e.ConditionName)
	}
	switch e.Type {
	case EventWatering:
		return "Watering"
	case EventFertilize:
		return "Fertilize"
	case EventInspect:
		return "Inspect"
	case EventPrune:
		return "Prune"
	case EventScan:
		return "Scan"
	case EventTreatment:
		return "Treatment"
	default:
		return string(e.Type)
	}
}

// Day returns the calendar day of the event in the event's own location,
// truncated to midnight. Used as the grouping key for same-day dedup.
func (e *CareEvent) Day() time.Time {
	y, m, d := e.Date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, e.Date.Location())
}

// TreatmentTask is one step of a condition's remediation plan. Immutable
// knowledge-base data.
type TreatmentTask struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	// ScheduleIntervalDays > 0 requests exactly one follow-up event that many
	// days after the task's scheduled date. Zero means no follow-up.
	ScheduleIntervalDays int      `json:"schedule_interval_days"`
	Materials            []string `json:"materials"`
	Instructions         []string `json:"instructions"`
}

// Condition aggregates everything the knowledge base knows about one named
// plant health state.
type Condition struct {
	Name           string          `json:"name"`
	Kind           ConditionKind   `json:"kind"`
	Description    string          `json:"description"`
	PreventionTips []string        `json:"prevention_tips"`
	TreatmentTips  []string        `json:"treatment_tips"`
	Tasks          []TreatmentTask `json:"tasks"`
}

// Detection is one labeled observation from the external classifier. The
// confidence gate is enforced upstream of the engine; by the time a Detection
// reaches the transition handler only the label and count matter.
type Detection struct {
	ConditionName string  `json:"condition_name"`
	Confidence    float64 `json:"confidence"`
	PlantType     string  `json:"plant_type,omitempty"`
	// Count is the number of individuals this label applies to within a
	// multi-subject scan. Zero is treated as one.
	Count int `json:"count,omitempty"`
}
