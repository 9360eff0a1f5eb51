package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"plantcare/internal/types"
)

// TransitionResult reports what a detection did to a plant's care plan.
type TransitionResult struct {
	PlantID       string           `json:"plant_id"`
	From          types.PlantState `json:"from_state"`
	To            types.PlantState `json:"to_state"`
	FromCondition string           `json:"from_condition,omitempty"`
	ToCondition   string           `json:"to_condition"`
	// TreatedConditions lists every distinct treatable condition that
	// received a treatment schedule, not only the primary one.
	TreatedConditions []string `json:"treated_conditions,omitempty"`
	CancelledEvents   int      `json:"cancelled_events"`
	ScanEventID       string   `json:"scan_event_id"`
}

// ApplyDetection is the Condition Transition Handler. Given the classifier's
// detections for a plant, it updates the plant's condition state, replaces
// the care schedule according to the transition state machine, and appends a
// scan event recording the observation.
//
// Primary condition rule: treatable conditions (pests, diseases, and unknown
// labels) outrank beneficial and healthy observations. Among several
// treatable conditions the lexicographically first becomes the display
// condition, while every distinct treatable condition still receives its own
// treatment schedule.
//
// Within one call the ordering is strict: cancel future events, then
// regenerate the plan, then the post-generation dedup pass.
func (e *Engine) ApplyDetection(ctx context.Context, plantID string, detections []types.Detection) (*TransitionResult, error) {
	if len(detections) == 0 {
		return nil, types.NewAppError(types.ErrCodeValidationNoDetections,
			"at least one detection is required", nil)
	}

	plant, err := e.store.GetPlant(ctx, plantID)
	if err != nil {
		return nil, err
	}
	now := e.clock.Now()

	counts, treatable := e.summarizeDetections(detections)

	fromState := plant.State()
	fromCondition := plant.CurrentCondition

	primary := types.HealthyConditionName
	toState := types.StateHealthy
	if len(treatable) > 0 {
		primary = treatable[0]
		toState = types.StateDiseased
	}

	// The plant record is updated before regeneration so the generator sees
	// the new condition set.
	plant.CurrentCondition = primary
	plant.ConditionCounts = counts
	plant.LastScannedAt = &now
	if err := e.store.UpdatePlant(ctx, plant); err != nil {
		return nil, err
	}

	result := &TransitionResult{
		PlantID:           plantID,
		From:              fromState,
		To:                toState,
		FromCondition:     fromCondition,
		ToCondition:       primary,
		TreatedConditions: treatable,
	}

	switch {
	case toState == types.StateHealthy && fromState == types.StateDiseased:
		// Recovery clears treatment history entirely, then a fresh plan, then
		// the terminal verify sweep as a safety net against partial failures.
		if _, err := e.deleteTreatments(ctx, plantID, true); err != nil {
			return nil, err
		}
		n, err := e.CancelFutureEvents(ctx, plantID)
		if err != nil {
			return nil, err
		}
		result.CancelledEvents = n
		if err := e.GenerateCarePlan(ctx, plantID); err != nil {
			return nil, err
		}
		if _, err := e.VerifyZeroTreatments(ctx, plantID); err != nil {
			return nil, err
		}

	case toState == types.StateDiseased && fromState == types.StateDiseased && fromCondition != primary:
		// A different diagnosis supersedes the old treatment schedule.
		if _, err := e.deleteTreatments(ctx, plantID, false); err != nil {
			return nil, err
		}
		n, err := e.CancelFutureEvents(ctx, plantID)
		if err != nil {
			return nil, err
		}
		result.CancelledEvents = n
		if err := e.GenerateCarePlan(ctx, plantID); err != nil {
			return nil, err
		}

	default:
		// Covers Healthy/Unscanned -> Diseased, an unchanged diagnosis, and
		// healthy rescans. The schedule is regenerated either way; for
		// unchanged diagnoses the treatment step re-derives the same
		// schedule and the deduplicator collapses it against what exists.
		n, err := e.CancelFutureEvents(ctx, plantID)
		if err != nil {
			return nil, err
		}
		result.CancelledEvents = n
		if err := e.GenerateCarePlan(ctx, plantID); err != nil {
			return nil, err
		}
	}

	if err := e.runDedupPasses(ctx, plantID); err != nil {
		return nil, err
	}

	// The scan record is appended independent of the transition outcome and
	// is exempt from future-event sweeps, preserving scan history.
	scan := &types.CareEvent{
		PlantID:       plantID,
		Type:          types.EventScan,
		Date:          now,
		ConditionName: primary,
		Notes:         renderScanNotes(counts),
		Completed:     true,
	}
	if err := e.addEvent(ctx, scan); err != nil {
		return nil, err
	}
	result.ScanEventID = scan.ID

	e.metrics.RecordTransition(ctx, fromState, toState)
	e.logger.InfoContext(ctx, "condition transition applied",
		"plant_id", plantID,
		"from_state", string(fromState),
		"to_state", string(toState),
		"from_condition", fromCondition,
		"to_condition", primary,
		"treated_conditions", strings.Join(treatable, ","),
		"cancelled_events", result.CancelledEvents,
	)
	return result, nil
}

// summarizeDetections aggregates detections into a per-condition count
// breakdown and the sorted distinct set of treatable condition names.
func (e *Engine) summarizeDetections(detections []types.Detection) (types.ConditionCounts, []string) {
	byName := make(map[string]int)
	for _, d := range detections {
		n := d.Count
		if n <= 0 {
			n = 1
		}
		byName[d.ConditionName] += n
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	counts := make(types.ConditionCounts, 0, len(names))
	var treatable []string
	for _, name := range names {
		counts = append(counts, types.ConditionCount{Condition: name, Count: byName[name]})
		if e.kb.KindOf(name).Treatable() {
			treatable = append(treatable, name)
		}
	}
	return counts, treatable
}

// deleteTreatments removes treatment events for the plant. When
// includeCompleted is false, only incomplete events are removed. Returns the
// number of events deleted.
func (e *Engine) deleteTreatments(ctx context.Context, plantID string, includeCompleted bool) (int, error) {
	events, err := e.store.GetPlantCareEvents(ctx, plantID)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, ev := range events {
		if ev.Type != types.EventTreatment {
			continue
		}
		if ev.Completed && !includeCompleted {
			continue
		}
		if err := e.deleteEvent(ctx, ev); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// renderScanNotes produces the observation summary stored on scan events.
func renderScanNotes(counts types.ConditionCounts) string {
	if len(counts) == 0 {
		return "Scan recorded."
	}
	parts := make([]string, 0, len(counts))
	for _, cc := range counts {
		parts = append(parts, fmt.Sprintf("%s x%d", cc.Condition, cc.Count))
	}
	return "Scan recorded: " + strings.Join(parts, ", ")
}
