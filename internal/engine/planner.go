package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"plantcare/internal/types"
)

// GenerateCarePlan synthesizes the full forward-looking care schedule for a
// plant: watering cadence, a first-day inspection, fertilizing, type-specific
// maintenance, treatment schedules for any diagnosed conditions, and the
// monthly rescan.
//
// Each step is independent and idempotent against a deduplicated event set.
// A store failure aborts the remaining steps; retrying the whole call is safe
// because every step is dedup-guarded.
func (e *Engine) GenerateCarePlan(ctx context.Context, plantID string) error {
	plant, err := e.store.GetPlant(ctx, plantID)
	if err != nil {
		return err
	}
	now := e.clock.Now()

	// Step 1: watering.
	if err := e.scheduleWatering(ctx, plant, now); err != nil {
		return err
	}

	// Step 2: one first-day inspection, 30 minutes out.
	inspect := &types.CareEvent{
		PlantID: plant.ID,
		Type:    types.EventInspect,
		Date:    now.Add(inspectionDelay),
		Notes:   "Initial inspection: check leaves, stems, and soil moisture.",
	}
	if err := e.addEvent(ctx, inspect); err != nil {
		return err
	}

	// Step 3: fertilizing, 4 occurrences starting day 3.
	for i := 0; i < fertilizeCount; i++ {
		offset := fertilizeStartDays + i*fertilizeIntervalDays
		ev := &types.CareEvent{
			PlantID: plant.ID,
			Type:    types.EventFertilize,
			Date:    atHour(startOfDay(now).AddDate(0, 0, offset), fertilizeHour),
			Notes:   "Apply balanced fertilizer around the base and water in.",
		}
		if err := e.addEvent(ctx, ev); err != nil {
			return err
		}
	}

	// Step 4: maintenance, 3 occurrences starting day 5. Tomatoes get
	// pruning; everything else gets a general inspection.
	for i := 0; i < maintenanceCount; i++ {
		offset := maintenanceStartDays + i*maintenanceIntervalDays
		ev := &types.CareEvent{
			PlantID: plant.ID,
			Date:    atHour(startOfDay(now).AddDate(0, 0, offset), maintenanceHour),
		}
		if plant.Type == types.PlantTomato {
			ev.Type = types.EventPrune
			ev.Notes = "Prune suckers and remove lower leaves touching the soil."
		} else {
			ev.Type = types.EventInspect
			ev.Notes = "General maintenance: inspect for pests, remove weeds, check supports."
		}
		if err := e.addEvent(ctx, ev); err != nil {
			return err
		}
	}

	// Step 5: treatment schedules for every diagnosed condition, each
	// invocation guarded by the deduplicator before and after.
	for _, cond := range e.treatableConditions(plant) {
		if err := e.runDedupPasses(ctx, plant.ID); err != nil {
			return err
		}
		count := plant.ConditionCounts.CountFor(cond)
		if count == 0 {
			count = 1
		}
		if err := e.createTreatmentSchedule(ctx, plant, cond, count); err != nil {
			return err
		}
		if err := e.runDedupPasses(ctx, plant.ID); err != nil {
			return err
		}
	}

	// Step 6: monthly rescan.
	rescan := &types.CareEvent{
		PlantID:       plant.ID,
		Type:          types.EventScan,
		Date:          now.AddDate(0, 0, rescanAfterDays),
		ConditionName: plant.CurrentCondition,
		Notes:         "Monthly rescan: photograph the plant to re-check its condition.",
	}
	if err := e.addEvent(ctx, rescan); err != nil {
		return err
	}

	return e.refreshNextWatering(ctx, plant.ID)
}

// scheduleWatering creates the first watering event plus the recurring
// cadence across the look-ahead horizon.
//
// First event timing rule: before 07:00 local, pin to 09:00 today; otherwise
// two hours from now. Subsequent events land at 09:00 every frequency days.
func (e *Engine) scheduleWatering(ctx context.Context, plant *types.Plant, now time.Time) error {
	first := now.Add(2 * time.Hour)
	if now.Hour() < earlyMorningCutoffHour {
		first = atHour(now, wateringHour)
	}
	ev := &types.CareEvent{
		PlantID: plant.ID,
		Type:    types.EventWatering,
		Date:    first,
		Notes:   "Water thoroughly at the base until soil is moist.",
	}
	if err := e.addEvent(ctx, ev); err != nil {
		return err
	}

	freq := wateringFrequency(plant)
	for offset := freq; offset <= wateringHorizonDays; offset += freq {
		ev := &types.CareEvent{
			PlantID: plant.ID,
			Type:    types.EventWatering,
			Date:    atHour(startOfDay(now).AddDate(0, 0, offset), wateringHour),
			Notes:   "Water thoroughly at the base until soil is moist.",
		}
		if err := e.addEvent(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

// treatableConditions returns the distinct treatable conditions recorded on
// the plant, in lexicographic order for deterministic scheduling.
func (e *Engine) treatableConditions(plant *types.Plant) []string {
	seen := make(map[string]struct{})
	add := func(name string) {
		if name == "" {
			return
		}
		if !e.kb.KindOf(name).Treatable() {
			return
		}
		seen[name] = struct{}{}
	}
	add(plant.CurrentCondition)
	for _, cc := range plant.ConditionCounts {
		add(cc.Condition)
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// createTreatmentSchedule derives the treatment event sequence for one
// condition: an urgent event for the first task an hour out, the remaining
// tasks staggered two days apart, and at most one follow-up per repeating
// task.
//
// A knowledge base miss degrades to a single generic treatment event.
func (e *Engine) createTreatmentSchedule(ctx context.Context, plant *types.Plant, conditionName string, plantCount int) error {
	now := e.clock.Now()

	cond, err := e.kb.Lookup(conditionName)
	if err != nil {
		e.logger.WarnContext(ctx, "condition not in knowledge base, using generic treatment",
			"plant_id", plant.ID,
			"condition", conditionName,
		)
		generic := &types.CareEvent{
			PlantID:       plant.ID,
			Type:          types.EventTreatment,
			Date:          now.Add(urgentTreatmentDelay),
			ConditionName: conditionName,
			Notes: fmt.Sprintf("Treat %s. No task breakdown is available yet; "+
				"inspect the plant and apply an appropriate general treatment.", conditionName),
		}
		return e.addEvent(ctx, generic)
	}

	if len(cond.Tasks) == 0 {
		return nil
	}

	// Urgent first task, one hour out.
	urgent := &types.CareEvent{
		PlantID:       plant.ID,
		Type:          types.EventTreatment,
		Date:          now.Add(urgentTreatmentDelay),
		ConditionName: conditionName,
		Notes:         renderTaskNotes(cond.Tasks[0], plantCount, true),
	}
	if err := e.addEvent(ctx, urgent); err != nil {
		return err
	}

	// Remaining tasks staggered two days apart; time of day by task verb.
	for i := 1; i < len(cond.Tasks); i++ {
		task := cond.Tasks[i]
		day := startOfDay(now).AddDate(0, 0, treatmentStaggerDays*i)
		scheduled := atHour(day, hourForTask(task.Name))

		ev := &types.CareEvent{
			PlantID:       plant.ID,
			Type:          types.EventTreatment,
			Date:          scheduled,
			ConditionName: conditionName,
			Notes:         renderTaskNotes(task, plantCount, false),
		}
		if err := e.addEvent(ctx, ev); err != nil {
			return err
		}

		// Exactly one follow-up per repeating task; never a chain.
		if task.ScheduleIntervalDays > 0 {
			followup := &types.CareEvent{
				PlantID:       plant.ID,
				Type:          types.EventTreatment,
				Date:          scheduled.AddDate(0, 0, task.ScheduleIntervalDays),
				ConditionName: conditionName,
				Notes:         fmt.Sprintf("Follow-up #1: %s. Repeat the earlier application and check progress.", task.Name),
			}
			if err := e.addEvent(ctx, followup); err != nil {
				return err
			}
		}
	}
	return nil
}

// hourForTask picks the time of day for a staggered treatment task by a
// keyword match on the task name: removal work in the morning, product
// application in the late afternoon, everything else midday.
func hourForTask(taskName string) int {
	lower := strings.ToLower(taskName)
	switch {
	case strings.Contains(lower, "remove"):
		return 10
	case strings.Contains(lower, "apply"):
		return 17
	default:
		return 12
	}
}

// renderTaskNotes assembles the human-readable task detail. The notes begin
// with the task name (after the urgency marker) because the deduplicator
// keys treatment events on the leading task-name token.
func renderTaskNotes(task types.TreatmentTask, plantCount int, urgent bool) string {
	var b strings.Builder
	if urgent {
		b.WriteString("URGENT: ")
	}
	b.WriteString(task.Name)
	b.WriteString(". ")
	b.WriteString(task.Description)
	if len(task.Materials) > 0 {
		b.WriteString(" Materials: ")
		b.WriteString(strings.Join(task.Materials, ", "))
		b.WriteString(".")
	}
	for i, step := range task.Instructions {
		fmt.Fprintf(&b, " Step %d: %s", i+1, step)
	}
	if plantCount > 1 {
		fmt.Fprintf(&b, " Apply to all %d affected plants.", plantCount)
	}
	return b.String()
}
