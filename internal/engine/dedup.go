package engine

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"plantcare/internal/types"
)

// The deduplicator collapses equivalent incomplete events created by
// overlapping schedule-generation passes. Both passes are idempotent and
// order-independent; within each group the earliest event (by scheduled
// time, then ID) survives.

// followupMarker extracts the ordinal from a "Follow-up #N:" notes prefix so
// that follow-up #1 and follow-up #2 of the same task are never collapsed
// into each other.
var followupMarker = regexp.MustCompile(`^Follow-up #(\d+):`)

// urgentMarker is stripped before task-token extraction so the urgent copy
// and a regular copy of the same task deduplicate together.
const urgentMarker = "URGENT:"

// typeDayKey groups events for the by-type-by-day pass. Treatment events for
// different conditions are distinct schedules (the legacy system encoded the
// condition into the event type itself), so the condition participates in
// the key for treatments only.
type typeDayKey struct {
	eventType types.EventType
	condition string
	day       time.Time
}

// DedupByTypeAndDay collapses incomplete events of the same type scheduled
// on the same calendar day, keeping the earliest. Returns the number of
// events deleted.
func (e *Engine) DedupByTypeAndDay(ctx context.Context, plantID string) (int, error) {
	events, err := e.store.GetPlantCareEvents(ctx, plantID)
	if err != nil {
		return 0, err
	}

	// Events arrive ordered by (date, id); the first of each group is the
	// keeper.
	seen := make(map[typeDayKey]struct{})
	deleted := 0
	for _, ev := range events {
		if ev.Completed {
			continue
		}
		key := typeDayKey{eventType: ev.Type, day: ev.Day()}
		if ev.Type == types.EventTreatment {
			key.condition = ev.ConditionName
		}
		if _, dup := seen[key]; !dup {
			seen[key] = struct{}{}
			continue
		}
		if err := e.deleteEvent(ctx, ev); err != nil {
			return deleted, err
		}
		deleted++
	}
	if deleted > 0 {
		e.metrics.RecordDedupDeleted(ctx, deleted)
		e.logger.InfoContext(ctx, "deduplicated events by type and day",
			"plant_id", plantID,
			"deleted", deleted,
		)
	}
	return deleted, nil
}

// taskKey groups treatment events for the task-similarity pass.
type taskKey struct {
	condition string
	token     string
	followup  int
}

// DedupTreatments collapses incomplete treatment events for the same
// condition that describe the same task, keyed by the normalized leading
// task-name token of the notes plus the follow-up ordinal. Returns the
// number of events deleted.
func (e *Engine) DedupTreatments(ctx context.Context, plantID string) (int, error) {
	events, err := e.store.GetPlantCareEvents(ctx, plantID)
	if err != nil {
		return 0, err
	}

	seen := make(map[taskKey]struct{})
	deleted := 0
	for _, ev := range events {
		if ev.Completed || ev.Type != types.EventTreatment {
			continue
		}
		token, ordinal := taskSignature(ev.Notes)
		key := taskKey{condition: ev.ConditionName, token: token, followup: ordinal}
		if _, dup := seen[key]; !dup {
			seen[key] = struct{}{}
			continue
		}
		if err := e.deleteEvent(ctx, ev); err != nil {
			return deleted, err
		}
		deleted++
	}
	if deleted > 0 {
		e.metrics.RecordDedupDeleted(ctx, deleted)
		e.logger.InfoContext(ctx, "deduplicated treatment events",
			"plant_id", plantID,
			"deleted", deleted,
		)
	}
	return deleted, nil
}

// runDedupPasses applies both passes. Order between them does not matter;
// each is idempotent.
func (e *Engine) runDedupPasses(ctx context.Context, plantID string) error {
	if _, err := e.DedupByTypeAndDay(ctx, plantID); err != nil {
		return err
	}
	_, err := e.DedupTreatments(ctx, plantID)
	return err
}

// CancelFutureEvents deletes all incomplete, non-scan events scheduled today
// or later. Same-day events count as future: the pass runs right before a
// plan is regenerated, and a stale same-day event would otherwise survive
// next to its replacement. Scan events are exempt so scan history and the
// pending rescan survive regeneration.
func (e *Engine) CancelFutureEvents(ctx context.Context, plantID string) (int, error) {
	events, err := e.store.GetPlantCareEvents(ctx, plantID)
	if err != nil {
		return 0, err
	}
	today := startOfDay(e.clock.Now())

	deleted := 0
	for _, ev := range events {
		if ev.Completed || ev.Type == types.EventScan {
			continue
		}
		if ev.Date.Before(today) {
			continue
		}
		if err := e.deleteEvent(ctx, ev); err != nil {
			return deleted, err
		}
		deleted++
	}
	e.logger.InfoContext(ctx, "cancelled future events for regeneration",
		"plant_id", plantID,
		"deleted", deleted,
	)
	return deleted, nil
}

// VerifyZeroTreatments deletes every treatment event for the plant,
// completed or not. Terminal consistency sweep for the recovery transition:
// a plant diagnosed healthy must carry no treatment noise, even remnants of
// a partially failed earlier cleanup.
func (e *Engine) VerifyZeroTreatments(ctx context.Context, plantID string) (int, error) {
	events, err := e.store.GetPlantCareEvents(ctx, plantID)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, ev := range events {
		if ev.Type != types.EventTreatment {
			continue
		}
		if err := e.deleteEvent(ctx, ev); err != nil {
			return deleted, err
		}
		deleted++
	}
	if deleted > 0 {
		e.logger.WarnContext(ctx, "verify sweep removed residual treatment events",
			"plant_id", plantID,
			"deleted", deleted,
		)
	}
	return deleted, nil
}

// taskSignature normalizes a treatment event's notes into its dedup
// signature: the leading task-name token (lower-cased, non-alphanumerics
// stripped) and the follow-up ordinal (zero for primary events).
func taskSignature(notes string) (string, int) {
	s := strings.TrimSpace(notes)
	ordinal := 0
	if m := followupMarker.FindStringSubmatch(s); m != nil {
		ordinal, _ = strconv.Atoi(m[1])
		s = strings.TrimSpace(s[len(m[0]):])
	}
	if rest, ok := strings.CutPrefix(s, urgentMarker); ok {
		s = strings.TrimSpace(rest)
	}
	return leadingToken(s), ordinal
}

// leadingToken returns the first run of alphanumeric characters, lower-cased.
func leadingToken(s string) string {
	var b strings.Builder
	started := false
	for _, r := range s {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if isAlnum {
			started = true
			b.WriteRune(r)
			continue
		}
		if started {
			break
		}
	}
	return strings.ToLower(b.String())
}
