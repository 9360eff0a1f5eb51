package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantcare/internal/types"
)

func seedEvent(t *testing.T, env *testEnv, ev *types.CareEvent) *types.CareEvent {
	t.Helper()
	if ev.ID == "" {
		ev.ID = NewEventID()
	}
	require.NoError(t, env.store.AddCareEvent(context.Background(), ev))
	return ev
}

func TestDedupByTypeAndDay(t *testing.T) {
	env := newTestEnv(t, testNow)
	plant := env.addPlant(t, &types.Plant{Name: "Okra", Type: types.PlantOkra})
	ctx := context.Background()
	day := startOfDay(testNow)

	keeper := seedEvent(t, env, &types.CareEvent{
		PlantID: plant.ID, Type: types.EventWatering, Date: atHour(day, 9),
	})
	seedEvent(t, env, &types.CareEvent{
		PlantID: plant.ID, Type: types.EventWatering, Date: atHour(day, 12),
	})
	seedEvent(t, env, &types.CareEvent{
		PlantID: plant.ID, Type: types.EventWatering, Date: atHour(day.AddDate(0, 0, 1), 9),
	})
	completed := seedEvent(t, env, &types.CareEvent{
		PlantID: plant.ID, Type: types.EventWatering, Date: atHour(day, 15), Completed: true,
	})

	deleted, err := env.engine.DedupByTypeAndDay(ctx, plant.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	events := env.events(t, plant.ID)
	require.Len(t, events, 3)
	ids := []string{events[0].ID, events[1].ID, events[2].ID}
	assert.Contains(t, ids, keeper.ID)
	assert.Contains(t, ids, completed.ID)
	assert.Equal(t, 1, env.metrics.dedupDeleted)
}

func TestDedupByTypeAndDay_TreatmentConditionsAreDistinct(t *testing.T) {
	env := newTestEnv(t, testNow)
	plant := env.addPlant(t, &types.Plant{Name: "Bed", Type: types.PlantMixed})
	day := startOfDay(testNow)

	seedEvent(t, env, &types.CareEvent{
		PlantID: plant.ID, Type: types.EventTreatment, Date: atHour(day, 10),
		ConditionName: "Aphids (Infested)", Notes: "Spray neem oil solution.",
	})
	seedEvent(t, env, &types.CareEvent{
		PlantID: plant.ID, Type: types.EventTreatment, Date: atHour(day, 11),
		ConditionName: "Whiteflies (Infested)", Notes: "Hang yellow sticky traps.",
	})

	deleted, err := env.engine.DedupByTypeAndDay(context.Background(), plant.ID)
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.Len(t, env.events(t, plant.ID), 2)
}

func TestDedupTreatments(t *testing.T) {
	env := newTestEnv(t, testNow)
	plant := env.addPlant(t, &types.Plant{Name: "Bed", Type: types.PlantMixed})
	day := startOfDay(testNow)

	// The urgent copy and the plain copy of the same task collapse even on
	// different days.
	keeper := seedEvent(t, env, &types.CareEvent{
		PlantID: plant.ID, Type: types.EventTreatment, Date: atHour(day, 11),
		ConditionName: "Aphids (Infested)",
		Notes:         "URGENT: Spray neem oil solution. Mix and spray.",
	})
	seedEvent(t, env, &types.CareEvent{
		PlantID: plant.ID, Type: types.EventTreatment, Date: atHour(day.AddDate(0, 0, 3), 17),
		ConditionName: "Aphids (Infested)",
		Notes:         "Spray neem oil solution. Mix and spray.",
	})
	// A follow-up of the same task has its own ordinal and survives.
	followup := seedEvent(t, env, &types.CareEvent{
		PlantID: plant.ID, Type: types.EventTreatment, Date: atHour(day.AddDate(0, 0, 6), 17),
		ConditionName: "Aphids (Infested)",
		Notes:         "Follow-up #1: Spray neem oil solution. Repeat the earlier application and check progress.",
	})
	// Same task name for a different condition is a different schedule.
	other := seedEvent(t, env, &types.CareEvent{
		PlantID: plant.ID, Type: types.EventTreatment, Date: atHour(day.AddDate(0, 0, 1), 17),
		ConditionName: "Whiteflies (Infested)",
		Notes:         "Spray neem oil solution. Mix and spray.",
	})

	deleted, err := env.engine.DedupTreatments(context.Background(), plant.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	events := env.events(t, plant.ID)
	require.Len(t, events, 3)
	ids := []string{events[0].ID, events[1].ID, events[2].ID}
	assert.Contains(t, ids, keeper.ID)
	assert.Contains(t, ids, followup.ID)
	assert.Contains(t, ids, other.ID)
}

func TestCancelFutureEvents(t *testing.T) {
	env := newTestEnv(t, testNow)
	plant := env.addPlant(t, &types.Plant{Name: "Okra", Type: types.PlantOkra})
	day := startOfDay(testNow)

	pastDone := seedEvent(t, env, &types.CareEvent{
		PlantID: plant.ID, Type: types.EventWatering,
		Date: day.AddDate(0, 0, -3), Completed: true,
	})
	pastOpen := seedEvent(t, env, &types.CareEvent{
		PlantID: plant.ID, Type: types.EventWatering, Date: day.AddDate(0, 0, -1),
	})
	// Earlier today and still incomplete counts as future.
	seedEvent(t, env, &types.CareEvent{
		PlantID: plant.ID, Type: types.EventFertilize, Date: atHour(day, 8),
	})
	seedEvent(t, env, &types.CareEvent{
		PlantID: plant.ID, Type: types.EventTreatment, Date: day.AddDate(0, 0, 2),
		ConditionName: "Aphids (Infested)", Notes: "Spray neem oil solution.",
	})
	futureDone := seedEvent(t, env, &types.CareEvent{
		PlantID: plant.ID, Type: types.EventInspect, Date: day.AddDate(0, 0, 1), Completed: true,
	})
	rescan := seedEvent(t, env, &types.CareEvent{
		PlantID: plant.ID, Type: types.EventScan, Date: day.AddDate(0, 0, 30),
	})

	deleted, err := env.engine.CancelFutureEvents(context.Background(), plant.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	events := env.events(t, plant.ID)
	require.Len(t, events, 4)
	ids := make([]string, 0, len(events))
	for _, ev := range events {
		ids = append(ids, ev.ID)
	}
	assert.ElementsMatch(t, ids, []string{pastDone.ID, pastOpen.ID, futureDone.ID, rescan.ID})

	// Reminders for the deleted events were cancelled.
	assert.Len(t, env.reminders.cancelledIDs(), 2)
}

func TestVerifyZeroTreatments(t *testing.T) {
	env := newTestEnv(t, testNow)
	plant := env.addPlant(t, &types.Plant{Name: "Bed", Type: types.PlantMixed})
	day := startOfDay(testNow)

	seedEvent(t, env, &types.CareEvent{
		PlantID: plant.ID, Type: types.EventTreatment, Date: day.AddDate(0, 0, -5),
		ConditionName: "Aphids (Infested)", Completed: true,
	})
	seedEvent(t, env, &types.CareEvent{
		PlantID: plant.ID, Type: types.EventTreatment, Date: day.AddDate(0, 0, 2),
		ConditionName: "Aphids (Infested)",
	})
	watering := seedEvent(t, env, &types.CareEvent{
		PlantID: plant.ID, Type: types.EventWatering, Date: day.AddDate(0, 0, 1),
	})

	deleted, err := env.engine.VerifyZeroTreatments(context.Background(), plant.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	events := env.events(t, plant.ID)
	require.Len(t, events, 1)
	assert.Equal(t, watering.ID, events[0].ID)
}

func TestTaskSignature(t *testing.T) {
	tests := []struct {
		notes       string
		wantToken   string
		wantOrdinal int
	}{
		{"Spray neem oil solution. Mix and spray.", "spray", 0},
		{"URGENT: Spray neem oil solution. Mix and spray.", "spray", 0},
		{"Follow-up #1: Spray neem oil solution. Repeat.", "spray", 1},
		{"Follow-up #2: Apply Bt spray.", "apply", 2},
		{"  URGENT: Remove bored fruit.", "remove", 0},
		{"", "", 0},
	}
	for _, tc := range tests {
		token, ordinal := taskSignature(tc.notes)
		assert.Equal(t, tc.wantToken, token, tc.notes)
		assert.Equal(t, tc.wantOrdinal, ordinal, tc.notes)
	}
}

func TestLeadingToken(t *testing.T) {
	assert.Equal(t, "spray", leadingToken("Spray neem oil"))
	assert.Equal(t, "hang", leadingToken("  Hang yellow traps"))
	assert.Equal(t, "", leadingToken("..."))
}

func TestRunDedupPasses_Idempotent(t *testing.T) {
	env := newTestEnv(t, testNow)
	plant := env.addPlant(t, &types.Plant{Name: "Bed", Type: types.PlantMixed})
	ctx := context.Background()
	day := startOfDay(testNow)

	for i := 0; i < 3; i++ {
		seedEvent(t, env, &types.CareEvent{
			PlantID: plant.ID, Type: types.EventWatering,
			Date: atHour(day, 9+i).Add(time.Duration(i) * time.Minute),
		})
	}

	require.NoError(t, env.engine.runDedupPasses(ctx, plant.ID))
	require.Len(t, env.events(t, plant.ID), 1)

	require.NoError(t, env.engine.runDedupPasses(ctx, plant.ID))
	assert.Len(t, env.events(t, plant.ID), 1)
}
