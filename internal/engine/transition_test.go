package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantcare/internal/types"
)

func applyDetection(t *testing.T, env *testEnv, plantID string, detections ...types.Detection) *TransitionResult {
	t.Helper()
	res, err := env.engine.ApplyDetection(context.Background(), plantID, detections)
	require.NoError(t, err)
	return res
}

func TestApplyDetection_NoDetections(t *testing.T) {
	env := newTestEnv(t, testNow)
	plant := env.addPlant(t, &types.Plant{Name: "Okra", Type: types.PlantOkra})

	_, err := env.engine.ApplyDetection(context.Background(), plant.ID, nil)
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeValidationNoDetections, appErr.Code)
}

func TestApplyDetection_PlantNotFound(t *testing.T) {
	env := newTestEnv(t, testNow)

	_, err := env.engine.ApplyDetection(context.Background(), "plt_missing",
		[]types.Detection{{ConditionName: types.HealthyConditionName}})
	assert.True(t, types.IsNotFound(err))
}

func TestApplyDetection_FirstScanDiseased(t *testing.T) {
	env := newTestEnv(t, testNow)
	plant := env.addPlant(t, &types.Plant{Name: "Roma", Type: types.PlantTomato})

	res := applyDetection(t, env, plant.ID,
		types.Detection{ConditionName: "Aphids (Infested)", Count: 3})

	assert.Equal(t, types.StateUnscanned, res.From)
	assert.Equal(t, types.StateDiseased, res.To)
	assert.Equal(t, "Aphids (Infested)", res.ToCondition)
	assert.Equal(t, []string{"Aphids (Infested)"}, res.TreatedConditions)

	got, err := env.store.GetPlant(context.Background(), plant.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StateDiseased, got.State())
	assert.Equal(t, "Aphids (Infested)", got.CurrentCondition)
	require.NotNil(t, got.LastScannedAt)
	assert.Equal(t, 3, got.ConditionCounts.CountFor("Aphids (Infested)"))

	events := env.events(t, plant.ID)
	assert.NotEmpty(t, eventsOfType(events, types.EventTreatment))
	assert.NotEmpty(t, eventsOfType(events, types.EventWatering))

	scans := eventsOfType(events, types.EventScan)
	var record *types.CareEvent
	for _, s := range scans {
		if s.Completed {
			record = s
		}
	}
	require.NotNil(t, record)
	assert.Equal(t, res.ScanEventID, record.ID)
	assert.Equal(t, "Aphids (Infested)", record.ConditionName)
	assert.Contains(t, record.Notes, "Aphids (Infested) x3")

	assert.Equal(t, []string{"unscanned->diseased"}, env.metrics.transitions)
}

func TestApplyDetection_FirstScanHealthy(t *testing.T) {
	env := newTestEnv(t, testNow)
	plant := env.addPlant(t, &types.Plant{Name: "Okra", Type: types.PlantOkra})

	res := applyDetection(t, env, plant.ID,
		types.Detection{ConditionName: types.HealthyConditionName})

	assert.Equal(t, types.StateUnscanned, res.From)
	assert.Equal(t, types.StateHealthy, res.To)
	assert.Empty(t, res.TreatedConditions)

	events := env.events(t, plant.ID)
	assert.Empty(t, eventsOfType(events, types.EventTreatment))
	assert.NotEmpty(t, eventsOfType(events, types.EventWatering))
}

func TestApplyDetection_BeneficialOnlyIsHealthy(t *testing.T) {
	env := newTestEnv(t, testNow)
	plant := env.addPlant(t, &types.Plant{Name: "Chili", Type: types.PlantChiliPepper})

	res := applyDetection(t, env, plant.ID,
		types.Detection{ConditionName: "Ladybug (Beneficial)", Count: 2})

	assert.Equal(t, types.StateHealthy, res.To)
	assert.Equal(t, types.HealthyConditionName, res.ToCondition)

	got, err := env.store.GetPlant(context.Background(), plant.ID)
	require.NoError(t, err)
	// The observation is still recorded in the breakdown.
	assert.Equal(t, 2, got.ConditionCounts.CountFor("Ladybug (Beneficial)"))
	assert.Empty(t, eventsOfType(env.events(t, plant.ID), types.EventTreatment))
}

func TestApplyDetection_Recovery(t *testing.T) {
	env := newTestEnv(t, testNow)
	plant := env.addPlant(t, &types.Plant{Name: "Roma", Type: types.PlantTomato})
	ctx := context.Background()

	applyDetection(t, env, plant.ID,
		types.Detection{ConditionName: "Early Blight (Diseased)", Count: 2})

	// One treatment was done before the plant recovered.
	treatments := eventsOfType(env.events(t, plant.ID), types.EventTreatment)
	require.NotEmpty(t, treatments)
	_, err := env.engine.CompleteEvent(ctx, treatments[0].ID)
	require.NoError(t, err)

	res := applyDetection(t, env, plant.ID,
		types.Detection{ConditionName: types.HealthyConditionName})

	assert.Equal(t, types.StateDiseased, res.From)
	assert.Equal(t, types.StateHealthy, res.To)
	assert.Equal(t, "Early Blight (Diseased)", res.FromCondition)

	// Recovery clears every treatment, the completed one included.
	events := env.events(t, plant.ID)
	assert.Empty(t, eventsOfType(events, types.EventTreatment))
	assert.NotEmpty(t, eventsOfType(events, types.EventWatering))

	got, err := env.store.GetPlant(ctx, plant.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StateHealthy, got.State())
}

func TestApplyDetection_ConditionChange(t *testing.T) {
	env := newTestEnv(t, testNow)
	plant := env.addPlant(t, &types.Plant{Name: "Bed", Type: types.PlantMixed})
	ctx := context.Background()

	applyDetection(t, env, plant.ID,
		types.Detection{ConditionName: "Aphids (Infested)", Count: 2})

	// A completed treatment from the old diagnosis stays as history.
	treatments := eventsOfType(env.events(t, plant.ID), types.EventTreatment)
	require.NotEmpty(t, treatments)
	done, err := env.engine.CompleteEvent(ctx, treatments[0].ID)
	require.NoError(t, err)

	res := applyDetection(t, env, plant.ID,
		types.Detection{ConditionName: "Leaf Spot (Diseased)", Count: 1})

	assert.Equal(t, types.StateDiseased, res.From)
	assert.Equal(t, types.StateDiseased, res.To)
	assert.Equal(t, "Aphids (Infested)", res.FromCondition)
	assert.Equal(t, "Leaf Spot (Diseased)", res.ToCondition)

	var keptCompleted bool
	for _, ev := range eventsOfType(env.events(t, plant.ID), types.EventTreatment) {
		if ev.ID == done.ID {
			keptCompleted = true
			continue
		}
		// Every live treatment belongs to the new diagnosis.
		assert.Equal(t, "Leaf Spot (Diseased)", ev.ConditionName)
	}
	assert.True(t, keptCompleted)
}

func TestApplyDetection_UnchangedDiagnosisConverges(t *testing.T) {
	env := newTestEnv(t, testNow)
	plant := env.addPlant(t, &types.Plant{Name: "Bed", Type: types.PlantMixed})

	applyDetection(t, env, plant.ID,
		types.Detection{ConditionName: "Powdery Mildew (Diseased)", Count: 2})
	first := env.events(t, plant.ID)

	applyDetection(t, env, plant.ID,
		types.Detection{ConditionName: "Powdery Mildew (Diseased)", Count: 2})
	second := env.events(t, plant.ID)

	// The schedule does not grow; only the scan record is added.
	scanDelta := len(eventsOfType(second, types.EventScan)) - len(eventsOfType(first, types.EventScan))
	assert.Equal(t, 1, scanDelta)
	assert.Equal(t, len(first)+scanDelta, len(second))
	assert.Len(t, eventsOfType(second, types.EventTreatment),
		len(eventsOfType(first, types.EventTreatment)))
}

func TestApplyDetection_HealthyRescanKeepsScanHistory(t *testing.T) {
	env := newTestEnv(t, testNow)
	plant := env.addPlant(t, &types.Plant{Name: "Okra", Type: types.PlantOkra})

	applyDetection(t, env, plant.ID,
		types.Detection{ConditionName: types.HealthyConditionName})
	res := applyDetection(t, env, plant.ID,
		types.Detection{ConditionName: types.HealthyConditionName})

	assert.Equal(t, types.StateHealthy, res.From)
	assert.Equal(t, types.StateHealthy, res.To)
	assert.Greater(t, res.CancelledEvents, 0)

	completedScans := 0
	pendingRescans := 0
	for _, ev := range eventsOfType(env.events(t, plant.ID), types.EventScan) {
		if ev.Completed {
			completedScans++
		} else {
			pendingRescans++
		}
	}
	assert.Equal(t, 2, completedScans)
	assert.Equal(t, 1, pendingRescans)
}

func TestApplyDetection_MultipleConditions(t *testing.T) {
	env := newTestEnv(t, testNow)
	plant := env.addPlant(t, &types.Plant{Name: "Group Bed", Type: types.PlantMixed})

	res := applyDetection(t, env, plant.ID,
		types.Detection{ConditionName: "Whiteflies (Infested)", Count: 2},
		types.Detection{ConditionName: "Aphids (Infested)", Count: 3},
		types.Detection{ConditionName: "Ladybug (Beneficial)", Count: 1},
	)

	// Treatable conditions outrank beneficials; ties break lexicographically.
	assert.Equal(t, "Aphids (Infested)", res.ToCondition)
	assert.Equal(t, []string{"Aphids (Infested)", "Whiteflies (Infested)"}, res.TreatedConditions)

	byCondition := make(map[string]int)
	for _, ev := range eventsOfType(env.events(t, plant.ID), types.EventTreatment) {
		byCondition[ev.ConditionName]++
	}
	assert.Greater(t, byCondition["Aphids (Infested)"], 0)
	assert.Greater(t, byCondition["Whiteflies (Infested)"], 0)
	assert.Zero(t, byCondition["Ladybug (Beneficial)"])
}

func TestApplyDetection_AggregatesRepeatedLabels(t *testing.T) {
	env := newTestEnv(t, testNow)
	plant := env.addPlant(t, &types.Plant{Name: "Bed", Type: types.PlantMixed})

	applyDetection(t, env, plant.ID,
		types.Detection{ConditionName: "Aphids (Infested)", Count: 2},
		types.Detection{ConditionName: "Aphids (Infested)"},
	)

	got, err := env.store.GetPlant(context.Background(), plant.ID)
	require.NoError(t, err)
	// A missing count defaults to one plant.
	assert.Equal(t, 3, got.ConditionCounts.CountFor("Aphids (Infested)"))
}

func TestApplyDetection_ReminderOutageDoesNotBlock(t *testing.T) {
	env := newTestEnv(t, testNow)
	env.reminders.scheduleErr = assert.AnError
	env.reminders.cancelErr = assert.AnError
	plant := env.addPlant(t, &types.Plant{Name: "Okra", Type: types.PlantOkra})

	res := applyDetection(t, env, plant.ID,
		types.Detection{ConditionName: "Aphids (Infested)", Count: 1})

	require.NotNil(t, res)
	assert.NotEmpty(t, env.events(t, plant.ID))
	assert.Greater(t, env.metrics.reminderFailures, 0)
}
