package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantcare/internal/api"
	"plantcare/internal/engine"
	"plantcare/internal/knowledge"
	"plantcare/internal/store"
	"plantcare/internal/types"
)

var handlerTestNow = time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)

type nopReminders struct{}

func (nopReminders) ScheduleReminder(context.Context, types.ReminderMessage) error { return nil }
func (nopReminders) CancelReminder(context.Context, string) error                  { return nil }

// handlerEnv wires real engine internals behind the handlers so route tests
// exercise the full request path.
type handlerEnv struct {
	router *chi.Mux
	store  *store.Memory
	engine *engine.Engine
	worker *engine.Worker
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := types.FixedClock{T: handlerTestNow}
	st := store.NewMemory(clock)

	eng, err := engine.New(engine.Config{
		Store:     st,
		Knowledge: knowledge.Default(),
		Reminders: nopReminders{},
		Clock:     clock,
		Logger:    logger,
	})
	require.NoError(t, err)

	worker := engine.NewWorker(eng, logger, 8)
	t.Cleanup(worker.Close)

	plants := NewPlantHandler(st, eng, worker, api.NewValidator(), logger, 0.35)
	events := NewEventHandler(st, eng, logger)

	router := chi.NewRouter()
	router.Route("/v1", func(r chi.Router) {
		plants.RegisterRoutes(r)
		events.RegisterRoutes(r)
	})
	return &handlerEnv{router: router, store: st, engine: eng, worker: worker}
}

func (env *handlerEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var resp struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Data
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error.Code
}

func (env *handlerEnv) createPlant(t *testing.T, name, plantType string) PlantDetail {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/v1/plants", CreatePlantRequest{
		Name: name, Type: plantType, WateringFrequencyDays: 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeData[PlantDetail](t, rec)
}

func TestCreatePlant(t *testing.T) {
	env := newHandlerEnv(t)

	detail := env.createPlant(t, "Roma", "tomato")
	assert.NotEmpty(t, detail.ID)
	assert.Equal(t, types.StateUnscanned, detail.State)
	assert.Equal(t, "Roma", detail.DisplayName)

	// The initial care plan exists right away.
	events, err := env.store.GetPlantCareEvents(context.Background(), detail.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, events)
}

func TestCreatePlant_Validation(t *testing.T) {
	env := newHandlerEnv(t)

	tests := []struct {
		name     string
		body     any
		wantCode string
	}{
		{
			name:     "missing name",
			body:     CreatePlantRequest{Type: "tomato"},
			wantCode: string(types.ErrCodeValidationMissingField),
		},
		{
			name:     "unknown type",
			body:     CreatePlantRequest{Name: "X", Type: "cactus"},
			wantCode: string(types.ErrCodeValidationInvalidType),
		},
		{
			name:     "malformed body",
			body:     nil,
			wantCode: string(types.ErrCodeValidationBody),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/v1/plants", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.wantCode, decodeErrorCode(t, rec))
		})
	}
}

func TestGetPlant_NotFound(t *testing.T) {
	env := newHandlerEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/plants/plt_missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, string(types.ErrCodeNotFoundPlant), decodeErrorCode(t, rec))
}

func TestListPlants(t *testing.T) {
	env := newHandlerEnv(t)
	env.createPlant(t, "Roma", "tomato")
	env.createPlant(t, "Okra Row", "okra")

	rec := env.do(t, http.MethodGet, "/v1/plants", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	plants := decodeData[[]PlantDetail](t, rec)
	assert.Len(t, plants, 2)
}

func TestDeletePlant(t *testing.T) {
	env := newHandlerEnv(t)
	detail := env.createPlant(t, "Roma", "tomato")

	rec := env.do(t, http.MethodDelete, "/v1/plants/"+detail.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/plants/"+detail.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitDetections(t *testing.T) {
	env := newHandlerEnv(t)
	detail := env.createPlant(t, "Roma", "tomato")

	rec := env.do(t, http.MethodPost, "/v1/plants/"+detail.ID+"/detections",
		SubmitDetectionsRequest{Detections: []DetectionInput{
			{Condition: "Aphids (Infested)", Confidence: 0.9, Count: 3},
		}})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	result := decodeData[engine.TransitionResult](t, rec)
	assert.Equal(t, types.StateUnscanned, result.From)
	assert.Equal(t, types.StateDiseased, result.To)
	assert.Equal(t, "Aphids (Infested)", result.ToCondition)

	got := env.do(t, http.MethodGet, "/v1/plants/"+detail.ID, nil)
	plant := decodeData[PlantDetail](t, got)
	assert.Equal(t, types.StateDiseased, plant.State)
}

func TestSubmitDetections_ConfidenceGate(t *testing.T) {
	env := newHandlerEnv(t)
	detail := env.createPlant(t, "Roma", "tomato")

	rec := env.do(t, http.MethodPost, "/v1/plants/"+detail.ID+"/detections",
		SubmitDetectionsRequest{Detections: []DetectionInput{
			{Condition: "Aphids (Infested)", Confidence: 0.1, Count: 3},
		}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(types.ErrCodeValidationNoDetections), decodeErrorCode(t, rec))

	// Below-threshold detections never touch the plant.
	got := env.do(t, http.MethodGet, "/v1/plants/"+detail.ID, nil)
	plant := decodeData[PlantDetail](t, got)
	assert.Equal(t, types.StateUnscanned, plant.State)
}

func TestSubmitDetections_GroupDisplayName(t *testing.T) {
	env := newHandlerEnv(t)
	detail := env.createPlant(t, "Tomato Bed", "tomato")

	rec := env.do(t, http.MethodPost, "/v1/plants/"+detail.ID+"/detections",
		SubmitDetectionsRequest{Detections: []DetectionInput{
			{Condition: "Aphids (Infested)", Confidence: 0.9, Count: 4},
			{Condition: "Healthy", Confidence: 0.9, Count: 2},
		}})
	require.Equal(t, http.StatusAccepted, rec.Code)

	got := env.do(t, http.MethodGet, "/v1/plants/"+detail.ID, nil)
	plant := decodeData[PlantDetail](t, got)
	assert.Equal(t, "Tomato Bed (6 plants, 2 conditions)", plant.DisplayName)
}

func TestListPlantEvents(t *testing.T) {
	env := newHandlerEnv(t)
	detail := env.createPlant(t, "Roma", "tomato")

	rec := env.do(t, http.MethodGet, "/v1/plants/"+detail.ID+"/events", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	events := decodeData[[]EventView](t, rec)
	assert.NotEmpty(t, events)
	for _, ev := range events {
		assert.NotEmpty(t, ev.DisplayType)
	}

	rec = env.do(t, http.MethodGet, "/v1/plants/plt_missing/events", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListPlantEvents_Filters(t *testing.T) {
	env := newHandlerEnv(t)
	detail := env.createPlant(t, "Roma", "tomato")

	rec := env.do(t, http.MethodGet, "/v1/plants/"+detail.ID+"/events?type=watering", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	waterings := decodeData[[]EventView](t, rec)
	require.NotEmpty(t, waterings)
	for _, ev := range waterings {
		assert.Equal(t, types.EventWatering, ev.Type)
	}

	// A fresh plan has no completed events yet.
	rec = env.do(t, http.MethodGet, "/v1/plants/"+detail.ID+"/events?completed=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeData[[]EventView](t, rec))

	rec = env.do(t, http.MethodGet, "/v1/plants/"+detail.ID+"/events?type=misting", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(types.ErrCodeValidationInvalidEvent), decodeErrorCode(t, rec))

	rec = env.do(t, http.MethodGet, "/v1/plants/"+detail.ID+"/events?completed=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
