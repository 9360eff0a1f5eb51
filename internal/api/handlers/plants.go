// Package handlers contains the HTTP handler implementations for the
// plantcare API: plant CRUD, detection submission, event completion, and the
// care calendar.
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"plantcare/internal/api"
	"plantcare/internal/engine"
	"plantcare/internal/types"
)

// --- Service Interfaces ---
//
// Defined locally following the handler injection pattern: handlers depend on
// abstractions so tests can substitute fakes without touching the concrete
// engine or store.

// PlantStore is the read/write data access contract for plant records.
type PlantStore interface {
	GetPlant(ctx context.Context, id string) (*types.Plant, error)
	ListPlants(ctx context.Context) ([]*types.Plant, error)
	AddPlant(ctx context.Context, p *types.Plant) error
	GetPlantCareEvents(ctx context.Context, plantID string) ([]*types.CareEvent, error)
}

// CareEngine is the care plan engine surface used by this handler.
type CareEngine interface {
	GenerateCarePlan(ctx context.Context, plantID string) error
	DeletePlant(ctx context.Context, plantID string) error
}

// DetectionSubmitter queues classifier detections for serialized processing.
type DetectionSubmitter interface {
	SubmitDetection(ctx context.Context, plantID string, detections []types.Detection) <-chan engine.DetectionOutcome
}

// --- Request/Response Models ---

// CreatePlantRequest is the request body for POST /v1/plants.
type CreatePlantRequest struct {
	Name                  string `json:"name" validate:"required,max=200"`
	Type                  string `json:"type" validate:"required"`
	WateringFrequencyDays int    `json:"watering_frequency_days" validate:"gte=0,lte=60"`
	Notes                 string `json:"notes,omitempty" validate:"max=2000"`
}

// DetectionInput is one classifier observation in a detection submission.
type DetectionInput struct {
	Condition  string  `json:"condition" validate:"required,max=100"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
	PlantType  string  `json:"plant_type,omitempty"`
	Count      int     `json:"count" validate:"gte=0"`
}

// SubmitDetectionsRequest is the request body for POST /v1/plants/{id}/detections.
type SubmitDetectionsRequest struct {
	Detections []DetectionInput `json:"detections" validate:"required,min=1,max=50,dive"`
}

// PlantDetail is the client-facing plant representation with derived fields.
type PlantDetail struct {
	*types.Plant
	State       types.PlantState `json:"state"`
	DisplayName string           `json:"display_name"`
}

// EventView is the client-facing event representation with the rendered
// display type.
type EventView struct {
	*types.CareEvent
	DisplayType string `json:"display_type"`
}

func newPlantDetail(p *types.Plant) PlantDetail {
	name := p.Name
	if p.IsGroup() {
		name = types.GroupDisplayName(p.Name, p.ConditionCounts)
	}
	return PlantDetail{Plant: p, State: p.State(), DisplayName: name}
}

func newEventViews(events []*types.CareEvent) []EventView {
	out := make([]EventView, 0, len(events))
	for _, ev := range events {
		out = append(out, EventView{CareEvent: ev, DisplayType: ev.DisplayType()})
	}
	return out
}

// --- Handler ---

// PlantHandler manages plant records and their detection submissions.
type PlantHandler struct {
	store     PlantStore
	engine    CareEngine
	detector  DetectionSubmitter
	validator *api.Validator
	logger    *slog.Logger

	// confidenceThreshold gates classifier detections; observations below it
	// are dropped before they reach the engine.
	confidenceThreshold float64

	// detectionTimeout bounds how long a request waits for the worker.
	detectionTimeout time.Duration
}

// NewPlantHandler creates a PlantHandler with the provided dependencies.
func NewPlantHandler(
	store PlantStore,
	eng CareEngine,
	detector DetectionSubmitter,
	v *api.Validator,
	logger *slog.Logger,
	confidenceThreshold float64,
) *PlantHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlantHandler{
		store:               store,
		engine:              eng,
		detector:            detector,
		validator:           v,
		logger:              logger,
		confidenceThreshold: confidenceThreshold,
		detectionTimeout:    30 * time.Second,
	}
}

// RegisterRoutes mounts plant routes on the provided chi.Router.
func (h *PlantHandler) RegisterRoutes(r chi.Router) {
	r.Route("/plants", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Delete("/", h.Delete)
			r.Post("/detections", h.SubmitDetections)
			r.Get("/events", h.ListEvents)
		})
	})
}

// Create handles POST /v1/plants. A fresh plant starts unscanned and receives
// its initial care plan immediately.
func (h *PlantHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePlantRequest
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		api.Error(w, r, err)
		return
	}

	plantType := types.PlantType(req.Type)
	if !plantType.Valid() {
		api.Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidType,
			"unknown plant type: "+req.Type, nil))
		return
	}

	plant := &types.Plant{
		ID:                    engine.NewPlantID(),
		Name:                  req.Name,
		Type:                  plantType,
		WateringFrequencyDays: req.WateringFrequencyDays,
		Notes:                 req.Notes,
	}
	if err := h.store.AddPlant(r.Context(), plant); err != nil {
		api.Error(w, r, err)
		return
	}

	if err := h.engine.GenerateCarePlan(r.Context(), plant.ID); err != nil {
		api.Error(w, r, err)
		return
	}

	created, err := h.store.GetPlant(r.Context(), plant.ID)
	if err != nil {
		api.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "plant created",
		"plant_id", plant.ID, "type", string(plant.Type))
	api.JSON(w, r, http.StatusCreated, api.APIResponse{Data: newPlantDetail(created)})
}

// List handles GET /v1/plants.
func (h *PlantHandler) List(w http.ResponseWriter, r *http.Request) {
	plants, err := h.store.ListPlants(r.Context())
	if err != nil {
		api.Error(w, r, err)
		return
	}
	details := make([]PlantDetail, 0, len(plants))
	for _, p := range plants {
		details = append(details, newPlantDetail(p))
	}
	api.JSON(w, r, http.StatusOK, api.APIResponse{Data: details})
}

// Get handles GET /v1/plants/{id}.
func (h *PlantHandler) Get(w http.ResponseWriter, r *http.Request) {
	plant, err := h.store.GetPlant(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.Error(w, r, err)
		return
	}
	api.JSON(w, r, http.StatusOK, api.APIResponse{Data: newPlantDetail(plant)})
}

// Delete handles DELETE /v1/plants/{id}. Events and pending reminders go
// with the plant.
func (h *PlantHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.engine.DeletePlant(r.Context(), id); err != nil {
		api.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListEvents handles GET /v1/plants/{id}/events. Optional query params
// filter the result: completed=true|false and type=<event type>.
func (h *PlantHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.store.GetPlant(r.Context(), id); err != nil {
		api.Error(w, r, err)
		return
	}
	events, err := h.store.GetPlantCareEvents(r.Context(), id)
	if err != nil {
		api.Error(w, r, err)
		return
	}

	if v := r.URL.Query().Get("completed"); v != "" {
		completed, err := strconv.ParseBool(v)
		if err != nil {
			api.Error(w, r, types.NewAppError(types.ErrCodeValidationBody,
				"completed must be true or false", err))
			return
		}
		filtered := events[:0]
		for _, ev := range events {
			if ev.Completed == completed {
				filtered = append(filtered, ev)
			}
		}
		events = filtered
	}
	if v := r.URL.Query().Get("type"); v != "" {
		et := types.EventType(v)
		switch et {
		case types.EventWatering, types.EventFertilize, types.EventInspect,
			types.EventPrune, types.EventScan, types.EventTreatment:
		default:
			api.Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidEvent,
				fmt.Sprintf("unknown event type %q", v), nil))
			return
		}
		filtered := events[:0]
		for _, ev := range events {
			if ev.Type == et {
				filtered = append(filtered, ev)
			}
		}
		events = filtered
	}

	api.JSON(w, r, http.StatusOK, api.APIResponse{Data: newEventViews(events)})
}

// SubmitDetections handles POST /v1/plants/{id}/detections. Detections below
// the confidence threshold are dropped; the rest are queued for the engine
// worker and the request waits for the transition result.
func (h *PlantHandler) SubmitDetections(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req SubmitDetectionsRequest
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		api.Error(w, r, err)
		return
	}

	accepted := make([]types.Detection, 0, len(req.Detections))
	for _, d := range req.Detections {
		if d.Confidence < h.confidenceThreshold {
			h.logger.InfoContext(r.Context(), "detection below confidence threshold",
				"plant_id", id,
				"condition", d.Condition,
				"confidence", d.Confidence,
			)
			continue
		}
		accepted = append(accepted, types.Detection{
			ConditionName: d.Condition,
			Confidence:    d.Confidence,
			PlantType:     d.PlantType,
			Count:         d.Count,
		})
	}
	if len(accepted) == 0 {
		api.Error(w, r, types.NewAppError(types.ErrCodeValidationNoDetections,
			"no detection met the confidence threshold", nil))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.detectionTimeout)
	defer cancel()

	outcome := <-h.detector.SubmitDetection(ctx, id, accepted)
	if outcome.Err != nil {
		api.Error(w, r, outcome.Err)
		return
	}
	api.JSON(w, r, http.StatusAccepted, api.APIResponse{Data: outcome.Result})
}
