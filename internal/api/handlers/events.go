package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"plantcare/internal/api"
	"plantcare/internal/types"
)

// maxCalendarRangeDays bounds a single calendar query.
const maxCalendarRangeDays = 92

// EventStore is the event read contract for the calendar.
type EventStore interface {
	GetCareEventsInRange(ctx context.Context, start, end time.Time) ([]*types.CareEvent, error)
}

// EventCompleter marks care events done and applies their side effects.
type EventCompleter interface {
	CompleteEvent(ctx context.Context, eventID string) (*types.CareEvent, error)
}

// CalendarDay groups a day's events for the calendar response.
type CalendarDay struct {
	Date   string      `json:"date"`
	Events []EventView `json:"events"`
}

// EventHandler serves event completion and the cross-plant care calendar.
type EventHandler struct {
	store     EventStore
	completer EventCompleter
	logger    *slog.Logger
}

// NewEventHandler creates an EventHandler with the provided dependencies.
func NewEventHandler(store EventStore, completer EventCompleter, logger *slog.Logger) *EventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventHandler{store: store, completer: completer, logger: logger}
}

// RegisterRoutes mounts event routes on the provided chi.Router.
func (h *EventHandler) RegisterRoutes(r chi.Router) {
	r.Route("/events", func(r chi.Router) {
		r.Post("/{id}/complete", h.Complete)
	})
	r.Get("/calendar", h.Calendar)
}

// Complete handles POST /v1/events/{id}/complete.
func (h *EventHandler) Complete(w http.ResponseWriter, r *http.Request) {
	ev, err := h.completer.CompleteEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.Error(w, r, err)
		return
	}
	api.JSON(w, r, http.StatusOK, api.APIResponse{
		Data: EventView{CareEvent: ev, DisplayType: ev.DisplayType()},
	})
}

// Calendar handles GET /v1/calendar?start=YYYY-MM-DD&end=YYYY-MM-DD. The end
// date is inclusive; events are grouped per calendar day.
func (h *EventHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseCalendarRange(r.URL.Query().Get("start"), r.URL.Query().Get("end"))
	if err != nil {
		api.Error(w, r, err)
		return
	}

	// The store range is half-open, so the inclusive end extends one day.
	events, err := h.store.GetCareEventsInRange(r.Context(), start, end.AddDate(0, 0, 1))
	if err != nil {
		api.Error(w, r, err)
		return
	}

	// Events arrive date-ordered; the day grouping preserves that order.
	var days []CalendarDay
	byDay := make(map[string]int)
	for _, ev := range events {
		key := ev.Day().Format("2006-01-02")
		idx, ok := byDay[key]
		if !ok {
			days = append(days, CalendarDay{Date: key})
			idx = len(days) - 1
			byDay[key] = idx
		}
		days[idx].Events = append(days[idx].Events,
			EventView{CareEvent: ev, DisplayType: ev.DisplayType()})
	}
	if days == nil {
		days = []CalendarDay{}
	}

	api.JSON(w, r, http.StatusOK, api.APIResponse{Data: days})
}

// parseCalendarRange validates the start and end query parameters.
func parseCalendarRange(startStr, endStr string) (time.Time, time.Time, error) {
	if startStr == "" || endStr == "" {
		return time.Time{}, time.Time{}, types.NewAppError(types.ErrCodeValidationInvalidRange,
			"start and end query parameters are required", nil)
	}
	start, err := time.ParseInLocation("2006-01-02", startStr, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, types.NewAppError(types.ErrCodeValidationInvalidRange,
			"start must be formatted as YYYY-MM-DD", nil)
	}
	end, err := time.ParseInLocation("2006-01-02", endStr, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, types.NewAppError(types.ErrCodeValidationInvalidRange,
			"end must be formatted as YYYY-MM-DD", nil)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, types.NewAppError(types.ErrCodeValidationInvalidRange,
			"end must not be before start", nil)
	}
	if end.Sub(start) > maxCalendarRangeDays*24*time.Hour {
		return time.Time{}, time.Time{}, types.NewAppError(types.ErrCodeValidationInvalidRange,
			"date range is too large", nil)
	}
	return start, end, nil
}
