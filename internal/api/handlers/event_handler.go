package handlers

import (
	"net/http"
	"strconv"

	"github.com/isdelr/marketplace-be/internal/services"
)

// EventHandler handles HTTP requests related to marketplace activity.
type EventHandler struct {
	service services.EventServiceProvider
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(service services.EventServiceProvider) *EventHandler {
	return &EventHandler{service: service}
}

// GetRecent handles the request to get recent activity/events.
func (h *EventHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	// Invalid or missing limits fall back to the service default.
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	events, err := h.service.GetRecentEvents(r.Context(), limit)
	if err != nil {
		respondError(w, r, err, "", "Failed to retrieve events")
		return
	}
	writeJSON(w, http.StatusOK, events)
}
