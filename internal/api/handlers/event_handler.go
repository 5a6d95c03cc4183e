package handlers

import (
	"net/http"

	"github.com/isdelr/quill-be/internal/api/respond"
	"github.com/isdelr/quill-be/internal/models"
	"github.com/isdelr/quill-be/internal/services"
)

// EventHandler handles HTTP requests related to audit events.
type EventHandler struct {
	service services.EventServiceProvider
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(service services.EventServiceProvider) *EventHandler {
	return &EventHandler{service: service}
}

// GetRecent handles the request to get recent activity/events, newest first.
// Only limit applies; it is validated like any other page.
func (h *EventHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err == nil {
		page, err = services.NormalizePage(page, models.OrderNewest)
	}
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	events, err := h.service.GetRecentEvents(r.Context(), page.Limit)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, events)
}
