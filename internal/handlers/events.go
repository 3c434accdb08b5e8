package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/folio-org/mod-rtac-cache-sub000/internal/events"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/middleware"
	"github.com/folio-org/mod-rtac-cache-sub000/pkg/errors"
	"github.com/folio-org/mod-rtac-cache-sub000/pkg/response"
)

// EventsHandler ingests upstream change events and applies them to the read
// model synchronously.
type EventsHandler struct {
	dispatcher *events.Dispatcher
}

// NewEventsHandler constructs an EventsHandler.
func NewEventsHandler(dispatcher *events.Dispatcher) *EventsHandler {
	return &EventsHandler{dispatcher: dispatcher}
}

// POST /rtac-cache/events
func (h *EventsHandler) Ingest(c *gin.Context) {
	var evt events.Event
	if err := c.ShouldBindJSON(&evt); err != nil {
		response.Error(c, errors.NewBadRequest("invalid event payload"))
		return
	}
	if evt.EntityType == "" || evt.Action == "" {
		response.Error(c, errors.NewBadRequest("entityType and action are required"))
		return
	}
	if evt.TenantID == "" {
		evt.TenantID = middleware.TenantFrom(c)
	}

	if err := h.dispatcher.Dispatch(requestContext(c), evt); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"applied": true})
}
