package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/folio-org/mod-rtac-cache-sub000/internal/cache"
	"github.com/folio-org/mod-rtac-cache-sub000/pkg/errors"
	"github.com/folio-org/mod-rtac-cache-sub000/pkg/response"
)

// AvailabilityHandler serves the denormalized availability rows of an instance.
type AvailabilityHandler struct {
	store *cache.Store
}

// NewAvailabilityHandler constructs an AvailabilityHandler.
func NewAvailabilityHandler(store *cache.Store) *AvailabilityHandler {
	return &AvailabilityHandler{store: store}
}

// GET /rtac-cache/availability/:instanceId
func (h *AvailabilityHandler) ByInstance(c *gin.Context) {
	instanceID := c.Param("instanceId")
	if instanceID == "" {
		response.Error(c, errors.NewBadRequest("instanceId is required"))
		return
	}

	records, err := h.store.FindAllByInstance(requestContext(c), instanceID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"instanceId": instanceID,
		"records":    records,
	})
}
