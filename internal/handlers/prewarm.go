package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/folio-org/mod-rtac-cache-sub000/internal/middleware"
	"github.com/folio-org/mod-rtac-cache-sub000/internal/prewarm"
	"github.com/folio-org/mod-rtac-cache-sub000/pkg/response"
)

// PrewarmHandler exposes pre-warm job submission and status polling.
type PrewarmHandler struct {
	orch *prewarm.Orchestrator
}

// NewPrewarmHandler constructs a PrewarmHandler.
func NewPrewarmHandler(orch *prewarm.Orchestrator) *PrewarmHandler {
	return &PrewarmHandler{orch: orch}
}

type prewarmRequest struct {
	InstanceIDs []string `json:"instanceIds" validate:"required,min=1,dive,uuid"`
}

// POST /rtac-cache/prewarm
func (h *PrewarmHandler) Submit(c *gin.Context) {
	var req prewarmRequest
	if !bindAndValidate(c, &req) {
		return
	}

	job, err := h.orch.Submit(requestContext(c), middleware.TenantFrom(c), req.InstanceIDs)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusAccepted, job)
}

// GET /rtac-cache/prewarm/:id
func (h *PrewarmHandler) Status(c *gin.Context) {
	job, err := h.orch.GetStatus(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, job)
}

// GET /rtac-cache/prewarm
func (h *PrewarmHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	per, _ := strconv.Atoi(c.DefaultQuery("per_page", "50"))
	if page < 1 {
		page = 1
	}
	if per < 1 || per > 500 {
		per = 50
	}

	jobs, total, err := h.orch.ListJobs(requestContext(c), per, (page-1)*per)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, jobs, &response.Meta{Page: page, PerPage: per, Total: int(total)})
}
