package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attachment-portal-api/internal/dto"
	"github.com/noah-isme/attachment-portal-api/internal/models"
	appErrors "github.com/noah-isme/attachment-portal-api/pkg/errors"
	"github.com/noah-isme/attachment-portal-api/pkg/response"
)

type dashboardService interface {
	Dashboard(ctx context.Context, actor models.Actor) (*dto.DashboardResponse, bool, error)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Dashboard godoc
// @Summary Role-specific dashboard summary
// @Description Students see their attachments and NSSF status, companies their placements and returns, admins the portal totals
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /dashboard/ [get]
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	start := time.Now()
	summary, cacheHit, err := h.service.Dashboard(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := map[string]interface{}{
		"cache_hit":          cacheHit,
		"processing_time_ms": time.Since(start).Milliseconds(),
	}
	response.JSON(c, http.StatusOK, summary, nil, meta)
}
