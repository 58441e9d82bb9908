package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attachment-portal-api/internal/models"
	"github.com/noah-isme/attachment-portal-api/pkg/response"
)

type attachmentService interface {
	Create(ctx context.Context, actor models.Actor, req models.CreateAttachmentRequest) (*models.AttachmentDetail, error)
	Get(ctx context.Context, actor models.Actor, id string) (*models.AttachmentDetail, error)
	Update(ctx context.Context, actor models.Actor, id string, req models.UpdateAttachmentRequest) (*models.AttachmentDetail, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
	List(ctx context.Context, actor models.Actor, filter models.AttachmentFilter) ([]models.AttachmentDetail, *models.Pagination, error)
	Approve(ctx context.Context, actor models.Actor, id string) (*models.AttachmentDetail, error)
	Reject(ctx context.Context, actor models.Actor, id string) (*models.AttachmentDetail, error)
	Complete(ctx context.Context, actor models.Actor, id string) (*models.AttachmentDetail, error)
	Stats(ctx context.Context, actor models.Actor) (*models.AttachmentStats, error)
}

// AttachmentHandler exposes attachment placement endpoints.
type AttachmentHandler struct {
	service attachmentService
}

// NewAttachmentHandler constructs the handler.
func NewAttachmentHandler(svc attachmentService) *AttachmentHandler {
	return &AttachmentHandler{service: svc}
}

// List godoc
// @Summary List attachments
// @Description Students see their own, companies those they host, admins all
// @Tags Attachments
// @Produce json
// @Param status query string false "pending, approved, rejected or completed"
// @Param q query string false "Search company, student or supervisor"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 428 {object} response.Envelope
// @Security BearerAuth
// @Router /attachments/ [get]
func (h *AttachmentHandler) List(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var filter models.AttachmentFilter
	filter.Page, filter.PageSize = pageParams(c)
	filter.Search = strings.TrimSpace(c.Query("q"))
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		s := models.AttachmentStatus(status)
		filter.Status = &s
	}

	items, pagination, err := h.service.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	if items == nil {
		items = []models.AttachmentDetail{}
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Create godoc
// @Summary Create attachment
// @Description Students create their own placement; admins pass student_profile_id
// @Tags Attachments
// @Accept json
// @Produce json
// @Param payload body models.CreateAttachmentRequest true "Attachment"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 428 {object} response.Envelope
// @Security BearerAuth
// @Router /attachments/create/ [post]
func (h *AttachmentHandler) Create(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req models.CreateAttachmentRequest
	if !bindJSON(c, &req, "invalid attachment payload") {
		return
	}
	detail, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, detail)
}

// Get godoc
// @Summary Get attachment
// @Tags Attachments
// @Produce json
// @Param id path string true "Attachment ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /attachments/{id}/ [get]
func (h *AttachmentHandler) Get(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	detail, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Update godoc
// @Summary Update attachment
// @Description Edits dates, company and supervisor. Status changes go through the review endpoints.
// @Tags Attachments
// @Accept json
// @Produce json
// @Param id path string true "Attachment ID"
// @Param payload body models.UpdateAttachmentRequest true "Attachment"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /attachments/{id}/update/ [put]
func (h *AttachmentHandler) Update(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req models.UpdateAttachmentRequest
	if !bindJSON(c, &req, "invalid attachment payload") {
		return
	}
	detail, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Delete godoc
// @Summary Delete attachment
// @Tags Attachments
// @Param id path string true "Attachment ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /attachments/{id}/delete/ [delete]
func (h *AttachmentHandler) Delete(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Approve godoc
// @Summary Approve attachment
// @Description Host company or admin approves; the student is notified
// @Tags Attachments
// @Produce json
// @Param id path string true "Attachment ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /attachments/{id}/approve/ [post]
func (h *AttachmentHandler) Approve(c *gin.Context) {
	h.review(c, h.service.Approve)
}

// Reject godoc
// @Summary Reject attachment
// @Tags Attachments
// @Produce json
// @Param id path string true "Attachment ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /attachments/{id}/reject/ [post]
func (h *AttachmentHandler) Reject(c *gin.Context) {
	h.review(c, h.service.Reject)
}

// Complete godoc
// @Summary Complete attachment
// @Description Marks an approved attachment completed once its end date has passed
// @Tags Attachments
// @Produce json
// @Param id path string true "Attachment ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /attachments/{id}/complete/ [post]
func (h *AttachmentHandler) Complete(c *gin.Context) {
	h.review(c, h.service.Complete)
}

func (h *AttachmentHandler) review(c *gin.Context, action func(context.Context, models.Actor, string) (*models.AttachmentDetail, error)) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	detail, err := action(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Stats godoc
// @Summary Attachment statistics
// @Description Counts by status, start month and company
// @Tags Attachments
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attachments/stats/ [get]
func (h *AttachmentHandler) Stats(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	stats, err := h.service.Stats(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
