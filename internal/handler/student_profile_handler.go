package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attachment-portal-api/internal/models"
	"github.com/noah-isme/attachment-portal-api/internal/service"
	"github.com/noah-isme/attachment-portal-api/pkg/response"
)

// StudentProfileHandler exposes student profile endpoints.
type StudentProfileHandler struct {
	service *service.StudentProfileService
}

// NewStudentProfileHandler constructs the handler.
func NewStudentProfileHandler(svc *service.StudentProfileService) *StudentProfileHandler {
	return &StudentProfileHandler{service: svc}
}

// List godoc
// @Summary List student profiles
// @Tags Students
// @Produce json
// @Param department query string false "Department"
// @Param search query string false "Student id, username or name"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attachments/students/ [get]
func (h *StudentProfileHandler) List(c *gin.Context) {
	filter := models.StudentProfileFilter{
		Department: strings.TrimSpace(c.Query("department")),
		Search:     strings.TrimSpace(c.Query("search")),
	}
	filter.Page, filter.PageSize = pageParams(c)
	items, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	if items == nil {
		items = []models.StudentProfileDetail{}
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Create godoc
// @Summary Create student profile
// @Description Admin creates a profile for a student user
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body models.StudentProfileRequest true "Profile"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /attachments/students/create/ [post]
func (h *StudentProfileHandler) Create(c *gin.Context) {
	var req models.StudentProfileRequest
	if !bindJSON(c, &req, "invalid student profile payload") {
		return
	}
	profile, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, profile)
}

// GetOwn godoc
// @Summary Get own student profile
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 428 {object} response.Envelope
// @Security BearerAuth
// @Router /attachments/student/profile/ [get]
func (h *StudentProfileHandler) GetOwn(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	profile, err := h.service.GetOwn(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// CreateOwn godoc
// @Summary Create own student profile
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body models.StudentProfileRequest true "Profile"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /attachments/student/profile/create/ [post]
func (h *StudentProfileHandler) CreateOwn(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req models.StudentProfileRequest
	if !bindJSON(c, &req, "invalid student profile payload") {
		return
	}
	profile, err := h.service.CreateOwn(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, profile)
}

// Update godoc
// @Summary Update student profile
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Profile ID"
// @Param payload body models.StudentProfileRequest true "Profile"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /attachments/students/{id}/update/ [put]
func (h *StudentProfileHandler) Update(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req models.StudentProfileRequest
	if !bindJSON(c, &req, "invalid student profile payload") {
		return
	}
	profile, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// Delete godoc
// @Summary Delete student profile
// @Tags Students
// @Param id path string true "Profile ID"
// @Success 204 {object} response.Envelope
// @Security BearerAuth
// @Router /attachments/students/{id}/delete/ [delete]
func (h *StudentProfileHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
