package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attachment-portal-api/internal/models"
	"github.com/noah-isme/attachment-portal-api/internal/service"
	"github.com/noah-isme/attachment-portal-api/pkg/response"
)

// CompanyHandler exposes host company endpoints.
type CompanyHandler struct {
	service *service.CompanyService
}

// NewCompanyHandler constructs the handler.
func NewCompanyHandler(svc *service.CompanyService) *CompanyHandler {
	return &CompanyHandler{service: svc}
}

// List godoc
// @Summary List companies
// @Tags Companies
// @Produce json
// @Param search query string false "Name or NSSF number"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attachments/companies/ [get]
func (h *CompanyHandler) List(c *gin.Context) {
	filter := models.CompanyFilter{Search: strings.TrimSpace(c.Query("search"))}
	filter.Page, filter.PageSize = pageParams(c)
	items, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	if items == nil {
		items = []models.CompanyDetail{}
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Create godoc
// @Summary Create company
// @Description Admin creates a company for an existing company user
// @Tags Companies
// @Accept json
// @Produce json
// @Param payload body models.CompanyRequest true "Company"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /attachments/companies/create/ [post]
func (h *CompanyHandler) Create(c *gin.Context) {
	var req models.CompanyRequest
	if !bindJSON(c, &req, "invalid company payload") {
		return
	}
	company, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, company)
}

// GetOwn godoc
// @Summary Get own company
// @Tags Companies
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 428 {object} response.Envelope
// @Security BearerAuth
// @Router /attachments/companies/register/ [get]
func (h *CompanyHandler) GetOwn(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	company, err := h.service.GetOwn(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, company, nil)
}

// Register godoc
// @Summary Register own company
// @Description Creates or updates the calling company user's profile
// @Tags Companies
// @Accept json
// @Produce json
// @Param payload body models.CompanyRequest true "Company"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /attachments/companies/register/ [post]
func (h *CompanyHandler) Register(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req models.CompanyRequest
	if !bindJSON(c, &req, "invalid company payload") {
		return
	}
	company, err := h.service.SaveOwn(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, company, nil)
}

// Get godoc
// @Summary Get company
// @Tags Companies
// @Produce json
// @Param id path string true "Company ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /attachments/companies/{id}/ [get]
func (h *CompanyHandler) Get(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	company, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, company, nil)
}

// Update godoc
// @Summary Update company
// @Tags Companies
// @Accept json
// @Produce json
// @Param id path string true "Company ID"
// @Param payload body models.CompanyRequest true "Company"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /attachments/companies/{id}/update/ [put]
func (h *CompanyHandler) Update(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req models.CompanyRequest
	if !bindJSON(c, &req, "invalid company payload") {
		return
	}
	company, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, company, nil)
}

// Delete godoc
// @Summary Delete company
// @Description Removes the company with its attachments and returns
// @Tags Companies
// @Param id path string true "Company ID"
// @Success 204 {object} response.Envelope
// @Security BearerAuth
// @Router /attachments/companies/{id}/delete/ [delete]
func (h *CompanyHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
