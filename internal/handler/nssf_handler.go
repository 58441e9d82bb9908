package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attachment-portal-api/internal/models"
	"github.com/noah-isme/attachment-portal-api/internal/service"
	appErrors "github.com/noah-isme/attachment-portal-api/pkg/errors"
	"github.com/noah-isme/attachment-portal-api/pkg/response"
)

const (
	membershipCardField = "membership_card"
	returnFileField     = "file"
	monthLayout         = "2006-01"
)

type nssfService interface {
	GetOrCreateDetail(ctx context.Context, actor models.Actor) (*models.NSSFDetail, error)
	SubmitDetail(ctx context.Context, actor models.Actor, req models.SubmitNSSFDetailRequest, card *service.Upload) (*models.NSSFDetail, error)
	Verify(ctx context.Context, actor models.Actor, detailID string) (*models.NSSFDetailView, error)
	Unverify(ctx context.Context, actor models.Actor, detailID string) (*models.NSSFDetailView, error)
	ListDetails(ctx context.Context, actor models.Actor, filter models.NSSFDetailFilter) ([]models.NSSFDetailView, *models.Pagination, error)
	SubmitReturn(ctx context.Context, actor models.Actor, req models.SubmitNSSFReturnRequest, file *service.Upload) (*models.NSSFReturnView, error)
	ListReturns(ctx context.Context, actor models.Actor, filter models.NSSFReturnFilter) ([]models.NSSFReturnView, *models.Pagination, error)
	GetReturn(ctx context.Context, actor models.Actor, id string) (*models.NSSFReturnView, error)
	ProcessReturn(ctx context.Context, actor models.Actor, id string, req models.ProcessNSSFReturnRequest) (*models.NSSFReturnView, error)
	ApproveReturn(ctx context.Context, actor models.Actor, id string, req models.ProcessNSSFReturnRequest) (*models.NSSFReturnView, error)
	RejectReturn(ctx context.Context, actor models.Actor, id string, req models.ProcessNSSFReturnRequest) (*models.NSSFReturnView, error)
	UnprocessReturn(ctx context.Context, actor models.Actor, id string) (*models.NSSFReturnView, error)
}

// NSSFHandler exposes student NSSF details and company monthly returns.
type NSSFHandler struct {
	service nssfService
}

// NewNSSFHandler constructs the handler.
func NewNSSFHandler(svc nssfService) *NSSFHandler {
	return &NSSFHandler{service: svc}
}

// GetDetail godoc
// @Summary Get own NSSF details
// @Description Returns the student's NSSF record, creating an empty one on first access
// @Tags NSSF
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 428 {object} response.Envelope
// @Security BearerAuth
// @Router /nssf/details/ [get]
func (h *NSSFHandler) GetDetail(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	detail, err := h.service.GetOrCreateDetail(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// SubmitDetail godoc
// @Summary Submit NSSF details
// @Description Multipart form with nssf_number and an optional membership_card (pdf, jpg, jpeg, png)
// @Tags NSSF
// @Accept mpfd
// @Produce json
// @Param nssf_number formData string true "NSSF number"
// @Param membership_card formData file false "Membership card"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /nssf/details/update/ [post]
func (h *NSSFHandler) SubmitDetail(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	req := models.SubmitNSSFDetailRequest{NSSFNumber: strings.TrimSpace(c.PostForm("nssf_number"))}
	card, closeCard, err := formUpload(c, membershipCardField)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeCard()

	detail, err := h.service.SubmitDetail(c.Request.Context(), actor, req, card)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// ListDetails godoc
// @Summary List NSSF details
// @Tags NSSF
// @Produce json
// @Param verified query bool false "Verification filter"
// @Param search query string false "Student id, name or NSSF number"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /nssf/details/admin/ [get]
func (h *NSSFHandler) ListDetails(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	filter := models.NSSFDetailFilter{Search: strings.TrimSpace(c.Query("search"))}
	filter.Page, filter.PageSize = pageParams(c)
	if raw := c.Query("verified"); raw != "" {
		if verified, err := strconv.ParseBool(raw); err == nil {
			filter.Verified = &verified
		}
	}
	items, pagination, err := h.service.ListDetails(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	if items == nil {
		items = []models.NSSFDetailView{}
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Verify godoc
// @Summary Verify NSSF details
// @Tags NSSF
// @Produce json
// @Param id path string true "Detail ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /nssf/details/{id}/verify/ [post]
func (h *NSSFHandler) Verify(c *gin.Context) {
	h.detailAction(c, h.service.Verify)
}

// Unverify godoc
// @Summary Revoke NSSF verification
// @Tags NSSF
// @Produce json
// @Param id path string true "Detail ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /nssf/details/{id}/unverify/ [post]
func (h *NSSFHandler) Unverify(c *gin.Context) {
	h.detailAction(c, h.service.Unverify)
}

func (h *NSSFHandler) detailAction(c *gin.Context, action func(context.Context, models.Actor, string) (*models.NSSFDetailView, error)) {
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

// ListReturns godoc
// @Summary List NSSF returns
// @Description Companies see their own returns, admins all
// @Tags NSSF
// @Produce json
// @Param status query string false "pending, processing, approved or rejected"
// @Param month_from query string false "YYYY-MM"
// @Param month_to query string false "YYYY-MM"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /nssf/returns/ [get]
func (h *NSSFHandler) ListReturns(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var filter models.NSSFReturnFilter
	filter.Page, filter.PageSize = pageParams(c)
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		s := models.NSSFReturnStatus(status)
		filter.Status = &s
	}
	var err error
	if filter.MonthFrom, err = parseMonthQuery(c, "month_from"); err != nil {
		response.Error(c, err)
		return
	}
	if filter.MonthTo, err = parseMonthQuery(c, "month_to"); err != nil {
		response.Error(c, err)
		return
	}

	items, pagination, err := h.service.ListReturns(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	if items == nil {
		items = []models.NSSFReturnView{}
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// SubmitReturn godoc
// @Summary Submit NSSF return
// @Description Multipart form with month (YYYY-MM) and file (pdf, xlsx, xls, csv). One return per company and month.
// @Tags NSSF
// @Accept mpfd
// @Produce json
// @Param month formData string true "Reporting month"
// @Param file formData file true "Return file"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /nssf/returns/create/ [post]
func (h *NSSFHandler) SubmitReturn(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	req := models.SubmitNSSFReturnRequest{Month: strings.TrimSpace(c.PostForm("month"))}
	file, closeFile, err := formUpload(c, returnFileField)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeFile()
	if file == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "return file is required"))
		return
	}

	view, err := h.service.SubmitReturn(c.Request.Context(), actor, req, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, view)
}

// GetReturn godoc
// @Summary Get NSSF return
// @Tags NSSF
// @Produce json
// @Param id path string true "Return ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /nssf/returns/{id}/ [get]
func (h *NSSFHandler) GetReturn(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	view, err := h.service.GetReturn(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// ProcessReturn godoc
// @Summary Mark return processing
// @Tags NSSF
// @Accept json
// @Produce json
// @Param id path string true "Return ID"
// @Param payload body models.ProcessNSSFReturnRequest false "Notes"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /nssf/returns/{id}/process/ [post]
func (h *NSSFHandler) ProcessReturn(c *gin.Context) {
	h.returnAction(c, h.service.ProcessReturn)
}

// ApproveReturn godoc
// @Summary Approve return
// @Description The company is notified
// @Tags NSSF
// @Accept json
// @Produce json
// @Param id path string true "Return ID"
// @Param payload body models.ProcessNSSFReturnRequest false "Notes"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /nssf/returns/{id}/approve/ [post]
func (h *NSSFHandler) ApproveReturn(c *gin.Context) {
	h.returnAction(c, h.service.ApproveReturn)
}

// RejectReturn godoc
// @Summary Reject return
// @Description The company is notified
// @Tags NSSF
// @Accept json
// @Produce json
// @Param id path string true "Return ID"
// @Param payload body models.ProcessNSSFReturnRequest false "Notes"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /nssf/returns/{id}/reject/ [post]
func (h *NSSFHandler) RejectReturn(c *gin.Context) {
	h.returnAction(c, h.service.RejectReturn)
}

// UnprocessReturn godoc
// @Summary Reset return to pending
// @Tags NSSF
// @Produce json
// @Param id path string true "Return ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /nssf/returns/{id}/unprocess/ [post]
func (h *NSSFHandler) UnprocessReturn(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	view, err := h.service.UnprocessReturn(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

func (h *NSSFHandler) returnAction(c *gin.Context, action func(context.Context, models.Actor, string, models.ProcessNSSFReturnRequest) (*models.NSSFReturnView, error)) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req models.ProcessNSSFReturnRequest
	if !bindOptionalJSON(c, &req, "invalid processing payload") {
		return
	}
	view, err := action(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

func parseMonthQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	month, err := time.Parse(monthLayout, raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, key+" must be YYYY-MM")
	}
	return &month, nil
}
