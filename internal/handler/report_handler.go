package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attachment-portal-api/internal/models"
	appErrors "github.com/noah-isme/attachment-portal-api/pkg/errors"
	"github.com/noah-isme/attachment-portal-api/pkg/response"
)

type reportService interface {
	Types() []models.ReportTypeInfo
	Generate(ctx context.Context, actor models.Actor, reportType models.ReportType, params models.ReportParams) (*models.ReportFile, error)
	History(ctx context.Context, actor models.Actor) ([]models.ReportHistory, error)
}

// ReportHandler exposes report listing and downloads.
type ReportHandler struct {
	service reportService
}

// NewReportHandler constructs handler.
func NewReportHandler(svc reportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

type reportIndex struct {
	Types   []models.ReportTypeInfo `json:"types"`
	History []models.ReportHistory  `json:"history"`
}

// Index godoc
// @Summary Report types and recent history
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/ [get]
func (h *ReportHandler) Index(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	history, err := h.service.History(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	if history == nil {
		history = []models.ReportHistory{}
	}
	response.JSON(c, http.StatusOK, reportIndex{Types: h.service.Types(), History: history}, nil)
}

// Download godoc
// @Summary Download a report
// @Tags Reports
// @Produce application/pdf
// @Produce text/csv
// @Param type path string true "Report type" Enums(students, companies, attachments, nssf_returns)
// @Param format query string false "Output format" Enums(pdf, csv)
// @Param start_date query string false "Start date (YYYY-MM-DD)"
// @Param end_date query string false "End date (YYYY-MM-DD)"
// @Param status query string false "Status filter"
// @Success 200 {file} binary
// @Failure 400 {string} string "Invalid report type"
// @Security BearerAuth
// @Router /reports/download/{type}/ [get]
func (h *ReportHandler) Download(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	params := models.ReportParams{
		StartDate: strings.TrimSpace(c.Query("start_date")),
		EndDate:   strings.TrimSpace(c.Query("end_date")),
		Status:    strings.TrimSpace(c.Query("status")),
		Format:    models.ReportFormat(strings.ToLower(strings.TrimSpace(c.Query("format")))),
	}
	file, err := h.service.Generate(c.Request.Context(), actor, models.ReportType(c.Param("type")), params)
	if err != nil {
		if errors.Is(err, appErrors.ErrUnsupportedReportType) {
			c.String(http.StatusBadRequest, appErrors.ErrUnsupportedReportType.Message)
			return
		}
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
