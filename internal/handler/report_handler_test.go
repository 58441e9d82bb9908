package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attachment-portal-api/internal/models"
	appErrors "github.com/noah-isme/attachment-portal-api/pkg/errors"
)

type reportServiceMock struct {
	file       *models.ReportFile
	err        error
	history    []models.ReportHistory
	historyErr error
	lastType   models.ReportType
	lastParams models.ReportParams
}

func (m *reportServiceMock) Types() []models.ReportTypeInfo { return models.ReportTypes }

func (m *reportServiceMock) Generate(_ context.Context, _ models.Actor, reportType models.ReportType, params models.ReportParams) (*models.ReportFile, error) {
	m.lastType = reportType
	m.lastParams = params
	return m.file, m.err
}

func (m *reportServiceMock) History(context.Context, models.Actor) ([]models.ReportHistory, error) {
	return m.history, m.historyErr
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestReportHandlerDownloadStreamsFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &reportServiceMock{file: &models.ReportFile{
		Filename:    "attachments_report.csv",
		ContentType: "text/csv",
		Content:     []byte("a,b\n1,2\n"),
	}}
	handler := NewReportHandler(svc)

	c, rec := newGinContext(http.MethodGet, "/reports/download/attachments/?format=CSV&status=approved&start_date=2024-01-01&end_date=2024-12-31", nil)
	c.Params = gin.Params{{Key: "type", Value: "attachments"}}
	withActor(c, "admin-1", models.RoleAdmin)

	handler.Download(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="attachments_report.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, "a,b\n1,2\n", rec.Body.String())
	assert.Equal(t, models.ReportAttachments, svc.lastType)
	assert.Equal(t, models.ReportParams{StartDate: "2024-01-01", EndDate: "2024-12-31", Status: "approved", Format: models.ReportFormatCSV}, svc.lastParams)
}

func TestReportHandlerDownloadInvalidType(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(&reportServiceMock{err: appErrors.Clone(appErrors.ErrUnsupportedReportType, "")})

	c, rec := newGinContext(http.MethodGet, "/reports/download/grades/", nil)
	c.Params = gin.Params{{Key: "type", Value: "grades"}}
	withActor(c, "admin-1", models.RoleAdmin)

	handler.Download(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid report type", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
}

func TestReportHandlerDownloadForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(&reportServiceMock{err: appErrors.Clone(appErrors.ErrForbidden, "")})

	c, rec := newGinContext(http.MethodGet, "/reports/download/students/", nil)
	c.Params = gin.Params{{Key: "type", Value: "students"}}
	withActor(c, "student-1", models.RoleStudent)

	handler.Download(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestReportHandlerIndex(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(&reportServiceMock{})

	c, rec := newGinContext(http.MethodGet, "/reports/", nil)
	withActor(c, "admin-1", models.RoleAdmin)

	handler.Index(c)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	types, ok := envelope.Data["types"].([]interface{})
	require.True(t, ok)
	assert.Len(t, types, len(models.ReportTypes))
	history, ok := envelope.Data["history"].([]interface{})
	require.True(t, ok)
	assert.Empty(t, history)
}
