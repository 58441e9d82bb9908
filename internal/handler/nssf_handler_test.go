package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attachment-portal-api/internal/models"
	"github.com/noah-isme/attachment-portal-api/internal/service"
)

type fakeNSSFSrv struct {
	nssfService
	lastFilter  models.NSSFReturnFilter
	lastMonth   string
	lastFile    string
	lastContent string
	lastNotes   string
	lastID      string
}

func (f *fakeNSSFSrv) ListReturns(_ context.Context, _ models.Actor, filter models.NSSFReturnFilter) ([]models.NSSFReturnView, *models.Pagination, error) {
	f.lastFilter = filter
	return nil, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (f *fakeNSSFSrv) SubmitReturn(_ context.Context, _ models.Actor, req models.SubmitNSSFReturnRequest, file *service.Upload) (*models.NSSFReturnView, error) {
	f.lastMonth = req.Month
	f.lastFile = file.Filename
	data, _ := io.ReadAll(file.Content)
	f.lastContent = string(data)
	return &models.NSSFReturnView{NSSFReturn: models.NSSFReturn{ID: "ret-1", Status: models.ReturnPending}}, nil
}

func (f *fakeNSSFSrv) ApproveReturn(_ context.Context, _ models.Actor, id string, req models.ProcessNSSFReturnRequest) (*models.NSSFReturnView, error) {
	f.lastID = id
	f.lastNotes = req.Notes
	return &models.NSSFReturnView{NSSFReturn: models.NSSFReturn{ID: id, Status: models.ReturnApproved, IsProcessed: true}}, nil
}

func multipartRequest(t *testing.T, path string, fields map[string]string, fileField, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if fileField != "" {
		part, err := writer.CreateFormFile(fileField, filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestNSSFHandlerListReturnsParsesMonths(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &fakeNSSFSrv{}
	handler := NewNSSFHandler(svc)

	c, rec := newGinContext(http.MethodGet, "/nssf/returns/?status=pending&month_from=2024-01&month_to=2024-06", nil)
	withActor(c, "admin-1", models.RoleAdmin)
	handler.ListReturns(c)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.lastFilter.Status)
	assert.Equal(t, models.ReturnPending, *svc.lastFilter.Status)
	require.NotNil(t, svc.lastFilter.MonthFrom)
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), *svc.lastFilter.MonthFrom)
	require.NotNil(t, svc.lastFilter.MonthTo)
	assert.Equal(t, time.June, svc.lastFilter.MonthTo.Month())
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestNSSFHandlerListReturnsRejectsBadMonth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewNSSFHandler(&fakeNSSFSrv{})

	c, rec := newGinContext(http.MethodGet, "/nssf/returns/?month_from=January", nil)
	withActor(c, "admin-1", models.RoleAdmin)
	handler.ListReturns(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "month_from must be YYYY-MM")
}

func TestNSSFHandlerSubmitReturn(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &fakeNSSFSrv{}
	handler := NewNSSFHandler(svc)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = multipartRequest(t, "/nssf/returns/create/", map[string]string{"month": " 2024-03 "}, "file", "march.csv", "id,amount\n")
	withActor(c, "company-user", models.RoleCompany)
	handler.SubmitReturn(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "2024-03", svc.lastMonth)
	assert.Equal(t, "march.csv", svc.lastFile)
	assert.Equal(t, "id,amount\n", svc.lastContent)
}

func TestNSSFHandlerSubmitReturnRequiresFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &fakeNSSFSrv{}
	handler := NewNSSFHandler(svc)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = multipartRequest(t, "/nssf/returns/create/", map[string]string{"month": "2024-03"}, "", "", "")
	withActor(c, "company-user", models.RoleCompany)
	handler.SubmitReturn(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.lastMonth)
}

func TestNSSFHandlerApproveReturnOptionalNotes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &fakeNSSFSrv{}
	handler := NewNSSFHandler(svc)

	c, rec := newGinContext(http.MethodPost, "/nssf/returns/ret-1/approve/", nil)
	c.Params = gin.Params{{Key: "id", Value: "ret-1"}}
	withActor(c, "admin-1", models.RoleAdmin)
	handler.ApproveReturn(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ret-1", svc.lastID)
	assert.Empty(t, svc.lastNotes)

	c, rec = newGinContext(http.MethodPost, "/nssf/returns/ret-1/approve/", []byte(`{"notes":"all good"}`))
	c.Params = gin.Params{{Key: "id", Value: "ret-1"}}
	withActor(c, "admin-1", models.RoleAdmin)
	handler.ApproveReturn(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "all good", svc.lastNotes)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, "approved", envelope.Data["status"])
	assert.Equal(t, true, envelope.Data["is_processed"])
}
