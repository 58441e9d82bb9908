package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attachment-portal-api/internal/dto"
	"github.com/noah-isme/attachment-portal-api/internal/middleware"
	"github.com/noah-isme/attachment-portal-api/internal/models"
	appErrors "github.com/noah-isme/attachment-portal-api/pkg/errors"
)

type fakeDashboardSrv struct {
	resp      *dto.DashboardResponse
	hit       bool
	err       error
	lastActor models.Actor
}

func (f *fakeDashboardSrv) Dashboard(_ context.Context, actor models.Actor) (*dto.DashboardResponse, bool, error) {
	f.lastActor = actor
	return f.resp, f.hit, f.err
}

type responseEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Meta  map[string]interface{} `json:"meta"`
	Error map[string]interface{} `json:"error"`
}

func withActor(c *gin.Context, userID string, role models.UserRole) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: userID, Role: role})
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func TestDashboardHandlerRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDashboardHandler(&fakeDashboardSrv{})

	c, rec := newGinContext(http.MethodGet, "/dashboard/", nil)
	handler.Dashboard(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDashboardHandlerAdminCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &fakeDashboardSrv{
		resp: &dto.DashboardResponse{Role: models.RoleAdmin, Admin: &dto.AdminDashboard{Students: 12}},
		hit:  true,
	}
	handler := NewDashboardHandler(svc)

	c, rec := newGinContext(http.MethodGet, "/dashboard/", nil)
	withActor(c, "admin-1", models.RoleAdmin)
	handler.Dashboard(c)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Contains(t, envelope.Meta, "processing_time_ms")
	assert.Equal(t, "admin", envelope.Data["role"])
	assert.Equal(t, models.Actor{UserID: "admin-1", Role: models.RoleAdmin}, svc.lastActor)
}

func TestDashboardHandlerPropagatesError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDashboardHandler(&fakeDashboardSrv{err: appErrors.Clone(appErrors.ErrForbidden, "")})

	c, rec := newGinContext(http.MethodGet, "/dashboard/", nil)
	withActor(c, "someone", models.UserRole("guest"))
	handler.Dashboard(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
