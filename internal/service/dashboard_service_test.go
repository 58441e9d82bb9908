package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attachment-portal-api/internal/models"
	appErrors "github.com/noah-isme/attachment-portal-api/pkg/errors"
)

type memoryCache struct {
	entries map[string][]byte
	gets    int
	sets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.gets++
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.sets++
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCache) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

type dashboardReturns struct {
	*fakeReturnRepo
}

func (d dashboardReturns) CountUnprocessed(ctx context.Context, companyUserID string) (int, error) {
	total := 0
	for _, v := range d.items {
		if companyUserID != "" && v.CompanyUserID != companyUserID {
			continue
		}
		if !v.IsProcessed {
			total++
		}
	}
	return total, nil
}

type dashboardDetails struct {
	byProfile  map[string]*models.NSSFDetail
	unverified int
}

func (d *dashboardDetails) FindByStudentProfileID(ctx context.Context, id string) (*models.NSSFDetail, error) {
	detail, ok := d.byProfile[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return detail, nil
}

func (d *dashboardDetails) CountUnverified(ctx context.Context) (int, error) {
	return d.unverified, nil
}

type fixedCount int

func (c fixedCount) Count(ctx context.Context) (int, error) { return int(c), nil }

func newDashboardFixture(cache *CacheService) (*DashboardService, *fakeNotificationRepo) {
	attachments := newAttachmentFixture().repo
	notes := newFakeNotificationRepo()
	number := "NS-001"
	returns := &fakeReturnRepo{items: map[string]*models.NSSFReturnView{
		"ret-202401": {
			NSSFReturn:    models.NSSFReturn{ID: "ret-202401", CompanyID: companyAID, Month: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
			CompanyUserID: "co-a",
		},
	}}
	svc := NewDashboardService(DashboardServiceParams{
		Attachments: attachments,
		Returns:     dashboardReturns{returns},
		Details: &dashboardDetails{
			byProfile:  map[string]*models.NSSFDetail{profileID: {ID: "d-1", StudentProfileID: profileID, NSSFNumber: &number}},
			unverified: 3,
		},
		Profiles: &fakeProfiles{byUser: map[string]*models.StudentProfile{"stu": {ID: profileID, UserID: "stu"}}},
		Companies: &fakeCompanies{byID: map[string]*models.Company{
			companyAID: {ID: companyAID, UserID: "co-a", Name: "Acme Ltd"},
		}},
		StudentCount:  fixedCount(12),
		CompanyCount:  fixedCount(4),
		Notifications: notes,
		Cache:         cache,
	})
	return svc, notes
}

func TestDashboardStudentSummary(t *testing.T) {
	svc, notes := newDashboardFixture(nil)
	_ = notes.Create(context.Background(), &models.Notification{UserID: "stu", Title: "hi"})

	resp, hit, err := svc.Dashboard(context.Background(), studentActor)
	require.NoError(t, err)
	assert.False(t, hit)
	require.NotNil(t, resp.Student)
	assert.Nil(t, resp.Admin)
	assert.True(t, resp.Student.HasProfile)
	assert.True(t, resp.Student.NSSFSubmitted)
	assert.False(t, resp.Student.NSSFVerified)
	assert.Equal(t, 1, resp.Student.Attachments.Pending)
	assert.Equal(t, 1, resp.Student.UnreadCount)
	assert.Len(t, resp.Student.RecentAttachments, 1)
}

func TestDashboardStudentWithoutProfile(t *testing.T) {
	svc, _ := newDashboardFixture(nil)
	resp, _, err := svc.Dashboard(context.Background(), models.Actor{UserID: "nobody", Role: models.RoleStudent})
	require.NoError(t, err)
	assert.False(t, resp.Student.HasProfile)
	assert.NotNil(t, resp.Student.RecentAttachments)
}

func TestDashboardCompanySummary(t *testing.T) {
	svc, _ := newDashboardFixture(nil)
	resp, _, err := svc.Dashboard(context.Background(), companyAActor)
	require.NoError(t, err)
	require.NotNil(t, resp.Company)
	assert.True(t, resp.Company.HasProfile)
	assert.Equal(t, 1, resp.Company.ReturnsSubmitted)
	assert.Equal(t, 1, resp.Company.ReturnsPending)
	assert.Len(t, resp.Company.RecentAttachments, 1)
}

func TestDashboardAdminUsesCache(t *testing.T) {
	store := newMemoryCache()
	metrics := NewMetricsService()
	cache := NewCacheService(store, metrics, time.Minute, nil)
	svc, _ := newDashboardFixture(cache)

	first, hit, err := svc.Dashboard(context.Background(), adminActor)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 12, first.Admin.Students)
	assert.Equal(t, 4, first.Admin.Companies)
	assert.Equal(t, 3, first.Admin.UnverifiedNSSF)
	assert.Equal(t, 1, first.Admin.UnprocessedReturn)
	assert.Equal(t, 1, first.Admin.Attachments.Total)
	assert.Equal(t, 1, store.sets)

	second, hit, err := svc.Dashboard(context.Background(), adminActor)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first.Admin.Students, second.Admin.Students)
	assert.InDelta(t, 0.5, metrics.Snapshot().CacheHitRatio, 0.001)

	svc.InvalidateAdmin(context.Background())
	_, hit, err = svc.Dashboard(context.Background(), adminActor)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestDashboardUnknownRoleForbidden(t *testing.T) {
	svc, _ := newDashboardFixture(nil)
	_, _, err := svc.Dashboard(context.Background(), models.Actor{UserID: "x", Role: "guest"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
