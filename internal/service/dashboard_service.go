package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/attachment-portal-api/internal/dto"
	"github.com/noah-isme/attachment-portal-api/internal/models"
	appErrors "github.com/noah-isme/attachment-portal-api/pkg/errors"
)

const (
	adminDashboardKey   = "dash:admin"
	dashboardRecentSize = 5
)

type dashboardAttachmentSource interface {
	List(ctx context.Context, filter models.AttachmentFilter) ([]models.AttachmentDetail, int, error)
	CountByStatus(ctx context.Context, filter models.AttachmentFilter) ([]models.StatusCount, error)
}

type dashboardReturnSource interface {
	List(ctx context.Context, filter models.NSSFReturnFilter) ([]models.NSSFReturnView, int, error)
	CountUnprocessed(ctx context.Context, companyUserID string) (int, error)
}

type dashboardDetailSource interface {
	FindByStudentProfileID(ctx context.Context, profileID string) (*models.NSSFDetail, error)
	CountUnverified(ctx context.Context) (int, error)
}

type counter interface {
	Count(ctx context.Context) (int, error)
}

type unreadCounter interface {
	CountUnread(ctx context.Context, userID string) (int, error)
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Attachments   dashboardAttachmentSource
	Returns       dashboardReturnSource
	Details       dashboardDetailSource
	Profiles      studentProfileLookup
	Companies     companyLookup
	StudentCount  counter
	CompanyCount  counter
	Notifications unreadCounter
	Cache         *CacheService
	CacheTTL      time.Duration
	Logger        *zap.Logger
}

// DashboardService composes the role specific landing summaries.
type DashboardService struct {
	attachments   dashboardAttachmentSource
	returns       dashboardReturnSource
	details       dashboardDetailSource
	profiles      studentProfileLookup
	companies     companyLookup
	studentCount  counter
	companyCount  counter
	notifications unreadCounter
	cache         *CacheService
	ttl           time.Duration
	logger        *zap.Logger
}

// NewDashboardService constructs the dashboard service.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := params.CacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &DashboardService{
		attachments:   params.Attachments,
		returns:       params.Returns,
		details:       params.Details,
		profiles:      params.Profiles,
		companies:     params.Companies,
		studentCount:  params.StudentCount,
		companyCount:  params.CompanyCount,
		notifications: params.Notifications,
		cache:         params.Cache,
		ttl:           ttl,
		logger:        logger,
	}
}

// Dashboard returns the summary for the actor's role. The boolean reports
// whether the admin summary was served from cache.
func (s *DashboardService) Dashboard(ctx context.Context, actor models.Actor) (*dto.DashboardResponse, bool, error) {
	switch actor.Role {
	case models.RoleStudent:
		summary, err := s.student(ctx, actor)
		if err != nil {
			return nil, false, err
		}
		return &dto.DashboardResponse{Role: actor.Role, Student: summary}, false, nil
	case models.RoleCompany:
		summary, err := s.company(ctx, actor)
		if err != nil {
			return nil, false, err
		}
		return &dto.DashboardResponse{Role: actor.Role, Company: summary}, false, nil
	case models.RoleAdmin:
		var cached dto.AdminDashboard
		if s.cache.Get(ctx, adminDashboardKey, &cached) {
			return &dto.DashboardResponse{Role: actor.Role, Admin: &cached}, true, nil
		}
		summary, err := s.admin(ctx)
		if err != nil {
			return nil, false, err
		}
		s.cache.Set(ctx, adminDashboardKey, summary, s.ttl)
		return &dto.DashboardResponse{Role: actor.Role, Admin: summary}, false, nil
	default:
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "")
	}
}

// InvalidateAdmin drops the cached admin summary.
func (s *DashboardService) InvalidateAdmin(ctx context.Context) {
	s.cache.Invalidate(ctx, adminDashboardKey)
}

func (s *DashboardService) student(ctx context.Context, actor models.Actor) (*dto.StudentDashboard, error) {
	summary := &dto.StudentDashboard{RecentAttachments: []models.AttachmentDetail{}}
	unread, err := s.notifications.CountUnread(ctx, actor.UserID)
	if err != nil {
		return nil, internalError(err, "failed to count notifications")
	}
	summary.UnreadCount = unread

	profile, err := s.profiles.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return summary, nil
		}
		return nil, internalError(err, "failed to load student profile")
	}
	summary.HasProfile = true

	filter := models.AttachmentFilter{StudentUserID: actor.UserID, Page: 1, PageSize: dashboardRecentSize}
	if summary.Attachments, summary.RecentAttachments, err = s.attachmentSummary(ctx, filter); err != nil {
		return nil, err
	}

	detail, err := s.details.FindByStudentProfileID(ctx, profile.ID)
	switch {
	case err == nil:
		summary.NSSFSubmitted = detail.NSSFNumber != nil && *detail.NSSFNumber != ""
		summary.NSSFVerified = detail.IsVerified
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, internalError(err, "failed to load nssf details")
	}
	return summary, nil
}

func (s *DashboardService) company(ctx context.Context, actor models.Actor) (*dto.CompanyDashboard, error) {
	summary := &dto.CompanyDashboard{
		RecentAttachments: []models.AttachmentDetail{},
		RecentReturns:     []models.NSSFReturnView{},
	}
	unread, err := s.notifications.CountUnread(ctx, actor.UserID)
	if err != nil {
		return nil, internalError(err, "failed to count notifications")
	}
	summary.UnreadCount = unread

	if _, err := s.companies.FindByUserID(ctx, actor.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return summary, nil
		}
		return nil, internalError(err, "failed to load company")
	}
	summary.HasProfile = true

	filter := models.AttachmentFilter{CompanyUserID: actor.UserID, Page: 1, PageSize: dashboardRecentSize}
	if summary.Attachments, summary.RecentAttachments, err = s.attachmentSummary(ctx, filter); err != nil {
		return nil, err
	}

	returns, total, err := s.returns.List(ctx, models.NSSFReturnFilter{CompanyUserID: actor.UserID, Page: 1, PageSize: dashboardRecentSize})
	if err != nil {
		return nil, internalError(err, "failed to list nssf returns")
	}
	if returns != nil {
		summary.RecentReturns = returns
	}
	summary.ReturnsSubmitted = total
	if summary.ReturnsPending, err = s.returns.CountUnprocessed(ctx, actor.UserID); err != nil {
		return nil, internalError(err, "failed to count nssf returns")
	}
	return summary, nil
}

func (s *DashboardService) admin(ctx context.Context) (*dto.AdminDashboard, error) {
	summary := &dto.AdminDashboard{
		RecentAttachments: []models.AttachmentDetail{},
		RecentReturns:     []models.NSSFReturnView{},
	}
	var err error
	if summary.Students, err = s.studentCount.Count(ctx); err != nil {
		return nil, internalError(err, "failed to count students")
	}
	if summary.Companies, err = s.companyCount.Count(ctx); err != nil {
		return nil, internalError(err, "failed to count companies")
	}
	if summary.Attachments, summary.RecentAttachments, err = s.attachmentSummary(ctx, models.AttachmentFilter{Page: 1, PageSize: dashboardRecentSize}); err != nil {
		return nil, err
	}
	if summary.UnverifiedNSSF, err = s.details.CountUnverified(ctx); err != nil {
		return nil, internalError(err, "failed to count nssf details")
	}
	if summary.UnprocessedReturn, err = s.returns.CountUnprocessed(ctx, ""); err != nil {
		return nil, internalError(err, "failed to count nssf returns")
	}
	returns, _, err := s.returns.List(ctx, models.NSSFReturnFilter{Page: 1, PageSize: dashboardRecentSize})
	if err != nil {
		return nil, internalError(err, "failed to list nssf returns")
	}
	if returns != nil {
		summary.RecentReturns = returns
	}
	return summary, nil
}

func (s *DashboardService) attachmentSummary(ctx context.Context, filter models.AttachmentFilter) (dto.AttachmentCounts, []models.AttachmentDetail, error) {
	var counts dto.AttachmentCounts
	byStatus, err := s.attachments.CountByStatus(ctx, filter)
	if err != nil {
		return counts, nil, internalError(err, "failed to count attachments")
	}
	for _, c := range byStatus {
		counts.Total += c.Count
		switch c.Status {
		case models.AttachmentPending:
			counts.Pending = c.Count
		case models.AttachmentApproved:
			counts.Approved = c.Count
		case models.AttachmentRejected:
			counts.Rejected = c.Count
		case models.AttachmentCompleted:
			counts.Completed = c.Count
		}
	}
	recent, _, err := s.attachments.List(ctx, filter)
	if err != nil {
		return counts, nil, internalError(err, "failed to list attachments")
	}
	if recent == nil {
		recent = []models.AttachmentDetail{}
	}
	return counts, recent, nil
}
