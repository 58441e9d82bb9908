package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/attachment-portal-api/internal/models"
	appErrors "github.com/noah-isme/attachment-portal-api/pkg/errors"
)

type attachmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.AttachmentDetail, error)
	List(ctx context.Context, filter models.AttachmentFilter) ([]models.AttachmentDetail, int, error)
	Create(ctx context.Context, attachment *models.Attachment) error
	Update(ctx context.Context, attachment *models.Attachment) error
	Delete(ctx context.Context, id string) error
	TransitionStatus(ctx context.Context, id string, from []models.AttachmentStatus, to models.AttachmentStatus) (bool, error)
	CountByStatus(ctx context.Context, filter models.AttachmentFilter) ([]models.StatusCount, error)
	CountByStartMonth(ctx context.Context) ([]models.MonthCount, error)
	CountByCompany(ctx context.Context) ([]models.CompanyCount, error)
}

type studentProfileLookup interface {
	FindByID(ctx context.Context, id string) (*models.StudentProfile, error)
	FindByUserID(ctx context.Context, userID string) (*models.StudentProfile, error)
}

type companyLookup interface {
	FindByID(ctx context.Context, id string) (*models.Company, error)
	FindByUserID(ctx context.Context, userID string) (*models.Company, error)
}

// transition describes which statuses may move to a target status.
type transition struct {
	to           models.AttachmentStatus
	from         []models.AttachmentStatus
	notification models.NotificationType
	title        string
	message      string
}

var (
	approveTransition = transition{
		to:           models.AttachmentApproved,
		from:         []models.AttachmentStatus{models.AttachmentPending, models.AttachmentRejected},
		notification: models.NotificationAttachmentApproved,
		title:        "Attachment Approved",
		message:      "Your attachment at %s has been approved!",
	}
	rejectTransition = transition{
		to:           models.AttachmentRejected,
		from:         []models.AttachmentStatus{models.AttachmentPending, models.AttachmentApproved},
		notification: models.NotificationAttachmentRejected,
		title:        "Attachment Rejected",
		message:      "Your attachment at %s was rejected.",
	}
	completeTransition = transition{
		to:           models.AttachmentCompleted,
		from:         []models.AttachmentStatus{models.AttachmentApproved},
		notification: models.NotificationAttachmentCompleted,
		title:        "Attachment Completed",
		message:      "Your attachment at %s has been marked as completed.",
	}
)

func (t transition) allows(status models.AttachmentStatus) bool {
	for _, s := range t.from {
		if s == status {
			return true
		}
	}
	return false
}

// AttachmentService implements the attachment lifecycle.
type AttachmentService struct {
	repo      attachmentRepository
	profiles  studentProfileLookup
	companies companyLookup
	notifier  Notifier
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAttachmentService constructs an AttachmentService.
func NewAttachmentService(repo attachmentRepository, profiles studentProfileLookup, companies companyLookup, notifier Notifier, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AttachmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AttachmentService{
		repo:      repo,
		profiles:  profiles,
		companies: companies,
		notifier:  notifier,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Create records a new pending attachment. Students attach themselves; admins
// name the student profile explicitly.
func (s *AttachmentService) Create(ctx context.Context, actor models.Actor, req models.CreateAttachmentRequest) (*models.AttachmentDetail, error) {
	if !CanCreateAttachment(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}

	var profile *models.StudentProfile
	var err error
	if actor.Role == models.RoleStudent {
		profile, err = s.profiles.FindByUserID(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.ProfileMissing("student profile required", studentProfileCreatePath)
			}
			return nil, internalError(err, "failed to load student profile")
		}
	} else if req.StudentProfileID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student_profile_id is required")
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid attachment payload")
	}
	start, end, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	if profile == nil {
		profile, err = s.profiles.FindByID(ctx, req.StudentProfileID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
			}
			return nil, internalError(err, "failed to load student profile")
		}
	}
	if _, err := s.loadCompany(ctx, req.CompanyID); err != nil {
		return nil, err
	}

	attachment := &models.Attachment{
		StudentProfileID: profile.ID,
		CompanyID:        req.CompanyID,
		StartDate:        start,
		EndDate:          end,
		SupervisorName:   strings.TrimSpace(req.SupervisorName),
		SupervisorEmail:  strings.ToLower(strings.TrimSpace(req.SupervisorEmail)),
		SupervisorPhone:  strings.TrimSpace(req.SupervisorPhone),
		Status:           models.AttachmentPending,
	}
	if err := s.repo.Create(ctx, attachment); err != nil {
		return nil, internalError(err, "failed to create attachment")
	}
	s.logger.Info("attachment created",
		zap.String("attachment_id", attachment.ID),
		zap.String("student_profile_id", profile.ID),
		zap.String("actor_id", actor.UserID))

	return s.load(ctx, attachment.ID)
}

// Get returns an attachment the actor may access.
func (s *AttachmentService) Get(ctx context.Context, actor models.Actor, id string) (*models.AttachmentDetail, error) {
	detail, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanAccessAttachment(actor, detail) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	return detail, nil
}

// Update edits dates, company and supervisor details. Status never changes here.
func (s *AttachmentService) Update(ctx context.Context, actor models.Actor, id string, req models.UpdateAttachmentRequest) (*models.AttachmentDetail, error) {
	detail, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid attachment payload")
	}
	start, end, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	if req.CompanyID != detail.CompanyID {
		if actor.Role == models.RoleCompany {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "companies cannot move an attachment to another company")
		}
		if _, err := s.loadCompany(ctx, req.CompanyID); err != nil {
			return nil, err
		}
	}

	attachment := detail.Attachment
	attachment.CompanyID = req.CompanyID
	attachment.StartDate = start
	attachment.EndDate = end
	attachment.SupervisorName = strings.TrimSpace(req.SupervisorName)
	attachment.SupervisorEmail = strings.ToLower(strings.TrimSpace(req.SupervisorEmail))
	attachment.SupervisorPhone = strings.TrimSpace(req.SupervisorPhone)

	if err := s.repo.Update(ctx, &attachment); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attachment not found")
		}
		return nil, internalError(err, "failed to update attachment")
	}
	return s.load(ctx, id)
}

// Delete removes an attachment the actor may access.
func (s *AttachmentService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "attachment not found")
		}
		return internalError(err, "failed to delete attachment")
	}
	s.logger.Info("attachment deleted", zap.String("attachment_id", id), zap.String("actor_id", actor.UserID))
	return nil
}

// List returns attachments visible to the actor.
func (s *AttachmentService) List(ctx context.Context, actor models.Actor, filter models.AttachmentFilter) ([]models.AttachmentDetail, *models.Pagination, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid status %q", *filter.Status))
	}
	scoped, err := s.scope(ctx, actor, filter)
	if err != nil {
		return nil, nil, err
	}
	items, total, err := s.repo.List(ctx, scoped)
	if err != nil {
		return nil, nil, internalError(err, "failed to list attachments")
	}
	return items, paginate(filter.Page, filter.PageSize, total), nil
}

// scope restricts filter to what the actor owns. Students and companies must
// have a profile before they can list anything.
func (s *AttachmentService) scope(ctx context.Context, actor models.Actor, filter models.AttachmentFilter) (models.AttachmentFilter, error) {
	filter.StudentUserID = ""
	filter.CompanyUserID = ""
	switch actor.Role {
	case models.RoleAdmin:
		return filter, nil
	case models.RoleStudent:
		if _, err := s.profiles.FindByUserID(ctx, actor.UserID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return filter, appErrors.ProfileMissing("student profile required", studentProfileCreatePath)
			}
			return filter, internalError(err, "failed to load student profile")
		}
		filter.StudentUserID = actor.UserID
		return filter, nil
	case models.RoleCompany:
		if _, err := s.companies.FindByUserID(ctx, actor.UserID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return filter, appErrors.ProfileMissing("company profile required", companyRegisterPath)
			}
			return filter, internalError(err, "failed to load company profile")
		}
		filter.CompanyUserID = actor.UserID
		return filter, nil
	default:
		return filter, appErrors.Clone(appErrors.ErrForbidden, "")
	}
}

// Approve marks an attachment approved and notifies the student.
func (s *AttachmentService) Approve(ctx context.Context, actor models.Actor, id string) (*models.AttachmentDetail, error) {
	return s.review(ctx, actor, id, approveTransition)
}

// Reject marks an attachment rejected and notifies the student.
func (s *AttachmentService) Reject(ctx context.Context, actor models.Actor, id string) (*models.AttachmentDetail, error) {
	return s.review(ctx, actor, id, rejectTransition)
}

// Complete closes an approved attachment whose end date has passed.
func (s *AttachmentService) Complete(ctx context.Context, actor models.Actor, id string) (*models.AttachmentDetail, error) {
	return s.review(ctx, actor, id, completeTransition)
}

func (s *AttachmentService) review(ctx context.Context, actor models.Actor, id string, t transition) (*models.AttachmentDetail, error) {
	detail, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanReviewAttachment(actor, detail) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	if detail.Status == t.to {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("attachment is already %s", t.to))
	}
	if !t.allows(detail.Status) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("cannot move attachment from %s to %s", detail.Status, t.to))
	}
	if t.to == models.AttachmentCompleted {
		today := s.now().UTC().Truncate(24 * time.Hour)
		if !today.After(detail.EndDate.UTC()) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "attachment cannot be completed before its end date")
		}
	}

	ok, err := s.repo.TransitionStatus(ctx, id, t.from, t.to)
	if err != nil {
		return nil, internalError(err, "failed to update attachment status")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrConflict, "attachment status changed, reload and retry")
	}
	s.metrics.ObserveAttachmentTransition(string(t.to))
	s.logger.Info("attachment status changed",
		zap.String("attachment_id", id),
		zap.String("from", string(detail.Status)),
		zap.String("to", string(t.to)),
		zap.String("actor_id", actor.UserID))

	detail.Status = t.to
	s.notifyStudent(ctx, detail, t)
	return detail, nil
}

func (s *AttachmentService) notifyStudent(ctx context.Context, detail *models.AttachmentDetail, t transition) {
	if s.notifier == nil {
		return
	}
	_, err := s.notifier.Send(ctx, detail.StudentUserID, models.NotificationInput{
		Type:    t.notification,
		Title:   t.title,
		Message: fmt.Sprintf(t.message, detail.CompanyName),
		Link:    fmt.Sprintf("/attachments/%s/", detail.ID),
		Related: &models.RelatedRef{Kind: "attachment", ID: detail.ID},
	})
	if err != nil {
		s.logger.Warn("attachment notification failed", zap.String("attachment_id", detail.ID), zap.Error(err))
	}
}

// Stats aggregates attachments by status, start month and company.
func (s *AttachmentService) Stats(ctx context.Context, actor models.Actor) (*models.AttachmentStats, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	byStatus, err := s.repo.CountByStatus(ctx, models.AttachmentFilter{})
	if err != nil {
		return nil, internalError(err, "failed to count attachments")
	}
	byMonth, err := s.repo.CountByStartMonth(ctx)
	if err != nil {
		return nil, internalError(err, "failed to count attachments")
	}
	byCompany, err := s.repo.CountByCompany(ctx)
	if err != nil {
		return nil, internalError(err, "failed to count attachments")
	}
	stats := &models.AttachmentStats{ByStatus: byStatus, ByMonth: byMonth, ByCompany: byCompany}
	for _, c := range byStatus {
		stats.Total += c.Count
	}
	return stats, nil
}

func (s *AttachmentService) load(ctx context.Context, id string) (*models.AttachmentDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attachment not found")
		}
		return nil, internalError(err, "failed to load attachment")
	}
	return detail, nil
}

func (s *AttachmentService) loadCompany(ctx context.Context, id string) (*models.Company, error) {
	company, err := s.companies.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "company not found")
		}
		return nil, internalError(err, "failed to load company")
	}
	return company, nil
}
