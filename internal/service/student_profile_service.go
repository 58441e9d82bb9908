package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/attachment-portal-api/internal/models"
	appErrors "github.com/noah-isme/attachment-portal-api/pkg/errors"
)

const studentProfileUserConstraint = "student_profiles_user_id_key"

type studentProfileRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentProfile, error)
	FindByUserID(ctx context.Context, userID string) (*models.StudentProfile, error)
	List(ctx context.Context, filter models.StudentProfileFilter) ([]models.StudentProfileDetail, int, error)
	Create(ctx context.Context, profile *models.StudentProfile) error
	Update(ctx context.Context, profile *models.StudentProfile) error
	Delete(ctx context.Context, id string) error
}

// StudentProfileService manages student academic profiles.
type StudentProfileService struct {
	repo      studentProfileRepository
	users     userLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentProfileService constructs a StudentProfileService.
func NewStudentProfileService(repo studentProfileRepository, users userLookup, validate *validator.Validate, logger *zap.Logger) *StudentProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &StudentProfileService{repo: repo, users: users, validator: validate, logger: logger}
}

// GetOwn returns the calling student's profile or PROFILE_MISSING.
func (s *StudentProfileService) GetOwn(ctx context.Context, actor models.Actor) (*models.StudentProfile, error) {
	profile, err := s.repo.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ProfileMissing("student profile required", studentProfileCreatePath)
		}
		return nil, internalError(err, "failed to load student profile")
	}
	return profile, nil
}

// CreateOwn creates the calling student's profile. A student may own only one.
func (s *StudentProfileService) CreateOwn(ctx context.Context, actor models.Actor, req models.StudentProfileRequest) (*models.StudentProfile, error) {
	if actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can create a student profile")
	}
	req.UserID = ""
	return s.create(ctx, actor.UserID, req)
}

// List returns student profiles for administrators.
func (s *StudentProfileService) List(ctx context.Context, filter models.StudentProfileFilter) ([]models.StudentProfileDetail, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list student profiles")
	}
	return items, paginate(filter.Page, filter.PageSize, total), nil
}

// Create lets an administrator create a profile for a student user.
func (s *StudentProfileService) Create(ctx context.Context, req models.StudentProfileRequest) (*models.StudentProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid student profile payload")
	}
	if req.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user_id is required")
	}
	user, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, internalError(err, "failed to load user")
	}
	if user.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "selected user is not a student")
	}
	return s.create(ctx, user.ID, req)
}

// Update edits a profile. Students may edit their own; admins any.
func (s *StudentProfileService) Update(ctx context.Context, actor models.Actor, id string, req models.StudentProfileRequest) (*models.StudentProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid student profile payload")
	}
	profile, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && profile.UserID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	profile.StudentID = strings.TrimSpace(req.StudentID)
	profile.Department = strings.TrimSpace(req.Department)
	if err := s.repo.Update(ctx, profile); err != nil {
		return nil, writeError(err, "student id already registered", "failed to update student profile")
	}
	return profile, nil
}

// Delete removes a profile; its attachments and NSSF detail cascade.
func (s *StudentProfileService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return internalError(err, "failed to delete student profile")
	}
	return nil
}

func (s *StudentProfileService) create(ctx context.Context, userID string, req models.StudentProfileRequest) (*models.StudentProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid student profile payload")
	}
	profile := &models.StudentProfile{
		UserID:     userID,
		StudentID:  strings.TrimSpace(req.StudentID),
		Department: strings.TrimSpace(req.Department),
	}
	if err := s.repo.Create(ctx, profile); err != nil {
		if appErrors.UniqueConstraint(err) == studentProfileUserConstraint {
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "student profile already exists")
		}
		return nil, writeError(err, "student id already registered", "failed to create student profile")
	}
	s.logger.Sugar().Infow("student profile created", "profile_id", profile.ID, "user_id", profile.UserID)
	return profile, nil
}

func (s *StudentProfileService) load(ctx context.Context, id string) (*models.StudentProfile, error) {
	profile, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student profile not found")
		}
		return nil, internalError(err, "failed to load student profile")
	}
	return profile, nil
}
