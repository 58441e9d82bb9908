package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/attachment-portal-api/internal/models"
	appErrors "github.com/noah-isme/attachment-portal-api/pkg/errors"
)

const (
	placeholderCompanyAddress = "Please update company address"
	companyUserConstraint     = "companies_user_id_key"
)

type companyRepository interface {
	FindByID(ctx context.Context, id string) (*models.Company, error)
	FindByUserID(ctx context.Context, userID string) (*models.Company, error)
	EnsureForUser(ctx context.Context, userID, name, address string) (*models.Company, error)
	List(ctx context.Context, filter models.CompanyFilter) ([]models.CompanyDetail, int, error)
	Create(ctx context.Context, company *models.Company) error
	Update(ctx context.Context, company *models.Company) error
	Delete(ctx context.Context, id string) error
}

type userLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// CompanyService manages host company profiles.
type CompanyService struct {
	repo      companyRepository
	users     userLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCompanyService constructs a CompanyService.
func NewCompanyService(repo companyRepository, users userLookup, validate *validator.Validate, logger *zap.Logger) *CompanyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CompanyService{repo: repo, users: users, validator: validate, logger: logger}
}

// EnsureCompanyProfile gives a company user a placeholder profile if they have none.
// It is idempotent.
func (s *CompanyService) EnsureCompanyProfile(ctx context.Context, user *models.User) (*models.Company, error) {
	if user == nil || user.Role != models.RoleCompany {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only company users own a company profile")
	}
	name := fmt.Sprintf("%s's Company", displayName(user))
	company, err := s.repo.EnsureForUser(ctx, user.ID, name, placeholderCompanyAddress)
	if err != nil {
		return nil, internalError(err, "failed to provision company profile")
	}
	return company, nil
}

// GetOwn returns the company profile of a company user.
func (s *CompanyService) GetOwn(ctx context.Context, actor models.Actor) (*models.Company, error) {
	company, err := s.repo.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ProfileMissing("company profile required", companyRegisterPath)
		}
		return nil, internalError(err, "failed to load company profile")
	}
	return company, nil
}

// SaveOwn creates or updates the calling company user's own profile.
func (s *CompanyService) SaveOwn(ctx context.Context, actor models.Actor, req models.CompanyRequest) (*models.Company, error) {
	if actor.Role != models.RoleCompany {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only company users can register a company")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid company payload")
	}

	existing, err := s.repo.FindByUserID(ctx, actor.UserID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, internalError(err, "failed to load company profile")
	}
	if existing == nil {
		company := &models.Company{
			UserID:     actor.UserID,
			Name:       strings.TrimSpace(req.Name),
			Address:    strings.TrimSpace(req.Address),
			NSSFNumber: normalizeOptional(req.NSSFNumber),
		}
		if err := s.repo.Create(ctx, company); err != nil {
			return nil, s.companyWriteError(err)
		}
		s.logger.Sugar().Infow("company registered", "company_id", company.ID, "user_id", actor.UserID)
		return company, nil
	}

	applyCompanyRequest(existing, req)
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, s.companyWriteError(err)
	}
	return existing, nil
}

// List returns companies for administrators.
func (s *CompanyService) List(ctx context.Context, filter models.CompanyFilter) ([]models.CompanyDetail, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list companies")
	}
	return items, paginate(filter.Page, filter.PageSize, total), nil
}

// Get returns a company visible to the actor.
func (s *CompanyService) Get(ctx context.Context, actor models.Actor, id string) (*models.Company, error) {
	company, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && company.UserID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	return company, nil
}

// Create lets an administrator create a company for an existing company user.
func (s *CompanyService) Create(ctx context.Context, req models.CompanyRequest) (*models.Company, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid company payload")
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
	if user.Role != models.RoleCompany {
		return nil, appErrors.Clone(appErrors.ErrValidation, "selected user is not a company user")
	}

	company := &models.Company{
		UserID:     user.ID,
		Name:       strings.TrimSpace(req.Name),
		Address:    strings.TrimSpace(req.Address),
		NSSFNumber: normalizeOptional(req.NSSFNumber),
	}
	if err := s.repo.Create(ctx, company); err != nil {
		return nil, s.companyWriteError(err)
	}
	return company, nil
}

// Update edits a company. Owners may edit their own; admins any.
func (s *CompanyService) Update(ctx context.Context, actor models.Actor, id string, req models.CompanyRequest) (*models.Company, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid company payload")
	}
	company, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && company.UserID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	applyCompanyRequest(company, req)
	if err := s.repo.Update(ctx, company); err != nil {
		return nil, s.companyWriteError(err)
	}
	return company, nil
}

// Delete removes a company and, by cascade, its attachments and returns.
func (s *CompanyService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "company not found")
		}
		return internalError(err, "failed to delete company")
	}
	return nil
}

func (s *CompanyService) load(ctx context.Context, id string) (*models.Company, error) {
	company, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "company not found")
		}
		return nil, internalError(err, "failed to load company")
	}
	return company, nil
}

func (s *CompanyService) companyWriteError(err error) error {
	if appErrors.UniqueConstraint(err) == companyUserConstraint {
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "user already has a company profile")
	}
	return writeError(err, "a company with this NSSF number already exists", "failed to save company")
}

func applyCompanyRequest(company *models.Company, req models.CompanyRequest) {
	company.Name = strings.TrimSpace(req.Name)
	company.Address = strings.TrimSpace(req.Address)
	company.NSSFNumber = normalizeOptional(req.NSSFNumber)
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func displayName(user *models.User) string {
	if name := strings.TrimSpace(user.FullName); name != "" {
		return name
	}
	return user.Username
}
