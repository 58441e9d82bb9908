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

const nssfDetailsPath = "/nssf/details/"

var returnTitles = map[models.NSSFReturnStatus]string{
	models.ReturnApproved: "NSSF Return Approved",
	models.ReturnRejected: "NSSF Return Rejected",
}

type nssfDetailRepository interface {
	FindByID(ctx context.Context, id string) (*models.NSSFDetailView, error)
	EnsureForProfile(ctx context.Context, profileID string) (*models.NSSFDetail, error)
	UpdateSubmission(ctx context.Context, id string, nssfNumber string, membershipCard *string) error
	SetVerification(ctx context.Context, detail *models.NSSFDetail) error
	List(ctx context.Context, filter models.NSSFDetailFilter) ([]models.NSSFDetailView, int, error)
}

type nssfReturnRepository interface {
	Create(ctx context.Context, ret *models.NSSFReturn) error
	FindByID(ctx context.Context, id string) (*models.NSSFReturnView, error)
	List(ctx context.Context, filter models.NSSFReturnFilter) ([]models.NSSFReturnView, int, error)
	UpdateProcessing(ctx context.Context, ret *models.NSSFReturn) error
}

type uploadStore interface {
	Save(dir string, upload Upload, allowed []string) (string, error)
	Discard(rel string)
	Link(subject, rel string) string
}

// NSSFService manages student NSSF membership details and company returns.
type NSSFService struct {
	details   nssfDetailRepository
	returns   nssfReturnRepository
	profiles  studentProfileLookup
	companies companyLookup
	files     uploadStore
	notifier  Notifier
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewNSSFService constructs an NSSFService.
func NewNSSFService(details nssfDetailRepository, returns nssfReturnRepository, profiles studentProfileLookup, companies companyLookup, files uploadStore, notifier Notifier, validate *validator.Validate, logger *zap.Logger) *NSSFService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &NSSFService{
		details:   details,
		returns:   returns,
		profiles:  profiles,
		companies: companies,
		files:     files,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// GetOrCreateDetail returns the calling student's detail, creating an empty one on first access.
func (s *NSSFService) GetOrCreateDetail(ctx context.Context, actor models.Actor) (*models.NSSFDetail, error) {
	if actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	profile, err := s.profiles.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ProfileMissing("student profile required", studentProfileCreatePath)
		}
		return nil, internalError(err, "failed to load student profile")
	}
	detail, err := s.details.EnsureForProfile(ctx, profile.ID)
	if err != nil {
		return nil, internalError(err, "failed to load nssf details")
	}
	s.decorateDetail(detail)
	return detail, nil
}

// SubmitDetail stores the student's NSSF number and optional membership card.
// Verification state is untouched.
func (s *NSSFService) SubmitDetail(ctx context.Context, actor models.Actor, req models.SubmitNSSFDetailRequest, card *Upload) (*models.NSSFDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid nssf details payload")
	}
	detail, err := s.GetOrCreateDetail(ctx, actor)
	if err != nil {
		return nil, err
	}

	var cardPath *string
	if card != nil {
		rel, err := s.files.Save(membershipCardDir, *card, membershipCardTypes)
		if err != nil {
			return nil, err
		}
		cardPath = &rel
	}

	number := strings.TrimSpace(req.NSSFNumber)
	if err := s.details.UpdateSubmission(ctx, detail.ID, number, cardPath); err != nil {
		if cardPath != nil {
			s.files.Discard(*cardPath)
		}
		return nil, writeError(err, "this NSSF number is already registered", "failed to save nssf details")
	}
	if cardPath != nil && detail.MembershipCard != nil {
		s.files.Discard(*detail.MembershipCard)
	}

	detail.NSSFNumber = &number
	if cardPath != nil {
		detail.MembershipCard = cardPath
	}
	s.decorateDetail(detail)
	s.logger.Info("nssf details submitted", zap.String("detail_id", detail.ID), zap.String("user_id", actor.UserID))
	return detail, nil
}

// Verify marks a detail verified by the admin and notifies the student.
func (s *NSSFService) Verify(ctx context.Context, actor models.Actor, detailID string) (*models.NSSFDetailView, error) {
	view, err := s.loadDetailForAdmin(ctx, actor, detailID)
	if err != nil {
		return nil, err
	}
	view.IsVerified = true
	view.VerifiedAt = nil
	by := actor.UserID
	view.VerifiedBy = &by
	if err := s.details.SetVerification(ctx, &view.NSSFDetail); err != nil {
		return nil, internalError(err, "failed to verify nssf details")
	}
	s.logger.Info("nssf details verified", zap.String("detail_id", view.ID), zap.String("actor_id", actor.UserID))

	if s.notifier != nil {
		if _, err := s.notifier.Send(ctx, view.StudentUserID, models.NotificationInput{
			Type:    models.NotificationNSSFVerified,
			Title:   "NSSF Verified",
			Message: "Your NSSF details have been verified successfully!",
			Link:    nssfDetailsPath,
			Related: &models.RelatedRef{Kind: "nssf_detail", ID: view.ID},
		}); err != nil {
			s.logger.Warn("nssf verification notification failed", zap.String("detail_id", view.ID), zap.Error(err))
		}
	}
	s.decorateDetail(&view.NSSFDetail)
	return view, nil
}

// Unverify clears the verification state of a detail.
func (s *NSSFService) Unverify(ctx context.Context, actor models.Actor, detailID string) (*models.NSSFDetailView, error) {
	view, err := s.loadDetailForAdmin(ctx, actor, detailID)
	if err != nil {
		return nil, err
	}
	view.IsVerified = false
	if err := s.details.SetVerification(ctx, &view.NSSFDetail); err != nil {
		return nil, internalError(err, "failed to unverify nssf details")
	}
	s.decorateDetail(&view.NSSFDetail)
	return view, nil
}

// ListDetails returns details for administrative review.
func (s *NSSFService) ListDetails(ctx context.Context, actor models.Actor, filter models.NSSFDetailFilter) ([]models.NSSFDetailView, *models.Pagination, error) {
	if !actor.IsAdmin() {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	items, total, err := s.details.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list nssf details")
	}
	for i := range items {
		s.decorateDetail(&items[i].NSSFDetail)
	}
	return items, paginate(filter.Page, filter.PageSize, total), nil
}

func (s *NSSFService) loadDetailForAdmin(ctx context.Context, actor models.Actor, id string) (*models.NSSFDetailView, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	view, err := s.details.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "nssf details not found")
		}
		return nil, internalError(err, "failed to load nssf details")
	}
	return view, nil
}

func (s *NSSFService) decorateDetail(detail *models.NSSFDetail) {
	if detail.MembershipCard != nil {
		detail.CardURL = s.files.Link("membership_card:"+detail.ID, *detail.MembershipCard)
	}
}

// SubmitReturn files a company's return for a month. One return per company and month.
func (s *NSSFService) SubmitReturn(ctx context.Context, actor models.Actor, req models.SubmitNSSFReturnRequest, file *Upload) (*models.NSSFReturnView, error) {
	if actor.Role != models.RoleCompany {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only companies can submit returns")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "month must be in YYYY-MM format")
	}
	if file == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "return file is required")
	}
	month, err := time.Parse("2006-01", req.Month)
	if err != nil {
		return nil, validationError(err, "month must be in YYYY-MM format")
	}
	company, err := s.companies.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ProfileMissing("company profile required", companyRegisterPath)
		}
		return nil, internalError(err, "failed to load company profile")
	}

	rel, err := s.files.Save(returnFileDir, *file, returnFileTypes)
	if err != nil {
		return nil, err
	}
	ret := &models.NSSFReturn{
		CompanyID:   company.ID,
		Month:       models.FirstOfMonth(month),
		SubmittedOn: s.now().UTC(),
		ReturnFile:  rel,
		Status:      models.ReturnPending,
	}
	if err := s.returns.Create(ctx, ret); err != nil {
		s.files.Discard(rel)
		return nil, writeError(err, fmt.Sprintf("a return for %s has already been submitted", req.Month), "failed to submit return")
	}
	s.logger.Info("nssf return submitted",
		zap.String("return_id", ret.ID),
		zap.String("company_id", company.ID),
		zap.String("month", req.Month))

	view := &models.NSSFReturnView{NSSFReturn: *ret, CompanyName: company.Name, CompanyUserID: company.UserID, Late: ret.IsLate()}
	s.decorateReturn(view)
	return view, nil
}

// ListReturns returns the company's own returns, or all returns for admins.
func (s *NSSFService) ListReturns(ctx context.Context, actor models.Actor, filter models.NSSFReturnFilter) ([]models.NSSFReturnView, *models.Pagination, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid status %q", *filter.Status))
	}
	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleCompany:
		if _, err := s.companies.FindByUserID(ctx, actor.UserID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil, appErrors.ProfileMissing("company profile required", companyRegisterPath)
			}
			return nil, nil, internalError(err, "failed to load company profile")
		}
		filter.CompanyUserID = actor.UserID
	default:
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	items, total, err := s.returns.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list returns")
	}
	for i := range items {
		s.decorateReturn(&items[i])
	}
	return items, paginate(filter.Page, filter.PageSize, total), nil
}

// GetReturn returns a return visible to its company or an admin.
func (s *NSSFService) GetReturn(ctx context.Context, actor models.Actor, id string) (*models.NSSFReturnView, error) {
	view, err := s.loadReturn(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && view.CompanyUserID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	s.decorateReturn(view)
	return view, nil
}

// ProcessReturn marks a return as being processed.
func (s *NSSFService) ProcessReturn(ctx context.Context, actor models.Actor, id string, req models.ProcessNSSFReturnRequest) (*models.NSSFReturnView, error) {
	return s.updateReturn(ctx, actor, id, req, models.ReturnProcessing, true, false)
}

// ApproveReturn approves a return and notifies the company.
func (s *NSSFService) ApproveReturn(ctx context.Context, actor models.Actor, id string, req models.ProcessNSSFReturnRequest) (*models.NSSFReturnView, error) {
	return s.updateReturn(ctx, actor, id, req, models.ReturnApproved, true, true)
}

// RejectReturn rejects a return and notifies the company.
func (s *NSSFService) RejectReturn(ctx context.Context, actor models.Actor, id string, req models.ProcessNSSFReturnRequest) (*models.NSSFReturnView, error) {
	return s.updateReturn(ctx, actor, id, req, models.ReturnRejected, true, true)
}

// UnprocessReturn resets a return to pending.
func (s *NSSFService) UnprocessReturn(ctx context.Context, actor models.Actor, id string) (*models.NSSFReturnView, error) {
	return s.updateReturn(ctx, actor, id, models.ProcessNSSFReturnRequest{}, models.ReturnPending, false, false)
}

func (s *NSSFService) updateReturn(ctx context.Context, actor models.Actor, id string, req models.ProcessNSSFReturnRequest, status models.NSSFReturnStatus, processed, notify bool) (*models.NSSFReturnView, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid processing payload")
	}
	view, err := s.loadReturn(ctx, id)
	if err != nil {
		return nil, err
	}

	view.Status = status
	view.IsProcessed = processed
	if processed {
		view.ProcessedBy = nil
		view.ProcessedAt = nil
	}
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		view.Notes = notes
	}
	view.NormalizeProcessing(s.now().UTC(), actor.UserID)

	if err := s.returns.UpdateProcessing(ctx, &view.NSSFReturn); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "return not found")
		}
		return nil, internalError(err, "failed to update return")
	}
	s.logger.Info("nssf return updated",
		zap.String("return_id", id),
		zap.String("status", string(status)),
		zap.String("actor_id", actor.UserID))

	if notify && s.notifier != nil {
		if _, err := s.notifier.Send(ctx, view.CompanyUserID, models.NotificationInput{
			Type:    models.NotificationReturnProcessed,
			Title:   returnTitles[status],
			Message: fmt.Sprintf("Your NSSF return for %s has been %s.", view.Month.Format("January 2006"), status),
			Link:    fmt.Sprintf("/nssf/returns/%s/", view.ID),
			Related: &models.RelatedRef{Kind: "nssf_return", ID: view.ID},
		}); err != nil {
			s.logger.Warn("return notification failed", zap.String("return_id", id), zap.Error(err))
		}
	}
	s.decorateReturn(view)
	return view, nil
}

func (s *NSSFService) loadReturn(ctx context.Context, id string) (*models.NSSFReturnView, error) {
	view, err := s.returns.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "return not found")
		}
		return nil, internalError(err, "failed to load return")
	}
	return view, nil
}

func (s *NSSFService) decorateReturn(view *models.NSSFReturnView) {
	view.Late = view.IsLate()
	view.FileURL = s.files.Link("nssf_return:"+view.ID, view.ReturnFile)
}
