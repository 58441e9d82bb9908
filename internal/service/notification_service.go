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
	"github.com/noah-isme/attachment-portal-api/pkg/notify"
)

type notificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	FindByID(ctx context.Context, id string) (*models.Notification, error)
	List(ctx context.Context, userID string, filter models.NotificationFilter) ([]models.Notification, int, error)
	MarkRead(ctx context.Context, id, userID string) (bool, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	EnsurePreference(ctx context.Context, userID string) (*models.NotificationPreference, error)
	UpdatePreference(ctx context.Context, pref *models.NotificationPreference) error
}

type recipientDirectory interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListIDsByRole(ctx context.Context, role *models.UserRole) ([]string, error)
}

type channelSender interface {
	Send(ctx context.Context, channel notify.Channel, msg notify.Message)
}

// SendResult reports the outcome of a Send call.
type SendResult struct {
	Notification  *models.Notification `json:"notification,omitempty"`
	Sent          bool                 `json:"sent"`
	SkippedReason string               `json:"skipped_reason,omitempty"`
}

// Notifier is the narrow sending contract used by other services.
type Notifier interface {
	Send(ctx context.Context, userID string, input models.NotificationInput) (*SendResult, error)
}

// NotificationService stores in-app notifications and fans them out to delivery channels.
type NotificationService struct {
	repo      notificationRepository
	users     recipientDirectory
	sender    channelSender
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewNotificationService constructs a NotificationService. A nil sender disables
// out-of-band delivery.
func NewNotificationService(repo notificationRepository, users recipientDirectory, sender channelSender, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &NotificationService{repo: repo, users: users, sender: sender, metrics: metrics, validator: validate, logger: logger}
}

// Send records a notification for userID unless their preferences disable its type.
// Channel delivery failures are logged and never returned.
func (s *NotificationService) Send(ctx context.Context, userID string, input models.NotificationInput) (*SendResult, error) {
	pref, err := s.repo.EnsurePreference(ctx, userID)
	if err != nil {
		return nil, internalError(err, "failed to load notification preferences")
	}
	if !pref.Allows(input.Type) {
		s.metrics.ObserveNotification(string(input.Type), false)
		s.logger.Debug("notification disabled by preference", zap.String("user_id", userID), zap.String("type", string(input.Type)))
		return &SendResult{Sent: false, SkippedReason: "disabled by user preference"}, nil
	}

	n := &models.Notification{
		UserID:  userID,
		Type:    input.Type,
		Title:   input.Title,
		Message: input.Message,
	}
	if input.Link != "" {
		link := input.Link
		n.Link = &link
	}
	if input.Related != nil {
		kind, id := input.Related.Kind, input.Related.ID
		n.RelatedKind = &kind
		n.RelatedID = &id
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, internalError(err, "failed to store notification")
	}
	s.metrics.ObserveNotification(string(input.Type), true)

	s.dispatch(ctx, pref, n)
	return &SendResult{Notification: n, Sent: true}, nil
}

func (s *NotificationService) dispatch(ctx context.Context, pref *models.NotificationPreference, n *models.Notification) {
	if s.sender == nil || (!pref.EmailEnabled && !pref.PushEnabled) {
		return
	}
	msg := notify.Message{
		NotificationID: n.ID,
		UserID:         n.UserID,
		Type:           string(n.Type),
		Title:          n.Title,
		Body:           n.Message,
	}
	if n.Link != nil {
		msg.Link = *n.Link
	}
	if pref.PushEnabled {
		s.sender.Send(ctx, notify.ChannelPush, msg)
	}
	if !pref.EmailEnabled {
		return
	}
	user, err := s.users.FindByID(ctx, n.UserID)
	if err != nil {
		s.logger.Warn("skip email notification: recipient lookup failed", zap.String("user_id", n.UserID), zap.Error(err))
		return
	}
	msg.Email = user.Email
	msg.Name = displayName(user)
	s.sender.Send(ctx, notify.ChannelEmail, msg)
}

// List returns a page of the caller's notifications.
func (s *NotificationService) List(ctx context.Context, userID string, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list notifications")
	}
	return items, paginate(filter.Page, filter.PageSize, total), nil
}

func (s *NotificationService) owned(ctx context.Context, userID, id string) (*models.Notification, error) {
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return nil, internalError(err, "failed to load notification")
	}
	if n.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	return n, nil
}

// Get returns one of the caller's notifications and marks it read.
func (s *NotificationService) Get(ctx context.Context, userID, id string) (*models.Notification, error) {
	n, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !n.IsRead {
		if _, err := s.repo.MarkRead(ctx, id, userID); err != nil {
			return nil, internalError(err, "failed to mark notification read")
		}
		n.IsRead = true
	}
	return n, nil
}

// MarkRead flags one notification read. Marking an already-read notification succeeds.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if _, err := s.repo.MarkRead(ctx, id, userID); err != nil {
		return internalError(err, "failed to mark notification read")
	}
	return nil
}

// MarkAllRead flags every unread notification of the caller and returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, internalError(err, "failed to mark notifications read")
	}
	return n, nil
}

// UnreadCount returns the caller's unread notification count.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, internalError(err, "failed to count notifications")
	}
	return count, nil
}

// GetPreferences returns the caller's preferences, creating defaults on first access.
func (s *NotificationService) GetPreferences(ctx context.Context, userID string) (*models.NotificationPreference, error) {
	pref, err := s.repo.EnsurePreference(ctx, userID)
	if err != nil {
		return nil, internalError(err, "failed to load notification preferences")
	}
	return pref, nil
}

// UpdatePreferences applies the provided toggles; omitted fields keep their value.
func (s *NotificationService) UpdatePreferences(ctx context.Context, userID string, req models.UpdateNotificationPreferenceRequest) (*models.NotificationPreference, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid notification preferences")
	}
	pref, err := s.repo.EnsurePreference(ctx, userID)
	if err != nil {
		return nil, internalError(err, "failed to load notification preferences")
	}
	applyBool(&pref.EmailEnabled, req.EmailEnabled)
	applyBool(&pref.PushEnabled, req.PushEnabled)
	applyBool(&pref.InAppEnabled, req.InAppEnabled)
	applyBool(&pref.AttachmentUpdates, req.AttachmentUpdates)
	applyBool(&pref.NSSFUpdates, req.NSSFUpdates)
	applyBool(&pref.MessageNotifications, req.MessageNotifications)
	applyBool(&pref.AnnouncementNotifications, req.AnnouncementNotifications)
	if req.DigestFrequency != "" {
		pref.DigestFrequency = req.DigestFrequency
	}
	if err := s.repo.UpdatePreference(ctx, pref); err != nil {
		return nil, internalError(err, "failed to update notification preferences")
	}
	return pref, nil
}

// Announce sends an announcement to every user, or every user of req.Role.
func (s *NotificationService) Announce(ctx context.Context, actor models.Actor, req models.AnnouncementRequest) (*models.AnnouncementResult, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can send announcements")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid announcement payload")
	}
	var role *models.UserRole
	if req.Role != "" {
		r := req.Role
		role = &r
	}
	ids, err := s.users.ListIDsByRole(ctx, role)
	if err != nil {
		return nil, internalError(err, "failed to resolve announcement recipients")
	}

	result := &models.AnnouncementResult{Recipients: len(ids)}
	input := models.NotificationInput{
		Type:    models.NotificationAnnouncement,
		Title:   strings.TrimSpace(req.Title),
		Message: req.Message,
		Link:    req.Link,
	}
	for _, id := range ids {
		res, err := s.Send(ctx, id, input)
		if err != nil {
			s.logger.Warn("announcement delivery failed", zap.String("user_id", id), zap.Error(err))
			result.Skipped++
			continue
		}
		if res.Sent {
			result.Sent++
		} else {
			result.Skipped++
		}
	}
	s.logger.Info("announcement sent", zap.String("actor_id", actor.UserID), zap.Int("recipients", result.Recipients), zap.Int("sent", result.Sent))
	return result, nil
}

func applyBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}
