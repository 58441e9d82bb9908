package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/attachment-portal-api/internal/models"
)

const notificationColumns = `id, user_id, type, title, message, is_read, link, related_kind, related_id, created_at`

const preferenceColumns = `user_id, email_enabled, push_enabled, in_app_enabled, digest_frequency, attachment_updates, nssf_updates, message_notifications, announcement_notifications, updated_at`

// NotificationRepository persists notifications and delivery preferences.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs a NotificationRepository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a notification row.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notifications (id, user_id, type, title, message, is_read, link, related_kind, related_id, created_at)
VALUES (:id, :user_id, :type, :title, :message, :is_read, :link, :related_kind, :related_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// FindByID returns a notification regardless of owner.
func (r *NotificationRepository) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	var n models.Notification
	if err := r.db.GetContext(ctx, &n, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find notification: %w", err)
	}
	return &n, nil
}

// List returns a page of the user's notifications, newest first.
func (r *NotificationRepository) List(ctx context.Context, userID string, filter models.NotificationFilter) ([]models.Notification, int, error) {
	where := ` WHERE user_id = $1`
	args := []interface{}{userID}
	if filter.UnreadOnly {
		where += ` AND is_read = FALSE`
	}
	if filter.Type != nil {
		where += fmt.Sprintf(` AND type = $%d`, len(args)+1)
		args = append(args, *filter.Type)
	}
	_, size, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT %s FROM notifications%s ORDER BY created_at DESC LIMIT %d OFFSET %d`, notificationColumns, where, size, offset)
	var items []models.Notification
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM notifications`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}
	return items, total, nil
}

// MarkRead flags one notification read. It reports whether the row changed.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2 AND is_read = FALSE`, id, userID)
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark notification read rows affected: %w", err)
	}
	return n > 0, nil
}

// MarkAllRead flags every unread notification of the user read and returns how many changed.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark all notifications rows affected: %w", err)
	}
	return n, nil
}

// CountUnread returns the number of unread notifications for userID.
func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`, userID); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return total, nil
}

// EnsurePreference returns the user's preference, creating the default on first use.
func (r *NotificationRepository) EnsurePreference(ctx context.Context, userID string) (*models.NotificationPreference, error) {
	def := models.DefaultNotificationPreference(userID)
	def.UpdatedAt = time.Now().UTC()
	const insert = `INSERT INTO notification_preferences (` + preferenceColumns + `)
VALUES (:user_id, :email_enabled, :push_enabled, :in_app_enabled, :digest_frequency, :attachment_updates, :nssf_updates, :message_notifications, :announcement_notifications, :updated_at)
ON CONFLICT (user_id) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, insert, def); err != nil {
		return nil, fmt.Errorf("ensure notification preference: %w", err)
	}
	var pref models.NotificationPreference
	if err := r.db.GetContext(ctx, &pref, `SELECT `+preferenceColumns+` FROM notification_preferences WHERE user_id = $1`, userID); err != nil {
		return nil, fmt.Errorf("load notification preference: %w", err)
	}
	return &pref, nil
}

// UpdatePreference writes every toggle of pref.
func (r *NotificationRepository) UpdatePreference(ctx context.Context, pref *models.NotificationPreference) error {
	pref.UpdatedAt = time.Now().UTC()
	const query = `UPDATE notification_preferences SET email_enabled = :email_enabled, push_enabled = :push_enabled, in_app_enabled = :in_app_enabled,
digest_frequency = :digest_frequency, attachment_updates = :attachment_updates, nssf_updates = :nssf_updates,
message_notifications = :message_notifications, announcement_notifications = :announcement_notifications, updated_at = :updated_at
WHERE user_id = :user_id`
	res, err := r.db.NamedExecContext(ctx, query, pref)
	if err != nil {
		return fmt.Errorf("update notification preference: %w", err)
	}
	return expectAffected(res, "update notification preference")
}
