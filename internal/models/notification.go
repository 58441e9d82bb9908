package models

import "time"

// NotificationType classifies notifications for preference gating.
type NotificationType string

const (
	NotificationAttachmentApproved  NotificationType = "attachment_approved"
	NotificationAttachmentRejected  NotificationType = "attachment_rejected"
	NotificationAttachmentCompleted NotificationType = "attachment_completed"
	NotificationNSSFVerified        NotificationType = "nssf_verified"
	NotificationReturnProcessed     NotificationType = "return_processed"
	NotificationMessage             NotificationType = "message"
	NotificationAlert               NotificationType = "alert"
	NotificationAnnouncement        NotificationType = "announcement"
	NotificationReminder            NotificationType = "reminder"
)

// DigestFrequency is the preferred batching cadence. Stored only; delivery is always immediate.
type DigestFrequency string

const (
	DigestImmediate DigestFrequency = "immediate"
	DigestDaily     DigestFrequency = "daily"
	DigestWeekly    DigestFrequency = "weekly"
)

// RelatedRef is a weak tagged reference to the entity a notification concerns.
// It is never dereferenced.
type RelatedRef struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// Notification is a single in-app message for a user.
type Notification struct {
	ID          string           `db:"id" json:"id"`
	UserID      string           `db:"user_id" json:"user_id"`
	Type        NotificationType `db:"type" json:"type"`
	Title       string           `db:"title" json:"title"`
	Message     string           `db:"message" json:"message"`
	IsRead      bool             `db:"is_read" json:"is_read"`
	Link        *string          `db:"link" json:"link,omitempty"`
	RelatedKind *string          `db:"related_kind" json:"related_kind,omitempty"`
	RelatedID   *string          `db:"related_id" json:"related_id,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
}

// NotificationFilter narrows a user's notification listing.
type NotificationFilter struct {
	UnreadOnly bool
	Type       *NotificationType
	Page       int
	PageSize   int
}

// NotificationInput describes a notification to be sent.
type NotificationInput struct {
	Type    NotificationType
	Title   string
	Message string
	Link    string
	Related *RelatedRef
}

// NotificationPreference holds per-user delivery toggles.
type NotificationPreference struct {
	UserID                    string          `db:"user_id" json:"user_id"`
	EmailEnabled              bool            `db:"email_enabled" json:"email_enabled"`
	PushEnabled               bool            `db:"push_enabled" json:"push_enabled"`
	InAppEnabled              bool            `db:"in_app_enabled" json:"in_app_enabled"`
	DigestFrequency           DigestFrequency `db:"digest_frequency" json:"digest_frequency"`
	AttachmentUpdates         bool            `db:"attachment_updates" json:"attachment_updates"`
	NSSFUpdates               bool            `db:"nssf_updates" json:"nssf_updates"`
	MessageNotifications      bool            `db:"message_notifications" json:"message_notifications"`
	AnnouncementNotifications bool            `db:"announcement_notifications" json:"announcement_notifications"`
	UpdatedAt                 time.Time       `db:"updated_at" json:"updated_at"`
}

// DefaultNotificationPreference returns the all-enabled, immediate preference.
func DefaultNotificationPreference(userID string) NotificationPreference {
	return NotificationPreference{
		UserID:                    userID,
		EmailEnabled:              true,
		PushEnabled:               true,
		InAppEnabled:              true,
		DigestFrequency:           DigestImmediate,
		AttachmentUpdates:         true,
		NSSFUpdates:               true,
		MessageNotifications:      true,
		AnnouncementNotifications: true,
	}
}

// Allows reports whether the preference permits notifications of type t.
// Alerts, reminders and unknown types are always allowed.
func (p NotificationPreference) Allows(t NotificationType) bool {
	switch t {
	case NotificationAttachmentApproved, NotificationAttachmentRejected, NotificationAttachmentCompleted:
		return p.AttachmentUpdates
	case NotificationNSSFVerified, NotificationReturnProcessed:
		return p.NSSFUpdates
	case NotificationMessage:
		return p.MessageNotifications
	case NotificationAnnouncement:
		return p.AnnouncementNotifications
	default:
		return true
	}
}

// UpdateNotificationPreferenceRequest replaces the caller's preferences.
type UpdateNotificationPreferenceRequest struct {
	EmailEnabled              *bool           `json:"email_enabled"`
	PushEnabled               *bool           `json:"push_enabled"`
	InAppEnabled              *bool           `json:"in_app_enabled"`
	DigestFrequency           DigestFrequency `json:"digest_frequency" validate:"omitempty,oneof=immediate daily weekly"`
	AttachmentUpdates         *bool           `json:"attachment_updates"`
	NSSFUpdates               *bool           `json:"nssf_updates"`
	MessageNotifications      *bool           `json:"message_notifications"`
	AnnouncementNotifications *bool           `json:"announcement_notifications"`
}

// AnnouncementRequest broadcasts an announcement to users, optionally by role.
type AnnouncementRequest struct {
	Title   string   `json:"title" validate:"required,max=200"`
	Message string   `json:"message" validate:"required"`
	Link    string   `json:"link" validate:"omitempty,max=500"`
	Role    UserRole `json:"role" validate:"omitempty,oneof=student company admin"`
}

// AnnouncementResult summarises a broadcast.
type AnnouncementResult struct {
	Recipients int `json:"recipients"`
	Sent       int `json:"sent"`
	Skipped    int `json:"skipped"`
}
