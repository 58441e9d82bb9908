package service

import "github.com/noah-isme/attachment-portal-api/internal/models"

// CanAccessAttachment decides whether actor may view, edit or delete the attachment.
// Admins see everything; students and companies only what they own.
func CanAccessAttachment(actor models.Actor, attachment *models.AttachmentDetail) bool {
	if attachment == nil || actor.UserID == "" {
		return false
	}
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleStudent:
		return attachment.StudentUserID == actor.UserID
	case models.RoleCompany:
		return attachment.CompanyUserID == actor.UserID
	default:
		return false
	}
}

// CanReviewAttachment decides whether actor may approve, reject or complete it.
func CanReviewAttachment(actor models.Actor, attachment *models.AttachmentDetail) bool {
	if actor.Role != models.RoleCompany && actor.Role != models.RoleAdmin {
		return false
	}
	return CanAccessAttachment(actor, attachment)
}

// CanCreateAttachment reports whether the role may create attachments.
func CanCreateAttachment(actor models.Actor) bool {
	return actor.Role == models.RoleStudent || actor.Role == models.RoleAdmin
}
