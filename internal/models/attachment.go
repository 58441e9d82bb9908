package models

import "time"

// AttachmentStatus captures the lifecycle state of an attachment.
type AttachmentStatus string

const (
	AttachmentPending   AttachmentStatus = "pending"
	AttachmentApproved  AttachmentStatus = "approved"
	AttachmentRejected  AttachmentStatus = "rejected"
	AttachmentCompleted AttachmentStatus = "completed"
)

// Valid reports whether s is a known status.
func (s AttachmentStatus) Valid() bool {
	switch s {
	case AttachmentPending, AttachmentApproved, AttachmentRejected, AttachmentCompleted:
		return true
	}
	return false
}

// Attachment links a student profile to a company for a date range.
type Attachment struct {
	ID               string           `db:"id" json:"id"`
	StudentProfileID string           `db:"student_profile_id" json:"student_profile_id"`
	CompanyID        string           `db:"company_id" json:"company_id"`
	StartDate        time.Time        `db:"start_date" json:"start_date"`
	EndDate          time.Time        `db:"end_date" json:"end_date"`
	SupervisorName   string           `db:"supervisor_name" json:"supervisor_name"`
	SupervisorEmail  string           `db:"supervisor_email" json:"supervisor_email"`
	SupervisorPhone  string           `db:"supervisor_phone" json:"supervisor_phone"`
	Status           AttachmentStatus `db:"status" json:"status"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// AttachmentDetail carries the owning identities needed for authorization and display.
type AttachmentDetail struct {
	Attachment
	CompanyName     string `db:"company_name" json:"company_name"`
	CompanyUserID   string `db:"company_user_id" json:"company_user_id"`
	StudentUserID   string `db:"student_user_id" json:"student_user_id"`
	StudentNumber   string `db:"student_number" json:"student_number"`
	StudentUsername string `db:"student_username" json:"student_username"`
	StudentFullName string `db:"student_full_name" json:"student_full_name"`
}

// AttachmentFilter scopes and narrows attachment listings.
type AttachmentFilter struct {
	StudentUserID string
	CompanyUserID string
	Status        *AttachmentStatus
	Search        string
	StartFrom     *time.Time
	EndUntil      *time.Time
	Page          int
	PageSize      int
}

// CreateAttachmentRequest is the create payload. StudentProfileID is required
// for admins and ignored for students.
type CreateAttachmentRequest struct {
	StudentProfileID string `json:"student_profile_id" validate:"omitempty,uuid4"`
	CompanyID        string `json:"company_id" validate:"required,uuid4"`
	StartDate        string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate          string `json:"end_date" validate:"required,datetime=2006-01-02"`
	SupervisorName   string `json:"supervisor_name" validate:"required,max=100"`
	SupervisorEmail  string `json:"supervisor_email" validate:"required,email"`
	SupervisorPhone  string `json:"supervisor_phone" validate:"required,max=15"`
}

// UpdateAttachmentRequest edits an attachment. Status is never updatable here.
type UpdateAttachmentRequest struct {
	CompanyID       string `json:"company_id" validate:"required,uuid4"`
	StartDate       string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate         string `json:"end_date" validate:"required,datetime=2006-01-02"`
	SupervisorName  string `json:"supervisor_name" validate:"required,max=100"`
	SupervisorEmail string `json:"supervisor_email" validate:"required,email"`
	SupervisorPhone string `json:"supervisor_phone" validate:"required,max=15"`
}

// StatusCount is a count grouped by attachment status.
type StatusCount struct {
	Status AttachmentStatus `db:"status" json:"status"`
	Count  int              `db:"count" json:"count"`
}

// MonthCount is a count grouped by calendar month.
type MonthCount struct {
	Month time.Time `db:"month" json:"month"`
	Count int       `db:"count" json:"count"`
}

// CompanyCount is a count grouped by company.
type CompanyCount struct {
	CompanyID   string `db:"company_id" json:"company_id"`
	CompanyName string `db:"company_name" json:"company_name"`
	Count       int    `db:"count" json:"count"`
}

// AttachmentStats aggregates attachments for the admin overview.
type AttachmentStats struct {
	Total     int            `json:"total"`
	ByStatus  []StatusCount  `json:"by_status"`
	ByMonth   []MonthCount   `json:"by_month"`
	ByCompany []CompanyCount `json:"by_company"`
}
