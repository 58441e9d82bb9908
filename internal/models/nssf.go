package models

import "time"

// lateGraceDays is added to the 15th of the return month to get the due date.
const lateGraceDays = 30

// NSSFDetail is a student's NSSF membership record.
type NSSFDetail struct {
	ID               string     `db:"id" json:"id"`
	StudentProfileID string     `db:"student_profile_id" json:"student_profile_id"`
	NSSFNumber       *string    `db:"nssf_number" json:"nssf_number,omitempty"`
	IsVerified       bool       `db:"is_verified" json:"is_verified"`
	VerifiedAt       *time.Time `db:"verified_at" json:"verified_at,omitempty"`
	VerifiedBy       *string    `db:"verified_by" json:"verified_by,omitempty"`
	MembershipCard   *string    `db:"membership_card" json:"membership_card,omitempty"`
	CardURL          string     `db:"-" json:"membership_card_url,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// Normalize enforces the verification invariant: a verified record always
// carries a verification time, an unverified one carries neither time nor verifier.
func (d *NSSFDetail) Normalize(now time.Time) {
	if d.IsVerified {
		if d.VerifiedAt == nil {
			t := now
			d.VerifiedAt = &t
		}
		return
	}
	d.VerifiedAt = nil
	d.VerifiedBy = nil
}

// NSSFDetailView joins the student identity for admin listings.
type NSSFDetailView struct {
	NSSFDetail
	StudentUserID   string `db:"student_user_id" json:"student_user_id"`
	StudentNumber   string `db:"student_number" json:"student_number"`
	StudentFullName string `db:"student_full_name" json:"student_full_name"`
}

// NSSFDetailFilter narrows admin detail listings.
type NSSFDetailFilter struct {
	Verified *bool
	Search   string
	Page     int
	PageSize int
}

// SubmitNSSFDetailRequest updates the student's own NSSF number.
type SubmitNSSFDetailRequest struct {
	NSSFNumber string `form:"nssf_number" json:"nssf_number" validate:"required,max=50"`
}

// NSSFReturnStatus tracks administrative processing of a return.
type NSSFReturnStatus string

const (
	ReturnPending    NSSFReturnStatus = "pending"
	ReturnProcessing NSSFReturnStatus = "processing"
	ReturnApproved   NSSFReturnStatus = "approved"
	ReturnRejected   NSSFReturnStatus = "rejected"
)

// Valid reports whether s is a known return status.
func (s NSSFReturnStatus) Valid() bool {
	switch s {
	case ReturnPending, ReturnProcessing, ReturnApproved, ReturnRejected:
		return true
	}
	return false
}

// NSSFReturn is a company's monthly statutory filing.
type NSSFReturn struct {
	ID          string           `db:"id" json:"id"`
	CompanyID   string           `db:"company_id" json:"company_id"`
	Month       time.Time        `db:"month" json:"month"`
	SubmittedOn time.Time        `db:"submitted_on" json:"submitted_on"`
	ReturnFile  string           `db:"return_file" json:"return_file"`
	Status      NSSFReturnStatus `db:"status" json:"status"`
	IsProcessed bool             `db:"is_processed" json:"is_processed"`
	ProcessedAt *time.Time       `db:"processed_at" json:"processed_at,omitempty"`
	ProcessedBy *string          `db:"processed_by" json:"processed_by,omitempty"`
	Notes       string           `db:"notes" json:"notes"`
}

// DueDate is the last day a return for Month may be submitted without being late.
func (r NSSFReturn) DueDate() time.Time {
	m := r.Month.UTC()
	return time.Date(m.Year(), m.Month(), 15, 0, 0, 0, 0, time.UTC).AddDate(0, 0, lateGraceDays)
}

// IsLate reports whether the calendar date of submission falls after DueDate.
func (r NSSFReturn) IsLate() bool {
	s := r.SubmittedOn.UTC()
	submitted := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, time.UTC)
	return submitted.After(r.DueDate())
}

// NormalizeProcessing keeps processed_at and processed_by consistent with is_processed.
func (r *NSSFReturn) NormalizeProcessing(now time.Time, by string) {
	if !r.IsProcessed {
		r.ProcessedAt = nil
		r.ProcessedBy = nil
		return
	}
	if r.ProcessedAt == nil {
		t := now
		r.ProcessedAt = &t
	}
	if r.ProcessedBy == nil && by != "" {
		b := by
		r.ProcessedBy = &b
	}
}

// NSSFReturnView joins company identity and exposes the derived lateness flag.
type NSSFReturnView struct {
	NSSFReturn
	CompanyName   string `db:"company_name" json:"company_name"`
	CompanyUserID string `db:"company_user_id" json:"company_user_id"`
	Late          bool   `db:"-" json:"is_late"`
	FileURL       string `db:"-" json:"return_file_url,omitempty"`
}

// NSSFReturnFilter narrows return listings.
type NSSFReturnFilter struct {
	CompanyUserID string
	Status        *NSSFReturnStatus
	MonthFrom     *time.Time
	MonthTo       *time.Time
	Page          int
	PageSize      int
}

// SubmitNSSFReturnRequest carries the reporting month as YYYY-MM.
type SubmitNSSFReturnRequest struct {
	Month string `form:"month" json:"month" validate:"required,datetime=2006-01"`
}

// ProcessNSSFReturnRequest carries optional reviewer notes.
type ProcessNSSFReturnRequest struct {
	Notes string `json:"notes" validate:"omitempty,max=2000"`
}

// FirstOfMonth truncates t to the first day of its month in UTC.
func FirstOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
