package models

import "time"

// Company is the host organisation profile owned by a company user.
type Company struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	Name       string    `db:"name" json:"name"`
	Address    string    `db:"address" json:"address"`
	NSSFNumber *string   `db:"nssf_number" json:"nssf_number,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// CompanyDetail joins the owning user's identity for listings.
type CompanyDetail struct {
	Company
	Username  string `db:"username" json:"username"`
	UserEmail string `db:"user_email" json:"user_email"`
}

// CompanyFilter narrows company listings.
type CompanyFilter struct {
	Search   string
	Page     int
	PageSize int
}

// CompanyRequest creates or updates a company profile. UserID is only honoured
// for admin callers.
type CompanyRequest struct {
	UserID     string  `json:"user_id" validate:"omitempty,uuid4"`
	Name       string  `json:"name" validate:"required,max=255"`
	Address    string  `json:"address" validate:"required"`
	NSSFNumber *string `json:"nssf_number" validate:"omitempty,max=50"`
}

// StudentProfile holds academic details of a student user.
type StudentProfile struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	Department string    `db:"department" json:"department"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// StudentProfileDetail joins the owning user's identity for listings.
type StudentProfileDetail struct {
	StudentProfile
	Username string `db:"username" json:"username"`
	FullName string `db:"full_name" json:"full_name"`
	Email    string `db:"email" json:"email"`
}

// StudentProfileFilter narrows student profile listings.
type StudentProfileFilter struct {
	Department string
	Search     string
	Page       int
	PageSize   int
}

// StudentProfileRequest creates or updates a student profile.
type StudentProfileRequest struct {
	UserID     string `json:"user_id" validate:"omitempty,uuid4"`
	StudentID  string `json:"student_id" validate:"required,max=20"`
	Department string `json:"department" validate:"required,max=100"`
}
