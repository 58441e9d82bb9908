package dto

import "github.com/noah-isme/attachment-portal-api/internal/models"

// DashboardResponse is the role-specific landing summary. Exactly one of the
// sections is populated, matching Role.
type DashboardResponse struct {
	Role    models.UserRole   `json:"role"`
	Student *StudentDashboard `json:"student,omitempty"`
	Company *CompanyDashboard `json:"company,omitempty"`
	Admin   *AdminDashboard   `json:"admin,omitempty"`
}

// AttachmentCounts summarises attachments by status.
type AttachmentCounts struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Approved  int `json:"approved"`
	Rejected  int `json:"rejected"`
	Completed int `json:"completed"`
}

// StudentDashboard is shown to students.
type StudentDashboard struct {
	HasProfile        bool                      `json:"hasProfile"`
	Attachments       AttachmentCounts          `json:"attachments"`
	NSSFSubmitted     bool                      `json:"nssfSubmitted"`
	NSSFVerified      bool                      `json:"nssfVerified"`
	UnreadCount       int                       `json:"unreadNotifications"`
	RecentAttachments []models.AttachmentDetail `json:"recentAttachments"`
}

// CompanyDashboard is shown to company users.
type CompanyDashboard struct {
	HasProfile        bool                      `json:"hasProfile"`
	Attachments       AttachmentCounts          `json:"attachments"`
	ReturnsSubmitted  int                       `json:"returnsSubmitted"`
	ReturnsPending    int                       `json:"returnsPending"`
	UnreadCount       int                       `json:"unreadNotifications"`
	RecentAttachments []models.AttachmentDetail `json:"recentAttachments"`
	RecentReturns     []models.NSSFReturnView   `json:"recentReturns"`
}

// AdminDashboard is shown to administrators.
type AdminDashboard struct {
	Students          int                       `json:"students"`
	Companies         int                       `json:"companies"`
	Attachments       AttachmentCounts          `json:"attachments"`
	UnverifiedNSSF    int                       `json:"unverifiedNssf"`
	UnprocessedReturn int                       `json:"unprocessedReturns"`
	RecentAttachments []models.AttachmentDetail `json:"recentAttachments"`
	RecentReturns     []models.NSSFReturnView   `json:"recentReturns"`
}
