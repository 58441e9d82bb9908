package service

import (
	"time"

	"github.com/noah-isme/attachment-portal-api/internal/models"
	appErrors "github.com/noah-isme/attachment-portal-api/pkg/errors"
)

const dateLayout = "2006-01-02"

const (
	studentProfileCreatePath = "/attachments/student/profile/create/"
	companyRegisterPath      = "/attachments/companies/register/"
)

func paginate(page, pageSize, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}
}

// parseDateRange parses both bounds and rejects ranges that end before they start.
func parseDateRange(start, end string) (time.Time, time.Time, error) {
	startDate, err := time.Parse(dateLayout, start)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "start_date must be YYYY-MM-DD")
	}
	endDate, err := time.Parse(dateLayout, end)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "end_date must be YYYY-MM-DD")
	}
	if startDate.After(endDate) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "end date must be after start date")
	}
	return startDate, endDate, nil
}

func internalError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

// writeError maps storage failures, turning unique violations into DUPLICATE.
func writeError(err error, duplicateMessage, internalMessage string) error {
	if appErrors.IsUniqueViolation(err) {
		return appErrors.Wrap(err, appErrors.ErrDuplicate.Code, appErrors.ErrDuplicate.Status, duplicateMessage)
	}
	return internalError(err, internalMessage)
}
