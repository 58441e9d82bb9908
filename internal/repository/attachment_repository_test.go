package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attachment-portal-api/internal/models"
)

var attachmentRowColumns = []string{
	"id", "student_profile_id", "company_id", "start_date", "end_date",
	"supervisor_name", "supervisor_email", "supervisor_phone", "status", "created_at", "updated_at",
	"company_name", "company_user_id", "student_user_id", "student_number", "student_username", "student_full_name",
}

func TestAttachmentListScopesByCompanyAndStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttachmentRepository(db)

	status := models.AttachmentPending
	start := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(attachmentRowColumns).AddRow(
		"att-1", "sp-1", "co-1", start, start.AddDate(0, 3, 0),
		"Jane", "jane@acme.test", "0700", string(status), start, start,
		"Acme", "company-user", "student-user", "S001", "jdoe", "John Doe",
	)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.user_id = $1 AND a.status = $2\nORDER BY a.created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("company-user", status).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("company-user", status).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	items, total, err := repo.List(context.Background(), models.AttachmentFilter{CompanyUserID: "company-user", Status: &status})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Acme", items[0].CompanyName)
	assert.Equal(t, "student-user", items[0].StudentUserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachmentListSearchSharesPlaceholder(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttachmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE sp.user_id = $1 AND (LOWER(c.name) LIKE $2 OR LOWER(a.supervisor_name) LIKE $2 OR LOWER(sp.student_id) LIKE $2 OR LOWER(u.username) LIKE $2)")).
		WithArgs("student-user", "%acme%").
		WillReturnRows(sqlmock.NewRows(attachmentRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("student-user", "%acme%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	items, total, err := repo.List(context.Background(), models.AttachmentFilter{StudentUserID: "student-user", Search: "ACME"})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachmentTransitionStatusGuardsCurrentStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttachmentRepository(db)

	query := regexp.QuoteMeta("UPDATE attachments SET status = $2, updated_at = $3 WHERE id = $1 AND status = ANY($4)")
	mock.ExpectExec(query).
		WithArgs("att-1", models.AttachmentApproved, sqlmock.AnyArg(), pq.Array([]string{"pending", "rejected"})).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).
		WithArgs("att-1", models.AttachmentApproved, sqlmock.AnyArg(), pq.Array([]string{"pending", "rejected"})).
		WillReturnResult(sqlmock.NewResult(0, 0))

	from := []models.AttachmentStatus{models.AttachmentPending, models.AttachmentRejected}
	ok, err := repo.TransitionStatus(context.Background(), "att-1", from, models.AttachmentApproved)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.TransitionStatus(context.Background(), "att-1", from, models.AttachmentApproved)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachmentCountByStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttachmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY a.status ORDER BY a.status")).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).AddRow("approved", 2).AddRow("pending", 5))

	counts, err := repo.CountByStatus(context.Background(), models.AttachmentFilter{})
	require.NoError(t, err)
	assert.Equal(t, []models.StatusCount{{Status: models.AttachmentApproved, Count: 2}, {Status: models.AttachmentPending, Count: 5}}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}
