package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attachment-portal-api/internal/models"
)

var returnRowColumns = []string{
	"id", "company_id", "month", "submitted_on", "return_file", "status", "is_processed",
	"processed_at", "processed_by", "notes", "company_name", "company_user_id",
}

func TestNSSFReturnFindByIDComputesLateness(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNSSFReturnRepository(db)

	month := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	submitted := time.Date(2024, time.June, 20, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE r.id = $1")).
		WithArgs("ret-1").
		WillReturnRows(sqlmock.NewRows(returnRowColumns).AddRow(
			"ret-1", "co-1", month, submitted, "nssf_returns/march.pdf", "pending", false,
			nil, nil, "", "Acme", "company-user",
		))

	view, err := repo.FindByID(context.Background(), "ret-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", view.CompanyName)
	assert.Equal(t, view.IsLate(), view.Late)
	assert.True(t, view.Late)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNSSFReturnListFiltersByMonthRange(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNSSFReturnRepository(db)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.user_id = $1 AND r.month >= $2 AND r.month <= $3 ORDER BY r.month DESC, c.name ASC LIMIT 20 OFFSET 0")).
		WithArgs("company-user", from, to).
		WillReturnRows(sqlmock.NewRows(returnRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM nssf_returns r JOIN companies c ON c.id = r.company_id WHERE c.user_id = $1")).
		WithArgs("company-user", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, total, err := repo.List(context.Background(), models.NSSFReturnFilter{CompanyUserID: "company-user", MonthFrom: &from, MonthTo: &to})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNSSFReturnCountUnprocessed(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNSSFReturnRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE r.is_processed = FALSE AND c.user_id = $1")).
		WithArgs("company-user").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE r.is_processed = FALSE")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := repo.CountUnprocessed(context.Background(), "company-user")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = repo.CountUnprocessed(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNSSFReturnUpdateProcessingMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNSSFReturnRepository(db)

	mock.ExpectExec("UPDATE nssf_returns SET status").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateProcessing(context.Background(), &models.NSSFReturn{ID: "gone", Status: models.ReturnApproved})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNSSFDetailEnsureForProfileIsIdempotent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNSSFDetailRepository(db)

	now := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (student_profile_id) DO NOTHING")).
		WithArgs(sqlmock.AnyArg(), "sp-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM nssf_details d WHERE d.student_profile_id = $1")).
		WithArgs("sp-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_profile_id", "nssf_number", "is_verified", "verified_at", "verified_by", "membership_card", "created_at", "updated_at"}).
			AddRow("d-1", "sp-1", nil, false, nil, nil, nil, now, now))

	detail, err := repo.EnsureForProfile(context.Background(), "sp-1")
	require.NoError(t, err)
	assert.Equal(t, "d-1", detail.ID)
	assert.False(t, detail.IsVerified)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNSSFDetailSetVerificationClearsOnUnverify(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNSSFDetailRepository(db)

	mock.ExpectExec("UPDATE nssf_details SET is_verified").WillReturnResult(sqlmock.NewResult(0, 1))

	at := time.Now()
	by := "admin-1"
	detail := &models.NSSFDetail{ID: "d-1", IsVerified: false, VerifiedAt: &at, VerifiedBy: &by}
	require.NoError(t, repo.SetVerification(context.Background(), detail))
	assert.Nil(t, detail.VerifiedAt)
	assert.Nil(t, detail.VerifiedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}
