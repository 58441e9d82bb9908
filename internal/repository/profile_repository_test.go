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

var companyRowColumns = []string{"id", "user_id", "name", "address", "nssf_number", "created_at", "updated_at"}

func TestCompanyEnsureForUserReturnsExisting(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCompanyRepository(db)

	now := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (user_id) DO NOTHING")).
		WithArgs(sqlmock.AnyArg(), "company-user", "acme", "Address not provided", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM companies c WHERE c.user_id = $1")).
		WithArgs("company-user").
		WillReturnRows(sqlmock.NewRows(companyRowColumns).AddRow("co-1", "company-user", "Acme Ltd", "Nairobi", "NS-1", now, now))

	company, err := repo.EnsureForUser(context.Background(), "company-user", "acme", "Address not provided")
	require.NoError(t, err)
	assert.Equal(t, "Acme Ltd", company.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompanyListSearch(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCompanyRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("AND (LOWER(c.name) LIKE $1 OR LOWER(COALESCE(c.nssf_number, '')) LIKE $1 OR LOWER(u.username) LIKE $1) ORDER BY c.name ASC LIMIT 20 OFFSET 0")).
		WithArgs("%acme%").
		WillReturnRows(sqlmock.NewRows(append(companyRowColumns, "username", "user_email")))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM companies c JOIN users u")).
		WithArgs("%acme%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, total, err := repo.List(context.Background(), models.CompanyFilter{Search: "Acme"})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentProfileFindByUserIDMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentProfileRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM student_profiles sp WHERE sp.user_id = $1")).
		WithArgs("nobody").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByUserID(context.Background(), "nobody")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentProfileCreateAssignsIdentity(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentProfileRepository(db)

	mock.ExpectExec("INSERT INTO student_profiles").WillReturnResult(sqlmock.NewResult(1, 1))

	profile := &models.StudentProfile{UserID: "u-1", StudentID: "S001", Department: "Computing"}
	require.NoError(t, repo.Create(context.Background(), profile))
	assert.NotEmpty(t, profile.ID)
	assert.False(t, profile.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentProfileDeleteMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStudentProfileRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM student_profiles WHERE id = $1")).
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "gone"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
