package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attachment-portal-api/internal/models"
	appErrors "github.com/noah-isme/attachment-portal-api/pkg/errors"
)

func TestReportHistoryCreateAndListRecent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportHistoryRepository(db)

	mock.ExpectExec("INSERT INTO report_history").WillReturnResult(sqlmock.NewResult(1, 1))
	by := "admin-1"
	entry := &models.ReportHistory{ReportType: models.ReportAttachments, GeneratedBy: &by, Parameters: models.ReportParams{Format: models.ReportFormatCSV, Status: "approved"}}
	require.NoError(t, repo.Create(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)

	mock.ExpectQuery(regexp.QuoteMeta("FROM report_history ORDER BY generated_at DESC LIMIT $1")).
		WithArgs(defaultPageSize).
		WillReturnRows(sqlmock.NewRows([]string{"id", "report_type", "generated_by", "generated_at", "parameters", "download_count"}).
			AddRow(entry.ID, "attachments", by, time.Now(), []byte(`{"status":"approved","format":"csv"}`), 0))

	items, err := repo.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.ReportFormatCSV, items[0].Parameters.Format)
	assert.Equal(t, "approved", items[0].Parameters.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheRepositoryWithoutClientAlwaysMisses(t *testing.T) {
	repo := NewCacheRepository(nil, "test")

	var dest map[string]int
	err := repo.Get(context.Background(), "dash:admin", &dest)
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
	assert.NoError(t, repo.Set(context.Background(), "dash:admin", map[string]int{"a": 1}, time.Minute))
	assert.NoError(t, repo.Delete(context.Background(), "dash:admin"))
}
