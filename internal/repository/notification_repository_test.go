package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attachment-portal-api/internal/models"
)

var preferenceRowColumns = []string{"user_id", "email_enabled", "push_enabled", "in_app_enabled", "digest_frequency", "attachment_updates", "nssf_updates", "message_notifications", "announcement_notifications", "updated_at"}

func TestNotificationListUnreadByType(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	kind := models.NotificationReturnProcessed
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM notifications WHERE user_id = $1 AND is_read = FALSE AND type = $2 ORDER BY created_at DESC LIMIT 5 OFFSET 0")).
		WithArgs("u-1", kind).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "type", "title", "message", "is_read", "link", "related_kind", "related_id", "created_at"}).
			AddRow("n-1", "u-1", string(kind), "Return approved", "March return approved", false, nil, nil, nil, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE AND type = $2")).
		WithArgs("u-1", kind).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	items, total, err := repo.List(context.Background(), "u-1", models.NotificationFilter{UnreadOnly: true, Type: &kind, PageSize: 5})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, kind, items[0].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationMarkReadScopedToOwner(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2 AND is_read = FALSE")).
		WithArgs("n-1", "intruder").
		WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := repo.MarkRead(context.Background(), "n-1", "intruder")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationMarkAllRead(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE")).
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.MarkAllRead(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationEnsurePreferenceCreatesDefault(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (user_id) DO NOTHING")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM notification_preferences WHERE user_id = $1")).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(preferenceRowColumns).
			AddRow("u-1", true, true, true, "immediate", true, true, true, true, time.Now()))

	pref, err := repo.EnsurePreference(context.Background(), "u-1")
	require.NoError(t, err)
	assert.True(t, pref.InAppEnabled)
	assert.Equal(t, models.DigestImmediate, pref.DigestFrequency)
	assert.NoError(t, mock.ExpectationsWereMet())
}
