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

	"github.com/noah-isme/topfive-api/internal/models"
)

var notificationCols = []string{"id", "user_id", "suggestion_id", "type", "title", "message", "is_read", "read_at", "created_at"}

func TestNotificationCreateIsIdempotent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (suggestion_id, user_id, type) DO NOTHING")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (suggestion_id, user_id, type) DO NOTHING")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	n := models.Notification{UserID: "u-1", SuggestionID: "s-1", Type: models.NotificationAutoApproved, Title: "t", Message: "m"}
	created, err := repo.Create(context.Background(), &n)
	require.NoError(t, err)
	assert.True(t, created)

	again := n
	again.ID = ""
	created, err = repo.Create(context.Background(), &again)
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationListUnread(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM notifications WHERE user_id = $1 AND is_read = FALSE ORDER BY created_at DESC LIMIT 15 OFFSET 0")).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(notificationCols).AddRow("n-1", "u-1", "s-1", "APPROVED", "t", "m", false, nil, time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE")).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	items, total, err := repo.List(context.Background(), models.NotificationFilter{UserID: "u-1", UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.NotificationApproved, items[0].Type)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationMarkReadScopedToOwner(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE notifications SET is_read = TRUE, read_at = COALESCE(read_at, NOW())")).
		WithArgs("n-1", "intruder").
		WillReturnRows(sqlmock.NewRows(notificationCols))

	_, err := repo.MarkRead(context.Background(), "n-1", "intruder")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestNotificationMarkAllAndDelete(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications SET is_read = TRUE, read_at = NOW() WHERE user_id = $1 AND is_read = FALSE")).
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM notifications WHERE id = $1 AND user_id = $2")).
		WithArgs("n-9", "u-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	count, err := repo.MarkAllRead(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	assert.ErrorIs(t, repo.Delete(context.Background(), "n-9", "u-1"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
