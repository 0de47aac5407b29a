package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/topfive-api/internal/models"
)

var auditCols = []string{"id", "actor_id", "actor_type", "action", "target_type", "target_id", "description", "properties", "ip_address", "user_agent", "created_at"}

func TestAuditCreateDefaults(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).WillReturnResult(sqlmock.NewResult(0, 1))

	entry := &models.AuditLog{Action: models.AuditActionSuggestionReject, TargetType: models.AuditTargetSuggestion}
	require.NoError(t, repo.CreateAuditLog(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, models.AuditActorUser, entry.ActorType)
	assert.Equal(t, "{}", string(entry.Properties))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditListFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_logs WHERE (action = $1 AND target_type = $2 AND target_id = $3) ORDER BY created_at DESC, id DESC LIMIT 20 OFFSET 0")).
		WithArgs(models.AuditActionSuggestionReject, "suggestion", "s-1").
		WillReturnRows(sqlmock.NewRows(auditCols).
			AddRow("a-1", "admin-1", "user", models.AuditActionSuggestionReject, "suggestion", "s-1", "rejected and deleted", []byte(`{"external_id":"dQw4w9WgXcQ"}`), "127.0.0.1", "test", time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM audit_logs WHERE (action = $1 AND target_type = $2 AND target_id = $3)")).
		WithArgs(models.AuditActionSuggestionReject, "suggestion", "s-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	entries, total, err := repo.List(context.Background(), models.AuditFilter{
		Action:     models.AuditActionSuggestionReject,
		TargetType: models.AuditTargetSuggestion,
		TargetID:   "s-1",
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, total)
	assert.JSONEq(t, `{"external_id":"dQw4w9WgXcQ"}`, string(entries[0].Properties))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditListWithoutFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_logs WHERE (1=1) ORDER BY created_at DESC")).
		WillReturnRows(sqlmock.NewRows(auditCols))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM audit_logs")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	entries, total, err := repo.List(context.Background(), models.AuditFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Zero(t, total)
}
