package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/topfive-api/internal/dto"
	"github.com/noah-isme/topfive-api/internal/models"
	appErrors "github.com/noah-isme/topfive-api/pkg/errors"
	"github.com/noah-isme/topfive-api/pkg/export"
)

type mockAuditStore struct {
	recordingAudit
	list       []models.AuditLog
	lastFilter models.AuditFilter
	getErr     error
}

func (m *mockAuditStore) GetByID(ctx context.Context, id string) (*models.AuditLog, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return &models.AuditLog{ID: id}, nil
}

func (m *mockAuditStore) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, int, error) {
	m.lastFilter = filter
	return m.list, len(m.list), nil
}

func (m *mockAuditStore) Export(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error) {
	m.lastFilter = filter
	return m.list, nil
}

func TestAuditListRequiresPrivilege(t *testing.T) {
	store := &mockAuditStore{list: []models.AuditLog{{ID: "a-1"}}}
	svc := NewAuditService(store, nil)

	_, _, err := svc.List(context.Background(), userActor, dto.ActivityQuery{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	entries, pagination, err := svc.ByTarget(context.Background(), adminActor, models.AuditTargetSuggestion, "s-1", 0, 500)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, 100, pagination.PageSize)
	assert.Equal(t, "s-1", store.lastFilter.TargetID)

	_, _, err = svc.ByActor(context.Background(), adminActor, "", 1, 20)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAuditGetNotFound(t *testing.T) {
	store := &mockAuditStore{getErr: sql.ErrNoRows}
	svc := NewAuditService(store, nil)

	_, err := svc.Get(context.Background(), adminActor, "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestAuditExportCSV(t *testing.T) {
	actorID := "admin-1"
	targetID := "s-1"
	store := &mockAuditStore{list: []models.AuditLog{{
		ID:          "a-1",
		ActorID:     &actorID,
		ActorType:   models.AuditActorUser,
		Action:      models.AuditActionSuggestionReject,
		TargetType:  models.AuditTargetSuggestion,
		TargetID:    &targetID,
		Description: "rejected and deleted",
		CreatedAt:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}}}
	svc := NewAuditService(store, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC) }

	body, name, err := svc.Export(context.Background(), adminActor, dto.ActivityQuery{Action: models.AuditActionSuggestionReject}, export.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "activity-log-20260302-083000.csv", name)
	assert.Contains(t, string(body), "suggestion:s-1")
	assert.Contains(t, string(body), "rejected and deleted")
	assert.Equal(t, models.AuditActionSuggestionReject, store.lastFilter.Action)

	pdf, _, err := svc.Export(context.Background(), adminActor, dto.ActivityQuery{}, export.FormatPDF)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	_, _, err = svc.Export(context.Background(), adminActor, dto.ActivityQuery{}, export.Format("xlsx"))
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	_, _, err = svc.Export(context.Background(), userActor, dto.ActivityQuery{}, export.FormatCSV)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestNewAuditEntryAttribution(t *testing.T) {
	entry := newAuditEntry(zap.NewNop(), models.Actor{ID: "u-1", IP: "10.0.0.1", UserAgent: "curl"}, models.AuditActionSuggestionCreate,
		models.AuditTargetSuggestion, "s-1", "suggestion created", map[string]interface{}{"title": "x"})
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, "u-1", *entry.ActorID)
	assert.Equal(t, models.AuditActorUser, entry.ActorType)
	assert.Equal(t, "10.0.0.1", entry.IPAddress)
	var props map[string]string
	require.NoError(t, json.Unmarshal(entry.Properties, &props))
	assert.Equal(t, "x", props["title"])

	system := newAuditEntry(zap.NewNop(), models.SystemActor(""), models.AuditActionSuggestionImport, models.AuditTargetSuggestion, "", "imported 0 suggestions", nil)
	assert.Nil(t, system.ActorID)
	assert.Nil(t, system.TargetID)
	assert.Equal(t, models.AuditActorSystem, system.ActorType)
}

func TestNewAuditEntryWarnsOnUnencodableProperties(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	entry := newAuditEntry(zap.New(core), adminActor, models.AuditActionSuggestionApprove,
		models.AuditTargetSuggestion, "s-1", "approved by reviewer", map[string]interface{}{"callback": func() {}})

	require.NotNil(t, entry)
	assert.Nil(t, entry.Properties)
	assert.Equal(t, "approved by reviewer", entry.Description)
	require.Equal(t, 1, logs.Len())
	warn := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, warn.Level)
	assert.Equal(t, models.AuditActionSuggestionApprove, warn.ContextMap()["action"])
}
