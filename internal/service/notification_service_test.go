package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/topfive-api/internal/models"
	appErrors "github.com/noah-isme/topfive-api/pkg/errors"
	"github.com/noah-isme/topfive-api/pkg/push"
)

type mockNotificationRepo struct {
	created   []*models.Notification
	seen      map[string]bool
	items     []models.Notification
	unread    int
	createErr error
	markErr   error
	deleteErr error
	lastList  models.NotificationFilter
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *models.Notification) (bool, error) {
	if m.createErr != nil {
		return false, m.createErr
	}
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	key := n.SuggestionID + "/" + string(n.Type)
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	n.ID = "n-" + key
	m.created = append(m.created, n)
	return true, nil
}

func (m *mockNotificationRepo) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	m.lastList = filter
	return m.items, len(m.items), nil
}

func (m *mockNotificationRepo) UnreadCount(ctx context.Context, userID string) (int, error) {
	return m.unread, nil
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id, userID string) (*models.Notification, error) {
	if m.markErr != nil {
		return nil, m.markErr
	}
	return &models.Notification{ID: id, UserID: userID, IsRead: true}, nil
}

func (m *mockNotificationRepo) MarkAllRead(ctx context.Context, userID string) (int, error) {
	n := m.unread
	m.unread = 0
	return n, nil
}

func (m *mockNotificationRepo) Delete(ctx context.Context, id, userID string) error {
	return m.deleteErr
}

type mockPusher struct {
	enabled bool
	err     error
	sent    []push.Message
}

func (m *mockPusher) Enabled() bool { return m.enabled }

func (m *mockPusher) Send(ctx context.Context, msg push.Message) error {
	m.sent = append(m.sent, msg)
	return m.err
}

func TestDispatchCreatesOnePerKind(t *testing.T) {
	repo := &mockNotificationRepo{}
	pusher := &mockPusher{enabled: true}
	svc := NewNotificationService(repo, pusher, nil)
	submitter := "user-1"
	s := &models.Suggestion{ID: "s-1", Title: "Chitaozinho", SubmitterID: &submitter}

	require.NoError(t, svc.Dispatch(context.Background(), s, models.NotificationAutoApproved))
	require.NoError(t, svc.Dispatch(context.Background(), s, models.NotificationAutoApproved))

	require.Len(t, repo.created, 1)
	n := repo.created[0]
	assert.Equal(t, "user-1", n.UserID)
	assert.Equal(t, "Suggestion Auto-Approved!", n.Title)
	assert.Contains(t, n.Message, "'Chitaozinho'")
	assert.Contains(t, n.Message, "5 contributions")
	require.Len(t, pusher.sent, 1)
	assert.Equal(t, n.Title, pusher.sent[0].Title)
}

func TestDispatchSkipsAnonymousSuggestion(t *testing.T) {
	repo := &mockNotificationRepo{}
	svc := NewNotificationService(repo, nil, nil)

	require.NoError(t, svc.Dispatch(context.Background(), &models.Suggestion{ID: "s-1"}, models.NotificationApproved))
	assert.Empty(t, repo.created)
}

func TestDispatchPushFailureIsNotAnError(t *testing.T) {
	repo := &mockNotificationRepo{}
	pusher := &mockPusher{enabled: true, err: errors.New("webhook down")}
	svc := NewNotificationService(repo, pusher, nil)
	submitter := "user-1"

	err := svc.Dispatch(context.Background(), &models.Suggestion{ID: "s-1", Title: "x", SubmitterID: &submitter}, models.NotificationRejected)
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	assert.Equal(t, "Suggestion Rejected", repo.created[0].Title)
}

func TestDispatchStoreFailureIsReturned(t *testing.T) {
	repo := &mockNotificationRepo{createErr: errors.New("insert failed")}
	svc := NewNotificationService(repo, nil, nil)
	submitter := "user-1"

	err := svc.Dispatch(context.Background(), &models.Suggestion{ID: "s-1", SubmitterID: &submitter}, models.NotificationApproved)
	assert.Error(t, err)
}

func TestNotificationListIsScopedToRecipient(t *testing.T) {
	repo := &mockNotificationRepo{items: []models.Notification{{ID: "n-1", UserID: "user-1"}}, unread: 1}
	svc := NewNotificationService(repo, nil, nil)

	items, pagination, unread, err := svc.List(context.Background(), userActor, 0, 0, true)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, unread)
	assert.Equal(t, 15, pagination.PageSize)
	assert.Equal(t, "user-1", repo.lastList.UserID)
	assert.True(t, repo.lastList.UnreadOnly)

	_, _, _, err = svc.List(context.Background(), models.Actor{}, 1, 15, false)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestNotificationMutations(t *testing.T) {
	repo := &mockNotificationRepo{unread: 3}
	svc := NewNotificationService(repo, nil, nil)
	ctx := context.Background()

	n, err := svc.MarkRead(ctx, userActor, "n-1")
	require.NoError(t, err)
	assert.True(t, n.IsRead)

	count, err := svc.MarkAllRead(ctx, userActor)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	repo.markErr = sql.ErrNoRows
	_, err = svc.MarkRead(ctx, userActor, "someone-elses")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	repo.deleteErr = sql.ErrNoRows
	assert.ErrorIs(t, svc.Delete(ctx, userActor, "missing"), appErrors.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, models.Actor{}, "n-1"), appErrors.ErrUnauthorized)
}
