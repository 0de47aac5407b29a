package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/topfive-api/internal/models"
	"github.com/noah-isme/topfive-api/internal/repository"
	"github.com/noah-isme/topfive-api/pkg/push"
	appErrors "github.com/noah-isme/topfive-api/pkg/errors"
)

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) (bool, error)
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id, userID string) (*models.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, id, userID string) error
}

type pushSender interface {
	Enabled() bool
	Send(ctx context.Context, msg push.Message) error
}

// NotificationService creates outcome notifications for submitters and
// serves them back to their recipients.
type NotificationService struct {
	repo   notificationStore
	push   pushSender
	logger *zap.Logger
}

// NewNotificationService constructs the service. pusher may be nil.
func NewNotificationService(repo notificationStore, pusher pushSender, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, push: pusher, logger: logger}
}

// Dispatch records a notification of kind for the submitter of s. Repeated
// dispatches for the same suggestion and kind create nothing. Suggestions
// without a submitter are skipped.
func (s *NotificationService) Dispatch(ctx context.Context, suggestion *models.Suggestion, kind models.NotificationType) error {
	if suggestion == nil || suggestion.SubmitterID == nil || *suggestion.SubmitterID == "" {
		return nil
	}
	title, message := notificationText(suggestion.Title, kind)
	n := &models.Notification{
		UserID:       *suggestion.SubmitterID,
		SuggestionID: suggestion.ID,
		Type:         kind,
		Title:        title,
		Message:      message,
	}
	created, err := s.repo.Create(ctx, n)
	if err != nil {
		return fmt.Errorf("dispatch %s notification: %w", kind, err)
	}
	if !created {
		s.logger.Debug("notification already dispatched",
			zap.String("suggestion_id", suggestion.ID),
			zap.String("type", string(kind)))
		return nil
	}
	s.forward(ctx, n)
	return nil
}

func (s *NotificationService) forward(ctx context.Context, n *models.Notification) {
	if s.push == nil || !s.push.Enabled() {
		return
	}
	if err := s.push.Send(ctx, push.Message{Title: n.Title, Body: n.Message}); err != nil {
		s.logger.Warn("failed to forward notification",
			zap.String("notification_id", n.ID),
			zap.String("suggestion_id", n.SuggestionID),
			zap.Error(err))
	}
}

func notificationText(title string, kind models.NotificationType) (string, string) {
	switch kind {
	case models.NotificationAutoApproved:
		return "Suggestion Auto-Approved!",
			fmt.Sprintf("Your suggestion '%s' was auto-approved after receiving %d contributions and is now in the Top 5!", title, models.ApprovalThreshold)
	case models.NotificationRejected:
		return "Suggestion Rejected",
			fmt.Sprintf("Your suggestion '%s' was rejected. How about suggesting another one?", title)
	default:
		return "Suggestion Approved!",
			fmt.Sprintf("Your suggestion '%s' was approved and is now in the Top 5!", title)
	}
}

// List returns the recipient's notifications with the unread total.
func (s *NotificationService) List(ctx context.Context, actor models.Actor, page, pageSize int, unreadOnly bool) ([]models.Notification, *models.Pagination, int, error) {
	if !actor.Authenticated() {
		return nil, nil, 0, appErrors.ErrUnauthorized
	}
	filter := models.NotificationFilter{UserID: actor.ID, UnreadOnly: unreadOnly, Page: page, PageSize: pageSize}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, 0, storageError(err, "failed to list notifications")
	}
	unread, err := s.repo.UnreadCount(ctx, actor.ID)
	if err != nil {
		return nil, nil, 0, storageError(err, "failed to count notifications")
	}
	return items, paginate(page, pageSize, 15, total), unread, nil
}

// UnreadCount returns how many unread notifications the actor has.
func (s *NotificationService) UnreadCount(ctx context.Context, actor models.Actor) (int, error) {
	if !actor.Authenticated() {
		return 0, appErrors.ErrUnauthorized
	}
	count, err := s.repo.UnreadCount(ctx, actor.ID)
	if err != nil {
		return 0, storageError(err, "failed to count notifications")
	}
	return count, nil
}

// MarkRead flags one of the actor's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, actor models.Actor, id string) (*models.Notification, error) {
	if !actor.Authenticated() {
		return nil, appErrors.ErrUnauthorized
	}
	n, err := s.repo.MarkRead(ctx, id, actor.ID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return nil, storageError(err, "failed to mark notification read")
	}
	return n, nil
}

// MarkAllRead flags every unread notification of the actor and returns the count.
func (s *NotificationService) MarkAllRead(ctx context.Context, actor models.Actor) (int, error) {
	if !actor.Authenticated() {
		return 0, appErrors.ErrUnauthorized
	}
	count, err := s.repo.MarkAllRead(ctx, actor.ID)
	if err != nil {
		return 0, storageError(err, "failed to mark notifications read")
	}
	return count, nil
}

// Delete removes one of the actor's notifications.
func (s *NotificationService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if !actor.Authenticated() {
		return appErrors.ErrUnauthorized
	}
	if err := s.repo.Delete(ctx, id, actor.ID); err != nil {
		if repository.IsNotFound(err) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return storageError(err, "failed to delete notification")
	}
	return nil
}
