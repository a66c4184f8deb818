package service

import (
	"context"

	"taskflow/internal/apperrors"
	"taskflow/internal/models"
)

// Notifications exposes the per-user notification feed and its read-state
// transitions.
type Notifications struct {
	store NotificationStore
}

// NewNotifications wires the notification service.
func NewNotifications(store NotificationStore) *Notifications {
	return &Notifications{store: store}
}

// ListForUser returns the user's notifications newest-first; unread only
// unless includeRead is set.
func (s *Notifications) ListForUser(ctx context.Context, userID string, includeRead bool) ([]*models.Notification, error) {
	return s.store.FindByUser(ctx, userID, includeRead)
}

// MarkRead flips the read flag. A notification owned by another user is
// reported as absent, never revealed.
func (s *Notifications) MarkRead(ctx context.Context, id, userID string) (*models.Notification, error) {
	n, err := s.store.MarkRead(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, apperrors.NotFound("Notification")
	}
	return n, nil
}

// MarkAllRead flips every unread notification owned by the user. Idempotent.
func (s *Notifications) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.store.MarkAllRead(ctx, userID)
}
