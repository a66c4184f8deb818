package service

import (
	"context"
	"time"

	"taskflow/internal/models"
)

// UserStore is the persistence surface the services need for users.
// Implemented by repository.Users; tests use an in-memory fake.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByVerificationToken(ctx context.Context, token string) (*models.User, error)
	FindAll(ctx context.Context) ([]models.PublicUser, error)
	UpdateName(ctx context.Context, id, name string) (*models.User, error)
	MarkVerified(ctx context.Context, id string) error
	SetVerificationToken(ctx context.Context, id, token string, expiry time.Time) error
}

// TaskStore is the persistence surface for tasks.
type TaskStore interface {
	Create(ctx context.Context, task *models.Task) (*models.Task, error)
	FindByID(ctx context.Context, id string) (*models.Task, error)
	FindMany(ctx context.Context, filters models.TaskFilters, sort models.TaskSort) ([]*models.Task, error)
	Update(ctx context.Context, task *models.Task) (*models.Task, error)
	Delete(ctx context.Context, id string) error
}

// NotificationStore is the persistence surface for notifications.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) (*models.Notification, error)
	FindByUser(ctx context.Context, userID string, includeRead bool) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) (*models.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

// AuditStore is the persistence surface for the append-only change log.
type AuditStore interface {
	Create(ctx context.Context, entry *models.AuditLogEntry) error
	ListByTask(ctx context.Context, taskID string) ([]*models.AuditLogEntry, error)
}

// EventSink receives real-time events produced by task mutations. The
// real-time dispatcher implements it; a nil sink disables delivery. Sink
// calls are best-effort: they never fail the mutation that produced them.
type EventSink interface {
	// BroadcastTaskUpdate fans a task update out to every connected session.
	BroadcastTaskUpdate(task *models.Task, updatedBy string)
	// PushNotification delivers a notification to the recipient's group only.
	PushNotification(userID string, n *models.Notification)
}
