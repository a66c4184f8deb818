package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"taskflow/internal/models"
	"taskflow/pkg/logger"
)

// Notifications provides database access for notification records.
type Notifications struct {
	db *sql.DB
}

// NewNotifications returns a notification repository over the given pool.
func NewNotifications(db *sql.DB) *Notifications {
	return &Notifications{db: db}
}

const notificationSelect = `
	SELECT n.id, n.user_id, n.message, n.task_id, n.assigned_by_id, n.read, n.created_at,
	       t.id, t.title,
	       u.id, u.name
	FROM notifications n
	LEFT JOIN tasks t ON t.id = n.task_id
	LEFT JOIN users u ON u.id = n.assigned_by_id`

func scanNotification(scan func(dest ...interface{}) error) (*models.Notification, error) {
	var n models.Notification
	var taskID, taskTitle, byID, byName sql.NullString
	err := scan(
		&n.ID, &n.UserID, &n.Message, &n.TaskID, &n.AssignedByID, &n.Read, &n.CreatedAt,
		&taskID, &taskTitle, &byID, &byName)
	if err != nil {
		return nil, err
	}
	if taskID.Valid {
		n.Task = &models.TaskRef{ID: taskID.String, Title: taskTitle.String}
	}
	if byID.Valid {
		n.AssignedBy = &models.PublicUser{ID: byID.String, Name: byName.String}
	}
	return &n, nil
}

// Create inserts a notification and returns it with task and assigner
// references populated.
func (r *Notifications) Create(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	n.CreatedAt = time.Now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, message, task_id, assigned_by_id, read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, n.UserID, n.Message, n.TaskID, n.AssignedByID, n.Read, n.CreatedAt)
	if err != nil {
		logger.Error(ctx, "Repository create notification failed", "error", err)
		return nil, err
	}
	return r.findByID(ctx, n.ID)
}

func (r *Notifications) findByID(ctx context.Context, id string) (*models.Notification, error) {
	n, err := scanNotification(r.db.QueryRowContext(ctx, notificationSelect+` WHERE n.id = $1`, id).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return n, err
}

// FindByUser returns the user's notifications newest-first. When
// includeRead is false only unread notifications are returned.
func (r *Notifications) FindByUser(ctx context.Context, userID string, includeRead bool) ([]*models.Notification, error) {
	query := notificationSelect + ` WHERE n.user_id = $1`
	if !includeRead {
		query += ` AND n.read = FALSE`
	}
	query += ` ORDER BY n.created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		logger.Error(ctx, "Repository list notifications failed", "error", err)
		return nil, err
	}
	defer rows.Close()
	var out []*models.Notification
	for rows.Next() {
		n, err := scanNotification(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead flips the read flag on a notification owned by userID. Returns
// nil when the notification does not exist or belongs to another user.
func (r *Notifications) MarkRead(ctx context.Context, id, userID string) (*models.Notification, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		logger.Error(ctx, "Repository mark read failed", "error", err, "id", id)
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}
	return r.findByID(ctx, id)
}

// MarkAllRead flips every unread notification owned by userID and returns
// the number flipped. Idempotent.
func (r *Notifications) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE`, userID)
	if err != nil {
		logger.Error(ctx, "Repository mark all read failed", "error", err, "user_id", userID)
		return 0, err
	}
	return res.RowsAffected()
}
