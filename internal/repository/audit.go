package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"taskflow/internal/models"
	"taskflow/pkg/logger"
)

// Audit provides database access for the append-only task change log.
// Entries are never updated or deleted.
type Audit struct {
	db *sql.DB
}

// NewAudit returns an audit repository over the given pool.
func NewAudit(db *sql.DB) *Audit {
	return &Audit{db: db}
}

// Create appends an audit entry.
func (r *Audit) Create(ctx context.Context, entry *models.AuditLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	entry.CreatedAt = time.Now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, task_id, user_id, action, old_value, new_value, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.TaskID, entry.UserID, entry.Action, entry.OldValue, entry.NewValue, entry.CreatedAt)
	if err != nil {
		logger.Error(ctx, "Repository create audit entry failed", "error", err)
	}
	return err
}

// ListByTask returns the task's audit trail newest-first, with the acting
// user joined in.
func (r *Audit) ListByTask(ctx context.Context, taskID string) ([]*models.AuditLogEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT l.id, l.task_id, l.user_id, l.action, l.old_value, l.new_value, l.created_at,
		        u.id, u.email, u.name
		 FROM audit_logs l
		 JOIN users u ON u.id = l.user_id
		 WHERE l.task_id = $1
		 ORDER BY l.created_at DESC`, taskID)
	if err != nil {
		logger.Error(ctx, "Repository list audit entries failed", "error", err, "task_id", taskID)
		return nil, err
	}
	defer rows.Close()
	var entries []*models.AuditLogEntry
	for rows.Next() {
		var e models.AuditLogEntry
		var u models.PublicUser
		if err := rows.Scan(&e.ID, &e.TaskID, &e.UserID, &e.Action, &e.OldValue, &e.NewValue, &e.CreatedAt,
			&u.ID, &u.Email, &u.Name); err != nil {
			return nil, err
		}
		e.User = &u
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
