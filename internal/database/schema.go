package database

import (
	"context"

	"taskflow/pkg/logger"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		password TEXT NOT NULL,
		email_verified BOOLEAN NOT NULL DEFAULT FALSE,
		verification_token TEXT,
		verification_expiry TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		due_date TIMESTAMPTZ NOT NULL,
		priority TEXT NOT NULL,
		status TEXT NOT NULL,
		creator_id TEXT NOT NULL REFERENCES users(id),
		assigned_to_id TEXT REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		message TEXT NOT NULL,
		task_id TEXT REFERENCES tasks(id) ON DELETE CASCADE,
		assigned_by_id TEXT REFERENCES users(id),
		read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id TEXT PRIMARY KEY,
		task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL REFERENCES users(id),
		action TEXT NOT NULL,
		old_value TEXT,
		new_value TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_creator ON tasks(creator_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_assigned ON tasks(assigned_to_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_due_date ON tasks(due_date)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, read)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_task ON audit_logs(task_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_users_verification ON users(verification_token)`,
}

// MigrateOrCreateSchema creates all tables and indexes if missing. Safe to
// run on every startup.
func MigrateOrCreateSchema(ctx context.Context) error {
	db := DB(ctx)
	if db == nil {
		return ErrNotInitialized
	}
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			logger.Error(ctx, "Schema statement failed", "error", err)
			return err
		}
	}
	logger.Info(ctx, "Schema ensured")
	return nil
}
