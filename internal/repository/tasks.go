package repository

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"taskflow/internal/models"
	"taskflow/pkg/logger"
)

// Tasks provides database access for task records. Every read joins the
// creator and assignee so callers get display-ready tasks.
type Tasks struct {
	db *sql.DB
}

// NewTasks returns a task repository over the given pool.
func NewTasks(db *sql.DB) *Tasks {
	return &Tasks{db: db}
}

const taskSelect = `
	SELECT t.id, t.title, t.description, t.due_date, t.priority, t.status,
	       t.creator_id, t.assigned_to_id, t.created_at, t.updated_at,
	       c.id, c.email, c.name,
	       a.id, a.email, a.name
	FROM tasks t
	JOIN users c ON c.id = t.creator_id
	LEFT JOIN users a ON a.id = t.assigned_to_id`

func scanTask(scan func(dest ...interface{}) error) (*models.Task, error) {
	var t models.Task
	var creator models.PublicUser
	var aID, aEmail, aName sql.NullString
	err := scan(
		&t.ID, &t.Title, &t.Description, &t.DueDate, &t.Priority, &t.Status,
		&t.CreatorID, &t.AssignedToID, &t.CreatedAt, &t.UpdatedAt,
		&creator.ID, &creator.Email, &creator.Name,
		&aID, &aEmail, &aName)
	if err != nil {
		return nil, err
	}
	t.Creator = &creator
	if aID.Valid {
		t.AssignedTo = &models.PublicUser{ID: aID.String, Email: aEmail.String, Name: aName.String}
	}
	return &t, nil
}

// Create inserts a new task and returns it with creator/assignee populated.
func (r *Tasks) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (id, title, description, due_date, priority, status, creator_id, assigned_to_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		task.ID, task.Title, task.Description, task.DueDate, task.Priority,
		task.Status, task.CreatorID, task.AssignedToID, task.CreatedAt, task.UpdatedAt)
	if err != nil {
		logger.Error(ctx, "Repository create task failed", "error", err)
		return nil, err
	}
	return r.FindByID(ctx, task.ID)
}

// FindByID returns the task with the given id, or nil when absent.
func (r *Tasks) FindByID(ctx context.Context, id string) (*models.Task, error) {
	task, err := scanTask(r.db.QueryRowContext(ctx, taskSelect+` WHERE t.id = $1`, id).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		logger.Error(ctx, "Repository find task failed", "error", err, "id", id)
		return nil, err
	}
	return task, nil
}

// FindMany returns tasks matching the filters, ordered by the sort options.
// The overdue filter forces status != Completed regardless of any explicit
// status filter.
func (r *Tasks) FindMany(ctx context.Context, filters models.TaskFilters, sort models.TaskSort) ([]*models.Task, error) {
	var conds []string
	var args []interface{}
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, strings.Replace(cond, "?", "$"+strconv.Itoa(len(args)), 1))
	}

	if filters.Overdue {
		add(`t.due_date < ?`, time.Now())
		conds = append(conds, `t.status <> 'Completed'`)
	} else if filters.Status != "" {
		add(`t.status = ?`, string(filters.Status))
	}
	if filters.Priority != "" {
		add(`t.priority = ?`, string(filters.Priority))
	}
	if filters.CreatorID != "" {
		add(`t.creator_id = ?`, filters.CreatorID)
	}
	if filters.AssignedToID != "" {
		add(`t.assigned_to_id = ?`, filters.AssignedToID)
	}

	query := taskSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY " + orderClause(sort)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Error(ctx, "Repository list tasks failed", "error", err)
		return nil, err
	}
	defer rows.Close()
	var tasks []*models.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// orderClause builds the ORDER BY expression from a whitelist. Priority
// sorts by enumerated rank, not alphabetically.
func orderClause(sort models.TaskSort) string {
	dir := "ASC"
	if sort.Order == "desc" {
		dir = "DESC"
	}
	switch sort.By {
	case "createdAt":
		return "t.created_at " + dir
	case "priority":
		return `CASE t.priority
			WHEN 'Low' THEN 0 WHEN 'Medium' THEN 1
			WHEN 'High' THEN 2 WHEN 'Urgent' THEN 3 END ` + dir
	default:
		return "t.due_date " + dir
	}
}

// Update persists the mutable fields of the task and returns the fresh row.
func (r *Tasks) Update(ctx context.Context, task *models.Task) (*models.Task, error) {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET title = $1, description = $2, due_date = $3, priority = $4,
		 status = $5, assigned_to_id = $6, updated_at = $7 WHERE id = $8`,
		task.Title, task.Description, task.DueDate, task.Priority,
		task.Status, task.AssignedToID, time.Now(), task.ID)
	if err != nil {
		logger.Error(ctx, "Repository update task failed", "error", err, "id", task.ID)
		return nil, err
	}
	return r.FindByID(ctx, task.ID)
}

// Delete removes the task. Audit entries and notifications referencing it
// cascade at the schema level.
func (r *Tasks) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		logger.Error(ctx, "Repository delete task failed", "error", err, "id", id)
	}
	return err
}
