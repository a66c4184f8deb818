package service

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"taskflow/internal/apperrors"
	"taskflow/internal/models"
	"taskflow/pkg/logger"
)

const maxTitleLen = 100

const unassignedLabel = "Unassigned"

// Tasks is the task mutation engine. It owns create/update/delete on
// tasks, enforces authorization and referential checks, and produces the
// audit entries and notifications each mutation implies, in the same call.
type Tasks struct {
	tasks         TaskStore
	users         UserStore
	notifications NotificationStore
	audit         AuditStore
	sink          EventSink
}

// NewTasks wires the mutation engine. sink may be nil when no real-time
// layer is attached (e.g. in tests).
func NewTasks(tasks TaskStore, users UserStore, notifications NotificationStore, audit AuditStore, sink EventSink) *Tasks {
	return &Tasks{tasks: tasks, users: users, notifications: notifications, audit: audit, sink: sink}
}

// Dashboard groups the three per-user task views.
type Dashboard struct {
	AssignedTasks []*models.Task `json:"assignedTasks"`
	CreatedTasks  []*models.Task `json:"createdTasks"`
	OverdueTasks  []*models.Task `json:"overdueTasks"`
}

// CreateTask validates and persists a new task, writes the TASK_CREATED
// audit entry, and notifies the assignee when one is named and differs
// from the creator.
func (s *Tasks) CreateTask(ctx context.Context, input *models.CreateTaskInput, creatorID string) (*models.Task, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}
	if input.AssignedToID != nil {
		assignee, err := s.users.FindByID(ctx, *input.AssignedToID)
		if err != nil {
			return nil, err
		}
		if assignee == nil {
			return nil, apperrors.Validation("Assigned user not found")
		}
	}

	status := input.Status
	if status == "" {
		status = models.StatusToDo
	}
	task, err := s.tasks.Create(ctx, &models.Task{
		Title:        input.Title,
		Description:  input.Description,
		DueDate:      input.DueDate,
		Priority:     input.Priority,
		Status:       status,
		CreatorID:    creatorID,
		AssignedToID: input.AssignedToID,
	})
	if err != nil {
		return nil, err
	}

	created, _ := json.Marshal(map[string]string{"title": task.Title, "status": string(task.Status)})
	if err := s.audit.Create(ctx, &models.AuditLogEntry{
		TaskID:   task.ID,
		UserID:   creatorID,
		Action:   models.AuditTaskCreated,
		NewValue: string(created),
	}); err != nil {
		return nil, err
	}

	// Self-assignment on create produces no notification.
	if input.AssignedToID != nil && *input.AssignedToID != creatorID {
		s.notifyAssignment(ctx, task, *input.AssignedToID, creatorID)
	}

	if s.sink != nil {
		s.sink.BroadcastTaskUpdate(task, creatorID)
	}
	return task, nil
}

// GetTaskByID returns the task or NotFound.
func (s *Tasks) GetTaskByID(ctx context.Context, id string) (*models.Task, error) {
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, apperrors.NotFound("Task")
	}
	return task, nil
}

// GetTasks returns tasks matching the filters in the requested order.
func (s *Tasks) GetTasks(ctx context.Context, filters models.TaskFilters, sort models.TaskSort) ([]*models.Task, error) {
	return s.tasks.FindMany(ctx, filters, sort)
}

// UpdateTask applies a partial update. Each observed change to status,
// assignee or priority writes its own audit entry; an assignment to a new
// non-null user notifies that user. Unlike the create path, the update
// path does not suppress self-assignment notifications.
func (s *Tasks) UpdateTask(ctx context.Context, id string, input *models.UpdateTaskInput, actingUserID string) (*models.Task, error) {
	existing, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, apperrors.NotFound("Task")
	}
	if input.Empty() {
		// No fields, no audit; the broadcast still fires so every client
		// converges on the current state.
		if s.sink != nil {
			s.sink.BroadcastTaskUpdate(existing, actingUserID)
		}
		return existing, nil
	}
	if err := validateUpdate(input); err != nil {
		return nil, err
	}
	if input.AssignedTo.Set && input.AssignedTo.Valid {
		assignee, err := s.users.FindByID(ctx, input.AssignedTo.Value)
		if err != nil {
			return nil, err
		}
		if assignee == nil {
			return nil, apperrors.Validation("Assigned user not found")
		}
	}

	next := *existing
	if input.Title != nil {
		next.Title = *input.Title
	}
	if input.Description != nil {
		next.Description = *input.Description
	}
	if input.DueDate != nil {
		next.DueDate = *input.DueDate
	}
	if input.Priority != nil {
		next.Priority = *input.Priority
	}
	if input.Status != nil {
		next.Status = *input.Status
	}
	if input.AssignedTo.Set {
		next.AssignedToID = input.AssignedTo.Ptr()
	}

	updated, err := s.tasks.Update(ctx, &next)
	if err != nil {
		return nil, err
	}

	if input.Status != nil && *input.Status != existing.Status {
		old := string(existing.Status)
		if err := s.audit.Create(ctx, &models.AuditLogEntry{
			TaskID:   id,
			UserID:   actingUserID,
			Action:   models.AuditStatusChanged,
			OldValue: &old,
			NewValue: string(*input.Status),
		}); err != nil {
			return nil, err
		}
	}

	if input.AssignedTo.Set && !sameAssignee(existing.AssignedToID, input.AssignedTo.Ptr()) {
		old := assigneeLabel(existing.AssignedToID)
		if err := s.audit.Create(ctx, &models.AuditLogEntry{
			TaskID:   id,
			UserID:   actingUserID,
			Action:   models.AuditAssignmentChanged,
			OldValue: &old,
			NewValue: assigneeLabel(input.AssignedTo.Ptr()),
		}); err != nil {
			return nil, err
		}
		if input.AssignedTo.Valid {
			s.notifyAssignment(ctx, updated, input.AssignedTo.Value, actingUserID)
		}
	}

	if input.Priority != nil && *input.Priority != existing.Priority {
		old := string(existing.Priority)
		if err := s.audit.Create(ctx, &models.AuditLogEntry{
			TaskID:   id,
			UserID:   actingUserID,
			Action:   models.AuditPriorityChanged,
			OldValue: &old,
			NewValue: string(*input.Priority),
		}); err != nil {
			return nil, err
		}
	}

	if s.sink != nil {
		s.sink.BroadcastTaskUpdate(updated, actingUserID)
	}
	return updated, nil
}

// DeleteTask removes a task. Only the creator may delete.
func (s *Tasks) DeleteTask(ctx context.Context, id, actingUserID string) error {
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if task == nil {
		return apperrors.NotFound("Task")
	}
	if task.CreatorID != actingUserID {
		return apperrors.Validation("Only the task creator can delete this task")
	}
	return s.tasks.Delete(ctx, id)
}

// GetDashboard runs the three per-user views concurrently. Overdue is
// scoped to the user's own assignments.
func (s *Tasks) GetDashboard(ctx context.Context, userID string) (*Dashboard, error) {
	var dash Dashboard
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tasks, err := s.tasks.FindMany(ctx, models.TaskFilters{AssignedToID: userID}, models.TaskSort{})
		dash.AssignedTasks = tasks
		return err
	})
	g.Go(func() error {
		tasks, err := s.tasks.FindMany(ctx, models.TaskFilters{CreatorID: userID}, models.TaskSort{})
		dash.CreatedTasks = tasks
		return err
	})
	g.Go(func() error {
		tasks, err := s.tasks.FindMany(ctx, models.TaskFilters{AssignedToID: userID, Overdue: true}, models.TaskSort{})
		dash.OverdueTasks = tasks
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &dash, nil
}

// GetAuditTrail returns the task's change history, newest-first.
func (s *Tasks) GetAuditTrail(ctx context.Context, taskID string) ([]*models.AuditLogEntry, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, apperrors.NotFound("Task")
	}
	return s.audit.ListByTask(ctx, taskID)
}

// notifyAssignment records and pushes an assignment notification. Delivery
// problems are logged, never propagated: a failed push must not fail the
// mutation that caused it.
func (s *Tasks) notifyAssignment(ctx context.Context, task *models.Task, assigneeID, actorID string) {
	actorName := "Someone"
	if actor, err := s.users.FindByID(ctx, actorID); err == nil && actor != nil {
		actorName = actor.Name
	}
	taskID := task.ID
	n, err := s.notifications.Create(ctx, &models.Notification{
		UserID:       assigneeID,
		Message:      fmt.Sprintf("You have been assigned to task: %s by %s", task.Title, actorName),
		TaskID:       &taskID,
		AssignedByID: &actorID,
	})
	if err != nil {
		logger.Error(ctx, "Assignment notification create failed", "error", err, "task_id", task.ID)
		return
	}
	if s.sink != nil {
		s.sink.PushNotification(assigneeID, n)
	}
}

func validateCreate(input *models.CreateTaskInput) error {
	if input.Title == "" {
		return apperrors.Validation("Title is required")
	}
	if utf8.RuneCountInString(input.Title) > maxTitleLen {
		return apperrors.Validation("Title must be 100 characters or less")
	}
	if input.Description == "" {
		return apperrors.Validation("Description is required")
	}
	if input.DueDate.IsZero() {
		return apperrors.Validation("Invalid date format")
	}
	if !input.Priority.Valid() {
		return apperrors.Validation("Invalid priority")
	}
	if input.Status != "" && !input.Status.Valid() {
		return apperrors.Validation("Invalid status")
	}
	return nil
}

func validateUpdate(input *models.UpdateTaskInput) error {
	if input.Title != nil && (*input.Title == "" || utf8.RuneCountInString(*input.Title) > maxTitleLen) {
		return apperrors.Validation("Title must be between 1 and 100 characters")
	}
	if input.Description != nil && *input.Description == "" {
		return apperrors.Validation("Description cannot be empty")
	}
	if input.Priority != nil && !input.Priority.Valid() {
		return apperrors.Validation("Invalid priority")
	}
	if input.Status != nil && !input.Status.Valid() {
		return apperrors.Validation("Invalid status")
	}
	return nil
}

func sameAssignee(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func assigneeLabel(id *string) string {
	if id == nil {
		return unassignedLabel
	}
	return *id
}
