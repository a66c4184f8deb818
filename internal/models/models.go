package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// Priority is the task priority level.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
	PriorityUrgent Priority = "Urgent"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Rank returns the sort rank of the priority (Low < Medium < High < Urgent).
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityMedium:
		return 1
	case PriorityHigh:
		return 2
	case PriorityUrgent:
		return 3
	}
	return -1
}

// Status is the task workflow state.
type Status string

const (
	StatusToDo       Status = "ToDo"
	StatusInProgress Status = "InProgress"
	StatusReview     Status = "Review"
	StatusCompleted  Status = "Completed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusToDo, StatusInProgress, StatusReview, StatusCompleted:
		return true
	}
	return false
}

// AuditAction tags the kind of change an audit entry records.
type AuditAction string

const (
	AuditTaskCreated       AuditAction = "TASK_CREATED"
	AuditStatusChanged     AuditAction = "STATUS_CHANGED"
	AuditAssignmentChanged AuditAction = "ASSIGNMENT_CHANGED"
	AuditPriorityChanged   AuditAction = "PRIORITY_CHANGED"
)

// User is the full user record. Password and verification fields never
// leave the server.
type User struct {
	ID                 string     `json:"id"`
	Email              string     `json:"email"`
	Name               string     `json:"name"`
	Password           string     `json:"-"`
	EmailVerified      bool       `json:"emailVerified"`
	VerificationToken  *string    `json:"-"`
	VerificationExpiry *time.Time `json:"-"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// PublicUser is the caller-visible slice of a user, embedded in tasks and
// notifications.
type PublicUser struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name"`
}

// Public returns the caller-visible view of the user.
func (u *User) Public() *PublicUser {
	return &PublicUser{ID: u.ID, Email: u.Email, Name: u.Name}
}

// Task is a unit of work. Creator is immutable after creation; AssignedTo
// is nullable and mutable.
type Task struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	DueDate      time.Time   `json:"dueDate"`
	Priority     Priority    `json:"priority"`
	Status       Status      `json:"status"`
	CreatorID    string      `json:"creatorId"`
	AssignedToID *string     `json:"assignedToId"`
	Creator      *PublicUser `json:"creator,omitempty"`
	AssignedTo   *PublicUser `json:"assignedTo,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// Notification is a per-user message produced when a task is assigned.
// Only the read flag ever changes after creation.
type Notification struct {
	ID           string      `json:"id"`
	UserID       string      `json:"userId"`
	Message      string      `json:"message"`
	TaskID       *string     `json:"taskId"`
	AssignedByID *string     `json:"assignedById"`
	Read         bool        `json:"read"`
	Task         *TaskRef    `json:"task,omitempty"`
	AssignedBy   *PublicUser `json:"assignedBy,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// TaskRef is the minimal task reference carried inside a notification.
type TaskRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// AuditLogEntry records a single field-level change to a task. Entries are
// append-only.
type AuditLogEntry struct {
	ID        string      `json:"id"`
	TaskID    string      `json:"taskId"`
	UserID    string      `json:"userId"`
	Action    AuditAction `json:"action"`
	OldValue  *string     `json:"oldValue"`
	NewValue  string      `json:"newValue"`
	User      *PublicUser `json:"user,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// TaskFilters narrows a task query. Zero values mean "no filter". Overdue
// means due date strictly before now and status not Completed; it overrides
// any explicit status filter in the same query.
type TaskFilters struct {
	Status       Status
	Priority     Priority
	CreatorID    string
	AssignedToID string
	Overdue      bool
}

// TaskSort orders a task query. Zero values default to dueDate ascending.
type TaskSort struct {
	By    string // dueDate, createdAt, priority
	Order string // asc, desc
}

// CreateTaskInput carries a task creation request.
type CreateTaskInput struct {
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	DueDate      time.Time `json:"dueDate"`
	Priority     Priority  `json:"priority"`
	Status       Status    `json:"status"`
	AssignedToID *string   `json:"assignedToId"`
}

// UpdateTaskInput carries a partial task update. Nil pointers mean "leave
// unchanged". AssignedTo distinguishes omitted from explicit null (unassign).
type UpdateTaskInput struct {
	Title       *string        `json:"title"`
	Description *string        `json:"description"`
	DueDate     *time.Time     `json:"dueDate"`
	Priority    *Priority      `json:"priority"`
	Status      *Status        `json:"status"`
	AssignedTo  NullableString `json:"assignedToId"`
}

// Empty reports whether the input carries no fields at all.
func (in *UpdateTaskInput) Empty() bool {
	return in.Title == nil && in.Description == nil && in.DueDate == nil &&
		in.Priority == nil && in.Status == nil && !in.AssignedTo.Set
}

// NullableString is a tri-state JSON string: absent (Set=false), explicit
// null (Set=true, Valid=false), or a value (Set=true, Valid=true).
type NullableString struct {
	Set   bool
	Valid bool
	Value string
}

// NullableStringOf returns a set, non-null NullableString.
func NullableStringOf(v string) NullableString {
	return NullableString{Set: true, Valid: true, Value: v}
}

// NullableStringNull returns a set, explicit-null NullableString.
func NullableStringNull() NullableString {
	return NullableString{Set: true}
}

func (n *NullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(data, []byte("null")) {
		n.Valid = false
		return nil
	}
	if err := json.Unmarshal(data, &n.Value); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

func (n NullableString) MarshalJSON() ([]byte, error) {
	if !n.Set || !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Ptr returns the value as a nullable pointer (nil when unset or null).
func (n NullableString) Ptr() *string {
	if !n.Set || !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

// EmailCommand is the Kafka payload for asynchronous email delivery.
type EmailCommand struct {
	Kind        string    `json:"kind"` // verification
	To          string    `json:"to"`
	Name        string    `json:"name"`
	Token       string    `json:"token"`
	RequestedAt time.Time `json:"requested_at"`
}
