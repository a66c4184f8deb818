package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"taskflow/internal/models"
)

// In-memory stores backing the service tests. They mirror the repository
// contracts closely enough for the engine's invariants to be observable.

type fakeUserStore struct {
	users map[string]*models.User
	seq   int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*models.User)}
}

func (f *fakeUserStore) addUser(name, email string) *models.User {
	f.seq++
	u := &models.User{
		ID:        fmt.Sprintf("user-%d", f.seq),
		Email:     email,
		Name:      name,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	f.users[u.ID] = u
	return u
}

func (f *fakeUserStore) Create(ctx context.Context, user *models.User) error {
	f.seq++
	if user.ID == "" {
		user.ID = fmt.Sprintf("user-%d", f.seq)
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	return f.users[id], nil
}

func (f *fakeUserStore) FindByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	for _, u := range f.users {
		if u.VerificationToken != nil && *u.VerificationToken == token {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) FindAll(ctx context.Context) ([]models.PublicUser, error) {
	var out []models.PublicUser
	for _, u := range f.users {
		out = append(out, *u.Public())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeUserStore) UpdateName(ctx context.Context, id, name string) (*models.User, error) {
	u := f.users[id]
	if u == nil {
		return nil, nil
	}
	u.Name = name
	return u, nil
}

func (f *fakeUserStore) MarkVerified(ctx context.Context, id string) error {
	if u := f.users[id]; u != nil {
		u.EmailVerified = true
		u.VerificationToken = nil
		u.VerificationExpiry = nil
	}
	return nil
}

func (f *fakeUserStore) SetVerificationToken(ctx context.Context, id, token string, expiry time.Time) error {
	if u := f.users[id]; u != nil {
		u.VerificationToken = &token
		u.VerificationExpiry = &expiry
	}
	return nil
}

type fakeTaskStore struct {
	mu    sync.Mutex
	tasks map[string]*models.Task
	users *fakeUserStore
	seq   int
}

func newFakeTaskStore(users *fakeUserStore) *fakeTaskStore {
	return &fakeTaskStore{tasks: make(map[string]*models.Task), users: users}
}

func (f *fakeTaskStore) decorate(t *models.Task) *models.Task {
	out := *t
	if u := f.users.users[t.CreatorID]; u != nil {
		out.Creator = u.Public()
	}
	if t.AssignedToID != nil {
		if u := f.users.users[*t.AssignedToID]; u != nil {
			out.AssignedTo = u.Public()
		}
	}
	return &out
}

func (f *fakeTaskStore) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	task.ID = fmt.Sprintf("task-%d", f.seq)
	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt
	stored := *task
	f.tasks[task.ID] = &stored
	return f.decorate(&stored), nil
}

func (f *fakeTaskStore) FindByID(ctx context.Context, id string) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return nil, nil
	}
	return f.decorate(t), nil
}

func (f *fakeTaskStore) FindMany(ctx context.Context, filters models.TaskFilters, sortOpt models.TaskSort) ([]*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Task
	now := time.Now()
	for _, t := range f.tasks {
		if filters.Overdue {
			if !t.DueDate.Before(now) || t.Status == models.StatusCompleted {
				continue
			}
		} else if filters.Status != "" && t.Status != filters.Status {
			continue
		}
		if filters.Priority != "" && t.Priority != filters.Priority {
			continue
		}
		if filters.CreatorID != "" && t.CreatorID != filters.CreatorID {
			continue
		}
		if filters.AssignedToID != "" && (t.AssignedToID == nil || *t.AssignedToID != filters.AssignedToID) {
			continue
		}
		out = append(out, f.decorate(t))
	}
	desc := sortOpt.Order == "desc"
	sort.Slice(out, func(i, j int) bool {
		var less bool
		switch sortOpt.By {
		case "createdAt":
			less = out[i].CreatedAt.Before(out[j].CreatedAt)
		case "priority":
			less = out[i].Priority.Rank() < out[j].Priority.Rank()
		default:
			less = out[i].DueDate.Before(out[j].DueDate)
		}
		if desc {
			return !less
		}
		return less
	})
	return out, nil
}

func (f *fakeTaskStore) Update(ctx context.Context, task *models.Task) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *task
	stored.UpdatedAt = time.Now()
	f.tasks[task.ID] = &stored
	return f.decorate(&stored), nil
}

func (f *fakeTaskStore) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tasks, id)
	return nil
}

type fakeNotificationStore struct {
	notifications []*models.Notification
	seq           int
	failCreate    bool
}

func (f *fakeNotificationStore) Create(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	if f.failCreate {
		return nil, fmt.Errorf("notification store down")
	}
	f.seq++
	n.ID = fmt.Sprintf("notif-%d", f.seq)
	n.CreatedAt = time.Now()
	f.notifications = append(f.notifications, n)
	return n, nil
}

func (f *fakeNotificationStore) FindByUser(ctx context.Context, userID string, includeRead bool) ([]*models.Notification, error) {
	var out []*models.Notification
	for i := len(f.notifications) - 1; i >= 0; i-- {
		n := f.notifications[i]
		if n.UserID != userID {
			continue
		}
		if !includeRead && n.Read {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (f *fakeNotificationStore) MarkRead(ctx context.Context, id, userID string) (*models.Notification, error) {
	for _, n := range f.notifications {
		if n.ID == id && n.UserID == userID {
			n.Read = true
			return n, nil
		}
	}
	return nil, nil
}

func (f *fakeNotificationStore) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	var count int64
	for _, n := range f.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			count++
		}
	}
	return count, nil
}

type fakeAuditStore struct {
	mu      sync.Mutex
	entries []*models.AuditLogEntry
	seq     int
}

func (f *fakeAuditStore) Create(ctx context.Context, entry *models.AuditLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	entry.ID = fmt.Sprintf("audit-%d", f.seq)
	entry.CreatedAt = time.Now()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditStore) ListByTask(ctx context.Context, taskID string) ([]*models.AuditLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.AuditLogEntry
	for i := len(f.entries) - 1; i >= 0; i-- {
		if f.entries[i].TaskID == taskID {
			out = append(out, f.entries[i])
		}
	}
	return out, nil
}

func (f *fakeAuditStore) byAction(action models.AuditAction) []*models.AuditLogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.AuditLogEntry
	for _, e := range f.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

// fakeSink records every event the engine emits.
type fakeSink struct {
	mu         sync.Mutex
	broadcasts []struct {
		TaskID    string
		UpdatedBy string
	}
	pushes []struct {
		UserID       string
		Notification *models.Notification
	}
}

func (f *fakeSink) BroadcastTaskUpdate(task *models.Task, updatedBy string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcasts = append(f.broadcasts, struct {
		TaskID    string
		UpdatedBy string
	}{task.ID, updatedBy})
}

func (f *fakeSink) PushNotification(userID string, n *models.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes = append(f.pushes, struct {
		UserID       string
		Notification *models.Notification
	}{userID, n})
}
