package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"taskflow/internal/models"
)

func ginContext(t *testing.T, target string, setup func(r *http.Request)) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	if setup != nil {
		setup(c.Request)
	}
	return c
}

// fakeEngine stands in for the task mutation engine. Like the real one,
// a successful update announces itself through the sink.
type fakeEngine struct {
	sink      *Dispatcher
	prior     *models.Task
	updated   *models.Task
	getErr    error
	updateErr error
	gotInput  *models.UpdateTaskInput
	gotUser   string
}

func (e *fakeEngine) GetTaskByID(ctx context.Context, id string) (*models.Task, error) {
	if e.getErr != nil {
		return nil, e.getErr
	}
	return e.prior, nil
}

func (e *fakeEngine) UpdateTask(ctx context.Context, id string, input *models.UpdateTaskInput, actingUserID string) (*models.Task, error) {
	e.gotInput = input
	e.gotUser = actingUserID
	if e.updateErr != nil {
		return nil, e.updateErr
	}
	e.sink.BroadcastTaskUpdate(e.updated, actingUserID)
	return e.updated, nil
}

type stubNotifications struct {
	created []*models.Notification
}

func (s *stubNotifications) Create(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	n.ID = "notif-" + strconv.Itoa(len(s.created)+1)
	s.created = append(s.created, n)
	return n, nil
}

func (s *stubNotifications) FindByUser(ctx context.Context, userID string, includeRead bool) ([]*models.Notification, error) {
	return nil, nil
}

func (s *stubNotifications) MarkRead(ctx context.Context, id, userID string) (*models.Notification, error) {
	return nil, nil
}

func (s *stubNotifications) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return 0, nil
}

func (c *recorderConn) events(t *testing.T) []Event {
	t.Helper()
	out := make([]Event, 0, len(c.frames))
	for _, frame := range c.frames {
		var ev Event
		if err := json.Unmarshal(frame, &ev); err != nil {
			t.Fatalf("frame is not a valid envelope: %v", err)
		}
		out = append(out, ev)
	}
	return out
}

type dispatchFixture struct {
	hub           *Hub
	dispatcher    *Dispatcher
	engine        *fakeEngine
	notifications *stubNotifications
	actor         *Session
	actorConn     *recorderConn
	assigneeConn  *recorderConn
	invalidations int
}

func newDispatchFixture(t *testing.T) *dispatchFixture {
	t.Helper()
	fx := &dispatchFixture{
		hub:           NewHub(),
		notifications: &stubNotifications{},
	}
	fx.dispatcher = NewDispatcher(fx.hub, nil, fx.notifications)
	fx.dispatcher.invalidate = func(context.Context) { fx.invalidations++ }

	bobID := "bob"
	fx.engine = &fakeEngine{
		sink:    fx.dispatcher,
		prior:   &models.Task{ID: "task-1", Title: "Ship it"},
		updated: &models.Task{ID: "task-1", Title: "Ship it", AssignedToID: &bobID},
	}
	fx.dispatcher.AttachTasks(fx.engine)

	fx.actorConn = &recorderConn{}
	fx.actor = NewSession("alice", "Alice", fx.actorConn)
	fx.hub.Register(fx.actor)

	fx.assigneeConn = &recorderConn{}
	fx.hub.Register(NewSession("bob", "Bob", fx.assigneeConn))
	return fx
}

func (fx *dispatchFixture) dispatch(t *testing.T, payload string) {
	t.Helper()
	c := ginContext(t, "/ws", nil)
	fx.dispatcher.handleTaskUpdate(c, fx.actor, json.RawMessage(payload))
}

func TestHandleTaskUpdate_AssignmentFlow(t *testing.T) {
	fx := newDispatchFixture(t)

	fx.dispatch(t, `{"taskId":"task-1","updates":{"assignedToId":"bob"}}`)

	if fx.engine.gotUser != "alice" {
		t.Errorf("acting user = %q, want alice", fx.engine.gotUser)
	}
	if fx.engine.gotInput == nil || !fx.engine.gotInput.AssignedTo.Set || fx.engine.gotInput.AssignedTo.Value != "bob" {
		t.Errorf("engine input = %+v, want assignment to bob", fx.engine.gotInput)
	}
	if fx.invalidations != 1 {
		t.Errorf("cache invalidations = %d, want 1", fx.invalidations)
	}

	actorEvents := fx.actorConn.events(t)
	if len(actorEvents) != 1 || actorEvents[0].Event != "task:updated" {
		t.Fatalf("actor events = %+v, want one task:updated", actorEvents)
	}

	assigneeEvents := fx.assigneeConn.events(t)
	if len(assigneeEvents) != 2 {
		t.Fatalf("assignee events = %d, want task:updated plus notification:new", len(assigneeEvents))
	}
	if assigneeEvents[0].Event != "task:updated" || assigneeEvents[1].Event != "notification:new" {
		t.Errorf("assignee events = [%s, %s]", assigneeEvents[0].Event, assigneeEvents[1].Event)
	}

	if len(fx.notifications.created) != 1 {
		t.Fatalf("stored notifications = %d, want 1", len(fx.notifications.created))
	}
	n := fx.notifications.created[0]
	if n.UserID != "bob" {
		t.Errorf("notification recipient = %q, want bob", n.UserID)
	}
	if want := "You have been assigned to task: Ship it by Alice"; n.Message != want {
		t.Errorf("notification message = %q, want %q", n.Message, want)
	}
	if n.AssignedByID == nil || *n.AssignedByID != "alice" {
		t.Errorf("notification assignedBy = %v, want alice", n.AssignedByID)
	}
}

func TestHandleTaskUpdate_NoAssignmentChange(t *testing.T) {
	fx := newDispatchFixture(t)
	fx.engine.updated.AssignedToID = nil

	fx.dispatch(t, `{"taskId":"task-1","updates":{"status":"InProgress"}}`)

	if len(fx.notifications.created) != 0 {
		t.Errorf("stored notifications = %d, want 0 without an assignment change", len(fx.notifications.created))
	}
	assigneeEvents := fx.assigneeConn.events(t)
	if len(assigneeEvents) != 1 || assigneeEvents[0].Event != "task:updated" {
		t.Errorf("assignee events = %+v, want broadcast only", assigneeEvents)
	}
}

func TestHandleTaskUpdate_MutationFailure(t *testing.T) {
	fx := newDispatchFixture(t)
	fx.engine.updateErr = errors.New("db down")

	fx.dispatch(t, `{"taskId":"task-1","updates":{"status":"InProgress"}}`)

	actorEvents := fx.actorConn.events(t)
	if len(actorEvents) != 1 || actorEvents[0].Event != "error" {
		t.Fatalf("actor events = %+v, want one error", actorEvents)
	}
	data, ok := actorEvents[0].Data.(map[string]interface{})
	if !ok || data["message"] != "Failed to update task" {
		t.Errorf("error data = %#v", actorEvents[0].Data)
	}
	// The failure stays with the originator.
	if frames := len(fx.assigneeConn.frames); frames != 0 {
		t.Errorf("assignee frames = %d, want 0", frames)
	}
	if fx.invalidations != 0 {
		t.Errorf("cache invalidations = %d, want 0 on failure", fx.invalidations)
	}
}

func TestHandleTaskUpdate_PriorFetchFailure(t *testing.T) {
	fx := newDispatchFixture(t)
	fx.engine.getErr = errors.New("db down")

	fx.dispatch(t, `{"taskId":"task-1","updates":{"status":"InProgress"}}`)

	actorEvents := fx.actorConn.events(t)
	if len(actorEvents) != 1 || actorEvents[0].Event != "error" {
		t.Fatalf("actor events = %+v, want one error", actorEvents)
	}
	if fx.engine.gotInput != nil {
		t.Error("engine was called despite failed prior fetch")
	}
}

func TestHandleTaskUpdate_InvalidPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"malformed json", `{"taskId":`},
		{"missing task id", `{"updates":{"status":"InProgress"}}`},
		{"missing updates", `{"taskId":"task-1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newDispatchFixture(t)
			fx.dispatch(t, tt.payload)

			actorEvents := fx.actorConn.events(t)
			if len(actorEvents) != 1 || actorEvents[0].Event != "error" {
				t.Fatalf("actor events = %+v, want one error", actorEvents)
			}
			data, ok := actorEvents[0].Data.(map[string]interface{})
			if !ok || data["message"] != "Invalid task:update payload" {
				t.Errorf("error data = %#v", actorEvents[0].Data)
			}
			if fx.engine.gotInput != nil {
				t.Error("engine was called for an invalid payload")
			}
		})
	}
}

func TestHandshakeToken(t *testing.T) {
	tests := []struct {
		name   string
		target string
		setup  func(r *http.Request)
		want   string
	}{
		{
			name:   "query parameter",
			target: "/ws?token=query-token",
			want:   "query-token",
		},
		{
			name:   "bearer header",
			target: "/ws",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer header-token")
			},
			want: "header-token",
		},
		{
			name:   "cookie fallback",
			target: "/ws",
			setup: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: "token", Value: "cookie-token"})
			},
			want: "cookie-token",
		},
		{
			name:   "query wins over header",
			target: "/ws?token=query-token",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer header-token")
			},
			want: "query-token",
		},
		{
			name:   "non-bearer header ignored",
			target: "/ws",
			setup: func(r *http.Request) {
				r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
			},
			want: "",
		},
		{
			name:   "no credential",
			target: "/ws",
			want:   "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ginContext(t, tt.target, tt.setup)
			if got := handshakeToken(c); got != tt.want {
				t.Errorf("handshakeToken() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSameAssignee(t *testing.T) {
	a, b := "u1", "u2"
	if !sameAssignee(nil, nil) {
		t.Error("sameAssignee(nil, nil) = false")
	}
	if sameAssignee(&a, nil) || sameAssignee(nil, &a) {
		t.Error("nil vs value reported equal")
	}
	if !sameAssignee(&a, &a) {
		t.Error("equal values reported different")
	}
	if sameAssignee(&a, &b) {
		t.Error("different values reported equal")
	}
}
