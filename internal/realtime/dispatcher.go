package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"taskflow/internal/auth"
	"taskflow/internal/cache"
	"taskflow/internal/config"
	"taskflow/internal/models"
	"taskflow/internal/service"
	"taskflow/pkg/logger"
)

// TaskEngine is the slice of the mutation engine the socket path drives.
// *service.Tasks satisfies it.
type TaskEngine interface {
	GetTaskByID(ctx context.Context, id string) (*models.Task, error)
	UpdateTask(ctx context.Context, id string, input *models.UpdateTaskInput, actingUserID string) (*models.Task, error)
}

// Dispatcher bridges authenticated WebSocket sessions to the task mutation
// engine. It implements service.EventSink, so mutations made over HTTP and
// over a socket converge on identical observable events.
type Dispatcher struct {
	hub           *Hub
	resolver      *auth.Resolver
	notifications service.NotificationStore
	tasks         TaskEngine
	invalidate    func(context.Context)
	upgrader      websocket.Upgrader
}

// NewDispatcher wires the dispatcher. The task engine is attached
// afterwards (AttachTasks) because the engine takes the dispatcher as its
// event sink.
func NewDispatcher(hub *Hub, resolver *auth.Resolver, notifications service.NotificationStore) *Dispatcher {
	return &Dispatcher{
		hub:           hub,
		resolver:      resolver,
		notifications: notifications,
		invalidate:    cache.InvalidateTasks,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origin == config.Get().FrontendURL
			},
		},
	}
}

// AttachTasks plugs in the mutation engine after both sides exist.
func (d *Dispatcher) AttachTasks(tasks TaskEngine) {
	d.tasks = tasks
}

// BroadcastTaskUpdate implements service.EventSink: every connected
// session sees every task change, whatever view it has open.
func (d *Dispatcher) BroadcastTaskUpdate(task *models.Task, updatedBy string) {
	d.hub.BroadcastAll("task:updated", gin.H{"task": task, "updatedBy": updatedBy})
}

// PushNotification implements service.EventSink: delivery scoped to the
// recipient's group.
func (d *Dispatcher) PushNotification(userID string, n *models.Notification) {
	d.hub.SendToGroup(GroupForUser(userID), "notification:new", n)
}

// HandleWS authenticates the handshake, upgrades the connection, joins the
// session into its user group and runs the read loop until disconnect.
func (d *Dispatcher) HandleWS(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := d.resolver.Resolve(ctx, handshakeToken(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication error: " + err.Error()})
		return
	}

	conn, err := d.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error(ctx, "WebSocket upgrade failed", "error", err)
		return
	}

	session := NewSession(user.ID, user.Name, conn)
	d.hub.Register(session)
	defer func() {
		d.hub.Unregister(session)
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug(ctx, "WebSocket read error", "error", err, "session_id", session.ID)
			}
			return
		}
		var envelope struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			session.Send("error", gin.H{"message": "Invalid message format"})
			continue
		}
		switch envelope.Event {
		case "task:update":
			d.handleTaskUpdate(c, session, envelope.Data)
		default:
			session.Send("error", gin.H{"message": "Unknown event: " + envelope.Event})
		}
	}
}

// handleTaskUpdate runs an inbound mutation with the session's identity as
// the acting user. Failures go back to the originating session only.
func (d *Dispatcher) handleTaskUpdate(c *gin.Context, session *Session, data json.RawMessage) {
	ctx := c.Request.Context()
	var req struct {
		TaskID  string                  `json:"taskId"`
		Updates *models.UpdateTaskInput `json:"updates"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.TaskID == "" || req.Updates == nil {
		session.Send("error", gin.H{"message": "Invalid task:update payload"})
		return
	}

	prior, err := d.tasks.GetTaskByID(ctx, req.TaskID)
	if err != nil {
		session.Send("error", gin.H{"message": "Failed to update task"})
		return
	}

	updated, err := d.tasks.UpdateTask(ctx, req.TaskID, req.Updates, session.UserID)
	if err != nil {
		logger.Debug(ctx, "Realtime task update failed", "error", err, "task_id", req.TaskID)
		session.Send("error", gin.H{"message": "Failed to update task"})
		return
	}
	d.invalidate(ctx)

	// The engine already broadcast task:updated and notified the assignee.
	// The socket path additionally emits its own assignment notification.
	if req.Updates.AssignedTo.Set && req.Updates.AssignedTo.Valid &&
		!sameAssignee(prior.AssignedToID, req.Updates.AssignedTo.Ptr()) {
		d.pushAssignmentNotification(c, session, updated, req.Updates.AssignedTo.Value)
	}
}

func (d *Dispatcher) pushAssignmentNotification(c *gin.Context, session *Session, task *models.Task, assigneeID string) {
	ctx := c.Request.Context()
	taskID := task.ID
	actorID := session.UserID
	n, err := d.notifications.Create(ctx, &models.Notification{
		UserID:       assigneeID,
		Message:      fmt.Sprintf("You have been assigned to task: %s by %s", task.Title, session.UserName),
		TaskID:       &taskID,
		AssignedByID: &actorID,
	})
	if err != nil {
		logger.Error(ctx, "Realtime assignment notification failed", "error", err, "task_id", task.ID)
		return
	}
	d.hub.SendToGroup(GroupForUser(assigneeID), "notification:new", n)
}

// handshakeToken extracts the credential from the handshake: a token query
// parameter, an Authorization bearer header, or a cookie fallback.
func handshakeToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(header[len("Bearer "):])
	}
	if token, err := c.Cookie("token"); err == nil {
		return token
	}
	return ""
}

func sameAssignee(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
