package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"taskflow/pkg/logger"
)

// Conn is the write side of a WebSocket connection. *websocket.Conn
// satisfies it; tests substitute a recorder.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Session is one live authenticated connection, created at the moment
// identity resolution succeeds. It carries the resolved identity and the
// user group it was joined into; delivery through it is best-effort.
type Session struct {
	ID       string
	UserID   string
	UserName string
	Group    string

	conn    Conn
	writeMu sync.Mutex
}

// NewSession builds a session for a resolved user. The group key is
// derived from the user id, so all of a user's sessions share a group.
func NewSession(userID, userName string, conn Conn) *Session {
	return &Session{
		ID:       uuid.New().String(),
		UserID:   userID,
		UserName: userName,
		Group:    GroupForUser(userID),
		conn:     conn,
	}
}

// GroupForUser returns the broadcast group key for a user.
func GroupForUser(userID string) string {
	return "user:" + userID
}

// Send marshals and delivers a single event to this session only.
func (s *Session) Send(event string, data interface{}) {
	payload, err := json.Marshal(Event{Event: event, Data: data})
	if err != nil {
		logger.Error(context.Background(), "Session send marshal failed", "error", err, "event", event)
		return
	}
	s.write(payload)
}

// write delivers raw bytes. gorilla/websocket allows one concurrent
// writer, so writes are serialized per session. Failures are logged and
// dropped; the read loop notices a dead connection and unregisters.
func (s *Session) write(payload []byte) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		logger.Debug(context.Background(), "Session write failed", "error", err, "session_id", s.ID)
	}
}
