package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"taskflow/pkg/logger"
)

// Event is the wire envelope for every server-to-client message.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub is the presence and room registry: it maps live sessions to per-user
// broadcast groups. Membership changes only on connect/disconnect; every
// broadcast reads it, so all access goes through one RWMutex.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session            // session id -> session
	groups   map[string]map[string]*Session // group key -> session id -> session
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]*Session),
		groups:   make(map[string]map[string]*Session),
	}
}

// Register adds a session to the registry and its user group. A user with
// several connections holds several sessions in the same group.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s.ID] = s
	if h.groups[s.Group] == nil {
		h.groups[s.Group] = make(map[string]*Session)
	}
	h.groups[s.Group][s.ID] = s
	logger.Info(context.Background(), "Session joined", "session_id", s.ID, "user_id", s.UserID)
}

// Unregister removes a session from the registry and its group. No
// buffering or replay: a reconnecting client re-fetches state.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[s.ID]; !ok {
		return
	}
	delete(h.sessions, s.ID)
	if members := h.groups[s.Group]; members != nil {
		delete(members, s.ID)
		if len(members) == 0 {
			delete(h.groups, s.Group)
		}
	}
	logger.Info(context.Background(), "Session left", "session_id", s.ID, "user_id", s.UserID)
}

// BroadcastAll sends an event to every connected session.
func (h *Hub) BroadcastAll(event string, data interface{}) {
	payload, err := json.Marshal(Event{Event: event, Data: data})
	if err != nil {
		logger.Error(context.Background(), "Broadcast marshal failed", "error", err, "event", event)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.sessions {
		s.write(payload)
	}
}

// SendToGroup sends an event to every session in one group only.
func (h *Hub) SendToGroup(group, event string, data interface{}) {
	payload, err := json.Marshal(Event{Event: event, Data: data})
	if err != nil {
		logger.Error(context.Background(), "Group send marshal failed", "error", err, "event", event)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.groups[group] {
		s.write(payload)
	}
}

// SessionCount returns the number of connected sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// GroupSize returns the number of sessions in a group.
func (h *Hub) GroupSize(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}
