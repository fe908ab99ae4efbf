// Package server exposes the WebSocket endpoint and session fan-out.
package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ambientworks/companiond/internal/domain"
)

// Session is one live client connection. Owned by the Hub; gorilla
// connections allow one concurrent writer, so writes serialize on writeMu.
type Session struct {
	ID        string
	CreatedAt time.Time

	conn    *websocket.Conn
	writeMu sync.Mutex
}

// Send writes one event to this session.
func (s *Session) Send(event domain.Event) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(event)
}

// Hub tracks connected sessions and fans events out to all of them.
// Sessions are independent: there is no guaranteed delivery, and a failed
// send to one session never blocks the others.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	logger   *zap.Logger
}

// NewHub creates an empty session hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		sessions: make(map[string]*Session),
		logger:   logger,
	}
}

// Add registers a freshly upgraded connection and returns its session.
func (h *Hub) Add(conn *websocket.Conn) *Session {
	sess := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		conn:      conn,
	}

	h.mu.Lock()
	h.sessions[sess.ID] = sess
	h.mu.Unlock()

	h.logger.Info("session connected", zap.String("session_id", sess.ID))
	return sess
}

// Remove deregisters and closes a session. Idempotent.
func (h *Hub) Remove(sessionID string) {
	h.mu.Lock()
	sess, ok := h.sessions[sessionID]
	delete(h.sessions, sessionID)
	h.mu.Unlock()

	if !ok {
		return
	}
	_ = sess.conn.Close()
	h.logger.Info("session disconnected", zap.String("session_id", sessionID))
}

// Broadcast sends event to every registered session. The session set is
// snapshotted first so connect/disconnect during the fan-out is safe.
func (h *Hub) Broadcast(event domain.Event) {
	h.mu.RLock()
	snapshot := make([]*Session, 0, len(h.sessions))
	for _, sess := range h.sessions {
		snapshot = append(snapshot, sess)
	}
	h.mu.RUnlock()

	for _, sess := range snapshot {
		if err := sess.Send(event); err != nil {
			h.logger.Warn("broadcast send failed",
				zap.String("session_id", sess.ID),
				zap.String("event", string(event.Type)),
				zap.Error(err))
		}
	}
}

// Count returns the number of connected sessions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// CloseAll closes every session and clears the registry. Used at
// shutdown, after the monitor loop has drained. Individual close
// failures are tolerated.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string]*Session)
	h.mu.Unlock()

	for _, sess := range sessions {
		deadline := time.Now().Add(time.Second)
		_ = sess.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			deadline)
		_ = sess.conn.Close()
	}

	if len(sessions) > 0 {
		h.logger.Info("all sessions closed", zap.Int("count", len(sessions)))
	}
}

var _ domain.Broadcaster = (*Hub)(nil)
