package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ambientworks/companiond/internal/domain"
)

// inboundMessage is the client-to-server frame. Text frames carry either
// a chat message or a ping; anything else is dropped without a reply.
type inboundMessage struct {
	Type string `json:"type"`
	Data struct {
		Content string `json:"content"`
	} `json:"data"`
}

// Server owns the HTTP listener and the /ws endpoint.
type Server struct {
	addr       string
	hub        *Hub
	dispatcher domain.Dispatcher
	logger     *zap.Logger

	upgrader websocket.Upgrader
	httpSrv  *http.Server

	// baseCtx bounds dispatcher work started from client frames; it is
	// the daemon context, not the request context, so an answer in
	// flight survives its client disconnecting.
	baseCtx context.Context
}

// New creates the WebSocket server. Start must be called to begin listening.
func New(addr string, hub *Hub, dispatcher domain.Dispatcher, logger *zap.Logger) *Server {
	return &Server{
		addr:       addr,
		hub:        hub,
		dispatcher: dispatcher,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The daemon binds loopback only; the desktop shell is the
			// sole intended client.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP handler, for serving under a caller-owned
// listener. ctx bounds dispatcher work triggered by client frames.
func (s *Server) Handler(ctx context.Context) http.Handler {
	s.baseCtx = ctx
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// Start begins serving in the background and arranges shutdown when ctx
// is cancelled. It returns immediately.
func (s *Server) Start(ctx context.Context) {
	s.httpSrv = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(ctx),
	}

	go func() {
		s.logger.Info("websocket server listening", zap.String("addr", s.addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("websocket server failed", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("websocket server shutdown", zap.Error(err))
		}
	}()
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	sess := s.hub.Add(conn)
	defer s.hub.Remove(sess.ID)

	if err := sess.Send(domain.SessionStartedEvent(sess.ID)); err != nil {
		s.logger.Warn("session greeting failed",
			zap.String("session_id", sess.ID), zap.Error(err))
		return
	}

	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			s.logger.Debug("session read ended",
				zap.String("session_id", sess.ID), zap.Error(err))
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			s.dispatcher.AnswerAudio(s.baseCtx, payload)

		case websocket.TextMessage:
			s.handleText(sess, payload)
		}
	}
}

func (s *Server) handleText(sess *Session, payload []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		s.logger.Debug("malformed client frame dropped",
			zap.String("session_id", sess.ID), zap.Error(err))
		return
	}

	switch msg.Type {
	case "ping":
		// Liveness reply goes to the asking session only, never broadcast.
		if err := sess.Send(domain.PongEvent(sess.ID)); err != nil {
			s.logger.Debug("pong send failed",
				zap.String("session_id", sess.ID), zap.Error(err))
		}

	case "message":
		content := strings.TrimSpace(msg.Data.Content)
		if content == "" {
			return
		}
		s.dispatcher.AnswerText(s.baseCtx, content)

	default:
		s.logger.Debug("unknown client frame type dropped",
			zap.String("session_id", sess.ID), zap.String("type", msg.Type))
	}
}
