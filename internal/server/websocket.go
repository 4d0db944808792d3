package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lox/robobot/internal/bot"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 << 10
)

// Message types on the WebSocket.
const (
	TypeWelcome  = "welcome"
	TypeDecision = "decision"
	TypeError    = "error"
)

// wsRequest is a decide request with an optional correlation id.
type wsRequest struct {
	ID string `json:"id,omitempty"`
	bot.Request
}

// wsResponse is sent once per request, plus a welcome on connect.
type wsResponse struct {
	Type    string      `json:"type"`
	ID      string      `json:"id,omitempty"`
	Session string      `json:"session"`
	Result  *bot.Result `json:"result,omitempty"`
	Code    string      `json:"code,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type session struct {
	id        string
	conn      *websocket.Conn
	logger    zerolog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func (sess *session) close() {
	sess.closeOnce.Do(func() {
		sess.cancel()
		deadline := time.Now().Add(writeWait)
		_ = sess.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), deadline)
		_ = sess.conn.Close()
	})
}

func (sess *session) send(msg wsResponse) error {
	msg.Session = sess.id
	_ = sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return sess.conn.WriteJSON(msg)
}

// handleWebSocket upgrades the connection and answers decide requests in
// order until the peer goes away.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{
		id:     uuid.NewString(),
		conn:   conn,
		ctx:    ctx,
		cancel: cancel,
	}
	sess.logger = s.logger.With().Str("session", sess.id).Logger()

	s.register(sess)
	defer s.unregister(sess)

	go s.keepalive(sess)

	if err := sess.send(wsResponse{Type: TypeWelcome}); err != nil {
		return
	}
	s.readLoop(sess)
}

func (s *Server) register(sess *session) {
	s.mu.Lock()
	s.sessions[sess.id] = sess
	total := len(s.sessions)
	s.mu.Unlock()
	sess.logger.Info().Int("total", total).Msg("Client connected")
}

func (s *Server) unregister(sess *session) {
	s.mu.Lock()
	delete(s.sessions, sess.id)
	total := len(s.sessions)
	s.mu.Unlock()
	sess.close()
	sess.logger.Info().Int("total", total).Msg("Client disconnected")
}

func (s *Server) readLoop(sess *session) {
	sess.conn.SetReadLimit(maxMessageSize)
	_ = sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	sess.conn.SetPongHandler(func(string) error {
		return sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				sess.logger.Error().Err(err).Msg("WebSocket error")
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(data, &req); err != nil {
			if err := sess.send(wsResponse{Type: TypeError, Code: "invalid_json", Error: err.Error()}); err != nil {
				return
			}
			continue
		}

		start := s.clock.Now()
		res, err := s.agent.Decide(sess.ctx, req.Request)
		if err != nil {
			sess.logger.Warn().Err(err).Str("id", req.ID).Msg("Decision failed")
			if err := sess.send(wsResponse{Type: TypeError, ID: req.ID, Code: codeFor(err), Error: err.Error()}); err != nil {
				return
			}
			continue
		}
		sess.logger.Debug().
			Str("id", req.ID).
			Str("action", res.Action).
			Dur("duration", s.clock.Since(start)).
			Msg("Answered request")

		if err := sess.send(wsResponse{Type: TypeDecision, ID: req.ID, Result: res}); err != nil {
			sess.logger.Error().Err(err).Msg("Failed to write message")
			return
		}
	}
}

func (s *Server) keepalive(sess *session) {
	ticker := s.clock.NewTicker(pingPeriod, "keepalive")
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := sess.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-sess.ctx.Done():
			return
		}
	}
}
