// Package server exposes the decision agent over HTTP and WebSocket.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lox/robobot/internal/bot"
	"github.com/lox/robobot/internal/snapshot"
	"github.com/lox/robobot/internal/stats"
)

// Decider answers action requests.
type Decider interface {
	Decide(ctx context.Context, req bot.Request) (*bot.Result, error)
}

// Ledger records completed hands.
type Ledger interface {
	Record(snap *snapshot.Snapshot) (map[string]int, error)
	Standings() ([]stats.Standing, error)
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithClock sets the clock used for latency measurement and keepalives.
func WithClock(clock quartz.Clock) Option {
	return func(s *Server) {
		s.clock = clock
	}
}

// WithLedger enables the statistics endpoints.
func WithLedger(ledger Ledger) Option {
	return func(s *Server) {
		s.ledger = ledger
	}
}

// WithShutdownTimeout bounds how long Start waits for in-flight requests
// once its context is cancelled.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.shutdownTimeout = d
	}
}

// Server serves decisions for one agent.
type Server struct {
	addr            string
	agent           Decider
	ledger          Ledger
	logger          zerolog.Logger
	clock           quartz.Clock
	upgrader        websocket.Upgrader
	shutdownTimeout time.Duration

	mu       sync.Mutex
	sessions map[string]*session
	http     *http.Server
}

// New creates a server listening on addr.
func New(addr string, agent Decider, opts ...Option) *Server {
	s := &Server{
		addr:            addr,
		agent:           agent,
		logger:          zerolog.Nop(),
		clock:           quartz.NewReal(),
		shutdownTimeout: 5 * time.Second,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "server").Logger()
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleForm)
	r.Post("/", s.handleForm)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/decide", s.handleDecide)
		r.Get("/ws", s.handleWebSocket)
		if s.ledger != nil {
			r.Get("/stats", s.handleStandings)
			r.Post("/stats", s.handleRecord)
		}
	})
	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.http = srv
	s.mu.Unlock()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("Starting server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops accepting requests, closes WebSocket sessions and waits
// for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.http
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.close()
	}
	s.logger.Info().Int("sessions", len(sessions)).Msg("Shutting down server")

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Sessions returns the number of open WebSocket sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.clock.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Debug().
			Str("request_id", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", s.clock.Since(start)).
			Msg("HTTP request")
	})
}
