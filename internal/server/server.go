package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gkodali-zededa/ai-agent-core/internal/backend"
	"github.com/gkodali-zededa/ai-agent-core/internal/guard"
	"github.com/gkodali-zededa/ai-agent-core/internal/mcp"
	"github.com/gkodali-zededa/ai-agent-core/internal/session"
)

const (
	greeting          = "MCP Client Ready. Send your queries or 'quit' to exit."
	exitMessage       = "Exiting chat loop."
	serverErrorNotice = "Server-side error. Please check server logs."

	handshakeTimeout = 10 * time.Second
)

// Gatekeeper screens raw user input before a turn may start.
type Gatekeeper interface {
	Evaluate(ctx context.Context, text string) (bool, error)
}

// TurnRunner processes one user message against a session.
type TurnRunner interface {
	RunTurn(ctx context.Context, sess *session.Session, userText string) (string, error)
}

// TurnRecorder persists the messages a committed turn produced.
type TurnRecorder interface {
	Record(sessionID string, startTime time.Time, messages []backend.Message) error
}

// Options wires the server's collaborators.
type Options struct {
	// Gate screens input when set; nil disables screening.
	Gate Gatekeeper
	// Sessions tracks live conversations. Defaults to a fresh store.
	Sessions *session.Store
	// Recorder receives committed turns when set; best effort.
	Recorder TurnRecorder
	// NewToolHost dials a tool host for one connection.
	NewToolHost func() (mcp.ToolHost, error)
	// NewTurnRunner builds the per-connection orchestrator around its host.
	NewTurnRunner func(host mcp.ToolHost) TurnRunner
	Logger        *slog.Logger
}

// Server is the websocket transport in front of the orchestrator. Each
// connection owns one session and one tool host; messages on a connection
// are processed strictly one at a time.
type Server struct {
	gate          Gatekeeper
	sessions      *session.Store
	recorder      TurnRecorder
	newToolHost   func() (mcp.ToolHost, error)
	newTurnRunner func(host mcp.ToolHost) TurnRunner
	logger        *slog.Logger
	upgrader      websocket.Upgrader
}

// New creates the server from its collaborators.
func New(opts Options) (*Server, error) {
	if opts.NewToolHost == nil {
		return nil, fmt.Errorf("NewToolHost is required")
	}
	if opts.NewTurnRunner == nil {
		return nil, fmt.Errorf("NewTurnRunner is required")
	}
	if opts.Sessions == nil {
		opts.Sessions = session.NewStore()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Server{
		gate:          opts.Gate,
		sessions:      opts.Sessions,
		recorder:      opts.Recorder,
		newToolHost:   opts.NewToolHost,
		newTurnRunner: opts.NewTurnRunner,
		logger:        opts.Logger.With("component", "server"),
		upgrader: websocket.Upgrader{
			// Browser clients connect from arbitrary origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}, nil
}

// Handler returns the HTTP mux with the /health and /ws endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// ListenAndServe serves until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	s.logger.Info("listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sess := s.sessions.Create()
	defer s.sessions.Remove(sess.ID)

	logger := s.logger.With("session_id", sess.ID)
	logger.Info("client connected", "remote", conn.RemoteAddr().String())

	host, err := s.newToolHost()
	if err != nil {
		logger.Error("failed to start tool host", "error", err)
		s.send(conn, serverErrorNotice)
		return
	}
	// Idempotent, and the one place the host is torn down: every exit path
	// of the connection funnels through this defer.
	defer host.Close()

	// The chat loop deliberately uses a fresh context rather than the
	// request context: a disconnect mid-turn lets the in-flight call run
	// to completion and only then tears the session down.
	ctx := context.Background()

	initCtx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	err = host.Initialize(initCtx)
	cancel()
	if err != nil {
		logger.Error("tool host handshake failed", "error", err)
		s.send(conn, serverErrorNotice)
		return
	}

	runner := s.newTurnRunner(host)

	if !s.send(conn, greeting) {
		return
	}

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			logger.Info("client disconnected", "error", err)
			return
		}
		query := strings.TrimSpace(string(payload))
		if query == "" {
			continue
		}

		if strings.EqualFold(query, "quit") {
			s.send(conn, exitMessage)
			return
		}

		if s.gate != nil {
			approved, err := s.gate.Evaluate(ctx, query)
			if err != nil {
				logger.Error("compliance gate unavailable", "error", err)
				if !s.send(conn, serverErrorNotice) {
					return
				}
				continue
			}
			if !approved {
				logger.Info("input rejected by compliance gate")
				if !s.send(conn, guard.RefusalMessage) {
					return
				}
				continue
			}
		}

		committedBefore := len(sess.Messages)
		reply, err := runner.RunTurn(ctx, sess, query)
		if err != nil {
			logger.Error("turn failed", "error", err)
			if !s.send(conn, serverErrorNotice) {
				return
			}
			continue
		}

		s.recordTurn(logger, sess, committedBefore)

		if !s.send(conn, reply) {
			return
		}
	}
}

// recordTurn writes the turn's committed messages to the transcript. Failure
// is logged and never surfaces to the user.
func (s *Server) recordTurn(logger *slog.Logger, sess *session.Session, committedBefore int) {
	if s.recorder == nil || len(sess.Messages) <= committedBefore {
		return
	}
	if err := s.recorder.Record(sess.ID, sess.StartTime, sess.Messages[committedBefore:]); err != nil {
		logger.Warn("failed to record transcript", "error", err)
	}
}

// send writes one text message and reports whether the connection is still
// usable.
func (s *Server) send(conn *websocket.Conn, text string) bool {
	if err := conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		s.logger.Warn("failed to write message", "error", err)
		return false
	}
	return true
}
