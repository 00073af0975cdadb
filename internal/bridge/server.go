// Package bridge exposes the skill executor to sandbox children over a
// loopback-only HTTP endpoint. The generated program's in-scope executor
// crosses languages here: one POST per skill invocation.
package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/openptc/ptcd/internal/skills"
	"github.com/openptc/ptcd/pkg/protocol"
)

// Server is the loopback skill bridge. One instance serves all sessions; the
// executor it fronts is concurrent-safe.
type Server struct {
	executor *skills.Executor
	token    string
	srv      *http.Server
	ln       net.Listener
	url      string
}

// executeRequest is the body of POST /v1/skills/execute.
type executeRequest struct {
	SessionID string         `json:"session_id"`
	Skill     string         `json:"skill"`
	Input     map[string]any `json:"input"`
}

// New creates a bridge with a fresh bearer token.
func New(executor *skills.Executor) *Server {
	return &Server{
		executor: executor,
		token:    uuid.NewString(),
	}
}

// Start binds a loopback port and begins serving.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	s.ln = ln
	s.url = "http://" + ln.Addr().String()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/skills/execute", s.handleExecute)

	s.srv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("skill bridge serve failed", "error", err)
		}
	}()

	slog.Debug("skill bridge listening", "url", s.url)
	return nil
}

// URL returns the base URL children should call.
func (s *Server) URL() string { return s.url }

// Token returns the bearer token children must present.
func (s *Server) Token() string { return s.token }

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Skill == "" {
		writeJSON(w, http.StatusBadRequest, &skills.Result{
			Success: false,
			Error:   protocol.Errorf(protocol.KindValidation, "bridge: malformed execute request"),
		})
		return
	}

	result := s.executor.Execute(r.Context(), req.Skill, req.Input)
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("bridge response encode failed", "error", err)
	}
}

// Shutdown stops the listener, draining in-flight skill calls.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
