package runtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/openptc/ptcd/internal/agent"
	"github.com/openptc/ptcd/internal/sessions"
	"github.com/openptc/ptcd/internal/store"
	"github.com/openptc/ptcd/internal/tracing"
	"github.com/openptc/ptcd/pkg/protocol"
)

// Handler is the single entry point for task execution requests.
type Handler struct {
	manager *sessions.Manager
	journal *store.Journal // nil when disabled
}

// Execute runs one task. Every outcome, including validation failures, is a
// well-formed response; the error field carries one of the closed error kinds.
func (h *Handler) Execute(ctx context.Context, req protocol.ExecuteRequest) protocol.ExecuteResponse {
	ctx, span := tracing.Tracer().Start(ctx, "handler.execute")
	defer span.End()

	task := strings.TrimSpace(req.Task)
	if task == "" {
		return errorResponse(req.SessionID, protocol.Errorf(protocol.KindValidation, "task must not be empty"))
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	span.SetAttributes(attribute.String("session.id", sessionID))

	if req.Continue && req.SessionID == "" {
		slog.Debug("continue requested without a session id; starting fresh", "session", sessionID)
	}

	ag, err := h.manager.Acquire(sessionID)
	if err != nil {
		return errorResponse(sessionID, protocol.AsError(err))
	}

	result := ag.Run(ctx, task, agent.RunOptions{AllowedSkills: req.AvailableSkills})

	h.record(ctx, sessionID, task, result)

	resp := protocol.ExecuteResponse{
		Success:         result.Success,
		SessionID:       sessionID,
		Output:          result.Output,
		Error:           result.Error,
		ExecutionTimeMs: result.ExecutionTimeMs,
		State:           result.State,
	}
	return resp
}

// record journals the run. Journal failures are logged, never surfaced.
func (h *Handler) record(ctx context.Context, sessionID, task string, result *agent.Result) {
	if h.journal == nil {
		return
	}
	entry := store.Entry{
		SessionID:  sessionID,
		Task:       task,
		Output:     outputString(result.Output),
		Success:    result.Success,
		DurationMs: result.ExecutionTimeMs,
		CreatedAt:  time.Now(),
	}
	if result.Error != nil {
		entry.ErrorKind = string(result.Error.Kind)
	}
	if err := h.journal.Record(ctx, entry); err != nil {
		slog.Warn("journal record failed", "session", sessionID, "error", err)
	}
}

func outputString(output any) string {
	switch v := output.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func errorResponse(sessionID string, perr *protocol.Error) protocol.ExecuteResponse {
	return protocol.ExecuteResponse{
		Success:   false,
		SessionID: sessionID,
		Error:     perr,
	}
}
