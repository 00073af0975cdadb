// Package agent implements the per-session orchestrator: it owns one
// session's conversation, execution history, and variable store, and turns
// one task into one grounded execution.
package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/openptc/ptcd/internal/providers"
	"github.com/openptc/ptcd/internal/ptc"
	"github.com/openptc/ptcd/internal/sandbox"
	"github.com/openptc/ptcd/internal/tracing"
	"github.com/openptc/ptcd/pkg/protocol"
)

// Generator produces orchestration code for one task.
type Generator interface {
	Generate(ctx context.Context, task string, opts ptc.Options) (string, error)
}

// Message is one conversation turn.
type Message struct {
	Role        string `json:"role"` // "user" or "assistant"
	Content     string `json:"content"`
	TimestampMs int64  `json:"timestamp_ms"`
}

// ExecutionRecord captures one completed run.
type ExecutionRecord struct {
	Task        string `json:"task"`
	Output      string `json:"output"`
	TimestampMs int64  `json:"timestamp_ms"`
	DurationMs  int64  `json:"duration_ms"`
}

// Config wires an Agent's collaborators and bounds.
type Config struct {
	Generator     Generator
	Sandbox       sandbox.Adapter
	SkillImplPath string // forwarded to the sandbox module search path
	TimeoutMs     int    // per-run sandbox budget
	Model         string // forwarded to generation

	MaxConversationEntries int // default 100
	MaxExecutionRecords    int // default 50
}

// Result is the outcome of one Run.
type Result struct {
	Success         bool                  `json:"success"`
	SessionID       string                `json:"session_id"`
	Output          any                   `json:"output,omitempty"`
	Error           *protocol.Error       `json:"error,omitempty"`
	State           protocol.SessionState `json:"state"`
	ExecutionTimeMs int64                 `json:"execution_time_ms"`
}

// Agent holds one session's state. All mutation happens in Run, SetVariable,
// and Cleanup; callers guarantee those are never invoked concurrently for the
// same session, so the Agent carries no locks.
type Agent struct {
	sessionID string
	cfg       Config

	createdAt    time.Time
	lastActivity time.Time

	conversation []Message
	executions   []ExecutionRecord
	variables    map[string]any

	// cumulative totals survive trimming and are what State reports
	totalConversation int
	totalExecutions   int
}

// New constructs an Agent bound to one session id. State starts empty.
func New(cfg Config, sessionID string) *Agent {
	if cfg.MaxConversationEntries <= 0 {
		cfg.MaxConversationEntries = 100
	}
	if cfg.MaxExecutionRecords <= 0 {
		cfg.MaxExecutionRecords = 50
	}
	now := time.Now()
	return &Agent{
		sessionID:    sessionID,
		cfg:          cfg,
		createdAt:    now,
		lastActivity: now,
		variables:    make(map[string]any),
	}
}

// SessionID returns the bound session id.
func (a *Agent) SessionID() string { return a.sessionID }

// LastActivity returns the time of the most recent Run or variable access.
func (a *Agent) LastActivity() time.Time { return a.lastActivity }

// RunOptions carries per-request modifiers.
type RunOptions struct {
	AllowedSkills []string // nil = all skills
}

// Run executes one task: synthesize code, run it in the sandbox, fold the
// outcome back into session state. It never returns an error to the caller;
// failures are carried in the Result.
func (a *Agent) Run(ctx context.Context, task string, opts RunOptions) *Result {
	ctx, span := tracing.Tracer().Start(ctx, "agent.run")
	span.SetAttributes(attribute.String("session.id", a.sessionID))
	defer span.End()

	start := time.Now()
	a.lastActivity = start
	a.appendMessage("user", task)

	genCtx, genSpan := tracing.Tracer().Start(ctx, "ptc.generate")
	code, err := a.cfg.Generator.Generate(genCtx, task, ptc.Options{
		History:       a.historyForPTC(),
		Variables:     a.variables,
		Model:         a.cfg.Model,
		AllowedSkills: opts.AllowedSkills,
	})
	genSpan.End()
	if err != nil {
		perr := protocol.AsError(err)
		a.appendMessage("assistant", "Error: "+perr.Message)
		a.trim()
		return a.failure(perr, start)
	}

	execCtx, execSpan := tracing.Tracer().Start(ctx, "sandbox.execute")
	sres := a.cfg.Sandbox.Execute(execCtx, code, sandbox.Options{
		SessionID:     a.sessionID,
		TimeoutMs:     a.cfg.TimeoutMs,
		SkillImplPath: a.cfg.SkillImplPath,
	})
	execSpan.End()

	if !sres.Success {
		perr := sres.Error
		if perr == nil {
			perr = protocol.Errorf(protocol.KindExecution, "sandbox failed without detail")
		}
		a.appendMessage("assistant", "Error: "+perr.Message)
		a.trim()
		return a.failure(perr, start)
	}

	output, vars := parseOutput(sres.Stdout)
	for k, v := range vars {
		a.variables[k] = v // last-write-wins
	}

	a.appendMessage("assistant", outputText(output))
	a.executions = append(a.executions, ExecutionRecord{
		Task:        task,
		Output:      outputText(output),
		TimestampMs: start.UnixMilli(),
		DurationMs:  time.Since(start).Milliseconds(),
	})
	a.totalExecutions++
	a.trim()

	return &Result{
		Success:         true,
		SessionID:       a.sessionID,
		Output:          output,
		State:           a.State(),
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}
}

func (a *Agent) failure(perr *protocol.Error, start time.Time) *Result {
	return &Result{
		Success:         false,
		SessionID:       a.sessionID,
		Error:           perr,
		State:           a.State(),
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}
}

// State reports cumulative session counters. Conversation/execution totals
// keep growing even after in-memory trimming.
func (a *Agent) State() protocol.SessionState {
	return protocol.SessionState{
		ConversationLength: a.totalConversation,
		ExecutionCount:     a.totalExecutions,
		VariablesCount:     len(a.variables),
	}
}

// Conversation returns the in-memory (bounded) conversation.
func (a *Agent) Conversation() []Message {
	out := make([]Message, len(a.conversation))
	copy(out, a.conversation)
	return out
}

// SetVariable stores a JSON-serializable value; last write wins.
func (a *Agent) SetVariable(key string, value any) {
	a.lastActivity = time.Now()
	a.variables[key] = value
}

// GetVariable returns a stored value.
func (a *Agent) GetVariable(key string) (any, bool) {
	v, ok := a.variables[key]
	return v, ok
}

// Cleanup releases the session's sandbox resources and empties state.
// Idempotent.
func (a *Agent) Cleanup() {
	if a.cfg.Sandbox != nil {
		if err := a.cfg.Sandbox.Cleanup(a.sessionID); err != nil {
			slog.Warn("sandbox cleanup failed", "session", a.sessionID, "error", err)
		}
	}
	a.conversation = nil
	a.executions = nil
	a.variables = make(map[string]any)
}

func (a *Agent) appendMessage(role, content string) {
	a.conversation = append(a.conversation, Message{
		Role:        role,
		Content:     content,
		TimestampMs: time.Now().UnixMilli(),
	})
	a.totalConversation++
}

// trim enforces the history bounds by dropping the oldest entries.
func (a *Agent) trim() {
	if n := len(a.conversation) - a.cfg.MaxConversationEntries; n > 0 {
		a.conversation = append([]Message(nil), a.conversation[n:]...)
	}
	if n := len(a.executions) - a.cfg.MaxExecutionRecords; n > 0 {
		a.executions = append([]ExecutionRecord(nil), a.executions[n:]...)
	}
}

// historyForPTC converts the bounded conversation into provider messages.
func (a *Agent) historyForPTC() []providers.Message {
	msgs := make([]providers.Message, 0, len(a.conversation))
	for _, m := range a.conversation {
		msgs = append(msgs, providers.Message{Role: m.Role, Content: m.Content})
	}
	return msgs
}

// parseOutput interprets the sandbox's stdout. When the last non-empty line
// is a JSON value it becomes the structured output; a top-level "variables"
// object is the escape hatch for persisting values across turns. Otherwise
// the trimmed stdout is the output.
func parseOutput(stdout string) (output any, variables map[string]any) {
	trimmed := strings.TrimSpace(stdout)
	if trimmed == "" {
		return "", nil
	}

	lines := strings.Split(trimmed, "\n")
	last := strings.TrimSpace(lines[len(lines)-1])

	var parsed any
	if err := json.Unmarshal([]byte(last), &parsed); err != nil {
		return trimmed, nil
	}

	if obj, ok := parsed.(map[string]any); ok {
		if rawVars, ok := obj["variables"].(map[string]any); ok {
			variables = rawVars
		}
	}
	return parsed, variables
}

func outputText(output any) string {
	switch v := output.(type) {
	case string:
		return v
	default:
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
		return ""
	}
}
