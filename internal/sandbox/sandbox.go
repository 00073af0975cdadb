// Package sandbox provides the isolated execution environment for one
// session's generated code: a child interpreter process per Execute call,
// with a per-session workspace, output caps, and timeout enforcement.
package sandbox

import (
	"context"

	"github.com/openptc/ptcd/pkg/protocol"
)

// Options controls a single Execute call.
type Options struct {
	SessionID     string
	TimeoutMs     int
	SkillImplPath string            // extra module-search dir, ahead of the workspace
	Env           map[string]string // applied last, overrides runtime vars
}

// Result is the outcome of executing one wrapped program.
type Result struct {
	Success         bool            `json:"success"`
	Stdout          string          `json:"stdout"`
	Stderr          string          `json:"stderr"`
	ExitCode        int             `json:"exit_code"`
	Error           *protocol.Error `json:"error,omitempty"`
	ExecutionTimeMs int64           `json:"execution_time_ms"`
}

// Adapter is the sandbox contract. One local subprocess implementation is
// provided; remote backends plug in behind the same interface.
type Adapter interface {
	// Execute wraps the code snippet into a complete program and runs it in a
	// fresh child interpreter. No state survives between calls.
	Execute(ctx context.Context, code string, opts Options) *Result

	// Cleanup terminates any live child for the session and removes its
	// workspace. Idempotent.
	Cleanup(sessionID string) error

	// HealthCheck verifies the interpreter binary is reachable.
	HealthCheck(ctx context.Context) bool
}
