// Package protocol defines the wire types and error kinds shared between the
// runtime core and anything that embeds or drives it.
package protocol

import (
	"errors"
	"fmt"
)

// ProtocolVersion is bumped whenever the Execute request/response shape
// changes incompatibly.
const ProtocolVersion = 1

// ErrorKind is the closed set of error kinds surfaced to callers.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindManagerClosed ErrorKind = "manager_closed"
	KindSkillNotFound ErrorKind = "skill_not_found"
	KindPlanning      ErrorKind = "planning"
	KindSynthesis     ErrorKind = "synthesis"
	KindTimeout       ErrorKind = "timeout"
	KindExecution     ErrorKind = "execution"
	KindLLM           ErrorKind = "llm"
	KindInternal      ErrorKind = "internal"
)

// Error is the structured error carried across every component boundary.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Errorf builds a structured error with a formatted message.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AsError coerces any error into a *Error. Errors that are not already
// structured are wrapped as KindInternal.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	return &Error{Kind: KindInternal, Message: err.Error()}
}

// ExecuteRequest is the single inbound operation the core exposes.
type ExecuteRequest struct {
	Task            string   `json:"task"`
	SessionID       string   `json:"session_id,omitempty"`
	Continue        bool     `json:"continue,omitempty"`
	AvailableSkills []string `json:"available_skills,omitempty"`
}

// SessionState summarizes a session's cumulative activity. Lengths are
// cumulative totals, not the in-memory (trimmed) sequence lengths.
type SessionState struct {
	ConversationLength int `json:"conversation_length"`
	ExecutionCount     int `json:"execution_count"`
	VariablesCount     int `json:"variables_count"`
}

// ExecuteResponse is the result of one Execute request.
type ExecuteResponse struct {
	Success         bool         `json:"success"`
	SessionID       string       `json:"session_id"`
	Output          any          `json:"output,omitempty"`
	Error           *Error       `json:"error,omitempty"`
	ExecutionTimeMs int64        `json:"execution_time_ms"`
	State           SessionState `json:"state"`
}
