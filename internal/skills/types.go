// Package skills implements skill discovery (two-level metadata/definition
// loading) and typed execution of the three skill kinds.
package skills

import (
	"github.com/openptc/ptcd/pkg/protocol"
)

// Kind is the closed set of skill kinds.
type Kind string

const (
	KindPurePrompt Kind = "pure-prompt" // templated prompt only
	KindPureScript Kind = "pure-script" // sandbox-language callable, no LLM
	KindHybrid     Kind = "hybrid"      // callable that may itself invoke the LLM
)

// Valid reports whether k is one of the three known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindPurePrompt, KindPureScript, KindHybrid:
		return true
	}
	return false
}

// Metadata is the level-1 skill descriptor, loaded at scan time.
type Metadata struct {
	Name        string   `json:"name"`
	Version     string   `json:"version,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Kind        Kind     `json:"kind"`
	Path        string   `json:"path"` // on-disk skill directory
}

// HasTag reports whether the metadata carries any of the given tags.
func (m Metadata) HasTag(tags ...string) bool {
	for _, want := range tags {
		for _, have := range m.Tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

// Execution describes how a callable skill is invoked.
type Execution struct {
	Handler   string `json:"handler"`  // handler file, relative to the skill dir
	Function  string `json:"function"` // entry point name
	TimeoutMs int    `json:"timeout_ms,omitempty"`
}

// Definition is the level-2 skill descriptor, loaded on first use and cached.
type Definition struct {
	Metadata
	InputSchema    map[string]any `json:"input_schema,omitempty"`
	OutputSchema   map[string]any `json:"output_schema,omitempty"`
	PromptTemplate string         `json:"prompt_template,omitempty"`
	Execution      *Execution     `json:"execution,omitempty"`
}

// Result is the unified return value from one skill execution.
type Result struct {
	Success         bool            `json:"success"`
	Output          any             `json:"output,omitempty"`
	Error           *protocol.Error `json:"error,omitempty"`
	ExecutionTimeMs int64           `json:"execution_time_ms"`
}

func errorResult(err *protocol.Error, elapsedMs int64) *Result {
	return &Result{Success: false, Error: err, ExecutionTimeMs: elapsedMs}
}
