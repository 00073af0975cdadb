package skills

import (
	"context"
	"log/slog"
	"time"

	"github.com/openptc/ptcd/pkg/protocol"
)

// Executor dispatches a named skill with typed input. It is safe for
// concurrent use; callable handlers run in short-lived interpreter
// subprocesses, so no cross-call state is shared.
type Executor struct {
	registry    *Registry
	interpreter string
}

// NewExecutor creates an executor backed by the given registry. interpreter
// is the sandbox-language runtime used for pure-script and hybrid handlers.
func NewExecutor(registry *Registry, interpreter string) *Executor {
	if interpreter == "" {
		interpreter = "python3"
	}
	return &Executor{registry: registry, interpreter: interpreter}
}

// Execute runs one skill and always returns a result, never panics or
// propagates handler exceptions.
func (e *Executor) Execute(ctx context.Context, name string, input map[string]any) *Result {
	start := time.Now()
	elapsed := func() int64 { return time.Since(start).Milliseconds() }

	if err := e.registry.ensureScanned(); err != nil {
		return errorResult(protocol.AsError(err), elapsed())
	}

	def, err := e.registry.LoadFull(name)
	if err != nil {
		return errorResult(protocol.AsError(err), elapsed())
	}

	if input == nil {
		input = map[string]any{}
	}
	if verr := validateInput(def.InputSchema, input); verr != nil {
		return errorResult(verr, elapsed())
	}

	switch def.Kind {
	case KindPurePrompt:
		// No LLM call here; the caller decides what to do with the prompt.
		rendered := renderTemplate(def.PromptTemplate, input)
		return &Result{
			Success:         true,
			Output:          map[string]any{"kind": "prompt", "content": rendered},
			ExecutionTimeMs: elapsed(),
		}

	case KindPureScript, KindHybrid:
		output, xerr := runScript(ctx, e.interpreter, def, input)
		if xerr != nil {
			slog.Debug("skill handler failed", "skill", name, "error", xerr)
			return errorResult(xerr, elapsed())
		}
		return &Result{Success: true, Output: output, ExecutionTimeMs: elapsed()}

	default:
		return errorResult(
			protocol.Errorf(protocol.KindInternal, "skill %q has unknown kind %q", name, def.Kind),
			elapsed(),
		)
	}
}
