package skills

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"os/exec"
	"strings"
	"time"

	"github.com/openptc/ptcd/pkg/protocol"
)

//go:embed runtime/handler_bootstrap.py
var handlerBootstrap string

const defaultHandlerTimeout = 30 * time.Second

// scriptEnvelope is the JSON object the bootstrap prints as its last stdout
// line.
type scriptEnvelope struct {
	OK     bool   `json:"ok"`
	Output any    `json:"output"`
	Error  string `json:"error"`
}

// runScript executes a pure-script or hybrid handler in a short-lived
// interpreter process and returns the handler's JSON-shaped result.
func runScript(ctx context.Context, interpreter string, def *Definition, input map[string]any) (any, *protocol.Error) {
	timeout := defaultHandlerTimeout
	if def.Execution.TimeoutMs > 0 {
		timeout = time.Duration(def.Execution.TimeoutMs) * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := json.Marshal(input)
	if err != nil {
		return nil, protocol.Errorf(protocol.KindValidation, "skill %q: input not JSON-serializable: %v", def.Name, err)
	}

	cmd := exec.CommandContext(ctx, interpreter, "-c", handlerBootstrap, def.Path, def.Execution.Handler, def.Execution.Function)
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, protocol.Errorf(protocol.KindTimeout, "skill %q handler exceeded %s", def.Name, timeout)
	}

	env, envErr := parseEnvelope(stdout.String())
	if envErr == nil {
		if env.OK {
			return env.Output, nil
		}
		return nil, protocol.Errorf(protocol.KindExecution, "skill %q handler raised: %s", def.Name, env.Error)
	}

	if runErr != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = runErr.Error()
		}
		return nil, protocol.Errorf(protocol.KindExecution, "skill %q handler failed: %s", def.Name, msg)
	}
	return nil, protocol.Errorf(protocol.KindExecution, "skill %q handler produced no result envelope", def.Name)
}

// parseEnvelope decodes the last non-empty stdout line. Handlers are free to
// print diagnostics above it.
func parseEnvelope(out string) (*scriptEnvelope, error) {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		var env scriptEnvelope
		if err := json.Unmarshal([]byte(line), &env); err != nil {
			return nil, err
		}
		return &env, nil
	}
	return nil, errNoEnvelope
}

var errNoEnvelope = protocol.Errorf(protocol.KindExecution, "empty handler output")
