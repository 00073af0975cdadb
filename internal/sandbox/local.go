package sandbox

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/openptc/ptcd/pkg/protocol"
)

//go:embed runtime/skill_executor.py
var skillExecutorShim []byte

const (
	shimFileName = "skill_executor.py"
	killGrace    = 2 * time.Second
)

// LocalConfig configures the local subprocess adapter.
type LocalConfig struct {
	Interpreter    string // python3 binary; empty = "python3"
	WorkspaceRoot  string // root for per-session temp dirs
	MaxOutputBytes int    // stdout/stderr cap, each; 0 = 1 MiB
	BridgeURL      string // loopback skill bridge, injected into child env
	BridgeToken    string
}

// Local runs generated code in child interpreter processes on this host.
// Safe across sessions: many children may run in parallel. Within one
// session the Manager contract guarantees serial Execute calls.
type Local struct {
	cfg LocalConfig

	mu       sync.Mutex
	children map[string]*childHandle // sessionID → live child
}

type childHandle struct {
	proc *os.Process
	done chan struct{} // closed when the child has been reaped
}

// NewLocal creates the local adapter. The workspace root is created lazily.
func NewLocal(cfg LocalConfig) *Local {
	if cfg.Interpreter == "" {
		cfg.Interpreter = "python3"
	}
	if cfg.WorkspaceRoot == "" {
		cfg.WorkspaceRoot = filepath.Join(os.TempDir(), "ptcd")
	}
	if cfg.MaxOutputBytes <= 0 {
		cfg.MaxOutputBytes = 1 << 20
	}
	return &Local{cfg: cfg, children: make(map[string]*childHandle)}
}

// Execute wraps and runs one code snippet. See Adapter.
func (l *Local) Execute(ctx context.Context, code string, opts Options) *Result {
	start := time.Now()
	fail := func(err *protocol.Error) *Result {
		return &Result{Success: false, Error: err, ExitCode: -1, ExecutionTimeMs: time.Since(start).Milliseconds()}
	}

	if opts.SessionID == "" {
		return fail(protocol.Errorf(protocol.KindValidation, "sandbox: session id is required"))
	}
	if opts.TimeoutMs <= 0 {
		return fail(protocol.Errorf(protocol.KindTimeout, "sandbox: timeout budget is zero"))
	}

	ws, err := l.sessionWorkspace(opts.SessionID)
	if err != nil {
		return fail(protocol.Errorf(protocol.KindInternal, "sandbox: workspace: %v", err))
	}

	wrapped := wrapCode(code, ws, opts.SkillImplPath)
	file := filepath.Join(ws, fmt.Sprintf("ptc_%s_%s.py", opts.SessionID, uuid.NewString()))
	if err := os.WriteFile(file, []byte(wrapped), 0o600); err != nil {
		return fail(protocol.Errorf(protocol.KindInternal, "sandbox: write program: %v", err))
	}
	defer os.Remove(file)

	cmd := exec.Command(l.cfg.Interpreter, file)
	cmd.Dir = ws
	cmd.Env = l.childEnv(ws, opts)

	stdout := newCappedBuffer(l.cfg.MaxOutputBytes)
	stderr := newCappedBuffer(l.cfg.MaxOutputBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return fail(protocol.Errorf(protocol.KindInternal, "sandbox: spawn %s: %v", l.cfg.Interpreter, err))
	}

	handle := &childHandle{proc: cmd.Process, done: make(chan struct{})}
	if err := l.register(opts.SessionID, handle); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		close(handle.done)
		return fail(err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(handle.done)
	}()

	timeout := time.Duration(opts.TimeoutMs) * time.Millisecond
	timedOut := false

	select {
	case <-waitErr:
	case <-ctx.Done():
		timedOut = true
		l.terminate(handle)
		<-handle.done
	case <-time.After(timeout):
		timedOut = true
		l.terminate(handle)
		<-handle.done
	}

	l.unregister(opts.SessionID, handle)

	elapsed := time.Since(start).Milliseconds()
	exitCode := cmd.ProcessState.ExitCode()

	res := &Result{
		Stdout:          stdout.String(),
		Stderr:          stderr.String(),
		ExitCode:        exitCode,
		ExecutionTimeMs: elapsed,
	}

	switch {
	case timedOut:
		res.Error = protocol.Errorf(protocol.KindTimeout, "sandbox: execution exceeded %s", timeout)
	case exitCode == 0:
		res.Success = true
	default:
		res.Error = protocol.Errorf(protocol.KindExecution, "sandbox: interpreter exited with code %d", exitCode)
	}
	return res
}

// terminate sends a graceful signal, waits the grace window, then hard-kills.
func (l *Local) terminate(h *childHandle) {
	if h.proc == nil {
		return
	}
	_ = h.proc.Signal(syscall.SIGTERM)
	select {
	case <-h.done:
		return
	case <-time.After(killGrace):
	}
	_ = h.proc.Kill()
}

func (l *Local) register(sessionID string, h *childHandle) *protocol.Error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.children[sessionID]; busy {
		return protocol.Errorf(protocol.KindInternal, "sandbox: session %s is already executing", sessionID)
	}
	l.children[sessionID] = h
	return nil
}

func (l *Local) unregister(sessionID string, h *childHandle) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.children[sessionID]; ok && cur == h {
		delete(l.children, sessionID)
	}
}

// ActiveChildren reports how many children are currently tracked.
func (l *Local) ActiveChildren() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.children)
}

// childEnv builds the child process environment: inherited vars, the
// interpreter search path, the session trace var, bridge coordinates, then
// caller overrides last.
func (l *Local) childEnv(workspace string, opts Options) []string {
	env := os.Environ()

	pyPath := workspace
	if opts.SkillImplPath != "" {
		pyPath = opts.SkillImplPath + string(os.PathListSeparator) + pyPath
	}
	if existing := os.Getenv("PYTHONPATH"); existing != "" {
		pyPath = pyPath + string(os.PathListSeparator) + existing
	}

	set := map[string]string{
		"PYTHONPATH":       pyPath,
		"PTC_SESSION_ID":   opts.SessionID,
		"PTC_BRIDGE_URL":   l.cfg.BridgeURL,
		"PTC_BRIDGE_TOKEN": l.cfg.BridgeToken,
	}
	for k, v := range opts.Env {
		set[k] = v
	}

	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		env = append(env, k+"="+set[k])
	}
	return env
}

// sessionWorkspace creates (once) and returns the per-session temp dir, with
// the in-sandbox executor shim materialized into it.
func (l *Local) sessionWorkspace(sessionID string) (string, error) {
	ws := filepath.Join(l.cfg.WorkspaceRoot, "session-"+sanitizeID(sessionID))
	if err := os.MkdirAll(ws, 0o700); err != nil {
		return "", err
	}
	shim := filepath.Join(ws, shimFileName)
	if _, err := os.Stat(shim); os.IsNotExist(err) {
		if err := os.WriteFile(shim, skillExecutorShim, 0o600); err != nil {
			return "", err
		}
	}
	return ws, nil
}

// Cleanup terminates any live child for the session and removes the
// workspace. Idempotent.
func (l *Local) Cleanup(sessionID string) error {
	l.mu.Lock()
	h := l.children[sessionID]
	delete(l.children, sessionID)
	l.mu.Unlock()

	if h != nil {
		l.terminate(h)
		<-h.done
	}

	ws := filepath.Join(l.cfg.WorkspaceRoot, "session-"+sanitizeID(sessionID))
	if err := os.RemoveAll(ws); err != nil {
		slog.Warn("sandbox workspace removal failed", "session", sessionID, "error", err)
		return err
	}
	return nil
}

// HealthCheck verifies the interpreter binary is reachable and runs.
func (l *Local) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return exec.CommandContext(ctx, l.cfg.Interpreter, "--version").Run() == nil
}

func sanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, id)
}

var _ Adapter = (*Local)(nil)
