// Package runtime assembles the core: providers, skill registry, bridge,
// sandbox, and session manager, and exposes the single Execute operation
// through the Handler.
package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openptc/ptcd/internal/agent"
	"github.com/openptc/ptcd/internal/bridge"
	"github.com/openptc/ptcd/internal/config"
	"github.com/openptc/ptcd/internal/providers"
	"github.com/openptc/ptcd/internal/ptc"
	"github.com/openptc/ptcd/internal/sandbox"
	"github.com/openptc/ptcd/internal/sessions"
	"github.com/openptc/ptcd/internal/skills"
	"github.com/openptc/ptcd/internal/store"
)

// Runtime owns the wired component graph and its lifecycle.
type Runtime struct {
	cfg *config.Config

	Provider providers.Provider
	Registry *skills.Registry
	Executor *skills.Executor
	Bridge   *bridge.Server
	Sandbox  *sandbox.Local
	Manager  *sessions.Manager
	Journal  *store.Journal // nil when disabled

	watcher *skills.Watcher
}

// New builds and starts the runtime. The skills dir is scanned eagerly so
// startup surfaces discovery problems.
func New(cfg *config.Config) (*Runtime, error) {
	provider, err := newProvider(cfg.LLM)
	if err != nil {
		return nil, err
	}

	registry := skills.NewRegistry(cfg.Skills.Dir)
	if meta, err := registry.Scan(); err != nil {
		slog.Warn("initial skill scan failed", "dir", cfg.Skills.Dir, "error", err)
	} else {
		slog.Info("skills discovered", "count", len(meta), "dir", cfg.Skills.Dir)
	}

	executor := skills.NewExecutor(registry, cfg.Sandbox.Interpreter)

	br := bridge.New(executor)
	if err := br.Start(); err != nil {
		return nil, fmt.Errorf("start skill bridge: %w", err)
	}

	sb := sandbox.NewLocal(sandbox.LocalConfig{
		Interpreter:    cfg.Sandbox.Interpreter,
		WorkspaceRoot:  cfg.Sandbox.Workspace,
		MaxOutputBytes: cfg.Sandbox.MaxOutputBytes,
		BridgeURL:      br.URL(),
		BridgeToken:    br.Token(),
	})

	generator := ptc.New(ptc.Config{
		Provider:      provider,
		Registry:      registry,
		HistoryWindow: cfg.Agent.HistoryWindow,
		Temperature:   cfg.LLM.Temperature,
		MaxTokens:     cfg.LLM.MaxTokens,
	})

	agentCfg := agent.Config{
		Generator:              generator,
		Sandbox:                sb,
		SkillImplPath:          cfg.Skills.Dir,
		TimeoutMs:              cfg.Sandbox.TimeoutMs,
		Model:                  cfg.LLM.Model,
		MaxConversationEntries: cfg.Agent.MaxConversationEntries,
		MaxExecutionRecords:    cfg.Agent.MaxExecutionRecords,
	}

	manager := sessions.NewManager(sessions.Config{
		SessionTimeout: cfg.SessionTimeout(),
		MaxSessions:    cfg.Sessions.MaxSessions,
		SweepInterval:  cfg.SweepInterval(),
		DrainTimeout:   cfg.DrainTimeout(),
		NewAgent: func(sessionID string) *agent.Agent {
			return agent.New(agentCfg, sessionID)
		},
	})

	rt := &Runtime{
		cfg:      cfg,
		Provider: provider,
		Registry: registry,
		Executor: executor,
		Bridge:   br,
		Sandbox:  sb,
		Manager:  manager,
	}

	if cfg.Skills.Watch {
		w, err := skills.NewWatcher(registry)
		if err != nil {
			slog.Warn("skills watcher unavailable", "error", err)
		} else {
			rt.watcher = w
		}
	}

	if cfg.Journal.Path != "" {
		j, err := store.Open(cfg.Journal.Path)
		if err != nil {
			slog.Warn("execution journal unavailable", "path", cfg.Journal.Path, "error", err)
		} else {
			rt.Journal = j
		}
	}

	return rt, nil
}

func newProvider(cfg config.LLMConfig) (providers.Provider, error) {
	switch cfg.Provider {
	case "", "anthropic":
		return providers.NewAnthropicProvider(cfg.APIKey,
			providers.WithAnthropicModel(cfg.Model),
			providers.WithAnthropicBaseURL(cfg.BaseURL),
			providers.WithAnthropicLimiter(cfg.RequestsPerMinute),
		), nil
	case "openai-compatible":
		return providers.NewOpenAIProvider(cfg.APIKey,
			providers.WithOpenAIModel(cfg.Model),
			providers.WithOpenAIBaseURL(cfg.BaseURL),
			providers.WithOpenAILimiter(cfg.RequestsPerMinute),
		), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}

// Handler returns the request handler bound to this runtime.
func (rt *Runtime) Handler() *Handler {
	return &Handler{manager: rt.Manager, journal: rt.Journal}
}

// Shutdown drains sessions, then stops the bridge and auxiliary components.
func (rt *Runtime) Shutdown(ctx context.Context) {
	rt.Manager.Shutdown()

	if err := rt.Bridge.Shutdown(ctx); err != nil {
		slog.Warn("bridge shutdown failed", "error", err)
	}
	if rt.watcher != nil {
		rt.watcher.Close()
	}
	if rt.Journal != nil {
		rt.Journal.Close()
	}
}
