// Package config holds the runtime configuration: a json5 file overlaid with
// environment variables. Env vars always win.
package config

import "time"

// Config is the root configuration for the ptcd runtime.
type Config struct {
	LLM       LLMConfig       `json:"llm"`
	Skills    SkillsConfig    `json:"skills"`
	Sandbox   SandboxConfig   `json:"sandbox"`
	Sessions  SessionsConfig  `json:"sessions"`
	Agent     AgentConfig     `json:"agent"`
	Journal   JournalConfig   `json:"journal,omitempty"`
	Telemetry TelemetryConfig `json:"telemetry,omitempty"`
	Log       LogConfig       `json:"log,omitempty"`
}

// LLMConfig selects and configures the model endpoint.
type LLMConfig struct {
	Provider    string  `json:"provider"` // "anthropic" or "openai-compatible"
	Model       string  `json:"model"`
	BaseURL     string  `json:"base_url,omitempty"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`

	// RequestsPerMinute bounds client-side request rate across all sessions.
	// 0 disables the limiter.
	RequestsPerMinute int `json:"requests_per_minute,omitempty"`

	// APIKey comes from env only (ANTHROPIC_API_KEY / OPENAI_API_KEY), never
	// from the config file.
	APIKey string `json:"-"`
}

// SkillsConfig configures skill discovery.
type SkillsConfig struct {
	Dir   string `json:"dir"`
	Watch bool   `json:"watch,omitempty"` // reload registry on filesystem changes
}

// SandboxConfig configures the local subprocess adapter.
type SandboxConfig struct {
	Interpreter    string `json:"interpreter"`      // path to python3
	Workspace      string `json:"workspace"`        // root for per-session temp dirs
	TimeoutMs      int    `json:"timeout_ms"`       // per-Execute wall clock bound
	MaxOutputBytes int    `json:"max_output_bytes"` // stdout/stderr cap, each
}

// SessionsConfig bounds session lifetime and cardinality.
type SessionsConfig struct {
	TimeoutMs       int `json:"timeout_ms"`
	MaxSessions     int `json:"max_sessions"`
	SweepIntervalMs int `json:"sweep_interval_ms"`
	DrainTimeoutMs  int `json:"drain_timeout_ms"`
}

// AgentConfig bounds per-session state.
type AgentConfig struct {
	MaxConversationEntries int `json:"max_conversation_entries"`
	MaxExecutionRecords    int `json:"max_execution_records"`
	HistoryWindow          int `json:"history_window"` // last K messages fed to PTC
}

// JournalConfig enables the optional sqlite execution journal.
type JournalConfig struct {
	Path string `json:"path,omitempty"` // empty = journal disabled
}

// TelemetryConfig configures the optional OTLP trace exporter.
type TelemetryConfig struct {
	Enabled     bool   `json:"enabled,omitempty"`
	Endpoint    string `json:"endpoint,omitempty"` // host:port
	Protocol    string `json:"protocol,omitempty"` // "grpc" (default) or "http"
	ServiceName string `json:"service_name,omitempty"`
	Insecure    bool   `json:"insecure,omitempty"`
}

// LogConfig configures slog output.
type LogConfig struct {
	Level  string `json:"level,omitempty"`  // "debug", "info", "warn", "error"
	Format string `json:"format,omitempty"` // "text" (default) or "json"
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "anthropic",
			Model:       "claude-sonnet-4-5-20250929",
			MaxTokens:   4096,
			Temperature: 0.2,
		},
		Skills: SkillsConfig{
			Dir: "./skills",
		},
		Sandbox: SandboxConfig{
			Interpreter:    "python3",
			Workspace:      defaultWorkspace(),
			TimeoutMs:      int(2 * time.Minute / time.Millisecond),
			MaxOutputBytes: 1 << 20,
		},
		Sessions: SessionsConfig{
			TimeoutMs:       int(30 * time.Minute / time.Millisecond),
			MaxSessions:     1000,
			SweepIntervalMs: int(time.Minute / time.Millisecond),
			DrainTimeoutMs:  int(30 * time.Second / time.Millisecond),
		},
		Agent: AgentConfig{
			MaxConversationEntries: 100,
			MaxExecutionRecords:    50,
			HistoryWindow:          5,
		},
		Telemetry: TelemetryConfig{
			Protocol:    "grpc",
			ServiceName: "ptcd",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// SessionTimeout returns the idle timeout as a duration.
func (c *Config) SessionTimeout() time.Duration {
	return time.Duration(c.Sessions.TimeoutMs) * time.Millisecond
}

// SweepInterval returns the sweeper period as a duration.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Sessions.SweepIntervalMs) * time.Millisecond
}

// DrainTimeout bounds the shutdown fan-out.
func (c *Config) DrainTimeout() time.Duration {
	return time.Duration(c.Sessions.DrainTimeoutMs) * time.Millisecond
}
