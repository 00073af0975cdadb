package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.LLM.Provider != "anthropic" {
		t.Errorf("provider = %q", cfg.LLM.Provider)
	}
	if cfg.Sessions.MaxSessions != 1000 {
		t.Errorf("max sessions = %d", cfg.Sessions.MaxSessions)
	}
	if cfg.SessionTimeout() != 30*time.Minute {
		t.Errorf("session timeout = %s", cfg.SessionTimeout())
	}
	if cfg.Sandbox.Interpreter != "python3" {
		t.Errorf("interpreter = %q", cfg.Sandbox.Interpreter)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Model != Default().LLM.Model {
		t.Errorf("model = %q, want default", cfg.LLM.Model)
	}
}

func TestLoadJSON5(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		// comments are allowed
		llm: { provider: "openai-compatible", model: "gpt-4o", max_tokens: 2048 },
		sessions: { max_sessions: 5 },
	}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Provider != "openai-compatible" {
		t.Errorf("provider = %q", cfg.LLM.Provider)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("model = %q", cfg.LLM.Model)
	}
	if cfg.Sessions.MaxSessions != 5 {
		t.Errorf("max sessions = %d", cfg.Sessions.MaxSessions)
	}
	// untouched sections keep their defaults
	if cfg.Sandbox.Interpreter != "python3" {
		t.Errorf("interpreter = %q", cfg.Sandbox.Interpreter)
	}
}

func TestEnvOverridesWin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{ llm: { provider: "anthropic", model: "file-model" }, sessions: { max_sessions: 10 } }`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("LLM_MODEL", "env-model")
	t.Setenv("MAX_SESSIONS", "42")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("SESSION_TIMEOUT_MS", "1000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Model != "env-model" {
		t.Errorf("model = %q, env must win", cfg.LLM.Model)
	}
	if cfg.Sessions.MaxSessions != 42 {
		t.Errorf("max sessions = %d", cfg.Sessions.MaxSessions)
	}
	if cfg.LLM.APIKey != "sk-ant-test" {
		t.Errorf("api key = %q", cfg.LLM.APIKey)
	}
	if cfg.SessionTimeout() != time.Second {
		t.Errorf("session timeout = %s", cfg.SessionTimeout())
	}
}

func TestAPIKeyFollowsProvider(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "openai-compatible")
	t.Setenv("OPENAI_API_KEY", "sk-oai")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.APIKey != "sk-oai" {
		t.Errorf("api key = %q, want openai key for openai-compatible", cfg.LLM.APIKey)
	}
}

func TestAPIKeyNeverSerialized(t *testing.T) {
	cfg := Default()
	cfg.LLM.APIKey = "secret"
	// json tag is "-": a round-trip must not leak the key
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{ llm: { APIKey: "injected" } }`), 0644); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.LLM.APIKey == "injected" {
		t.Error("api key must not be readable from the config file")
	}
}
