package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/titanous/json5"
)

func defaultWorkspace() string {
	return filepath.Join(os.TempDir(), "ptcd")
}

// Load reads config from a json5 file, then overlays env vars.
// A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				*dst = n
			}
		}
	}

	envStr("LLM_PROVIDER", &c.LLM.Provider)
	envStr("LLM_MODEL", &c.LLM.Model)
	envStr("LLM_BASE_URL", &c.LLM.BaseURL)

	// Credential resolution follows the selected provider.
	switch c.LLM.Provider {
	case "openai-compatible":
		envStr("OPENAI_API_KEY", &c.LLM.APIKey)
	default:
		envStr("ANTHROPIC_API_KEY", &c.LLM.APIKey)
	}

	envStr("SKILLS_DIR", &c.Skills.Dir)
	envStr("INTERPRETER_PATH", &c.Sandbox.Interpreter)
	envStr("SANDBOX_WORKSPACE", &c.Sandbox.Workspace)

	envInt("SESSION_TIMEOUT_MS", &c.Sessions.TimeoutMs)
	envInt("MAX_SESSIONS", &c.Sessions.MaxSessions)

	envStr("PTCD_LOG_LEVEL", &c.Log.Level)
	envStr("PTCD_LOG_FORMAT", &c.Log.Format)
	envStr("PTCD_JOURNAL_PATH", &c.Journal.Path)

	envStr("PTCD_TELEMETRY_ENDPOINT", &c.Telemetry.Endpoint)
	envStr("PTCD_TELEMETRY_PROTOCOL", &c.Telemetry.Protocol)
	envStr("PTCD_TELEMETRY_SERVICE_NAME", &c.Telemetry.ServiceName)
	if v := os.Getenv("PTCD_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("PTCD_TELEMETRY_INSECURE"); v != "" {
		c.Telemetry.Insecure = v == "true" || v == "1"
	}
}
