package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openptc/ptcd/internal/config"
	"github.com/openptc/ptcd/internal/skills"
	"github.com/openptc/ptcd/pkg/protocol"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check system environment and configuration health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	fmt.Println("ptcd doctor")
	fmt.Printf("  Version:  %s (protocol %d)\n", Version, protocol.ProtocolVersion)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (NOT FOUND, defaults apply)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}

	fmt.Println()
	fmt.Println("  LLM:")
	fmt.Printf("    %-12s %s\n", "Provider:", cfg.LLM.Provider)
	fmt.Printf("    %-12s %s\n", "Model:", cfg.LLM.Model)
	if cfg.LLM.BaseURL != "" {
		fmt.Printf("    %-12s %s\n", "Base URL:", cfg.LLM.BaseURL)
	}
	checkAPIKey(cfg.LLM.APIKey)

	fmt.Println()
	fmt.Println("  Sandbox:")
	checkBinary("Interpreter", cfg.Sandbox.Interpreter)
	fmt.Printf("    %-12s %s", "Workspace:", cfg.Sandbox.Workspace)
	if _, err := os.Stat(cfg.Sandbox.Workspace); err != nil {
		fmt.Println(" (will be created)")
	} else {
		fmt.Println(" (OK)")
	}

	fmt.Println()
	fmt.Println("  Skills:")
	fmt.Printf("    %-12s %s", "Dir:", cfg.Skills.Dir)
	if _, err := os.Stat(cfg.Skills.Dir); err != nil {
		fmt.Println(" (NOT FOUND)")
	} else {
		fmt.Println(" (OK)")
		registry := skills.NewRegistry(cfg.Skills.Dir)
		if meta, err := registry.Scan(); err != nil {
			fmt.Printf("    %-12s scan failed: %s\n", "Discovered:", err)
		} else {
			fmt.Printf("    %-12s %d\n", "Discovered:", len(meta))
		}
	}

	if cfg.Journal.Path != "" {
		fmt.Println()
		fmt.Printf("  Journal:  %s\n", cfg.Journal.Path)
	}

	fmt.Println()
	fmt.Println("Doctor check complete.")
}

func checkAPIKey(apiKey string) {
	if apiKey == "" {
		fmt.Printf("    %-12s (not configured)\n", "API key:")
		return
	}
	masked := apiKey
	if len(apiKey) > 8 {
		masked = apiKey[:4] + strings.Repeat("*", len(apiKey)-8) + apiKey[len(apiKey)-4:]
	}
	fmt.Printf("    %-12s %s\n", "API key:", masked)
}

func checkBinary(label, name string) {
	path, err := exec.LookPath(name)
	if err != nil {
		fmt.Printf("    %-12s %s NOT FOUND\n", label+":", name)
	} else {
		fmt.Printf("    %-12s %s\n", label+":", path)
	}
}
