package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openptc/ptcd/internal/config"
	"github.com/openptc/ptcd/internal/logging"
	"github.com/openptc/ptcd/pkg/protocol"
)

// Version is set at build time via -ldflags "-X github.com/openptc/ptcd/cmd.Version=v1.0.0"
var Version = "dev"

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ptcd",
	Short: "ptcd, the programmatic tool calling runtime",
	Long:  "ptcd runs LLM-synthesized orchestration code against a local skill registry, one sandboxed execution per task, with per-session conversation state.",
	Run: func(cmd *cobra.Command, args []string) {
		runServe()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ptcd.json5 or $PTCD_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(skillsCmd())
	rootCmd.AddCommand(sessionsCmd())
	rootCmd.AddCommand(doctorCmd())
	rootCmd.AddCommand(versionCmd())
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ptcd %s (protocol %d)\n", Version, protocol.ProtocolVersion)
		},
	}
}

func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if v := os.Getenv("PTCD_CONFIG"); v != "" {
		return v
	}
	return "ptcd.json5"
}

// loadConfig loads the config file and installs logging. A missing file is
// fine; defaults plus env overrides apply.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, err
	}
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logging.Setup(level, cfg.Log.Format)
	return cfg, nil
}

// Execute runs the root cobra command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
