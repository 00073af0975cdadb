package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/openptc/ptcd/internal/runtime"
	"github.com/openptc/ptcd/pkg/protocol"
)

func runCmd() *cobra.Command {
	var sessionID string
	var skills []string

	cmd := &cobra.Command{
		Use:   "run <task>",
		Short: "Execute one task and print the JSON response",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runOnce(strings.Join(args, " "), sessionID, skills)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session id to continue (default: fresh session)")
	cmd.Flags().StringSliceVar(&skills, "skills", nil, "restrict to these skills (default: all)")
	return cmd
}

func runOnce(task, sessionID string, skills []string) {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	rt, err := runtime.New(cfg)
	if err != nil {
		slog.Error("failed to start runtime", "error", err)
		os.Exit(1)
	}

	req := protocol.ExecuteRequest{
		Task:            task,
		SessionID:       sessionID,
		Continue:        sessionID != "",
		AvailableSkills: skills,
	}
	resp := rt.Handler().Execute(context.Background(), req)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rt.Shutdown(shutdownCtx)

	out, _ := json.MarshalIndent(resp, "", "  ")
	fmt.Println(string(out))
	if !resp.Success {
		os.Exit(1)
	}
}
