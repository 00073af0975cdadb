package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/openptc/ptcd/internal/store"
)

func sessionsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Show recent executions from the journal",
		Run: func(cmd *cobra.Command, args []string) {
			showJournal(limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of entries to show")
	return cmd
}

func showJournal(limit int) {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Journal.Path == "" {
		fmt.Println("Journal disabled. Set journal.path in config or PTCD_JOURNAL_PATH.")
		return
	}

	journal, err := store.Open(cfg.Journal.Path)
	if err != nil {
		slog.Error("failed to open journal", "path", cfg.Journal.Path, "error", err)
		os.Exit(1)
	}
	defer journal.Close()

	entries, err := journal.Recent(context.Background(), limit)
	if err != nil {
		slog.Error("journal query failed", "error", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Println("No executions recorded.")
		return
	}

	fmt.Printf("%-20s %-10s %-8s %-10s %s\n", "TIME", "SESSION", "STATUS", "DURATION", "TASK")
	for _, e := range entries {
		status := "ok"
		if !e.Success {
			status = e.ErrorKind
			if status == "" {
				status = "failed"
			}
		}
		session := e.SessionID
		if len(session) > 8 {
			session = session[:8]
		}
		task := e.Task
		if len(task) > 48 {
			task = task[:45] + "..."
		}
		fmt.Printf("%-20s %-10s %-8s %-10s %s\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"), session, status,
			fmt.Sprintf("%dms", e.DurationMs), task)
	}
}
