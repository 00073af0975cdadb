package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openptc/ptcd/internal/skills"
)

func skillsCmd() *cobra.Command {
	var tag string

	cmd := &cobra.Command{
		Use:   "skills",
		Short: "List discovered skills",
		Run: func(cmd *cobra.Command, args []string) {
			listSkills(tag)
		},
	}
	cmd.Flags().StringVar(&tag, "tag", "", "only skills carrying this tag")
	return cmd
}

func listSkills(tag string) {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	registry := skills.NewRegistry(cfg.Skills.Dir)
	if _, err := registry.Scan(); err != nil {
		slog.Error("skill scan failed", "dir", cfg.Skills.Dir, "error", err)
		os.Exit(1)
	}

	var list []skills.Metadata
	if tag != "" {
		list = registry.List(tag)
	} else {
		list = registry.List()
	}

	if len(list) == 0 {
		fmt.Printf("No skills found in %s\n", cfg.Skills.Dir)
		return
	}

	fmt.Printf("%-24s %-12s %-10s %s\n", "NAME", "KIND", "VERSION", "DESCRIPTION")
	for _, md := range list {
		desc := md.Description
		if len(desc) > 60 {
			desc = desc[:57] + "..."
		}
		fmt.Printf("%-24s %-12s %-10s %s\n", md.Name, md.Kind, md.Version, desc)
		if len(md.Tags) > 0 {
			fmt.Printf("%-24s tags: %s\n", "", strings.Join(md.Tags, ", "))
		}
	}
}
