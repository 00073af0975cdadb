// Package ptc implements programmatic tool calling: two-phase synthesis that
// turns a task plus optional conversation context into a short program which
// invokes skills through the in-sandbox executor.
package ptc

import (
	"context"
	"log/slog"

	"github.com/openptc/ptcd/internal/providers"
	"github.com/openptc/ptcd/internal/skills"
)

const defaultHistoryWindow = 5

// Plan is the transient phase-A result.
type Plan struct {
	SelectedSkills []string `json:"selected_skills"`
	Reasoning      string   `json:"reasoning"`
}

// Options carries per-call context into generation.
type Options struct {
	History       []providers.Message // chronological; only the last K are used
	Variables     map[string]any
	Model         string   // empty = provider default
	AllowedSkills []string // nil = all registry skills; per-request restriction
}

// Generator produces executable orchestration code via two LLM calls:
// plan (skill selection) then implement (code synthesis).
type Generator struct {
	provider      providers.Provider
	registry      *skills.Registry
	historyWindow int
	temperature   float64
	maxTokens     int
}

// Config configures a Generator.
type Config struct {
	Provider      providers.Provider
	Registry      *skills.Registry
	HistoryWindow int     // last K messages included in prompts (default 5)
	Temperature   float64 // default 0.2, kept low for reproducibility
	MaxTokens     int
}

// New creates a Generator.
func New(cfg Config) *Generator {
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = defaultHistoryWindow
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.2
	}
	return &Generator{
		provider:      cfg.Provider,
		registry:      cfg.Registry,
		historyWindow: cfg.HistoryWindow,
		temperature:   cfg.Temperature,
		maxTokens:     cfg.MaxTokens,
	}
}

// Generate runs both phases and returns the synthesized code.
func (g *Generator) Generate(ctx context.Context, task string, opts Options) (string, error) {
	catalog := g.catalog(opts.AllowedSkills)

	plan, err := g.plan(ctx, task, catalog, opts)
	if err != nil {
		return "", err
	}

	selected := g.resolveSelected(plan.SelectedSkills, catalog)
	slog.Debug("ptc plan", "selected", selected, "reasoning", plan.Reasoning)

	return g.implement(ctx, task, selected, opts)
}

// plan asks the model to pick skills. The response must carry a <plan> block
// with a JSON object inside.
func (g *Generator) plan(ctx context.Context, task string, catalog []skills.Metadata, opts Options) (*Plan, error) {
	prompt := buildPlanPrompt(task, catalog, g.window(opts.History), opts.Variables)

	resp, err := g.chat(ctx, prompt, opts.Model)
	if err != nil {
		return nil, err
	}
	return ExtractPlan(resp.Content)
}

// implement asks the model for the program, given the chosen skills' full
// schemas.
func (g *Generator) implement(ctx context.Context, task string, selected []*skills.Definition, opts Options) (string, error) {
	prompt := buildCodePrompt(task, selected, g.window(opts.History), opts.Variables)

	resp, err := g.chat(ctx, prompt, opts.Model)
	if err != nil {
		return "", err
	}
	return ExtractCode(resp.Content)
}

func (g *Generator) chat(ctx context.Context, prompt, model string) (*providers.ChatResponse, error) {
	return g.provider.Chat(ctx, providers.ChatRequest{
		Messages:    []providers.Message{{Role: "user", Content: prompt}},
		Model:       model,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	})
}

// catalog returns the known skills, optionally restricted to an allow list.
func (g *Generator) catalog(allowed []string) []skills.Metadata {
	all := g.registry.List()
	if allowed == nil {
		return all
	}
	allow := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		allow[name] = true
	}
	var out []skills.Metadata
	for _, md := range all {
		if allow[md.Name] {
			out = append(out, md)
		}
	}
	return out
}

// resolveSelected filters plan output to known skills (unknown names are
// dropped silently; an empty result is allowed) and loads full definitions.
func (g *Generator) resolveSelected(names []string, catalog []skills.Metadata) []*skills.Definition {
	known := make(map[string]bool, len(catalog))
	for _, md := range catalog {
		known[md.Name] = true
	}

	var defs []*skills.Definition
	for _, name := range names {
		if !known[name] {
			continue
		}
		def, err := g.registry.LoadFull(name)
		if err != nil {
			slog.Warn("planned skill failed to load", "skill", name, "error", err)
			continue
		}
		defs = append(defs, def)
	}
	return defs
}

// window trims history to the last K messages.
func (g *Generator) window(history []providers.Message) []providers.Message {
	if len(history) <= g.historyWindow {
		return history
	}
	return history[len(history)-g.historyWindow:]
}
