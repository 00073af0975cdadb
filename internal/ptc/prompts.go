package ptc

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/openptc/ptcd/internal/providers"
	"github.com/openptc/ptcd/internal/skills"
)

// buildPlanPrompt assembles the phase-A (skill selection) prompt.
func buildPlanPrompt(task string, catalog []skills.Metadata, history []providers.Message, variables map[string]any) string {
	var b strings.Builder

	b.WriteString("You are a planner for a skill-based agent runtime. Choose which skills, if any, are needed for the task.\n\n")

	b.WriteString("<skills>\n")
	for _, md := range catalog {
		fmt.Fprintf(&b, "- %s (%s): %s\n", md.Name, md.Kind, md.Description)
	}
	b.WriteString("</skills>\n")

	writeHistoryBlock(&b, history)
	writeVariablesBlock(&b, variables)

	fmt.Fprintf(&b, "\n<task>\n%s\n</task>\n", task)

	b.WriteString("\nRespond with a JSON object wrapped in a <plan> tag, like:\n")
	b.WriteString("<plan>{\"selected_skills\": [\"skill-name\"], \"reasoning\": \"why\"}</plan>\n")
	b.WriteString("Select only skills listed above. An empty list is valid when no skill applies.\n")

	return b.String()
}

// buildCodePrompt assembles the phase-B (code synthesis) prompt.
func buildCodePrompt(task string, selected []*skills.Definition, history []providers.Message, variables map[string]any) string {
	var b strings.Builder

	b.WriteString("Write a short Python program fragment that accomplishes the task by calling skills.\n\n")

	if len(selected) > 0 {
		b.WriteString("<skills>\n")
		for _, def := range selected {
			fmt.Fprintf(&b, "## %s (%s)\n%s\n", def.Name, def.Kind, def.Description)
			if len(def.InputSchema) > 0 {
				fmt.Fprintf(&b, "input schema: %s\n", compactJSON(def.InputSchema))
			}
			if len(def.OutputSchema) > 0 {
				fmt.Fprintf(&b, "output schema: %s\n", compactJSON(def.OutputSchema))
			}
			b.WriteString("\n")
		}
		b.WriteString("</skills>\n")
	}

	writeHistoryBlock(&b, history)
	writeVariablesBlock(&b, variables)

	fmt.Fprintf(&b, "\n<task>\n%s\n</task>\n", task)

	b.WriteString(`
Rules:
- Emit exactly one code block, fenced as python (or wrapped in <code></code>).
- The fragment runs inside an async main() with an in-scope executor; call skills as: r = await executor.execute('skill-name', {...}).
- Each call returns {"success": bool, "output": ..., "error": {...}}; check success and handle failures.
- print() the final result (JSON when structured).
- To persist values for later turns, print a JSON object containing a "variables" key as the final line.
- No imports beyond json; no file or network access outside executor calls.
`)

	return b.String()
}

func writeHistoryBlock(b *strings.Builder, history []providers.Message) {
	if len(history) == 0 {
		return
	}
	b.WriteString("\n<conversation_history>\n")
	for _, msg := range history {
		fmt.Fprintf(b, "%s: %s\n", msg.Role, msg.Content)
	}
	b.WriteString("</conversation_history>\n")
}

func writeVariablesBlock(b *strings.Builder, variables map[string]any) {
	if len(variables) == 0 {
		return
	}
	b.WriteString("\n<available_variables>\n")
	for _, key := range sortedKeys(variables) {
		fmt.Fprintf(b, "%s = %s\n", key, compactJSON(variables[key]))
	}
	b.WriteString("</available_variables>\n")
}

func compactJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// stable output helps tests and prompt caching
	sort.Strings(keys)
	return keys
}
