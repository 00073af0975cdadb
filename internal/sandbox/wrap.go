package sandbox

import (
	"encoding/json"
	"fmt"
	"strings"
)

// wrapCode turns a generated snippet (written as if inside an async main with
// an in-scope executor) into a complete program. On failure the program
// prints a JSON error object to stdout and exits non-zero.
func wrapCode(snippet, workspace, skillImplPath string) string {
	var b strings.Builder

	b.WriteString("import asyncio\n")
	b.WriteString("import json\n")
	b.WriteString("import sys\n\n")

	fmt.Fprintf(&b, "sys.path.insert(0, %s)\n", pyString(workspace))
	if skillImplPath != "" {
		fmt.Fprintf(&b, "sys.path.insert(0, %s)\n", pyString(skillImplPath))
	}
	b.WriteString("\nfrom skill_executor import SkillExecutor\n\n")
	b.WriteString("executor = SkillExecutor()\n\n")

	b.WriteString("async def main():\n")
	b.WriteString(indent(snippet, "    "))
	b.WriteString("\n\nif __name__ == \"__main__\":\n")
	b.WriteString("    try:\n")
	b.WriteString("        asyncio.run(main())\n")
	b.WriteString("    except Exception as exc:\n")
	b.WriteString("        print(json.dumps({\"error\": {\"kind\": \"execution\", \"message\": str(exc)}}))\n")
	b.WriteString("        sys.exit(1)\n")

	return b.String()
}

// pyString renders a Go string as a safely quoted Python string literal.
// JSON string syntax is a subset of Python's.
func pyString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// indent prefixes every line of the snippet. Blank lines stay blank so the
// wrapped program survives strict indentation checks.
func indent(code, prefix string) string {
	code = strings.TrimRight(code, "\n")
	if strings.TrimSpace(code) == "" {
		return prefix + "pass"
	}
	lines := strings.Split(code, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ""
			continue
		}
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
