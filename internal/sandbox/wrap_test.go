package sandbox

import (
	"strings"
	"testing"
)

func TestWrapCode(t *testing.T) {
	wrapped := wrapCode("result = await executor.execute('greet', {'name': 'Ada'})\nprint(result)", "/tmp/ws", "/opt/skills")

	for _, want := range []string{
		"import asyncio",
		`sys.path.insert(0, "/tmp/ws")`,
		`sys.path.insert(0, "/opt/skills")`,
		"from skill_executor import SkillExecutor",
		"executor = SkillExecutor()",
		"async def main():",
		"    result = await executor.execute('greet', {'name': 'Ada'})",
		"    print(result)",
		"asyncio.run(main())",
	} {
		if !strings.Contains(wrapped, want) {
			t.Errorf("wrapped program missing %q\n%s", want, wrapped)
		}
	}
}

func TestWrapCodeEmptySnippet(t *testing.T) {
	wrapped := wrapCode("", "/tmp/ws", "")
	if !strings.Contains(wrapped, "async def main():\n    pass") {
		t.Errorf("empty snippet must still be a valid function body:\n%s", wrapped)
	}
	if strings.Contains(wrapped, "/opt") {
		t.Error("no skill impl path expected")
	}
}

func TestWrapCodeBlankLinesStayBlank(t *testing.T) {
	wrapped := wrapCode("a = 1\n\nb = 2", "/ws", "")
	if !strings.Contains(wrapped, "    a = 1\n\n    b = 2") {
		t.Errorf("blank line handling wrong:\n%s", wrapped)
	}
}

func TestPyString(t *testing.T) {
	got := pyString(`C:\dir "quoted"`)
	if got != `"C:\\dir \"quoted\""` {
		t.Errorf("pyString = %s", got)
	}
}
