package ptc

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/openptc/ptcd/pkg/protocol"
)

var (
	planRe         = regexp.MustCompile(`(?s)<plan>\s*(.*?)\s*</plan>`)
	fencedPythonRe = regexp.MustCompile("(?s)```python[ \t]*\n(.*?)```")
	fencedAnyRe    = regexp.MustCompile("(?s)```[a-zA-Z0-9_-]*[ \t]*\n(.*?)```")
	codeTagRe      = regexp.MustCompile(`(?s)<code>\s*\n?(.*?)</code>`)
)

// ExtractPlan pulls the <plan> JSON object out of a phase-A response.
// Model JSON is decoded tolerantly: a strict parse failure falls back to
// jsonrepair before giving up with KindPlanning.
func ExtractPlan(text string) (*Plan, error) {
	m := planRe.FindStringSubmatch(text)
	if m == nil {
		return nil, protocol.Errorf(protocol.KindPlanning, "response has no <plan> block")
	}
	raw := m[1]

	var plan Plan
	if err := json.Unmarshal([]byte(raw), &plan); err == nil {
		return &plan, nil
	}

	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return nil, protocol.Errorf(protocol.KindPlanning, "plan JSON unparseable: %v", err)
	}
	if err := json.Unmarshal([]byte(repaired), &plan); err != nil {
		return nil, protocol.Errorf(protocol.KindPlanning, "plan JSON unparseable after repair: %v", err)
	}
	return &plan, nil
}

// ExtractCode pulls the program out of a phase-B response. Precedence:
// fenced python block, any fenced block, then <code>...</code>.
func ExtractCode(text string) (string, error) {
	if m := fencedPythonRe.FindStringSubmatch(text); m != nil {
		return strings.TrimRight(m[1], "\n"), nil
	}
	if m := fencedAnyRe.FindStringSubmatch(text); m != nil {
		return strings.TrimRight(m[1], "\n"), nil
	}
	if m := codeTagRe.FindStringSubmatch(text); m != nil {
		return strings.TrimRight(m[1], "\n"), nil
	}
	return "", protocol.Errorf(protocol.KindSynthesis, "response has no code block")
}
