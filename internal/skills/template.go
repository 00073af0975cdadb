package skills

import (
	"encoding/json"
	"fmt"
	"regexp"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.-]+)\s*\}\}`)

// renderTemplate substitutes each {{key}} with input[key]. Unknown keys stay
// literal. Non-string values render as compact JSON.
func renderTemplate(tpl string, input map[string]any) string {
	return placeholderRe.ReplaceAllStringFunc(tpl, func(match string) string {
		key := placeholderRe.FindStringSubmatch(match)[1]
		val, ok := input[key]
		if !ok {
			return match
		}
		switch v := val.(type) {
		case string:
			return v
		default:
			if b, err := json.Marshal(v); err == nil {
				return string(b)
			}
			return fmt.Sprintf("%v", v)
		}
	})
}
