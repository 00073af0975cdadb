package skills

import (
	"fmt"
	"strings"

	"github.com/openptc/ptcd/pkg/protocol"
)

// validateInput checks input against a JSON-Schema-shaped object schema:
// required keys must be present and property types must match. No coercion.
// A nil or empty schema accepts anything.
func validateInput(schema map[string]any, input map[string]any) *protocol.Error {
	if len(schema) == 0 {
		return nil
	}

	if required, ok := schema["required"].([]any); ok {
		var missing []string
		for _, rk := range required {
			key, ok := rk.(string)
			if !ok {
				continue
			}
			if _, present := input[key]; !present {
				missing = append(missing, key)
			}
		}
		if len(missing) > 0 {
			return protocol.Errorf(protocol.KindValidation, "missing required input field(s): %s", strings.Join(missing, ", "))
		}
	}

	props, ok := schema["properties"].(map[string]any)
	if !ok {
		return nil
	}
	for key, raw := range props {
		val, present := input[key]
		if !present {
			continue
		}
		propSchema, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		want, ok := propSchema["type"].(string)
		if !ok {
			continue
		}
		if err := checkType(key, want, val); err != nil {
			return err
		}
	}
	return nil
}

func checkType(key, want string, val any) *protocol.Error {
	ok := true
	switch want {
	case "string":
		_, ok = val.(string)
	case "boolean":
		_, ok = val.(bool)
	case "number":
		ok = isNumber(val)
	case "integer":
		switch n := val.(type) {
		case int, int32, int64:
		case float64:
			ok = n == float64(int64(n))
		case float32:
			ok = n == float32(int64(n))
		default:
			ok = false
		}
	case "object":
		_, ok = val.(map[string]any)
	case "array":
		_, ok = val.([]any)
	case "null":
		ok = val == nil
	default:
		// unknown type keyword: permissive
	}
	if !ok {
		return protocol.Errorf(protocol.KindValidation, "input field %q: expected %s, got %s", key, want, typeName(val))
	}
	return nil
}

func isNumber(val any) bool {
	switch val.(type) {
	case int, int32, int64, float32, float64:
		return true
	}
	return false
}

func typeName(val any) string {
	switch val.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int32, int64, float32, float64:
		return "number"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	}
	return fmt.Sprintf("%T", val)
}
