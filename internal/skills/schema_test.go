package skills

import (
	"strings"
	"testing"

	"github.com/openptc/ptcd/pkg/protocol"
)

func TestValidateInputRequired(t *testing.T) {
	schema := map[string]any{
		"required": []any{"name", "count"},
	}

	t.Run("all present", func(t *testing.T) {
		if err := validateInput(schema, map[string]any{"name": "x", "count": 1}); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("missing fields listed", func(t *testing.T) {
		err := validateInput(schema, map[string]any{})
		if err == nil {
			t.Fatal("expected error")
		}
		if err.Kind != protocol.KindValidation {
			t.Errorf("kind = %q", err.Kind)
		}
		if !strings.Contains(err.Message, "name") || !strings.Contains(err.Message, "count") {
			t.Errorf("message = %q, want both missing fields named", err.Message)
		}
	})
}

func TestValidateInputTypes(t *testing.T) {
	schema := map[string]any{
		"properties": map[string]any{
			"s":   map[string]any{"type": "string"},
			"n":   map[string]any{"type": "number"},
			"i":   map[string]any{"type": "integer"},
			"b":   map[string]any{"type": "boolean"},
			"o":   map[string]any{"type": "object"},
			"a":   map[string]any{"type": "array"},
			"odd": map[string]any{"type": "quux"},
		},
	}

	tests := []struct {
		name  string
		input map[string]any
		ok    bool
	}{
		{"valid everything", map[string]any{
			"s": "x", "n": 1.5, "i": 3, "b": true,
			"o": map[string]any{}, "a": []any{1},
		}, true},
		{"string mismatch", map[string]any{"s": 7}, false},
		{"number mismatch", map[string]any{"n": "nope"}, false},
		{"integer accepts whole float", map[string]any{"i": float64(4)}, true},
		{"integer rejects fraction", map[string]any{"i": 4.5}, false},
		{"boolean mismatch", map[string]any{"b": "true"}, false},
		{"object mismatch", map[string]any{"o": []any{}}, false},
		{"array mismatch", map[string]any{"a": map[string]any{}}, false},
		{"unknown type keyword permissive", map[string]any{"odd": struct{}{}}, true},
		{"absent optional fields fine", map[string]any{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateInput(schema, tt.input)
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidateInputEmptySchema(t *testing.T) {
	if err := validateInput(nil, map[string]any{"anything": 1}); err != nil {
		t.Errorf("nil schema must accept anything, got %v", err)
	}
	if err := validateInput(map[string]any{}, nil); err != nil {
		t.Errorf("empty schema must accept anything, got %v", err)
	}
}
