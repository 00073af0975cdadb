package skills

import "testing"

func TestRenderTemplate(t *testing.T) {
	tests := []struct {
		name  string
		tpl   string
		input map[string]any
		want  string
	}{
		{"simple", "Hello, {{name}}!", map[string]any{"name": "Ada"}, "Hello, Ada!"},
		{"whitespace tolerated", "{{ name }} and {{  name}}", map[string]any{"name": "x"}, "x and x"},
		{"unknown key stays literal", "Hi {{who}}", map[string]any{"name": "x"}, "Hi {{who}}"},
		{"number renders as json", "n={{n}}", map[string]any{"n": 42}, "n=42"},
		{"object renders compact", "v={{v}}", map[string]any{"v": map[string]any{"a": 1}}, `v={"a":1}`},
		{"multiple keys", "{{a}}-{{b}}", map[string]any{"a": "1", "b": "2"}, "1-2"},
		{"no placeholders", "plain", nil, "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renderTemplate(tt.tpl, tt.input)
			if got != tt.want {
				t.Errorf("renderTemplate(%q) = %q, want %q", tt.tpl, got, tt.want)
			}
		})
	}
}
