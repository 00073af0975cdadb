package skills

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"gopkg.in/yaml.v3"

	"github.com/openptc/ptcd/pkg/protocol"
)

const manifestName = "skill.yaml"

// definitionCacheSize bounds how many full definitions stay resident.
const definitionCacheSize = 256

// Registry discovers skill directories and serves metadata and definitions.
// Safe for concurrent use; the initial scan happens at most once unless
// Reload is called.
type Registry struct {
	dir string

	mu      sync.RWMutex
	scanned bool
	meta    map[string]Metadata
	order   []string // scan order, for stable List output

	defs *lru.Cache[string, *Definition]
}

// NewRegistry creates a registry rooted at skillsDir. No filesystem access
// happens until Scan (or the first lazy use).
func NewRegistry(skillsDir string) *Registry {
	cache, _ := lru.New[string, *Definition](definitionCacheSize)
	return &Registry{
		dir:  skillsDir,
		meta: make(map[string]Metadata),
		defs: cache,
	}
}

// manifest mirrors the consumed subset of skill.yaml. Deep nesting beyond
// these keys is ignored.
type manifest struct {
	Name           string         `yaml:"name"`
	Version        string         `yaml:"version"`
	Description    string         `yaml:"description"`
	Tags           []string       `yaml:"tags"`
	Type           string         `yaml:"type"`
	Kind           string         `yaml:"kind"`
	InputSchema    map[string]any `yaml:"input_schema"`
	OutputSchema   map[string]any `yaml:"output_schema"`
	PromptTemplate string         `yaml:"prompt_template"`
	Execution      *struct {
		Handler  string `yaml:"handler"`
		Function string `yaml:"function"`
		Timeout  int    `yaml:"timeout"`
	} `yaml:"execution"`
}

func (m *manifest) kind() Kind {
	if m.Type != "" {
		return Kind(m.Type)
	}
	return Kind(m.Kind)
}

// Scan walks the direct subdirectories of the skills dir and loads metadata.
// Idempotent: rescanning replaces the metadata set. A failure on one skill is
// logged and skipped; it never prevents the rest from loading.
func (r *Registry) Scan() ([]Metadata, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("scan skills dir %s: %w", r.dir, err)
	}

	meta := make(map[string]Metadata)
	var order []string

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		skillDir := filepath.Join(r.dir, entry.Name())
		m, err := readManifest(skillDir)
		if err != nil {
			if os.IsNotExist(err) {
				continue // no skill.yaml: not a skill package
			}
			slog.Warn("skipping skill with bad manifest", "dir", skillDir, "error", err)
			continue
		}

		md := Metadata{
			Name:        m.Name,
			Version:     m.Version,
			Description: m.Description,
			Tags:        m.Tags,
			Kind:        m.kind(),
			Path:        skillDir,
		}
		if md.Name == "" {
			slog.Warn("skipping skill without a name", "dir", skillDir)
			continue
		}
		if md.Name != entry.Name() {
			slog.Warn("skill name does not match its directory", "name", md.Name, "dir", entry.Name())
		}
		if !md.Kind.Valid() {
			slog.Warn("skipping skill with unknown kind", "name", md.Name, "kind", md.Kind)
			continue
		}
		if _, dup := meta[md.Name]; dup {
			slog.Warn("duplicate skill name, last scanned wins", "name", md.Name, "dir", skillDir)
			// drop the earlier ordering slot; the new one is appended below
			order = removeString(order, md.Name)
		}
		meta[md.Name] = md
		order = append(order, md.Name)
	}

	r.mu.Lock()
	r.meta = meta
	r.order = order
	r.scanned = true
	r.mu.Unlock()

	return r.List(), nil
}

func readManifest(skillDir string) (*manifest, error) {
	data, err := os.ReadFile(filepath.Join(skillDir, manifestName))
	if err != nil {
		return nil, err
	}
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", manifestName, err)
	}
	return &m, nil
}

// ensureScanned performs the initial scan lazily, at most once.
func (r *Registry) ensureScanned() error {
	r.mu.RLock()
	done := r.scanned
	r.mu.RUnlock()
	if done {
		return nil
	}
	_, err := r.Scan()
	return err
}

// List returns metadata in scan order. With a non-empty tags filter, only
// entries whose tags intersect the filter are returned.
func (r *Registry) List(tagsFilter ...string) []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Metadata, 0, len(r.order))
	for _, name := range r.order {
		md := r.meta[name]
		if len(tagsFilter) > 0 && !md.HasTag(tagsFilter...) {
			continue
		}
		out = append(out, md)
	}
	return out
}

// Get returns the metadata for one skill.
func (r *Registry) Get(name string) (Metadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	md, ok := r.meta[name]
	return md, ok
}

// LoadFull loads the complete definition for a skill, cached after first
// load. Unknown names fail with KindSkillNotFound.
func (r *Registry) LoadFull(name string) (*Definition, error) {
	if err := r.ensureScanned(); err != nil {
		return nil, err
	}

	if def, ok := r.defs.Get(name); ok {
		return def, nil
	}

	md, ok := r.Get(name)
	if !ok {
		return nil, protocol.Errorf(protocol.KindSkillNotFound, "skill %q is not in the registry", name)
	}

	m, err := readManifest(md.Path)
	if err != nil {
		return nil, protocol.Errorf(protocol.KindInternal, "load skill %q: %v", name, err)
	}

	def := &Definition{
		Metadata:       md,
		InputSchema:    m.InputSchema,
		OutputSchema:   m.OutputSchema,
		PromptTemplate: m.PromptTemplate,
	}
	if m.Execution != nil {
		def.Execution = &Execution{
			Handler:   m.Execution.Handler,
			Function:  m.Execution.Function,
			TimeoutMs: m.Execution.Timeout,
		}
	}
	if err := def.validate(); err != nil {
		return nil, err
	}

	r.defs.Add(name, def)
	return def, nil
}

// validate enforces the definition-level invariants.
func (d *Definition) validate() error {
	switch d.Kind {
	case KindPurePrompt:
		if d.PromptTemplate == "" {
			return protocol.Errorf(protocol.KindValidation, "pure-prompt skill %q has no prompt_template", d.Name)
		}
	case KindPureScript, KindHybrid:
		if d.Execution == nil || d.Execution.Handler == "" || d.Execution.Function == "" {
			return protocol.Errorf(protocol.KindValidation, "%s skill %q has no execution descriptor", d.Kind, d.Name)
		}
	}
	return nil
}

// Reload discards caches and re-scans the skills dir.
func (r *Registry) Reload() error {
	r.defs.Purge()
	_, err := r.Scan()
	return err
}

// Dir returns the registry root.
func (r *Registry) Dir() string { return r.dir }

func removeString(xs []string, s string) []string {
	for i, x := range xs {
		if x == s {
			return append(xs[:i], xs[i+1:]...)
		}
	}
	return xs
}
