package prompts

import (
	"embed"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"trademark-opposition/backend/internal/store"
)

// Names of the prompts used by the assessors.
const (
	ConceptualSimilarity = "conceptual_similarity"
	MarkSimilarity       = "mark_similarity"
	GoodsServices        = "gs_likelihood"
	CasePrediction       = "case_prediction"
)

const defaultVersion = 1

//go:embed templates/*.tmpl
var embedded embed.FS

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-z][a-z0-9_]*)\s*\}\}`)

// Template is an immutable prompt body with named {{placeholders}}. Any other braces,
// such as literal JSON examples, are left untouched by Render.
type Template struct {
	Name         string
	Version      int
	Body         string
	placeholders map[string]struct{}
}

// Parse builds a template and records the placeholders it declares.
func Parse(name string, version int, body string) (*Template, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("prompt name is required")
	}
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("prompt %s: body is empty", name)
	}
	declared := make(map[string]struct{})
	for _, m := range placeholderPattern.FindAllStringSubmatch(body, -1) {
		declared[m[1]] = struct{}{}
	}
	return &Template{Name: name, Version: version, Body: body, placeholders: declared}, nil
}

// Placeholders returns the declared names in sorted order.
func (t *Template) Placeholders() []string {
	out := make([]string, 0, len(t.placeholders))
	for name := range t.placeholders {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Render substitutes values in a single pass. Every declared placeholder needs a value
// and every value must correspond to a declared placeholder.
func (t *Template) Render(values map[string]string) (string, error) {
	for name := range t.placeholders {
		if _, ok := values[name]; !ok {
			return "", fmt.Errorf("prompt %s: missing value for {{%s}}", t.Name, name)
		}
	}
	for name := range values {
		if _, ok := t.placeholders[name]; !ok {
			return "", fmt.Errorf("prompt %s: {{%s}} is not declared", t.Name, name)
		}
	}
	return placeholderPattern.ReplaceAllStringFunc(t.Body, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		return values[name]
	}), nil
}

// Registry holds the active template per name.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// Defaults loads the embedded templates at version 1.
func Defaults() (*Registry, error) {
	entries, err := embedded.ReadDir("templates")
	if err != nil {
		return nil, fmt.Errorf("read embedded prompts: %w", err)
	}
	r := &Registry{templates: make(map[string]*Template, len(entries))}
	for _, entry := range entries {
		data, err := embedded.ReadFile("templates/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read prompt %s: %w", entry.Name(), err)
		}
		name := strings.TrimSuffix(entry.Name(), ".tmpl")
		tmpl, err := Parse(name, defaultVersion, string(data))
		if err != nil {
			return nil, err
		}
		r.templates[name] = tmpl
	}
	for _, required := range []string{ConceptualSimilarity, MarkSimilarity, GoodsServices, CasePrediction} {
		if _, ok := r.templates[required]; !ok {
			return nil, fmt.Errorf("embedded prompt %s missing", required)
		}
	}
	return r, nil
}

// MustDefaults is Defaults for tests and wiring that cannot proceed without prompts.
func MustDefaults() *Registry {
	r, err := Defaults()
	if err != nil {
		panic(err)
	}
	return r
}

// Override replaces the active template when tmpl is newer. The override may only use
// placeholders the current template declares, since callers supply exactly those.
func (r *Registry) Override(tmpl *Template) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.templates[tmpl.Name]
	if !ok {
		return false, fmt.Errorf("prompt %s: unknown prompt name", tmpl.Name)
	}
	if tmpl.Version <= current.Version {
		return false, nil
	}
	if err := compatible(current, tmpl); err != nil {
		return false, err
	}
	tmpl.placeholders = current.placeholders
	r.templates[tmpl.Name] = tmpl
	return true, nil
}

// Compatible reports whether tmpl could replace the active template of the same name.
func (r *Registry) Compatible(tmpl *Template) error {
	current, ok := r.Get(tmpl.Name)
	if !ok {
		return fmt.Errorf("prompt %s: unknown prompt name", tmpl.Name)
	}
	return compatible(current, tmpl)
}

func compatible(current, next *Template) error {
	for name := range next.placeholders {
		if _, ok := current.placeholders[name]; !ok {
			return fmt.Errorf("prompt %s: {{%s}} is not declared by v%d", next.Name, name, current.Version)
		}
	}
	return nil
}

// ApplyStored applies the newest stored revision of each prompt. Rows that fail to
// parse or declare unknown placeholders abort the load.
func (r *Registry) ApplyStored(rows []store.PromptTemplate) (int, error) {
	applied := 0
	for _, row := range rows {
		tmpl, err := Parse(row.Name, row.Version, row.Body)
		if err != nil {
			return applied, err
		}
		ok, err := r.Override(tmpl)
		if err != nil {
			return applied, err
		}
		if ok {
			applied++
			logrus.WithFields(logrus.Fields{
				"prompt":  row.Name,
				"version": row.Version,
			}).Info("prompt override active")
		}
	}
	return applied, nil
}

// Get returns the active template for name.
func (r *Registry) Get(name string) (*Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tmpl, ok := r.templates[name]
	return tmpl, ok
}

// Render renders the active template for name.
func (r *Registry) Render(name string, values map[string]string) (string, error) {
	tmpl, ok := r.Get(name)
	if !ok {
		return "", fmt.Errorf("prompt %s: unknown prompt name", name)
	}
	return tmpl.Render(values)
}

// Versions reports the active version of every prompt.
func (r *Registry) Versions() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int, len(r.templates))
	for name, tmpl := range r.templates {
		out[name] = tmpl.Version
	}
	return out
}
