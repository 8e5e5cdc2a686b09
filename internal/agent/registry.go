package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Registry is an explicit, closed tool table built at startup. No
// runtime registration: an agent's tool set is fixed at construction,
// and lookups during the reasoning loop are pure reads.
type Registry struct {
	tools map[string]*Tool
	order []string
}

// NewRegistry builds a registry from the given tools. Every tool is
// validated; duplicate names are rejected.
func NewRegistry(tools ...*Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]*Tool, len(tools))}
	for _, t := range tools {
		if err := t.validate(); err != nil {
			return nil, err
		}
		if _, exists := r.tools[t.Name]; exists {
			return nil, fmt.Errorf("duplicate tool %q", t.Name)
		}
		r.tools[t.Name] = t
		r.order = append(r.order, t.Name)
	}
	return r, nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (*Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Tools returns all tools in registration order.
func (r *Registry) Tools() []*Tool {
	out := make([]*Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Describe renders the tool table for a prompt: name, description, and
// input schema per tool.
func (r *Registry) Describe() string {
	var b strings.Builder
	for _, name := range r.order {
		t := r.tools[name]
		schema, err := json.Marshal(t.InputSchema)
		if err != nil {
			schema = []byte("{}")
		}
		fmt.Fprintf(&b, "- %s: %s\n  input schema: %s\n", t.Name, t.Description, schema)
	}
	return b.String()
}
