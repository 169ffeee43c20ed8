package tool

import (
	"fmt"
	"sync"

	"github.com/skein-ai/skein/llm"
)

// Registry holds the tools an agent may dispatch, keyed by name. Lookup order
// for Definitions follows registration order so tool lists presented to
// models are stable.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry constructs a registry from the given tools. Duplicate names are
// rejected.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: map[string]Tool{}}

	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// MustRegistry is NewRegistry that panics on duplicate names. Intended for
// static tool sets in examples and tests.
func MustRegistry(tools ...Tool) *Registry {
	r, err := NewRegistry(tools...)
	if err != nil {
		panic(err)
	}

	return r
}

// Register adds a tool; a second registration under the same name fails.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := t.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}

	r.tools[name] = t
	r.order = append(r.order, name)

	return nil
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]

	return t, ok
}

// List returns all tools in registration order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}

	return out
}

// Definitions returns declarative tool descriptors for model requests.
func (r *Registry) Definitions() []llm.ToolDefinition {
	tools := r.List()

	out := make([]llm.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		out = append(out, llm.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}

	return out
}

// Merge registers all tools from other into r. Name collisions fail and leave
// r partially merged.
func (r *Registry) Merge(other *Registry) error {
	for _, t := range other.List() {
		if err := r.Register(t); err != nil {
			return err
		}
	}

	return nil
}
