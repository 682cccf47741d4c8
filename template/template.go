// Package template defines job templates: the reusable units of work a
// branch references by name. A template couples a handler function with
// an execution timeout. Templates are registered at startup and looked
// up by the executor at run time; input and output payloads cross the
// registry boundary as raw JSON.
package template

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

// HandlerFunc executes one job instance. The input is the raw JSON
// payload from the job spec; the returned bytes become the job's output
// payload. The context carries the job's execution deadline.
type HandlerFunc func(ctx context.Context, input []byte) ([]byte, error)

// Template is a registered unit of work.
type Template struct {
	// Name is the unique template identifier referenced by job specs.
	Name string

	// Timeout bounds a single execution. Zero means the engine's
	// default job timeout applies.
	Timeout time.Duration

	handler HandlerFunc
}

// Handler returns the template's handler function.
func (t Template) Handler() HandlerFunc { return t.handler }

// Definition is a typed job template. Input payloads are unmarshaled
// into T before the handler runs; the handler's output is marshaled
// back to JSON.
type Definition[T any] struct {
	// Name is the unique template identifier.
	Name string

	// Timeout bounds a single execution. Zero means the engine default.
	Timeout time.Duration

	// Handler executes the job with a decoded input.
	Handler func(ctx context.Context, input T) (any, error)
}

// Registry holds the set of known templates. Safe for concurrent use,
// though the expected pattern is register-at-startup, read-at-runtime.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewRegistry creates an empty template registry.
func NewRegistry() *Registry {
	return &Registry{templates: make(map[string]Template)}
}

// Register adds a typed template definition to the registry. The
// definition's handler is wrapped to decode the raw JSON input into T
// and encode the result back to JSON. Registering a name twice replaces
// the earlier template.
func Register[T any](r *Registry, def Definition[T]) error {
	if def.Name == "" {
		return fmt.Errorf("template: register: empty name")
	}

	if def.Handler == nil {
		return fmt.Errorf("template: register %q: nil handler", def.Name)
	}

	handler := def.Handler

	wrapped := func(ctx context.Context, raw []byte) ([]byte, error) {
		var input T
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &input); err != nil {
				return nil, fmt.Errorf("template %q: decode input: %w", def.Name, err)
			}
		}

		out, err := handler(ctx, input)
		if err != nil {
			return nil, err
		}

		if out == nil {
			return nil, nil
		}

		encoded, err := json.Marshal(out)
		if err != nil {
			return nil, fmt.Errorf("template %q: encode output: %w", def.Name, err)
		}

		return encoded, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.templates[def.Name] = Template{
		Name:    def.Name,
		Timeout: def.Timeout,
		handler: wrapped,
	}

	return nil
}

// RegisterRaw adds a template whose handler works directly on raw JSON.
func (r *Registry) RegisterRaw(name string, timeout time.Duration, handler HandlerFunc) error {
	if name == "" {
		return fmt.Errorf("template: register: empty name")
	}

	if handler == nil {
		return fmt.Errorf("template: register %q: nil handler", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.templates[name] = Template{Name: name, Timeout: timeout, handler: handler}

	return nil
}

// Get returns the template registered under name.
func (r *Registry) Get(name string) (Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.templates[name]

	return t, ok
}

// Has reports whether a template is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.templates[name]

	return ok
}

// Names returns the sorted names of all registered templates.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
