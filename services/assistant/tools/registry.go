package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var ErrUnknownFunction = errors.New("unknown function")

// Handler receives the decoded arguments of a tool call and returns the text
// submitted back to the run.
type Handler func(ctx context.Context, args map[string]any) (string, error)

type Definition struct {
	Name        string
	Description string
	// Parameters is the JSON schema of the arguments object.
	Parameters any
	Handler    Handler
}

type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

func NewRegistry(defs ...Definition) *Registry {
	r := &Registry{defs: make(map[string]Definition)}
	for _, def := range defs {
		r.Register(def)
	}
	return r
}

// Register associates def.Name with its handler. A later registration of the
// same name replaces the earlier one.
func (r *Registry) Register(def Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.defs[def.Name] = def
}

// Invoke runs the handler registered under name. The handler result is
// returned as is.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	r.mu.RLock()
	def, ok := r.defs[name]
	r.mu.RUnlock()

	if !ok || def.Handler == nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	return def.Handler(ctx, args)
}

// Definitions returns the registered definitions ordered by name.
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.defs))
	for _, def := range r.defs {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool {
		return defs[i].Name < defs[j].Name
	})
	return defs
}
