// Package registry provides explicit, injectable plugin registries.
//
// A Registry replaces process-wide plugin maps: callers construct one during
// setup, register plugins explicitly, and hand the value to whatever consumes
// it. Registration is not safe for concurrent use; populate a registry before
// sharing it and treat it as read-only afterwards.
package registry

import (
	"fmt"
	"sort"
)

// Registry maps names to plugins of a single kind.
type Registry[T any] struct {
	items map[string]T
}

// New creates an empty registry.
func New[T any]() *Registry[T] {
	return &Registry[T]{items: make(map[string]T)}
}

// Register adds a plugin under name. Registering an empty name or a name
// already taken is an error.
func (r *Registry[T]) Register(name string, item T) error {
	if name == "" {
		return fmt.Errorf("registry: name is required")
	}
	if _, exists := r.items[name]; exists {
		return fmt.Errorf("registry: %q already registered", name)
	}
	r.items[name] = item
	return nil
}

// MustRegister is Register for static setup code; it panics on error.
func (r *Registry[T]) MustRegister(name string, item T) {
	if err := r.Register(name, item); err != nil {
		panic(err)
	}
}

// Get returns the plugin registered under name.
func (r *Registry[T]) Get(name string) (T, bool) {
	if r == nil {
		var zero T
		return zero, false
	}
	item, ok := r.items[name]
	return item, ok
}

// Names returns all registered names in sorted order.
func (r *Registry[T]) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.items))
	for name := range r.items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered plugins.
func (r *Registry[T]) Len() int {
	if r == nil {
		return 0
	}
	return len(r.items)
}
