package resource

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrDuplicateType is returned when a type name is registered twice.
var ErrDuplicateType = errors.New("resource type already registered")

// Resolver resolves a resource-type name to its capability-bearing handle.
// Absence is not fatal at catalog time but maps to the forbidden outcome at
// execution time.
type Resolver interface {
	Resolve(typeName string) (Handle, bool)
}

// Registry is the process-wide resource-type registry. Thread-safe.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]Handle
}

// NewRegistry creates an empty resource-type registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[string]Handle)}
}

// Register adds a handle under its type name.
func (r *Registry) Register(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := h.TypeName()
	if name == "" {
		return errors.New("resource type name cannot be empty")
	}
	if _, exists := r.handles[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateType, name)
	}
	r.handles[name] = h
	return nil
}

// Resolve implements Resolver.
func (r *Registry) Resolve(typeName string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handles[typeName]
	return h, ok
}

// TypeNames returns the registered type names in sorted order.
func (r *Registry) TypeNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handles))
	for name := range r.handles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
