// Package extension manages the ordered list of registered extensions that
// contribute batch actions and executors. Contributions are merged for
// catalog listing; for execution the first extension that can handle an
// action wins. Conflicts between extensions offering the same action id are
// resolved first-registered-wins.
package extension

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/rshade/massbatch/internal/action"
	"github.com/rshade/massbatch/internal/resource"
)

// Common registration errors.
var (
	ErrDuplicateName  = errors.New("extension already registered")
	ErrInvalidVersion = errors.New("extension version is not valid semver")
)

// Extension is the hook an extension implements to contribute actions and
// executors. An extension may veto a resource type by contributing nothing.
type Extension interface {
	// Name identifies the extension; it doubles as the executor reference
	// in composite action ids contributed by the extension.
	Name() string

	// Version is the extension's semver version, validated at
	// registration.
	Version() string

	// ContributeActions returns the actions the extension offers for the
	// resource type, keyed by composite action id.
	ContributeActions(h resource.Handle) map[string]string

	// ContributeExecutor returns the executor for the given resource type
	// and bare action id, or false when the extension cannot handle it.
	ContributeExecutor(typeName, actionID string) (action.Executor, bool)
}

// Registry holds registered extensions in registration order. Thread-safe.
type Registry struct {
	mu         sync.RWMutex
	extensions []Extension
	byName     map[string]Extension
}

// NewRegistry creates an empty extension registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Extension)}
}

// Register appends an extension. Names must be unique and versions must
// parse as semver.
func (r *Registry) Register(ext Extension) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := ext.Name()
	if name == "" {
		return errors.New("extension name cannot be empty")
	}
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	if _, err := semver.NewVersion(ext.Version()); err != nil {
		return fmt.Errorf("%w: %s %q: %w", ErrInvalidVersion, name, ext.Version(), err)
	}

	r.extensions = append(r.extensions, ext)
	r.byName[name] = ext
	return nil
}

// Names returns the registered extension names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.extensions))
	for _, ext := range r.extensions {
		names = append(names, ext.Name())
	}
	return names
}

// ContributeActions merges the action contributions of every extension for
// the resource type. An action id already contributed by an earlier
// extension is kept: first-registered-wins.
func (r *Registry) ContributeActions(h resource.Handle) map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	merged := make(map[string]string)
	for _, ext := range r.extensions {
		for id, label := range ext.ContributeActions(h) {
			if _, exists := merged[id]; !exists {
				merged[id] = label
			}
		}
	}
	return merged
}

// ExecutorFor resolves an executor. When ref names a registered extension,
// only that extension is asked; otherwise every extension is polled in
// registration order and the first that can handle the action wins.
func (r *Registry) ExecutorFor(ref, typeName, actionID string) (action.Executor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if ref != "" {
		ext, ok := r.byName[ref]
		if !ok {
			return nil, false
		}
		return ext.ContributeExecutor(typeName, actionID)
	}

	for _, ext := range r.extensions {
		if exec, ok := ext.ContributeExecutor(typeName, actionID); ok {
			return exec, true
		}
	}
	return nil, false
}
