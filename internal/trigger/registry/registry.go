// Package registry maps algorithm names to maker constructors.
//
// A Registry is populated once during start-up by explicit RegisterAll
// calls from the maker packages and then sealed. Once sealed it is
// read-only, and Build and Names take no locks.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

var (
	// ErrDuplicateRegistration is returned when a name is registered twice.
	ErrDuplicateRegistration = errors.New("algorithm already registered")
	// ErrNotFound is returned by Build for an unregistered name.
	ErrNotFound = errors.New("algorithm not registered")
	// ErrSealed is returned by Register and Reset after Seal.
	ErrSealed = errors.New("registry is sealed")
)

// Constructor returns a fresh, unconfigured maker.
type Constructor[M any] func() M

// Registry is a name-keyed set of constructors for makers of type M.
type Registry[M any] struct {
	mu     sync.Mutex
	ctors  map[string]Constructor[M]
	sealed atomic.Bool
}

// New returns an empty registry.
func New[M any]() *Registry[M] {
	return &Registry[M]{ctors: make(map[string]Constructor[M])}
}

// Register adds ctor under name.
func (r *Registry[M]) Register(name string, ctor Constructor[M]) error {
	if ctor == nil {
		return fmt.Errorf("register %q: nil constructor", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed.Load() {
		return fmt.Errorf("register %q: %w", name, ErrSealed)
	}
	if _, ok := r.ctors[name]; ok {
		return fmt.Errorf("register %q: %w", name, ErrDuplicateRegistration)
	}
	r.ctors[name] = ctor
	return nil
}

// Build returns a new maker registered under name.
func (r *Registry[M]) Build(name string) (M, error) {
	ctor, ok := r.lookup(name)
	if !ok {
		var zero M
		return zero, fmt.Errorf("build %q: %w", name, ErrNotFound)
	}
	return ctor(), nil
}

// Has reports whether name is registered.
func (r *Registry[M]) Has(name string) bool {
	_, ok := r.lookup(name)
	return ok
}

func (r *Registry[M]) lookup(name string) (Constructor[M], bool) {
	if r.sealed.Load() {
		ctor, ok := r.ctors[name]
		return ctor, ok
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ctor, ok := r.ctors[name]
	return ctor, ok
}

// Names returns the registered names in sorted order.
func (r *Registry[M]) Names() []string {
	if !r.sealed.Load() {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	names := make([]string, 0, len(r.ctors))
	for name := range r.ctors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Seal freezes the registry. It is idempotent.
func (r *Registry[M]) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed.Store(true)
}

// Sealed reports whether Seal has been called.
func (r *Registry[M]) Sealed() bool { return r.sealed.Load() }

// Reset removes every registration. It is meant for tests and fails once
// the registry is sealed.
func (r *Registry[M]) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed.Load() {
		return fmt.Errorf("reset: %w", ErrSealed)
	}
	clear(r.ctors)
	return nil
}
