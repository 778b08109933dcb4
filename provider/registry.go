// Package provider holds the name-keyed registry shared by the STT and TTS subsystems.
package provider

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is a set of interchangeable backends of one capability with a
// single current default. It is safe for concurrent use; every mutation
// replaces state in one step under the lock.
type Registry[T any] struct {
	kind string

	mu        sync.RWMutex
	providers map[string]T
	current   string
}

// NewRegistry creates an empty registry. kind is used in error messages ("stt", "tts").
func NewRegistry[T any](kind string) *Registry[T] {
	return &Registry[T]{kind: kind, providers: make(map[string]T)}
}

// Register inserts or replaces the entry for name. The first registration
// becomes the current default when none is set yet.
func (r *Registry[T]) Register(name string, instance T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = instance
	if r.current == "" {
		r.current = name
	}
}

// SetCurrent makes name the default for subsequent calls.
func (r *Registry[T]) SetCurrent(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[name]; !ok {
		return notFound(r.kind, name)
	}
	r.current = name
	return nil
}

// Current returns the name of the default provider.
func (r *Registry[T]) Current() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Has reports whether name is registered.
func (r *Registry[T]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.providers[name]
	return ok
}

// Resolve returns the provider registered under name, or the current default
// when name is empty. The returned instance stays valid for the caller even if
// the registry is changed afterwards.
func (r *Registry[T]) Resolve(name string) (string, T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name == "" {
		name = r.current
	}
	instance, ok := r.providers[name]
	if !ok {
		var zero T
		return name, zero, notFound(r.kind, name)
	}
	return name, instance, nil
}

// List returns the registered provider names in sorted order.
func (r *Registry[T]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke resolves a provider and runs call against it. Backend errors and
// panics are returned as *CallError.
func Invoke[T, R any](r *Registry[T], name string, call func(T) (R, error)) (result R, err error) {
	resolved, instance, err := r.Resolve(name)
	if err != nil {
		return result, err
	}
	defer func() {
		if p := recover(); p != nil {
			err = &CallError{Provider: resolved, Err: fmt.Errorf("panic: %v", p)}
		}
	}()
	result, err = call(instance)
	if err != nil {
		return result, &CallError{Provider: resolved, Err: err}
	}
	return result, nil
}
