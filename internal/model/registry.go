package model

import (
	"reflect"
	"sync"
)

// Registry caches reflected models by type. Entries are added on first use
// and never replaced or removed. Share one Registry between writers to pay
// the reflection cost once per type; the zero value is not usable, call
// NewRegistry.
type Registry struct {
	mu     sync.RWMutex
	models map[reflect.Type]*Model
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{models: make(map[reflect.Type]*Model)}
}

// Lookup returns the cached model for t, reflecting it on first use. Failed
// reflections are not cached.
func (r *Registry) Lookup(t reflect.Type) (*Model, error) {
	r.mu.RLock()
	m, ok := r.models[t]
	r.mu.RUnlock()
	if ok {
		return m, nil
	}

	m, err := Reflect(t)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.models[t]; ok {
		return prev, nil
	}
	r.models[t] = m
	return m, nil
}

// Len reports the number of cached models.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.models)
}

// Of is Lookup for a type parameter.
func Of[T any](r *Registry) (*Model, error) {
	return r.Lookup(reflect.TypeFor[T]())
}
