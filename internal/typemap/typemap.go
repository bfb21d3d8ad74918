// Package typemap implements an extensible mapping keyed by runtime type
// identity, used for ad-hoc per-request/per-process data without
// predeclaration (GlobalContext.Extensions, Context.Local).
package typemap

import (
	"reflect"
	"sync"
)

// TypeMap maps a concrete Go type to at most one stored value of that type.
// It is safe for concurrent use.
type TypeMap struct {
	mu     sync.RWMutex
	values map[reflect.Type]interface{}
}

// New returns an empty TypeMap.
func New() *TypeMap {
	return &TypeMap{values: make(map[reflect.Type]interface{})}
}

// Set stores value under its own type, replacing any previous value of the
// same type.
func Set[T any](tm *TypeMap, value T) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.values[reflect.TypeOf((*T)(nil)).Elem()] = value
}

// Get retrieves the value stored for type T, if any.
func Get[T any](tm *TypeMap) (T, bool) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	var zero T
	v, ok := tm.values[reflect.TypeOf((*T)(nil)).Elem()]
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// Delete removes the value stored for type T, if any.
func Delete[T any](tm *TypeMap) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	delete(tm.values, reflect.TypeOf((*T)(nil)).Elem())
}

// Len reports how many distinct types currently have a stored value.
func (tm *TypeMap) Len() int {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return len(tm.values)
}
