package orm

import (
	"fmt"
	"reflect"
	"sync"
)

// ModelOptions configures behavior for a registered entity type.
type ModelOptions struct {
	// PartialUpdate enables diffing against the copy captured at load time
	// (see EntityManager.Get) so Save/Update write only changed columns.
	PartialUpdate bool
}

var (
	registryMu    sync.RWMutex
	registered    []reflect.Type
	registeredOpt = map[reflect.Type]ModelOptions{}
)

// RegisterModel validates T's shape (an exported uint64 "ID" field leading
// its representable columns) and records it in the global registry.
// Entities should call this from an init() function. Panics on an invalid
// shape, the same way the rest of the ecosystem treats registration-time
// schema errors as unrecoverable.
func RegisterModel[T any]() {
	RegisterModelWithOptions[T](ModelOptions{})
}

// RegisterModelWithOptions is RegisterModel plus per-type behavior options.
func RegisterModelWithOptions[T any](opts ModelOptions) {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil || t.Kind() != reflect.Struct {
		panic(fmt.Errorf("orm: RegisterModel requires a struct type, got %T", zero))
	}
	if _, err := metaFor(t); err != nil {
		panic(fmt.Errorf("orm: validation failed for %s: %w", t.Name(), err))
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	for _, r := range registered {
		if r == t {
			registeredOpt[t] = opts
			return
		}
	}
	registered = append(registered, t)
	registeredOpt[t] = opts
}

// RegisteredModels returns a copy of every type registered so far.
func RegisteredModels() []reflect.Type {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]reflect.Type, len(registered))
	copy(out, registered)
	return out
}

func optionsFor(t reflect.Type) ModelOptions {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registeredOpt[t]
}

// ClearRegisteredModels clears the global registry. Intended for tests.
func ClearRegisteredModels() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registered = nil
	registeredOpt = map[reflect.Type]ModelOptions{}
}

// ValidateAllRegistered re-validates every registered type's shape. Useful
// as a startup check before opening connections, mirroring the teacher's
// MustValidateAllRegistered guard.
func ValidateAllRegistered() error {
	for _, t := range RegisteredModels() {
		metaCache.Delete(t)
		if _, err := metaFor(t); err != nil {
			return err
		}
	}
	return nil
}

// MustValidateAllRegistered panics if ValidateAllRegistered fails.
func MustValidateAllRegistered() {
	if err := ValidateAllRegistered(); err != nil {
		panic(err)
	}
}
