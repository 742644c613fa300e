package inspect

import (
	"reflect"
	"sync"

	"github.com/google/uuid"
)

// Registry maps container ids to the live values they were built from.
// Entries live as long as the registry.
type Registry struct {
	mu      sync.RWMutex
	objects map[string]reflect.Value
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{objects: make(map[string]reflect.Value)}
}

// Register stores v under a fresh id.
func (r *Registry) Register(v reflect.Value) string {
	id := "obj_" + uuid.NewString()
	r.mu.Lock()
	r.objects[id] = v
	r.mu.Unlock()
	return id
}

// Lookup resolves an id.
func (r *Registry) Lookup(id string) (reflect.Value, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.objects[id]
	return v, ok
}

// Len reports how many values are registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.objects)
}

func (r *Registry) forget(id string) {
	r.mu.Lock()
	delete(r.objects, id)
	r.mu.Unlock()
}
