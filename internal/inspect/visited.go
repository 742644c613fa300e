package inspect

import "reflect"

type identity struct {
	typ reflect.Type
	ptr uintptr
	n   int
}

// VisitedSet holds the identities seen during one formatting pass.
type VisitedSet struct {
	seen map[identity]struct{}
}

// NewVisitedSet returns an empty set.
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{seen: make(map[identity]struct{})}
}

func identityOf(v reflect.Value) (identity, bool) {
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.UnsafePointer:
		if v.IsNil() {
			return identity{}, false
		}
		return identity{typ: v.Type(), ptr: v.Pointer()}, true
	case reflect.Slice:
		// Empty slices share backing addresses and cannot form a cycle.
		if v.IsNil() || v.Len() == 0 {
			return identity{}, false
		}
		return identity{typ: v.Type(), ptr: v.Pointer(), n: v.Len()}, true
	}
	return identity{}, false
}

// Has reports whether v's identity has been added.
func (s *VisitedSet) Has(v reflect.Value) bool {
	id, ok := identityOf(unwrap(v))
	if !ok {
		return false
	}
	_, seen := s.seen[id]
	return seen
}

// Add records v's identity. Values without identity are ignored.
func (s *VisitedSet) Add(v reflect.Value) {
	if id, ok := identityOf(unwrap(v)); ok {
		s.seen[id] = struct{}{}
	}
}

// Len reports the number of identities recorded.
func (s *VisitedSet) Len() int { return len(s.seen) }
