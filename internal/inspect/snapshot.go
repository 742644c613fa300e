package inspect

import (
	"fmt"
	"reflect"
	"strings"
)

type mark int

const (
	markNone mark = iota
	markFunction
	markAccessor
	markCircular
	markError
	markMore
)

// property is one snapshot entry: either a raw value to format later or a
// sentinel carrying its own text.
type property struct {
	key       string
	value     reflect.Value
	mark      mark
	text      string
	signature string
}

const moreText = "more properties"

func moreProperty() property {
	return property{key: "...", mark: markMore, text: moreText}
}

type snapshot struct {
	props []property
	seen  map[string]bool
	max   int
	full  bool
}

// add appends p unless its key is already present. It reports false once
// the cap has been hit.
func (s *snapshot) add(p property) bool {
	if s.full {
		return false
	}
	if s.seen[p.key] {
		return true
	}
	if len(s.props) >= s.max {
		s.props = append(s.props, moreProperty())
		s.full = true
		return false
	}
	s.seen[p.key] = true
	s.props = append(s.props, p)
	return true
}

// extractSafeProperties lists the properties of a struct, pointer to struct
// or string-keyed map: exported fields or keys first, then unexported
// fields, then exported methods. Accessors are never called.
func (f *Formatter) extractSafeProperties(rv reflect.Value, visited *VisitedSet) []property {
	s := &snapshot{seen: make(map[string]bool), max: f.opts.MaxProperties}

	obj := rv
	if obj.Kind() == reflect.Pointer {
		obj = obj.Elem()
	}

	switch obj.Kind() {
	case reflect.Struct:
		t := obj.Type()
		for _, exported := range []bool{true, false} {
			for i := 0; i < t.NumField(); i++ {
				sf := t.Field(i)
				if sf.IsExported() != exported {
					continue
				}
				if !s.add(readProperty(sf.Name, func() reflect.Value { return obj.Field(i) }, visited)) {
					return s.props
				}
			}
		}
	case reflect.Map:
		for _, k := range sortedKeys(obj) {
			if !s.add(readProperty(keyText(k), func() reflect.Value { return obj.MapIndex(k) }, visited)) {
				return s.props
			}
		}
	}

	methods := rv
	if methods.Kind() != reflect.Pointer && methods.CanAddr() {
		methods = methods.Addr()
	}
	mt := methods.Type()
	setters := make(map[string]bool)
	for i := 0; i < mt.NumMethod(); i++ {
		m := mt.Method(i)
		if name, ok := strings.CutPrefix(m.Name, "Set"); ok && isGetter(mt, name) && m.Type.NumIn() == 2 {
			setters[m.Name] = true
		}
	}
	for i := 0; i < mt.NumMethod(); i++ {
		m := mt.Method(i)
		if setters[m.Name] {
			continue
		}
		p := property{key: m.Name, mark: markFunction, text: "[Function: " + m.Name + "]", signature: methodSignature(m.Type)}
		if setters["Set"+m.Name] {
			p = property{key: m.Name, mark: markAccessor, text: "[Getter/Setter]"}
		}
		if !s.add(p) {
			return s.props
		}
	}
	return s.props
}

func isGetter(t reflect.Type, name string) bool {
	m, ok := t.MethodByName(name)
	// Method types from a reflect.Type include the receiver.
	return ok && m.Type.NumIn() == 1 && m.Type.NumOut() >= 1
}

// methodSignature drops the receiver from a method's func type.
func methodSignature(t reflect.Type) string {
	in := make([]string, 0, t.NumIn())
	for i := 1; i < t.NumIn(); i++ {
		in = append(in, t.In(i).String())
	}
	out := make([]string, 0, t.NumOut())
	for i := 0; i < t.NumOut(); i++ {
		out = append(out, t.Out(i).String())
	}
	sig := "func(" + strings.Join(in, ", ") + ")"
	switch len(out) {
	case 0:
	case 1:
		sig += " " + out[0]
	default:
		sig += " (" + strings.Join(out, ", ") + ")"
	}
	return sig
}

func readProperty(key string, read func() reflect.Value, visited *VisitedSet) (p property) {
	defer func() {
		if r := recover(); r != nil {
			p = property{key: key, mark: markError, text: fmt.Sprintf("[Error: %v]", r)}
		}
	}()
	v := read()
	u := unwrap(v)
	switch {
	case u.IsValid() && u.Kind() == reflect.Func && !u.IsNil():
		return property{key: key, mark: markFunction, text: "[Function: " + key + "]", signature: u.Type().String()}
	case visited.Has(u):
		return property{key: key, mark: markCircular, text: "[Circular]"}
	}
	return property{key: key, value: v}
}
