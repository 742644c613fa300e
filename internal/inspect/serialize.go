package inspect

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strings"
	"time"
)

// orderedObject is a JSON object that keeps its key order.
type orderedObject struct {
	keys   []string
	values map[string]any
}

func newOrderedObject(n int) *orderedObject {
	return &orderedObject{keys: make([]string, 0, n), values: make(map[string]any, n)}
}

func (o *orderedObject) set(key string, v any) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

func (o *orderedObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeRaw(&buf, k); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := encodeRaw(&buf, o.values[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func encodeRaw(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1)
	return nil
}

func encodeIndented(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Serialize renders v as two-space indented JSON. Cycles, funcs, times,
// errors and other values JSON cannot carry are replaced by readable
// strings. Nesting past DefaultOptions().MaxDepth collapses to "[Object]"
// or "[Array]". It never panics; failures are reported inside the returned
// text.
func Serialize(v any) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = fmt.Sprintf("[Error formatting object: %v]", r)
		}
	}()
	s := newSerializer(DefaultOptions(), nil)
	text, err := encodeIndented(s.convert(addressable(reflect.ValueOf(v)), 0))
	if err != nil {
		return fmt.Sprintf("[Error formatting object: %v]", err)
	}
	return text
}

// serializeProperties serializes a snapshot, keeping sentinel texts as is.
func (f *Formatter) serializeProperties(props []property, asArray bool) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = fmt.Sprintf("[Error formatting object: %v]", r)
		}
	}()
	s := newSerializer(f.opts, f.hostTypes)
	value := func(p property) any {
		if p.mark != markNone {
			return p.text
		}
		return s.convert(p.value, 1)
	}
	var doc any
	if asArray {
		items := make([]any, len(props))
		for i, p := range props {
			items[i] = value(p)
		}
		doc = items
	} else {
		obj := newOrderedObject(len(props))
		for _, p := range props {
			obj.set(p.key, value(p))
		}
		doc = obj
	}
	text, err := encodeIndented(doc)
	if err != nil {
		return fmt.Sprintf("[Error formatting object: %v]", err)
	}
	return text
}

type serializer struct {
	seen     *VisitedSet
	maxDepth int
	maxProps int
	hosts    map[string]bool
}

// newSerializer uses the limits of opts. A nil hosts map is built from
// opts.HostTypes.
func newSerializer(opts Options, hosts map[string]bool) *serializer {
	opts = opts.withDefaults()
	if hosts == nil {
		hosts = hostTypeSet(opts.HostTypes)
	}
	return &serializer{
		seen:     NewVisitedSet(),
		maxDepth: opts.MaxDepth,
		maxProps: opts.MaxProperties,
		hosts:    hosts,
	}
}

func (s *serializer) convert(rv reflect.Value, depth int) any {
	rv = unwrap(rv)
	if !rv.IsValid() || isNil(rv) {
		return nil
	}
	t := rv.Type()
	switch t {
	case undefinedType:
		return "[undefined]"
	case symbolType:
		return Symbol(rv.String()).String()
	case pendingType:
		return Pending(rv.String()).String()
	}
	if b, ok := bigIntOf(rv); ok {
		return b.String() + "n"
	}
	switch rv.Kind() {
	case reflect.Func:
		return "[Function: " + funcName(rv) + "]"
	case reflect.Chan:
		return t.String() + " {<pending>}"
	case reflect.UnsafePointer:
		return t.String()
	}

	iv, canIface := interfaceOf(rv)
	if canIface {
		switch x := iv.(type) {
		case time.Time:
			return isoTime(x)
		case *time.Time:
			return isoTime(*x)
		case *regexp.Regexp:
			return "/" + x.String() + "/"
		}
		if label, ok := uiNodeLabel(iv); ok {
			return label
		}
	}

	if s.seen.Has(rv) {
		return "[Circular]"
	}
	s.seen.Add(rv)

	if canIface {
		if err, ok := iv.(error); ok {
			return "Error: " + err.Error()
		}
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array && rv.Kind() != reflect.Map {
			if str, ok := stringerText(iv); ok {
				return str
			}
		}
	}

	switch rv.Kind() {
	case reflect.Map, reflect.Struct:
		if depth >= s.maxDepth {
			return "[Object]"
		}
	case reflect.Slice, reflect.Array:
		if depth >= s.maxDepth && t.Elem().Kind() != reflect.Uint8 {
			return "[Array]"
		}
	}

	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	case reflect.Complex64, reflect.Complex128:
		return fmt.Sprint(rv.Complex())
	case reflect.String:
		return rv.String()
	case reflect.Pointer:
		return s.convert(rv.Elem(), depth)
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return fmt.Sprintf("%s(%d)", t.String(), rv.Len())
		}
		n := min(rv.Len(), s.maxProps)
		items := make([]any, 0, n+1)
		for i := 0; i < n; i++ {
			items = append(items, s.convert(rv.Index(i), depth+1))
		}
		if rv.Len() > n {
			items = append(items, moreText)
		}
		return items
	case reflect.Map:
		keys := sortedKeys(rv)
		truncated := len(keys) > s.maxProps
		if truncated {
			keys = keys[:s.maxProps]
		}
		if t.Elem().Kind() == reflect.Struct && t.Elem().Size() == 0 {
			items := make([]any, 0, len(keys)+1)
			for _, k := range keys {
				items = append(items, s.convert(k, depth+1))
			}
			if truncated {
				items = append(items, moreText)
			}
			return items
		}
		obj := newOrderedObject(len(keys) + 1)
		for _, k := range keys {
			obj.set(keyText(k), s.convert(rv.MapIndex(k), depth+1))
		}
		if truncated {
			obj.set("...", moreText)
		}
		return obj
	case reflect.Struct:
		childDepth := depth + 1
		if isShallowType(typeLabel(t), s.hosts) {
			childDepth = s.maxDepth
		}
		obj := newOrderedObject(rv.NumField())
		s.structFields(obj, rv, childDepth)
		return obj
	}
	return t.String()
}

// structFields copies exported fields into obj following encoding/json tag
// rules for names, "-" and omitempty. Untagged embedded structs are inlined.
func (s *serializer) structFields(obj *orderedObject, rv reflect.Value, depth int) {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		name, opts, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if name == "-" && opts == "" {
			continue
		}
		fv := rv.Field(i)
		if sf.Anonymous && name == "" {
			inner := fv
			if inner.Kind() == reflect.Pointer {
				if inner.IsNil() {
					continue
				}
				inner = inner.Elem()
			}
			if inner.Kind() == reflect.Struct {
				s.structFields(obj, inner, depth)
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		if strings.Contains(opts, "omitempty") && fv.IsZero() {
			continue
		}
		obj.set(name, s.convert(fv, depth))
	}
}

func stringerText(iv any) (text string, ok bool) {
	str, isStringer := iv.(fmt.Stringer)
	if !isStringer {
		return "", false
	}
	defer func() {
		if recover() != nil {
			text, ok = "", false
		}
	}()
	text = str.String()
	return text, text != "" && text != "{}"
}
