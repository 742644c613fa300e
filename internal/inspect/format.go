package inspect

import (
	"bytes"
	"fmt"
	"reflect"
	"regexp"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"golang.org/x/net/html"
)

const (
	labelArray  = "Array"
	labelMap    = "Map"
	labelSet    = "Set"
	labelObject = "Object"
)

// Options tunes the formatter. Zero fields fall back to DefaultOptions.
type Options struct {
	// MaxProperties caps the entries of one container.
	MaxProperties int `yaml:"max_properties"`
	// PreviewLength caps function previews, in runes.
	PreviewLength int `yaml:"preview_length"`
	// MaxDepth is the nesting level past which containers are left collapsed.
	MaxDepth int `yaml:"max_depth"`
	// HostTypes are type names (as printed by reflect, without the pointer)
	// that only get a shallow snapshot.
	HostTypes []string `yaml:"host_types"`
}

// DefaultHostTypes are process-level singletons worth a shallow look only.
var DefaultHostTypes = []string{
	"os.File", "os.Process", "exec.Cmd",
	"http.Client", "http.Server", "http.Request", "http.Response",
	"sql.DB", "sql.Tx", "net.TCPConn", "net.UDPConn",
	"zap.Logger", "zap.SugaredLogger",
	"rod.Browser", "rod.Page", "interp.Interpreter", "tea.Program",
}

// DefaultOptions returns the stock limits.
func DefaultOptions() Options {
	return Options{
		MaxProperties: 100,
		PreviewLength: 50,
		MaxDepth:      10,
		HostTypes:     DefaultHostTypes,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxProperties <= 0 {
		o.MaxProperties = d.MaxProperties
	}
	if o.PreviewLength <= 0 {
		o.PreviewLength = d.PreviewLength
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = d.MaxDepth
	}
	if o.HostTypes == nil {
		o.HostTypes = d.HostTypes
	}
	return o
}

// Formatter builds display trees and registers their containers.
type Formatter struct {
	opts      Options
	registry  *Registry
	hostTypes map[string]bool
}

// NewFormatter creates a formatter backed by reg (a new one when nil).
func NewFormatter(reg *Registry, opts Options) *Formatter {
	if reg == nil {
		reg = NewRegistry()
	}
	opts = opts.withDefaults()
	return &Formatter{opts: opts, registry: reg, hostTypes: hostTypeSet(opts.HostTypes)}
}

func hostTypeSet(names []string) map[string]bool {
	hosts := make(map[string]bool, len(names))
	for _, name := range names {
		hosts[name] = true
	}
	return hosts
}

// isShallowType reports whether values of the named type get a one-level
// snapshot only.
func isShallowType(name string, hosts map[string]bool) bool {
	return hosts[name] || strings.Contains(name, "Element") || strings.Contains(name, "HTML") || strings.Contains(name, "SVG")
}

// Registry returns the registry containers are stored in.
func (f *Formatter) Registry() *Registry { return f.registry }

// Options returns the effective options.
func (f *Formatter) Options() Options { return f.opts }

// Format renders v with a fresh VisitedSet.
func (f *Formatter) Format(v any) Node {
	return f.FormatWith(v, NewVisitedSet())
}

// FormatWith renders v, sharing visited with the caller.
func (f *Formatter) FormatWith(v any, visited *VisitedSet) Node {
	if visited == nil {
		visited = NewVisitedSet()
	}
	return f.format(addressable(reflect.ValueOf(v)), visited, 0)
}

// FormatArg renders a log argument: top-level strings stay unquoted,
// everything else goes through Format.
func (f *Formatter) FormatArg(v any) Node {
	rv := reflect.ValueOf(v)
	if rv.IsValid() && rv.Kind() == reflect.String && rv.Type() != symbolType && rv.Type() != pendingType {
		return &Primitive{Kind: KindString, Literal: rv.String()}
	}
	return f.Format(v)
}

func (f *Formatter) format(rv reflect.Value, visited *VisitedSet, depth int) (n Node) {
	defer func() {
		if r := recover(); r != nil {
			n = fallback(rv)
		}
	}()

	if !rv.IsValid() {
		return &Primitive{Kind: KindNull, Literal: "null"}
	}
	if rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return &Primitive{Kind: KindNull, Literal: "null"}
		}
		return f.format(rv.Elem(), visited, depth)
	}
	switch rv.Type() {
	case undefinedType:
		return &Primitive{Kind: KindUndefined, Literal: "undefined"}
	case pendingType:
		return &Opaque{Label: Pending(rv.String()).String()}
	}
	if isNil(rv) {
		return &Primitive{Kind: KindNull, Literal: "null"}
	}
	if p, ok := scalar(rv); ok {
		return p
	}
	if rv.Kind() == reflect.Func {
		return &Function{Name: funcName(rv), Preview: f.preview(rv.Type().String())}
	}
	if visited.Has(rv) {
		return &Circular{}
	}
	visited.Add(rv)
	return f.classify(rv, visited, depth)
}

func scalar(rv reflect.Value) (*Primitive, bool) {
	t := rv.Type()
	switch {
	case t == symbolType:
		return &Primitive{Kind: KindSymbol, Literal: Symbol(rv.String()).String()}, true
	case t == durationType:
		return &Primitive{Kind: KindNumber, Literal: time.Duration(rv.Int()).String()}, true
	}
	if b, ok := bigIntOf(rv); ok {
		return &Primitive{Kind: KindBigInt, Literal: b.String() + "n"}, true
	}
	switch rv.Kind() {
	case reflect.String:
		return &Primitive{Kind: KindString, Literal: `"` + html.EscapeString(rv.String()) + `"`}, true
	case reflect.Bool:
		return &Primitive{Kind: KindBoolean, Literal: strconv.FormatBool(rv.Bool())}, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return &Primitive{Kind: KindNumber, Literal: strconv.FormatInt(rv.Int(), 10)}, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Primitive{Kind: KindNumber, Literal: strconv.FormatUint(rv.Uint(), 10)}, true
	case reflect.Uintptr:
		return &Primitive{Kind: KindNumber, Literal: fmt.Sprintf("0x%x", rv.Uint())}, true
	case reflect.Float32:
		return &Primitive{Kind: KindNumber, Literal: strconv.FormatFloat(rv.Float(), 'g', -1, 32)}, true
	case reflect.Float64:
		return &Primitive{Kind: KindNumber, Literal: strconv.FormatFloat(rv.Float(), 'g', -1, 64)}, true
	case reflect.Complex64, reflect.Complex128:
		return &Primitive{Kind: KindNumber, Literal: strconv.FormatComplex(rv.Complex(), 'g', -1, 128)}, true
	}
	return nil, false
}

var closureName = regexp.MustCompile(`\.func\d+(\.\d+)*$`)

func funcName(rv reflect.Value) string {
	fn := runtime.FuncForPC(rv.Pointer())
	if fn == nil {
		return "anonymous"
	}
	name := fn.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, "-fm")
	if name == "" || closureName.MatchString(name) {
		return "anonymous"
	}
	if i := strings.Index(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func (f *Formatter) preview(src string) string {
	r := []rune(src)
	if len(r) <= f.opts.PreviewLength {
		return src
	}
	return string(r[:f.opts.PreviewLength]) + "..."
}

func fallback(rv reflect.Value) (n Node) {
	defer func() {
		if recover() != nil {
			n = &Opaque{Label: "[Object]"}
		}
	}()
	if !rv.IsValid() {
		return &Opaque{Label: "[invalid]"}
	}
	return &Opaque{Label: "[" + typeLabel(rv.Type()) + "]"}
}

func (f *Formatter) classify(rv reflect.Value, visited *VisitedSet, depth int) Node {
	t := rv.Type()
	iv, canIface := interfaceOf(rv)

	if canIface {
		switch x := iv.(type) {
		case time.Time:
			return &Opaque{Label: isoTime(x)}
		case *time.Time:
			return &Opaque{Label: isoTime(*x)}
		case *regexp.Regexp:
			return &Opaque{Label: "/" + x.String() + "/"}
		case error:
			return f.errorContainer(rv, x, depth)
		}
	} else if t == timeType || t == regexpType {
		return &Opaque{Label: t.String()}
	}

	// Pointers to anything but structs render as their pointee.
	if rv.Kind() == reflect.Pointer && rv.Elem().Kind() != reflect.Struct {
		return f.format(rv.Elem(), visited, depth)
	}

	switch rv.Kind() {
	case reflect.Map:
		switch {
		case t.Elem().Kind() == reflect.Struct && t.Elem().Size() == 0:
			return f.setContainer(rv, visited, depth)
		case t.Key().Kind() != reflect.String:
			return f.mapContainer(rv, visited, depth)
		}
		return f.objectContainer(rv, visited, depth, false)
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return &Opaque{Label: fmt.Sprintf("%s(%d)", t.String(), rv.Len())}
		}
		return f.arrayContainer(rv, visited, depth)
	case reflect.Chan:
		return &Opaque{Label: t.String() + " {<pending>}"}
	case reflect.UnsafePointer:
		return &Opaque{Label: fmt.Sprintf("unsafe.Pointer(0x%x)", rv.Pointer())}
	}

	if canIface {
		if label, ok := uiNodeLabel(iv); ok {
			return &Opaque{Label: label}
		}
		switch x := iv.(type) {
		case *bytes.Buffer:
			return &Opaque{Label: fmt.Sprintf("bytes.Buffer(%d)", x.Len())}
		case bytes.Buffer:
			return &Opaque{Label: fmt.Sprintf("bytes.Buffer(%d)", x.Len())}
		}
	}

	name := typeLabel(t)
	if isShallowType(name, f.hostTypes) {
		return f.objectContainer(rv, visited, depth, true)
	}

	if rv.Kind() == reflect.Struct || (rv.Kind() == reflect.Pointer && rv.Elem().Kind() == reflect.Struct) {
		return f.objectContainer(rv, visited, depth, false)
	}
	return &Opaque{Label: "[" + name + "]"}
}

func uiNodeLabel(iv any) (string, bool) {
	switch x := iv.(type) {
	case *html.Node:
		return htmlNodeLabel(x), true
	case html.Node:
		return htmlNodeLabel(&x), true
	case *proto.DOMNode:
		return domNodeLabel(x), true
	case proto.DOMNode:
		return domNodeLabel(&x), true
	case *rod.Element:
		if x.Object != nil && x.Object.Description != "" {
			return "<" + x.Object.Description + ">", true
		}
		return "<element>", true
	}
	return "", false
}

func elementLabel(tag, id, class string) string {
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(strings.ToLower(tag))
	if id != "" {
		b.WriteString("#" + id)
	}
	if fields := strings.Fields(class); len(fields) > 0 {
		b.WriteString("." + strings.Join(fields, "."))
	}
	b.WriteString(">")
	return b.String()
}

func htmlNodeLabel(n *html.Node) string {
	switch n.Type {
	case html.ElementNode:
		var id, class string
		for _, a := range n.Attr {
			switch a.Key {
			case "id":
				id = a.Val
			case "class":
				class = a.Val
			}
		}
		return elementLabel(n.Data, id, class)
	case html.TextNode:
		return "[Text]"
	case html.DocumentNode:
		return "[Document]"
	case html.CommentNode:
		return "[Comment]"
	case html.DoctypeNode:
		return "[DocumentType]"
	}
	return "[Node]"
}

func domNodeLabel(n *proto.DOMNode) string {
	if n.NodeType != 1 {
		return "[" + n.NodeName + "]"
	}
	var id, class string
	for i := 0; i+1 < len(n.Attributes); i += 2 {
		switch n.Attributes[i] {
		case "id":
			id = n.Attributes[i+1]
		case "class":
			class = n.Attributes[i+1]
		}
	}
	tag := n.LocalName
	if tag == "" {
		tag = n.NodeName
	}
	return elementLabel(tag, id, class)
}

// container registers live and fills its children unless depth is exhausted.
func (f *Formatter) container(live reflect.Value, label string, count int, props []property, indexed bool, visited *VisitedSet, depth int, shallow bool) *Container {
	c := &Container{ID: f.registry.Register(live), Label: label, Count: count}
	if depth >= f.opts.MaxDepth {
		return c
	}
	c.Expanded = true
	c.Serialized = f.serializeProperties(props, indexed)
	c.Children = make([]Child, 0, len(props))
	childDepth := depth + 1
	if shallow {
		childDepth = f.opts.MaxDepth
	}
	for _, p := range props {
		c.Children = append(c.Children, Child{Key: p.key, Node: f.propertyNode(p, visited, childDepth)})
	}
	return c
}

func (f *Formatter) propertyNode(p property, visited *VisitedSet, depth int) Node {
	switch p.mark {
	case markFunction:
		return &Function{Name: p.key, Preview: p.signature, Method: true}
	case markCircular:
		return &Circular{}
	case markAccessor, markError, markMore:
		return &Opaque{Label: p.text}
	}
	return f.format(p.value, visited, depth)
}

func (f *Formatter) errorContainer(rv reflect.Value, err error, depth int) *Container {
	name := typeLabel(rv.Type())
	msg := err.Error()
	stack := fmt.Sprintf("%+v", err)
	if stack == msg {
		stack = ""
	}
	props := []property{
		{key: "name", value: reflect.ValueOf(name)},
		{key: "message", value: reflect.ValueOf(msg)},
		{key: "stack", value: reflect.ValueOf(stack)},
	}
	return f.container(rv, name, len(props), props, false, NewVisitedSet(), depth, false)
}

func (f *Formatter) mapContainer(rv reflect.Value, visited *VisitedSet, depth int) *Container {
	keys := sortedKeys(rv)
	props := make([]property, 0, len(keys))
	for _, k := range keys {
		if len(props) >= f.opts.MaxProperties {
			props = append(props, moreProperty())
			break
		}
		props = append(props, property{key: keyText(k) + " =>", value: rv.MapIndex(k)})
	}
	return f.container(rv, labelMap, rv.Len(), props, false, visited, depth, false)
}

func (f *Formatter) setContainer(rv reflect.Value, visited *VisitedSet, depth int) *Container {
	keys := sortedKeys(rv)
	props := make([]property, 0, len(keys))
	for i, k := range keys {
		if len(props) >= f.opts.MaxProperties {
			props = append(props, moreProperty())
			break
		}
		props = append(props, property{key: strconv.Itoa(i), value: k})
	}
	return f.container(rv, labelSet, rv.Len(), props, true, visited, depth, false)
}

func (f *Formatter) arrayContainer(rv reflect.Value, visited *VisitedSet, depth int) *Container {
	n := rv.Len()
	props := make([]property, 0, min(n, f.opts.MaxProperties+1))
	for i := 0; i < n; i++ {
		if len(props) >= f.opts.MaxProperties {
			props = append(props, moreProperty())
			break
		}
		props = append(props, property{key: strconv.Itoa(i), value: rv.Index(i)})
	}
	return f.container(rv, labelArray, n, props, true, visited, depth, false)
}

func (f *Formatter) objectContainer(rv reflect.Value, visited *VisitedSet, depth int, shallow bool) *Container {
	props := f.extractSafeProperties(rv, visited)
	count := len(props)
	if count > 0 && props[count-1].mark == markMore {
		count--
	}
	return f.container(rv, objectLabel(rv.Type()), count, props, false, visited, depth, shallow)
}

func objectLabel(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return labelObject
	}
	return t.String()
}

func sortedKeys(rv reflect.Value) []reflect.Value {
	keys := rv.MapKeys()
	texts := make([]string, len(keys))
	for i, k := range keys {
		texts[i] = keyText(k)
	}
	idx := make([]int, len(keys))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return texts[idx[a]] < texts[idx[b]] })
	out := make([]reflect.Value, len(keys))
	for i, j := range idx {
		out[i] = keys[j]
	}
	return out
}

func keyText(k reflect.Value) string {
	k = unwrap(k)
	if p, ok := scalar(k); ok {
		if p.Kind == KindString {
			return k.String()
		}
		return p.Literal
	}
	if iv, ok := interfaceOf(k); ok {
		return fmt.Sprint(iv)
	}
	return k.Type().String()
}

// Expand re-formats the live value behind id with a fresh VisitedSet. The
// returned container keeps id.
func (f *Formatter) Expand(id string) (Node, error) {
	rv, ok := f.registry.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, id)
	}
	n := f.format(rv, NewVisitedSet(), 0)
	if c, ok := n.(*Container); ok && c.ID != id {
		f.registry.forget(c.ID)
		c.ID = id
	}
	return n, nil
}
