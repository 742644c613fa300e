// Package inspect turns arbitrary runtime values into display trees.
//
// Formatting is cycle-safe: every top-level call owns a VisitedSet, and any
// pointer, map, slice or channel seen twice during one pass is rendered as
// a Circular node. Containers are registered in a Registry so that their
// methods can be invoked later from the rendered tree.
package inspect

import (
	"fmt"
	"strings"
)

// Node is a display tree node. The concrete types are *Primitive,
// *Function, *Circular, *Container and *Opaque.
type Node interface {
	// Text is the plain-text rendering used for search and line output.
	Text() string
	isNode()
}

// PrimitiveKind classifies a Primitive.
type PrimitiveKind int

const (
	KindString PrimitiveKind = iota
	KindNumber
	KindBoolean
	KindNull
	KindUndefined
	KindSymbol
	KindBigInt
)

var primitiveKindNames = [...]string{"string", "number", "boolean", "null", "undefined", "symbol", "bigint"}

func (k PrimitiveKind) String() string {
	if int(k) < len(primitiveKindNames) {
		return primitiveKindNames[k]
	}
	return fmt.Sprintf("PrimitiveKind(%d)", int(k))
}

// Primitive is a scalar rendered to its literal form.
type Primitive struct {
	Kind    PrimitiveKind
	Literal string
}

// Function is a func value, or a method discovered on a container when
// Method is set.
type Function struct {
	Name    string
	Preview string
	Method  bool
}

// Circular marks an edge back to a value already on the current pass.
type Circular struct{}

// Opaque is rendered as a single label and is never expanded.
type Opaque struct {
	Label string
}

// Child is one keyed entry of a Container.
type Child struct {
	Key  string
	Node Node
}

// Container is an expandable value. ID resolves to the live value through
// the Registry. Children is nil until the container is expanded.
type Container struct {
	ID         string
	Label      string
	Count      int
	Children   []Child
	Expanded   bool
	Serialized string
}

func (*Primitive) isNode() {}
func (*Function) isNode()  {}
func (*Circular) isNode()  {}
func (*Opaque) isNode()    {}
func (*Container) isNode() {}

func (p *Primitive) Text() string { return p.Literal }

func (f *Function) Text() string {
	if f.Method {
		return "[Function: " + f.Name + "]"
	}
	return "ƒ " + f.Name + "() { " + f.Preview + " }"
}

func (*Circular) Text() string { return "[Circular Reference]" }

func (o *Opaque) Text() string { return o.Label }

// Header is the collapsed form, e.g. "Array(3)".
func (c *Container) Header() string {
	return fmt.Sprintf("%s(%d)", c.Label, c.Count)
}

// Child returns the node stored under key.
func (c *Container) Child(key string) (Node, bool) {
	for _, ch := range c.Children {
		if ch.Key == key {
			return ch.Node, true
		}
	}
	return nil, false
}

// Indexed reports whether the children are positional (arrays and sets).
func (c *Container) Indexed() bool {
	return c.Label == labelArray || c.Label == labelSet
}

func (c *Container) Text() string {
	if !c.Expanded {
		return c.Header() + " {…}"
	}
	parts := make([]string, len(c.Children))
	for i, ch := range c.Children {
		if c.Indexed() {
			parts[i] = ch.Node.Text()
			continue
		}
		if strings.HasSuffix(ch.Key, " =>") {
			parts[i] = ch.Key + " " + ch.Node.Text()
			continue
		}
		parts[i] = ch.Key + ": " + ch.Node.Text()
	}
	if c.Indexed() {
		return c.Header() + " [" + strings.Join(parts, ", ") + "]"
	}
	return c.Header() + " {" + strings.Join(parts, ", ") + "}"
}
