package inspect

import (
	"math/big"
	"reflect"
	"regexp"
	"time"
	"unsafe"
)

// UndefinedType is the type of Undefined.
type UndefinedType struct{}

// Undefined stands for "no value", as opposed to nil.
var Undefined = UndefinedType{}

func (UndefinedType) String() string { return "undefined" }

// Symbol is an identity-like value printed through its description.
type Symbol string

func (s Symbol) String() string { return "Symbol(" + string(s) + ")" }

// Pending stands for an asynchronous result that is not awaited, named by
// its constructor (for example "Promise").
type Pending string

func (p Pending) String() string { return string(p) + " {<pending>}" }

var (
	undefinedType = reflect.TypeOf(Undefined)
	symbolType    = reflect.TypeOf(Symbol(""))
	pendingType   = reflect.TypeOf(Pending(""))
	bigIntType    = reflect.TypeOf(big.Int{})
	durationType  = reflect.TypeOf(time.Duration(0))
	timeType      = reflect.TypeOf(time.Time{})
	regexpType    = reflect.TypeOf(regexp.Regexp{})
	errorType     = reflect.TypeOf((*error)(nil)).Elem()
)

// interfaceOf returns v as an interface value, reaching through unexported
// fields when the value is addressable.
func interfaceOf(v reflect.Value) (any, bool) {
	if !v.IsValid() {
		return nil, false
	}
	if v.CanInterface() {
		return v.Interface(), true
	}
	if v.CanAddr() {
		return reflect.NewAt(v.Type(), unsafe.Pointer(v.UnsafeAddr())).Elem().Interface(), true
	}
	return nil, false
}

// exposed strips the read-only flag that reflect sets on values reached
// through unexported fields, so their methods can be called.
func exposed(v reflect.Value) reflect.Value {
	if !v.IsValid() || v.CanInterface() || !v.CanAddr() {
		return v
	}
	return reflect.NewAt(v.Type(), unsafe.Pointer(v.UnsafeAddr())).Elem()
}

// addressable copies top-level structs and arrays so that their fields can
// be read through interfaceOf and their pointer methods resolved.
func addressable(v reflect.Value) reflect.Value {
	if !v.IsValid() || v.CanAddr() || !v.CanInterface() {
		return v
	}
	if v.Kind() != reflect.Struct && v.Kind() != reflect.Array {
		return v
	}
	cp := reflect.New(v.Type()).Elem()
	cp.Set(v)
	return cp
}

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface, reflect.UnsafePointer:
		return v.IsNil()
	}
	return false
}

func unwrap(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Interface && !v.IsNil() {
		v = v.Elem()
	}
	return v
}

func bigIntOf(v reflect.Value) (*big.Int, bool) {
	switch {
	case v.Kind() == reflect.Pointer && v.Type().Elem() == bigIntType:
		iv, ok := interfaceOf(v)
		if !ok {
			return nil, false
		}
		return iv.(*big.Int), true
	case v.Type() == bigIntType:
		iv, ok := interfaceOf(v)
		if !ok {
			return nil, false
		}
		b := iv.(big.Int)
		return &b, true
	}
	return nil, false
}

// typeLabel is the pointer-free type name, e.g. "http.Client".
func typeLabel(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.String()
}

func isoTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
