package inspect

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrObjectNotFound is returned for ids the registry does not know.
	ErrObjectNotFound = errors.New("object not found")
	// ErrNotFunction is returned when the property is not a callable
	// zero-argument method or func field.
	ErrNotFunction = errors.New("not a zero-argument function")
)

// Invoke calls the zero-argument method or func-valued field prop on the
// live value registered under id and formats its first result. A trailing
// non-nil error result is returned as the error. Panics are recovered.
func (f *Formatter) Invoke(id, prop string) (n Node, err error) {
	live, ok := f.registry.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, id)
	}
	defer func() {
		if r := recover(); r != nil {
			n, err = nil, fmt.Errorf("%s: panic: %v", prop, r)
		}
	}()

	fn, ok := callable(exposed(unwrap(live)), prop)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFunction, prop)
	}
	out := fn.Call(nil)
	if len(out) > 0 {
		last := out[len(out)-1]
		if last.Type() == errorType {
			if !last.IsNil() {
				return nil, fmt.Errorf("%s: %w", prop, last.Interface().(error))
			}
			out = out[:len(out)-1]
		}
	}
	if len(out) == 0 {
		return f.Format(Undefined), nil
	}
	return f.format(addressable(out[0]), NewVisitedSet(), 0), nil
}

// callable resolves prop to a func value that takes no arguments.
func callable(rv reflect.Value, prop string) (reflect.Value, bool) {
	if !rv.IsValid() {
		return reflect.Value{}, false
	}
	var fn reflect.Value
	if rv.Kind() != reflect.Pointer && rv.CanAddr() {
		if m := rv.Addr().MethodByName(prop); m.IsValid() {
			fn = m
		}
	}
	if !fn.IsValid() {
		fn = rv.MethodByName(prop)
	}
	if !fn.IsValid() {
		obj := rv
		if obj.Kind() == reflect.Pointer {
			obj = obj.Elem()
		}
		switch obj.Kind() {
		case reflect.Struct:
			if sf, ok := obj.Type().FieldByName(prop); ok && sf.IsExported() {
				fn = unwrap(obj.FieldByIndex(sf.Index))
			}
		case reflect.Map:
			if obj.Type().Key().Kind() == reflect.String {
				fn = unwrap(obj.MapIndex(reflect.ValueOf(prop).Convert(obj.Type().Key())))
			}
		}
	}
	if !fn.IsValid() || fn.Kind() != reflect.Func || fn.IsNil() || !fn.CanInterface() {
		return reflect.Value{}, false
	}
	t := fn.Type()
	if t.NumIn() != 0 && !(t.IsVariadic() && t.NumIn() == 1) {
		return reflect.Value{}, false
	}
	return fn, true
}
