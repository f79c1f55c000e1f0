package jshost

import (
	"math"
	"reflect"

	"github.com/dop251/goja"
)

func isNullish(v goja.Value) bool {
	return v == nil || goja.IsUndefined(v) || goja.IsNull(v)
}

// typeOf labels a JS value for error messages: the typeof name for
// primitives and functions, the constructor name for other objects.
func typeOf(v goja.Value) string {
	switch {
	case v == nil || goja.IsUndefined(v):
		return "undefined"
	case goja.IsNull(v):
		return "null"
	}
	if _, ok := v.(*goja.Symbol); ok {
		return "symbol"
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		switch primitiveKind(v) {
		case reflect.Bool:
			return "boolean"
		case reflect.String:
			return "string"
		case reflect.Int64, reflect.Float64:
			return "number"
		}
		if t := v.ExportType(); t != nil {
			return t.String()
		}
		return "unknown"
	}
	if _, ok := goja.AssertFunction(obj); ok {
		return "function"
	}
	if c, ok := obj.Get("constructor").(*goja.Object); ok {
		if name := c.Get("name"); !isNullish(name) && name.String() != "" {
			return name.String()
		}
	}
	return obj.ClassName()
}

func primitiveKind(v goja.Value) reflect.Kind {
	if _, ok := v.(*goja.Object); ok {
		return reflect.Invalid
	}
	t := v.ExportType()
	if t == nil {
		return reflect.Invalid
	}
	return t.Kind()
}

func isArray(v goja.Value) bool {
	obj, ok := v.(*goja.Object)
	return ok && obj.ClassName() == "Array"
}

// isRecord reports whether v is an object usable as a map or struct: not a
// function, array or promise.
func isRecord(v goja.Value) bool {
	obj, ok := v.(*goja.Object)
	if !ok {
		return false
	}
	if _, fn := goja.AssertFunction(obj); fn {
		return false
	}
	switch obj.ClassName() {
	case "Array", "Promise", "Map", "Set", "Date", "RegExp":
		return false
	}
	return true
}

// accepts reports whether v has the JS shape that Go type t models.
// struct{} models undefined and null.
func accepts(t reflect.Type, v goja.Value) bool {
	switch t.Kind() {
	case reflect.Interface:
		return true
	case reflect.Pointer:
		return isNullish(v) || accepts(t.Elem(), v)
	case reflect.Struct:
		if t.NumField() == 0 {
			return isNullish(v)
		}
		return isRecord(v)
	}
	if isNullish(v) {
		return false
	}
	switch t.Kind() {
	case reflect.Bool:
		return primitiveKind(v) == reflect.Bool
	case reflect.String:
		return primitiveKind(v) == reflect.String
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		k := primitiveKind(v)
		return (k == reflect.Int64 || k == reflect.Float64) && fitsNumber(t, v.ToFloat())
	case reflect.Slice, reflect.Array:
		return isArray(v)
	case reflect.Map:
		return isRecord(v)
	case reflect.Func:
		_, ok := goja.AssertFunction(v)
		return ok
	}
	return false
}

// fitsNumber reports whether f is representable in numeric type t without
// truncation or wrapping.
func fitsNumber(t reflect.Type, f float64) bool {
	z := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Float32:
		return !z.OverflowFloat(f)
	case reflect.Float64:
		return true
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return false
	}
	switch t.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return f >= 0 && f < math.Exp2(64) && !z.OverflowUint(uint64(f))
	default:
		return f >= -math.Exp2(63) && f < math.Exp2(63) && !z.OverflowInt(int64(f))
	}
}

// convert decodes v into T when v has the shape T models.
func convert[T any](vm *goja.Runtime, v goja.Value) (T, bool) {
	var out T
	if !accepts(reflect.TypeFor[T](), v) {
		return out, false
	}
	if isNullish(v) {
		return out, true
	}
	if err := vm.ExportTo(v, &out); err != nil {
		return out, false
	}
	return out, true
}
