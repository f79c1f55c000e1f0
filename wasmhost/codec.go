package wasmhost

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/tetratelabs/wazero/api"
)

// signature renders result types the way they appear in error messages,
// e.g. "()" or "(i32,i32)".
func signature(types []api.ValueType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = api.ValueTypeName(t)
	}
	return "(" + strings.Join(names, ",") + ")"
}

func encodeArgs(params []api.ValueType, args []any) ([]uint64, error) {
	if len(args) != len(params) {
		return nil, fmt.Errorf("expected %d arguments, got %d", len(params), len(args))
	}
	out := make([]uint64, len(params))
	for i, p := range params {
		v, err := encodeArg(p, args[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func encodeArg(t api.ValueType, arg any) (uint64, error) {
	switch t {
	case api.ValueTypeI32:
		n, ok := toInt(arg)
		if !ok || n < math.MinInt32 || n > math.MaxUint32 {
			return 0, fmt.Errorf("cannot pass %T as i32", arg)
		}
		if n > math.MaxInt32 {
			return api.EncodeU32(uint32(n)), nil
		}
		return api.EncodeI32(int32(n)), nil
	case api.ValueTypeI64:
		n, ok := toInt(arg)
		if !ok {
			return 0, fmt.Errorf("cannot pass %T as i64", arg)
		}
		return api.EncodeI64(n), nil
	case api.ValueTypeF32:
		f, ok := toFloat(arg)
		if !ok {
			return 0, fmt.Errorf("cannot pass %T as f32", arg)
		}
		return api.EncodeF32(float32(f)), nil
	case api.ValueTypeF64:
		f, ok := toFloat(arg)
		if !ok {
			return 0, fmt.Errorf("cannot pass %T as f64", arg)
		}
		return api.EncodeF64(f), nil
	default:
		return 0, fmt.Errorf("unsupported parameter type %s", api.ValueTypeName(t))
	}
}

func toInt(arg any) (int64, bool) {
	v := reflect.ValueOf(arg)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return int64(v.Uint()), true // large values keep their bit pattern
	case reflect.Bool:
		if v.Bool() {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func toFloat(arg any) (float64, bool) {
	v := reflect.ValueOf(arg)
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	}
	if n, ok := toInt(arg); ok && v.Kind() != reflect.Bool {
		return float64(n), true
	}
	return 0, false
}

// scalar is the natural Go value of one wasm result.
func scalar(t api.ValueType, raw uint64) any {
	switch t {
	case api.ValueTypeI32:
		return api.DecodeI32(raw)
	case api.ValueTypeI64:
		return int64(raw)
	case api.ValueTypeF32:
		return api.DecodeF32(raw)
	case api.ValueTypeF64:
		return api.DecodeF64(raw)
	default:
		return raw
	}
}

func decodeScalar(dst reflect.Value, t api.ValueType, raw uint64) bool {
	switch dst.Kind() {
	case reflect.Interface:
		if dst.NumMethod() != 0 {
			return false
		}
		dst.Set(reflect.ValueOf(scalar(t, raw)))
		return true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var n int64
		switch t {
		case api.ValueTypeI32:
			n = int64(api.DecodeI32(raw))
		case api.ValueTypeI64:
			n = int64(raw)
		default:
			return false
		}
		if dst.OverflowInt(n) {
			return false
		}
		dst.SetInt(n)
		return true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		var n uint64
		switch t {
		case api.ValueTypeI32:
			n = uint64(api.DecodeU32(raw))
		case api.ValueTypeI64:
			n = raw
		default:
			return false
		}
		if dst.OverflowUint(n) {
			return false
		}
		dst.SetUint(n)
		return true
	case reflect.Float32, reflect.Float64:
		switch t {
		case api.ValueTypeF32:
			dst.SetFloat(float64(api.DecodeF32(raw)))
		case api.ValueTypeF64:
			dst.SetFloat(api.DecodeF64(raw))
		default:
			return false
		}
		return true
	case reflect.Bool:
		if t != api.ValueTypeI32 {
			return false
		}
		dst.SetBool(api.DecodeI32(raw) != 0)
		return true
	case reflect.Pointer:
		p := reflect.New(dst.Type().Elem())
		if !decodeScalar(p.Elem(), t, raw) {
			return false
		}
		dst.Set(p)
		return true
	}
	return false
}

// decodeResults decodes a call's results into T. No results model struct{},
// a nil pointer or a nil any; several results model a slice or an array.
func decodeResults[T any](types []api.ValueType, raw []uint64) (T, bool) {
	var out T
	dst := reflect.ValueOf(&out).Elem()

	switch len(types) {
	case 0:
		switch dst.Kind() {
		case reflect.Struct:
			return out, dst.NumField() == 0
		case reflect.Interface:
			return out, dst.NumMethod() == 0
		case reflect.Pointer:
			return out, true
		}
		return out, false
	case 1:
		return out, decodeScalar(dst, types[0], raw[0])
	}

	switch dst.Kind() {
	case reflect.Slice:
		s := reflect.MakeSlice(dst.Type(), len(types), len(types))
		for i, t := range types {
			if !decodeScalar(s.Index(i), t, raw[i]) {
				return out, false
			}
		}
		dst.Set(s)
		return out, true
	case reflect.Array:
		if dst.Len() != len(types) {
			return out, false
		}
		for i, t := range types {
			if !decodeScalar(dst.Index(i), t, raw[i]) {
				return out, false
			}
		}
		return out, true
	case reflect.Interface:
		if dst.NumMethod() != 0 {
			return out, false
		}
		vals := make([]any, len(types))
		for i, t := range types {
			vals[i] = scalar(t, raw[i])
		}
		dst.Set(reflect.ValueOf(vals))
		return out, true
	}
	return out, false
}
