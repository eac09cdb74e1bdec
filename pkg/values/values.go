package values

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

type null struct{}

// String renders the marker the way option values print it.
func (null) String() string { return "null" }

// MarshalJSON encodes the marker as JSON null.
func (null) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// MarshalYAML encodes the marker as YAML null.
func (null) MarshalYAML() (any, error) { return nil, nil }

// Null marks an explicitly empty value. It is kept in FormData (unlike nil,
// which means "undefined"), counts as empty, and never equals nil.
var Null = null{}

// IsNull reports whether value is the explicit null marker.
func IsNull(value any) bool {
	_, ok := value.(null)
	return ok
}

// IsUnset reports whether value is undefined (nil), the explicit null marker,
// or a typed nil pointer/map/slice/interface.
func IsUnset(value any) bool {
	if value == nil || IsNull(value) {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// IsEmpty reports whether value is nil, null, an empty string, false, a zero
// number, an empty collection, or a zero struct.
func IsEmpty(value any) bool {
	if IsUnset(value) {
		return true
	}
	switch v := value.(type) {
	case string:
		return v == ""
	case bool:
		return !v
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f == 0 || math.IsNaN(f)
	case reflect.String:
		return rv.Len() == 0
	case reflect.Bool:
		return !rv.Bool()
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	case reflect.Struct:
		return rv.IsZero()
	case reflect.Pointer:
		return IsEmpty(rv.Elem().Interface())
	}
	return false
}

// DeepEqual compares two values structurally. Identical primitives short
// circuit, nil and Null only equal themselves, sequences compare element-wise
// in order, maps compare key sets and recurse per key, and numbers compare by
// value regardless of their Go numeric type.
func DeepEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if IsNull(a) || IsNull(b) {
		return IsNull(a) && IsNull(b)
	}
	return equalValue(reflect.ValueOf(a), reflect.ValueOf(b))
}

func equalValue(a, b reflect.Value) bool {
	a, b = unwrap(a), unwrap(b)
	if !a.IsValid() || !b.IsValid() {
		return a.IsValid() == b.IsValid()
	}

	if equal, ok := equalIntegers(a, b); ok {
		return equal
	}
	if fa, ok := number(a); ok {
		fb, ok := number(b)
		return ok && fa == fb
	}

	if a.Type() != b.Type() {
		return false
	}

	switch a.Kind() {
	case reflect.Bool:
		return a.Bool() == b.Bool()
	case reflect.String:
		return a.String() == b.String()
	case reflect.Slice:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() == b.IsNil()
		}
		if a.Pointer() == b.Pointer() && a.Len() == b.Len() {
			return true
		}
		fallthrough
	case reflect.Array:
		if a.Len() != b.Len() {
			return false
		}
		for i := 0; i < a.Len(); i++ {
			if !equalValue(a.Index(i), b.Index(i)) {
				return false
			}
		}
		return true
	case reflect.Map:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() == b.IsNil()
		}
		if a.Len() != b.Len() {
			return false
		}
		if a.Pointer() == b.Pointer() {
			return true
		}
		iter := a.MapRange()
		for iter.Next() {
			other := b.MapIndex(iter.Key())
			if !other.IsValid() {
				return false
			}
			if !equalValue(iter.Value(), other) {
				return false
			}
		}
		return true
	case reflect.Struct:
		for i := 0; i < a.NumField(); i++ {
			if !equalValue(a.Field(i), b.Field(i)) {
				return false
			}
		}
		return true
	case reflect.Pointer:
		if a.Pointer() == b.Pointer() {
			return true
		}
		if a.IsNil() || b.IsNil() {
			return false
		}
		return equalValue(a.Elem(), b.Elem())
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return a.Pointer() == b.Pointer()
	case reflect.Complex64, reflect.Complex128:
		return a.Complex() == b.Complex()
	}
	return false
}

func unwrap(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

// equalIntegers compares two integer values exactly, across signedness.
func equalIntegers(a, b reflect.Value) (bool, bool) {
	ai, aSigned, aok := integer(a)
	bi, bSigned, bok := integer(b)
	if !aok || !bok {
		return false, false
	}
	switch {
	case aSigned && bSigned:
		return a.Int() == b.Int(), true
	case !aSigned && !bSigned:
		return ai == bi, true
	case aSigned:
		return a.Int() >= 0 && ai == bi, true
	default:
		return b.Int() >= 0 && ai == bi, true
	}
}

func integer(v reflect.Value) (uint64, bool, bool) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return uint64(v.Int()), true, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint(), false, true
	}
	return 0, false, false
}

func number(v reflect.Value) (float64, bool) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	}
	return 0, false
}

// Clone returns a deep copy of maps, slices, pointers and structs reachable
// from value. Functions and channels are shared.
func Clone(value any) any {
	if value == nil {
		return nil
	}
	out := cloneValue(reflect.ValueOf(value))
	if !out.IsValid() {
		return nil
	}
	return out.Interface()
}

func cloneValue(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		inner := cloneValue(v.Elem())
		out := reflect.New(v.Type()).Elem()
		out.Set(inner)
		return out
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(cloneValue(v.Index(i)))
		}
		return out
	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(cloneValue(v.Index(i)))
		}
		return out
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(cloneValue(v.Elem()))
		return out
	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		for i := 0; i < v.NumField(); i++ {
			if field := out.Field(i); field.CanSet() {
				field.Set(cloneValue(v.Field(i)))
			}
		}
		return out
	default:
		return v
	}
}

// String coerces value into its string form for loose comparisons between
// option values coming from different sources (YAML ints, JSON floats,
// strings typed by users).
func String(value any) string {
	if value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(value)
	}
}

// Truthy reports the inverse of IsEmpty, treating whitespace-only strings as
// empty. Conditions use it for bare identifier checks.
func Truthy(value any) bool {
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return !IsEmpty(value)
}
