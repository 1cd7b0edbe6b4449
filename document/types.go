package document

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the concrete type stored in a Value.
type Kind uint8

const (
	// KindInvalid represents an invalid kind.
	KindInvalid Kind = iota
	// KindNull represents a null value.
	KindNull
	// KindInt represents an integer value.
	KindInt
	// KindFloat represents a float value.
	KindFloat
	// KindString represents a string value.
	KindString
	// KindBool represents a boolean value.
	KindBool
	// KindArray represents an array value.
	KindArray
	// KindObject represents a nested object value.
	KindObject
)

// Value is a small typed value used for documents and filter operands.
//
// The representation is designed to make matching fast and predictable:
// no reflection and no fmt-based stringification on the hot path.
type Value struct {
	Kind Kind
	I64  int64
	F64  float64
	S    string
	B    bool
	A    []Value
	O    map[string]Value
}

// Null returns a null Value.
func Null() Value { return Value{Kind: KindNull} }

// Int returns an integer Value.
func Int(i int64) Value { return Value{Kind: KindInt, I64: i} }

// Float returns a float Value.
func Float(f float64) Value { return Value{Kind: KindFloat, F64: f} }

// String returns a string Value.
func String(s string) Value { return Value{Kind: KindString, S: s} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{Kind: KindBool, B: b} }

// Array returns an array Value.
func Array(a []Value) Value { return Value{Kind: KindArray, A: a} }

// Object returns an object Value.
func Object(o map[string]Value) Value { return Value{Kind: KindObject, O: o} }

// IsNumber reports whether the value is an int or a float.
func (v Value) IsNumber() bool {
	return v.Kind == KindInt || v.Kind == KindFloat
}

// AsFloat64 returns the numeric value widened to float64.
// The second return is false for non-numeric kinds.
func (v Value) AsFloat64() (float64, bool) {
	switch v.Kind {
	case KindInt:
		return float64(v.I64), true
	case KindFloat:
		return v.F64, true
	default:
		return 0, false
	}
}

// AsString returns the string value if Kind is KindString.
func (v Value) AsString() (string, bool) {
	if v.Kind != KindString {
		return "", false
	}
	return v.S, true
}

// AsBool returns the boolean value if Kind is KindBool.
func (v Value) AsBool() (bool, bool) {
	if v.Kind != KindBool {
		return false, false
	}
	return v.B, true
}

// AsArray returns the array value if Kind is KindArray.
func (v Value) AsArray() ([]Value, bool) {
	if v.Kind != KindArray {
		return nil, false
	}
	return v.A, true
}

// AsObject returns the object value if Kind is KindObject.
func (v Value) AsObject() (map[string]Value, bool) {
	if v.Kind != KindObject {
		return nil, false
	}
	return v.O, true
}

// Equal compares two values for semantic equality. Ints and floats compare
// numerically, so Int(3) equals Float(3.0).
func (v Value) Equal(other Value) bool {
	if v.Kind == KindNull && other.Kind == KindNull {
		return true
	}
	if v.Kind == KindNull || other.Kind == KindNull {
		return false
	}

	if v.IsNumber() && other.IsNumber() {
		if v.Kind == KindInt && other.Kind == KindInt {
			return v.I64 == other.I64
		}
		a, _ := v.AsFloat64()
		b, _ := other.AsFloat64()
		return a == b
	}

	if v.Kind != other.Kind {
		return false
	}

	switch v.Kind {
	case KindString:
		return v.S == other.S
	case KindBool:
		return v.B == other.B
	case KindArray:
		if len(v.A) != len(other.A) {
			return false
		}
		for i := range v.A {
			if !v.A[i].Equal(other.A[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.O) != len(other.O) {
			return false
		}
		for k, a := range v.O {
			b, ok := other.O[k]
			if !ok || !a.Equal(b) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Key returns a stable string representation for use in maps and canonical
// encodings. Numeric values are keyed by their float64 bit pattern so that
// Int(3) and Float(3.0) collapse onto the same key, matching Equal. Integers
// outside the float64-exact range are keyed by their decimal form instead,
// since the bit pattern would conflate values that Equal distinguishes.
func (v Value) Key() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindInt:
		if v.I64 < -(1<<53) || v.I64 > 1<<53 {
			return "i:" + strconv.FormatInt(v.I64, 10)
		}
		return "n:" + strconv.FormatUint(math.Float64bits(float64(v.I64)), 16)
	case KindFloat:
		return "n:" + strconv.FormatUint(math.Float64bits(v.F64), 16)
	case KindString:
		return "s:" + v.S
	case KindBool:
		if v.B {
			return "b:1"
		}
		return "b:0"
	case KindArray:
		parts := make([]string, len(v.A))
		for i := range v.A {
			parts[i] = v.A[i].Key()
		}
		return "a:" + strings.Join(parts, "\x1f")
	case KindObject:
		keys := make([]string, 0, len(v.O))
		for k := range v.O {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + "=" + v.O[k].Key()
		}
		return "o:" + strings.Join(parts, "\x1f")
	default:
		return "invalid"
	}
}

// Document is a typed document body keyed by field name.
type Document map[string]Value

// Lookup resolves a possibly dotted field path ("address.city") against the
// document, descending through nested objects. The second return is false if
// any path segment is absent or a non-object is traversed.
func (d Document) Lookup(path string) (Value, bool) {
	if d == nil {
		return Value{}, false
	}
	if v, ok := d[path]; ok {
		return v, true
	}
	rest := path
	var cur map[string]Value = d
	for {
		i := strings.IndexByte(rest, '.')
		if i < 0 {
			v, ok := cur[rest]
			return v, ok
		}
		v, ok := cur[rest[:i]]
		if !ok || v.Kind != KindObject {
			return Value{}, false
		}
		cur = v.O
		rest = rest[i+1:]
	}
}
