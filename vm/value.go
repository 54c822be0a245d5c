// Package vm implements the VLBC stack interpreter: a context owning an
// operand stack, a globals table, and a native-function registry, executing
// one validated module at a time.
package vm

import (
	"math"
	"strconv"

	"github.com/vela-lang/vela/vlbc"
)

// Kind identifies the runtime type of a Value.
type Kind uint8

const (
	// KindNil is the absent value; the zero Value.
	KindNil Kind = iota
	// KindBool is a boolean.
	KindBool
	// KindInt is a signed 64-bit integer.
	KindInt
	// KindFloat is an IEEE 754 double.
	KindFloat
	// KindStr is a shared reference to an interned string.
	KindStr
	// KindNative is an opaque handle a native function handed out.
	KindNative
)

// String returns a human-readable name for the value kind.
func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindStr:
		return "str"
	case KindNative:
		return "native"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is the tagged scalar the VM operates on. Values copy by value;
// KindStr shares the underlying interned string, which is owned by the
// attached module and outlives any run.
type Value struct {
	kind Kind
	num  uint64 // bool / int64 / float64 bits / native handle
	str  *vlbc.Interned
}

// Nil returns the nil value.
func Nil() Value { return Value{} }

// Bool builds a boolean value.
func Bool(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.num = 1
	}
	return v
}

// Int builds an integer value.
func Int(i int64) Value {
	return Value{kind: KindInt, num: uint64(i)}
}

// Float builds a float value.
func Float(f float64) Value {
	return Value{kind: KindFloat, num: math.Float64bits(f)}
}

// Str builds a string value sharing the given interned entry.
func Str(s *vlbc.Interned) Value {
	return Value{kind: KindStr, str: s}
}

// NativeHandle builds an opaque handle value.
func NativeHandle(h uint32) Value {
	return Value{kind: KindNative, num: uint64(h)}
}

// Kind returns the value's tag.
func (v Value) Kind() Kind { return v.kind }

// IsNil reports whether the value is nil.
func (v Value) IsNil() bool { return v.kind == KindNil }

// AsBool returns the boolean payload. Only meaningful for KindBool.
func (v Value) AsBool() bool { return v.num != 0 }

// AsInt returns the integer payload. Only meaningful for KindInt.
func (v Value) AsInt() int64 { return int64(v.num) }

// AsFloat returns the float payload. Only meaningful for KindFloat.
func (v Value) AsFloat() float64 { return math.Float64frombits(v.num) }

// AsStr returns the shared interned string. Only meaningful for KindStr.
func (v Value) AsStr() *vlbc.Interned { return v.str }

// AsHandle returns the native handle payload. Only meaningful for KindNative.
func (v Value) AsHandle() uint32 { return uint32(v.num) }

// isNumeric reports whether the value participates in arithmetic.
func (v Value) isNumeric() bool {
	return v.kind == KindInt || v.kind == KindFloat
}

// toFloat widens a numeric value to float64.
func (v Value) toFloat() float64 {
	if v.kind == KindInt {
		return float64(v.AsInt())
	}
	return v.AsFloat()
}

// String formats the value the way PRINT renders it.
func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.AsInt(), 10)
	case KindFloat:
		return strconv.FormatFloat(v.AsFloat(), 'g', -1, 64)
	case KindStr:
		if v.str == nil {
			return ""
		}
		return v.str.String()
	case KindNative:
		return "native:" + strconv.FormatUint(v.num, 10)
	default:
		return "<invalid>"
	}
}
