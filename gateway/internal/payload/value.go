package payload

import (
	"encoding/json"
	"math"
)

// Kind is the JSON type held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "null"
	}
}

// Value is a decoded JSON value whose accessors report whether the value has
// the requested type instead of assuming a shape.
type Value struct {
	raw any
}

// NewValue wraps a value produced by encoding/json with UseNumber enabled.
func NewValue(raw any) Value {
	return Value{raw: raw}
}

func (v Value) Kind() Kind {
	switch v.raw.(type) {
	case bool:
		return KindBool
	case json.Number, float64:
		return KindNumber
	case string:
		return KindString
	case []any:
		return KindArray
	case map[string]any:
		return KindObject
	default:
		return KindNull
	}
}

func (v Value) IsObject() bool { return v.Kind() == KindObject }

// Field returns the member name of an object. ok is false when v is not an
// object or has no such member.
func (v Value) Field(name string) (Value, bool) {
	obj, isObj := v.raw.(map[string]any)
	if !isObj {
		return Value{}, false
	}
	member, ok := obj[name]
	if !ok {
		return Value{}, false
	}
	return Value{raw: member}, true
}

// Get is Field without the presence flag; a missing member is null.
func (v Value) Get(name string) Value {
	member, _ := v.Field(name)
	return member
}

func (v Value) AsString() (string, bool) {
	s, ok := v.raw.(string)
	return s, ok
}

func (v Value) AsArray() ([]Value, bool) {
	arr, ok := v.raw.([]any)
	if !ok {
		return nil, false
	}
	out := make([]Value, len(arr))
	for i, item := range arr {
		out[i] = Value{raw: item}
	}
	return out, true
}

// AsInt64 returns a JSON number as an integer, truncating any fraction.
// Numbers outside the int64 range are rejected.
func (v Value) AsInt64() (int64, bool) {
	var f float64
	switch n := v.raw.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}
