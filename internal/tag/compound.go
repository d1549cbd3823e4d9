// Package tag implements the persistent key/value container scale states are
// saved into.
//
// A Compound is a plain map so it marshals directly to JSON (database) and
// YAML (save files). Getters are type-tolerant across numeric kinds, since
// both decoders widen numbers, and report absence for missing keys and for
// values of an incompatible type.
package tag

import (
	"encoding/json"
	"math"
)

// Compound is a string-keyed record.
type Compound map[string]any

// List is an ordered sequence of values (strings or compounds).
type List []any

// NewCompound returns an empty compound.
func NewCompound() Compound {
	return Compound{}
}

// Contains reports whether key is present, regardless of its type.
func (c Compound) Contains(key string) bool {
	_, ok := c[key]
	return ok
}

// Len returns the number of keys.
func (c Compound) Len() int {
	return len(c)
}

// PutFloat stores a float32.
func (c Compound) PutFloat(key string, v float32) {
	c[key] = v
}

// PutInt stores an int32.
func (c Compound) PutInt(key string, v int32) {
	c[key] = v
}

// PutBool stores a bool.
func (c Compound) PutBool(key string, v bool) {
	c[key] = v
}

// PutString stores a string.
func (c Compound) PutString(key string, v string) {
	c[key] = v
}

// PutList stores a list.
func (c Compound) PutList(key string, v List) {
	c[key] = v
}

// Float returns the value under key as float32.
func (c Compound) Float(key string) (float32, bool) {
	f, ok := number(c[key])
	if !ok {
		return 0, false
	}
	return float32(f), true
}

// Int returns the value under key as int32. Fractions are truncated.
func (c Compound) Int(key string) (int32, bool) {
	f, ok := number(c[key])
	if !ok || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int32(f), true
}

// Bool returns the value under key as bool. Numbers read as non-zero.
func (c Compound) Bool(key string) (bool, bool) {
	switch v := c[key].(type) {
	case bool:
		return v, true
	default:
		f, ok := number(v)
		if !ok {
			return false, false
		}
		return f != 0, true
	}
}

// String returns the value under key if it is a string.
func (c Compound) String(key string) (string, bool) {
	s, ok := c[key].(string)
	return s, ok
}

// List returns the value under key if it is a list.
func (c Compound) List(key string) (List, bool) {
	return AsList(c[key])
}

// Clone returns a shallow copy; lists are copied one level deep.
func (c Compound) Clone() Compound {
	out := make(Compound, len(c))
	for k, v := range c {
		if l, ok := AsList(v); ok {
			v = append(List(nil), l...)
		}
		out[k] = v
	}
	return out
}

// AsCompound converts decoded values (Compound or map[string]any) into a Compound.
func AsCompound(v any) (Compound, bool) {
	switch m := v.(type) {
	case Compound:
		return m, true
	case map[string]any:
		return Compound(m), true
	default:
		return nil, false
	}
}

// AsList converts decoded values (List or []any) into a List.
func AsList(v any) (List, bool) {
	switch l := v.(type) {
	case List:
		return l, true
	case []any:
		return List(l), true
	case []string:
		out := make(List, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
