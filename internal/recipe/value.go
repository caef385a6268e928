// Package recipe holds the data types shared across the engine: the
// tagged Value variant used for link output data, the Recipe/Link
// declaration types parsed from YAML, and the execution Output pair.
package recipe

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Value is the tagged variant described in spec.md §9: the dynamic shape
// of a link's `data` payload and of anything reachable by template
// placeholder resolution. The underlying Go type is always one of:
// nil, bool, int64, float64, string, []Value, map[string]Value.
type Value struct {
	v any
}

// NewValue wraps a Go value (typically the result of a YAML/JSON decode,
// i.e. map[string]interface{}, []interface{}, string, float64/int, bool,
// or nil) into the canonical Value shape.
func NewValue(v any) Value {
	return Value{v: normalize(v)}
}

func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, val := range t {
			m[k] = NewValue(val)
		}
		return m
	case map[any]any: // yaml.v2-style maps, kept for defensiveness
		m := make(map[string]Value, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = NewValue(val)
		}
		return m
	case []any:
		s := make([]Value, len(t))
		for i, val := range t {
			s[i] = NewValue(val)
		}
		return s
	case int:
		return int64(t)
	case int32:
		return int64(t)
	default:
		return v
	}
}

// Null reports whether the value is nil/absent.
func (v Value) Null() bool { return v.v == nil }

// Raw returns the underlying Go value for JSON (re-)marshaling.
func (v Value) Raw() any {
	switch t := v.v.(type) {
	case map[string]Value:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = val.Raw()
		}
		return m
	case []Value:
		s := make([]any, len(t))
		for i, val := range t {
			s[i] = val.Raw()
		}
		return s
	default:
		return t
	}
}

// Map returns the value as a map, or (nil, false) if it is not one.
func (v Value) Map() (map[string]Value, bool) {
	m, ok := v.v.(map[string]Value)
	return m, ok
}

// List returns the value as a slice, or (nil, false) if it is not one.
func (v Value) List() ([]Value, bool) {
	s, ok := v.v.([]Value)
	return s, ok
}

// String returns the canonical textual form of the value (spec §4.3).
func (v Value) String() string {
	switch t := v.v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case map[string]Value:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s:%s", k, t[k].String()))
		}
		return "{" + strings.Join(parts, " ") + "}"
	case []Value:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, " ") + "]"
	default:
		return fmt.Sprint(t)
	}
}

// Get walks a dotted path ("a.b.c") through nested maps, returning the
// resolved Value and whether the full path was found.
func (v Value) Get(path string) (Value, bool) {
	if path == "" {
		return v, true
	}
	segments := strings.Split(path, ".")
	cur := v
	for _, seg := range segments {
		m, ok := cur.Map()
		if !ok {
			return Value{}, false
		}
		next, ok := m[seg]
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return cur, true
}

// Bool reports the value's truthiness per spec §3.2's condition rules:
// "true"/"yes"/"1"/positive integer are truthy.
func (v Value) Bool() bool {
	switch t := v.v.(type) {
	case bool:
		return t
	case int64:
		return t > 0
	case float64:
		return t > 0
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		switch s {
		case "true", "yes", "1":
			return true
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n > 0
		}
		return false
	case nil:
		return false
	default:
		return true
	}
}

// NewMap builds a Value wrapping a map[string]Value directly, without
// re-normalizing already-typed values.
func NewMap(m map[string]Value) Value {
	return Value{v: m}
}

// NewList builds a Value wrapping a []Value directly.
func NewList(l []Value) Value {
	return Value{v: l}
}

// NewString builds a scalar string Value.
func NewString(s string) Value { return Value{v: s} }
