package storage

import (
	"fmt"
	"strings"
)

const containsSuffix = "_contains"

func isContainsKey(key string) bool {
	return strings.HasSuffix(key, containsSuffix)
}

func strippedKey(key string) string {
	return strings.TrimSuffix(key, containsSuffix)
}

// lookupDotted walks a nested map by a dotted path, e.g. "data.k".
func lookupDotted(m map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var current any = m
	for _, part := range parts {
		asMap, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = asMap[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func containsMatch(got, want any) bool {
	return strings.Contains(strings.ToLower(stringify(got)), strings.ToLower(stringify(want)))
}

func equalMatch(got, want any) bool {
	return stringify(got) == stringify(want) || looseEqual(got, want)
}

func looseEqual(a, b any) bool {
	af, aok := toNumber(a)
	bf, bok := toNumber(b)
	if aok && bok {
		return af == bf
	}
	return false
}

func toNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// indexKeys flattens an entity into dotted-path -> scalar-value pairs for
// secondary indexing (spec §4.7 Indexing: "for each scalar field at any
// nesting depth").
func indexKeys(prefix string, v any, out map[string]string) {
	switch t := v.(type) {
	case map[string]any:
		for k, sub := range t {
			path := k
			if prefix != "" {
				path = prefix + "." + k
			}
			indexKeys(path, sub, out)
		}
	case []any:
		// lists are not individually indexed; spec indexes scalar fields.
	default:
		if prefix != "" {
			out[prefix] = strings.ToLower(stringify(v))
		}
	}
}
