// Package template implements the placeholder expansion engine described
// in spec.md §4.3 / §6.2: `{{ dotted.path }}` references resolved against
// the execution context, with strict-undefined-to-empty-string semantics
// and a trace event on every failed walk.
//
// This is hand-rolled rather than built on text/template: text/template's
// {{.Field}} syntax requires static Go structs/methods and panics (or
// requires "missingkey=error" handling) on missing map keys instead of the
// spec's graceful "empty string + trace" semantics, and none of the
// example repos carry a generic lenient-placeholder library — see
// DESIGN.md.
package template

import (
	"regexp"
	"strings"

	"recipeforge/internal/logging"
	"recipeforge/internal/recipe"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

// TraceEvent records one resolution attempt, for diagnosing missing paths.
type TraceEvent struct {
	Path    string
	Resolved bool
}

// Engine renders placeholder strings against a context value.
type Engine struct {
	traces []TraceEvent
}

// New returns a fresh rendering engine.
func New() *Engine {
	return &Engine{}
}

// Traces returns the trace events recorded by the most recent Render calls.
func (e *Engine) Traces() []TraceEvent {
	return e.traces
}

// Render expands every `{{ path }}` placeholder in s against ctx. If s is
// exactly one placeholder (ignoring surrounding whitespace), the resolved
// Value's typed form is preserved for callers that want it via RenderValue;
// Render always returns the canonical string form (spec §4.3: "Rendering a
// non-string value produces its canonical textual form").
func (e *Engine) Render(s string, ctx recipe.Value) string {
	return placeholderRe.ReplaceAllStringFunc(s, func(match string) string {
		path := placeholderRe.FindStringSubmatch(match)[1]
		val, ok := ctx.Get(path)
		e.traces = append(e.traces, TraceEvent{Path: path, Resolved: ok})
		if !ok {
			logging.Get(logging.CategoryTemplate).Debug("unresolved placeholder: %s", path)
			return ""
		}
		return unquoteIfQuoted(val.String())
	})
}

// RenderValue renders s like Render, but when s is (after trimming
// whitespace) a single placeholder that resolves successfully, it returns
// the resolved Value's typed form directly instead of its string form, so
// downstream handlers can preserve numeric/boolean types (spec §4.3).
func (e *Engine) RenderValue(s string, ctx recipe.Value) recipe.Value {
	trimmed := strings.TrimSpace(s)
	if m := placeholderRe.FindStringSubmatch(trimmed); m != nil && m[0] == trimmed {
		path := m[1]
		val, ok := ctx.Get(path)
		e.traces = append(e.traces, TraceEvent{Path: path, Resolved: ok})
		if ok {
			return val
		}
		logging.Get(logging.CategoryTemplate).Debug("unresolved placeholder: %s", path)
		return recipe.NewString("")
	}
	return recipe.NewString(e.Render(s, ctx))
}

// unquoteIfQuoted strips a single matching pair of leading/trailing quotes
// (spec §4.3: "Strings starting with a matching pair of quotes are
// unquoted").
func unquoteIfQuoted(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// RenderFields walks a generic config map (as decoded from YAML) and
// renders every string field, including nested lists and maps, returning a
// new map (spec §4.4.b: "Render every string field of a link
// configuration (including nested lists and maps)").
func (e *Engine) RenderFields(cfg map[string]any, ctx recipe.Value) map[string]any {
	out := make(map[string]any, len(cfg))
	for k, v := range cfg {
		out[k] = e.renderAny(v, ctx)
	}
	return out
}

func (e *Engine) renderAny(v any, ctx recipe.Value) any {
	switch t := v.(type) {
	case string:
		return e.Render(t, ctx)
	case map[string]any:
		return e.RenderFields(t, ctx)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = e.renderAny(item, ctx)
		}
		return out
	default:
		return v
	}
}

// References returns the set of other link names textually referenced by
// `{{ OtherLink` inside s (spec §4.6 step 2's dependency-inference probe).
// names is the set of candidate link names to probe for.
func References(s string, names []string) []string {
	var deps []string
	for _, name := range names {
		if strings.Contains(s, "{{ "+name) || strings.Contains(s, "{{"+name) {
			deps = append(deps, name)
		}
	}
	return deps
}
