// Package schema implements the schema registry & validator (spec.md §4.2,
// C2): named JSON-schema storage (delegated to internal/registry),
// gojsonschema-backed validation, and defensive repair.
package schema

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"recipeforge/internal/logging"
	"recipeforge/internal/recipe"
	"recipeforge/internal/registry"
)

// Registry wraps a registry.Registry with the schema-specific operations
// described in spec §4.2.
type Registry struct {
	reg *registry.Registry
}

// New wraps an existing registry.Registry.
func New(reg *registry.Registry) *Registry {
	return &Registry{reg: reg}
}

// Register stores a schema by fully-qualified name. Registering the same
// name with an equal schema is a no-op per spec §8's idempotence property.
func (r *Registry) Register(name string, sch map[string]any) {
	if existing, ok := r.reg.Schema(name); ok && equalSchema(existing, sch) {
		return
	}
	r.reg.RegisterSchema(name, sch)
}

// Get returns a registered schema by name.
func (r *Registry) Get(name string) (map[string]any, bool) {
	return r.reg.Schema(name)
}

func equalSchema(a, b map[string]any) bool {
	ab, err1 := json.Marshal(a)
	bb, err2 := json.Marshal(b)
	if err1 != nil || err2 != nil {
		return false
	}
	var na, nb any
	if json.Unmarshal(ab, &na) != nil || json.Unmarshal(bb, &nb) != nil {
		return false
	}
	aj, _ := json.Marshal(na)
	bj, _ := json.Marshal(nb)
	return string(aj) == string(bj)
}

// Validate checks a value against a JSON schema using gojsonschema.
func (r *Registry) Validate(value any, sch map[string]any) (bool, []string) {
	schemaLoader := gojsonschema.NewGoLoader(sch)
	docLoader := gojsonschema.NewGoLoader(value)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return false, []string{err.Error()}
	}
	if result.Valid() {
		return true, nil
	}
	errs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		errs = append(errs, e.String())
	}
	return false, errs
}

// Resolve expands an output_schema declaration's three reference forms
// (spec_full.md "Supplemented features" #1, grounded on
// original_source/core/schema/extension.py):
//
//   - {"$ref": "<name>"}: replace with the registered schema, with any
//     sibling keys overlaid on top.
//   - {"base": "<name>", ...extensions}: extend the base schema's
//     properties/required with the extension fields.
//   - {"_validate_against": "<name>", ...rest}: keep `rest` as the shaping
//     schema but return a second schema to validate the shaped data
//     against.
//
// It returns the schema to shape against and, if _validate_against was
// used, a second schema to additionally validate against.
func (r *Registry) Resolve(decl map[string]any) (shape map[string]any, validateAgainst map[string]any) {
	if decl == nil {
		return nil, nil
	}

	if ref, ok := decl["$ref"].(string); ok {
		resolved, found := r.lookupRef(ref)
		if !found {
			logging.Get(logging.CategoryRegistry).Warn("schema reference not found: %s", ref)
			resolved = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		merged := cloneSchema(resolved)
		for k, v := range decl {
			if k != "$ref" {
				merged[k] = v
			}
		}
		return merged, nil
	}

	if baseRef, ok := decl["base"].(string); ok {
		base, found := r.lookupRef(baseRef)
		if !found {
			base = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		extensions := make(map[string]any, len(decl))
		for k, v := range decl {
			if k != "base" {
				extensions[k] = v
			}
		}
		return extendSchema(base, extensions), nil
	}

	if validateRef, ok := decl["_validate_against"].(string); ok {
		resolved, found := r.lookupRef(validateRef)
		if !found {
			resolved = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		rest := make(map[string]any, len(decl))
		for k, v := range decl {
			if k != "_validate_against" {
				rest[k] = v
			}
		}
		return rest, resolved
	}

	return decl, nil
}

func (r *Registry) lookupRef(ref string) (map[string]any, bool) {
	return r.reg.Schema(ref)
}

func cloneSchema(s map[string]any) map[string]any {
	out := make(map[string]any, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

func extendSchema(base map[string]any, extensions map[string]any) map[string]any {
	out := cloneSchema(base)

	if extProps, ok := extensions["properties"].(map[string]any); ok {
		props, _ := out["properties"].(map[string]any)
		if props == nil {
			props = map[string]any{}
		} else {
			props = cloneSchema(props)
		}
		for k, v := range extProps {
			props[k] = v
		}
		out["properties"] = props
	}

	if extReq, ok := extensions["required"].([]any); ok {
		existing, _ := out["required"].([]any)
		have := map[string]bool{}
		for _, r := range existing {
			if s, ok := r.(string); ok {
				have[s] = true
			}
		}
		merged := append([]any{}, existing...)
		for _, r := range extReq {
			if s, ok := r.(string); ok && !have[s] {
				merged = append(merged, s)
				have[s] = true
			}
		}
		out["required"] = merged
	}

	for k, v := range extensions {
		if k != "properties" && k != "required" {
			out[k] = v
		}
	}
	return out
}

// Repair defensively fills in a value to satisfy a schema's required
// properties (spec §4.2): for every required property missing from
// `value`, insert a type-appropriate zero value. It also coerces
// datetime-like string values already present to ISO-8601. Repair never
// removes fields.
func Repair(value map[string]any, sch map[string]any) map[string]any {
	out := make(map[string]any, len(value))
	for k, v := range value {
		out[k] = CoerceDateTime(v)
	}

	required, _ := sch["required"].([]any)
	props, _ := sch["properties"].(map[string]any)

	for _, reqAny := range required {
		req, ok := reqAny.(string)
		if !ok {
			continue
		}
		if _, present := out[req]; present {
			continue
		}
		out[req] = zeroValueFor(props, req)
	}

	return out
}

func zeroValueFor(props map[string]any, name string) any {
	propSchema, _ := props[name].(map[string]any)
	typ, _ := propSchema["type"].(string)
	switch typ {
	case "object":
		return map[string]any{}
	case "array":
		return []any{}
	case "string":
		return ""
	case "integer", "number":
		return 0
	case "boolean":
		return false
	default:
		return ""
	}
}

// CoerceDateTime normalizes a datetime-like value to an ISO-8601 string,
// returning it unchanged if it isn't recognizably a datetime.
func CoerceDateTime(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		time.RFC1123,
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return v
}

// ValueToRaw converts a recipe.Value into the plain Go shape gojsonschema
// expects (map[string]any / []any / scalars).
func ValueToRaw(v recipe.Value) any {
	return v.Raw()
}

// describeErrors joins validation errors into a single warning string.
func describeErrors(errs []string) string {
	return strings.Join(errs, "; ")
}

// Validate is re-exported at package level for callers holding no
// Registry (e.g. ad hoc validation of a literal schema).
func Validate(value any, sch map[string]any) (bool, []string) {
	return (&Registry{}).Validate(value, sch)
}

// DescribeErrors joins validation errors into a single warning string.
func DescribeErrors(errs []string) string {
	return describeErrors(errs)
}
