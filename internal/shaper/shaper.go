// Package shaper implements the output shaper (spec.md §4.5, C5): turning
// free-form LLM text into a value conforming to a caller-supplied JSON
// schema, via a cascade of increasingly aggressive strategies and a final
// schema-guided restatement fallback.
//
// The cascade is grounded on original_source/core/executor.py's
// extract_json / attempt_fix_truncated_json / fix_common_json_errors,
// generalized to Go and extended with the schema-guided restatement step
// spec.md adds as strategy 8.
package shaper

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"recipeforge/internal/logging"
	"recipeforge/internal/recipe"
	"recipeforge/internal/schema"
)

// Restater issues the single secondary LLM call used by strategy 8
// ("schema-guided restatement"). Implemented by the llm package's client
// to avoid an import cycle between shaper and links.
type Restater interface {
	Restate(prompt string) (string, error)
}

// Shaper runs the cascade described in spec §4.5.
type Shaper struct {
	Restater Restater
}

// New returns a Shaper. restater may be nil, in which case strategy 8 is
// skipped and shaping falls back to {raw_content: text} like any other
// failure (spec §4.5: "Validation errors never raise... downgrade").
func New(restater Restater) *Shaper {
	return &Shaper{Restater: restater}
}

var codeFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
var lineCommentRe = regexp.MustCompile(`//.*`)
var blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
var singleQuotedKeyRe = regexp.MustCompile(`'([^']+)'\s*:`)
var bareKeyRe = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
var trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)

// Shape attempts to produce a schema-conforming Value from raw text.
// Validation failures anywhere in the cascade never raise: the final
// fallback is always {raw_content: raw}.
func (s *Shaper) Shape(raw string, sch map[string]any) recipe.Value {
	log := logging.Get(logging.CategoryShaper)

	if strings.TrimSpace(raw) == "" {
		log.Debug("empty raw input, returning raw_content fallback")
		return rawContentFallback(raw)
	}

	if v, ok := tryParse(raw); ok {
		_, isMap := v.Map()
		_, isList := v.List()
		if !isMap && !isList && sch != nil {
			if p, ok := promoteSimpleValue(raw, sch); ok {
				log.Debug("simple-value promotion of bare JSON scalar succeeded")
				return s.repair(p, sch)
			}
		}
		log.Debug("direct JSON parse succeeded")
		return s.repair(v, sch)
	}

	if m := codeFenceRe.FindStringSubmatch(raw); m != nil {
		if v, ok := tryParse(m[1]); ok {
			log.Debug("code-fence extraction succeeded")
			return s.repair(v, sch)
		}
	}

	if obj, ok := firstBalancedObject(raw); ok {
		if v, ok := tryParse(obj); ok {
			log.Debug("balanced-object scan succeeded")
			return s.repair(v, sch)
		}
	}
	if arr, ok := firstBalancedArray(raw); ok {
		if v, ok := tryParse(arr); ok {
			log.Debug("balanced-array scan succeeded")
			return s.repair(v, sch)
		}
	}

	repaired := repairCommonErrors(raw)
	if v, ok := tryParse(repaired); ok {
		log.Debug("common-error repair succeeded")
		return s.repair(v, sch)
	}

	if obj, ok := firstBalancedObject(repaired); ok {
		if v, ok := tryParse(obj); ok {
			log.Debug("post-repair balanced-brace scan succeeded")
			return s.repair(v, sch)
		}
	}

	balanced := balanceBraces(repaired)
	if v, ok := tryParse(balanced); ok {
		log.Debug("brace-balancing repair succeeded")
		return s.repair(v, sch)
	}

	if sch != nil {
		if v, ok := promoteSimpleValue(raw, sch); ok {
			log.Debug("simple-value promotion succeeded")
			return s.repair(v, sch)
		}
	}

	if sch != nil && s.Restater != nil {
		if v, ok := s.restate(raw, sch); ok {
			log.Debug("schema-guided restatement succeeded")
			return s.repair(v, sch)
		}
		log.Warn("schema-guided restatement failed validation")
	}

	log.Warn("all shaping strategies exhausted, returning raw_content fallback")
	return rawContentFallback(raw)
}

// repair defensively fills in whatever sch declares as required (spec
// §4.2's repair()) and coerces datetime-like string values to ISO-8601,
// the two schema-registry helpers spec.md describes as "used by output
// shaping". Grounded on original_source/storage/repository.py's
// add_entry, which always runs repair_entry before validating. A value
// that isn't map-shaped, or a nil schema, passes through unchanged.
func (s *Shaper) repair(v recipe.Value, sch map[string]any) recipe.Value {
	if sch == nil {
		return v
	}
	raw, ok := v.Raw().(map[string]any)
	if !ok {
		return v
	}
	repaired := schema.Repair(raw, sch)
	for k, val := range repaired {
		repaired[k] = schema.CoerceDateTime(val)
	}
	return recipe.NewValue(repaired)
}

func rawContentFallback(raw string) recipe.Value {
	return recipe.NewMap(map[string]recipe.Value{"raw_content": recipe.NewString(raw)})
}

func tryParse(s string) (recipe.Value, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return recipe.Value{}, false
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return recipe.Value{}, false
	}
	return recipe.NewValue(v), true
}

func firstBalancedObject(s string) (string, bool) {
	return firstBalanced(s, '{', '}')
}

func firstBalancedArray(s string) (string, bool) {
	return firstBalanced(s, '[', ']')
}

func firstBalanced(s string, open, close byte) (string, bool) {
	start := strings.IndexByte(s, open)
	if start == -1 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func repairCommonErrors(s string) string {
	s = lineCommentRe.ReplaceAllString(s, "")
	s = blockCommentRe.ReplaceAllString(s, "")
	s = singleQuotedKeyRe.ReplaceAllString(s, `"$1":`)
	s = bareKeyRe.ReplaceAllString(s, `$1"$2":`)
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	return s
}

func balanceBraces(s string) string {
	open := strings.Count(s, "{")
	closeCt := strings.Count(s, "}")
	if open > closeCt {
		s = s + strings.Repeat("}", open-closeCt)
	} else if closeCt > open {
		s = strings.Repeat("{", closeCt-open) + s
	}
	return s
}

// promoteSimpleValue implements strategy 7: if the schema requires exactly
// one property and the text is a bare scalar, coerce and wrap it.
func promoteSimpleValue(raw string, sch map[string]any) (recipe.Value, bool) {
	required, _ := sch["required"].([]any)
	if len(required) != 1 {
		return recipe.Value{}, false
	}
	name, ok := required[0].(string)
	if !ok {
		return recipe.Value{}, false
	}
	props, _ := sch["properties"].(map[string]any)
	propSchema, _ := props[name].(map[string]any)
	typ, _ := propSchema["type"].(string)

	trimmed := strings.TrimSpace(raw)
	var coerced any
	switch typ {
	case "integer":
		n, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return recipe.Value{}, false
		}
		coerced = n
	case "number":
		n, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return recipe.Value{}, false
		}
		coerced = n
	case "boolean":
		b, err := strconv.ParseBool(trimmed)
		if err != nil {
			return recipe.Value{}, false
		}
		coerced = b
	default:
		coerced = trimmed
	}
	return recipe.NewValue(map[string]any{name: coerced}), true
}

func (s *Shaper) restate(raw string, sch map[string]any) (recipe.Value, bool) {
	schemaJSON, err := json.Marshal(sch)
	if err != nil {
		return recipe.Value{}, false
	}
	prompt := "populate this schema from this text; return only JSON\n\nschema:\n" +
		string(schemaJSON) + "\n\ntext:\n" + raw

	result, err := s.Restater.Restate(prompt)
	if err != nil {
		return recipe.Value{}, false
	}
	v, ok := tryParse(strings.TrimSpace(result))
	if !ok {
		if obj, found := firstBalancedObject(result); found {
			v, ok = tryParse(obj)
		}
	}
	if !ok {
		return recipe.Value{}, false
	}
	valid, _ := schema.Validate(v.Raw(), sch)
	if !valid {
		return recipe.Value{}, false
	}
	return v, true
}
