package recipe

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Recipe is the parsed envelope from spec.md §3.1 / §6.1.
type Recipe struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`
	Domain      string `yaml:"domain"`
	Links       []Link `yaml:"links"`
}

// Link is one step declaration (spec §3.2). Type-specific fields are kept
// in Raw so each handler can decode only the fields it understands, while
// the executor only needs the common fields.
type Link struct {
	Name         string `yaml:"name"`
	Type         string `yaml:"type"`
	Description  string `yaml:"description"`
	// Condition is a pointer so an omitted condition (link always runs)
	// can be told apart from an explicitly empty one (spec §8: a link
	// whose condition is the empty string is skipped), the same
	// presence-for-absence trick OutputSchema already relies on.
	Condition    *string        `yaml:"condition"`
	Conversation string         `yaml:"conversation"`
	OutputSchema *yaml.Node     `yaml:"output_schema"`
	Raw          map[string]any `yaml:"-"`
	Node         *yaml.Node     `yaml:"-"`
}

// HasCondition reports whether this link declared a condition field at all.
func (l Link) HasCondition() bool { return l.Condition != nil }

// ConditionExpr returns the declared condition text, or "" if omitted.
func (l Link) ConditionExpr() string {
	if l.Condition == nil {
		return ""
	}
	return *l.Condition
}

// UnmarshalYAML decodes the typed Link fields and also captures all fields generically so Raw
// can be populated alongside the typed fields.
func (l *Link) UnmarshalYAML(node *yaml.Node) error {
	type alias Link
	var a alias
	if err := node.Decode(&a); err != nil {
		return err
	}
	*l = Link(a)

	var generic map[string]any
	if err := node.Decode(&generic); err != nil {
		return err
	}
	l.Raw = generic
	l.Node = node
	return nil
}

// OrderedKeys returns the declaration-order keys of a mapping field nested
// directly under this link (e.g. "inputs" on a user_input link), falling
// back to nil if the field isn't a mapping or the node wasn't captured.
func (l Link) OrderedKeys(field string) []string {
	if l.Node == nil {
		return nil
	}
	for i := 0; i+1 < len(l.Node.Content); i += 2 {
		if l.Node.Content[i].Value != field {
			continue
		}
		valueNode := l.Node.Content[i+1]
		if valueNode.Kind != yaml.MappingNode {
			return nil
		}
		keys := make([]string, 0, len(valueNode.Content)/2)
		for j := 0; j+1 < len(valueNode.Content); j += 2 {
			keys = append(keys, valueNode.Content[j].Value)
		}
		return keys
	}
	return nil
}

// ContextKey returns the context key this link's output is stored under:
// its name with spaces replaced by underscores, plus "_output" (spec §3.2).
func (l Link) ContextKey() string {
	return SanitizeName(l.Name) + "_output"
}

// SanitizeName replaces spaces with underscores, per spec §3.2.
func SanitizeName(name string) string {
	return strings.ReplaceAll(name, " ", "_")
}

// Parse decodes a recipe from YAML (or JSON, which is a YAML subset) bytes.
func Parse(data []byte) (*Recipe, error) {
	var r Recipe
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("recipe: parse: %w", err)
	}
	if r.Name == "" {
		return nil, fmt.Errorf("recipe: missing required field 'name'")
	}

	seen := make(map[string]bool, len(r.Links))
	for _, link := range r.Links {
		if link.Name == "" {
			return nil, fmt.Errorf("recipe: link missing required field 'name'")
		}
		if link.Type == "" {
			return nil, fmt.Errorf("recipe: link %q missing required field 'type'", link.Name)
		}
		if seen[link.Name] {
			return nil, fmt.Errorf("recipe: duplicate link name %q", link.Name)
		}
		seen[link.Name] = true
	}
	return &r, nil
}

// Output is the {raw, data} pair every handler returns (spec §3.3).
type Output struct {
	Raw  string
	Data Value
}

// OrRaw returns Data if it is non-null, otherwise a {raw_content: Raw} map,
// matching the original's get_data(fallback_to_raw=True) accessor.
func (o Output) OrRaw() Value {
	if !o.Data.Null() {
		return o.Data
	}
	return NewMap(map[string]Value{"raw_content": NewString(o.Raw)})
}
