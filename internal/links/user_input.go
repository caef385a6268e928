package links

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"recipeforge/internal/execctx"
	"recipeforge/internal/recipe"
)

// FieldSpec describes one entry of a user_input link's `inputs` mapping
// (spec §4.4 user_input).
type FieldSpec struct {
	Description string
	Type        string // string, number, boolean, select, multiselect
	Required    bool
	Default     any
	Options     []string
	Min         *float64
	Max         *float64
}

// UserInputHandler implements the `user_input` built-in (spec §4.4),
// collecting structured human input via interactive terminal forms
// (grounded on blackcoderx-falcon/pkg/core/init.go's huh usage).
type UserInputHandler struct{}

func NewUserInputHandler() *UserInputHandler { return &UserInputHandler{} }

func (h *UserInputHandler) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"inputs":         map[string]any{"type": "object"},
			"template":       map[string]any{"type": "string"},
			"default_values": map[string]any{"type": "object"},
		},
		"required": []any{"inputs"},
	}
}

func (h *UserInputHandler) Execute(ctx context.Context, link recipe.Link, cfg map[string]any, ec *execctx.Context) (recipe.Output, error) {
	rawInputs, _ := cfg["inputs"].(map[string]any)
	if rawInputs == nil {
		return recipe.Output{}, fmt.Errorf("%w: 'inputs'", ErrMissingField)
	}
	defaults, _ := cfg["default_values"].(map[string]any)

	order := link.OrderedKeys("inputs")
	if order == nil {
		for k := range rawInputs {
			order = append(order, k)
		}
	}

	values := make(map[string]recipe.Value, len(order))
	for _, name := range order {
		specRaw, ok := rawInputs[name].(map[string]any)
		if !ok {
			continue
		}
		spec := parseFieldSpec(specRaw)
		if d, ok := defaults[name]; ok && spec.Default == nil {
			spec.Default = d
		}
		v, err := promptField(name, spec)
		if err != nil {
			return recipe.Output{}, err
		}
		values[name] = v
	}

	data := recipe.NewMap(values)
	raw := data.String()
	return recipe.Output{Raw: raw, Data: data}, nil
}

func parseFieldSpec(m map[string]any) FieldSpec {
	spec := FieldSpec{Type: "string"}
	if d, ok := m["description"].(string); ok {
		spec.Description = d
	}
	if t, ok := m["type"].(string); ok {
		spec.Type = t
	}
	if r, ok := m["required"].(bool); ok {
		spec.Required = r
	}
	if d, ok := m["default"]; ok {
		spec.Default = d
	}
	if opts, ok := m["options"].([]any); ok {
		for _, o := range opts {
			spec.Options = append(spec.Options, fmt.Sprint(o))
		}
	}
	if min, ok := toFloat(m["min"]); ok {
		spec.Min = &min
	}
	if max, ok := toFloat(m["max"]); ok {
		spec.Max = &max
	}
	return spec
}

func toFloat(v any) (float64, bool) {
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

// promptField runs one interactive form field, re-prompting on validation
// failure (spec §4.4: "re-prompting on validation failure").
func promptField(name string, spec FieldSpec) (recipe.Value, error) {
	switch spec.Type {
	case "boolean":
		return promptBoolean(name, spec)
	case "select":
		return promptSelect(name, spec)
	case "multiselect":
		return promptMultiSelect(name, spec)
	case "number":
		return promptNumber(name, spec)
	default:
		return promptString(name, spec)
	}
}

func promptString(name string, spec FieldSpec) (recipe.Value, error) {
	var value string
	if spec.Default != nil {
		value = fmt.Sprint(spec.Default)
	}
	field := huh.NewInput().
		Title(name).
		Description(spec.Description).
		Value(&value).
		Validate(func(s string) error {
			if spec.Required && strings.TrimSpace(s) == "" {
				return fmt.Errorf("%s is required", name)
			}
			return nil
		})
	if err := huh.NewForm(huh.NewGroup(field)).Run(); err != nil {
		return recipe.Value{}, fmt.Errorf("links: user_input %s: %w", name, err)
	}
	return recipe.NewString(value), nil
}

func promptNumber(name string, spec FieldSpec) (recipe.Value, error) {
	var text string
	if spec.Default != nil {
		text = fmt.Sprint(spec.Default)
	}
	field := huh.NewInput().
		Title(name).
		Description(spec.Description).
		Value(&text).
		Validate(func(s string) error {
			if s == "" {
				if spec.Required {
					return fmt.Errorf("%s is required", name)
				}
				return nil
			}
			n, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("%s must be a number", name)
			}
			if spec.Min != nil && n < *spec.Min {
				return fmt.Errorf("%s must be >= %v", name, *spec.Min)
			}
			if spec.Max != nil && n > *spec.Max {
				return fmt.Errorf("%s must be <= %v", name, *spec.Max)
			}
			return nil
		})
	if err := huh.NewForm(huh.NewGroup(field)).Run(); err != nil {
		return recipe.Value{}, fmt.Errorf("links: user_input %s: %w", name, err)
	}
	if text == "" {
		return recipe.NewValue(nil), nil
	}
	n, _ := strconv.ParseFloat(text, 64)
	return recipe.NewValue(n), nil
}

func promptBoolean(name string, spec FieldSpec) (recipe.Value, error) {
	value := false
	if b, ok := spec.Default.(bool); ok {
		value = b
	}
	field := huh.NewConfirm().
		Title(name).
		Description(spec.Description).
		Value(&value)
	if err := huh.NewForm(huh.NewGroup(field)).Run(); err != nil {
		return recipe.Value{}, fmt.Errorf("links: user_input %s: %w", name, err)
	}
	return recipe.NewValue(value), nil
}

func promptSelect(name string, spec FieldSpec) (recipe.Value, error) {
	var value string
	if spec.Default != nil {
		value = fmt.Sprint(spec.Default)
	}
	opts := make([]huh.Option[string], len(spec.Options))
	for i, o := range spec.Options {
		opts[i] = huh.NewOption(o, o)
	}
	field := huh.NewSelect[string]().
		Title(name).
		Description(spec.Description).
		Options(opts...).
		Value(&value)
	if err := huh.NewForm(huh.NewGroup(field)).Run(); err != nil {
		return recipe.Value{}, fmt.Errorf("links: user_input %s: %w", name, err)
	}
	return recipe.NewString(value), nil
}

func promptMultiSelect(name string, spec FieldSpec) (recipe.Value, error) {
	var values []string
	if defaults, ok := spec.Default.([]any); ok {
		for _, d := range defaults {
			values = append(values, fmt.Sprint(d))
		}
	}
	opts := make([]huh.Option[string], len(spec.Options))
	for i, o := range spec.Options {
		opts[i] = huh.NewOption(o, o)
	}
	field := huh.NewMultiSelect[string]().
		Title(name).
		Description(spec.Description).
		Options(opts...).
		Value(&values)
	if err := huh.NewForm(huh.NewGroup(field)).Run(); err != nil {
		return recipe.Value{}, fmt.Errorf("links: user_input %s: %w", name, err)
	}
	list := make([]recipe.Value, len(values))
	for i, v := range values {
		list[i] = recipe.NewString(v)
	}
	return recipe.NewList(list), nil
}
