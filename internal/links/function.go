package links

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"recipeforge/internal/execctx"
	"recipeforge/internal/links/sandbox"
	"recipeforge/internal/recipe"
	"recipeforge/internal/registry"
)

// TerminateFunctionName is the distinguished function name that signals
// "end this recipe now" (spec §4.4 function, §7 Early exit).
const TerminateFunctionName = "terminate_recipe"

// FunctionHandler implements the `function` built-in (spec §4.4): either
// registered-name dispatch or sandboxed inline code execution.
type FunctionHandler struct {
	Registry *registry.Registry
	Sandbox  *sandbox.Executor
}

func NewFunctionHandler(reg *registry.Registry) *FunctionHandler {
	return &FunctionHandler{Registry: reg, Sandbox: sandbox.New()}
}

func (h *FunctionHandler) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"function": map[string]any{"type": "object"},
			"inputs":   map[string]any{"type": "object"},
		},
		"required": []any{"function"},
	}
}

func (h *FunctionHandler) Execute(ctx context.Context, link recipe.Link, cfg map[string]any, ec *execctx.Context) (recipe.Output, error) {
	fnDecl, _ := cfg["function"].(map[string]any)
	if fnDecl == nil {
		return recipe.Output{}, fmt.Errorf("%w: 'function'", ErrMissingField)
	}
	inputs, _ := cfg["inputs"].(map[string]any)

	name, _ := fnDecl["name"].(string)
	code, _ := fnDecl["code"].(string)

	if name == TerminateFunctionName {
		return recipe.Output{}, ErrTerminate
	}

	if name != "" {
		return h.executeRegistered(ctx, name, inputs)
	}
	if code != "" {
		return h.executeInline(ctx, code, inputs)
	}
	return recipe.Output{}, fmt.Errorf("%w: 'function.name' or 'function.code'", ErrMissingField)
}

func (h *FunctionHandler) executeRegistered(ctx context.Context, name string, inputs map[string]any) (recipe.Output, error) {
	domain, fn := "core", name
	if idx := strings.Index(name, "."); idx >= 0 {
		domain, fn = name[:idx], name[idx+1:]
	}

	entry, ok := h.Registry.Function(domain, fn)
	if !ok {
		return recipe.Output{}, fmt.Errorf("links: function not registered: %s", name)
	}

	result, err := entry.Fn(ctx, inputs)
	if err != nil {
		return recipe.Output{}, err
	}
	return recipe.Output{Raw: result.String(), Data: result}, nil
}

func (h *FunctionHandler) executeInline(ctx context.Context, code string, inputs map[string]any) (recipe.Output, error) {
	out, err := h.Sandbox.Run(ctx, code, inputs)
	if err != nil {
		return recipe.Output{}, err
	}
	data := recipe.NewValue(out)
	return recipe.Output{Raw: data.String(), Data: data}, nil
}

// RegisterBuiltinFunctions registers the domain functions the original
// implementation ships alongside user-defined ones
// (original_source/core/executor.py:_function_random_number), generalized
// to a registered "core.random_number" function.
func RegisterBuiltinFunctions(reg *registry.Registry) {
	reg.RegisterFunction(registry.FunctionEntry{
		Domain:      "core",
		Name:        "random_number",
		Description: "Returns a random integer between min and max (inclusive).",
		Fn: func(ctx context.Context, args map[string]any) (recipe.Value, error) {
			min := intArg(args, "min_value", 1)
			max := intArg(args, "max_value", 3)
			if max < min {
				min, max = max, min
			}
			n := min + rand.Intn(max-min+1)
			return recipe.NewValue(map[string]any{"value": int64(n)}), nil
		},
	})
}

func intArg(args map[string]any, key string, def int) int {
	v, ok := args[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	default:
		return def
	}
}
