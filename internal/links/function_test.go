package links

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipeforge/internal/execctx"
	"recipeforge/internal/recipe"
	"recipeforge/internal/registry"
)

func TestFunctionHandlerTerminate(t *testing.T) {
	h := NewFunctionHandler(registry.New())
	cfg := map[string]any{"function": map[string]any{"name": TerminateFunctionName}}

	_, err := h.Execute(context.Background(), recipe.Link{}, cfg, execctx.New())
	assert.ErrorIs(t, err, ErrTerminate)
}

func TestFunctionHandlerRegisteredDispatch(t *testing.T) {
	reg := registry.New()
	reg.RegisterFunction(registry.FunctionEntry{
		Domain: "core",
		Name:   "double",
		Fn: func(ctx context.Context, args map[string]any) (recipe.Value, error) {
			n, _ := args["n"].(float64)
			return recipe.NewValue(n * 2), nil
		},
	})
	h := NewFunctionHandler(reg)

	cfg := map[string]any{
		"function": map[string]any{"name": "core.double"},
		"inputs":   map[string]any{"n": float64(3)},
	}
	out, err := h.Execute(context.Background(), recipe.Link{}, cfg, execctx.New())
	require.NoError(t, err)
	assert.Equal(t, float64(6), out.Data.Raw())
}

func TestFunctionHandlerRegisteredDispatchNotFound(t *testing.T) {
	h := NewFunctionHandler(registry.New())
	cfg := map[string]any{"function": map[string]any{"name": "core.missing"}}

	_, err := h.Execute(context.Background(), recipe.Link{}, cfg, execctx.New())
	assert.Error(t, err)
}

func TestFunctionHandlerInlineSandboxCode(t *testing.T) {
	h := NewFunctionHandler(registry.New())
	code := `
func Run(inputs map[string]interface{}) (map[string]interface{}, error) {
	n := inputs["n"].(int)
	return map[string]interface{}{"doubled": n * 2}, nil
}
`
	cfg := map[string]any{
		"function": map[string]any{"code": code},
		"inputs":   map[string]any{"n": 4},
	}
	out, err := h.Execute(context.Background(), recipe.Link{}, cfg, execctx.New())
	require.NoError(t, err)

	doubled, _ := out.Data.Get("doubled")
	assert.Equal(t, int64(8), doubled.Raw())
}

func TestFunctionHandlerMissingNameAndCode(t *testing.T) {
	h := NewFunctionHandler(registry.New())
	cfg := map[string]any{"function": map[string]any{}}

	_, err := h.Execute(context.Background(), recipe.Link{}, cfg, execctx.New())
	assert.True(t, errors.Is(err, ErrMissingField))
}

func TestRegisterBuiltinFunctionsRandomNumber(t *testing.T) {
	reg := registry.New()
	RegisterBuiltinFunctions(reg)

	entry, ok := reg.Function("core", "random_number")
	require.True(t, ok)

	v, err := entry.Fn(context.Background(), map[string]any{"min_value": 5, "max_value": 5})
	require.NoError(t, err)
	val, _ := v.Get("value")
	assert.Equal(t, int64(5), val.Raw())
}
