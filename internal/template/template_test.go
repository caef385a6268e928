package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipeforge/internal/recipe"
)

func testContext() recipe.Value {
	return recipe.NewMap(map[string]recipe.Value{
		"greet_output": recipe.NewMap(map[string]recipe.Value{
			"raw": recipe.NewString("hello"),
			"data": recipe.NewMap(map[string]recipe.Value{
				"name":  recipe.NewString("Ada"),
				"count": recipe.NewValue(int64(3)),
			}),
		}),
	})
}

func TestRenderSubstitutesPlaceholder(t *testing.T) {
	e := New()
	out := e.Render("Hello, {{ greet_output.data.name }}!", testContext())
	assert.Equal(t, "Hello, Ada!", out)
}

func TestRenderUnresolvedPlaceholderBecomesEmptyString(t *testing.T) {
	e := New()
	out := e.Render("Value: {{ missing.path }}", testContext())
	assert.Equal(t, "Value: ", out)

	traces := e.Traces()
	require.Len(t, traces, 1)
	assert.False(t, traces[0].Resolved)
	assert.Equal(t, "missing.path", traces[0].Path)
}

func TestRenderNumericCanonicalForm(t *testing.T) {
	e := New()
	out := e.Render("n={{ greet_output.data.count }}", testContext())
	assert.Equal(t, "n=3", out)
}

func TestRenderValuePreservesTypeForSolePlaceholder(t *testing.T) {
	e := New()
	v := e.RenderValue("{{ greet_output.data.count }}", testContext())
	assert.Equal(t, int64(3), v.Raw())
}

func TestRenderValueFallsBackToStringWhenNotSolePlaceholder(t *testing.T) {
	e := New()
	v := e.RenderValue("count is {{ greet_output.data.count }}", testContext())
	assert.Equal(t, "count is 3", v.Raw())
}

func TestUnquoteIfQuotedStripsMatchingQuotes(t *testing.T) {
	e := New()
	ctx := recipe.NewMap(map[string]recipe.Value{
		"x_output": recipe.NewMap(map[string]recipe.Value{
			"raw":  recipe.NewString(""),
			"data": recipe.NewString(`"quoted value"`),
		}),
	})
	out := e.Render("{{ x_output.data }}", ctx)
	assert.Equal(t, "quoted value", out)
}

func TestRenderFieldsWalksNestedListsAndMaps(t *testing.T) {
	e := New()
	cfg := map[string]any{
		"prompt": "Hi {{ greet_output.data.name }}",
		"nested": map[string]any{
			"items": []any{"{{ greet_output.data.name }}", 42},
		},
	}
	out := e.RenderFields(cfg, testContext())

	assert.Equal(t, "Hi Ada", out["prompt"])
	nested := out["nested"].(map[string]any)
	items := nested["items"].([]any)
	assert.Equal(t, "Ada", items[0])
	assert.Equal(t, 42, items[1])
}

func TestReferencesFindsTextualLinkMentions(t *testing.T) {
	deps := References("Use {{ Step One.data.x }} and nothing else", []string{"Step One", "Step Two"})
	assert.Equal(t, []string{"Step One"}, deps)
}

func TestReferencesNoMatch(t *testing.T) {
	deps := References("no placeholders here", []string{"Step One"})
	assert.Empty(t, deps)
}
