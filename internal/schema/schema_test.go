package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipeforge/internal/registry"
)

func TestRegisterThenGet(t *testing.T) {
	reg := New(registry.New())
	sch := map[string]any{"type": "object"}

	reg.Register("widget.entity", sch)

	got, ok := reg.Get("widget.entity")
	require.True(t, ok)
	assert.Equal(t, sch, got)
}

func TestRegisterSameSchemaTwiceIsIdempotent(t *testing.T) {
	backing := registry.New()
	reg := New(backing)
	sch := map[string]any{"type": "object", "properties": map[string]any{"n": map[string]any{"type": "string"}}}

	reg.Register("widget.entity", sch)
	reg.Register("widget.entity", map[string]any{"type": "object", "properties": map[string]any{"n": map[string]any{"type": "string"}}})

	got, ok := backing.Schema("widget.entity")
	require.True(t, ok)
	assert.Equal(t, sch, got)
}

func TestValidatePassesForConformingValue(t *testing.T) {
	reg := New(registry.New())
	sch := map[string]any{
		"type":       "object",
		"required":   []any{"name"},
		"properties": map[string]any{"name": map[string]any{"type": "string"}},
	}

	ok, errs := reg.Validate(map[string]any{"name": "widget"}, sch)
	assert.True(t, ok)
	assert.Empty(t, errs)
}

func TestValidateFailsForMissingRequiredField(t *testing.T) {
	reg := New(registry.New())
	sch := map[string]any{
		"type":     "object",
		"required": []any{"name"},
	}

	ok, errs := reg.Validate(map[string]any{}, sch)
	assert.False(t, ok)
	assert.NotEmpty(t, errs)
}

func TestResolveRefMergesSiblingKeys(t *testing.T) {
	backing := registry.New()
	reg := New(backing)
	reg.Register("widget.base", map[string]any{
		"type":       "object",
		"properties": map[string]any{"name": map[string]any{"type": "string"}},
	})

	shape, validateAgainst := reg.Resolve(map[string]any{"$ref": "widget.base", "description": "a widget"})

	assert.Nil(t, validateAgainst)
	assert.Equal(t, "a widget", shape["description"])
	assert.Equal(t, "object", shape["type"])
}

func TestResolveBaseExtendsPropertiesAndRequired(t *testing.T) {
	backing := registry.New()
	reg := New(backing)
	reg.Register("widget.base", map[string]any{
		"type":       "object",
		"required":   []any{"name"},
		"properties": map[string]any{"name": map[string]any{"type": "string"}},
	})

	shape, _ := reg.Resolve(map[string]any{
		"base":       "widget.base",
		"required":   []any{"size"},
		"properties": map[string]any{"size": map[string]any{"type": "integer"}},
	})

	props, ok := shape["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "name")
	assert.Contains(t, props, "size")
	assert.ElementsMatch(t, []any{"name", "size"}, shape["required"])
}

func TestResolveValidateAgainstReturnsSecondSchema(t *testing.T) {
	backing := registry.New()
	reg := New(backing)
	reg.Register("widget.strict", map[string]any{"type": "object", "required": []any{"name"}})

	shape, validateAgainst := reg.Resolve(map[string]any{
		"_validate_against": "widget.strict",
		"type":              "object",
	})

	assert.NotNil(t, validateAgainst)
	assert.Equal(t, []any{"name"}, validateAgainst["required"])
	assert.NotContains(t, shape, "_validate_against")
}

func TestResolveUnknownRefFallsBackToEmptyObject(t *testing.T) {
	reg := New(registry.New())

	shape, _ := reg.Resolve(map[string]any{"$ref": "does.not.exist"})

	assert.Equal(t, "object", shape["type"])
}

func TestRepairFillsMissingRequiredFieldsWithZeroValues(t *testing.T) {
	sch := map[string]any{
		"required": []any{"name", "count", "active", "tags"},
		"properties": map[string]any{
			"name":   map[string]any{"type": "string"},
			"count":  map[string]any{"type": "integer"},
			"active": map[string]any{"type": "boolean"},
			"tags":   map[string]any{"type": "array"},
		},
	}

	out := Repair(map[string]any{"name": "widget"}, sch)

	assert.Equal(t, "widget", out["name"])
	assert.Equal(t, 0, out["count"])
	assert.Equal(t, false, out["active"])
	assert.Equal(t, []any{}, out["tags"])
}

func TestRepairNeverRemovesExistingFields(t *testing.T) {
	sch := map[string]any{"required": []any{"name"}}
	out := Repair(map[string]any{"name": "widget", "extra": "kept"}, sch)
	assert.Equal(t, "kept", out["extra"])
}

func TestCoerceDateTimeNormalizesKnownLayout(t *testing.T) {
	got := CoerceDateTime("2024-01-02 15:04:05")
	assert.Equal(t, "2024-01-02T15:04:05Z", got)
}

func TestCoerceDateTimeLeavesNonDateStringsUnchanged(t *testing.T) {
	got := CoerceDateTime("not a date")
	assert.Equal(t, "not a date", got)
}
