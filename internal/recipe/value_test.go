package recipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValueNormalizesNestedMapsAndLists(t *testing.T) {
	v := NewValue(map[string]any{
		"name":  "widget",
		"count": 3,
		"tags":  []any{"a", "b"},
	})

	m, ok := v.Map()
	require.True(t, ok)
	assert.Equal(t, "widget", m["name"].Raw())
	assert.Equal(t, int64(3), m["count"].Raw())

	tags, ok := m["tags"].List()
	require.True(t, ok)
	require.Len(t, tags, 2)
	assert.Equal(t, "a", tags[0].Raw())
}

func TestValueNullForNil(t *testing.T) {
	assert.True(t, NewValue(nil).Null())
	assert.False(t, NewString("x").Null())
}

func TestValueGetWalksDottedPath(t *testing.T) {
	v := NewValue(map[string]any{
		"a": map[string]any{
			"b": map[string]any{
				"c": "found",
			},
		},
	})

	got, ok := v.Get("a.b.c")
	require.True(t, ok)
	assert.Equal(t, "found", got.Raw())
}

func TestValueGetMissingPathReturnsNotOK(t *testing.T) {
	v := NewValue(map[string]any{"a": "x"})
	_, ok := v.Get("a.b")
	assert.False(t, ok)
}

func TestValueGetEmptyPathReturnsSelf(t *testing.T) {
	v := NewString("x")
	got, ok := v.Get("")
	require.True(t, ok)
	assert.Equal(t, v, got)
}

func TestValueStringScalars(t *testing.T) {
	assert.Equal(t, "", NewValue(nil).String())
	assert.Equal(t, "hello", NewString("hello").String())
	assert.Equal(t, "true", NewValue(true).String())
	assert.Equal(t, "42", NewValue(int64(42)).String())
}

func TestValueBoolTruthiness(t *testing.T) {
	cases := []struct {
		v    any
		want bool
	}{
		{true, true},
		{false, false},
		{"true", true},
		{"yes", true},
		{"1", true},
		{"no", false},
		{"0", false},
		{int64(5), true},
		{int64(0), false},
		{nil, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, NewValue(c.v).Bool(), "value %#v", c.v)
	}
}

func TestValueBoolNonScalarIsTruthy(t *testing.T) {
	assert.True(t, NewValue(map[string]any{"k": "v"}).Bool())
}
