package shaper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeDirectJSON(t *testing.T) {
	s := New(nil)
	sch := map[string]any{
		"required":   []any{"answer"},
		"properties": map[string]any{"answer": map[string]any{"type": "string"}},
	}
	v := s.Shape(`{"answer": "Paris"}`, sch)
	m, ok := v.Map()
	require.True(t, ok)
	assert.Equal(t, "Paris", m["answer"].String())
}

func TestShapeCodeFence(t *testing.T) {
	s := New(nil)
	sch := map[string]any{
		"required":   []any{"n"},
		"properties": map[string]any{"n": map[string]any{"type": "integer"}},
	}
	raw := "Here you go:\n```json\n{\"n\": 3}\n```\ngreat!"
	v := s.Shape(raw, sch)
	m, ok := v.Map()
	require.True(t, ok)
	n, ok := m["n"].Map()
	_ = n
	_ = ok
	assert.Equal(t, "3", m["n"].String())
}

func TestShapeEmptyRaw(t *testing.T) {
	s := New(nil)
	v := s.Shape("", nil)
	m, ok := v.Map()
	require.True(t, ok)
	assert.Equal(t, "", m["raw_content"].String())
}

func TestShapeTrailingCommaRepair(t *testing.T) {
	s := New(nil)
	sch := map[string]any{
		"required":   []any{"a", "b"},
		"properties": map[string]any{"a": map[string]any{"type": "string"}, "b": map[string]any{"type": "string"}},
	}
	v := s.Shape(`{a: "x", b: "y",}`, sch)
	m, ok := v.Map()
	require.True(t, ok)
	assert.Equal(t, "x", m["a"].String())
	assert.Equal(t, "y", m["b"].String())
}

func TestShapeSimpleValuePromotion(t *testing.T) {
	s := New(nil)
	sch := map[string]any{
		"required":   []any{"n"},
		"properties": map[string]any{"n": map[string]any{"type": "integer"}},
	}
	v := s.Shape("42", sch)
	m, ok := v.Map()
	require.True(t, ok)
	assert.Equal(t, "42", m["n"].String())
}

type fakeRestater struct {
	response string
	err      error
}

func (f *fakeRestater) Restate(prompt string) (string, error) {
	return f.response, f.err
}

func TestShapeRestatementFallback(t *testing.T) {
	s := New(&fakeRestater{response: `{"n": 7}`})
	sch := map[string]any{
		"required":   []any{"n"},
		"properties": map[string]any{"n": map[string]any{"type": "integer"}},
	}
	v := s.Shape("the number of widgets is seven", sch)
	m, ok := v.Map()
	require.True(t, ok)
	assert.Equal(t, "7", m["n"].String())
}

func TestShapeRepairsMissingRequiredFields(t *testing.T) {
	s := New(nil)
	sch := map[string]any{
		"required": []any{"name", "count"},
		"properties": map[string]any{
			"name":  map[string]any{"type": "string"},
			"count": map[string]any{"type": "integer"},
		},
	}
	v := s.Shape(`{"name": "widget"}`, sch)
	m, ok := v.Map()
	require.True(t, ok)
	assert.Equal(t, "widget", m["name"].String())
	assert.Equal(t, int64(0), m["count"].Raw())
}

func TestShapeCoercesDateTimeLikeFields(t *testing.T) {
	s := New(nil)
	sch := map[string]any{
		"required":   []any{"seen_at"},
		"properties": map[string]any{"seen_at": map[string]any{"type": "string"}},
	}
	v := s.Shape(`{"seen_at": "2024-01-02 15:04:05"}`, sch)
	m, ok := v.Map()
	require.True(t, ok)
	assert.Equal(t, "2024-01-02T15:04:05Z", m["seen_at"].String())
}

func TestShapeUnrecoverableFallsBackToRawContent(t *testing.T) {
	s := New(nil)
	v := s.Shape("not json at all and no schema", nil)
	m, ok := v.Map()
	require.True(t, ok)
	assert.Contains(t, m["raw_content"].String(), "not json")
}
