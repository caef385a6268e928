package recipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValidRecipe(t *testing.T) {
	data := []byte(`
name: greet
version: "1.0.0"
domain: generic
links:
  - name: Say Hello
    type: llm
    prompt: "hello"
`)

	r, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "greet", r.Name)
	assert.Equal(t, "generic", r.Domain)
	require.Len(t, r.Links, 1)
	assert.Equal(t, "Say Hello", r.Links[0].Name)
	assert.Equal(t, "llm", r.Links[0].Type)
}

func TestParseMissingNameFails(t *testing.T) {
	_, err := Parse([]byte(`version: "1.0.0"`))
	assert.Error(t, err)
}

func TestParseLinkMissingTypeFails(t *testing.T) {
	data := []byte(`
name: greet
links:
  - name: Say Hello
`)
	_, err := Parse(data)
	assert.Error(t, err)
}

func TestParseDuplicateLinkNamesFails(t *testing.T) {
	data := []byte(`
name: greet
links:
  - name: Step
    type: llm
  - name: Step
    type: sql
`)
	_, err := Parse(data)
	assert.Error(t, err)
}

func TestParseJSONVariant(t *testing.T) {
	data := []byte(`{"name": "greet", "links": [{"name": "Step", "type": "llm"}]}`)
	r, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "greet", r.Name)
}

func TestContextKeySanitizesSpaces(t *testing.T) {
	l := Link{Name: "Say Hello World"}
	assert.Equal(t, "Say_Hello_World_output", l.ContextKey())
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "a_b_c", SanitizeName("a b c"))
}

func TestOrderedKeysReturnsMappingFieldOrder(t *testing.T) {
	data := []byte(`
name: form
links:
  - name: Ask
    type: user_input
    inputs:
      first_field:
        type: string
      second_field:
        type: string
      third_field:
        type: string
`)
	r, err := Parse(data)
	require.NoError(t, err)

	keys := r.Links[0].OrderedKeys("inputs")
	assert.Equal(t, []string{"first_field", "second_field", "third_field"}, keys)
}

func TestOrderedKeysReturnsNilForUnknownField(t *testing.T) {
	data := []byte(`
name: form
links:
  - name: Ask
    type: user_input
`)
	r, err := Parse(data)
	require.NoError(t, err)
	assert.Nil(t, r.Links[0].OrderedKeys("inputs"))
}

func TestOutputOrRawPrefersData(t *testing.T) {
	out := Output{Raw: "raw text", Data: NewString("shaped")}
	assert.Equal(t, "shaped", out.OrRaw().Raw())
}

func TestOutputOrRawFallsBackToRawContent(t *testing.T) {
	out := Output{Raw: "raw text"}
	val := out.OrRaw()
	m, ok := val.Map()
	require.True(t, ok)
	assert.Equal(t, "raw text", m["raw_content"].Raw())
}
