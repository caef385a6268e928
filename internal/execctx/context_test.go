package execctx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipeforge/internal/recipe"
)

func TestSetThenGet(t *testing.T) {
	c := New()
	out := recipe.Output{Raw: "hi", Data: recipe.NewString("hi")}

	c.Set("Step_output", out)

	got, ok := c.Get("Step_output")
	require.True(t, ok)
	assert.Equal(t, out, got)
}

func TestHasReflectsPresence(t *testing.T) {
	c := New()
	assert.False(t, c.Has("Step_output"))

	c.Set("Step_output", recipe.Output{})
	assert.True(t, c.Has("Step_output"))
}

func TestKeysPreserveInsertionOrder(t *testing.T) {
	c := New()
	c.Set("First_output", recipe.Output{})
	c.Set("Second_output", recipe.Output{})
	c.Set("Third_output", recipe.Output{})

	assert.Equal(t, []string{"First_output", "Second_output", "Third_output"}, c.Keys())
}

func TestSetTwiceDoesNotDuplicateKeyOrder(t *testing.T) {
	c := New()
	c.Set("Step_output", recipe.Output{Raw: "first"})
	c.Set("Step_output", recipe.Output{Raw: "second"})

	assert.Equal(t, []string{"Step_output"}, c.Keys())
	got, _ := c.Get("Step_output")
	assert.Equal(t, "second", got.Raw)
}

func TestAsValueExposesRawAndData(t *testing.T) {
	c := New()
	c.Set("Step_output", recipe.Output{Raw: "raw text", Data: recipe.NewString("shaped")})

	v := c.AsValue()
	m, ok := v.Map()
	require.True(t, ok)

	step, ok := m["Step_output"].Map()
	require.True(t, ok)
	assert.Equal(t, "raw text", step["raw"].Raw())
	assert.Equal(t, "shaped", step["data"].Raw())
}

func TestEnsureSystemTurnSeedsOnlyOnce(t *testing.T) {
	c := New()
	c.EnsureSystemTurn("conv1", "you are a helpful assistant")
	c.EnsureSystemTurn("conv1", "a different system prompt")

	hist := c.Conversation("conv1")
	require.Len(t, hist, 1)
	assert.Equal(t, "you are a helpful assistant", hist[0].Content)
}

func TestEnsureSystemTurnNoopForEmptyPrompt(t *testing.T) {
	c := New()
	c.EnsureSystemTurn("conv1", "")
	assert.Empty(t, c.Conversation("conv1"))
}

func TestAppendConversationPrunesKeepingSystemTurn(t *testing.T) {
	c := New()
	c.EnsureSystemTurn("conv1", "system prompt")

	for i := 0; i < 10; i++ {
		c.AppendConversation("conv1", Message{Role: "user", Content: "turn"}, 3)
	}

	hist := c.Conversation("conv1")
	require.Len(t, hist, 4)
	assert.Equal(t, "system", hist[0].Role)
}

func TestAppendConversationWithoutSystemTurnStaysBounded(t *testing.T) {
	c := New()
	for i := 0; i < 5; i++ {
		c.AppendConversation("conv1", Message{Role: "user", Content: "turn"}, 2)
	}

	hist := c.Conversation("conv1")
	assert.LessOrEqual(t, len(hist), 3)
	assert.Equal(t, "turn", hist[len(hist)-1].Content)
}

func TestAppendConversationNoLimitKeepsEverything(t *testing.T) {
	c := New()
	for i := 0; i < 5; i++ {
		c.AppendConversation("conv1", Message{Role: "user", Content: "turn"}, 0)
	}

	assert.Len(t, c.Conversation("conv1"), 5)
}
