// Package execctx implements the execution context described in spec.md
// §3.4: the mapping of linkName_output -> {raw, data} built up during one
// recipe run, plus per-conversation message histories. One Context is
// owned by exactly one execution; Context is not safe for concurrent use
// from more than one worker (spec §5 "must not share mutable state").
package execctx

import (
	"recipeforge/internal/recipe"
)

// MetadataKey is the reserved context key holding run metadata (spec §4.6
// step 6): {name, version, link_count, completed_links}.
const MetadataKey = "_meta"

// Message is one turn in a conversation history (spec §3.4, §4.4 llm).
type Message struct {
	Role    string
	Content string
}

// Context is the mapping the executor builds and the template engine
// reads from.
type Context struct {
	outputs       map[string]recipe.Output
	order         []string
	conversations map[string][]Message
}

// New returns an empty Context, as described by spec §3.6 "born empty".
func New() *Context {
	return &Context{
		outputs:       make(map[string]recipe.Output),
		conversations: make(map[string][]Message),
	}
}

// Set stores a link's output under its context key.
func (c *Context) Set(key string, out recipe.Output) {
	if _, exists := c.outputs[key]; !exists {
		c.order = append(c.order, key)
	}
	c.outputs[key] = out
}

// Get returns a link's output and whether it is present.
func (c *Context) Get(key string) (recipe.Output, bool) {
	out, ok := c.outputs[key]
	return out, ok
}

// Has reports whether a key is present (i.e. the link ran).
func (c *Context) Has(key string) bool {
	_, ok := c.outputs[key]
	return ok
}

// Keys returns the context keys in insertion order.
func (c *Context) Keys() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// AsValue renders the whole context as a recipe.Value tree, the object
// that template placeholder resolution walks.
func (c *Context) AsValue() recipe.Value {
	m := make(map[string]recipe.Value, len(c.outputs))
	for k, out := range c.outputs {
		m[k] = recipe.NewMap(map[string]recipe.Value{
			"raw":  recipe.NewString(out.Raw),
			"data": out.Data,
		})
	}
	return recipe.NewMap(m)
}

// Conversation returns the message history for an id (nil if none). It
// does not create or seed the history.
func (c *Context) Conversation(id string) []Message {
	return c.conversations[id]
}

// AppendConversation appends a turn to a conversation history and prunes
// it to the most recent `limit` turns plus the leading system turn (spec
// §4.4 llm: "default 15").
func (c *Context) AppendConversation(id string, msg Message, limit int) {
	hist := c.conversations[id]
	hist = append(hist, msg)
	c.conversations[id] = prune(hist, limit)
}

// EnsureSystemTurn seeds a conversation's history with a system message if
// it doesn't have one yet.
func (c *Context) EnsureSystemTurn(id, systemPrompt string) {
	if len(c.conversations[id]) > 0 || systemPrompt == "" {
		return
	}
	c.conversations[id] = []Message{{Role: "system", Content: systemPrompt}}
}

func prune(hist []Message, limit int) []Message {
	if limit <= 0 || len(hist) <= limit+1 {
		return hist
	}
	var system *Message
	rest := hist
	if len(hist) > 0 && hist[0].Role == "system" {
		s := hist[0]
		system = &s
		rest = hist[1:]
	}
	if len(rest) > limit {
		rest = rest[len(rest)-limit:]
	}
	if system != nil {
		return append([]Message{*system}, rest...)
	}
	return rest
}
