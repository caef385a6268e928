package links

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"recipeforge/internal/execctx"
	"recipeforge/internal/recipe"
	"recipeforge/internal/registry"
	"recipeforge/internal/schema"
	"recipeforge/internal/shaper"
	"recipeforge/internal/template"
)

// LLMHandler implements the `llm` built-in (spec §4.4).
type LLMHandler struct {
	Client       LLMClient
	Registry     *registry.Registry
	SchemaReg    *schema.Registry
	HistoryLimit int
}

// NewLLMHandler constructs an llm handler. historyLimit is the default
// conversation pruning depth (spec §4.4: "default 15").
func NewLLMHandler(client LLMClient, reg *registry.Registry, schemaReg *schema.Registry, historyLimit int) *LLMHandler {
	if historyLimit <= 0 {
		historyLimit = 15
	}
	return &LLMHandler{Client: client, Registry: reg, SchemaReg: schemaReg, HistoryLimit: historyLimit}
}

func (h *LLMHandler) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"prompt":         map[string]any{"type": "string"},
			"template":       map[string]any{"type": "object"},
			"model":          map[string]any{"type": "string"},
			"temperature":    map[string]any{"type": "number"},
			"max_tokens":     map[string]any{"type": "integer"},
			"conversation":   map[string]any{"type": "string"},
			"system":         map[string]any{"type": "string"},
			"output_schema":  map[string]any{"type": "object"},
		},
	}
}

// Execute resolves the prompt (inline or file template), runs it through
// the configured LLM client — threading conversation history when
// requested — and shapes the reply against output_schema if declared.
func (h *LLMHandler) Execute(ctx context.Context, link recipe.Link, cfg map[string]any, ec *execctx.Context) (recipe.Output, error) {
	prompt, _ := cfg["prompt"].(string)
	tmplDecl, hasTemplate := cfg["template"].(map[string]any)

	if prompt == "" && !hasTemplate {
		return recipe.Output{}, fmt.Errorf("%w: 'prompt' or 'template'", ErrMissingField)
	}
	if prompt != "" && hasTemplate {
		return recipe.Output{}, fmt.Errorf("%w: 'prompt' and 'template'", ErrAmbiguousField)
	}

	resolvedPrompt := prompt
	if hasTemplate {
		rendered, err := h.resolveTemplate(tmplDecl, ec)
		if err != nil {
			return recipe.Output{}, err
		}
		resolvedPrompt = rendered
	}

	conversation, _ := cfg["conversation"].(string)
	system, _ := cfg["system"].(string)

	var history []Message
	isolated := conversation == "" || conversation == "none"

	if !isolated {
		ec.EnsureSystemTurn(conversation, system)
		for _, m := range ec.Conversation(conversation) {
			history = append(history, Message{Role: m.Role, Content: m.Content})
		}
	} else if system != "" {
		history = append(history, Message{Role: "system", Content: system})
	}
	history = append(history, Message{Role: "user", Content: resolvedPrompt})

	reply, err := h.Client.Chat(ctx, history)
	if err != nil {
		return recipe.Output{}, err
	}

	if !isolated {
		ec.AppendConversation(conversation, execctx.Message{Role: "user", Content: resolvedPrompt}, h.HistoryLimit)
		ec.AppendConversation(conversation, execctx.Message{Role: "assistant", Content: reply}, h.HistoryLimit)
	}

	out := recipe.Output{Raw: reply}

	if schemaDecl, ok := cfg["output_schema"].(map[string]any); ok {
		shapeSchema, validateAgainst := h.SchemaReg.Resolve(schemaDecl)
		s := shaper.New(restaterOf(h.Client))
		shaped := s.Shape(reply, shapeSchema)
		if validateAgainst != nil {
			if ok, _ := h.SchemaReg.Validate(shaped.Raw(), validateAgainst); !ok {
				shaped = recipe.NewMap(map[string]recipe.Value{"raw_content": recipe.NewString(reply)})
			}
		}
		out.Data = shaped
	}

	return out, nil
}

// restaterOf adapts an LLMClient to shaper.Restater when it implements the
// optional Restate method (the genai client does); otherwise shaping
// degrades to skip strategy 8.
func restaterOf(c LLMClient) shaper.Restater {
	if r, ok := c.(shaper.Restater); ok {
		return r
	}
	return nil
}

func (h *LLMHandler) resolveTemplate(decl map[string]any, ec *execctx.Context) (string, error) {
	ref, _ := decl["file"].(string)
	if ref == "" {
		ref, _ = decl["name"].(string)
	}
	if ref == "" {
		return "", fmt.Errorf("%w: 'template.file'", ErrMissingField)
	}

	path, err := h.resolveTemplatePath(ref)
	if err != nil {
		return "", err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("links: read template %s: %w", path, err)
	}

	inputs, _ := decl["inputs"].(map[string]any)
	engine := template.New()
	renderedInputs := make(map[string]recipe.Value, len(inputs))
	for k, v := range inputs {
		if s, ok := v.(string); ok {
			renderedInputs[k] = engine.RenderValue(s, ec.AsValue())
		} else {
			renderedInputs[k] = recipe.NewValue(v)
		}
	}

	inputCtx := recipe.NewMap(renderedInputs)
	return engine.Render(string(content), inputCtx), nil
}

var textExtensions = []string{".txt", ".md", ".j2"}

// resolveTemplatePath searches the registered text-template directories for
// a dotted "<domain>.<name>" reference or a direct path (spec §4.1, §4.4).
func (h *LLMHandler) resolveTemplatePath(ref string) (string, error) {
	if _, err := os.Stat(ref); err == nil {
		return ref, nil
	}

	for _, dir := range h.Registry.TemplateDirs(registry.TemplateKindText) {
		for _, ext := range textExtensions {
			candidate := filepath.Join(dir, ref+ext)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
		candidate := filepath.Join(dir, ref)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("links: template not found: %s", ref)
}
