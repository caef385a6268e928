package links

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"
)

// Message is one chat turn, independent of execctx.Message to keep this
// file importable without the execctx dependency in tests.
type Message struct {
	Role    string
	Content string
}

// LLMClient is the narrow interface the llm handler depends on,
// generalized from internal/types/interfaces.go's LLMClient so that a
// fake can stand in during tests.
type LLMClient interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// GenAIClient implements LLMClient against Google's Gemini API, grounded
// on blackcoderx-falcon/pkg/llm/gemini.go.
type GenAIClient struct {
	client *genai.Client
	model  string
}

// NewGenAIClient creates a Gemini-backed LLM client.
func NewGenAIClient(ctx context.Context, apiKey, model string) (*GenAIClient, error) {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: create genai client: %w", err)
	}
	return &GenAIClient{client: client, model: model}, nil
}

func (c *GenAIClient) convert(messages []Message) (string, []*genai.Content) {
	var system string
	var contents []*genai.Content
	for _, m := range messages {
		if m.Role == "system" {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		role := m.Role
		if role == "assistant" {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(m.Content)},
		})
	}
	return system, contents
}

// Chat sends the full message history to the model and returns its reply.
func (c *GenAIClient) Chat(ctx context.Context, messages []Message) (string, error) {
	system, contents := c.convert(messages)

	var cfg *genai.GenerateContentConfig
	if system != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{genai.NewPartFromText(system)},
			},
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("llm: generate content (model=%s): %w", c.model, err)
	}
	return resp.Text(), nil
}

// Restate implements shaper.Restater: a single-shot, temperature-0 call
// used by the output shaper's schema-guided restatement fallback
// (spec §4.5 step 8).
func (c *GenAIClient) Restate(prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	temp := float32(0)
	cfg := &genai.GenerateContentConfig{Temperature: &temp}
	contents := []*genai.Content{{Role: "user", Parts: []*genai.Part{genai.NewPartFromText(prompt)}}}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("llm: restate: %w", err)
	}
	return resp.Text(), nil
}
