// Package langchain adapts langchaingo chat models to llm.Client so Gemini
// and local Ollama models can stand in for OpenAI.
package langchain

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"

	"docinsight-backend/internal/llm"
)

const (
	defaultGeminiModel = "gemini-1.5-flash"
	defaultOllamaModel = "llama3.1"
	temperature        = 0.2
)

// Client implements llm.Client over any llms.Model.
type Client struct {
	model    llms.Model
	provider string
	// foldSystem merges system turns into the first human turn for models
	// that reject a system role.
	foldSystem bool
}

// New wraps an existing model. Used by tests and by the constructors below.
func New(model llms.Model, provider string, foldSystem bool) *Client {
	return &Client{model: model, provider: provider, foldSystem: foldSystem}
}

func NewGemini(ctx context.Context, apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		model = defaultGeminiModel
	}
	m, err := googleai.New(ctx, googleai.WithAPIKey(apiKey), googleai.WithDefaultModel(model))
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}
	return New(m, "gemini", true), nil
}

func NewOllama(serverURL, model string) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		model = defaultOllamaModel
	}
	m, err := ollama.New(ollama.WithModel(model), ollama.WithServerURL(serverURL))
	if err != nil {
		return nil, fmt.Errorf("ollama init: %w", err)
	}
	return New(m, "ollama", false), nil
}

func (c *Client) Provider() string { return c.provider }

func (c *Client) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	resp, err := c.model.GenerateContent(ctx, c.convert(messages), llms.WithTemperature(temperature))
	if err != nil {
		return "", fmt.Errorf("%s: %w", c.provider, err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", fmt.Errorf("%s response missing choices: %w", c.provider, llm.ErrEmptyResponse)
	}
	content := strings.TrimSpace(resp.Choices[0].Content)
	if content == "" {
		return "", fmt.Errorf("%s response empty content: %w", c.provider, llm.ErrEmptyResponse)
	}
	return content, nil
}

func (c *Client) convert(messages []llm.Message) []llms.MessageContent {
	if c.foldSystem {
		system, rest := llm.SplitSystem(messages)
		out := make([]llms.MessageContent, 0, len(rest))
		folded := system == ""
		for _, m := range rest {
			text := m.Content
			if !folded && m.Role == llm.RoleUser {
				text = system + "\n\n" + text
				folded = true
			}
			out = append(out, llms.TextParts(messageType(m.Role), text))
		}
		if !folded {
			out = append([]llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, system)}, out...)
		}
		return out
	}
	out := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		out = append(out, llms.TextParts(messageType(m.Role), m.Content))
	}
	return out
}

func messageType(role string) llms.ChatMessageType {
	switch role {
	case llm.RoleSystem:
		return llms.ChatMessageTypeSystem
	case llm.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

var _ llm.Client = (*Client)(nil)
