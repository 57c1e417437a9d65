// Package llm provides model providers that produce structured output via a
// single forced tool call.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotConfigured is returned when no provider credential is configured.
var ErrNotConfigured = errors.New("llm: AI provider not configured")

// ErrMalformedResponse is returned when a successful upstream response
// cannot be decoded or carries no message.
var ErrMalformedResponse = errors.New("llm: malformed response")

// Provider is the interface for LLM backends.
type Provider interface {
	// Generate sends a system prompt and user prompt to the LLM. When
	// req.Tool is set the provider forces a call to that tool and returns
	// its arguments in Response.ToolCalls.
	Generate(ctx context.Context, req Request) (*Response, error)

	// Ping validates connectivity and credentials. Returns nil if the
	// provider is reachable and authenticated.
	Ping(ctx context.Context) error

	// Name returns the display name of this provider (e.g. "OpenAI", "Anthropic").
	Name() string
}

// Options controls LLM generation behavior.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Tool describes a function the model must call. Parameters is a JSON
// schema object.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Request is one model invocation.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Tool         *Tool
	Options      Options
}

// ToolCall is a tool invocation returned by the model. Arguments is the raw
// JSON object the model produced.
type ToolCall struct {
	Name      string
	Arguments json.RawMessage
}

// Response holds the LLM's output.
type Response struct {
	Content    string
	ToolCalls  []ToolCall
	Model      string
	TokensUsed int
	Duration   time.Duration
	StopReason string
}

// FirstToolCall returns the first call to the named tool, or nil.
func (r *Response) FirstToolCall(name string) *ToolCall {
	if r == nil {
		return nil
	}
	for i := range r.ToolCalls {
		if r.ToolCalls[i].Name == name {
			return &r.ToolCalls[i]
		}
	}
	return nil
}

// Config selects and configures a provider.
type Config struct {
	Provider string // "openai", "anthropic" or "ollama"
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}

// NewProvider creates a Provider from cfg. Hosted providers require an API
// key; ErrNotConfigured is returned without one.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "", "openai":
		if cfg.APIKey == "" {
			return nil, ErrNotConfigured
		}
		p := NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.BaseURL)
		p.setTimeout(cfg.Timeout)
		return p, nil
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, ErrNotConfigured
		}
		p := NewAnthropicProvider(cfg.APIKey, cfg.Model)
		p.setTimeout(cfg.Timeout)
		return p, nil
	case "ollama":
		p := NewOllamaProvider(cfg.BaseURL, cfg.Model)
		p.setTimeout(cfg.Timeout)
		return p, nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}

// toolFunction renders a tool in the OpenAI function-calling shape, which
// Ollama also accepts.
func toolFunction(t *Tool) map[string]any {
	return map[string]any{
		"type": "function",
		"function": map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"parameters":  t.Parameters,
		},
	}
}
