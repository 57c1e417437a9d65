package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultOpenAIBaseURL is the OpenAI-compatible gateway used when no base
// URL is configured.
const DefaultOpenAIBaseURL = "https://ai.gateway.lovable.dev/v1"

// DefaultOpenAIModel is the model requested from the default gateway.
const DefaultOpenAIModel = "google/gemini-2.5-flash"

// OpenAIProvider implements Provider for OpenAI and OpenAI-compatible APIs.
type OpenAIProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewOpenAIProvider creates an OpenAI-compatible provider.
// If baseURL is empty, it defaults to the hosted AI gateway.
func NewOpenAIProvider(apiKey, model, baseURL string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIProvider{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

func (p *OpenAIProvider) setTimeout(d time.Duration) {
	if d > 0 {
		p.client.Timeout = d
	}
}

func (p *OpenAIProvider) Name() string { return "OpenAI" }

func (p *OpenAIProvider) Ping(ctx context.Context) error {
	_, err := p.Generate(ctx, Request{
		SystemPrompt: "Respond with OK.",
		UserPrompt:   "ping",
		Options:      Options{Temperature: 0, MaxTokens: 10},
	})
	return err
}

func (p *OpenAIProvider) Generate(ctx context.Context, r Request) (*Response, error) {
	body := map[string]any{
		"model": p.model,
		"messages": []map[string]string{
			{"role": "system", "content": r.SystemPrompt},
			{"role": "user", "content": r.UserPrompt},
		},
	}
	if r.Options.Temperature > 0 {
		body["temperature"] = r.Options.Temperature
	}
	if r.Options.MaxTokens > 0 {
		body["max_tokens"] = r.Options.MaxTokens
	}
	if r.Tool != nil {
		body["tools"] = []map[string]any{toolFunction(r.Tool)}
		body["tool_choice"] = map[string]any{
			"type":     "function",
			"function": map[string]string{"name": r.Tool.Name},
		}
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("llm/openai: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("llm/openai: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm/openai: request failed: %w", err)
	}
	defer resp.Body.Close()
	duration := time.Since(start)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("llm/openai: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{
			Provider:   "OpenAI",
			StatusCode: resp.StatusCode,
		}
		var errResp struct {
			Error struct {
				Type    string `json:"type"`
				Message string `json:"message"`
				Code    string `json:"code"`
			} `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			apiErr.Code = errResp.Error.Code
			if apiErr.Code == "" {
				apiErr.Code = errResp.Error.Type
			}
			apiErr.Message = errResp.Error.Message
		} else {
			apiErr.Message = string(respBody)
		}
		return nil, apiErr
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content   string `json:"content"`
				ToolCalls []struct {
					Function struct {
						Name      string `json:"name"`
						Arguments string `json:"arguments"`
					} `json:"function"`
				} `json:"tool_calls"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Model string `json:"model"`
		Usage struct {
			TotalTokens int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("llm/openai: parse response: %w: %w", ErrMalformedResponse, err)
	}

	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("llm/openai: no choices in response: %w", ErrMalformedResponse)
	}

	choice := result.Choices[0]
	out := &Response{
		Content:    choice.Message.Content,
		Model:      result.Model,
		TokensUsed: result.Usage.TotalTokens,
		Duration:   duration,
		StopReason: choice.FinishReason,
	}
	// OpenAI encodes arguments as a JSON string.
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	return out, nil
}
