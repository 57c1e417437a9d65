package llm

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MockProvider implements Provider for testing. It returns a fixed response
// and records the requests it receives.
type MockProvider struct {
	FixedContent  string
	ToolName      string
	ToolArguments string
	PingErr       error
	GenerateErr   error

	mu       sync.Mutex
	requests []Request
}

// NewMockProvider creates a mock provider that answers every tool request
// with a call to toolName carrying arguments.
func NewMockProvider(toolName, arguments string) *MockProvider {
	return &MockProvider{ToolName: toolName, ToolArguments: arguments}
}

func (p *MockProvider) Name() string { return "Mock" }

func (p *MockProvider) Ping(_ context.Context) error {
	return p.PingErr
}

func (p *MockProvider) Generate(_ context.Context, r Request) (*Response, error) {
	p.mu.Lock()
	p.requests = append(p.requests, r)
	p.mu.Unlock()

	if p.GenerateErr != nil {
		return nil, p.GenerateErr
	}
	resp := &Response{
		Content:    p.FixedContent,
		Model:      "mock",
		TokensUsed: 100,
		Duration:   time.Millisecond,
		StopReason: "stop",
	}
	if r.Tool != nil && p.ToolArguments != "" {
		name := p.ToolName
		if name == "" {
			name = r.Tool.Name
		}
		resp.ToolCalls = []ToolCall{{Name: name, Arguments: json.RawMessage(p.ToolArguments)}}
		resp.StopReason = "tool_calls"
	}
	return resp, nil
}

// Requests returns a copy of the requests received so far.
func (p *MockProvider) Requests() []Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Request, len(p.requests))
	copy(out, p.requests)
	return out
}
