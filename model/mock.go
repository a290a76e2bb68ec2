package model

import (
	"context"
	"fmt"
	"strings"
)

// MockProvider is a lightweight in-memory Provider useful for tests & examples.
type MockProvider struct {
	info      Info
	responses map[string]string
	failWith  error
	calls     int
}

// NewMockProvider constructs a MockProvider identified by the given keys.
func NewMockProvider(name, provider string) *MockProvider {
	return &MockProvider{
		info:      Info{Name: name, Provider: provider},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockProvider) AddResponse(prompt, response string) { m.responses[prompt] = response }

// FailWith makes every subsequent Complete call return err. Pass nil to restore.
func (m *MockProvider) FailWith(err error) { m.failWith = err }

// Calls returns how many Complete calls were made.
func (m *MockProvider) Calls() int { return m.calls }

// Complete implements Provider; answers a canned response keyed on the last
// user message, or a generic echo when none is registered.
func (m *MockProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	m.calls++
	if m.failWith != nil {
		return nil, m.failWith
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var input string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			input = req.Messages[i].Content
			break
		}
	}

	content, ok := m.responses[input]
	if !ok {
		content = fmt.Sprintf("Mock response to: %s", input)
	}

	tokensIn := 0
	for _, msg := range req.Messages {
		tokensIn += len(strings.Fields(msg.Content))
	}
	tokensOut := len(strings.Fields(content))

	return &Response{
		Content:      content,
		Model:        req.Model,
		Provider:     m.info.Provider,
		TokensIn:     tokensIn,
		TokensOut:    tokensOut,
		CostUSD:      CostUSD(req.Model, tokensIn, tokensOut),
		FinishReason: "stop",
	}, nil
}

// Info implements Provider.
func (m *MockProvider) Info() Info { return m.info }
