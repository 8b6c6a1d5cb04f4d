package llm

import (
	"context"
	"sync"
)

// MockClient is a test double for the LLM Client interface.
// It can also be used for dry-run mode.
//
// When Script is set, the n-th call returns Script[n] (the last entry repeats);
// otherwise every call returns Response and Err.
type MockClient struct {
	Response *Response
	Err      error
	Script   []MockReply

	mu    sync.Mutex
	Calls []string // records prompts sent
}

// MockReply is one scripted answer.
type MockReply struct {
	Content string
	Err     error
}

// Complete records the call and returns the mock response.
func (m *MockClient) Complete(ctx context.Context, prompt string) (*Response, error) {
	m.mu.Lock()
	n := len(m.Calls)
	m.Calls = append(m.Calls, prompt)
	m.mu.Unlock()

	if len(m.Script) == 0 {
		return m.Response, m.Err
	}
	if n >= len(m.Script) {
		n = len(m.Script) - 1
	}
	r := m.Script[n]
	if r.Err != nil {
		return nil, r.Err
	}
	return &Response{Content: r.Content, Provider: "mock"}, nil
}

// CallCount returns how many prompts were sent.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
