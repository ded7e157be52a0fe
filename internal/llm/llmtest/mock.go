// Package llmtest provides a scriptable llm.Client for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/maniishbhusal/TrustChain/internal/llm"
)

// MockClient implements llm.Client with optional function fields and records every request
type MockClient struct {
	GenerateContentFunc func(ctx context.Context, req llm.Request) (string, error)
	GenerateJSONFunc    func(ctx context.Context, req llm.Request) (string, error)

	mu       sync.Mutex
	requests []llm.Request
}

// Returning builds a mock whose GenerateJSON always yields out, err
func Returning(out string, err error) *MockClient {
	return &MockClient{
		GenerateJSONFunc: func(context.Context, llm.Request) (string, error) {
			return out, err
		},
	}
}

func (m *MockClient) record(req llm.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
}

// GenerateContent implements llm.Client
func (m *MockClient) GenerateContent(ctx context.Context, req llm.Request) (string, error) {
	m.record(req)
	if m.GenerateContentFunc != nil {
		return m.GenerateContentFunc(ctx, req)
	}
	return "", nil
}

// GenerateJSON implements llm.Client
func (m *MockClient) GenerateJSON(ctx context.Context, req llm.Request) (string, error) {
	m.record(req)
	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, req)
	}
	return "[]", nil
}

// GetModel implements llm.Client
func (m *MockClient) GetModel(llm.ModelTier) string {
	return "mock-model"
}

// Close implements llm.Client
func (m *MockClient) Close() error {
	return nil
}

// Requests returns a copy of the recorded requests
func (m *MockClient) Requests() []llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.Request(nil), m.requests...)
}

// Calls returns how many requests were made
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}
