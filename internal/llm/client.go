package llm

import (
	"context"
	"fmt"
)

// Request is a single chat turn: a system instruction plus the user prompt
type Request struct {
	System string
	Prompt string
	Tier   ModelTier
}

// Client is an abstraction over LLM providers
type Client interface {
	// GenerateContent generates text content using the request's model tier
	GenerateContent(ctx context.Context, req Request) (string, error)
	// GenerateJSON generates content and strips markdown fences so the result can be decoded strictly
	GenerateJSON(ctx context.Context, req Request) (string, error)
	// GetModel returns the underlying provider model for a tier
	GetModel(tier ModelTier) string
	// Close releases any resources held by the client
	Close() error
}

// APICallError wraps a failed provider call
type APICallError struct {
	Provider Provider
	Model    string
	Cause    error
}

func (e *APICallError) Error() string {
	return fmt.Sprintf("%s call to %s failed: %v", e.Provider, e.Model, e.Cause)
}

func (e *APICallError) Unwrap() error {
	return e.Cause
}

// NewClient creates a new LLM client based on configuration
func NewClient(ctx context.Context, config *Config, apiKey string) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, config, apiKey)
	case ProviderOpenAI:
		return NewOpenAIClient(config, apiKey)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", config.Provider)
	}
}

// withDeadline applies the per-call timeout unless the caller set a tighter one
func withDeadline(ctx context.Context, config *Config) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, config.timeout())
}
