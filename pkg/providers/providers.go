// Package providers wraps the chat completion SDKs behind a single Complete call.
package providers

import (
	"context"
	"fmt"
	"os"
)

// Client completes a prompt. system may be empty.
type Client interface {
	Complete(ctx context.Context, model, prompt, system string) (string, error)
}

type ProviderParams struct {
	BaseURL string
	APIKey  string
}

type ProviderOption func(*ProviderParams)

func WithBaseURL(baseURL string) ProviderOption {
	return func(p *ProviderParams) {
		p.BaseURL = baseURL
	}
}

func WithAPIKey(apiKey string) ProviderOption {
	return func(p *ProviderParams) {
		p.APIKey = apiKey
	}
}

// New builds the client for provider ("openai" or "gemini"), falling back to the
// provider's environment variables for anything opts leave unset.
func New(ctx context.Context, provider string, opts ...ProviderOption) (Client, error) {
	switch provider {
	case "", "openai":
		return OpenAi(ctx, opts...), nil
	case "gemini":
		return Gemini(ctx, opts...)
	}
	return nil, fmt.Errorf("unknown provider %q", provider)
}

func apply(opts []ProviderOption) ProviderParams {
	var params ProviderParams
	for _, opt := range opts {
		opt(&params)
	}
	return params
}

func envOr(value, key string) string {
	if value != "" {
		return value
	}
	return os.Getenv(key)
}
