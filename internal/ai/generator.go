package ai

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Provider names accepted by NewGenerator
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
)

// Default models per provider. OpenAI is the historical default for duplicate
// comparison; OPENAI_MODEL is honored for compatibility.
const (
	ModelOpenAIDefault    = "gpt-4o"
	ModelAnthropicDefault = "claude-sonnet-4-5-20250929"
	ModelGoogleDefault    = "gemini-2.0-flash"
)

// Completion is the normalized output of a text-generation call
type Completion struct {
	Text         string
	InputTokens  int64
	OutputTokens int64
}

// Generator is a single text-generation backend
type Generator interface {
	// Generate sends one prompt and returns the model's text
	Generate(ctx context.Context, model, prompt string, maxTokens int) (*Completion, error)

	// Name returns the provider identifier
	Name() string
}

// NormalizeProvider maps a provider name or alias to its canonical form.
// An empty name selects OpenAI.
func NormalizeProvider(provider string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case ProviderOpenAI, "":
		return ProviderOpenAI, nil
	case ProviderAnthropic, "claude":
		return ProviderAnthropic, nil
	case ProviderGoogle, "gemini":
		return ProviderGoogle, nil
	default:
		return "", fmt.Errorf("unsupported llm provider: %s", provider)
	}
}

// NewGenerator creates the generator for a provider name
func NewGenerator(ctx context.Context, provider, apiKey string) (Generator, error) {
	name, err := NormalizeProvider(provider)
	if err != nil {
		return nil, err
	}
	switch name {
	case ProviderAnthropic:
		return NewAnthropicGenerator(apiKey)
	case ProviderGoogle:
		return NewGoogleGenerator(ctx, apiKey)
	default:
		return NewOpenAIGenerator(apiKey)
	}
}

// DefaultModel returns the model used when none is configured for a provider
func DefaultModel(provider string) string {
	name, _ := NormalizeProvider(provider)
	switch name {
	case ProviderAnthropic:
		return ModelAnthropicDefault
	case ProviderGoogle:
		return ModelGoogleDefault
	default:
		if model := os.Getenv("OPENAI_MODEL"); model != "" {
			return model
		}
		return ModelOpenAIDefault
	}
}

// APIKeyEnv returns the environment variable holding a provider's key
func APIKeyEnv(provider string) string {
	name, _ := NormalizeProvider(provider)
	switch name {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderGoogle:
		return "GEMINI_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}
