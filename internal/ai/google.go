package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GoogleGenerator implements Generator on the Gemini API
type GoogleGenerator struct {
	client *genai.Client
}

// NewGoogleGenerator creates a Gemini-backed generator
func NewGoogleGenerator(ctx context.Context, apiKey string) (*GoogleGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google API key is required")
	}

	return newGoogleGenerator(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
}

func newGoogleGenerator(ctx context.Context, cfg *genai.ClientConfig) (*GoogleGenerator, error) {
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}
	return &GoogleGenerator{client: client}, nil
}

// Name returns the provider identifier
func (g *GoogleGenerator) Name() string {
	return ProviderGoogle
}

// Generate sends a prompt to Gemini at the same low temperature as the
// other providers
func (g *GoogleGenerator) Generate(ctx context.Context, model, prompt string, maxTokens int) (*Completion, error) {
	cfg := &genai.GenerateContentConfig{Temperature: genai.Ptr[float32](0.2)}
	if maxTokens > 0 {
		cfg.MaxOutputTokens = int32(maxTokens)
	}
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), cfg)
	if err != nil {
		return nil, fmt.Errorf("google API error: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("google returned no candidates")
	}

	var text strings.Builder
	if resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part != nil && part.Text != "" {
				text.WriteString(part.Text)
			}
		}
	}

	completion := &Completion{Text: text.String()}
	if resp.UsageMetadata != nil {
		completion.InputTokens = int64(resp.UsageMetadata.PromptTokenCount)
		completion.OutputTokens = int64(resp.UsageMetadata.CandidatesTokenCount)
	}
	return completion, nil
}
