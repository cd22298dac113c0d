package ai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIGenerator implements Generator on the OpenAI chat completions API
type OpenAIGenerator struct {
	client openai.Client
}

// NewOpenAIGenerator creates an OpenAI-backed generator. SDK retries are
// disabled: the Supervisor's RetryConfig is the only retry layer.
func NewOpenAIGenerator(apiKey string, opts ...option.RequestOption) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	client := openai.NewClient(opts...)
	return &OpenAIGenerator{client: client}, nil
}

// Name returns the provider identifier
func (g *OpenAIGenerator) Name() string {
	return ProviderOpenAI
}

// Generate sends a prompt to OpenAI. Temperature is kept low since callers
// expect short, machine-readable answers.
func (g *OpenAIGenerator) Generate(ctx context.Context, model, prompt string, maxTokens int) (*Completion, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
		Temperature:         openai.Float(0.2),
	})
	if err != nil {
		return nil, fmt.Errorf("openai API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	return &Completion{
		Text:         resp.Choices[0].Message.Content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}
