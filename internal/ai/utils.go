package ai

import (
	"context"
	"fmt"
	"log"
	"time"
	"unicode/utf8"
)

// defaultMaxTokens is used when a caller passes zero
const defaultMaxTokens = 1024

// CallAI makes a generic model call with the given prompt. Every call goes
// through the supervisor's limiter, semaphore, circuit breaker and retry loop.
// Failures are wrapped in ErrProviderCall.
func (s *Supervisor) CallAI(ctx context.Context, prompt string, operation string, model string, maxTokens int) (string, error) {
	startTime := time.Now()

	if model == "" {
		model = s.model
	}
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	var completion *Completion
	err := s.retryWithBackoff(ctx, operation, func(attemptCtx context.Context) error {
		resp, apiErr := s.generator.Generate(attemptCtx, model, prompt, maxTokens)
		if apiErr != nil {
			return apiErr
		}
		completion = resp
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s %s: %w", ErrProviderCall, s.generator.Name(), operation, err)
	}

	log.Printf("[AI] %s call via %s: input=%d tokens, output=%d tokens, duration=%v",
		operation, s.generator.Name(), completion.InputTokens, completion.OutputTokens, time.Since(startTime))

	return completion.Text, nil
}

// safeTruncateString truncates a string to maxLen bytes while preserving UTF-8 encoding
// If truncation would split a multi-byte UTF-8 sequence, it backs off to a valid boundary
func safeTruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}

	truncated := s[:maxLen]

	// A UTF-8 sequence is at most 4 bytes
	for i := 0; i < 4 && len(truncated) > 0; i++ {
		if utf8.ValidString(truncated) {
			return truncated
		}
		truncated = truncated[:len(truncated)-1]
	}

	return ""
}
