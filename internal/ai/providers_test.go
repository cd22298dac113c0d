package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openaioption "github.com/openai/openai-go/option"
	"google.golang.org/genai"

	"github.com/spacebridge/spacebridge-mcp/internal/types"
)

// unavailableServer answers every request with 503 and counts them
func unavailableServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"type":"overloaded_error","message":"try later"}}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestProviderClientsDoNotRetry(t *testing.T) {
	tests := []struct {
		name string
		gen  func(baseURL string) (Generator, error)
	}{
		{
			name: "openai",
			gen: func(baseURL string) (Generator, error) {
				return NewOpenAIGenerator("sk-test", openaioption.WithBaseURL(baseURL+"/"))
			},
		},
		{
			name: "anthropic",
			gen: func(baseURL string) (Generator, error) {
				return NewAnthropicGenerator("sk-test", anthropicoption.WithBaseURL(baseURL+"/"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, hits := unavailableServer(t)
			gen, err := tt.gen(srv.URL)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			if _, err := gen.Generate(context.Background(), "test-model", "prompt", 16); err == nil {
				t.Fatal("Expected error from 503 response")
			}
			if got := hits.Load(); got != 1 {
				t.Errorf("Expected 1 HTTP request, got %d", got)
			}
		})
	}
}

func TestCompareIssuesSingleRequestWithoutRetries(t *testing.T) {
	srv, hits := unavailableServer(t)
	gen, err := NewOpenAIGenerator("sk-test", openaioption.WithBaseURL(srv.URL+"/"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	s := newTestSupervisor(t, gen, fastRetry(0))

	_, err = s.CompareIssues(context.Background(),
		types.IssueDraft{Title: "Login fails"},
		types.CandidateIssue{ID: "SB-1", Title: "Login broken", SimilarityScore: 0.8})
	if err == nil {
		t.Fatal("Expected provider error")
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("Expected 1 HTTP request with MaxRetries=0, got %d", got)
	}
}

func TestGoogleGeneratorSendsGenerationConfig(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"NOT_DUPLICATE"}]}}],
			"usageMetadata":{"promptTokenCount":12,"candidatesTokenCount":3}}`))
	}))
	defer srv.Close()

	gen, err := newGoogleGenerator(context.Background(), &genai.ClientConfig{
		APIKey:      "test-key",
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: srv.URL + "/"},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	completion, err := gen.Generate(context.Background(), "gemini-test", "prompt", 64)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if completion.Text != "NOT_DUPLICATE" {
		t.Errorf("Expected NOT_DUPLICATE, got %q", completion.Text)
	}
	if completion.OutputTokens != 3 {
		t.Errorf("Expected 3 output tokens, got %d", completion.OutputTokens)
	}

	genCfg, ok := body["generationConfig"].(map[string]any)
	if !ok {
		t.Fatalf("Request has no generationConfig: %v", body)
	}
	if got := genCfg["maxOutputTokens"]; got != float64(64) {
		t.Errorf("Expected maxOutputTokens 64, got %v", got)
	}
	if got, _ := genCfg["temperature"].(float64); got < 0.19 || got > 0.21 {
		t.Errorf("Expected temperature 0.2, got %v", genCfg["temperature"])
	}
}
