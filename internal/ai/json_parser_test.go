package ai

import (
	"strings"
	"testing"
)

type testVerdict struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func TestParse_DirectJSON(t *testing.T) {
	result := Parse[testVerdict](`{"success": true, "message": "hello"}`)

	if !result.Success {
		t.Fatalf("Expected successful parse, got error: %s", result.Error)
	}
	if !result.Data.Success {
		t.Error("Expected success=true")
	}
	if result.Data.Message != "hello" {
		t.Errorf("Expected message='hello', got '%s'", result.Data.Message)
	}
}

func TestParse_EmptyInput(t *testing.T) {
	result := Parse[testVerdict]("   ")

	if result.Success {
		t.Error("Expected parse to fail on empty input")
	}
	if result.Error != "empty input" {
		t.Errorf("Expected 'empty input' error, got: %s", result.Error)
	}
}

func TestParse_WithCodeFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "json fence",
			input: "```json\n" + `{"success": true, "message": "fenced"}` + "\n```",
		},
		{
			name:  "generic fence",
			input: "```\n" + `{"success": true, "message": "fenced"}` + "\n```",
		},
		{
			name:  "fence without newlines",
			input: "```json" + `{"success": true, "message": "fenced"}` + "```",
		},
		{
			name:  "fence with preamble",
			input: "Here's the result:\n```json\n" + `{"success": true, "message": "fenced"}` + "\n```\nThat's it!",
		},
		{
			name:  "single backticks",
			input: "`" + `{"success": true, "message": "fenced"}` + "`",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Parse[testVerdict](tt.input)
			if !result.Success {
				t.Fatalf("Expected successful parse, got error: %s", result.Error)
			}
			if !result.Data.Success || result.Data.Message != "fenced" {
				t.Errorf("Unexpected data: %+v", result.Data)
			}
		})
	}
}

func TestParse_Cleanup(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "trailing comma",
			input: `{"success": true, "message": "ok",}`,
		},
		{
			name:  "unquoted keys",
			input: `{success: true, message: "ok"}`,
		},
		{
			name:  "line comment",
			input: "{\n  // model chatter\n  \"success\": true,\n  \"message\": \"ok\"\n}",
		},
		{
			name:  "block comment",
			input: `{"success": true, /* sure */ "message": "ok"}`,
		},
		{
			name:  "prose around object",
			input: `I compared them. {"success": true, "message": "ok"} Hope that helps.`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Parse[testVerdict](tt.input)
			if !result.Success {
				t.Fatalf("Expected successful parse, got error: %s", result.Error)
			}
			if result.Data.Message != "ok" {
				t.Errorf("Expected message='ok', got '%s'", result.Data.Message)
			}
		})
	}
}

func TestParse_URLInStringSurvivesCleanup(t *testing.T) {
	result := Parse[testVerdict](`{"success": true, "message": "see https://example.com/x",}`)
	if !result.Success {
		t.Fatalf("Expected successful parse, got error: %s", result.Error)
	}
	if result.Data.Message != "see https://example.com/x" {
		t.Errorf("URL was mangled: %q", result.Data.Message)
	}
}

func TestParse_CleanupDisabled(t *testing.T) {
	result := Parse[testVerdict]("```json\n{\"success\": true}\n```", ParseOptions{Cleanup: boolPtr(false)})
	if result.Success {
		t.Error("Expected failure with cleanup disabled")
	}
}

func TestParse_SizeLimit(t *testing.T) {
	input := `{"message": "` + strings.Repeat("x", 200) + `"}`
	result := Parse[testVerdict](input, ParseOptions{MaxInputSize: 100, Context: "limit"})
	if result.Success {
		t.Fatal("Expected failure for oversized input")
	}
	if !strings.HasPrefix(result.Error, "limit: input exceeds size limit") {
		t.Errorf("Unexpected error: %s", result.Error)
	}
}

func TestParse_ContextPrefix(t *testing.T) {
	result := Parse[testVerdict]("not json at all", ParseOptions{Context: "duplicate check"})
	if result.Success {
		t.Fatal("Expected failure")
	}
	if result.Error != "duplicate check: all JSON parsing strategies failed" {
		t.Errorf("Unexpected error: %s", result.Error)
	}
	if result.OriginalText != "not json at all" {
		t.Errorf("OriginalText not preserved: %q", result.OriginalText)
	}
}

func TestExtractJSON_PrefersArrayWhenLeading(t *testing.T) {
	got := extractJSON(`[{"id": 1}, {"id": 2}]`)
	if got != `[{"id": 1}, {"id": 2}]` {
		t.Errorf("Expected full array, got %s", got)
	}
	if extractJSON("no json here") != "" {
		t.Error("Expected empty extraction")
	}
}
