package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacebridge/spacebridge-mcp/internal/types"
)

func TestParseDuplicateVerdict(t *testing.T) {
	tests := []struct {
		name           string
		input          string
		wantDuplicate  bool
		wantConfidence *float64
		wantMatchedID  string
		wantErr        bool
	}{
		{
			name:           "json duplicate",
			input:          `{"is_duplicate": true, "confidence": 0.92, "reasoning": "same crash"}`,
			wantDuplicate:  true,
			wantConfidence: ptr(0.92),
		},
		{
			name:           "json not duplicate in fences",
			input:          "```json\n{\"is_duplicate\": false, \"confidence\": 0.1}\n```",
			wantDuplicate:  false,
			wantConfidence: ptr(0.1),
		},
		{
			name:          "json without confidence",
			input:         `{"is_duplicate": true}`,
			wantDuplicate: true,
		},
		{
			name:    "json missing is_duplicate",
			input:   `{"confidence": 0.5}`,
			wantErr: true,
		},
		{
			name:    "json is_duplicate as string",
			input:   `{"is_duplicate": "yes", "confidence": 0.5}`,
			wantErr: true,
		},
		{
			name:    "json confidence out of range",
			input:   `{"is_duplicate": true, "confidence": 1.5}`,
			wantErr: true,
		},
		{
			name:    "json negative confidence",
			input:   `{"is_duplicate": false, "confidence": -0.1}`,
			wantErr: true,
		},
		{name: "token DUPLICATE", input: "DUPLICATE", wantDuplicate: true},
		{name: "token with id", input: "DUPLICATE: SB-42", wantDuplicate: true, wantMatchedID: "SB-42"},
		{name: "token lowercase yes", input: "  yes\n", wantDuplicate: true},
		{name: "token TRUE", input: "True", wantDuplicate: true},
		{name: "token NOT_DUPLICATE", input: "NOT_DUPLICATE", wantDuplicate: false},
		{name: "token NOT DUPLICATE", input: "not duplicate", wantDuplicate: false},
		{name: "token no with period", input: "No.", wantDuplicate: false},
		{name: "token FALSE", input: "false", wantDuplicate: false},
		{name: "prose", input: "It is probably a duplicate of the other one", wantErr: true},
		{name: "maybe", input: "MAYBE", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "token inside sentence", input: "Answer: DUPLICATE", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ParseDuplicateVerdict(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrUnparseableResponse)
				assert.Nil(t, resp)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDuplicate, resp.IsDuplicate)
			assert.Equal(t, tt.wantMatchedID, resp.MatchedID)
			if tt.wantConfidence == nil {
				assert.Nil(t, resp.Confidence)
			} else {
				require.NotNil(t, resp.Confidence)
				assert.InDelta(t, *tt.wantConfidence, *resp.Confidence, 1e-9)
			}
		})
	}
}

func TestCompareIssues(t *testing.T) {
	draft := types.IssueDraft{Title: "Login button does nothing", Description: "Clicking sign in on Safari has no effect"}
	candidate := types.CandidateIssue{ID: "SB-7", Title: "Sign-in broken on Safari", Description: "No response on click", SimilarityScore: 0.81}

	t.Run("parses reply and builds prompt from both issues", func(t *testing.T) {
		gen := &scriptedGenerator{replies: []string{`{"is_duplicate": true, "confidence": 0.9, "reasoning": "same bug"}`}}
		s := newTestSupervisor(t, gen, fastRetry(0))

		resp, err := s.CompareIssues(context.Background(), draft, candidate)
		require.NoError(t, err)
		assert.True(t, resp.IsDuplicate)
		assert.Equal(t, "same bug", resp.Reasoning)

		require.Len(t, gen.prompts, 1)
		prompt := gen.prompts[0]
		assert.Contains(t, prompt, draft.Title)
		assert.Contains(t, prompt, draft.Description)
		assert.Contains(t, prompt, "SB-7")
		assert.Contains(t, prompt, candidate.Title)
		assert.Contains(t, prompt, "0.81")
	})

	t.Run("provider failure wraps ErrProviderCall", func(t *testing.T) {
		gen := &scriptedGenerator{errs: []error{errors.New("401 unauthorized")}}
		s := newTestSupervisor(t, gen, fastRetry(0))

		_, err := s.CompareIssues(context.Background(), draft, candidate)
		assert.ErrorIs(t, err, ErrProviderCall)
		assert.NotErrorIs(t, err, ErrUnparseableResponse)
	})

	t.Run("echoed id must be the compared candidate", func(t *testing.T) {
		tests := []struct {
			reply   string
			wantErr bool
		}{
			{reply: "DUPLICATE: SB-7", wantErr: false},
			{reply: "duplicate: sb-7", wantErr: false},
			{reply: "DUPLICATE: SB-99", wantErr: true},
		}
		for _, tt := range tests {
			gen := &scriptedGenerator{replies: []string{tt.reply}}
			s := newTestSupervisor(t, gen, fastRetry(0))

			resp, err := s.CompareIssues(context.Background(), draft, candidate)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnparseableResponse, tt.reply)
				continue
			}
			require.NoError(t, err, tt.reply)
			assert.True(t, resp.IsDuplicate)
		}
	})

	t.Run("garbage reply is unparseable", func(t *testing.T) {
		gen := &scriptedGenerator{replies: []string{"I cannot decide"}}
		s := newTestSupervisor(t, gen, fastRetry(0))

		_, err := s.CompareIssues(context.Background(), draft, candidate)
		assert.ErrorIs(t, err, ErrUnparseableResponse)
	})

	t.Run("long descriptions are bounded", func(t *testing.T) {
		gen := &scriptedGenerator{replies: []string{"NOT_DUPLICATE"}}
		s := newTestSupervisor(t, gen, fastRetry(0))

		long := types.IssueDraft{Title: "t", Description: strings.Repeat("x", maxPromptDescription*2)}
		_, err := s.CompareIssues(context.Background(), long, candidate)
		require.NoError(t, err)
		assert.Less(t, len(gen.prompts[0]), maxPromptDescription*2)
	})
}

func ptr(f float64) *float64 {
	return &f
}
