package deduplication

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacebridge/spacebridge-mcp/internal/ai"
	"github.com/spacebridge/spacebridge-mcp/internal/types"
)

// fakeComparer answers per candidate ID and records the order of calls
type fakeComparer struct {
	mu        sync.Mutex
	verdicts  map[string]bool
	conf      map[string]float64
	errs      map[string]error
	delay     time.Duration
	calls     []string
	deadlines []bool
}

func (f *fakeComparer) CompareIssues(ctx context.Context, draft types.IssueDraft, candidate types.CandidateIssue) (*ai.DuplicateCheckResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, candidate.ID)
	_, hasDeadline := ctx.Deadline()
	f.deadlines = append(f.deadlines, hasDeadline)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := f.errs[candidate.ID]; ok {
		return nil, err
	}
	resp := &ai.DuplicateCheckResponse{IsDuplicate: f.verdicts[candidate.ID], Reasoning: "fake"}
	if c, ok := f.conf[candidate.ID]; ok {
		resp.Confidence = &c
	}
	return resp, nil
}

func (f *fakeComparer) callOrder() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func thresholdConfig(threshold float64) Config {
	cfg := DefaultConfig()
	cfg.SimilarityThreshold = threshold
	cfg.SemanticJudgeEnabled = false
	return cfg
}

func semanticConfig() Config {
	cfg := DefaultConfig()
	cfg.SemanticJudgeEnabled = true
	cfg.RequestTimeout = time.Second
	return cfg
}

func candidate(id string, score float64) types.CandidateIssue {
	return types.CandidateIssue{ID: id, Title: "issue " + id, SimilarityScore: score}
}

var testDraft = types.IssueDraft{Title: "Login button does nothing", Description: "Safari only"}

func TestNewDetector(t *testing.T) {
	t.Run("rejects invalid config", func(t *testing.T) {
		cfg := thresholdConfig(1.5)
		_, err := NewDetector(cfg, nil)
		assert.Error(t, err)
	})

	t.Run("semantic requires comparer", func(t *testing.T) {
		_, err := NewDetector(semanticConfig(), nil)
		assert.Error(t, err)
	})

	t.Run("threshold needs no comparer", func(t *testing.T) {
		d, err := NewDetector(thresholdConfig(0.75), nil)
		require.NoError(t, err)
		assert.Equal(t, 0.75, d.Config().SimilarityThreshold)
	})

	t.Run("config is copied", func(t *testing.T) {
		cfg := thresholdConfig(0.75)
		d, err := NewDetector(cfg, nil)
		require.NoError(t, err)
		cfg.SimilarityThreshold = 0.1

		verdict, err := d.Evaluate(context.Background(), testDraft, []types.CandidateIssue{candidate("X", 0.5)})
		require.NoError(t, err)
		assert.False(t, verdict.IsDuplicate)
	})
}

func TestEvaluateScenarios(t *testing.T) {
	ctx := context.Background()

	t.Run("A: empty candidates", func(t *testing.T) {
		comparer := &fakeComparer{}
		d, err := NewDetector(semanticConfig(), comparer)
		require.NoError(t, err)

		verdict, err := d.Evaluate(ctx, testDraft, nil)
		require.NoError(t, err)
		assert.False(t, verdict.IsDuplicate)
		assert.Empty(t, verdict.MatchedIssueID)
		assert.Equal(t, types.MethodThreshold, verdict.Method)
		assert.Equal(t, 0.0, verdict.ScoreOrConfidence)
		assert.Equal(t, 0, verdict.CandidatesConsidered)
		assert.Empty(t, comparer.callOrder(), "no judge should be invoked")
	})

	t.Run("B: threshold match", func(t *testing.T) {
		d, err := NewDetector(thresholdConfig(0.75), nil)
		require.NoError(t, err)

		verdict, err := d.Evaluate(ctx, testDraft, []types.CandidateIssue{candidate("X", 0.80)})
		require.NoError(t, err)
		assert.True(t, verdict.IsDuplicate)
		assert.Equal(t, "X", verdict.MatchedIssueID)
		assert.Equal(t, types.MethodThreshold, verdict.Method)
		assert.Equal(t, 0.80, verdict.ScoreOrConfidence)
		assert.Equal(t, 1, verdict.CandidatesConsidered)
	})

	t.Run("C: below threshold", func(t *testing.T) {
		d, err := NewDetector(thresholdConfig(0.75), nil)
		require.NoError(t, err)

		verdict, err := d.Evaluate(ctx, testDraft, []types.CandidateIssue{candidate("X", 0.60)})
		require.NoError(t, err)
		assert.False(t, verdict.IsDuplicate)
		assert.Empty(t, verdict.MatchedIssueID)
		assert.Equal(t, types.MethodThreshold, verdict.Method)
		assert.Equal(t, 0.60, verdict.ScoreOrConfidence)
	})

	t.Run("D: semantic scans past a negative top candidate", func(t *testing.T) {
		comparer := &fakeComparer{verdicts: map[string]bool{"A": false, "B": true}}
		d, err := NewDetector(semanticConfig(), comparer)
		require.NoError(t, err)

		verdict, err := d.Evaluate(ctx, testDraft, []types.CandidateIssue{candidate("A", 0.9), candidate("B", 0.85)})
		require.NoError(t, err)
		assert.True(t, verdict.IsDuplicate)
		assert.Equal(t, "B", verdict.MatchedIssueID)
		assert.Equal(t, types.MethodSemantic, verdict.Method)
		assert.Equal(t, 1.0, verdict.ScoreOrConfidence, "missing confidence defaults to 1.0")
		assert.Equal(t, 2, verdict.CandidatesConsidered)
		assert.Equal(t, []string{"A", "B"}, comparer.callOrder())
	})

	t.Run("E: provider error falls back to threshold", func(t *testing.T) {
		comparer := &fakeComparer{errs: map[string]error{"A": ai.ErrProviderCall}}
		d, err := NewDetector(semanticConfig(), comparer)
		require.NoError(t, err)

		verdict, err := d.Evaluate(ctx, testDraft, []types.CandidateIssue{candidate("A", 0.9), candidate("B", 0.85)})
		require.NoError(t, err)
		assert.True(t, verdict.IsDuplicate)
		assert.Equal(t, "A", verdict.MatchedIssueID)
		assert.Equal(t, types.MethodSemanticFallback, verdict.Method)
		assert.Equal(t, 0.9, verdict.ScoreOrConfidence)
		assert.Equal(t, 1, verdict.CandidatesConsidered)
		assert.Equal(t, []string{"A"}, comparer.callOrder(), "scan must stop at the provider error")
	})
}

func TestEvaluateThresholdBoundary(t *testing.T) {
	tests := []struct {
		name      string
		score     float64
		threshold float64
		want      bool
	}{
		{"equal is duplicate", 0.75, 0.75, true},
		{"just below", 0.7499, 0.75, false},
		{"zero threshold always matches", 0.0, 0.0, true},
		{"one threshold needs perfect score", 0.99, 1.0, false},
		{"perfect score at one", 1.0, 1.0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewDetector(thresholdConfig(tt.threshold), nil)
			require.NoError(t, err)

			verdict, err := d.Evaluate(context.Background(), testDraft, []types.CandidateIssue{candidate("X", tt.score)})
			require.NoError(t, err)
			assert.Equal(t, tt.want, verdict.IsDuplicate)
			assert.NoError(t, verdict.Validate())
		})
	}
}

func TestEvaluateInvalidScores(t *testing.T) {
	tests := []struct {
		name  string
		score float64
	}{
		{"negative", -0.1},
		{"above one", 1.01},
		{"NaN", math.NaN()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comparer := &fakeComparer{}
			d, err := NewDetector(semanticConfig(), comparer)
			require.NoError(t, err)

			_, err = d.Evaluate(context.Background(), testDraft,
				[]types.CandidateIssue{candidate("A", 0.9), candidate("B", tt.score)})
			assert.ErrorIs(t, err, ErrInvalidScore)
			assert.Empty(t, comparer.callOrder())
		})
	}
}

func TestEvaluateOrdering(t *testing.T) {
	t.Run("unsorted input behaves as sorted", func(t *testing.T) {
		d, err := NewDetector(thresholdConfig(0.75), nil)
		require.NoError(t, err)

		unsorted := []types.CandidateIssue{candidate("low", 0.3), candidate("high", 0.9), candidate("mid", 0.6)}
		sorted := []types.CandidateIssue{candidate("high", 0.9), candidate("mid", 0.6), candidate("low", 0.3)}

		v1, err := d.Evaluate(context.Background(), testDraft, unsorted)
		require.NoError(t, err)
		v2, err := d.Evaluate(context.Background(), testDraft, sorted)
		require.NoError(t, err)
		assert.Equal(t, v2, v1)
		assert.Equal(t, "high", v1.MatchedIssueID)
	})

	t.Run("input slice is not mutated", func(t *testing.T) {
		d, err := NewDetector(thresholdConfig(0.75), nil)
		require.NoError(t, err)

		input := []types.CandidateIssue{candidate("low", 0.3), candidate("high", 0.9)}
		_, err = d.Evaluate(context.Background(), testDraft, input)
		require.NoError(t, err)
		assert.Equal(t, "low", input[0].ID)
		assert.Equal(t, "high", input[1].ID)
	})

	t.Run("ties keep original order", func(t *testing.T) {
		comparer := &fakeComparer{}
		cfg := semanticConfig()
		cfg.MaxCandidatesToJudge = 5
		d, err := NewDetector(cfg, comparer)
		require.NoError(t, err)

		_, err = d.Evaluate(context.Background(), testDraft, []types.CandidateIssue{
			candidate("first", 0.8), candidate("top", 0.95), candidate("second", 0.8), candidate("third", 0.8),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"top", "first", "second", "third"}, comparer.callOrder())
	})

	t.Run("truncates to MaxCandidatesToJudge", func(t *testing.T) {
		comparer := &fakeComparer{}
		cfg := semanticConfig()
		cfg.MaxCandidatesToJudge = 2
		d, err := NewDetector(cfg, comparer)
		require.NoError(t, err)

		verdict, err := d.Evaluate(context.Background(), testDraft, []types.CandidateIssue{
			candidate("c", 0.5), candidate("a", 0.9), candidate("b", 0.7),
		})
		require.NoError(t, err)
		assert.False(t, verdict.IsDuplicate)
		assert.Equal(t, types.MethodSemantic, verdict.Method)
		assert.Equal(t, 0.0, verdict.ScoreOrConfidence)
		assert.Equal(t, 2, verdict.CandidatesConsidered)
		assert.Equal(t, []string{"a", "b"}, comparer.callOrder())
	})
}

func TestEvaluateIdempotent(t *testing.T) {
	comparer := &fakeComparer{verdicts: map[string]bool{"B": true}, conf: map[string]float64{"B": 0.88}}
	d, err := NewDetector(semanticConfig(), comparer)
	require.NoError(t, err)

	input := []types.CandidateIssue{candidate("A", 0.9), candidate("B", 0.8)}
	v1, err := d.Evaluate(context.Background(), testDraft, input)
	require.NoError(t, err)
	v2, err := d.Evaluate(context.Background(), testDraft, input)
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, 0.88, v1.ScoreOrConfidence)
}

func TestEvaluateSemanticFailures(t *testing.T) {
	t.Run("unparseable reply skips candidate", func(t *testing.T) {
		comparer := &fakeComparer{
			errs:     map[string]error{"A": ErrUnparseableResponse},
			verdicts: map[string]bool{"B": true},
		}
		d, err := NewDetector(semanticConfig(), comparer)
		require.NoError(t, err)

		verdict, err := d.Evaluate(context.Background(), testDraft, []types.CandidateIssue{candidate("A", 0.9), candidate("B", 0.5)})
		require.NoError(t, err)
		assert.True(t, verdict.IsDuplicate)
		assert.Equal(t, "B", verdict.MatchedIssueID)
		assert.Equal(t, types.MethodSemantic, verdict.Method)
	})

	t.Run("all unparseable is a semantic non-duplicate", func(t *testing.T) {
		comparer := &fakeComparer{errs: map[string]error{"A": ErrUnparseableResponse, "B": ErrUnparseableResponse}}
		d, err := NewDetector(semanticConfig(), comparer)
		require.NoError(t, err)

		verdict, err := d.Evaluate(context.Background(), testDraft, []types.CandidateIssue{candidate("A", 0.9), candidate("B", 0.8)})
		require.NoError(t, err)
		assert.False(t, verdict.IsDuplicate)
		assert.Equal(t, types.MethodSemantic, verdict.Method)
		assert.Equal(t, 2, verdict.CandidatesConsidered)
	})

	t.Run("provider error after a negative falls back", func(t *testing.T) {
		comparer := &fakeComparer{errs: map[string]error{"B": errors.New("connection refused")}}
		d, err := NewDetector(semanticConfig(), comparer)
		require.NoError(t, err)

		verdict, err := d.Evaluate(context.Background(), testDraft, []types.CandidateIssue{candidate("A", 0.6), candidate("B", 0.5)})
		require.NoError(t, err)
		assert.False(t, verdict.IsDuplicate)
		assert.Equal(t, types.MethodSemanticFallback, verdict.Method)
		assert.Equal(t, 0.6, verdict.ScoreOrConfidence)
	})

	t.Run("timeout is a provider error", func(t *testing.T) {
		comparer := &fakeComparer{delay: time.Second, verdicts: map[string]bool{"A": true}}
		cfg := semanticConfig()
		cfg.RequestTimeout = 20 * time.Millisecond
		d, err := NewDetector(cfg, comparer)
		require.NoError(t, err)

		verdict, err := d.Evaluate(context.Background(), testDraft, []types.CandidateIssue{candidate("A", 0.8)})
		require.NoError(t, err)
		assert.True(t, verdict.IsDuplicate)
		assert.Equal(t, types.MethodSemanticFallback, verdict.Method)
	})

	t.Run("each call gets its own deadline", func(t *testing.T) {
		comparer := &fakeComparer{}
		d, err := NewDetector(semanticConfig(), comparer)
		require.NoError(t, err)

		_, err = d.Evaluate(context.Background(), testDraft, []types.CandidateIssue{candidate("A", 0.8), candidate("B", 0.7)})
		require.NoError(t, err)
		assert.Equal(t, []bool{true, true}, comparer.deadlines)
	})
}

func TestEvaluateRequireThresholdAgreement(t *testing.T) {
	comparer := &fakeComparer{verdicts: map[string]bool{"A": true, "B": true}}
	cfg := semanticConfig()
	cfg.SimilarityThreshold = 0.8
	cfg.RequireThresholdAgreement = true
	d, err := NewDetector(cfg, comparer)
	require.NoError(t, err)

	t.Run("low score never reaches provider", func(t *testing.T) {
		verdict, err := d.Evaluate(context.Background(), testDraft, []types.CandidateIssue{candidate("B", 0.5)})
		require.NoError(t, err)
		assert.False(t, verdict.IsDuplicate)
		assert.Equal(t, 0, verdict.CandidatesConsidered)
		assert.Empty(t, comparer.callOrder())
	})

	t.Run("agreeing candidate matches", func(t *testing.T) {
		verdict, err := d.Evaluate(context.Background(), testDraft, []types.CandidateIssue{candidate("B", 0.5), candidate("A", 0.85)})
		require.NoError(t, err)
		assert.True(t, verdict.IsDuplicate)
		assert.Equal(t, "A", verdict.MatchedIssueID)
		assert.Equal(t, []string{"A"}, comparer.callOrder())
	})
}

func TestEvaluateConcurrent(t *testing.T) {
	comparer := &fakeComparer{verdicts: map[string]bool{"B": true}}
	d, err := NewDetector(semanticConfig(), comparer)
	require.NoError(t, err)

	input := []types.CandidateIssue{candidate("A", 0.9), candidate("B", 0.8)}
	var wg sync.WaitGroup
	results := make([]types.DuplicateVerdict, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := d.Evaluate(context.Background(), testDraft, input)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	for _, v := range results {
		assert.Equal(t, results[0], v)
	}
}
