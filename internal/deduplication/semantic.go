package deduplication

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/spacebridge/spacebridge-mcp/internal/ai"
	"github.com/spacebridge/spacebridge-mcp/internal/types"
)

// SemanticJudge asks a language model about each candidate in order and
// stops at the first one it calls a duplicate
type SemanticJudge struct {
	comparer         Comparer
	timeout          time.Duration
	threshold        float64
	requireAgreement bool
}

// NewSemanticJudge creates a SemanticJudge from the detector config
func NewSemanticJudge(comparer Comparer, cfg Config) *SemanticJudge {
	return &SemanticJudge{
		comparer:         comparer,
		timeout:          cfg.RequestTimeout,
		threshold:        cfg.SimilarityThreshold,
		requireAgreement: cfg.RequireThresholdAgreement,
	}
}

// Decide walks ranked sequentially. An unparseable reply counts as "not a
// duplicate" for that candidate. Any other comparer failure aborts the scan
// with ErrProvider.
func (j *SemanticJudge) Decide(ctx context.Context, draft types.IssueDraft, ranked []types.CandidateIssue) (types.DuplicateVerdict, error) {
	considered := 0

	for _, candidate := range ranked {
		if j.requireAgreement && candidate.SimilarityScore < j.threshold {
			log.Printf("[DEDUP] Skipping %s: similarity %.2f below threshold %.2f",
				candidate.ID, candidate.SimilarityScore, j.threshold)
			continue
		}

		considered++
		resp, err := j.compare(ctx, draft, candidate)
		if err != nil {
			if errors.Is(err, ErrUnparseableResponse) {
				log.Printf("[DEDUP] Treating %s as not duplicate: %v", candidate.ID, err)
				continue
			}
			return types.DuplicateVerdict{}, fmt.Errorf("%w: comparing against %s: %w", ErrProvider, candidate.ID, err)
		}

		if resp.IsDuplicate {
			confidence := 1.0
			if resp.Confidence != nil {
				confidence = *resp.Confidence
			}
			return types.DuplicateVerdict{
				IsDuplicate:          true,
				MatchedIssueID:       candidate.ID,
				MatchedIssueURL:      candidate.URL,
				Method:               types.MethodSemantic,
				ScoreOrConfidence:    confidence,
				CandidatesConsidered: considered,
				Reasoning:            resp.Reasoning,
			}, nil
		}
	}

	return types.DuplicateVerdict{
		Method:               types.MethodSemantic,
		CandidatesConsidered: considered,
		Reasoning:            fmt.Sprintf("no duplicate among %d candidates", considered),
	}, nil
}

// compare bounds a single comparison by the configured timeout
func (j *SemanticJudge) compare(ctx context.Context, draft types.IssueDraft, candidate types.CandidateIssue) (resp *ai.DuplicateCheckResponse, err error) {
	callCtx := ctx
	if j.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	resp, err = j.comparer.CompareIssues(callCtx, draft, candidate)
	if err != nil {
		if callCtx.Err() != nil && !errors.Is(err, callCtx.Err()) {
			err = fmt.Errorf("%w (%w)", err, callCtx.Err())
		}
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: empty response", ErrUnparseableResponse)
	}
	return resp, nil
}
