package deduplication

import (
	"context"
	"fmt"

	"github.com/spacebridge/spacebridge-mcp/internal/types"
)

// ThresholdJudge compares the top candidate's score against a fixed threshold.
// It never calls out and never fails on valid input.
type ThresholdJudge struct {
	Threshold float64
}

// NewThresholdJudge creates a ThresholdJudge
func NewThresholdJudge(threshold float64) *ThresholdJudge {
	return &ThresholdJudge{Threshold: threshold}
}

// Decide marks the top candidate as a duplicate iff its score >= Threshold
func (j *ThresholdJudge) Decide(ctx context.Context, draft types.IssueDraft, ranked []types.CandidateIssue) (types.DuplicateVerdict, error) {
	if len(ranked) == 0 {
		return types.DuplicateVerdict{Method: types.MethodThreshold}, nil
	}

	top := ranked[0]
	if !top.ValidScore() {
		return types.DuplicateVerdict{}, fmt.Errorf("%w: candidate %s has score %v", ErrInvalidScore, top.ID, top.SimilarityScore)
	}

	verdict := types.DuplicateVerdict{
		Method:               types.MethodThreshold,
		ScoreOrConfidence:    top.SimilarityScore,
		CandidatesConsidered: 1,
	}
	if top.SimilarityScore >= j.Threshold {
		verdict.IsDuplicate = true
		verdict.MatchedIssueID = top.ID
		verdict.MatchedIssueURL = top.URL
		verdict.Reasoning = fmt.Sprintf("similarity %.2f >= threshold %.2f", top.SimilarityScore, j.Threshold)
	} else {
		verdict.Reasoning = fmt.Sprintf("similarity %.2f < threshold %.2f", top.SimilarityScore, j.Threshold)
	}
	return verdict, nil
}
