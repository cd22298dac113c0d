package deduplication

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log"
	"slices"

	"github.com/spacebridge/spacebridge-mcp/internal/types"
)

// Detector turns a draft and its ranked search candidates into a
// DuplicateVerdict. It is safe for concurrent use; all state is fixed at
// construction.
type Detector struct {
	cfg       Config
	judge     Judge
	threshold *ThresholdJudge
}

// NewDetector validates cfg and selects the judge. comparer may be nil only
// when semantic judging is disabled.
func NewDetector(cfg Config, comparer Comparer) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid detector config: %w", err)
	}

	d := &Detector{
		cfg:       cfg,
		threshold: NewThresholdJudge(cfg.SimilarityThreshold),
	}
	if cfg.SemanticJudgeEnabled {
		if comparer == nil {
			return nil, fmt.Errorf("semantic judging enabled but no comparer configured")
		}
		d.judge = NewSemanticJudge(comparer, cfg)
	} else {
		d.judge = d.threshold
	}

	log.Printf("[DEDUP] Detector initialized: %s", cfg)
	return d, nil
}

// Config returns a copy of the detector's configuration
func (d *Detector) Config() Config {
	return d.cfg
}

// Evaluate decides whether draft duplicates one of candidates.
//
// Candidates are ranked by descending score (stable for ties) and truncated
// to MaxCandidatesToJudge; the input slice is not modified. The only error
// returned is ErrInvalidScore. Semantic judge failures degrade to the
// threshold verdict with method semantic_fallback_to_threshold.
func (d *Detector) Evaluate(ctx context.Context, draft types.IssueDraft, candidates []types.CandidateIssue) (types.DuplicateVerdict, error) {
	if len(candidates) == 0 {
		return types.DuplicateVerdict{
			Method:    types.MethodThreshold,
			Reasoning: "no candidates",
		}, nil
	}

	for _, c := range candidates {
		if !c.ValidScore() {
			return types.DuplicateVerdict{}, fmt.Errorf("%w: candidate %s has score %v", ErrInvalidScore, c.ID, c.SimilarityScore)
		}
	}

	ranked := rankCandidates(candidates, d.cfg.MaxCandidatesToJudge)

	if !d.cfg.SemanticJudgeEnabled {
		return d.threshold.Decide(ctx, draft, ranked)
	}

	verdict, err := d.judge.Decide(ctx, draft, ranked)
	if err == nil {
		return verdict, nil
	}
	if errors.Is(err, ErrInvalidScore) {
		return types.DuplicateVerdict{}, err
	}

	log.Printf("[DEDUP] Semantic judge failed, falling back to threshold: %v", err)
	verdict, err = d.threshold.Decide(ctx, draft, ranked)
	if err != nil {
		return types.DuplicateVerdict{}, err
	}
	verdict.Method = types.MethodSemanticFallback
	verdict.Reasoning = "semantic judge unavailable; " + verdict.Reasoning
	return verdict, nil
}

// rankCandidates returns a sorted, truncated copy of candidates
func rankCandidates(candidates []types.CandidateIssue, limit int) []types.CandidateIssue {
	ranked := slices.Clone(candidates)
	slices.SortStableFunc(ranked, func(a, b types.CandidateIssue) int {
		return cmp.Compare(b.SimilarityScore, a.SimilarityScore)
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
