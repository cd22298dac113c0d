package deduplication

import (
	"context"

	"github.com/spacebridge/spacebridge-mcp/internal/ai"
	"github.com/spacebridge/spacebridge-mcp/internal/types"
)

// Judge decides whether a draft duplicates one of a ranked candidate list.
// There are two implementations: ThresholdJudge and SemanticJudge.
//
// ranked is ordered by descending similarity and already truncated to the
// configured maximum. Implementations must not modify it.
type Judge interface {
	Decide(ctx context.Context, draft types.IssueDraft, ranked []types.CandidateIssue) (types.DuplicateVerdict, error)
}

// Comparer performs one model comparison between a draft and a candidate.
// *ai.Supervisor implements it.
type Comparer interface {
	CompareIssues(ctx context.Context, draft types.IssueDraft, candidate types.CandidateIssue) (*ai.DuplicateCheckResponse, error)
}

var _ Comparer = (*ai.Supervisor)(nil)
