package deduplication

import (
	"errors"

	"github.com/spacebridge/spacebridge-mcp/internal/ai"
)

var (
	// ErrInvalidScore is returned when a candidate's similarity score is NaN or
	// outside [0,1]. It is the only error Evaluate returns to callers.
	ErrInvalidScore = errors.New("invalid similarity score")

	// ErrProvider wraps transport, auth, timeout and circuit-breaker failures
	// of the semantic judge. Evaluate recovers from it by falling back to the
	// threshold verdict.
	ErrProvider = errors.New("judgment provider failed")

	// ErrUnparseableResponse marks a model reply that maps to neither yes nor
	// no. The semantic judge treats the candidate as not a duplicate.
	ErrUnparseableResponse = ai.ErrUnparseableResponse
)
