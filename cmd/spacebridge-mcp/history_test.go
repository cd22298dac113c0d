package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacebridge/spacebridge-mcp/internal/storage/sqlite"
	"github.com/spacebridge/spacebridge-mcp/internal/types"
)

func TestPrintDecisionCountsIsStable(t *testing.T) {
	noColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = noColor })

	counts := &sqlite.DecisionCounts{
		Total:      1234,
		Duplicates: 3,
		ByOutcome: map[types.Outcome]int{
			types.OutcomeDetectionError: 1,
			types.OutcomeCreated:        1000,
			types.OutcomeCheckedOnly:    230,
			types.OutcomeExistingFound:  3,
		},
		ByMethod: map[types.Method]int{
			types.MethodSemanticFallback: 4,
			types.MethodThreshold:        1200,
			types.MethodSemantic:         30,
		},
	}

	var first bytes.Buffer
	printDecisionCounts(&first, counts)
	for i := 0; i < 20; i++ {
		var again bytes.Buffer
		printDecisionCounts(&again, counts)
		require.Equal(t, first.String(), again.String())
	}

	out := first.String()
	assert.Contains(t, out, "Total decisions: 1,234 (3 duplicates)")
	order := []string{"checked", "created", "detection_error", "existing_duplicate_found",
		"semantic ", "semantic_fallback_to_threshold", "threshold"}
	last := -1
	for _, label := range order {
		idx := strings.Index(out, "  "+label)
		require.GreaterOrEqual(t, idx, 0, "missing %q", label)
		assert.Greater(t, idx, last, "%q out of order", label)
		last = idx
	}
}
