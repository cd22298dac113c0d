package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacebridge/spacebridge-mcp/internal/types"
)

func TestDefaultConfig(t *testing.T) {
	assert.Equal(t, ".spacebridge/decisions.db", DefaultConfig().Path)
}

func TestNewStorage(t *testing.T) {
	ctx := context.Background()
	store, err := NewStorage(ctx, &Config{Path: filepath.Join(t.TempDir(), "log.db")})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.RecordDecision(ctx, &types.DecisionRecord{
		DraftTitle: "t",
		Method:     types.MethodThreshold,
		Outcome:    types.OutcomeCreated,
	}))
	records, err := store.ListDecisions(ctx, types.DecisionFilter{})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestNewStorageMemory(t *testing.T) {
	store, err := NewStorage(context.Background(), &Config{Path: ":memory:"})
	require.NoError(t, err)
	assert.NoError(t, store.Close())
}
