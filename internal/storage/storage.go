// Package storage persists the audit trail of duplicate decisions.
package storage

import (
	"context"
	"time"

	"github.com/spacebridge/spacebridge-mcp/internal/storage/sqlite"
	"github.com/spacebridge/spacebridge-mcp/internal/types"
)

// DecisionLog defines the interface for decision log backends
type DecisionLog interface {
	// RecordDecision stores one decision. Empty ID and zero CreatedAt are filled in.
	RecordDecision(ctx context.Context, record *types.DecisionRecord) error

	// ListDecisions returns matching records, most recent first
	ListDecisions(ctx context.Context, filter types.DecisionFilter) ([]*types.DecisionRecord, error)

	// GetDecisionCounts summarizes the log for monitoring
	GetDecisionCounts(ctx context.Context) (*sqlite.DecisionCounts, error)

	// PruneDecisions removes records older than maxAge, then the oldest records
	// beyond maxRecords (0 means unlimited). Returns the number removed.
	PruneDecisions(ctx context.Context, maxAge time.Duration, maxRecords int) (int, error)
	Vacuum(ctx context.Context) error

	// Lifecycle
	Close() error
}

// Config holds database configuration
type Config struct {
	// Path is the SQLite database file path
	// Default: ".spacebridge/decisions.db"
	// Special value ":memory:" creates an in-memory database (useful for tests)
	Path string
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Path: ".spacebridge/decisions.db",
	}
}

// NewStorage creates a new SQLite decision log
func NewStorage(ctx context.Context, cfg *Config) (DecisionLog, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	path := cfg.Path
	if path == "" {
		path = DefaultConfig().Path
	}
	return sqlite.New(ctx, path)
}
