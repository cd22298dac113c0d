package sqlite

import (
	"context"
	"fmt"
	"time"
)

const pruneBatchSize = 500

// PruneDecisions deletes records older than maxAge, then trims the log to
// maxRecords by removing the oldest. Zero maxAge or maxRecords disables that step.
func (s *SQLiteStorage) PruneDecisions(ctx context.Context, maxAge time.Duration, maxRecords int) (int, error) {
	if maxAge < 0 || maxRecords < 0 {
		return 0, fmt.Errorf("retention limits cannot be negative")
	}

	totalDeleted := 0
	if maxAge > 0 {
		cutoff := time.Now().Add(-maxAge).UnixNano()
		deleted, err := s.deleteBatched(ctx, `
			DELETE FROM decisions
			WHERE id IN (
				SELECT id FROM decisions
				WHERE created_at < ?
				ORDER BY created_at ASC
				LIMIT ?
			)
		`, cutoff)
		totalDeleted += deleted
		if err != nil {
			return totalDeleted, fmt.Errorf("failed to delete old decisions: %w", err)
		}
	}

	if maxRecords > 0 {
		var count int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM decisions`).Scan(&count); err != nil {
			return totalDeleted, fmt.Errorf("failed to count decisions: %w", err)
		}
		if excess := count - maxRecords; excess > 0 {
			result, err := s.db.ExecContext(ctx, `
				DELETE FROM decisions
				WHERE id IN (
					SELECT id FROM decisions
					ORDER BY created_at ASC, rowid ASC
					LIMIT ?
				)
			`, excess)
			if err != nil {
				return totalDeleted, fmt.Errorf("failed to trim decisions: %w", err)
			}
			n, err := result.RowsAffected()
			if err != nil {
				return totalDeleted, fmt.Errorf("failed to get rows affected: %w", err)
			}
			totalDeleted += int(n)
		}
	}

	return totalDeleted, nil
}

// deleteBatched runs a DELETE whose last parameter is the batch size until a
// batch comes back short
func (s *SQLiteStorage) deleteBatched(ctx context.Context, query string, args ...interface{}) (int, error) {
	totalDeleted := 0
	args = append(args, pruneBatchSize)

	for {
		select {
		case <-ctx.Done():
			return totalDeleted, ctx.Err()
		default:
		}

		result, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return totalDeleted, fmt.Errorf("failed to execute delete: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return totalDeleted, fmt.Errorf("failed to get rows affected: %w", err)
		}
		totalDeleted += int(rowsAffected)

		if rowsAffected < pruneBatchSize {
			return totalDeleted, nil
		}
	}
}

// Vacuum reclaims space left by pruned records
func (s *SQLiteStorage) Vacuum(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	return nil
}
