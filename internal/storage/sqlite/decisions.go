package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/spacebridge/spacebridge-mcp/internal/types"
)

// RecordDecision stores a decision record. A missing ID or timestamp is generated.
func (s *SQLiteStorage) RecordDecision(ctx context.Context, record *types.DecisionRecord) error {
	if record == nil {
		return fmt.Errorf("decision record is nil")
	}
	if record.DraftTitle == "" {
		return fmt.Errorf("decision record requires a draft title")
	}
	if !record.Method.IsValid() {
		return fmt.Errorf("invalid method: %q", record.Method)
	}
	if record.Outcome == "" {
		return fmt.Errorf("decision record requires an outcome")
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO decisions (
			id, draft_title, organization, project, method, is_duplicate,
			matched_issue_id, score, candidates_considered, outcome,
			result_issue_id, error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.DraftTitle,
		record.Organization,
		record.Project,
		string(record.Method),
		record.IsDuplicate,
		record.MatchedIssueID,
		record.ScoreOrConfidence,
		record.CandidatesConsidered,
		string(record.Outcome),
		record.ResultIssueID,
		record.Error,
		record.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to store decision (outcome=%s, title=%q): %w", record.Outcome, record.DraftTitle, err)
	}
	return nil
}

// ListDecisions retrieves decisions matching the filter, most recent first
func (s *SQLiteStorage) ListDecisions(ctx context.Context, filter types.DecisionFilter) ([]*types.DecisionRecord, error) {
	query := `
		SELECT id, draft_title, organization, project, method, is_duplicate,
		       matched_issue_id, score, candidates_considered, outcome,
		       result_issue_id, error, created_at
		FROM decisions
		WHERE 1=1
	`
	args := []interface{}{}

	if filter.Outcome != "" {
		query += " AND outcome = ?"
		args = append(args, string(filter.Outcome))
	}
	if filter.Method != "" {
		query += " AND method = ?"
		args = append(args, string(filter.Method))
	}
	if filter.Project != "" {
		query += " AND project = ?"
		args = append(args, filter.Project)
	}
	if filter.DuplicateOf != "" {
		query += " AND matched_issue_id = ?"
		args = append(args, filter.DuplicateOf)
	}
	if !filter.Since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, filter.Since.UnixNano())
	}

	query += " ORDER BY created_at DESC, rowid DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	var records []*types.DecisionRecord
	for rows.Next() {
		record, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating decisions: %w", err)
	}
	return records, nil
}

func scanDecision(rows *sql.Rows) (*types.DecisionRecord, error) {
	var (
		r         types.DecisionRecord
		method    string
		outcome   string
		createdAt int64
	)
	err := rows.Scan(
		&r.ID,
		&r.DraftTitle,
		&r.Organization,
		&r.Project,
		&method,
		&r.IsDuplicate,
		&r.MatchedIssueID,
		&r.ScoreOrConfidence,
		&r.CandidatesConsidered,
		&outcome,
		&r.ResultIssueID,
		&r.Error,
		&createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan decision: %w", err)
	}
	r.Method = types.Method(method)
	r.Outcome = types.Outcome(outcome)
	r.CreatedAt = time.Unix(0, createdAt)
	return &r, nil
}

// DecisionCounts holds decision statistics for monitoring
type DecisionCounts struct {
	Total      int
	Duplicates int
	ByOutcome  map[types.Outcome]int
	ByMethod   map[types.Method]int
}

// GetDecisionCounts returns totals grouped by outcome and method
func (s *SQLiteStorage) GetDecisionCounts(ctx context.Context) (*DecisionCounts, error) {
	counts := &DecisionCounts{
		ByOutcome: make(map[types.Outcome]int),
		ByMethod:  make(map[types.Method]int),
	}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(is_duplicate), 0) FROM decisions`,
	).Scan(&counts.Total, &counts.Duplicates)
	if err != nil {
		return nil, fmt.Errorf("failed to count decisions: %w", err)
	}

	if err := s.groupCount(ctx, "outcome", func(key string, n int) {
		counts.ByOutcome[types.Outcome(key)] = n
	}); err != nil {
		return nil, err
	}
	if err := s.groupCount(ctx, "method", func(key string, n int) {
		counts.ByMethod[types.Method(key)] = n
	}); err != nil {
		return nil, err
	}
	return counts, nil
}

// groupCount runs a GROUP BY over a fixed column name
func (s *SQLiteStorage) groupCount(ctx context.Context, column string, add func(string, int)) error {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s, COUNT(*) FROM decisions GROUP BY %s`, column, column))
	if err != nil {
		return fmt.Errorf("failed to count decisions by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("failed to scan %s count: %w", column, err)
		}
		add(key, n)
	}
	return rows.Err()
}
