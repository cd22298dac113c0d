// Package workflow ties similarity search, duplicate detection and issue
// creation together for the create_issue and check_duplicate operations.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/spacebridge/spacebridge-mcp/internal/spacebridge"
	"github.com/spacebridge/spacebridge-mcp/internal/types"
)

// ErrDetectionFailed is returned when detection fails and FailOpen is off
var ErrDetectionFailed = errors.New("duplicate detection failed")

// CandidateRanker returns similarity-ranked candidates for a query
type CandidateRanker interface {
	FindSimilar(ctx context.Context, query string) ([]types.CandidateIssue, error)
}

// DuplicateDetector decides whether a draft duplicates one of the candidates
type DuplicateDetector interface {
	Evaluate(ctx context.Context, draft types.IssueDraft, candidates []types.CandidateIssue) (types.DuplicateVerdict, error)
}

// IssueWriter files new issues
type IssueWriter interface {
	CreateIssue(ctx context.Context, req spacebridge.CreateRequest) (*types.Issue, error)
}

// DecisionRecorder persists decisions for auditing
type DecisionRecorder interface {
	RecordDecision(ctx context.Context, record *types.DecisionRecord) error
}

// Config wires an IssueCreator
type Config struct {
	Ranker   CandidateRanker   // required
	Detector DuplicateDetector // required
	Writer   IssueWriter       // required
	Recorder DecisionRecorder  // optional

	// FailOpen creates the issue when detection itself fails
	FailOpen bool

	// MinTitleLength skips detection for shorter titles (0 disables)
	MinTitleLength int

	// Org and Project label recorded decisions
	Org     string
	Project string
}

// IssueCreator runs the find-or-create workflow
type IssueCreator struct {
	ranker         CandidateRanker
	detector       DuplicateDetector
	writer         IssueWriter
	recorder       DecisionRecorder
	failOpen       bool
	minTitleLength int
	org            string
	project        string
}

// NewIssueCreator creates an IssueCreator
func NewIssueCreator(cfg *Config) (*IssueCreator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Ranker == nil {
		return nil, fmt.Errorf("candidate ranker is required")
	}
	if cfg.Detector == nil {
		return nil, fmt.Errorf("duplicate detector is required")
	}
	if cfg.Writer == nil {
		return nil, fmt.Errorf("issue writer is required")
	}
	if cfg.MinTitleLength < 0 {
		return nil, fmt.Errorf("min title length cannot be negative (got %d)", cfg.MinTitleLength)
	}

	return &IssueCreator{
		ranker:         cfg.Ranker,
		detector:       cfg.Detector,
		writer:         cfg.Writer,
		recorder:       cfg.Recorder,
		failOpen:       cfg.FailOpen,
		minTitleLength: cfg.MinTitleLength,
		org:            cfg.Org,
		project:        cfg.Project,
	}, nil
}

// CreateInput is a request to file an issue
type CreateInput struct {
	Title       string
	Description string
	Labels      []string
	Org         string
	Project     string
}

// CreateOutcome reports what CreateIssue did
type CreateOutcome struct {
	Status types.Outcome

	// IssueID is the new issue, or the existing one when a duplicate was found
	IssueID string
	URL     string

	Verdict types.DuplicateVerdict

	// DetectionSkipped is set when no verdict was reached: short title or a
	// failed detection with FailOpen
	DetectionSkipped bool

	Message string
}

// CreateIssue searches for similar issues, asks the detector for a verdict
// and either returns the existing duplicate or creates a new issue.
// A failed search proceeds with no candidates.
func (c *IssueCreator) CreateIssue(ctx context.Context, in CreateInput) (*CreateOutcome, error) {
	draft := types.IssueDraft{Title: in.Title, Description: in.Description}
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	record := c.newRecord(draft, in.Org, in.Project)
	outcome := &CreateOutcome{}

	if c.minTitleLength > 0 && len(strings.TrimSpace(draft.Title)) < c.minTitleLength {
		log.Printf("[WORKFLOW] Title shorter than %d characters, skipping duplicate detection", c.minTitleLength)
		outcome.DetectionSkipped = true
		outcome.Verdict = types.DuplicateVerdict{Method: types.MethodThreshold}
	} else {
		verdict, err := c.evaluate(ctx, draft)
		if err != nil {
			if !c.failOpen {
				record.Outcome = types.OutcomeDetectionError
				record.Error = err.Error()
				c.record(ctx, record)
				return nil, fmt.Errorf("%w: %w", ErrDetectionFailed, err)
			}
			log.Printf("[WORKFLOW] Warning: duplicate detection failed, creating issue anyway: %v", err)
			record.Error = err.Error()
			outcome.DetectionSkipped = true
			verdict = types.DuplicateVerdict{Method: types.MethodThreshold}
		}
		outcome.Verdict = verdict
	}
	applyVerdict(record, outcome.Verdict)

	if outcome.Verdict.IsDuplicate {
		outcome.Status = types.OutcomeExistingFound
		outcome.IssueID = outcome.Verdict.MatchedIssueID
		outcome.URL = outcome.Verdict.MatchedIssueURL
		outcome.Message = fmt.Sprintf("Issue %s already describes this (%s, %.2f). No new issue created.",
			outcome.IssueID, outcome.Verdict.Method, outcome.Verdict.ScoreOrConfidence)
		log.Printf("[WORKFLOW] Found existing duplicate %s for %q", outcome.IssueID, draft.Title)

		record.Outcome = types.OutcomeExistingFound
		record.ResultIssueID = outcome.IssueID
		c.record(ctx, record)
		return outcome, nil
	}

	issue, err := c.writer.CreateIssue(ctx, spacebridge.CreateRequest{
		Title:       in.Title,
		Description: in.Description,
		Labels:      in.Labels,
		Org:         in.Org,
		Project:     in.Project,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create issue: %w", err)
	}

	outcome.Status = types.OutcomeCreated
	outcome.IssueID = issue.ID
	outcome.URL = issue.URL
	outcome.Message = "Successfully created new issue."
	if outcome.DetectionSkipped {
		outcome.Message += " Duplicate detection was skipped."
	}

	record.Outcome = types.OutcomeCreated
	record.ResultIssueID = issue.ID
	c.record(ctx, record)
	return outcome, nil
}

// CheckResult is the verdict for a draft and the candidates it was judged against
type CheckResult struct {
	Verdict    types.DuplicateVerdict
	Candidates []types.CandidateIssue
}

// CheckDuplicate evaluates a draft without creating anything. Search
// failures are returned rather than treated as an empty result.
func (c *IssueCreator) CheckDuplicate(ctx context.Context, draft types.IssueDraft) (*CheckResult, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	candidates, err := c.ranker.FindSimilar(ctx, draft.SearchText())
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	verdict, err := c.detector.Evaluate(ctx, draft, candidates)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDetectionFailed, err)
	}

	record := c.newRecord(draft, "", "")
	applyVerdict(record, verdict)
	record.Outcome = types.OutcomeCheckedOnly
	c.record(ctx, record)

	return &CheckResult{Verdict: verdict, Candidates: candidates}, nil
}

func (c *IssueCreator) evaluate(ctx context.Context, draft types.IssueDraft) (types.DuplicateVerdict, error) {
	candidates, err := c.ranker.FindSimilar(ctx, draft.SearchText())
	if err != nil {
		log.Printf("[WORKFLOW] Warning: similarity search failed, proceeding without duplicate candidates: %v", err)
		candidates = nil
	} else {
		log.Printf("[WORKFLOW] Found %d potential duplicates for %q", len(candidates), draft.Title)
	}
	return c.detector.Evaluate(ctx, draft, candidates)
}

func (c *IssueCreator) newRecord(draft types.IssueDraft, org, project string) *types.DecisionRecord {
	if org == "" {
		org = c.org
	}
	if project == "" {
		project = c.project
	}
	return &types.DecisionRecord{
		DraftTitle:   draft.Title,
		Organization: org,
		Project:      project,
		Method:       types.MethodThreshold,
	}
}

func applyVerdict(record *types.DecisionRecord, v types.DuplicateVerdict) {
	record.Method = v.Method
	record.IsDuplicate = v.IsDuplicate
	record.MatchedIssueID = v.MatchedIssueID
	record.ScoreOrConfidence = v.ScoreOrConfidence
	record.CandidatesConsidered = v.CandidatesConsidered
}

// record stores a decision, logging instead of failing the caller
func (c *IssueCreator) record(ctx context.Context, record *types.DecisionRecord) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.RecordDecision(context.WithoutCancel(ctx), record); err != nil {
		log.Printf("[WORKFLOW] Warning: failed to record decision for %q: %v", record.DraftTitle, err)
	}
}
