package types

import (
	"fmt"
	"math"
	"time"
)

// CandidateIssue is an existing issue surfaced by similarity search as a possible
// match for a new draft. SimilarityScore is in [0,1], higher is more similar.
type CandidateIssue struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	Description     string  `json:"description,omitempty"`
	URL             string  `json:"url,omitempty"`
	SimilarityScore float64 `json:"similarity_score"`
}

// ValidScore reports whether the similarity score is a number in [0,1]
func (c CandidateIssue) ValidScore() bool {
	return !math.IsNaN(c.SimilarityScore) && c.SimilarityScore >= 0.0 && c.SimilarityScore <= 1.0
}

// Method records which judging strategy produced a verdict
type Method string

const (
	// MethodThreshold is a pure numeric comparison of the top similarity score
	MethodThreshold Method = "threshold"
	// MethodSemantic is a text-generation provider comparison
	MethodSemantic Method = "semantic"
	// MethodSemanticFallback means the semantic path failed and the threshold rule decided
	MethodSemanticFallback Method = "semantic_fallback_to_threshold"
)

// IsValid checks if the method value is valid
func (m Method) IsValid() bool {
	switch m {
	case MethodThreshold, MethodSemantic, MethodSemanticFallback:
		return true
	}
	return false
}

// DuplicateVerdict is the single output of duplicate detection
type DuplicateVerdict struct {
	IsDuplicate bool `json:"is_duplicate"`

	// MatchedIssueID is set if and only if IsDuplicate is true
	MatchedIssueID string `json:"matched_issue_id,omitempty"`

	// MatchedIssueURL is carried through from the candidate when known
	MatchedIssueURL string `json:"matched_issue_url,omitempty"`

	Method Method `json:"method"`

	// ScoreOrConfidence is the raw similarity score for threshold verdicts and
	// the provider's confidence for semantic verdicts
	ScoreOrConfidence float64 `json:"score_or_confidence"`

	CandidatesConsidered int `json:"candidates_considered"`

	// Reasoning is the provider's rationale, when one was given
	Reasoning string `json:"reasoning,omitempty"`
}

// Validate checks if the verdict has valid values
func (v DuplicateVerdict) Validate() error {
	if !v.Method.IsValid() {
		return fmt.Errorf("invalid method: %q", v.Method)
	}
	if math.IsNaN(v.ScoreOrConfidence) || v.ScoreOrConfidence < 0.0 || v.ScoreOrConfidence > 1.0 {
		return fmt.Errorf("score_or_confidence must be between 0.0 and 1.0 (got %.2f)", v.ScoreOrConfidence)
	}
	if v.IsDuplicate && v.MatchedIssueID == "" {
		return fmt.Errorf("matched_issue_id must be set when is_duplicate is true")
	}
	if !v.IsDuplicate && v.MatchedIssueID != "" {
		return fmt.Errorf("matched_issue_id should not be set when is_duplicate is false")
	}
	if v.CandidatesConsidered < 0 {
		return fmt.Errorf("candidates_considered cannot be negative (got %d)", v.CandidatesConsidered)
	}
	return nil
}

// Outcome is what the issue creation workflow did with a draft
type Outcome string

const (
	OutcomeCreated        Outcome = "created"
	OutcomeExistingFound  Outcome = "existing_duplicate_found"
	OutcomeCheckedOnly    Outcome = "checked"
	OutcomeDetectionError Outcome = "detection_error"
)

// DecisionRecord is an audit entry for one duplicate decision
type DecisionRecord struct {
	ID                   string    `json:"id"`
	DraftTitle           string    `json:"draft_title"`
	Organization         string    `json:"organization,omitempty"`
	Project              string    `json:"project,omitempty"`
	Method               Method    `json:"method"`
	IsDuplicate          bool      `json:"is_duplicate"`
	MatchedIssueID       string    `json:"matched_issue_id,omitempty"`
	ScoreOrConfidence    float64   `json:"score_or_confidence"`
	CandidatesConsidered int       `json:"candidates_considered"`
	Outcome              Outcome   `json:"outcome"`
	ResultIssueID        string    `json:"result_issue_id,omitempty"`
	Error                string    `json:"error,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
}

// DecisionFilter selects decision records. Zero fields match everything.
type DecisionFilter struct {
	Outcome     Outcome
	Method      Method
	Project     string
	DuplicateOf string
	Since       time.Time
	Limit       int
}
