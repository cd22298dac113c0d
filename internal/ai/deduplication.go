package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/spacebridge/spacebridge-mcp/internal/types"
)

var (
	// ErrProviderCall wraps every failure to obtain a reply from the model
	ErrProviderCall = errors.New("provider call failed")

	// ErrUnparseableResponse is returned when a reply is neither the expected
	// JSON object nor a recognized verdict token
	ErrUnparseableResponse = errors.New("unparseable duplicate verdict")
)

// maxPromptDescription bounds each description embedded in a comparison prompt
const maxPromptDescription = 4000

// duplicateCheckMaxTokens is enough for the JSON object plus a short reasoning
const duplicateCheckMaxTokens = 400

var duplicateWithIDRegex = regexp.MustCompile(`(?i)^DUPLICATE\s*:\s*(\S+)$`)

// DuplicateCheckResponse is the model's judgment on one draft/candidate pair
type DuplicateCheckResponse struct {
	IsDuplicate bool     `json:"is_duplicate"`
	Confidence  *float64 `json:"confidence,omitempty"` // nil when the model gave none
	Reasoning   string   `json:"reasoning,omitempty"`

	// MatchedID is the issue ID echoed by a "DUPLICATE: <id>" reply
	MatchedID string `json:"matched_id,omitempty"`
}

// duplicateCheckWire keeps is_duplicate nullable so a missing field is detectable
type duplicateCheckWire struct {
	IsDuplicate *bool    `json:"is_duplicate"`
	Confidence  *float64 `json:"confidence"`
	Reasoning   string   `json:"reasoning"`
}

// CompareIssues asks the model whether draft describes the same underlying
// problem as candidate. One call per candidate; the caller decides ordering
// and early exit.
func (s *Supervisor) CompareIssues(ctx context.Context, draft types.IssueDraft, candidate types.CandidateIssue) (*DuplicateCheckResponse, error) {
	startTime := time.Now()

	prompt := s.buildDuplicateCheckPrompt(draft, candidate)
	responseText, err := s.CallAI(ctx, prompt, "duplicate_check", s.model, duplicateCheckMaxTokens)
	if err != nil {
		return nil, err
	}

	response, err := ParseDuplicateVerdict(responseText)
	if err != nil {
		return nil, err
	}
	if response.MatchedID != "" && !strings.EqualFold(response.MatchedID, candidate.ID) {
		return nil, fmt.Errorf("%w: reply names %s but %s was compared",
			ErrUnparseableResponse, response.MatchedID, candidate.ID)
	}

	confidence := "n/a"
	if response.Confidence != nil {
		confidence = fmt.Sprintf("%.2f", *response.Confidence)
	}
	log.Printf("[AI] duplicate_check vs %s: is_duplicate=%v confidence=%s duration=%v",
		candidate.ID, response.IsDuplicate, confidence, time.Since(startTime))

	return response, nil
}

// ParseDuplicateVerdict interprets a model reply. A JSON object with a boolean
// is_duplicate is preferred; otherwise the whole reply must be one of the
// verdict tokens (DUPLICATE, "DUPLICATE: <id>", YES, TRUE, NOT_DUPLICATE,
// "NOT DUPLICATE", NO, FALSE), compared case-insensitively.
func ParseDuplicateVerdict(text string) (*DuplicateCheckResponse, error) {
	parsed := Parse[duplicateCheckWire](text, ParseOptions{Context: "duplicate check response"})
	if parsed.Success {
		wire := parsed.Data
		if wire.IsDuplicate == nil {
			return nil, fmt.Errorf("%w: missing is_duplicate (response: %s)",
				ErrUnparseableResponse, truncate(text, 200))
		}
		if wire.Confidence != nil && (*wire.Confidence < 0.0 || *wire.Confidence > 1.0) {
			return nil, fmt.Errorf("%w: confidence %.2f outside [0,1]",
				ErrUnparseableResponse, *wire.Confidence)
		}
		return &DuplicateCheckResponse{
			IsDuplicate: *wire.IsDuplicate,
			Confidence:  wire.Confidence,
			Reasoning:   wire.Reasoning,
		}, nil
	}

	if isDup, matchedID, ok := parseVerdictToken(text); ok {
		return &DuplicateCheckResponse{
			IsDuplicate: isDup,
			Reasoning:   strings.TrimSpace(text),
			MatchedID:   matchedID,
		}, nil
	}

	return nil, fmt.Errorf("%w: %s (response: %s)",
		ErrUnparseableResponse, parsed.Error, truncate(text, 200))
}

// parseVerdictToken matches the bare token protocol against the entire reply.
// matchedID is set for "DUPLICATE: <id>", with the ID's original case.
func parseVerdictToken(text string) (isDuplicate bool, matchedID string, ok bool) {
	raw := strings.Trim(strings.TrimSpace(text), "`\"'")
	raw = strings.TrimSuffix(strings.TrimSpace(raw), ".")

	switch strings.ToUpper(raw) {
	case "DUPLICATE", "YES", "TRUE":
		return true, "", true
	case "NOT_DUPLICATE", "NOT DUPLICATE", "NO", "FALSE":
		return false, "", true
	}
	if m := duplicateWithIDRegex.FindStringSubmatch(raw); m != nil {
		return true, m[1], true
	}
	return false, "", false
}

// buildDuplicateCheckPrompt presents the draft and a single candidate
func (s *Supervisor) buildDuplicateCheckPrompt(draft types.IssueDraft, candidate types.CandidateIssue) string {
	return fmt.Sprintf(`You are analyzing whether a newly drafted issue duplicates an existing issue in the same project.

NEW ISSUE (not yet filed):
Title: %s
Description: %s

EXISTING ISSUE:
ID: %s
Title: %s
Description: %s
Search similarity score: %.2f

TASK:
Determine if the NEW issue describes the SAME underlying problem or request as the EXISTING issue.

GUIDELINES:
1. Consider SEMANTIC SIMILARITY, not just exact string matching
2. Different wording is OK if both describe the same problem
3. Same component, error message or reproduction steps strongly suggests a duplicate
4. Related but distinct problems are NOT duplicates
5. The similarity score comes from a search index and is only a hint

EXAMPLES OF DUPLICATES:
- "Login button unresponsive on Safari" vs "Cannot click sign-in on Safari"
- "Crash when uploading empty CSV" vs "CSV import panics on empty file"

EXAMPLES OF NON-DUPLICATES:
- "Fix login bug" vs "Add registration feature"
- "Optimize search queries" vs "Fix search index connection leak"

OUTPUT FORMAT (JSON only, no markdown):
{
  "is_duplicate": boolean,
  "confidence": float (0.0-1.0),
  "reasoning": "Brief explanation of why this is/isn't a duplicate"
}

IMPORTANT: Respond with ONLY raw JSON. Do NOT wrap it in markdown code fences.`,
		draft.Title, safeTruncateString(draft.Description, maxPromptDescription),
		candidate.ID, candidate.Title, safeTruncateString(candidate.Description, maxPromptDescription),
		candidate.SimilarityScore)
}
