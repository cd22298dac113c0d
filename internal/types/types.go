package types

import (
	"fmt"
	"strings"
	"time"
)

// Issue represents an issue record held by the SpaceBridge tracker aggregation service
type Issue struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Status       string     `json:"status,omitempty"`
	URL          string     `json:"url,omitempty"`
	Labels       []string   `json:"labels,omitempty"`
	Organization string     `json:"organization,omitempty"`
	Project      string     `json:"project,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// IssueSummary is a single search hit. Description may be truncated by the service,
// and Score is only present for similarity searches.
type IssueSummary struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	URL         string   `json:"url,omitempty"`
	Score       *float64 `json:"score,omitempty"`
}

// SearchType selects the search strategy of the aggregation service
type SearchType string

const (
	SearchFullText   SearchType = "full_text"
	SearchSimilarity SearchType = "similarity"
)

// IsValid checks if the search type value is valid
func (s SearchType) IsValid() bool {
	switch s {
	case SearchFullText, SearchSimilarity:
		return true
	}
	return false
}

// IssueDraft is a newly proposed issue that has not been filed yet
type IssueDraft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Validate checks if the draft has valid field values
func (d IssueDraft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if len(d.Title) > 500 {
		return fmt.Errorf("title must be 500 characters or less (got %d)", len(d.Title))
	}
	return nil
}

// SearchText is the query sent to similarity search for this draft
func (d IssueDraft) SearchText() string {
	if d.Description == "" {
		return d.Title
	}
	return d.Title + "\n\n" + d.Description
}
