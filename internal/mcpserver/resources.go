package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// IssueURIPrefix is followed by the issue ID in resource URIs
const IssueURIPrefix = "spacebridge://api/v1/issues/"

// IssueResource serves single issues as JSON resources
type IssueResource struct {
	tracker Tracker
}

// NewIssueResource creates the issue resource handler
func NewIssueResource(tracker Tracker) *IssueResource {
	return &IssueResource{tracker: tracker}
}

// Template returns the resource template definition
func (r *IssueResource) Template() mcp.ResourceTemplate {
	return mcp.NewResourceTemplate(
		IssueURIPrefix+"{issue_id}",
		"SpaceBridge issue",
		mcp.WithTemplateDescription("A single SpaceBridge issue by ID"),
		mcp.WithTemplateMIMEType("application/json"),
	)
}

// Handle reads one issue
func (r *IssueResource) Handle(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	issueID := strings.TrimPrefix(uri, IssueURIPrefix)
	if issueID == uri || issueID == "" || strings.Contains(issueID, "/") {
		return nil, fmt.Errorf("invalid issue resource URI: %s", uri)
	}

	issue, err := r.tracker.GetIssue(ctx, issueID)
	if err != nil {
		return nil, fmt.Errorf("failed to read issue %s: %w", issueID, err)
	}

	data, err := json.Marshal(issue)
	if err != nil {
		return nil, fmt.Errorf("failed to encode issue %s: %w", issueID, err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
