package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/spacebridge/spacebridge-mcp/internal/spacebridge"
	"github.com/spacebridge/spacebridge-mcp/internal/types"
	"github.com/spacebridge/spacebridge-mcp/internal/workflow"
)

// jsonResult renders v as the text content of a tool result
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// --- search_issues ---

// SearchIssuesTool runs full-text or similarity searches
type SearchIssuesTool struct {
	tracker Tracker
}

// NewSearchIssuesTool creates the search_issues tool
func NewSearchIssuesTool(tracker Tracker) *SearchIssuesTool {
	return &SearchIssuesTool{tracker: tracker}
}

// Definition returns the MCP tool definition
func (t *SearchIssuesTool) Definition() mcp.Tool {
	return mcp.NewTool("search_issues",
		mcp.WithDescription("Searches for issues in SpaceBridge using full-text or similarity search."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Text to search for"),
		),
		mcp.WithString("search_type",
			mcp.Description("full_text (default) or similarity"),
			mcp.Enum(string(types.SearchFullText), string(types.SearchSimilarity)),
		),
	)
}

// SearchIssuesOutput is the search_issues result
type SearchIssuesOutput struct {
	Results []types.IssueSummary `json:"results"`
}

// Handle executes the tool
func (t *SearchIssuesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	searchType := types.SearchType(req.GetString("search_type", string(types.SearchFullText)))
	if !searchType.IsValid() {
		return mcp.NewToolResultError(fmt.Sprintf("invalid search_type %q: use full_text or similarity", searchType)), nil
	}

	log.Printf("[MCP] search_issues query=%q type=%s", query, searchType)
	results, err := t.tracker.SearchIssues(ctx, spacebridge.SearchRequest{Query: query, Type: searchType})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if results == nil {
		results = []types.IssueSummary{}
	}
	return jsonResult(SearchIssuesOutput{Results: results})
}

// --- create_issue ---

// CreateIssueTool files an issue unless a duplicate already exists
type CreateIssueTool struct {
	workflow IssueWorkflow
}

// NewCreateIssueTool creates the create_issue tool
func NewCreateIssueTool(wf IssueWorkflow) *CreateIssueTool {
	return &CreateIssueTool{workflow: wf}
}

// Definition returns the MCP tool definition
func (t *CreateIssueTool) Definition() mcp.Tool {
	return mcp.NewTool("create_issue",
		mcp.WithDescription("Creates a new issue in SpaceBridge, checking for potential duplicates first using "+
			"similarity search and LLM comparison. Issue title and description should ALWAYS be in present tense."),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Issue title, present tense"),
		),
		mcp.WithString("description",
			mcp.Required(),
			mcp.Description("Issue description, present tense"),
		),
		mcp.WithArray("labels",
			mcp.Description("Optional labels to attach"),
			mcp.Items(map[string]any{"type": "string"}),
		),
	)
}

// CreateIssueOutput is the create_issue result
type CreateIssueOutput struct {
	IssueID string `json:"issue_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`

	Method               types.Method `json:"method,omitempty"`
	ScoreOrConfidence    float64      `json:"score_or_confidence"`
	CandidatesConsidered int          `json:"candidates_considered"`
}

// Handle executes the tool
func (t *CreateIssueTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	description, err := req.RequireString("description")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	labels := req.GetStringSlice("labels", nil)

	log.Printf("[MCP] create_issue title=%q", title)
	out, err := t.workflow.CreateIssue(ctx, workflow.CreateInput{
		Title:       title,
		Description: description,
		Labels:      labels,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("create_issue failed: %v", err)), nil
	}

	return jsonResult(CreateIssueOutput{
		IssueID:              out.IssueID,
		Status:               string(out.Status),
		Message:              out.Message,
		URL:                  out.URL,
		Method:               out.Verdict.Method,
		ScoreOrConfidence:    out.Verdict.ScoreOrConfidence,
		CandidatesConsidered: out.Verdict.CandidatesConsidered,
	})
}

// --- update_issue ---

// UpdateIssueTool changes fields of an existing issue
type UpdateIssueTool struct {
	tracker Tracker
}

// NewUpdateIssueTool creates the update_issue tool
func NewUpdateIssueTool(tracker Tracker) *UpdateIssueTool {
	return &UpdateIssueTool{tracker: tracker}
}

// Definition returns the MCP tool definition
func (t *UpdateIssueTool) Definition() mcp.Tool {
	return mcp.NewTool("update_issue",
		mcp.WithDescription("Updates an existing issue in SpaceBridge."),
		mcp.WithString("issue_id",
			mcp.Required(),
			mcp.Description("ID of the issue to update"),
		),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("description", mcp.Description("New description")),
		mcp.WithString("status", mcp.Description("New status, e.g. open or closed")),
	)
}

// UpdateIssueOutput is the update_issue result
type UpdateIssueOutput struct {
	IssueID string `json:"issue_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`
}

// Handle executes the tool. Failures are reported as a "failed" status.
func (t *UpdateIssueTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issueID, err := req.RequireString("issue_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	update := spacebridge.UpdateRequest{
		Title:       optionalString(req, "title"),
		Description: optionalString(req, "description"),
		Status:      optionalString(req, "status"),
	}

	log.Printf("[MCP] update_issue id=%s", issueID)
	issue, err := t.tracker.UpdateIssue(ctx, issueID, update)
	if err != nil {
		message := fmt.Sprintf("An error occurred: %v", err)
		if errors.Is(err, spacebridge.ErrNoUpdateFields) {
			message = "No fields provided to update."
		}
		result, jerr := jsonResult(UpdateIssueOutput{IssueID: issueID, Status: "failed", Message: message})
		if jerr != nil {
			return nil, jerr
		}
		result.IsError = true
		return result, nil
	}

	return jsonResult(UpdateIssueOutput{
		IssueID: issue.ID,
		Status:  "updated",
		Message: fmt.Sprintf("Successfully updated issue %s.", issueID),
		URL:     issue.URL,
	})
}

// optionalString returns nil when the argument is absent
func optionalString(req mcp.CallToolRequest, key string) *string {
	v, ok := req.GetArguments()[key].(string)
	if !ok {
		return nil
	}
	return &v
}

// --- check_duplicate ---

// CheckDuplicateTool reports whether a draft duplicates an existing issue
type CheckDuplicateTool struct {
	workflow IssueWorkflow
}

// NewCheckDuplicateTool creates the check_duplicate tool
func NewCheckDuplicateTool(wf IssueWorkflow) *CheckDuplicateTool {
	return &CheckDuplicateTool{workflow: wf}
}

// Definition returns the MCP tool definition
func (t *CheckDuplicateTool) Definition() mcp.Tool {
	return mcp.NewTool("check_duplicate",
		mcp.WithDescription("Checks whether an issue with this title and description already exists in SpaceBridge, "+
			"without creating anything."),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Proposed issue title"),
		),
		mcp.WithString("description", mcp.Description("Proposed issue description")),
	)
}

// CheckDuplicateOutput is the check_duplicate result
type CheckDuplicateOutput struct {
	Verdict    types.DuplicateVerdict `json:"verdict"`
	Candidates []types.CandidateIssue `json:"candidates"`
}

// Handle executes the tool
func (t *CheckDuplicateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	draft := types.IssueDraft{Title: title, Description: req.GetString("description", "")}

	res, err := t.workflow.CheckDuplicate(ctx, draft)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("check_duplicate failed: %v", err)), nil
	}
	candidates := res.Candidates
	if candidates == nil {
		candidates = []types.CandidateIssue{}
	}
	return jsonResult(CheckDuplicateOutput{Verdict: res.Verdict, Candidates: candidates})
}
