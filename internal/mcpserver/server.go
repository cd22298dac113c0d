// Package mcpserver exposes the SpaceBridge tools and issue resources over
// the Model Context Protocol.
package mcpserver

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/spacebridge/spacebridge-mcp/internal/spacebridge"
	"github.com/spacebridge/spacebridge-mcp/internal/types"
	"github.com/spacebridge/spacebridge-mcp/internal/workflow"
)

// ServerName is reported to MCP clients during initialization
const ServerName = "spacebridge-issue-manager"

// Tracker is the subset of the SpaceBridge client the tools call directly
type Tracker interface {
	GetIssue(ctx context.Context, id string) (*types.Issue, error)
	SearchIssues(ctx context.Context, req spacebridge.SearchRequest) ([]types.IssueSummary, error)
	UpdateIssue(ctx context.Context, id string, req spacebridge.UpdateRequest) (*types.Issue, error)
}

// IssueWorkflow creates issues with duplicate detection
type IssueWorkflow interface {
	CreateIssue(ctx context.Context, in workflow.CreateInput) (*workflow.CreateOutcome, error)
	CheckDuplicate(ctx context.Context, draft types.IssueDraft) (*workflow.CheckResult, error)
}

// Options configures New
type Options struct {
	Version  string
	Tracker  Tracker       // required
	Workflow IssueWorkflow // required
}

// New creates the MCP server with all tools and resources registered
func New(opts Options) (*server.MCPServer, error) {
	if opts.Tracker == nil {
		return nil, fmt.Errorf("tracker is required")
	}
	if opts.Workflow == nil {
		return nil, fmt.Errorf("issue workflow is required")
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}

	s := server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	searchTool := NewSearchIssuesTool(opts.Tracker)
	s.AddTool(searchTool.Definition(), searchTool.Handle)

	createTool := NewCreateIssueTool(opts.Workflow)
	s.AddTool(createTool.Definition(), createTool.Handle)

	updateTool := NewUpdateIssueTool(opts.Tracker)
	s.AddTool(updateTool.Definition(), updateTool.Handle)

	checkTool := NewCheckDuplicateTool(opts.Workflow)
	s.AddTool(checkTool.Definition(), checkTool.Handle)

	issues := NewIssueResource(opts.Tracker)
	s.AddResourceTemplate(issues.Template(), issues.Handle)

	return s, nil
}

// ServeStdio runs the server on stdin/stdout until ctx is cancelled or the
// client disconnects. Server errors are logged to stderr.
func ServeStdio(ctx context.Context, s *server.MCPServer) error {
	return Serve(ctx, s, os.Stdin, os.Stdout)
}

// Serve runs the server over the given streams
func Serve(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s)
	stdio.SetErrorLogger(log.New(os.Stderr, "[MCP] ", log.LstdFlags))
	return stdio.Listen(ctx, in, out)
}

func serverInstructions() string {
	return `SpaceBridge aggregates issues from the project's trackers.

Use search_issues to look for existing issues before starting work.
Use create_issue to file a new issue; it checks for duplicates first and
returns the existing issue instead of creating one when a duplicate is found.
Use check_duplicate to ask whether an issue already exists without filing it.
Write issue titles and descriptions in the present tense.`
}
