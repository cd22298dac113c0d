package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spacebridge/spacebridge-mcp/internal/ai"
	"github.com/spacebridge/spacebridge-mcp/internal/config"
	"github.com/spacebridge/spacebridge-mcp/internal/deduplication"
	"github.com/spacebridge/spacebridge-mcp/internal/spacebridge"
	"github.com/spacebridge/spacebridge-mcp/internal/storage"
	"github.com/spacebridge/spacebridge-mcp/internal/workflow"
)

// Version is set at build time via ldflags
var Version = "0.4.0"

var overrides config.Overrides

var rootCmd = &cobra.Command{
	Use:   "spacebridge-mcp",
	Short: "SpaceBridge MCP server",
	Long: `MCP server for the SpaceBridge issue aggregator.

Run without a subcommand to serve MCP over stdio. Issues created through the
server are checked against similar existing issues first, and the existing
issue is returned when it describes the same problem.

Configuration is read from flags, the environment, .env and
.spacebridge/config.yaml, in that order of precedence.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&overrides.APIURL, "spacebridge-api-url", "", "SpaceBridge API base URL (overrides SPACEBRIDGE_API_URL)")
	flags.StringVar(&overrides.APIKey, "spacebridge-api-key", "", "SpaceBridge API key (overrides SPACEBRIDGE_API_KEY)")
	flags.StringVar(&overrides.LLMAPIKey, "openai-api-key", "", "API key for the LLM provider (overrides OPENAI_API_KEY or the provider's key variable)")
	flags.StringVar(&overrides.LLMProvider, "llm-provider", "", "LLM provider for duplicate comparison: openai, anthropic or google")
	flags.StringVar(&overrides.LLMModel, "llm-model", "", "LLM model for duplicate comparison")
	flags.StringVar(&overrides.Org, "org", "", "Organization (default: from git remote)")
	flags.StringVar(&overrides.Project, "project", "", "Project (default: from git remote)")
	flags.StringVar(&overrides.DBPath, "db", "", "Decision log path (default: .spacebridge/decisions.db)")
	flags.StringVar(&overrides.ConfigPath, "config", "", "Config file (default: .spacebridge/config.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the wired components shared by the commands
type app struct {
	settings *config.Settings
	client   *spacebridge.Client
	store    storage.DecisionLog
	detector *deduplication.Detector
	creator  *workflow.IssueCreator
}

// newApp resolves configuration and wires every component. Close must be
// called when done.
func newApp(ctx context.Context) (*app, error) {
	settings, err := config.Resolve(overrides)
	if err != nil {
		return nil, err
	}

	client, err := spacebridge.NewClient(settings.ClientConfig())
	if err != nil {
		return nil, err
	}

	detector, err := newDetector(ctx, settings)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStorage(ctx, &storage.Config{Path: settings.DBPath})
	if err != nil {
		return nil, fmt.Errorf("failed to open decision log: %w", err)
	}

	creator, err := workflow.NewIssueCreator(&workflow.Config{
		Ranker:         client,
		Detector:       detector,
		Writer:         client,
		Recorder:       store,
		FailOpen:       settings.Dedup.FailOpen,
		MinTitleLength: settings.Dedup.MinTitleLength,
		Org:            settings.Org,
		Project:        settings.Project,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &app{
		settings: settings,
		client:   client,
		store:    store,
		detector: detector,
		creator:  creator,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// newDetector builds the detector, with an LLM comparer when semantic
// judging is enabled
func newDetector(ctx context.Context, s *config.Settings) (*deduplication.Detector, error) {
	var comparer deduplication.Comparer
	if s.Dedup.SemanticJudgeEnabled {
		gen, err := ai.NewGenerator(ctx, s.LLMProvider, s.LLMAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s client: %w", s.LLMProvider, err)
		}

		retry := ai.DefaultRetryConfig()
		retry.MaxRetries = s.Dedup.MaxRetries
		retry.Timeout = s.Dedup.RequestTimeout

		supervisor, err := ai.NewSupervisor(&ai.Config{
			Generator: gen,
			Model:     s.LLMModel,
			Retry:     retry,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create AI supervisor: %w", err)
		}
		comparer = supervisor
	}
	return deduplication.NewDetector(s.Dedup, comparer)
}
