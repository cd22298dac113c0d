package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/spacebridge/spacebridge-mcp/internal/mcpserver"
	"github.com/spacebridge/spacebridge-mcp/internal/spacebridge"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve MCP over stdio (default)",
	Long: `Serve the SpaceBridge tools and issue resources over MCP on stdin/stdout.

The server version is checked first; startup fails if this client is older
than the server's minimum supported version. Logs go to stderr.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Printf("Warning: failed to close decision log: %v", err)
		}
	}()

	s := a.settings
	log.Printf("Starting SpaceBridge MCP server %s", Version)
	log.Printf("API: %s  Org: %s (%s)  Project: %s (%s)",
		a.client.BaseURL(), orNone(s.Org), orNone(s.OrgSource), orNone(s.Project), orNone(s.ProjectSource))
	if s.Dedup.SemanticJudgeEnabled {
		log.Printf("Duplicate detection: semantic (%s %s)", s.LLMProvider, s.LLMModel)
	} else {
		log.Printf("Duplicate detection: similarity threshold %.2f", s.Dedup.SimilarityThreshold)
	}

	if err := checkServerVersion(ctx, a.client); err != nil {
		return err
	}

	if s.Retention.CleanupEnabled {
		deleted, err := a.store.PruneDecisions(ctx, s.Retention.MaxAge(), s.Retention.MaxRecords)
		if err != nil {
			log.Printf("Warning: decision log cleanup failed: %v", err)
		} else if deleted > 0 {
			log.Printf("Pruned %d old decision records", deleted)
		}
	}

	srv, err := mcpserver.New(mcpserver.Options{
		Version:  Version,
		Tracker:  a.client,
		Workflow: a.creator,
	})
	if err != nil {
		return err
	}

	log.Printf("Serving MCP over stdio")
	if err := mcpserver.ServeStdio(ctx, srv); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP server stopped: %w", err)
	}
	log.Printf("Server stopped")
	return nil
}

// checkServerVersion refuses to start when the server requires a newer
// client. An unreachable version endpoint only warns.
func checkServerVersion(ctx context.Context, client *spacebridge.Client) error {
	versionCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	info, err := client.GetVersion(versionCtx, Version)
	if err != nil {
		log.Printf("Warning: could not check server version: %v", err)
		return nil
	}

	check, err := spacebridge.CheckVersion(info, Version)
	if err != nil {
		return err
	}
	if check.UpgradeRecommended {
		log.Printf("Warning: a newer client version (%s) is available, you are running %s", check.LatestVersion, Version)
	}
	if check.ServerVersion != "" {
		log.Printf("Connected to SpaceBridge server %s", check.ServerVersion)
	}
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
