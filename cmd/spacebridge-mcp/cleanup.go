package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/spacebridge/spacebridge-mcp/internal/config"
	"github.com/spacebridge/spacebridge-mcp/internal/storage"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Prune the decision log",
	Long: `Delete old duplicate decisions according to the retention policy.

Runs two cleanup steps in sequence:
  1. Time-based: Delete decisions older than the retention period
  2. Count-based: Keep only the newest decisions up to the record limit

Retention is read from .spacebridge/config.yaml (retention:) and the
SPACEBRIDGE_DECISION_* environment variables. The server also prunes on
startup unless SPACEBRIDGE_DECISION_CLEANUP=false.

Examples:
  spacebridge-mcp cleanup                  # Run cleanup with configured retention
  spacebridge-mcp cleanup --vacuum         # Run cleanup and reclaim disk space
  spacebridge-mcp cleanup --dry-run        # Show configuration and current counts`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		vacuum, _ := cmd.Flags().GetBool("vacuum")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		settings, err := config.ResolveLocal(overrides)
		if err != nil {
			return err
		}
		retention := settings.Retention

		store, err := storage.NewStorage(ctx, &storage.Config{Path: settings.DBPath})
		if err != nil {
			return fmt.Errorf("failed to open decision log: %w", err)
		}
		defer store.Close()

		fmt.Printf("Decision Retention Configuration:\n")
		fmt.Printf("  Retention: %d days\n", retention.RetentionDays)
		if retention.MaxRecords > 0 {
			fmt.Printf("  Record limit: %s\n", formatNumber(retention.MaxRecords))
		} else {
			fmt.Printf("  Record limit: unlimited\n")
		}
		fmt.Printf("  Database: %s\n\n", settings.DBPath)

		before, err := store.GetDecisionCounts(ctx)
		if err != nil {
			return fmt.Errorf("failed to get decision counts: %w", err)
		}
		fmt.Printf("Current state:\n")
		fmt.Printf("  Total decisions: %s\n\n", formatNumber(before.Total))

		if dryRun {
			fmt.Printf("%s\n", color.YellowString("DRY RUN MODE - No decisions were deleted"))
			return nil
		}

		startTime := time.Now()
		deleted, err := store.PruneDecisions(ctx, retention.MaxAge(), retention.MaxRecords)
		if err != nil {
			return fmt.Errorf("cleanup failed after deleting %d decisions: %w", deleted, err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Cleanup complete\n", green("✓"))
		fmt.Printf("  Decisions deleted: %s\n", formatNumber(deleted))
		if after, err := store.GetDecisionCounts(ctx); err != nil {
			remaining := before.Total - deleted
			if remaining < 0 {
				remaining = 0
			}
			fmt.Printf("  Decisions remaining: ~%s (estimated)\n", formatNumber(remaining))
		} else {
			fmt.Printf("  Decisions remaining: %s\n", formatNumber(after.Total))
		}
		fmt.Printf("  Time taken: %s\n", time.Since(startTime).Round(time.Millisecond))

		if vacuum {
			fmt.Printf("\nRunning VACUUM to reclaim disk space...\n")
			if err := store.Vacuum(ctx); err != nil {
				return err
			}
			fmt.Printf("%s VACUUM complete\n", green("✓"))
		}
		return nil
	},
}

func init() {
	cleanupCmd.Flags().Bool("dry-run", false, "Show what would be pruned without deleting")
	cleanupCmd.Flags().Bool("vacuum", false, "Run VACUUM after cleanup to reclaim disk space")
	rootCmd.AddCommand(cleanupCmd)
}

// formatNumber formats a number with thousand separators
func formatNumber(n int) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	s := fmt.Sprintf("%d", n)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}
