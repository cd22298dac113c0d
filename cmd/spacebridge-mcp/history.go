package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/spacebridge/spacebridge-mcp/internal/config"
	"github.com/spacebridge/spacebridge-mcp/internal/storage"
	"github.com/spacebridge/spacebridge-mcp/internal/storage/sqlite"
	"github.com/spacebridge/spacebridge-mcp/internal/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent duplicate decisions",
	Long: `Display the local log of duplicate decisions made by create_issue and
check_duplicate.

Examples:
  spacebridge-mcp history                      # Last 20 decisions
  spacebridge-mcp history -n 50                # Last 50 decisions
  spacebridge-mcp history --outcome existing_duplicate_found
  spacebridge-mcp history --since 24h          # Decisions from the last day
  spacebridge-mcp history --stats              # Totals by outcome and method`,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		outcome, _ := cmd.Flags().GetString("outcome")
		method, _ := cmd.Flags().GetString("method")
		since, _ := cmd.Flags().GetDuration("since")
		showStats, _ := cmd.Flags().GetBool("stats")

		ctx := context.Background()
		settings, err := config.ResolveLocal(overrides)
		if err != nil {
			return err
		}
		store, err := storage.NewStorage(ctx, &storage.Config{Path: settings.DBPath})
		if err != nil {
			return fmt.Errorf("failed to open decision log: %w", err)
		}
		defer store.Close()

		cyan := color.New(color.FgCyan).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		if showStats {
			counts, err := store.GetDecisionCounts(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("\n%s\n\n", cyan("=== Decision Log ==="))
			printDecisionCounts(os.Stdout, counts)
			return nil
		}

		filter := types.DecisionFilter{
			Outcome: types.Outcome(outcome),
			Method:  types.Method(method),
			Limit:   limit,
		}
		if since > 0 {
			filter.Since = time.Now().Add(-since)
		}

		records, err := store.ListDecisions(ctx, filter)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Printf("\n%s No decisions found matching the criteria\n\n", yellow("✨"))
			return nil
		}

		fmt.Printf("\n%s Recent decisions (%d):\n\n", cyan("📋"), len(records))
		for i := len(records) - 1; i >= 0; i-- {
			r := records[i]
			icon := green("+")
			switch r.Outcome {
			case types.OutcomeExistingFound:
				icon = yellow("=")
			case types.OutcomeDetectionError:
				icon = red("!")
			case types.OutcomeCheckedOnly:
				icon = gray("?")
			}
			fmt.Printf("%s %s %s\n", icon, gray(r.CreatedAt.Format("2006-01-02 15:04:05")), r.DraftTitle)
			fmt.Printf("    %s via %s (%.2f, %d considered)", r.Outcome, r.Method, r.ScoreOrConfidence, r.CandidatesConsidered)
			if r.ResultIssueID != "" {
				fmt.Printf(" -> %s", r.ResultIssueID)
			}
			fmt.Println()
			if r.Error != "" {
				fmt.Printf("    %s\n", red(r.Error))
			}
		}
		fmt.Println()
		return nil
	},
}

// printDecisionCounts writes totals with outcomes and methods in sorted order
func printDecisionCounts(w io.Writer, counts *sqlite.DecisionCounts) {
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Fprintf(w, "Total decisions: %s (%s duplicates)\n\n", formatNumber(counts.Total), formatNumber(counts.Duplicates))
	fmt.Fprintf(w, "%s\n", yellow("By outcome:"))
	for _, o := range slices.Sorted(maps.Keys(counts.ByOutcome)) {
		fmt.Fprintf(w, "  %-26s %d\n", o, counts.ByOutcome[o])
	}
	fmt.Fprintf(w, "%s\n", yellow("By method:"))
	for _, m := range slices.Sorted(maps.Keys(counts.ByMethod)) {
		fmt.Fprintf(w, "  %-32s %d\n", m, counts.ByMethod[m])
	}
	fmt.Fprintln(w)
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Number of decisions to show")
	historyCmd.Flags().String("outcome", "", "Filter by outcome (created, existing_duplicate_found, checked, detection_error)")
	historyCmd.Flags().String("method", "", "Filter by method (threshold, semantic, semantic_fallback_to_threshold)")
	historyCmd.Flags().Duration("since", 0, "Only show decisions newer than this (e.g. 24h)")
	historyCmd.Flags().Bool("stats", false, "Show totals instead of individual decisions")
	rootCmd.AddCommand(historyCmd)
}
