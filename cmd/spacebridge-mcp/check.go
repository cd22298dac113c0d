package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/spacebridge/spacebridge-mcp/internal/types"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check whether an issue already exists",
	Long: `Run duplicate detection for a proposed issue without creating it.

Examples:
  spacebridge-mcp check --title "Login fails on Safari"
  spacebridge-mcp check -t "Crash on save" -d "Saving a large file crashes the editor"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		description, _ := cmd.Flags().GetString("description")

		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.creator.CheckDuplicate(ctx, types.IssueDraft{Title: title, Description: description})
		if err != nil {
			return err
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("\n%s\n\n", cyan("=== Duplicate Check ==="))
		fmt.Printf("Candidates found: %d\n", len(res.Candidates))
		for _, c := range res.Candidates {
			fmt.Printf("  %s %-12s %s\n", gray(fmt.Sprintf("%.2f", c.SimilarityScore)), c.ID, c.Title)
		}
		fmt.Println()

		v := res.Verdict
		if v.IsDuplicate {
			fmt.Printf("%s duplicate of %s", yellow("●"), yellow(v.MatchedIssueID))
			if v.MatchedIssueURL != "" {
				fmt.Printf(" (%s)", v.MatchedIssueURL)
			}
			fmt.Println()
		} else {
			fmt.Printf("%s no duplicate found\n", green("○"))
		}
		fmt.Printf("  Method:     %s\n", v.Method)
		fmt.Printf("  Score:      %.2f\n", v.ScoreOrConfidence)
		fmt.Printf("  Considered: %d\n", v.CandidatesConsidered)
		if strings.TrimSpace(v.Reasoning) != "" {
			fmt.Printf("  Reasoning:  %s\n", v.Reasoning)
		}
		fmt.Println()
		return nil
	},
}

func init() {
	checkCmd.Flags().StringP("title", "t", "", "Proposed issue title")
	checkCmd.Flags().StringP("description", "d", "", "Proposed issue description")
	_ = checkCmd.MarkFlagRequired("title")
	rootCmd.AddCommand(checkCmd)
}
