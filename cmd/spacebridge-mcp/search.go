package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/spacebridge/spacebridge-mcp/internal/spacebridge"
	"github.com/spacebridge/spacebridge-mcp/internal/types"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search SpaceBridge issues",
	Long: `Search issues with full-text (default) or similarity search.

Examples:
  spacebridge-mcp search "login"
  spacebridge-mcp search --type similarity "login fails on safari"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		searchType, _ := cmd.Flags().GetString("type")

		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		results, err := a.client.SearchIssues(ctx, spacebridge.SearchRequest{
			Query: strings.Join(args, " "),
			Type:  types.SearchType(searchType),
		})
		if err != nil {
			return err
		}

		if len(results) == 0 {
			yellow := color.New(color.FgYellow).SprintFunc()
			fmt.Printf("\n%s No issues found\n\n", yellow("✨"))
			return nil
		}

		cyan := color.New(color.FgCyan).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		fmt.Printf("\n%s %d issues:\n\n", cyan("🔍"), len(results))
		for _, r := range results {
			score := "    "
			if r.Score != nil {
				score = fmt.Sprintf("%.2f", *r.Score)
			}
			fmt.Printf("  %s %-12s %s\n", gray(score), r.ID, r.Title)
			if r.URL != "" {
				fmt.Printf("       %s\n", gray(r.URL))
			}
		}
		fmt.Println()
		return nil
	},
}

func init() {
	searchCmd.Flags().String("type", string(types.SearchFullText), "Search type: full_text or similarity")
	rootCmd.AddCommand(searchCmd)
}
