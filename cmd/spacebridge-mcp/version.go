package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/spacebridge/spacebridge-mcp/internal/config"
	"github.com/spacebridge/spacebridge-mcp/internal/spacebridge"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the client version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("spacebridge-mcp %s\n", Version)

		withServer, _ := cmd.Flags().GetBool("server")
		if !withServer {
			return nil
		}

		settings, err := config.Resolve(overrides)
		if err != nil {
			return err
		}
		client, err := spacebridge.NewClient(settings.ClientConfig())
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		info, err := client.GetVersion(ctx, Version)
		if err != nil {
			return err
		}

		fmt.Printf("server %s (clients %s to %s)\n", info.ServerVersion,
			orNone(info.MinClientVersion), orNone(info.MaxClientVersion))

		check, err := spacebridge.CheckVersion(info, Version)
		if err != nil {
			fmt.Println(color.RedString("this client is too old: %v", err))
			return nil
		}
		if check.UpgradeRecommended {
			fmt.Println(color.YellowString("upgrade available: %s", check.LatestVersion))
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().Bool("server", false, "Also query the SpaceBridge server version")
	rootCmd.AddCommand(versionCmd)
}
