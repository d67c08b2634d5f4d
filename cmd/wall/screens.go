package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var screensCmd = &cobra.Command{
	Use:     "screens",
	Short:   "List the screens watching a wall",
	GroupID: "views",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		eventID := ""
		if !all {
			var err error
			if eventID, err = requireEvent(); err != nil {
				return err
			}
		}
		screens, err := wallClient.Screens(context.Background(), eventID)
		if err != nil {
			return fmt.Errorf("listing screens: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), screens)
		}
		printScreens(cmd.OutOrStdout(), screens)
		return nil
	},
}

func init() {
	screensCmd.Flags().Bool("all", false, "list screens of every event")
}
