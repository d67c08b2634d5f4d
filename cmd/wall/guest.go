package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/guestwall/internal/model"
)

var guestCmd = &cobra.Command{
	Use:     "guest",
	Short:   "Register and look up guests",
	GroupID: "wall",
}

var guestRegisterCmd = &cobra.Command{
	Use:   "register <name> <phone>",
	Short: "Register a guest (re-registering a phone returns the same guest)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eventID, err := requireEvent()
		if err != nil {
			return err
		}
		g, err := wallClient.RegisterGuest(context.Background(), eventID, model.NewGuestInput{Name: args[0], Phone: args[1]})
		if err != nil {
			return fmt.Errorf("registering guest: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), g)
		}
		printGuestTable(cmd.OutOrStdout(), g)
		return nil
	},
}

var guestShowCmd = &cobra.Command{
	Use:   "show <phone>",
	Short: "Show the guest registered under a phone number",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eventID, err := requireEvent()
		if err != nil {
			return err
		}
		g, err := wallClient.GetGuest(context.Background(), eventID, args[0])
		if err != nil {
			return fmt.Errorf("getting guest: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), g)
		}
		printGuestTable(cmd.OutOrStdout(), g)
		return nil
	},
}

func init() {
	guestCmd.AddCommand(guestRegisterCmd)
	guestCmd.AddCommand(guestShowCmd)
}
