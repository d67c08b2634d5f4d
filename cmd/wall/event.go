package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/guestwall/internal/client"
	"github.com/alfredjeanlab/guestwall/internal/model"
)

var eventCmd = &cobra.Command{
	Use:     "event",
	Short:   "Create and inspect events",
	GroupID: "wall",
}

var eventCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create an event (deactivates the admin's previous events)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		display, _ := cmd.Flags().GetString("display-name")
		admin, _ := cmd.Flags().GetString("admin")
		bg, _ := cmd.Flags().GetString("background")
		fg, _ := cmd.Flags().GetString("text-color")
		image, _ := cmd.Flags().GetString("background-image")

		ev, err := wallClient.CreateEvent(context.Background(), model.NewEventInput{
			Name:        args[0],
			DisplayName: display,
			AdminID:     admin,
			Theme:       model.Theme{BackgroundColor: bg, TextColor: fg, BackgroundImage: image},
		})
		if err != nil {
			return fmt.Errorf("creating event: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), ev)
		}
		printEventTable(cmd.OutOrStdout(), ev)
		return nil
	},
}

var eventShowCmd = &cobra.Command{
	Use:   "show [<id-or-code>]",
	Short: "Show an event by ID or access code",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref := eventFlag
		if len(args) == 1 {
			ref = args[0]
		}
		if ref == "" {
			return fmt.Errorf("pass an event ID or code")
		}
		ev, err := resolveEvent(context.Background(), wallClient, ref)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), ev)
		}
		printEventTable(cmd.OutOrStdout(), ev)
		return nil
	},
}

var eventStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show pending, approved and rejected counts and connected screens",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eventID, err := requireEvent()
		if err != nil {
			return err
		}
		stats, err := wallClient.EventStats(context.Background(), eventID)
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), stats)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Event:     %s\n", eventID)
		for _, st := range []model.Status{model.StatusPending, model.StatusApproved, model.StatusRejected} {
			fmt.Fprintf(out, "%-10s %d\n", st.String()+":", stats.Counts[st])
		}
		fmt.Fprintf(out, "Screens:   %d\n", stats.Screens)
		return nil
	},
}

// resolveEvent looks ref up as an event ID, then as an access code.
func resolveEvent(ctx context.Context, c client.WallClient, ref string) (*model.Event, error) {
	ev, err := c.GetEvent(ctx, ref)
	if err == nil {
		return ev, nil
	}
	if !client.IsNotFound(err) {
		return nil, fmt.Errorf("getting event: %w", err)
	}
	ev, err = c.GetEventByCode(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("getting event: %w", err)
	}
	return ev, nil
}

func init() {
	eventCreateCmd.Flags().String("display-name", "", "name shown on screens")
	eventCreateCmd.Flags().String("admin", "", "admin ID; the admin's earlier events are deactivated")
	eventCreateCmd.Flags().String("background", "", "background color, e.g. #1f2937")
	eventCreateCmd.Flags().String("text-color", "", "text color, e.g. #ffffff")
	eventCreateCmd.Flags().String("background-image", "", "background image URL or data URI")

	eventCmd.AddCommand(eventCreateCmd)
	eventCmd.AddCommand(eventShowCmd)
	eventCmd.AddCommand(eventStatsCmd)
}
