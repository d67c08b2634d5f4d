package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/guestwall/internal/client"
	"github.com/alfredjeanlab/guestwall/internal/model"
	"github.com/alfredjeanlab/guestwall/internal/ui"
)

var submitCmd = &cobra.Command{
	Use:     "submit <text...>",
	Short:   "Submit a message for moderation",
	GroupID: "wall",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eventID, err := requireEvent()
		if err != nil {
			return err
		}
		name, _ := cmd.Flags().GetString("name")
		phone, _ := cmd.Flags().GetString("phone")

		msg, err := wallClient.Submit(context.Background(), eventID, &client.SubmitRequest{
			AuthorName:  name,
			AuthorPhone: phone,
			Text:        strings.Join(args, " "),
		})
		if err != nil {
			return explainStored(cmd, "submitting message", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), msg)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Submitted %s (%s)\n", msg.ID, ui.RenderStatus(msg.Status))
		return nil
	},
}

var approveCmd = &cobra.Command{
	Use:     "approve <message-id>...",
	Short:   "Approve pending messages",
	GroupID: "moderation",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return moderateEach(cmd, args, "approving", wallClient.Approve)
	},
}

var rejectCmd = &cobra.Command{
	Use:     "reject <message-id>...",
	Short:   "Reject pending messages",
	GroupID: "moderation",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return moderateEach(cmd, args, "rejecting", wallClient.Reject)
	},
}

var resendCmd = &cobra.Command{
	Use:     "resend <message-id>...",
	Short:   "Announce messages again after a transport failure",
	GroupID: "moderation",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return moderateEach(cmd, args, "resending", wallClient.Resend)
	},
}

// moderateEach applies op to every message ID, reporting each result. It
// keeps going after a failure and returns the first error.
func moderateEach(cmd *cobra.Command, ids []string, verb string, op func(ctx context.Context, eventID, messageID string) (*model.Message, error)) error {
	eventID, err := requireEvent()
	if err != nil {
		return err
	}
	var firstErr error
	var results []*model.Message
	for _, id := range ids {
		msg, err := op(context.Background(), eventID, id)
		if err != nil {
			err = explainStored(cmd, verb+" "+id, err)
			fmt.Fprintln(cmd.ErrOrStderr(), err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		results = append(results, msg)
		if !jsonOutput {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", msg.ID, ui.RenderStatus(msg.Status))
		}
	}
	if jsonOutput {
		if err := printJSON(cmd.OutOrStdout(), results); err != nil {
			return err
		}
	}
	return firstErr
}

// explainStored wraps err, noting when the server stored the message but
// could not announce it.
func explainStored(cmd *cobra.Command, action string, err error) error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Stored != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s stored as %s but not announced; run 'wall resend %s'\n",
			apiErr.Stored.ID, apiErr.Stored.Status, apiErr.Stored.ID)
	}
	return fmt.Errorf("%s: %w", action, err)
}

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List an event's messages, most recent first",
	GroupID: "views",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eventID, err := requireEvent()
		if err != nil {
			return err
		}
		statuses, _ := cmd.Flags().GetStringSlice("status")
		msgs, err := wallClient.ListMessages(context.Background(), eventID, statuses...)
		if err != nil {
			return fmt.Errorf("listing messages: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), msgs)
		}
		printMessageList(cmd.OutOrStdout(), msgs, ui.Width())
		return nil
	},
}

var relayCmd = &cobra.Command{
	Use:     "relay <event-name> <json-data>",
	Short:   "Publish a raw announcement on the event's topic",
	GroupID: "moderation",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eventID, err := requireEvent()
		if err != nil {
			return err
		}
		if !json.Valid([]byte(args[1])) {
			return fmt.Errorf("data is not valid JSON")
		}
		err = wallClient.Relay(context.Background(), &client.RelayRequest{
			Channel: "event-" + eventID,
			Event:   args[0],
			Data:    json.RawMessage(args[1]),
		})
		if err != nil {
			return fmt.Errorf("relaying: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "relayed")
		return nil
	},
}

func init() {
	submitCmd.Flags().String("name", "", "author name (optional for registered guests)")
	submitCmd.Flags().String("phone", "", "author phone")
	listCmd.Flags().StringSlice("status", nil, "statuses to list: pending, approved, rejected or all (default approved)")
}
