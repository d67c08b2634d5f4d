package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/guestwall/internal/client"
	"github.com/alfredjeanlab/guestwall/internal/events"
	"github.com/alfredjeanlab/guestwall/internal/ledger"
	"github.com/alfredjeanlab/guestwall/internal/model"
	"github.com/alfredjeanlab/guestwall/internal/subscription"
	"github.com/alfredjeanlab/guestwall/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Show an event's wall and keep it updated",
	GroupID: "views",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eventID, err := requireEvent()
		if err != nil {
			return err
		}
		statuses, _ := cmd.Flags().GetStringSlice("status")
		replica, _ := cmd.Flags().GetBool("replica")
		natsURL, _ := cmd.Flags().GetString("nats")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		w := cmd.OutOrStdout()
		if replica {
			if natsURL == "" {
				return errors.New("--replica needs a NATS URL; pass --nats or set one on the remote")
			}
			return watchReplica(ctx, w, natsURL, eventID, statuses)
		}
		return watchStream(ctx, w, eventID, statuses)
	},
}

// watchStream renders every snapshot the server streams until ctx ends.
func watchStream(ctx context.Context, w io.Writer, eventID string, statuses []string) error {
	err := wallClient.Stream(ctx, eventID, statuses, func(s *client.Snapshot) error {
		render(w, eventID, s.Messages)
		return nil
	})
	if err != nil && ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("streaming wall: %w", err)
	}
	return nil
}

// watchReplica keeps a local ledger in sync over NATS and renders it, so the
// wall keeps updating while the HTTP server is unreachable. The ledger is
// seeded from the server once.
func watchReplica(ctx context.Context, w io.Writer, natsURL, eventID string, statuses []string) error {
	var view []model.Status
	if !(len(statuses) == 1 && statuses[0] == "all") {
		if len(statuses) == 0 {
			statuses = []string{string(model.StatusApproved)}
		}
		parsed, err := model.ParseStatuses(statuses)
		if err != nil {
			return err
		}
		view = parsed
	}

	sub, err := events.NewNATSSubscriber(natsURL,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats: disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slog.Info("nats: reconnected")
		}),
	)
	if err != nil {
		return err
	}
	defer sub.Close()

	l := ledger.New()
	mgr := subscription.New(l, sub)
	defer mgr.Close()

	updates := make(chan []model.Message, 1)
	unsubscribe, err := mgr.Subscribe(eventID, func(msgs []model.Message) {
		select {
		case <-updates:
		default:
		}
		updates <- msgs
	}, subscription.WithStatus(view...))
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", eventID, err)
	}
	defer unsubscribe()

	if err := seedLedger(ctx, l, eventID); err != nil {
		return err
	}
	mgr.Refresh(eventID)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msgs := <-updates:
			render(w, eventID, msgs)
		}
	}
}

// seedLedger loads every message the server knows about into l. Records the
// ledger already holds from announcements are kept as they are.
func seedLedger(ctx context.Context, l *ledger.Ledger, eventID string) error {
	msgs, err := wallClient.ListMessages(ctx, eventID, "all")
	if err != nil {
		return fmt.Errorf("seeding replica: %w", err)
	}
	for _, m := range msgs {
		if _, err := l.InsertIfAbsent(m); err != nil {
			slog.Warn("skipping invalid message from server", "id", m.ID, "err", err)
			continue
		}
		if m.Status.IsTerminal() {
			// An announcement may have inserted it as pending first.
			if _, err := l.ApplyTransition(m.ID, m.Status, m.ApprovedAt); err != nil {
				slog.Warn("reconciling seeded message", "id", m.ID, "err", err)
			}
		}
	}
	return nil
}

func render(w io.Writer, eventID string, msgs []model.Message) {
	if jsonOutput {
		printJSON(w, msgs) //nolint:errcheck
		return
	}
	if ui.IsInteractive() {
		fmt.Fprint(w, ui.ClearScreen)
	}
	printWall(w, eventID, msgs, ui.Width())
}

func init() {
	watchCmd.Flags().StringSlice("status", nil, "statuses to show: pending, approved, rejected or all (default approved)")
	watchCmd.Flags().Bool("replica", false, "follow announcements over NATS with a local replica")
	watchCmd.Flags().String("nats", activeRemoteNATSURL(), "NATS URL for --replica")
}
