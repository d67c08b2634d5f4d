package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/alfredjeanlab/guestwall/internal/client"
	"github.com/alfredjeanlab/guestwall/internal/model"
	"github.com/alfredjeanlab/guestwall/internal/ui"
)

const timeLayout = "2006-01-02 15:04:05"

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printEventTable(w io.Writer, ev *model.Event) {
	fmt.Fprintf(w, "ID:          %s\n", ev.ID)
	fmt.Fprintf(w, "Code:        %s\n", ev.Code)
	fmt.Fprintf(w, "Name:        %s\n", ev.Name)
	if ev.DisplayName != "" {
		fmt.Fprintf(w, "Display:     %s\n", ev.DisplayName)
	}
	if ev.AdminID != "" {
		fmt.Fprintf(w, "Admin:       %s\n", ev.AdminID)
	}
	fmt.Fprintf(w, "Active:      %t\n", ev.IsActive)
	fmt.Fprintf(w, "Theme:       %s on %s\n", ev.Theme.TextColor, ev.Theme.BackgroundColor)
	if !ev.CreatedAt.IsZero() {
		fmt.Fprintf(w, "Created At:  %s\n", ev.CreatedAt.Local().Format(timeLayout))
	}
}

func printGuestTable(w io.Writer, g *model.Guest) {
	fmt.Fprintf(w, "ID:          %s\n", g.ID)
	fmt.Fprintf(w, "Event:       %s\n", g.EventID)
	fmt.Fprintf(w, "Name:        %s\n", g.Name)
	fmt.Fprintf(w, "Phone:       %s\n", g.Phone)
	if !g.RegisteredAt.IsZero() {
		fmt.Fprintf(w, "Registered:  %s\n", g.RegisteredAt.Local().Format(timeLayout))
	}
}

func printMessageTable(w io.Writer, m *model.Message) {
	fmt.Fprintf(w, "ID:          %s\n", m.ID)
	fmt.Fprintf(w, "Event:       %s\n", m.EventID)
	fmt.Fprintf(w, "Author:      %s\n", m.AuthorName)
	fmt.Fprintf(w, "Status:      %s\n", ui.RenderStatus(m.Status))
	fmt.Fprintf(w, "Text:        %s\n", m.Text)
	fmt.Fprintf(w, "Created At:  %s\n", m.CreatedAt.Local().Format(timeLayout))
	if m.ApprovedAt != nil {
		fmt.Fprintf(w, "Approved At: %s\n", m.ApprovedAt.Local().Format(timeLayout))
	}
}

// printMessageList writes one row per message, most recent first, with text
// cut to fit width.
func printMessageList(w io.Writer, msgs []model.Message, width int) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tTIME\tAUTHOR\tTEXT")
	for _, m := range msgs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			m.ID,
			m.Status,
			m.CreatedAt.Local().Format("15:04:05"),
			ui.Truncate(m.AuthorName, 20),
			ui.Truncate(m.Text, max(width-60, 20)),
		)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d messages\n", len(msgs))
}

// printWall renders a snapshot the way a screen shows it.
func printWall(w io.Writer, eventID string, msgs []model.Message, width int) {
	fmt.Fprintf(w, "%s %s\n\n", ui.RenderAccent("wall"), ui.RenderMuted(eventID))
	if len(msgs) == 0 {
		fmt.Fprintln(w, ui.RenderMuted("(no messages yet)"))
		return
	}
	for _, m := range msgs {
		prefix := fmt.Sprintf("%s  %s: ", m.CreatedAt.Local().Format("15:04"), m.AuthorName)
		line := prefix + m.Text
		if m.Status != model.StatusApproved {
			line = fmt.Sprintf("[%s] %s", m.Status, line)
		}
		fmt.Fprintln(w, ui.Truncate(line, width))
	}
}

func printScreens(w io.Writer, screens []client.ScreenEntry) {
	if len(screens) == 0 {
		fmt.Fprintln(w, "no screens connected")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VIEWER\tEVENT\tROLE\tVIEW\tIDLE\tSENT\tREMOTE")
	for _, s := range screens {
		idle := fmt.Sprintf("%.0fs", s.IdleSecs)
		if s.Stale {
			idle += " (stale)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			s.ViewerID, s.EventID, s.Role, s.View, idle, s.Deliveries, s.RemoteAddr)
	}
	tw.Flush()
}
