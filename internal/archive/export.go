package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/alfredjeanlab/guestwall/internal/model"
)

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version       string    `json:"version"`
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	EventID       string    `json:"event_id"`
	MessageCount  int       `json:"message_count"`
	PendingCount  int       `json:"pending_count"`
	ApprovedCount int       `json:"approved_count"`
	RejectedCount int       `json:"rejected_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ExportJSONL writes one event's wall to w: a header, the event record when
// ev is non-nil, then every message in the order given (most recent first
// when taken from the ledger).
func ExportJSONL(ctx context.Context, eventID string, ev *model.Event, msgs []model.Message, w io.Writer) error {
	h := header{
		Version:      "1",
		Type:         "header",
		Timestamp:    time.Now().UTC(),
		EventID:      eventID,
		MessageCount: len(msgs),
	}
	for _, m := range msgs {
		switch m.Status {
		case model.StatusPending:
			h.PendingCount++
		case model.StatusApproved:
			h.ApprovedCount++
		case model.StatusRejected:
			h.RejectedCount++
		}
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(h); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	if ev != nil {
		if err := enc.Encode(record{Type: "event", Data: ev}); err != nil {
			return fmt.Errorf("encode event %s: %w", ev.ID, err)
		}
	}
	for _, m := range msgs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := enc.Encode(record{Type: "message", Data: m}); err != nil {
			return fmt.Errorf("encode message %s: %w", m.ID, err)
		}
	}
	return nil
}
