// Package client provides a transport-agnostic interface for the guestwall
// service and an HTTP/JSON implementation that talks to its REST API.
package client

import (
	"context"
	"encoding/json"
	"time"

	"github.com/alfredjeanlab/guestwall/internal/model"
)

// WallClient is the interface that all wall CLI commands use to communicate
// with the server. It is implemented by HTTPClient.
type WallClient interface {
	// Directory
	CreateEvent(ctx context.Context, in model.NewEventInput) (*model.Event, error)
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	GetEventByCode(ctx context.Context, code string) (*model.Event, error)
	EventStats(ctx context.Context, eventID string) (*EventStats, error)
	RegisterGuest(ctx context.Context, eventID string, in model.NewGuestInput) (*model.Guest, error)
	GetGuest(ctx context.Context, eventID, phone string) (*model.Guest, error)

	// Messages
	Submit(ctx context.Context, eventID string, req *SubmitRequest) (*model.Message, error)
	ListMessages(ctx context.Context, eventID string, statuses ...string) ([]model.Message, error)
	Approve(ctx context.Context, eventID, messageID string) (*model.Message, error)
	Reject(ctx context.Context, eventID, messageID string) (*model.Message, error)
	Resend(ctx context.Context, eventID, messageID string) (*model.Message, error)

	// Streaming
	Stream(ctx context.Context, eventID string, statuses []string, fn func(*Snapshot) error) error

	// Operations
	Screens(ctx context.Context, eventID string) ([]ScreenEntry, error)
	Relay(ctx context.Context, req *RelayRequest) error
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// SubmitRequest holds parameters for submitting a message. AuthorName may be
// omitted when AuthorPhone belongs to a registered guest.
type SubmitRequest struct {
	AuthorName  string `json:"author_name,omitempty"`
	AuthorPhone string `json:"author_phone,omitempty"`
	Text        string `json:"text"`
}

// RelayRequest is a pre-built announcement forwarded to the transport.
type RelayRequest struct {
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data"`
}

// EventStats summarises one event's wall.
type EventStats struct {
	EventID string               `json:"event_id"`
	Counts  map[model.Status]int `json:"counts"`
	Screens int                  `json:"screens"`
	Bound   bool                 `json:"bound"`
}

// Snapshot is one full filtered view received over a stream.
type Snapshot struct {
	EventID  string          `json:"event_id"`
	ViewerID string          `json:"viewer_id"`
	Seq      uint64          `json:"seq"`
	Messages []model.Message `json:"messages"`
}

// ScreenEntry is one connected screen in the roster.
type ScreenEntry struct {
	ViewerID    string    `json:"viewer_id"`
	EventID     string    `json:"event_id"`
	Role        string    `json:"role"`
	View        string    `json:"view"`
	RemoteAddr  string    `json:"remote_addr,omitempty"`
	UserAgent   string    `json:"user_agent,omitempty"`
	ConnectedAt time.Time `json:"connected_at"`
	LastSeen    time.Time `json:"last_seen"`
	IdleSecs    float64   `json:"idle_secs"`
	Deliveries  int64     `json:"deliveries"`
	Stale       bool      `json:"stale,omitempty"`
}
