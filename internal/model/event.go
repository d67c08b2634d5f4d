package model

import "time"

// Default theme colors applied when an event is created without them.
const (
	DefaultBackgroundColor = "#1f2937"
	DefaultTextColor       = "#ffffff"
)

// Theme controls how public screens render an event's wall.
type Theme struct {
	BackgroundColor string `json:"background_color" toml:"background_color" validate:"required,hexcolor"`
	TextColor       string `json:"text_color" toml:"text_color" validate:"required,hexcolor"`
	BackgroundImage string `json:"background_image,omitempty" toml:"background_image" validate:"omitempty,max=2000000"`
}

// Event is a single occasion that scopes guests and messages. ID partitions
// the ledger and names the transport topic; Code is the shareable access token.
type Event struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	AdminID     string    `json:"admin_id,omitempty"`
	Theme       Theme     `json:"theme"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewEventInput carries the admin-supplied fields for a new event.
type NewEventInput struct {
	Name        string `json:"name" validate:"required,max=200"`
	DisplayName string `json:"display_name" validate:"max=200"`
	AdminID     string `json:"admin_id" validate:"max=200"`
	Theme       Theme  `json:"theme"`
}

// Guest is a participant registered against one event, keyed by phone.
type Guest struct {
	ID           string    `json:"id"`
	EventID      string    `json:"event_id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	RegisteredAt time.Time `json:"registered_at"`
}

// NewGuestInput carries the fields a guest supplies when registering.
type NewGuestInput struct {
	Name  string `json:"name" validate:"required,max=100"`
	Phone string `json:"phone" validate:"required,max=32"`
}
