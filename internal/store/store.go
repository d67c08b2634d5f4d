// Package store defines the Event/Guest Directory: event metadata, access
// codes and guest registrations. Messages never live here.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alfredjeanlab/guestwall/internal/idgen"
	"github.com/alfredjeanlab/guestwall/internal/model"
)

// Directory defines the persistence interface for events and guests.
// Lookups of unknown records return *model.NotFoundError.
type Directory interface {
	// Events
	CreateEvent(ctx context.Context, in model.NewEventInput) (*model.Event, error) // deactivates the admin's previous events
	GetEvent(ctx context.Context, id string) (*model.Event, error)                   // active or not
	GetEventByCode(ctx context.Context, code string) (*model.Event, error)           // active only

	// Guests
	RegisterGuest(ctx context.Context, eventID string, in model.NewGuestInput) (*model.Guest, error) // idempotent per phone
	GetGuest(ctx context.Context, eventID, phone string) (*model.Guest, error)

	// Lifecycle
	Close() error
}

// NewEvent validates in, applies theme defaults and mints the event's ID and
// access code. It is shared by Directory implementations.
func NewEvent(in model.NewEventInput, now time.Time) (*model.Event, error) {
	in.ApplyDefaults()
	if err := model.ValidateNewEvent(&in); err != nil {
		return nil, err
	}
	id, err := idgen.NewEventID()
	if err != nil {
		return nil, fmt.Errorf("generating event id: %w", err)
	}
	code, err := idgen.NewEventCode()
	if err != nil {
		return nil, fmt.Errorf("generating event code: %w", err)
	}
	return &model.Event{
		ID:          id,
		Code:        code,
		Name:        in.Name,
		DisplayName: in.DisplayName,
		AdminID:     in.AdminID,
		Theme:       in.Theme,
		IsActive:    true,
		CreatedAt:   now.UTC(),
	}, nil
}

// NewGuest validates in and mints a guest for eventID.
func NewGuest(eventID string, in model.NewGuestInput, now time.Time) (*model.Guest, error) {
	if err := model.ValidateNewGuest(&in); err != nil {
		return nil, err
	}
	id, err := idgen.NewGuestID()
	if err != nil {
		return nil, fmt.Errorf("generating guest id: %w", err)
	}
	return &model.Guest{
		ID:           id,
		EventID:      eventID,
		Name:         in.Name,
		Phone:        in.Phone,
		RegisteredAt: now.UTC(),
	}, nil
}

// NormalizeCode trims a code typed or scanned by a guest.
func NormalizeCode(code string) string {
	return strings.TrimSpace(code)
}
