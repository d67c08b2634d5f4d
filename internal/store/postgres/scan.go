package postgres

import (
	"database/sql"

	"github.com/alfredjeanlab/guestwall/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanEvent scans a single row into a model.Event.
// The row must contain columns in the order defined by eventColumns.
func scanEvent(row scannable) (*model.Event, error) {
	var (
		ev    model.Event
		image sql.NullString
	)
	err := row.Scan(
		&ev.ID,
		&ev.Code,
		&ev.Name,
		&ev.DisplayName,
		&ev.AdminID,
		&ev.Theme.BackgroundColor,
		&ev.Theme.TextColor,
		&image,
		&ev.IsActive,
		&ev.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	ev.Theme.BackgroundImage = image.String
	ev.CreatedAt = ev.CreatedAt.UTC()
	return &ev, nil
}

// scanGuest scans a single row in guestColumns order.
func scanGuest(row scannable) (*model.Guest, error) {
	var g model.Guest
	if err := row.Scan(&g.ID, &g.EventID, &g.Name, &g.Phone, &g.RegisteredAt); err != nil {
		return nil, err
	}
	g.RegisteredAt = g.RegisteredAt.UTC()
	return &g, nil
}

// nullString returns a sql.NullString that is valid only when s is non-empty.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
