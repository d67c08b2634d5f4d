package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/alfredjeanlab/guestwall/internal/model"
)

// eventColumns is the column list used for SELECT statements on the events table.
const eventColumns = `id, code, name, display_name, admin_id,
	background_color, text_color, background_image, is_active, created_at`

const guestColumns = `id, event_id, name, phone, registered_at`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryCreateEvent(ctx context.Context, db executor, ev *model.Event) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO events (
			id, code, name, display_name, admin_id,
			background_color, text_color, background_image, is_active, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		ev.ID,
		ev.Code,
		ev.Name,
		ev.DisplayName,
		ev.AdminID,
		ev.Theme.BackgroundColor,
		ev.Theme.TextColor,
		nullString(ev.Theme.BackgroundImage),
		ev.IsActive,
		ev.CreatedAt,
	)
	return err
}

func queryDeactivateAdminEvents(ctx context.Context, db executor, adminID string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE events SET is_active = FALSE WHERE admin_id = $1 AND is_active`, adminID)
	return err
}

func queryGetEvent(ctx context.Context, db executor, id string) (*model.Event, error) {
	row := db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &model.NotFoundError{Kind: "event", ID: id}
	}
	return ev, err
}

func queryGetActiveEventByCode(ctx context.Context, db executor, code string) (*model.Event, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE code = $1 AND is_active`, code)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &model.NotFoundError{Kind: "event", ID: code}
	}
	return ev, err
}

// queryUpsertGuest inserts g, or returns the row already registered for the
// same event and phone. The no-op update makes RETURNING yield the existing row.
func queryUpsertGuest(ctx context.Context, db executor, g *model.Guest) (*model.Guest, error) {
	row := db.QueryRowContext(ctx, `
		INSERT INTO guests (id, event_id, name, phone, registered_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id, phone) DO UPDATE SET phone = EXCLUDED.phone
		RETURNING `+guestColumns,
		g.ID, g.EventID, g.Name, g.Phone, g.RegisteredAt,
	)
	return scanGuest(row)
}

func queryGetGuest(ctx context.Context, db executor, eventID, phone string) (*model.Guest, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+guestColumns+` FROM guests WHERE event_id = $1 AND phone = $2`, eventID, phone)
	g, err := scanGuest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &model.NotFoundError{Kind: "guest", ID: phone}
	}
	return g, err
}
