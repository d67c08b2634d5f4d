// Package postgres implements the store.Directory interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/guestwall/internal/model"
	"github.com/alfredjeanlab/guestwall/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Directory backed by a PostgreSQL database.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// Compile-time check that PostgresStore implements store.Directory.
var _ store.Directory = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return newWithDB(db), nil
}

func newWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// CreateEvent inserts a new active event and, in the same transaction,
// deactivates the admin's earlier events.
func (s *PostgresStore) CreateEvent(ctx context.Context, in model.NewEventInput) (*model.Event, error) {
	ev, err := store.NewEvent(in, s.now())
	if err != nil {
		return nil, err
	}

	err = s.runInTransaction(ctx, func(tx executor) error {
		if ev.AdminID != "" {
			if err := queryDeactivateAdminEvents(ctx, tx, ev.AdminID); err != nil {
				return err
			}
		}
		return queryCreateEvent(ctx, tx, ev)
	})
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return ev, nil
}

func (s *PostgresStore) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	return queryGetEvent(ctx, s.db, id)
}

func (s *PostgresStore) GetEventByCode(ctx context.Context, code string) (*model.Event, error) {
	return queryGetActiveEventByCode(ctx, s.db, store.NormalizeCode(code))
}

// RegisterGuest returns the existing guest when the phone is already
// registered for the event.
func (s *PostgresStore) RegisterGuest(ctx context.Context, eventID string, in model.NewGuestInput) (*model.Guest, error) {
	g, err := store.NewGuest(eventID, in, s.now())
	if err != nil {
		return nil, err
	}
	ev, err := queryGetEvent(ctx, s.db, eventID)
	if err != nil {
		return nil, err
	}
	if !ev.IsActive {
		return nil, &model.NotFoundError{Kind: "event", ID: eventID}
	}
	return queryUpsertGuest(ctx, s.db, g)
}

func (s *PostgresStore) GetGuest(ctx context.Context, eventID, phone string) (*model.Guest, error) {
	return queryGetGuest(ctx, s.db, eventID, phone)
}

// runInTransaction begins a database transaction, calls fn with it, and
// commits on success or rolls back on error.
func (s *PostgresStore) runInTransaction(ctx context.Context, fn func(tx executor) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
