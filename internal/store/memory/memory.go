// Package memory implements store.Directory in process memory. It is the
// default when no database is configured; everything is lost on restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/alfredjeanlab/guestwall/internal/model"
	"github.com/alfredjeanlab/guestwall/internal/store"
)

// Store is a map-backed directory.
type Store struct {
	mu     sync.RWMutex
	events map[string]*model.Event // by ID
	codes  map[string]string       // code -> event ID
	guests map[string]*model.Guest // by guestKey
	now    func() time.Time
}

var _ store.Directory = (*Store)(nil)

// New returns an empty directory.
func New() *Store {
	return &Store{
		events: make(map[string]*model.Event),
		codes:  make(map[string]string),
		guests: make(map[string]*model.Guest),
		now:    time.Now,
	}
}

func guestKey(eventID, phone string) string {
	return eventID + "\x00" + phone
}

func (s *Store) CreateEvent(_ context.Context, in model.NewEventInput) (*model.Event, error) {
	ev, err := store.NewEvent(in, s.now())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.AdminID != "" {
		for _, other := range s.events {
			if other.AdminID == ev.AdminID {
				other.IsActive = false
			}
		}
	}
	s.events[ev.ID] = ev
	s.codes[ev.Code] = ev.ID

	out := *ev
	return &out, nil
}

func (s *Store) GetEvent(_ context.Context, id string) (*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[id]
	if !ok {
		return nil, &model.NotFoundError{Kind: "event", ID: id}
	}
	out := *ev
	return &out, nil
}

func (s *Store) GetEventByCode(_ context.Context, code string) (*model.Event, error) {
	code = store.NormalizeCode(code)

	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[s.codes[code]]
	if !ok || !ev.IsActive {
		return nil, &model.NotFoundError{Kind: "event", ID: code}
	}
	out := *ev
	return &out, nil
}

func (s *Store) RegisterGuest(_ context.Context, eventID string, in model.NewGuestInput) (*model.Guest, error) {
	g, err := store.NewGuest(eventID, in, s.now())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[eventID]
	if !ok || !ev.IsActive {
		return nil, &model.NotFoundError{Kind: "event", ID: eventID}
	}
	key := guestKey(eventID, g.Phone)
	if existing, ok := s.guests[key]; ok {
		out := *existing
		return &out, nil
	}
	s.guests[key] = g
	out := *g
	return &out, nil
}

func (s *Store) GetGuest(_ context.Context, eventID, phone string) (*model.Guest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.guests[guestKey(eventID, phone)]
	if !ok {
		return nil, &model.NotFoundError{Kind: "guest", ID: phone}
	}
	out := *g
	return &out, nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
