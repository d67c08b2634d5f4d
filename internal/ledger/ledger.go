// Package ledger holds the in-memory table of every message this process
// knows about, across all events.
//
// A Ledger is one process's replica. It is reconciled from locally produced
// messages and from announcements received over the transport; replicas in
// different processes never share memory. Each mutation is a single atomic
// step, so a replayed announcement can never create a second entry or move a
// message out of a terminal status.
//
// Nothing is ever evicted: rejected messages stay in the table and are only
// filtered out of views.
package ledger

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/alfredjeanlab/guestwall/internal/model"
)

// Ledger is an id-keyed message table with a per-event index kept in display
// order. The zero value is not usable; call New.
type Ledger struct {
	mu      sync.RWMutex
	byID    map[string]*model.Message
	byEvent map[string][]*model.Message // sorted by compareDisplay
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		byID:    make(map[string]*model.Message),
		byEvent: make(map[string][]*model.Message),
	}
}

// InsertIfAbsent adds msg unless a message with the same ID is already known.
// It reports whether the ledger changed. A duplicate is a silent no-op even if
// its fields differ; records that break the approved_at invariant are refused
// with a *model.ValidationError.
func (l *Ledger) InsertIfAbsent(msg model.Message) (bool, error) {
	if err := model.ValidateMessage(&msg); err != nil {
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.byID[msg.ID]; ok {
		return false, nil
	}

	stored := msg.Clone()
	l.byID[stored.ID] = &stored

	list := l.byEvent[stored.EventID]
	i, _ := slices.BinarySearchFunc(list, &stored, compareDisplay)
	l.byEvent[stored.EventID] = slices.Insert(list, i, &stored)
	return true, nil
}

// ApplyTransition moves message id to status to. approvedAt is required when
// approving and ignored otherwise.
//
// It reports whether the ledger changed:
//   - unknown id: *model.NotFoundError
//   - already in status to: (false, nil), so replays are harmless
//   - in the other terminal status, or to is pending: *model.InvalidStateError
func (l *Ledger) ApplyTransition(id string, to model.Status, approvedAt *time.Time) (bool, error) {
	if to == model.StatusApproved && approvedAt == nil {
		return false, &model.ValidationError{Errors: []model.FieldError{{
			Field:   "approved_at",
			Message: "is required when status is approved",
		}}}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.byID[id]
	if !ok {
		return false, &model.NotFoundError{Kind: "message", ID: id}
	}
	if m.Status == to {
		return false, nil
	}
	if m.Status.IsTerminal() || !to.IsTerminal() {
		return false, &model.InvalidStateError{ID: id, Current: m.Status, Requested: to}
	}

	m.Status = to
	if to == model.StatusApproved {
		at := *approvedAt
		m.ApprovedAt = &at
	}
	return true, nil
}

// Get returns a copy of the message with the given id.
func (l *Ledger) Get(id string) (model.Message, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	m, ok := l.byID[id]
	if !ok {
		return model.Message{}, false
	}
	return m.Clone(), true
}

// ListByEvent returns copies of every message for eventID, most recent first.
// Messages created at the same instant are ordered by id, descending.
func (l *Ledger) ListByEvent(eventID string) []model.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return lo.Map(l.byEvent[eventID], func(m *model.Message, _ int) model.Message {
		return m.Clone()
	})
}

// ListByEventAndStatus returns the subset of ListByEvent whose status is one of
// statuses, in the same relative order. No statuses means all of them.
func (l *Ledger) ListByEventAndStatus(eventID string, statuses ...model.Status) []model.Message {
	all := l.ListByEvent(eventID)
	if len(statuses) == 0 {
		return all
	}
	return lo.Filter(all, func(m model.Message, _ int) bool {
		return lo.Contains(statuses, m.Status)
	})
}

// Counts returns the number of messages per status for eventID.
func (l *Ledger) Counts(eventID string) map[model.Status]int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	counts := map[model.Status]int{
		model.StatusPending:  0,
		model.StatusApproved: 0,
		model.StatusRejected: 0,
	}
	for _, m := range l.byEvent[eventID] {
		counts[m.Status]++
	}
	return counts
}

// Events returns the IDs of every event with at least one message, sorted.
func (l *Ledger) Events() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := lo.Keys(l.byEvent)
	slices.Sort(ids)
	return ids
}

// Len returns the total number of messages across all events.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.byID)
}

// compareDisplay orders by created_at descending, then id descending.
func compareDisplay(a, b *model.Message) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(b.ID, a.ID)
}
