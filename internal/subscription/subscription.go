// Package subscription binds local observers to an event's topic and keeps
// them fed with the event's current message list.
//
// Each bound event has one worker goroutine that owns the transport receiver.
// It merges inbound announcements into the shared ledger and calls observers
// one at a time, so every observer of an event sees a single ordered sequence
// of full snapshots, never a diff. Local changes made through the lifecycle
// engine reach observers through Refresh without waiting for the transport to
// echo them back.
package subscription

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"

	"github.com/alfredjeanlab/guestwall/internal/events"
	"github.com/alfredjeanlab/guestwall/internal/ledger"
	"github.com/alfredjeanlab/guestwall/internal/model"
)

// ErrClosed is returned by Subscribe after Close.
var ErrClosed = errors.New("subscription manager closed")

// DefaultMaxParked bounds transitions held for messages not yet seen.
const DefaultMaxParked = 1024

const (
	// maxBatch bounds how many queued envelopes one delivery can cover.
	maxBatch = 1024

	minRebindBackoff = 100 * time.Millisecond
	maxRebindBackoff = 10 * time.Second
)

// Manager tracks one binding per event with at least one observer.
type Manager struct {
	ledger    *ledger.Ledger
	sub       events.Subscriber
	logger    *slog.Logger
	maxParked int

	mu       sync.Mutex
	bindings map[string]*binding
	closed   bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithMaxParked overrides DefaultMaxParked. Zero disables parking.
func WithMaxParked(n int) Option {
	return func(m *Manager) { m.maxParked = n }
}

// New returns a Manager that merges announcements from sub into l.
func New(l *ledger.Ledger, sub events.Subscriber, opts ...Option) *Manager {
	m := &Manager{
		ledger:    l,
		sub:       sub,
		logger:    slog.Default(),
		maxParked: DefaultMaxParked,
		bindings:  make(map[string]*binding),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// binding is the per-event state. inbound, retry, backoff, parked and
// observer.primed are owned by the worker goroutine. cancel is replaced only
// while holding the manager's mu.
type binding struct {
	eventID string
	inbound <-chan []byte
	cancel  func()
	wake    chan struct{} // cap 1; pending wakes coalesce
	stop    chan struct{}
	done    chan struct{}
	parked  map[string]*events.Announcement
	retry   <-chan time.Time
	backoff time.Duration

	mu        sync.Mutex
	observers map[*observer]struct{}
	dirty     bool
}

type observer struct {
	statuses []model.Status
	fn       func([]model.Message)
	active   atomic.Bool
	primed   bool
	once     sync.Once
}

// SubscribeOption configures one observer.
type SubscribeOption func(*observer)

// WithStatus limits the observer's view to messages in one of statuses.
// Without it the observer sees every message of the event.
func WithStatus(statuses ...model.Status) SubscribeOption {
	return func(o *observer) { o.statuses = append(o.statuses, statuses...) }
}

// Subscribe calls onUpdate with the event's current filtered message list,
// most recent first, and again after every change that could affect it.
// The first call happens promptly even when the list is empty.
//
// The returned function stops deliveries to this observer and releases the
// topic once no observer of the event remains. It may be called any number of
// times, including from inside onUpdate.
func (m *Manager) Subscribe(eventID string, onUpdate func([]model.Message), opts ...SubscribeOption) (func(), error) {
	if strings.TrimSpace(eventID) == "" {
		return nil, &model.ValidationError{Errors: []model.FieldError{{Field: "event_id", Message: "is required"}}}
	}
	if onUpdate == nil {
		return nil, errors.New("subscribe: nil callback")
	}
	o := &observer{fn: onUpdate}
	for _, opt := range opts {
		opt(o)
	}
	for _, s := range o.statuses {
		if !s.IsValid() {
			return nil, &model.ValidationError{Errors: []model.FieldError{{Field: "status", Message: fmt.Sprintf("invalid value %q", s)}}}
		}
	}
	o.active.Store(true)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}

	b, ok := m.bindings[eventID]
	if !ok {
		var err error
		if b, err = m.bind(eventID); err != nil {
			return nil, err
		}
	}

	b.mu.Lock()
	b.observers[o] = struct{}{}
	b.mu.Unlock()
	b.poke()

	return func() { m.unsubscribe(b, o) }, nil
}

// bind subscribes to the event's topic and starts its worker. Callers hold m.mu.
func (m *Manager) bind(eventID string) (*binding, error) {
	topic := events.Topic(eventID)
	ch, cancel, err := m.sub.Subscribe(topic)
	if err != nil {
		return nil, &model.TransportError{Topic: topic, Event: "subscribe", Err: err}
	}
	b := &binding{
		eventID:   eventID,
		inbound:   ch,
		cancel:    cancel,
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		parked:    make(map[string]*events.Announcement),
		observers: make(map[*observer]struct{}),
	}
	m.bindings[eventID] = b
	go m.run(b)
	m.logger.Debug("bound event topic", "event_id", eventID, "topic", topic)
	return b, nil
}

func (m *Manager) unsubscribe(b *binding, o *observer) {
	o.once.Do(func() {
		o.active.Store(false)

		m.mu.Lock()
		defer m.mu.Unlock()

		b.mu.Lock()
		delete(b.observers, o)
		empty := len(b.observers) == 0
		b.mu.Unlock()

		if empty && m.bindings[b.eventID] == b {
			m.release(b)
		}
	})
}

// release drops a binding. It does not wait for the worker, so it is safe on
// the worker's own goroutine. Callers hold m.mu.
func (m *Manager) release(b *binding) {
	delete(m.bindings, b.eventID)
	b.mu.Lock()
	for o := range b.observers {
		o.active.Store(false)
	}
	b.mu.Unlock()
	close(b.stop)
	b.cancel()
	m.logger.Debug("released event topic", "event_id", b.eventID)
}

// Unbind drops every observer of eventID and releases its topic. It is a
// no-op when the event is not bound.
func (m *Manager) Unbind(eventID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.bindings[eventID]; ok {
		m.release(b)
	}
}

// Refresh redelivers eventID's views after a local ledger change.
func (m *Manager) Refresh(eventID string) {
	m.mu.Lock()
	b, ok := m.bindings[eventID]
	m.mu.Unlock()
	if !ok {
		return
	}
	b.markDirty()
	b.poke()
}

// Bound reports whether eventID currently holds a topic subscription.
func (m *Manager) Bound(eventID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.bindings[eventID]
	return ok
}

// Observers returns the number of live observers of eventID.
func (m *Manager) Observers(eventID string) int {
	m.mu.Lock()
	b, ok := m.bindings[eventID]
	m.mu.Unlock()
	if !ok {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.observers)
}

// Close releases every binding and waits for the workers to exit. It must not
// be called from an observer callback.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	all := lo.Values(m.bindings)
	for _, b := range all {
		m.release(b)
	}
	m.mu.Unlock()

	for _, b := range all {
		<-b.done
	}
	return nil
}

func (b *binding) markDirty() {
	b.mu.Lock()
	b.dirty = true
	b.mu.Unlock()
}

func (b *binding) poke() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// run is the binding's worker loop.
func (m *Manager) run(b *binding) {
	defer close(b.done)
	for {
		select {
		case <-b.stop:
			return
		case raw, ok := <-b.inbound:
			if !ok {
				m.lost(b)
				continue
			}
			changed := m.apply(b, raw)
			if m.drain(b) {
				changed = true
			}
			if changed {
				b.markDirty()
			}
		case <-b.retry:
			b.retry = nil
			m.lost(b)
			continue
		case <-b.wake:
			if m.resolveParked(b) {
				b.markDirty()
			}
		}

		select {
		case <-b.stop:
			return
		default:
		}
		m.deliver(b)
	}
}

// drain applies envelopes already queued on the binding, up to maxBatch, so
// one delivery covers a burst. It reports whether the ledger changed.
func (m *Manager) drain(b *binding) bool {
	changed := false
	for range maxBatch {
		select {
		case raw, ok := <-b.inbound:
			if !ok {
				m.lost(b)
				return changed
			}
			if m.apply(b, raw) {
				changed = true
			}
		default:
			return changed
		}
	}
	return changed
}

// lost handles a receiver closed by the transport: it subscribes to the topic
// again, retrying with backoff until it succeeds or the binding is released.
func (m *Manager) lost(b *binding) {
	if b.inbound != nil {
		m.logger.Warn("event topic closed by transport", "event_id", b.eventID)
		b.inbound = nil
	}
	if m.rebind(b) {
		b.backoff = 0
		return
	}
	b.backoff = min(max(2*b.backoff, minRebindBackoff), maxRebindBackoff)
	b.retry = time.After(b.backoff)
}

// rebind replaces the binding's receiver. It reports false when the transport
// refused, and true once subscribed or when the binding is no longer live.
func (m *Manager) rebind(b *binding) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.bindings[b.eventID] != b {
		return true
	}
	topic := events.Topic(b.eventID)
	ch, cancel, err := m.sub.Subscribe(topic)
	if err != nil {
		m.logger.Warn("re-subscribing to event topic", "event_id", b.eventID, "topic", topic, "err", err)
		return false
	}
	b.cancel()
	b.inbound, b.cancel = ch, cancel
	m.logger.Info("re-subscribed to event topic", "event_id", b.eventID, "topic", topic)
	return true
}

// resolveParked applies parked transitions whose message reached the ledger
// without an announcement, e.g. a local submit or a seed from a server.
func (m *Manager) resolveParked(b *binding) bool {
	changed := false
	for id, a := range b.parked {
		known, ok := m.ledger.Get(id)
		if !ok {
			continue
		}
		delete(b.parked, id)
		if known.EventID != b.eventID {
			continue
		}
		if m.applyTransition(b, a) {
			changed = true
		}
	}
	return changed
}

// apply merges one inbound envelope into the ledger and reports whether the
// ledger changed.
func (m *Manager) apply(b *binding, raw []byte) bool {
	a, err := events.Decode(raw)
	if err != nil {
		m.logger.Warn("dropping malformed announcement", "event_id", b.eventID, "err", err)
		return false
	}

	if a.Message != nil {
		return m.applyNewMessage(b, a.Message)
	}

	id := a.MessageID()
	known, ok := m.ledger.Get(id)
	if !ok {
		m.park(b, a)
		return false
	}
	delete(b.parked, id)
	if known.EventID != b.eventID {
		m.logger.Warn("dropping announcement for another event", "event_id", b.eventID, "message_id", id)
		return false
	}
	return m.applyTransition(b, a)
}

func (m *Manager) applyNewMessage(b *binding, msg *model.Message) bool {
	if msg.EventID != b.eventID {
		m.logger.Warn("dropping message for another event",
			"event_id", b.eventID, "message_id", msg.ID, "message_event_id", msg.EventID)
		return false
	}
	inserted, err := m.ledger.InsertIfAbsent(*msg)
	if err != nil {
		m.logger.Warn("dropping invalid message", "event_id", b.eventID, "message_id", msg.ID, "err", err)
		return false
	}

	changed := inserted
	if !inserted && msg.Status.IsTerminal() {
		// A resent record can carry a transition this replica missed.
		changed = m.applyTransition(b, &events.Announcement{
			Event:    terminalEventName(msg.Status),
			Approved: approvedPayload(msg),
			Rejected: rejectedPayload(msg),
		})
	}
	if parked, ok := b.parked[msg.ID]; ok {
		delete(b.parked, msg.ID)
		if m.applyTransition(b, parked) {
			changed = true
		}
	}
	return changed
}

func (m *Manager) applyTransition(b *binding, a *events.Announcement) bool {
	var (
		changed bool
		err     error
	)
	switch {
	case a.Approved != nil:
		changed, err = m.ledger.ApplyTransition(a.Approved.MessageID, model.StatusApproved, &a.Approved.ApprovedAt)
	case a.Rejected != nil:
		changed, err = m.ledger.ApplyTransition(a.Rejected.MessageID, model.StatusRejected, nil)
	}
	var ise *model.InvalidStateError
	switch {
	case errors.As(err, &ise):
		m.logger.Info("ignoring conflicting transition",
			"event_id", b.eventID, "message_id", ise.ID, "status", ise.Current, "requested", ise.Requested)
	case err != nil:
		m.logger.Warn("dropping transition", "event_id", b.eventID, "message_id", a.MessageID(), "err", err)
	}
	return changed
}

// park holds a transition that arrived before its message.
func (m *Manager) park(b *binding, a *events.Announcement) {
	if len(b.parked) >= m.maxParked {
		m.logger.Warn("dropping transition for unseen message",
			"event_id", b.eventID, "message_id", a.MessageID(), "event", a.Event)
		return
	}
	b.parked[a.MessageID()] = a
	m.logger.Debug("parked transition for unseen message",
		"event_id", b.eventID, "message_id", a.MessageID(), "event", a.Event)
}

// deliver calls every active observer that is unprimed or, when the ledger
// changed, all of them.
func (m *Manager) deliver(b *binding) {
	b.mu.Lock()
	dirty := b.dirty
	b.dirty = false
	observers := lo.Keys(b.observers)
	b.mu.Unlock()

	views := make(map[string][]model.Message)
	for _, o := range observers {
		if !o.active.Load() || (o.primed && !dirty) {
			continue
		}
		key := viewKey(o.statuses)
		view, ok := views[key]
		if !ok {
			view = m.ledger.ListByEventAndStatus(b.eventID, o.statuses...)
			views[key] = view
		}
		o.primed = true
		o.fn(lo.Map(view, func(msg model.Message, _ int) model.Message { return msg.Clone() }))
	}
}

func viewKey(statuses []model.Status) string {
	keys := lo.Uniq(lo.Map(statuses, func(s model.Status, _ int) string { return string(s) }))
	slices.Sort(keys)
	return strings.Join(keys, ",")
}

func terminalEventName(s model.Status) string {
	if s == model.StatusApproved {
		return events.MessageApproved
	}
	return events.MessageRejected
}

func approvedPayload(msg *model.Message) *events.ApprovedPayload {
	if msg.Status != model.StatusApproved || msg.ApprovedAt == nil {
		return nil
	}
	return &events.ApprovedPayload{MessageID: msg.ID, ApprovedAt: *msg.ApprovedAt}
}

func rejectedPayload(msg *model.Message) *events.RejectedPayload {
	if msg.Status != model.StatusRejected {
		return nil
	}
	return &events.RejectedPayload{MessageID: msg.ID}
}
