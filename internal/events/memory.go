package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrBusClosed is returned by Bus.Publish and Bus.Subscribe after Close.
var ErrBusClosed = errors.New("bus closed")

// Bus is an in-process Publisher and Subscriber. It is used when no NATS URL
// is configured: every component in the process shares one Bus and sees the
// same announcements it would see over NATS, encoded the same way.
type Bus struct {
	logger *slog.Logger

	mu     sync.RWMutex
	subs   map[string]map[*busSub]struct{}
	closed bool
}

type busSub struct {
	inbox *inbox
}

// NewBus returns an empty bus. A nil logger uses slog.Default().
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		logger: logger,
		subs:   make(map[string]map[*busSub]struct{}),
	}
}

// Publish encodes payload and queues it for every current subscriber of
// topic. Each subscriber's queue is unbounded, so a slow reader falls behind
// but never misses an announcement.
func (b *Bus) Publish(_ context.Context, topic, eventName string, payload any) error {
	data, err := Encode(eventName, payload)
	if err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("publishing %s to %s: %w", eventName, topic, ErrBusClosed)
	}
	for s := range b.subs[topic] {
		s.inbox.push(data)
	}
	b.logger.Debug("bus publish", "topic", topic, "event", eventName, "subscribers", len(b.subs[topic]))
	return nil
}

// Subscribe registers a new receiver for topic.
func (b *Bus) Subscribe(topic string) (<-chan []byte, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, nil, fmt.Errorf("subscribing to %s: %w", topic, ErrBusClosed)
	}

	s := &busSub{inbox: newInbox()}
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[*busSub]struct{})
	}
	b.subs[topic][s] = struct{}{}

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.remove(topic, s)
	}
	return s.inbox.out, cancel, nil
}

// remove detaches s and closes its channel. Callers hold b.mu.
func (b *Bus) remove(topic string, s *busSub) {
	if set := b.subs[topic]; set != nil {
		delete(set, s)
		if len(set) == 0 {
			delete(b.subs, topic)
		}
	}
	s.inbox.close()
}

// Subscribers returns the number of live subscriptions on topic.
func (b *Bus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

// Close closes every subscription channel. Later calls are no-ops.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for topic, set := range b.subs {
		for s := range set {
			b.remove(topic, s)
		}
	}
	return nil
}
