package events

import "context"

// NoopPublisher is a Publisher that does nothing (used by tools that only read).
type NoopPublisher struct{}

func (n *NoopPublisher) Publish(ctx context.Context, topic, eventName string, payload any) error {
	return nil
}

func (n *NoopPublisher) Close() error {
	return nil
}
