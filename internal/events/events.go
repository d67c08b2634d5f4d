// Package events carries wall announcements between processes.
//
// Every announcement for one event travels on a single topic, "event-<id>",
// wrapped in an Envelope that names what happened. Delivery is at-least-once
// with no ordering across publishers; receivers reconcile through the ledger.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/alfredjeanlab/guestwall/internal/model"
)

// TopicPrefix is prepended to an event ID to form its topic.
const TopicPrefix = "event-"

// Event names carried in Envelope.Event.
const (
	NewMessage      = "new-message"
	MessageApproved = "message-approved"
	MessageRejected = "message-rejected"
)

// Topic returns the topic that carries announcements for eventID.
func Topic(eventID string) string {
	return TopicPrefix + eventID
}

// EventIDFromTopic reverses Topic. It reports false for foreign topics.
func EventIDFromTopic(topic string) (string, bool) {
	id, ok := strings.CutPrefix(topic, TopicPrefix)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// KnownEvent reports whether name is one of the announcement names above.
func KnownEvent(name string) bool {
	switch name {
	case NewMessage, MessageApproved, MessageRejected:
		return true
	}
	return false
}

// Envelope is the wire format of one announcement.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ApprovedPayload is the data of a message-approved announcement.
type ApprovedPayload struct {
	MessageID  string    `json:"message_id"`
	ApprovedAt time.Time `json:"approved_at"`
}

// RejectedPayload is the data of a message-rejected announcement.
type RejectedPayload struct {
	MessageID string `json:"message_id"`
}

// Publisher is the interface for emitting announcements.
type Publisher interface {
	Publish(ctx context.Context, topic, eventName string, payload any) error
	Close() error
}

// Subscriber receives raw envelopes from the bus.
type Subscriber interface {
	// Subscribe delivers raw envelopes on the returned channel.
	// Call the returned cancel function to unsubscribe and close the channel.
	Subscribe(topic string) (<-chan []byte, func(), error)
	Close() error
}

// Encode wraps payload in an Envelope and marshals it.
func Encode(eventName string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s payload: %w", eventName, err)
	}
	return json.Marshal(Envelope{Event: eventName, Data: data})
}

// Announcement is a decoded envelope. Exactly one of the payload fields is set,
// matching Event.
type Announcement struct {
	Event    string
	Message  *model.Message
	Approved *ApprovedPayload
	Rejected *RejectedPayload
}

// MessageID returns the ID of the message the announcement is about.
func (a *Announcement) MessageID() string {
	switch {
	case a.Message != nil:
		return a.Message.ID
	case a.Approved != nil:
		return a.Approved.MessageID
	case a.Rejected != nil:
		return a.Rejected.MessageID
	}
	return ""
}

// Decode parses a raw envelope. Unknown event names and payloads without a
// message ID are errors.
func Decode(raw []byte) (*Announcement, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decoding envelope: %w", err)
	}

	a := &Announcement{Event: env.Event}
	switch env.Event {
	case NewMessage:
		var m model.Message
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", env.Event, err)
		}
		a.Message = &m
	case MessageApproved:
		var p ApprovedPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", env.Event, err)
		}
		if p.ApprovedAt.IsZero() {
			return nil, fmt.Errorf("decoding %s: approved_at is required", env.Event)
		}
		a.Approved = &p
	case MessageRejected:
		var p RejectedPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", env.Event, err)
		}
		a.Rejected = &p
	default:
		return nil, fmt.Errorf("unknown event %q", env.Event)
	}

	if a.MessageID() == "" {
		return nil, fmt.Errorf("decoding %s: message id is required", env.Event)
	}
	return a, nil
}
