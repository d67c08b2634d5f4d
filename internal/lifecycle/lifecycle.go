// Package lifecycle implements message moderation: guests submit, the admin
// approves or rejects, and every change is applied to the local ledger before
// it is announced on the event's topic.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alfredjeanlab/guestwall/internal/censor"
	"github.com/alfredjeanlab/guestwall/internal/events"
	"github.com/alfredjeanlab/guestwall/internal/idgen"
	"github.com/alfredjeanlab/guestwall/internal/ledger"
	"github.com/alfredjeanlab/guestwall/internal/model"
)

// EventLookup resolves events. store.Directory satisfies it.
type EventLookup interface {
	GetEvent(ctx context.Context, id string) (*model.Event, error)
}

// Notifier is told when the local ledger changed for an event, so local
// observers can be redelivered without waiting for the transport loopback.
type Notifier interface {
	Refresh(eventID string)
}

// DefaultPublishTimeout bounds a single announcement.
const DefaultPublishTimeout = 5 * time.Second

// Engine applies moderation transitions to a ledger and announces them.
type Engine struct {
	ledger    *ledger.Ledger
	events    EventLookup
	publisher events.Publisher
	notifier  Notifier
	masker    *censor.Masker
	maxLen    int
	timeout   time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithNotifier registers n to be told about local ledger changes.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithMasker masks blocked words in submitted text.
func WithMasker(m *censor.Masker) Option {
	return func(e *Engine) { e.masker = m }
}

// WithMaxTextLength overrides model.DefaultMaxTextLength. Zero disables the limit.
func WithMaxTextLength(n int) Option {
	return func(e *Engine) { e.maxLen = n }
}

// WithPublishTimeout overrides DefaultPublishTimeout.
func WithPublishTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New returns an Engine over l that checks events with lookup and announces
// on pub.
func New(l *ledger.Ledger, lookup EventLookup, pub events.Publisher, opts ...Option) *Engine {
	e := &Engine{
		ledger:    l,
		events:    lookup,
		publisher: pub,
		maxLen:    model.DefaultMaxTextLength,
		timeout:   DefaultPublishTimeout,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ledger returns the ledger the engine writes to.
func (e *Engine) Ledger() *ledger.Ledger {
	return e.ledger
}

// Submit creates a pending message and announces it.
//
// Blank text or input that is not UTF-8 yields a *model.ValidationError and an
// unknown or inactive event a *model.NotFoundError; neither touches the ledger. If only the announcement
// fails the message is returned together with a *model.TransportError: it is
// stored locally and Resend can announce it again.
func (e *Engine) Submit(ctx context.Context, eventID, authorName, authorPhone, text string) (model.Message, error) {
	text, err := model.ValidateText(text, e.maxLen)
	if err != nil {
		return model.Message{}, err
	}
	authorName, authorPhone, err = model.ValidateAuthor(authorName, authorPhone)
	if err != nil {
		return model.Message{}, err
	}
	if err := e.requireActiveEvent(ctx, eventID); err != nil {
		return model.Message{}, err
	}
	if masked, changed := e.masker.Mask(text); changed {
		e.logger.Debug("masked blocked words", "event_id", eventID)
		text = masked
	}

	now := e.now().UTC()
	id, err := idgen.NewMessageID(now)
	if err != nil {
		return model.Message{}, fmt.Errorf("generating message id: %w", err)
	}
	msg := model.Message{
		ID:          id,
		EventID:     eventID,
		AuthorName:  authorName,
		AuthorPhone: authorPhone,
		Text:        text,
		Status:      model.StatusPending,
		CreatedAt:   now,
	}
	if _, err := e.ledger.InsertIfAbsent(msg); err != nil {
		return model.Message{}, err
	}
	e.refresh(eventID)

	return msg, e.announce(ctx, eventID, events.NewMessage, msg)
}

// Approve moves a pending message to approved and announces it. Approving an
// approved message is a no-op and announces nothing.
//
// The message must already be in the local ledger under eventID, otherwise a
// *model.NotFoundError is returned and the caller should retry once the
// submission has been observed. A rejected message yields
// *model.InvalidStateError and is left untouched.
func (e *Engine) Approve(ctx context.Context, messageID, eventID string) (model.Message, error) {
	return e.transition(ctx, messageID, eventID, model.StatusApproved)
}

// Reject moves a pending message to rejected. It mirrors Approve.
func (e *Engine) Reject(ctx context.Context, messageID, eventID string) (model.Message, error) {
	return e.transition(ctx, messageID, eventID, model.StatusRejected)
}

// Resend announces the current record of a message again, followed by its
// transition if it is no longer pending. It is the retry path after a
// *model.TransportError and never changes the ledger.
func (e *Engine) Resend(ctx context.Context, messageID, eventID string) (model.Message, error) {
	msg, err := e.lookup(messageID, eventID)
	if err != nil {
		return model.Message{}, err
	}
	if err := e.announce(ctx, eventID, events.NewMessage, msg); err != nil {
		return msg, err
	}
	if name, payload, ok := transitionAnnouncement(msg); ok {
		return msg, e.announce(ctx, eventID, name, payload)
	}
	return msg, nil
}

func (e *Engine) transition(ctx context.Context, messageID, eventID string, to model.Status) (model.Message, error) {
	msg, err := e.lookup(messageID, eventID)
	if err != nil {
		return model.Message{}, err
	}

	at := e.now().UTC()
	changed, err := e.ledger.ApplyTransition(messageID, to, &at)
	if err != nil {
		var ise *model.InvalidStateError
		if errors.As(err, &ise) {
			e.logger.Info("ignoring stale moderation command",
				"event_id", eventID, "message_id", messageID, "status", ise.Current, "requested", to)
		}
		return msg, err
	}
	if !changed {
		return msg, nil
	}
	e.refresh(eventID)

	msg, _ = e.ledger.Get(messageID)
	name, payload, _ := transitionAnnouncement(msg)
	return msg, e.announce(ctx, eventID, name, payload)
}

// lookup returns the message only if it belongs to eventID.
func (e *Engine) lookup(messageID, eventID string) (model.Message, error) {
	msg, ok := e.ledger.Get(messageID)
	if !ok || msg.EventID != eventID {
		return model.Message{}, &model.NotFoundError{Kind: "message", ID: messageID}
	}
	return msg, nil
}

func (e *Engine) requireActiveEvent(ctx context.Context, eventID string) error {
	if strings.TrimSpace(eventID) == "" {
		return &model.ValidationError{Errors: []model.FieldError{{Field: "event_id", Message: "is required"}}}
	}
	ev, err := e.events.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if !ev.IsActive {
		return &model.NotFoundError{Kind: "event", ID: eventID}
	}
	return nil
}

func (e *Engine) refresh(eventID string) {
	if e.notifier != nil {
		e.notifier.Refresh(eventID)
	}
}

// announce publishes one envelope on the event's topic. Failures come back as
// *model.TransportError.
func (e *Engine) announce(ctx context.Context, eventID, name string, payload any) error {
	topic := events.Topic(eventID)
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	if err := e.publisher.Publish(ctx, topic, name, payload); err != nil {
		e.logger.Warn("announcement failed", "topic", topic, "event", name, "err", err)
		return &model.TransportError{Topic: topic, Event: name, Err: err}
	}
	e.logger.Debug("announced", "topic", topic, "event", name)
	return nil
}

// transitionAnnouncement returns the envelope that announces msg's terminal
// status. ok is false for pending messages.
func transitionAnnouncement(msg model.Message) (name string, payload any, ok bool) {
	switch msg.Status {
	case model.StatusApproved:
		return events.MessageApproved, events.ApprovedPayload{MessageID: msg.ID, ApprovedAt: *msg.ApprovedAt}, true
	case model.StatusRejected:
		return events.MessageRejected, events.RejectedPayload{MessageID: msg.ID}, true
	}
	return "", nil, false
}
