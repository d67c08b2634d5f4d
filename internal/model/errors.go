package model

import "fmt"

// NotFoundError reports an unknown (or inactive) event, guest, or message.
type NotFoundError struct {
	Kind string // "event", "guest", "message"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// InvalidStateError reports a transition out of a terminal status. Under
// eventual consistency this is usually a stale command and callers treat it
// as a no-op.
type InvalidStateError struct {
	ID        string
	Current   Status
	Requested Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("message %q is %s, cannot become %s", e.ID, e.Current, e.Requested)
}

// TransportError reports a failed announcement. Local state has already been
// applied when this is returned.
type TransportError struct {
	Topic string
	Event string
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("announce %s on %s: %v", e.Event, e.Topic, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
