package model

import "time"

// Status represents where a message is in moderation.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid checks whether the status is a known value.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed out of s.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Message is a guest-submitted text item awaiting or past moderation.
// Everything except Status and ApprovedAt is fixed at creation.
type Message struct {
	ID          string     `json:"id"`
	EventID     string     `json:"event_id"`
	AuthorName  string     `json:"author_name"`
	AuthorPhone string     `json:"author_phone"`
	Text        string     `json:"text"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
}

// Clone returns a deep copy of m.
func (m Message) Clone() Message {
	if m.ApprovedAt != nil {
		at := *m.ApprovedAt
		m.ApprovedAt = &at
	}
	return m
}

// ParseStatuses converts raw strings to statuses, rejecting unknown values.
func ParseStatuses(raw []string) ([]Status, error) {
	out := make([]Status, 0, len(raw))
	for _, r := range raw {
		s := Status(r)
		if !s.IsValid() {
			return nil, &ValidationError{Errors: []FieldError{{Field: "status", Message: "invalid value \"" + r + "\""}}}
		}
		out = append(out, s)
	}
	return out, nil
}
