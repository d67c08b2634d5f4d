// Package idgen provides short, URL-safe unique ID generation backed by nanoid.
//
// Message IDs are minted by producers that never coordinate, so each one
// carries its creation time in milliseconds plus a random suffix. Event codes
// double as the share/QR token and the only thing guarding a wall, so they
// carry more entropy and no timestamp.
package idgen

import (
	"fmt"
	"strconv"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet defines the character set used for the random portion of every ID.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Random-part lengths.
var (
	MessageLength = 9
	EventLength   = 12
	CodeLength    = 16
	GuestLength   = 10
)

// Prefixes for each ID kind.
const (
	MessagePrefix = "msg_"
	EventPrefix   = "evt_"
	CodePrefix    = "event_"
	GuestPrefix   = "gst_"
)

// NewMessageID returns "msg_<unix-millis>_<random>".
func NewMessageID(now time.Time) (string, error) {
	return GenerateWithPrefix(MessagePrefix+strconv.FormatInt(now.UnixMilli(), 10)+"_", MessageLength)
}

// NewEventID returns an internal event ID used as the ledger partition key.
func NewEventID() (string, error) {
	return GenerateWithPrefix(EventPrefix, EventLength)
}

// NewEventCode returns an unguessable share code for an event.
func NewEventCode() (string, error) {
	return GenerateWithPrefix(CodePrefix, CodeLength)
}

// NewGuestID returns a guest record ID.
func NewGuestID() (string, error) {
	return GenerateWithPrefix(GuestPrefix, GuestLength)
}

// GenerateWithPrefix returns a new unique ID with the given prefix and
// length random characters.
func GenerateWithPrefix(prefix string, length int) (string, error) {
	id, err := nanoid.Generate(Alphabet, length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}
