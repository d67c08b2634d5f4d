package idgen

import (
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestNewMessageID_Format(t *testing.T) {
	now := time.UnixMilli(1767312000123)
	id, err := NewMessageID(now)
	if err != nil {
		t.Fatalf("NewMessageID() error: %v", err)
	}

	wantPrefix := MessagePrefix + strconv.FormatInt(now.UnixMilli(), 10) + "_"
	if !strings.HasPrefix(id, wantPrefix) {
		t.Errorf("NewMessageID() = %q, want prefix %q", id, wantPrefix)
	}
	if len(id) != len(wantPrefix)+MessageLength {
		t.Errorf("NewMessageID() length = %d, want %d (id=%q)", len(id), len(wantPrefix)+MessageLength, id)
	}
}

func TestNewMessageID_UniqueWithinSameMillisecond(t *testing.T) {
	const count = 10_000
	now := time.Now()
	seen := make(map[string]struct{}, count)
	for i := 0; i < count; i++ {
		id, err := NewMessageID(now)
		if err != nil {
			t.Fatalf("NewMessageID() error on iteration %d: %v", i, err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate ID after %d generations: %q", i, id)
		}
		seen[id] = struct{}{}
	}
}

func TestGenerators_Charset(t *testing.T) {
	for _, tc := range []struct {
		name   string
		gen    func() (string, error)
		prefix string
		length int
	}{
		{"event", NewEventID, EventPrefix, EventLength},
		{"code", NewEventCode, CodePrefix, CodeLength},
		{"guest", NewGuestID, GuestPrefix, GuestLength},
	} {
		t.Run(tc.name, func(t *testing.T) {
			pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(tc.prefix) + `[a-zA-Z0-9]+$`)
			for i := 0; i < 100; i++ {
				id, err := tc.gen()
				if err != nil {
					t.Fatalf("error on iteration %d: %v", i, err)
				}
				if !pattern.MatchString(id) {
					t.Fatalf("%q does not match expected charset pattern", id)
				}
				if len(id) != len(tc.prefix)+tc.length {
					t.Fatalf("%q has length %d, want %d", id, len(id), len(tc.prefix)+tc.length)
				}
			}
		})
	}
}

func TestGenerateWithPrefix(t *testing.T) {
	id, err := GenerateWithPrefix("test-", 5)
	if err != nil {
		t.Fatalf("GenerateWithPrefix error: %v", err)
	}
	if !strings.HasPrefix(id, "test-") || len(id) != len("test-")+5 {
		t.Errorf("GenerateWithPrefix = %q", id)
	}
}
