// Package archive periodically exports each event's wall as JSONL to one or
// more destinations. Archives are written for people, never read back: the
// ledger stays memory-only and a restart starts from an empty wall.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/guestwall/internal/model"
)

// Destination is the interface for an archive target (S3, directory, git).
type Destination interface {
	// Write stores data under name, replacing any earlier version.
	Write(ctx context.Context, name string, data []byte) error
}

// Source is what the scheduler reads from. *ledger.Ledger satisfies it.
type Source interface {
	Events() []string
	ListByEvent(eventID string) []model.Message
}

// EventLookup adds event metadata to exports. store.Directory satisfies it.
type EventLookup interface {
	GetEvent(ctx context.Context, id string) (*model.Event, error)
}

// FileName returns the archive name for eventID.
func FileName(eventID string) string {
	return eventID + ".jsonl"
}

// Scheduler runs periodic exports to one or more destinations.
type Scheduler struct {
	source       Source
	lookup       EventLookup
	destinations []Destination
	interval     time.Duration
	logger       *slog.Logger

	mu   sync.Mutex
	last map[string]uint64 // event ID -> fingerprint of the last export

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler that exports every event in src to the
// given destinations at the specified interval. lookup may be nil.
func NewScheduler(src Source, lookup EventLookup, destinations []Destination, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		source:       src,
		lookup:       lookup,
		destinations: destinations,
		interval:     interval,
		logger:       logger,
		last:         make(map[string]uint64),
	}
}

// Start begins periodic export. The first pass runs after one interval,
// since a freshly started process has nothing to archive.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the scheduler and waits for the current export (if any) to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce exports every event whose wall changed since its last successful
// export. It returns the number of events written.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	written := 0
	for _, eventID := range s.source.Events() {
		msgs := s.source.ListByEvent(eventID)
		fp := fingerprint(msgs)

		s.mu.Lock()
		prev, seen := s.last[eventID]
		s.mu.Unlock()
		if seen && prev == fp {
			continue
		}

		var buf bytes.Buffer
		if err := ExportJSONL(ctx, eventID, s.event(ctx, eventID), msgs, &buf); err != nil {
			s.logger.Error("archive export failed", "event_id", eventID, "err", err)
			continue
		}

		ok := true
		for i, dest := range s.destinations {
			if err := dest.Write(ctx, FileName(eventID), buf.Bytes()); err != nil {
				ok = false
				s.logger.Error("archive destination write failed",
					"event_id", eventID, "destination", fmt.Sprintf("%d", i), "err", err)
			}
		}
		if !ok {
			continue
		}

		s.mu.Lock()
		s.last[eventID] = fp
		s.mu.Unlock()
		written++
		s.logger.Info("archive written", "event_id", eventID, "messages", len(msgs), "bytes", buf.Len())
	}
	return written
}

func (s *Scheduler) event(ctx context.Context, eventID string) *model.Event {
	if s.lookup == nil {
		return nil
	}
	ev, err := s.lookup.GetEvent(ctx, eventID)
	if err != nil {
		s.logger.Debug("archive without event metadata", "event_id", eventID, "err", err)
		return nil
	}
	return ev
}

// fingerprint changes whenever a message is added or changes status.
func fingerprint(msgs []model.Message) uint64 {
	h := fnv.New64a()
	for _, m := range msgs {
		h.Write([]byte(m.ID))
		h.Write([]byte{0})
		h.Write([]byte(m.Status))
		h.Write([]byte{0})
	}
	return h.Sum64()
}
