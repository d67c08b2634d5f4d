package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alfredjeanlab/guestwall/internal/ledger"
	"github.com/alfredjeanlab/guestwall/internal/model"
)

// mockDestination records calls to Write.
type mockDestination struct {
	mu     sync.Mutex
	writes atomic.Int64
	files  map[string][]byte
	err    error
}

func (d *mockDestination) Write(_ context.Context, name string, data []byte) error {
	if d.err != nil {
		return d.err
	}
	d.writes.Add(1)
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.files == nil {
		d.files = map[string][]byte{}
	}
	d.files[name] = bytes.Clone(data)
	return nil
}

func (d *mockDestination) file(name string) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.files[name]
}

type fakeLookup map[string]*model.Event

func (f fakeLookup) GetEvent(_ context.Context, id string) (*model.Event, error) {
	if ev, ok := f[id]; ok {
		return ev, nil
	}
	return nil, &model.NotFoundError{Kind: "event", ID: id}
}

var created = time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

func seedLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	l := ledger.New()
	for i, id := range []string{"m1", "m2", "m3"} {
		_, err := l.InsertIfAbsent(model.Message{
			ID: id, EventID: "evt1", AuthorName: "Ana", Text: "<b>hola</b> " + id,
			Status: model.StatusPending, CreatedAt: created.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	at := created.Add(time.Minute)
	if _, err := l.ApplyTransition("m2", model.StatusApproved, &at); err != nil {
		t.Fatal(err)
	}
	if _, err := l.ApplyTransition("m3", model.StatusRejected, nil); err != nil {
		t.Fatal(err)
	}
	return l
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func TestExportJSONL_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), "evt1", nil, nil, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	if len(lines) != 1 {
		t.Fatalf("expected 1 line (header only), got %d", len(lines))
	}
	var h header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if h.Version != "1" || h.Type != "header" || h.EventID != "evt1" || h.MessageCount != 0 {
		t.Fatalf("unexpected header: %+v", h)
	}
}

func TestExportJSONL_WithEventAndMessages(t *testing.T) {
	l := seedLedger(t)
	ev := &model.Event{ID: "evt1", Name: "Cumple"}

	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), "evt1", ev, l.ListByEvent("evt1"), &buf); err != nil {
		t.Fatalf("ExportJSONL: %v", err)
	}
	lines := nonEmptyLines(buf.String())
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d", len(lines))
	}

	var h header
	_ = json.Unmarshal([]byte(lines[0]), &h)
	if h.MessageCount != 3 || h.PendingCount != 1 || h.ApprovedCount != 1 || h.RejectedCount != 1 {
		t.Errorf("header = %+v", h)
	}

	var evRec struct {
		Type string      `json:"type"`
		Data model.Event `json:"data"`
	}
	_ = json.Unmarshal([]byte(lines[1]), &evRec)
	if evRec.Type != "event" || evRec.Data.Name != "Cumple" {
		t.Errorf("event record = %+v", evRec)
	}

	var first struct {
		Type string        `json:"type"`
		Data model.Message `json:"data"`
	}
	_ = json.Unmarshal([]byte(lines[2]), &first)
	if first.Type != "message" || first.Data.ID != "m3" {
		t.Errorf("first message = %+v, want m3 (most recent)", first)
	}
	if !strings.Contains(lines[2], "<b>hola</b>") {
		t.Error("HTML should not be escaped")
	}
}

func TestSchedulerRunOnce_SkipsUnchanged(t *testing.T) {
	l := seedLedger(t)
	dest := &mockDestination{}
	sched := NewScheduler(l, fakeLookup{"evt1": {ID: "evt1", Name: "Cumple"}}, []Destination{dest}, time.Minute, testLogger())

	if n := sched.RunOnce(context.Background()); n != 1 {
		t.Fatalf("first pass wrote %d events", n)
	}
	if n := sched.RunOnce(context.Background()); n != 0 {
		t.Fatalf("unchanged wall rewritten: %d", n)
	}

	at := created.Add(time.Hour)
	_, _ = l.InsertIfAbsent(model.Message{ID: "m4", EventID: "evt1", Text: "x", Status: model.StatusPending, CreatedAt: at})
	if n := sched.RunOnce(context.Background()); n != 1 {
		t.Fatalf("changed wall not rewritten: %d", n)
	}
	_, _ = l.ApplyTransition("m4", model.StatusApproved, &at)
	if n := sched.RunOnce(context.Background()); n != 1 {
		t.Fatalf("status change not rewritten: %d", n)
	}

	lines := nonEmptyLines(string(dest.file("evt1.jsonl")))
	if len(lines) != 6 {
		t.Errorf("expected header + event + 4 messages, got %d lines", len(lines))
	}
}

func TestSchedulerRunOnce_RetriesAfterFailure(t *testing.T) {
	l := seedLedger(t)
	dest := &mockDestination{err: errors.New("bucket unavailable")}
	sched := NewScheduler(l, nil, []Destination{dest}, time.Minute, testLogger())

	if n := sched.RunOnce(context.Background()); n != 0 {
		t.Fatalf("failed write counted: %d", n)
	}
	dest.err = nil
	if n := sched.RunOnce(context.Background()); n != 1 {
		t.Fatalf("expected retry to write, got %d", n)
	}
}

func TestSchedulerStartStop(t *testing.T) {
	l := seedLedger(t)
	dest := &mockDestination{}

	sched := NewScheduler(l, nil, []Destination{dest}, 20*time.Millisecond, testLogger())
	sched.Start()
	time.Sleep(100 * time.Millisecond)
	sched.Stop()

	if writes := dest.writes.Load(); writes != 1 {
		t.Fatalf("expected exactly 1 write of an unchanged wall, got %d", writes)
	}
}

func TestSchedulerStop_NoStart(t *testing.T) {
	sched := NewScheduler(ledger.New(), nil, nil, time.Minute, nil)
	// Stop without Start should not panic.
	sched.Stop()
}

func TestDirDestination(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "walls")
	dest, err := NewDirDestination(dir)
	if err != nil {
		t.Fatalf("NewDirDestination: %v", err)
	}

	for _, data := range []string{"first\n", "second\n"} {
		if err := dest.Write(context.Background(), "evt1.jsonl", []byte(data)); err != nil {
			t.Fatalf("Write: %v", err)
		}
		got, err := os.ReadFile(filepath.Join(dir, "evt1.jsonl"))
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if string(got) != data {
			t.Errorf("content = %q, want %q", got, data)
		}
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

func TestFileName(t *testing.T) {
	if got := FileName("evt_abc"); got != "evt_abc.jsonl" {
		t.Errorf("FileName = %q", got)
	}
}
