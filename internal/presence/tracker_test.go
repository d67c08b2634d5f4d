package presence

import (
	"sync"
	"testing"
	"time"
)

// fakeClock lets tests move time forward.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestTracker() (*Tracker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)}
	tr := New(nil)
	tr.now = clock.Now
	return tr, clock
}

func TestConnect_BasicTracking(t *testing.T) {
	tr, _ := newTestTracker()

	tr.Connect(Screen{
		ViewerID:   "v1",
		EventID:    "evt1",
		Role:       "screen",
		View:       "approved",
		RemoteAddr: "10.0.0.5:5555",
		UserAgent:  "SmartTV",
	})

	roster := tr.Roster("evt1")
	if len(roster) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(roster))
	}
	e := roster[0]
	if e.ViewerID != "v1" || e.Role != "screen" || e.View != "approved" || e.UserAgent != "SmartTV" {
		t.Errorf("got %+v", e)
	}
	if e.Deliveries != 0 || e.Stale {
		t.Errorf("got %+v", e)
	}
}

func TestConnect_IgnoresIncompleteScreens(t *testing.T) {
	tr, _ := newTestTracker()
	tr.Connect(Screen{ViewerID: "", EventID: "evt1"})
	tr.Connect(Screen{ViewerID: "v1", EventID: ""})
	if n := len(tr.Roster("")); n != 0 {
		t.Fatalf("expected 0 entries, got %d", n)
	}
}

func TestTouch_CountsDeliveries(t *testing.T) {
	tr, clock := newTestTracker()
	tr.Connect(Screen{ViewerID: "v1", EventID: "evt1"})

	clock.Advance(10 * time.Second)
	tr.Touch("v1", true)
	tr.Touch("v1", true)
	tr.Touch("v1", false)
	tr.Touch("unknown", true)

	e := tr.Roster("evt1")[0]
	if e.Deliveries != 2 {
		t.Errorf("deliveries = %d, want 2", e.Deliveries)
	}
	if !e.LastSeen.Equal(clock.Now()) {
		t.Errorf("last_seen = %v", e.LastSeen)
	}
}

func TestRoster_FiltersAndSorts(t *testing.T) {
	tr, clock := newTestTracker()
	tr.Connect(Screen{ViewerID: "a", EventID: "evt1"})
	clock.Advance(time.Second)
	tr.Connect(Screen{ViewerID: "b", EventID: "evt1"})
	tr.Connect(Screen{ViewerID: "c", EventID: "evt2"})

	roster := tr.Roster("evt1")
	if len(roster) != 2 || roster[0].ViewerID != "b" || roster[1].ViewerID != "a" {
		t.Errorf("roster = %+v", roster)
	}
	if n := len(tr.Roster("")); n != 3 {
		t.Errorf("all = %d, want 3", n)
	}
	if tr.Count("evt1") != 2 || tr.Count("evt2") != 1 || tr.Count("evt3") != 0 {
		t.Error("unexpected counts")
	}
}

func TestDisconnect(t *testing.T) {
	tr, _ := newTestTracker()
	tr.Connect(Screen{ViewerID: "v1", EventID: "evt1"})
	tr.Disconnect("v1")
	tr.Disconnect("v1")
	if n := len(tr.Roster("evt1")); n != 0 {
		t.Fatalf("expected 0 entries, got %d", n)
	}
}

func TestSweep_MarksStaleThenEvicts(t *testing.T) {
	tr, clock := newTestTracker()
	tr.Connect(Screen{ViewerID: "idle", EventID: "evt1"})
	tr.Connect(Screen{ViewerID: "busy", EventID: "evt1"})

	var stale []string
	cfg := &ReaperConfig{
		StaleThreshold: time.Minute,
		EvictAfter:     5 * time.Minute,
		OnStale:        func(_, viewerID string) { stale = append(stale, viewerID) },
	}

	clock.Advance(90 * time.Second)
	tr.Touch("busy", false)
	tr.sweep(cfg)

	if len(stale) != 1 || stale[0] != "idle" {
		t.Fatalf("OnStale calls = %v", stale)
	}
	if tr.Count("evt1") != 1 {
		t.Errorf("live count = %d, want 1", tr.Count("evt1"))
	}

	// Already stale: not reported again.
	tr.sweep(cfg)
	if len(stale) != 1 {
		t.Errorf("OnStale called again: %v", stale)
	}

	clock.Advance(6 * time.Minute)
	tr.Touch("busy", false)
	tr.sweep(cfg)
	for _, e := range tr.Roster("evt1") {
		if e.ViewerID == "idle" {
			t.Error("stale screen should be evicted")
		}
	}
}

func TestTouch_ResumesStaleScreen(t *testing.T) {
	tr, clock := newTestTracker()
	tr.Connect(Screen{ViewerID: "v1", EventID: "evt1"})
	clock.Advance(time.Hour)
	tr.sweep(&ReaperConfig{StaleThreshold: time.Minute, EvictAfter: time.Hour})

	if !tr.Roster("evt1")[0].Stale {
		t.Fatal("expected stale")
	}
	tr.Touch("v1", true)
	if tr.Roster("evt1")[0].Stale {
		t.Error("touch should clear stale")
	}
}

func TestStartReaper_Stop(t *testing.T) {
	tr, _ := newTestTracker()
	tr.StartReaper(&ReaperConfig{SweepInterval: 10 * time.Millisecond})
	time.Sleep(30 * time.Millisecond)
	tr.Stop()
	tr.Stop()
}
