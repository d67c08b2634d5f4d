// Package presence tracks the screens currently watching each event's wall.
//
// The server records a screen when an SSE stream opens, touches it on every
// snapshot and keepalive, and removes it when the stream ends. A background
// reaper marks screens whose stream went quiet without a clean disconnect,
// and later evicts them.
package presence

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Entry is a snapshot of one screen's presence.
type Entry struct {
	ViewerID    string    `json:"viewer_id"`
	EventID     string    `json:"event_id"`
	Role        string    `json:"role"` // "screen", "admin"
	View        string    `json:"view"` // status filter, e.g. "approved"
	RemoteAddr  string    `json:"remote_addr,omitempty"`
	UserAgent   string    `json:"user_agent,omitempty"`
	ConnectedAt time.Time `json:"connected_at"`
	LastSeen    time.Time `json:"last_seen"`
	IdleSecs    float64   `json:"idle_secs"`
	Deliveries  int64     `json:"deliveries"`
	Stale       bool      `json:"stale,omitempty"`
	StaleAt     time.Time `json:"stale_at,omitempty"`
}

// Screen describes a stream when it connects.
type Screen struct {
	ViewerID   string
	EventID    string
	Role       string
	View       string
	RemoteAddr string
	UserAgent  string
}

// ReaperConfig configures the background stale-screen reaper.
type ReaperConfig struct {
	// StaleThreshold is how long a screen may go without a touch before it is
	// marked stale. Default: 2 minutes.
	StaleThreshold time.Duration

	// EvictAfter is how long a stale screen stays listed before removal.
	// Default: 10 minutes.
	EvictAfter time.Duration

	// SweepInterval is how often the reaper scans. Default: 30 seconds.
	SweepInterval time.Duration

	// OnStale is called for each screen newly marked stale, outside the lock.
	OnStale func(eventID, viewerID string)
}

// Tracker maintains an in-memory roster of connected screens.
type Tracker struct {
	mu      sync.RWMutex
	screens map[string]*screenState // by viewer ID
	now     func() time.Time
	logger  *slog.Logger

	reaperStop chan struct{}
	reaperDone chan struct{}
}

type screenState struct {
	Screen
	connectedAt time.Time
	lastSeen    time.Time
	deliveries  int64
	stale       bool
	staleAt     time.Time
}

// New creates a tracker. A nil logger uses slog.Default().
func New(logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		screens: make(map[string]*screenState),
		now:     time.Now,
		logger:  logger,
	}
}

// Connect records a new screen. Reconnecting with the same viewer ID resets it.
func (t *Tracker) Connect(s Screen) {
	if s.ViewerID == "" || s.EventID == "" {
		return
	}
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.screens[s.ViewerID] = &screenState{Screen: s, connectedAt: now, lastSeen: now}
}

// Touch marks the screen alive. delivered counts a snapshot sent to it.
func (t *Tracker) Touch(viewerID string, delivered bool) {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.screens[viewerID]
	if !ok {
		return
	}
	if state.stale {
		t.logger.Info("presence: screen resumed", "event_id", state.EventID, "viewer_id", viewerID)
		state.stale = false
		state.staleAt = time.Time{}
	}
	state.lastSeen = now
	if delivered {
		state.deliveries++
	}
}

// Disconnect removes a screen.
func (t *Tracker) Disconnect(viewerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.screens, viewerID)
}

// Roster returns the screens of eventID, most recently active first. An empty
// eventID lists every event.
func (t *Tracker) Roster(eventID string) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := t.now()
	entries := make([]Entry, 0, len(t.screens))
	for _, state := range t.screens {
		if eventID != "" && state.EventID != eventID {
			continue
		}
		entries = append(entries, Entry{
			ViewerID:    state.ViewerID,
			EventID:     state.EventID,
			Role:        state.Role,
			View:        state.View,
			RemoteAddr:  state.RemoteAddr,
			UserAgent:   state.UserAgent,
			ConnectedAt: state.connectedAt,
			LastSeen:    state.lastSeen,
			IdleSecs:    now.Sub(state.lastSeen).Seconds(),
			Deliveries:  state.deliveries,
			Stale:       state.stale,
			StaleAt:     state.staleAt,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].LastSeen.Equal(entries[j].LastSeen) {
			return entries[i].LastSeen.After(entries[j].LastSeen)
		}
		return entries[i].ViewerID < entries[j].ViewerID
	})
	return entries
}

// Count returns the number of live (not stale) screens of eventID.
func (t *Tracker) Count(eventID string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, state := range t.screens {
		if state.EventID == eventID && !state.stale {
			n++
		}
	}
	return n
}

// StartReaper launches a background goroutine that periodically marks idle
// screens stale. Call Stop() to shut it down.
func (t *Tracker) StartReaper(cfg *ReaperConfig) {
	if cfg == nil {
		cfg = &ReaperConfig{}
	}
	if cfg.StaleThreshold == 0 {
		cfg.StaleThreshold = 2 * time.Minute
	}
	if cfg.EvictAfter == 0 {
		cfg.EvictAfter = 10 * time.Minute
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = 30 * time.Second
	}

	t.reaperStop = make(chan struct{})
	t.reaperDone = make(chan struct{})

	go t.reapLoop(cfg)
	t.logger.Info("presence: reaper started",
		"stale_threshold", cfg.StaleThreshold,
		"sweep_interval", cfg.SweepInterval)
}

// Stop shuts down the reaper goroutine.
func (t *Tracker) Stop() {
	if t.reaperStop != nil {
		close(t.reaperStop)
		<-t.reaperDone
		t.reaperStop = nil
		t.reaperDone = nil
	}
}

func (t *Tracker) reapLoop(cfg *ReaperConfig) {
	defer close(t.reaperDone)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.reaperStop:
			return
		case <-ticker.C:
			t.sweep(cfg)
		}
	}
}

func (t *Tracker) sweep(cfg *ReaperConfig) {
	now := t.now()

	var newlyStale []Screen

	t.mu.Lock()
	for id, state := range t.screens {
		if state.stale {
			if now.Sub(state.staleAt) > cfg.EvictAfter {
				delete(t.screens, id)
			}
			continue
		}
		if now.Sub(state.lastSeen) > cfg.StaleThreshold {
			state.stale = true
			state.staleAt = now
			newlyStale = append(newlyStale, state.Screen)
		}
	}
	t.mu.Unlock()

	for _, s := range newlyStale {
		t.logger.Info("presence: screen went stale",
			"event_id", s.EventID,
			"viewer_id", s.ViewerID,
			"threshold", cfg.StaleThreshold)
		if cfg.OnStale != nil {
			cfg.OnStale(s.EventID, s.ViewerID)
		}
	}
}
