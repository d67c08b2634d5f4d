package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alfredjeanlab/guestwall/internal/model"
	"github.com/alfredjeanlab/guestwall/internal/presence"
	"github.com/alfredjeanlab/guestwall/internal/subscription"
)

// snapshotEvent is the SSE event name carrying a full filtered view.
const snapshotEvent = "snapshot"

// Snapshot is the data of one SSE snapshot event.
type Snapshot struct {
	EventID  string          `json:"event_id"`
	ViewerID string          `json:"viewer_id"`
	Seq      uint64          `json:"seq"`
	Messages []model.Message `json:"messages"`
}

// latest holds at most one pending view. Newer views replace older ones, so a
// slow stream skips intermediate snapshots instead of backing up.
type latest chan []model.Message

func (l latest) put(view []model.Message) {
	for {
		select {
		case l <- view:
			return
		default:
		}
		select {
		case <-l:
		default:
		}
	}
}

// handleStream handles GET /v1/events/{id}/stream?status=... (SSE endpoint).
// The first snapshot is sent immediately; later ones follow every change to
// the view. Views other than approved-only require admin credentials.
func (s *WallServer) handleStream(w http.ResponseWriter, r *http.Request) {
	// Ensure response supports flushing (required for SSE).
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	statuses, err := statusQuery(r, model.StatusApproved)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	admin := s.isAdmin(r)
	if !publicView(statuses) && !admin {
		writeError(w, http.StatusUnauthorized, "admin token required for this view")
		return
	}
	eventID := r.PathValue("id")
	if _, err := s.directory.GetEvent(r.Context(), eventID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	updates := make(latest, 1)
	unsubscribe, err := s.subs.Subscribe(eventID, updates.put, subscription.WithStatus(statuses...))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	defer unsubscribe()

	viewerID := uuid.NewString()
	role := "screen"
	if admin && s.adminToken != "" {
		role = "admin"
	}
	s.Presence.Connect(presence.Screen{
		ViewerID:   viewerID,
		EventID:    eventID,
		Role:       role,
		View:       viewName(statuses),
		RemoteAddr: r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	})
	defer s.Presence.Disconnect(viewerID)
	s.logger.Debug("screen connected", "event_id", eventID, "viewer_id", viewerID, "view", viewName(statuses))

	// Set SSE headers.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.Header().Set("X-Viewer-ID", viewerID)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	keepalive := time.NewTicker(s.keepalive)
	defer keepalive.Stop()

	var seq uint64
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("screen disconnected", "event_id", eventID, "viewer_id", viewerID)
			return
		case view := <-updates:
			seq++
			data, err := json.Marshal(Snapshot{EventID: eventID, ViewerID: viewerID, Seq: seq, Messages: view})
			if err != nil {
				s.logger.Warn("failed to marshal snapshot", "event_id", eventID, "err", err)
				continue
			}
			writeSSEEvent(w, seq, snapshotEvent, data)
			flusher.Flush()
			s.Presence.Touch(viewerID, true)
		case <-keepalive.C:
			// Send a comment line as keepalive.
			fmt.Fprintf(w, ":keepalive\n\n")
			flusher.Flush()
			s.Presence.Touch(viewerID, false)
		}
	}
}

// writeSSEEvent writes a single SSE event to the writer.
func writeSSEEvent(w http.ResponseWriter, id uint64, event string, data []byte) {
	fmt.Fprintf(w, "id:%d\n", id)
	fmt.Fprintf(w, "event:%s\n", event)
	fmt.Fprintf(w, "data:%s\n\n", data)
}

// viewName renders a status filter for the roster.
func viewName(statuses []model.Status) string {
	if len(statuses) == 0 {
		return "all"
	}
	parts := make([]string, len(statuses))
	for i, st := range statuses {
		parts[i] = st.String()
	}
	return strings.Join(parts, ",")
}
