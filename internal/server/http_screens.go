package server

import (
	"net/http"
)

// handleScreens handles GET /v1/screens and GET /v1/events/{id}/screens.
// Returns the live screen roster from the presence tracker.
func (s *WallServer) handleScreens(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("id")
	entries := s.Presence.Roster(eventID)
	writeJSON(w, http.StatusOK, map[string]any{
		"event_id": eventID,
		"screens":  entries,
	})
}
