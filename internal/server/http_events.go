package server

import (
	"net/http"

	"github.com/alfredjeanlab/guestwall/internal/model"
	"github.com/alfredjeanlab/guestwall/internal/store"
)

// handleCreateEvent handles POST /v1/events.
func (s *WallServer) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var in model.NewEventInput
	if err := decodeBody(r, &in); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	ev, err := s.directory.CreateEvent(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.logger.Info("event created", "event_id", ev.ID, "code", ev.Code, "admin_id", ev.AdminID)
	writeJSON(w, http.StatusCreated, ev)
}

// handleGetEvent handles GET /v1/events/{id}.
func (s *WallServer) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.directory.GetEvent(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// handleGetEventByCode handles GET /v1/codes/{code}. Only active events are
// reachable by code.
func (s *WallServer) handleGetEventByCode(w http.ResponseWriter, r *http.Request) {
	ev, err := s.directory.GetEventByCode(r.Context(), store.NormalizeCode(r.PathValue("code")))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// handleEventStats handles GET /v1/events/{id}/stats.
func (s *WallServer) handleEventStats(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.directory.GetEvent(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"event_id": id,
		"counts":   s.engine.Ledger().Counts(id),
		"screens":  s.Presence.Count(id),
		"bound":    s.subs.Bound(id),
	})
}

// handleRegisterGuest handles POST /v1/events/{id}/guests. Registering a
// phone twice returns the existing guest.
func (s *WallServer) handleRegisterGuest(w http.ResponseWriter, r *http.Request) {
	var in model.NewGuestInput
	if err := decodeBody(r, &in); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	g, err := s.directory.RegisterGuest(r.Context(), r.PathValue("id"), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// handleGetGuest handles GET /v1/events/{id}/guests/{phone}.
func (s *WallServer) handleGetGuest(w http.ResponseWriter, r *http.Request) {
	g, err := s.directory.GetGuest(r.Context(), r.PathValue("id"), r.PathValue("phone"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}
