package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/alfredjeanlab/guestwall/internal/model"
)

// submitRequest is the body of POST /v1/events/{id}/messages. When
// author_name is omitted the guest registered under author_phone supplies it.
type submitRequest struct {
	AuthorName  string `json:"author_name"`
	AuthorPhone string `json:"author_phone"`
	Text        string `json:"text"`
}

// handleSubmit handles POST /v1/events/{id}/messages.
func (s *WallServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	eventID := r.PathValue("id")

	if strings.TrimSpace(req.AuthorName) == "" && strings.TrimSpace(req.AuthorPhone) != "" {
		g, err := s.directory.GetGuest(r.Context(), eventID, strings.TrimSpace(req.AuthorPhone))
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		req.AuthorName = g.Name
	}

	msg, err := s.engine.Submit(r.Context(), eventID, req.AuthorName, req.AuthorPhone, req.Text)
	s.writeMessageResult(w, r, http.StatusCreated, msg, err)
}

// handleListMessages handles GET /v1/events/{id}/messages?status=...
// Without a status filter it lists approved messages. Any other view
// requires admin credentials.
func (s *WallServer) handleListMessages(w http.ResponseWriter, r *http.Request) {
	statuses, err := statusQuery(r, model.StatusApproved)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !publicView(statuses) && !s.isAdmin(r) {
		writeError(w, http.StatusUnauthorized, "admin token required for this view")
		return
	}
	eventID := r.PathValue("id")
	if _, err := s.directory.GetEvent(r.Context(), eventID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"event_id": eventID,
		"messages": s.engine.Ledger().ListByEventAndStatus(eventID, statuses...),
	})
}

// handleApprove handles POST /v1/events/{id}/messages/{msg}/approve.
func (s *WallServer) handleApprove(w http.ResponseWriter, r *http.Request) {
	s.moderate(w, r, s.engine.Approve)
}

// handleReject handles POST /v1/events/{id}/messages/{msg}/reject.
func (s *WallServer) handleReject(w http.ResponseWriter, r *http.Request) {
	s.moderate(w, r, s.engine.Reject)
}

// handleResend handles POST /v1/events/{id}/messages/{msg}/resend.
func (s *WallServer) handleResend(w http.ResponseWriter, r *http.Request) {
	s.moderate(w, r, s.engine.Resend)
}

func (s *WallServer) moderate(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, messageID, eventID string) (model.Message, error)) {
	msg, err := op(r.Context(), r.PathValue("msg"), r.PathValue("id"))
	s.writeMessageResult(w, r, http.StatusOK, msg, err)
}
