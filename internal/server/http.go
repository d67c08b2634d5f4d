package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/alfredjeanlab/guestwall/internal/model"
)

// maxBodyBytes bounds request bodies; theme background images are the
// largest legitimate payload.
const maxBodyBytes = 4 << 20

// NewHTTPHandler returns an http.Handler with all routes registered.
// Admin routes are wrapped in requireAdmin; the rest are public.
func (s *WallServer) NewHTTPHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", s.handleHealth)

	mux.HandleFunc("POST /v1/events", s.requireAdmin(s.handleCreateEvent))
	mux.HandleFunc("GET /v1/events/{id}", s.handleGetEvent)
	mux.HandleFunc("GET /v1/codes/{code}", s.handleGetEventByCode)
	mux.HandleFunc("GET /v1/events/{id}/stats", s.requireAdmin(s.handleEventStats))

	mux.HandleFunc("POST /v1/events/{id}/guests", s.handleRegisterGuest)
	mux.HandleFunc("GET /v1/events/{id}/guests/{phone}", s.handleGetGuest)

	mux.HandleFunc("POST /v1/events/{id}/messages", s.handleSubmit)
	mux.HandleFunc("GET /v1/events/{id}/messages", s.handleListMessages)
	mux.HandleFunc("POST /v1/events/{id}/messages/{msg}/approve", s.requireAdmin(s.handleApprove))
	mux.HandleFunc("POST /v1/events/{id}/messages/{msg}/reject", s.requireAdmin(s.handleReject))
	mux.HandleFunc("POST /v1/events/{id}/messages/{msg}/resend", s.requireAdmin(s.handleResend))

	mux.HandleFunc("GET /v1/events/{id}/stream", s.handleStream)
	mux.HandleFunc("GET /v1/events/{id}/screens", s.requireAdmin(s.handleScreens))
	mux.HandleFunc("GET /v1/screens", s.requireAdmin(s.handleScreens))

	mux.HandleFunc("POST /v1/relay", s.requireAdmin(s.handleRelay))
	return RecoveryMiddleware(s.logger, LoggingMiddleware(s.logger, mux))
}

// handleHealth handles GET /v1/health.
func (s *WallServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeBody decodes a JSON request body into dst.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return &model.ValidationError{Errors: []model.FieldError{{Field: "body", Message: fmt.Sprintf("invalid JSON: %v", err)}}}
	}
	return nil
}

// statusQuery parses ?status=a,b. "all" or an empty value means every status.
func statusQuery(r *http.Request, fallback ...model.Status) ([]model.Status, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("status"))
	switch raw {
	case "":
		return fallback, nil
	case "all":
		return nil, nil
	}
	var parts []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return model.ParseStatuses(parts)
}

// publicView reports whether statuses is exactly the approved-only view that
// screens may read without credentials.
func publicView(statuses []model.Status) bool {
	if len(statuses) == 0 {
		return false
	}
	for _, st := range statuses {
		if st != model.StatusApproved {
			return false
		}
	}
	return true
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// errorStatus maps a domain error to its HTTP status.
func errorStatus(err error) int {
	var (
		ve  *model.ValidationError
		nf  *model.NotFoundError
		ise *model.InvalidStateError
		te  *model.TransportError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.As(err, &ise):
		return http.StatusConflict
	case errors.As(err, &te):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeServiceError writes err with its mapped status. Internal errors are
// logged and hidden from the client.
func (s *WallServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, status, "internal server error")
		return
	}
	if ve := (*model.ValidationError)(nil); errors.As(err, &ve) {
		writeJSON(w, status, map[string]any{"error": ve.Error(), "fields": ve.Errors})
		return
	}
	writeError(w, status, err.Error())
}

// writeMessageResult writes the outcome of a lifecycle call. A transport
// failure still returns the locally stored message alongside the error.
func (s *WallServer) writeMessageResult(w http.ResponseWriter, r *http.Request, okStatus int, msg model.Message, err error) {
	var te *model.TransportError
	switch {
	case err == nil:
		writeJSON(w, okStatus, msg)
	case errors.As(err, &te) && msg.ID != "":
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": te.Error(), "message": msg})
	default:
		s.writeServiceError(w, r, err)
	}
}
