package server

import (
	"encoding/json"
	"net/http"

	"github.com/alfredjeanlab/guestwall/internal/events"
	"github.com/alfredjeanlab/guestwall/internal/model"
)

// relayRequest is the body of POST /v1/relay.
type relayRequest struct {
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data"`
}

// handleRelay handles POST /v1/relay. It forwards a pre-built announcement to
// the transport after checking that receivers would accept it.
func (s *WallServer) handleRelay(w http.ResponseWriter, r *http.Request) {
	var req relayRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	var fields []model.FieldError
	if _, ok := events.EventIDFromTopic(req.Channel); !ok {
		fields = append(fields, model.FieldError{Field: "channel", Message: "must be " + events.TopicPrefix + "<event id>"})
	}
	if !events.KnownEvent(req.Event) {
		fields = append(fields, model.FieldError{Field: "event", Message: "unknown event name"})
	}
	if len(fields) == 0 {
		raw, err := json.Marshal(events.Envelope{Event: req.Event, Data: req.Data})
		if err == nil {
			_, err = events.Decode(raw)
		}
		if err != nil {
			fields = append(fields, model.FieldError{Field: "data", Message: err.Error()})
		}
	}
	if len(fields) > 0 {
		s.writeServiceError(w, r, &model.ValidationError{Errors: fields})
		return
	}

	if err := s.publisher.Publish(r.Context(), req.Channel, req.Event, req.Data); err != nil {
		s.writeServiceError(w, r, &model.TransportError{Topic: req.Channel, Event: req.Event, Err: err})
		return
	}
	s.logger.Info("relayed announcement", "topic", req.Channel, "event", req.Event)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "relayed"})
}
