package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alfredjeanlab/guestwall/internal/model"
)

// testHandler captures the incoming request details and returns a canned response.
type testHandler struct {
	// captured from the request
	method      string
	path        string
	rawPath     string
	query       string
	body        string
	contentType string
	auth        string

	// canned response
	statusCode   int
	responseBody string
}

func (h *testHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.method = r.Method
	h.path = r.URL.Path
	h.rawPath = r.URL.RawPath
	h.query = r.URL.RawQuery
	h.contentType = r.Header.Get("Content-Type")
	h.auth = r.Header.Get("Authorization")
	if r.Body != nil {
		data, _ := io.ReadAll(r.Body)
		h.body = string(data)
	}

	w.Header().Set("Content-Type", "application/json")
	if h.statusCode != 0 {
		w.WriteHeader(h.statusCode)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	if h.responseBody != "" {
		_, _ = w.Write([]byte(h.responseBody))
	}
}

// newTestClient creates an HTTPClient pointed at a test server with the given handler.
func newTestClient(t *testing.T, h http.Handler, token string) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL+"/", token)
}

const messageJSON = `{
	"id": "msg_1",
	"event_id": "evt1",
	"author_name": "Ana",
	"author_phone": "+541111",
	"text": "Hola!",
	"status": "pending",
	"created_at": "2026-03-01T20:00:00Z"
}`

func TestHTTPClient_CreateEvent(t *testing.T) {
	h := &testHandler{
		statusCode:   http.StatusCreated,
		responseBody: `{"id":"evt1","code":"AB12CD","name":"Boda","is_active":true,"theme":{"background_color":"#1f2937","text_color":"#ffffff"}}`,
	}
	c := newTestClient(t, h, "tok")

	ev, err := c.CreateEvent(context.Background(), model.NewEventInput{Name: "Boda"})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if h.method != http.MethodPost || h.path != "/v1/events" {
		t.Errorf("request = %s %s", h.method, h.path)
	}
	if h.auth != "Bearer tok" || h.contentType != "application/json" {
		t.Errorf("headers: auth=%q content-type=%q", h.auth, h.contentType)
	}
	if !strings.Contains(h.body, `"name":"Boda"`) {
		t.Errorf("body = %s", h.body)
	}
	if ev.ID != "evt1" || ev.Code != "AB12CD" || !ev.IsActive {
		t.Errorf("event = %+v", ev)
	}
}

func TestHTTPClient_NoTokenNoHeader(t *testing.T) {
	h := &testHandler{responseBody: `{"status":"ok"}`}
	c := newTestClient(t, h, "")

	status, err := c.Health(context.Background())
	if err != nil || status != "ok" {
		t.Fatalf("Health = (%q, %v)", status, err)
	}
	if h.auth != "" {
		t.Errorf("unexpected Authorization header %q", h.auth)
	}
}

func TestHTTPClient_Paths(t *testing.T) {
	ctx := context.Background()
	for _, tc := range []struct {
		name       string
		call       func(c *HTTPClient) error
		wantMethod string
		wantPath   string
		wantQuery  string
		response   string
	}{
		{"GetEvent", func(c *HTTPClient) error { _, err := c.GetEvent(ctx, "evt1"); return err },
			http.MethodGet, "/v1/events/evt1", "", `{"id":"evt1"}`},
		{"GetEventByCode", func(c *HTTPClient) error { _, err := c.GetEventByCode(ctx, "AB12CD"); return err },
			http.MethodGet, "/v1/codes/AB12CD", "", `{"id":"evt1"}`},
		{"EventStats", func(c *HTTPClient) error { _, err := c.EventStats(ctx, "evt1"); return err },
			http.MethodGet, "/v1/events/evt1/stats", "", `{"counts":{"pending":1}}`},
		{"RegisterGuest", func(c *HTTPClient) error {
			_, err := c.RegisterGuest(ctx, "evt1", model.NewGuestInput{Name: "Ana", Phone: "+541111"})
			return err
		}, http.MethodPost, "/v1/events/evt1/guests", "", `{"id":"g1"}`},
		{"GetGuest", func(c *HTTPClient) error { _, err := c.GetGuest(ctx, "evt1", "+541111"); return err },
			http.MethodGet, "/v1/events/evt1/guests/+541111", "", `{"id":"g1"}`},
		{"Submit", func(c *HTTPClient) error {
			_, err := c.Submit(ctx, "evt1", &SubmitRequest{AuthorName: "Ana", Text: "Hola!"})
			return err
		}, http.MethodPost, "/v1/events/evt1/messages", "", messageJSON},
		{"ListApproved", func(c *HTTPClient) error { _, err := c.ListMessages(ctx, "evt1"); return err },
			http.MethodGet, "/v1/events/evt1/messages", "", `{"messages":[]}`},
		{"ListPending", func(c *HTTPClient) error { _, err := c.ListMessages(ctx, "evt1", "pending", "rejected"); return err },
			http.MethodGet, "/v1/events/evt1/messages", "status=pending%2Crejected", `{"messages":[]}`},
		{"Approve", func(c *HTTPClient) error { _, err := c.Approve(ctx, "evt1", "msg_1"); return err },
			http.MethodPost, "/v1/events/evt1/messages/msg_1/approve", "", messageJSON},
		{"Reject", func(c *HTTPClient) error { _, err := c.Reject(ctx, "evt1", "msg_1"); return err },
			http.MethodPost, "/v1/events/evt1/messages/msg_1/reject", "", messageJSON},
		{"Resend", func(c *HTTPClient) error { _, err := c.Resend(ctx, "evt1", "msg_1"); return err },
			http.MethodPost, "/v1/events/evt1/messages/msg_1/resend", "", messageJSON},
		{"ScreensAll", func(c *HTTPClient) error { _, err := c.Screens(ctx, ""); return err },
			http.MethodGet, "/v1/screens", "", `{"screens":[]}`},
		{"ScreensEvent", func(c *HTTPClient) error { _, err := c.Screens(ctx, "evt1"); return err },
			http.MethodGet, "/v1/events/evt1/screens", "", `{"screens":[]}`},
		{"Relay", func(c *HTTPClient) error {
			return c.Relay(ctx, &RelayRequest{Channel: "event-evt1", Event: "message-rejected", Data: []byte(`{"message_id":"m"}`)})
		}, http.MethodPost, "/v1/relay", "", `{"status":"relayed"}`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := &testHandler{responseBody: tc.response}
			c := newTestClient(t, h, "")
			if err := tc.call(c); err != nil {
				t.Fatalf("call: %v", err)
			}
			if h.method != tc.wantMethod || h.path != tc.wantPath || h.query != tc.wantQuery {
				t.Errorf("request = %s %s?%s, want %s %s?%s", h.method, h.path, h.query, tc.wantMethod, tc.wantPath, tc.wantQuery)
			}
		})
	}
}

func TestHTTPClient_PathEscape(t *testing.T) {
	h := &testHandler{responseBody: `{"id":"x"}`}
	c := newTestClient(t, h, "")
	if _, err := c.GetEvent(context.Background(), "a/b"); err != nil {
		t.Fatal(err)
	}
	if h.rawPath != "/v1/events/a%2Fb" {
		t.Errorf("raw path = %q", h.rawPath)
	}
}

func TestHTTPClient_ListMessagesDecodes(t *testing.T) {
	h := &testHandler{responseBody: fmt.Sprintf(`{"event_id":"evt1","messages":[%s]}`, messageJSON)}
	c := newTestClient(t, h, "")
	msgs, err := c.ListMessages(context.Background(), "evt1", "all")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].ID != "msg_1" || msgs[0].Status != model.StatusPending {
		t.Errorf("messages = %+v", msgs)
	}
}

func TestHTTPClient_APIError(t *testing.T) {
	h := &testHandler{statusCode: http.StatusNotFound, responseBody: `{"error":"event \"nope\" not found"}`}
	c := newTestClient(t, h, "")

	_, err := c.GetEvent(context.Background(), "nope")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || !strings.Contains(apiErr.Message, "not found") {
		t.Errorf("apiErr = %+v", apiErr)
	}
	if !IsNotFound(err) {
		t.Error("IsNotFound = false")
	}
}

func TestHTTPClient_APIErrorPlainBody(t *testing.T) {
	h := &testHandler{statusCode: http.StatusInternalServerError, responseBody: "oops"}
	c := newTestClient(t, h, "")

	_, err := c.Health(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "oops" {
		t.Fatalf("err = %v", err)
	}
}

func TestHTTPClient_TransportErrorKeepsStoredMessage(t *testing.T) {
	h := &testHandler{
		statusCode:   http.StatusBadGateway,
		responseBody: fmt.Sprintf(`{"error":"announce new-message on event-evt1: down","message":%s}`, messageJSON),
	}
	c := newTestClient(t, h, "")

	_, err := c.Submit(context.Background(), "evt1", &SubmitRequest{AuthorName: "Ana", Text: "Hola!"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Stored == nil || apiErr.Stored.ID != "msg_1" {
		t.Errorf("stored = %+v", apiErr.Stored)
	}
}
