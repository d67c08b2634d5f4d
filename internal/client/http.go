package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/alfredjeanlab/guestwall/internal/model"
)

// HTTPClient implements WallClient using the guestwall HTTP/JSON REST API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080"). When token is non-empty, an Authorization
// header is set on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

func eventPath(eventID string) string {
	return "/v1/events/" + url.PathEscape(eventID)
}

// --- Directory ---

func (c *HTTPClient) CreateEvent(ctx context.Context, in model.NewEventInput) (*model.Event, error) {
	var ev model.Event
	if err := c.doJSON(ctx, http.MethodPost, "/v1/events", in, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func (c *HTTPClient) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	var ev model.Event
	if err := c.doJSON(ctx, http.MethodGet, eventPath(id), nil, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func (c *HTTPClient) GetEventByCode(ctx context.Context, code string) (*model.Event, error) {
	var ev model.Event
	if err := c.doJSON(ctx, http.MethodGet, "/v1/codes/"+url.PathEscape(code), nil, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func (c *HTTPClient) EventStats(ctx context.Context, eventID string) (*EventStats, error) {
	var stats EventStats
	if err := c.doJSON(ctx, http.MethodGet, eventPath(eventID)+"/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *HTTPClient) RegisterGuest(ctx context.Context, eventID string, in model.NewGuestInput) (*model.Guest, error) {
	var g model.Guest
	if err := c.doJSON(ctx, http.MethodPost, eventPath(eventID)+"/guests", in, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (c *HTTPClient) GetGuest(ctx context.Context, eventID, phone string) (*model.Guest, error) {
	var g model.Guest
	if err := c.doJSON(ctx, http.MethodGet, eventPath(eventID)+"/guests/"+url.PathEscape(phone), nil, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// --- Messages ---

func (c *HTTPClient) Submit(ctx context.Context, eventID string, req *SubmitRequest) (*model.Message, error) {
	var msg model.Message
	if err := c.doJSON(ctx, http.MethodPost, eventPath(eventID)+"/messages", req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListMessages lists the event's messages in display order. No statuses lists
// approved messages; "all" lists every status.
func (c *HTTPClient) ListMessages(ctx context.Context, eventID string, statuses ...string) ([]model.Message, error) {
	path := eventPath(eventID) + "/messages"
	if len(statuses) > 0 {
		path += "?" + url.Values{"status": {strings.Join(statuses, ",")}}.Encode()
	}
	var resp struct {
		Messages []model.Message `json:"messages"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

func (c *HTTPClient) Approve(ctx context.Context, eventID, messageID string) (*model.Message, error) {
	return c.moderate(ctx, eventID, messageID, "approve")
}

func (c *HTTPClient) Reject(ctx context.Context, eventID, messageID string) (*model.Message, error) {
	return c.moderate(ctx, eventID, messageID, "reject")
}

func (c *HTTPClient) Resend(ctx context.Context, eventID, messageID string) (*model.Message, error) {
	return c.moderate(ctx, eventID, messageID, "resend")
}

func (c *HTTPClient) moderate(ctx context.Context, eventID, messageID, action string) (*model.Message, error) {
	var msg model.Message
	path := eventPath(eventID) + "/messages/" + url.PathEscape(messageID) + "/" + action
	if err := c.doJSON(ctx, http.MethodPost, path, nil, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// --- Operations ---

func (c *HTTPClient) Screens(ctx context.Context, eventID string) ([]ScreenEntry, error) {
	path := "/v1/screens"
	if eventID != "" {
		path = eventPath(eventID) + "/screens"
	}
	var resp struct {
		Screens []ScreenEntry `json:"screens"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Screens, nil
}

func (c *HTTPClient) Relay(ctx context.Context, req *RelayRequest) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/relay", req, nil)
}

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// --- internal helpers ---

// APIError represents an error response from the server. Stored is set when
// the server kept a message locally but could not announce it.
type APIError struct {
	StatusCode int
	Message    string
	Stored     *model.Message
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// newRequest builds a request with auth and, when body is non-nil, a JSON body.
func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	// 204 No Content: success with no body.
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp.StatusCode, respBody)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}

func decodeAPIError(status int, body []byte) error {
	var errResp struct {
		Error   string         `json:"error"`
		Message *model.Message `json:"message"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		return &APIError{StatusCode: status, Message: errResp.Error, Stored: errResp.Message}
	}
	return &APIError{StatusCode: status, Message: string(body)}
}
