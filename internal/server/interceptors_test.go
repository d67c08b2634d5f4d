package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestCheckBearer(t *testing.T) {
	for _, tc := range []struct {
		name   string
		token  string
		header string
		want   string
	}{
		{"Disabled", "", "", ""},
		{"Valid", "secret", "Bearer secret", ""},
		{"Missing", "secret", "", "missing authorization header"},
		{"WrongScheme", "secret", "Basic secret", "invalid authorization scheme"},
		{"WrongToken", "secret", "Bearer nope", "invalid token"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			if got := checkBearer(r, tc.token); got != tc.want {
				t.Errorf("checkBearer = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	s := &WallServer{adminToken: "secret", logger: discard}
	called := false
	h := s.requireAdmin(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodPost, "/v1/relay", nil))
	if w.Code != http.StatusUnauthorized || called {
		t.Fatalf("unauthenticated: code=%d called=%v", w.Code, called)
	}

	r := httptest.NewRequest(http.MethodPost, "/v1/relay", nil)
	r.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	h(w, r)
	if w.Code != http.StatusNoContent || !called {
		t.Fatalf("authenticated: code=%d called=%v", w.Code, called)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(discard, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("code = %d, want 500", w.Code)
	}
}

func TestLoggingMiddleware_PassesStatusAndFlush(t *testing.T) {
	h := LoggingMiddleware(discard, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if _, ok := w.(http.Flusher); !ok {
			t.Error("wrapped writer lost http.Flusher")
		}
		w.WriteHeader(http.StatusTeapot)
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusTeapot {
		t.Errorf("code = %d", w.Code)
	}
}
