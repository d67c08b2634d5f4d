// Package server exposes the wall over HTTP: directory lookups, guest
// submission, admin moderation, and per-screen SSE snapshot streams.
package server

import (
	"log/slog"
	"time"

	"github.com/alfredjeanlab/guestwall/internal/events"
	"github.com/alfredjeanlab/guestwall/internal/lifecycle"
	"github.com/alfredjeanlab/guestwall/internal/presence"
	"github.com/alfredjeanlab/guestwall/internal/store"
	"github.com/alfredjeanlab/guestwall/internal/subscription"
)

// sseKeepaliveInterval is how often keepalive comments are sent to
// prevent connection timeouts.
const sseKeepaliveInterval = 15 * time.Second

// WallServer serves the HTTP API on top of one process's lifecycle engine and
// subscription manager.
type WallServer struct {
	engine    *lifecycle.Engine
	directory store.Directory
	subs      *subscription.Manager
	publisher events.Publisher
	Presence  *presence.Tracker

	adminToken string
	keepalive  time.Duration
	logger     *slog.Logger
}

// Option configures a WallServer.
type Option func(*WallServer)

// WithAdminToken requires "Authorization: Bearer <token>" on admin routes.
// An empty token leaves them open.
func WithAdminToken(token string) Option {
	return func(s *WallServer) { s.adminToken = token }
}

// WithPresence replaces the screen tracker.
func WithPresence(t *presence.Tracker) Option {
	return func(s *WallServer) { s.Presence = t }
}

// WithKeepalive sets the SSE keepalive interval.
func WithKeepalive(d time.Duration) Option {
	return func(s *WallServer) { s.keepalive = d }
}

// WithLogger sets the server's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *WallServer) { s.logger = l }
}

// New returns a WallServer. pub is used only by the relay endpoint.
func New(engine *lifecycle.Engine, dir store.Directory, subs *subscription.Manager, pub events.Publisher, opts ...Option) *WallServer {
	s := &WallServer{
		engine:    engine,
		directory: dir,
		subs:      subs,
		publisher: pub,
		keepalive: sseKeepaliveInterval,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Presence == nil {
		s.Presence = presence.New(s.logger)
	}
	return s
}
