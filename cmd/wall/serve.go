package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/guestwall/internal/archive"
	"github.com/alfredjeanlab/guestwall/internal/censor"
	"github.com/alfredjeanlab/guestwall/internal/config"
	"github.com/alfredjeanlab/guestwall/internal/events"
	"github.com/alfredjeanlab/guestwall/internal/ledger"
	"github.com/alfredjeanlab/guestwall/internal/lifecycle"
	"github.com/alfredjeanlab/guestwall/internal/presence"
	"github.com/alfredjeanlab/guestwall/internal/server"
	"github.com/alfredjeanlab/guestwall/internal/store"
	"github.com/alfredjeanlab/guestwall/internal/store/memory"
	"github.com/alfredjeanlab/guestwall/internal/store/postgres"
	"github.com/alfredjeanlab/guestwall/internal/subscription"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the wall server",
	GroupID: "system",
	// Override PersistentPreRunE so we don't create an HTTP client.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		level, err := cfg.SlogLevel()
		if err != nil {
			return err
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, logger)
	},
}

// serve runs the server until ctx is cancelled, then shuts it down.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	natsURL := cfg.NATSURL
	if cfg.EmbeddedNATS {
		ns, err := startEmbeddedNATS(cfg.EmbeddedNATSPort)
		if err != nil {
			return err
		}
		defer ns.Shutdown()
		natsURL = ns.ClientURL()
		logger.Info("embedded NATS started", "url", natsURL)
	}

	dir, err := openDirectory(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer dir.Close()

	pub, sub, err := openTransport(natsURL, logger)
	if err != nil {
		return err
	}
	defer pub.Close()
	defer sub.Close()
	if natsURL != "" {
		logger.Info("announcements over NATS", "nats_url", natsURL)
	} else {
		logger.Info("announcements in process (WALL_NATS_URL not set)")
	}

	masker, err := censor.New(cfg.BlockedWords, cfg.Mask())
	if err != nil {
		return err
	}

	l := ledger.New()
	subs := subscription.New(l, sub, subscription.WithLogger(logger))
	defer subs.Close()

	engine := lifecycle.New(l, dir, pub,
		lifecycle.WithNotifier(subs),
		lifecycle.WithMasker(masker),
		lifecycle.WithMaxTextLength(cfg.MaxMessageLength),
		lifecycle.WithLogger(logger),
	)

	tracker := presence.New(logger)
	tracker.StartReaper(&presence.ReaperConfig{
		StaleThreshold: cfg.ScreenTimeout,
		OnStale: func(eventID, viewerID string) {
			logger.Info("screen went quiet", "event_id", eventID, "viewer_id", viewerID)
		},
	})
	defer tracker.Stop()

	if cfg.Archive.Enabled() {
		dests, err := archiveDestinations(ctx, cfg.Archive, logger)
		if err != nil {
			return err
		}
		scheduler := archive.NewScheduler(l, dir, dests, cfg.Archive.Interval, logger)
		scheduler.Start()
		defer scheduler.Stop()
		logger.Info("archive scheduler started", "interval", cfg.Archive.Interval, "destinations", len(dests))
	}

	wall := server.New(engine, dir, subs, pub,
		server.WithAdminToken(cfg.AdminToken),
		server.WithPresence(tracker),
		server.WithLogger(logger),
	)
	if cfg.AdminToken == "" {
		logger.Warn("WALL_ADMIN_TOKEN not set, moderation routes are open")
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           wall.NewHTTPHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "err", err)
	}
	logger.Info("HTTP server stopped")
	return nil
}

// startEmbeddedNATS runs a NATS server inside this process. Port -1 picks a
// free port.
func startEmbeddedNATS(port int) (*natsserver.Server, error) {
	ns, err := natsserver.NewServer(&natsserver.Options{Host: "127.0.0.1", Port: port})
	if err != nil {
		return nil, fmt.Errorf("creating embedded NATS: %w", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		ns.Shutdown()
		return nil, errors.New("embedded NATS not ready")
	}
	return ns, nil
}

// openDirectory uses Postgres when databaseURL is set and memory otherwise.
func openDirectory(databaseURL string) (store.Directory, error) {
	if databaseURL == "" {
		return memory.New(), nil
	}
	pg, err := postgres.New(databaseURL)
	if err != nil {
		return nil, err
	}
	return pg, nil
}

// openTransport connects to NATS, or returns one in-process bus serving as
// both ends when natsURL is empty.
func openTransport(natsURL string, logger *slog.Logger) (events.Publisher, events.Subscriber, error) {
	if natsURL == "" {
		bus := events.NewBus(logger)
		return bus, bus, nil
	}
	pub, err := events.NewNATSPublisher(natsURL)
	if err != nil {
		return nil, nil, err
	}
	sub, err := events.NewNATSSubscriber(natsURL)
	if err != nil {
		pub.Close()
		return nil, nil, err
	}
	return pub, sub, nil
}

// archiveDestinations builds every destination cfg enables.
func archiveDestinations(ctx context.Context, cfg config.ArchiveConfig, logger *slog.Logger) ([]archive.Destination, error) {
	var dests []archive.Destination
	if cfg.S3Bucket != "" {
		d, err := archive.NewS3Destination(ctx, cfg.S3Bucket, cfg.S3Prefix, cfg.S3Region, cfg.S3Endpoint)
		if err != nil {
			return nil, err
		}
		dests = append(dests, d)
		logger.Info("archive S3 destination enabled", "bucket", cfg.S3Bucket, "prefix", cfg.S3Prefix)
	}
	if cfg.Dir != "" {
		d, err := archive.NewDirDestination(cfg.Dir)
		if err != nil {
			return nil, err
		}
		dests = append(dests, d)
		logger.Info("archive directory destination enabled", "dir", cfg.Dir)
	}
	if cfg.GitRepo != "" {
		dests = append(dests, archive.NewGitDestination(cfg.GitRepo, cfg.GitDir, cfg.GitBranch))
		logger.Info("archive git destination enabled", "repo", cfg.GitRepo, "dir", cfg.GitDir)
	}
	if len(dests) == 0 {
		return nil, errors.New("archive enabled but no destination configured")
	}
	return dests, nil
}
