package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/mallfront/storefront/client/internal/api"
	"github.com/mallfront/storefront/client/internal/auth"
	"github.com/mallfront/storefront/client/internal/config"
	"github.com/mallfront/storefront/client/internal/store"
	"github.com/mallfront/storefront/client/internal/ws"
	"github.com/mallfront/storefront/pkg/health"
	"github.com/mallfront/storefront/pkg/session"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 5 * time.Second

func newServeCommand(a *app) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the status board: periodic health checks, REST API, metrics and live stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if listen != "" {
				a.cfg.Status.Listen = listen
			}
			return runServe(cmd.Context(), a)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "override status.listen")
	return cmd
}

func runServe(ctx context.Context, a *app) error {
	cfg := a.cfg
	slog.Info("storefront status board starting",
		"listen", cfg.Status.Listen,
		"backend", cfg.Backend.URL(),
		"services", len(cfg.Health.Services),
		"interval", cfg.Status.Interval,
		"auth_mode", cfg.Status.Auth.Mode,
	)

	st := store.New(cfg.Status.UptimeWindow)
	hub := ws.New(st, cfg.Status.Interval)

	mon, err := newMonitor(cfg, st, hub.Notify)
	if err != nil {
		return err
	}
	defer mon.Close()

	handler := api.New(st,
		api.WithMiddleware(auth.APIKey(cfg.Status.Auth.Mode, cfg.Status.Auth.Header, cfg.Status.Auth.Key())),
		api.WithStream(hub),
	)
	srv := &http.Server{
		Addr:              cfg.Status.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go hub.Run(ctx)
	go mon.Run(ctx, cfg.Status.Interval)

	if a.fromFile {
		go func() {
			if err := config.Watch(ctx, a.configPath, func(updated *config.Config) {
				if err := mon.Apply(updated); err != nil {
					slog.Warn("config reload not applied", "err", err)
				}
			}); err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", cfg.Status.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("status board: %w", err)
	}

	slog.Info("storefront status board shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// monitor owns the aggregator and records every check into the store. Apply
// swaps in a new aggregator after a config reload.
type monitor struct {
	store  *store.Store
	notify func()

	// mu is held for reading for a whole check, so Apply never closes
	// probe connections that a check is still using.
	mu      sync.RWMutex
	agg     *health.Aggregator
	closers []io.Closer
}

func newMonitor(cfg *config.Config, st *store.Store, notify func()) (*monitor, error) {
	if notify == nil {
		notify = func() {}
	}
	m := &monitor{store: st, notify: notify}
	if err := m.Apply(cfg); err != nil {
		return nil, err
	}
	return m, nil
}

// Apply rebuilds the aggregator from cfg and drops services that are no
// longer configured from the store.
func (m *monitor) Apply(cfg *config.Config) error {
	// Probes never carry credentials.
	p, err := buildPipeline(cfg, session.NewMemory(session.Session{}), nil, nil)
	if err != nil {
		return err
	}
	agg, closers := buildAggregator(cfg, p)

	m.mu.Lock()
	old := m.closers
	m.agg, m.closers = agg, closers
	m.store.Retain(agg.Services())
	m.mu.Unlock()

	closeAll(old)
	slog.Debug("monitor: aggregator rebuilt", "services", len(agg.Services()))
	return nil
}

// Check runs one CheckAll, records it and notifies listeners.
func (m *monitor) Check(ctx context.Context) health.Snapshot {
	m.mu.RLock()
	snap := m.agg.CheckAll(ctx)
	m.store.Record(snap)
	m.mu.RUnlock()

	m.notify()
	slog.Debug("monitor: check complete",
		"overall", snap.Overall(),
		"unhealthy", snap.Count(health.StatusUnhealthy),
	)
	return snap
}

// Run checks immediately, then every interval until ctx is cancelled.
func (m *monitor) Run(ctx context.Context, interval time.Duration) {
	m.Check(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Close releases probe connections.
func (m *monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	closeAll(m.closers)
	m.closers = nil
}
