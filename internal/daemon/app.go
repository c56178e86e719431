// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon wires the player registry, the frame hub, the HTTP API and
// config hot reload into one process lifecycle.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/playbin/internal/api"
	"github.com/ManuGH/playbin/internal/config"
	"github.com/ManuGH/playbin/internal/health"
	xglog "github.com/ManuGH/playbin/internal/log"
	"github.com/ManuGH/playbin/internal/media"
	"github.com/ManuGH/playbin/internal/player"
	"github.com/rs/zerolog"
)

// Deps are the collaborators of an App. Holder and Listener are optional.
type Deps struct {
	Factory media.Factory
	Holder  *config.Holder
	Version string

	// Listener overrides Config.Listen, mainly for tests.
	Listener net.Listener

	ShutdownTimeout time.Duration
}

// App owns the long-lived runtime: event pump, API server, config reload.
type App struct {
	logger       zerolog.Logger
	deps         Deps
	applied      config.Config
	registry     *player.Handler
	hub          *api.FrameHub
	api          *api.Server
	reloadSignal os.Signal
}

// New builds an App from the effective configuration.
func New(cfg config.Config, deps Deps) (*App, error) {
	if deps.Factory == nil {
		return nil, ErrMissingFactory
	}
	registry := player.NewHandler(deps.Factory, PlayerOptions(cfg))
	hub := api.NewFrameHub()

	var checks []health.Checker
	if rt, ok := deps.Factory.(interface{ Available() error }); ok {
		checks = append(checks, health.ErrorChecker("media_runtime", func(context.Context) error {
			return rt.Available()
		}))
	}
	return &App{
		logger:   xglog.WithComponent("daemon"),
		deps:     deps,
		applied:  cfg,
		registry: registry,
		hub:      hub,
		api: api.New(registry, hub, api.Config{
			DataDir:      cfg.DataDir,
			RateLimitRPM: cfg.RateLimitRPM,
			Version:      deps.Version,
			Checks:       checks,
		}),
		reloadSignal: syscall.SIGHUP,
	}, nil
}

// Registry exposes the player registry.
func (a *App) Registry() *player.Handler { return a.registry }

// Run seeds the configured players and blocks until ctx is cancelled or the
// API server fails. Every player is closed before Run returns.
func (a *App) Run(ctx context.Context) error {
	ln := a.deps.Listener
	if ln == nil {
		var err error
		ln, err = net.Listen("tcp", a.applied.Listen)
		if err != nil {
			_ = a.registry.Close()
			a.hub.Close()
			return fmt.Errorf("listen %s: %w", a.applied.Listen, err)
		}
	}

	srv := newServer(a.logger, a.api.Handler(), a.deps.ShutdownTimeout)
	g, gctx := errgroup.WithContext(ctx)

	pumpDone := make(chan struct{})
	g.Go(func() error {
		defer close(pumpDone)
		a.pump()
		return nil
	})

	for _, spec := range a.applied.Players {
		a.startPlayer(gctx, spec)
	}

	if h := a.deps.Holder; h != nil {
		// Best-effort: a missing watcher leaves SIGHUP reloads working.
		if err := h.StartWatcher(gctx); err != nil {
			a.logger.Warn().Err(err).Str(xglog.FieldEvent, "config.watcher_start_failed").Msg("failed to start config watcher")
		}
		updates := make(chan config.Config, 1)
		h.RegisterListener(updates)
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case next := <-updates:
					a.reconcile(gctx, next)
				}
			}
		})
		if a.reloadSignal != nil {
			g.Go(func() error {
				a.watchReloadSignal(gctx, h)
				return nil
			})
		}
	}

	g.Go(func() error { return srv.serve(ln) })

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info().Str(xglog.FieldEvent, "daemon.stopping").Msg("shutting down")

		var errs []error
		// Closing the hub ends MJPEG streams so the server can drain.
		a.hub.Close()
		if err := srv.shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		if h := a.deps.Holder; h != nil {
			h.Stop()
		}
		if err := a.registry.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close players: %w", err))
		}
		<-pumpDone
		a.logger.Info().Str(xglog.FieldEvent, "daemon.stopped").Msg("daemon stopped")
		return errors.Join(errs...)
	})

	return g.Wait()
}

// pump drains the merged event stream until the registry closes it.
func (a *App) pump() {
	for msg := range a.registry.Events() {
		if !a.registry.HandleEvent(msg) {
			continue
		}
		switch m := msg.(type) {
		case player.FrameMessage:
			a.hub.Publish(m.ID, m.Frame)
		case player.ErrorMessage:
			a.logger.Warn().
				Err(m.Err).
				Str(xglog.FieldPlayerID, m.ID).
				Str(xglog.FieldEvent, "player.error").
				Msg("player reported an error")
		case player.StateMessage:
			a.logger.Debug().
				Str(xglog.FieldPlayerID, m.ID).
				Str(xglog.FieldNewState, m.New.String()).
				Msg("player state changed")
		}
	}
}

func (a *App) startPlayer(ctx context.Context, spec config.PlayerSpec) {
	logger := xglog.WithPlayer("daemon", spec.ID)
	if err := a.registry.Start(ctx, builderFor(spec)); err != nil {
		logger.Error().Err(err).Str(xglog.FieldURI, spec.URI).Msg("failed to start configured player")
		return
	}
	p, ok := a.registry.Player(spec.ID)
	if !ok {
		return
	}
	if err := settingsFor(spec).Apply(p); err != nil {
		logger.Warn().Err(err).Msg("failed to apply player settings")
	}
	logger.Info().
		Str(xglog.FieldURI, spec.URI).
		Bool(xglog.FieldAutoStart, spec.AutoStart).
		Msg("configured player started")
}

// reconcile moves the registry from the applied player set to next.
func (a *App) reconcile(ctx context.Context, next config.Config) {
	changes := config.Diff(a.applied, next)
	a.applied = next
	if changes.Empty() {
		return
	}

	for _, id := range changes.Removed {
		if a.registry.Remove(id) {
			a.hub.Drop(id)
			a.logger.Info().Str(xglog.FieldPlayerID, id).Msg("configured player removed")
		}
	}
	for _, spec := range changes.Changed {
		a.startPlayer(ctx, spec)
	}
	for _, spec := range changes.Added {
		a.startPlayer(ctx, spec)
	}

	if changes.LogLevelChanged {
		xglog.Configure(xglog.Config{
			Level:   next.LogLevel,
			Service: next.LogService,
			Version: a.deps.Version,
		})
	}
	if len(changes.RestartRequired) > 0 {
		a.logger.Warn().
			Strs("fields", changes.RestartRequired).
			Str(xglog.FieldEvent, "config.restart_required").
			Msg("some changes take effect only after a restart")
	}
}

func (a *App) watchReloadSignal(ctx context.Context, h *config.Holder) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, a.reloadSignal)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sigCh:
			a.logger.Info().
				Str(xglog.FieldEvent, "config.reload_signal").
				Str("signal", a.reloadSignal.String()).
				Msg("received reload signal, reloading config")
			if err := h.Reload(ctx); err != nil {
				a.logger.Warn().Err(err).Str(xglog.FieldEvent, "config.reload_failed").Msg("config reload failed")
			}
		}
	}
}
