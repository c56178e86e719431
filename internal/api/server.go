// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api is the HTTP surface of the playbin daemon: player management,
// transport control and frame delivery.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ManuGH/playbin/internal/api/middleware"
	"github.com/ManuGH/playbin/internal/health"
	"github.com/ManuGH/playbin/internal/log"
	"github.com/ManuGH/playbin/internal/player"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Registry is the subset of player.Handler the API drives.
type Registry interface {
	Start(ctx context.Context, b player.Builder) error
	Player(id string) (*player.Player, bool)
	Frame(id string) (*player.Frame, bool)
	LastError(id string) error
	Control(id string, ev player.ControlEvent) (bool, error)
	PendingSeek(id string) (float64, bool)
	IDs() []string
	Remove(id string) bool
}

// Config configures the API server.
type Config struct {
	DataDir      string // snapshots are written below it
	RateLimitRPM int    // control routes; 0 disables
	Version      string

	// Checks are added to the built-in data_dir and players checks.
	Checks []health.Checker
}

// Server serves the API.
type Server struct {
	reg    Registry
	hub    *FrameHub
	cfg    Config
	health *health.Manager
	logger zerolog.Logger
}

func New(reg Registry, hub *FrameHub, cfg Config) *Server {
	s := &Server{reg: reg, hub: hub, cfg: cfg, logger: log.WithComponent("api")}
	s.health = health.NewManager(cfg.Version)
	s.health.RegisterChecker(health.NewDirChecker("data_dir", cfg.DataDir))
	s.health.RegisterChecker(health.NewFuncChecker("players", s.checkPlayers))
	for _, c := range cfg.Checks {
		s.health.RegisterChecker(c)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := middleware.NewRouter()

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/players", func(r chi.Router) {
		r.Get("/", s.handleListPlayers)
		r.With(middleware.ControlRateLimit(s.cfg.RateLimitRPM)).Post("/", s.handleCreatePlayer)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetPlayer)
			r.Delete("/", s.handleDeletePlayer)
			r.Get("/frame", s.handleFrame)
			r.Get("/stream", s.handleStream)

			r.Group(func(r chi.Router) {
				r.Use(middleware.ControlRateLimit(s.cfg.RateLimitRPM))
				r.Post("/control", s.handleControl)
				r.Put("/loop", s.handleLoop)
				r.Put("/rate", s.handleRate)
				r.Post("/restart", s.handleRestart)
				r.Post("/stop", s.handleStop)
				r.Post("/snapshot", s.handleSnapshot)
			})
		})
	})
	return r
}

// checkPlayers is degraded while a player carries an unrecovered error.
func (s *Server) checkPlayers(context.Context) health.CheckResult {
	ids := s.reg.IDs()
	var failing []string
	for _, id := range ids {
		if s.reg.LastError(id) != nil {
			failing = append(failing, id)
		}
	}
	if len(failing) > 0 {
		return health.CheckResult{
			Status:  health.StatusDegraded,
			Message: fmt.Sprintf("%d of %d players failing: %v", len(failing), len(ids), failing),
		}
	}
	return health.CheckResult{Status: health.StatusHealthy, Message: fmt.Sprintf("%d players", len(ids))}
}
