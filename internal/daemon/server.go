// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	readHeaderTimeout = 5 * time.Second
	idleTimeout       = 120 * time.Second
	maxHeaderBytes    = 1 << 20

	// DefaultShutdownTimeout bounds graceful HTTP shutdown.
	DefaultShutdownTimeout = 10 * time.Second
)

// server owns the HTTP listener lifecycle. WriteTimeout stays unset because
// MJPEG streams are long-lived responses.
type server struct {
	logger          zerolog.Logger
	shutdownTimeout time.Duration
	srv             *http.Server
}

func newServer(logger zerolog.Logger, handler http.Handler, shutdownTimeout time.Duration) *server {
	if shutdownTimeout <= 0 {
		shutdownTimeout = DefaultShutdownTimeout
	}
	return &server{
		logger:          logger,
		shutdownTimeout: shutdownTimeout,
		srv: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
			IdleTimeout:       idleTimeout,
			MaxHeaderBytes:    maxHeaderBytes,
		},
	}
}

// serve blocks until the listener fails or shutdown is called. A graceful
// shutdown returns nil, also when it happened before serve.
func (s *server) serve(ln net.Listener) error {
	s.logger.Info().
		Str("addr", ln.Addr().String()).
		Str("event", "api.server.listening").
		Msg("API server listening (HTTP)")

	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error().
			Err(err).
			Str("event", "api.server.failed").
			Msg("API server failed")
		return fmt.Errorf("API server: %w", err)
	}
	return nil
}

func (s *server) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		// Streams that outlive the grace period are cut.
		_ = s.srv.Close()
		return fmt.Errorf("API server shutdown: %w", err)
	}
	return nil
}
