// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package log provides structured logging utilities.
package log

import (
	"context"

	"github.com/rs/zerolog"
)

// correlation carries the ids that tie log lines of one request together.
type correlation struct {
	requestID string
	playerID  string
}

type correlationKey struct{}

func correlationOf(ctx context.Context) correlation {
	if ctx == nil {
		return correlation{}
	}
	c, _ := ctx.Value(correlationKey{}).(correlation)
	return c
}

func withCorrelation(ctx context.Context, update func(*correlation)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	c := correlationOf(ctx)
	update(&c)
	return context.WithValue(ctx, correlationKey{}, c)
}

// ContextWithRequestID tags ctx with the id of the HTTP request it serves.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return withCorrelation(ctx, func(c *correlation) { c.requestID = id })
}

// ContextWithPlayerID tags ctx with the player a request operates on.
func ContextWithPlayerID(ctx context.Context, id string) context.Context {
	return withCorrelation(ctx, func(c *correlation) { c.playerID = id })
}

// RequestIDFromContext returns the request id, or "".
func RequestIDFromContext(ctx context.Context) string {
	return correlationOf(ctx).requestID
}

// PlayerIDFromContext returns the player id, or "".
func PlayerIDFromContext(ctx context.Context) string {
	return correlationOf(ctx).playerID
}

// WithContext adds the correlation ids found in ctx to logger.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	c := correlationOf(ctx)
	if c == (correlation{}) {
		return logger
	}
	builder := logger.With()
	if c.requestID != "" {
		builder = builder.Str(FieldRequestID, c.requestID)
	}
	if c.playerID != "" {
		builder = builder.Str(FieldPlayerID, c.playerID)
	}
	return builder.Logger()
}
