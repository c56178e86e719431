// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package player

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	// ErrPipeline: the decode graph could not be built or the runtime is unavailable.
	ErrPipeline = errors.New("pipeline error")
	// ErrSource: the source could not be set (bad uri, negotiation timeout).
	ErrSource = errors.New("source error")
	// ErrStateChange: play, pause, seek or a rate change failed in the runtime.
	ErrStateChange = errors.New("state change error")
	// ErrMissingElement: an expected capability field or element is absent.
	ErrMissingElement = errors.New("missing element")
	// ErrClosed: the player has been closed.
	ErrClosed = errors.New("player closed")
)

// Operation names carried in Error.Op.
const (
	OpCreate       = "create"
	OpSetSource    = "set_source"
	OpPlay         = "play"
	OpPause        = "pause"
	OpStop         = "stop"
	OpSeek         = "seek"
	OpSetRate      = "set_playback_rate"
	OpSetVolume    = "set_volume"
	OpSetMuted     = "set_muted"
	OpRestart      = "restart_stream"
	OpStartPlayer  = "start_player"
	OpControlEvent = "control"
)

// Error is the typed error returned by player operations.
type Error struct {
	Op       string
	PlayerID string
	Kind     error
	Err      error
}

func newError(op, id string, kind, err error) *Error {
	return &Error{Op: op, PlayerID: id, Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("player %s: %s: %v", e.PlayerID, e.Op, e.Kind)
	}
	return fmt.Sprintf("player %s: %s: %v: %v", e.PlayerID, e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Is makes every failure of set_source match ErrSource, whatever its kind.
func (e *Error) Is(target error) bool {
	return target == ErrSource && e.Op == OpSetSource
}
