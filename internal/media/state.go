// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package media defines the runtime-neutral decode pipeline contract used by
// the player engine. A runtime (see media/ffmpeg) implements Pipeline and
// Factory; the player only ever talks to these interfaces.
package media

import "fmt"

// State is the lifecycle state of a pipeline. States are ordered:
// Null < Ready < Paused < Playing.
type State int

const (
	StateNull State = iota
	StateReady
	StatePaused
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateNull:
		return "null"
	case StateReady:
		return "ready"
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ParseState is the inverse of State.String.
func ParseState(s string) (State, error) {
	switch s {
	case "null":
		return StateNull, nil
	case "ready":
		return StateReady, nil
	case "paused":
		return StatePaused, nil
	case "playing":
		return StatePlaying, nil
	}
	return StateNull, fmt.Errorf("unknown pipeline state %q", s)
}
