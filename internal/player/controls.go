// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package player

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/playbin/internal/log"
)

// ControlKind enumerates UI control inputs.
type ControlKind string

const (
	ControlPlay       ControlKind = "play"
	ControlPause      ControlKind = "pause"
	ControlToggleMute ControlKind = "toggle_mute"
	ControlVolume     ControlKind = "volume"
	ControlSeek       ControlKind = "seek"
	ControlReleased   ControlKind = "released"
)

// ControlEvent is one UI control input. Value is the volume in [0,1] for
// ControlVolume and the proposed position in seconds for ControlSeek.
type ControlEvent struct {
	Kind  ControlKind `json:"kind"`
	Value float64     `json:"value,omitempty"`
}

func (e *ControlEvent) UnmarshalJSON(b []byte) error {
	type raw ControlEvent
	var r raw
	if err := json.Unmarshal(b, &r); err != nil {
		return err
	}
	switch r.Kind {
	case ControlPlay, ControlPause, ControlToggleMute, ControlVolume, ControlSeek, ControlReleased:
	default:
		return fmt.Errorf("unknown control kind %q", r.Kind)
	}
	*e = ControlEvent(r)
	return nil
}

// Controls applies ControlEvents with the two-phase seek protocol: Seek only
// records a proposed position, Released commits it. One Controls per player.
type Controls struct {
	mu      sync.Mutex
	pending *float64
}

// Pending returns the proposed but uncommitted seek position in seconds.
func (c *Controls) Pending() (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return 0, false
	}
	return *c.pending, true
}

// Apply maps ev onto p.
func (c *Controls) Apply(p *Player, ev ControlEvent) error {
	logger := p.logger.With().Str("control", string(ev.Kind)).Logger()

	switch ev.Kind {
	case ControlPlay:
		return p.Play()
	case ControlPause:
		return p.Pause()
	case ControlToggleMute:
		return p.SetMuted(!p.Muted())
	case ControlVolume:
		v := min(max(ev.Value, 0), 1)
		return p.SetVolume(v)
	case ControlSeek:
		v := max(ev.Value, 0)
		c.mu.Lock()
		c.pending = &v
		c.mu.Unlock()
		logger.Debug().Float64(log.FieldPosition, v).Msg("seek proposed")
		return nil
	case ControlReleased:
		c.mu.Lock()
		pending := c.pending
		c.pending = nil
		c.mu.Unlock()
		if pending == nil {
			return nil
		}
		return p.Seek(time.Duration(*pending * float64(time.Second)))
	}
	return newError(OpControlEvent, p.id, ErrStateChange, fmt.Errorf("unknown control kind %q", ev.Kind))
}
