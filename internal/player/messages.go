// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package player

import (
	"image"
	"time"

	"github.com/ManuGH/playbin/internal/media"
)

// Message is one event from a player's background channel. Every variant
// carries the id of the player that produced it.
type Message interface {
	PlayerID() string
	Kind() string
}

// Frame is a decoded RGBA picture, Width*Height*4 bytes.
type Frame struct {
	Width  int
	Height int
	Pixels []byte
	PTS    time.Duration
}

// Image wraps the pixels without copying.
func (f *Frame) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    f.Pixels,
		Stride: f.Width * 4,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

// FrameMessage delivers a decoded frame.
type FrameMessage struct {
	ID    string
	Frame *Frame

	origin
}

// StateMessage reports a settled pipeline state change.
type StateMessage struct {
	ID       string
	Old, New media.State

	origin
}

// ErrorMessage reports an asynchronous pipeline failure.
type ErrorMessage struct {
	ID  string
	Err error

	origin
}

// EOSMessage reports end of stream. Looped is set when a loop restart was issued.
type EOSMessage struct {
	ID     string
	Looped bool

	origin
}

func (m FrameMessage) PlayerID() string { return m.ID }
func (m StateMessage) PlayerID() string { return m.ID }
func (m ErrorMessage) PlayerID() string { return m.ID }
func (m EOSMessage) PlayerID() string   { return m.ID }

func (FrameMessage) Kind() string { return "frame" }
func (StateMessage) Kind() string { return "state" }
func (ErrorMessage) Kind() string { return "error" }
func (EOSMessage) Kind() string   { return "eos" }

// origin is the handler registration a message was forwarded for. Zero means
// the message did not pass through a Handler.
type origin struct {
	gen uint64
}

func (o origin) generation() uint64 { return o.gen }

// stamp tags msg with the registration it is forwarded for.
func stamp(msg Message, gen uint64) Message {
	switch m := msg.(type) {
	case FrameMessage:
		m.gen = gen
		return m
	case StateMessage:
		m.gen = gen
		return m
	case ErrorMessage:
		m.gen = gen
		return m
	case EOSMessage:
		m.gen = gen
		return m
	}
	return msg
}

func generationOf(msg Message) uint64 {
	if g, ok := msg.(interface{ generation() uint64 }); ok {
		return g.generation()
	}
	return 0
}
